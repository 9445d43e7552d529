// Package value defines the dynamic value exchanged with the transcoder.
//
// A Value is a closed variant: an integer, a float, a byte string, or an
// ordered aggregate of members that may or may not carry names. The zero
// Value is Nil.
package value

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// Kind discriminates a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindFloat
	KindBytes
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBytes:
		return "bytes"
	case KindAggregate:
		return "aggregate"
	default:
		return "invalid"
	}
}

// Member is one element of an aggregate. An empty Name marks a positional
// member.
type Member struct {
	Name  string
	Value Value
}

// Value is an immutable dynamic value.
type Value struct {
	b       []byte
	members []Member
	i       int64
	f       float64
	kind    Kind
}

// Nil is the absent value.
var Nil Value

// Int returns an integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, i: v}
}

// Uint returns an integer value holding the two's complement bits of v.
func Uint(v uint64) Value {
	return Value{kind: KindInt, i: int64(v)}
}

func Float(v float64) Value {
	return Value{kind: KindFloat, f: v}
}

// Bytes returns a byte string value. The slice is copied.
func Bytes(b []byte) Value {
	return Value{kind: KindBytes, b: append([]byte{}, b...)}
}

// Field builds a named aggregate member.
func Field(name string, v Value) Member {
	return Member{Name: name, Value: v}
}

// Aggregate returns an aggregate of the given members in order.
func Aggregate(members ...Member) Value {
	return Value{kind: KindAggregate, members: append([]Member{}, members...)}
}

// Positional returns an aggregate whose members are addressable by index
// only.
func Positional(vs ...Value) Value {
	members := make([]Member, len(vs))
	for i, v := range vs {
		members[i].Value = v
	}
	return Value{kind: KindAggregate, members: members}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNil() bool { return v.kind == KindNil }

// Int returns the integer payload, or 0 for other kinds.
func (v Value) Int() int64 {
	if v.kind != KindInt {
		return 0
	}
	return v.i
}

// Uint returns the integer payload reinterpreted as unsigned.
func (v Value) Uint() uint64 {
	return uint64(v.Int())
}

func (v Value) Float() float64 {
	if v.kind != KindFloat {
		return 0
	}
	return v.f
}

// Bytes returns the byte payload. The caller must not modify it.
func (v Value) Bytes() []byte {
	if v.kind != KindBytes {
		return nil
	}
	return v.b
}

// Len returns the number of aggregate members or bytes.
func (v Value) Len() int {
	switch v.kind {
	case KindAggregate:
		return len(v.members)
	case KindBytes:
		return len(v.b)
	default:
		return 0
	}
}

// At returns the i-th aggregate member's value, or Nil.
func (v Value) At(i int) Value {
	if v.kind != KindAggregate || i < 0 || i >= len(v.members) {
		return Nil
	}
	return v.members[i].Value
}

// MemberAt returns the i-th aggregate member.
func (v Value) MemberAt(i int) (Member, bool) {
	if v.kind != KindAggregate || i < 0 || i >= len(v.members) {
		return Member{}, false
	}
	return v.members[i], true
}

// Get returns the value of the first member called name.
func (v Value) Get(name string) (Value, bool) {
	if v.kind != KindAggregate || name == "" {
		return Nil, false
	}
	for _, m := range v.members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return Nil, false
}

// Members returns a copy of the aggregate members.
func (v Value) Members() []Member {
	if v.kind != KindAggregate {
		return nil
	}
	return append([]Member{}, v.members...)
}

// IsNamed reports whether every member of a non-empty aggregate has a name.
func (v Value) IsNamed() bool {
	if v.kind != KindAggregate || len(v.members) == 0 {
		return false
	}
	for _, m := range v.members {
		if m.Name == "" {
			return false
		}
	}
	return true
}

// Equal reports deep equality. Floats compare by value, so NaN is never
// equal to itself.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindInt:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindBytes:
		return string(a.b) == string(b.b)
	case KindAggregate:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Name != b.members[i].Name || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders the value for diagnostics: named aggregates as {a: 1},
// positional ones as [1, 2], bytes as hex.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.kind {
	case KindNil:
		b.WriteString("nil")
	case KindInt:
		b.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		b.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindBytes:
		b.WriteString("0x")
		b.WriteString(hex.EncodeToString(v.b))
	case KindAggregate:
		open, closing := byte('['), byte(']')
		if v.IsNamed() {
			open, closing = '{', '}'
		}
		b.WriteByte(open)
		for i, m := range v.members {
			if i > 0 {
				b.WriteString(", ")
			}
			if m.Name != "" {
				b.WriteString(m.Name)
				b.WriteString(": ")
			}
			m.Value.format(b)
		}
		b.WriteByte(closing)
	}
}
