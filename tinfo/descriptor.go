package tinfo

import (
	"strconv"
	"strings"
)

// BadSize is returned by Size when the size of a type is not known.
const BadSize = ^uint64(0)

// DefaultPointerSize is used when the bound library does not declare one.
const DefaultPointerSize = 8

const maxResolveDepth = 32

// Library is the type-library context named references are resolved
// against. Implementations are supplied by the caller; this package never
// creates or destroys one.
type Library interface {
	NamedType(name string) (*Descriptor, bool)
	NumberedType(ordinal uint32) (*Descriptor, bool)
}

// PointerSizer is optionally implemented by a Library to declare the
// address width of its target.
type PointerSizer interface {
	PointerSize() uint64
}

// Descriptor is a structural type description. The zero value and nil
// both describe "no type".
//
// A descriptor is a root index into an arena plus the library used to
// resolve named references. Descriptors returned from detail accessors
// share the arena of their parent; they hold indices only.
type Descriptor struct {
	arena *Arena
	lib   Library
	root  NodeID
}

func leaf(n node) *Descriptor {
	a := newArena()
	return &Descriptor{arena: a, root: a.add(n)}
}

func (d *Descriptor) node() *node {
	if d == nil {
		return nil
	}
	return d.arena.get(d.root)
}

func (d *Descriptor) sub(id NodeID) *Descriptor {
	if id == noNode {
		return nil
	}
	return &Descriptor{arena: d.arena, root: id, lib: d.lib}
}

func graftInto(a *Arena, d *Descriptor) NodeID {
	if d == nil {
		return noNode
	}
	return a.graft(d.arena, d.root)
}

// None returns the explicit "no type" descriptor.
func None() *Descriptor {
	return &Descriptor{}
}

// Unknown returns an opaque type of the given byte size; size 0 means the
// size is unknown as well.
func Unknown(size uint64) *Descriptor {
	return leaf(node{kind: KindUnknown, size: size})
}

func Void() *Descriptor {
	return leaf(node{kind: KindVoid})
}

// Scalar returns a descriptor for a scalar kind. It panics if k is not a
// scalar kind.
func Scalar(k Kind) *Descriptor {
	if !k.IsScalar() {
		panic("tinfo: Scalar called with non-scalar kind " + k.String())
	}
	return leaf(node{kind: k})
}

// Ptr returns a pointer to pointee. A nil pointee yields void *.
func Ptr(pointee *Descriptor) *Descriptor {
	return NewPtr(PtrDetail{Pointee: pointee})
}

func NewPtr(p PtrDetail) *Descriptor {
	a := newArena()
	elem := graftInto(a, p.Pointee)
	if elem == noNode {
		elem = a.add(node{kind: KindVoid})
	}
	n := node{kind: KindPtr, elem: elem, closure: graftInto(a, p.Closure)}
	return &Descriptor{arena: a, root: a.add(n)}
}

func Array(elem *Descriptor, n uint64) *Descriptor {
	return NewArray(ArrayDetail{Elem: elem, Len: n})
}

func NewArray(det ArrayDetail) *Descriptor {
	a := newArena()
	n := node{kind: KindArray, elem: graftInto(a, det.Elem), length: det.Len, base: det.Base}
	return &Descriptor{arena: a, root: a.add(n)}
}

// Func returns a function type. A nil ret means void.
func Func(ret *Descriptor, cc CallConv, params ...FuncParam) *Descriptor {
	return NewFunc(FuncDetail{Ret: ret, CC: cc, Params: params})
}

func NewFunc(f FuncDetail) *Descriptor {
	a := newArena()
	n := node{kind: KindFunc, cc: f.CC, elem: graftInto(a, f.Ret)}
	if n.elem == noNode {
		n.elem = a.add(node{kind: KindVoid})
	}
	n.members = make([]member, len(f.Params))
	for i, p := range f.Params {
		n.members[i] = member{name: p.Name, typ: graftInto(a, p.Type)}
	}
	return &Descriptor{arena: a, root: a.add(n)}
}

// Struct returns a struct with natural layout.
func Struct(members ...Member) *Descriptor {
	return NewUDT(UDTDetail{Members: members})
}

// Union returns a union with natural layout.
func Union(members ...Member) *Descriptor {
	return NewUDT(UDTDetail{Members: members, Union: true})
}

// StructLayout returns a struct whose members sit at the explicit bit
// offsets given in each Member. A zero size is derived from the members.
func StructLayout(size, align uint64, members ...Member) *Descriptor {
	return NewUDT(UDTDetail{Members: members, Size: size, Align: align, Explicit: true})
}

func NewUDT(u UDTDetail) *Descriptor {
	a := newArena()
	n := node{kind: KindStruct, size: u.Size, align: u.Align, layout: u.Explicit}
	if u.Union {
		n.kind = KindUnion
	}
	n.members = make([]member, len(u.Members))
	for i, m := range u.Members {
		n.members[i] = member{
			name:     m.Name,
			typ:      graftInto(a, m.Type),
			offset:   m.Offset,
			bitWidth: m.BitWidth,
		}
	}
	return &Descriptor{arena: a, root: a.add(n)}
}

// Enum returns an enumeration stored in width bytes (0 means 4). It
// panics unless width is 0, 1, 2, 4 or 8.
func Enum(width uint64, cases ...EnumCase) *Descriptor {
	return NewEnum(EnumDetail{Width: width, Cases: cases})
}

// ValidEnumWidth reports whether w is a storage width an enumeration can
// use.
func ValidEnumWidth(w uint64) bool {
	switch w {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

func NewEnum(e EnumDetail) *Descriptor {
	w := e.Width
	if w == 0 {
		w = 4
	}
	if !ValidEnumWidth(w) {
		panic("tinfo: enum width " + strconv.FormatUint(w, 10) + " is not 1, 2, 4 or 8")
	}
	return leaf(node{kind: KindEnum, size: w, cases: append([]EnumCase(nil), e.Cases...)})
}

// Named returns a reference to a library type by name.
func Named(name string) *Descriptor {
	return leaf(node{kind: KindNamed, ref: name})
}

// Numbered returns a reference to a library type by ordinal.
func Numbered(ordinal uint32) *Descriptor {
	return leaf(node{kind: KindNamed, ordinal: ordinal})
}

// Forward returns an opaque forward reference by name.
func Forward(name string) *Descriptor {
	return leaf(node{kind: KindNamed, ref: name, forward: true})
}

func (d *Descriptor) rebuild(edit func(*node)) *Descriptor {
	if d.node() == nil {
		return None()
	}
	a := newArena()
	root := a.graft(d.arena, d.root)
	edit(&a.nodes[root])
	return &Descriptor{arena: a, root: root, lib: d.lib}
}

// WithName returns a copy carrying a declared name.
func (d *Descriptor) WithName(name string) *Descriptor {
	return d.rebuild(func(n *node) { n.name = name })
}

// WithQualifiers returns a copy with the given cv-qualifiers.
func (d *Descriptor) WithQualifiers(q Qualifiers) *Descriptor {
	return d.rebuild(func(n *node) { n.quals = q })
}

// Bind returns a descriptor sharing d's nodes that resolves named
// references through lib.
func (d *Descriptor) Bind(lib Library) *Descriptor {
	if d == nil {
		return &Descriptor{lib: lib}
	}
	return &Descriptor{arena: d.arena, root: d.root, lib: lib}
}

// Library returns the library the descriptor is bound to, if any.
func (d *Descriptor) Library() Library {
	if d == nil {
		return nil
	}
	return d.lib
}

// Arena exposes the node storage the descriptor lives in.
func (d *Descriptor) Arena() *Arena {
	if d == nil {
		return nil
	}
	return d.arena
}

// Clear releases the arena and library references. A cleared descriptor
// reports KindNone. Clear is idempotent and safe on nil.
func (d *Descriptor) Clear() {
	if d == nil {
		return
	}
	d.arena = nil
	d.lib = nil
	d.root = noNode
}

func (d *Descriptor) Kind() Kind {
	n := d.node()
	if n == nil {
		return KindNone
	}
	return n.kind
}

// IsNone reports whether d describes "no type".
func (d *Descriptor) IsNone() bool {
	return d.Kind() == KindNone
}

// Name returns the declared name, or "".
func (d *Descriptor) Name() string {
	if n := d.node(); n != nil {
		return n.name
	}
	return ""
}

func (d *Descriptor) Qualifiers() Qualifiers {
	if n := d.node(); n != nil {
		return n.quals
	}
	return 0
}

// Ref returns the reference carried by a KindNamed descriptor.
func (d *Descriptor) Ref() (name string, ordinal uint32, ok bool) {
	n := d.node()
	if n == nil || n.kind != KindNamed {
		return "", 0, false
	}
	return n.ref, n.ordinal, true
}

// IsForward reports whether d is an unresolved forward placeholder.
func (d *Descriptor) IsForward() bool {
	n := d.node()
	return n != nil && n.kind == KindNamed && n.forward
}

// UnknownSize returns the byte size recorded for a KindUnknown descriptor.
func (d *Descriptor) UnknownSize() uint64 {
	n := d.node()
	if n == nil || n.kind != KindUnknown {
		return 0
	}
	return n.size
}

func (d *Descriptor) PtrDetails() (*PtrDetail, bool) {
	n := d.node()
	if n == nil || n.kind != KindPtr {
		return nil, false
	}
	return &PtrDetail{Pointee: d.sub(n.elem), Closure: d.sub(n.closure)}, true
}

func (d *Descriptor) ArrayDetails() (*ArrayDetail, bool) {
	n := d.node()
	if n == nil || n.kind != KindArray {
		return nil, false
	}
	return &ArrayDetail{Elem: d.sub(n.elem), Len: n.length, Base: n.base}, true
}

func (d *Descriptor) FuncDetails() (*FuncDetail, bool) {
	n := d.node()
	if n == nil || n.kind != KindFunc {
		return nil, false
	}
	f := &FuncDetail{Ret: d.sub(n.elem), CC: n.cc, Params: make([]FuncParam, len(n.members))}
	for i, m := range n.members {
		f.Params[i] = FuncParam{Name: m.name, Type: d.sub(m.typ)}
	}
	return f, true
}

func (d *Descriptor) UDTDetails() (*UDTDetail, bool) {
	n := d.node()
	if n == nil || !n.kind.IsAggregate() {
		return nil, false
	}
	u := &UDTDetail{
		Union:    n.kind == KindUnion,
		Explicit: n.layout,
		Size:     n.size,
		Align:    n.align,
		Members:  make([]Member, len(n.members)),
	}
	for i, m := range n.members {
		u.Members[i] = Member{Name: m.name, Type: d.sub(m.typ), Offset: m.offset, BitWidth: m.bitWidth}
	}
	return u, true
}

func (d *Descriptor) EnumDetails() (*EnumDetail, bool) {
	n := d.node()
	if n == nil || n.kind != KindEnum {
		return nil, false
	}
	return &EnumDetail{Width: n.size, Cases: append([]EnumCase(nil), n.cases...)}, true
}

// PointerSize returns the address width of the bound library.
func (d *Descriptor) PointerSize() uint64 {
	if d != nil {
		if ps, ok := d.lib.(PointerSizer); ok {
			if sz := ps.PointerSize(); sz != 0 {
				return sz
			}
		}
	}
	return DefaultPointerSize
}

// Resolve follows named references through the bound library until a
// concrete descriptor is reached. Non-named descriptors resolve to
// themselves.
func (d *Descriptor) Resolve() (*Descriptor, bool) {
	cur := d
	for i := 0; i < maxResolveDepth; i++ {
		n := cur.node()
		if n == nil {
			return cur, false
		}
		if n.kind != KindNamed {
			return cur, true
		}
		next, ok := cur.lookup(n)
		if !ok {
			return cur, false
		}
		cur = next
	}
	return cur, false
}

func (d *Descriptor) lookup(n *node) (*Descriptor, bool) {
	if d.lib == nil {
		return nil, false
	}
	var (
		t  *Descriptor
		ok bool
	)
	if n.ref != "" {
		t, ok = d.lib.NamedType(n.ref)
	} else {
		t, ok = d.lib.NumberedType(n.ordinal)
	}
	if !ok || t.IsNone() {
		return nil, false
	}
	if t.lib == nil {
		t = t.Bind(d.lib)
	}
	return t, true
}

// IsResolved reports whether every named reference reachable from d's
// own nodes resolves through the bound library.
func (d *Descriptor) IsResolved() bool {
	if d.node() == nil {
		return true
	}
	return d.resolvedFrom(d.root)
}

func (d *Descriptor) resolvedFrom(id NodeID) bool {
	n := d.arena.get(id)
	if n == nil {
		return true
	}
	if n.kind == KindNamed {
		if n.forward {
			return false
		}
		_, ok := d.sub(id).Resolve()
		return ok
	}
	if !d.resolvedFrom(n.elem) || !d.resolvedFrom(n.closure) {
		return false
	}
	for _, m := range n.members {
		if !d.resolvedFrom(m.typ) {
			return false
		}
	}
	return true
}

// Walk visits every node reachable from d's root in depth-first order
// without resolving named references. Returning false stops the walk.
func (d *Descriptor) Walk(fn func(*Descriptor) bool) {
	if d.node() == nil {
		return
	}
	d.walk(d.root, fn)
}

func (d *Descriptor) walk(id NodeID, fn func(*Descriptor) bool) bool {
	n := d.arena.get(id)
	if n == nil {
		return true
	}
	if !fn(d.sub(id)) {
		return false
	}
	if !d.walk(n.elem, fn) || !d.walk(n.closure, fn) {
		return false
	}
	for _, m := range n.members {
		if !d.walk(m.typ, fn) {
			return false
		}
	}
	return true
}

// Equal reports whether a and b are structurally identical: kinds,
// qualifiers, names, nesting, member names, offsets and widths. Named
// references compare by name or ordinal; the forward flag and the bound
// library are context and are ignored.
func Equal(a, b *Descriptor) bool {
	an, bn := a.node(), b.node()
	if an == nil || bn == nil {
		return an == nil && bn == nil
	}
	return nodeEqual(a.arena, a.root, b.arena, b.root)
}

func nodeEqual(aa *Arena, ai NodeID, ba *Arena, bi NodeID) bool {
	an, bn := aa.get(ai), ba.get(bi)
	if an == nil || bn == nil {
		return an == nil && bn == nil
	}
	if an.kind != bn.kind || an.quals != bn.quals || an.name != bn.name {
		return false
	}
	switch an.kind {
	case KindUnknown:
		return an.size == bn.size
	case KindNamed:
		return an.ref == bn.ref && an.ordinal == bn.ordinal
	case KindEnum:
		if an.size != bn.size || len(an.cases) != len(bn.cases) {
			return false
		}
		for i := range an.cases {
			if an.cases[i] != bn.cases[i] {
				return false
			}
		}
		return true
	case KindPtr:
		return nodeEqual(aa, an.elem, ba, bn.elem) && nodeEqual(aa, an.closure, ba, bn.closure)
	case KindArray:
		return an.length == bn.length && an.base == bn.base && nodeEqual(aa, an.elem, ba, bn.elem)
	case KindFunc:
		if an.cc != bn.cc || !nodeEqual(aa, an.elem, ba, bn.elem) {
			return false
		}
		return membersEqual(aa, an.members, ba, bn.members)
	case KindStruct, KindUnion:
		if an.layout != bn.layout || an.size != bn.size || an.align != bn.align {
			return false
		}
		return membersEqual(aa, an.members, ba, bn.members)
	default:
		return true
	}
}

func membersEqual(aa *Arena, am []member, ba *Arena, bm []member) bool {
	if len(am) != len(bm) {
		return false
	}
	for i := range am {
		if am[i].name != bm[i].name || am[i].offset != bm[i].offset || am[i].bitWidth != bm[i].bitWidth {
			return false
		}
		if !nodeEqual(aa, am[i].typ, ba, bm[i].typ) {
			return false
		}
	}
	return true
}

// String returns a compact structural rendering used in diagnostics.
func (d *Descriptor) String() string {
	if d.node() == nil {
		return "none"
	}
	var b strings.Builder
	d.format(&b, d.root)
	return b.String()
}

func (d *Descriptor) format(b *strings.Builder, id NodeID) {
	n := d.arena.get(id)
	if n == nil {
		b.WriteString("none")
		return
	}
	if n.quals.IsConst() {
		b.WriteString("const ")
	}
	if n.quals.IsVolatile() {
		b.WriteString("volatile ")
	}
	switch n.kind {
	case KindUnknown:
		b.WriteString("unknown")
		if n.size != 0 {
			b.WriteByte('(')
			b.WriteString(strconv.FormatUint(n.size, 10))
			b.WriteByte(')')
		}
	case KindNamed:
		if n.ref != "" {
			b.WriteString(n.ref)
		} else {
			b.WriteByte('#')
			b.WriteString(strconv.FormatUint(uint64(n.ordinal), 10))
		}
	case KindPtr:
		b.WriteString("ptr(")
		d.format(b, n.elem)
		b.WriteByte(')')
	case KindArray:
		b.WriteString("array[")
		b.WriteString(strconv.FormatUint(n.length, 10))
		b.WriteString("](")
		d.format(b, n.elem)
		b.WriteByte(')')
	case KindFunc:
		b.WriteString("func(")
		d.formatMembers(b, n.members)
		b.WriteString(")->")
		d.format(b, n.elem)
	case KindStruct, KindUnion:
		b.WriteString(n.kind.String())
		if n.name != "" {
			b.WriteByte(' ')
			b.WriteString(n.name)
		}
		b.WriteByte('{')
		d.formatMembers(b, n.members)
		b.WriteByte('}')
	case KindEnum:
		b.WriteString("enum")
		if n.name != "" {
			b.WriteByte(' ')
			b.WriteString(n.name)
		}
	default:
		b.WriteString(n.kind.String())
	}
}

func (d *Descriptor) formatMembers(b *strings.Builder, members []member) {
	for i, m := range members {
		if i > 0 {
			b.WriteByte(';')
		}
		if m.name != "" {
			b.WriteString(m.name)
			b.WriteByte(':')
		}
		d.format(b, m.typ)
		if m.bitWidth != 0 {
			b.WriteByte(':')
			b.WriteString(strconv.FormatUint(m.bitWidth, 10))
		}
	}
}
