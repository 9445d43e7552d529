package tinfo

import (
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/internal/align"
)

const maxLayoutDepth = 64

// MemberLayout is the effective placement of one aggregate member.
//
// For ordinary members Offset is the byte offset and Size the byte size.
// For bit-fields Offset and Size describe the storage unit the field lives
// in, and BitShift is the position of the field's low bit inside that unit
// counted from its least significant bit.
type MemberLayout struct {
	Type     *Descriptor
	Name     string
	Offset   uint64
	Size     uint64
	BitShift uint64
	BitWidth uint64
}

// Layout is the computed memory layout of a struct or union.
type Layout struct {
	Members []MemberLayout
	Size    uint64
	Align   uint64
}

// Size returns the byte size of the type, or BadSize when it cannot be
// known: none, void, functions, forward or unresolved references, opaque
// types without a size and aggregates whose layout is invalid.
func (d *Descriptor) Size() uint64 {
	sz, _, ok := sizeAlign(d, 0)
	if !ok {
		return BadSize
	}
	return sz
}

// Align returns the byte alignment of the type, or 0 when the size is not
// known.
func (d *Descriptor) Align() uint64 {
	_, al, ok := sizeAlign(d, 0)
	if !ok {
		return 0
	}
	return al
}

// Layout computes the effective member placement of a struct or union.
// Named references are resolved first.
func (d *Descriptor) Layout() (*Layout, error) {
	r, ok := d.Resolve()
	if !ok {
		name, _, _ := d.Ref()
		return nil, errors.Unresolved(errors.PhaseLayout, errors.NoOffset, name)
	}
	return layoutOf(r, 0)
}

func sizeAlign(d *Descriptor, depth int) (uint64, uint64, bool) {
	if depth > maxLayoutDepth {
		return 0, 0, false
	}
	n := d.node()
	if n == nil {
		return 0, 0, false
	}
	switch n.kind {
	case KindUnknown:
		if n.size == 0 {
			return 0, 0, false
		}
		return n.size, 1, true
	case KindPtr:
		ps := d.PointerSize()
		return ps, ps, true
	case KindArray:
		esz, eal, ok := sizeAlign(d.sub(n.elem), depth+1)
		if !ok {
			return 0, 0, false
		}
		total, ok := align.SafeMul(esz, n.length)
		if !ok {
			return 0, 0, false
		}
		return total, eal, true
	case KindStruct, KindUnion:
		l, err := layoutOf(d, depth)
		if err != nil {
			return 0, 0, false
		}
		return l.Size, l.Align, true
	case KindEnum:
		return n.size, n.size, true
	case KindNamed:
		if n.forward {
			return 0, 0, false
		}
		r, ok := d.Resolve()
		if !ok {
			return 0, 0, false
		}
		return sizeAlign(r, depth+1)
	default:
		if sz := n.kind.ScalarSize(); sz != 0 {
			return sz, sz, true
		}
		return 0, 0, false
	}
}

func layoutOf(d *Descriptor, depth int) (*Layout, error) {
	n := d.node()
	if n == nil || !n.kind.IsAggregate() {
		return nil, errors.New(errors.PhaseLayout, errors.KindTypeMismatch).
			Detail("layout of non-aggregate %s", d.Kind()).Build()
	}
	if depth > maxLayoutDepth {
		return nil, errors.LimitExceeded(errors.PhaseLayout, nil, "layout depth", maxLayoutDepth)
	}

	l := &Layout{Members: make([]MemberLayout, len(n.members)), Align: 1}
	var endBits uint64
	var cur uint64 // natural layout cursor, bits

	for i, m := range n.members {
		typ := d.sub(m.typ)
		msz, mal, ok := sizeAlign(typ, depth+1)
		if !ok {
			return nil, errors.New(errors.PhaseLayout, errors.KindUnresolved).
				Path(m.name).Type(typ.String()).Detail("member size unknown").Build()
		}
		if mal > l.Align {
			l.Align = mal
		}
		ml := MemberLayout{Type: typ, Name: m.name, Size: msz, BitWidth: m.bitWidth}

		var start uint64 // bits
		switch {
		case m.bitWidth != 0:
			if err := checkBitField(typ, m, msz); err != nil {
				return nil, err
			}
			unit := msz * 8
			switch {
			case n.layout:
				start = m.offset
			case n.kind == KindUnion:
				start = 0
			default:
				start = cur
				if start/unit != (start+m.bitWidth-1)/unit {
					start = align.To(start, unit)
				}
			}
			// storage unit holding the field, aligned to its own size
			ml.Offset = (start / 8) &^ (msz - 1)
			ml.BitShift = start - ml.Offset*8
			if ml.BitShift+m.bitWidth > unit {
				return nil, errors.New(errors.PhaseLayout, errors.KindInvalidData).
					Path(m.name).Detail("bit-field spans storage units").Build()
			}
			if end := start + m.bitWidth; end > endBits {
				endBits = end
			}
			if end := (ml.Offset + msz) * 8; n.layout && end > endBits {
				endBits = end
			}
			cur = start + m.bitWidth
		default:
			switch {
			case n.layout:
				if m.offset%8 != 0 {
					return nil, errors.New(errors.PhaseLayout, errors.KindInvalidData).
						Path(m.name).Detail("member offset %d is not byte aligned", m.offset).Build()
				}
				start = m.offset
			case n.kind == KindUnion:
				start = 0
			default:
				start = align.To(cur, mal*8)
			}
			ml.Offset = start / 8
			bits, ok := align.SafeMul(msz, 8)
			if !ok {
				return nil, errors.Overflow(errors.PhaseLayout, []string{m.name}, msz, "member size")
			}
			end, ok := align.SafeAdd(start, bits)
			if !ok {
				return nil, errors.Overflow(errors.PhaseLayout, []string{m.name}, start, "member offset")
			}
			if end > endBits {
				endBits = end
			}
			cur = end
		}
		l.Members[i] = ml
	}

	if n.align != 0 {
		if n.align&(n.align-1) != 0 {
			return nil, errors.New(errors.PhaseLayout, errors.KindInvalidData).
				Detail("alignment %d is not a power of two", n.align).Build()
		}
		l.Align = n.align
	}
	natural := align.To((endBits+7)/8, l.Align)
	switch {
	case n.size == 0:
		l.Size = natural
	case n.size*8 < endBits:
		return nil, errors.New(errors.PhaseLayout, errors.KindInvalidData).
			Detail("declared size %d smaller than members (%d bits)", n.size, endBits).Build()
	default:
		l.Size = n.size
	}
	return l, nil
}

func checkBitField(typ *Descriptor, m member, msz uint64) error {
	r, _ := typ.Resolve()
	k := r.Kind()
	if !k.IsInteger() && k != KindEnum {
		return errors.New(errors.PhaseLayout, errors.KindTypeMismatch).
			Path(m.name).Type(typ.String()).Detail("bit-field of non-integer type").Build()
	}
	if m.bitWidth > msz*8 {
		return errors.LimitExceeded(errors.PhaseLayout, []string{m.name}, "bit-field width", msz*8)
	}
	return nil
}
