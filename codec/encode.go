package codec

import (
	"strconv"

	"github.com/wippyai/typeinf/codec/internal/binary"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
)

// Encode serializes d into its type bytes and field bytes. A none
// descriptor encodes to empty type bytes.
func Encode(d *tinfo.Descriptor, mode Mode) (typeBytes, fieldBytes []byte, err error) {
	if d.IsNone() {
		return nil, nil, nil
	}
	if err := check(d, mode); err != nil {
		return nil, nil, err
	}
	e := &encoder{types: binary.NewWriter(), fields: binary.NewWriter()}
	if err := e.node(d, nil, 0); err != nil {
		return nil, nil, err
	}
	if e.named {
		fieldBytes = e.fields.Bytes()
	}
	return e.types.Bytes(), fieldBytes, nil
}

// Capable reports whether d can be serialized in mode.
func Capable(d *tinfo.Descriptor, mode Mode) bool {
	return check(d, mode) == nil
}

func check(d *tinfo.Descriptor, mode Mode) error {
	if mode != ModeFast {
		return nil
	}
	var err error
	d.Walk(func(n *tinfo.Descriptor) bool {
		switch {
		case n.IsForward():
			name, _, _ := n.Ref()
			err = errors.New(errors.PhaseEncode, errors.KindUnsupported).
				Type(name).Detail("forward reference needs full mode").Build()
		case n.Kind().IsAggregate():
			u, _ := n.UDTDetails()
			switch {
			case u.Explicit:
				err = errors.New(errors.PhaseEncode, errors.KindUnsupported).
					Type(n.String()).Detail("explicit layout needs full mode").Build()
			case u.HasBitFields():
				err = errors.New(errors.PhaseEncode, errors.KindUnsupported).
					Type(n.String()).Detail("bit-fields need full mode").Build()
			case u.Size != 0 || u.Align != 0:
				err = errors.New(errors.PhaseEncode, errors.KindUnsupported).
					Type(n.String()).Detail("declared size or alignment needs full mode").Build()
			}
		}
		return err == nil
	})
	return err
}

type encoder struct {
	types  *binary.Writer
	fields *binary.Writer
	named  bool
}

func (e *encoder) field(name string) {
	if name != "" {
		e.named = true
	}
	e.fields.WriteName(name)
}

func (e *encoder) node(d *tinfo.Descriptor, path []string, depth int) error {
	if depth > maxDepth {
		return errors.LimitExceeded(errors.PhaseEncode, path, "nesting depth", maxDepth)
	}
	k := d.Kind()
	if k == tinfo.KindNone || !k.Valid() {
		return errors.New(errors.PhaseEncode, errors.KindInvalidInput).
			Path(path...).Detail("cannot encode %s node", k).Build()
	}

	tag := byte(k)
	q := d.Qualifiers()
	if q.IsConst() {
		tag |= tagConst
	}
	if q.IsVolatile() {
		tag |= tagVolatile
	}
	name := d.Name()
	if name != "" {
		tag |= tagName
	}
	e.types.Byte(tag)
	if name != "" {
		e.types.WriteName(name)
	}

	switch k {
	case tinfo.KindUnknown:
		e.types.WriteU64(d.UnknownSize())

	case tinfo.KindPtr:
		p, _ := d.PtrDetails()
		var flags byte
		if p.Closure != nil {
			flags |= ptrClosure
		}
		e.types.Byte(flags)
		if err := e.node(p.Pointee, append(path, "*"), depth+1); err != nil {
			return err
		}
		if p.Closure != nil {
			return e.node(p.Closure, append(path, "closure"), depth+1)
		}

	case tinfo.KindArray:
		a, _ := d.ArrayDetails()
		e.types.WriteU64(a.Len)
		e.types.WriteU32(a.Base)
		return e.node(a.Elem, append(path, "[]"), depth+1)

	case tinfo.KindFunc:
		f, _ := d.FuncDetails()
		e.types.Byte(byte(f.CC))
		if err := e.node(f.Ret, append(path, "return"), depth+1); err != nil {
			return err
		}
		e.types.WriteU32(uint32(len(f.Params)))
		for i, p := range f.Params {
			e.field(p.Name)
			if err := e.node(p.Type, append(path, paramLabel(p.Name, i)), depth+1); err != nil {
				return err
			}
		}

	case tinfo.KindStruct, tinfo.KindUnion:
		u, _ := d.UDTDetails()
		var hdr byte
		if u.Explicit {
			hdr |= udtExplicit
		}
		if u.HasBitFields() {
			hdr |= udtBitFields
		}
		if !u.Explicit && (u.Size != 0 || u.Align != 0) {
			hdr |= udtSized
		}
		e.types.Byte(hdr)
		e.types.WriteU32(uint32(len(u.Members)))
		if hdr&(udtExplicit|udtSized) != 0 {
			e.types.WriteU64(u.Size)
			e.types.WriteU64(u.Align)
		}
		for i, m := range u.Members {
			switch {
			case u.Explicit:
				e.types.WriteU64(m.Offset)
				e.types.WriteU64(m.BitWidth)
			case hdr&udtBitFields != 0:
				e.types.WriteU64(m.BitWidth)
			}
			e.field(m.Name)
			if err := e.node(m.Type, append(path, paramLabel(m.Name, i)), depth+1); err != nil {
				return err
			}
		}

	case tinfo.KindEnum:
		en, _ := d.EnumDetails()
		e.types.WriteU64(en.Width)
		e.types.WriteU32(uint32(len(en.Cases)))
		for _, c := range en.Cases {
			e.types.WriteS64(c.Value)
			e.field(c.Name)
		}

	case tinfo.KindNamed:
		ref, ordinal, _ := d.Ref()
		var flags byte
		if d.IsForward() {
			flags |= refForward
		}
		if ref == "" {
			flags |= refOrdinal
		}
		e.types.Byte(flags)
		if ref == "" {
			e.types.WriteU32(ordinal)
		} else {
			e.types.WriteName(ref)
		}
	}
	return nil
}

func paramLabel(name string, i int) string {
	if name != "" {
		return name
	}
	return "#" + strconv.Itoa(i)
}
