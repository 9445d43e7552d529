package witdecl

import (
	"strconv"

	"github.com/wippyai/typeinf/decl"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
	"go.bytecodealliance.org/wit"
)

type converter struct {
	res   *wit.Resolve
	lib   tinfo.Library
	seen  map[*wit.TypeDef]*tinfo.Descriptor
	flags decl.ParseFlags
}

// vcase is one case of a variant-shaped type. A nil typ has no payload.
type vcase struct {
	typ  func() (*tinfo.Descriptor, error)
	name string
}

func (c *converter) typeDef(name string) *wit.TypeDef {
	if c.res == nil {
		return nil
	}
	for _, td := range c.res.TypeDefs {
		if td != nil && td.Name != nil && *td.Name == name {
			return td
		}
	}
	return nil
}

func arity(e *expr, min, max int) error {
	if n := len(e.args); n < min || n > max {
		return errors.New(errors.PhaseParse, errors.KindInvalidData).Offset(int64(e.pos)).
			Detail("%s takes %d to %d type arguments, got %d", e.name, min, max, n).Build()
	}
	return nil
}

func (c *converter) expr(e *expr, depth int) (*tinfo.Descriptor, error) {
	if depth > maxDepth {
		return nil, errors.LimitExceeded(errors.PhaseParse, nil, "type nesting", maxDepth)
	}
	if e.hole {
		return nil, errors.InvalidData(errors.PhaseParse, int64(e.pos), "'_' is only allowed in result")
	}
	arg := func(i int) func() (*tinfo.Descriptor, error) {
		if i >= len(e.args) || e.args[i].hole {
			return nil
		}
		return func() (*tinfo.Descriptor, error) { return c.expr(e.args[i], depth+1) }
	}

	switch e.name {
	case "list":
		if err := arity(e, 1, 1); err != nil {
			return nil, err
		}
		elem, err := c.expr(e.args[0], depth+1)
		if err != nil {
			return nil, err
		}
		return listOf(elem), nil
	case "option":
		if err := arity(e, 1, 1); err != nil {
			return nil, err
		}
		return variant([]vcase{{name: "none"}, {name: "some", typ: arg(0)}})
	case "result":
		if err := arity(e, 0, 2); err != nil {
			return nil, err
		}
		return variant([]vcase{{name: "ok", typ: arg(0)}, {name: "err", typ: arg(1)}})
	case "tuple":
		if err := arity(e, 1, maxDepth); err != nil {
			return nil, err
		}
		members := make([]tinfo.Member, len(e.args))
		for i, a := range e.args {
			d, err := c.expr(a, depth+1)
			if err != nil {
				return nil, err
			}
			members[i] = tinfo.Field("", d)
		}
		return tinfo.Struct(members...), nil
	case "own", "borrow":
		if err := arity(e, 1, 1); err != nil {
			return nil, err
		}
		return handle(), nil
	}

	if len(e.args) != 0 {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).Offset(int64(e.pos)).
			Detail("%s is not generic", e.name).Build()
	}
	if t, err := wit.ParseType(e.name); err == nil {
		return c.convert(t, depth+1)
	}
	if td := c.typeDef(e.name); td != nil {
		return c.convert(td, depth+1)
	}
	if c.lib != nil {
		if _, ok := c.lib.NamedType(e.name); ok {
			return tinfo.Named(e.name), nil
		}
	}
	if c.flags.Has(decl.ParseForward) {
		return tinfo.Forward(e.name), nil
	}
	return nil, errors.New(errors.PhaseParse, errors.KindUnresolved).Offset(int64(e.pos)).
		Value(e.name).Detail("unknown type %q", e.name).Build()
}

// convert maps a resolved WIT type onto a descriptor.
func (c *converter) convert(t wit.Type, depth int) (*tinfo.Descriptor, error) {
	if depth > maxDepth {
		return nil, errors.LimitExceeded(errors.PhaseParse, nil, "type nesting", maxDepth)
	}
	switch t := t.(type) {
	case nil:
		return tinfo.Void(), nil
	case wit.Bool:
		return tinfo.Scalar(tinfo.KindBool), nil
	case wit.S8:
		return tinfo.Scalar(tinfo.KindS8), nil
	case wit.U8:
		return tinfo.Scalar(tinfo.KindU8), nil
	case wit.S16:
		return tinfo.Scalar(tinfo.KindS16), nil
	case wit.U16:
		return tinfo.Scalar(tinfo.KindU16), nil
	case wit.S32:
		return tinfo.Scalar(tinfo.KindS32), nil
	case wit.U32:
		return tinfo.Scalar(tinfo.KindU32), nil
	case wit.S64:
		return tinfo.Scalar(tinfo.KindS64), nil
	case wit.U64:
		return tinfo.Scalar(tinfo.KindU64), nil
	case wit.F32:
		return tinfo.Scalar(tinfo.KindF32), nil
	case wit.F64:
		return tinfo.Scalar(tinfo.KindF64), nil
	case wit.Char:
		// Unicode scalar value
		return tinfo.Scalar(tinfo.KindU32), nil
	case wit.String:
		return listOf(tinfo.Scalar(tinfo.KindChar)), nil
	case *wit.TypeDef:
		return c.typeDefDesc(t, depth)
	}
	return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
		Detail("WIT type %T has no descriptor form", t).Build()
}

func (c *converter) typeDefDesc(td *wit.TypeDef, depth int) (*tinfo.Descriptor, error) {
	if d, ok := c.seen[td]; ok {
		if d == nil {
			return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
				Detail("recursive WIT type").Build()
		}
		return d, nil
	}
	c.seen[td] = nil
	d, err := c.kind(td.Kind, depth)
	if err != nil {
		delete(c.seen, td)
		return nil, err
	}
	if td.Name != nil && (d.Kind().IsAggregate() || d.Kind() == tinfo.KindEnum) {
		d = d.WithName(*td.Name)
	}
	c.seen[td] = d
	return d, nil
}

func (c *converter) lazy(t wit.Type, depth int) func() (*tinfo.Descriptor, error) {
	if t == nil {
		return nil
	}
	return func() (*tinfo.Descriptor, error) { return c.convert(t, depth+1) }
}

func (c *converter) kind(k wit.TypeDefKind, depth int) (*tinfo.Descriptor, error) {
	switch k := k.(type) {
	case *wit.Record:
		members := make([]tinfo.Member, len(k.Fields))
		for i, f := range k.Fields {
			d, err := c.convert(f.Type, depth+1)
			if err != nil {
				return nil, err
			}
			members[i] = tinfo.Field(f.Name, d)
		}
		return tinfo.Struct(members...), nil

	case *wit.Tuple:
		members := make([]tinfo.Member, len(k.Types))
		for i, t := range k.Types {
			d, err := c.convert(t, depth+1)
			if err != nil {
				return nil, err
			}
			members[i] = tinfo.Field("", d)
		}
		return tinfo.Struct(members...), nil

	case *wit.List:
		elem, err := c.convert(k.Type, depth+1)
		if err != nil {
			return nil, err
		}
		return listOf(elem), nil

	case *wit.Enum:
		cases := make([]tinfo.EnumCase, len(k.Cases))
		for i, ec := range k.Cases {
			cases[i] = tinfo.EnumCase{Name: ec.Name, Value: int64(i)}
		}
		return tinfo.Enum(discWidth(len(cases)), cases...), nil

	case *wit.Flags:
		return flagsOf(len(k.Flags)), nil

	case *wit.Variant:
		cases := make([]vcase, len(k.Cases))
		for i, vc := range k.Cases {
			cases[i] = vcase{name: vc.Name, typ: c.lazy(vc.Type, depth)}
		}
		return variant(cases)

	case *wit.Option:
		return variant([]vcase{{name: "none"}, {name: "some", typ: c.lazy(k.Type, depth)}})

	case *wit.Result:
		return variant([]vcase{{name: "ok", typ: c.lazy(k.OK, depth)}, {name: "err", typ: c.lazy(k.Err, depth)}})

	case *wit.Own, *wit.Borrow:
		return handle(), nil
	}
	if t, ok := k.(wit.Type); ok {
		return c.convert(t, depth+1)
	}
	return nil, errors.New(errors.PhaseParse, errors.KindUnsupported).
		Detail("WIT type definition %T has no descriptor form", k).Build()
}

// listOf is the canonical ABI {ptr, len} pair for list<elem>.
func listOf(elem *tinfo.Descriptor) *tinfo.Descriptor {
	return tinfo.Struct(
		tinfo.Field("ptr", tinfo.Ptr(elem)),
		tinfo.Field("len", tinfo.Scalar(tinfo.KindU32)),
	)
}

func handle() *tinfo.Descriptor {
	return tinfo.Scalar(tinfo.KindU32)
}

func discWidth(n int) uint64 {
	switch {
	case n <= 1<<8:
		return 1
	case n <= 1<<16:
		return 2
	default:
		return 4
	}
}

// flagsOf packs n flags into the smallest unsigned integer, or an array
// of u32 words past 32 flags.
func flagsOf(n int) *tinfo.Descriptor {
	switch {
	case n == 0:
		return tinfo.Struct()
	case n <= 8:
		return tinfo.Scalar(tinfo.KindU8)
	case n <= 16:
		return tinfo.Scalar(tinfo.KindU16)
	case n <= 32:
		return tinfo.Scalar(tinfo.KindU32)
	default:
		return tinfo.Array(tinfo.Scalar(tinfo.KindU32), uint64((n+31)/32))
	}
}

// variant lays out a discriminant enum followed by a union of the
// payloads of the cases that carry one.
func variant(cases []vcase) (*tinfo.Descriptor, error) {
	ecases := make([]tinfo.EnumCase, len(cases))
	var payload []tinfo.Member
	for i, vc := range cases {
		name := vc.name
		if name == "" {
			name = "case" + strconv.Itoa(i)
		}
		ecases[i] = tinfo.EnumCase{Name: name, Value: int64(i)}
		if vc.typ == nil {
			continue
		}
		d, err := vc.typ()
		if err != nil {
			return nil, err
		}
		payload = append(payload, tinfo.Field(name, d))
	}
	tag := tinfo.Field("tag", tinfo.Enum(discWidth(len(cases)), ecases...))
	if len(payload) == 0 {
		return tinfo.Struct(tag), nil
	}
	return tinfo.Struct(tag, tinfo.Field("val", tinfo.Union(payload...))), nil
}
