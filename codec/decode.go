package codec

import (
	stderrors "errors"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/typeinf/codec/internal/binary"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
)

// Option configures Decode.
type Option func(*decodeConfig)

type decodeConfig struct {
	strict bool
}

// Strict makes references the library cannot resolve a decode error
// instead of a forward placeholder.
func Strict() Option {
	return func(c *decodeConfig) { c.strict = true }
}

// Decode rebuilds a descriptor from its serialized pair. Empty type bytes
// decode to tinfo.None. The result is bound to lib.
func Decode(typeBytes, fieldBytes []byte, lib tinfo.Library, opts ...Option) (*tinfo.Descriptor, error) {
	if len(typeBytes) == 0 {
		return tinfo.None(), nil
	}
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	dec := &decoder{types: binary.NewReader(typeBytes), lib: lib, strict: cfg.strict}
	if len(fieldBytes) > 0 {
		dec.fields = binary.NewReader(fieldBytes)
	}

	d, err := dec.node(nil, 0)
	if err != nil {
		return nil, err
	}
	if n := dec.types.Len(); n != 0 {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(int64(dec.types.Position())).Detail("%d trailing bytes", n).Build()
	}
	if dec.fields != nil && dec.fields.Len() != 0 {
		return nil, errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
			Offset(int64(dec.fields.Position())).
			Detail("field bytes hold more names than the type has slots").Build()
	}
	return d.Bind(lib), nil
}

// CalcSize decodes typeBytes and returns the byte size of the type.
func CalcSize(typeBytes []byte, lib tinfo.Library) (uint64, bool) {
	d, err := Decode(typeBytes, nil, lib)
	if err != nil {
		Logger().Debug("calc size: decode failed", zap.Error(err))
		return 0, false
	}
	sz := d.Size()
	if sz == tinfo.BadSize {
		return 0, false
	}
	return sz, true
}

type decoder struct {
	types  *binary.Reader
	fields *binary.Reader
	lib    tinfo.Library
	strict bool
}

func (dec *decoder) wrap(err error, path []string) error {
	var pe *binary.ParseError
	if !stderrors.As(err, &pe) {
		return errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "")
	}
	kind := errors.KindInvalidData
	switch {
	case stderrors.Is(pe.Err, io.ErrUnexpectedEOF), stderrors.Is(pe.Err, binary.ErrLength):
		kind = errors.KindTruncated
	case stderrors.Is(pe.Err, binary.ErrOverflow):
		kind = errors.KindOverflow
	}
	return errors.New(errors.PhaseDecode, kind).
		Path(path...).Offset(int64(pe.Position)).Cause(pe.Err).Build()
}

func (dec *decoder) u32(path []string) (uint32, error) {
	v, err := dec.types.ReadU32()
	if err != nil {
		return 0, dec.wrap(err, path)
	}
	return v, nil
}

func (dec *decoder) u64(path []string) (uint64, error) {
	v, err := dec.types.ReadU64()
	if err != nil {
		return 0, dec.wrap(err, path)
	}
	return v, nil
}

func (dec *decoder) u8(path []string) (byte, error) {
	b, err := dec.types.ReadByte()
	if err != nil {
		return 0, dec.wrap(err, path)
	}
	return b, nil
}

// count reads an element count and checks that the remaining input can
// hold that many entries of at least one byte each.
func (dec *decoder) count(path []string) (int, error) {
	pos := dec.types.Position()
	n, err := dec.u32(path)
	if err != nil {
		return 0, err
	}
	if int64(n) > int64(dec.types.Len()) {
		return 0, errors.Truncated(errors.PhaseDecode, int64(pos), int(n), dec.types.Len())
	}
	return int(n), nil
}

func (dec *decoder) nextName() (string, error) {
	if dec.fields == nil {
		return "", nil
	}
	if dec.fields.Len() == 0 {
		return "", errors.New(errors.PhaseDecode, errors.KindLengthMismatch).
			Offset(int64(dec.types.Position())).
			Detail("field bytes hold fewer names than the type has slots").Build()
	}
	name, err := dec.fields.ReadName()
	if err != nil {
		return "", errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Offset(int64(dec.fields.Position())).Detail("bad field name").Cause(err).Build()
	}
	return name, nil
}

func (dec *decoder) node(path []string, depth int) (*tinfo.Descriptor, error) {
	if depth > maxDepth {
		return nil, errors.LimitExceeded(errors.PhaseDecode, path, "nesting depth", maxDepth)
	}
	tagPos := int64(dec.types.Position())
	tag, err := dec.u8(path)
	if err != nil {
		return nil, err
	}
	k := tinfo.Kind(tag & tagKindMask)
	if k == tinfo.KindNone || !k.Valid() {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).Offset(tagPos).Value(tag).Detail("unknown tag 0x%02x", tag).Build()
	}
	var name string
	if tag&tagName != 0 {
		if name, err = dec.types.ReadName(); err != nil {
			return nil, dec.wrap(err, path)
		}
	}

	var d *tinfo.Descriptor
	switch k {
	case tinfo.KindUnknown:
		size, err := dec.u64(path)
		if err != nil {
			return nil, err
		}
		d = tinfo.Unknown(size)

	case tinfo.KindVoid:
		d = tinfo.Void()

	case tinfo.KindPtr:
		d, err = dec.ptr(path, depth)

	case tinfo.KindArray:
		d, err = dec.array(path, depth)

	case tinfo.KindFunc:
		d, err = dec.fn(path, depth)

	case tinfo.KindStruct, tinfo.KindUnion:
		d, err = dec.udt(k, path, depth)

	case tinfo.KindEnum:
		d, err = dec.enum(path)

	case tinfo.KindNamed:
		d, err = dec.ref(path, tagPos)

	default:
		d = tinfo.Scalar(k)
	}
	if err != nil {
		return nil, err
	}

	if name != "" {
		d = d.WithName(name)
	}
	var q tinfo.Qualifiers
	if tag&tagConst != 0 {
		q |= tinfo.Const
	}
	if tag&tagVolatile != 0 {
		q |= tinfo.Volatile
	}
	if q != 0 {
		d = d.WithQualifiers(q)
	}
	return d, nil
}

func (dec *decoder) ptr(path []string, depth int) (*tinfo.Descriptor, error) {
	flags, err := dec.u8(path)
	if err != nil {
		return nil, err
	}
	pointee, err := dec.node(append(path, "*"), depth+1)
	if err != nil {
		return nil, err
	}
	var closure *tinfo.Descriptor
	if flags&ptrClosure != 0 {
		if closure, err = dec.node(append(path, "closure"), depth+1); err != nil {
			return nil, err
		}
	}
	return tinfo.NewPtr(tinfo.PtrDetail{Pointee: pointee, Closure: closure}), nil
}

func (dec *decoder) array(path []string, depth int) (*tinfo.Descriptor, error) {
	n, err := dec.u64(path)
	if err != nil {
		return nil, err
	}
	base, err := dec.u32(path)
	if err != nil {
		return nil, err
	}
	elem, err := dec.node(append(path, "[]"), depth+1)
	if err != nil {
		return nil, err
	}
	return tinfo.NewArray(tinfo.ArrayDetail{Elem: elem, Len: n, Base: base}), nil
}

func (dec *decoder) fn(path []string, depth int) (*tinfo.Descriptor, error) {
	ccPos := int64(dec.types.Position())
	b, err := dec.u8(path)
	if err != nil {
		return nil, err
	}
	cc := tinfo.CallConv(b)
	if !cc.Valid() {
		return nil, errors.InvalidData(errors.PhaseDecode, ccPos, "unknown calling convention")
	}
	ret, err := dec.node(append(path, "return"), depth+1)
	if err != nil {
		return nil, err
	}
	n, err := dec.count(path)
	if err != nil {
		return nil, err
	}
	params := make([]tinfo.FuncParam, n)
	for i := range params {
		if params[i].Name, err = dec.nextName(); err != nil {
			return nil, err
		}
		if params[i].Type, err = dec.node(append(path, paramLabel(params[i].Name, i)), depth+1); err != nil {
			return nil, err
		}
	}
	return tinfo.NewFunc(tinfo.FuncDetail{Ret: ret, Params: params, CC: cc}), nil
}

func (dec *decoder) udt(k tinfo.Kind, path []string, depth int) (*tinfo.Descriptor, error) {
	hdr, err := dec.u8(path)
	if err != nil {
		return nil, err
	}
	n, err := dec.count(path)
	if err != nil {
		return nil, err
	}
	u := tinfo.UDTDetail{
		Union:    k == tinfo.KindUnion,
		Explicit: hdr&udtExplicit != 0,
		Members:  make([]tinfo.Member, n),
	}
	if hdr&(udtExplicit|udtSized) != 0 {
		if u.Size, err = dec.u64(path); err != nil {
			return nil, err
		}
		if u.Align, err = dec.u64(path); err != nil {
			return nil, err
		}
	}
	for i := range u.Members {
		m := &u.Members[i]
		switch {
		case u.Explicit:
			if m.Offset, err = dec.u64(path); err != nil {
				return nil, err
			}
			if m.BitWidth, err = dec.u64(path); err != nil {
				return nil, err
			}
		case hdr&udtBitFields != 0:
			if m.BitWidth, err = dec.u64(path); err != nil {
				return nil, err
			}
		}
		if m.Name, err = dec.nextName(); err != nil {
			return nil, err
		}
		if m.Type, err = dec.node(append(path, paramLabel(m.Name, i)), depth+1); err != nil {
			return nil, err
		}
	}
	return tinfo.NewUDT(u), nil
}

func (dec *decoder) enum(path []string) (*tinfo.Descriptor, error) {
	widthPos := int64(dec.types.Position())
	width, err := dec.u64(path)
	if err != nil {
		return nil, err
	}
	if !tinfo.ValidEnumWidth(width) {
		return nil, errors.New(errors.PhaseDecode, errors.KindInvalidData).
			Path(path...).Offset(widthPos).Value(width).
			Detail("enum width %d is not 1, 2, 4 or 8", width).Build()
	}
	n, err := dec.count(path)
	if err != nil {
		return nil, err
	}
	cases := make([]tinfo.EnumCase, n)
	for i := range cases {
		if cases[i].Value, err = dec.types.ReadS64(); err != nil {
			return nil, dec.wrap(err, path)
		}
		if cases[i].Name, err = dec.nextName(); err != nil {
			return nil, err
		}
	}
	return tinfo.Enum(width, cases...), nil
}

func (dec *decoder) ref(path []string, tagPos int64) (*tinfo.Descriptor, error) {
	flags, err := dec.u8(path)
	if err != nil {
		return nil, err
	}
	var (
		name    string
		ordinal uint32
	)
	if flags&refOrdinal != 0 {
		if ordinal, err = dec.u32(path); err != nil {
			return nil, err
		}
	} else if name, err = dec.types.ReadName(); err != nil {
		return nil, dec.wrap(err, path)
	}

	var d *tinfo.Descriptor
	if name != "" {
		d = tinfo.Named(name)
	} else {
		d = tinfo.Numbered(ordinal)
	}
	if _, ok := d.Bind(dec.lib).Resolve(); ok {
		return d, nil
	}

	label := name
	if name == "" {
		label = "#" + strconv.FormatUint(uint64(ordinal), 10)
	}
	if dec.strict {
		return nil, errors.New(errors.PhaseDecode, errors.KindUnresolved).
			Path(path...).Offset(tagPos).Value(label).
			Detail("unresolved type reference %q", label).Build()
	}
	Logger().Debug("decode: unresolved reference becomes forward placeholder",
		zap.String("ref", label), zap.Bool("encoded_forward", flags&refForward != 0))
	if name == "" {
		return d, nil
	}
	return tinfo.Forward(name), nil
}
