package transcoder

import (
	"math"
	"strconv"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/internal/align"
	"github.com/wippyai/typeinf/tinfo"
	"github.com/wippyai/typeinf/value"
)

// Unpacker reads dynamic values out of raw memory.
type Unpacker struct {
	cfg config
}

func NewUnpacker(opts ...Option) *Unpacker {
	return &Unpacker{cfg: newConfig(opts)}
}

type unpackState struct {
	src     Source
	cfg     *config
	ptrSize uint64
	read    uint64
	flags   Flags
}

// Unpack reads a value of type d at addr.
func (u *Unpacker) Unpack(d *tinfo.Descriptor, src Source, addr uint64, flags Flags) (value.Value, error) {
	if d.IsNone() {
		return value.Nil, errors.NoType(errors.PhaseUnpack)
	}
	if src == nil {
		return value.Nil, errors.InvalidInput(errors.PhaseUnpack, "nil source")
	}
	d, ptrSize := u.cfg.bind(d)
	s := &unpackState{src: src, cfg: &u.cfg, ptrSize: ptrSize, flags: flags}
	return s.unpack(d, addr, nil, 0)
}

func (s *unpackState) bytes(addr, n uint64, path []string) ([]byte, error) {
	total, ok := align.SafeAdd(s.read, n)
	if !ok || total > s.cfg.maxBytes {
		return nil, errors.LimitExceeded(errors.PhaseUnpack, path, "bytes read", s.cfg.maxBytes)
	}
	if b, ok := s.src.(Bounded); ok && !inBounds(b, addr, n) {
		lo, hi := b.Bounds()
		return nil, errors.New(errors.PhaseUnpack, errors.KindOutOfBounds).
			Path(path...).Offset(int64(firstOutside(b, addr))).Value(addr).
			Detail("%d bytes at %#x exceed source [%#x, %#x)", n, addr, lo, hi).Build()
	}
	data, err := s.src.Read(addr, n)
	if err != nil {
		return nil, errors.New(errors.PhaseUnpack, errors.KindOutOfBounds).
			Path(path...).Offset(int64(addr)).Value(addr).
			Detail("read of %d bytes failed", n).Cause(err).Build()
	}
	if uint64(len(data)) != n {
		return nil, errors.Truncated(errors.PhaseUnpack, int64(addr), int(n), len(data))
	}
	s.read = total
	return data, nil
}

func (s *unpackState) uint(addr, n uint64, path []string) (uint64, error) {
	b, err := s.bytes(addr, n, path)
	if err != nil {
		return 0, err
	}
	return readUint(s.cfg.order, b), nil
}

func offsetAddr(addr, off uint64, path []string) (uint64, error) {
	a, ok := align.SafeAdd(addr, off)
	if !ok {
		return 0, errors.New(errors.PhaseUnpack, errors.KindOutOfBounds).
			Path(path...).Detail("address %#x + %d overflows", addr, off).Build()
	}
	return a, nil
}

func (s *unpackState) unpack(d *tinfo.Descriptor, addr uint64, path []string, depth int) (value.Value, error) {
	if depth > s.cfg.maxDepth {
		return value.Nil, errors.LimitExceeded(errors.PhaseUnpack, path, "nesting depth", uint64(s.cfg.maxDepth))
	}
	r, ok := d.Resolve()
	if !ok {
		name, _, _ := r.Ref()
		e := errors.Unresolved(errors.PhaseUnpack, int64(addr), name)
		e.Path = append([]string(nil), path...)
		return value.Nil, e
	}

	k := r.Kind()
	switch {
	case k.IsFloat():
		raw, err := s.uint(addr, k.ScalarSize(), path)
		if err != nil {
			return value.Nil, err
		}
		if k == tinfo.KindF32 {
			return value.Float(float64(math.Float32frombits(uint32(raw)))), nil
		}
		return value.Float(math.Float64frombits(raw)), nil

	case k.IsInteger():
		width := k.ScalarSize()
		raw, err := s.uint(addr, width, path)
		if err != nil {
			return value.Nil, err
		}
		if k.IsSigned() {
			return value.Int(align.SignExtend(raw, width*8)), nil
		}
		return value.Uint(raw), nil
	}

	switch k {
	case tinfo.KindEnum:
		en, _ := r.EnumDetails()
		raw, err := s.uint(addr, en.Width, path)
		if err != nil {
			return value.Nil, err
		}
		return value.Int(align.SignExtend(raw, en.Width*8)), nil

	case tinfo.KindPtr:
		return s.pointer(r, addr, path, depth)

	case tinfo.KindArray:
		return s.array(r, addr, path, depth)

	case tinfo.KindStruct:
		return s.record(r, addr, path, depth)

	case tinfo.KindUnion:
		return s.union(r, addr, path, depth)

	case tinfo.KindUnknown:
		size := r.UnknownSize()
		if size == 0 {
			break
		}
		b, err := s.bytes(addr, size, path)
		if err != nil {
			return value.Nil, err
		}
		return value.Bytes(b), nil
	}
	return value.Nil, errors.New(errors.PhaseUnpack, errors.KindUnsupported).
		Path(path...).Type(r.String()).Detail("type has no value representation").Build()
}

func (s *unpackState) pointer(d *tinfo.Descriptor, addr uint64, path []string, depth int) (value.Value, error) {
	raw, err := s.uint(addr, s.ptrSize, path)
	if err != nil {
		return value.Nil, err
	}
	if !s.flags.has(FlagFollowPointers) || raw == 0 {
		return value.Uint(raw), nil
	}
	pd, _ := d.PtrDetails()
	target, ok := pd.Pointee.Resolve()
	if !ok || target.Size() == tinfo.BadSize {
		// opaque pointees stay addresses
		return value.Uint(raw), nil
	}
	return s.unpack(target, raw, append(path, "*"), depth+1)
}

func isByteElem(d *tinfo.Descriptor) bool {
	r, ok := d.Resolve()
	if !ok {
		return false
	}
	k := r.Kind()
	return k.IsInteger() && k.ScalarSize() == 1
}

func (s *unpackState) array(d *tinfo.Descriptor, addr uint64, path []string, depth int) (value.Value, error) {
	ad, _ := d.ArrayDetails()
	if isByteElem(ad.Elem) {
		b, err := s.bytes(addr, ad.Len, path)
		if err != nil {
			return value.Nil, err
		}
		return value.Bytes(b), nil
	}
	esz := ad.Elem.Size()
	if esz == tinfo.BadSize {
		return value.Nil, errors.New(errors.PhaseUnpack, errors.KindUnresolved).
			Path(path...).Type(ad.Elem.String()).Detail("array element size unknown").Build()
	}
	// zero-size elements still cost a byte each so the element count is
	// bounded before allocating
	cost, ok := align.SafeMul(max(esz, 1), ad.Len)
	if !ok {
		return value.Nil, errors.Overflow(errors.PhaseUnpack, path, ad.Len, "array size")
	}
	if total, ok := align.SafeAdd(s.read, cost); !ok || total > s.cfg.maxBytes {
		return value.Nil, errors.LimitExceeded(errors.PhaseUnpack, path, "bytes read", s.cfg.maxBytes)
	}
	elems := make([]value.Value, ad.Len)
	for i := range elems {
		p := append(path, "["+strconv.Itoa(i)+"]")
		ea, err := offsetAddr(addr, uint64(i)*esz, p)
		if err != nil {
			return value.Nil, err
		}
		if elems[i], err = s.unpack(ad.Elem, ea, p, depth+1); err != nil {
			return value.Nil, err
		}
	}
	return value.Positional(elems...), nil
}

func (s *unpackState) layout(d *tinfo.Descriptor, path []string) (*tinfo.Layout, error) {
	l, err := d.Layout()
	if err != nil {
		return nil, errors.New(errors.PhaseUnpack, errors.KindUnresolved).
			Path(path...).Type(d.String()).Detail("no layout").Cause(err).Build()
	}
	return l, nil
}

func memberLabel(name string, i int) string {
	if name != "" {
		return name
	}
	return "#" + strconv.Itoa(i)
}

func (s *unpackState) record(d *tinfo.Descriptor, addr uint64, path []string, depth int) (value.Value, error) {
	l, err := s.layout(d, path)
	if err != nil {
		return value.Nil, err
	}
	members := make([]value.Member, len(l.Members))
	for i, m := range l.Members {
		v, err := s.member(m, addr, append(path, memberLabel(m.Name, i)), depth)
		if err != nil {
			return value.Nil, err
		}
		members[i] = value.Field(m.Name, v)
	}
	return value.Aggregate(members...), nil
}

func (s *unpackState) union(d *tinfo.Descriptor, addr uint64, path []string, depth int) (value.Value, error) {
	l, err := s.layout(d, path)
	if err != nil {
		return value.Nil, err
	}
	if len(l.Members) == 0 {
		return value.Aggregate(), nil
	}
	m := l.Members[0]
	v, err := s.member(m, addr, append(path, memberLabel(m.Name, 0)), depth)
	if err != nil {
		return value.Nil, err
	}
	return value.Aggregate(value.Field(m.Name, v)), nil
}

func (s *unpackState) member(m tinfo.MemberLayout, addr uint64, path []string, depth int) (value.Value, error) {
	ma, err := offsetAddr(addr, m.Offset, path)
	if err != nil {
		return value.Nil, err
	}
	if m.BitWidth == 0 {
		return s.unpack(m.Type, ma, path, depth+1)
	}
	unit, err := s.uint(ma, m.Size, path)
	if err != nil {
		return value.Nil, err
	}
	raw := unit >> m.BitShift
	if m.BitWidth < 64 {
		raw &= 1<<m.BitWidth - 1
	}
	r, _ := m.Type.Resolve()
	if r.Kind().IsSigned() {
		return value.Int(align.SignExtend(raw, m.BitWidth)), nil
	}
	return value.Uint(raw), nil
}
