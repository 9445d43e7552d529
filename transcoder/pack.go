package transcoder

import (
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/internal/align"
	"github.com/wippyai/typeinf/tinfo"
	"github.com/wippyai/typeinf/value"
)

// Packer writes dynamic values into fresh relocatable buffers.
type Packer struct {
	cfg config
}

func NewPacker(opts ...Option) *Packer {
	return &Packer{cfg: newConfig(opts)}
}

type packState struct {
	cfg     *config
	buf     []byte
	relocs  []uint64
	ptrSize uint64
	flags   Flags
}

// Pack lays v out as type d. The returned buffer is position independent
// until relocated.
func (p *Packer) Pack(v value.Value, d *tinfo.Descriptor, flags Flags) (*RelocatableBuffer, error) {
	if d.IsNone() {
		return nil, errors.NoType(errors.PhasePack)
	}
	d, ptrSize := p.cfg.bind(d)
	size := d.Size()
	if size == tinfo.BadSize {
		return nil, errors.New(errors.PhasePack, errors.KindUnresolved).
			Type(d.String()).Detail("type size unknown").Build()
	}
	if size > p.cfg.maxBytes {
		return nil, errors.LimitExceeded(errors.PhasePack, nil, "buffer size", p.cfg.maxBytes)
	}
	s := &packState{cfg: &p.cfg, buf: make([]byte, size), ptrSize: ptrSize, flags: flags}
	if err := s.pack(v, d, 0, nil, 0); err != nil {
		return nil, err
	}
	Logger().Debug("packed value",
		zap.Stringer("type", d), zap.Int("size", len(s.buf)), zap.Int("relocs", len(s.relocs)))
	return &RelocatableBuffer{
		Bytes:    s.buf,
		Relocs:   s.relocs,
		AddrSize: ptrSize,
		Order:    p.cfg.order,
	}, nil
}

func (s *packState) mismatch(v value.Value, d *tinfo.Descriptor, path []string) error {
	return errors.TypeMismatch(errors.PhasePack, path, v.Kind().String(), d.String())
}

func (s *packState) pack(v value.Value, d *tinfo.Descriptor, off uint64, path []string, depth int) error {
	if depth > s.cfg.maxDepth {
		return errors.LimitExceeded(errors.PhasePack, path, "nesting depth", uint64(s.cfg.maxDepth))
	}
	r, ok := d.Resolve()
	if !ok {
		name, _, _ := r.Ref()
		e := errors.Unresolved(errors.PhasePack, int64(off), name)
		e.Path = append([]string(nil), path...)
		return e
	}

	k := r.Kind()
	switch {
	case k.IsFloat():
		var f float64
		switch v.Kind() {
		case value.KindFloat:
			f = v.Float()
		case value.KindInt:
			f = float64(v.Int())
		default:
			return s.mismatch(v, r, path)
		}
		if k == tinfo.KindF32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return errors.Overflow(errors.PhasePack, path, f, k.String())
			}
			writeUint(s.cfg.order, s.buf[off:off+4], uint64(math.Float32bits(float32(f))))
			return nil
		}
		writeUint(s.cfg.order, s.buf[off:off+8], math.Float64bits(f))
		return nil

	case k.IsInteger():
		if v.Kind() != value.KindInt {
			return s.mismatch(v, r, path)
		}
		width := k.ScalarSize()
		if err := checkInt(v, width, k.IsSigned(), k.String(), path); err != nil {
			return err
		}
		writeUint(s.cfg.order, s.buf[off:off+width], v.Uint())
		return nil
	}

	switch k {
	case tinfo.KindEnum:
		if v.Kind() != value.KindInt {
			return s.mismatch(v, r, path)
		}
		en, _ := r.EnumDetails()
		if !align.FitsSigned(v.Int(), en.Width) && !align.FitsUnsigned(v.Uint(), en.Width) {
			return errors.Overflow(errors.PhasePack, path, v.Int(), r.String())
		}
		writeUint(s.cfg.order, s.buf[off:off+en.Width], v.Uint())
		return nil

	case tinfo.KindPtr:
		return s.pointer(v, r, off, path, depth)

	case tinfo.KindArray:
		return s.array(v, r, off, path, depth)

	case tinfo.KindStruct:
		return s.record(v, r, off, path, depth)

	case tinfo.KindUnion:
		return s.union(v, r, off, path, depth)

	case tinfo.KindUnknown:
		if v.Kind() != value.KindBytes {
			return s.mismatch(v, r, path)
		}
		size := r.UnknownSize()
		if uint64(v.Len()) != size {
			return errors.LengthMismatch(errors.PhasePack, path, uint64(v.Len()), size)
		}
		copy(s.buf[off:off+size], v.Bytes())
		return nil
	}
	return errors.New(errors.PhasePack, errors.KindUnsupported).
		Path(path...).Type(r.String()).Detail("type has no value representation").Build()
}

// checkInt rejects values outside the range of the target integer.
func checkInt(v value.Value, width uint64, signed bool, target string, path []string) error {
	if width >= 8 {
		return nil
	}
	var ok bool
	if signed {
		ok = align.FitsSigned(v.Int(), width)
	} else {
		ok = v.Int() >= 0 && align.FitsUnsigned(v.Uint(), width)
	}
	if !ok {
		return errors.Overflow(errors.PhasePack, path, v.Int(), target)
	}
	return nil
}

func (s *packState) pointer(v value.Value, d *tinfo.Descriptor, off uint64, path []string, depth int) error {
	slot := s.buf[off : off+s.ptrSize]
	switch v.Kind() {
	case value.KindNil:
		writeUint(s.cfg.order, slot, 0)
		return nil
	case value.KindInt:
		if s.ptrSize < 8 && !align.FitsUnsigned(v.Uint(), s.ptrSize) {
			return errors.Overflow(errors.PhasePack, path, v.Uint(), "pointer")
		}
		writeUint(s.cfg.order, slot, v.Uint())
		return nil
	case value.KindFloat:
		return s.mismatch(v, d, path)
	}

	pd, _ := d.PtrDetails()
	target, ok := pd.Pointee.Resolve()
	p := append(path, "*")

	var (
		size uint64
		al   uint64 = 1
		raw  bool
	)
	switch {
	case v.Kind() == value.KindBytes && (!ok || target.Size() == tinfo.BadSize || isByteElem(target)):
		// raw bytes behind void *, char * or an opaque pointee
		size, raw = uint64(v.Len()), true
	case !ok:
		name, _, _ := target.Ref()
		e := errors.Unresolved(errors.PhasePack, int64(off), name)
		e.Path = append([]string(nil), p...)
		return e
	default:
		size, al = target.Size(), target.Align()
		if size == tinfo.BadSize {
			return errors.New(errors.PhasePack, errors.KindUnresolved).
				Path(p...).Type(target.String()).Detail("pointee size unknown").Build()
		}
	}

	tail := align.To(uint64(len(s.buf)), al)
	end, ok := align.SafeAdd(tail, size)
	if !ok || end > s.cfg.maxBytes {
		return errors.LimitExceeded(errors.PhasePack, p, "buffer size", s.cfg.maxBytes)
	}
	s.buf = append(s.buf, make([]byte, end-uint64(len(s.buf)))...)
	if raw {
		copy(s.buf[tail:end], v.Bytes())
	} else if err := s.pack(v, target, tail, p, depth+1); err != nil {
		return err
	}

	// s.buf may have grown; re-slice the slot
	writeUint(s.cfg.order, s.buf[off:off+s.ptrSize], tail)
	if !s.flags.has(FlagEmbedded) {
		s.relocs = append(s.relocs, off)
	}
	return nil
}

func (s *packState) array(v value.Value, d *tinfo.Descriptor, off uint64, path []string, depth int) error {
	ad, _ := d.ArrayDetails()
	if isByteElem(ad.Elem) && v.Kind() == value.KindBytes {
		if uint64(v.Len()) != ad.Len {
			return errors.LengthMismatch(errors.PhasePack, path, uint64(v.Len()), ad.Len)
		}
		copy(s.buf[off:off+ad.Len], v.Bytes())
		return nil
	}
	if v.Kind() != value.KindAggregate {
		return s.mismatch(v, d, path)
	}
	if uint64(v.Len()) != ad.Len {
		return errors.LengthMismatch(errors.PhasePack, path, uint64(v.Len()), ad.Len)
	}
	esz := ad.Elem.Size()
	for i := 0; i < v.Len(); i++ {
		p := append(path, "["+strconv.Itoa(i)+"]")
		if err := s.pack(v.At(i), ad.Elem, off+uint64(i)*esz, p, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *packState) layout(d *tinfo.Descriptor, path []string) (*tinfo.Layout, error) {
	l, err := d.Layout()
	if err != nil {
		return nil, errors.New(errors.PhasePack, errors.KindUnresolved).
			Path(path...).Type(d.String()).Detail("no layout").Cause(err).Build()
	}
	return l, nil
}

func (s *packState) record(v value.Value, d *tinfo.Descriptor, off uint64, path []string, depth int) error {
	if v.Kind() != value.KindAggregate {
		return s.mismatch(v, d, path)
	}
	l, err := s.layout(d, path)
	if err != nil {
		return err
	}

	if !hasNames(v) {
		for i, m := range l.Members {
			if i >= v.Len() {
				return errors.FieldMissing(errors.PhasePack, append(path, memberLabel(m.Name, i)), memberLabel(m.Name, i))
			}
			if err := s.member(v.At(i), m, off, append(path, memberLabel(m.Name, i)), depth); err != nil {
				return err
			}
		}
		if v.Len() > len(l.Members) {
			label := "#" + strconv.Itoa(len(l.Members))
			return errors.FieldUnknown(errors.PhasePack, append(path, label), label)
		}
		return nil
	}

	known := make(map[string]bool, len(l.Members))
	for i, m := range l.Members {
		label := memberLabel(m.Name, i)
		known[m.Name] = m.Name != ""
		mv, ok := v.Get(m.Name)
		if !ok {
			return errors.FieldMissing(errors.PhasePack, append(path, label), label)
		}
		if err := s.member(mv, m, off, append(path, label), depth); err != nil {
			return err
		}
	}
	for i, m := range v.Members() {
		if !known[m.Name] {
			label := memberLabel(m.Name, i)
			return errors.FieldUnknown(errors.PhasePack, append(path, label), label)
		}
	}
	return nil
}

func hasNames(v value.Value) bool {
	for _, m := range v.Members() {
		if m.Name != "" {
			return true
		}
	}
	return false
}

// union packs the single alternative v names, or the first member for a
// positional value.
func (s *packState) union(v value.Value, d *tinfo.Descriptor, off uint64, path []string, depth int) error {
	if v.Kind() != value.KindAggregate {
		return s.mismatch(v, d, path)
	}
	l, err := s.layout(d, path)
	if err != nil {
		return err
	}
	switch {
	case v.Len() == 0:
		return nil
	case v.Len() > 1:
		return errors.New(errors.PhasePack, errors.KindLengthMismatch).
			Path(path...).Type(d.String()).Value(uint64(v.Len())).
			Detail("union value holds %d alternatives, want 1", v.Len()).Build()
	case len(l.Members) == 0:
		label := memberLabel(v.Members()[0].Name, 0)
		return errors.FieldUnknown(errors.PhasePack, append(path, label), label)
	}
	chosen, _ := v.MemberAt(0)
	if chosen.Name == "" {
		m := l.Members[0]
		return s.member(chosen.Value, m, off, append(path, memberLabel(m.Name, 0)), depth)
	}
	for _, m := range l.Members {
		if m.Name == chosen.Name {
			return s.member(chosen.Value, m, off, append(path, m.Name), depth)
		}
	}
	return errors.FieldUnknown(errors.PhasePack, append(path, chosen.Name), chosen.Name)
}

func (s *packState) member(v value.Value, m tinfo.MemberLayout, off uint64, path []string, depth int) error {
	at := off + m.Offset
	if m.BitWidth == 0 {
		return s.pack(v, m.Type, at, path, depth+1)
	}
	if v.Kind() != value.KindInt {
		return s.mismatch(v, m.Type, path)
	}
	r, _ := m.Type.Resolve()
	signed := r.Kind().IsSigned()
	if !bitsFit(v.Int(), m.BitWidth, signed) {
		return errors.Overflow(errors.PhasePack, path, v.Int(), m.Type.String()+":"+strconv.FormatUint(m.BitWidth, 10))
	}
	mask := ^uint64(0)
	if m.BitWidth < 64 {
		mask = 1<<m.BitWidth - 1
	}
	unit := s.buf[at : at+m.Size]
	cur := readUint(s.cfg.order, unit)
	cur &^= mask << m.BitShift
	cur |= (v.Uint() & mask) << m.BitShift
	writeUint(s.cfg.order, unit, cur)
	return nil
}

func bitsFit(v int64, width uint64, signed bool) bool {
	if width >= 64 {
		return true
	}
	if signed {
		lo := -(int64(1) << (width - 1))
		hi := int64(1)<<(width-1) - 1
		return v >= lo && v <= hi
	}
	return v >= 0 && uint64(v) < uint64(1)<<width
}
