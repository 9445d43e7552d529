package transcoder

import (
	"encoding/binary"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/internal/align"
	"github.com/wippyai/typeinf/tinfo"
	"github.com/wippyai/typeinf/value"
)

// RelocatableBuffer is packed data whose pointer slots hold offsets into
// Bytes. Relocs lists the byte offsets of those slots.
type RelocatableBuffer struct {
	Order    binary.ByteOrder
	Bytes    []byte
	Relocs   []uint64
	AddrSize uint64
}

// Relocate returns a copy of the buffer with base added to every recorded
// pointer slot. The receiver is left unrelocated, so relocating it again
// with another base starts from the same bytes.
func (b *RelocatableBuffer) Relocate(base uint64) ([]byte, error) {
	if err := b.check(base); err != nil {
		return nil, err
	}
	out := append([]byte(nil), b.Bytes...)
	b.apply(out, base)
	return out, nil
}

// RelocateInPlace adds base to every recorded slot of Bytes and clears
// Relocs. Nothing is written unless every slot can be relocated.
func (b *RelocatableBuffer) RelocateInPlace(base uint64) error {
	if err := b.check(base); err != nil {
		return err
	}
	b.apply(b.Bytes, base)
	b.Relocs = nil
	return nil
}

func (b *RelocatableBuffer) order() binary.ByteOrder {
	if b.Order == nil {
		return binary.LittleEndian
	}
	return b.Order
}

func (b *RelocatableBuffer) width() uint64 {
	if b.AddrSize == 0 {
		return tinfo.DefaultPointerSize
	}
	return b.AddrSize
}

func (b *RelocatableBuffer) check(base uint64) error {
	w := b.width()
	if w != 4 && w != 8 {
		return errors.New(errors.PhaseRelocate, errors.KindInvalidInput).
			Value(w).Detail("address size %d", w).Build()
	}
	size := uint64(len(b.Bytes))
	for _, off := range b.Relocs {
		end, ok := align.SafeAdd(off, w)
		if !ok || end > size {
			return errors.New(errors.PhaseRelocate, errors.KindOutOfBounds).
				Offset(int64(off)).Value(off).
				Detail("slot of %d bytes exceeds buffer length %d", w, size).Build()
		}
		cur := readUint(b.order(), b.Bytes[off:end])
		sum, ok := align.SafeAdd(cur, base)
		if !ok || (w < 8 && !align.FitsUnsigned(sum, w)) {
			return errors.New(errors.PhaseRelocate, errors.KindOverflow).
				Offset(int64(off)).Value(sum).
				Detail("relocated address %#x + %#x overflows %d-byte slot", cur, base, w).Build()
		}
	}
	return nil
}

func (b *RelocatableBuffer) apply(dst []byte, base uint64) {
	w := b.width()
	for _, off := range b.Relocs {
		slot := dst[off : off+w]
		writeUint(b.order(), slot, readUint(b.order(), slot)+base)
	}
}

// PackToMemory packs v, relocates it to addr and writes it to dst.
func (p *Packer) PackToMemory(v value.Value, d *tinfo.Descriptor, dst Sink, addr uint64, flags Flags) (int, error) {
	if dst == nil {
		return 0, errors.InvalidInput(errors.PhasePack, "nil destination")
	}
	buf, err := p.Pack(v, d, flags)
	if err != nil {
		return 0, err
	}
	data, err := buf.Relocate(addr)
	if err != nil {
		return 0, err
	}
	if err := dst.Write(addr, data); err != nil {
		return 0, errors.New(errors.PhasePack, errors.KindOutOfBounds).
			Offset(int64(addr)).Value(addr).
			Detail("write of %d bytes failed", len(data)).Cause(err).Build()
	}
	return len(data), nil
}
