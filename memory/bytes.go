package memory

import (
	"fmt"
	"math"
)

// Bytes is a byte slice exposed as memory starting at address Base.
// Writes go straight into Data.
type Bytes struct {
	Data []byte
	Base uint64
}

// NewBytes allocates a zeroed region of size bytes at base.
func NewBytes(base, size uint64) *Bytes {
	return &Bytes{Data: make([]byte, size), Base: base}
}

// Size returns the region length in bytes.
func (b *Bytes) Size() uint64 { return uint64(len(b.Data)) }

// Bounds returns the address range [lo, hi) the region covers.
func (b *Bytes) Bounds() (lo, hi uint64) {
	if math.MaxUint64-b.Base < b.Size() {
		return b.Base, math.MaxUint64
	}
	return b.Base, b.Base + b.Size()
}

func (b *Bytes) span(addr, n uint64) (uint64, bool) {
	if addr < b.Base {
		return 0, false
	}
	off := addr - b.Base
	if off > b.Size() || n > b.Size()-off {
		return 0, false
	}
	return off, true
}

// Read returns a view of n bytes at addr. The caller must not modify it.
func (b *Bytes) Read(addr, n uint64) ([]byte, error) {
	off, ok := b.span(addr, n)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: addr=%#x, length=%d", addr, n)
	}
	return b.Data[off : off+n], nil
}

// Write copies data to addr.
func (b *Bytes) Write(addr uint64, data []byte) error {
	off, ok := b.span(addr, uint64(len(data)))
	if !ok {
		return fmt.Errorf("memory write out of bounds: addr=%#x, length=%d", addr, len(data))
	}
	copy(b.Data[off:], data)
	return nil
}
