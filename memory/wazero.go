package memory

import (
	"fmt"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// Wazero adapts a wazero linear memory. Addresses are offsets into the
// memory, which starts at 0.
type Wazero struct {
	Mem api.Memory
}

// WrapWazero wraps mem, returning nil for a nil memory.
func WrapWazero(mem api.Memory) *Wazero {
	if mem == nil {
		return nil
	}
	return &Wazero{Mem: mem}
}

// Size returns the current memory size in bytes. It grows when the guest
// grows its memory.
func (m *Wazero) Size() uint64 { return uint64(m.Mem.Size()) }

// Bounds returns [0, Size()).
func (m *Wazero) Bounds() (lo, hi uint64) { return 0, m.Size() }

// Read returns a view of n bytes at addr. The view aliases guest memory
// and is invalidated when the memory grows.
func (m *Wazero) Read(addr, n uint64) ([]byte, error) {
	if addr > math.MaxUint32 || n > math.MaxUint32 {
		return nil, fmt.Errorf("memory read out of bounds: addr=%#x, length=%d", addr, n)
	}
	data, ok := m.Mem.Read(uint32(addr), uint32(n))
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: addr=%#x, length=%d", addr, n)
	}
	return data, nil
}

// Write copies data to addr.
func (m *Wazero) Write(addr uint64, data []byte) error {
	if addr > math.MaxUint32 || !m.Mem.Write(uint32(addr), data) {
		return fmt.Errorf("memory write out of bounds: addr=%#x, length=%d", addr, len(data))
	}
	return nil
}
