package transcoder

// Source is readable memory addressed by absolute addresses.
type Source interface {
	Read(addr, n uint64) ([]byte, error)
}

// Sink is writable memory addressed by absolute addresses.
type Sink interface {
	Write(addr uint64, data []byte) error
}

// Bounded is implemented by sources that know the address range they
// cover. The unpacker checks every read against it before reading.
type Bounded interface {
	Bounds() (lo, hi uint64)
}

// BufferSource exposes Data as memory starting at address Base.
type BufferSource struct {
	Data []byte
	Base uint64
}

func (s BufferSource) Bounds() (lo, hi uint64) {
	return s.Base, s.Base + uint64(len(s.Data))
}

// Read returns a view of n bytes at addr. The caller must not modify it.
func (s BufferSource) Read(addr, n uint64) ([]byte, error) {
	if !inBounds(s, addr, n) {
		return nil, errOutside
	}
	off := addr - s.Base
	return s.Data[off : off+n], nil
}

type outsideError struct{}

func (outsideError) Error() string { return "read outside source" }

var errOutside error = outsideError{}

func inBounds(b Bounded, addr, n uint64) bool {
	lo, hi := b.Bounds()
	if addr < lo || addr > hi {
		return false
	}
	return n <= hi-addr
}

// firstOutside returns the first address of [addr, addr+n) that lies
// outside the bounds.
func firstOutside(b Bounded, addr uint64) uint64 {
	lo, hi := b.Bounds()
	if addr < lo || addr >= hi {
		return addr
	}
	return hi
}
