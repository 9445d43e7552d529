package transcoder

import (
	"encoding/binary"

	"github.com/wippyai/typeinf/tinfo"
)

const (
	DefaultMaxDepth = 64
	DefaultMaxBytes = 64 << 20
)

// Flags alter a single Pack or Unpack call.
type Flags uint8

const (
	// FlagFollowPointers unpacks the pointee of non-null pointers instead
	// of the raw address.
	FlagFollowPointers Flags = 1 << iota
	// FlagEmbedded packs pointees without relocation entries; pointer
	// slots hold buffer-relative offsets.
	FlagEmbedded
)

func (f Flags) has(x Flags) bool { return f&x != 0 }

type config struct {
	order    binary.ByteOrder
	addrSize uint64
	maxBytes uint64
	maxDepth int
}

func defaultConfig() config {
	return config{
		order:    binary.LittleEndian,
		maxDepth: DefaultMaxDepth,
		maxBytes: DefaultMaxBytes,
	}
}

// Option configures a Packer or Unpacker.
type Option func(*config)

// WithAddrSize overrides the pointer width (4 or 8) the descriptor's
// library declares.
func WithAddrSize(n uint64) Option {
	return func(c *config) {
		if n == 4 || n == 8 {
			c.addrSize = n
		}
	}
}

func WithByteOrder(order binary.ByteOrder) Option {
	return func(c *config) {
		if order != nil {
			c.order = order
		}
	}
}

// WithMaxDepth bounds descriptor and pointer nesting.
func WithMaxDepth(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithMaxBytes bounds the bytes a single call may read or produce.
func WithMaxBytes(n uint64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

func newConfig(opts []Option) config {
	c := defaultConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// sizedLib pins the pointer width seen by descriptor layout.
type sizedLib struct {
	tinfo.Library
	size uint64
}

func (l sizedLib) PointerSize() uint64 { return l.size }

func (l sizedLib) NamedType(name string) (*tinfo.Descriptor, bool) {
	if l.Library == nil {
		return nil, false
	}
	return l.Library.NamedType(name)
}

func (l sizedLib) NumberedType(ordinal uint32) (*tinfo.Descriptor, bool) {
	if l.Library == nil {
		return nil, false
	}
	return l.Library.NumberedType(ordinal)
}

// bind applies the address-size override and returns the pointer width in
// effect for d.
func (c *config) bind(d *tinfo.Descriptor) (*tinfo.Descriptor, uint64) {
	if c.addrSize == 0 {
		return d, d.PointerSize()
	}
	lib := d.Library()
	if s, ok := lib.(sizedLib); ok {
		lib = s.Library
	}
	return d.Bind(sizedLib{Library: lib, size: c.addrSize}), c.addrSize
}

func readUint(order binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(order.Uint16(b))
	case 4:
		return uint64(order.Uint32(b))
	case 8:
		return order.Uint64(b)
	}
	var v uint64
	if order == binary.BigEndian {
		for _, x := range b {
			v = v<<8 | uint64(x)
		}
		return v
	}
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func writeUint(order binary.ByteOrder, b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		order.PutUint16(b, uint16(v))
	case 4:
		order.PutUint32(b, uint32(v))
	case 8:
		order.PutUint64(b, v)
	default:
		if order == binary.BigEndian {
			for i := len(b) - 1; i >= 0; i-- {
				b[i] = byte(v)
				v >>= 8
			}
			return
		}
		for i := range b {
			b[i] = byte(v)
			v >>= 8
		}
	}
}
