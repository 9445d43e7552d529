package codec

// Mode selects the serialization strategy.
type Mode uint8

const (
	// ModeFast covers natural layouts only. It is the compact path and
	// rejects bit-fields, explicit offsets, size or alignment, and forward
	// references.
	ModeFast Mode = iota
	// ModeFull expresses every descriptor, including explicit layouts and
	// forward references by name.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "fast"
}

const (
	tagKindMask = 0x1f
	tagConst    = 0x20
	tagVolatile = 0x40
	tagName     = 0x80
)

// aggregate header bits
const (
	udtExplicit  = 0x01
	udtBitFields = 0x02
	udtSized     = 0x04 // natural layout with declared size or alignment
)

// pointer flags
const ptrClosure = 0x01

// named reference flags
const (
	refForward = 0x01
	refOrdinal = 0x02
)

const maxDepth = 256
