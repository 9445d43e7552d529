package typeinf

// MemoryRegion is live memory addressed by absolute addresses.
type MemoryRegion interface {
	Read(addr, n uint64) ([]byte, error)
	Write(addr uint64, data []byte) error
	Size() uint64
}

// TypeStore records serialized type metadata per address.
type TypeStore interface {
	Type(addr uint64) (typeBytes, fieldBytes []byte, ok bool)
	SetType(addr uint64, typeBytes, fieldBytes []byte) error
	DeleteType(addr uint64) bool
}
