// Package transcoder converts between dynamic values and raw byte
// representations described by type descriptors.
//
// # Unpacking
//
// An Unpacker reads a value of a given descriptor at an address of a
// Source. Scalars are read by width and byte order; arrays of one-byte
// elements become byte strings, other arrays positional aggregates;
// structs become aggregates named after their members; a union yields its
// first member; bit-fields are extracted from their storage unit and
// sign-extended when the declared type is signed. Pointers are read as
// integers unless FlagFollowPointers is given.
//
// Every read is bounds-checked against the source before it happens.
//
// # Packing
//
//	value + descriptor ──Pack──▶ RelocatableBuffer{Bytes, Relocs}
//	                                   │
//	                         Relocate(base) ──▶ []byte at base
//
// Pointer members whose value is an aggregate or byte string have their
// pointee appended to the tail of the buffer. The pointer slot holds the
// buffer-relative offset of the pointee and its position is recorded in
// Relocs; relocation adds the final base address to every recorded slot.
// With FlagEmbedded no relocations are recorded and the slots keep the
// relative offsets.
//
// # Thread Safety
//
// Packer and Unpacker hold only configuration and are safe for concurrent
// use. They touch no state shared with other callers.
//
// # Error Handling
//
// Errors use the structured types from the errors package:
//
//	[pack] field_missing at hdr.len: required member "len" not found
//	[unpack] out_of_bounds at items.[3] (offset 4112): 4 bytes at 0x100c exceed source [0x1000, 0x1010)
package transcoder
