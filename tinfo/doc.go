// Package tinfo describes C-like types as arena-backed descriptors.
//
// A Descriptor is a root index into an append-only Arena plus the Library
// used to resolve named references. Builders produce a fresh arena for
// every descriptor and copy nested descriptors into it, so the arena of a
// built descriptor is never modified and nested descriptors handed out by
// the detail accessors can share it freely.
//
// Layout follows the natural C rules: scalars align to their size,
// pointers to the library's address width, struct members in declaration
// order at aligned offsets, unions at offset zero, and bit-fields packed
// into storage units of their declared type. Explicit layouts carry bit
// offsets per member and an optional size and alignment.
//
// Sizes are never guessed. Size returns BadSize for anything that has no
// known size, including forward references and references the library
// cannot resolve.
package tinfo
