// Package codec serializes type descriptors to the compact byte form
// stored alongside addresses and library entries, and back.
//
// A serialized type is a pair. The type bytes hold the structure, one tag
// byte per node followed by the node's payload:
//
//	tag      low 5 bits kind, 0x20 const, 0x40 volatile, 0x80 name follows
//	name     LEB128 length + UTF-8 bytes (only when 0x80 is set)
//	payload  per kind, integers in LEB128
//
// The field bytes hold the member, parameter and enum-case names in the
// order the decoder meets them, each length-prefixed. They are empty when
// the type carries no such names.
//
// Empty type bytes stand for "no type" and decode to tinfo.None without
// error.
package codec
