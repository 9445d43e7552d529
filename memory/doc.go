// Package memory provides live memory regions for unpacking from and
// packing into: plain byte slices placed at a base address and wazero
// linear memories.
package memory
