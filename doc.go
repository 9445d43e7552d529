// Package typeinf marshals typed objects between dynamic values and raw
// memory.
//
// A type is described by a tinfo.Descriptor and persisted as a serialized
// pair of type bytes and field bytes. The Session ties a type library, a
// lifecycle registry, a declaration parser and printer, and the
// transcoder together behind operations that take and return serialized
// pairs.
//
// # Architecture Overview
//
//	typeinf/             Session façade, MemoryRegion and TypeStore
//	├── tinfo/           Arena-backed type descriptors and C layout
//	├── codec/           Type bytes and field bytes codec (fast and full)
//	├── value/           Dynamic values
//	├── transcoder/      Pack and unpack between values and memory
//	├── registry/        Lifecycle registry clearing descriptors at teardown
//	├── library/         In-memory type library and address type store
//	├── decl/            Parser and Printer interfaces, C printer
//	│   └── witdecl/     WIT type expression parser
//	├── memory/          Byte-slice and wazero memory regions
//	├── hostval/         Go values and CBOR to and from dynamic values
//	├── config/          typeinf.toml loading
//	├── errors/          Structured error types
//	└── cmd/typeinf/     Command line tool
//
// # Quick Start
//
//	lib := library.New(4)
//	s := typeinf.NewSession(lib, typeinf.WithParser(witdecl.New(res)))
//	defer s.Close()
//
//	_, tb, fb, err := s.ParseDecl("point", 0)
//	buf, err := s.PackToBytes(tb, fb, v, 0x1000, 0)
//	v, err = s.UnpackFromBytes(tb, fb, buf, 0x1000, 0)
//
// # Errors
//
// Failures are *errors.Error values carrying a phase, a kind, the member
// path and the byte offset. Match them with errors.Is against the phase
// sentinels:
//
//	if errors.Is(err, errors.PackError) { ... }
//
// Empty type bytes mean "no type". Decoding, sizing and printing accept
// them; packing and unpacking fail with an error errors.IsNoType reports.
package typeinf
