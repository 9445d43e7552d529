// Package decl defines the boundary between type descriptors and textual
// declarations.
//
// Parsers turn declaration text into a descriptor resolved against a type
// library; printers render a descriptor back into text. The grammar itself
// lives in the implementations: CPrinter renders C declarations and the
// witdecl subpackage parses WIT type expressions.
package decl

import "github.com/wippyai/typeinf/tinfo"

// ParseFlags control parsing.
type ParseFlags uint32

const (
	// ParseForward turns names the library cannot resolve into forward
	// references instead of failing.
	ParseForward ParseFlags = 1 << iota
	// ParseFullLayout allows results that only the full codec mode can
	// serialize, such as explicit layouts and bit-fields.
	ParseFullLayout
	// ParseSilent suppresses debug logging of parse failures.
	ParseSilent
)

func (f ParseFlags) Has(x ParseFlags) bool { return f&x != 0 }

// PrintFlags control printing.
type PrintFlags uint32

const (
	// PrintOneLine renders the whole declaration on a single line. It is
	// the default when neither PrintOneLine nor PrintMulti is set.
	PrintOneLine PrintFlags = 1 << iota
	// PrintMulti puts every aggregate member on its own indented line.
	PrintMulti
	// PrintSemi terminates the declaration with a semicolon.
	PrintSemi
	// PrintTypedef prefixes the declaration with "typedef".
	PrintTypedef
	// PrintOffsets annotates aggregate members with their byte offsets.
	PrintOffsets
)

func (f PrintFlags) Has(x PrintFlags) bool { return f&x != 0 }

// Parser turns declaration text into a descriptor. The returned name is
// the declared name, empty for anonymous type expressions.
type Parser interface {
	Parse(text string, lib tinfo.Library, flags ParseFlags) (name string, d *tinfo.Descriptor, err error)
}

// Printer renders a descriptor as declaration text. An empty name prints
// an abstract declarator.
type Printer interface {
	Print(d *tinfo.Descriptor, name string, flags PrintFlags) (string, error)
}
