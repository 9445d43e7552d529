// Package witdecl parses WIT type expressions into type descriptors.
//
// Names are resolved against a *wit.Resolve loaded from the JSON form
// wasm-tools emits, then against the type library. Converted aggregates
// follow the component model canonical ABI layout on a 32-bit target:
// strings and lists become {ptr, len} pairs, variants become a
// discriminant followed by a union of their payloads.
package witdecl

import (
	"io"

	"github.com/wippyai/typeinf/decl"
	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"
)

const maxDepth = 64

// Parser resolves WIT type expressions. The zero value knows only
// primitive types, generics over them and library names.
//
// Accepted forms are a type expression such as "list<tuple<u32, string>>"
// or a declaration "type name = expr". A bare name that matches a named
// WIT type declares that name.
type Parser struct {
	Resolve *wit.Resolve
}

var _ decl.Parser = (*Parser)(nil)

func New(res *wit.Resolve) *Parser {
	return &Parser{Resolve: res}
}

// LoadJSON reads a WIT resolve in JSON form from path.
func LoadJSON(path string) (*Parser, error) {
	res, err := wit.LoadJSON(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "load WIT JSON "+path)
	}
	return New(res), nil
}

// DecodeJSON reads a WIT resolve in JSON form from r.
func DecodeJSON(r io.Reader) (*Parser, error) {
	res, err := wit.DecodeJSON(r)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseParse, errors.KindInvalidInput, err, "decode WIT JSON")
	}
	return New(res), nil
}

// Parse implements decl.Parser.
func (p *Parser) Parse(text string, lib tinfo.Library, flags decl.ParseFlags) (string, *tinfo.Descriptor, error) {
	name, d, err := p.parse(text, lib, flags)
	if err != nil {
		if !flags.Has(decl.ParseSilent) {
			Logger().Debug("parse failed", zap.String("text", text), zap.Error(err))
		}
		return "", nil, err
	}
	return name, d.Bind(lib), nil
}

func (p *Parser) parse(text string, lib tinfo.Library, flags decl.ParseFlags) (string, *tinfo.Descriptor, error) {
	toks, err := lex(text)
	if err != nil {
		return "", nil, err
	}
	ps := &parser{toks: toks}

	var name string
	if ps.peek().kind == tokIdent && ps.peek().text == "type" && ps.peekAt(1).kind == tokIdent {
		ps.next()
		name = ps.next().text
		if _, err := ps.expect(tokEquals); err != nil {
			return "", nil, err
		}
	}
	e, err := ps.expr(0)
	if err != nil {
		return "", nil, err
	}
	if t := ps.peek(); t.kind != tokEOF {
		return "", nil, errors.InvalidData(errors.PhaseParse, int64(t.pos), "unexpected "+t.text)
	}

	c := &converter{res: p.Resolve, lib: lib, flags: flags, seen: make(map[*wit.TypeDef]*tinfo.Descriptor)}
	d, err := c.expr(e, 0)
	if err != nil {
		return "", nil, err
	}
	if name == "" && len(e.args) == 0 {
		if td := c.typeDef(e.name); td != nil {
			name = e.name
		}
	}
	if name != "" && (d.Kind().IsAggregate() || d.Kind() == tinfo.KindEnum) {
		d = d.WithName(name)
	}
	return name, d, nil
}
