package witdecl

import (
	"github.com/wippyai/typeinf/errors"
)

// expr is a parsed type expression: a name with optional generic
// arguments. A hole ("_") stands for an absent type in result<_, E>.
type expr struct {
	name string
	args []*expr
	pos  int
	hole bool
}

type parser struct {
	toks []token
	i    int
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(n int) token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) expect(k tokKind) (token, error) {
	t := p.next()
	if t.kind != k {
		what := t.text
		if t.kind == tokEOF {
			what = "end of input"
		}
		return t, errors.InvalidData(errors.PhaseParse, int64(t.pos), "unexpected "+what)
	}
	return t, nil
}

func (p *parser) expr(depth int) (*expr, error) {
	if depth > maxDepth {
		return nil, errors.LimitExceeded(errors.PhaseParse, nil, "type nesting", maxDepth)
	}
	t, err := p.expect(tokIdent)
	if err != nil {
		return nil, err
	}
	e := &expr{name: t.text, pos: t.pos, hole: t.text == "_"}
	if p.peek().kind != tokLAngle {
		return e, nil
	}
	p.next()
	for {
		arg, err := p.expr(depth + 1)
		if err != nil {
			return nil, err
		}
		e.args = append(e.args, arg)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if _, err := p.expect(tokRAngle); err != nil {
		return nil, err
	}
	return e, nil
}
