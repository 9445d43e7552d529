package witdecl

import (
	"strings"

	"github.com/wippyai/typeinf/errors"
)

type tokKind uint8

const (
	tokEOF tokKind = iota
	tokIdent
	tokLAngle
	tokRAngle
	tokComma
	tokEquals
)

type token struct {
	text string
	pos  int
	kind tokKind
}

func isIdentByte(c byte) bool {
	return c == '-' || c == '_' || c == '.' || c == '%' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func lex(text string) ([]token, error) {
	var toks []token
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '<':
			toks = append(toks, token{kind: tokLAngle, text: "<", pos: i})
			i++
		case c == '>':
			toks = append(toks, token{kind: tokRAngle, text: ">", pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, text: ",", pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokEquals, text: "=", pos: i})
			i++
		case c == ';':
			if strings.TrimSpace(text[i+1:]) != "" {
				return nil, errors.InvalidData(errors.PhaseParse, int64(i), "text after ';'")
			}
			i = len(text)
		case isIdentByte(c):
			start := i
			for i < len(text) && isIdentByte(text[i]) {
				i++
			}
			// %name escapes keywords in WIT
			toks = append(toks, token{kind: tokIdent, text: strings.TrimPrefix(text[start:i], "%"), pos: start})
		default:
			return nil, errors.InvalidData(errors.PhaseParse, int64(i), "unexpected character "+string(rune(c)))
		}
	}
	return append(toks, token{kind: tokEOF, pos: len(text)}), nil
}
