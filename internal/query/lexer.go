package query

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokParam
	tokPunct
)

type token struct {
	kind tokenKind
	text string // identifiers keep their case; strings are unquoted
	pos  int
}

// is reports whether t is the given keyword or punctuation, case-insensitively.
func (t token) is(s string) bool {
	return (t.kind == tokIdent || t.kind == tokPunct) && strings.EqualFold(t.text, s)
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// lex splits text into tokens, terminated by a tokEOF token.
func lex(text string) ([]token, error) {
	var toks []token
	rs := []rune(text)
	// Offsets are reported in runes.
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '-' && i+1 < len(rs) && rs[i+1] == '-':
			for i < len(rs) && rs[i] != '\n' {
				i++
			}
		case r == '?':
			toks = append(toks, token{kind: tokParam, text: "?", pos: i})
			i++
		case r == '\'':
			start := i
			var b strings.Builder
			i++
			for {
				if i >= len(rs) {
					return nil, &SyntaxError{Pos: start, Msg: "unterminated string"}
				}
				if rs[i] == '\'' {
					if i+1 < len(rs) && rs[i+1] == '\'' {
						b.WriteRune('\'')
						i += 2
						continue
					}
					i++
					break
				}
				b.WriteRune(rs[i])
				i++
			}
			toks = append(toks, token{kind: tokString, text: b.String(), pos: start})
		case r == '"' || r == '`':
			start := i
			end := i + 1
			for end < len(rs) && rs[end] != r {
				end++
			}
			if end >= len(rs) {
				return nil, &SyntaxError{Pos: start, Msg: "unterminated identifier"}
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start+1 : end]), pos: start})
			i = end + 1
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			start := i
			i++
			for i < len(rs) && unicode.IsDigit(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokNumber, text: string(rs[start:i]), pos: start})
		case isIdentRune(r):
			start := i
			for i < len(rs) && isIdentRune(rs[i]) {
				i++
			}
			toks = append(toks, token{kind: tokIdent, text: string(rs[start:i]), pos: start})
		case r == '!' || r == '<' || r == '>':
			start := i
			i++
			if i < len(rs) && (rs[i] == '=' || (r == '<' && rs[i] == '>')) {
				i++
			}
			op := string(rs[start:i])
			if op == "!" {
				return nil, &SyntaxError{Pos: start, Near: op, Msg: "unexpected character"}
			}
			toks = append(toks, token{kind: tokPunct, text: op, pos: start})
		case strings.ContainsRune("(),*=;.", r):
			toks = append(toks, token{kind: tokPunct, text: string(r), pos: i})
			i++
		default:
			return nil, &SyntaxError{Pos: i, Near: string(r), Msg: "unexpected character"}
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(rs)})
	return toks, nil
}
