// Package selector compiles boolean filter expressions over message headers
// into an opaque predicate form suitable as a broker binding argument.
//
// The grammar is the usual message-selector subset: comparison and
// arithmetic operators, AND/OR/NOT, BETWEEN, IN, LIKE (with ESCAPE) and
// IS [NOT] NULL over identifiers, string literals, numbers, and booleans.
package selector

import (
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokInt
	tokFloat
	tokLParen
	tokRParen
	tokComma
	tokOp      // = <> < <= > >= + - * /
	tokKeyword // AND OR NOT BETWEEN IN LIKE ESCAPE IS NULL TRUE FALSE
)

type token struct {
	kind tokenKind
	text string // keywords upper-cased, identifiers verbatim
	pos  int
}

var keywords = map[string]struct{}{
	"AND": {}, "OR": {}, "NOT": {}, "BETWEEN": {}, "IN": {},
	"LIKE": {}, "ESCAPE": {}, "IS": {}, "NULL": {}, "TRUE": {}, "FALSE": {},
}

type lexer struct {
	input string
	pos   int
}

func (l *lexer) errorf(pos int, format string, args ...interface{}) error {
	return &SyntaxError{Position: pos, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}
	start := l.pos
	c := l.input[l.pos]

	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case c == '\'':
		return l.lexString()
	case c >= '0' && c <= '9', c == '.':
		return l.lexNumber()
	case strings.ContainsRune("=<>+-*/", rune(c)):
		return l.lexOperator()
	case c == '_' || c == '$' || unicode.IsLetter(rune(c)):
		return l.lexWord()
	default:
		return token{}, l.errorf(start, "unexpected character %q", c)
	}
}

func (l *lexer) lexString() (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c == '\'' {
			// A doubled quote is an escaped quote.
			if l.pos+1 < len(l.input) && l.input[l.pos+1] == '\'' {
				sb.WriteByte('\'')
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	kind := tokInt
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		if c >= '0' && c <= '9' {
			l.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			kind = tokFloat
			l.pos++
			if c != '.' && l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
				l.pos++
			}
			continue
		}
		break
	}
	text := l.input[start:l.pos]
	if text == "." {
		return token{}, l.errorf(start, "malformed number")
	}
	return token{kind: kind, text: text, pos: start}, nil
}

func (l *lexer) lexOperator() (token, error) {
	start := l.pos
	c := l.input[l.pos]
	l.pos++
	if l.pos < len(l.input) {
		two := string(c) + string(l.input[l.pos])
		if two == "<>" || two == "<=" || two == ">=" {
			l.pos++
			return token{kind: tokOp, text: two, pos: start}, nil
		}
	}
	return token{kind: tokOp, text: string(c), pos: start}, nil
}

func (l *lexer) lexWord() (token, error) {
	start := l.pos
	for l.pos < len(l.input) {
		c := rune(l.input[l.pos])
		if c == '_' || c == '$' || unicode.IsLetter(c) || unicode.IsDigit(c) {
			l.pos++
			continue
		}
		break
	}
	word := l.input[start:l.pos]
	upper := strings.ToUpper(word)
	if _, ok := keywords[upper]; ok {
		return token{kind: tokKeyword, text: upper, pos: start}, nil
	}
	return token{kind: tokIdent, text: word, pos: start}, nil
}

// tokenize lexes the whole input up front so the parser can look ahead.
func tokenize(input string) ([]token, error) {
	l := &lexer{input: input}
	var tokens []token
	for {
		t, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
		if t.kind == tokEOF {
			return tokens, nil
		}
	}
}
