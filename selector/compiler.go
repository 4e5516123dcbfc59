package selector

import (
	"strings"
)

type exprType int

const (
	typeAny exprType = iota // unknown header, usable anywhere
	typeBool
	typeArith
	typeString
)

// headerTypes fixes the types of the well-known message headers. Initialized
// once, never mutated.
var headerTypes = map[string]exprType{
	"JMSDeliveryMode":  typeString,
	"JMSPriority":      typeArith,
	"JMSMessageID":     typeString,
	"JMSTimestamp":     typeArith,
	"JMSCorrelationID": typeString,
	"JMSType":          typeString,
}

type node interface {
	// typ is the static type of the expression.
	typ() exprType
	// write serializes the node into the compiled predicate form.
	write(sb *strings.Builder)
}

// Compile parses, type-checks, and serializes a filter expression. The
// result is an opaque prefix-term string carried as a broker binding
// argument; the selector-capable exchange evaluates it per message.
func Compile(expression string) (string, error) {
	if strings.TrimSpace(expression) == "" {
		return "", &SyntaxError{Position: 0, Message: "empty expression"}
	}
	tokens, err := tokenize(expression)
	if err != nil {
		return "", err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return "", err
	}
	if t := p.peek(); t.kind != tokEOF {
		return "", &SyntaxError{Position: t.pos, Message: "unexpected trailing input"}
	}
	if root.typ() != typeBool && root.typ() != typeAny {
		return "", &TypeError{Position: 0, Message: "expression is not a boolean condition"}
	}
	var sb strings.Builder
	root.write(&sb)
	return sb.String(), nil
}

// Validate reports whether the expression compiles, without keeping the
// compiled form.
func Validate(expression string) error {
	_, err := Compile(expression)
	return err
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind, what string) (token, error) {
	t := p.peek()
	if t.kind != kind {
		return token{}, &SyntaxError{Position: t.pos, Message: "expected " + what}
	}
	return p.advance(), nil
}

func (p *parser) acceptKeyword(kw string) bool {
	t := p.peek()
	if t.kind == tokKeyword && t.text == kw {
		p.advance()
		return true
	}
	return false
}

// parseOr: andExpr (OR andExpr)*
func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if err := requireBool(p.peek().pos, left, right); err != nil {
			return nil, err
		}
		left = &logicalNode{op: "or", left: left, right: right}
	}
	return left, nil
}

// parseAnd: notExpr (AND notExpr)*
func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.acceptKeyword("AND") {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if err := requireBool(p.peek().pos, left, right); err != nil {
			return nil, err
		}
		left = &logicalNode{op: "and", left: left, right: right}
	}
	return left, nil
}

// parseNot: NOT notExpr | condition
func (p *parser) parseNot() (node, error) {
	if t := p.peek(); t.kind == tokKeyword && t.text == "NOT" {
		p.advance()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if inner.typ() != typeBool && inner.typ() != typeAny {
			return nil, &TypeError{Position: t.pos, Message: "NOT requires a boolean operand"}
		}
		return &notNode{inner: inner}, nil
	}
	return p.parseCondition()
}

// parseCondition: arith [comparison | BETWEEN | IN | LIKE | IS [NOT] NULL]
func (p *parser) parseCondition() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	switch {
	case t.kind == tokOp && isComparison(t.text):
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := checkComparable(left, right, t); err != nil {
			return nil, err
		}
		return &compareNode{op: t.text, left: left, right: right}, nil

	case t.kind == tokKeyword && (t.text == "BETWEEN" || t.text == "NOT" || t.text == "IN" || t.text == "LIKE" || t.text == "IS"):
		return p.parsePostfix(left)
	}
	return left, nil
}

// parsePostfix handles BETWEEN, IN, LIKE, IS NULL and their NOT variants.
func (p *parser) parsePostfix(left node) (node, error) {
	negated := false
	t := p.peek()
	if t.kind == tokKeyword && t.text == "NOT" {
		// Lookahead: NOT here only negates a postfix condition.
		next := p.tokens[p.pos+1]
		if next.kind != tokKeyword || (next.text != "BETWEEN" && next.text != "IN" && next.text != "LIKE") {
			return left, nil
		}
		p.advance()
		negated = true
		t = p.peek()
	}

	switch t.text {
	case "BETWEEN":
		p.advance()
		lo, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if !p.acceptKeyword("AND") {
			return nil, &SyntaxError{Position: p.peek().pos, Message: "expected AND in BETWEEN"}
		}
		hi, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := requireArith(t.pos, left, lo, hi); err != nil {
			return nil, err
		}
		return maybeNot(negated, &betweenNode{expr: left, lo: lo, hi: hi}), nil

	case "IN":
		p.advance()
		if _, err := p.expect(tokLParen, "'(' after IN"); err != nil {
			return nil, err
		}
		var items []string
		for {
			s, err := p.expect(tokString, "string literal in IN list")
			if err != nil {
				return nil, err
			}
			items = append(items, s.text)
			if p.peek().kind == tokComma {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(tokRParen, "')' closing IN list"); err != nil {
			return nil, err
		}
		if left.typ() == typeArith || left.typ() == typeBool {
			return nil, &TypeError{Position: t.pos, Message: "IN requires a string expression"}
		}
		return maybeNot(negated, &inNode{expr: left, items: items}), nil

	case "LIKE":
		p.advance()
		pattern, err := p.expect(tokString, "pattern string after LIKE")
		if err != nil {
			return nil, err
		}
		escape := ""
		hasEscape := false
		if p.acceptKeyword("ESCAPE") {
			esc, err := p.expect(tokString, "escape string after ESCAPE")
			if err != nil {
				return nil, err
			}
			if len(esc.text) != 1 {
				return nil, &SyntaxError{Position: esc.pos, Message: "ESCAPE must be a single character"}
			}
			escape = esc.text
			hasEscape = true
		}
		if left.typ() == typeArith || left.typ() == typeBool {
			return nil, &TypeError{Position: t.pos, Message: "LIKE requires a string expression"}
		}
		return maybeNot(negated, &likeNode{expr: left, pattern: pattern.text, escape: escape, hasEscape: hasEscape}), nil

	case "IS":
		p.advance()
		isNot := p.acceptKeyword("NOT")
		if !p.acceptKeyword("NULL") {
			return nil, &SyntaxError{Position: p.peek().pos, Message: "expected NULL after IS"}
		}
		id, ok := left.(*identNode)
		if !ok {
			return nil, &SyntaxError{Position: t.pos, Message: "IS NULL applies to an identifier"}
		}
		return maybeNot(isNot, &isNullNode{ident: id}), nil
	}
	return left, nil
}

// parseAdditive: multiplicative (('+'|'-') multiplicative)*
func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		if err := requireArith(t.pos, left, right); err != nil {
			return nil, err
		}
		left = &arithNode{op: t.text, left: left, right: right}
	}
}

// parseMultiplicative: unary (('*'|'/') unary)*
func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if err := requireArith(t.pos, left, right); err != nil {
			return nil, err
		}
		left = &arithNode{op: t.text, left: left, right: right}
	}
}

// parseUnary: ('+'|'-') unary | primary
func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "+" || t.text == "-") {
		p.advance()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if err := requireArith(t.pos, inner); err != nil {
			return nil, err
		}
		if t.text == "+" {
			return inner, nil
		}
		return &negNode{inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()
	switch t.kind {
	case tokLParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokIdent:
		p.advance()
		return &identNode{name: t.text, pos: t.pos}, nil
	case tokString:
		p.advance()
		return &stringNode{value: t.text}, nil
	case tokInt, tokFloat:
		p.advance()
		return &numberNode{text: t.text}, nil
	case tokKeyword:
		if t.text == "TRUE" || t.text == "FALSE" {
			p.advance()
			return &boolNode{value: t.text == "TRUE"}, nil
		}
	}
	return nil, &SyntaxError{Position: t.pos, Message: "expected an expression"}
}

func isComparison(op string) bool {
	switch op {
	case "=", "<>", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func maybeNot(negated bool, inner node) node {
	if negated {
		return &notNode{inner: inner}
	}
	return inner
}

func requireBool(pos int, nodes ...node) error {
	for _, n := range nodes {
		if n.typ() != typeBool && n.typ() != typeAny {
			return &TypeError{Position: pos, Message: "operand is not a boolean condition"}
		}
	}
	return nil
}

func requireArith(pos int, nodes ...node) error {
	for _, n := range nodes {
		if n.typ() == typeString || n.typ() == typeBool {
			return &TypeError{Position: pos, Message: "operand is not arithmetic"}
		}
	}
	return nil
}

func checkComparable(left, right node, op token) error {
	lt, rt := left.typ(), right.typ()
	if lt == typeAny || rt == typeAny {
		return nil
	}
	if lt != rt {
		return &TypeError{Position: op.pos, Message: "operands of " + op.text + " have incompatible types"}
	}
	// Strings and booleans only support equality.
	if (lt == typeString || lt == typeBool) && op.text != "=" && op.text != "<>" {
		return &TypeError{Position: op.pos, Message: op.text + " requires arithmetic operands"}
	}
	return nil
}
