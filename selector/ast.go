package selector

import "strings"

// The compiled form is a deterministic prefix-term encoding, one term per
// node, evaluated by the selector-capable exchange on the broker side:
//
//	{'and',L,R}  {'or',L,R}  {'not',X}
//	{'=',L,R}    {'<>',L,R}  {'<',L,R} ... comparison operators verbatim
//	{'+',L,R}    {'-',L,R}   {'*',L,R} {'/',L,R}  {'-',X} for negation
//	{'between',X,Lo,Hi}  {'in',X,["a","b"]}
//	{'like',X,"pat","esc"}  {'like',X,"pat",no_escape}
//	{'is_null',{'ident',"name"}}
//	{'ident',"name"}  "string"  123  1.5  true  false

type logicalNode struct {
	op          string // "and" | "or"
	left, right node
}

func (n *logicalNode) typ() exprType { return typeBool }

func (n *logicalNode) write(sb *strings.Builder) {
	sb.WriteString("{'")
	sb.WriteString(n.op)
	sb.WriteString("',")
	n.left.write(sb)
	sb.WriteByte(',')
	n.right.write(sb)
	sb.WriteByte('}')
}

type notNode struct {
	inner node
}

func (n *notNode) typ() exprType { return typeBool }

func (n *notNode) write(sb *strings.Builder) {
	sb.WriteString("{'not',")
	n.inner.write(sb)
	sb.WriteByte('}')
}

type compareNode struct {
	op          string
	left, right node
}

func (n *compareNode) typ() exprType { return typeBool }

func (n *compareNode) write(sb *strings.Builder) {
	sb.WriteString("{'")
	sb.WriteString(n.op)
	sb.WriteString("',")
	n.left.write(sb)
	sb.WriteByte(',')
	n.right.write(sb)
	sb.WriteByte('}')
}

type arithNode struct {
	op          string
	left, right node
}

func (n *arithNode) typ() exprType { return typeArith }

func (n *arithNode) write(sb *strings.Builder) {
	sb.WriteString("{'")
	sb.WriteString(n.op)
	sb.WriteString("',")
	n.left.write(sb)
	sb.WriteByte(',')
	n.right.write(sb)
	sb.WriteByte('}')
}

type negNode struct {
	inner node
}

func (n *negNode) typ() exprType { return typeArith }

func (n *negNode) write(sb *strings.Builder) {
	sb.WriteString("{'-',")
	n.inner.write(sb)
	sb.WriteByte('}')
}

type betweenNode struct {
	expr, lo, hi node
}

func (n *betweenNode) typ() exprType { return typeBool }

func (n *betweenNode) write(sb *strings.Builder) {
	sb.WriteString("{'between',")
	n.expr.write(sb)
	sb.WriteByte(',')
	n.lo.write(sb)
	sb.WriteByte(',')
	n.hi.write(sb)
	sb.WriteByte('}')
}

type inNode struct {
	expr  node
	items []string
}

func (n *inNode) typ() exprType { return typeBool }

func (n *inNode) write(sb *strings.Builder) {
	sb.WriteString("{'in',")
	n.expr.write(sb)
	sb.WriteString(",[")
	for i, item := range n.items {
		if i > 0 {
			sb.WriteByte(',')
		}
		writeQuoted(sb, item)
	}
	sb.WriteString("]}")
}

type likeNode struct {
	expr      node
	pattern   string
	escape    string
	hasEscape bool
}

func (n *likeNode) typ() exprType { return typeBool }

func (n *likeNode) write(sb *strings.Builder) {
	sb.WriteString("{'like',")
	n.expr.write(sb)
	sb.WriteByte(',')
	writeQuoted(sb, n.pattern)
	sb.WriteByte(',')
	if n.hasEscape {
		writeQuoted(sb, n.escape)
	} else {
		sb.WriteString("no_escape")
	}
	sb.WriteByte('}')
}

type isNullNode struct {
	ident *identNode
}

func (n *isNullNode) typ() exprType { return typeBool }

func (n *isNullNode) write(sb *strings.Builder) {
	sb.WriteString("{'is_null',")
	n.ident.write(sb)
	sb.WriteByte('}')
}

type identNode struct {
	name string
	pos  int
}

func (n *identNode) typ() exprType {
	if t, ok := headerTypes[n.name]; ok {
		return t
	}
	return typeAny
}

func (n *identNode) write(sb *strings.Builder) {
	sb.WriteString("{'ident',")
	writeQuoted(sb, n.name)
	sb.WriteByte('}')
}

type stringNode struct {
	value string
}

func (n *stringNode) typ() exprType { return typeString }

func (n *stringNode) write(sb *strings.Builder) {
	writeQuoted(sb, n.value)
}

type numberNode struct {
	text string
}

func (n *numberNode) typ() exprType { return typeArith }

func (n *numberNode) write(sb *strings.Builder) {
	sb.WriteString(n.text)
}

type boolNode struct {
	value bool
}

func (n *boolNode) typ() exprType { return typeBool }

func (n *boolNode) write(sb *strings.Builder) {
	if n.value {
		sb.WriteString("true")
	} else {
		sb.WriteString("false")
	}
}

func writeQuoted(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(c)
	}
	sb.WriteByte('"')
}
