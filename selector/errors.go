package selector

import "fmt"

// SyntaxError reports a lexical or grammatical error in a filter expression.
type SyntaxError struct {
	Position int
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("selector: syntax error at position %d: %s", e.Position, e.Message)
}

// TypeError reports a semantically invalid expression, such as comparing a
// string header arithmetically or a non-boolean top-level expression.
type TypeError struct {
	Position int
	Message  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("selector: type error at position %d: %s", e.Position, e.Message)
}
