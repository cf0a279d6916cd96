package errors

import (
	"fmt"

	"github.com/pontaoski/quadc/types"
)

type Kind int

const (
	Lexical Kind = iota
	Syntax
	Semantic
)

func (k Kind) String() string {
	switch k {
	case Lexical:
		return "lexical error"
	case Syntax:
		return "syntax error"
	case Semantic:
		return "semantic error"
	}
	return "error"
}

// LexicalError is a fatal scanning failure at Offset.
type LexicalError struct {
	Message string
	Offset  int
}

func (e LexicalError) Error() string {
	return fmt.Sprintf("%s at offset %d", e.Message, e.Offset)
}

type SyntaxError struct {
	Expected string
	Found    types.Token
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("expected %s, but found %s", e.Expected, e.Found)
}

type Reason int

const (
	DuplicateDeclaration Reason = iota
	UndeclaredVariable
	UndeclaredFunction
	ArityMismatch
	TypeMismatch
	MissingReturn
	InvalidReturn
	MissingMain
	DivisionByZero
	NotAnArray
	InvalidType
	ReservedName
)

func (r Reason) String() string {
	data := map[Reason]string{
		DuplicateDeclaration: "duplicate declaration",
		UndeclaredVariable:   "undeclared variable",
		UndeclaredFunction:   "undeclared function",
		ArityMismatch:        "arity mismatch",
		TypeMismatch:         "type mismatch",
		MissingReturn:        "missing return",
		InvalidReturn:        "invalid return",
		MissingMain:          "missing main",
		DivisionByZero:       "division by zero",
		NotAnArray:           "not an array",
		InvalidType:          "invalid type",
		ReservedName:         "reserved name",
	}
	return data[r]
}

// SemanticError is raised by the generators. Token is the token the parser
// was looking at when the error surfaced; it is nil for errors found after
// parsing (MissingMain).
type SemanticError struct {
	Reason  Reason
	Message string
	Token   *types.Token
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

func NewSemantic(r Reason, msg string, fmts ...interface{}) *SemanticError {
	return &SemanticError{
		Reason:  r,
		Message: fmt.Sprintf(msg, fmts...),
	}
}
