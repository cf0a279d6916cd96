package lexer

import (
	"fmt"
	"strings"

	"github.com/pontaoski/quadc/types"
)

// Class is the one-letter token class used by the standard token sequence.
type Class string

const (
	ClassKeyword    Class = "K"
	ClassIdentifier Class = "I"
	ClassConstant   Class = "C"
	ClassOperator   Class = "O"
	ClassSeparator  Class = "S"
)

func classOf(t types.Token) Class {
	switch t.Kind {
	case types.KEYWORD:
		return ClassKeyword
	case types.IDENT:
		return ClassIdentifier
	case types.NUMBER, types.CHAR, types.STRING:
		return ClassConstant
	case types.OPERATOR:
		return ClassOperator
	}
	return ClassSeparator
}

// Table numbers the distinct lexemes of one class from 1 in order of first
// appearance.
type Table struct {
	index   map[string]int
	Entries []string
}

func (t *Table) add(lexeme string) int {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[lexeme]; ok {
		return i
	}
	t.Entries = append(t.Entries, lexeme)
	t.index[lexeme] = len(t.Entries)
	return len(t.Entries)
}

// Index returns the 1-based index of lexeme, or 0 if it never appeared.
func (t *Table) Index(lexeme string) int {
	return t.index[lexeme]
}

type Tables map[Class]*Table

// Standardize renders tokens as "(K,K1),(I,I1),..." and returns the
// per-class tables backing the numbering.
func Standardize(tokens []types.Token) (string, Tables) {
	tables := Tables{
		ClassKeyword:    &Table{},
		ClassIdentifier: &Table{},
		ClassConstant:   &Table{},
		ClassOperator:   &Table{},
		ClassSeparator:  &Table{},
	}

	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		class := classOf(tok)
		idx := tables[class].add(Literal(tok))
		parts = append(parts, fmt.Sprintf("(%s,%s%d)", class, class, idx))
	}

	return strings.Join(parts, ","), tables
}

// Literal returns the token's source spelling, with quotes restored for char
// and string literals.
func Literal(t types.Token) string {
	switch t.Kind {
	case types.CHAR:
		return "'" + t.Text + "'"
	case types.STRING:
		return `"` + t.Text + `"`
	}
	return t.Text
}

// Render turns a token stream back into source text that lexes to the same
// tokens.
func Render(tokens []types.Token) string {
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		parts = append(parts, Literal(tok))
	}
	return strings.Join(parts, " ")
}
