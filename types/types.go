package types

import (
	"fmt"
)

type TokenKind int

const (
	EOF TokenKind = iota

	KEYWORD
	IDENT
	NUMBER
	CHAR
	STRING
	OPERATOR
	SEPARATOR
)

func (t TokenKind) String() string {
	data := map[TokenKind]string{
		EOF:       "EOF",
		KEYWORD:   "KEYWORD",
		IDENT:     "IDENT",
		NUMBER:    "NUMBER",
		CHAR:      "CHAR",
		STRING:    "STRING",
		OPERATOR:  "OPERATOR",
		SEPARATOR: "SEPARATOR",
	}
	return data[t]
}

// Token is a single lexeme. Index is the token's ordinal in the stream and is
// the key into Offsets.
type Token struct {
	Kind  TokenKind
	Text  string
	Index int
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "end of input"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// Is reports whether the token has the given kind and text.
func (t Token) Is(k TokenKind, text string) bool {
	return t.Kind == k && t.Text == text
}

// Offsets maps a token ordinal to the byte offset in the source immediately
// following the token.
type Offsets []int

// Of returns the recorded offset for tok. Tokens past the end of the stream
// (the synthetic EOF) resolve to the last recorded offset.
func (o Offsets) Of(tok Token) int {
	if len(o) == 0 {
		return 0
	}
	if tok.Index < 0 {
		return 0
	}
	if tok.Index >= len(o) {
		return o[len(o)-1]
	}
	return o[tok.Index]
}
