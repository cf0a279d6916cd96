package lexer

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/coreos/pkg/capnslog"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/types"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "lexer")

var keywords = map[string]bool{
	"if":     true,
	"else":   true,
	"while":  true,
	"for":    true,
	"int":    true,
	"char":   true,
	"string": true,
	"void":   true,
	"return": true,
}

var operators = map[rune]bool{
	'+': true,
	'-': true,
	'*': true,
	'/': true,
	'=': true,
	'<': true,
	'>': true,
	'!': true,
}

var twoCharOperators = map[string]bool{
	"++": true,
	"--": true,
	"==": true,
	"!=": true,
	"<=": true,
	">=": true,
}

var separators = map[rune]bool{
	'(': true,
	')': true,
	'{': true,
	'}': true,
	';': true,
	',': true,
	'[': true,
	']': true,
}

// Diagnostic is a recoverable lexing problem; the offending input was skipped.
type Diagnostic struct {
	Message string
	Offset  int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at offset %d", d.Message, d.Offset)
}

// Stream is the output of a lexing pass.
type Stream struct {
	Tokens      []types.Token
	Offsets     types.Offsets
	Diagnostics []Diagnostic
}

// At returns the i-th token, or an EOF token once i runs past the end.
func (s *Stream) At(i int) types.Token {
	if i < len(s.Tokens) {
		return s.Tokens[i]
	}
	return types.Token{Kind: types.EOF, Index: len(s.Tokens)}
}

type Lexer struct {
	src    string
	pos    int
	stream *Stream
}

func NewLexer(src string) *Lexer {
	return &Lexer{
		src:    src,
		stream: &Stream{},
	}
}

// Analyze lexes src in one pass.
func Analyze(src string) (*Stream, error) {
	return NewLexer(src).Analyze()
}

func (l *Lexer) peek() (rune, int) {
	if l.pos >= len(l.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.src[l.pos:])
}

// emit records a token and the cursor position after it.
func (l *Lexer) emit(k types.TokenKind, text string) {
	l.stream.Tokens = append(l.stream.Tokens, types.Token{
		Kind:  k,
		Text:  text,
		Index: len(l.stream.Tokens),
	})
	l.stream.Offsets = append(l.stream.Offsets, l.pos)
}

func (l *Lexer) Analyze() (*Stream, error) {
	for l.pos < len(l.src) {
		r, size := l.peek()

		switch {
		case unicode.IsSpace(r):
			l.pos += size
		case r == '\'':
			if err := l.lexChar(); err != nil {
				return nil, err
			}
		case r == '"':
			if err := l.lexString(); err != nil {
				return nil, err
			}
		case unicode.IsLetter(r):
			l.lexIdent()
		case unicode.IsDigit(r):
			if err := l.lexNumber(); err != nil {
				return nil, err
			}
		case operators[r]:
			l.lexOperator()
		case separators[r]:
			l.pos += size
			l.emit(types.SEPARATOR, string(r))
		default:
			d := Diagnostic{
				Message: fmt.Sprintf("unknown character %q", r),
				Offset:  l.pos,
			}
			plog.Warningf("%s", d)
			l.stream.Diagnostics = append(l.stream.Diagnostics, d)
			l.pos += size
		}
	}

	plog.Debugf("lexed %d tokens", len(l.stream.Tokens))
	return l.stream, nil
}

func (l *Lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.pos += size
	}

	lit := l.src[start:l.pos]
	if keywords[lit] {
		l.emit(types.KEYWORD, lit)
		return
	}
	l.emit(types.IDENT, lit)
}

func (l *Lexer) lexNumber() error {
	start := l.pos
	for l.pos < len(l.src) {
		r, size := l.peek()
		if !unicode.IsDigit(r) {
			break
		}
		l.pos += size
	}

	lit := l.src[start:l.pos]
	if _, err := strconv.ParseInt(lit, 10, 32); err != nil {
		return errors.LexicalError{
			Message: fmt.Sprintf("integer literal %s out of range", lit),
			Offset:  start,
		}
	}
	l.emit(types.NUMBER, lit)
	return nil
}

// lexChar expects the cursor on the opening quote.
func (l *Lexer) lexChar() error {
	start := l.pos
	l.pos++

	r, size := l.peek()
	switch {
	case size == 0:
		return errors.LexicalError{Message: "unterminated character literal", Offset: start}
	case r == '\'':
		return errors.LexicalError{Message: "empty character literal", Offset: start}
	}
	l.pos += size

	if closing, _ := l.peek(); closing != '\'' {
		return errors.LexicalError{Message: "unterminated character literal", Offset: start}
	}
	l.pos++

	l.emit(types.CHAR, string(r))
	return nil
}

// lexString expects the cursor on the opening quote. A backslash skips
// exactly one following character; the escape is kept verbatim.
func (l *Lexer) lexString() error {
	start := l.pos
	l.pos++

	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.pos += 2
			continue
		case '"':
			lit := l.src[start+1 : l.pos]
			l.pos++
			l.emit(types.STRING, lit)
			return nil
		}
		l.pos++
	}

	return errors.LexicalError{Message: "unterminated string literal", Offset: start}
}

func (l *Lexer) lexOperator() {
	if l.pos+1 < len(l.src) {
		two := l.src[l.pos : l.pos+2]
		if twoCharOperators[two] {
			l.pos += 2
			l.emit(types.OPERATOR, two)
			return
		}
	}

	op := l.src[l.pos : l.pos+1]
	l.pos++
	l.emit(types.OPERATOR, op)
}
