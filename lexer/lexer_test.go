package lexer

import (
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/alecthomas/repr"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/types"
)

type testToken struct {
	Kind types.TokenKind
	Text string
}

func lexToEOF(t *testing.T, src string) []testToken {
	t.Helper()
	stream, err := Analyze(src)
	if err != nil {
		t.Fatalf("Analyze(%q): %v", src, err)
	}
	var ret []testToken
	for _, tok := range stream.Tokens {
		ret = append(ret, testToken{tok.Kind, tok.Text})
	}
	return ret
}

func TestLexer(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []testToken
	}{
		{
			name: "keywords and identifiers",
			src:  "int x; while whilex _y",
			want: []testToken{
				{types.KEYWORD, "int"},
				{types.IDENT, "x"},
				{types.SEPARATOR, ";"},
				{types.KEYWORD, "while"},
				{types.IDENT, "whilex"},
				// '_' cannot start an identifier; it is skipped as unknown.
				{types.IDENT, "y"},
			},
		},
		{
			name: "operators are greedy",
			src:  "a<=b==c!=d>=e++--<",
			want: []testToken{
				{types.IDENT, "a"},
				{types.OPERATOR, "<="},
				{types.IDENT, "b"},
				{types.OPERATOR, "=="},
				{types.IDENT, "c"},
				{types.OPERATOR, "!="},
				{types.IDENT, "d"},
				{types.OPERATOR, ">="},
				{types.IDENT, "e"},
				{types.OPERATOR, "++"},
				{types.OPERATOR, "--"},
				{types.OPERATOR, "<"},
			},
		},
		{
			name: "literals",
			src:  `c = 'q'; s = "a\"b"; n = 42;`,
			want: []testToken{
				{types.IDENT, "c"},
				{types.OPERATOR, "="},
				{types.CHAR, "q"},
				{types.SEPARATOR, ";"},
				{types.IDENT, "s"},
				{types.OPERATOR, "="},
				{types.STRING, `a\"b`},
				{types.SEPARATOR, ";"},
				{types.IDENT, "n"},
				{types.OPERATOR, "="},
				{types.NUMBER, "42"},
				{types.SEPARATOR, ";"},
			},
		},
		{
			name: "separators",
			src:  "f(a[1],b){}",
			want: []testToken{
				{types.IDENT, "f"},
				{types.SEPARATOR, "("},
				{types.IDENT, "a"},
				{types.SEPARATOR, "["},
				{types.NUMBER, "1"},
				{types.SEPARATOR, "]"},
				{types.SEPARATOR, ","},
				{types.IDENT, "b"},
				{types.SEPARATOR, ")"},
				{types.SEPARATOR, "{"},
				{types.SEPARATOR, "}"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lexToEOF(t, tt.src)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %s\nwant %s", repr.String(got, repr.Indent("  ")), repr.String(tt.want, repr.Indent("  ")))
			}
		})
	}
}

func TestOffsetsFollowTokens(t *testing.T) {
	src := "int  abc ;"
	stream, err := Analyze(src)
	if err != nil {
		t.Fatal(err)
	}

	want := []int{3, 8, 10}
	for i, off := range want {
		if stream.Offsets[i] != off {
			t.Errorf("token %d offset: got %d, want %d", i, stream.Offsets[i], off)
		}
		if got := stream.Offsets.Of(stream.Tokens[i]); got != off {
			t.Errorf("Of(token %d): got %d, want %d", i, got, off)
		}
	}

	eof := stream.At(len(stream.Tokens))
	if eof.Kind != types.EOF {
		t.Fatalf("expected EOF past the end, got %s", eof)
	}
	if got := stream.Offsets.Of(eof); got != 10 {
		t.Errorf("EOF offset: got %d, want 10", got)
	}
}

func TestUnknownCharacterIsSkipped(t *testing.T) {
	stream, err := Analyze("a @ b")
	if err != nil {
		t.Fatal(err)
	}
	if len(stream.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(stream.Tokens))
	}
	if len(stream.Diagnostics) != 1 || stream.Diagnostics[0].Offset != 2 {
		t.Fatalf("unexpected diagnostics %v", stream.Diagnostics)
	}
}

func TestFatalLiterals(t *testing.T) {
	tests := []struct {
		src    string
		offset int
	}{
		{"c = 'a", 4},
		{"c = ''", 4},
		{"c = '", 4},
		{`s = "abc`, 4},
		{`s = "abc\"`, 4},
		{"n = 99999999999", 4},
	}

	for _, tt := range tests {
		_, err := Analyze(tt.src)
		var lerr errors.LexicalError
		if !stderrors.As(err, &lerr) {
			t.Errorf("%q: expected LexicalError, got %v", tt.src, err)
			continue
		}
		if lerr.Offset != tt.offset {
			t.Errorf("%q: offset %d, want %d", tt.src, lerr.Offset, tt.offset)
		}
	}
}

func TestStandardize(t *testing.T) {
	stream, err := Analyze("int a; int b; a = b + 1;")
	if err != nil {
		t.Fatal(err)
	}

	seq, tables := Standardize(stream.Tokens)
	want := "(K,K1),(I,I1),(S,S1),(K,K1),(I,I2),(S,S1),(I,I1),(O,O1),(I,I2),(O,O2),(C,C1),(S,S1)"
	if seq != want {
		t.Errorf("got %s\nwant %s", seq, want)
	}
	if tables[ClassIdentifier].Index("b") != 2 {
		t.Errorf("b should be identifier 2, got %d", tables[ClassIdentifier].Index("b"))
	}
	if len(tables[ClassOperator].Entries) != 2 {
		t.Errorf("expected 2 operators, got %v", tables[ClassOperator].Entries)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	src := `int f(int x){return x*2;} char c; string s; c='z'; s="q\"r"; if(c>=1){c=c;}`
	first, err := Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Analyze(Render(first.Tokens))
	if err != nil {
		t.Fatal(err)
	}

	a, _ := Standardize(first.Tokens)
	b, _ := Standardize(second.Tokens)
	if a != b {
		t.Errorf("round trip changed the token stream:\n%s\n%s", a, b)
	}
}
