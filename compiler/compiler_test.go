package compiler

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/lexer"
)

func mustFail(t *testing.T, src string) (*Result, *Failure) {
	t.Helper()
	r, err := Compile(src, DefaultOptions)
	if err == nil {
		t.Fatalf("expected %q to fail", src)
	}
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("error %v carries no location", err)
	}
	if f.Before+f.After != src {
		t.Fatalf("failure split does not rebuild the source: %q + %q", f.Before, f.After)
	}
	return r, f
}

func TestCompile(t *testing.T) {
	r, err := Compile("int a; int b; a = 2 + 3 * 4; b = a + 5; int main() { return b; }", DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(r.QuadrupleText(), "(= 14 _ a)\n(+ a 5 t0)\n(= t0 _ b)\n") {
		t.Errorf("unexpected quadruples:\n%s", r.QuadrupleText())
	}
	if !strings.Contains(r.SymbolText(), "Global symbols:") {
		t.Errorf("unexpected symbol table:\n%s", r.SymbolText())
	}
	if !strings.Contains(r.Assembly, "CALL fn_main") {
		t.Errorf("unexpected assembly:\n%s", r.Assembly)
	}
	if r.LLVM != nil {
		t.Error("LLVM module built without being asked for")
	}
}

func TestTokenSequence(t *testing.T) {
	r, _ := Compile("int a; a = a + 1;", DefaultOptions)
	want := "(K,K1),(I,I1),(S,S1),(I,I1),(O,O1),(I,I1),(O,O2),(C,C1),(S,S1)"
	if r.TokenSequence != want {
		t.Errorf("got %s, want %s", r.TokenSequence, want)
	}
	if r.Tables[lexer.ClassIdentifier].Index("a") != 1 {
		t.Error("a should be the first identifier")
	}
}

func TestSyntaxErrorSplit(t *testing.T) {
	src := "int a;\nint b = 3;"
	_, f := mustFail(t, src)
	if f.Kind != errors.Syntax {
		t.Fatalf("kind %s, want syntax error", f.Kind)
	}
	if f.Before != "int a;\nint b =" || f.After != " 3;" {
		t.Errorf("split %q | %q", f.Before, f.After)
	}
	if f.Caret() != "int a;\nint b =\n"+caret+"\n 3;" {
		t.Errorf("unexpected caret rendering:\n%s", f.Caret())
	}
}

func TestSyntaxErrorAtEnd(t *testing.T) {
	src := "int main() { return 0;  "
	_, f := mustFail(t, src)
	if f.Kind != errors.Syntax {
		t.Fatalf("kind %s, want syntax error", f.Kind)
	}
	if f.Before != "int main() { return 0;" {
		t.Errorf("end of input should split after the last token, got %q", f.Before)
	}
}

func TestSemanticErrorSplit(t *testing.T) {
	src := "int a;\na = b;\nint c;"
	_, f := mustFail(t, src)
	if f.Kind != errors.Semantic {
		t.Fatalf("kind %s, want semantic error", f.Kind)
	}
	if f.Before != "int a;\na = b;" {
		t.Errorf("split %q | %q", f.Before, f.After)
	}
}

func TestLexicalErrorSplit(t *testing.T) {
	src := "char c; c = '';"
	_, f := mustFail(t, src)
	if f.Kind != errors.Lexical {
		t.Fatalf("kind %s, want lexical error", f.Kind)
	}
	if f.Before != "char c; c = " {
		t.Errorf("split %q | %q", f.Before, f.After)
	}
}

func TestMissingMainFailsOnlyAtAssembly(t *testing.T) {
	src := "int a; a = 1;"
	r, f := mustFail(t, src)
	if f.Kind != errors.Semantic || f.Before != src || f.After != "" {
		t.Errorf("unexpected failure %+v", f)
	}
	if len(r.Quadruples) != 2 || r.Symbols == nil {
		t.Error("the front end should have completed")
	}
	if r.Assembly != "" {
		t.Error("no assembly expected")
	}
}

func TestDiagnostics(t *testing.T) {
	r, _ := Compile("int a; a = 1 # ;", DefaultOptions)
	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Offset != 13 {
		t.Errorf("unexpected diagnostics %v", r.Diagnostics)
	}
}

const sample = `
int total;
char grade;
string name;
int scores[4];

int sum(int n) {
	int i;
	int s;
	s = 0;
	for (i = 0; i < n; i++) {
		s = s + scores[i];
	}
	return s;
}

int main() {
	scores[0] = 3 * 7;
	scores[1] = 10 / 3;
	scores[2] = 'a';
	scores[3] = scores[0] - scores[1];
	total = sum(4);
	if (total >= 50) grade = 'A'; else grade = 'B';
	name = "quad \"c\"";
	while (total > 0) total--;
	return total;
}
`

func TestRenderIsDeterministic(t *testing.T) {
	first, err := Compile(sample, DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compile(lexer.Render(first.Tokens), DefaultOptions)
	if err != nil {
		t.Fatal(err)
	}
	if first.QuadrupleText() != second.QuadrupleText() {
		t.Errorf("re-rendered source compiled differently:\n%s\n%s", first.QuadrupleText(), second.QuadrupleText())
	}
	if first.Assembly != second.Assembly {
		t.Error("re-rendered source produced different assembly")
	}
}

func TestLLVM(t *testing.T) {
	r, err := Compile(sample, Options{Fold: true, CSE: true, LLVM: true})
	if err != nil {
		t.Fatal(err)
	}
	if r.LLVM == nil {
		t.Fatal("no LLVM module")
	}
}

func TestConcurrentCompiles(t *testing.T) {
	var sources []string
	for i := 0; i < 16; i++ {
		sources = append(sources, fmt.Sprintf("int v%d; int main() { v%d = %d + v%d * 2; return v%d; }", i, i, i, i, i))
	}

	want := make([]string, len(sources))
	for i, src := range sources {
		r, err := Compile(src, DefaultOptions)
		if err != nil {
			t.Fatal(err)
		}
		want[i] = r.QuadrupleText() + r.Assembly
	}

	got := make([]string, len(sources))
	errs := make([]error, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src string) {
			defer wg.Done()
			r, err := Compile(src, DefaultOptions)
			errs[i] = err
			if err == nil {
				got[i] = r.QuadrupleText() + r.Assembly
			}
		}(i, src)
	}
	wg.Wait()

	for i := range sources {
		if errs[i] != nil {
			t.Fatal(errs[i])
		}
		if got[i] != want[i] {
			t.Errorf("compile %d differs when run concurrently", i)
		}
	}
}
