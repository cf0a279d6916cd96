package quad

import (
	"reflect"
	"testing"
)

func TestOpTags(t *testing.T) {
	for op, tag := range tags {
		got, ok := ParseOp(tag)
		if !ok || got != op {
			t.Errorf("ParseOp(%q) = %v, %v; want %v", tag, got, ok, op)
		}
		if op.String() != tag {
			t.Errorf("%d.String() = %q, want %q", int(op), op.String(), tag)
		}
	}

	if !Div.IsArithmetic() || Eq.IsArithmetic() {
		t.Error("IsArithmetic misclassifies")
	}
	if !Ge.IsComparison() || IfFalse.IsComparison() {
		t.Error("IsComparison misclassifies")
	}
	if !WhileEnd.IsMarker() || Label.IsMarker() {
		t.Error("IsMarker misclassifies")
	}
}

func TestRenderParse(t *testing.T) {
	qs := []Quadruple{
		New(VarDecl, "string", "", "s"),
		New(Assign, `"a b\" c"`, "", "s"),
		New(Assign, "' '", "", "c"),
		New(Add, "a", "5", "t0"),
		New(Assign, "t0", "", Element("arr", "i")),
		New(ElseStart, "", "", ""),
	}

	text := Render(qs)
	want := "(var_decl string _ s)\n" +
		"(= \"a b\\\" c\" _ s)\n" +
		"(= ' ' _ c)\n" +
		"(+ a 5 t0)\n" +
		"(= t0 _ arr[i])\n" +
		"(el _ _ _)\n"
	if text != want {
		t.Fatalf("Render:\n%s\nwant:\n%s", text, want)
	}

	back, err := Parse(text)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, qs) {
		t.Errorf("Parse(Render(qs)) = %v, want %v", back, qs)
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{"= a _ b", "(= a b)", "(nope a b c)"} {
		if _, err := Parse(text); err == nil {
			t.Errorf("Parse(%q): expected an error", text)
		}
	}
}

func TestOperands(t *testing.T) {
	tests := []struct {
		s                    string
		isInt, isChar, isStr bool
		isTemp               bool
	}{
		{"42", true, false, false, false},
		{"-7", true, false, false, false},
		{"'x'", false, true, false, false},
		{`"hi"`, false, false, true, false},
		{"t12", false, false, false, true},
		{"total", false, false, false, false},
		{"t", false, false, false, false},
	}
	for _, tt := range tests {
		if IsInt(tt.s) != tt.isInt || IsChar(tt.s) != tt.isChar || IsString(tt.s) != tt.isStr || IsTemp(tt.s) != tt.isTemp {
			t.Errorf("classification of %q is wrong", tt.s)
		}
	}

	name, idx, ok := SplitElement(Element("a", "t3"))
	if !ok || name != "a" || idx != "t3" {
		t.Errorf("SplitElement round trip failed: %q %q %v", name, idx, ok)
	}
	if _, _, ok := SplitElement("plain"); ok {
		t.Error("plain name decoded as element")
	}
	if CharValue("'A'") != 'A' {
		t.Error("CharValue('A') != 'A'")
	}
}
