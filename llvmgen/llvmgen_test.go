package llvmgen

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/irgen"
	"github.com/pontaoski/quadc/lexer"
	"github.com/pontaoski/quadc/parser"
)

func generate(t *testing.T, src string) (*ir.Module, error) {
	t.Helper()
	s, err := lexer.Analyze(src)
	if err != nil {
		t.Fatal(err)
	}
	p := parser.New(s, irgen.DefaultOptions)
	if err := p.ParseProgram(); err != nil {
		t.Fatal(err)
	}
	return Generate(p.Quadruples())
}

func findFunc(m *ir.Module, name string) *ir.Func {
	for _, f := range m.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func findGlobal(m *ir.Module, name string) *ir.Global {
	for _, g := range m.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

const program = `
int g;
int add(int x, int y) { return x + y; }
void touch(string s) { g = g + 1; }
int main() {
	int a[3];
	int i;
	for (i = 0; i < 3; i++) {
		a[i] = add(i, g) / 2;
	}
	if (a[1] == 0) touch("x"); else g = 0;
	return a[2];
}
`

func TestGenerate(t *testing.T) {
	m, err := generate(t, program)
	if err != nil {
		t.Fatal(err)
	}

	add := findFunc(m, "add")
	if add == nil || len(add.Params) != 2 || !add.Sig.RetType.Equal(Word) {
		t.Fatalf("add was not declared as i32(i32, i32)")
	}
	touch := findFunc(m, "touch")
	if touch == nil || !types.IsVoid(touch.Sig.RetType) {
		t.Fatalf("touch was not declared as void")
	}
	if findFunc(m, EntryName) == nil {
		t.Fatalf("no %s entry point", EntryName)
	}

	if g := findGlobal(m, "v.g"); g == nil {
		t.Error("global g has no storage")
	}
	arr := findGlobal(m, "v.main.a")
	if arr == nil {
		t.Fatal("local array a has no storage")
	}
	if !arr.ContentType.Equal(arrayOf(3)) {
		t.Errorf("a has type %s", arr.ContentType)
	}
	if findGlobal(m, "v.add.x") == nil || findGlobal(m, "v.main.i") == nil {
		t.Error("parameters and locals must be qualified by their function")
	}

	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			if b.Term == nil {
				t.Errorf("block %s of %s is not terminated", b.Name(), f.Name())
			}
		}
	}

	out := m.String()
	for _, want := range []string{"sdiv", "icmp slt", "call i32 @add", "call void @touch", "syscall"} {
		if !strings.Contains(out, want) {
			t.Errorf("module is missing %q:\n%s", want, out)
		}
	}
}

// operands lists the values read by the instructions this package emits.
func operands(inst interface{}) []value.Value {
	switch i := inst.(type) {
	case *ir.InstLoad:
		return []value.Value{i.Src}
	case *ir.InstStore:
		return []value.Value{i.Src, i.Dst}
	case *ir.InstAdd:
		return []value.Value{i.X, i.Y}
	case *ir.InstSub:
		return []value.Value{i.X, i.Y}
	case *ir.InstMul:
		return []value.Value{i.X, i.Y}
	case *ir.InstSDiv:
		return []value.Value{i.X, i.Y}
	case *ir.InstICmp:
		return []value.Value{i.X, i.Y}
	case *ir.InstZExt:
		return []value.Value{i.From}
	case *ir.InstSExt:
		return []value.Value{i.From}
	case *ir.InstPtrToInt:
		return []value.Value{i.From}
	case *ir.InstGetElementPtr:
		return append([]value.Value{i.Src}, i.Indices...)
	case *ir.InstCall:
		return append([]value.Value{i.Callee}, i.Args...)
	case *ir.TermRet:
		if i.X == nil {
			return nil
		}
		return []value.Value{i.X}
	case *ir.TermCondBr:
		return []value.Value{i.Cond}
	}
	return nil
}

// checkDefinedBeforeUse fails if an instruction reads another instruction
// that does not come earlier in the same block. Values never cross blocks;
// everything that outlives a block goes through a global.
func checkDefinedBeforeUse(t *testing.T, m *ir.Module) {
	t.Helper()
	for _, f := range m.Funcs {
		for _, b := range f.Blocks {
			defined := make(map[value.Value]bool)
			check := func(inst interface{ LLString() string }) {
				for _, op := range operands(inst) {
					if _, isInst := op.(ir.Instruction); isInst && !defined[op] {
						t.Errorf("%s: %s uses %s before it is defined", f.Name(), inst.LLString(), op.Ident())
					}
				}
			}
			for _, inst := range b.Insts {
				check(inst)
				if v, ok := inst.(value.Value); ok {
					defined[v] = true
				}
			}
			if b.Term != nil {
				check(b.Term)
			}
		}
	}
}

func callsTo(f *ir.Func, callee *ir.Func) []*ir.InstCall {
	var ret []*ir.InstCall
	for _, b := range f.Blocks {
		for _, inst := range b.Insts {
			if call, ok := inst.(*ir.InstCall); ok && call.Callee == callee {
				ret = append(ret, call)
			}
		}
	}
	return ret
}

func expectIntArg(t *testing.T, call *ir.InstCall, i int, want int64) {
	t.Helper()
	c, ok := call.Args[i].(*constant.Int)
	if !ok {
		t.Errorf("argument %d of %s is %s, want %d", i, call.LLString(), call.Args[i].Ident(), want)
		return
	}
	if c.X.Int64() != want {
		t.Errorf("argument %d of %s is %d, want %d", i, call.LLString(), c.X.Int64(), want)
	}
}

func TestCallArguments(t *testing.T) {
	m, err := generate(t, `
		int add(int x, int y) { return x + y; }
		int main() {
			int a;
			a = add(2, 5);
			a = add(7, 9);
			a = add(a, add(1, 3));
			return a;
		}
	`)
	if err != nil {
		t.Fatal(err)
	}

	calls := callsTo(findFunc(m, "main"), findFunc(m, "add"))
	if len(calls) != 4 {
		t.Fatalf("expected 4 calls to add, got %d", len(calls))
	}
	expectIntArg(t, calls[0], 0, 2)
	expectIntArg(t, calls[0], 1, 5)
	expectIntArg(t, calls[1], 0, 7)
	expectIntArg(t, calls[1], 1, 9)
	expectIntArg(t, calls[2], 0, 1)
	expectIntArg(t, calls[2], 1, 3)

	if _, ok := calls[3].Args[0].(*ir.InstLoad); !ok {
		t.Errorf("first argument of the outer call should load a, got %s", calls[3].Args[0].Ident())
	}
	if len(calls[3].Args) != 2 || calls[3].Args[1] != value.Value(calls[2]) {
		t.Errorf("second argument of the outer call should be the inner call, got %s", calls[3].LLString())
	}

	checkDefinedBeforeUse(t, m)
}

func TestDefinedBeforeUse(t *testing.T) {
	m, err := generate(t, program)
	if err != nil {
		t.Fatal(err)
	}
	checkDefinedBeforeUse(t, m)
}

func TestTypeInfo(t *testing.T) {
	m, err := generate(t, program)
	if err != nil {
		t.Fatal(err)
	}
	info, err := ReadTypeInfo(m)
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{
		"add":   "int(int,int)",
		"touch": "void(string)",
		"main":  "int()",
	}
	for name, sig := range want {
		if info.Functions[name] != sig {
			t.Errorf("%s: got %q, want %q", name, info.Functions[name], sig)
		}
	}
}

func TestMissingMain(t *testing.T) {
	_, err := generate(t, "int a; a = 1;")
	var serr *errors.SemanticError
	if !stderrors.As(err, &serr) || serr.Reason != errors.MissingMain {
		t.Fatalf("expected a missing main error, got %v", err)
	}
}
