package asmgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/pkg/capnslog"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/quad"
	"github.com/pontaoski/quadc/symtab"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "asmgen")

// Entry is the name of the synthetic procedure that runs the global
// statements and then calls main.
const Entry = "START"

// savedRegisters are pushed around every call, after the arguments.
var savedRegisters = []string{"AX", "BX", "CX", "DX"}

var jumps = map[quad.Op]string{
	quad.Eq: "JE",
	quad.Ne: "JNE",
	quad.Lt: "JL",
	quad.Le: "JLE",
	quad.Gt: "JG",
	quad.Ge: "JGE",
}

var arith = map[quad.Op][]string{
	quad.Add: {"ADD AX, BX"},
	quad.Sub: {"SUB AX, BX"},
	quad.Mul: {"IMUL BX"},
	quad.Div: {"CWD", "IDIV BX"},
}

type generator struct {
	table *symtab.Table

	data     []string
	declared map[string]bool
	strs     map[string]string

	funcs strings.Builder
	start strings.Builder
	out   *strings.Builder

	fn       string
	prev     quad.Op
	nparams  int
	paramIdx int
	markers  int
	compares int
}

// Generate lowers a quadruple program to 16-bit MASM assembly.
func Generate(qs []quad.Quadruple) (string, error) {
	if !hasMain(qs) {
		return "", errors.NewSemantic(errors.MissingMain, "program has no main function")
	}

	g := &generator{
		table:    symtab.Build(qs),
		declared: make(map[string]bool),
		strs:     make(map[string]string),
	}
	g.collect(qs)

	g.out = &g.start
	for _, q := range qs {
		g.emit(q)
	}

	var b strings.Builder
	b.WriteString(".MODEL SMALL\n")
	b.WriteString(".STACK 100H\n")
	b.WriteString(".DATA\n")
	for _, d := range g.data {
		b.WriteString("    " + d + "\n")
	}
	b.WriteString(".CODE\n")
	b.WriteString(g.funcs.String())
	fmt.Fprintf(&b, "%s PROC\n", Entry)
	b.WriteString("    MOV AX, @DATA\n")
	b.WriteString("    MOV DS, AX\n")
	b.WriteString(g.start.String())
	fmt.Fprintf(&b, "    CALL %s\n", procName("main"))
	b.WriteString("    MOV AX, 4C00H\n")
	b.WriteString("    INT 21H\n")
	fmt.Fprintf(&b, "%s ENDP\n", Entry)
	fmt.Fprintf(&b, "END %s\n", Entry)

	plog.Debugf("emitted %d data definitions for %d quadruples", len(g.data), len(qs))
	return b.String(), nil
}

func hasMain(qs []quad.Quadruple) bool {
	for _, q := range qs {
		if q.Op == quad.FuncStart && q.Result == "main" {
			return true
		}
	}
	return false
}

func procName(fn string) string {
	return "fn_" + fn
}

// dataName maps a variable or temp to its data word. Function locals and
// parameters are qualified with their function so they never alias a
// global of the same name.
func (g *generator) dataName(name string) string {
	if g.fn != "" {
		if sym, ok := g.table.Lookup(g.fn, name); ok && sym.Scope != symtab.Global {
			return "_" + g.fn + "@" + name
		}
	}
	return "_" + name
}

func (g *generator) stringLabel(lit string) string {
	if label, ok := g.strs[lit]; ok {
		return label
	}
	label := "str@" + strconv.Itoa(len(g.strs))
	g.strs[lit] = label
	body := strings.ReplaceAll(lit[1:len(lit)-1], `"`, `""`)
	g.data = append(g.data, fmt.Sprintf("%s DB \"%s\", '$'", label, body))
	return label
}

func (g *generator) word(name string) {
	d := g.dataName(name)
	if g.declared[d] {
		return
	}
	g.declared[d] = true
	g.data = append(g.data, d+" DW ?")
}

func (g *generator) array(name string, size string) {
	d := g.dataName(name)
	if g.declared[d] {
		return
	}
	g.declared[d] = true
	g.data = append(g.data, fmt.Sprintf("%s DW %s DUP(?)", d, size))
}

// operand records the storage an operand needs.
func (g *generator) operand(s string) {
	switch {
	case s == quad.Empty, quad.IsInt(s), quad.IsChar(s):
	case quad.IsString(s):
		g.stringLabel(s)
	default:
		if name, index, ok := quad.SplitElement(s); ok {
			if sym, found := g.table.Resolve(g.fn, name); found && sym.Kind == symtab.Array {
				g.array(name, strconv.Itoa(sym.Size))
			}
			g.operand(index)
			return
		}
		g.word(s)
	}
}

// collect walks the program once to lay out the data segment in order of
// first use.
func (g *generator) collect(qs []quad.Quadruple) {
	for _, q := range qs {
		switch {
		case q.Op == quad.FuncStart:
			g.fn = q.Result
		case q.Op == quad.FuncEnd:
			g.fn = ""
		case q.Op == quad.Assign, q.Op.IsArithmetic(), q.Op.IsComparison():
			g.operand(q.Arg1)
			g.operand(q.Arg2)
			g.operand(q.Result)
		case q.Op == quad.IfFalse, q.Op == quad.Param, q.Op == quad.Return:
			g.operand(q.Arg1)
		case q.Op == quad.Call:
			g.operand(q.Result)
		case q.Op == quad.ParamDecl:
			g.word(q.Result)
		case q.Op == quad.VarDecl:
			if sym, ok := g.table.Resolve(g.fn, q.Result); ok && sym.Kind == symtab.Array {
				continue
			}
			g.word(q.Result)
		case q.Op == quad.ArrayDecl:
			g.array(q.Arg1, q.Arg2)
		}
	}
	g.fn = ""
}

func (g *generator) line(format string, args ...interface{}) {
	g.out.WriteString("    ")
	fmt.Fprintf(g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *generator) label(name string) {
	fmt.Fprintf(g.out, "%s:\n", name)
}

// load moves the value of operand s into reg.
func (g *generator) load(reg string, s string) {
	switch {
	case quad.IsInt(s):
		g.line("MOV %s, %s", reg, s)
	case quad.IsChar(s):
		g.line("MOV %s, %d", reg, quad.CharValue(s))
	case quad.IsString(s):
		g.line("MOV %s, OFFSET %s", reg, g.stringLabel(s))
	default:
		if name, index, ok := quad.SplitElement(s); ok {
			g.index(index)
			g.line("MOV %s, %s[SI]", reg, g.dataName(name))
			return
		}
		g.line("MOV %s, %s", reg, g.dataName(s))
	}
}

// store moves reg into the location named by operand s.
func (g *generator) store(s string, reg string) {
	if name, index, ok := quad.SplitElement(s); ok {
		g.index(index)
		g.line("MOV %s[SI], %s", g.dataName(name), reg)
		return
	}
	g.line("MOV %s, %s", g.dataName(s), reg)
}

// index leaves the byte offset of element index in SI.
func (g *generator) index(index string) {
	g.load("SI", index)
	g.line("SHL SI, 1")
}

func (g *generator) epilogue() {
	g.line("MOV SP, BP")
	g.line("POP BP")
	g.line("RET")
}

func (g *generator) emit(q quad.Quadruple) {
	prev := g.prev
	g.prev = q.Op

	switch {
	case q.Op == quad.Assign:
		g.load("AX", q.Arg1)
		g.store(q.Result, "AX")

	case q.Op.IsArithmetic():
		g.load("AX", q.Arg1)
		g.load("BX", q.Arg2)
		for _, ins := range arith[q.Op] {
			g.line("%s", ins)
		}
		g.store(q.Result, "AX")

	case q.Op.IsComparison():
		done := "cmp_" + strconv.Itoa(g.compares)
		g.compares++
		g.load("AX", q.Arg1)
		g.load("BX", q.Arg2)
		g.line("CMP AX, BX")
		g.line("MOV AX, 1")
		g.line("%s %s", jumps[q.Op], done)
		g.line("MOV AX, 0")
		g.label(done)
		g.store(q.Result, "AX")

	case q.Op == quad.IfFalse:
		g.load("AX", q.Arg1)
		g.line("CMP AX, 0")
		g.line("JE %s", q.Result)

	case q.Op == quad.Goto:
		g.line("JMP %s", q.Result)

	case q.Op == quad.Label:
		g.label(q.Result)

	case q.Op.IsMarker():
		g.label(fmt.Sprintf("%s_%d", q.Op, g.markers))
		g.markers++

	case q.Op == quad.FuncStart:
		g.fn = q.Result
		g.out = &g.funcs
		fmt.Fprintf(g.out, "%s PROC\n", procName(q.Result))

	case q.Op == quad.FuncDef:
		g.nparams, _ = strconv.Atoi(q.Arg2)
		g.paramIdx = 0
		g.line("PUSH BP")
		g.line("MOV BP, SP")
		g.line("SUB SP, 16")

	case q.Op == quad.ParamDecl:
		// return address, saved BP and the caller's saved registers sit
		// between BP and the last argument
		offset := 4 + 2*len(savedRegisters) + 2*(g.nparams-1-g.paramIdx)
		g.paramIdx++
		g.line("MOV AX, [BP+%d]", offset)
		g.store(q.Result, "AX")

	case q.Op == quad.FuncEnd:
		if prev != quad.Return {
			g.epilogue()
		}
		fmt.Fprintf(g.out, "%s ENDP\n", procName(q.Result))
		g.fn = ""
		g.out = &g.start

	case q.Op == quad.Param:
		g.load("AX", q.Arg1)
		g.line("PUSH AX")

	case q.Op == quad.Call:
		for _, r := range savedRegisters {
			g.line("PUSH %s", r)
		}
		g.line("CALL %s", procName(q.Arg1))
		g.line("MOV DI, AX")
		for i := len(savedRegisters) - 1; i >= 0; i-- {
			g.line("POP %s", savedRegisters[i])
		}
		if n, _ := strconv.Atoi(q.Arg2); n > 0 {
			g.line("ADD SP, %d", 2*n)
		}
		if q.Result != quad.Empty {
			g.store(q.Result, "DI")
		}

	case q.Op == quad.Return:
		if q.Arg1 != quad.Empty {
			g.load("AX", q.Arg1)
		}
		g.epilogue()

	case q.Op == quad.VarDecl, q.Op == quad.ArrayDecl:
		// storage only
	}
}
