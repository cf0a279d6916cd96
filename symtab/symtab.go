package symtab

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/pkg/capnslog"

	"github.com/pontaoski/quadc/quad"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "symtab")

const Global = "global"

type Kind int

const (
	Variable Kind = iota
	Parameter
	Array
	Function
)

func (k Kind) String() string {
	switch k {
	case Variable:
		return "variable"
	case Parameter:
		return "parameter"
	case Array:
		return "array"
	case Function:
		return "function"
	}
	return "unknown"
}

// Symbol describes one declared name. For arrays Type is the element type.
type Symbol struct {
	Name  string
	Type  string
	Kind  Kind
	Scope string
	Size  int
}

func (s Symbol) String() string {
	if s.Kind == Array {
		return fmt.Sprintf("%-15s | %-10s | %-10s | %-10s | %d", s.Name, s.Type, s.Kind, s.Scope, s.Size)
	}
	return fmt.Sprintf("%-15s | %-10s | %-10s | %-10s", s.Name, s.Type, s.Kind, s.Scope)
}

type scopedName struct {
	scope, name string
}

// Table is the symbol table of one quadruple program. Scopes and the
// symbols inside them keep the order in which they were declared.
type Table struct {
	scopes  []string
	symbols map[string][]*Symbol
	index   map[scopedName]*Symbol
}

func newTable() *Table {
	return &Table{
		scopes:  []string{Global},
		symbols: make(map[string][]*Symbol),
		index:   make(map[scopedName]*Symbol),
	}
}

func (t *Table) add(sym Symbol) {
	key := scopedName{sym.Scope, sym.Name}
	if existing, ok := t.index[key]; ok {
		*existing = sym
		return
	}
	if _, ok := t.symbols[sym.Scope]; !ok && sym.Scope != Global {
		t.scopes = append(t.scopes, sym.Scope)
	}
	s := &sym
	t.symbols[sym.Scope] = append(t.symbols[sym.Scope], s)
	t.index[key] = s
}

// Build derives the symbol table from a quadruple list. It does not need
// the generator that produced the list, so it also works on parsed IR.
func Build(qs []quad.Quadruple) *Table {
	declared := make(map[scopedName]string)

	scope := Global
	for _, q := range qs {
		switch q.Op {
		case quad.FuncStart:
			scope = q.Result
		case quad.FuncEnd:
			scope = Global
		case quad.FuncDef:
			declared[scopedName{Global, q.Result}] = q.Arg1
		case quad.VarDecl, quad.ParamDecl:
			if q.Arg1 != quad.Empty {
				declared[scopedName{scope, q.Result}] = q.Arg1
			}
		}
	}

	t := newTable()
	scope = Global
	for _, q := range qs {
		switch q.Op {
		case quad.FuncStart:
			scope = q.Result
		case quad.FuncEnd:
			scope = Global
		case quad.FuncDef:
			t.add(Symbol{Name: q.Result, Type: q.Arg1, Kind: Function, Scope: Global})
			if _, ok := t.symbols[q.Result]; !ok {
				t.scopes = append(t.scopes, q.Result)
				t.symbols[q.Result] = nil
			}
		case quad.ParamDecl:
			t.add(Symbol{Name: q.Result, Type: t.infer(qs, declared, scope, q.Result), Kind: Parameter, Scope: scope})
		case quad.VarDecl:
			t.add(Symbol{Name: q.Result, Type: t.infer(qs, declared, scope, q.Result), Kind: Variable, Scope: scope})
		case quad.ArrayDecl:
			size, _ := strconv.Atoi(q.Arg2)
			t.add(Symbol{Name: q.Arg1, Type: t.infer(qs, declared, scope, q.Arg1), Kind: Array, Scope: scope, Size: size})
		}
	}

	plog.Debugf("built symbol table with %d scopes", len(t.scopes))
	return t
}

// infer returns the declared type of name, falling back to the first
// assignment that gives it a recognisable value, then to int.
func (t *Table) infer(qs []quad.Quadruple, declared map[scopedName]string, scope, name string) string {
	if typ, ok := declared[scopedName{scope, name}]; ok {
		return typ
	}

	inScope := Global
	for _, q := range qs {
		switch q.Op {
		case quad.FuncStart:
			inScope = q.Result
		case quad.FuncEnd:
			inScope = Global
		}
		if q.Op != quad.Assign || inScope != scope || q.Result != name {
			continue
		}

		switch v := q.Arg1; {
		case quad.IsChar(v):
			return "char"
		case quad.IsString(v):
			return "string"
		case quad.IsInt(v):
			return "int"
		default:
			if typ, ok := declared[scopedName{scope, v}]; ok {
				return typ
			}
			if sym, ok := t.Resolve(scope, v); ok && sym.Kind != Function {
				return sym.Type
			}
		}
	}
	return "int"
}

// Lookup finds name declared directly in scope.
func (t *Table) Lookup(scope, name string) (Symbol, bool) {
	sym, ok := t.index[scopedName{scope, name}]
	if !ok {
		return Symbol{}, false
	}
	return *sym, true
}

// Resolve finds name as seen from inside scope: the scope's own
// declarations first, then globals.
func (t *Table) Resolve(scope, name string) (Symbol, bool) {
	if sym, ok := t.Lookup(scope, name); ok {
		return sym, true
	}
	return t.Lookup(Global, name)
}

// Scopes lists the global scope followed by every function, in order of
// appearance.
func (t *Table) Scopes() []string {
	return append([]string(nil), t.scopes...)
}

func (t *Table) Symbols(scope string) []Symbol {
	var ret []Symbol
	for _, s := range t.symbols[scope] {
		ret = append(ret, *s)
	}
	return ret
}

func (t *Table) Arrays() []Symbol {
	var ret []Symbol
	for _, scope := range t.scopes {
		for _, s := range t.symbols[scope] {
			if s.Kind == Array {
				ret = append(ret, *s)
			}
		}
	}
	return ret
}

func (t *Table) String() string {
	var b strings.Builder

	b.WriteString("Symbol table:\n")
	fmt.Fprintf(&b, "%-15s | %-10s | %-10s | %-10s | %s\n", "Name", "Type", "Kind", "Scope", "Size")
	b.WriteString(strings.Repeat("-", 68) + "\n")

	for _, scope := range t.scopes {
		syms := t.symbols[scope]
		if len(syms) == 0 {
			continue
		}
		if scope == Global {
			b.WriteString("Global symbols:\n")
		} else {
			fmt.Fprintf(&b, "Function '%s' symbols:\n", scope)
		}
		for _, s := range syms {
			b.WriteString(s.String())
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	if arrays := t.Arrays(); len(arrays) > 0 {
		b.WriteString("Arrays:\n")
		fmt.Fprintf(&b, "%-15s | %-10s | %-10s\n", "Name", "Element", "Size")
		b.WriteString(strings.Repeat("-", 42) + "\n")
		for _, s := range arrays {
			fmt.Fprintf(&b, "%-15s | %-10s | %-10d\n", s.Name, s.Type, s.Size)
		}
	}

	return b.String()
}
