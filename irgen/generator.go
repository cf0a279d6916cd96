package irgen

import (
	"strconv"

	"github.com/coreos/pkg/capnslog"

	"github.com/pontaoski/quadc/ast"
	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/quad"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "irgen")

type Options struct {
	Fold bool
	CSE  bool
}

var DefaultOptions = Options{Fold: true, CSE: true}

type cseKey struct {
	op         quad.Op
	arg1, arg2 string
}

// Generator lowers statements to quadruples. A Generator carries all of the
// state of one compilation and must not be shared between compilations.
type Generator struct {
	opts   Options
	quads  []quad.Quadruple
	tempID int
	cse    map[cseKey]string

	global  *scope
	scopes  map[string]*scope
	current *scope

	funcs       map[string]*Signature
	returned    map[string]bool
	currentFunc string
}

func NewGenerator(opts Options) *Generator {
	return &Generator{
		opts:     opts,
		cse:      make(map[cseKey]string),
		global:   newScope(GlobalScope),
		scopes:   make(map[string]*scope),
		funcs:    make(map[string]*Signature),
		returned: make(map[string]bool),
	}
}

// Quadruples returns the program generated so far.
func (g *Generator) Quadruples() []quad.Quadruple {
	return append([]quad.Quadruple(nil), g.quads...)
}

func (g *Generator) Signature(name string) (*Signature, bool) {
	sig, ok := g.funcs[name]
	return sig, ok
}

func (g *Generator) emit(op quad.Op, arg1, arg2, result string) {
	g.quads = append(g.quads, quad.New(op, arg1, arg2, result))
}

func (g *Generator) newTemp() string {
	t := quad.Temp(g.tempID)
	g.tempID++
	return t
}

// resetCSE forgets every cached subexpression. Called wherever control may
// enter or leave a straight-line region.
func (g *Generator) resetCSE() {
	if len(g.cse) > 0 {
		g.cse = make(map[cseKey]string)
	}
}

// invalidate drops cached subexpressions that read name.
func (g *Generator) invalidate(name string) {
	for key := range g.cse {
		if key.arg1 == name || key.arg2 == name {
			delete(g.cse, key)
		}
	}
}

func (g *Generator) DeclareVariable(typ string, name string) error {
	t, ok := ParseType(typ)
	if !ok || t == Void {
		return errors.NewSemantic(errors.InvalidType, "variable %s cannot have type %s", name, typ)
	}
	if quad.IsTemp(name) {
		return errors.NewSemantic(errors.ReservedName, "%s is reserved for compiler temporaries", name)
	}

	sc := g.active()
	if _, ok := sc.names[name]; ok {
		return errors.NewSemantic(errors.DuplicateDeclaration, "%s is already declared in %s scope", name, sc.name)
	}
	if _, ok := g.funcs[name]; ok {
		return errors.NewSemantic(errors.DuplicateDeclaration, "%s is already declared as a function", name)
	}

	sc.names[name] = &symbol{Type: t, Kind: KindVariable}
	g.emit(quad.VarDecl, typ, "", name)
	return nil
}

// DeclareArray turns the variable just declared as name into an array of size
// elements.
func (g *Generator) DeclareArray(name string, size int) error {
	sym, ok := g.active().names[name]
	if !ok {
		return errors.NewSemantic(errors.UndeclaredVariable, "array %s has no declaration", name)
	}
	if size <= 0 {
		return errors.NewSemantic(errors.InvalidType, "array %s must have a positive size, not %d", name, size)
	}

	sym.Kind = KindArray
	sym.Type = ArrayOf(sym.Type)
	sym.Size = size
	g.emit(quad.ArrayDecl, name, strconv.Itoa(size), "")
	return nil
}

// GenerateExpr lowers e and returns the operand holding its value.
func (g *Generator) GenerateExpr(e ast.Expression) (string, error) {
	switch expr := e.(type) {
	case ast.Number:
		return strconv.Itoa(int(expr)), nil
	case ast.Char:
		return "'" + string(expr) + "'", nil
	case ast.Str:
		return `"` + string(expr) + `"`, nil
	case ast.Var:
		if _, ok := g.lookup(string(expr)); !ok {
			return "", errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", string(expr))
		}
		return string(expr), nil
	case ast.ArrayAccess:
		return g.arrayAccess(expr)
	case ast.Call:
		dest, err := g.GenerateFunctionCall(expr)
		if err != nil {
			return "", err
		}
		if dest == "" {
			return "", errors.NewSemantic(errors.TypeMismatch, "void function %s used as a value", expr.Function)
		}
		return dest, nil
	case ast.BinaryOp:
		return g.binaryOp(expr)
	}

	panic("unhandled")
}

func (g *Generator) arrayAccess(expr ast.ArrayAccess) (string, error) {
	sym, ok := g.lookup(expr.Name)
	if !ok {
		return "", errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", expr.Name)
	}
	if sym.Kind != KindArray {
		return "", errors.NewSemantic(errors.NotAnArray, "%s is not an array", expr.Name)
	}

	index, err := g.GenerateExpr(expr.Index)
	if err != nil {
		return "", err
	}
	temp := g.newTemp()
	g.emit(quad.Assign, quad.Element(expr.Name, index), "", temp)
	return temp, nil
}

func (g *Generator) binaryOp(expr ast.BinaryOp) (string, error) {
	op, ok := quad.ParseOp(expr.Op)
	if !ok || !op.IsArithmetic() {
		return "", errors.NewSemantic(errors.TypeMismatch, "unknown arithmetic operator %s", expr.Op)
	}

	left, err := g.GenerateExpr(expr.Left)
	if err != nil {
		return "", err
	}
	right, err := g.GenerateExpr(expr.Right)
	if err != nil {
		return "", err
	}

	key := cseKey{op, left, right}
	if g.opts.CSE {
		if temp, ok := g.cse[key]; ok {
			return temp, nil
		}
	}

	if g.opts.Fold && quad.IsInt(left) && quad.IsInt(right) {
		folded, err := Fold(op, left, right)
		if err != nil {
			return "", err
		}
		return folded, nil
	}

	temp := g.newTemp()
	g.emit(op, left, right, temp)
	if g.opts.CSE {
		g.cse[key] = temp
	}
	return temp, nil
}

// Fold evaluates an arithmetic op over two integer literals with 32-bit
// wrapping semantics; division truncates toward zero.
func Fold(op quad.Op, left, right string) (string, error) {
	a, err := strconv.ParseInt(left, 10, 32)
	if err != nil {
		return "", err
	}
	b, err := strconv.ParseInt(right, 10, 32)
	if err != nil {
		return "", err
	}
	x, y := int32(a), int32(b)

	var r int32
	switch op {
	case quad.Add:
		r = x + y
	case quad.Sub:
		r = x - y
	case quad.Mul:
		r = x * y
	case quad.Div:
		if y == 0 {
			return "", errors.NewSemantic(errors.DivisionByZero, "%s / %s divides by zero", left, right)
		}
		r = x / y
	default:
		panic("unhandled")
	}
	return strconv.Itoa(int(r)), nil
}

func (g *Generator) Assign(name string, e ast.Expression) error {
	sym, ok := g.lookup(name)
	if !ok {
		return errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", name)
	}
	if sym.Kind == KindArray {
		return errors.NewSemantic(errors.TypeMismatch, "array %s cannot be assigned as a whole", name)
	}

	t, err := g.ExprType(e)
	if err != nil {
		return err
	}
	if !IsTypeCompatible(sym.Type, t) {
		return errors.NewSemantic(errors.TypeMismatch, "cannot assign %s of type %s to %s of type %s", ast.String(e), t, name, sym.Type)
	}

	value, err := g.GenerateExpr(e)
	if err != nil {
		return err
	}
	g.emit(quad.Assign, value, "", name)
	g.invalidate(name)
	return nil
}

func (g *Generator) AssignArray(name string, index ast.Expression, e ast.Expression) error {
	sym, ok := g.lookup(name)
	if !ok {
		return errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", name)
	}
	if sym.Kind != KindArray {
		return errors.NewSemantic(errors.NotAnArray, "%s is not an array", name)
	}

	it, err := g.ExprType(index)
	if err != nil {
		return err
	}
	if !IsTypeCompatible(Int, it) {
		return errors.NewSemantic(errors.TypeMismatch, "index of %s must be int, not %s", name, it)
	}
	t, err := g.ExprType(e)
	if err != nil {
		return err
	}
	if !IsTypeCompatible(sym.Type.Elem(), t) {
		return errors.NewSemantic(errors.TypeMismatch, "cannot assign %s to element of %s of type %s", t, name, sym.Type)
	}

	idx, err := g.GenerateExpr(index)
	if err != nil {
		return err
	}
	value, err := g.GenerateExpr(e)
	if err != nil {
		return err
	}
	g.emit(quad.Assign, value, "", quad.Element(name, idx))
	return nil
}

// IfFalse emits a jump to label taken when cond does not hold.
func (g *Generator) IfFalse(cond ast.Condition, label string) error {
	op, ok := quad.ParseOp(cond.Op)
	if !ok || !op.IsComparison() {
		return errors.NewSemantic(errors.TypeMismatch, "unknown comparison operator %s", cond.Op)
	}

	lt, err := g.ExprType(cond.Left)
	if err != nil {
		return err
	}
	rt, err := g.ExprType(cond.Right)
	if err != nil {
		return err
	}
	if lt.Array || rt.Array || !canCompare(lt, rt) {
		return errors.NewSemantic(errors.TypeMismatch, "cannot compare %s with %s in %s", lt, rt, cond)
	}

	left, err := g.GenerateExpr(cond.Left)
	if err != nil {
		return err
	}
	right, err := g.GenerateExpr(cond.Right)
	if err != nil {
		return err
	}

	temp := g.newTemp()
	g.emit(op, left, right, temp)
	g.emit(quad.IfFalse, temp, "", label)
	g.resetCSE()
	return nil
}

func (g *Generator) Goto(label string) {
	g.emit(quad.Goto, "", "", label)
	g.resetCSE()
}

func (g *Generator) EmitLabel(label string) {
	g.emit(quad.Label, "", "", label)
	g.resetCSE()
}

func (g *Generator) EmitElse()       { g.marker(quad.ElseStart) }
func (g *Generator) EmitIfEnd()      { g.marker(quad.IfEnd) }
func (g *Generator) EmitWhileStart() { g.marker(quad.WhileStart) }
func (g *Generator) EmitWhileEnd()   { g.marker(quad.WhileEnd) }

func (g *Generator) marker(op quad.Op) {
	g.emit(op, "", "", "")
	g.resetCSE()
}

func (g *Generator) EmitFuncLabel(name string) error {
	if _, ok := g.funcs[name]; ok {
		return errors.NewSemantic(errors.DuplicateDeclaration, "function %s is already defined", name)
	}
	if _, ok := g.global.names[name]; ok {
		return errors.NewSemantic(errors.DuplicateDeclaration, "%s is already declared as a variable", name)
	}

	g.emit(quad.FuncStart, "", "", name)
	g.resetCSE()
	return nil
}

// EmitFuncParam registers the signature of name and opens its scope.
func (g *Generator) EmitFuncParam(returnType string, name string, params []Param) error {
	ret, ok := ParseType(returnType)
	if !ok {
		return errors.NewSemantic(errors.InvalidType, "function %s has unknown return type %s", name, returnType)
	}

	sig := &Signature{ReturnType: ret}
	sc := newScope(name)
	for _, p := range params {
		t, ok := ParseType(p.Type)
		if !ok || t == Void {
			return errors.NewSemantic(errors.InvalidType, "parameter %s of %s cannot have type %s", p.Name, name, p.Type)
		}
		if quad.IsTemp(p.Name) {
			return errors.NewSemantic(errors.ReservedName, "%s is reserved for compiler temporaries", p.Name)
		}
		if _, ok := sc.names[p.Name]; ok {
			return errors.NewSemantic(errors.DuplicateDeclaration, "parameter %s of %s is declared twice", p.Name, name)
		}
		if _, ok := g.funcs[p.Name]; ok || p.Name == name {
			return errors.NewSemantic(errors.DuplicateDeclaration, "parameter %s of %s is already declared as a function", p.Name, name)
		}
		sc.names[p.Name] = &symbol{Type: t, Kind: KindParameter}
		sig.ParamTypes = append(sig.ParamTypes, t)
		sig.ParamNames = append(sig.ParamNames, p.Name)
	}

	g.funcs[name] = sig
	g.scopes[name] = sc
	g.current = sc
	g.currentFunc = name

	g.emit(quad.FuncDef, returnType, strconv.Itoa(len(params)), name)
	for _, p := range params {
		g.emit(quad.ParamDecl, p.Type, "", p.Name)
	}
	return nil
}

func (g *Generator) EmitFuncEnd(name string) error {
	sig, ok := g.funcs[name]
	if !ok {
		return errors.NewSemantic(errors.UndeclaredFunction, "function %s was never opened", name)
	}
	if sig.ReturnType != Void && !g.returned[name] {
		return errors.NewSemantic(errors.MissingReturn, "function %s must return a value of type %s", name, sig.ReturnType)
	}

	g.emit(quad.FuncEnd, "", "", name)
	g.current = nil
	g.currentFunc = ""
	g.resetCSE()
	plog.Debugf("function %s closed at quadruple %d", name, len(g.quads))
	return nil
}

// GenerateFunctionCall lowers a call and returns the temp holding its result,
// or "" when the callee is void.
func (g *Generator) GenerateFunctionCall(call ast.Call) (string, error) {
	sig, ok := g.funcs[call.Function]
	if !ok {
		return "", errors.NewSemantic(errors.UndeclaredFunction, "function %s is not declared", call.Function)
	}
	if len(call.Arguments) != len(sig.ParamTypes) {
		return "", errors.NewSemantic(errors.ArityMismatch, "function %s takes %d arguments, got %d", call.Function, len(sig.ParamTypes), len(call.Arguments))
	}
	for i, arg := range call.Arguments {
		t, err := g.ExprType(arg)
		if err != nil {
			return "", err
		}
		if !IsTypeCompatible(sig.ParamTypes[i], t) {
			return "", errors.NewSemantic(errors.TypeMismatch, "argument %d of %s must be %s, not %s", i+1, call.Function, sig.ParamTypes[i], t)
		}
	}

	var args []string
	for _, arg := range call.Arguments {
		v, err := g.GenerateExpr(arg)
		if err != nil {
			return "", err
		}
		args = append(args, v)
	}
	for _, v := range args {
		g.emit(quad.Param, v, "", "")
	}

	dest := ""
	if sig.ReturnType != Void {
		dest = g.newTemp()
	}
	g.emit(quad.Call, call.Function, strconv.Itoa(len(args)), dest)
	g.resetCSE()
	return dest, nil
}

// ReturnStmt lowers a return; e is nil for a bare return.
func (g *Generator) ReturnStmt(e ast.Expression) error {
	if g.currentFunc == "" {
		return errors.NewSemantic(errors.InvalidReturn, "return outside of a function")
	}
	name := g.currentFunc
	sig := g.funcs[name]

	if e == nil {
		if sig.ReturnType != Void {
			return errors.NewSemantic(errors.InvalidReturn, "function %s must return a value of type %s", name, sig.ReturnType)
		}
		g.emit(quad.Return, "", "", "")
		g.returned[name] = true
		g.resetCSE()
		return nil
	}

	if sig.ReturnType == Void {
		return errors.NewSemantic(errors.InvalidReturn, "void function %s cannot return a value", name)
	}
	t, err := g.ExprType(e)
	if err != nil {
		return err
	}
	if !IsTypeCompatible(sig.ReturnType, t) {
		return errors.NewSemantic(errors.TypeMismatch, "function %s returns %s, not %s", name, sig.ReturnType, t)
	}

	value, err := g.GenerateExpr(e)
	if err != nil {
		return err
	}
	g.emit(quad.Return, value, "", "")
	g.returned[name] = true
	g.resetCSE()
	return nil
}
