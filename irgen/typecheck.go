package irgen

import (
	"github.com/pontaoski/quadc/ast"
	"github.com/pontaoski/quadc/errors"
)

// ExprType infers the type of e without generating code.
func (g *Generator) ExprType(e ast.Expression) (Type, error) {
	switch expr := e.(type) {
	case ast.Number:
		return Int, nil
	case ast.Char:
		return Char, nil
	case ast.Str:
		return String, nil
	case ast.Var:
		sym, ok := g.lookup(string(expr))
		if !ok {
			return Type{}, errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", string(expr))
		}
		return sym.Type, nil
	case ast.ArrayAccess:
		sym, ok := g.lookup(expr.Name)
		if !ok {
			return Type{}, errors.NewSemantic(errors.UndeclaredVariable, "%s is not declared", expr.Name)
		}
		if sym.Kind != KindArray {
			return Type{}, errors.NewSemantic(errors.NotAnArray, "%s is not an array", expr.Name)
		}
		it, err := g.ExprType(expr.Index)
		if err != nil {
			return Type{}, err
		}
		if !IsTypeCompatible(Int, it) {
			return Type{}, errors.NewSemantic(errors.TypeMismatch, "index of %s must be int, not %s", expr.Name, it)
		}
		return sym.Type.Elem(), nil
	case ast.Call:
		sig, ok := g.funcs[expr.Function]
		if !ok {
			return Type{}, errors.NewSemantic(errors.UndeclaredFunction, "function %s is not declared", expr.Function)
		}
		return sig.ReturnType, nil
	case ast.BinaryOp:
		lt, err := g.ExprType(expr.Left)
		if err != nil {
			return Type{}, err
		}
		rt, err := g.ExprType(expr.Right)
		if err != nil {
			return Type{}, err
		}
		if lt != rt {
			return Type{}, errors.NewSemantic(errors.TypeMismatch, "operands of %s have different types %s and %s", expr.Op, lt, rt)
		}
		if lt.Array || lt == String || lt == Void {
			return Type{}, errors.NewSemantic(errors.TypeMismatch, "operator %s is not defined on %s", expr.Op, lt)
		}
		return lt, nil
	}

	panic("unhandled")
}
