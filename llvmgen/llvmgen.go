package llvmgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/pkg/capnslog"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/quad"
	"github.com/pontaoski/quadc/symtab"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "llvmgen")

// frame is the function being filled in: either a user function or the
// entry function that runs the global statements.
type frame struct {
	name   string
	fn     *ir.Func
	cur    *ir.Block
	labels map[string]*ir.Block
	params int
	args   []value.Value
}

func newFrame(name string, fn *ir.Func, entry string) *frame {
	f := &frame{
		name:   name,
		fn:     fn,
		labels: make(map[string]*ir.Block),
	}
	f.cur = fn.NewBlock(entry)
	return f
}

func (f *frame) block(label string) *ir.Block {
	if blk, ok := f.labels[label]; ok {
		return blk
	}
	blk := ir.NewBlock(label)
	f.labels[label] = blk
	return blk
}

// place appends blk to the function and continues emission there.
func (f *frame) place(blk *ir.Block) {
	blk.Parent = f.fn
	f.fn.Blocks = append(f.fn.Blocks, blk)
	f.cur = blk
}

// startDead continues in a fresh block after a jump or return. Nothing
// branches to it; it only exists to hold unreachable quadruples.
func (f *frame) startDead() {
	f.place(ir.NewBlock(""))
}

type ctx struct {
	m     *ir.Module
	table *symtab.Table

	globals map[string]*ir.Global
	strs    map[string]*ir.Global
	funcs   map[string]*ir.Func

	entry *frame
	f     *frame
}

// Generate lowers a quadruple program to an LLVM module.
func Generate(qs []quad.Quadruple) (*ir.Module, error) {
	c := &ctx{
		m:       ir.NewModule(),
		table:   symtab.Build(qs),
		globals: make(map[string]*ir.Global),
		strs:    make(map[string]*ir.Global),
		funcs:   make(map[string]*ir.Func),
	}

	info, err := c.declareFunctions(qs)
	if err != nil {
		return nil, err
	}
	main, ok := c.funcs["main"]
	if !ok {
		return nil, errors.NewSemantic(errors.MissingMain, "program has no main function")
	}

	c.entry = newFrame("", c.m.NewFunc(EntryName, types.Void), "_entry")
	c.f = c.entry

	for _, q := range qs {
		if err := c.lower(q); err != nil {
			return nil, err
		}
	}

	finishEntry(c.entry.cur, main)
	if err := registerTypeInfoWithModule(info, c.m); err != nil {
		return nil, err
	}

	plog.Debugf("lowered %d quadruples into %d functions", len(qs), len(c.m.Funcs))
	return c.m, nil
}

// declareFunctions creates every function up front so calls can refer to
// functions defined later in the program.
func (c *ctx) declareFunctions(qs []quad.Quadruple) (TypeInfo, error) {
	info := TypeInfo{Functions: make(map[string]string)}

	for i, q := range qs {
		if q.Op != quad.FuncDef {
			continue
		}
		n, err := strconv.Atoi(q.Arg2)
		if err != nil {
			return info, fmt.Errorf("function %s has a malformed parameter count %q", q.Result, q.Arg2)
		}

		var params []*ir.Param
		var names []string
		for _, pd := range qs[i+1:] {
			if pd.Op != quad.ParamDecl || len(params) == n {
				break
			}
			params = append(params, ir.NewParam(pd.Result, Word))
			names = append(names, pd.Arg1)
		}
		if len(params) != n {
			return info, fmt.Errorf("function %s declares %d parameters but lists %d", q.Result, n, len(params))
		}

		c.funcs[q.Result] = c.m.NewFunc(q.Result, returnType(q.Arg1), params...)
		info.Functions[q.Result] = fmt.Sprintf("%s(%s)", q.Arg1, strings.Join(names, ","))
	}

	return info, nil
}

func (c *ctx) globalName(name string) string {
	if c.f.name != "" {
		if sym, ok := c.table.Lookup(c.f.name, name); ok && sym.Scope != symtab.Global {
			return "v." + c.f.name + "." + name
		}
	}
	return "v." + name
}

func (c *ctx) scalar(name string) *ir.Global {
	gname := c.globalName(name)
	if g, ok := c.globals[gname]; ok {
		return g
	}
	g := c.m.NewGlobalDef(gname, constant.NewInt(Word, 0))
	c.globals[gname] = g
	return g
}

func (c *ctx) array(name string) (*ir.Global, int, error) {
	sym, ok := c.table.Resolve(c.f.name, name)
	if !ok || sym.Kind != symtab.Array {
		return nil, 0, errors.NewSemantic(errors.NotAnArray, "%s is not an array", name)
	}
	gname := c.globalName(name)
	if g, ok := c.globals[gname]; ok {
		return g, sym.Size, nil
	}
	g := c.m.NewGlobalDef(gname, constant.NewZeroInitializer(arrayOf(sym.Size)))
	c.globals[gname] = g
	return g, sym.Size, nil
}

func (c *ctx) str(lit string) *ir.Global {
	if g, ok := c.strs[lit]; ok {
		return g
	}
	body := lit[1 : len(lit)-1]
	g := c.m.NewGlobalDef("str."+strconv.Itoa(len(c.strs)), constant.NewCharArray(append([]byte(body), 0)))
	g.Immutable = true
	g.Linkage = enum.LinkagePrivate
	c.strs[lit] = g
	return g
}

func (c *ctx) element(s string) (value.Value, bool, error) {
	name, index, ok := quad.SplitElement(s)
	if !ok {
		return nil, false, nil
	}
	g, size, err := c.array(name)
	if err != nil {
		return nil, true, err
	}
	idx, err := c.value(index)
	if err != nil {
		return nil, true, err
	}
	return getArrayElm(c.f.cur, size, g, idx), true, nil
}

// value produces the i32 value of operand s in the current block.
func (c *ctx) value(s string) (value.Value, error) {
	b := c.f.cur
	switch {
	case quad.IsInt(s):
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, err
		}
		return constant.NewInt(Word, n), nil
	case quad.IsChar(s):
		return constant.NewInt(Word, int64(quad.CharValue(s))), nil
	case quad.IsString(s):
		return b.NewPtrToInt(c.str(s), Word), nil
	}

	ptr, isElement, err := c.element(s)
	if err != nil {
		return nil, err
	}
	if !isElement {
		ptr = c.scalar(s)
	}
	return b.NewLoad(Word, ptr), nil
}

func (c *ctx) store(s string, v value.Value) error {
	ptr, isElement, err := c.element(s)
	if err != nil {
		return err
	}
	if !isElement {
		ptr = c.scalar(s)
	}
	c.f.cur.NewStore(v, ptr)
	return nil
}

func (c *ctx) binary(q quad.Quadruple) error {
	x, err := c.value(q.Arg1)
	if err != nil {
		return err
	}
	y, err := c.value(q.Arg2)
	if err != nil {
		return err
	}

	b := c.f.cur
	var r value.Value
	switch q.Op {
	case quad.Add:
		r = b.NewAdd(x, y)
	case quad.Sub:
		r = b.NewSub(x, y)
	case quad.Mul:
		r = b.NewMul(x, y)
	case quad.Div:
		r = b.NewSDiv(x, y)
	default:
		r = b.NewZExt(b.NewICmp(predicates[q.Op], x, y), Word)
	}
	return c.store(q.Result, r)
}

// finish terminates the last block of a user function. Falling off the end
// of a non-void function yields 0.
func (c *ctx) finish() {
	if c.f.cur.Term != nil {
		return
	}
	if types.IsVoid(c.f.fn.Sig.RetType) {
		c.f.cur.NewRet(nil)
		return
	}
	c.f.cur.NewRet(constant.NewInt(Word, 0))
}

func (c *ctx) lower(q quad.Quadruple) error {
	switch {
	case q.Op == quad.Assign:
		v, err := c.value(q.Arg1)
		if err != nil {
			return err
		}
		return c.store(q.Result, v)

	case q.Op.IsArithmetic(), q.Op.IsComparison():
		return c.binary(q)

	case q.Op == quad.IfFalse:
		v, err := c.value(q.Arg1)
		if err != nil {
			return err
		}
		cond := c.f.cur.NewICmp(enum.IPredEQ, v, constant.NewInt(Word, 0))
		next := ir.NewBlock("")
		c.f.cur.NewCondBr(cond, c.f.block(q.Result), next)
		c.f.place(next)

	case q.Op == quad.Goto:
		c.f.cur.NewBr(c.f.block(q.Result))
		c.f.startDead()

	case q.Op == quad.Label:
		blk := c.f.block(q.Result)
		if c.f.cur.Term == nil {
			c.f.cur.NewBr(blk)
		}
		c.f.place(blk)

	case q.Op.IsMarker():
		// structure only

	case q.Op == quad.FuncStart:
		fn, ok := c.funcs[q.Result]
		if !ok {
			return errors.NewSemantic(errors.UndeclaredFunction, "function %s has no definition", q.Result)
		}
		c.f = newFrame(q.Result, fn, "entry")

	case q.Op == quad.ParamDecl:
		if c.f.params >= len(c.f.fn.Params) {
			return fmt.Errorf("too many parameters for %s", c.f.name)
		}
		p := c.f.fn.Params[c.f.params]
		c.f.params++
		return c.store(q.Result, p)

	case q.Op == quad.FuncEnd:
		c.finish()
		c.f = c.entry

	case q.Op == quad.Param:
		v, err := c.value(q.Arg1)
		if err != nil {
			return err
		}
		c.f.args = append(c.f.args, v)

	case q.Op == quad.Call:
		fn, ok := c.funcs[q.Arg1]
		if !ok {
			return errors.NewSemantic(errors.UndeclaredFunction, "function %s is not declared", q.Arg1)
		}
		n, _ := strconv.Atoi(q.Arg2)
		if n > len(c.f.args) {
			return fmt.Errorf("call to %s expects %d pushed arguments, have %d", q.Arg1, n, len(c.f.args))
		}
		// copied: later params append into the same backing array
		args := append([]value.Value(nil), c.f.args[len(c.f.args)-n:]...)
		c.f.args = c.f.args[:len(c.f.args)-n]

		call := c.f.cur.NewCall(fn, args...)
		if q.Result != quad.Empty {
			return c.store(q.Result, call)
		}

	case q.Op == quad.Return:
		if q.Arg1 == quad.Empty {
			c.f.cur.NewRet(nil)
		} else {
			v, err := c.value(q.Arg1)
			if err != nil {
				return err
			}
			c.f.cur.NewRet(v)
		}
		c.f.startDead()

	case q.Op == quad.VarDecl:
		if sym, ok := c.table.Resolve(c.f.name, q.Result); ok && sym.Kind == symtab.Array {
			return nil
		}
		c.scalar(q.Result)

	case q.Op == quad.ArrayDecl:
		_, _, err := c.array(q.Arg1)
		return err
	}

	return nil
}
