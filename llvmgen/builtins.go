package llvmgen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// EntryName is the symbol a linker should use as the program entry.
const EntryName = "_quadc_main"

func getArrayElm(b *ir.Block, size int, v value.Value, idx value.Value) value.Value {
	return b.NewGetElementPtr(arrayOf(size), v, constant.NewInt(types.I32, 0), idx)
}

// addExit ends the process with the low 32 bits of code as its status.
func addExit(b *ir.Block, code value.Value) {
	asm := ir.NewInlineAsm(
		types.NewPointer(types.NewFunc(types.Void, Exit)),
		`movq $$0x3C, %rax; movq $0, %rdi; syscall`,
		`r`,
	)
	asm.SideEffect = true

	b.NewCall(asm, b.NewSExt(code, Exit))
	b.NewUnreachable()
}

// finishEntry calls main from the entry block and exits with its result.
func finishEntry(b *ir.Block, main *ir.Func) {
	ret := b.NewCall(main)
	if types.IsVoid(main.Sig.RetType) {
		addExit(b, constant.NewInt(types.I32, 0))
		return
	}
	addExit(b, ret)
}
