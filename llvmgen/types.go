package llvmgen

import (
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"

	"github.com/pontaoski/quadc/quad"
)

// Word is the storage type of every int, char and string handle.
var Word = types.I32

// Exit is the argument type of the exit syscall.
var Exit = types.I64

func returnType(name string) types.Type {
	if name == "void" {
		return types.Void
	}
	return Word
}

func arrayOf(size int) *types.ArrayType {
	return types.NewArray(uint64(size), Word)
}

var predicates = map[quad.Op]enum.IPred{
	quad.Eq: enum.IPredEQ,
	quad.Ne: enum.IPredNE,
	quad.Lt: enum.IPredSLT,
	quad.Le: enum.IPredSLE,
	quad.Gt: enum.IPredSGT,
	quad.Ge: enum.IPredSGE,
}
