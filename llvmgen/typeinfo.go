package llvmgen

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
)

// TypeInfoName is the global holding the JSON encoded TypeInfo.
const TypeInfoName = "__quadc_types"

// TypeInfo is embedded in every module so tools can recover function
// signatures without the source.
type TypeInfo struct {
	Functions map[string]string `json:"functions"`
}

func registerTypeInfoWithModule(t TypeInfo, m *ir.Module) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	g := m.NewGlobalDef(TypeInfoName, constant.NewCharArray(append(data, 0)))
	g.Immutable = true
	return nil
}

func ReadTypeInfo(m *ir.Module) (t TypeInfo, err error) {
	for _, g := range m.Globals {
		if g.Name() != TypeInfoName {
			continue
		}
		arr, ok := g.Init.(*constant.CharArray)
		if !ok {
			return TypeInfo{}, fmt.Errorf("%s is not a character array", TypeInfoName)
		}

		err = json.Unmarshal(bytes.TrimRight(arr.X, "\x00"), &t)
		return
	}

	return TypeInfo{}, fmt.Errorf("module has no %s", TypeInfoName)
}
