// Package reader recovers the type information embedded in a compiled and
// linked shared object.
package reader

import (
	"encoding/json"

	"github.com/coreos/pkg/dlopen"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/quadc/llvmgen"
)

import "C"

func ReadTypeInfo(from string) (t llvmgen.TypeInfo, err error) {
	handle, err := dlopen.GetHandle([]string{from})
	if err != nil {
		return t, tracerr.Wrap(err)
	}
	defer handle.Close()

	sym, err := handle.GetSymbolPointer(llvmgen.TypeInfoName)
	if err != nil {
		return t, tracerr.Wrap(err)
	}

	err = json.Unmarshal([]byte(C.GoString((*C.char)(sym))), &t)
	return t, err
}
