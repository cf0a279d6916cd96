// Command tool generates closed sum types for the ast package.
//
//	tool <input.sum> <output.go> <package>
//
// Each declaration is either a plain type or a list of variants:
//
//	type Kind = int64;
//	type Expression = | Number of int32 | Var of string;
//
// Every variant gets an is_<Name> marker method, so only the listed variants
// satisfy the interface.
package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/alecthomas/participle"

	. "github.com/dave/jennifer/jen"
)

type sumFile struct {
	Declarations []*declaration `@@*`
}

type variant struct {
	Name string `@Ident "of"`
	Kind string `(@Ident | @String | @RawString)`
}

type declaration struct {
	Name     string     `"type" @Ident "="`
	Plain    *string    `(  (@Ident | @String | @RawString)`
	Variants *[]variant ` | ("|" (@@))*)`
	End      struct{}   `";"`
}

func (s *sumFile) isSumType(name string) bool {
	for _, decl := range s.Declarations {
		if decl.Name == name && decl.Variants != nil {
			return true
		}
	}
	return false
}

func generate(source string, pkg string, s *sumFile) string {
	f := NewFile(pkg)
	f.HeaderComment(fmt.Sprintf("Code generated by quadc/tool from %s. DO NOT EDIT.", source))

	for _, decl := range s.Declarations {
		if decl.Plain != nil {
			f.Type().Id(decl.Name).Id(*decl.Plain)
			continue
		}
		if decl.Variants == nil {
			continue
		}

		marker := "is_" + decl.Name
		f.Type().Id(decl.Name).Interface(
			Id(marker).Params(),
		)
		for _, v := range *decl.Variants {
			if s.isSumType(v.Kind) {
				f.Type().Id(v.Name).Struct(Id(v.Kind))
			} else {
				f.Type().Id(v.Name).Id(v.Kind)
			}
			f.Func().Params(Id("v").Id(v.Name)).Id(marker).Params().Block()
		}
	}

	return fmt.Sprintf("%#v", f)
}

func run(in, out, pkg string) error {
	parser, err := participle.Build(&sumFile{})
	if err != nil {
		return err
	}

	data, err := ioutil.ReadFile(in)
	if err != nil {
		return err
	}

	decls := sumFile{}
	if err := parser.ParseBytes(data, &decls); err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}

	return ioutil.WriteFile(out, []byte(generate(filepath.Base(in), pkg, &decls)), 0644)
}

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintln(os.Stderr, "usage: tool <input.sum> <output.go> <package>")
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2], os.Args[3]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
