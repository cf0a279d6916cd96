package compiler

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/llir/llvm/ir"
	"github.com/ztrue/tracerr"

	"github.com/pontaoski/quadc/asmgen"
	"github.com/pontaoski/quadc/irgen"
	"github.com/pontaoski/quadc/lexer"
	"github.com/pontaoski/quadc/llvmgen"
	"github.com/pontaoski/quadc/parser"
	"github.com/pontaoski/quadc/quad"
	"github.com/pontaoski/quadc/symtab"
	"github.com/pontaoski/quadc/types"
)

var plog = capnslog.NewPackageLogger("github.com/pontaoski/quadc", "compiler")

type Options struct {
	Fold bool
	CSE  bool
	// LLVM also lowers the program to an LLVM module.
	LLVM bool
}

var DefaultOptions = Options{Fold: true, CSE: true}

// Result holds everything a compilation produced. When Compile fails the
// Result is still returned with the stages that succeeded filled in.
type Result struct {
	Source string

	Tokens        []types.Token
	Offsets       types.Offsets
	TokenSequence string
	Tables        lexer.Tables
	Diagnostics   []lexer.Diagnostic

	Quadruples []quad.Quadruple
	Symbols    *symtab.Table

	Assembly string
	LLVM     *ir.Module
}

func (r *Result) QuadrupleText() string {
	return quad.Render(r.Quadruples)
}

func (r *Result) SymbolText() string {
	if r.Symbols == nil {
		return ""
	}
	return r.Symbols.String()
}

// Compile runs the whole pipeline over source. Each call has its own lexer,
// parser and generator, so concurrent calls do not interact.
func Compile(source string, opts Options) (*Result, error) {
	r := &Result{Source: source}

	stream, err := lexer.Analyze(source)
	if err != nil {
		return r, r.fail(err)
	}
	r.Tokens = stream.Tokens
	r.Offsets = stream.Offsets
	r.Diagnostics = stream.Diagnostics
	r.TokenSequence, r.Tables = lexer.Standardize(stream.Tokens)

	p := parser.New(stream, irgen.Options{Fold: opts.Fold, CSE: opts.CSE})
	err = p.ParseProgram()
	r.Quadruples = p.Quadruples()
	if err != nil {
		return r, r.fail(err)
	}
	r.Symbols = symtab.Build(r.Quadruples)

	r.Assembly, err = asmgen.Generate(r.Quadruples)
	if err != nil {
		return r, r.fail(err)
	}

	if opts.LLVM {
		r.LLVM, err = llvmgen.Generate(r.Quadruples)
		if err != nil {
			return r, r.fail(err)
		}
	}

	plog.Debugf("compiled %d bytes into %d quadruples", len(source), len(r.Quadruples))
	return r, nil
}

func (r *Result) fail(err error) error {
	return tracerr.Wrap(newFailure(r.Source, r.Offsets, err))
}
