package compiler

import (
	stderrors "errors"
	"fmt"

	"github.com/ztrue/tracerr"

	"github.com/pontaoski/quadc/errors"
	"github.com/pontaoski/quadc/types"
)

const caret = "^^^^^^^^^^^^^^^^^^^^^^^^^^^^"

// Failure is a compilation error located in the source. Before and After
// split the source at Offset.
type Failure struct {
	Kind    errors.Kind
	Message string
	Offset  int
	Before  string
	After   string

	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Caret renders the source with a marker line at the failure.
func (f *Failure) Caret() string {
	return f.Before + "\n" + caret + "\n" + f.After
}

func newFailure(source string, offsets types.Offsets, err error) *Failure {
	f := &Failure{
		Message: err.Error(),
		Offset:  len(source),
		Err:     err,
	}

	var (
		lerr errors.LexicalError
		serr errors.SyntaxError
		merr *errors.SemanticError
	)
	switch {
	case stderrors.As(err, &lerr):
		f.Kind = errors.Lexical
		f.Offset = lerr.Offset
	case stderrors.As(err, &serr):
		f.Kind = errors.Syntax
		f.Offset = offsets.Of(serr.Found)
	case stderrors.As(err, &merr):
		f.Kind = errors.Semantic
		if merr.Token != nil {
			f.Offset = offsets.Of(*merr.Token)
		}
	default:
		f.Kind = errors.Semantic
	}

	if f.Offset < 0 {
		f.Offset = 0
	}
	if f.Offset > len(source) {
		f.Offset = len(source)
	}
	f.Before = source[:f.Offset]
	f.After = source[f.Offset:]
	return f
}

// AsFailure extracts the located failure from an error returned by Compile.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if stderrors.As(tracerr.Unwrap(err), &f) {
		return f, true
	}
	return nil, false
}
