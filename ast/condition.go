package ast

//go:generate sh -c "cd ../tool && go run . ../ast/ast.sum ../ast/ast.go ast"

// Condition is a single comparison; conditions are not expressions.
type Condition struct {
	Op    string
	Left  Expression
	Right Expression
}

var CompareOps = map[string]bool{
	"==": true,
	"!=": true,
	"<":  true,
	"<=": true,
	">":  true,
	">=": true,
}
