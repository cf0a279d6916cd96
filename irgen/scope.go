package irgen

type Kind int

const (
	KindVariable Kind = iota
	KindParameter
	KindArray
)

type symbol struct {
	Type Type
	Kind Kind
	Size int
}

// scope is the declared-name set of the program or of one function body.
type scope struct {
	name  string
	names map[string]*symbol
}

func newScope(name string) *scope {
	return &scope{
		name:  name,
		names: make(map[string]*symbol),
	}
}

const GlobalScope = "global"

func (g *Generator) active() *scope {
	if g.current != nil {
		return g.current
	}
	return g.global
}

// lookup resolves name in the enclosing function first, then globally.
func (g *Generator) lookup(name string) (*symbol, bool) {
	if g.current != nil {
		if sym, ok := g.current.names[name]; ok {
			return sym, true
		}
	}
	sym, ok := g.global.names[name]
	return sym, ok
}

// Signature is the declared shape of a function.
type Signature struct {
	ReturnType Type
	ParamTypes []Type
	ParamNames []string
}

// Param is one declared function parameter, as written in the source.
type Param struct {
	Type string
	Name string
}
