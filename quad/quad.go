package quad

import (
	"fmt"
	"strconv"
	"strings"
)

type Op int

const (
	Assign Op = iota

	Add
	Sub
	Mul
	Div

	Eq
	Ne
	Lt
	Le
	Gt
	Ge

	IfFalse
	Goto
	Label

	ElseStart
	IfEnd
	WhileStart
	WhileEnd

	FuncStart
	FuncDef
	FuncEnd

	ParamDecl
	VarDecl
	ArrayDecl

	Param
	Call
	Return
)

var tags = map[Op]string{
	Assign:     "=",
	Add:        "+",
	Sub:        "-",
	Mul:        "*",
	Div:        "/",
	Eq:         "==",
	Ne:         "!=",
	Lt:         "<",
	Le:         "<=",
	Gt:         ">",
	Ge:         ">=",
	IfFalse:    "if",
	Goto:       "goto",
	Label:      "label",
	ElseStart:  "el",
	IfEnd:      "ie",
	WhileStart: "wh",
	WhileEnd:   "we",
	FuncStart:  "FuncStart",
	FuncDef:    "FuncDef",
	FuncEnd:    "FuncEnd",
	ParamDecl:  "param_decl",
	VarDecl:    "var_decl",
	ArrayDecl:  "ARRAY_DECL",
	Param:      "param",
	Call:       "call",
	Return:     "return",
}

var byTag = func() map[string]Op {
	ret := make(map[string]Op, len(tags))
	for op, tag := range tags {
		ret[tag] = op
	}
	return ret
}()

func (o Op) String() string {
	if tag, ok := tags[o]; ok {
		return tag
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// ParseOp maps a textual tag such as "+" or "FuncStart" back to its Op.
func ParseOp(tag string) (Op, bool) {
	op, ok := byTag[tag]
	return op, ok
}

func (o Op) IsArithmetic() bool {
	return o >= Add && o <= Div
}

func (o Op) IsComparison() bool {
	return o >= Eq && o <= Ge
}

// IsMarker reports whether the op brackets a control region.
func (o Op) IsMarker() bool {
	return o >= ElseStart && o <= WhileEnd
}

// Empty fills unused operand slots.
const Empty = "_"

type Quadruple struct {
	Op     Op
	Arg1   string
	Arg2   string
	Result string
}

func New(op Op, arg1, arg2, result string) Quadruple {
	return Quadruple{Op: op, Arg1: orEmpty(arg1), Arg2: orEmpty(arg2), Result: orEmpty(result)}
}

func orEmpty(s string) string {
	if s == "" {
		return Empty
	}
	return s
}

func (q Quadruple) String() string {
	return fmt.Sprintf("(%s %s %s %s)", q.Op, q.Arg1, q.Arg2, q.Result)
}

// Render prints one quadruple per line.
func Render(qs []Quadruple) string {
	var b strings.Builder
	for _, q := range qs {
		b.WriteString(q.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// Parse reads the output of Render back into quadruples.
func Parse(text string) ([]Quadruple, error) {
	var ret []Quadruple
	for n, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "(") || !strings.HasSuffix(line, ")") {
			return nil, fmt.Errorf("line %d: malformed quadruple %q", n+1, line)
		}
		fields := splitFields(line[1 : len(line)-1])
		if len(fields) != 4 {
			return nil, fmt.Errorf("line %d: expected 4 fields, got %d", n+1, len(fields))
		}
		op, ok := ParseOp(fields[0])
		if !ok {
			return nil, fmt.Errorf("line %d: unknown op %q", n+1, fields[0])
		}
		ret = append(ret, Quadruple{Op: op, Arg1: fields[1], Arg2: fields[2], Result: fields[3]})
	}
	return ret, nil
}

// splitFields splits on spaces outside of quoted literals.
func splitFields(s string) []string {
	var fields []string
	var cur strings.Builder
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			cur.WriteByte(c)
			if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			cur.WriteByte(c)
		case c == ' ':
			if cur.Len() > 0 {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

func IsInt(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func IsChar(s string) bool {
	return len(s) >= 3 && s[0] == '\'' && s[len(s)-1] == '\''
}

func IsString(s string) bool {
	return len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"'
}

func IsLiteral(s string) bool {
	return IsInt(s) || IsChar(s) || IsString(s)
}

// IsTemp reports whether s is a generator temp (t0, t1, ...).
func IsTemp(s string) bool {
	if len(s) < 2 || s[0] != 't' {
		return false
	}
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func Temp(n int) string {
	return "t" + strconv.Itoa(n)
}

// Element encodes an array element operand as name[index].
func Element(name, index string) string {
	return name + "[" + index + "]"
}

// SplitElement decodes an operand produced by Element.
func SplitElement(s string) (name, index string, ok bool) {
	if IsLiteral(s) || !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	open := strings.IndexByte(s, '[')
	if open <= 0 {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

// CharValue returns the code point of a char literal operand.
func CharValue(s string) rune {
	r := []rune(s[1 : len(s)-1])
	if len(r) == 0 {
		return 0
	}
	return r[0]
}
