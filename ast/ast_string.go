package ast

import (
	"fmt"
	"strconv"
	"strings"
)

func String(e Expression) string {
	if e == nil {
		return ""
	}

	switch v := e.(type) {
	case Number:
		return strconv.Itoa(int(v))
	case Char:
		return "'" + string(v) + "'"
	case Str:
		return `"` + string(v) + `"`
	case Var:
		return string(v)
	case ArrayAccess:
		return fmt.Sprintf("%s[%s]", v.Name, String(v.Index))
	case Call:
		var args []string
		for _, arg := range v.Arguments {
			args = append(args, String(arg))
		}
		return fmt.Sprintf("%s(%s)", v.Function, strings.Join(args, ", "))
	case BinaryOp:
		return fmt.Sprintf("(%s %s %s)", String(v.Left), v.Op, String(v.Right))
	}

	panic("unhandled")
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", String(c.Left), c.Op, String(c.Right))
}
