package irgen

import "fmt"

// Type is a value type of the language. Array types carry their element type
// in Base; sizes are not part of the type.
type Type struct {
	Base  string
	Array bool
}

var (
	Int    = Type{Base: "int"}
	Char   = Type{Base: "char"}
	String = Type{Base: "string"}
	Void   = Type{Base: "void"}
)

func ParseType(keyword string) (Type, bool) {
	switch keyword {
	case "int":
		return Int, true
	case "char":
		return Char, true
	case "string":
		return String, true
	case "void":
		return Void, true
	}
	return Type{}, false
}

func ArrayOf(elem Type) Type {
	return Type{Base: elem.Base, Array: true}
}

// Elem returns the element type of an array type.
func (t Type) Elem() Type {
	return Type{Base: t.Base}
}

func (t Type) String() string {
	if t.Array {
		return fmt.Sprintf("%s[]", t.Base)
	}
	return t.Base
}

// IsTypeCompatible reports whether a value of type actual may be stored where
// expected is required.
func IsTypeCompatible(expected, actual Type) bool {
	if expected.Array || actual.Array {
		return expected.Array && actual.Array && expected.Base == actual.Base
	}
	if expected == actual {
		return expected != Void
	}
	return expected == Int && actual == Char
}

// canCompare reports whether two operand types may meet in a condition.
func canCompare(a, b Type) bool {
	return IsTypeCompatible(a, b) || IsTypeCompatible(b, a)
}
