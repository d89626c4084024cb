package infer

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hargabyte/apishape/internal/types"
)

type opClass int

const (
	opUnknown opClass = iota
	opArithmetic
	opConcat
	opBool
	opBitwise
	opCoalesce
	opSpaceship
)

var operatorClasses = map[string]opClass{
	"+":          opArithmetic,
	"-":          opArithmetic,
	"*":          opArithmetic,
	"/":          opArithmetic,
	"%":          opArithmetic,
	"**":         opArithmetic,
	".":          opConcat,
	"==":         opBool,
	"!=":         opBool,
	"<>":         opBool,
	"===":        opBool,
	"!==":        opBool,
	"<":          opBool,
	">":          opBool,
	"<=":         opBool,
	">=":         opBool,
	"&&":         opBool,
	"||":         opBool,
	"and":        opBool,
	"or":         opBool,
	"xor":        opBool,
	"instanceof": opBool,
	"&":          opBitwise,
	"|":          opBitwise,
	"^":          opBitwise,
	"<<":         opBitwise,
	">>":         opBitwise,
	"??":         opCoalesce,
	"<=>":        opSpaceship,
}

func (e *Engine) inferBinary(node *sitter.Node, src []byte) *types.Type {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	op := ""
	if f := node.ChildByFieldName("operator"); f != nil {
		op = f.Content(src)
	} else if node.ChildCount() >= 3 {
		op = node.Child(1).Content(src)
	}

	switch operatorClasses[lowerASCII(op)] {
	case opConcat:
		return types.String()
	case opBool:
		return types.Bool()
	case opBitwise, opSpaceship:
		return types.Int()
	case opCoalesce:
		var branches []*types.Type
		if left != nil {
			branches = append(branches, e.infer(left, src).WithNullable(false))
		}
		if right != nil {
			branches = append(branches, e.infer(right, src))
		}
		return types.Merge(branches...)
	case opArithmetic:
		if left == nil || right == nil {
			return types.Mixed()
		}
		return arithmetic(e.infer(left, src), e.infer(right, src))
	}
	return types.Mixed()
}

// arithmetic yields float if either side is float, int if both are int and
// mixed otherwise.
func arithmetic(l, r *types.Type) *types.Type {
	switch {
	case isScalar(l, types.ScalarFloat) || isScalar(r, types.ScalarFloat):
		return types.Float()
	case isScalar(l, types.ScalarInt) && isScalar(r, types.ScalarInt):
		return types.Int()
	default:
		return types.Mixed()
	}
}

// castType maps a cast keyword to its target type.
func castType(keyword string) *types.Type {
	switch lowerASCII(keyword) {
	case "int", "integer":
		return types.Int()
	case "float", "double", "real":
		return types.Float()
	case "string", "binary":
		return types.String()
	case "bool", "boolean":
		return types.Bool()
	case "array":
		return types.ArrayOf(nil, types.Mixed())
	case "object":
		return types.Named("object")
	case "unset":
		return types.Mixed().WithNullable(true)
	}
	return types.Mixed()
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
