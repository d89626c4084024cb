// Package infer computes best-effort static types for PHP expression nodes.
//
// Inference is purely structural: literals, array literals, operators and a
// fixed table of builtin functions. Variables, property reads and calls to
// user code all infer to mixed; nothing is flow-tracked.
package infer

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hargabyte/apishape/internal/types"
)

// Engine infers expression types and memoizes results by node content.
// The memo is only valid for one source revision; call ClearCache when the
// analyzed code changes.
type Engine struct {
	mu       sync.Mutex
	builtins map[string]*types.Type
	memo     map[string]*types.Type
}

// Option configures an Engine.
type Option func(*Engine)

// WithBuiltins adds or overrides builtin function result types. Values are
// type expressions; entries that do not parse are ignored.
func WithBuiltins(extra map[string]string) Option {
	return func(e *Engine) {
		for name, expr := range extra {
			if t := types.Parse(expr); t != nil {
				e.builtins[strings.ToLower(name)] = t
			}
		}
	}
}

// New creates an engine with the default builtin table.
func New(opts ...Option) *Engine {
	e := &Engine{
		builtins: defaultBuiltins(),
		memo:     make(map[string]*types.Type),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Infer returns the type of node, never nil. Unrecognized node kinds yield
// mixed. The returned Type must not be modified.
func (e *Engine) Infer(node *sitter.Node, src []byte) *types.Type {
	if node == nil {
		return types.Mixed()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.infer(node, src)
}

// ClearCache drops all memoized results.
func (e *Engine) ClearCache() {
	e.mu.Lock()
	e.memo = make(map[string]*types.Type)
	e.mu.Unlock()
}

// CacheSize returns the number of memoized nodes.
func (e *Engine) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.memo)
}

// BuiltinType returns the result type registered for a builtin function.
func (e *Engine) BuiltinType(name string) (*types.Type, bool) {
	t, ok := e.builtins[normalizeFunc(name)]
	return t, ok
}

func (e *Engine) infer(node *sitter.Node, src []byte) *types.Type {
	key := node.Type() + "\x00" + node.Content(src)
	if t, ok := e.memo[key]; ok {
		return t
	}
	t := e.compute(node, src)
	if t == nil {
		t = types.Mixed()
	}
	e.memo[key] = t
	return t
}

func (e *Engine) compute(node *sitter.Node, src []byte) *types.Type {
	switch node.Type() {
	case "integer":
		return types.Int()
	case "float":
		return types.Float()
	case "string", "encapsed_string", "heredoc", "nowdoc", "shell_command_expression":
		return types.String()
	case "boolean":
		return types.Bool()
	case "null":
		return types.Mixed().WithNullable(true)

	case "array_creation_expression":
		return e.inferArray(node, src)
	case "binary_expression":
		return e.inferBinary(node, src)
	case "conditional_expression":
		return e.inferConditional(node, src)
	case "unary_op_expression":
		return e.inferUnary(node, src)
	case "cast_expression":
		t := node.ChildByFieldName("type")
		if t == nil {
			t = childOfType(node, "cast_type")
		}
		if t != nil {
			return castType(t.Content(src))
		}
		return types.Mixed()
	case "function_call_expression":
		return e.inferCall(node, src)
	case "object_creation_expression":
		return inferNew(node, src)
	case "assignment_expression", "augmented_assignment_expression":
		if right := node.ChildByFieldName("right"); right != nil {
			return e.infer(right, src)
		}
		return types.Mixed()
	case "parenthesized_expression", "expression_statement", "return_statement":
		if node.NamedChildCount() > 0 {
			return e.infer(node.NamedChild(0), src)
		}
		return types.Mixed()

	case "primitive_type", "named_type", "optional_type", "union_type",
		"intersection_type", "disjunctive_normal_form_type", "type_list":
		if t := types.Parse(node.Content(src)); t != nil {
			return t
		}
		return types.Mixed()
	}

	return types.Mixed()
}

// inferArray merges the key and value types of every element. Positional
// elements contribute int keys, which ArrayOf keeps implicit.
func (e *Engine) inferArray(node *sitter.Node, src []byte) *types.Type {
	var keys, values []*types.Type

	for i := 0; i < int(node.NamedChildCount()); i++ {
		elem := node.NamedChild(i)
		if elem.Type() != "array_element_initializer" {
			continue
		}
		operands := namedOperands(elem)
		if len(operands) == 0 {
			continue
		}

		switch {
		case operands[0].Type() == "variadic_unpacking":
			keys = append(keys, types.Int())
			values = append(values, types.Mixed())
		case hasChildOfType(elem, "=>") && len(operands) >= 2:
			keys = append(keys, e.infer(operands[0], src))
			values = append(values, e.infer(operands[len(operands)-1], src))
		default:
			keys = append(keys, types.Int())
			values = append(values, e.infer(operands[len(operands)-1], src))
		}
	}

	// An empty literal merges nothing on either side: array<mixed, mixed>.
	return types.ArrayOf(types.Merge(keys...), types.Merge(values...))
}

// inferConditional merges the two branches. For the short form "a ?: b" the
// condition doubles as the first branch.
func (e *Engine) inferConditional(node *sitter.Node, src []byte) *types.Type {
	body := node.ChildByFieldName("body")
	if body == nil {
		body = node.ChildByFieldName("condition")
	}
	alt := node.ChildByFieldName("alternative")

	var branches []*types.Type
	if body != nil {
		branches = append(branches, e.infer(body, src))
	}
	if alt != nil {
		branches = append(branches, e.infer(alt, src))
	}
	return types.Merge(branches...)
}

func (e *Engine) inferUnary(node *sitter.Node, src []byte) *types.Type {
	if node.ChildCount() == 0 {
		return types.Mixed()
	}
	op := node.Child(0).Content(src)
	if f := node.ChildByFieldName("operator"); f != nil {
		op = f.Content(src)
	}

	var operand *sitter.Node
	if node.NamedChildCount() > 0 {
		operand = node.NamedChild(int(node.NamedChildCount()) - 1)
	}

	switch op {
	case "!":
		return types.Bool()
	case "~":
		return types.Int()
	case "-", "+":
		if operand == nil {
			return types.Mixed()
		}
		t := e.infer(operand, src)
		if isScalar(t, types.ScalarInt) || isScalar(t, types.ScalarFloat) {
			return t
		}
		return types.Mixed()
	case "@":
		if operand != nil {
			return e.infer(operand, src)
		}
	}
	return types.Mixed()
}

func (e *Engine) inferCall(node *sitter.Node, src []byte) *types.Type {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return types.Mixed()
	}
	switch fn.Type() {
	case "name", "qualified_name":
		if t, ok := e.builtins[normalizeFunc(fn.Content(src))]; ok {
			return t
		}
	}
	return types.Mixed()
}

func inferNew(node *sitter.Node, src []byte) *types.Type {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "name", "qualified_name":
			return types.Named(child.Content(src))
		}
	}
	return types.Named("object")
}

// namedOperands returns the named children of an array element, skipping
// by-reference markers.
func namedOperands(elem *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(elem.NamedChildCount()); i++ {
		child := elem.NamedChild(i)
		if child.Type() == "by_ref" || child.Type() == "reference_modifier" || child.Type() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

func hasChildOfType(node *sitter.Node, kind string) bool {
	return childOfType(node, kind) != nil
}

func childOfType(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if child := node.Child(i); child.Type() == kind {
			return child
		}
	}
	return nil
}

func isScalar(t *types.Type, s types.Scalar) bool {
	return t != nil && t.Kind == types.KindScalar && t.Scalar == s && !t.Nullable
}

func normalizeFunc(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), `\`)
	return strings.ToLower(name)
}
