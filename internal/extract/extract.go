// Package extract walks PHP syntax trees and collects declarations.
package extract

import (
	"fmt"
	"path/filepath"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/infer"
	"github.com/hargabyte/apishape/internal/parser"
)

// WalkFile parses path with p and walks the result. A file that cannot be
// read returns the parser's *parser.FileReadError.
func WalkFile(p *parser.Parser, engine *infer.Engine, path string) (*decl.File, error) {
	result, err := p.ParseFile(path)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	return NewWalker(result, engine).Walk(), nil
}

// WalkSource parses in-memory source and walks the result. path is only
// recorded on the declarations.
func WalkSource(p *parser.Parser, engine *infer.Engine, path string, src []byte) (*decl.File, error) {
	result, err := p.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	defer result.Close()
	result.FilePath = path

	return NewWalker(result, engine).Walk(), nil
}

// NormalizePath returns path relative to basePath, or cleaned when it cannot
// be made relative.
func NormalizePath(path, basePath string) string {
	if basePath == "" {
		return filepath.Clean(path)
	}
	rel, err := filepath.Rel(basePath, path)
	if err != nil {
		return filepath.Clean(path)
	}
	return rel
}

// findChildByType finds the first child node of the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			return child
		}
	}
	return nil
}

// findChildByFieldName finds the child node with the given field name.
func findChildByFieldName(node *sitter.Node, fieldName string) *sitter.Node {
	if node == nil {
		return nil
	}
	return node.ChildByFieldName(fieldName)
}

// findChildrenByType finds all direct child nodes of the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var children []*sitter.Node
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child.Type() == nodeType {
			children = append(children, child)
		}
	}
	return children
}

// findTypeChild finds the first direct child that is a type node.
func findTypeChild(node *sitter.Node) *sitter.Node {
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if isTypeNode(child.Type()) {
			return child
		}
	}
	return nil
}

// findValueNode returns the initializer of a property, constant or enum
// case element, whichever grammar revision produced it.
func findValueNode(node *sitter.Node) *sitter.Node {
	for _, field := range []string{"default_value", "value"} {
		if v := node.ChildByFieldName(field); v != nil {
			return v
		}
	}
	if init := findChildByType(node, "property_initializer"); init != nil && init.NamedChildCount() > 0 {
		return init.NamedChild(0)
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if node.Child(int(i)).Type() == "=" {
			if int(i)+1 < int(node.ChildCount()) {
				return node.Child(int(i) + 1)
			}
			break
		}
	}
	return nil
}

// hasReferenceModifier reports whether node is declared by reference.
func hasReferenceModifier(node *sitter.Node) bool {
	if node.ChildByFieldName("reference_modifier") != nil {
		return true
	}
	return findChildByType(node, "reference_modifier") != nil
}

func isTypeNode(nodeType string) bool {
	switch nodeType {
	case "primitive_type", "named_type", "optional_type", "union_type",
		"intersection_type", "disjunctive_normal_form_type", "type_list":
		return true
	}
	return false
}

// getLineRange returns the start and end line numbers for a node.
func getLineRange(node *sitter.Node) (uint32, uint32) {
	// tree-sitter lines are 0-based, we want 1-based
	start := node.StartPoint().Row + 1
	end := node.EndPoint().Row + 1
	return start, end
}
