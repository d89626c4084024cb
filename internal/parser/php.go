package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// newPHPParser creates a tree-sitter parser configured for PHP.
func newPHPParser() (*sitter.Parser, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(php.GetLanguage())
	return parser, nil
}

// Node kinds the declaration walker looks for.
const (
	KindClass     = "class_declaration"
	KindInterface = "interface_declaration"
	KindTrait     = "trait_declaration"
	KindEnum      = "enum_declaration"
	KindFunction  = "function_definition"
	KindMethod    = "method_declaration"
	KindProperty  = "property_declaration"
	KindConst     = "const_declaration"
	KindNamespace = "namespace_definition"
	KindComment   = "comment"
)

var classLikeKinds = []string{KindClass, KindInterface, KindTrait, KindEnum}

// IsClassLike reports whether node declares a class, interface, trait or enum.
func IsClassLike(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	for _, k := range classLikeKinds {
		if node.Type() == k {
			return true
		}
	}
	return false
}
