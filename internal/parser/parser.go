// Package parser provides tree-sitter based parsing of PHP source.
//
// The parser package wraps the tree-sitter library so the rest of the module
// never touches grammar setup or traversal mechanics directly. Malformed
// input never fails a parse: syntax errors are collected as data on the
// result and on the parser's error channel.
package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser wraps tree-sitter for PHP parsing.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
	errors []*ParseError
}

// ParseResult contains the parsed AST and metadata.
type ParseResult struct {
	// Tree is the complete tree-sitter parse tree.
	Tree *sitter.Tree
	// Root is the root node of the AST.
	Root *sitter.Node
	// Source is the original source code that was parsed.
	Source []byte
	// FilePath is the path to the source file (empty for in-memory parsing).
	FilePath string
	// Errors lists syntax errors found in the tree. The tree is still usable
	// but may be partial around these locations.
	Errors []*ParseError
}

// NewParser creates a PHP parser.
func NewParser() (*Parser, error) {
	p, err := newPHPParser()
	if err != nil {
		return nil, err
	}
	return &Parser{parser: p}, nil
}

// Parse parses source code and returns the AST. Syntax errors do not produce
// an error return; they are reported through ParseResult.Errors and Errors.
func (p *Parser) Parse(source []byte) (*ParseResult, error) {
	return p.parse(source, "")
}

// ParseFile parses a file from disk.
// Returns a FileReadError if the file cannot be read.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileReadError{Path: path, Err: err}
	}
	return p.parse(source, path)
}

func (p *Parser) parse(source []byte, path string) (*ParseResult, error) {
	if p.parser == nil {
		return nil, &ParseError{Message: "parser is closed", File: path}
	}

	tree, err := p.parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), File: path}
	}

	result := &ParseResult{
		Tree:     tree,
		Root:     tree.RootNode(),
		Source:   source,
		FilePath: path,
	}
	result.Errors = collectErrors(result.Root, source, path)
	p.errors = append(p.errors, result.Errors...)

	return result, nil
}

// HasErrors reports whether any parse since the last ClearErrors produced
// syntax errors.
func (p *Parser) HasErrors() bool {
	return len(p.errors) > 0
}

// Errors returns the syntax errors collected since the last ClearErrors.
func (p *Parser) Errors() []*ParseError {
	out := make([]*ParseError, len(p.errors))
	copy(out, p.errors)
	return out
}

// ClearErrors drops all collected syntax errors.
func (p *Parser) ClearErrors() {
	p.errors = nil
}

// Close releases parser resources.
// After calling Close, the parser should not be used.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
}

// Close releases the parse tree resources.
func (r *ParseResult) Close() {
	if r.Tree != nil {
		r.Tree.Close()
		r.Tree = nil
		r.Root = nil
	}
}

// HasErrors returns true if the parse tree contains syntax errors.
func (r *ParseResult) HasErrors() bool {
	if len(r.Errors) > 0 {
		return true
	}
	if r.Root == nil {
		return false
	}
	return r.Root.HasError()
}

// WalkNodes traverses the AST depth-first, calling the visitor function
// for each node. If the visitor returns false, traversal stops.
func (r *ParseResult) WalkNodes(visitor func(*sitter.Node) bool) {
	if r.Root == nil {
		return
	}
	walkNode(r.Root, visitor)
}

// walkNode is a helper for depth-first AST traversal.
func walkNode(node *sitter.Node, visitor func(*sitter.Node) bool) bool {
	if !visitor(node) {
		return false
	}
	for i := uint32(0); i < node.ChildCount(); i++ {
		if !walkNode(node.Child(int(i)), visitor) {
			return false
		}
	}
	return true
}

// FindNodes returns all nodes matching the given predicate.
func (r *ParseResult) FindNodes(predicate func(*sitter.Node) bool) []*sitter.Node {
	var nodes []*sitter.Node
	r.WalkNodes(func(node *sitter.Node) bool {
		if predicate(node) {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// FindNodesByType returns all nodes of the specified type.
func (r *ParseResult) FindNodesByType(nodeType string) []*sitter.Node {
	return FindNodesOfKind(r.Root, nodeType)
}

// NodeText returns the source text for a node.
func (r *ParseResult) NodeText(node *sitter.Node) string {
	if node == nil || r.Source == nil {
		return ""
	}
	return node.Content(r.Source)
}

// FindNodesOfKind returns every node below (and including) root whose
// grammar type equals kind, in document order.
func FindNodesOfKind(root *sitter.Node, kind string) []*sitter.Node {
	if root == nil {
		return nil
	}
	var nodes []*sitter.Node
	walkNode(root, func(node *sitter.Node) bool {
		if node.Type() == kind {
			nodes = append(nodes, node)
		}
		return true
	})
	return nodes
}

// collectErrors gathers ERROR and MISSING nodes. Children of an ERROR node
// are not reported separately.
func collectErrors(root *sitter.Node, source []byte, path string) []*ParseError {
	if root == nil || !root.HasError() {
		return nil
	}

	var errs []*ParseError
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		point := node.StartPoint()
		switch {
		case node.Type() == "ERROR":
			errs = append(errs, &ParseError{
				Message: fmt.Sprintf("syntax error near %q", snippet(node.Content(source))),
				File:    path,
				Line:    point.Row + 1,
				Column:  point.Column + 1,
			})
			return
		case node.IsMissing():
			errs = append(errs, &ParseError{
				Message: fmt.Sprintf("missing %s", node.Type()),
				File:    path,
				Line:    point.Row + 1,
				Column:  point.Column + 1,
			})
			return
		}
		if !node.HasError() {
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			visit(node.Child(i))
		}
	}
	visit(root)

	return errs
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}

// IsPHPFile reports whether path has one of the given extensions, or a
// default PHP extension when none are given.
func IsPHPFile(path string, extensions ...string) bool {
	if len(extensions) == 0 {
		extensions = Extensions()
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Extensions returns the file extensions treated as PHP source by default.
func Extensions() []string {
	return []string{".php", ".phtml", ".inc"}
}
