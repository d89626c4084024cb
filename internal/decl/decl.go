// Package decl defines the declaration records produced by analysis.
//
// Declarations are treated as immutable once built. Code that needs to
// combine two records builds a fresh one with Clone rather than mutating a
// cached value.
package decl

import (
	"sort"

	"github.com/hargabyte/apishape/internal/parser"
	"github.com/hargabyte/apishape/internal/types"
)

// Visibility is a member's access level.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// ClassKind distinguishes class-like declarations.
type ClassKind string

const (
	KindClass     ClassKind = "class"
	KindInterface ClassKind = "interface"
	KindTrait     ClassKind = "trait"
	KindEnum      ClassKind = "enum"
)

// Modifiers holds the boolean modifiers a declaration may carry.
type Modifiers struct {
	Abstract bool `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Final    bool `json:"final,omitempty" yaml:"final,omitempty"`
	Static   bool `json:"static,omitempty" yaml:"static,omitempty"`
	Readonly bool `json:"readonly,omitempty" yaml:"readonly,omitempty"`
}

// Class describes a class, interface, trait or enum.
type Class struct {
	Name       string               `json:"name" yaml:"name"`
	Kind       ClassKind            `json:"kind" yaml:"kind"`
	Modifiers  Modifiers            `json:"modifiers" yaml:"modifiers"`
	Parent     string               `json:"parent,omitempty" yaml:"parent,omitempty"`
	Interfaces []string             `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Traits     []string             `json:"traits,omitempty" yaml:"traits,omitempty"`
	Methods    map[string]*Method   `json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties map[string]*Property `json:"properties,omitempty" yaml:"properties,omitempty"`
	Constants  map[string]*Constant `json:"constants,omitempty" yaml:"constants,omitempty"`
	Comment    string               `json:"comment,omitempty" yaml:"comment,omitempty"`
	File       string               `json:"file,omitempty" yaml:"file,omitempty"`
	StartLine  uint32               `json:"start_line,omitempty" yaml:"start_line,omitempty"`
	EndLine    uint32               `json:"end_line,omitempty" yaml:"end_line,omitempty"`
}

// Function describes a free function or, when Class is set, a method.
type Function struct {
	Name       string       `json:"name" yaml:"name"`
	Class      string       `json:"class,omitempty" yaml:"class,omitempty"`
	Visibility Visibility   `json:"visibility" yaml:"visibility"`
	Modifiers  Modifiers    `json:"modifiers" yaml:"modifiers"`
	Parameters []*Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	ReturnType *types.Type  `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	ByRef      bool         `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	Comment    string       `json:"comment,omitempty" yaml:"comment,omitempty"`
	StartLine  uint32       `json:"start_line,omitempty" yaml:"start_line,omitempty"`
	EndLine    uint32       `json:"end_line,omitempty" yaml:"end_line,omitempty"`
}

// Method is a Function owned by a class.
type Method = Function

// Parameter describes one formal parameter.
type Parameter struct {
	Name         string      `json:"name" yaml:"name"`
	Position     int         `json:"position" yaml:"position"`
	Type         *types.Type `json:"type,omitempty" yaml:"type,omitempty"`
	Optional     bool        `json:"optional,omitempty" yaml:"optional,omitempty"`
	Variadic     bool        `json:"variadic,omitempty" yaml:"variadic,omitempty"`
	ByRef        bool        `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	DefaultValue *types.Type `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Promoted     bool        `json:"promoted,omitempty" yaml:"promoted,omitempty"`
}

// Property describes a class property.
type Property struct {
	Name         string      `json:"name" yaml:"name"`
	Visibility   Visibility  `json:"visibility" yaml:"visibility"`
	Static       bool        `json:"static,omitempty" yaml:"static,omitempty"`
	Readonly     bool        `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Type         *types.Type `json:"type,omitempty" yaml:"type,omitempty"`
	DefaultValue *types.Type `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Comment      string      `json:"comment,omitempty" yaml:"comment,omitempty"`
}

// Constant describes a class constant or enum case.
type Constant struct {
	Name       string      `json:"name" yaml:"name"`
	Visibility Visibility  `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Type       *types.Type `json:"type,omitempty" yaml:"type,omitempty"`
	Value      string      `json:"value,omitempty" yaml:"value,omitempty"`
}

// File is the result of walking one source file.
type File struct {
	Path      string               `json:"path" yaml:"path"`
	Namespace string               `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Classes   map[string]*Class    `json:"classes,omitempty" yaml:"classes,omitempty"`
	Functions map[string]*Function `json:"functions,omitempty" yaml:"functions,omitempty"`
	Errors    []*parser.ParseError `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// NewClass returns a class with initialized member maps.
func NewClass(name string, kind ClassKind) *Class {
	return &Class{
		Name:       name,
		Kind:       kind,
		Methods:    make(map[string]*Method),
		Properties: make(map[string]*Property),
		Constants:  make(map[string]*Constant),
	}
}

// NewFile returns a file record with initialized maps.
func NewFile(path string) *File {
	return &File{
		Path:      path,
		Classes:   make(map[string]*Class),
		Functions: make(map[string]*Function),
	}
}

// MethodNames returns the class's method names in sorted order.
func (c *Class) MethodNames() []string {
	names := make([]string, 0, len(c.Methods))
	for n := range c.Methods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PropertyNames returns the class's property names in sorted order.
func (c *Class) PropertyNames() []string {
	names := make([]string, 0, len(c.Properties))
	for n := range c.Properties {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ClassNames returns the file's class names in sorted order.
func (f *File) ClassNames() []string {
	names := make([]string, 0, len(f.Classes))
	for n := range f.Classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasErrors reports whether the file had syntax errors.
func (f *File) HasErrors() bool {
	return len(f.Errors) > 0
}

// Parameter returns the named parameter, if present.
func (f *Function) Parameter(name string) *Parameter {
	for _, p := range f.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}
