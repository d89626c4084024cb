package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hargabyte/apishape/internal/decl"
)

// Options controls how declarations are projected into output.
type Options struct {
	// PublicOnly drops protected and private members.
	PublicOnly bool
}

// ClassOutput is the compact view of one class-like declaration.
// The class name is the key in the enclosing map.
type ClassOutput struct {
	// Kind is class, interface, trait or enum
	Kind string `yaml:"kind" json:"kind"`

	// Location is the file path and line range in format: path:start-end
	// Example: "src/Models/User.php:12-80"
	Location string `yaml:"location,omitempty" json:"location,omitempty"`

	// Modifiers lists abstract, final and readonly when set
	Modifiers []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`

	Extends    string   `yaml:"extends,omitempty" json:"extends,omitempty"`
	Implements []string `yaml:"implements,omitempty" json:"implements,omitempty"`
	Uses       []string `yaml:"uses,omitempty" json:"uses,omitempty"`

	Constants  map[string]*ConstantOutput `yaml:"constants,omitempty" json:"constants,omitempty"`
	Properties map[string]*PropertyOutput `yaml:"properties,omitempty" json:"properties,omitempty"`
	Methods    map[string]*FunctionOutput `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// ConstantOutput is a class constant or enum case.
type ConstantOutput struct {
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Value string `yaml:"value,omitempty" json:"value,omitempty"`
}

// PropertyOutput is one property.
type PropertyOutput struct {
	Type       string   `yaml:"type,omitempty" json:"type,omitempty"`
	Visibility string   `yaml:"visibility" json:"visibility"`
	Modifiers  []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`

	// Default is the type of the default value, when there is one
	Default string `yaml:"default,omitempty" json:"default,omitempty"`
}

// FunctionOutput is a method or free function.
type FunctionOutput struct {
	// Signature renders parameters and return type
	// Example: "(int $id, ?string $name = <string>): ?static"
	Signature  string   `yaml:"signature" json:"signature"`
	Visibility string   `yaml:"visibility,omitempty" json:"visibility,omitempty"`
	Modifiers  []string `yaml:"modifiers,omitempty" json:"modifiers,omitempty"`
	Lines      string   `yaml:"lines,omitempty" json:"lines,omitempty"`
}

// FileOutput is the view of one analyzed file.
type FileOutput struct {
	Path      string                     `yaml:"path" json:"path"`
	Namespace string                     `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Classes   map[string]*ClassOutput    `yaml:"classes,omitempty" json:"classes,omitempty"`
	Functions map[string]*FunctionOutput `yaml:"functions,omitempty" json:"functions,omitempty"`

	// Errors lists syntax errors as "line:column: message"
	Errors []string `yaml:"errors,omitempty" json:"errors,omitempty"`
}

// ListOutput holds results for several targets.
type ListOutput struct {
	// Files contains file outputs keyed by path
	Files map[string]*FileOutput `yaml:"files,omitempty" json:"files,omitempty"`

	// Classes contains entity outputs keyed by class name
	Classes map[string]*ClassOutput `yaml:"classes,omitempty" json:"classes,omitempty"`

	// Count is the total number of results
	Count int `yaml:"count" json:"count"`

	// Failures lists targets that could not be analyzed
	Failures []string `yaml:"failures,omitempty" json:"failures,omitempty"`
}

// NewListOutput returns an empty list.
func NewListOutput() *ListOutput {
	return &ListOutput{
		Files:   make(map[string]*FileOutput),
		Classes: make(map[string]*ClassOutput),
	}
}

// AddFile adds a file result to the list.
func (l *ListOutput) AddFile(f *decl.File, opts Options) {
	if f == nil {
		return
	}
	l.Files[f.Path] = FromFile(f, opts)
	l.Count++
}

// AddClass adds an entity result to the list.
func (l *ListOutput) AddClass(c *decl.Class, opts Options) {
	if c == nil {
		return
	}
	l.Classes[c.Name] = FromClass(c, opts)
	l.Count++
}

// AddFailure records a target that failed.
func (l *ListOutput) AddFailure(err error) {
	l.Failures = append(l.Failures, err.Error())
}

// FromFile projects a file record.
func FromFile(f *decl.File, opts Options) *FileOutput {
	out := &FileOutput{
		Path:      f.Path,
		Namespace: f.Namespace,
	}
	if len(f.Classes) > 0 {
		out.Classes = make(map[string]*ClassOutput, len(f.Classes))
		for name, c := range f.Classes {
			out.Classes[name] = FromClass(c, opts)
		}
	}
	if len(f.Functions) > 0 {
		out.Functions = make(map[string]*FunctionOutput, len(f.Functions))
		for name, fn := range f.Functions {
			out.Functions[name] = FromFunction(fn)
		}
	}
	for _, e := range f.Errors {
		out.Errors = append(out.Errors, fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message))
	}
	return out
}

// FromClass projects a class record.
func FromClass(c *decl.Class, opts Options) *ClassOutput {
	out := &ClassOutput{
		Kind:       string(c.Kind),
		Location:   FormatLocation(c.File, c.StartLine, c.EndLine),
		Modifiers:  modifierList(c.Modifiers),
		Extends:    c.Parent,
		Implements: c.Interfaces,
		Uses:       c.Traits,
	}

	for name, k := range c.Constants {
		if opts.PublicOnly && k.Visibility != "" && k.Visibility != decl.Public {
			continue
		}
		if out.Constants == nil {
			out.Constants = make(map[string]*ConstantOutput)
		}
		out.Constants[name] = &ConstantOutput{Type: k.Type.String(), Value: k.Value}
	}

	for name, p := range c.Properties {
		if opts.PublicOnly && p.Visibility != decl.Public {
			continue
		}
		if out.Properties == nil {
			out.Properties = make(map[string]*PropertyOutput)
		}
		out.Properties[name] = &PropertyOutput{
			Type:       p.Type.String(),
			Visibility: string(p.Visibility),
			Modifiers:  modifierList(decl.Modifiers{Static: p.Static, Readonly: p.Readonly}),
			Default:    p.DefaultValue.String(),
		}
	}

	for name, m := range c.Methods {
		if opts.PublicOnly && m.Visibility != decl.Public {
			continue
		}
		if out.Methods == nil {
			out.Methods = make(map[string]*FunctionOutput)
		}
		out.Methods[name] = FromFunction(m)
	}

	return out
}

// FromFunction projects a method or function.
func FromFunction(fn *decl.Function) *FunctionOutput {
	out := &FunctionOutput{
		Signature:  Signature(fn),
		Visibility: string(fn.Visibility),
		Modifiers:  modifierList(fn.Modifiers),
	}
	if fn.StartLine > 0 {
		out.Lines = FormatLineRange(fn.StartLine, fn.EndLine)
	}
	return out
}

// Signature renders a function's parameter list and return type.
// Parameter defaults are shown by type since only the type is known.
func Signature(fn *decl.Function) string {
	var sb strings.Builder
	if fn.ByRef {
		sb.WriteByte('&')
	}
	sb.WriteByte('(')
	for i, p := range fn.Parameters {
		if i > 0 {
			sb.WriteString(", ")
		}
		if p.Type != nil {
			sb.WriteString(p.Type.String())
			sb.WriteByte(' ')
		}
		if p.ByRef {
			sb.WriteByte('&')
		}
		if p.Variadic {
			sb.WriteString("...")
		}
		sb.WriteByte('$')
		sb.WriteString(p.Name)
		if p.DefaultValue != nil {
			sb.WriteString(" = <")
			sb.WriteString(p.DefaultValue.String())
			sb.WriteByte('>')
		}
	}
	sb.WriteByte(')')
	if fn.ReturnType != nil {
		sb.WriteString(": ")
		sb.WriteString(fn.ReturnType.String())
	}
	return sb.String()
}

// FormatLocation formats a file path and line range as "path:start-end".
func FormatLocation(file string, start, end uint32) string {
	if file == "" {
		return ""
	}
	if start == 0 {
		return file
	}
	return file + ":" + FormatLineRange(start, end)
}

// FormatLineRange formats a line range, collapsing single lines.
func FormatLineRange(start, end uint32) string {
	if end <= start {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func modifierList(m decl.Modifiers) []string {
	var mods []string
	if m.Abstract {
		mods = append(mods, "abstract")
	}
	if m.Final {
		mods = append(mods, "final")
	}
	if m.Static {
		mods = append(mods, "static")
	}
	if m.Readonly {
		mods = append(mods, "readonly")
	}
	return mods
}

// SortedKeys returns the keys of a map in sorted order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
