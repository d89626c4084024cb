// Package introspect adapts runtime reflection data about loaded PHP
// entities into declaration records.
//
// The module cannot load PHP code itself. Reflection data comes from a Host,
// which is usually a Registry filled from a reflection dump produced by the
// application under analysis. Hosts without reflection use NoHost, which
// reports every entity as not found.
package introspect

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Host is the capability to look up a loaded entity by name.
type Host interface {
	Lookup(name string) (*EntityInfo, bool)
}

// TypeInfo is a reflection-level type descriptor.
type TypeInfo struct {
	Name         string     `json:"name,omitempty" yaml:"name,omitempty"`
	Nullable     bool       `json:"nullable,omitempty" yaml:"nullable,omitempty"`
	Union        []TypeInfo `json:"union,omitempty" yaml:"union,omitempty"`
	Intersection []TypeInfo `json:"intersection,omitempty" yaml:"intersection,omitempty"`
}

// ParamInfo describes one reflected parameter.
type ParamInfo struct {
	Name     string    `json:"name" yaml:"name"`
	Type     *TypeInfo `json:"type,omitempty" yaml:"type,omitempty"`
	Optional bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
	Variadic bool      `json:"variadic,omitempty" yaml:"variadic,omitempty"`
	ByRef    bool      `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	Promoted bool      `json:"promoted,omitempty" yaml:"promoted,omitempty"`
	// Default is the default value as decoded from the dump. It is only
	// meaningful when Optional is set and Variadic is not.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`
}

// MethodInfo describes one reflected method.
type MethodInfo struct {
	Name       string      `json:"name" yaml:"name"`
	Visibility string      `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Static     bool        `json:"static,omitempty" yaml:"static,omitempty"`
	Abstract   bool        `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Final      bool        `json:"final,omitempty" yaml:"final,omitempty"`
	ByRef      bool        `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	Params     []ParamInfo `json:"params,omitempty" yaml:"params,omitempty"`
	ReturnType *TypeInfo   `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	DocComment string      `json:"doc_comment,omitempty" yaml:"doc_comment,omitempty"`
}

// PropertyInfo describes one reflected property.
type PropertyInfo struct {
	Name       string    `json:"name" yaml:"name"`
	Visibility string    `json:"visibility,omitempty" yaml:"visibility,omitempty"`
	Static     bool      `json:"static,omitempty" yaml:"static,omitempty"`
	Readonly   bool      `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Type       *TypeInfo `json:"type,omitempty" yaml:"type,omitempty"`
	HasDefault bool      `json:"has_default,omitempty" yaml:"has_default,omitempty"`
	Default    any       `json:"default,omitempty" yaml:"default,omitempty"`
	DocComment string    `json:"doc_comment,omitempty" yaml:"doc_comment,omitempty"`
}

// EntityInfo describes a loaded class, interface, trait or enum.
type EntityInfo struct {
	Name       string         `json:"name" yaml:"name"`
	FileName   string         `json:"file,omitempty" yaml:"file,omitempty"`
	Kind       string         `json:"kind,omitempty" yaml:"kind,omitempty"`
	Abstract   bool           `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Final      bool           `json:"final,omitempty" yaml:"final,omitempty"`
	Readonly   bool           `json:"readonly,omitempty" yaml:"readonly,omitempty"`
	Parent     string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Interfaces []string       `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
	Traits     []string       `json:"traits,omitempty" yaml:"traits,omitempty"`
	Constants  map[string]any `json:"constants,omitempty" yaml:"constants,omitempty"`
	Methods    []MethodInfo   `json:"methods,omitempty" yaml:"methods,omitempty"`
	Properties []PropertyInfo `json:"properties,omitempty" yaml:"properties,omitempty"`
	DocComment string         `json:"doc_comment,omitempty" yaml:"doc_comment,omitempty"`
}

// NoHost is a Host without reflection support.
type NoHost struct{}

// Lookup always reports the entity as unknown.
func (NoHost) Lookup(string) (*EntityInfo, bool) { return nil, false }

// Registry is an in-memory Host. Names are matched case-insensitively and
// without a leading namespace separator.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*EntityInfo
}

// NewRegistry returns a registry holding the given entities.
func NewRegistry(entities ...*EntityInfo) *Registry {
	r := &Registry{entities: make(map[string]*EntityInfo)}
	for _, e := range entities {
		r.Add(e)
	}
	return r
}

// Add registers or replaces an entity.
func (r *Registry) Add(info *EntityInfo) {
	if info == nil || info.Name == "" {
		return
	}
	r.mu.Lock()
	r.entities[normalizeName(info.Name)] = info
	r.mu.Unlock()
}

// Lookup implements Host.
func (r *Registry) Lookup(name string) (*EntityInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.entities[normalizeName(name)]
	return info, ok
}

// Names returns the registered entity names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entities))
	for _, e := range r.entities {
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// dumpFile is the on-disk layout of a reflection dump.
type dumpFile struct {
	Entities []*EntityInfo `yaml:"entities"`
}

// LoadRegistry reads a reflection dump. YAML and JSON dumps are both
// accepted since JSON is a YAML subset.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reflection dump: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes a reflection dump from memory.
func ParseRegistry(data []byte) (*Registry, error) {
	var dump dumpFile
	if err := yaml.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("parsing reflection dump: %w", err)
	}
	return NewRegistry(dump.Entities...), nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), `\`))
}
