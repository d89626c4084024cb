package introspect

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/types"
)

// NotFoundError is returned when the host does not know an entity.
type NotFoundError struct {
	Name string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found: %s", e.Name)
}

// Adapter converts host reflection data into declarations and caches the
// result per entity name.
type Adapter struct {
	host  Host
	mu    sync.RWMutex
	cache map[string]*decl.Class
}

// NewAdapter wraps host. A nil host behaves like NoHost.
func NewAdapter(host Host) *Adapter {
	if host == nil {
		host = NoHost{}
	}
	return &Adapter{
		host:  host,
		cache: make(map[string]*decl.Class),
	}
}

// Knows reports whether the host can introspect name.
func (a *Adapter) Knows(name string) bool {
	_, ok := a.host.Lookup(name)
	return ok
}

// Info returns the raw reflection data for name.
func (a *Adapter) Info(name string) (*EntityInfo, error) {
	info, ok := a.host.Lookup(name)
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return info, nil
}

// Introspect returns the declaration for a loaded entity. Results are cached
// until ClearCache; the returned value must not be modified.
func (a *Adapter) Introspect(name string) (*decl.Class, error) {
	key := normalizeName(name)

	a.mu.RLock()
	cached, ok := a.cache[key]
	a.mu.RUnlock()
	if ok {
		return cached, nil
	}

	info, err := a.Info(name)
	if err != nil {
		return nil, err
	}

	class := ClassFromInfo(info)

	a.mu.Lock()
	a.cache[key] = class
	a.mu.Unlock()

	return class, nil
}

// ClearCache drops every cached declaration.
func (a *Adapter) ClearCache() {
	a.mu.Lock()
	a.cache = make(map[string]*decl.Class)
	a.mu.Unlock()
}

// CacheSize returns the number of cached declarations.
func (a *Adapter) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// ClassFromInfo converts reflection data into a declaration.
func ClassFromInfo(info *EntityInfo) *decl.Class {
	kind := decl.ClassKind(strings.ToLower(info.Kind))
	switch kind {
	case decl.KindClass, decl.KindInterface, decl.KindTrait, decl.KindEnum:
	default:
		kind = decl.KindClass
	}

	name := strings.TrimPrefix(info.Name, `\`)
	class := decl.NewClass(name, kind)
	class.Modifiers = decl.Modifiers{Abstract: info.Abstract, Final: info.Final, Readonly: info.Readonly}
	class.Parent = strings.TrimPrefix(info.Parent, `\`)
	class.Interfaces = append([]string(nil), info.Interfaces...)
	class.Traits = append([]string(nil), info.Traits...)
	class.Comment = info.DocComment
	class.File = info.FileName

	for cname, value := range info.Constants {
		class.Constants[cname] = &decl.Constant{
			Name:       cname,
			Visibility: decl.Public,
			Type:       ValueType(value),
			Value:      fmt.Sprint(value),
		}
	}

	for _, m := range info.Methods {
		method := &decl.Method{
			Name:       m.Name,
			Class:      name,
			Visibility: visibility(m.Visibility),
			Modifiers:  decl.Modifiers{Static: m.Static, Abstract: m.Abstract, Final: m.Final},
			ReturnType: ConvertType(m.ReturnType),
			ByRef:      m.ByRef,
			Comment:    m.DocComment,
		}
		for i, p := range m.Params {
			param := &decl.Parameter{
				Name:     strings.TrimPrefix(p.Name, "$"),
				Position: i,
				Type:     ConvertType(p.Type),
				Optional: p.Optional || p.Variadic,
				Variadic: p.Variadic,
				ByRef:    p.ByRef,
				Promoted: p.Promoted,
			}
			if p.Optional && !p.Variadic {
				param.DefaultValue = ValueType(p.Default)
			}
			method.Parameters = append(method.Parameters, param)
		}
		class.Methods[m.Name] = method
	}

	for _, p := range info.Properties {
		prop := &decl.Property{
			Name:       strings.TrimPrefix(p.Name, "$"),
			Visibility: visibility(p.Visibility),
			Static:     p.Static,
			Readonly:   p.Readonly,
			Type:       ConvertType(p.Type),
			Comment:    p.DocComment,
		}
		if p.HasDefault {
			prop.DefaultValue = ValueType(p.Default)
		}
		class.Properties[prop.Name] = prop
	}

	return class
}

// ConvertType maps a reflection type descriptor to a Type. Intersections
// have no variant of their own and become mixed. A nil descriptor yields nil.
func ConvertType(ti *TypeInfo) *types.Type {
	if ti == nil {
		return nil
	}

	switch {
	case len(ti.Intersection) > 0:
		return types.Mixed().WithNullable(ti.Nullable)
	case len(ti.Union) > 0:
		var members []*types.Type
		nullable := ti.Nullable
		for i := range ti.Union {
			if strings.EqualFold(ti.Union[i].Name, "null") {
				nullable = true
				continue
			}
			if t := ConvertType(&ti.Union[i]); t != nil {
				members = append(members, t)
			}
		}
		merged := types.Merge(members...)
		if nullable {
			merged.Nullable = true
		}
		return merged
	}

	t := types.Parse(ti.Name)
	if t == nil {
		return nil
	}
	if ti.Nullable {
		t.Nullable = true
	}
	return t
}

// ValueType returns the type of a decoded default value.
func ValueType(v any) *types.Type {
	switch val := v.(type) {
	case nil:
		return types.Mixed().WithNullable(true)
	case bool:
		return types.Bool()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.Int()
	case float32, float64:
		return types.Float()
	case string:
		return types.String()
	case []any:
		if len(val) == 0 {
			return types.ArrayOf(nil, types.Mixed())
		}
		values := make([]*types.Type, len(val))
		for i, item := range val {
			values[i] = ValueType(item)
		}
		return types.ArrayOf(nil, types.Merge(values...))
	case map[string]any:
		if len(val) == 0 {
			return types.ArrayOf(nil, types.Mixed())
		}
		values := make([]*types.Type, 0, len(val))
		for _, item := range val {
			values = append(values, ValueType(item))
		}
		return types.ArrayOf(types.String(), types.Merge(values...))
	}
	return types.Mixed()
}

func visibility(v string) decl.Visibility {
	switch decl.Visibility(strings.ToLower(v)) {
	case decl.Private:
		return decl.Private
	case decl.Protected:
		return decl.Protected
	}
	return decl.Public
}
