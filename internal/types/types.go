// Package types defines the closed type lattice shared by every analysis stage.
//
// A Type is a tagged value: Kind selects which payload fields are meaningful.
// Nullability is carried on the outermost Type only. Union members are never
// nullable themselves; Merge hoists any member nullability onto the result.
package types

import (
	"sort"
	"strings"
)

// Kind discriminates the Type variants.
type Kind uint8

const (
	// KindScalar is one of the four scalar kinds.
	KindScalar Kind = iota + 1
	// KindArray is a keyed or positional container.
	KindArray
	// KindNamed is a class, interface or the mixed sentinel.
	KindNamed
	// KindUnion is two or more alternatives.
	KindUnion
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindArray:
		return "array"
	case KindNamed:
		return "named"
	case KindUnion:
		return "union"
	default:
		return "invalid"
	}
}

// Scalar identifies a scalar kind.
type Scalar string

const (
	ScalarInt    Scalar = "int"
	ScalarFloat  Scalar = "float"
	ScalarString Scalar = "string"
	ScalarBool   Scalar = "bool"
)

// MixedName is the sentinel name used for "any value".
const MixedName = "mixed"

// Type is one element of the lattice.
type Type struct {
	Kind     Kind
	Scalar   Scalar  // KindScalar
	Name     string  // KindNamed
	Key      *Type   // KindArray, nil means implicit int keys
	Value    *Type   // KindArray
	Members  []*Type // KindUnion
	Nullable bool
}

// Int returns the int scalar.
func Int() *Type { return &Type{Kind: KindScalar, Scalar: ScalarInt} }

// Float returns the float scalar.
func Float() *Type { return &Type{Kind: KindScalar, Scalar: ScalarFloat} }

// String returns the string scalar.
func String() *Type { return &Type{Kind: KindScalar, Scalar: ScalarString} }

// Bool returns the bool scalar.
func Bool() *Type { return &Type{Kind: KindScalar, Scalar: ScalarBool} }

// Mixed returns Named(mixed).
func Mixed() *Type { return &Type{Kind: KindNamed, Name: MixedName} }

// Named returns a named type. A leading namespace separator is dropped.
func Named(name string) *Type {
	name = strings.TrimPrefix(name, `\`)
	if strings.EqualFold(name, MixedName) {
		return Mixed()
	}
	return &Type{Kind: KindNamed, Name: name}
}

// ArrayOf returns a container type. A nil value is treated as mixed. A
// non-nullable int key is the implicit key and is stored as nil, so int[] and
// array<int, int> build the same value.
func ArrayOf(key, value *Type) *Type {
	if value == nil {
		value = Mixed()
	}
	if isImplicitKey(key) {
		key = nil
	}
	return &Type{Kind: KindArray, Key: key, Value: value}
}

func isImplicitKey(k *Type) bool {
	return k == nil || (k.Kind == KindScalar && k.Scalar == ScalarInt && !k.Nullable)
}

// Union builds a union of the given members using Merge semantics, so the
// result may collapse to a single variant.
func Union(members ...*Type) *Type {
	return Merge(members...)
}

// IsMixed reports whether t is the non-nullable or nullable mixed sentinel.
func (t *Type) IsMixed() bool {
	return t != nil && t.Kind == KindNamed && t.Name == MixedName
}

// WithNullable returns a copy of t with the nullable flag set to n.
func (t *Type) WithNullable(n bool) *Type {
	if t == nil {
		return nil
	}
	c := t.Clone()
	c.Nullable = n
	return c
}

// Clone returns a deep copy of t.
func (t *Type) Clone() *Type {
	if t == nil {
		return nil
	}
	c := *t
	c.Key = t.Key.Clone()
	c.Value = t.Value.Clone()
	if t.Members != nil {
		c.Members = make([]*Type, len(t.Members))
		for i, m := range t.Members {
			c.Members[i] = m.Clone()
		}
	}
	return &c
}

// Merge combines candidate types into one. An empty input yields mixed, equal
// inputs yield that input, and anything else yields a flattened union of the
// distinct alternatives. nil entries are skipped.
func Merge(ts ...*Type) *Type {
	var (
		members  []*Type
		nullable bool
	)

	var add func(t *Type)
	add = func(t *Type) {
		if t == nil {
			return
		}
		if t.Nullable {
			nullable = true
		}
		if t.Kind == KindUnion {
			for _, m := range t.Members {
				add(m)
			}
			return
		}
		m := t.WithNullable(false)
		for _, existing := range members {
			if Equal(existing, m) {
				return
			}
		}
		members = append(members, m)
	}

	for _, t := range ts {
		add(t)
	}

	switch len(members) {
	case 0:
		if nullable {
			return Mixed().WithNullable(true)
		}
		return Mixed()
	case 1:
		members[0].Nullable = nullable
		return members[0]
	}

	return &Type{Kind: KindUnion, Members: members, Nullable: nullable}
}

// Equal reports structural equality. Union members compare as sets.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Nullable != b.Nullable {
		return false
	}

	switch a.Kind {
	case KindScalar:
		return a.Scalar == b.Scalar
	case KindNamed:
		return strings.EqualFold(a.Name, b.Name)
	case KindArray:
		if isImplicitKey(a.Key) != isImplicitKey(b.Key) {
			return false
		}
		if !isImplicitKey(a.Key) && !Equal(a.Key, b.Key) {
			return false
		}
		return Equal(a.Value, b.Value)
	case KindUnion:
		if len(a.Members) != len(b.Members) {
			return false
		}
	outer:
		for _, am := range a.Members {
			for _, bm := range b.Members {
				if Equal(am, bm) {
					continue outer
				}
			}
			return false
		}
		return true
	}
	return false
}

// String renders t in the same grammar accepted by Parse. Union members are
// sorted so the rendering does not depend on member order.
func (t *Type) String() string {
	if t == nil {
		return ""
	}

	var body string
	switch t.Kind {
	case KindScalar:
		body = string(t.Scalar)
	case KindNamed:
		body = t.Name
	case KindArray:
		switch {
		case !isImplicitKey(t.Key):
			body = "array<" + t.Key.String() + ", " + t.Value.String() + ">"
		case t.Value == nil || (t.Value.IsMixed() && !t.Value.Nullable):
			body = "array"
		default:
			body = "array<" + t.Value.String() + ">"
		}
	case KindUnion:
		parts := make([]string, len(t.Members))
		for i, m := range t.Members {
			parts[i] = m.String()
		}
		sort.Strings(parts)
		if t.Nullable {
			parts = append(parts, "null")
		}
		return strings.Join(parts, "|")
	default:
		return ""
	}

	if t.Nullable {
		return "?" + body
	}
	return body
}

// MarshalText implements encoding.TextMarshaler.
func (t *Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Type) UnmarshalText(text []byte) error {
	parsed := Parse(string(text))
	if parsed == nil {
		*t = Type{}
		return nil
	}
	*t = *parsed
	return nil
}
