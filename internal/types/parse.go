package types

import "strings"

// scalarAliases maps type keywords to their scalar kind.
var scalarAliases = map[string]Scalar{
	"int":     ScalarInt,
	"integer": ScalarInt,
	"float":   ScalarFloat,
	"double":  ScalarFloat,
	"string":  ScalarString,
	"bool":    ScalarBool,
	"boolean": ScalarBool,
	"true":    ScalarBool,
	"false":   ScalarBool,
}

// Parse converts a type expression such as "?int|string", "array<int>",
// "Foo[]" or "array<string, Bar>" into a Type. An empty expression yields
// nil so callers can keep a field unset.
func Parse(expr string) *Type {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}

	nullable := false
	if strings.HasPrefix(expr, "?") {
		nullable = true
		expr = strings.TrimSpace(expr[1:])
		if expr == "" {
			return nil
		}
	}

	if alts := splitTopLevel(expr, '|'); len(alts) > 1 {
		var parsed []*Type
		for _, alt := range alts {
			alt = strings.TrimSpace(alt)
			if strings.EqualFold(alt, "null") {
				nullable = true
				continue
			}
			if t := Parse(alt); t != nil {
				parsed = append(parsed, t)
			}
		}
		merged := Merge(parsed...)
		if nullable {
			merged.Nullable = true
		}
		return merged
	}

	// Intersections have no variant of their own.
	if parts := splitTopLevel(expr, '&'); len(parts) > 1 {
		return Mixed().WithNullable(nullable)
	}

	t := parseAtom(expr)
	if t == nil {
		return nil
	}
	if nullable {
		t.Nullable = true
	}
	return t
}

// parseAtom handles everything that is not a union or intersection.
func parseAtom(expr string) *Type {
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") && closes(expr) {
		return Parse(expr[1 : len(expr)-1])
	}

	if strings.HasSuffix(expr, "[]") {
		inner := Parse(strings.TrimSuffix(expr, "[]"))
		if inner == nil {
			inner = Mixed()
		}
		return ArrayOf(nil, inner)
	}

	lower := strings.ToLower(expr)

	if open := strings.IndexByte(expr, '<'); open > 0 && strings.HasSuffix(expr, ">") {
		base := strings.ToLower(strings.TrimSpace(expr[:open]))
		args := splitTopLevel(expr[open+1:len(expr)-1], ',')
		switch base {
		case "array", "list", "iterable", "non-empty-array", "non-empty-list":
			switch len(args) {
			case 1:
				return ArrayOf(nil, orMixed(Parse(args[0])))
			case 2:
				return ArrayOf(Parse(args[0]), orMixed(Parse(args[1])))
			}
			return ArrayOf(nil, Mixed())
		}
		// Other generics (Collection<Foo>) keep their base name.
		return Named(strings.TrimSpace(expr[:open]))
	}

	if strings.HasPrefix(lower, "array{") || strings.HasPrefix(lower, "list{") {
		return ArrayOf(nil, Mixed())
	}

	if s, ok := scalarAliases[lower]; ok {
		return &Type{Kind: KindScalar, Scalar: s}
	}

	switch lower {
	case "array", "list", "iterable":
		return ArrayOf(nil, Mixed())
	case "null":
		return Mixed().WithNullable(true)
	case MixedName:
		return Mixed()
	}

	return Named(expr)
}

func orMixed(t *Type) *Type {
	if t == nil {
		return Mixed()
	}
	return t
}

// splitTopLevel splits s on sep, ignoring separators nested inside <>, (), {} or [].
func splitTopLevel(s string, sep byte) []string {
	var (
		parts []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(', '{', '[':
			depth++
		case '>', ')', '}', ']':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// closes reports whether the opening parenthesis at s[0] is matched by the
// final byte of s.
func closes(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i == len(s)-1
			}
		}
	}
	return false
}
