package docblock

import (
	"strings"
	"unicode"

	"github.com/hargabyte/apishape/internal/types"
)

// parseVariableTag handles "<type> $name [description]".
func parseVariableTag(tag *Tag) bool {
	expr, rest := splitTypeToken(tag.Raw)
	if expr == "" || strings.HasPrefix(expr, "$") || strings.HasPrefix(expr, "...$") || strings.HasPrefix(expr, "&$") {
		return false
	}

	name, desc := splitWord(rest)
	if !setVariable(tag, name) {
		return false
	}

	tag.TypeExpr = expr
	tag.Type = types.Parse(expr)
	tag.Description = desc
	return tag.Type != nil
}

// parseVarTag handles "<type> [$name] [description]".
func parseVarTag(tag *Tag) bool {
	expr, rest := splitTypeToken(tag.Raw)
	if expr == "" || strings.HasPrefix(expr, "$") {
		return false
	}
	tag.TypeExpr = expr
	tag.Type = types.Parse(expr)

	name, desc := splitWord(rest)
	if !setVariable(tag, name) {
		desc = rest
	}
	tag.Description = desc
	return tag.Type != nil
}

// parseTypeTag handles "<type> [description]".
func parseTypeTag(tag *Tag) bool {
	expr, rest := splitTypeToken(tag.Raw)
	if expr == "" {
		return false
	}
	tag.TypeExpr = expr
	tag.Type = types.Parse(expr)
	tag.Description = rest
	return tag.Type != nil
}

// parseThrowsTag handles "<ExceptionType> [description]".
func parseThrowsTag(tag *Tag) bool {
	expr, rest := splitTypeToken(tag.Raw)
	if expr == "" {
		return false
	}
	tag.TypeExpr = strings.TrimPrefix(expr, `\`)
	tag.Type = types.Parse(expr)
	tag.Description = rest
	return true
}

// setVariable records a "$name", "...$name" or "&$name" token on tag.
func setVariable(tag *Tag, token string) bool {
	if strings.HasPrefix(token, "...") {
		tag.Variadic = true
		token = token[3:]
	}
	if strings.HasPrefix(token, "&") {
		tag.ByRef = true
		token = token[1:]
	}
	if !strings.HasPrefix(token, "$") || len(token) < 2 {
		tag.Variadic = false
		tag.ByRef = false
		return false
	}
	tag.Variable = strings.TrimRight(token[1:], ",;")
	return true
}

// splitTypeToken reads a type expression that may contain spaces inside
// brackets ("array<string, int>") and returns it with the remaining text.
func splitTypeToken(s string) (string, string) {
	s = strings.TrimSpace(s)
	depth := 0
	for i, r := range s {
		switch r {
		case '<', '(', '{', '[':
			depth++
		case '>', ')', '}', ']':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 && unicode.IsSpace(r) {
				return s[:i], strings.TrimSpace(s[i:])
			}
		}
	}
	return s, ""
}

// splitWord returns the first whitespace-delimited word and the rest.
func splitWord(s string) (string, string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}
