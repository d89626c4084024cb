// Package docblock parses PHPDoc comment blocks into a summary, a free-text
// description and a list of tags. Tag grammars are looked up in a
// registration table so new tags can be supported without touching the
// line scanner.
//
// Parsing never fails: a tag whose content does not match its grammar is
// kept with Parsed set to false and its raw content intact.
package docblock

import (
	"strings"

	"github.com/hargabyte/apishape/internal/types"
)

// Comment is a parsed documentation comment.
type Comment struct {
	Summary     string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []Tag  `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Tag is one @name entry.
type Tag struct {
	Name string `json:"name" yaml:"name"`
	Raw  string `json:"raw,omitempty" yaml:"raw,omitempty"`

	// Fields below are filled by the tag's grammar, when it has one.
	TypeExpr    string      `json:"type_expr,omitempty" yaml:"type_expr,omitempty"`
	Type        *types.Type `json:"type,omitempty" yaml:"type,omitempty"`
	Variable    string      `json:"variable,omitempty" yaml:"variable,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	Variadic    bool        `json:"variadic,omitempty" yaml:"variadic,omitempty"`
	ByRef       bool        `json:"by_ref,omitempty" yaml:"by_ref,omitempty"`
	Parsed      bool        `json:"parsed" yaml:"parsed"`
}

// TagFunc fills the structured fields of tag from tag.Raw. It reports
// whether the content matched the grammar.
type TagFunc func(tag *Tag) bool

// Parser parses comments using a table of tag grammars.
type Parser struct {
	grammars map[string]TagFunc
}

// NewParser returns a parser with the built-in tag grammars registered.
func NewParser() *Parser {
	p := &Parser{grammars: make(map[string]TagFunc)}
	p.Register("param", parseVariableTag)
	p.Register("property", parseVariableTag)
	p.Register("property-read", parseVariableTag)
	p.Register("property-write", parseVariableTag)
	p.Register("return", parseTypeTag)
	p.Register("var", parseVarTag)
	p.Register("throws", parseThrowsTag)
	return p
}

// Register installs or replaces the grammar for a tag name (without the @).
func (p *Parser) Register(name string, fn TagFunc) {
	p.grammars[strings.ToLower(name)] = fn
}

// Registered reports whether a grammar exists for name.
func (p *Parser) Registered(name string) bool {
	_, ok := p.grammars[strings.ToLower(name)]
	return ok
}

var defaultParser = NewParser()

// Parse parses text with the default tag grammars.
func Parse(text string) *Comment {
	return defaultParser.Parse(text)
}

// Parse parses a raw comment block. Empty input yields an empty Comment.
func (p *Parser) Parse(text string) *Comment {
	c := &Comment{}
	var (
		desc    []string
		current *Tag
		content []string
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Raw = strings.TrimSpace(strings.Join(content, "\n"))
		p.apply(current)
		c.Tags = append(c.Tags, *current)
		current = nil
		content = nil
	}

	for _, line := range cleanLines(text) {
		switch {
		case strings.HasPrefix(line, "@"):
			flush()
			name, rest := splitTagLine(line)
			current = &Tag{Name: name}
			content = []string{rest}
		case current != nil:
			if line == "" {
				flush()
				continue
			}
			content = append(content, line)
		case c.Summary == "":
			c.Summary = line
		default:
			desc = append(desc, line)
		}
	}
	flush()

	c.Description = strings.TrimSpace(strings.Join(desc, "\n"))
	return c
}

// apply runs the registered grammar for tag, if any.
func (p *Parser) apply(tag *Tag) {
	fn, ok := p.grammars[strings.ToLower(tag.Name)]
	if !ok {
		return
	}
	tag.Parsed = fn(tag)
	if !tag.Parsed {
		tag.TypeExpr = ""
		tag.Type = nil
		tag.Variable = ""
		tag.Description = ""
		tag.Variadic = false
		tag.ByRef = false
	}
}

// cleanLines strips comment delimiters and leading * markers.
func cleanLines(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimPrefix(text, "/*")
	text = strings.TrimSuffix(text, "*/")

	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if strings.HasPrefix(l, "*") {
			l = strings.TrimSpace(strings.TrimLeft(l, "*"))
		} else if strings.HasPrefix(l, "//") {
			l = strings.TrimSpace(strings.TrimPrefix(l, "//"))
		}
		lines = append(lines, l)
	}

	// Trim leading and trailing blank lines.
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitTagLine splits "@name rest" into its name and content.
func splitTagLine(line string) (string, string) {
	line = strings.TrimPrefix(line, "@")
	end := strings.IndexAny(line, " \t(")
	if end < 0 {
		return line, ""
	}
	return line[:end], strings.TrimSpace(line[end:])
}

// Tagged returns every tag with the given name, in order.
func (c *Comment) Tagged(name string) []Tag {
	if c == nil {
		return nil
	}
	var out []Tag
	for _, t := range c.Tags {
		if strings.EqualFold(t.Name, name) {
			out = append(out, t)
		}
	}
	return out
}

// Param returns the parsed @param tag for variable name (with or without $).
func (c *Comment) Param(name string) (Tag, bool) {
	name = strings.TrimPrefix(name, "$")
	for _, t := range c.Tagged("param") {
		if t.Parsed && t.Variable == name {
			return t, true
		}
	}
	return Tag{}, false
}

// Return returns the first parsed @return tag.
func (c *Comment) Return() (Tag, bool) {
	for _, t := range c.Tagged("return") {
		if t.Parsed {
			return t, true
		}
	}
	return Tag{}, false
}

// Var returns the @var tag for name. A @var without a variable name matches
// any name.
func (c *Comment) Var(name string) (Tag, bool) {
	name = strings.TrimPrefix(name, "$")
	for _, t := range c.Tagged("var") {
		if t.Parsed && (t.Variable == "" || t.Variable == name) {
			return t, true
		}
	}
	return Tag{}, false
}

// Throws returns the exception types named by @throws tags.
func (c *Comment) Throws() []string {
	var out []string
	for _, t := range c.Tagged("throws") {
		if t.Parsed {
			out = append(out, t.TypeExpr)
		}
	}
	return out
}
