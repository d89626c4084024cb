package lsp

import (
	"fmt"
	"strings"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/output"
)

// WordAt returns the PHP name under a zero-based line and character
// position. Names may carry namespace separators and a leading '$'.
func WordAt(content []byte, line, char int) string {
	lines := strings.Split(string(content), "\n")
	if line < 0 || line >= len(lines) {
		return ""
	}
	text := lines[line]
	if char < 0 || char > len(text) {
		return ""
	}

	start := char
	for start > 0 && isNameByte(text[start-1]) {
		start--
	}
	end := char
	for end < len(text) && isNameByte(text[end]) {
		end++
	}
	if start == end {
		return ""
	}
	if start > 0 && text[start-1] == '$' {
		start--
	}
	return strings.TrimRight(text[start:end], `\`)
}

func isNameByte(b byte) bool {
	return b == '_' || b == '\\' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// describeInFile matches word against the declarations of f. Classes match
// by full or short name, members by name, properties with or without '$'.
func describeInFile(f *decl.File, word string) string {
	if f == nil {
		return ""
	}
	bare := strings.TrimPrefix(word, "$")
	short := bare
	if i := strings.LastIndexByte(bare, '\\'); i >= 0 {
		short = bare[i+1:]
	}

	if !strings.HasPrefix(word, "$") {
		for _, name := range f.ClassNames() {
			c := f.Classes[name]
			if strings.EqualFold(strings.TrimPrefix(bare, `\`), c.Name) || strings.EqualFold(short, shortName(c.Name)) {
				return describeClass(c)
			}
		}
	}

	for _, name := range f.ClassNames() {
		c := f.Classes[name]
		if p, ok := c.Properties[bare]; ok {
			return describeProperty(c, p)
		}
		if strings.HasPrefix(word, "$") {
			continue
		}
		for mname, m := range c.Methods {
			if strings.EqualFold(mname, bare) {
				return describeMethod(c, m)
			}
		}
		if k, ok := c.Constants[bare]; ok {
			return describeConstant(c, k)
		}
	}

	if !strings.HasPrefix(word, "$") {
		for name, fn := range f.Functions {
			if strings.EqualFold(shortName(name), short) {
				return codeBlock(fmt.Sprintf("function %s%s", name, output.Signature(fn)))
			}
		}
	}
	return ""
}

func describeClass(c *decl.Class) string {
	var sb strings.Builder
	header := string(c.Kind) + " " + c.Name
	if c.Modifiers.Abstract {
		header = "abstract " + header
	}
	if c.Modifiers.Final {
		header = "final " + header
	}
	if c.Parent != "" {
		header += " extends " + c.Parent
	}
	if len(c.Interfaces) > 0 {
		keyword := " implements "
		if c.Kind == decl.KindInterface {
			keyword = " extends "
		}
		header += keyword + strings.Join(c.Interfaces, ", ")
	}
	sb.WriteString(header)

	view := output.FromClass(c, output.Options{PublicOnly: true})
	for _, name := range output.SortedKeys(view.Properties) {
		if t := view.Properties[name].Type; t != "" {
			fmt.Fprintf(&sb, "\n    %s $%s", t, name)
		} else {
			fmt.Fprintf(&sb, "\n    $%s", name)
		}
	}
	for _, name := range output.SortedKeys(view.Methods) {
		fmt.Fprintf(&sb, "\n    %s%s", name, view.Methods[name].Signature)
	}
	return codeBlock(sb.String())
}

func describeMethod(c *decl.Class, m *decl.Method) string {
	prefix := string(m.Visibility)
	if m.Modifiers.Static {
		prefix += " static"
	}
	return codeBlock(fmt.Sprintf("%s function %s::%s%s", prefix, shortName(c.Name), m.Name, output.Signature(m)))
}

func describeProperty(c *decl.Class, p *decl.Property) string {
	parts := []string{string(p.Visibility)}
	if p.Static {
		parts = append(parts, "static")
	}
	if p.Readonly {
		parts = append(parts, "readonly")
	}
	if p.Type != nil {
		parts = append(parts, p.Type.String())
	}
	parts = append(parts, shortName(c.Name)+"::$"+p.Name)
	return codeBlock(strings.Join(parts, " "))
}

func describeConstant(c *decl.Class, k *decl.Constant) string {
	text := "const " + shortName(c.Name) + "::" + k.Name
	if k.Type != nil {
		text = "const " + k.Type.String() + " " + shortName(c.Name) + "::" + k.Name
	}
	if k.Value != "" {
		text += " = " + k.Value
	}
	return codeBlock(text)
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func codeBlock(s string) string {
	return "```php\n" + s + "\n```"
}
