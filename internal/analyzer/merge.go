package analyzer

import (
	"strings"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/docblock"
	"github.com/hargabyte/apishape/internal/types"
)

// pick applies the type precedence: declared syntax, then doc comment, then
// reflection. When all three are absent the field stays unset.
func pick(syntax, doc, reflected *types.Type) *types.Type {
	switch {
	case syntax != nil:
		return syntax.Clone()
	case doc != nil:
		return doc.Clone()
	case reflected != nil:
		return reflected.Clone()
	}
	return nil
}

// merger combines source and reflection declarations. It never mutates its
// inputs.
type merger struct {
	docs *docblock.Parser
}

func (m *merger) parse(comment string) *docblock.Comment {
	if comment == "" {
		return nil
	}
	return m.docs.Parse(comment)
}

// mergeClass merges a source declaration with a reflected one. Either may
// be nil; the member sets are the union of both.
func (m *merger) mergeClass(src, refl *decl.Class) *decl.Class {
	if src == nil && refl == nil {
		return nil
	}

	base := src
	if base == nil {
		base = refl
	}
	out := base.Clone()
	out.Methods = make(map[string]*decl.Method)
	out.Properties = make(map[string]*decl.Property)
	out.Constants = make(map[string]*decl.Constant)

	if refl != nil {
		if out.Parent == "" {
			out.Parent = refl.Parent
		}
		if len(out.Interfaces) == 0 {
			out.Interfaces = append(out.Interfaces, refl.Interfaces...)
		}
		if len(out.Traits) == 0 {
			out.Traits = append(out.Traits, refl.Traits...)
		}
		if out.Comment == "" {
			out.Comment = refl.Comment
		}
		if out.File == "" {
			out.File = refl.File
		}
	}

	// Methods.
	var srcMethods, reflMethods map[string]*decl.Method
	if src != nil {
		srcMethods = src.Methods
	}
	if refl != nil {
		reflMethods = refl.Methods
	}
	for name, sm := range srcMethods {
		merged := m.mergeFunction(sm, findMethod(reflMethods, name))
		merged.Class = out.Name
		out.Methods[name] = merged
	}
	for name, rm := range reflMethods {
		if findMethod(srcMethods, name) != nil {
			continue
		}
		merged := m.mergeFunction(nil, rm)
		merged.Class = out.Name
		out.Methods[name] = merged
	}

	// Properties.
	var srcProps, reflProps map[string]*decl.Property
	if src != nil {
		srcProps = src.Properties
	}
	if refl != nil {
		reflProps = refl.Properties
	}
	for name, sp := range srcProps {
		out.Properties[name] = m.mergeProperty(sp, reflProps[name])
	}
	for name, rp := range reflProps {
		if _, ok := srcProps[name]; !ok {
			out.Properties[name] = m.mergeProperty(nil, rp)
		}
	}
	m.applyPromotedDocs(out)
	m.applyMagicProperties(out)

	// Constants.
	if refl != nil {
		for name, c := range refl.Constants {
			out.Constants[name] = c.Clone()
		}
	}
	if src != nil {
		for name, c := range src.Constants {
			cp := c.Clone()
			if cp.Type == nil && refl != nil {
				if rc, ok := refl.Constants[name]; ok {
					cp.Type = rc.Type.Clone()
				}
			}
			out.Constants[name] = cp
		}
	}

	return out
}

// mergeFunction merges a source function or method with its reflected
// counterpart. Either may be nil, not both.
func (m *merger) mergeFunction(src, refl *decl.Function) *decl.Function {
	base := src
	if base == nil {
		base = refl
	}

	out := &decl.Function{
		Name:       base.Name,
		Class:      base.Class,
		Visibility: base.Visibility,
		Modifiers:  base.Modifiers,
		ByRef:      base.ByRef,
		Comment:    base.Comment,
		StartLine:  base.StartLine,
		EndLine:    base.EndLine,
	}
	if out.Comment == "" && refl != nil {
		out.Comment = refl.Comment
	}
	doc := m.parse(out.Comment)

	var srcReturn, reflReturn, docReturn *types.Type
	if src != nil {
		srcReturn = src.ReturnType
	}
	if refl != nil {
		reflReturn = refl.ReturnType
	}
	if tag, ok := doc.Return(); ok {
		docReturn = tag.Type
	}
	out.ReturnType = pick(srcReturn, docReturn, reflReturn)

	for _, p := range base.Parameters {
		var srcParam, reflParam *decl.Parameter
		if src != nil {
			srcParam = p
		}
		if refl != nil {
			reflParam = refl.Parameter(p.Name)
			if reflParam == nil && p.Position < len(refl.Parameters) {
				reflParam = refl.Parameters[p.Position]
			}
		}
		out.Parameters = append(out.Parameters, mergeParameter(srcParam, reflParam, doc))
	}

	return out
}

// mergeParameter merges one parameter. src and refl may not both be nil.
func mergeParameter(src, refl *decl.Parameter, doc *docblock.Comment) *decl.Parameter {
	base := src
	if base == nil {
		base = refl
	}
	out := base.Clone()

	var srcType, reflType, docType *types.Type
	if src != nil {
		srcType = src.Type
	}
	if refl != nil {
		reflType = refl.Type
	}
	if tag, ok := doc.Param(base.Name); ok {
		docType = tag.Type
	}
	out.Type = pick(srcType, docType, reflType)

	if out.DefaultValue == nil && refl != nil && out.Optional && !out.Variadic {
		out.DefaultValue = refl.DefaultValue.Clone()
	}
	return out
}

// mergeProperty merges one property. src and refl may not both be nil.
func (m *merger) mergeProperty(src, refl *decl.Property) *decl.Property {
	base := src
	if base == nil {
		base = refl
	}
	out := base.Clone()
	if out.Comment == "" && refl != nil {
		out.Comment = refl.Comment
	}

	var srcType, reflType, docType *types.Type
	if src != nil {
		srcType = src.Type
	}
	if refl != nil {
		reflType = refl.Type
		if out.DefaultValue == nil {
			out.DefaultValue = refl.DefaultValue.Clone()
		}
	}
	if tag, ok := m.parse(out.Comment).Var(out.Name); ok {
		docType = tag.Type
	}
	out.Type = pick(srcType, docType, reflType)
	return out
}

// applyPromotedDocs types untyped promoted properties from the constructor's
// @param tags.
func (m *merger) applyPromotedDocs(class *decl.Class) {
	ctor := findMethod(class.Methods, "__construct")
	if ctor == nil {
		return
	}
	var doc *docblock.Comment
	for _, p := range ctor.Parameters {
		prop, ok := class.Properties[p.Name]
		if !p.Promoted || !ok || prop.Type != nil {
			continue
		}
		if doc == nil {
			doc = m.parse(ctor.Comment)
		}
		if tag, ok := doc.Param(p.Name); ok && tag.Type != nil {
			prop.Type = tag.Type.Clone()
		}
	}
}

// applyMagicProperties adds properties declared only through @property,
// @property-read and @property-write tags on the class.
func (m *merger) applyMagicProperties(class *decl.Class) {
	doc := m.parse(class.Comment)
	if doc == nil {
		return
	}
	for _, name := range []string{"property", "property-read", "property-write"} {
		for _, tag := range doc.Tagged(name) {
			if !tag.Parsed || tag.Variable == "" {
				continue
			}
			if _, ok := class.Properties[tag.Variable]; ok {
				continue
			}
			class.Properties[tag.Variable] = &decl.Property{
				Name:       tag.Variable,
				Visibility: decl.Public,
				Readonly:   name == "property-read",
				Type:       tag.Type.Clone(),
			}
		}
	}
}

// findMethod looks a method up by name. PHP method names are
// case-insensitive.
func findMethod(methods map[string]*decl.Method, name string) *decl.Method {
	if m, ok := methods[name]; ok {
		return m
	}
	for k, m := range methods {
		if strings.EqualFold(k, name) {
			return m
		}
	}
	return nil
}
