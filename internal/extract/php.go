package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hargabyte/apishape/internal/decl"
	"github.com/hargabyte/apishape/internal/infer"
	"github.com/hargabyte/apishape/internal/parser"
	"github.com/hargabyte/apishape/internal/types"
)

// Walker collects declarations from a parsed PHP file.
type Walker struct {
	result   *parser.ParseResult
	engine   *infer.Engine
	basePath string
}

// NewWalker creates a walker for the given parse result. Default values and
// constant values are typed with engine; a nil engine gets a fresh one.
func NewWalker(result *parser.ParseResult, engine *infer.Engine) *Walker {
	if engine == nil {
		engine = infer.New()
	}
	return &Walker{
		result: result,
		engine: engine,
	}
}

// NewWalkerWithBase creates a walker that records file paths relative to
// basePath.
func NewWalkerWithBase(result *parser.ParseResult, engine *infer.Engine, basePath string) *Walker {
	w := NewWalker(result, engine)
	w.basePath = basePath
	return w
}

// Walk returns every class-like declaration and free function in the file.
// Syntax errors do not stop the walk; whatever the partial tree holds is
// collected and the errors are attached to the file.
func (w *Walker) Walk() *decl.File {
	file := decl.NewFile(w.getFilePath())
	file.Errors = append(file.Errors, w.result.Errors...)
	if w.result.Root == nil {
		return file
	}
	w.walkScope(w.result.Root, "", file)
	return file
}

// walkScope visits the statements of one scope. A statement-form namespace
// applies to the siblings that follow it; a braced namespace applies to its
// body only.
func (w *Walker) walkScope(node *sitter.Node, namespace string, file *decl.File) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)

		if parser.IsClassLike(child) {
			if class := w.extractClass(child, namespace); class != nil {
				file.Classes[class.Name] = class
			}
			continue
		}

		switch child.Type() {
		case parser.KindNamespace:
			name := ""
			if nameNode := findChildByFieldName(child, "name"); nameNode != nil {
				name = w.nodeText(nameNode)
			}
			if file.Namespace == "" {
				file.Namespace = name
			}
			if body := findChildByFieldName(child, "body"); body != nil {
				w.walkScope(body, name, file)
			} else {
				namespace = name
			}

		case parser.KindFunction:
			if fn := w.extractFunction(child, namespace); fn != nil {
				file.Functions[fn.Name] = fn
			}

		case parser.KindMethod, "anonymous_class", "anonymous_function",
			"anonymous_function_creation_expression", "arrow_function":
			// Bodies of these never declare file-level entities we report.

		default:
			// Conditional declarations live inside if/else blocks.
			w.walkScope(child, namespace, file)
		}
	}
}

// extractClass builds a declaration for a class, interface, trait or enum.
func (w *Walker) extractClass(node *sitter.Node, namespace string) *decl.Class {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return nil
	}

	kind := decl.KindClass
	switch node.Type() {
	case parser.KindInterface:
		kind = decl.KindInterface
	case parser.KindTrait:
		kind = decl.KindTrait
	case parser.KindEnum:
		kind = decl.KindEnum
	}

	class := decl.NewClass(qualify(namespace, w.nodeText(nameNode)), kind)
	class.File = w.getFilePath()
	class.Comment = w.extractPrecedingComment(node)
	class.StartLine, class.EndLine = getLineRange(node)

	modifiers := w.extractPHPModifiers(node)
	class.Modifiers = decl.Modifiers{
		Abstract: containsString(modifiers, "abstract"),
		Final:    containsString(modifiers, "final"),
		Readonly: containsString(modifiers, "readonly"),
	}

	// For interfaces the base clause lists extended interfaces.
	if base := findChildByType(node, "base_clause"); base != nil {
		names := w.extractInterfaceList(base)
		if kind == decl.KindInterface {
			class.Interfaces = append(class.Interfaces, names...)
		} else if len(names) > 0 {
			class.Parent = names[0]
		}
	}
	if clause := findChildByType(node, "class_interface_clause"); clause != nil {
		class.Interfaces = append(class.Interfaces, w.extractInterfaceList(clause)...)
	}

	body := findChildByFieldName(node, "body")
	if body == nil {
		body = findChildByType(node, "declaration_list")
	}
	if body == nil {
		body = findChildByType(node, "enum_declaration_list")
	}
	if body == nil {
		return class
	}

	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "use_declaration":
			class.Traits = append(class.Traits, w.extractUsedTraits(member)...)

		case parser.KindConst:
			for _, c := range w.extractClassConstants(member) {
				class.Constants[c.Name] = c
			}

		case "enum_case":
			if c := w.extractEnumCase(member, class.Name); c != nil {
				class.Constants[c.Name] = c
			}

		case parser.KindProperty:
			for _, p := range w.extractProperties(member) {
				class.Properties[p.Name] = p
			}

		case parser.KindMethod:
			method := w.extractMethod(member, class.Name)
			if method == nil {
				continue
			}
			if kind == decl.KindInterface {
				method.Modifiers.Abstract = true
			}
			class.Methods[method.Name] = method
			if strings.EqualFold(method.Name, "__construct") {
				for _, p := range w.extractPromotedProperties(member) {
					class.Properties[p.Name] = p
				}
			}
		}
	}

	return class
}

// extractFunction builds a declaration for a free function.
func (w *Walker) extractFunction(node *sitter.Node, namespace string) *decl.Function {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return nil
	}

	fn := &decl.Function{
		Name:       qualify(namespace, w.nodeText(nameNode)),
		Visibility: decl.Public,
		Parameters: w.extractPHPParameters(findChildByFieldName(node, "parameters")),
		ReturnType: w.extractPHPType(findChildByFieldName(node, "return_type")),
		ByRef:      hasReferenceModifier(node),
		Comment:    w.extractPrecedingComment(node),
	}
	fn.StartLine, fn.EndLine = getLineRange(node)
	return fn
}

// extractMethod builds a declaration for a method of className.
func (w *Walker) extractMethod(node *sitter.Node, className string) *decl.Method {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		return nil
	}

	modifiers := w.extractPHPModifiers(node)
	method := &decl.Method{
		Name:       w.nodeText(nameNode),
		Class:      className,
		Visibility: determinePHPVisibility(modifiers),
		Modifiers: decl.Modifiers{
			Abstract: containsString(modifiers, "abstract"),
			Final:    containsString(modifiers, "final"),
			Static:   containsString(modifiers, "static"),
		},
		Parameters: w.extractPHPParameters(findChildByFieldName(node, "parameters")),
		ReturnType: w.extractPHPType(findChildByFieldName(node, "return_type")),
		ByRef:      hasReferenceModifier(node),
		Comment:    w.extractPrecedingComment(node),
	}
	method.StartLine, method.EndLine = getLineRange(node)
	return method
}

// extractProperties returns one declaration per element of a property
// declaration ("public int $a = 1, $b;").
func (w *Walker) extractProperties(node *sitter.Node) []*decl.Property {
	modifiers := w.extractPHPModifiers(node)
	visibility := determinePHPVisibility(modifiers)
	static := containsString(modifiers, "static")
	readonly := containsString(modifiers, "readonly")
	comment := w.extractPrecedingComment(node)

	typeNode := findChildByFieldName(node, "type")
	if typeNode == nil {
		typeNode = findTypeChild(node)
	}
	declared := w.extractPHPType(typeNode)

	var props []*decl.Property
	for _, elem := range findChildrenByType(node, "property_element") {
		nameNode := findChildByFieldName(elem, "name")
		if nameNode == nil {
			nameNode = findChildByType(elem, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		prop := &decl.Property{
			Name:       strings.TrimPrefix(w.nodeText(nameNode), "$"),
			Visibility: visibility,
			Static:     static,
			Readonly:   readonly,
			Type:       declared.Clone(),
			Comment:    comment,
		}
		if value := findValueNode(elem); value != nil {
			prop.DefaultValue = w.infer(value)
		}
		props = append(props, prop)
	}
	return props
}

// extractPromotedProperties returns the properties a constructor declares
// through promoted parameters.
func (w *Walker) extractPromotedProperties(node *sitter.Node) []*decl.Property {
	params := findChildByFieldName(node, "parameters")
	if params == nil {
		return nil
	}

	var props []*decl.Property
	for _, p := range findChildrenByType(params, "property_promotion_parameter") {
		param := w.extractParameter(p, 0)
		if param.Name == "" {
			continue
		}
		modifiers := w.extractPHPModifiers(p)
		props = append(props, &decl.Property{
			Name:         param.Name,
			Visibility:   determinePHPVisibility(modifiers),
			Readonly:     containsString(modifiers, "readonly"),
			Type:         param.Type,
			DefaultValue: param.DefaultValue,
		})
	}
	return props
}

// extractClassConstants returns the constants of a const declaration.
func (w *Walker) extractClassConstants(node *sitter.Node) []*decl.Constant {
	visibility := determinePHPVisibility(w.extractPHPModifiers(node))

	var consts []*decl.Constant
	for _, elem := range findChildrenByType(node, "const_element") {
		nameNode := findChildByFieldName(elem, "name")
		if nameNode == nil {
			nameNode = findChildByType(elem, "name")
		}
		if nameNode == nil {
			continue
		}

		c := &decl.Constant{
			Name:       w.nodeText(nameNode),
			Visibility: visibility,
		}
		if value := findValueNode(elem); value != nil {
			c.Type = w.infer(value)
			c.Value = w.nodeText(value)
		} else if elem.NamedChildCount() > 1 {
			value := elem.NamedChild(int(elem.NamedChildCount()) - 1)
			c.Type = w.infer(value)
			c.Value = w.nodeText(value)
		}
		consts = append(consts, c)
	}
	return consts
}

// extractEnumCase returns an enum case as a constant typed by its enum.
func (w *Walker) extractEnumCase(node *sitter.Node, enumName string) *decl.Constant {
	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		nameNode = findChildByType(node, "name")
	}
	if nameNode == nil {
		return nil
	}

	c := &decl.Constant{
		Name:       w.nodeText(nameNode),
		Visibility: decl.Public,
		Type:       types.Named(enumName),
	}
	if value := findValueNode(node); value != nil {
		c.Value = w.nodeText(value)
	}
	return c
}

// extractPHPModifiers collects the modifier keywords attached to node.
func (w *Walker) extractPHPModifiers(node *sitter.Node) []string {
	var modifiers []string

	var collect func(n *sitter.Node)
	collect = func(n *sitter.Node) {
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			switch child.Type() {
			case "visibility_modifier":
				modifiers = append(modifiers, strings.ToLower(w.nodeText(child)))
			case "static_modifier":
				modifiers = append(modifiers, "static")
			case "final_modifier":
				modifiers = append(modifiers, "final")
			case "abstract_modifier":
				modifiers = append(modifiers, "abstract")
			case "readonly_modifier":
				modifiers = append(modifiers, "readonly")
			case "var_modifier":
				modifiers = append(modifiers, "public")
			case "modifier_list":
				collect(child)
			}
		}
	}
	collect(node)

	return modifiers
}

// extractPHPParameters extracts parameters from a formal_parameters node.
func (w *Walker) extractPHPParameters(node *sitter.Node) []*decl.Parameter {
	if node == nil {
		return nil
	}

	var params []*decl.Parameter
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
			param := w.extractParameter(child, len(params))
			if param.Name != "" {
				params = append(params, param)
			}
		}
	}
	return params
}

// extractParameter extracts a single parameter at the given position.
func (w *Walker) extractParameter(node *sitter.Node, position int) *decl.Parameter {
	param := &decl.Parameter{
		Position: position,
		Type:     w.extractPHPType(findChildByFieldName(node, "type")),
		Variadic: node.Type() == "variadic_parameter",
		ByRef:    hasReferenceModifier(node),
		Promoted: node.Type() == "property_promotion_parameter",
	}

	nameNode := findChildByFieldName(node, "name")
	if nameNode == nil {
		nameNode = findChildByType(node, "variable_name")
	}
	if nameNode != nil {
		if nameNode.Type() == "by_ref" {
			param.ByRef = true
			if inner := findChildByType(nameNode, "variable_name"); inner != nil {
				nameNode = inner
			}
		}
		param.Name = strings.TrimPrefix(w.nodeText(nameNode), "$")
	}

	if def := findChildByFieldName(node, "default_value"); def != nil {
		param.Optional = true
		param.DefaultValue = w.infer(def)
	}
	if param.Variadic {
		param.Optional = true
	}
	return param
}

// extractPHPType converts a declared type node. A missing node yields nil.
func (w *Walker) extractPHPType(node *sitter.Node) *types.Type {
	if node == nil {
		return nil
	}
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(w.nodeText(node)), ":"))
	return types.Parse(text)
}

// extractInterfaceList extracts the names listed in a base or implements
// clause.
func (w *Walker) extractInterfaceList(node *sitter.Node) []string {
	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "name" || child.Type() == "qualified_name" {
			names = append(names, strings.TrimPrefix(w.nodeText(child), `\`))
		}
	}
	return names
}

// extractUsedTraits extracts the trait names of one use declaration.
func (w *Walker) extractUsedTraits(node *sitter.Node) []string {
	var traits []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "name" || child.Type() == "qualified_name" {
			traits = append(traits, strings.TrimPrefix(w.nodeText(child), `\`))
		}
	}
	return traits
}

// extractPrecedingComment returns the nearest doc comment ("/**") before
// node. Plain comments and attribute lists in between are skipped; any other
// node ends the search.
func (w *Walker) extractPrecedingComment(node *sitter.Node) string {
	for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
		switch prev.Type() {
		case parser.KindComment:
			text := w.nodeText(prev)
			if strings.HasPrefix(text, "/**") {
				return text
			}
		case "attribute_list", "attribute_group":
		default:
			return ""
		}
	}
	return ""
}

// infer types an expression node. The engine's memoized result is copied so
// declarations never share it.
func (w *Walker) infer(node *sitter.Node) *types.Type {
	return w.engine.Infer(node, w.result.Source).Clone()
}

// getFilePath returns the normalized file path.
func (w *Walker) getFilePath() string {
	if w.basePath != "" {
		return NormalizePath(w.result.FilePath, w.basePath)
	}
	return w.result.FilePath
}

// nodeText returns the source text for a node.
func (w *Walker) nodeText(node *sitter.Node) string {
	return w.result.NodeText(node)
}

// determinePHPVisibility determines visibility from PHP modifiers. Members
// without an explicit modifier are public.
func determinePHPVisibility(modifiers []string) decl.Visibility {
	for _, m := range modifiers {
		switch m {
		case "private":
			return decl.Private
		case "protected":
			return decl.Protected
		case "public":
			return decl.Public
		}
	}
	return decl.Public
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + `\` + name
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
