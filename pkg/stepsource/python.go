package stepsource

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/Biometria-se/grizzly-lsp-sub000/pkg/step"
)

// Python AST node types.
const (
	nodeAssignment          = "assignment"
	nodeAttribute           = "attribute"
	nodeCall                = "call"
	nodeClassDefinition     = "class_definition"
	nodeDecoratedDefinition = "decorated_definition"
	nodeDecorator           = "decorator"
	nodeExpressionStatement = "expression_statement"
	nodeFunctionDefinition  = "function_definition"
	nodeIdentifier          = "identifier"
	nodeString              = "string"
	nodeTuple               = "tuple"
)

var pythonLanguage = python.GetLanguage()

// stepDecorators maps recognized decorator names to the keyword the step is
// registered under.
var stepDecorators = map[string]string{
	"given": "given",
	"when":  "when",
	"then":  "then",
	"step":  "step",
}

// parsePythonModule extracts step declarations and custom parameter types
// from one Python source file.
func parsePythonModule(ctx context.Context, source []byte, relPath string) ([]step.RawStep, step.TypeTable, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(pythonLanguage)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", relPath, err)
	}
	defer tree.Close()

	ex := &extractor{
		source: source,
		path:   relPath,
		module: moduleName(relPath),
		types:  make(step.TypeTable),
		// with_pattern function name -> registered type name, so trailing
		// __vector__ assignments can be resolved back to their type.
		typeOwners: make(map[string]string),
	}

	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case nodeDecoratedDefinition:
			ex.handleDecorated(child)
		case nodeClassDefinition:
			ex.handleClass(child)
		case nodeExpressionStatement:
			ex.handleVectorAssignment(child)
		}
	}

	return ex.steps, ex.types, nil
}

type extractor struct {
	source     []byte
	path       string
	module     string
	steps      []step.RawStep
	types      step.TypeTable
	typeOwners map[string]string
}

func (ex *extractor) text(node *sitter.Node) string {
	start, end := node.StartByte(), node.EndByte()
	if start > uint32(len(ex.source)) || end > uint32(len(ex.source)) {
		return ""
	}
	return node.Content(ex.source)
}

// handleDecorated inspects a decorated definition for step decorators and
// parse.with_pattern type registrations.
func (ex *extractor) handleDecorated(node *sitter.Node) {
	definition := decoratedDefinition(node)
	if definition == nil {
		return
	}

	if definition.Type() == nodeClassDefinition {
		ex.handleClass(definition)
		return
	}

	nameNode := definition.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	funcName := ex.text(nameNode)

	for _, dec := range decorators(node) {
		callee, pattern, ok := ex.decoratorCall(dec)
		if !ok || pattern == "" {
			continue
		}

		short := callee
		if idx := strings.LastIndex(short, "."); idx >= 0 {
			short = short[idx+1:]
		}
		if keyword, isStep := stepDecorators[short]; isStep {
			ex.steps = append(ex.steps, step.RawStep{
				Keyword:  keyword,
				Pattern:  pattern,
				Callable: ex.module + "." + funcName,
				Help:     ex.docstring(definition),
				Location: step.Location{
					File: ex.path,
					Line: int(definition.StartPoint().Row) + 1,
				},
			})
			continue
		}

		if callee == "parse.with_pattern" || strings.HasSuffix(callee, ".with_pattern") {
			typeName := typeNameForFunction(funcName)
			ex.types[typeName] = step.TypeDescriptor{Pattern: pattern}
			ex.typeOwners[funcName] = typeName
		}
	}
}

// decoratorCall unwraps a decorator into its callee name and first string
// argument.
func (ex *extractor) decoratorCall(dec *sitter.Node) (callee, pattern string, ok bool) {
	var expr *sitter.Node
	for i := 0; i < int(dec.NamedChildCount()); i++ {
		expr = dec.NamedChild(i)
	}
	if expr == nil || expr.Type() != nodeCall {
		return "", "", false
	}

	function := expr.ChildByFieldName("function")
	if function == nil {
		return "", "", false
	}
	callee = ex.text(function)

	arguments := expr.ChildByFieldName("arguments")
	if arguments == nil {
		return callee, "", true
	}
	for i := 0; i < int(arguments.NamedChildCount()); i++ {
		arg := arguments.NamedChild(i)
		if arg.Type() == nodeString {
			return callee, stringContent(ex.text(arg)), true
		}
	}
	return callee, "", true
}

// docstring returns the function's leading docstring, if any.
func (ex *extractor) docstring(definition *sitter.Node) string {
	body := definition.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}

	first := body.NamedChild(0)
	if first.Type() != nodeExpressionStatement || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != nodeString {
		return ""
	}
	return strings.TrimSpace(stringContent(ex.text(str)))
}

// handleClass registers an Enum subclass as an enumerable parameter type.
// Member values come from string assignments in the class body; a
// __vector__ class attribute sets the permutation axes.
func (ex *extractor) handleClass(node *sitter.Node) {
	superclasses := node.ChildByFieldName("superclasses")
	if superclasses == nil || !strings.Contains(ex.text(superclasses), "Enum") {
		return
	}

	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}

	desc := step.TypeDescriptor{}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != nodeExpressionStatement || stmt.NamedChildCount() == 0 {
			continue
		}
		assignment := stmt.NamedChild(0)
		if assignment.Type() != nodeAssignment {
			continue
		}

		left := assignment.ChildByFieldName("left")
		right := assignment.ChildByFieldName("right")
		if left == nil || right == nil || left.Type() != nodeIdentifier {
			continue
		}
		memberName := ex.text(left)

		if memberName == "__vector__" {
			desc.XAxis, desc.YAxis = vectorFlags(ex, right)
			continue
		}
		if strings.HasPrefix(memberName, "_") {
			continue
		}

		if right.Type() == nodeString {
			desc.Values = append(desc.Values, stringContent(ex.text(right)))
		} else {
			desc.Values = append(desc.Values, strings.TrimSuffix(memberName, "_"))
		}
	}

	if len(desc.Values) > 0 {
		ex.types[ex.text(nameNode)] = desc
	}
}

// handleVectorAssignment handles trailing module-level axis declarations of
// the form `parse_direction.__vector__ = (True, False)`.
func (ex *extractor) handleVectorAssignment(stmt *sitter.Node) {
	if stmt.NamedChildCount() == 0 {
		return
	}
	assignment := stmt.NamedChild(0)
	if assignment.Type() != nodeAssignment {
		return
	}

	left := assignment.ChildByFieldName("left")
	right := assignment.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != nodeAttribute {
		return
	}

	object := left.ChildByFieldName("object")
	attribute := left.ChildByFieldName("attribute")
	if object == nil || attribute == nil || ex.text(attribute) != "__vector__" {
		return
	}

	owner := ex.text(object)
	typeName, ok := ex.typeOwners[owner]
	if !ok {
		typeName = owner
	}
	desc, ok := ex.types[typeName]
	if !ok {
		return
	}
	desc.XAxis, desc.YAxis = vectorFlags(ex, right)
	ex.types[typeName] = desc
}

// vectorFlags reads a (bool, bool) tuple literal.
func vectorFlags(ex *extractor, node *sitter.Node) (x, y bool) {
	if node.Type() != nodeTuple {
		return false, false
	}
	flags := make([]bool, 0, 2)
	for i := 0; i < int(node.NamedChildCount()); i++ {
		flags = append(flags, ex.text(node.NamedChild(i)) == "True")
	}
	if len(flags) > 0 {
		x = flags[0]
	}
	if len(flags) > 1 {
		y = flags[1]
	}
	return x, y
}

// decoratedDefinition extracts the wrapped definition from a
// decorated_definition node.
func decoratedDefinition(node *sitter.Node) *sitter.Node {
	if definition := node.ChildByFieldName("definition"); definition != nil {
		return definition
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeFunctionDefinition || child.Type() == nodeClassDefinition {
			return child
		}
	}
	return nil
}

// decorators collects all decorator nodes of a decorated_definition.
func decorators(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == nodeDecorator {
			out = append(out, child)
		}
	}
	return out
}

// stringContent strips string prefixes and the surrounding quote pair from
// a Python string literal.
func stringContent(literal string) string {
	s := strings.TrimLeft(literal, "uUrRbBfF")
	for _, quote := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) && len(s) >= 2*len(quote) {
			return s[len(quote) : len(s)-len(quote)]
		}
	}
	return s
}

// typeNameForFunction derives the registered type name from a
// parse.with_pattern function name: parse_message_direction becomes
// MessageDirection.
func typeNameForFunction(funcName string) string {
	name := strings.TrimPrefix(funcName, "parse_")
	parts := strings.Split(name, "_")
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
