// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/shade/pkg/model"
)

var hookNamePattern = regexp.MustCompile(`^use[A-Z0-9]`)

// ambiguousIdentNames is the fixed vocabulary of generically-named
// identifiers that make a Unit harder to review.
var ambiguousIdentNames = map[string]bool{
	"data": true, "tmp": true, "result": true, "foo": true, "x": true, "y": true,
}

// reactiveEffectCallees is the fixed set of reactive-effect hooks whose
// dependency arrays and cleanup functions are tracked per call site.
var reactiveEffectCallees = map[string]bool{
	"useEffect": true, "useLayoutEffect": true, "useInsertionEffect": true,
}

// renderSideEffectCallees is the fixed set of calls counted as a
// render-side-effect when they occur outside a reactive-effect callback and
// inside a component.
var renderSideEffectCallees = map[string]bool{
	"fetch": true, "localStorage": true, "sessionStorage": true, "axios": true,
}

// jsxNodeTypes marks the node types produced by embedded markup, the
// "returns JSX" half of the component test.
var jsxNodeTypes = map[string]bool{
	"jsx_element": true, "jsx_self_closing_element": true, "jsx_fragment": true,
}

// ExtractUnits promotes the analyzable Units out of one parsed file and
// populates their structural features with a single walk per Unit's
// subtree.
func ExtractUnits(pf *ParsedFile) []model.Unit {
	root := pf.Tree.RootNode()

	var candidates []*candidateDecl
	collectTopLevel(root, pf.Content, &candidates, false)

	var units []model.Unit
	for _, c := range candidates {
		kind, ok := classify(c, pf.Dialect)
		if !ok {
			continue
		}

		startLine, endLine := nodeSpan(c.node)
		startCol := int(c.node.StartPoint().Column) + 1
		endCol := int(c.node.EndPoint().Column) + 1

		u := model.Unit{
			ID:               GenerateUnitID(pf.Path, c.name, startLine, endLine, startCol, endCol),
			FilePath:         pf.Path,
			Name:             c.name,
			Kind:             kind,
			Span:             model.Span{StartLine: startLine, EndLine: endLine},
			CodeText:         nodeText(c.node, pf.Content),
			LOC:              endLine - startLine + 1,
			IdentifierCounts: map[string]int{},
			ReassignedIdents: map[string]bool{},
		}

		w := &walker{content: pf.Content, unit: &u, isComponent: kind == model.KindComponent}
		bodyNode := c.body
		if bodyNode == nil {
			bodyNode = c.node
		}
		w.walk(bodyNode, 0, 0, false)
		u.ContextSwitches = countContextSwitches(u.IdentifierCounts)

		units = append(units, u)
	}

	return units
}

// candidateDecl is a top-level (or class-member) declaration eligible for
// promotion to a Unit.
type candidateDecl struct {
	name string
	node *sitter.Node // the declaration node whose span becomes the Unit's span
	body *sitter.Node // the function body subtree to walk for features
}

// collectTopLevel walks only the outer structure of a file (module body and
// class bodies): it finds declarations eligible for promotion without
// descending into any function body, since nested functions are never
// separately promoted.
func collectTopLevel(node *sitter.Node, content []byte, out *[]*candidateDecl, insideClass bool) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration":
		name := fieldText(node, "name", content)
		body := node.ChildByFieldName("body")
		if name != "" && body != nil {
			*out = append(*out, &candidateDecl{name: name, node: node, body: body})
		}
		return

	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil && valueNode != nil {
			vt := valueNode.Type()
			if vt == "arrow_function" || vt == "function_expression" || vt == "function" {
				body := valueNode.ChildByFieldName("body")
				*out = append(*out, &candidateDecl{
					name: nodeText(nameNode, content),
					node: node,
					body: body,
				})
			}
		}
		return

	case "method_definition":
		name := fieldText(node, "name", content)
		body := node.ChildByFieldName("body")
		if name != "" && body != nil {
			*out = append(*out, &candidateDecl{name: name, node: node, body: body})
		}
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		collectTopLevel(node.Child(i), content, out, insideClass)
	}
}

func fieldText(node *sitter.Node, field string, content []byte) string {
	n := node.ChildByFieldName(field)
	if n == nil {
		return ""
	}
	return nodeText(n, content)
}

// classify applies the component/hook/function promotion rules.
func classify(c *candidateDecl, d dialect) (model.UnitKind, bool) {
	if c.name == "" {
		return "", false
	}

	if hookNamePattern.MatchString(c.name) {
		return model.KindHook, true
	}

	if isUpper(c.name[0]) && bodyReturnsJSX(c.body) && (d == dialectTSX || d == dialectJS) {
		return model.KindComponent, true
	}

	startLine, endLine := nodeSpan(c.node)
	if endLine-startLine+1 < 3 {
		return "", false
	}
	return model.KindFunction, true
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func bodyReturnsJSX(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	found := false
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil || found {
			return
		}
		if jsxNodeTypes[n.Type()] {
			found = true
			return
		}
		// Don't cross into nested function bodies; a returned render prop
		// belongs to that nested function, not this one.
		if isFunctionNode(n) && n != body {
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(body)
	return found
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration", "function_expression", "function", "arrow_function", "method_definition":
		return true
	default:
		return false
	}
}

// walker accumulates structural features over one Unit's subtree.
type walker struct {
	content     []byte
	unit        *model.Unit
	isComponent bool
}

// walk recurses through a Unit's body, threading block-nesting depth and
// callback-nesting depth, and updating the Unit's feature counters. A
// single pass does the work of every scored feature so the Unit
// is never re-walked downstream.
func (w *walker) walk(n *sitter.Node, blockDepth, callbackDepth int, insideEffect bool) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "if_statement", "ternary_expression":
		w.unit.BranchCount++
	case "switch_case", "switch_default":
		w.unit.BranchCount++
	case "binary_expression":
		op := binaryOperator(n, w.content)
		if op == "&&" || op == "||" {
			w.unit.BooleanOperators++
		}
	case "try_statement":
		w.unit.TryCatchCount++
		if n.ChildByFieldName("handler") == nil {
			w.unit.TryWithoutCatch = true
		}
	case "return_statement":
		// A return is early unless it closes the function body itself; a
		// guard clause's return ends only its if-block.
		block := n.Parent()
		inBody := block != nil && block.Parent() != nil && isFunctionNode(block.Parent())
		if !isLastStatementInBlock(n) || !inBody {
			w.unit.EarlyReturns++
		}
	case "assignment_expression":
		w.trackReassignment(n)
	case "update_expression":
		w.trackUpdateReassignment(n)
	case "identifier", "shorthand_property_identifier", "property_identifier":
		w.trackIdentifier(n)
	case "string", "template_string":
		w.unit.StringLiterals = append(w.unit.StringLiterals, nodeText(n, w.content))
	case "comment":
		w.unit.CommentLines += strings.Count(nodeText(n, w.content), "\n") + 1
	}

	nextBlockDepth := blockDepth
	if isBlockNode(n) {
		nextBlockDepth = blockDepth + 1
		if nextBlockDepth > w.unit.NestingDepth {
			w.unit.NestingDepth = nextBlockDepth
		}
	}

	nextCallbackDepth := callbackDepth
	nextInsideEffect := insideEffect
	if n.Type() == "call_expression" {
		callee := calleeName(n, w.content)
		if reactiveEffectCallees[callee] {
			w.recordEffect(n, callee)
			nextInsideEffect = true
		} else if w.isComponent && !insideEffect && renderSideEffectCallees[callee] {
			w.unit.RenderSideEffects++
		}
		if isCallbackArgument(n) {
			nextCallbackDepth = callbackDepth + 1
			if nextCallbackDepth > w.unit.NestedCallbacks {
				w.unit.NestedCallbacks = nextCallbackDepth
			}
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		w.walk(n.Child(i), nextBlockDepth, nextCallbackDepth, nextInsideEffect)
	}
}

func isBlockNode(n *sitter.Node) bool {
	switch n.Type() {
	case "statement_block", "if_statement", "for_statement", "for_in_statement",
		"while_statement", "do_statement", "switch_statement", "try_statement":
		return true
	default:
		return false
	}
}

// isCallbackArgument reports whether a call_expression's own callee is
// itself invoked with a function/arrow-function argument, i.e. this call is
// nested as a callback (e.g. array.map(() => array2.filter(...))).
func isCallbackArgument(n *sitter.Node) bool {
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return false
	}
	for i := 0; i < int(args.ChildCount()); i++ {
		switch args.Child(i).Type() {
		case "arrow_function", "function_expression", "function":
			return true
		}
	}
	return false
}

func isLastStatementInBlock(ret *sitter.Node) bool {
	parent := ret.Parent()
	if parent == nil {
		return true
	}
	count := int(parent.ChildCount())
	for i := count - 1; i >= 0; i-- {
		child := parent.Child(i)
		if child.Type() == "}" {
			continue
		}
		return child == ret
	}
	return true
}

func binaryOperator(n *sitter.Node, content []byte) string {
	op := n.ChildByFieldName("operator")
	if op != nil {
		return nodeText(op, content)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		t := nodeText(n.Child(i), content)
		if t == "&&" || t == "||" {
			return t
		}
	}
	return ""
}

func calleeName(call *sitter.Node, content []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	if fn.Type() == "identifier" {
		return nodeText(fn, content)
	}
	if fn.Type() == "member_expression" {
		obj := fn.ChildByFieldName("object")
		if obj != nil {
			return nodeText(obj, content)
		}
	}
	return nodeText(fn, content)
}

func (w *walker) recordEffect(call *sitter.Node, callee string) {
	args := call.ChildByFieldName("arguments")
	if args == nil {
		return
	}

	var cb *sitter.Node
	var depsArray *sitter.Node
	argIdx := 0
	for i := 0; i < int(args.ChildCount()); i++ {
		child := args.Child(i)
		switch child.Type() {
		case "arrow_function", "function_expression", "function":
			if argIdx == 0 {
				cb = child
			}
			argIdx++
		case "array":
			depsArray = child
			argIdx++
		case ",", "(", ")":
			// punctuation, not an argument
		default:
			argIdx++
		}
	}

	eff := model.HookEffect{Callee: callee}
	if depsArray != nil {
		eff.DepsPresent = true
		for i := 0; i < int(depsArray.ChildCount()); i++ {
			c := depsArray.Child(i)
			if c.Type() == "identifier" {
				eff.Deps = append(eff.Deps, nodeText(c, w.content))
			}
		}
	}
	if cb != nil {
		body := cb.ChildByFieldName("body")
		eff.HasCleanup = bodyReturnsFunction(body)
	}

	w.unit.HookEffects = append(w.unit.HookEffects, eff)
}

func bodyReturnsFunction(body *sitter.Node) bool {
	if body == nil {
		return false
	}
	if body.Type() == "arrow_function" || body.Type() == "function_expression" || body.Type() == "function" {
		return true
	}
	found := false
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if n == nil || found {
			return
		}
		if n.Type() == "return_statement" {
			for i := 0; i < int(n.ChildCount()); i++ {
				t := n.Child(i).Type()
				if t == "arrow_function" || t == "function_expression" || t == "function" {
					found = true
					return
				}
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(body)
	return found
}

func (w *walker) trackIdentifier(n *sitter.Node) {
	name := nodeText(n, w.content)
	if name == "" {
		return
	}
	w.unit.TotalIdentCount++
	w.unit.IdentifierCounts[name]++
	if ambiguousIdentNames[name] {
		w.unit.AmbiguousIdentCount++
	}
}

func (w *walker) trackReassignment(n *sitter.Node) {
	left := n.ChildByFieldName("left")
	if left != nil && left.Type() == "identifier" {
		w.unit.ReassignedIdents[nodeText(left, w.content)] = true
	}
}

func (w *walker) trackUpdateReassignment(n *sitter.Node) {
	arg := n.ChildByFieldName("argument")
	if arg != nil && arg.Type() == "identifier" {
		w.unit.ReassignedIdents[nodeText(arg, w.content)] = true
	}
}

// countContextSwitches counts domain prefixes: among identifiers
// appearing at least twice in the Unit, count the distinct prefixes formed
// by cutting each name at its first lowercase-to-uppercase boundary (the
// camelCase word break). A Unit juggling userProfile/userSettings and
// cartItems/cartTotal has two such prefixes and reads as switching between
// two unrelated domains.
func countContextSwitches(counts map[string]int) int {
	prefixes := map[string]bool{}
	for name, n := range counts {
		if n < 2 {
			continue
		}
		prefixes[camelPrefix(name)] = true
	}
	return len(prefixes)
}

func camelPrefix(name string) string {
	for i := 1; i < len(name); i++ {
		if name[i-1] >= 'a' && name[i-1] <= 'z' && name[i] >= 'A' && name[i] <= 'Z' {
			return strings.ToLower(name[:i])
		}
	}
	return strings.ToLower(name)
}
