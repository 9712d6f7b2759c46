package esfeatures

import (
	"strings"

	"github.com/panbanda/esmin/pkg/feature"
	sitter "github.com/smacker/go-tree-sitter"
)

// rule inspects one node of the kind it is registered for. Rules only add
// features; the walk visits children regardless.
type rule func(d *detector, n *sitter.Node, sc scope)

var rules = map[string]rule{
	"binary_expression":               binaryExpression,
	"augmented_assignment_expression": augmentedAssignment,
	"call_expression":                 callExpression,
	"new_expression":                  newExpression,
	"member_expression":               memberExpression,
	"meta_property":                   metaProperty,
	"number":                          numberLiteral,
	"regex":                           regexLiteral,
	"rest_pattern":                    is(feature.RestSpreadProperties),
	"spread_element":                  is(feature.RestSpreadProperties),
	"optional_chain":                  is(feature.OptionalChaining),
	"for_in_statement":                forInStatement,
	"catch_clause":                    catchClause,
	"await_expression":                awaitExpression,
	"field_definition":                is(feature.ClassFields),
	"public_field_definition":         is(feature.ClassFields),
	"class_static_block":              is(feature.ClassStaticBlock),
	"static_block":                    is(feature.ClassStaticBlock),
	"hash_bang_line":                  is(feature.HashbangGrammar),

	"function_declaration":           functionLike,
	"function_expression":            functionLike,
	"function":                       functionLike,
	"generator_function_declaration": functionLike,
	"generator_function":             functionLike,
	"arrow_function":                 functionLike,
	"method_definition":              methodDefinition,
}

// is returns a rule that marks f unconditionally.
func is(f feature.Feature) rule {
	return func(d *detector, n *sitter.Node, _ scope) {
		d.mark(f, n)
	}
}

// staticCalls maps receiver identifier and property name to the feature a
// call of that shape introduces.
var staticCalls = map[string]map[string]feature.Feature{
	"Object": {
		"values":                    feature.ObjectValuesEntries,
		"entries":                   feature.ObjectValuesEntries,
		"getOwnPropertyDescriptors": feature.ObjectGetOwnPropertyDescriptors,
		"fromEntries":               feature.ObjectFromEntries,
		"hasOwn":                    feature.AccessibleObjectPrototypeHasOwnProperty,
		"groupBy":                   feature.ArrayGrouping,
	},
	"Map": {
		"groupBy": feature.ArrayGrouping,
	},
	"Promise": {
		"allSettled":    feature.PromiseAllSettled,
		"any":           feature.PromiseAny,
		"withResolvers": feature.PromiseWithResolvers,
		"try":           feature.PromiseTry,
	},
	"Atomics": {
		"waitAsync": feature.AtomicsWaitAsync,
	},
	"Iterator": {
		"from": feature.IteratorHelpers,
	},
	"Math": {
		"f16round": feature.Float16Array,
	},
}

// constructors maps identifiers used with new to the feature they introduce.
var constructors = map[string]feature.Feature{
	"SharedArrayBuffer":    feature.SharedMemoryAndAtomics,
	"WeakRef":              feature.WeakReferences,
	"FinalizationRegistry": feature.WeakReferences,
	"Float16Array":         feature.Float16Array,
}

// errorConstructors maps native error constructors to the index of their
// options argument.
var errorConstructors = map[string]int{
	"Error":          1,
	"EvalError":      1,
	"RangeError":     1,
	"ReferenceError": 1,
	"SyntaxError":    1,
	"TypeError":      1,
	"URIError":       1,
	"AggregateError": 2,
}

func binaryExpression(d *detector, n *sitter.Node, _ scope) {
	switch operator(n) {
	case "**":
		d.mark(feature.ExponentiationOperator, n)
	case "??":
		d.mark(feature.NullishCoalescingOperator, n)
	case "in":
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "private_property_identifier" {
			d.mark(feature.ErgonomicBrandChecksForPrivateFields, n)
		}
	}
}

func augmentedAssignment(d *detector, n *sitter.Node, _ scope) {
	switch operator(n) {
	case "**=":
		d.mark(feature.ExponentiationOperator, n)
	case "&&=", "||=", "??=":
		d.mark(feature.LogicalAssignmentOperators, n)
	}
}

func callExpression(d *detector, n *sitter.Node, _ scope) {
	callee := n.ChildByFieldName("function")
	if callee == nil {
		return
	}
	args := arguments(n)

	switch callee.Type() {
	case "import":
		d.mark(feature.DynamicImport, n)

	case "identifier":
		switch name := d.text(callee); name {
		case "BigInt":
			if len(args) > 0 && (args[0].Type() == "string" || args[0].Type() == "number") {
				d.mark(feature.BigInt, n)
			}
		case "RegExp":
			d.regExpConstructor(n, args)
		default:
			d.errorCause(n, name, args)
		}

	case "member_expression":
		object := callee.ChildByFieldName("object")
		property := callee.ChildByFieldName("property")
		if object == nil || property == nil {
			return
		}
		prop := d.text(property)

		switch object.Type() {
		case "identifier":
			recv := d.text(object)
			if f, ok := staticCalls[recv][prop]; ok {
				d.mark(f, n)
			} else if recv == "Atomics" {
				d.mark(feature.SharedMemoryAndAtomics, n)
			}
		case "array":
			if prop == "groupBy" {
				d.mark(feature.ArrayGrouping, n)
			}
		}
	}
}

func newExpression(d *detector, n *sitter.Node, _ scope) {
	ctor := n.ChildByFieldName("constructor")
	if ctor == nil || ctor.Type() != "identifier" {
		return
	}
	args := arguments(n)

	name := d.text(ctor)
	if f, ok := constructors[name]; ok {
		d.mark(f, n)
		return
	}
	if name == "RegExp" {
		d.regExpConstructor(n, args)
		return
	}
	d.errorCause(n, name, args)
}

// errorCause flags native error construction with an options object that
// carries a cause.
func (d *detector) errorCause(n *sitter.Node, name string, args []*sitter.Node) {
	idx, ok := errorConstructors[name]
	if !ok || len(args) <= idx {
		return
	}
	if hasProperty(d, args[idx], "cause") {
		d.mark(feature.ErrorCause, n)
	}
}

func memberExpression(d *detector, n *sitter.Node, _ scope) {
	object := n.ChildByFieldName("object")
	if object == nil {
		return
	}
	switch object.Type() {
	case "identifier":
		if d.text(object) == "globalThis" {
			d.mark(feature.GlobalThis, n)
		}
	case "import":
		// Grammars without a meta_property node parse import.meta as a
		// member access on the import keyword.
		if d.text(n.ChildByFieldName("property")) == "meta" {
			d.mark(feature.ImportMeta, n)
		}
	}
}

func metaProperty(d *detector, n *sitter.Node, _ scope) {
	if strings.HasPrefix(d.text(n), "import") {
		d.mark(feature.ImportMeta, n)
	}
}

func numberLiteral(d *detector, n *sitter.Node, _ scope) {
	raw := d.text(n)
	if strings.Contains(raw, "_") {
		d.mark(feature.NumericSeparators, n)
	}
	if strings.HasSuffix(raw, "n") {
		d.mark(feature.BigInt, n)
	}
}

func regexLiteral(d *detector, n *sitter.Node, _ scope) {
	pattern := d.text(n.ChildByFieldName("pattern"))
	flags := d.text(n.ChildByFieldName("flags"))
	d.regExp(n, pattern, flags, true)
}

func forInStatement(d *detector, n *sitter.Node, _ scope) {
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "in":
			d.mark(feature.ForInMechanics, n)
		case "await":
			d.mark(feature.AsynchronousIteration, n)
		}
	}
}

func catchClause(d *detector, n *sitter.Node, _ scope) {
	if n.ChildByFieldName("parameter") == nil {
		d.mark(feature.OptionalCatchBinding, n)
	}
}

func awaitExpression(d *detector, n *sitter.Node, sc scope) {
	if sc.inFunction {
		d.mark(feature.AsyncFunctions, n)
		return
	}
	d.mark(feature.TopLevelAwait, n)
}

func functionLike(d *detector, n *sitter.Node, _ scope) {
	var async, generator bool
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if child.IsNamed() {
			continue
		}
		switch child.Type() {
		case "async":
			async = true
		case "*":
			generator = true
		}
	}

	if async {
		d.mark(feature.AsyncFunctions, n)
		if generator {
			d.mark(feature.AsynchronousIteration, n)
		}
	}
}

func methodDefinition(d *detector, n *sitter.Node, sc scope) {
	if name := n.ChildByFieldName("name"); name != nil && name.Type() == "private_property_identifier" {
		d.mark(feature.ClassFields, n)
	}
	functionLike(d, n, sc)
}

// operator returns the operator token of a binary or assignment node.
func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}

// arguments returns the argument expressions of a call or new expression,
// skipping comments.
func arguments(n *sitter.Node) []*sitter.Node {
	list := n.ChildByFieldName("arguments")
	if list == nil || list.Type() != "arguments" {
		return nil
	}
	var out []*sitter.Node
	for i := range int(list.NamedChildCount()) {
		arg := list.NamedChild(i)
		if arg.Type() == "comment" {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// hasProperty reports whether obj is an object literal defining key,
// either as a pair or shorthand.
func hasProperty(d *detector, obj *sitter.Node, key string) bool {
	if obj == nil || obj.Type() != "object" {
		return false
	}
	for i := range int(obj.NamedChildCount()) {
		member := obj.NamedChild(i)
		switch member.Type() {
		case "shorthand_property_identifier":
			if d.text(member) == key {
				return true
			}
		case "pair":
			k := member.ChildByFieldName("key")
			if k == nil {
				continue
			}
			name := d.text(k)
			if k.Type() == "string" {
				name = strings.Trim(name, `"'`)
			}
			if name == key {
				return true
			}
		}
	}
	return false
}
