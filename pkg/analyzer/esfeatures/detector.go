package esfeatures

import (
	"github.com/panbanda/esmin/pkg/feature"
	"github.com/panbanda/esmin/pkg/parser"
	sitter "github.com/smacker/go-tree-sitter"
)

// scope is the traversal context. It is passed by value so that leaving a
// subtree restores the enclosing context without explicit bookkeeping.
type scope struct {
	inFunction bool
}

// functionKinds are the node kinds whose bodies are function scope.
var functionKinds = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"generator_function_declaration": true,
	"generator_function":             true,
	"arrow_function":                 true,
	"method_definition":              true,
}

// detector accumulates the features seen during one walk. It is never
// shared between calls.
type detector struct {
	source []byte
	found  feature.Set
	first  [feature.Count]Occurrence
}

func newDetector(source []byte) *detector {
	return &detector{source: source}
}

// mark records f, keeping the position of its first sighting.
func (d *detector) mark(f feature.Feature, n *sitter.Node) {
	if d.found.Has(f) || !f.IsValid() {
		return
	}
	d.found.Add(f)

	pos := n.StartPoint()
	d.first[f] = Occurrence{
		Feature: f,
		Line:    pos.Row + 1,
		Column:  pos.Column + 1,
	}
}

// walk visits n and every descendant exactly once, in source order.
func (d *detector) walk(n *sitter.Node, sc scope) {
	if n == nil {
		return
	}

	kind := n.Type()
	if r, ok := rules[kind]; ok {
		r(d, n, sc)
	}
	if functionKinds[kind] {
		sc.inFunction = true
	}

	for i := range int(n.ChildCount()) {
		d.walk(n.Child(i), sc)
	}
}

// occurrences returns the first sighting of every found feature in
// catalog order.
func (d *detector) occurrences() []Occurrence {
	out := make([]Occurrence, 0, d.found.Len())
	for f := range d.found.All() {
		out = append(out, d.first[f])
	}
	return out
}

func (d *detector) text(n *sitter.Node) string {
	return parser.GetNodeText(n, d.source)
}
