// Package roundtrip checks that rendered trees read back as the trees they
// were rendered from: parse, render, reparse, compare.
package roundtrip

import (
	"strings"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/emitter"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
	"github.com/sambeau/unparser/pkg/unparser/lexer"
	"github.com/sambeau/unparser/pkg/unparser/parser"
)

// Result is the outcome of one round trip.
type Result struct {
	Label      string
	Source     string      // Ruby source, empty when the input was a tree
	Tree       []*ast.Node // the input tree, one node per statement
	Rendered   string
	Reparsed   []*ast.Node // nil when the rendered text did not parse
	ReparseErr error
	Equivalent bool
}

// Check parses source, renders the tree and reparses the rendering. The
// error is non-nil only when source itself does not parse or its tree cannot
// be rendered; a failed round trip is reported through the Result.
func Check(source string) (*Result, error) {
	tree, err := parser.ParseString(source)
	if err != nil {
		return nil, err
	}
	res, err := CheckTree(tree...)
	if err != nil {
		return nil, err
	}
	res.Source = source
	return res, nil
}

// CheckTree renders nodes and reparses the rendering. Local variable names
// read anywhere in the tree are declared before reparsing, so a bare lvar
// renders as a name that reads back as a variable rather than a call.
func CheckTree(nodes ...*ast.Node) (*Result, error) {
	rendered, err := emitter.RenderProgram(nodes)
	if err != nil {
		return nil, err
	}
	res := &Result{Tree: nodes, Rendered: rendered}

	p := parser.New(lexer.New(rendered))
	p.Declare(Locals(nodes...)...)
	reparsed := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		res.ReparseErr = errs[0]
		return res, nil
	}
	res.Reparsed = reparsed
	res.Equivalent = equivalentPrograms(nodes, reparsed)
	return res, nil
}

// Locals returns the local variable names read or assigned in nodes, in
// first-seen order.
func Locals(nodes ...*ast.Node) []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Is(ast.LVAR, ast.LVASGN) {
			if name, ok := n.SymbolAt(0); ok && !seen[string(name)] {
				seen[string(name)] = true
				names = append(names, string(name))
			}
		}
		for _, c := range n.Children {
			if child, ok := c.(*ast.Node); ok {
				walk(child)
			}
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return names
}

func equivalentPrograms(a, b []*ast.Node) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ast.Equivalent(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Diff returns the first pair of differing subtrees, normalized, as
// s-expressions. ok is false when the round trip succeeded or the rendering
// did not reparse.
func (r *Result) Diff() (expected, got string, ok bool) {
	if r.Equivalent || r.Reparsed == nil {
		return "", "", false
	}
	if len(r.Tree) != len(r.Reparsed) {
		return programString(r.Tree), programString(r.Reparsed), true
	}
	for i := range r.Tree {
		left, right, diff := ast.FirstDifference(ast.Normalize(r.Tree[i]), ast.Normalize(r.Reparsed[i]))
		if diff {
			return sexpOrNil(left), sexpOrNil(right), true
		}
	}
	return "", "", false
}

// Err describes a failed round trip as a catalog error, or returns nil.
func (r *Result) Err() *uerrors.UnparserError {
	if r.Equivalent {
		return nil
	}
	if r.ReparseErr != nil {
		return uerrors.New("TRIP-0001", map[string]any{
			"Reason":   r.ReparseErr.Error(),
			"Rendered": r.Rendered,
		})
	}
	expected, got, _ := r.Diff()
	return uerrors.New("TRIP-0002", map[string]any{"Expected": expected, "Got": got})
}

// TreeString prints the input tree one statement per line
func (r *Result) TreeString() string {
	return programString(r.Tree)
}

func programString(nodes []*ast.Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		parts[i] = sexpOrNil(n)
	}
	return strings.Join(parts, "\n")
}

func sexpOrNil(n *ast.Node) string {
	if n == nil {
		return "nil"
	}
	return n.String()
}
