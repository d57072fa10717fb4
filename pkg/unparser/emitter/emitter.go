// Package emitter renders unparser trees back to Ruby source text.
//
// Rendering is a pure, synchronous walk over an immutable tree. Every pass
// writes into its own Printer, so independent passes may run concurrently.
// The output is correct and unambiguous rather than minimal: parentheses are
// added wherever the surface syntax would otherwise regroup the tree.
package emitter

import (
	"strconv"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// Render renders a single node. A malformed tree yields a *MalformedNodeError
// and no partial output.
func Render(node *ast.Node) (out string, err error) {
	p := NewPrinter()
	defer func() {
		if r := recover(); r != nil {
			m, ok := r.(*MalformedNodeError)
			if !ok {
				panic(r)
			}
			out, err = "", m
		}
	}()
	p.visit(node)
	return p.String(), nil
}

// RenderProgram renders top-level statements, one per line.
func RenderProgram(nodes []*ast.Node) (string, error) {
	p := NewPrinter()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				m, ok := r.(*MalformedNodeError)
				if !ok {
					panic(r)
				}
				err = m
			}
		}()
		for i, n := range nodes {
			if i > 0 {
				p.write("\n")
			}
			p.visit(n)
		}
	}()
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// MustRender is like Render but panics on a malformed tree.
func MustRender(node *ast.Node) string {
	out, err := Render(node)
	if err != nil {
		panic(err)
	}
	return out
}

// visit dispatches on the node kind
func (p *Printer) visit(node *ast.Node) {
	if node == nil {
		malformed(nil, "NODE-0004", map[string]any{"Kind": "nil"})
	}

	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		malformed(node, "NODE-0008", map[string]any{"Limit": MaxDepth})
	}

	switch node.Kind {
	case ast.SEND:
		p.emitSend(node)
	case ast.INT:
		p.write(strconv.FormatInt(intChild(node, 0), 10))
	case ast.FLOAT:
		p.emitFloat(node)
	case ast.STR:
		p.write(quoteString(stringChild(node, 0)))
	case ast.SYM:
		p.write(formatSymbol(symbolChild(node, 0)))
	case ast.NIL, ast.TRUE, ast.FALSE, ast.SELF:
		p.write(string(node.Kind))
	case ast.LVAR, ast.IVAR, ast.GVAR, ast.CVAR:
		p.write(symbolChild(node, 0))
	case ast.CONST:
		p.emitConst(node)
	case ast.CBASE:
		// written by the enclosing const as a leading ::
	case ast.LVASGN, ast.IVASGN, ast.GVASGN, ast.CVASGN:
		p.emitVariableAssign(node)
	case ast.OR_ASGN:
		p.emitOpAssign(node, OrAssign)
	case ast.AND_ASGN:
		p.emitOpAssign(node, AndAssign)
	case ast.MASGN:
		p.emitMultipleAssign(node)
	case ast.MLHS:
		p.parentheses(ParenOpen, ParenClose, func() { p.emitMlhs(node) })
	case ast.IRANGE:
		p.emitRange(node, InclusiveRange)
	case ast.ERANGE:
		p.emitRange(node, ExclusiveRange)
	case ast.BEGIN:
		p.emitBegin(node)
	case ast.SPLAT:
		p.emitSplat(node)
	case ast.ARRAY:
		p.parentheses(BracketOpen, BracketClose, func() { p.delimited(nodeChildren(node, 0)) })
	default:
		err := uerrors.New("NODE-0004", map[string]any{"Kind": string(node.Kind)})
		if suggestion := uerrors.FindClosestMatch(string(node.Kind), ast.KindNames()); suggestion != "" {
			err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
		}
		panic(&MalformedNodeError{Err: err, Node: node})
	}
}

// emitConst writes Name, Scope::Name or ::Name
func (p *Printer) emitConst(node *ast.Node) {
	scope := optionalNodeChild(node, 0)
	name := symbolChild(node, 1)
	if scope != nil {
		if !scope.Is(ast.CBASE) {
			p.visit(scope)
		}
		p.write(ScopeSeparator)
	}
	p.write(name)
}

// emitVariableAssign writes "name = value", or the bare name when the node is
// a multiple-assignment target and carries no value.
func (p *Printer) emitVariableAssign(node *ast.Node) {
	p.write(symbolChild(node, 0))
	value := optionalNodeChild(node, 1)
	if value == nil {
		return
	}
	p.write(Whitespace, Assign, Whitespace)
	p.emitAssignValue(value)
}

func (p *Printer) emitOpAssign(node *ast.Node, operator string) {
	p.visit(requiredNodeChild(node, 0))
	p.write(Whitespace, operator, Whitespace)
	p.emitAssignValue(requiredNodeChild(node, 1))
}

// emitAssignValue writes the right-hand side of an assignment. A nested
// multiple assignment would otherwise swallow the outer target list.
func (p *Printer) emitAssignValue(value *ast.Node) {
	if value.Is(ast.MASGN) {
		p.parentheses(ParenOpen, ParenClose, func() { p.visit(value) })
		return
	}
	p.visit(value)
}

func (p *Printer) emitMultipleAssign(node *ast.Node) {
	lhs := requiredNodeChild(node, 0)
	if !lhs.Is(ast.MLHS) {
		malformed(node, "NODE-0005", map[string]any{
			"Kind": string(node.Kind), "Expected": "(mlhs)", "Index": 0, "Got": describe(lhs),
		})
	}
	p.emitMlhs(lhs)
	p.write(Whitespace, Assign, Whitespace)
	p.emitAssignValue(requiredNodeChild(node, 1))
}

// emitMlhs writes targets separated by commas. A single plain target keeps a
// trailing comma so that it still reads as a target list.
func (p *Printer) emitMlhs(node *ast.Node) {
	targets := nodeChildren(node, 0)
	p.delimited(targets)
	if len(targets) == 1 && !targets[0].Is(ast.SPLAT) {
		p.write(",")
	}
}

func (p *Printer) emitRange(node *ast.Node, operator string) {
	if from := optionalNodeChild(node, 0); from != nil {
		p.emitRangeOperand(from)
	}
	p.write(operator)
	if to := optionalNodeChild(node, 1); to != nil {
		p.emitRangeOperand(to)
	}
}

// emitRangeOperand parenthesizes operands that bind looser than a range.
func (p *Printer) emitRangeOperand(operand *ast.Node) {
	switch operand.Kind {
	case ast.IRANGE, ast.ERANGE,
		ast.LVASGN, ast.IVASGN, ast.GVASGN, ast.CVASGN,
		ast.OR_ASGN, ast.AND_ASGN, ast.MASGN:
		p.parentheses(ParenOpen, ParenClose, func() { p.visit(operand) })
	default:
		p.visit(operand)
	}
}

func (p *Printer) emitBegin(node *ast.Node) {
	body := nodeChildren(node, 0)
	p.parentheses(ParenOpen, ParenClose, func() {
		for i, stmt := range body {
			if i > 0 {
				p.write(StatementSeparator)
			}
			p.visit(stmt)
		}
	})
}

func (p *Printer) emitSplat(node *ast.Node) {
	p.write(SplatPrefix)
	if value := optionalNodeChild(node, 0); value != nil {
		p.visit(value)
	}
}

func (p *Printer) emitFloat(node *ast.Node) {
	v, ok := node.Child(0).(float64)
	if !ok {
		malformed(node, "NODE-0005", map[string]any{
			"Kind": string(node.Kind), "Expected": "float", "Index": 0, "Got": describe(node.Child(0)),
		})
	}
	s, ok := formatFloat(v)
	if !ok {
		malformed(node, "NODE-0007", map[string]any{"Value": v})
	}
	p.write(s)
}

// ============================================================================
// Child accessors - each aborts the pass when the child has the wrong shape
// ============================================================================

func childShapeError(node *ast.Node, index int, expected string) {
	malformed(node, "NODE-0005", map[string]any{
		"Kind":     string(node.Kind),
		"Expected": expected,
		"Index":    index,
		"Got":      describe(node.Child(index)),
	})
}

func requiredNodeChild(node *ast.Node, i int) *ast.Node {
	n, ok := node.Child(i).(*ast.Node)
	if !ok || n == nil {
		childShapeError(node, i, "node")
	}
	return n
}

func optionalNodeChild(node *ast.Node, i int) *ast.Node {
	switch c := node.Child(i).(type) {
	case nil:
		return nil
	case *ast.Node:
		return c
	default:
		childShapeError(node, i, "node or nil")
		return nil
	}
}

// nodeChildren returns children[from:], all of which must be nodes.
func nodeChildren(node *ast.Node, from int) []*ast.Node {
	if from >= node.Len() {
		return nil
	}
	nodes := make([]*ast.Node, 0, node.Len()-from)
	for i := from; i < node.Len(); i++ {
		nodes = append(nodes, requiredNodeChild(node, i))
	}
	return nodes
}

func symbolChild(node *ast.Node, i int) string {
	s, ok := node.SymbolAt(i)
	if !ok {
		childShapeError(node, i, "symbol")
	}
	return string(s)
}

func intChild(node *ast.Node, i int) int64 {
	v, ok := node.Child(i).(int64)
	if !ok {
		childShapeError(node, i, "integer")
	}
	return v
}

func stringChild(node *ast.Node, i int) string {
	s, ok := node.Child(i).(string)
	if !ok {
		childShapeError(node, i, "string")
	}
	return s
}
