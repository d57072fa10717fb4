package emitter

import (
	"strings"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/operators"
)

// callForm is the surface syntax chosen for a call node.
type callForm int

const (
	plainCall  callForm = iota // recv.name(args)
	indexRead                  // recv[args]
	indexWrite                 // recv[index] = value
	unaryCall                  // -recv
	binaryCall                 // recv + arg, or recv.+(args) when infix cannot express it
)

func (f callForm) String() string {
	switch f {
	case indexRead:
		return "index"
	case indexWrite:
		return "index assignment"
	case unaryCall:
		return "unary"
	case binaryCall:
		return "binary"
	default:
		return "plain"
	}
}

// call is a validated view of a send node: (send receiver :name args...)
type call struct {
	node     *ast.Node
	receiver *ast.Node // nil for an implicit-self call
	name     string
	args     []*ast.Node
}

// newCall checks the node contract and splits the children.
func newCall(node *ast.Node) *call {
	if node.Len() < 2 {
		malformed(node, "NODE-0001", map[string]any{"Count": node.Len()})
	}
	name, ok := node.SymbolAt(1)
	if !ok {
		malformed(node, "NODE-0002", map[string]any{"Got": describe(node.Child(1))})
	}
	if name == "" {
		malformed(node, "NODE-0006", nil)
	}
	if !isMethodName(string(name)) {
		malformed(node, "NODE-0009", map[string]any{"Name": string(name)})
	}
	return &call{
		node:     node,
		receiver: optionalNodeChild(node, 0),
		name:     string(name),
		args:     nodeChildren(node, 2),
	}
}

// classify picks the call form from the name alone. Arity is not consulted:
// a call named + is binary however many arguments it carries.
func classify(name string) callForm {
	switch {
	case name == operators.IndexRead:
		return indexRead
	case name == operators.IndexWrite:
		return indexWrite
	case operators.IsBinary(name) && !operators.IsUnary(name):
		return binaryCall
	case operators.IsUnary(name):
		return unaryCall
	default:
		return plainCall
	}
}

// callRenderer renders one call form.
type callRenderer interface {
	render(p *Printer, c *call)
}

func rendererFor(form callForm) callRenderer {
	switch form {
	case indexRead:
		return indexReadRenderer{}
	case indexWrite:
		return indexWriteRenderer{}
	case unaryCall:
		return unaryRenderer{}
	case binaryCall:
		return binaryRenderer{}
	default:
		return plainCallRenderer{}
	}
}

// emitSend is the entry point for call nodes.
func (p *Printer) emitSend(node *ast.Node) {
	c := newCall(node)
	form := classify(c.name)
	if form != plainCall && c.receiver == nil {
		malformed(node, "NODE-0003", map[string]any{"Form": form.String(), "Name": c.name})
	}
	rendererFor(form).render(p, c)
}

// ============================================================================
// Receiver disambiguation
// ============================================================================

// effectiveReceiver looks through a grouping that holds exactly one node.
func effectiveReceiver(recv *ast.Node) *ast.Node {
	if recv.Is(ast.BEGIN) && recv.Len() == 1 {
		if inner := recv.NodeAt(0); inner != nil {
			return inner
		}
	}
	return recv
}

// receiverNeedsParens reports whether recv would regroup if a call dot or an
// operator were written directly after it: ranges, assignments and binary
// operator calls.
func receiverNeedsParens(recv *ast.Node) bool {
	switch recv.Kind {
	case ast.IRANGE, ast.ERANGE:
		return true
	case ast.LVASGN, ast.IVASGN, ast.GVASGN, ast.CVASGN,
		ast.OR_ASGN, ast.AND_ASGN, ast.MASGN:
		return true
	case ast.SEND:
		name, ok := recv.SymbolAt(1)
		return ok && operators.IsBinary(string(name))
	}
	return false
}

// emitReceiver writes the effective receiver, parenthesized when ambiguous.
func (p *Printer) emitReceiver(recv *ast.Node) {
	recv = effectiveReceiver(recv)
	if receiverNeedsParens(recv) {
		p.parentheses(ParenOpen, ParenClose, func() { p.visit(recv) })
		return
	}
	p.visit(recv)
}

// ============================================================================
// Renderers
// ============================================================================

type plainCallRenderer struct{}

// render writes [receiver.]selector[(args)]. A setter without arguments is a
// multiple-assignment target whose value comes from the enclosing masgn, so
// its trailing = is dropped.
func (plainCallRenderer) render(p *Printer, c *call) {
	if c.receiver != nil {
		p.emitReceiver(c.receiver)
		p.write(CallDot)
	}

	selector := c.name
	if len(c.args) == 0 && strings.HasSuffix(selector, Assign) {
		selector = strings.TrimSuffix(selector, Assign)
	}
	p.write(selector)

	if len(c.args) == 0 {
		return
	}
	p.parentheses(ParenOpen, ParenClose, func() { p.delimited(c.args) })
}

type indexReadRenderer struct{}

func (indexReadRenderer) render(p *Printer, c *call) {
	p.visit(c.receiver)
	p.parentheses(BracketOpen, BracketClose, func() { p.delimited(c.args) })
}

type indexWriteRenderer struct{}

// render splits the arguments into index expressions and the assigned value
// (the last argument). With no arguments at all the node is a
// multiple-assignment target and only recv[] is written.
func (indexWriteRenderer) render(p *Printer, c *call) {
	p.visit(c.receiver)

	var index []*ast.Node
	if len(c.args) > 0 {
		index = c.args[:len(c.args)-1]
	}
	p.parentheses(BracketOpen, BracketClose, func() { p.delimited(index) })

	if len(c.args) == 0 {
		return
	}
	p.write(Whitespace, Assign, Whitespace)
	p.visit(c.args[len(c.args)-1])
}

type unaryRenderer struct{}

func (unaryRenderer) render(p *Printer, c *call) {
	if len(c.args) > 0 {
		malformed(c.node, "NODE-0010", map[string]any{"Name": c.name, "Count": len(c.args)})
	}
	p.write(operators.UnaryToken(c.name))
	p.emitReceiver(c.receiver)
}

type binaryRenderer struct{}

// render writes "recv op right". Calls that infix cannot express, a splatted
// first argument, more than one argument or none, use the explicit method
// form recv.op(args) instead.
func (binaryRenderer) render(p *Printer, c *call) {
	explicit := explicitCallForm(c.args)

	p.emitReceiver(c.receiver)
	if explicit {
		p.write(CallDot, c.name)
		p.parentheses(ParenOpen, ParenClose, func() { p.delimited(c.args) })
		return
	}
	p.write(Whitespace, c.name, Whitespace)
	p.visit(c.args[0])
}

func explicitCallForm(args []*ast.Node) bool {
	if len(args) != 1 {
		return true
	}
	return args[0].Is(ast.SPLAT)
}
