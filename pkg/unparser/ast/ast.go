// Package ast defines the tree the unparser consumes.
//
// Nodes follow the shape used by Ruby's parser gem: every node has a kind and
// an ordered list of children. A child is either a nested *Node, a terminal
// value (Symbol, int64, float64 or string) or nil for an absent slot such as
// the receiver of a receiverless call.
package ast

import (
	"bytes"
	"fmt"
)

// Kind names the type of a node, e.g. "send" or "lvar".
type Kind string

const (
	// Calls
	SEND Kind = "send" // (send receiver :name args...)

	// Literals
	INT   Kind = "int"   // (int 1)
	FLOAT Kind = "float" // (float 1.5)
	STR   Kind = "str"   // (str "foo")
	SYM   Kind = "sym"   // (sym :foo)
	NIL   Kind = "nil"   // (nil)
	TRUE  Kind = "true"  // (true)
	FALSE Kind = "false" // (false)
	SELF  Kind = "self"  // (self)
	ARRAY Kind = "array" // (array elems...)

	// Variables and constants
	LVAR  Kind = "lvar"  // (lvar :a)
	IVAR  Kind = "ivar"  // (ivar :@a)
	GVAR  Kind = "gvar"  // (gvar :$a)
	CVAR  Kind = "cvar"  // (cvar :@@a)
	CONST Kind = "const" // (const scope :Name)
	CBASE Kind = "cbase" // (cbase), the leading :: of ::Name

	// Assignment
	LVASGN   Kind = "lvasgn"   // (lvasgn :a value?)
	IVASGN   Kind = "ivasgn"   // (ivasgn :@a value?)
	GVASGN   Kind = "gvasgn"   // (gvasgn :$a value?)
	CVASGN   Kind = "cvasgn"   // (cvasgn :@@a value?)
	OR_ASGN  Kind = "or_asgn"  // (or_asgn target value)
	AND_ASGN Kind = "and_asgn" // (and_asgn target value)
	MASGN    Kind = "masgn"    // (masgn (mlhs ...) value)
	MLHS     Kind = "mlhs"     // (mlhs targets...)

	// Structure
	IRANGE Kind = "irange" // (irange from to)
	ERANGE Kind = "erange" // (erange from to)
	BEGIN  Kind = "begin"  // (begin stmts...), explicit parentheses
	SPLAT  Kind = "splat"  // (splat value?)
)

// Kinds lists every kind the unparser knows how to render.
var Kinds = []Kind{
	SEND,
	INT, FLOAT, STR, SYM, NIL, TRUE, FALSE, SELF, ARRAY,
	LVAR, IVAR, GVAR, CVAR, CONST, CBASE,
	LVASGN, IVASGN, GVASGN, CVASGN, OR_ASGN, AND_ASGN, MASGN, MLHS,
	IRANGE, ERANGE, BEGIN, SPLAT,
}

var kindSet = func() map[Kind]bool {
	m := make(map[Kind]bool, len(Kinds))
	for _, k := range Kinds {
		m[k] = true
	}
	return m
}()

// IsKind reports whether name is a known node kind.
func IsKind(name string) bool {
	return kindSet[Kind(name)]
}

// KindNames returns the known kinds as strings (for "did you mean" hints).
func KindNames() []string {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return names
}

// Symbol is a terminal naming a method, variable or symbol literal.
type Symbol string

// Node is a single tree node. Nodes are treated as immutable once built.
type Node struct {
	Kind     Kind
	Children []any
}

// New creates a node of the given kind.
func New(kind Kind, children ...any) *Node {
	return &Node{Kind: kind, Children: children}
}

// NewSend creates a call node. recv may be nil for an implicit-self call.
func NewSend(recv *Node, name string, args ...*Node) *Node {
	children := make([]any, 0, len(args)+2)
	if recv == nil {
		children = append(children, nil)
	} else {
		children = append(children, recv)
	}
	children = append(children, Symbol(name))
	for _, a := range args {
		children = append(children, a)
	}
	return &Node{Kind: SEND, Children: children}
}

func NewInt(v int64) *Node     { return New(INT, v) }
func NewFloat(v float64) *Node { return New(FLOAT, v) }
func NewStr(v string) *Node    { return New(STR, v) }
func NewSym(v string) *Node    { return New(SYM, Symbol(v)) }
func NewLvar(name string) *Node {
	return New(LVAR, Symbol(name))
}

// NewBegin wraps nodes in an explicit parenthesized group.
func NewBegin(body ...*Node) *Node {
	return New(BEGIN, nodesToChildren(body)...)
}

// NewSplat creates *value.
func NewSplat(value *Node) *Node {
	if value == nil {
		return New(SPLAT)
	}
	return New(SPLAT, value)
}

// NewIrange creates from..to. Either bound may be nil for an endless range.
func NewIrange(from, to *Node) *Node { return New(IRANGE, nodesToChildren([]*Node{from, to})...) }
func NewErange(from, to *Node) *Node { return New(ERANGE, nodesToChildren([]*Node{from, to})...) }

// NewArray creates an array literal.
func NewArray(elems ...*Node) *Node {
	return New(ARRAY, nodesToChildren(elems)...)
}

func nodesToChildren(nodes []*Node) []any {
	children := make([]any, len(nodes))
	for i, n := range nodes {
		if n == nil {
			children[i] = nil
		} else {
			children[i] = n
		}
	}
	return children
}

// Len returns the number of children.
func (n *Node) Len() int {
	return len(n.Children)
}

// Child returns the i-th child, or nil when i is out of range.
func (n *Node) Child(i int) any {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// NodeAt returns the i-th child if it is a node.
func (n *Node) NodeAt(i int) *Node {
	if c, ok := n.Child(i).(*Node); ok {
		return c
	}
	return nil
}

// SymbolAt returns the i-th child if it is a symbol.
func (n *Node) SymbolAt(i int) (Symbol, bool) {
	s, ok := n.Child(i).(Symbol)
	return s, ok
}

// Is reports whether n is non-nil and of one of the given kinds.
func (n *Node) Is(kinds ...Kind) bool {
	if n == nil {
		return false
	}
	for _, k := range kinds {
		if n.Kind == k {
			return true
		}
	}
	return false
}

// String returns the s-expression form, e.g. (send (lvar :a) :+ (int 1)).
func (n *Node) String() string {
	var out bytes.Buffer
	writeSexp(&out, n)
	return out.String()
}

// Inspect formats any child value the way String formats it inside a node.
func Inspect(v any) string {
	var out bytes.Buffer
	writeValue(&out, v)
	return out.String()
}

func writeSexp(out *bytes.Buffer, n *Node) {
	if n == nil {
		out.WriteString("nil")
		return
	}
	out.WriteString("(")
	out.WriteString(string(n.Kind))
	for _, c := range n.Children {
		out.WriteString(" ")
		writeValue(out, c)
	}
	out.WriteString(")")
}

func writeValue(out *bytes.Buffer, v any) {
	switch c := v.(type) {
	case nil:
		out.WriteString("nil")
	case *Node:
		writeSexp(out, c)
	case Symbol:
		out.WriteString(FormatSymbol(c))
	case string:
		out.WriteString(QuoteString(c))
	case int64:
		fmt.Fprintf(out, "%d", c)
	case float64:
		out.WriteString(FormatFloat(c))
	default:
		fmt.Fprintf(out, "#<%T %v>", v, v)
	}
}
