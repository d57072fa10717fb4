package ast

import (
	"math"
	"strconv"
	"strings"
)

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind != b.Kind || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !valueEqual(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Node:
		y, ok := b.(*Node)
		return ok && Equal(x, y)
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	default:
		return a == b
	}
}

// Normalize returns a copy of n in which every begin node holding exactly one
// child node is replaced by that child. Grouping parentheses that a renderer
// adds or drops therefore do not affect equivalence.
func Normalize(n *Node) *Node {
	if n == nil {
		return nil
	}
	if n.Kind == BEGIN && len(n.Children) == 1 {
		if inner, ok := n.Children[0].(*Node); ok {
			return Normalize(inner)
		}
	}
	children := make([]any, len(n.Children))
	for i, c := range n.Children {
		if cn, ok := c.(*Node); ok {
			children[i] = Normalize(cn)
		} else {
			children[i] = c
		}
	}
	return &Node{Kind: n.Kind, Children: children}
}

// Equivalent reports whether a and b are equal modulo single-child begin
// wrappers.
func Equivalent(a, b *Node) bool {
	return Equal(Normalize(a), Normalize(b))
}

// FirstDifference walks a and b in parallel and returns the first pair of
// subtrees that differ. ok is false when the trees are equal.
func FirstDifference(a, b *Node) (left, right *Node, ok bool) {
	if Equal(a, b) {
		return nil, nil, false
	}
	if a == nil || b == nil || a.Kind != b.Kind || len(a.Children) != len(b.Children) {
		return a, b, true
	}
	for i := range a.Children {
		an, aok := a.Children[i].(*Node)
		bn, bok := b.Children[i].(*Node)
		if aok && bok {
			if l, r, diff := FirstDifference(an, bn); diff {
				return l, r, true
			}
			continue
		}
		if !valueEqual(a.Children[i], b.Children[i]) {
			return a, b, true
		}
	}
	return a, b, true
}

// FormatSymbol formats a symbol for s-expression output: :name, or :"quoted"
// when the name contains characters the reader would treat as delimiters.
func FormatSymbol(s Symbol) string {
	name := string(s)
	if name == "" || strings.ContainsAny(name, " \t\r\n()\"';#\\") {
		return ":" + strconv.Quote(name)
	}
	return ":" + name
}

// QuoteString formats a string child for s-expression output.
func QuoteString(s string) string {
	return strconv.Quote(s)
}

// FormatFloat formats a float so that it always reads back as a float.
func FormatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}
