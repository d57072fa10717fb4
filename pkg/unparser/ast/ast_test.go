package ast

import (
	"testing"
)

func TestNodeString(t *testing.T) {
	tests := []struct {
		name     string
		node     *Node
		expected string
	}{
		{
			name:     "receiverless call",
			node:     NewSend(nil, "foo"),
			expected: "(send nil :foo)",
		},
		{
			name:     "binary operator",
			node:     NewSend(NewLvar("a"), "+", NewInt(1)),
			expected: "(send (lvar :a) :+ (int 1))",
		},
		{
			name:     "index assignment",
			node:     NewSend(NewLvar("a"), "[]=", NewInt(0), NewStr("x")),
			expected: `(send (lvar :a) :[]= (int 0) (str "x"))`,
		},
		{
			name:     "leaf kinds",
			node:     NewArray(New(NIL), New(TRUE), New(SELF)),
			expected: "(array (nil) (true) (self))",
		},
		{
			name:     "float keeps a decimal point",
			node:     NewFloat(2),
			expected: "(float 2.0)",
		},
		{
			name:     "quoted symbol",
			node:     NewSym("foo bar"),
			expected: `(sym :"foo bar")`,
		},
		{
			name:     "empty splat",
			node:     NewSplat(nil),
			expected: "(splat)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.node.String()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	n := NewSend(NewLvar("a"), "b", NewInt(1))

	if n.Len() != 3 {
		t.Fatalf("expected 3 children, got %d", n.Len())
	}
	if recv := n.NodeAt(0); recv == nil || recv.Kind != LVAR {
		t.Errorf("expected lvar receiver, got %v", recv)
	}
	if name, ok := n.SymbolAt(1); !ok || name != "b" {
		t.Errorf("expected symbol b, got %q (ok=%v)", name, ok)
	}
	if n.NodeAt(1) != nil {
		t.Error("expected NodeAt on a symbol child to be nil")
	}
	if n.Child(10) != nil {
		t.Error("expected out-of-range Child to be nil")
	}
	if !n.Is(LVAR, SEND) {
		t.Error("expected Is to match send")
	}
	var missing *Node
	if missing.Is(SEND) {
		t.Error("expected nil node to match nothing")
	}
}

func TestIsKind(t *testing.T) {
	for _, k := range Kinds {
		if !IsKind(string(k)) {
			t.Errorf("expected %q to be a kind", k)
		}
	}
	if IsKind("block") {
		t.Error("expected block to be unknown")
	}
	if len(KindNames()) != len(Kinds) {
		t.Errorf("expected %d names, got %d", len(Kinds), len(KindNames()))
	}
}

func TestEquivalent(t *testing.T) {
	plain := NewSend(NewIrange(NewInt(1), NewInt(2)), "+", NewInt(2))
	wrapped := NewSend(NewBegin(NewIrange(NewInt(1), NewInt(2))), "+", NewInt(2))

	if Equal(plain, wrapped) {
		t.Error("expected begin wrapper to break strict equality")
	}
	if !Equivalent(plain, wrapped) {
		t.Error("expected single-child begin to be ignored by Equivalent")
	}

	multi := NewBegin(NewLvar("a"), NewLvar("b"))
	if Equivalent(multi, NewLvar("a")) {
		t.Error("expected multi-statement begin to be kept")
	}

	if Equivalent(NewFloat(1), NewInt(1)) {
		t.Error("expected float and int to differ")
	}
}

func TestNormalizeDoesNotMutate(t *testing.T) {
	inner := NewLvar("a")
	n := NewSend(NewBegin(inner), "b")
	before := n.String()

	_ = Normalize(n)

	if n.String() != before {
		t.Errorf("expected %q to be unchanged, got %q", before, n.String())
	}
}

func TestFirstDifference(t *testing.T) {
	a := NewSend(NewLvar("a"), "+", NewSend(NewLvar("b"), "*", NewInt(2)))
	b := NewSend(NewLvar("a"), "+", NewSend(NewLvar("b"), "*", NewInt(3)))

	left, right, ok := FirstDifference(a, b)
	if !ok {
		t.Fatal("expected a difference")
	}
	if left.String() != "(int 2)" || right.String() != "(int 3)" {
		t.Errorf("expected (int 2)/(int 3), got %s/%s", left, right)
	}

	if _, _, ok := FirstDifference(a, a); ok {
		t.Error("expected no difference for identical trees")
	}
}
