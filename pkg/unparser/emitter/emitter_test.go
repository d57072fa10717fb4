package emitter

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/sambeau/unparser/pkg/unparser/ast"
)

func TestLiterals(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"int", num(42), "42"},
		{"negative int", num(-7), "-7"},
		{"float", ast.NewFloat(1.5), "1.5"},
		{"whole float", ast.NewFloat(3), "3.0"},
		{"exponent float", ast.NewFloat(1e21), "1e+21"},
		{"string", ast.NewStr("hi"), `"hi"`},
		{"string escapes", ast.NewStr("a\"b\\c\n\t"), `"a\"b\\c\n\t"`},
		{"string interpolation marker", ast.NewStr("#{x}"), `"\#{x}"`},
		{"string control byte", ast.NewStr("\x01"), `"\x01"`},
		{"string escape char", ast.NewStr("\x1b"), `"\e"`},
		{"string utf8", ast.NewStr("héllo"), `"héllo"`},
		{"symbol", ast.NewSym("foo"), ":foo"},
		{"predicate symbol", ast.NewSym("foo?"), ":foo?"},
		{"setter symbol", ast.NewSym("foo="), ":foo="},
		{"operator symbol", ast.NewSym("[]="), ":[]="},
		{"ivar symbol", ast.NewSym("@foo"), ":@foo"},
		{"quoted symbol", ast.NewSym("foo bar"), `:"foo bar"`},
		{"nil", ast.New(ast.NIL), "nil"},
		{"true", ast.New(ast.TRUE), "true"},
		{"false", ast.New(ast.FALSE), "false"},
		{"self", ast.New(ast.SELF), "self"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderOK(t, tt.node)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestVariablesAndAssignment(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"lvar", lvar("a"), "a"},
		{"ivar", ast.New(ast.IVAR, ast.Symbol("@a")), "@a"},
		{"gvar", ast.New(ast.GVAR, ast.Symbol("$a")), "$a"},
		{"cvar", ast.New(ast.CVAR, ast.Symbol("@@a")), "@@a"},
		{"const", ast.New(ast.CONST, nil, ast.Symbol("Foo")), "Foo"},
		{"scoped const", ast.New(ast.CONST, ast.New(ast.CONST, nil, ast.Symbol("A")), ast.Symbol("B")), "A::B"},
		{"top-level const", ast.New(ast.CONST, ast.New(ast.CBASE), ast.Symbol("A")), "::A"},
		{"lvasgn", ast.New(ast.LVASGN, ast.Symbol("a"), num(1)), "a = 1"},
		{"ivasgn", ast.New(ast.IVASGN, ast.Symbol("@a"), send(lvar("b"), "+", num(1))), "@a = b + 1"},
		{"chained assignment", ast.New(ast.LVASGN, ast.Symbol("a"), ast.New(ast.LVASGN, ast.Symbol("b"), num(1))), "a = b = 1"},
		{"or_asgn", ast.New(ast.OR_ASGN, ast.New(ast.LVASGN, ast.Symbol("a")), num(1)), "a ||= 1"},
		{"attribute or_asgn", ast.New(ast.OR_ASGN, send(lvar("a"), "b"), num(1)), "a.b ||= 1"},
		{"index and_asgn", ast.New(ast.AND_ASGN, send(lvar("a"), "[]", num(0)), num(1)), "a[0] &&= 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderOK(t, tt.node)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMultipleAssignment(t *testing.T) {
	mlhs := func(targets ...*ast.Node) *ast.Node {
		children := make([]any, len(targets))
		for i, t := range targets {
			children[i] = t
		}
		return ast.New(ast.MLHS, children...)
	}
	lvasgn := func(name string) *ast.Node { return ast.New(ast.LVASGN, ast.Symbol(name)) }

	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{
			name:     "locals",
			node:     ast.New(ast.MASGN, mlhs(lvasgn("a"), lvasgn("b")), ast.NewArray(num(1), num(2))),
			expected: "a, b = [1, 2]",
		},
		{
			name:     "attribute target drops the setter suffix",
			node:     ast.New(ast.MASGN, mlhs(send(lvar("x"), "a="), lvasgn("b")), lvar("c")),
			expected: "x.a, b = c",
		},
		{
			name:     "splat target",
			node:     ast.New(ast.MASGN, mlhs(lvasgn("a"), ast.NewSplat(lvasgn("b"))), lvar("c")),
			expected: "a, *b = c",
		},
		{
			name:     "nested target list",
			node:     ast.New(ast.MASGN, mlhs(mlhs(lvasgn("a"), lvasgn("b")), lvasgn("c")), lvar("d")),
			expected: "(a, b), c = d",
		},
		{
			name:     "single target keeps comma",
			node:     ast.New(ast.MASGN, mlhs(lvasgn("a")), lvar("b")),
			expected: "a, = b",
		},
		{
			name:     "index target without value",
			node:     ast.New(ast.MASGN, mlhs(send(lvar("x"), "[]="), lvasgn("b")), lvar("c")),
			expected: "x[], b = c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderOK(t, tt.node)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestStructure(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"irange", ast.NewIrange(num(1), lvar("n")), "1..n"},
		{"erange", ast.NewErange(num(0), send(lvar("a"), "size")), "0...a.size"},
		{"range of binary", ast.NewIrange(send(lvar("a"), "+", num(1)), lvar("b")), "a + 1..b"},
		{"nested range operand", ast.NewIrange(ast.NewIrange(num(1), num(2)), num(3)), "(1..2)..3"},
		{"begin", ast.NewBegin(lvar("a")), "(a)"},
		{"begin with statements", ast.NewBegin(lvar("a"), lvar("b")), "(a; b)"},
		{"empty begin", ast.NewBegin(), "()"},
		{"splat", ast.NewSplat(lvar("a")), "*a"},
		{"anonymous splat", ast.NewSplat(nil), "*"},
		{"array", ast.NewArray(num(1), ast.NewSplat(lvar("a"))), "[1, *a]"},
		{"empty array", ast.NewArray(), "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderOK(t, tt.node)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestMalformedLiterals(t *testing.T) {
	tests := []struct {
		name string
		node *ast.Node
		code string
	}{
		{"int with string", ast.New(ast.INT, "1"), "NODE-0005"},
		{"str with symbol", ast.New(ast.STR, ast.Symbol("a")), "NODE-0005"},
		{"lvar with string", ast.New(ast.LVAR, "a"), "NODE-0005"},
		{"infinite float", ast.NewFloat(math.Inf(1)), "NODE-0007"},
		{"masgn without mlhs", ast.New(ast.MASGN, lvar("a"), lvar("b")), "NODE-0005"},
		{"nil root", nil, "NODE-0004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(tt.node)
			var mErr *MalformedNodeError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedNodeError, got %v", err)
			}
			if mErr.Err.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, mErr.Err.Code)
			}
		})
	}
}

func TestMalformedErrorMessage(t *testing.T) {
	node := send(nil, "+", num(1))
	_, err := Render(node)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "binary call `+` requires a receiver") {
		t.Errorf("unexpected message %q", msg)
	}
	if !strings.Contains(msg, "in: (send nil :+ (int 1))") {
		t.Errorf("expected offending node in %q", msg)
	}
}

func TestDepthLimit(t *testing.T) {
	node := lvar("a")
	for i := 0; i < MaxDepth+5; i++ {
		node = send(node, "b")
	}
	_, err := Render(node)
	var mErr *MalformedNodeError
	if !errors.As(err, &mErr) || mErr.Err.Code != "NODE-0008" {
		t.Errorf("expected depth error, got %v", err)
	}
}

func TestRenderProgram(t *testing.T) {
	out, err := RenderProgram([]*ast.Node{
		ast.New(ast.LVASGN, ast.Symbol("a"), num(1)),
		send(lvar("a"), "+", num(2)),
	})
	if err != nil {
		t.Fatalf("RenderProgram failed: %v", err)
	}
	expected := "a = 1\na + 2"
	if out != expected {
		t.Errorf("expected %q, got %q", expected, out)
	}

	if _, err := RenderProgram([]*ast.Node{lvar("a"), ast.New(ast.SEND)}); err == nil {
		t.Error("expected malformed statement to fail the program")
	}
}

func TestPrinterParenthesesClosesOnAbort(t *testing.T) {
	p := NewPrinter()
	func() {
		defer func() { _ = recover() }()
		p.parentheses("(", ")", func() {
			p.write("a")
			malformed(nil, "NODE-0006", nil)
		})
	}()
	if p.String() != "(a)" {
		t.Errorf("expected close token after abort, got %q", p.String())
	}

	p.Reset()
	if p.String() != "" {
		t.Errorf("expected empty printer after Reset, got %q", p.String())
	}
}
