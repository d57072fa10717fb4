package emitter

import (
	"errors"
	"sync"
	"testing"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// Tree-building shorthands.
func lvar(name string) *ast.Node { return ast.NewLvar(name) }
func num(v int64) *ast.Node      { return ast.NewInt(v) }

func send(recv *ast.Node, name string, args ...*ast.Node) *ast.Node {
	return ast.NewSend(recv, name, args...)
}

func renderOK(t *testing.T, node *ast.Node) string {
	t.Helper()
	out, err := Render(node)
	if err != nil {
		t.Fatalf("Render(%s) failed: %v", node, err)
	}
	return out
}

func TestSendScenarios(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"method call", send(lvar("a"), "b"), "a.b"},
		{"index read", send(lvar("a"), "[]", num(0)), "a[0]"},
		{"index write", send(lvar("a"), "[]=", num(0), num(1)), "a[0] = 1"},
		{"binary", send(num(1), "+", num(2)), "1 + 2"},
		{"range receiver", send(ast.NewIrange(num(1), num(2)), "+", num(2)), "(1..2) + 2"},
		{"unary minus", send(lvar("a"), "-@"), "-a"},
		{"binary with two args", send(lvar("a"), "+", lvar("b"), lvar("c")), "a.+(b, c)"},
		{"binary with splat", send(lvar("a"), "+", ast.NewSplat(lvar("b"))), "a.+(*b)"},
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

func TestPlainCall(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"receiverless", send(nil, "foo"), "foo"},
		{"receiverless with args", send(nil, "foo", num(1), lvar("b")), "foo(1, b)"},
		{"predicate name", send(lvar("a"), "empty?"), "a.empty?"},
		{"splat argument", send(nil, "foo", ast.NewSplat(lvar("args"))), "foo(*args)"},
		{"chained", send(send(lvar("a"), "b"), "c", num(1)), "a.b.c(1)"},
		{"self receiver", send(ast.New(ast.SELF), "foo"), "self.foo"},
		{"setter target without value", send(lvar("a"), "b="), "a.b"},
		{"setter with value", send(lvar("a"), "b=", num(1)), "a.b=(1)"},
		{"literal receiver", send(num(1), "succ"), "1.succ"},
		{"negative literal receiver", send(num(-1), "abs"), "-1.abs"},
		{"constant receiver", send(ast.New(ast.CONST, nil, ast.Symbol("Foo")), "new"), "Foo.new"},
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

func TestIndexCalls(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"empty read", send(lvar("a"), "[]"), "a[]"},
		{"multi read", send(lvar("a"), "[]", num(1), num(2)), "a[1, 2]"},
		{"range index", send(lvar("a"), "[]", ast.NewIrange(num(1), num(2))), "a[1..2]"},
		{"write without index", send(lvar("a"), "[]=", num(1)), "a[] = 1"},
		{"multi index write", send(lvar("a"), "[]=", num(1), num(2), num(3)), "a[1, 2] = 3"},
		{"write target without value", send(lvar("a"), "[]="), "a[]"},
		{"grouped receiver kept", send(ast.NewBegin(send(lvar("a"), "+", lvar("b"))), "[]", num(0)), "(a + b)[0]"},
		{"chained index", send(send(lvar("a"), "[]", num(0)), "[]", num(1)), "a[0][1]"},
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

func TestUnaryCalls(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"not", send(lvar("a"), "!"), "!a"},
		{"complement", send(lvar("a"), "~"), "~a"},
		{"unary plus", send(lvar("a"), "+@"), "+a"},
		{"double minus", send(send(lvar("a"), "-@"), "-@"), "--a"},
		{"binary receiver", send(send(lvar("a"), "+", lvar("b")), "-@"), "-(a + b)"},
		{"grouped binary receiver", send(ast.NewBegin(send(lvar("a"), "==", lvar("b"))), "!"), "!(a == b)"},
		{"range receiver", send(ast.NewErange(num(1), num(2)), "!"), "!(1...2)"},
		{"call receiver", send(send(lvar("a"), "foo"), "!"), "!a.foo"},
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

func TestBinaryCalls(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"binary receiver", send(send(lvar("a"), "+", lvar("b")), "*", lvar("c")), "(a + b) * c"},
		{"tighter right operand", send(lvar("a"), "+", send(lvar("b"), "*", lvar("c"))), "a + b * c"},
		{"grouped right operand", send(lvar("a"), "-", ast.NewBegin(send(lvar("b"), "-", lvar("c")))), "a - (b - c)"},
		{"call receiver", send(send(lvar("a"), "size"), ">", num(0)), "a.size > 0"},
		{"index receiver", send(send(lvar("a"), "[]", num(0)), "<<", num(1)), "a[0] << 1"},
		{"and_asgn receiver", send(ast.New(ast.AND_ASGN, ast.New(ast.LVASGN, ast.Symbol("a")), num(1)), "==", num(1)), "(a &&= 1) == 1"},
		{"comparison", send(lvar("a"), "<=>", lvar("b")), "a <=> b"},
		{"match", send(lvar("a"), "=~", lvar("b")), "a =~ b"},
		{"no arguments", send(lvar("a"), "+"), "a.+()"},
		{"splat then more", send(lvar("a"), "+", ast.NewSplat(lvar("b")), lvar("c")), "a.+(*b, c)"},
		{"explicit form with binary receiver", send(send(lvar("a"), "-", lvar("b")), "+", lvar("c"), lvar("d")), "(a - b).+(c, d)"},
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

func TestReceiverDisambiguation(t *testing.T) {
	tests := []struct {
		name     string
		node     *ast.Node
		expected string
	}{
		{"identifier receiver is bare", send(lvar("a"), "foo"), "a.foo"},
		{"single-child begin is unwrapped", send(ast.NewBegin(lvar("a")), "foo"), "a.foo"},
		{"multi-statement begin kept", send(ast.NewBegin(lvar("a"), lvar("b")), "foo"), "(a; b).foo"},
		{"inclusive range", send(ast.NewIrange(num(1), num(2)), "each"), "(1..2).each"},
		{"exclusive range in begin", send(ast.NewBegin(ast.NewErange(num(1), num(2))), "to_a"), "(1...2).to_a"},
		{"or_asgn", send(ast.New(ast.OR_ASGN, ast.New(ast.IVASGN, ast.Symbol("@a")), num(1)), "foo"), "(@a ||= 1).foo"},
		{"binary send", send(send(lvar("a"), "|", lvar("b")), "foo"), "(a | b).foo"},
		{"grouped assignment", send(ast.NewBegin(ast.New(ast.LVASGN, ast.Symbol("a"), num(1))), "foo"), "(a = 1).foo"},
		{"assignment before operator", send(ast.NewBegin(ast.New(ast.LVASGN, ast.Symbol("a"), num(1))), "+", num(2)), "(a = 1) + 2"},
		{"assignment under unary", send(ast.NewBegin(ast.New(ast.LVASGN, ast.Symbol("x"), num(2))), "-@"), "-(x = 2)"},
		{"bare ivar assignment", send(ast.New(ast.IVASGN, ast.Symbol("@a"), num(1)), "foo"), "(@a = 1).foo"},
		{"multiple assignment", send(ast.New(ast.MASGN, ast.New(ast.MLHS, ast.New(ast.LVASGN, ast.Symbol("a")), ast.New(ast.LVASGN, ast.Symbol("b"))), lvar("c")), "foo"), "(a, b = c).foo"},
		{"non-operator send", send(send(lvar("a"), "bar"), "foo"), "a.bar.foo"},
		{"unary send is not binary", send(send(lvar("a"), "!"), "==", lvar("b")), "!a == b"},
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

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		expected callForm
	}{
		{"[]", indexRead},
		{"[]=", indexWrite},
		{"+", binaryCall},
		{"**", binaryCall},
		{"-@", unaryCall},
		{"!", unaryCall},
		{"foo", plainCall},
		{"foo=", plainCall},
		{"-", binaryCall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.name); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMalformedCalls(t *testing.T) {
	tests := []struct {
		name string
		node *ast.Node
		code string
	}{
		{"no children", ast.New(ast.SEND), "NODE-0001"},
		{"no name", ast.New(ast.SEND, nil), "NODE-0001"},
		{"string name", ast.New(ast.SEND, nil, "foo"), "NODE-0002"},
		{"empty name", ast.New(ast.SEND, nil, ast.Symbol("")), "NODE-0006"},
		{"name with space", send(lvar("a"), "a b"), "NODE-0009"},
		{"name with leading digit", send(lvar("a"), "1x"), "NODE-0009"},
		{"ivar as name", send(lvar("a"), "@b"), "NODE-0009"},
		{"two suffixes", send(lvar("a"), "b?="), "NODE-0009"},
		{"unary with argument", send(lvar("a"), "-@", num(1)), "NODE-0010"},
		{"not with argument", send(lvar("a"), "!", lvar("b")), "NODE-0010"},
		{"receiverless binary", send(nil, "+", num(1)), "NODE-0003"},
		{"receiverless index", send(nil, "[]", num(1)), "NODE-0003"},
		{"receiverless unary", send(nil, "-@"), "NODE-0003"},
		{"terminal argument", ast.New(ast.SEND, lvar("a"), ast.Symbol("foo"), int64(1)), "NODE-0005"},
		{"nil argument", ast.New(ast.SEND, lvar("a"), ast.Symbol("foo"), nil), "NODE-0005"},
		{"symbol receiver", ast.New(ast.SEND, ast.Symbol("a"), ast.Symbol("foo")), "NODE-0005"},
		{"nested malformed argument", send(lvar("a"), "foo", ast.New(ast.SEND)), "NODE-0001"},
		{"unknown kind", send(lvar("a"), "foo", ast.New("block")), "NODE-0004"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Render(tt.node)
			if err == nil {
				t.Fatalf("expected error, got output %q", out)
			}
			if out != "" {
				t.Errorf("expected no partial output, got %q", out)
			}

			var mErr *MalformedNodeError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected *MalformedNodeError, got %T", err)
			}
			if mErr.Err.Code != tt.code {
				t.Errorf("expected code %s, got %s (%s)", tt.code, mErr.Err.Code, mErr.Err.Message)
			}

			var uErr *uerrors.UnparserError
			if !errors.As(err, &uErr) || uErr.Class != uerrors.ClassMalformed {
				t.Errorf("expected malformed UnparserError in chain, got %v", err)
			}
		})
	}
}

func TestUnknownKindHint(t *testing.T) {
	_, err := Render(ast.New("sned", nil, ast.Symbol("a")))
	var mErr *MalformedNodeError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *MalformedNodeError, got %v", err)
	}
	if len(mErr.Err.Hints) == 0 || mErr.Err.Hints[0] != "Did you mean `send`?" {
		t.Errorf("expected send suggestion, got %v", mErr.Err.Hints)
	}
}

func TestMustRenderPanicsOnMalformed(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	MustRender(ast.New(ast.SEND))
}

func TestRenderIsIdempotentAndPure(t *testing.T) {
	node := send(
		ast.NewBegin(send(ast.NewIrange(num(1), num(2)), "+", num(2))),
		"[]=",
		send(lvar("i"), "-@"),
		send(lvar("a"), "+", lvar("b"), ast.NewSplat(lvar("c"))),
	)
	before := node.String()

	first := renderOK(t, node)
	second := renderOK(t, node)

	if first != second {
		t.Errorf("expected identical output, got %q then %q", first, second)
	}
	if node.String() != before {
		t.Errorf("render mutated the tree: %s became %s", before, node)
	}
	expected := "((1..2) + 2)[-i] = a.+(b, *c)"
	if first != expected {
		t.Errorf("expected %q, got %q", expected, first)
	}
}

func TestConcurrentRenders(t *testing.T) {
	node := send(send(lvar("a"), "+", lvar("b")), "foo", send(lvar("c"), "[]", num(1)))
	want := renderOK(t, node)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Render(node)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if got != want {
			t.Errorf("render %d: expected %q, got %q", i, want, got)
		}
	}
}

func TestIsMethodName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"foo", true},
		{"Foo", true},
		{"_x1", true},
		{"empty?", true},
		{"save!", true},
		{"b=", true},
		{"if", true},
		{"<=>", true},
		{"[]=", true},
		{"-@", true},
		{"", false},
		{"a b", false},
		{"1x", false},
		{"@a", false},
		{"$a", false},
		{"b?=", false},
		{"a.b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMethodName(tt.name); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
