package roundtrip

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/emitter"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

func TestCheckEquivalent(t *testing.T) {
	tests := []struct {
		source   string
		rendered string
	}{
		{"a + b", "a + b"},
		{"a + b * c", "a + b * c"},
		{"(a + b) * c", "(a + b) * c"},
		{"-a ** 2", "-(a ** 2)"},
		{"!a", "!a"},
		{"a.b(1,2)", "a.b(1, 2)"},
		{"a[1]", "a[1]"},
		{"a[1] = 2", "a[1] = 2"},
		{"a.b = 1", "a.b=(1)"},
		{"x = 1; x.+(2, 3)", "x = 1\nx.+(2, 3)"},
		{"(1..2).to_a", "(1..2).to_a"},
		{"a, b = c", "a, b = c"},
		{"a = 1\n(a = 1).foo", "a = 1\n(a = 1).foo"},
		{"a = 1\n(a = 1) + 2", "a = 1\n(a = 1) + 2"},
		{"x = 1\n-(x = 2)", "x = 1\n-(x = 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			res, err := Check(tt.source)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if res.Rendered != tt.rendered {
				t.Errorf("expected rendering %q, got %q", tt.rendered, res.Rendered)
			}
			if !res.Equivalent {
				t.Errorf("expected equivalent round trip: %v", res.Err())
			}
			if res.Err() != nil {
				t.Errorf("expected no error, got %v", res.Err())
			}
			if _, _, ok := res.Diff(); ok {
				t.Error("expected no diff")
			}
			if res.Source != tt.source {
				t.Errorf("expected source %q, got %q", tt.source, res.Source)
			}
		})
	}
}

func TestCheckUnaryReceiverRegroups(t *testing.T) {
	// A parenthesized unary receiver is rendered without its grouping, so
	// the call binds tighter than the sign on the way back in.
	res, err := Check("(-a).foo")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Rendered != "-a.foo" {
		t.Errorf("expected %q, got %q", "-a.foo", res.Rendered)
	}
	if res.Equivalent {
		t.Fatal("expected round trip to fail")
	}

	expected, got, ok := res.Diff()
	if !ok {
		t.Fatal("expected a diff")
	}
	if expected != "(send (send nil :a) :-@)" {
		t.Errorf("expected left %q, got %q", "(send (send nil :a) :-@)", expected)
	}
	if got != "(send (send nil :a) :foo)" {
		t.Errorf("expected right %q, got %q", "(send (send nil :a) :foo)", got)
	}

	tripErr := res.Err()
	if tripErr == nil || tripErr.Code != "TRIP-0002" {
		t.Fatalf("expected TRIP-0002, got %v", tripErr)
	}
	if tripErr.Class != uerrors.ClassRoundTrip {
		t.Errorf("expected class %s, got %s", uerrors.ClassRoundTrip, tripErr.Class)
	}
}

func TestCheckSourceError(t *testing.T) {
	_, err := Check("a +")
	var uErr *uerrors.UnparserError
	if !errors.As(err, &uErr) {
		t.Fatalf("expected *UnparserError, got %v", err)
	}
	if uErr.Code != "PARSE-0001" {
		t.Errorf("expected PARSE-0001, got %s", uErr.Code)
	}
}

func TestCheckTreeDeclaresLocals(t *testing.T) {
	tree := ast.NewSend(ast.NewLvar("a"), "+", ast.NewInt(1))

	res, err := CheckTree(tree)
	if err != nil {
		t.Fatalf("CheckTree failed: %v", err)
	}
	if res.Rendered != "a + 1" {
		t.Errorf("expected %q, got %q", "a + 1", res.Rendered)
	}
	if !res.Equivalent {
		t.Errorf("expected lvar to read back as lvar, got %s", res.Reparsed[0])
	}
	if res.Source != "" {
		t.Errorf("expected no source for tree input, got %q", res.Source)
	}
}

func TestCheckTreeReparseFailure(t *testing.T) {
	tree := ast.New(ast.LVASGN, ast.Symbol("if"), ast.NewInt(1))

	res, err := CheckTree(tree)
	if err != nil {
		t.Fatalf("CheckTree failed: %v", err)
	}
	if res.Rendered != "if = 1" {
		t.Errorf("expected %q, got %q", "if = 1", res.Rendered)
	}
	if res.Equivalent || res.Reparsed != nil {
		t.Fatal("expected reparse to fail")
	}
	if res.ReparseErr == nil {
		t.Fatal("expected a reparse error")
	}

	tripErr := res.Err()
	if tripErr == nil || tripErr.Code != "TRIP-0001" {
		t.Fatalf("expected TRIP-0001, got %v", tripErr)
	}
	if tripErr.Hints[0] != "rendered: if = 1" {
		t.Errorf("unexpected hint %q", tripErr.Hints[0])
	}
}

func TestCheckTreeMalformed(t *testing.T) {
	// operator call without a receiver
	tree := ast.NewSend(nil, "+", ast.NewInt(1))

	_, err := CheckTree(tree)
	var mErr *emitter.MalformedNodeError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected *MalformedNodeError, got %v", err)
	}
	if mErr.Err.Code != "NODE-0003" {
		t.Errorf("expected NODE-0003, got %s", mErr.Err.Code)
	}
}

func TestCheckTreeStatementCount(t *testing.T) {
	res := &Result{
		Tree:     []*ast.Node{ast.NewInt(1), ast.NewInt(2)},
		Reparsed: []*ast.Node{ast.NewInt(1)},
	}
	expected, got, ok := res.Diff()
	if !ok {
		t.Fatal("expected a diff")
	}
	if expected != "(int 1)\n(int 2)" || got != "(int 1)" {
		t.Errorf("unexpected diff %q / %q", expected, got)
	}
}

func TestLocals(t *testing.T) {
	tree := []*ast.Node{
		ast.New(ast.LVASGN, ast.Symbol("x"), ast.NewInt(1)),
		ast.NewSend(ast.NewLvar("y"), "+", ast.NewLvar("x")),
		ast.NewSend(nil, "z"),
	}
	got := Locals(tree...)
	expected := []string{"x", "y"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}
