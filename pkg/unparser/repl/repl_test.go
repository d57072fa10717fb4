package repl

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestEval(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		input    string
		expected string
	}{
		{
			name:     "ruby binary",
			mode:     ModeRuby,
			input:    "a + b",
			expected: "tree:     (send (send nil :a) :+ (send nil :b))\nrendered: a + b\nok\n",
		},
		{
			name:     "ruby index write",
			mode:     ModeRuby,
			input:    "a[1] = 2",
			expected: "tree:     (send (send nil :a) :[]= (int 1) (int 2))\nrendered: a[1] = 2\nok\n",
		},
		{
			name:     "sexp binary",
			mode:     ModeSexp,
			input:    "(send (int 1) :+ (int 2))",
			expected: "rendered: 1 + 2\nok\n",
		},
		{
			name:     "sexp two trees",
			mode:     ModeSexp,
			input:    "(send nil :a)\n(send (lvar :x) :-@)",
			expected: "rendered: a\n          -x\nok\n",
		},
		{
			name:     "empty sexp",
			mode:     ModeSexp,
			input:    "; nothing",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			Eval(tt.input, tt.mode, &out)
			if out.String() != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, out.String())
			}
		})
	}
}

func TestEvalErrors(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		input    string
		expected string
	}{
		{"parse error", ModeRuby, "a +", "Parse error: line 1, column 4"},
		{"unsupported", ModeRuby, "a && b", "is not supported"},
		{"sexp error", ModeSexp, "(send", "Parse error"},
		{"malformed", ModeSexp, "(send nil :+ (int 1))", "Malformed node"},
		{"round trip", ModeRuby, "(-a).foo", "Round-trip failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			Eval(tt.input, tt.mode, &out)
			if !strings.Contains(out.String(), tt.expected) {
				t.Errorf("expected output containing %q, got %q", tt.expected, out.String())
			}
		})
	}
}

func TestSessionKeepsLocals(t *testing.T) {
	s := NewSession(ModeRuby)
	var out bytes.Buffer

	s.Eval("x = 1", &out)
	out.Reset()
	s.Eval("x + 1", &out)
	if !strings.HasPrefix(out.String(), "tree:     (send (lvar :x) :+ (int 1))\n") {
		t.Errorf("expected x to read as a local, got %q", out.String())
	}

	out.Reset()
	s.Command(":locals", &out)
	if out.String() != "  x\n" {
		t.Errorf("expected %q, got %q", "  x\n", out.String())
	}

	out.Reset()
	s.Command(":clear", &out)
	s.Eval("x + 1", &out)
	if !strings.Contains(out.String(), "(send (send nil :x) :+ (int 1))") {
		t.Errorf("expected x to read as a call after :clear, got %q", out.String())
	}
}

func TestCommand(t *testing.T) {
	s := NewSession("")
	var out bytes.Buffer

	if !s.Command(":mode", &out) || out.String() != "Mode: ruby\n" {
		t.Errorf("unexpected :mode output %q", out.String())
	}

	out.Reset()
	s.Command(":sexp", &out)
	if s.Mode != ModeSexp || s.prompt() != PROMPT_SEXP {
		t.Errorf("expected sexp mode, got %s", s.Mode)
	}

	out.Reset()
	if !s.Command(":nope", &out) || !strings.HasPrefix(out.String(), "Unknown command: :nope") {
		t.Errorf("unexpected output %q", out.String())
	}

	s.Command(":ruby", &out)
	if s.Command(":foo", &out) {
		t.Error("expected :foo to be left to the Ruby reader")
	}

	out.Reset()
	s.Command(":help", &out)
	if !strings.HasPrefix(out.String(), "REPL Commands:") {
		t.Errorf("unexpected help output %q", out.String())
	}
}

func TestFilterCompletions(t *testing.T) {
	tests := []struct {
		line     string
		expected []string
	}{
		{"", nil},
		{"a ", nil},
		{":he", []string{":help"}},
		{"ex", []string{"exit"}},
		{"(se", []string{"(send", "(self"}},
		{"(send (lv", []string{"(send (lvar", "(send (lvasgn"}},
		{"(send (", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := filterCompletions(tt.line)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNeedsMoreInput(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"", false},
		{"a + b", false},
		{"(a", true},
		{"foo(1,", true},
		{"a[1", true},
		{"(a)", false},
		{`"(`, true},
		{`"(" + b`, false},
		{`'\'(' + b`, false},
		{"a # (", false},
		{"(send (int 1)\n :+ (int 2))", false},
		{"a, b = 1,", true},
		{"a + \\", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := needsMoreInput(tt.input); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
