package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/emitter"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
	"github.com/sambeau/unparser/pkg/unparser/lexer"
	"github.com/sambeau/unparser/pkg/unparser/parser"
	"github.com/sambeau/unparser/pkg/unparser/roundtrip"
	"github.com/sambeau/unparser/pkg/unparser/sexp"
)

// Mode selects how input lines are read
type Mode string

const (
	ModeRuby Mode = "ruby" // Ruby source: show the tree, the rendering and the round-trip verdict
	ModeSexp Mode = "sexp" // s-expression trees: show the rendering and the verdict
)

const PROMPT_RUBY = "rb> "
const PROMPT_SEXP = "sx> "
const CONTINUATION_PROMPT = ".. "

// REPL commands for tab completion
var commandWords = []string{":help", ":ruby", ":sexp", ":mode", ":locals", ":clear", "exit", "quit"}

// Options configures an interactive session
type Options struct {
	Version string
	History string // history file; empty uses the system temp directory
	Mode    Mode
}

// Session holds the state carried between inputs: the mode and the local
// variables assigned so far, so that `x = 1` followed by `x + 1` reads x as
// a variable.
type Session struct {
	Mode   Mode
	locals []string
}

// NewSession starts a session in mode, defaulting to Ruby
func NewSession(mode Mode) *Session {
	if mode != ModeSexp {
		mode = ModeRuby
	}
	return &Session{Mode: mode}
}

// Start starts the REPL with line editing, history, and tab completion
func Start(out io.Writer, opts Options) {
	line := liner.NewLiner()
	defer line.Close()

	// Enable Ctrl+C to abort current line
	line.SetCtrlCAborts(true)

	line.SetCompleter(filterCompletions)

	historyFile := opts.History
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".unparser_history")
	}
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	session := NewSession(opts.Mode)

	fmt.Fprintln(out, "unparse", opts.Version)
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Type 'exit' or Ctrl+D to quit")
	fmt.Fprintln(out, "Type ':help' for REPL commands")
	fmt.Fprintln(out, "")

	var inputBuffer strings.Builder

	for {
		currentPrompt := session.prompt()
		if inputBuffer.Len() > 0 {
			currentPrompt = CONTINUATION_PROMPT
		}
		input, err := line.Prompt(currentPrompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				if inputBuffer.Len() > 0 {
					fmt.Fprintln(out, "^C (cleared)")
				} else {
					fmt.Fprintln(out, "^C")
				}
				inputBuffer.Reset()
				continue
			}
			if err == io.EOF {
				fmt.Fprintln(out, "\nGoodbye!")
				return
			}
			fmt.Fprintf(out, "Error reading input: %v\n", err)
			continue
		}

		trimmed := strings.TrimSpace(input)
		if inputBuffer.Len() == 0 && (trimmed == "exit" || trimmed == "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return
		}

		if inputBuffer.Len() == 0 && strings.HasPrefix(trimmed, ":") && session.Command(trimmed, out) {
			continue
		}

		if inputBuffer.Len() == 0 && trimmed == "" {
			continue
		}

		if inputBuffer.Len() > 0 {
			inputBuffer.WriteString("\n")
		}
		inputBuffer.WriteString(input)

		fullInput := inputBuffer.String()
		if needsMoreInput(fullInput) {
			continue
		}

		line.AppendHistory(fullInput)
		session.Eval(fullInput, out)
		inputBuffer.Reset()
	}
}

func (s *Session) prompt() string {
	if s.Mode == ModeSexp {
		return PROMPT_SEXP
	}
	return PROMPT_RUBY
}

// Command handles REPL meta-commands that start with ':'. An unknown
// command in Ruby mode is not handled, so a symbol literal such as :foo is
// evaluated as source instead.
func (s *Session) Command(cmd string, out io.Writer) bool {
	switch cmd {
	case ":help", ":h", ":?":
		fmt.Fprintln(out, "REPL Commands:")
		fmt.Fprintln(out, "  :help, :h, :?   Show this help")
		fmt.Fprintln(out, "  :ruby           Read Ruby source (rb>)")
		fmt.Fprintln(out, "  :sexp           Read s-expression trees (sx>)")
		fmt.Fprintln(out, "  :mode           Show the current input mode")
		fmt.Fprintln(out, "  :locals         Show local variables assigned so far")
		fmt.Fprintln(out, "  :clear          Forget local variables")
		fmt.Fprintln(out, "  exit, quit      Exit the REPL")

	case ":ruby":
		s.Mode = ModeRuby
		fmt.Fprintln(out, "Reading Ruby source")

	case ":sexp":
		s.Mode = ModeSexp
		fmt.Fprintln(out, "Reading s-expressions")

	case ":mode":
		fmt.Fprintf(out, "Mode: %s\n", s.Mode)

	case ":locals":
		if len(s.locals) == 0 {
			fmt.Fprintln(out, "(no local variables)")
			return true
		}
		fmt.Fprintf(out, "  %s\n", strings.Join(s.locals, ", "))

	case ":clear":
		s.locals = nil
		fmt.Fprintln(out, "Local variables cleared")

	default:
		if s.Mode == ModeRuby {
			return false
		}
		fmt.Fprintf(out, "Unknown command: %s (type :help for commands)\n", cmd)
	}
	return true
}

// Eval reads input in the session's mode and writes the tree, its rendering
// and the round-trip verdict to out.
func (s *Session) Eval(input string, out io.Writer) {
	var nodes []*ast.Node
	switch s.Mode {
	case ModeSexp:
		var err error
		nodes, err = sexp.ParseAll(input)
		if err != nil {
			printError(out, err)
			return
		}
	default:
		p := parser.New(lexer.New(input))
		p.Declare(s.locals...)
		nodes = p.ParseProgram()
		if errs := p.StructuredErrors(); len(errs) != 0 {
			printError(out, errs[0])
			return
		}
		s.locals = p.Locals()
		for _, n := range nodes {
			fmt.Fprintf(out, "tree:     %s\n", n)
		}
	}
	if len(nodes) == 0 {
		return
	}

	res, err := roundtrip.CheckTree(nodes...)
	if err != nil {
		printError(out, err)
		return
	}

	rendered := strings.ReplaceAll(res.Rendered, "\n", "\n          ")
	fmt.Fprintf(out, "rendered: %s\n", rendered)
	if res.Equivalent {
		io.WriteString(out, "ok\n")
		return
	}
	io.WriteString(out, res.Err().PrettyString())
	io.WriteString(out, "\n")
}

// Eval evaluates input in a fresh session
func Eval(input string, mode Mode, out io.Writer) {
	NewSession(mode).Eval(input, out)
}

// printError prints structured errors in their pretty form
func printError(out io.Writer, err error) {
	var mErr *emitter.MalformedNodeError
	if errors.As(err, &mErr) {
		io.WriteString(out, mErr.Err.PrettyString())
		if mErr.Node != nil {
			io.WriteString(out, "\n  node: "+mErr.Node.String())
		}
		io.WriteString(out, "\n")
		return
	}
	var uErr *uerrors.UnparserError
	if errors.As(err, &uErr) {
		io.WriteString(out, uErr.PrettyString())
		io.WriteString(out, "\n")
		return
	}
	fmt.Fprintf(out, "Error: %v\n", err)
}

// filterCompletions completes the word under the cursor against the REPL
// commands and the node kinds. liner replaces the whole line, so each
// candidate carries the text before the word.
func filterCompletions(line string) []string {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	if last := line[len(line)-1]; last == ' ' || last == '\t' || last == '(' {
		return nil
	}

	start := strings.LastIndexAny(line, " \t(") + 1
	prefix, word := line[:start], line[start:]

	candidates := commandWords
	if start > 0 {
		candidates = ast.KindNames()
	} else if !strings.HasPrefix(word, ":") {
		candidates = append(append([]string{}, commandWords...), ast.KindNames()...)
	}

	var matches []string
	for _, c := range candidates {
		if strings.HasPrefix(c, word) {
			matches = append(matches, prefix+c)
		}
	}
	return matches
}

// needsMoreInput checks if the input has unclosed parentheses or brackets,
// or ends with a comma or a line continuation.
func needsMoreInput(input string) bool {
	input = strings.TrimSpace(input)
	if input == "" {
		return false
	}

	depth := 0
	var quote byte
	escapeNext := false
	comment := false

	for i := 0; i < len(input); i++ {
		ch := input[i]

		if comment {
			if ch == '\n' {
				comment = false
			}
			continue
		}
		if escapeNext {
			escapeNext = false
			continue
		}
		if quote != 0 {
			switch ch {
			case '\\':
				escapeNext = true
			case quote:
				quote = 0
			}
			continue
		}

		switch ch {
		case '"', '\'':
			quote = ch
		case '#':
			comment = true
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		}
	}

	if quote != 0 || depth > 0 {
		return true
	}
	return strings.HasSuffix(input, ",") || strings.HasSuffix(input, "\\")
}
