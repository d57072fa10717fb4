package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/op/go-logging"

	"github.com/sambeau/unparser/config"
	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/corpus"
	"github.com/sambeau/unparser/pkg/unparser/emitter"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
	"github.com/sambeau/unparser/pkg/unparser/input"
	"github.com/sambeau/unparser/pkg/unparser/logger"
	"github.com/sambeau/unparser/pkg/unparser/parser"
	"github.com/sambeau/unparser/pkg/unparser/repl"
	"github.com/sambeau/unparser/pkg/unparser/roundtrip"
	"github.com/sambeau/unparser/pkg/unparser/sexp"
	"github.com/sambeau/unparser/pkg/unparser/watch"
)

// Version is set at build time via -ldflags
var Version = "0.1.0-dev"

// errFailed marks a command that ran to completion but found failures. The
// details have already been printed.
var errFailed = errors.New("failed")

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// app carries what every subcommand needs
type app struct {
	cfg    *config.Config
	log    *logging.Logger
	stdout io.Writer
	stderr io.Writer
}

// run is the main entry point, designed for testability (Mat Ryer pattern)
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("unparse", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }

	var (
		configPath  = flags.String("config", "", "Path to config file")
		showVersion = flags.Bool("version", false, "Show version")
		showHelp    = flags.Bool("help", false, "Show help")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showHelp {
		printUsage(stdout)
		return nil
	}

	if *showVersion {
		fmt.Fprintf(stdout, "unparse version %s\n", Version)
		return nil
	}

	cfg, err := config.Load(*configPath, getenv)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if flags.NArg() == 0 {
		printUsage(stderr)
		return fmt.Errorf("no command given")
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log, closer, err := logger.New(cfg.Logging, stdout, stderr)
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	defer closer.Close()

	a := &app{cfg: cfg, log: log, stdout: stdout, stderr: stderr}

	cmd, cmdArgs := flags.Arg(0), flags.Args()[1:]
	switch cmd {
	case "render":
		return a.render(cmdArgs)
	case "parse":
		return a.parse(cmdArgs)
	case "check":
		return a.check(cmdArgs)
	case "watch":
		return a.watch(ctx, cmdArgs)
	case "repl":
		return a.repl(cmdArgs)
	case "corpus":
		return a.corpus(cmdArgs)
	default:
		return fmt.Errorf("unknown command %q (try -help)", cmd)
	}
}

func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("unparse "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// source is one input: text of a known kind, labelled for messages
type source struct {
	label string
	kind  input.Kind
	text  string
}

// sources collects inputs from an inline expression, files, or stdin
func (a *app) sources(inline string, inlineKind input.Kind, files []string) ([]source, error) {
	if inline != "" {
		return []source{{label: "<eval>", kind: inlineKind, text: inline}}, nil
	}
	if len(files) == 0 {
		data, err := input.Read(os.Stdin, "<stdin>")
		if err != nil {
			return nil, err
		}
		return []source{{label: "<stdin>", kind: inlineKind, text: string(data)}}, nil
	}

	var out []source
	for _, f := range files {
		kind := input.SourceKind(f)
		if kind == input.Unknown {
			return nil, uerrors.New("IO-0002", map[string]any{"Path": f}).WithFile(f)
		}
		data, err := input.ReadFile(f)
		if err != nil {
			return nil, err
		}
		out = append(out, source{label: f, kind: kind, text: string(data)})
	}
	return out, nil
}

// tree reads a source as trees: s-expressions directly, Ruby through the parser
func (s source) tree() ([]*ast.Node, error) {
	if s.kind == input.Ruby {
		return parser.ParseString(s.text)
	}
	return sexp.ParseAll(s.text)
}

// render prints the Ruby rendering of each input
func (a *app) render(args []string) error {
	fs := a.newFlagSet("render")
	var (
		expr   = fs.String("e", "", "Render an inline s-expression")
		output = fs.String("o", "", "Write to file (.gz and .zst are compressed)")
		verify = fs.Bool("verify", a.cfg.Render.Verify, "Fail when the rendering does not reparse to the same tree")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	srcs, err := a.sources(*expr, input.Sexp, fs.Args())
	if err != nil {
		return err
	}

	var rendered []string
	failed := false
	for _, src := range srcs {
		nodes, err := src.tree()
		if err != nil {
			a.printError(src, err)
			failed = true
			continue
		}
		text, err := emitter.RenderProgram(nodes)
		if err != nil {
			a.printError(src, err)
			failed = true
			continue
		}
		if *verify {
			res, err := roundtrip.CheckTree(nodes...)
			if err != nil {
				a.printError(src, err)
				failed = true
				continue
			}
			if !res.Equivalent {
				a.printError(src, res.Err().WithFile(src.label))
				failed = true
				continue
			}
		}
		rendered = append(rendered, text)
	}

	out := strings.Join(rendered, "\n")
	if len(rendered) > 0 {
		out += "\n"
	}
	if *output != "" {
		data, err := input.Compress(*output, []byte(out))
		if err != nil {
			return fmt.Errorf("compressing %s: %w", *output, err)
		}
		if err := os.WriteFile(*output, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", *output, err)
		}
		a.log.Infof("wrote %s", *output)
	} else {
		io.WriteString(a.stdout, out)
	}

	if failed {
		return errFailed
	}
	return nil
}

// parse prints the tree of Ruby source, one statement per line
func (a *app) parse(args []string) error {
	fs := a.newFlagSet("parse")
	expr := fs.String("e", "", "Parse inline Ruby source")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srcs, err := a.sources(*expr, input.Ruby, fs.Args())
	if err != nil {
		return err
	}

	failed := false
	for _, src := range srcs {
		nodes, err := src.tree()
		if err != nil {
			a.printError(src, err)
			failed = true
			continue
		}
		for _, n := range nodes {
			fmt.Fprintln(a.stdout, n)
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

// check round-trips files and directories and reports the failures
func (a *app) check(args []string) error {
	fs := a.newFlagSet("check")
	var (
		list   = fs.Bool("l", false, "List failing files only")
		record = fs.Bool("record", a.cfg.Corpus.Enabled, "Record results in the corpus store")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("check requires at least one file or directory")
	}

	files, err := collectFiles(fs.Args())
	if err != nil {
		return err
	}

	runner := &roundtrip.Runner{Log: a.log}
	if *record {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		runner.Store = store
	}

	failures := 0
	for _, f := range files {
		res, err := runner.RunFile(f)
		switch {
		case err != nil:
			failures++
			if *list {
				fmt.Fprintln(a.stdout, f)
			} else {
				fmt.Fprintf(a.stdout, "ERROR %s\n", f)
				fmt.Fprintf(a.stdout, "  %s\n", strings.ReplaceAll(err.Error(), "\n", "\n  "))
			}
		case !res.Equivalent:
			failures++
			if *list {
				fmt.Fprintln(a.stdout, f)
			} else {
				fmt.Fprintf(a.stdout, "FAIL  %s\n", f)
				printResult(a.stdout, res)
			}
		default:
			if !*list {
				fmt.Fprintf(a.stdout, "ok    %s\n", f)
			}
		}
	}

	if failures > 0 {
		if !*list {
			fmt.Fprintf(a.stdout, "%d of %d files failed\n", failures, len(files))
		}
		return errFailed
	}
	return nil
}

// printResult shows a failed round trip
func printResult(w io.Writer, res *roundtrip.Result) {
	fmt.Fprintf(w, "  rendered: %s\n", strings.ReplaceAll(res.Rendered, "\n", "\n            "))
	if res.ReparseErr != nil {
		fmt.Fprintf(w, "  reparse:  %v\n", res.ReparseErr)
		return
	}
	if expected, got, ok := res.Diff(); ok {
		fmt.Fprintf(w, "  expected: %s\n", expected)
		fmt.Fprintf(w, "  got:      %s\n", got)
	}
}

// collectFiles expands directories into the .rb and .sexp files below them
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, uerrors.New("IO-0001", map[string]any{"Path": p, "Reason": err.Error()}).WithFile(p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if strings.HasPrefix(d.Name(), ".") && path != p {
					return filepath.SkipDir
				}
				return nil
			}
			if watch.Relevant(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", p, err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// watch re-checks files as they change until interrupted
func (a *app) watch(ctx context.Context, args []string) error {
	fs := a.newFlagSet("watch")
	record := fs.Bool("record", a.cfg.Corpus.Enabled, "Record results in the corpus store")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := a.cfg.Watch
	if fs.NArg() > 0 {
		cfg.Dirs = fs.Args()
	}
	if len(cfg.Dirs) == 0 {
		return fmt.Errorf("watch requires at least one directory")
	}

	runner := &roundtrip.Runner{Log: a.log}
	if *record {
		store, err := a.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		runner.Store = store
	}

	w, err := watch.New(cfg, func(path string) {
		res, err := runner.RunFile(path)
		if err == nil && !res.Equivalent {
			fmt.Fprintf(a.stdout, "FAIL  %s\n", path)
			printResult(a.stdout, res)
		}
	}, a.log)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.log.Infof("stopped after %d changes", w.ChangeSeq())
	return nil
}

func (a *app) repl(args []string) error {
	fs := a.newFlagSet("repl")
	mode := fs.String("mode", a.cfg.REPL.Mode, "Input mode: ruby or sexp")
	if err := fs.Parse(args); err != nil {
		return err
	}
	repl.Start(a.stdout, repl.Options{
		Version: Version,
		History: a.cfg.REPL.History,
		Mode:    repl.Mode(*mode),
	})
	return nil
}

// corpus lists or clears recorded results
func (a *app) corpus(args []string) error {
	fs := a.newFlagSet("corpus")
	var (
		failures = fs.Bool("failures", false, "Show failed results only")
		clear    = fs.Bool("clear", false, "Delete recorded results")
		label    = fs.String("label", "", "Restrict to one file")
		limit    = fs.Int("n", 20, "Number of results to show")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if *clear {
		if err := store.Clear(*label); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "corpus cleared")
		return nil
	}

	var entries []corpus.Entry
	if *failures {
		entries, err = store.Failures(*limit)
	} else {
		entries, err = store.Entries(*label, *limit)
	}
	if err != nil {
		return err
	}

	total, err := store.Count(*label)
	if err != nil {
		return err
	}
	for _, e := range entries {
		verdict := "ok  "
		if !e.Equivalent {
			verdict = "FAIL"
		}
		fmt.Fprintf(a.stdout, "%5d %s %s %s\n", e.ID, e.CheckedAt.Local().Format("2006-01-02 15:04:05"), verdict, e.Label)
		if !e.Equivalent && e.Reason != "" {
			fmt.Fprintf(a.stdout, "      %s\n", strings.ReplaceAll(e.Reason, "\n", "\n      "))
		}
	}
	fmt.Fprintf(a.stdout, "%d shown, %d recorded\n", len(entries), total)
	return nil
}

func (a *app) openStore() (*corpus.Store, error) {
	c := a.cfg.Corpus
	return corpus.Open(corpus.Config{
		Driver:      c.Driver,
		Path:        c.Path,
		DSN:         c.DSN,
		MaxEntries:  c.MaxEntries,
		TruncatePct: c.TruncatePct,
	})
}

// printError prints an error with the offending source line when the
// position is known
func (a *app) printError(src source, err error) {
	var mErr *emitter.MalformedNodeError
	if errors.As(err, &mErr) {
		fmt.Fprintln(a.stderr, mErr.Err.WithFile(src.label).PrettyString())
		if mErr.Node != nil {
			fmt.Fprintf(a.stderr, "  node: %s\n", mErr.Node)
		}
		return
	}

	var uErr *uerrors.UnparserError
	if !errors.As(err, &uErr) {
		fmt.Fprintf(a.stderr, "%s: %v\n", src.label, err)
		return
	}
	if uErr.File == "" && src.label != "" {
		uErr = uErr.WithFile(src.label)
	}
	fmt.Fprintln(a.stderr, uErr.PrettyString())
	if src.text != "" {
		printSourceContext(a.stderr, strings.Split(src.text, "\n"), uErr.Line, uErr.Column)
	}
}

// printSourceContext prints the source line and error pointer
func printSourceContext(w io.Writer, lines []string, lineNum, colNum int) {
	if lineNum <= 0 || lineNum > len(lines) {
		return
	}

	sourceLine := lines[lineNum-1]
	trimmedLine := strings.TrimLeft(sourceLine, " \t")
	trimCount := len(sourceLine) - len(trimmedLine)

	fmt.Fprintf(w, "    %s\n", trimmedLine)

	if colNum > 0 {
		visualCol := colNum - 1 - trimCount
		if visualCol < 0 {
			visualCol = 0
		}
		fmt.Fprintf(w, "    %s^\n", strings.Repeat(" ", visualCol))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `unparse - Render Ruby call trees back to source

Usage:
  unparse [options] <command> [command options] [file...]

Commands:
  render [-e SEXP] [-o FILE] [-verify]   Render trees (.sexp) or normalize Ruby (.rb)
  parse [-e SRC]                         Print the tree of Ruby source
  check [-l] [-record] PATH...           Round-trip files; exit 1 on any failure
  watch [-record] [DIR...]               Re-check files as they change
  repl [-mode ruby|sexp]                 Interactive session
  corpus [-failures] [-clear] [-n N]     Inspect recorded results

Options:
  -config PATH    Path to config file (default: auto-detect)
  -version        Show version
  -help           Show this help

Config Resolution:
  1. -config flag
  2. UNPARSER_CONFIG environment variable
  3. ./unparser.yaml
  4. ~/.config/unparser/unparser.yaml
  5. built-in defaults

Files ending in .gz or .zst are decompressed on read. Without files or -e,
render and parse read standard input.

Examples:
  unparse render -e '(send (lvar :a) :+ (int 1))'
  unparse parse -e 'a[1] = 2'
  unparse check -l fixtures/
  unparse render -o out.rb.gz trees.sexp

`)
}
