package emitter

import (
	"strings"

	"github.com/sambeau/unparser/pkg/unparser/ast"
)

// Printer accumulates the text of one render pass. A Printer is not safe for
// concurrent use; independent passes each use their own Printer.
type Printer struct {
	output strings.Builder
	depth  int // current visit nesting, bounded by MaxDepth
}

// NewPrinter creates a new Printer instance
func NewPrinter() *Printer {
	return &Printer{}
}

// String returns the rendered output
func (p *Printer) String() string {
	return p.output.String()
}

// Reset clears the printer state for reuse
func (p *Printer) Reset() {
	p.output.Reset()
	p.depth = 0
}

// write appends tokens to the output in order
func (p *Printer) write(tokens ...string) {
	for _, t := range tokens {
		p.output.WriteString(t)
	}
}

// parentheses writes open, runs fn, then writes close. close is written even
// when fn aborts the pass.
func (p *Printer) parentheses(open, close string, fn func()) {
	p.write(open)
	defer p.write(close)
	fn()
}

// delimited visits nodes separated by ", "
func (p *Printer) delimited(nodes []*ast.Node) {
	for i, n := range nodes {
		if i > 0 {
			p.write(ArgSeparator)
		}
		p.visit(n)
	}
}
