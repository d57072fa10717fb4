package roundtrip

import (
	"github.com/op/go-logging"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/corpus"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
	"github.com/sambeau/unparser/pkg/unparser/input"
	"github.com/sambeau/unparser/pkg/unparser/sexp"
)

// Runner checks files and records the outcome. Store and Log are optional.
type Runner struct {
	Store *corpus.Store
	Log   *logging.Logger
}

// RunFile reads path and checks it as Ruby (.rb) or as trees (.sexp).
func (r *Runner) RunFile(path string) (*Result, error) {
	kind := input.SourceKind(path)
	if kind == input.Unknown {
		return nil, uerrors.New("IO-0002", map[string]any{"Path": path}).WithFile(path)
	}
	data, err := input.ReadFile(path)
	if err != nil {
		r.errorf("%v", err)
		return nil, err
	}
	return r.Run(path, kind, string(data))
}

// Run checks text of the given kind under label.
func (r *Runner) Run(label string, kind input.Kind, text string) (*Result, error) {
	var res *Result
	var err error
	switch kind {
	case input.Ruby:
		res, err = Check(text)
	case input.Sexp:
		var nodes []*ast.Node
		nodes, err = sexp.ParseAll(text)
		if err == nil {
			res, err = CheckTree(nodes...)
		}
	default:
		return nil, uerrors.New("IO-0002", map[string]any{"Path": label})
	}

	if err != nil {
		if ue, ok := err.(*uerrors.UnparserError); ok && ue.File == "" {
			err = ue.WithFile(label)
			r.errorf("%v", err)
		} else {
			r.errorf("%s: %v", label, err)
		}
		r.record(corpus.Entry{Label: label, Kind: string(kind), Source: text, Reason: err.Error()})
		return nil, err
	}

	res.Label = label
	if res.Equivalent {
		r.infof("ok %s", label)
	} else {
		r.warningf("%s: %s", label, res.Err().Message)
	}

	entry := corpus.Entry{
		Label:      label,
		Kind:       string(kind),
		Source:     text,
		Tree:       res.TreeString(),
		Rendered:   res.Rendered,
		Equivalent: res.Equivalent,
	}
	if !res.Equivalent {
		entry.Reason = res.Err().String()
	}
	r.record(entry)
	return res, nil
}

func (r *Runner) record(e corpus.Entry) {
	if r.Store == nil {
		return
	}
	if err := r.Store.Record(e); err != nil {
		r.errorf("recording %s: %v", e.Label, err)
	}
}

func (r *Runner) infof(format string, args ...any) {
	if r.Log != nil {
		r.Log.Infof(format, args...)
	}
}

func (r *Runner) warningf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Warningf(format, args...)
	}
}

func (r *Runner) errorf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Errorf(format, args...)
	}
}
