package emitter

import (
	"fmt"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// MalformedNodeError reports a tree that violates the node contract, such as
// a call node without a name. It aborts the whole render pass.
type MalformedNodeError struct {
	Err  *uerrors.UnparserError
	Node *ast.Node
}

func (e *MalformedNodeError) Error() string {
	if e.Node == nil {
		return e.Err.String()
	}
	return fmt.Sprintf("%s\n  in: %s", e.Err.String(), e.Node)
}

// Unwrap exposes the catalog error for errors.As.
func (e *MalformedNodeError) Unwrap() error {
	return e.Err
}

// malformed aborts the current pass. Render recovers the panic.
func malformed(node *ast.Node, code string, data map[string]any) {
	panic(&MalformedNodeError{Err: uerrors.New(code, data), Node: node})
}

// describe names a child value for error messages.
func describe(v any) string {
	switch c := v.(type) {
	case nil:
		return "nil"
	case *ast.Node:
		return "(" + string(c.Kind) + ")"
	default:
		return fmt.Sprintf("%T %s", v, ast.Inspect(v))
	}
}
