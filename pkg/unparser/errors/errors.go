// Package errors provides structured error types for the unparser.
//
// This package defines UnparserError, a single error type used by the
// readers, the renderer, the round-trip checker and the corpus store. Errors
// carry a class, a catalog code, a rendered message and optional hints and
// source positions for display.
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// ErrorClass categorizes errors for filtering and display.
type ErrorClass string

const (
	ClassParse     ErrorClass = "parse"     // Source or s-expression syntax errors
	ClassMalformed ErrorClass = "malformed" // Tree shape violates the node contract
	ClassIO        ErrorClass = "io"        // File operations
	ClassDatabase  ErrorClass = "database"  // Corpus store operations
	ClassRoundTrip ErrorClass = "roundtrip" // Rendered text does not reparse to the same tree
)

// UnparserError represents any error raised while reading, rendering or
// checking a tree.
type UnparserError struct {
	Class   ErrorClass     `json:"class"`           // Error category
	Code    string         `json:"code"`            // Error code (e.g., "NODE-0001")
	Message string         `json:"message"`         // Human-readable message
	Hints   []string       `json:"hints,omitempty"` // Suggestions for fixing
	Line    int            `json:"line"`            // 1-based line (0 if unknown)
	Column  int            `json:"column"`          // 1-based column (0 if unknown)
	File    string         `json:"file,omitempty"`  // File path (if known)
	Data    map[string]any `json:"data,omitempty"`  // Template variables
}

// Error implements the error interface.
func (e *UnparserError) Error() string {
	return e.String()
}

// String returns a formatted string representation of the error.
func (e *UnparserError) String() string {
	var sb strings.Builder

	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		sb.WriteString(fmt.Sprintf("line %d, column %d: ", e.Line, e.Column))
	}

	sb.WriteString(e.Message)

	for _, hint := range e.Hints {
		sb.WriteString("\n  ")
		sb.WriteString(hint)
	}

	return sb.String()
}

// PrettyString returns a multi-line formatted string for display.
func (e *UnparserError) PrettyString() string {
	var sb strings.Builder

	switch e.Class {
	case ClassParse:
		sb.WriteString("Parse error")
	case ClassMalformed:
		sb.WriteString("Malformed node")
	case ClassRoundTrip:
		sb.WriteString("Round-trip failure")
	default:
		sb.WriteString("Error")
	}

	if e.File != "" {
		sb.WriteString(":\n  in: ")
		sb.WriteString(e.File)
		if e.Line > 0 {
			sb.WriteString(fmt.Sprintf("\n  at: line %d, column %d", e.Line, e.Column))
		}
		sb.WriteString("\n  ")
	} else if e.Line > 0 {
		sb.WriteString(fmt.Sprintf(": line %d, column %d\n  ", e.Line, e.Column))
	} else {
		sb.WriteString(":\n  ")
	}

	sb.WriteString(e.Message)

	for i, hint := range e.Hints {
		sb.WriteString("\n  ")
		if i == 0 {
			sb.WriteString("hint: ")
		} else {
			sb.WriteString("  or: ")
		}
		sb.WriteString(hint)
	}

	return sb.String()
}

// ToJSON returns the error as JSON bytes.
func (e *UnparserError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// WithFile returns a copy of the error with the file path set.
func (e *UnparserError) WithFile(file string) *UnparserError {
	copy := *e
	copy.File = file
	return &copy
}

// WithPosition returns a copy of the error with line and column set.
func (e *UnparserError) WithPosition(line, column int) *UnparserError {
	copy := *e
	copy.Line = line
	copy.Column = column
	return &copy
}

// IsParseError returns true if this is a syntax error.
func (e *UnparserError) IsParseError() bool {
	return e.Class == ClassParse
}

// ErrorDef defines an error in the catalog.
type ErrorDef struct {
	Class    ErrorClass // Error category
	Template string     // Message template with {{.placeholders}}
	Hints    []string   // Hint templates (may use {{.placeholders}})
}

// ErrorCatalog maps error codes to their definitions.
var ErrorCatalog = map[string]ErrorDef{
	// ========================================
	// Parse errors (PARSE-0xxx)
	// ========================================
	"PARSE-0001": {
		Class:    ClassParse,
		Template: "expected {{.Expected}}, got '{{.Got}}'",
	},
	"PARSE-0002": {
		Class:    ClassParse,
		Template: "unexpected '{{.Token}}'",
	},
	"PARSE-0003": {
		Class:    ClassParse,
		Template: "unterminated string",
	},
	"PARSE-0004": {
		Class:    ClassParse,
		Template: "invalid number literal: {{.Literal}}",
	},
	"PARSE-0005": {
		Class:    ClassParse,
		Template: "unknown node kind '{{.Kind}}'",
	},
	"PARSE-0006": {
		Class:    ClassParse,
		Template: "illegal character '{{.Char}}'",
	},
	"PARSE-0007": {
		Class:    ClassParse,
		Template: "cannot assign to {{.Target}}",
	},
	"PARSE-0008": {
		Class:    ClassParse,
		Template: "nesting deeper than {{.Limit}} levels",
	},
	"PARSE-0009": {
		Class:    ClassParse,
		Template: "index targets are not supported in multiple assignment",
		Hints:    []string{"assign the element separately: {{.Target}} = value"},
	},
	"PARSE-0010": {
		Class:    ClassParse,
		Template: "{{.Construct}} is not supported",
		Hints:    []string{"the reader accepts literals, variables, calls, operators, ranges and assignments"},
	},

	// ========================================
	// Malformed node errors (NODE-0xxx)
	// ========================================
	"NODE-0001": {
		Class:    ClassMalformed,
		Template: "call node has {{.Count}} children, need at least 2",
		Hints:    []string{"(send receiver :name args...)"},
	},
	"NODE-0002": {
		Class:    ClassMalformed,
		Template: "call name must be a symbol, got {{.Got}}",
	},
	"NODE-0003": {
		Class:    ClassMalformed,
		Template: "{{.Form}} call `{{.Name}}` requires a receiver",
	},
	"NODE-0004": {
		Class:    ClassMalformed,
		Template: "cannot render node kind '{{.Kind}}'",
	},
	"NODE-0005": {
		Class:    ClassMalformed,
		Template: "{{.Kind}} node: expected {{.Expected}} at child {{.Index}}, got {{.Got}}",
	},
	"NODE-0006": {
		Class:    ClassMalformed,
		Template: "call name must not be empty",
	},
	"NODE-0007": {
		Class:    ClassMalformed,
		Template: "float literal {{.Value}} has no source form",
	},
	"NODE-0008": {
		Class:    ClassMalformed,
		Template: "tree nested deeper than {{.Limit}} levels",
	},
	"NODE-0009": {
		Class:    ClassMalformed,
		Template: "`{{.Name}}` is not a valid method name",
		Hints:    []string{"method names are identifiers, optionally ending in ?, ! or =, or operator names such as + and []="},
	},
	"NODE-0010": {
		Class:    ClassMalformed,
		Template: "unary call `{{.Name}}` takes no arguments, got {{.Count}}",
	},

	// ========================================
	// I/O errors (IO-0xxx)
	// ========================================
	"IO-0001": {
		Class:    ClassIO,
		Template: "cannot read '{{.Path}}': {{.Reason}}",
	},
	"IO-0002": {
		Class:    ClassIO,
		Template: "unsupported file type '{{.Path}}'",
		Hints:    []string{"files must end in .rb or .sexp, optionally followed by .gz or .zst"},
	},
	"IO-0003": {
		Class:    ClassIO,
		Template: "cannot decompress '{{.Path}}': {{.Reason}}",
	},

	// ========================================
	// Database errors (DB-0xxx)
	// ========================================
	"DB-0001": {
		Class:    ClassDatabase,
		Template: "unsupported corpus driver '{{.Driver}}'",
		Hints:    []string{"supported drivers: sqlite, postgres, mysql"},
	},
	"DB-0002": {
		Class:    ClassDatabase,
		Template: "corpus {{.Operation}} failed: {{.Reason}}",
	},

	// ========================================
	// Round-trip errors (TRIP-0xxx)
	// ========================================
	"TRIP-0001": {
		Class:    ClassRoundTrip,
		Template: "rendered text does not reparse: {{.Reason}}",
		Hints:    []string{"rendered: {{.Rendered}}"},
	},
	"TRIP-0002": {
		Class:    ClassRoundTrip,
		Template: "rendered text reparses to a different tree",
		Hints:    []string{"expected: {{.Expected}}", "got: {{.Got}}"},
	},
}

// New creates an UnparserError from the catalog.
// If the code is not found, creates a generic error with the message.
func New(code string, data map[string]any) *UnparserError {
	def, ok := ErrorCatalog[code]
	if !ok {
		msg := code
		if data != nil {
			if m, ok := data["message"].(string); ok {
				msg = m
			}
		}
		return &UnparserError{
			Class:   ClassMalformed,
			Code:    code,
			Message: msg,
			Data:    data,
		}
	}

	msg := renderTemplate(def.Template, data)

	var hints []string
	for _, hintTmpl := range def.Hints {
		rendered := renderTemplate(hintTmpl, data)
		if rendered != "" {
			hints = append(hints, rendered)
		}
	}

	return &UnparserError{
		Class:   def.Class,
		Code:    code,
		Message: msg,
		Hints:   hints,
		Data:    data,
	}
}

// NewWithPosition creates an UnparserError with position information.
func NewWithPosition(code string, line, column int, data map[string]any) *UnparserError {
	err := New(code, data)
	err.Line = line
	err.Column = column
	return err
}

// NewSimple creates a simple error without using the catalog.
func NewSimple(class ErrorClass, message string) *UnparserError {
	return &UnparserError{
		Class:   class,
		Message: message,
	}
}

// renderTemplate renders a Go template with the given data.
func renderTemplate(tmplStr string, data map[string]any) string {
	if data == nil {
		return tmplStr
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return tmplStr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return tmplStr
	}

	return buf.String()
}

// ============================================================================
// Fuzzy Matching - "Did you mean?" suggestions
// ============================================================================

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	matrix := make([][]int, len(a)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(b)+1)
		matrix[i][0] = i
	}
	for j := range matrix[0] {
		matrix[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			matrix[i][j] = min(
				matrix[i-1][j]+1,      // deletion
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j-1]+cost, // substitution
			)
		}
	}

	return matrix[len(a)][len(b)]
}

// matchThreshold is the largest edit distance worth suggesting for an input.
// Short words (1-3): 1 edit, medium (4-6): 2, longer: 3.
func matchThreshold(input string) int {
	switch {
	case len(input) >= 7:
		return 3
	case len(input) >= 4:
		return 2
	default:
		return 1
	}
}

// FindClosestMatch finds the closest match to the given string from candidates.
// Returns the best match if the distance is within the threshold, otherwise empty string.
func FindClosestMatch(input string, candidates []string) string {
	if len(input) == 0 || len(candidates) == 0 {
		return ""
	}

	inputLower := strings.ToLower(input)

	var bestMatch string
	bestDistance := -1

	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if bestDistance == -1 || dist < bestDistance {
			bestDistance = dist
			bestMatch = candidate
		}
	}

	// Exact matches need no suggestion
	if bestDistance <= 0 || bestDistance > matchThreshold(input) {
		return ""
	}

	return bestMatch
}

// FindTopMatches returns up to n candidates within the edit threshold,
// closest first.
func FindTopMatches(input string, candidates []string, n int) []string {
	if len(input) == 0 || len(candidates) == 0 || n <= 0 {
		return nil
	}

	type fuzzyMatch struct {
		value    string
		distance int
	}

	inputLower := strings.ToLower(input)
	var matches []fuzzyMatch
	for _, candidate := range candidates {
		dist := levenshteinDistance(inputLower, strings.ToLower(candidate))
		if dist > 0 {
			matches = append(matches, fuzzyMatch{candidate, dist})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	threshold := matchThreshold(input)
	var result []string
	for i := 0; i < len(matches) && len(result) < n; i++ {
		if matches[i].distance <= threshold {
			result = append(result, matches[i].value)
		}
	}

	return result
}

// NewUnknownKind creates an unknown-kind parse error with an optional
// "did you mean" hint drawn from the known kinds.
func NewUnknownKind(kind string, known []string, line, column int) *UnparserError {
	err := NewWithPosition("PARSE-0005", line, column, map[string]any{"Kind": kind})
	if suggestion := FindClosestMatch(kind, known); suggestion != "" {
		err.Hints = append(err.Hints, "Did you mean `"+suggestion+"`?")
	}
	return err
}
