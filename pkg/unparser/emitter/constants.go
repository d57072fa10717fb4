package emitter

// Punctuation
const (
	CallDot            = "."
	Assign             = "="
	Whitespace         = " "
	ArgSeparator       = ", "
	StatementSeparator = "; "
	ScopeSeparator     = "::"
	SplatPrefix        = "*"
	SymbolPrefix       = ":"
)

// Bracket pairs
const (
	ParenOpen    = "("
	ParenClose   = ")"
	BracketOpen  = "["
	BracketClose = "]"
)

// Compound assignment operators
const (
	OrAssign  = "||="
	AndAssign = "&&="
)

// Range operators
const (
	InclusiveRange = ".."
	ExclusiveRange = "..."
)

// MaxDepth bounds how deeply nested a tree may be before rendering gives up.
const MaxDepth = 1000
