// Package operators classifies call names as binary operators, unary
// operators or index accessors.
package operators

// Index accessor names.
const (
	IndexRead  = "[]"
	IndexWrite = "[]="
)

// Binary lists the method names written infix as "a op b".
var Binary = []string{
	"+", "-", "*", "/", "%", "**",
	"==", "===", "!=",
	"<", "<=", ">", ">=", "<=>",
	"=~", "!~",
	"<<", ">>",
	"&", "|", "^",
}

// Unary lists the method names written prefix as "op a".
var Unary = []string{"!", "~", "-@", "+@"}

// unaryTokens maps unary method names to the token written in source.
var unaryTokens = map[string]string{
	"-@": "-",
	"+@": "+",
}

var (
	binarySet = toSet(Binary)
	unarySet  = toSet(Unary)
)

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// IsBinary reports whether name is a binary operator.
func IsBinary(name string) bool {
	return binarySet[name]
}

// IsUnary reports whether name is a unary operator.
func IsUnary(name string) bool {
	return unarySet[name]
}

// IsIndex reports whether name is [] or []=.
func IsIndex(name string) bool {
	return name == IndexRead || name == IndexWrite
}

// IsOperator reports whether name is any operator or index method name.
func IsOperator(name string) bool {
	return IsBinary(name) || IsUnary(name) || IsIndex(name)
}

// UnaryToken returns the source token for a unary method name: -@ becomes -,
// +@ becomes +, and ! and ~ are unchanged.
func UnaryToken(name string) string {
	if tok, ok := unaryTokens[name]; ok {
		return tok
	}
	return name
}

// UnaryName is the inverse of UnaryToken: the method name a prefix token
// calls, e.g. - calls -@.
func UnaryName(token string) string {
	for name, tok := range unaryTokens {
		if tok == token {
			return name
		}
	}
	return token
}
