// Package lexer tokenizes the subset of Ruby that the unparser emits:
// literals, variables, constants, method calls, operators, ranges and
// assignments. Constructs outside that subset (blocks, keywords, string
// interpolation) are reported as UNSUPPORTED tokens rather than guessed at.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF
	UNTERMINATED // string without its closing quote
	UNSUPPORTED  // valid Ruby outside the accepted subset

	// Separators
	NEWLINE
	SEMICOLON
	COMMA

	// Literals and names
	IDENT    // foo, foo?, foo!
	CONSTANT // Foo
	IVAR     // @foo
	GVAR     // $foo
	CVAR     // @@foo
	INT      // 42, 0x1f, 1_000
	FLOAT    // 1.5, 1e+21
	STRING   // "foo", 'foo' (Literal holds the decoded value)
	SYMBOL   // :foo, :+, :"foo bar" (Literal holds the name)
	METHOD   // method name following a dot: foo, +, [], -@

	// Keywords
	NIL
	TRUE
	FALSE
	SELF

	// Operators
	PLUS       // +
	MINUS      // -
	ASTERISK   // *
	SLASH      // /
	PERCENT    // %
	POW        // **
	EQ         // ==
	EQQ        // ===
	NOT_EQ     // !=
	LT         // <
	LTE        // <=
	GT         // >
	GTE        // >=
	CMP        // <=>
	MATCH      // =~
	NOT_MATCH  // !~
	LSHIFT     // <<
	RSHIFT     // >>
	AMP        // &
	PIPE       // |
	CARET      // ^
	BANG       // !
	TILDE      // ~
	ASSIGN     // =
	OR_ASSIGN  // ||=
	AND_ASSIGN // &&=
	DOT2       // ..
	DOT3       // ...
	DOT        // .
	SCOPE      // ::

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
)

var tokenNames = map[TokenType]string{
	ILLEGAL:      "ILLEGAL",
	EOF:          "EOF",
	UNTERMINATED: "UNTERMINATED",
	UNSUPPORTED:  "UNSUPPORTED",
	NEWLINE:      "NEWLINE",
	SEMICOLON:    "SEMICOLON",
	COMMA:        "COMMA",
	IDENT:        "IDENT",
	CONSTANT:     "CONSTANT",
	IVAR:         "IVAR",
	GVAR:         "GVAR",
	CVAR:         "CVAR",
	INT:          "INT",
	FLOAT:        "FLOAT",
	STRING:       "STRING",
	SYMBOL:       "SYMBOL",
	METHOD:       "METHOD",
	NIL:          "NIL",
	TRUE:         "TRUE",
	FALSE:        "FALSE",
	SELF:         "SELF",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	ASTERISK:     "ASTERISK",
	SLASH:        "SLASH",
	PERCENT:      "PERCENT",
	POW:          "POW",
	EQ:           "EQ",
	EQQ:          "EQQ",
	NOT_EQ:       "NOT_EQ",
	LT:           "LT",
	LTE:          "LTE",
	GT:           "GT",
	GTE:          "GTE",
	CMP:          "CMP",
	MATCH:        "MATCH",
	NOT_MATCH:    "NOT_MATCH",
	LSHIFT:       "LSHIFT",
	RSHIFT:       "RSHIFT",
	AMP:          "AMP",
	PIPE:         "PIPE",
	CARET:        "CARET",
	BANG:         "BANG",
	TILDE:        "TILDE",
	ASSIGN:       "ASSIGN",
	OR_ASSIGN:    "OR_ASSIGN",
	AND_ASSIGN:   "AND_ASSIGN",
	DOT2:         "DOT2",
	DOT3:         "DOT3",
	DOT:          "DOT",
	SCOPE:        "SCOPE",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Token represents a lexical token
type Token struct {
	Type        TokenType
	Literal     string
	Line        int
	Column      int
	SpaceBefore bool // whitespace separated this token from the previous one
}

// keywords maps reserved words to their token types. Reserved words outside
// the accepted subset map to UNSUPPORTED.
var keywords = map[string]TokenType{
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,
	"self":  SELF,

	"alias": UNSUPPORTED, "and": UNSUPPORTED, "begin": UNSUPPORTED,
	"BEGIN": UNSUPPORTED, "break": UNSUPPORTED, "case": UNSUPPORTED,
	"class": UNSUPPORTED, "def": UNSUPPORTED, "defined?": UNSUPPORTED,
	"do": UNSUPPORTED, "else": UNSUPPORTED, "elsif": UNSUPPORTED,
	"end": UNSUPPORTED, "END": UNSUPPORTED, "ensure": UNSUPPORTED,
	"for": UNSUPPORTED, "if": UNSUPPORTED, "in": UNSUPPORTED,
	"module": UNSUPPORTED, "next": UNSUPPORTED, "not": UNSUPPORTED,
	"or": UNSUPPORTED, "redo": UNSUPPORTED, "rescue": UNSUPPORTED,
	"retry": UNSUPPORTED, "return": UNSUPPORTED, "super": UNSUPPORTED,
	"then": UNSUPPORTED, "undef": UNSUPPORTED, "unless": UNSUPPORTED,
	"until": UNSUPPORTED, "when": UNSUPPORTED, "while": UNSUPPORTED,
	"yield": UNSUPPORTED, "__FILE__": UNSUPPORTED, "__LINE__": UNSUPPORTED,
	"__ENCODING__": UNSUPPORTED,
}

// LookupIdent returns the token type for an identifier
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	if ident[0] >= 'A' && ident[0] <= 'Z' {
		return CONSTANT
	}
	return IDENT
}

// operatorNames are the method names that may follow a dot or a symbol
// colon, longest first so that [] does not shadow []=.
var operatorNames = []string{
	"[]=", "===", "<=>",
	"[]", "**", "==", "=~", "!=", "!~", "<=", ">=", "<<", ">>", "-@", "+@",
	"+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^",
}

// Lexer represents the lexical analyzer
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number (1-indexed)
	column       int  // current column number (1-indexed)
	afterDot     bool // the previous token was a call dot
}

// New creates a new lexer instance
func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() byte {
	return l.peekAhead(1)
}

// peekAhead returns the character n positions after the current one
func (l *Lexer) peekAhead(n int) byte {
	pos := l.position + n
	if pos >= len(l.input) {
		return 0
	}
	return l.input[pos]
}

// advance consumes n characters
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		l.readChar()
	}
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	space := l.skipWhitespace()
	tok := Token{Line: l.line, Column: l.column, SpaceBefore: space}

	if l.afterDot {
		l.afterDot = false
		if name := l.readMethodName(); name != "" {
			tok.Type = METHOD
			tok.Literal = name
			return tok
		}
	}

	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '\n':
		// A run of blank lines and comments is one separator
		for l.ch == '\n' {
			l.readChar()
			l.skipWhitespace()
		}
		tok.Type = NEWLINE
		tok.Literal = "\n"
		return tok
	case '"', '\'':
		return l.readString(tok)
	case ':':
		if l.peekChar() == ':' {
			return l.operator(tok, SCOPE, "::")
		}
		return l.readSymbol(tok)
	case '@':
		return l.readVariable(tok)
	case '$':
		return l.readVariable(tok)
	case ';':
		return l.operator(tok, SEMICOLON, ";")
	case ',':
		return l.operator(tok, COMMA, ",")
	case '(':
		return l.operator(tok, LPAREN, "(")
	case ')':
		return l.operator(tok, RPAREN, ")")
	case '[':
		return l.operator(tok, LBRACKET, "[")
	case ']':
		return l.operator(tok, RBRACKET, "]")
	case '.':
		switch {
		case l.peekChar() == '.' && l.peekAhead(2) == '.':
			return l.operator(tok, DOT3, "...")
		case l.peekChar() == '.':
			return l.operator(tok, DOT2, "..")
		}
		l.afterDot = true
		return l.operator(tok, DOT, ".")
	case '+':
		return l.arithmetic(tok, PLUS, "+")
	case '-':
		if l.peekChar() == '>' {
			return l.operator(tok, UNSUPPORTED, "->")
		}
		return l.arithmetic(tok, MINUS, "-")
	case '*':
		if l.peekChar() == '*' {
			return l.arithmetic(tok, POW, "**")
		}
		return l.arithmetic(tok, ASTERISK, "*")
	case '/':
		return l.arithmetic(tok, SLASH, "/")
	case '%':
		return l.arithmetic(tok, PERCENT, "%")
	case '^':
		return l.arithmetic(tok, CARET, "^")
	case '~':
		return l.operator(tok, TILDE, "~")
	case '=':
		switch {
		case l.hasPrefix("==="):
			return l.operator(tok, EQQ, "===")
		case l.hasPrefix("=="):
			return l.operator(tok, EQ, "==")
		case l.hasPrefix("=~"):
			return l.operator(tok, MATCH, "=~")
		case l.hasPrefix("=>"):
			return l.operator(tok, UNSUPPORTED, "=>")
		}
		return l.operator(tok, ASSIGN, "=")
	case '!':
		switch {
		case l.hasPrefix("!="):
			return l.operator(tok, NOT_EQ, "!=")
		case l.hasPrefix("!~"):
			return l.operator(tok, NOT_MATCH, "!~")
		}
		return l.operator(tok, BANG, "!")
	case '<':
		switch {
		case l.hasPrefix("<=>"):
			return l.operator(tok, CMP, "<=>")
		case l.hasPrefix("<="):
			return l.operator(tok, LTE, "<=")
		case l.hasPrefix("<<"):
			return l.arithmetic(tok, LSHIFT, "<<")
		}
		return l.operator(tok, LT, "<")
	case '>':
		switch {
		case l.hasPrefix(">="):
			return l.operator(tok, GTE, ">=")
		case l.hasPrefix(">>"):
			return l.arithmetic(tok, RSHIFT, ">>")
		}
		return l.operator(tok, GT, ">")
	case '&':
		switch {
		case l.hasPrefix("&&="):
			return l.operator(tok, AND_ASSIGN, "&&=")
		case l.hasPrefix("&&"):
			return l.operator(tok, UNSUPPORTED, "&&")
		case l.hasPrefix("&."):
			return l.operator(tok, UNSUPPORTED, "&.")
		}
		return l.arithmetic(tok, AMP, "&")
	case '|':
		switch {
		case l.hasPrefix("||="):
			return l.operator(tok, OR_ASSIGN, "||=")
		case l.hasPrefix("||"):
			return l.operator(tok, UNSUPPORTED, "||")
		}
		return l.arithmetic(tok, PIPE, "|")
	case '{', '}', '?', '`':
		return l.operator(tok, UNSUPPORTED, string(l.ch))
	}

	if isDigit(l.ch) {
		return l.readNumber(tok)
	}
	if isLetter(l.ch) {
		tok.Literal = l.readIdentifier(true)
		tok.Type = LookupIdent(tok.Literal)
		return tok
	}

	tok.Type = ILLEGAL
	tok.Literal = string(l.ch)
	l.readChar()
	return tok
}

func (l *Lexer) hasPrefix(s string) bool {
	return strings.HasPrefix(l.input[l.position:], s)
}

// operator consumes literal and returns it as a token of type typ
func (l *Lexer) operator(tok Token, typ TokenType, literal string) Token {
	l.advance(len(literal))
	tok.Type = typ
	tok.Literal = literal
	return tok
}

// arithmetic is operator for tokens that have a compound-assignment form
// (+=, <<= ...), which the reader does not accept.
func (l *Lexer) arithmetic(tok Token, typ TokenType, literal string) Token {
	next := l.peekAhead(len(literal))
	if next == '=' && l.peekAhead(len(literal)+1) != '=' && l.peekAhead(len(literal)+1) != '~' {
		return l.operator(tok, UNSUPPORTED, literal+"=")
	}
	return l.operator(tok, typ, literal)
}

// skipWhitespace skips spaces, comments and escaped line breaks, and
// reports whether anything was skipped.
func (l *Lexer) skipWhitespace() bool {
	skipped := false
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r':
			l.readChar()
		case l.ch == '\\' && l.peekChar() == '\n':
			l.advance(2)
		case l.ch == '#':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		default:
			return skipped
		}
		skipped = true
	}
}

// readMethodName reads the name after a call dot: an identifier (keywords
// included) or an operator method name.
func (l *Lexer) readMethodName() string {
	if isLetter(l.ch) {
		return l.readIdentifier(true)
	}
	for _, op := range operatorNames {
		if l.hasPrefix(op) {
			l.advance(len(op))
			return op
		}
	}
	return ""
}

// readIdentifier reads letters, digits and underscores, plus a trailing ?
// or ! when suffix is set and the mark is not the start of != or ?=.
func (l *Lexer) readIdentifier(suffix bool) string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	if suffix && (l.ch == '?' || l.ch == '!') && l.peekChar() != '=' {
		l.readChar()
	}
	return l.input[start:l.position]
}

// readVariable reads @ivar, @@cvar or $gvar
func (l *Lexer) readVariable(tok Token) Token {
	start := l.position
	switch {
	case l.hasPrefix("@@"):
		tok.Type = CVAR
		l.advance(2)
	case l.ch == '@':
		tok.Type = IVAR
		l.readChar()
	default:
		tok.Type = GVAR
		l.readChar()
	}
	if !isLetter(l.ch) {
		tok.Type = ILLEGAL
		tok.Literal = l.input[start:l.position]
		return tok
	}
	l.readIdentifier(false)
	tok.Literal = l.input[start:l.position]
	return tok
}

// readSymbol reads :name, :@ivar, :$gvar, :+ or :"quoted name"
func (l *Lexer) readSymbol(tok Token) Token {
	l.readChar() // :
	switch {
	case l.ch == '"':
		str := l.readString(tok)
		if str.Type == STRING {
			str.Type = SYMBOL
		}
		return str
	case l.ch == '@' || l.ch == '$':
		v := l.readVariable(tok)
		if v.Type != ILLEGAL {
			v.Type = SYMBOL
		}
		return v
	case isLetter(l.ch):
		start := l.position
		l.readIdentifier(true)
		// :name= is a setter name unless the = starts ==, =~ or =>
		if l.ch == '=' && l.input[l.position-1] != '?' && l.input[l.position-1] != '!' {
			if next := l.peekChar(); next != '=' && next != '~' && next != '>' {
				l.readChar()
			}
		}
		tok.Type = SYMBOL
		tok.Literal = l.input[start:l.position]
		return tok
	}
	for _, op := range operatorNames {
		if l.hasPrefix(op) {
			l.advance(len(op))
			tok.Type = SYMBOL
			tok.Literal = op
			return tok
		}
	}
	tok.Type = ILLEGAL
	tok.Literal = ":"
	return tok
}

// readNumber reads an integer or float literal. The literal keeps its
// underscores and base prefix; the parser converts it.
func (l *Lexer) readNumber(tok Token) Token {
	start := l.position
	tok.Type = INT

	if l.ch == '0' && strings.IndexByte("xXbBoO", l.peekChar()) >= 0 {
		l.advance(2)
		for isHexDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	} else {
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
		if l.ch == '.' && isDigit(l.peekChar()) {
			tok.Type = FLOAT
			l.readChar()
			for isDigit(l.ch) || l.ch == '_' {
				l.readChar()
			}
		}
		if (l.ch == 'e' || l.ch == 'E') &&
			(isDigit(l.peekChar()) || ((l.peekChar() == '+' || l.peekChar() == '-') && isDigit(l.peekAhead(2)))) {
			tok.Type = FLOAT
			l.advance(2)
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}

	// 12abc is one bad literal, not a number followed by a name
	for isLetter(l.ch) || isDigit(l.ch) {
		tok.Type = ILLEGAL
		l.readChar()
	}

	tok.Literal = l.input[start:l.position]
	return tok
}

// readString reads a single- or double-quoted string and decodes its
// escapes. Interpolation in a double-quoted string is UNSUPPORTED.
func (l *Lexer) readString(tok Token) Token {
	quote := l.ch
	l.readChar()

	var buf []byte
	for l.ch != quote {
		if l.ch == 0 {
			tok.Type = UNTERMINATED
			tok.Literal = string(buf)
			return tok
		}
		if quote == '\'' {
			if l.ch == '\\' && (l.peekChar() == '\\' || l.peekChar() == '\'') {
				l.readChar()
			}
			buf = append(buf, l.ch)
			l.readChar()
			continue
		}
		if l.ch == '#' && (l.peekChar() == '{' || l.peekChar() == '@' || l.peekChar() == '$') {
			tok.Type = UNSUPPORTED
			tok.Literal = "#" + string(l.peekChar())
			l.skipString(quote)
			return tok
		}
		if l.ch == '\\' {
			l.readChar()
			buf = l.readEscape(buf)
			continue
		}
		buf = append(buf, l.ch)
		l.readChar()
	}
	l.readChar() // closing quote

	tok.Type = STRING
	tok.Literal = string(buf)
	return tok
}

// skipString moves past the rest of a string after an error so that lexing
// can resume after it.
func (l *Lexer) skipString(quote byte) {
	for l.ch != quote && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
		}
		l.readChar()
	}
	l.readChar()
}

var simpleEscapes = map[byte]byte{
	'n': '\n', 't': '\t', 'r': '\r', 'e': 0x1b, 's': ' ',
	'a': 0x07, 'b': 0x08, 'f': 0x0c, 'v': 0x0b,
}

// readEscape decodes the escape sequence starting at the character after a
// backslash and appends the bytes it denotes.
func (l *Lexer) readEscape(buf []byte) []byte {
	switch {
	case l.ch == 0:
		return buf
	case l.ch == '\n':
		l.readChar() // line continuation
		return buf
	case simpleEscapes[l.ch] != 0:
		b := simpleEscapes[l.ch]
		l.readChar()
		return append(buf, b)
	case isOctalDigit(l.ch):
		v := 0
		for i := 0; i < 3 && isOctalDigit(l.ch); i++ {
			v = v*8 + int(l.ch-'0')
			l.readChar()
		}
		return append(buf, byte(v))
	case l.ch == 'x' && isHexDigit(l.peekChar()):
		l.readChar()
		v := 0
		for i := 0; i < 2 && isHexDigit(l.ch); i++ {
			v = v*16 + hexValue(l.ch)
			l.readChar()
		}
		return append(buf, byte(v))
	case l.ch == 'u':
		l.readChar()
		return l.readUnicodeEscape(buf)
	}
	b := l.ch
	l.readChar()
	return append(buf, b)
}

// readUnicodeEscape decodes \uXXXX or \u{X...}
func (l *Lexer) readUnicodeEscape(buf []byte) []byte {
	var hex string
	if l.ch == '{' {
		start := l.position + 1
		for l.ch != '}' && l.ch != 0 {
			l.readChar()
		}
		hex = l.input[start:l.position]
		l.readChar()
	} else {
		start := l.position
		for i := 0; i < 4 && isHexDigit(l.ch); i++ {
			l.readChar()
		}
		hex = l.input[start:l.position]
	}
	v, err := strconv.ParseUint(strings.TrimSpace(hex), 16, 32)
	if err != nil {
		return append(buf, 'u')
	}
	return append(buf, string(rune(v))...)
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isOctalDigit(ch byte) bool {
	return ch >= '0' && ch <= '7'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func hexValue(ch byte) int {
	switch {
	case isDigit(ch):
		return int(ch - '0')
	case ch >= 'a' && ch <= 'f':
		return int(ch-'a') + 10
	default:
		return int(ch-'A') + 10
	}
}
