// Package sexp reads trees written in the s-expression notation printed by
// ast.Node.String, e.g. (send (lvar :a) :+ (int 1)).
//
// The notation is data only. Terminals are symbols (:name or :"quoted"),
// double-quoted strings using Go escapes, integers, floats and the bare word
// nil for an absent child. Comments run from ; or # to the end of the line.
package sexp

import (
	"fmt"
	"strings"
)

// TokenType represents different types of s-expression tokens
type TokenType int

const (
	// Special tokens
	ILLEGAL TokenType = iota
	EOF
	UNTERMINATED // string or quoted symbol without its closing quote

	// Literals
	INT    // 42, -7
	FLOAT  // 1.5, 1e+21, NaN
	STRING // "hello"
	SYMBOL // :foo, :"foo bar"
	IDENT  // send, nil

	// Delimiters
	LPAREN // (
	RPAREN // )
)

// Token represents a single token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// String returns a string representation of the token type
func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case UNTERMINATED:
		return "UNTERMINATED"
	case INT:
		return "INT"
	case FLOAT:
		return "FLOAT"
	case STRING:
		return "STRING"
	case SYMBOL:
		return "SYMBOL"
	case IDENT:
		return "IDENT"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	default:
		return fmt.Sprintf("TokenType(%d)", t)
	}
}

// Lexer tokenizes s-expression input
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number (1-indexed)
	column       int  // current column number (1-indexed)
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
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
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	tok := Token{Line: l.line, Column: l.column}

	switch l.ch {
	case '(':
		tok.Type = LPAREN
		tok.Literal = "("
	case ')':
		tok.Type = RPAREN
		tok.Literal = ")"
	case '"':
		tok.Literal, tok.Type = l.readQuoted(STRING)
		return tok
	case ':':
		return l.readSymbol(tok)
	case 0:
		tok.Type = EOF
		tok.Literal = ""
	default:
		if isDigit(l.ch) || ((l.ch == '-' || l.ch == '+') && (isDigit(l.peekChar()) || l.peekChar() == 'I')) {
			return l.readNumber(tok)
		} else if isLetter(l.ch) {
			tok.Literal = l.readIdentifier()
			tok.Type = IDENT
			if tok.Literal == "NaN" {
				tok.Type = FLOAT
			}
			return tok
		}
		tok.Type = ILLEGAL
		tok.Literal = string(l.ch)
	}

	l.readChar()
	return tok
}

// skipWhitespaceAndComments skips whitespace and ; or # comments
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == ';' || l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		break
	}
}

// readQuoted reads a double-quoted literal and returns it with its quotes so
// the parser can decode the escapes with strconv.Unquote.
func (l *Lexer) readQuoted(typ TokenType) (string, TokenType) {
	start := l.position
	l.readChar() // opening "
	for l.ch != '"' {
		if l.ch == 0 || l.ch == '\n' {
			return l.input[start:l.position], UNTERMINATED
		}
		if l.ch == '\\' {
			l.readChar()
			if l.ch == 0 {
				return l.input[start:l.position], UNTERMINATED
			}
		}
		l.readChar()
	}
	l.readChar() // closing "
	return l.input[start:l.position], typ
}

// readSymbol reads :name or :"quoted name". The literal is the raw text
// after the colon.
func (l *Lexer) readSymbol(tok Token) Token {
	l.readChar() // :
	if l.ch == '"' {
		tok.Literal, tok.Type = l.readQuoted(SYMBOL)
		return tok
	}
	start := l.position
	for !isSymbolTerminator(l.ch) {
		l.readChar()
	}
	if l.position == start {
		tok.Type = ILLEGAL
		tok.Literal = ":"
		return tok
	}
	tok.Type = SYMBOL
	tok.Literal = l.input[start:l.position]
	return tok
}

// readNumber reads an integer or float, including the +Inf and -Inf forms
func (l *Lexer) readNumber(tok Token) Token {
	var sb strings.Builder

	if l.ch == '-' || l.ch == '+' {
		sb.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch == 'I' {
		sb.WriteString(l.readIdentifier())
		tok.Type = FLOAT
		tok.Literal = sb.String()
		return tok
	}

	tok.Type = INT
	for isDigit(l.ch) {
		sb.WriteByte(l.ch)
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		tok.Type = FLOAT
		sb.WriteByte('.')
		l.readChar()
		for isDigit(l.ch) {
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		tok.Type = FLOAT
		sb.WriteByte(l.ch)
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			sb.WriteByte(l.ch)
			l.readChar()
		}
		for isDigit(l.ch) {
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
	// 12abc is one bad literal, not a number followed by a word
	for isLetter(l.ch) || isDigit(l.ch) {
		tok.Type = ILLEGAL
		sb.WriteByte(l.ch)
		l.readChar()
	}

	tok.Literal = sb.String()
	return tok
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// isSymbolTerminator mirrors the characters ast.FormatSymbol quotes.
func isSymbolTerminator(ch byte) bool {
	return ch == 0 || strings.IndexByte(" \t\r\n()\"';#\\", ch) >= 0
}
