// Package parser reads the Ruby subset accepted by the lexer package into
// unparser trees, using the node shapes of Ruby's parser gem.
//
// Explicit parentheses are kept as begin nodes so that a tree read from
// source records every grouping the author wrote.
package parser

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	"github.com/sambeau/unparser/pkg/unparser/emitter"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
	"github.com/sambeau/unparser/pkg/unparser/lexer"
)

// Precedence levels for operators, loosest first
const (
	_ int = iota
	LOWEST
	ASSIGNMENT // = ||= &&=
	RANGE      // .. ...
	EQUALITY   // <=> == === != =~ !~
	COMPARISON // < <= > >=
	BIT_OR     // | ^
	BIT_AND    // &
	SHIFT      // << >>
	SUM        // + -
	PRODUCT    // * / %
	NEGATE     // -x
	POWER      // **
	PREFIX     // !x ~x +x
	CALL       // a.b a[i] A::B
)

// MaxDepth bounds expression nesting
const MaxDepth = 512

// precedences maps tokens to their infix precedence
var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:     ASSIGNMENT,
	lexer.OR_ASSIGN:  ASSIGNMENT,
	lexer.AND_ASSIGN: ASSIGNMENT,
	lexer.DOT2:       RANGE,
	lexer.DOT3:       RANGE,
	lexer.CMP:        EQUALITY,
	lexer.EQ:         EQUALITY,
	lexer.EQQ:        EQUALITY,
	lexer.NOT_EQ:     EQUALITY,
	lexer.MATCH:      EQUALITY,
	lexer.NOT_MATCH:  EQUALITY,
	lexer.LT:         COMPARISON,
	lexer.LTE:        COMPARISON,
	lexer.GT:         COMPARISON,
	lexer.GTE:        COMPARISON,
	lexer.PIPE:       BIT_OR,
	lexer.CARET:      BIT_OR,
	lexer.AMP:        BIT_AND,
	lexer.LSHIFT:     SHIFT,
	lexer.RSHIFT:     SHIFT,
	lexer.PLUS:       SUM,
	lexer.MINUS:      SUM,
	lexer.ASTERISK:   PRODUCT,
	lexer.SLASH:      PRODUCT,
	lexer.PERCENT:    PRODUCT,
	lexer.POW:        POWER,
	lexer.DOT:        CALL,
	lexer.LBRACKET:   CALL,
	lexer.SCOPE:      CALL,
}

type (
	prefixParseFn func() *ast.Node
	infixParseFn  func(*ast.Node) *ast.Node
)

// Parser represents the parser
type Parser struct {
	l *lexer.Lexer

	structuredErrors []*uerrors.UnparserError

	prevToken lexer.Token
	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn

	locals map[string]bool // names assigned so far; a bare name reads as lvar
	depth  int
}

// New creates a new parser instance
func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		locals: make(map[string]bool),
	}

	p.prefixParseFns = make(map[lexer.TokenType]prefixParseFn)
	p.registerPrefix(lexer.IDENT, p.parseIdentifier)
	p.registerPrefix(lexer.CONSTANT, p.parseConstant)
	p.registerPrefix(lexer.IVAR, p.parseVariable)
	p.registerPrefix(lexer.GVAR, p.parseVariable)
	p.registerPrefix(lexer.CVAR, p.parseVariable)
	p.registerPrefix(lexer.INT, p.parseIntegerLiteral)
	p.registerPrefix(lexer.FLOAT, p.parseFloatLiteral)
	p.registerPrefix(lexer.STRING, p.parseStringLiteral)
	p.registerPrefix(lexer.SYMBOL, p.parseSymbolLiteral)
	p.registerPrefix(lexer.NIL, p.parseKeywordLiteral)
	p.registerPrefix(lexer.TRUE, p.parseKeywordLiteral)
	p.registerPrefix(lexer.FALSE, p.parseKeywordLiteral)
	p.registerPrefix(lexer.SELF, p.parseKeywordLiteral)
	p.registerPrefix(lexer.BANG, p.parsePrefixExpression)
	p.registerPrefix(lexer.TILDE, p.parsePrefixExpression)
	p.registerPrefix(lexer.NOT_MATCH, p.parseNotComplement)
	p.registerPrefix(lexer.PLUS, p.parseSignedExpression)
	p.registerPrefix(lexer.MINUS, p.parseSignedExpression)
	p.registerPrefix(lexer.ASTERISK, p.parseSplat)
	p.registerPrefix(lexer.SCOPE, p.parseTopConstant)
	p.registerPrefix(lexer.DOT2, p.parseBeginlessRange)
	p.registerPrefix(lexer.DOT3, p.parseBeginlessRange)
	p.registerPrefix(lexer.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(lexer.LBRACKET, p.parseArrayLiteral)

	p.infixParseFns = make(map[lexer.TokenType]infixParseFn)
	for _, tt := range []lexer.TokenType{
		lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH, lexer.PERCENT, lexer.POW,
		lexer.EQ, lexer.EQQ, lexer.NOT_EQ, lexer.CMP, lexer.MATCH, lexer.NOT_MATCH,
		lexer.LT, lexer.LTE, lexer.GT, lexer.GTE,
		lexer.LSHIFT, lexer.RSHIFT, lexer.AMP, lexer.PIPE, lexer.CARET,
	} {
		p.registerInfix(tt, p.parseInfixExpression)
	}
	p.registerInfix(lexer.DOT2, p.parseRange)
	p.registerInfix(lexer.DOT3, p.parseRange)
	p.registerInfix(lexer.ASSIGN, p.parseAssignment)
	p.registerInfix(lexer.OR_ASSIGN, p.parseAssignment)
	p.registerInfix(lexer.AND_ASSIGN, p.parseAssignment)
	p.registerInfix(lexer.DOT, p.parseMethodCall)
	p.registerInfix(lexer.LBRACKET, p.parseIndexExpression)
	p.registerInfix(lexer.SCOPE, p.parseScopedConstant)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

// ParseString parses a whole program and returns its statements, or the
// first error.
func ParseString(src string) ([]*ast.Node, error) {
	p := New(lexer.New(src))
	program := p.ParseProgram()
	if errs := p.StructuredErrors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return program, nil
}

// Declare marks names as local variables, as if they had been assigned
// before the input. A bare reference to a declared name reads as lvar.
func (p *Parser) Declare(names ...string) {
	for _, name := range names {
		p.locals[name] = true
	}
}

// Locals returns the local variable names seen so far, sorted.
func (p *Parser) Locals() []string {
	names := make([]string, 0, len(p.locals))
	for name := range p.locals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Errors returns parser errors as strings (convenience method for tests).
// Prefer StructuredErrors() for production code.
func (p *Parser) Errors() []string {
	result := make([]string, len(p.structuredErrors))
	for i, err := range p.structuredErrors {
		if err.Line > 0 {
			result[i] = fmt.Sprintf("line %d, column %d: %s", err.Line, err.Column, err.Message)
		} else {
			result[i] = err.Message
		}
	}
	return result
}

// StructuredErrors returns parser errors as structured UnparserError objects.
func (p *Parser) StructuredErrors() []*uerrors.UnparserError {
	return p.structuredErrors
}

func (p *Parser) failed() bool {
	return len(p.structuredErrors) > 0
}

// addStructuredError adds a structured error from the catalog.
// Only the first error is recorded - subsequent errors are usually cascading noise.
func (p *Parser) addStructuredError(code string, tok lexer.Token, data map[string]any) {
	if p.failed() {
		return
	}
	p.structuredErrors = append(p.structuredErrors, uerrors.NewWithPosition(code, tok.Line, tok.Column, data))
}

// tokenError reports tok where expected was wanted. Tokens the lexer flagged
// get their own codes; an empty expected reports tok as unexpected.
func (p *Parser) tokenError(tok lexer.Token, expected string) {
	switch tok.Type {
	case lexer.UNTERMINATED:
		p.addStructuredError("PARSE-0003", tok, nil)
	case lexer.UNSUPPORTED:
		construct := "`" + tok.Literal + "`"
		if strings.HasPrefix(tok.Literal, "#") {
			construct = "string interpolation"
		}
		p.addStructuredError("PARSE-0010", tok, map[string]any{"Construct": construct})
	case lexer.ILLEGAL:
		if len(tok.Literal) > 0 && tok.Literal[0] >= '0' && tok.Literal[0] <= '9' {
			p.addStructuredError("PARSE-0004", tok, map[string]any{"Literal": tok.Literal})
			return
		}
		p.addStructuredError("PARSE-0006", tok, map[string]any{"Char": tok.Literal})
	default:
		if expected == "" {
			p.addStructuredError("PARSE-0002", tok, map[string]any{"Token": displayLiteral(tok)})
			return
		}
		p.addStructuredError("PARSE-0001", tok, map[string]any{"Expected": expected, "Got": displayLiteral(tok)})
	}
}

func displayLiteral(tok lexer.Token) string {
	switch tok.Type {
	case lexer.EOF:
		return "end of input"
	case lexer.NEWLINE:
		return "newline"
	case lexer.STRING:
		return strconv.Quote(tok.Literal)
	case lexer.SYMBOL:
		return ":" + tok.Literal
	}
	return tok.Literal
}

// registerPrefix registers a prefix parse function
func (p *Parser) registerPrefix(tokenType lexer.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers an infix parse function
func (p *Parser) registerInfix(tokenType lexer.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// nextToken advances prevToken, curToken, and peekToken
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// skipPeekNewlines drops line breaks ahead, for places where an expression
// obviously continues: after an operator, a comma or an opening bracket.
func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(lexer.NEWLINE) {
		p.peekToken = p.l.NextToken()
	}
}

// skipSeparators moves past statement separators at the current token
func (p *Parser) skipSeparators() {
	for p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.SEMICOLON) {
		p.nextToken()
	}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t lexer.TokenType) bool {
	return p.peekToken.Type == t
}

// peekIsAdjacent reports whether the next token is t and touches the current
// one, as the ( of foo(1) or the [ of a[0] must.
func (p *Parser) peekIsAdjacent(t lexer.TokenType) bool {
	return p.peekToken.Type == t && !p.peekToken.SpaceBefore
}

// expectPeek advances if the next token is t and reports an error otherwise
func (p *Parser) expectPeek(t lexer.TokenType, expected string) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.tokenError(p.peekToken, expected)
	return false
}

func (p *Parser) peekPrecedence() int {
	if p.peekToken.Type == lexer.LBRACKET && p.peekToken.SpaceBefore {
		return LOWEST
	}
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

// peekStartsExpression reports whether the next token can begin an operand
func (p *Parser) peekStartsExpression() bool {
	_, ok := p.prefixParseFns[p.peekToken.Type]
	return ok
}

// ============================================================================
// Statements
// ============================================================================

// ParseProgram parses statements separated by newlines or semicolons. It
// stops at the first error.
func (p *Parser) ParseProgram() []*ast.Node {
	program := []*ast.Node{}

	p.skipSeparators()
	for !p.curTokenIs(lexer.EOF) {
		stmt := p.parseStatement(false)
		if stmt == nil || p.failed() {
			return program
		}
		program = append(program, stmt)

		switch p.peekToken.Type {
		case lexer.NEWLINE, lexer.SEMICOLON, lexer.EOF:
			p.nextToken()
		default:
			p.tokenError(p.peekToken, "")
			return program
		}
		p.skipSeparators()
	}

	return program
}

// parseStatement parses an expression or a multiple assignment. With
// bareTargets set (inside parentheses) a target list not followed by = is
// returned as an mlhs node for the enclosing assignment.
func (p *Parser) parseStatement(bareTargets bool) *ast.Node {
	first := p.parseTarget()
	if first == nil {
		return nil
	}

	switch {
	case p.peekTokenIs(lexer.COMMA):
		return p.parseMultipleAssignment(first, bareTargets)
	case p.peekTokenIs(lexer.ASSIGN) && first.Is(ast.SPLAT, ast.MLHS):
		return p.parseMultipleAssignment(first, bareTargets)
	case first.Is(ast.MLHS) && bareTargets && p.peekTokenIs(lexer.RPAREN):
		return first
	case first.Is(ast.MLHS):
		p.tokenError(p.peekToken, "'='")
		return nil
	}
	return p.parseInfix(first, LOWEST)
}

// parseTarget parses an operand that stops before any assignment operator.
// A parenthesized target list is accepted here and nowhere else.
func (p *Parser) parseTarget() *ast.Node {
	if p.curTokenIs(lexer.LPAREN) {
		return p.parseInfix(p.parseGroup(true), ASSIGNMENT)
	}
	return p.parseExpression(ASSIGNMENT)
}

// parseMultipleAssignment parses "a, b.c, *d = value, ..." once the first
// target has been read.
func (p *Parser) parseMultipleAssignment(first *ast.Node, bareTargets bool) *ast.Node {
	targets := []*ast.Node{p.toTarget(first)}
	trailingComma := false

	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		if p.peekTokenIs(lexer.ASSIGN) || p.peekTokenIs(lexer.RPAREN) {
			trailingComma = true
			break
		}
		p.nextToken()
		item := p.parseTarget()
		if item == nil {
			return nil
		}
		targets = append(targets, p.toTarget(item))
	}
	if p.failed() {
		return nil
	}

	var mlhs *ast.Node
	if len(targets) == 1 && targets[0].Is(ast.MLHS) && !trailingComma {
		// (a, b) = c has the inner list as its only target list
		mlhs = targets[0]
	} else {
		mlhs = ast.New(ast.MLHS, nodeChildren(targets)...)
	}

	if bareTargets && p.peekTokenIs(lexer.RPAREN) {
		return mlhs
	}
	if !p.expectPeek(lexer.ASSIGN, "'='") {
		return nil
	}
	p.skipPeekNewlines()
	p.nextToken()

	value := p.parseValueList()
	if value == nil {
		return nil
	}
	return ast.New(ast.MASGN, mlhs, value)
}

// parseValueList parses the right-hand side of a multiple assignment. More
// than one value, or a splat, makes an array.
func (p *Parser) parseValueList() *ast.Node {
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	values := []*ast.Node{first}
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken()
		p.skipPeekNewlines()
		p.nextToken()
		v := p.parseExpression(LOWEST)
		if v == nil {
			return nil
		}
		values = append(values, v)
	}
	if len(values) == 1 && !first.Is(ast.SPLAT) {
		return first
	}
	return ast.NewArray(values...)
}

// toTarget converts an expression read in target position into a
// multiple-assignment target.
func (p *Parser) toTarget(node *ast.Node) *ast.Node {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case ast.MLHS:
		return node
	case ast.SPLAT:
		inner := node.NodeAt(0)
		if inner == nil {
			return node
		}
		return ast.NewSplat(p.toTarget(inner))
	case ast.SEND:
		recv := node.NodeAt(0)
		name, _ := node.SymbolAt(1)
		if recv != nil && name == "[]" {
			p.addStructuredError("PARSE-0009", p.curToken, map[string]any{"Target": sourceOf(node)})
			return node
		}
	}
	return p.variableTarget(node, "=", nil)
}

// variableTarget builds the assignment node for target. For a plain or
// multiple assignment op is "=": attributes become setter calls and indexes
// []= calls, and value (nil for a multiple-assignment target) is appended.
// For ||= and &&= attributes and indexes are kept as readers.
func (p *Parser) variableTarget(target *ast.Node, op string, value *ast.Node) *ast.Node {
	withValue := func(kind ast.Kind, name ast.Symbol) *ast.Node {
		n := ast.New(kind, name)
		if value != nil {
			n.Children = append(n.Children, value)
		}
		return n
	}

	switch target.Kind {
	case ast.LVAR:
		name, _ := target.SymbolAt(0)
		p.locals[string(name)] = true
		return withValue(ast.LVASGN, name)
	case ast.IVAR:
		name, _ := target.SymbolAt(0)
		return withValue(ast.IVASGN, name)
	case ast.GVAR:
		name, _ := target.SymbolAt(0)
		return withValue(ast.GVASGN, name)
	case ast.CVAR:
		name, _ := target.SymbolAt(0)
		return withValue(ast.CVASGN, name)
	case ast.SEND:
		recv := target.NodeAt(0)
		name, _ := target.SymbolAt(1)
		args := target.Children[2:]
		switch {
		case recv == nil && len(args) == 0 && isLocalName(string(name)):
			p.locals[string(name)] = true
			return withValue(ast.LVASGN, name)
		case recv != nil && len(args) == 0 && isLocalName(string(name)):
			if op != "=" {
				return target
			}
			setter := ast.New(ast.SEND, recv, name+"=")
			if value != nil {
				setter.Children = append(setter.Children, value)
			}
			return setter
		case recv != nil && name == "[]":
			if op != "=" {
				return target
			}
			children := append([]any{recv, ast.Symbol("[]=")}, args...)
			if value != nil {
				children = append(children, value)
			}
			return ast.New(ast.SEND, children...)
		}
	}

	p.addStructuredError("PARSE-0007", p.curToken, map[string]any{"Target": sourceOf(target)})
	return nil
}

// sourceOf renders node for an error message, falling back to its
// s-expression form.
func sourceOf(node *ast.Node) string {
	if out, err := emitter.Render(node); err == nil {
		return out
	}
	return node.String()
}

// isLocalName reports whether name can be a local variable or attribute
// name: an identifier starting with a lowercase letter or underscore.
func isLocalName(name string) bool {
	if name == "" || !(name[0] == '_' || (name[0] >= 'a' && name[0] <= 'z')) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

func nodeChildren(nodes []*ast.Node) []any {
	children := make([]any, len(nodes))
	for i, n := range nodes {
		children[i] = n
	}
	return children
}

// ============================================================================
// Expressions
// ============================================================================

// parseExpression parses expressions using Pratt parsing
func (p *Parser) parseExpression(precedence int) *ast.Node {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		p.addStructuredError("PARSE-0008", p.curToken, map[string]any{"Limit": MaxDepth})
		return nil
	}

	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.tokenError(p.curToken, "expression")
		return nil
	}

	return p.parseInfix(prefix(), precedence)
}

// parseInfix extends left with operators binding tighter than precedence
func (p *Parser) parseInfix(left *ast.Node, precedence int) *ast.Node {
	for left != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}

		p.nextToken()

		left = infix(left)
	}
	if p.failed() {
		return nil
	}
	return left
}

// parseOperand moves to the token after the current operator and parses
// the operand that follows it.
func (p *Parser) parseOperand(precedence int) *ast.Node {
	p.skipPeekNewlines()
	p.nextToken()
	return p.parseExpression(precedence)
}

func (p *Parser) parseIdentifier() *ast.Node {
	name := p.curToken.Literal
	if p.peekIsAdjacent(lexer.LPAREN) {
		p.nextToken()
		args, ok := p.parseExpressionList(lexer.RPAREN, "')'")
		if !ok {
			return nil
		}
		return ast.NewSend(nil, name, args...)
	}
	if p.locals[name] {
		return ast.NewLvar(name)
	}
	return ast.NewSend(nil, name)
}

func (p *Parser) parseConstant() *ast.Node {
	name := p.curToken.Literal
	if p.peekIsAdjacent(lexer.LPAREN) {
		p.nextToken()
		args, ok := p.parseExpressionList(lexer.RPAREN, "')'")
		if !ok {
			return nil
		}
		return ast.NewSend(nil, name, args...)
	}
	if last := name[len(name)-1]; last == '?' || last == '!' {
		return ast.NewSend(nil, name)
	}
	return ast.New(ast.CONST, nil, ast.Symbol(name))
}

func (p *Parser) parseVariable() *ast.Node {
	kind := ast.IVAR
	switch p.curToken.Type {
	case lexer.GVAR:
		kind = ast.GVAR
	case lexer.CVAR:
		kind = ast.CVAR
	}
	return ast.New(kind, ast.Symbol(p.curToken.Literal))
}

// parseNumber converts a numeric literal, with sign "-" or "".
func (p *Parser) parseNumber(tok lexer.Token, sign string) *ast.Node {
	lit := strings.ReplaceAll(tok.Literal, "_", "")
	if tok.Type == lexer.FLOAT {
		v, err := strconv.ParseFloat(sign+lit, 64)
		if err != nil {
			p.addStructuredError("PARSE-0004", tok, map[string]any{"Literal": sign + tok.Literal})
			return nil
		}
		return ast.NewFloat(v)
	}
	v, err := strconv.ParseInt(sign+lit, 0, 64)
	if err != nil {
		p.addStructuredError("PARSE-0004", tok, map[string]any{"Literal": sign + tok.Literal})
		return nil
	}
	return ast.NewInt(v)
}

func (p *Parser) parseIntegerLiteral() *ast.Node {
	return p.parseNumber(p.curToken, "")
}

func (p *Parser) parseFloatLiteral() *ast.Node {
	return p.parseNumber(p.curToken, "")
}

func (p *Parser) parseStringLiteral() *ast.Node {
	return ast.NewStr(p.curToken.Literal)
}

func (p *Parser) parseSymbolLiteral() *ast.Node {
	return ast.NewSym(p.curToken.Literal)
}

func (p *Parser) parseKeywordLiteral() *ast.Node {
	switch p.curToken.Type {
	case lexer.TRUE:
		return ast.New(ast.TRUE)
	case lexer.FALSE:
		return ast.New(ast.FALSE)
	case lexer.SELF:
		return ast.New(ast.SELF)
	default:
		return ast.New(ast.NIL)
	}
}

// parsePrefixExpression parses !x and ~x
func (p *Parser) parsePrefixExpression() *ast.Node {
	op := p.curToken.Literal
	operand := p.parseOperand(PREFIX)
	if operand == nil {
		return nil
	}
	return ast.NewSend(operand, op)
}

// parseNotComplement parses !~x, which the lexer reads as one token.
func (p *Parser) parseNotComplement() *ast.Node {
	operand := p.parseOperand(PREFIX)
	if operand == nil {
		return nil
	}
	return ast.NewSend(ast.NewSend(operand, "~"), "!")
}

// parseSignedExpression parses -x and +x. A sign touching a numeric literal
// is part of the literal.
func (p *Parser) parseSignedExpression() *ast.Node {
	op := p.curToken
	if p.peekIsAdjacent(lexer.INT) || p.peekIsAdjacent(lexer.FLOAT) {
		p.nextToken()
		sign := ""
		if op.Type == lexer.MINUS {
			sign = "-"
		}
		return p.parseNumber(p.curToken, sign)
	}

	precedence := PREFIX
	if op.Type == lexer.MINUS {
		precedence = NEGATE
	}
	operand := p.parseOperand(precedence)
	if operand == nil {
		return nil
	}
	return ast.NewSend(operand, op.Literal+"@")
}

// parseSplat parses *x, or a bare * in a target list
func (p *Parser) parseSplat() *ast.Node {
	switch p.peekToken.Type {
	case lexer.COMMA, lexer.ASSIGN, lexer.RPAREN, lexer.RBRACKET:
		return ast.NewSplat(nil)
	}
	value := p.parseOperand(ASSIGNMENT)
	if value == nil {
		return nil
	}
	return ast.NewSplat(value)
}

func (p *Parser) parseTopConstant() *ast.Node {
	if !p.expectPeek(lexer.CONSTANT, "constant name") {
		return nil
	}
	return ast.New(ast.CONST, ast.New(ast.CBASE), ast.Symbol(p.curToken.Literal))
}

func (p *Parser) parseScopedConstant(scope *ast.Node) *ast.Node {
	if !p.expectPeek(lexer.CONSTANT, "constant name") {
		return nil
	}
	return ast.New(ast.CONST, scope, ast.Symbol(p.curToken.Literal))
}

// parseBeginlessRange parses ..x and ...x
func (p *Parser) parseBeginlessRange() *ast.Node {
	kind := rangeKind(p.curToken.Type)
	to := p.parseOperand(RANGE)
	if to == nil {
		return nil
	}
	return ast.New(kind, nil, to)
}

// parseRange parses a..b and a...b; the end may be omitted.
func (p *Parser) parseRange(from *ast.Node) *ast.Node {
	kind := rangeKind(p.curToken.Type)
	if !p.peekStartsExpression() {
		return ast.New(kind, from, nil)
	}
	to := p.parseOperand(RANGE)
	if to == nil {
		return nil
	}
	return ast.New(kind, from, to)
}

func rangeKind(t lexer.TokenType) ast.Kind {
	if t == lexer.DOT3 {
		return ast.ERANGE
	}
	return ast.IRANGE
}

// parseInfixExpression parses binary operators. ** is right-associative.
func (p *Parser) parseInfixExpression(left *ast.Node) *ast.Node {
	op := p.curToken
	precedence := p.curPrecedence()
	if op.Type == lexer.POW {
		precedence--
	}
	right := p.parseOperand(precedence)
	if right == nil {
		return nil
	}
	return ast.NewSend(left, op.Literal, right)
}

// parseAssignment parses target = value, target ||= value and
// target &&= value. Assignment is right-associative.
func (p *Parser) parseAssignment(left *ast.Node) *ast.Node {
	op := p.curToken
	if op.Type != lexer.ASSIGN {
		target := p.variableTarget(left, op.Literal, nil)
		if target == nil {
			return nil
		}
		value := p.parseOperand(LOWEST)
		if value == nil {
			return nil
		}
		kind := ast.OR_ASGN
		if op.Type == lexer.AND_ASSIGN {
			kind = ast.AND_ASGN
		}
		return ast.New(kind, target, value)
	}

	// Validate the target and declare locals before reading the value, so
	// that a = a reads the new local.
	if p.variableTarget(left, "=", nil) == nil {
		return nil
	}
	value := p.parseOperand(LOWEST)
	if value == nil {
		return nil
	}
	return p.variableTarget(left, "=", value)
}

// parseMethodCall parses recv.name and recv.name(args)
func (p *Parser) parseMethodCall(recv *ast.Node) *ast.Node {
	if !p.expectPeek(lexer.METHOD, "method name") {
		return nil
	}
	name := p.curToken.Literal
	if !p.peekIsAdjacent(lexer.LPAREN) {
		return ast.NewSend(recv, name)
	}
	p.nextToken()
	args, ok := p.parseExpressionList(lexer.RPAREN, "')'")
	if !ok {
		return nil
	}
	return ast.NewSend(recv, name, args...)
}

// parseIndexExpression parses recv[args]
func (p *Parser) parseIndexExpression(recv *ast.Node) *ast.Node {
	args, ok := p.parseExpressionList(lexer.RBRACKET, "']'")
	if !ok {
		return nil
	}
	return ast.NewSend(recv, "[]", args...)
}

func (p *Parser) parseArrayLiteral() *ast.Node {
	elems, ok := p.parseExpressionList(lexer.RBRACKET, "']'")
	if !ok {
		return nil
	}
	return ast.NewArray(elems...)
}

// parseExpressionList parses comma-separated expressions up to end. The
// current token is the opening bracket. Line breaks inside are ignored.
func (p *Parser) parseExpressionList(end lexer.TokenType, expected string) ([]*ast.Node, bool) {
	list := []*ast.Node{}

	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list, true
	}

	p.nextToken()
	for {
		item := p.parseExpression(LOWEST)
		if item == nil {
			return nil, false
		}
		list = append(list, item)

		p.skipPeekNewlines()
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken()
		p.skipPeekNewlines()
		p.nextToken()
	}

	if !p.expectPeek(end, expected) {
		return nil, false
	}
	return list, true
}

func (p *Parser) parseGroupedExpression() *ast.Node {
	return p.parseGroup(false)
}

// parseGroup parses ( statements ) into a begin node. With targets set, a
// target list such as (a, b) is returned as an mlhs node instead.
func (p *Parser) parseGroup(targets bool) *ast.Node {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxDepth {
		p.addStructuredError("PARSE-0008", p.curToken, map[string]any{"Limit": MaxDepth})
		return nil
	}

	p.nextToken()
	p.skipSeparators()
	if p.curTokenIs(lexer.RPAREN) {
		return ast.NewBegin()
	}

	var body []*ast.Node
	for {
		stmt := p.parseStatement(targets && len(body) == 0)
		if stmt == nil {
			return nil
		}
		body = append(body, stmt)

		if p.peekTokenIs(lexer.RPAREN) {
			p.nextToken()
			break
		}
		if !p.peekTokenIs(lexer.NEWLINE) && !p.peekTokenIs(lexer.SEMICOLON) {
			p.tokenError(p.peekToken, "')'")
			return nil
		}
		p.nextToken()
		p.skipSeparators()
		if p.curTokenIs(lexer.RPAREN) {
			break
		}
	}

	if body[0].Is(ast.MLHS) {
		// a target list must still be followed by more targets or the =
		if len(body) > 1 || !(p.peekTokenIs(lexer.COMMA) || p.peekTokenIs(lexer.ASSIGN) || p.peekTokenIs(lexer.RPAREN)) {
			p.tokenError(p.peekToken, "'='")
			return nil
		}
		return body[0]
	}
	return ast.NewBegin(body...)
}
