package sexp

import (
	"strconv"

	"github.com/sambeau/unparser/pkg/unparser/ast"
	uerrors "github.com/sambeau/unparser/pkg/unparser/errors"
)

// MaxNestingDepth is the maximum allowed nesting depth of a tree
const MaxNestingDepth = 512

// Parser reads s-expressions into ast nodes
type Parser struct {
	l         *Lexer
	curToken  Token
	peekToken Token
	err       *uerrors.UnparserError
	depth     int
}

// NewParser creates a new parser
func NewParser(input string) *Parser {
	p := &Parser{l: NewLexer(input)}
	// Read two tokens to initialize curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

// Err returns the first error encountered, or nil
func (p *Parser) Err() *uerrors.UnparserError {
	return p.err
}

// addError records an error at the current token. Only the first error is
// kept; later ones are usually consequences of it.
func (p *Parser) addError(code string, data map[string]any) {
	if p.err != nil {
		return
	}
	p.err = uerrors.NewWithPosition(code, p.curToken.Line, p.curToken.Column, data)
}

// Parse reads exactly one tree from input.
func Parse(input string) (*ast.Node, error) {
	p := NewParser(input)
	node := p.parseNode()
	if p.err == nil && p.curToken.Type != EOF {
		p.addError("PARSE-0002", map[string]any{"Token": p.curToken.Literal})
	}
	if p.err != nil {
		return nil, p.err
	}
	return node, nil
}

// ParseAll reads every tree in input. Empty input yields no trees.
func ParseAll(input string) ([]*ast.Node, error) {
	p := NewParser(input)
	var nodes []*ast.Node
	for p.curToken.Type != EOF {
		node := p.parseNode()
		if p.err != nil {
			return nil, p.err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// parseNode parses (kind children...)
func (p *Parser) parseNode() *ast.Node {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > MaxNestingDepth {
		p.addError("PARSE-0008", map[string]any{"Limit": MaxNestingDepth})
		return nil
	}

	if p.curToken.Type != LPAREN {
		p.unexpected("'('")
		return nil
	}
	p.nextToken()

	if p.curToken.Type != IDENT {
		p.unexpected("node kind")
		return nil
	}
	if !ast.IsKind(p.curToken.Literal) {
		if p.err == nil {
			p.err = uerrors.NewUnknownKind(p.curToken.Literal, ast.KindNames(), p.curToken.Line, p.curToken.Column)
		}
		return nil
	}
	node := ast.New(ast.Kind(p.curToken.Literal))
	p.nextToken()

	for p.curToken.Type != RPAREN {
		if p.curToken.Type == EOF {
			p.unexpected("')'")
			return nil
		}
		child, ok := p.parseChild()
		if !ok {
			return nil
		}
		node.Children = append(node.Children, child)
	}
	p.nextToken() // )

	return node
}

// parseChild parses one child value
func (p *Parser) parseChild() (any, bool) {
	tok := p.curToken
	switch tok.Type {
	case LPAREN:
		node := p.parseNode()
		return node, node != nil
	case SYMBOL:
		name := tok.Literal
		if len(name) > 0 && name[0] == '"' {
			unquoted, err := strconv.Unquote(name)
			if err != nil {
				p.addError("PARSE-0001", map[string]any{"Expected": "symbol", "Got": name})
				return nil, false
			}
			name = unquoted
		}
		p.nextToken()
		return ast.Symbol(name), true
	case STRING:
		s, err := strconv.Unquote(tok.Literal)
		if err != nil {
			p.addError("PARSE-0001", map[string]any{"Expected": "string", "Got": tok.Literal})
			return nil, false
		}
		p.nextToken()
		return s, true
	case INT:
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.addError("PARSE-0004", map[string]any{"Literal": tok.Literal})
			return nil, false
		}
		p.nextToken()
		return v, true
	case FLOAT:
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.addError("PARSE-0004", map[string]any{"Literal": tok.Literal})
			return nil, false
		}
		p.nextToken()
		return v, true
	case IDENT:
		if tok.Literal == "nil" {
			p.nextToken()
			return nil, true
		}
		p.addError("PARSE-0001", map[string]any{"Expected": "child value", "Got": tok.Literal})
		return nil, false
	default:
		p.unexpected("child value")
		return nil, false
	}
}

// unexpected reports the current token where something else was expected.
func (p *Parser) unexpected(expected string) {
	switch p.curToken.Type {
	case EOF:
		p.addError("PARSE-0001", map[string]any{"Expected": expected, "Got": "end of input"})
	case UNTERMINATED:
		p.addError("PARSE-0003", nil)
	case ILLEGAL:
		lit := p.curToken.Literal
		if len(lit) > 1 && (isDigit(lit[0]) || lit[0] == '-' || lit[0] == '+') {
			p.addError("PARSE-0004", map[string]any{"Literal": lit})
			return
		}
		p.addError("PARSE-0006", map[string]any{"Char": lit})
	default:
		p.addError("PARSE-0001", map[string]any{"Expected": expected, "Got": p.curToken.Literal})
	}
}
