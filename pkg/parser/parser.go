package parser

import (
	"github.com/xplshn/ttc/pkg/ast"
	"github.com/xplshn/ttc/pkg/lexer"
	"github.com/xplshn/ttc/pkg/token"
	"github.com/xplshn/ttc/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
}

// NewParser creates and initializes a new Parser from a token stream
func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens}
	if len(tokens) > 0 {
		p.current = tokens[0]
	}
	return p
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) error {
	if p.match(tokType) {
		return nil
	}
	return util.NewDiagnostic(p.current, "%s, found %s", message, p.current.Describe())
}

// Parse reads `int <name>(void) { return <exp>; }` followed by end of input.
func (p *Parser) Parse() (*ast.Program, error) {
	if len(p.tokens) == 0 {
		return nil, util.NewDiagnostic(p.current, "expected 'int' return type, found end of file")
	}
	fn, err := p.parseFunction()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.EOF, "expected end of program"); err != nil {
		return nil, err
	}
	return &ast.Program{Function: fn}, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	if err := p.expect(token.Int, "expected 'int' return type"); err != nil {
		return nil, err
	}
	nameTok := p.current
	if err := p.expect(token.Ident, "expected identifier"); err != nil {
		return nil, err
	}
	for _, step := range []struct {
		tok token.Type
		msg string
	}{
		{token.LParen, "expected '('"},
		{token.Void, "expected 'void'"},
		{token.RParen, "expected ')'"},
		{token.LBrace, "expected '{'"},
	} {
		if err := p.expect(step.tok, step.msg); err != nil {
			return nil, err
		}
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.RBrace, "expected '}'"); err != nil {
		return nil, err
	}
	return &ast.Function{Tok: nameTok, Name: nameTok.Value, Body: body}, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	tok := p.current
	if err := p.expect(token.Return, "expected 'return'"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(token.Semi, "expected ';'"); err != nil {
		return nil, err
	}
	return &ast.Return{Tok: tok, Expr: expr}, nil
}

func (p *Parser) parseExpr() (ast.Expr, error) {
	tok := p.current
	switch {
	case p.match(token.Constant):
		val, err := lexer.ConstantValue(tok)
		if err != nil {
			return nil, err
		}
		return &ast.Constant{Tok: tok, Value: val}, nil

	case p.match(token.Minus), p.match(token.Complement):
		op := ast.Negate
		if tok.Type == token.Complement {
			op = ast.Complement
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Tok: tok, Op: op, Expr: inner}, nil

	case p.match(token.LParen):
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(token.RParen, "expected ')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case p.check(token.Dec):
		return nil, util.NewDiagnostic(tok, "decrement operator is not supported")
	}
	return nil, util.NewDiagnostic(tok, "expected an expression, found %s", tok.Describe())
}
