// Package parser turns a token stream into a Coro AST.
//
// The grammar has a fixed, small precedence hierarchy (relational, additive,
// multiplicative, unary, atom) with exactly one non-associative level, so
// parsing is written as explicit recursive-descent functions per level
// rather than a generic Pratt precedence table: a table buys nothing when
// there are only four levels, and it actively gets in the way of rejecting
// chained relational operators.
package parser

import (
	"fmt"
	"strconv"

	"github.com/coro-lang/coro/ast"
	"github.com/coro-lang/coro/lexer"
	"github.com/coro-lang/coro/token"
)

// Parser consumes tokens from a Lexer one at a time, keeping the current
// and next token so that parsing decisions can look one token ahead.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []string
}

// New creates a Parser over l, priming curToken/peekToken.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l, errors: []string{}}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns every parse error accumulated so far.
func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.TokenType) {
	msg := fmt.Sprintf("expected next token to be %s, got %s (%q) instead",
		t, p.peekToken.Type, p.peekToken.Literal)
	p.errors = append(p.errors, msg)
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

// ParseProgram parses the whole token stream as program := bind*.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(token.EOF) {
		stmt := p.parseBind()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}

	return program
}

// parseBind parses bind := def | let | cmd.
func (p *Parser) parseBind() ast.Statement {
	switch p.curToken.Type {
	case token.DEF:
		return p.parseDefStatement()
	case token.LET:
		return p.parseLetStatement()
	default:
		return p.parseExpressionStatement()
	}
}

// parseDefStatement parses `def NAME PARAM* = CMD`.
func (p *Parser) parseDefStatement() ast.Statement {
	stmt := &ast.DefStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	stmt.Parameters = []*ast.Identifier{}
	for p.peekTokenIs(token.IDENT) {
		p.nextToken()
		stmt.Parameters = append(stmt.Parameters, &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal})
	}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()

	stmt.Body = p.parseCmd()
	return stmt
}

// parseLetStatement parses `let NAME = CMD`.
func (p *Parser) parseLetStatement() ast.Statement {
	stmt := &ast.LetStatement{Token: p.curToken}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	stmt.Name = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()

	stmt.Value = p.parseCmd()
	return stmt
}

// parseExpressionStatement wraps a bare cmd used as a binding.
func (p *Parser) parseExpressionStatement() ast.Statement {
	stmt := &ast.ExpressionStatement{Token: p.curToken}
	stmt.Expression = p.parseCmd()
	return stmt
}

// parseCmd parses cmd := print expr | create ident | resume expr expr* |
// yield expr | while expr do expr end | if expr then expr else expr end |
// expr.
func (p *Parser) parseCmd() ast.Expression {
	switch p.curToken.Type {
	case token.PRINT:
		return p.parsePrintExpression()
	case token.CREATE:
		return p.parseCreateExpression()
	case token.RESUME:
		return p.parseResumeExpression()
	case token.YIELD:
		return p.parseYieldExpression()
	case token.WHILE:
		return p.parseWhileExpression()
	case token.IF:
		return p.parseIfExpression()
	default:
		return p.parseRelational()
	}
}

func (p *Parser) parsePrintExpression() ast.Expression {
	expr := &ast.PrintExpression{Token: p.curToken}
	p.nextToken()
	expr.Value = p.parseRelational()
	return expr
}

func (p *Parser) parseCreateExpression() ast.Expression {
	expr := &ast.CreateExpression{Token: p.curToken}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	expr.Routine = &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	return expr
}

// parseResumeExpression parses `resume E A*`. Arguments are parsed at unary
// precedence (the tightest-binding operator level) so the argument list ends at the
// first token that cannot start another unary expression, without needing a
// comma or other separator.
func (p *Parser) parseResumeExpression() ast.Expression {
	expr := &ast.ResumeExpression{Token: p.curToken}
	p.nextToken()
	expr.Callee = p.parseUnary()

	expr.Arguments = []ast.Expression{}
	for canStartUnary(p.peekToken.Type) {
		p.nextToken()
		expr.Arguments = append(expr.Arguments, p.parseUnary())
	}
	return expr
}

func (p *Parser) parseYieldExpression() ast.Expression {
	expr := &ast.YieldExpression{Token: p.curToken}
	p.nextToken()
	expr.Value = p.parseRelational()
	return expr
}

func (p *Parser) parseWhileExpression() ast.Expression {
	expr := &ast.WhileExpression{Token: p.curToken}
	p.nextToken()
	expr.Condition = p.parseRelational()

	if !p.expectPeek(token.DO) {
		return nil
	}
	p.nextToken()
	expr.Body = p.parseRelational()

	if !p.expectPeek(token.END) {
		return nil
	}
	return expr
}

func (p *Parser) parseIfExpression() ast.Expression {
	expr := &ast.IfExpression{Token: p.curToken}
	p.nextToken()
	expr.Condition = p.parseRelational()

	if !p.expectPeek(token.THEN) {
		return nil
	}
	p.nextToken()
	expr.Consequence = p.parseRelational()

	if !p.expectPeek(token.ELSE) {
		return nil
	}
	p.nextToken()
	expr.Alternative = p.parseRelational()

	if !p.expectPeek(token.END) {
		return nil
	}
	return expr
}

// parseRelational parses the relational level: additive ((== | <) additive)?
// Relational operators are explicitly non-associative — `a < b < c` is a
// compile-time parse error, not a left- or right-associative chain.
func (p *Parser) parseRelational() ast.Expression {
	left := p.parseAdditive()

	if !p.peekTokenIs(token.EQ) && !p.peekTokenIs(token.LT) {
		return left
	}

	p.nextToken()
	operator := p.curToken.Literal
	tok := p.curToken
	p.nextToken()
	right := p.parseAdditive()

	expr := &ast.InfixExpression{Token: tok, Left: left, Operator: operator, Right: right}

	if p.peekTokenIs(token.EQ) || p.peekTokenIs(token.LT) {
		p.errorf("relational operators are non-associative: cannot chain %q after %q", p.peekToken.Literal, operator)
	}

	return expr
}

// parseAdditive parses the left-associative additive level: multiplicative
// ((+ | -) multiplicative)*
func (p *Parser) parseAdditive() ast.Expression {
	left := p.parseMultiplicative()

	for p.peekTokenIs(token.PLUS) || p.peekTokenIs(token.MINUS) {
		p.nextToken()
		tok := p.curToken
		operator := p.curToken.Literal
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.InfixExpression{Token: tok, Left: left, Operator: operator, Right: right}
	}

	return left
}

// parseMultiplicative parses the left-associative multiplicative level:
// unary ((* | /) unary)*
func (p *Parser) parseMultiplicative() ast.Expression {
	left := p.parseUnary()

	for p.peekTokenIs(token.ASTERISK) || p.peekTokenIs(token.SLASH) {
		p.nextToken()
		tok := p.curToken
		operator := p.curToken.Literal
		p.nextToken()
		right := p.parseUnary()
		left = &ast.InfixExpression{Token: tok, Left: left, Operator: operator, Right: right}
	}

	return left
}

// parseUnary parses the right-associative unary level: (not | -)* atom
func (p *Parser) parseUnary() ast.Expression {
	if p.curTokenIs(token.NOT) || p.curTokenIs(token.MINUS) {
		tok := p.curToken
		operator := p.curToken.Literal
		p.nextToken()
		right := p.parseUnary()
		return &ast.PrefixExpression{Token: tok, Operator: operator, Right: right}
	}
	return p.parseAtom()
}

// parseAtom parses atom := block | group | bool | num | str | ident | unit.
func (p *Parser) parseAtom() ast.Expression {
	switch p.curToken.Type {
	case token.IDENT:
		return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
	case token.NUMBER:
		return p.parseNumberLiteral()
	case token.STRING:
		return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	case token.TRUE:
		return &ast.BooleanLiteral{Token: p.curToken, Value: true}
	case token.FALSE:
		return &ast.BooleanLiteral{Token: p.curToken, Value: false}
	case token.UNIT:
		return &ast.UnitLiteral{Token: p.curToken}
	case token.LBRACE:
		return p.parseBlockExpression()
	case token.LPAREN:
		return p.parseGroupExpression()
	default:
		p.errorf("unexpected token in expression: %s (%q)", p.curToken.Type, p.curToken.Literal)
		return nil
	}
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	lit := &ast.NumberLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf("could not parse %q as a number", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

// parseGroupExpression parses group := '(' cmd ')', so a parenthesized
// print/create/resume/yield/while/if can be used anywhere an atom can.
func (p *Parser) parseGroupExpression() ast.Expression {
	p.nextToken()
	expr := p.parseCmd()
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return expr
}

// parseBlockExpression parses block := '{' bind (';' bind)* ';'? '}'.
func (p *Parser) parseBlockExpression() ast.Expression {
	block := &ast.BlockExpression{Token: p.curToken, Statements: []ast.Statement{}}

	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		stmt := p.parseBind()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		}
		if p.peekTokenIs(token.SEMICOLON) {
			p.nextToken()
		}
		p.nextToken()
	}

	if !p.curTokenIs(token.RBRACE) {
		p.errorf("unterminated block: expected %s, got %s", token.RBRACE, token.EOF)
	}

	return block
}

// canStartUnary reports whether t can be the first token of a unary
// expression, used to decide whether `resume`'s argument list continues.
func canStartUnary(t token.TokenType) bool {
	switch t {
	case token.NOT, token.MINUS,
		token.IDENT, token.NUMBER, token.STRING, token.TRUE, token.FALSE, token.UNIT,
		token.LBRACE, token.LPAREN:
		return true
	default:
		return false
	}
}
