package parser

import (
	"testing"

	"github.com/coro-lang/coro/ast"
	"github.com/coro-lang/coro/lexer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	l := lexer.New(input)
	p := New(l)
	program := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())
	return program
}

func TestLetStatement(t *testing.T) {
	program := parseProgram(t, `let x = 5;`)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.LetStatement)
	require.True(t, ok, "statement is %T, want *ast.LetStatement", program.Statements[0])
	assert.Equal(t, "x", stmt.Name.Value)

	num, ok := stmt.Value.(*ast.NumberLiteral)
	require.True(t, ok)
	assert.Equal(t, 5.0, num.Value)
}

func TestDefStatement(t *testing.T) {
	program := parseProgram(t, `def add a b = (a + b)`)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.DefStatement)
	require.True(t, ok, "statement is %T, want *ast.DefStatement", program.Statements[0])
	assert.Equal(t, "add", stmt.Name.Value)
	require.Len(t, stmt.Parameters, 2)
	assert.Equal(t, "a", stmt.Parameters[0].Value)
	assert.Equal(t, "b", stmt.Parameters[1].Value)

	infix, ok := stmt.Body.(*ast.InfixExpression)
	require.True(t, ok)
	assert.Equal(t, "+", infix.Operator)
}

func TestAdditiveIsLeftAssociative(t *testing.T) {
	program := parseProgram(t, `1 - 2 - 3;`)
	require.Len(t, program.Statements, 1)
	assert.Equal(t, "((1 - 2) - 3)", program.Statements[0].String())
}

func TestMultiplicativeBindsTighterThanAdditive(t *testing.T) {
	program := parseProgram(t, `1 + 2 * 3;`)
	require.Len(t, program.Statements, 1)
	assert.Equal(t, "(1 + (2 * 3))", program.Statements[0].String())
}

func TestUnaryIsRightAssociative(t *testing.T) {
	program := parseProgram(t, `not not true;`)
	require.Len(t, program.Statements, 1)
	assert.Equal(t, "(not (not true))", program.Statements[0].String())
}

func TestRelationalExpression(t *testing.T) {
	program := parseProgram(t, `1 < 2;`)
	require.Len(t, program.Statements, 1)
	assert.Equal(t, "(1 < 2)", program.Statements[0].String())
}

func TestChainedRelationalIsAParseError(t *testing.T) {
	l := lexer.New(`1 < 2 < 3;`)
	p := New(l)
	p.ParseProgram()
	assert.NotEmpty(t, p.Errors(), "expected chained relational operators to be a parse error")
}

func TestIfExpression(t *testing.T) {
	program := parseProgram(t, `if x then 1 else 2 end;`)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	ifExpr, ok := stmt.Expression.(*ast.IfExpression)
	require.True(t, ok)
	assert.Equal(t, "if x then 1 else 2 end", ifExpr.String())
}

func TestWhileExpression(t *testing.T) {
	program := parseProgram(t, `while x do (yield x) end;`)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	whileExpr, ok := stmt.Expression.(*ast.WhileExpression)
	require.True(t, ok)
	assert.Equal(t, "while x do yield x end", whileExpr.String())
}

func TestResumeWithArguments(t *testing.T) {
	program := parseProgram(t, `resume producer 1 2;`)
	require.Len(t, program.Statements, 1)

	stmt, ok := program.Statements[0].(*ast.ExpressionStatement)
	require.True(t, ok)
	resume, ok := stmt.Expression.(*ast.ResumeExpression)
	require.True(t, ok)
	assert.Equal(t, "resume producer 1 2", resume.String())
	require.Len(t, resume.Arguments, 2)
}

func TestResumeWithoutArguments(t *testing.T) {
	program := parseProgram(t, `resume producer;`)
	stmt := program.Statements[0].(*ast.ExpressionStatement)
	resume := stmt.Expression.(*ast.ResumeExpression)
	assert.Equal(t, "resume producer", resume.String())
	assert.Empty(t, resume.Arguments)
}

func TestCreateExpression(t *testing.T) {
	program := parseProgram(t, `let c = create producer;`)
	stmt := program.Statements[0].(*ast.LetStatement)
	create := stmt.Value.(*ast.CreateExpression)
	assert.Equal(t, "producer", create.Routine.Value)
}

func TestBlockExpression(t *testing.T) {
	program := parseProgram(t, `let x = { let y = 1; y };`)
	stmt := program.Statements[0].(*ast.LetStatement)
	block := stmt.Value.(*ast.BlockExpression)
	require.Len(t, block.Statements, 2)
}

func TestGroupedCommandAsAtom(t *testing.T) {
	program := parseProgram(t, `let x = 1 + (resume producer);`)
	stmt := program.Statements[0].(*ast.LetStatement)
	infix := stmt.Value.(*ast.InfixExpression)
	_, ok := infix.Right.(*ast.ResumeExpression)
	assert.True(t, ok, "right operand should be a grouped resume expression")
}
