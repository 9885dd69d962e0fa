package ast

import (
	"testing"

	"github.com/coro-lang/coro/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	program := &Program{
		Statements: []Statement{
			// let x = y
			&LetStatement{
				Token: token.Token{Type: token.LET, Literal: "let"},
				Name: &Identifier{
					Token: token.Token{Type: token.IDENT, Literal: "x"},
					Value: "x",
				},
				Value: &Identifier{
					Token: token.Token{Type: token.IDENT, Literal: "y"},
					Value: "y",
				},
			},
			// print x
			&ExpressionStatement{
				Token: token.Token{Type: token.PRINT, Literal: "print"},
				Expression: &PrintExpression{
					Token: token.Token{Type: token.PRINT, Literal: "print"},
					Value: &Identifier{
						Token: token.Token{Type: token.IDENT, Literal: "x"},
						Value: "x",
					},
				},
			},
		},
	}

	letStmt, ok := program.Statements[0].(*LetStatement)
	require.True(t, ok, "program.Statements[0] not LetStatement, got %T", program.Statements[0])
	assert.Equal(t, "let x = y", letStmt.String())

	exprStmt, ok := program.Statements[1].(*ExpressionStatement)
	require.True(t, ok, "program.Statements[1] not ExpressionStatement, got %T", program.Statements[1])
	assert.Equal(t, "print x", exprStmt.String())

	assert.Equal(t, "let x = y\nprint x\n", program.String())
}

func TestDefStatementString(t *testing.T) {
	def := &DefStatement{
		Token: token.Token{Type: token.DEF, Literal: "def"},
		Name:  &Identifier{Value: "add"},
		Parameters: []*Identifier{
			{Value: "a"},
			{Value: "b"},
		},
		Body: &InfixExpression{
			Left:     &Identifier{Value: "a"},
			Operator: "+",
			Right:    &Identifier{Value: "b"},
		},
	}

	assert.Equal(t, "def add a b = (a + b)", def.String())
}
