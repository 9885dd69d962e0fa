package compiler

import (
	"testing"

	"github.com/coro-lang/coro/code"
	"github.com/coro-lang/coro/lexer"
	"github.com/coro-lang/coro/parser"
	"github.com/coro-lang/coro/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, input string) *Bytecode {
	t.Helper()

	l := lexer.New(input)
	p := parser.New(l)
	program := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())

	c := New()
	err := c.Compile(program)
	require.NoError(t, err)

	return c.Bytecode()
}

func compileSourceExpectError(t *testing.T, input string) error {
	t.Helper()

	l := lexer.New(input)
	p := parser.New(l)
	program := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())

	c := New()
	return c.Compile(program)
}

func concatInstructions(instructions ...code.Instructions) code.Instructions {
	out := code.Instructions{}
	for _, ins := range instructions {
		out = append(out, ins...)
	}
	return out
}

func TestArithmeticCompiles(t *testing.T) {
	bc := compileSource(t, "1 + 2;")

	want := concatInstructions(
		code.Make(code.PushConst, 0),
		code.Make(code.PushConst, 1),
		code.Make(code.Add),
		code.Make(code.Pop),
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
	assert.Equal(t, []value.Value{value.Num(1), value.Num(2)}, bc.Constants)
}

func TestLetBindsToAllocatedSlot(t *testing.T) {
	bc := compileSource(t, "let x = 5;")

	want := concatInstructions(
		code.Make(code.PushConst, 0),
		code.Make(code.Bind, 0),
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
}

func TestLetRedefinitionReusesSlot(t *testing.T) {
	bc := compileSource(t, "let x = 1; let x = 2;")

	want := concatInstructions(
		code.Make(code.PushConst, 0),
		code.Make(code.Bind, 0),
		code.Make(code.PushConst, 1),
		code.Make(code.Bind, 0),
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
}

func TestUndefinedNameIsACompileError(t *testing.T) {
	err := compileSourceExpectError(t, "print missing;")
	require.Error(t, err)
	var compileErr *Error
	assert.ErrorAs(t, err, &compileErr)
}

func TestUnknownRoutineInCreateIsACompileError(t *testing.T) {
	err := compileSourceExpectError(t, "let c = create missing;")
	require.Error(t, err)
	var compileErr *Error
	assert.ErrorAs(t, err, &compileErr)
}

func TestDefRegistersARoutine(t *testing.T) {
	bc := compileSource(t, `
		def counter n = yield n;
		let c = create counter;
	`)

	require.Len(t, bc.Routines, 1)
	assert.Equal(t, "counter", bc.Routines[0].Name)
	assert.Equal(t, []string{"n"}, bc.Routines[0].Params)
	assert.Equal(t, 1, bc.Routines[0].NumLocals)
}

func TestRoutinesCanForwardReferenceEachOther(t *testing.T) {
	bc := compileSource(t, `
		def a x = resume (create b) x;
		def b x = yield x;
	`)
	require.Len(t, bc.Routines, 2)
	assert.Equal(t, "a", bc.Routines[0].Name)
	assert.Equal(t, "b", bc.Routines[1].Name)
}

func TestIfCompilesBothBranches(t *testing.T) {
	bc := compileSource(t, "if true then 1 else 2 end;")

	want := concatInstructions(
		code.Make(code.PushConst, 0), // true
		code.Make(code.JmpIfFalse, 12),
		code.Make(code.PushConst, 1), // 1
		code.Make(code.Jmp, 15),
		code.Make(code.PushConst, 2), // 2
		code.Make(code.Pop),
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
}

func TestWhileLowersToAJumpBackAndLeavesUnit(t *testing.T) {
	bc := compileSource(t, "while true do 1 end;")

	want := concatInstructions(
		code.Make(code.PushConst, 0), // true
		code.Make(code.JmpIfFalse, 13),
		code.Make(code.PushConst, 1), // 1
		code.Make(code.Pop),
		code.Make(code.Jmp, 0),
		code.Make(code.PushConst, 2), // unit
		code.Make(code.Pop),
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
}

func TestBlockValueIsItsLastBinding(t *testing.T) {
	bc := compileSource(t, "let x = { let y = 1; y };")

	want := concatInstructions(
		code.Make(code.EnterScope),
		code.Make(code.PushConst, 0),
		code.Make(code.Bind, 0), // y takes slot 0 inside the block
		code.Make(code.Load, 0),
		code.Make(code.LeaveScope),
		code.Make(code.Bind, 1), // x takes slot 1: the counter is shared so it never reuses y's slot
		code.Make(code.Halt),
	)
	assert.Equal(t, want, bc.Instructions)
}

func TestDefOutsideTopLevelIsACompileError(t *testing.T) {
	err := compileSourceExpectError(t, "let x = { def a = 1; 1 };")
	require.Error(t, err)
}

func TestResumeCompilesCalleeThenArguments(t *testing.T) {
	bc := compileSource(t, `
		def gen n = yield n;
		let c = create gen;
		resume c 1;
	`)

	// the last three instructions before the statement's POP and the final
	// HALT are LOAD c, PUSH_CONST 1, RESUME 1
	ins := bc.Instructions
	n := len(ins)
	tailLen := len(code.Make(code.Pop)) + len(code.Make(code.Halt))
	resumeLen := len(code.Make(code.Resume, 1))
	assert.Equal(t, code.Make(code.Resume, 1), ins[n-tailLen-resumeLen:n-tailLen])
}
