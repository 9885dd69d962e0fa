// Package compiler lowers a Coro AST into bytecode: a flat instruction
// stream per routine body plus a shared constant pool.
package compiler

import (
	"fmt"

	"github.com/coro-lang/coro/ast"
	"github.com/coro-lang/coro/code"
	"github.com/coro-lang/coro/value"
	"github.com/sirupsen/logrus"
)

// Error is a compile-time failure: an unknown name, an unknown routine in
// `create`, a duplicate routine definition, a `def` outside the top level,
// or an unknown operator. Reported to the CLI
// as "[coro] compile error: <msg>" and to callers via errors.As.
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func newError(format string, args ...interface{}) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// EmittedInstruction records the opcode and position of the most recently
// emitted instruction in a scope, used when backpatching jump targets.
type EmittedInstruction struct {
	Opcode   code.Opcode
	Position int
}

// CompilationScope is one instruction buffer. The root program body and
// each routine body get their own scope so their bytecode never mixes;
// nested `{ ... }` blocks stay in the same scope and only push a new
// SymbolTable (except a `while` body, see compileWhile) plus an
// ENTER_SCOPE/LEAVE_SCOPE pair.
type CompilationScope struct {
	instructions        code.Instructions
	lastInstruction     EmittedInstruction
	previousInstruction EmittedInstruction
}

// RoutineDefinition is a compiled `def` entry: its parameter names, its
// body's instructions, and how many frame slots its body needs in total
// (parameters plus every `let` in every nested block).
type RoutineDefinition struct {
	Name         string
	Params       []string
	Instructions code.Instructions
	NumLocals    int
}

// Bytecode is the Compiler's output: the root program's instructions, the
// constant pool every PUSH_CONST indexes into, and the routine table every
// CREATE indexes into.
type Bytecode struct {
	Instructions  code.Instructions
	Constants     []value.Value
	Routines      []*RoutineDefinition
	RootNumLocals int
}

// Compiler walks a Program and produces Bytecode.
type Compiler struct {
	constants []value.Value

	symbolTable *SymbolTable

	scopes     []CompilationScope
	scopeIndex int

	routines     []*RoutineDefinition
	routineIndex map[string]int

	log *logrus.Logger
}

// New creates a Compiler with an empty constant pool, symbol table and
// routine table.
func New() *Compiler {
	return NewWithState(NewSymbolTable(), []value.Value{}, nil, nil)
}

// NewWithState creates a Compiler that continues from previously compiled
// state: the REPL calls this so that names, constants and routines defined
// on one line are visible on the next.
func NewWithState(symbolTable *SymbolTable, constants []value.Value, routines []*RoutineDefinition, routineIndex map[string]int) *Compiler {
	if routines == nil {
		routines = []*RoutineDefinition{}
	}
	if routineIndex == nil {
		routineIndex = map[string]int{}
	}

	mainScope := CompilationScope{instructions: code.Instructions{}}

	return &Compiler{
		constants:    constants,
		symbolTable:  symbolTable,
		scopes:       []CompilationScope{mainScope},
		scopeIndex:   0,
		routines:     routines,
		routineIndex: routineIndex,
		log:          logrus.StandardLogger(),
	}
}

// SetLogger overrides the logger used for --dbg routine-lowering traces.
func (c *Compiler) SetLogger(log *logrus.Logger) { c.log = log }

// SymbolTable exposes the compiler's current symbol table so a REPL can
// carry it to the next line's Compiler.
func (c *Compiler) SymbolTable() *SymbolTable { return c.symbolTable }

// Routines exposes the routine table so a REPL can carry it forward.
func (c *Compiler) Routines() ([]*RoutineDefinition, map[string]int) {
	return c.routines, c.routineIndex
}

func (c *Compiler) currentInstructions() code.Instructions {
	return c.scopes[c.scopeIndex].instructions
}

func (c *Compiler) enterScope() {
	c.scopes = append(c.scopes, CompilationScope{instructions: code.Instructions{}})
	c.scopeIndex++
}

func (c *Compiler) leaveScope() code.Instructions {
	ins := c.currentInstructions()
	c.scopes = c.scopes[:len(c.scopes)-1]
	c.scopeIndex--
	return ins
}

func (c *Compiler) addConstant(v value.Value) int {
	c.constants = append(c.constants, v)
	return len(c.constants) - 1
}

func (c *Compiler) emit(op code.Opcode, operands ...int) int {
	ins := code.Make(op, operands...)
	pos := c.addInstruction(ins)

	scope := &c.scopes[c.scopeIndex]
	scope.previousInstruction = scope.lastInstruction
	scope.lastInstruction = EmittedInstruction{Opcode: op, Position: pos}

	return pos
}

func (c *Compiler) addInstruction(ins []byte) int {
	posNewInstruction := len(c.currentInstructions())
	updated := append(c.currentInstructions(), ins...)
	c.scopes[c.scopeIndex].instructions = updated
	return posNewInstruction
}

func (c *Compiler) replaceInstruction(pos int, newInstruction []byte) {
	ins := c.currentInstructions()
	for i := 0; i < len(newInstruction); i++ {
		ins[pos+i] = newInstruction[i]
	}
}

func (c *Compiler) changeOperand(opPos int, operand int) {
	op := code.Opcode(c.currentInstructions()[opPos])
	newInstruction := code.Make(op, operand)
	c.replaceInstruction(opPos, newInstruction)
}

// Compile dispatches on the concrete AST node type, emitting instructions
// into the current scope.
func (c *Compiler) Compile(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		return c.compileProgram(node)

	case *ast.LetStatement:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		symbol := c.symbolTable.Define(node.Name.Value)
		c.emit(code.Bind, symbol.Index)

	case *ast.ExpressionStatement:
		return c.Compile(node.Expression)

	case *ast.DefStatement:
		return newError("def is only allowed at the top level of a program")

	case *ast.Identifier:
		symbol, ok := c.symbolTable.Resolve(node.Value)
		if !ok {
			return newError("undefined name: %s", node.Value)
		}
		c.emit(code.Load, symbol.Index)

	case *ast.NumberLiteral:
		c.emit(code.PushConst, c.addConstant(value.Num(node.Value)))

	case *ast.StringLiteral:
		c.emit(code.PushConst, c.addConstant(value.Str(node.Value)))

	case *ast.BooleanLiteral:
		c.emit(code.PushConst, c.addConstant(value.Bool(node.Value)))

	case *ast.UnitLiteral:
		c.emit(code.PushConst, c.addConstant(value.Unit))

	case *ast.PrefixExpression:
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "not":
			c.emit(code.Not)
		case "-":
			c.emit(code.Neg)
		default:
			return newError("unknown prefix operator: %s", node.Operator)
		}

	case *ast.InfixExpression:
		if err := c.Compile(node.Left); err != nil {
			return err
		}
		if err := c.Compile(node.Right); err != nil {
			return err
		}
		switch node.Operator {
		case "+":
			c.emit(code.Add)
		case "-":
			c.emit(code.Sub)
		case "*":
			c.emit(code.Mul)
		case "/":
			c.emit(code.Div)
		case "==":
			c.emit(code.Eq)
		case "<":
			c.emit(code.Lt)
		default:
			return newError("unknown infix operator: %s", node.Operator)
		}

	case *ast.BlockExpression:
		return c.compileBlock(node, true)

	case *ast.PrintExpression:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.Print)
		c.emit(code.PushConst, c.addConstant(value.Unit))

	case *ast.CreateExpression:
		idx, ok := c.routineIndex[node.Routine.Value]
		if !ok {
			return newError("unknown routine in create: %s", node.Routine.Value)
		}
		c.emit(code.Create, idx)

	case *ast.ResumeExpression:
		if err := c.Compile(node.Callee); err != nil {
			return err
		}
		for _, arg := range node.Arguments {
			if err := c.Compile(arg); err != nil {
				return err
			}
		}
		c.emit(code.Resume, len(node.Arguments))

	case *ast.YieldExpression:
		if err := c.Compile(node.Value); err != nil {
			return err
		}
		c.emit(code.Yield)

	case *ast.WhileExpression:
		return c.compileWhile(node)

	case *ast.IfExpression:
		return c.compileIf(node)

	default:
		return newError("compiler: unexpected node type %T", node)
	}

	return nil
}

// compileProgram registers every top-level `def` before compiling any
// statement bodies, so routines may `create` one another regardless of
// the order they're written in, then compiles the remaining top-level
// binds in order.
func (c *Compiler) compileProgram(program *ast.Program) error {
	for _, stmt := range program.Statements {
		def, ok := stmt.(*ast.DefStatement)
		if !ok {
			continue
		}
		if _, exists := c.routineIndex[def.Name.Value]; exists {
			return newError("routine already defined: %s", def.Name.Value)
		}
		params := make([]string, len(def.Parameters))
		for i, p := range def.Parameters {
			params[i] = p.Value
		}
		idx := len(c.routines)
		c.routineIndex[def.Name.Value] = idx
		c.routines = append(c.routines, &RoutineDefinition{Name: def.Name.Value, Params: params})
		c.log.WithFields(logrus.Fields{"routine": def.Name.Value, "params": params}).Debug("registered routine")
	}

	for _, stmt := range program.Statements {
		if def, ok := stmt.(*ast.DefStatement); ok {
			if err := c.compileRoutineBody(def); err != nil {
				return err
			}
			continue
		}
		if err := c.Compile(stmt); err != nil {
			return err
		}
		if _, ok := stmt.(*ast.ExpressionStatement); ok {
			c.emit(code.Pop)
		}
	}

	c.emit(code.Halt)
	return nil
}

// compileRoutineBody compiles a `def`'s body into its own instruction
// buffer and its own, non-closing symbol table: a routine sees only its
// own parameters and locals, never the names live where it was defined,
// since every coroutine keeps an independent value/frame stack and the
// only data that crosses into it is what `resume` passes in.
func (c *Compiler) compileRoutineBody(def *ast.DefStatement) error {
	c.enterScope()

	outer := c.symbolTable
	routineTable := NewSymbolTable()
	c.symbolTable = routineTable
	for _, p := range def.Parameters {
		routineTable.Define(p.Value)
	}

	c.log.WithField("routine", def.Name.Value).Debug("lowering routine body")

	if err := c.Compile(def.Body); err != nil {
		c.symbolTable = outer
		c.leaveScope()
		return err
	}

	ins := c.leaveScope()
	numLocals := *routineTable.numDefinitions
	c.symbolTable = outer

	idx := c.routineIndex[def.Name.Value]
	c.routines[idx].Instructions = ins
	c.routines[idx].NumLocals = numLocals

	return nil
}

// compileBlock compiles `{ b1 ; b2 ; ... ; bk }`. Every binding but the
// last has its value discarded; the last binding's value becomes the
// block's value. A trailing `let` leaves nothing to discard or keep, so the
// block's value in that case is Unit; a `def` anywhere in a block is a
// compile error. With ownScope false the block's bindings are defined in
// the enclosing symbol table instead of a new nested one.
func (c *Compiler) compileBlock(block *ast.BlockExpression, ownScope bool) error {
	outer := c.symbolTable
	if ownScope {
		c.symbolTable = NewEnclosedSymbolTable(outer)
	}
	c.emit(code.EnterScope)

	for i, stmt := range block.Statements {
		last := i == len(block.Statements)-1

		if _, ok := stmt.(*ast.DefStatement); ok {
			c.symbolTable = outer
			return newError("def is only allowed at the top level of a program")
		}

		if err := c.Compile(stmt); err != nil {
			c.symbolTable = outer
			return err
		}

		_, isExpr := stmt.(*ast.ExpressionStatement)
		switch {
		case isExpr && last:
			// value stays on the stack as the block's value
		case isExpr && !last:
			c.emit(code.Pop)
		case !isExpr && last:
			c.emit(code.PushConst, c.addConstant(value.Unit))
		}
	}

	if len(block.Statements) == 0 {
		c.emit(code.PushConst, c.addConstant(value.Unit))
	}

	c.emit(code.LeaveScope)
	c.symbolTable = outer
	return nil
}

// compileWhile lowers `while C do BODY end`. Its own value is always Unit;
// each iteration's body value is discarded. A `{ ... }` body shares the
// scope the loop sits in, so `let i = i + 1` in the body updates the `i`
// the condition reads; names the body introduces stay bound after the loop.
func (c *Compiler) compileWhile(node *ast.WhileExpression) error {
	conditionPos := len(c.currentInstructions())

	if err := c.Compile(node.Condition); err != nil {
		return err
	}

	jumpNotTruthyPos := c.emit(code.JmpIfFalse, 9999)

	var err error
	if body, ok := node.Body.(*ast.BlockExpression); ok {
		err = c.compileBlock(body, false)
	} else {
		err = c.Compile(node.Body)
	}
	if err != nil {
		return err
	}
	c.emit(code.Pop)

	c.emit(code.Jmp, conditionPos)

	afterLoopPos := len(c.currentInstructions())
	c.changeOperand(jumpNotTruthyPos, afterLoopPos)

	c.emit(code.PushConst, c.addConstant(value.Unit))
	return nil
}

// compileIf lowers `if C then T else F end`. Both branches are mandatory
// per the grammar, so there is no missing-alternative case to special-case.
func (c *Compiler) compileIf(node *ast.IfExpression) error {
	if err := c.Compile(node.Condition); err != nil {
		return err
	}

	jumpNotTruthyPos := c.emit(code.JmpIfFalse, 9999)

	if err := c.Compile(node.Consequence); err != nil {
		return err
	}

	jumpPos := c.emit(code.Jmp, 9999)

	afterConsequencePos := len(c.currentInstructions())
	c.changeOperand(jumpNotTruthyPos, afterConsequencePos)

	if err := c.Compile(node.Alternative); err != nil {
		return err
	}

	afterAlternativePos := len(c.currentInstructions())
	c.changeOperand(jumpPos, afterAlternativePos)

	return nil
}

// Bytecode returns the compiled root program.
func (c *Compiler) Bytecode() *Bytecode {
	return &Bytecode{
		Instructions:  c.currentInstructions(),
		Constants:     c.constants,
		Routines:      c.routines,
		RootNumLocals: *c.symbolTable.numDefinitions,
	}
}
