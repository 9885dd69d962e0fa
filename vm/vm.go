// Package vm implements Coro's interpreter: a fetch-decode-execute loop
// over the bytecode the compiler produces, delegating CREATE, RESUME and
// YIELD to a coro.Scheduler so that coroutine transfer stays a single
// "current" pointer swap rather than a second goroutine or call stack.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/coro-lang/coro/code"
	"github.com/coro-lang/coro/compiler"
	"github.com/coro-lang/coro/coro"
	"github.com/coro-lang/coro/value"
	"github.com/sirupsen/logrus"
)

// RuntimeError is any failure raised while running compiled bytecode: a
// type error from an arithmetic/comparison opcode, an arity mismatch on
// resume, a resume of a non-suspended coroutine, or a yield outside of any
// coroutine. Reported to the CLI as "[coro] runtime error: <msg>" and
// distinguishable from a compile-time compiler.Error via errors.As.
type RuntimeError struct {
	Msg string
	// Err is the underlying opcode failure, reachable through errors.As.
	Err error
}

func (e *RuntimeError) Error() string { return e.Msg }

func (e *RuntimeError) Unwrap() error { return e.Err }

func runtimeError(err error) *RuntimeError {
	if err == nil {
		return nil
	}
	if re, ok := err.(*RuntimeError); ok {
		return re
	}
	return &RuntimeError{Msg: err.Error(), Err: err}
}

// VM executes the bytecode produced by compiler.Compile.
type VM struct {
	constants []value.Value
	routines  []*compiler.RoutineDefinition

	scheduler *coro.Scheduler

	out io.Writer
	log *logrus.Logger

	traceInstr bool
	traceStack bool
}

// New creates a VM ready to run bc, with the root coroutine holding the
// program's top-level instructions.
func New(bc *compiler.Bytecode) *VM {
	return &VM{
		constants: bc.Constants,
		routines:  bc.Routines,
		scheduler: coro.NewScheduler(bc.Instructions, bc.RootNumLocals),
		out:       os.Stdout,
		log:       logrus.StandardLogger(),
	}
}

// SetOutput redirects where PRINT writes, used by tests to capture output.
func (vm *VM) SetOutput(w io.Writer) { vm.out = w }

// SetLogger overrides the logger used for --dbg traces.
func (vm *VM) SetLogger(log *logrus.Logger) {
	vm.log = log
	vm.scheduler.SetLogger(log)
}

// SetTrace turns on --instr/--stack style tracing: one debug line per
// executed instruction, and per post-instruction stack dump.
func (vm *VM) SetTrace(instr, stack bool) {
	vm.traceInstr = instr
	vm.traceStack = stack
}

// Scheduler exposes the VM's coroutine scheduler.
func (vm *VM) Scheduler() *coro.Scheduler { return vm.scheduler }

// RunLine rearms the root coroutine with bc and runs it to completion,
// reusing every coroutine and value slot earlier lines already set up.
// The compiler.Bytecode passed in must come from a compiler.Compiler built
// with NewWithState against the same symbol table, constants and routine
// table this VM was last run with.
func (vm *VM) RunLine(bc *compiler.Bytecode) error {
	vm.constants = bc.Constants
	vm.routines = bc.Routines
	vm.scheduler.ResetRoot(bc.Instructions, bc.RootNumLocals)
	return vm.Run()
}

// LastPopped returns the value currently on top of the root coroutine's
// stack, or Unit when that stack is empty. Values already popped are not
// recorded, so after a run whose statements were all popped it returns Unit.
func (vm *VM) LastPopped() value.Value {
	root := vm.scheduler.Root()
	if len(root.Stack) == 0 {
		return value.Unit
	}
	return root.Stack[len(root.Stack)-1]
}

// Run executes bytecode until the root coroutine finishes or an opcode
// raises a RuntimeError.
func (vm *VM) Run() error {
	for {
		ctx := vm.scheduler.Current()
		if ctx == nil {
			return nil
		}

		if ctx.IP >= len(ctx.Instructions) {
			vm.scheduler.Finish(popOrUnit(ctx))
			continue
		}

		if err := vm.step(ctx); err != nil {
			vm.scheduler.Fail(err)
			return runtimeError(err)
		}
	}
}

func popOrUnit(ctx *coro.Context) value.Value {
	if len(ctx.Stack) == 0 {
		return value.Unit
	}
	return ctx.Pop()
}

// step fetches, decodes and executes the single instruction at ctx's
// current instruction pointer.
func (vm *VM) step(ctx *coro.Context) error {
	frame := NewFrame(ctx)
	ip := frame.IP()
	ins := frame.Instructions()
	op := code.Opcode(ins[ip])

	if vm.traceInstr {
		def, _ := code.Lookup(byte(op))
		name := "?"
		if def != nil {
			name = def.Name
		}
		vm.log.WithFields(logrus.Fields{"coroutine": ctx.ID, "ip": ip, "op": name}).Debug("instr")
	}

	switch op {
	case code.PushConst:
		idx := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(ip + 3)
		ctx.Push(vm.constants[idx])

	case code.Load:
		slot := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(ip + 3)
		ctx.Push(ctx.Locals[slot])

	case code.Bind:
		slot := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(ip + 3)
		ctx.Locals[slot] = ctx.Pop()

	case code.Pop:
		frame.SetIP(ip + 1)
		ctx.Pop()

	case code.EnterScope:
		frame.SetIP(ip + 1)

	case code.LeaveScope:
		frame.SetIP(ip + 1)

	case code.Add, code.Sub, code.Mul, code.Div:
		frame.SetIP(ip + 1)
		right := ctx.Pop()
		left := ctx.Pop()
		result, err := applyArithmetic(op, left, right)
		if err != nil {
			return err
		}
		ctx.Push(result)

	case code.Eq:
		frame.SetIP(ip + 1)
		right := ctx.Pop()
		left := ctx.Pop()
		ctx.Push(value.Bool(left.Equal(right)))

	case code.Lt:
		frame.SetIP(ip + 1)
		right := ctx.Pop()
		left := ctx.Pop()
		less, err := left.Less(right)
		if err != nil {
			return err
		}
		ctx.Push(value.Bool(less))

	case code.Not:
		frame.SetIP(ip + 1)
		v, err := ctx.Pop().Not()
		if err != nil {
			return err
		}
		ctx.Push(v)

	case code.Neg:
		frame.SetIP(ip + 1)
		v, err := ctx.Pop().Neg()
		if err != nil {
			return err
		}
		ctx.Push(v)

	case code.Jmp:
		target := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(target)

	case code.JmpIfFalse:
		target := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(ip + 3)
		if !ctx.Pop().Truthy() {
			frame.SetIP(target)
		}

	case code.Print:
		frame.SetIP(ip + 1)
		fmt.Fprintln(vm.out, ctx.Pop().String())

	case code.Create:
		idx := int(code.ReadUint16(ins[ip+1:]))
		frame.SetIP(ip + 3)
		routine := vm.routines[idx]
		child := vm.scheduler.Spawn(routine.Name, routine.Instructions, routine.NumLocals, len(routine.Params))
		ctx.Push(child.Handle())

	case code.Resume:
		argc := int(ins[ip+1])
		frame.SetIP(ip + 2)
		args := make([]value.Value, argc)
		for i := argc - 1; i >= 0; i-- {
			args[i] = ctx.Pop()
		}
		calleeVal := ctx.Pop()
		if calleeVal.Kind != value.CoroKind {
			return &coro.NotACoroutineError{Kind: calleeVal.Kind}
		}
		target, ok := vm.scheduler.Lookup(calleeVal.C)
		if !ok {
			return fmt.Errorf("resume: no such coroutine")
		}
		if err := vm.scheduler.Resume(target, args); err != nil {
			return err
		}

	case code.Yield:
		frame.SetIP(ip + 1)
		v := ctx.Pop()
		if err := vm.scheduler.Yield(v); err != nil {
			return err
		}

	case code.Halt:
		ctx.IP = len(ins)
		vm.scheduler.Finish(popOrUnit(ctx))

	default:
		return fmt.Errorf("unknown opcode: %d", op)
	}

	if vm.traceStack {
		vm.log.WithFields(logrus.Fields{"coroutine": ctx.ID, "stack": formatStack(ctx)}).Debug("stack")
	}

	return nil
}

func applyArithmetic(op code.Opcode, left, right value.Value) (value.Value, error) {
	switch op {
	case code.Add:
		return left.Add(right)
	case code.Sub:
		return left.Sub(right)
	case code.Mul:
		return left.Mul(right)
	case code.Div:
		return left.Div(right)
	default:
		return value.Value{}, fmt.Errorf("not an arithmetic opcode: %v", op)
	}
}

func formatStack(ctx *coro.Context) []string {
	out := make([]string, len(ctx.Stack))
	for i, v := range ctx.Stack {
		out[i] = v.String()
	}
	return out
}
