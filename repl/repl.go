// Package repl implements an interactive prompt: each line is compiled
// against the symbol table, constant pool and routine table the previous
// lines built up, then run against the same persistent root coroutine, so
// bindings and coroutines created in earlier lines stay visible.
package repl

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/coro-lang/coro/compiler"
	"github.com/coro-lang/coro/lexer"
	"github.com/coro-lang/coro/parser"
	"github.com/coro-lang/coro/value"
	"github.com/coro-lang/coro/vm"
)

const prompt = "coro> "

// Start reads lines from in and evaluates each one against out until in is
// exhausted or interrupted.
func Start(in io.Reader, out io.Writer) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: prompt,
		Stdin:  io.NopCloser(in),
		Stdout: out,
	})
	if err != nil {
		fmt.Fprintf(out, "[coro] could not start readline: %s\n", err)
		return
	}
	defer rl.Close()

	symbolTable := compiler.NewSymbolTable()
	constants := []value.Value{}
	var routines []*compiler.RoutineDefinition
	var routineIndex map[string]int
	var machine *vm.VM

	for {
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return
		}
		if err != nil {
			fmt.Fprintf(out, "[coro] %s\n", err)
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		l := lexer.New(line)
		p := parser.New(l)
		program := p.ParseProgram()
		if len(p.Errors()) != 0 {
			printParserErrors(out, p.Errors())
			continue
		}

		comp := compiler.NewWithState(symbolTable, constants, routines, routineIndex)
		if err := comp.Compile(program); err != nil {
			fmt.Fprintf(out, "[coro] compile error: %s\n", err)
			continue
		}

		bc := comp.Bytecode()
		constants = bc.Constants
		routines, routineIndex = comp.Routines()

		if machine == nil {
			machine = vm.New(bc)
			machine.SetOutput(out)
			err = machine.Run()
		} else {
			err = machine.RunLine(bc)
		}
		if err != nil {
			fmt.Fprintf(out, "[coro] runtime error: %s\n", err)
			continue
		}
	}
}

func printParserErrors(out io.Writer, errors []string) {
	fmt.Fprintln(out, "parse errors:")
	for _, msg := range errors {
		fmt.Fprintf(out, "\t%s\n", msg)
	}
}
