// Command coro runs a Coro source file, or drops into an interactive
// prompt when given none.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/coro-lang/coro/compiler"
	"github.com/coro-lang/coro/lexer"
	"github.com/coro-lang/coro/parser"
	"github.com/coro-lang/coro/repl"
	"github.com/coro-lang/coro/vm"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "coro",
		Usage:     "run a Coro program",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ast", Usage: "print the parsed program to stderr before running"},
			&cli.BoolFlag{Name: "dbg", Usage: "log compiler and scheduler debug events to stderr"},
			&cli.BoolFlag{Name: "instr", Usage: "trace every executed instruction to stderr"},
			&cli.BoolFlag{Name: "stack", Usage: "trace each coroutine's value stack to stderr"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[coro] %s\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		repl.Start(os.Stdin, os.Stdout)
		return nil
	}

	path := c.Args().First()
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[coro] %s\n", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if c.Bool("dbg") || c.Bool("instr") || c.Bool("stack") {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	l := lexer.New(string(src))
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		for _, msg := range p.Errors() {
			fmt.Fprintf(os.Stderr, "[coro] compile error: %s\n", msg)
		}
		os.Exit(1)
	}

	if c.Bool("ast") {
		fmt.Fprintln(os.Stderr, program.String())
	}

	comp := compiler.New()
	comp.SetLogger(log)
	if err := comp.Compile(program); err != nil {
		var compileErr *compiler.Error
		if errors.As(err, &compileErr) {
			fmt.Fprintf(os.Stderr, "[coro] compile error: %s\n", compileErr.Msg)
		} else {
			fmt.Fprintf(os.Stderr, "[coro] compile error: %s\n", err)
		}
		os.Exit(1)
	}

	machine := vm.New(comp.Bytecode())
	machine.SetLogger(log)
	machine.SetTrace(c.Bool("instr"), c.Bool("stack"))

	if err := machine.Run(); err != nil {
		var runtimeErr *vm.RuntimeError
		if errors.As(err, &runtimeErr) {
			fmt.Fprintf(os.Stderr, "[coro] runtime error: %s\n", runtimeErr.Msg)
		} else {
			fmt.Fprintf(os.Stderr, "[coro] runtime error: %s\n", err)
		}
		os.Exit(2)
	}

	return nil
}
