package vm

import (
	"github.com/coro-lang/coro/code"
	"github.com/coro-lang/coro/coro"
)

// Frame is a thin view over whichever coro.Context is currently running:
// it exists only so the VM's fetch-decode-execute loop reads "the current
// frame's instructions/ip" without a frame stack of its own — a
// coroutine's frame IS its Context, there is no nested call stack to push
// onto.
type Frame struct {
	ctx *coro.Context
}

// NewFrame wraps ctx for instruction fetch/decode.
func NewFrame(ctx *coro.Context) *Frame {
	return &Frame{ctx: ctx}
}

// Instructions returns the wrapped context's instruction stream.
func (f *Frame) Instructions() code.Instructions {
	return f.ctx.Instructions
}

// IP returns the wrapped context's instruction pointer.
func (f *Frame) IP() int {
	return f.ctx.IP
}

// SetIP updates the wrapped context's instruction pointer, used after a
// jump or after advancing past a decoded instruction.
func (f *Frame) SetIP(ip int) {
	f.ctx.IP = ip
}
