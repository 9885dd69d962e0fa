package coro

import (
	"fmt"

	"github.com/coro-lang/coro/code"
	"github.com/coro-lang/coro/value"
	"github.com/sirupsen/logrus"
)

// NotSuspendedError reports a `resume` targeting a coroutine that is not
// Fresh or Suspended (it has already finished, errored, or is somehow
// already running).
type NotSuspendedError struct {
	ID     uint64
	Status Status
}

func (e *NotSuspendedError) Error() string {
	return "tried to resume a non-suspended coroutine"
}

// ArityError reports a first resume whose argument count doesn't exactly
// match a routine's parameter count.
type ArityError struct {
	Routine string
	Want    int
	Got     int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("wrong number of arguments to %s: expected %d, got %d", e.Routine, e.Want, e.Got)
}

// YieldFromRootError reports a `yield` evaluated in the root coroutine,
// which has no resumer to transfer control back to.
type YieldFromRootError struct{}

func (e *YieldFromRootError) Error() string {
	return "cannot yield outside of a coroutine"
}

// NotACoroutineError reports a `resume` whose callee is not a coroutine
// handle.
type NotACoroutineError struct {
	Kind value.Kind
}

func (e *NotACoroutineError) Error() string {
	return fmt.Sprintf("cannot resume a %s value", e.Kind)
}

// Scheduler owns the "current" pointer: the one piece of mutable state
// that says which Context's instructions the VM's fetch-decode-execute
// loop is reading from. Resume and Yield are nothing more than this
// pointer being reassigned to a different Context's Parent chain — there
// is no second host goroutine, channel or stack switch anywhere in here.
type Scheduler struct {
	current *Context
	root    *Context

	all    map[uint64]*Context
	nextID uint64

	log *logrus.Logger
}

// NewScheduler creates a Scheduler with a fresh root coroutine: the
// one that runs the program's top-level binds. The root starts Running
// and has no Parent, since nothing ever resumes it.
func NewScheduler(rootInstructions code.Instructions, rootNumLocals int) *Scheduler {
	s := &Scheduler{all: map[uint64]*Context{}, log: logrus.StandardLogger()}

	root := &Context{
		ID:           s.nextID,
		RoutineName:  "main",
		Instructions: rootInstructions,
		Locals:       make([]value.Value, rootNumLocals),
		Status:       Running,
	}
	s.nextID++
	s.all[root.ID] = root
	s.root = root
	s.current = root

	return s
}

// SetLogger overrides the logger used for --dbg resume/yield traces.
func (s *Scheduler) SetLogger(log *logrus.Logger) { s.log = log }

// ResetRoot rearms the root coroutine with a freshly compiled instruction
// block, the way a REPL evaluates one line at a time against the bindings
// and coroutines earlier lines already created. The root's local slots
// only ever grow: a later line's symbol table is an extension of the one
// earlier lines compiled against, so existing slots keep their values.
func (s *Scheduler) ResetRoot(instructions code.Instructions, numLocals int) {
	if numLocals > len(s.root.Locals) {
		grown := make([]value.Value, numLocals)
		copy(grown, s.root.Locals)
		s.root.Locals = grown
	}
	s.root.Instructions = instructions
	s.root.IP = 0
	s.root.Status = Running
	s.current = s.root
}

// Root returns the root coroutine.
func (s *Scheduler) Root() *Context { return s.root }

// Current returns whichever Context the VM should be executing, or nil
// once the root coroutine has finished.
func (s *Scheduler) Current() *Context { return s.current }

// Lookup finds a Context by the id carried in a CoroKind Value.
func (s *Scheduler) Lookup(id uint64) (*Context, bool) {
	ctx, ok := s.all[id]
	return ctx, ok
}

// Spawn creates a Fresh coroutine for the named routine and returns its
// Context. It does not start running: its first Resume binds args to its
// parameters and transitions it to Running.
func (s *Scheduler) Spawn(routineName string, instructions code.Instructions, numLocals, paramCount int) *Context {
	ctx := &Context{
		ID:           s.nextID,
		RoutineName:  routineName,
		ParamCount:   paramCount,
		Instructions: instructions,
		Locals:       make([]value.Value, numLocals),
		Status:       Fresh,
	}
	s.nextID++
	s.all[ctx.ID] = ctx

	s.log.WithFields(logrus.Fields{"id": ctx.ID, "routine": routineName}).Debug("created coroutine")
	return ctx
}

// Resume suspends the calling coroutine, prepares target to run (binding
// resume arguments to parameters on its first resume, or delivering them
// as the pending yield's result otherwise), and makes target current.
func (s *Scheduler) Resume(target *Context, args []value.Value) error {
	switch target.Status {
	case Fresh:
		paramCount := target.ParamCount
		if len(args) != paramCount {
			return &ArityError{Routine: target.RoutineName, Want: paramCount, Got: len(args)}
		}
		for i := 0; i < paramCount; i++ {
			target.Locals[i] = args[i]
		}
	case Suspended:
		result := value.Unit
		if len(args) > 0 {
			result = args[0]
		}
		target.Push(result)
	default:
		return &NotSuspendedError{ID: target.ID, Status: target.Status}
	}

	caller := s.current
	caller.Status = Suspended
	target.Parent = caller
	target.Status = Running
	s.current = target

	s.log.WithFields(logrus.Fields{"from": caller.ID, "to": target.ID}).Debug("resume")
	return nil
}

// Yield suspends the running coroutine, delivers its yielded value to
// whichever coroutine resumed it, and makes that coroutine current again.
func (s *Scheduler) Yield(v value.Value) error {
	current := s.current
	if current.Parent == nil {
		return &YieldFromRootError{}
	}

	current.Status = Suspended
	parent := current.Parent
	parent.Status = Running
	parent.Push(v)
	s.current = parent

	s.log.WithFields(logrus.Fields{"from": current.ID, "to": parent.ID}).Debug("yield")
	return nil
}

// Finish implements a coroutine body running off the end of its
// instructions: its last expression's value is delivered to its resumer
// exactly as a yielded value would be, except the coroutine becomes
// Finished instead of Suspended and can never be resumed again. Finishing
// the root coroutine ends the program; Current returns nil afterward.
func (s *Scheduler) Finish(result value.Value) {
	current := s.current
	current.Status = Finished

	if current.Parent == nil {
		s.current = nil
		return
	}

	parent := current.Parent
	parent.Status = Running
	parent.Push(result)
	s.current = parent

	s.log.WithFields(logrus.Fields{"id": current.ID}).Debug("coroutine finished")
}

// Fail marks the current coroutine Errored. The VM calls this when an
// opcode fails; the caller is responsible for turning it into the runtime
// error reported to the user.
func (s *Scheduler) Fail(err error) {
	if s.current == nil {
		return
	}
	s.current.Status = Errored
	s.current.Err = err
}
