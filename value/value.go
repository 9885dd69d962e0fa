// Package value implements Coro's runtime value domain: the closed set of
// kinds a Coro expression can produce, and the equality, truthiness and
// arithmetic rules the compiler and VM both rely on.
package value

import (
	"fmt"
	"strconv"
)

// Kind tags which of the five variants a Value holds.
type Kind int

const (
	UnitKind Kind = iota
	BoolKind
	NumKind
	StrKind
	CoroKind
)

func (k Kind) String() string {
	switch k {
	case UnitKind:
		return "Unit"
	case BoolKind:
		return "Bool"
	case NumKind:
		return "Num"
	case StrKind:
		return "Str"
	case CoroKind:
		return "Coroutine"
	default:
		return "unknown"
	}
}

// Value is a single Coro runtime value. Only the field matching Kind is
// meaningful; the others are zero. A struct-with-tag is used instead of one
// Go type per variant because the set is fixed and small and every
// arithmetic/comparison operation needs to switch on a pair of kinds — a
// sum-of-structs would force a type assertion at every call site for what
// is, here, a single five-way switch.
type Value struct {
	Kind Kind
	B    bool
	N    float64
	S    string
	C    uint64 // coroutine id, valid when Kind == CoroKind
}

// Unit is the sole Unit value, `()`.
var Unit = Value{Kind: UnitKind}

// Bool wraps a Go bool as a Value.
func Bool(b bool) Value { return Value{Kind: BoolKind, B: b} }

// Num wraps a float64 as a Value.
func Num(n float64) Value { return Value{Kind: NumKind, N: n} }

// Str wraps a Go string as a Value.
func Str(s string) Value { return Value{Kind: StrKind, S: s} }

// Coro wraps a coroutine id as a Value.
func Coro(id uint64) Value { return Value{Kind: CoroKind, C: id} }

// True and False are the two Bool values, kept around for callers that
// compare against a canonical instance.
var (
	True  = Bool(true)
	False = Bool(false)
)

// Truthy reports whether v is considered true in an `if`/`while` condition.
// Unit is always false; Bool is itself; Num is true for any nonzero value;
// Str is true for any nonempty string; a coroutine handle is always true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case UnitKind:
		return false
	case BoolKind:
		return v.B
	case NumKind:
		return v.N != 0
	case StrKind:
		return v.S != ""
	case CoroKind:
		return true
	default:
		return false
	}
}

// Equal reports whether v and other are the same value. Values of
// different kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case UnitKind:
		return true
	case BoolKind:
		return v.B == other.B
	case NumKind:
		return v.N == other.N
	case StrKind:
		return v.S == other.S
	case CoroKind:
		return v.C == other.C
	default:
		return false
	}
}

// Less reports whether v < other under Num ordering or Str lexicographic
// ordering. Any other pairing of kinds is a TypeError.
func (v Value) Less(other Value) (bool, error) {
	if v.Kind != other.Kind {
		return false, &TypeError{Op: "<", Left: v.Kind, Right: other.Kind}
	}
	switch v.Kind {
	case NumKind:
		return v.N < other.N, nil
	case StrKind:
		return v.S < other.S, nil
	default:
		return false, &TypeError{Op: "<", Left: v.Kind, Right: other.Kind}
	}
}

// Add implements `+`: numeric addition for two Nums, concatenation for two
// Strs. Any other pairing is a TypeError.
func (v Value) Add(other Value) (Value, error) {
	switch {
	case v.Kind == NumKind && other.Kind == NumKind:
		return Num(v.N + other.N), nil
	case v.Kind == StrKind && other.Kind == StrKind:
		return Str(v.S + other.S), nil
	default:
		return Value{}, &TypeError{Op: "+", Left: v.Kind, Right: other.Kind}
	}
}

// Sub implements `-` over two Nums.
func (v Value) Sub(other Value) (Value, error) {
	if v.Kind != NumKind || other.Kind != NumKind {
		return Value{}, &TypeError{Op: "-", Left: v.Kind, Right: other.Kind}
	}
	return Num(v.N - other.N), nil
}

// Mul implements `*` over two Nums.
func (v Value) Mul(other Value) (Value, error) {
	if v.Kind != NumKind || other.Kind != NumKind {
		return Value{}, &TypeError{Op: "*", Left: v.Kind, Right: other.Kind}
	}
	return Num(v.N * other.N), nil
}

// Div implements `/` over two Nums. Division by zero is a DivideByZeroError,
// distinct from a TypeError, so the VM can report it precisely.
func (v Value) Div(other Value) (Value, error) {
	if v.Kind != NumKind || other.Kind != NumKind {
		return Value{}, &TypeError{Op: "/", Left: v.Kind, Right: other.Kind}
	}
	if other.N == 0 {
		return Value{}, &DivideByZeroError{}
	}
	return Num(v.N / other.N), nil
}

// Neg implements unary `-` over a Num.
func (v Value) Neg() (Value, error) {
	if v.Kind != NumKind {
		return Value{}, &TypeError{Op: "unary -", Left: v.Kind, Unary: true}
	}
	return Num(-v.N), nil
}

// Not implements unary `not` over a Bool.
func (v Value) Not() (Value, error) {
	if v.Kind != BoolKind {
		return Value{}, &TypeError{Op: "not", Left: v.Kind, Unary: true}
	}
	return Bool(!v.B), nil
}

// String renders v the way `print` writes it to stdout.
func (v Value) String() string {
	switch v.Kind {
	case UnitKind:
		return "()"
	case BoolKind:
		return strconv.FormatBool(v.B)
	case NumKind:
		return strconv.FormatFloat(v.N, 'f', -1, 64)
	case StrKind:
		return v.S
	case CoroKind:
		return fmt.Sprintf("coroutine#%d", v.C)
	default:
		return "<invalid value>"
	}
}

// TypeError reports an operator applied to a value (or pair of values) of
// the wrong kind.
type TypeError struct {
	Op          string
	Left, Right Kind
	Unary       bool
}

func (e *TypeError) Error() string {
	if e.Unary {
		return fmt.Sprintf("operator %s cannot be applied to %s", e.Op, e.Left)
	}
	return fmt.Sprintf("operator %s cannot be applied to %s and %s", e.Op, e.Left, e.Right)
}

// DivideByZeroError reports division where the divisor is zero.
type DivideByZeroError struct{}

func (e *DivideByZeroError) Error() string { return "division by zero" }
