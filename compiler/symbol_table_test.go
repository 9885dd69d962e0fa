package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineAllocatesIncreasingSlots(t *testing.T) {
	st := NewSymbolTable()

	a := st.Define("a")
	b := st.Define("b")

	assert.Equal(t, Symbol{Name: "a", Scope: GlobalScope, Index: 0}, a)
	assert.Equal(t, Symbol{Name: "b", Scope: GlobalScope, Index: 1}, b)
}

// TestDefineRedefinesInSameScope pins Open Question 2's resolution:
// `let NAME = ...` repeated in the same scope updates the existing slot
// instead of shadowing it with a fresh one.
func TestDefineRedefinesInSameScope(t *testing.T) {
	st := NewSymbolTable()

	first := st.Define("n")
	second := st.Define("n")

	assert.Equal(t, first.Index, second.Index, "redefining n in the same scope must reuse its slot")

	resolved, ok := st.Resolve("n")
	require.True(t, ok)
	assert.Equal(t, first.Index, resolved.Index)
}

func TestEnclosedScopeSharesSlotCounter(t *testing.T) {
	outer := NewSymbolTable()
	outer.Define("a")

	inner := NewEnclosedSymbolTable(outer)
	b := inner.Define("b")

	assert.Equal(t, 1, b.Index, "inner scope must not reuse outer's slot index")
	assert.Equal(t, LocalScope, b.Scope)
}

func TestResolveWalksOuterScopes(t *testing.T) {
	outer := NewSymbolTable()
	a := outer.Define("a")

	inner := NewEnclosedSymbolTable(outer)

	resolved, ok := inner.Resolve("a")
	require.True(t, ok)
	assert.Equal(t, a, resolved)
}

func TestDefineInInnerScopeShadowsOuter(t *testing.T) {
	outer := NewSymbolTable()
	outer.Define("x")

	inner := NewEnclosedSymbolTable(outer)
	shadowed := inner.Define("x")

	resolved, ok := inner.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, shadowed.Index, resolved.Index)
	assert.NotEqual(t, shadowed.Index, mustResolve(t, outer, "x").Index)
}

func mustResolve(t *testing.T, st *SymbolTable, name string) Symbol {
	t.Helper()
	sym, ok := st.Resolve(name)
	require.True(t, ok)
	return sym
}

func TestResolveUnknownName(t *testing.T) {
	st := NewSymbolTable()
	_, ok := st.Resolve("missing")
	assert.False(t, ok)
}
