package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/types"
)

func TestLookupFindsInnermostDefinitionFirst(t *testing.T) {
	tb := NewTable()
	tb.Define(&Symbol{Name: "x", Kind: SymVar, Type: types.Base(types.BInt), IsGlobal: true})

	tb.PushScope()
	tb.Define(&Symbol{Name: "x", Kind: SymVar, Type: types.Base(types.BFloat)})

	sym, ok := tb.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.BFloat, sym.Type.Base, "the inner scope's x must shadow the outer one")

	tb.PopScope()
	sym, ok = tb.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, types.BInt, sym.Type.Base, "popping the scope must reveal the outer x again")
}

func TestDeclaredInCurrentScopeDoesNotSeeOuterDeclarations(t *testing.T) {
	tb := NewTable()
	tb.Define(&Symbol{Name: "y", Kind: SymVar, Type: types.Base(types.BInt)})

	tb.PushScope()
	assert.False(t, tb.DeclaredInCurrentScope("y"), "y belongs to the outer scope, not this one")
	tb.Define(&Symbol{Name: "y", Kind: SymVar, Type: types.Base(types.BInt)})
	assert.True(t, tb.DeclaredInCurrentScope("y"))
}

func TestShadowsOuterDetectsOuterButNotCurrentScopeNames(t *testing.T) {
	tb := NewTable()
	tb.Define(&Symbol{Name: "z", Kind: SymVar, Type: types.Base(types.BInt)})

	tb.PushScope()
	assert.True(t, tb.ShadowsOuter("z"))
	assert.False(t, tb.ShadowsOuter("brandNew"))
}

func TestLookupGlobalIgnoresLocalShadowing(t *testing.T) {
	tb := NewTable()
	tb.Define(&Symbol{Name: "g", Kind: SymVar, Type: types.Base(types.BInt), IsGlobal: true})

	tb.PushScope()
	tb.Define(&Symbol{Name: "g", Kind: SymVar, Type: types.Base(types.BFloat)})

	sym, ok := tb.LookupGlobal("g")
	require.True(t, ok)
	assert.Equal(t, types.BInt, sym.Type.Base, "LookupGlobal must always resolve the global scope's g")
}

func TestPopScopeAtGlobalScopeIsANoOp(t *testing.T) {
	tb := NewTable()
	tb.Define(&Symbol{Name: "only", Kind: SymVar, Type: types.Base(types.BInt)})
	tb.PopScope() // no parent to pop to; must not panic or lose the global scope
	_, ok := tb.Lookup("only")
	assert.True(t, ok)
}
