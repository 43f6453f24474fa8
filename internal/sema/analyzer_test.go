package sema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/parser"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/token"
)

func analyze(t *testing.T, src string) (*ast.Program, *Analyzer, bool) {
	t.Helper()
	lex := token.NewLexer([]byte(src), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	p := parser.New(toks)
	prog := p.Parse()
	require.False(t, p.Errors.HasErrors(), "%v", p.Errors.All())
	an := New(prog)
	ok := an.Analyze()
	return prog, an, ok
}

func TestAnalyzeAcceptsWellTypedProgram(t *testing.T) {
	_, _, ok := analyze(t, `
		int add(int a, int b) {
			return a + b;
		}
		int main() {
			int x = add(1, 2);
			return x;
		}
	`)
	assert.True(t, ok)
}

func TestAnalyzeRejectsUndefinedIdentifier(t *testing.T) {
	_, an, ok := analyze(t, `
		int f() {
			return y;
		}
	`)
	assert.False(t, ok)
	assert.True(t, an.Errors.HasErrors())
}

func TestAnalyzeRejectsRedeclarationInSameScope(t *testing.T) {
	_, an, ok := analyze(t, `
		int f() {
			int x = 1;
			int x = 2;
			return x;
		}
	`)
	assert.False(t, ok)
	assert.True(t, an.Errors.HasErrors())
}

func TestAnalyzeWarnsOnShadowingButStillSucceeds(t *testing.T) {
	_, an, ok := analyze(t, `
		int x = 1;
		int f() {
			int x = 2;
			return x;
		}
	`)
	assert.True(t, ok)
	assert.NotEmpty(t, an.Errors.Warnings())
	assert.Empty(t, an.Errors.Errors())
}

func TestAnalyzeRejectsVoidReturnWithValue(t *testing.T) {
	_, an, ok := analyze(t, `
		void f() {
			return 1;
		}
	`)
	assert.False(t, ok)
	assert.True(t, an.Errors.HasErrors())
}

func TestAnalyzeStructLayoutAndFieldAccess(t *testing.T) {
	_, an, ok := analyze(t, `
		struct Point {
			int x;
			int y;
		};
		int f() {
			Point p;
			return p.x;
		}
	`)
	require.True(t, ok)
	def, found := an.Layout().Lookup("Point")
	require.True(t, found)
	require.Len(t, def.Fields, 2)
	assert.NotEqual(t, def.Fields[0].Offset, def.Fields[1].Offset)
}

func TestAnalyzeIntrinsicArityMismatch(t *testing.T) {
	_, an, ok := analyze(t, `
		int f() {
			HW_GPIO_SET(1);
			return 0;
		}
	`)
	assert.False(t, ok)
	assert.True(t, an.Errors.HasErrors())
}

func TestAnalyzeFunctionsAccessorExposesRegisteredFunctions(t *testing.T) {
	_, an, ok := analyze(t, `
		int helper() { return 0; }
	`)
	require.True(t, ok)
	_, found := an.Functions()["helper"]
	assert.True(t, found)
}
