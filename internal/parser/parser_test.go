package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/ast"
	"github.com/OmidArdestani/RTMC-Framework-sub001/internal/token"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	lex := token.NewLexer([]byte(src), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors(), "lexer errors: %v", lex.Errors.All())
	p := New(toks)
	prog := p.Parse()
	require.False(t, p.Errors.HasErrors(), "parser errors: %v", p.Errors.All())
	return prog
}

func TestParseFuncDeclWithBody(t *testing.T) {
	prog := parse(t, `
		int add(int a, int b) {
			return a + b;
		}
	`)
	require.Len(t, prog.Decls, 1)
	fn, ok := prog.Decls[0].(*ast.FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	require.Len(t, fn.Body.Stmts, 1)
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
}

func TestParseStructWithBitfield(t *testing.T) {
	prog := parse(t, `
		struct Flags {
			int a : 3;
			int b : 5;
		};
	`)
	require.Len(t, prog.Decls, 1)
	sd := prog.Decls[0].(*ast.StructDecl)
	require.Len(t, sd.Fields, 2)
	assert.Equal(t, 3, sd.Fields[0].BitWidth)
	assert.Equal(t, 5, sd.Fields[1].BitWidth)
}

func TestParseTaskAndMessageDecl(t *testing.T) {
	prog := parse(t, `
		message<int> Q;
		Task Blinker() {
			int x = Q.recv();
		}
	`)
	require.Len(t, prog.Decls, 2)
	_, ok := prog.Decls[0].(*ast.MessageDecl)
	require.True(t, ok)
	task, ok := prog.Decls[1].(*ast.TaskDecl)
	require.True(t, ok)
	assert.Equal(t, "Blinker", task.Name)
}

func TestParseInitializerList(t *testing.T) {
	prog := parse(t, `
		int xs[3] = {1, 2, 3};
	`)
	v := prog.Decls[0].(*ast.VarDecl)
	init, ok := v.Init.(*ast.InitExpr)
	require.True(t, ok)
	assert.Len(t, init.Elems, 3)
}

func TestParseOperatorPrecedence(t *testing.T) {
	prog := parse(t, `
		int f() {
			return 1 + 2 * 3;
		}
	`)
	fn := prog.Decls[0].(*ast.FuncDecl)
	ret := fn.Body.Stmts[0].(*ast.ReturnStmt)
	top := ret.Value.(*ast.BinaryExpr)
	assert.Equal(t, ast.OpAdd, top.Op)
	_, litOk := top.Left.(*ast.LiteralExpr)
	assert.True(t, litOk)
	mul, ok := top.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpMul, mul.Op)
}

func TestParseMessageSendAsStatement(t *testing.T) {
	prog := parse(t, `
		message<int> Q;
		void f() {
			Q.send(5);
		}
	`)
	fn := prog.Decls[1].(*ast.FuncDecl)
	st := fn.Body.Stmts[0].(*ast.ExprStmt)
	call, ok := st.X.(*ast.CallExpr)
	require.True(t, ok)
	assert.Equal(t, "__msg_send", call.FuncName)
	require.Len(t, call.Args, 2)
}

func TestParseErrorRecoverySkipsBadDeclAndContinues(t *testing.T) {
	lex := token.NewLexer([]byte(`
		int 123;
		int ok() { return 0; }
	`), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	p := New(toks)
	prog := p.Parse()
	assert.True(t, p.Errors.HasErrors())
	// The well-formed trailing declaration must still be recovered.
	var names []string
	for _, d := range prog.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok {
			names = append(names, fn.Name)
		}
	}
	assert.Contains(t, names, "ok")
}
