package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexerPunctuationAndOperators(t *testing.T) {
	lex := NewLexer([]byte("a += 1; b->c; x <<= "), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	require.Equal(t, []Kind{Ident, PlusAssign, IntLit, Semi, Ident, Arrow, Ident, Semi, Ident, Shl, Assign, EOF}, kinds(toks))
}

func TestLexerKeywordsAndIntrinsics(t *testing.T) {
	lex := NewLexer([]byte("Task message struct HW_GPIO_SET RTOS_YIELD notakeyword"), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	require.Equal(t, []Kind{KwTask, KwMessage, KwStruct, KwIntrinsic, KwIntrinsic, Ident, EOF}, kinds(toks))
	assert.Equal(t, "HW_GPIO_SET", toks[3].Lexeme)
}

func TestLexerNumericLiterals(t *testing.T) {
	lex := NewLexer([]byte("0x1F 0b101 3_000 1.5"), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	require.Len(t, toks, 5) // 4 literals + EOF
	assert.Equal(t, int64(31), toks[0].IntVal)
	assert.Equal(t, int64(5), toks[1].IntVal)
	assert.Equal(t, int64(3000), toks[2].IntVal)
	assert.Equal(t, FloatLit, toks[3].Kind)
	assert.InDelta(t, 1.5, toks[3].FltVal, 1e-9)
}

func TestLexerStringAndCharEscapes(t *testing.T) {
	lex := NewLexer([]byte(`"a\nb" '\t'`), "t.rtmc")
	toks := lex.Tokenize()
	require.False(t, lex.Errors.HasErrors())
	require.Equal(t, StringLit, toks[0].Kind)
	assert.Equal(t, "a\nb", toks[0].Lexeme)
	assert.Equal(t, CharLit, toks[1].Kind)
	assert.Equal(t, int64('\t'), toks[1].IntVal)
}

func TestLexerUnterminatedStringRecordsDiagnosticAndRecovers(t *testing.T) {
	lex := NewLexer([]byte("\"unterminated"), "t.rtmc")
	toks := lex.Tokenize()
	assert.True(t, lex.Errors.HasErrors())
	// still produces a token (best-effort) followed by EOF, never panics.
	require.Equal(t, EOF, toks[len(toks)-1].Kind)
}

func TestLexerUnexpectedCharacterRecoversAndKeepsScanning(t *testing.T) {
	lex := NewLexer([]byte("a `@ b"), "t.rtmc")
	toks := lex.Tokenize()
	assert.True(t, lex.Errors.HasErrors())
	// Both identifiers either side of the bad bytes must still be scanned.
	var idents []string
	for _, tok := range toks {
		if tok.Kind == Ident {
			idents = append(idents, tok.Lexeme)
		}
	}
	assert.Equal(t, []string{"a", "b"}, idents)
}

func TestLexerLineColumnTracking(t *testing.T) {
	lex := NewLexer([]byte("a\nb"), "t.rtmc")
	toks := lex.Tokenize()
	require.Len(t, toks, 3)
	assert.Equal(t, 1, toks[0].Loc.Line)
	assert.Equal(t, 2, toks[1].Loc.Line)
}
