package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/zenlang/internal/token"
)

// For any well-formed source, the last token is EOF and offsets never
// decrease.
func TestTokenize_TotalOverValidInputs(t *testing.T) {
	toks, err := Tokenize([]byte("set x 10\nprint x + 1"))
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)

	last := -1
	for _, tk := range toks {
		assert.GreaterOrEqual(t, tk.Pos.Offset, last)
		last = tk.Pos.Offset
	}
}

func TestTokenize_KeywordsAndIdentifiers(t *testing.T) {
	toks, err := Tokenize([]byte("set function myVar"))
	require.NoError(t, err)
	assert.Equal(t, token.SET, toks[0].Kind)
	assert.Equal(t, token.FUNCTION, toks[1].Kind)
	assert.Equal(t, token.IDENT, toks[2].Kind)
	assert.Equal(t, "myVar", toks[2].Lexeme)
}

// A \n escape inside a string literal becomes a single LF byte.
func TestStringEscape(t *testing.T) {
	toks, err := Tokenize([]byte(`"line1\nline2"`))
	require.NoError(t, err)
	require.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, "line1\nline2", toks[0].Lexeme)
	assert.Len(t, toks[0].Lexeme, 11)
}

func TestStringEscape_AllRecognizedSequences(t *testing.T) {
	toks, err := Tokenize([]byte(`"\t\r\\\"\0"`))
	require.NoError(t, err)
	assert.Equal(t, "\t\r\\\"\x00", toks[0].Lexeme)
}

func TestStringEscape_UnrecognizedPreservesBothBytes(t *testing.T) {
	toks, err := Tokenize([]byte(`"\q"`))
	require.NoError(t, err)
	assert.Equal(t, `\q`, toks[0].Lexeme)
}

func TestString_UnterminatedIsLexError(t *testing.T) {
	_, err := Tokenize([]byte(`"unterminated`))
	assert.Error(t, err)
}

func TestNumber_Forms(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"42", "42"},
		{"3.14", "3.14"},
		{".5", ".5"},
		{"1e10", "1e10"},
		{"1.5e-3", "1.5e-3"},
		{"2E+4", "2E+4"},
	}
	for _, c := range cases {
		toks, err := Tokenize([]byte(c.src))
		require.NoError(t, err)
		require.Equal(t, token.NUMBER, toks[0].Kind)
		assert.Equal(t, c.want, toks[0].Lexeme)
	}
}

func TestNumber_InvalidExponentStopsBeforeIt(t *testing.T) {
	toks, err := Tokenize([]byte("1e"))
	require.NoError(t, err)
	assert.Equal(t, "1", toks[0].Lexeme)
	assert.Equal(t, token.IDENT, toks[1].Kind)
}

func TestComment_RunsToEndOfLine(t *testing.T) {
	toks, err := Tokenize([]byte("set x 1 // a comment\nset y 2"))
	require.NoError(t, err)
	var kinds []token.Kind
	for _, tk := range toks {
		kinds = append(kinds, tk.Kind)
	}
	assert.Contains(t, kinds, token.SET)
	assert.NotContains(t, kinds, token.SLASH)
}

func TestPunctuation_LongestMatchFirst(t *testing.T) {
	toks, err := Tokenize([]byte("== != <= >="))
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.EQ, token.NEQ, token.LE, token.GE, token.EOF}, kindsOf(toks))
}

func TestUnicodeGlyphs(t *testing.T) {
	toks, err := Tokenize([]byte("a ∧ b ∨ c"))
	require.NoError(t, err)
	assert.Equal(t, []token.Kind{token.IDENT, token.AND, token.IDENT, token.OR, token.IDENT, token.EOF}, kindsOf(toks))
}

func TestUnexpectedByte_IsLexError(t *testing.T) {
	_, err := Tokenize([]byte("$"))
	assert.Error(t, err)
}

func kindsOf(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tk := range toks {
		out[i] = tk.Kind
	}
	return out
}
