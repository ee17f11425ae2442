package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(src string) []Token {
	l := New(src)
	go l.Run()
	var toks []Token
	for t := range l.Tokens() {
		toks = append(toks, t)
		if t.Type == EOF || t.Type == Error {
			break
		}
	}
	return toks
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, t := range toks {
		out[i] = t.Type
	}
	return out
}

func TestBasicIfStatement(t *testing.T) {
	toks := collect(`if (x == yzk) { print x; }`)
	got := types(toks)
	want := []TokenType{If, LParen, Ident, EQ, Ident, RParen, LBrace, Print, Ident, Semi, RBrace, EOF}
	assert.Equal(t, want, got)
}

func TestDivideVsRegex(t *testing.T) {
	toks := collect(`1 / 3.5`)
	want := []TokenType{ILit, Div, FLit, EOF}
	assert.Equal(t, want, types(toks))
}

func TestRegexAfterBrace(t *testing.T) {
	toks := collect(`{ /foo/ }`)
	want := []TokenType{LBrace, PatLit, RBrace, EOF}
	assert.Equal(t, want, types(toks))
	assert.Equal(t, "foo", toks[1].Val)
}

func TestStringEscapes(t *testing.T) {
	toks := collect(`"hi\tthere\n"`)
	assert.Equal(t, StrLit, toks[0].Type)
	assert.Equal(t, "hi\tthere\n", toks[0].Val)
}

func TestRegexEscapesOnlySlash(t *testing.T) {
	toks := collect(`/hows it \/going/`)
	assert.Equal(t, PatLit, toks[0].Type)
	assert.Equal(t, `hows it /going`, toks[0].Val)
}

func TestCallStartAdjacency(t *testing.T) {
	toks := collect(`foo(1)`)
	assert.Equal(t, CallStart, toks[0].Type)
	assert.Equal(t, "foo(", toks[0].Val)
}

func TestInRequiresTrailingWhitespace(t *testing.T) {
	toks := collect(`x in arr`)
	want := []TokenType{Ident, In, Ident, EOF}
	assert.Equal(t, want, types(toks))
}

func TestInWithoutWhitespaceIsCallStart(t *testing.T) {
	// "in" directly followed by '(' with no space must not be the keyword.
	toks := collect(`in(x)`)
	assert.Equal(t, CallStart, toks[0].Type)
	assert.Equal(t, "in(", toks[0].Val)
}

func TestPrintAdjacentParen(t *testing.T) {
	toks := collect(`print(1)`)
	assert.Equal(t, PrintLP, toks[0].Type)
}

func TestHexIntFloat(t *testing.T) {
	toks := collect(`0x1F 3 3.14`)
	want := []TokenType{ILit, ILit, FLit, EOF}
	assert.Equal(t, want, types(toks))
}

func TestUnterminatedString(t *testing.T) {
	toks := collect("\"unterminated")
	assert.Equal(t, Error, toks[0].Type)
}
