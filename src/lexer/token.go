// Package lexer tokenizes AWK program source text.
//
// The token set, keyword table, and contextual regex/divide disambiguation
// rule mirror a real AWK implementation's hand-written scanner rather than
// a generated one: tokens are emitted on a channel by a goroutine walking
// the source byte-by-byte, in the same producer/consumer shape used
// elsewhere in this module's ancestry for hand-written recursive-descent
// scanners.
package lexer

import "fmt"

// TokenType identifies the kind of lexeme a Token carries.
type TokenType int

const (
	EOF TokenType = iota
	Error

	Ident
	CallStart // identifier immediately followed by '(' with no whitespace
	StrLit
	PatLit // /regex/
	ILit   // integer literal
	FLit   // float literal

	// Keywords.
	Begin
	End
	Break
	Continue
	Next
	NextFile
	Exit
	Function
	Return
	Delete
	Do
	While
	For
	If
	Else
	Print
	Printf
	PrintLP  // "print(" with no whitespace
	PrintfLP // "printf(" with no whitespace
	Getline
	In

	// Punctuation and operators.
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket
	Semi
	Newline
	Comma
	Dollar

	Assign
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
	PowAssign

	Add
	Sub
	Mul
	Div
	Mod
	Pow
	Incr
	Decr

	EQ
	NEQ
	LT
	LTE
	GT
	GTE
	Match
	NotMatch

	Not
	And
	Or
	Cond  // ?
	Colon // :
	Append
	Pipe
)

// Token is a lexeme and its source position.
type Token struct {
	Type TokenType
	Val  string
	Line int
	Col  int
}

func (t Token) String() string {
	if t.Type == Error {
		return fmt.Sprintf("error: %s (line %d:%d)", t.Val, t.Line, t.Col)
	}
	if len(t.Val) > 10 {
		return fmt.Sprintf("%.10q... (line %d:%d)", t.Val, t.Line, t.Col)
	}
	return fmt.Sprintf("%q (line %d:%d)", t.Val, t.Line, t.Col)
}

// keywords maps exact source spellings to keyword token types. Entries for
// "in" require a trailing space or tab, matching the reference semantics:
// "in" is only recognized as the map-membership operator when followed by
// whitespace, so that e.g. "in(" is not mistakenly treated as the keyword.
var keywords = map[string]TokenType{
	"BEGIN":    Begin,
	"END":      End,
	"break":    Break,
	"continue": Continue,
	"next":     Next,
	"nextfile": NextFile,
	"exit":     Exit,
	"function": Function,
	"func":     Function,
	"return":   Return,
	"delete":   Delete,
	"do":       Do,
	"while":    While,
	"for":      For,
	"if":       If,
	"else":     Else,
	"getline":  Getline,
	"print(":   PrintLP,
	"print":    Print,
	"printf(":  PrintfLP,
	"printf":   Printf,
	"in ":      In,
	"in\t":     In,
}

// keywordsByLen holds keyword candidates grouped by byte length, longest
// first, so the scanner can try the longest match before shorter ones (this
// is what disambiguates "print(" from "print" and "in " from an identifier
// named "in" that happens to be followed by something else).
var keywordsByLen [][2]int

func init() {
	lens := map[int]bool{}
	for k := range keywords {
		lens[len(k)] = true
	}
	for l := range lens {
		keywordsByLen = append(keywordsByLen, [2]int{l, 0})
	}
	// Insertion sort descending; the table is tiny.
	for i := 1; i < len(keywordsByLen); i++ {
		for j := i; j > 0 && keywordsByLen[j][0] > keywordsByLen[j-1][0]; j-- {
			keywordsByLen[j], keywordsByLen[j-1] = keywordsByLen[j-1], keywordsByLen[j]
		}
	}
}
