package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/rangetable"
)

// identStart and identContinue approximate XID_Start/XID_Continue using the
// x/text-exposed Unicode range tables, so identifiers accept the same class
// of non-ASCII characters a Unicode-aware AWK scanner does rather than only
// ASCII letters.
var (
	identStart    = rangetable.Merge(unicode.Letter, rangetable.New('_'))
	identContinue = rangetable.Merge(unicode.Letter, unicode.Digit, rangetable.New('_'))
)

const eof = 0

// Lexer scans AWK source text and emits Tokens on a channel.
type Lexer struct {
	input    string
	start    int
	pos      int
	width    int
	line     int
	col      int
	startCol int
	prevType TokenType
	hasPrev  bool
	tokens   chan Token
}

// New creates a Lexer over src. Call Run in a goroutine, then read from
// Tokens until an EOF or Error token is received.
func New(src string) *Lexer {
	return &Lexer{
		input:  src,
		line:   1,
		col:    1,
		tokens: make(chan Token, 2),
	}
}

// Tokens returns the channel Run emits tokens on.
func (l *Lexer) Tokens() <-chan Token { return l.tokens }

// Run scans the full input, emitting tokens until EOF or a fatal Error.
// Intended to be run in its own goroutine; closes the Tokens channel when
// done.
func (l *Lexer) Run() {
	defer close(l.tokens)
	for {
		tok, ok := l.scanOne()
		if !ok {
			return
		}
		l.emit(tok)
		if tok.Type == EOF || tok.Type == Error {
			return
		}
	}
}

func (l *Lexer) emit(t Token) {
	l.tokens <- t
	l.prevType = t.Type
	l.hasPrev = true
}

func (l *Lexer) errTok(format string, args ...interface{}) Token {
	return Token{Type: Error, Val: fmt.Sprintf(format, args...), Line: l.line, Col: l.startCol}
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(l.input[l.pos:])
	l.width = w
	l.pos += w
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) backup() {
	if l.pos > l.start {
		l.pos -= l.width
		if l.col > 1 {
			l.col--
		}
	}
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.input) {
		return eof
	}
	return l.input[l.pos+off]
}

func (l *Lexer) cur() string { return l.input[l.start:l.pos] }

// potentialRegex implements the divide-vs-regex disambiguation rule: '/' is
// division only when the previous token could end an expression.
func (l *Lexer) potentialRegex() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prevType {
	case Ident, StrLit, PatLit, ILit, FLit, RParen:
		return false
	default:
		return true
	}
}

// scanOne scans and returns the next token. ok is always true; at end of
// input it returns an EOF token (again on every further call), and Run
// stops calling it once an EOF or Error token has been emitted.
func (l *Lexer) scanOne() (Token, bool) {
	l.skipWsAndComments()
	l.start = l.pos
	l.startCol = l.col
	startLine := l.line

	r := l.next()
	switch {
	case r == eof:
		return Token{Type: EOF, Line: startLine, Col: l.startCol}, true
	case r == '\n':
		return Token{Type: Newline, Val: "\n", Line: startLine, Col: l.startCol}, true
	case r == '"':
		return l.scanString()
	case r == '/' && l.potentialRegex():
		return l.scanRegex()
	case unicode.Is(identStart, r):
		l.backup()
		return l.scanIdentOrKeyword()
	case r >= '0' && r <= '9', r == '.' && isDigitByte(l.peekAt(0)):
		l.backup()
		return l.scanNumber()
	default:
		l.backup()
		return l.scanOperator()
	}
}

func isDigitByte(b byte) bool { return b >= '0' && b <= '9' }

func (l *Lexer) skipWsAndComments() {
	for {
		switch r := l.peek(); {
		case r == ' ' || r == '\t' || r == '\r':
			l.next()
		case r == '\\' && l.peekAt(1) == '\n':
			l.next()
			l.next() // line continuation, swallow both chars
		case r == '#':
			for {
				r := l.next()
				if r == '\n' || r == eof {
					l.backup()
					return
				}
			}
		default:
			return
		}
	}
}

// scanIdentOrKeyword scans an identifier, checking the keyword table
// (longest match first) before falling back to Ident. A '(' immediately
// following with no intervening whitespace produces CallStart instead of
// Ident.
func (l *Lexer) scanIdentOrKeyword() (Token, bool) {
	l.next() // identStart already peeked
	for unicode.Is(identContinue, l.peek()) {
		l.next()
	}
	word := l.cur()

	// Try keyword spellings that extend past the scanned word, longest
	// first: "print(" / "printf(" / "in " / "in\t".
	for _, kl := range keywordsByLen {
		n := kl[0]
		if n <= len(word) || l.start+n > len(l.input) {
			continue
		}
		cand := l.input[l.start : l.start+n]
		if typ, ok := keywords[cand]; ok {
			// Consume the extra bytes the candidate covers beyond word.
			l.pos = l.start + n
			return Token{Type: typ, Val: cand, Line: l.line, Col: l.startCol}, true
		}
	}
	if typ, ok := keywords[word]; ok {
		return Token{Type: typ, Val: word, Line: l.line, Col: l.startCol}, true
	}
	if l.peekAt(0) == '(' {
		l.next()
		return Token{Type: CallStart, Val: l.cur(), Line: l.line, Col: l.startCol}, true
	}
	return Token{Type: Ident, Val: word, Line: l.line, Col: l.startCol}, true
}

// scanNumber tries hex, then float, then integer forms, in that order.
func (l *Lexer) scanNumber() (Token, bool) {
	if l.peekAt(0) == '0' && (l.peekAt(1) == 'x' || l.peekAt(1) == 'X') {
		l.next()
		l.next()
		for isHexByte(l.peekAt(0)) {
			l.next()
		}
		return Token{Type: ILit, Val: l.cur(), Line: l.line, Col: l.startCol}, true
	}

	isFloat := false
	for isDigitByte(l.peekAt(0)) {
		l.next()
	}
	if l.peekAt(0) == '.' {
		isFloat = true
		l.next()
		for isDigitByte(l.peekAt(0)) {
			l.next()
		}
	}
	if b := l.peekAt(0); b == 'e' || b == 'E' {
		save := l.pos
		l.next()
		if b2 := l.peekAt(0); b2 == '+' || b2 == '-' {
			l.next()
		}
		if isDigitByte(l.peekAt(0)) {
			isFloat = true
			for isDigitByte(l.peekAt(0)) {
				l.next()
			}
		} else {
			l.pos = save
		}
	}
	typ := ILit
	if isFloat {
		typ = FLit
	}
	return Token{Type: typ, Val: l.cur(), Line: l.line, Col: l.startCol}, true
}

func isHexByte(b byte) bool {
	return isDigitByte(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

// scanString scans a double-quoted string literal, expanding escapes
// eagerly (the delimiter scan and escape expansion happen in the same
// pass, unlike the regex case below). Unknown backslash escapes pass the
// escaped character through literally.
func (l *Lexer) scanString() (Token, bool) {
	var sb strings.Builder
	for {
		r := l.next()
		switch r {
		case eof, '\n':
			return l.errTok("unterminated string literal"), true
		case '"':
			return Token{Type: StrLit, Val: sb.String(), Line: l.line, Col: l.startCol}, true
		case '\\':
			e := l.next()
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			case '/':
				sb.WriteByte('/')
			case 'a':
				sb.WriteByte('\a')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			default:
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// scanRegex scans a /regex/ literal. Only "\/" is unescaped within it; every
// other backslash sequence, including unknown ones, is preserved verbatim
// for the regex engine to interpret later.
func (l *Lexer) scanRegex() (Token, bool) {
	var sb strings.Builder
	for {
		r := l.next()
		switch r {
		case eof, '\n':
			return l.errTok("unterminated regex literal"), true
		case '/':
			return Token{Type: PatLit, Val: sb.String(), Line: l.line, Col: l.startCol}, true
		case '\\':
			e := l.next()
			if e == '/' {
				sb.WriteByte('/')
			} else {
				sb.WriteByte('\\')
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

func (l *Lexer) scanOperator() (Token, bool) {
	r := l.next()
	two := func(next rune, t2, t1 TokenType) Token {
		if l.peekAt(0) == byte(next) {
			l.next()
			return Token{Type: t2, Val: l.cur(), Line: l.line, Col: l.startCol}
		}
		return Token{Type: t1, Val: l.cur(), Line: l.line, Col: l.startCol}
	}

	var t Token
	switch r {
	case '{':
		t = Token{Type: LBrace, Val: "{", Line: l.line, Col: l.startCol}
	case '}':
		t = Token{Type: RBrace, Val: "}", Line: l.line, Col: l.startCol}
	case '(':
		t = Token{Type: LParen, Val: "(", Line: l.line, Col: l.startCol}
	case ')':
		t = Token{Type: RParen, Val: ")", Line: l.line, Col: l.startCol}
	case '[':
		t = Token{Type: LBracket, Val: "[", Line: l.line, Col: l.startCol}
	case ']':
		t = Token{Type: RBracket, Val: "]", Line: l.line, Col: l.startCol}
	case ';':
		t = Token{Type: Semi, Val: ";", Line: l.line, Col: l.startCol}
	case ',':
		t = Token{Type: Comma, Val: ",", Line: l.line, Col: l.startCol}
	case '$':
		t = Token{Type: Dollar, Val: "$", Line: l.line, Col: l.startCol}
	case '?':
		t = Token{Type: Cond, Val: "?", Line: l.line, Col: l.startCol}
	case ':':
		t = Token{Type: Colon, Val: ":", Line: l.line, Col: l.startCol}
	case '~':
		t = Token{Type: Match, Val: "~", Line: l.line, Col: l.startCol}
	case '^':
		t = two('=', PowAssign, Pow)
	case '%':
		t = two('=', ModAssign, Mod)
	case '&':
		t = two('&', And, 0)
		if t.Type == 0 {
			return l.errTok("unexpected character '&'"), true
		}
	case '|':
		t = two('|', Or, Pipe)
	case '!':
		if l.peekAt(0) == '~' {
			l.next()
			t = Token{Type: NotMatch, Val: "!~", Line: l.line, Col: l.startCol}
		} else {
			t = two('=', NEQ, Not)
		}
	case '=':
		t = two('=', EQ, Assign)
	case '<':
		t = two('=', LTE, LT)
	case '>':
		if l.peekAt(0) == '>' {
			l.next()
			t = Token{Type: Append, Val: ">>", Line: l.line, Col: l.startCol}
		} else {
			t = two('=', GTE, GT)
		}
	case '+':
		if l.peekAt(0) == '+' {
			l.next()
			t = Token{Type: Incr, Val: "++", Line: l.line, Col: l.startCol}
		} else {
			t = two('=', AddAssign, Add)
		}
	case '-':
		if l.peekAt(0) == '-' {
			l.next()
			t = Token{Type: Decr, Val: "--", Line: l.line, Col: l.startCol}
		} else {
			t = two('=', SubAssign, Sub)
		}
	case '*':
		if l.peekAt(0) == '*' {
			l.next()
			t = two('=', PowAssign, Pow)
		} else {
			t = two('=', MulAssign, Mul)
		}
	case '/':
		t = two('=', DivAssign, Div)
	default:
		return l.errTok("unexpected character %q", r), true
	}
	return t, true
}
