package rules

import (
	"strings"
)

type tokenType int

const (
	tEOF tokenType = iota
	tCol
	tNumber
	tString
	tSymbol
	tKeyword
	tIdent
)

type token struct {
	Typ tokenType
	Val string
	Num int // decoded column index for tCol
	Pos int
}

type lexer struct {
	s   string
	pos int
}

func newLexer(s string) *lexer { return &lexer{s: s} }

func (lx *lexer) peek() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	return lx.s[lx.pos]
}

func (lx *lexer) peekN(n int) byte {
	p := lx.pos + n
	if p >= len(lx.s) {
		return 0
	}
	return lx.s[p]
}

func (lx *lexer) next() byte {
	if lx.pos >= len(lx.s) {
		return 0
	}
	b := lx.s[lx.pos]
	lx.pos++
	return b
}

func (lx *lexer) skipWS() {
	for lx.pos < len(lx.s) {
		b := lx.s[lx.pos]
		if b == ' ' || b == '\t' || b == '\r' {
			lx.pos++
			continue
		}
		return
	}
}

// nextToken returns the next token in the stream. Characters that match no
// production (stray punctuation outside the recognized symbol set) are
// skipped rather than aborting the scan — the lexer always yields what it
// can, leaving rejection of malformed input to the parser.
func (lx *lexer) nextToken() token {
	for {
		lx.skipWS()
		start := lx.pos
		if start >= len(lx.s) {
			return token{Typ: tEOF, Pos: start}
		}
		b := lx.peek()
		switch {
		case b == '"':
			return lx.tokenizeString(start)
		case isDigit(b):
			return lx.tokenizeNumberOrCol(start)
		case isAlpha(b):
			return lx.tokenizeIdentOrKeyword(start)
		}
		if tok, ok := lx.tokenizeSymbol(start); ok {
			return tok
		}
		// Unrecognized character: skip it and keep scanning.
		lx.pos++
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b == '_'
}

// tokenizeString consumes a double-quoted run with no escape sequences; the
// surrounding quotes are stripped from the token value.
func (lx *lexer) tokenizeString(start int) token {
	lx.next() // opening quote
	var val strings.Builder
	for lx.pos < len(lx.s) && lx.s[lx.pos] != '"' {
		val.WriteByte(lx.next())
	}
	if lx.pos < len(lx.s) {
		lx.next() // closing quote
	}
	return token{Typ: tString, Val: val.String(), Pos: start}
}

// tokenizeNumberOrCol scans a leading digit run and decides, by what
// follows, whether it is a column reference (digits + C/c), a floating
// number (digits '.' digits), or a plain integer.
func (lx *lexer) tokenizeNumberOrCol(start int) token {
	var digits strings.Builder
	for lx.pos < len(lx.s) && isDigit(lx.peek()) {
		digits.WriteByte(lx.next())
	}
	if b := lx.peek(); b == 'C' || b == 'c' {
		lx.next()
		return token{Typ: tCol, Val: digits.String(), Num: atoiSafe(digits.String()), Pos: start}
	}
	if lx.peek() == '.' {
		digits.WriteByte(lx.next())
		for lx.pos < len(lx.s) && isDigit(lx.peek()) {
			digits.WriteByte(lx.next())
		}
	}
	return token{Typ: tNumber, Val: digits.String(), Pos: start}
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}

// tokenizeIdentOrKeyword scans [A-Za-z_][A-Za-z0-9_]* and classifies it against the
// fixed, case-insensitive keyword table.
func (lx *lexer) tokenizeIdentOrKeyword(start int) token {
	var val strings.Builder
	for lx.pos < len(lx.s) && (isAlpha(lx.peek()) || isDigit(lx.peek())) {
		val.WriteByte(lx.next())
	}
	up := strings.ToUpper(val.String())
	if up == "STRING" {
		up = "STRING_TYPE"
	}
	if isKeyword(up) {
		return token{Typ: tKeyword, Val: up, Pos: start}
	}
	return token{Typ: tIdent, Val: val.String(), Pos: start}
}

// tokenizeSymbol recognizes operators and punctuation, including the
// two-character comparison operators (!=, >=, <=).
func (lx *lexer) tokenizeSymbol(start int) (token, bool) {
	b := lx.peek()
	switch b {
	case '+', '-', '*', '/', '(', ')':
		lx.next()
		return token{Typ: tSymbol, Val: string(b), Pos: start}, true
	case '=':
		lx.next()
		return token{Typ: tSymbol, Val: "=", Pos: start}, true
	case '!':
		if lx.peekN(1) == '=' {
			lx.next()
			lx.next()
			return token{Typ: tSymbol, Val: "!=", Pos: start}, true
		}
		return token{}, false
	case '>':
		lx.next()
		if lx.peek() == '=' {
			lx.next()
			return token{Typ: tSymbol, Val: ">=", Pos: start}, true
		}
		return token{Typ: tSymbol, Val: ">", Pos: start}, true
	case '<':
		lx.next()
		if lx.peek() == '=' {
			lx.next()
			return token{Typ: tSymbol, Val: "<=", Pos: start}, true
		}
		return token{Typ: tSymbol, Val: "<", Pos: start}, true
	}
	return token{}, false
}

var keywordTable = map[string]bool{
	"IS": true, "BETWEEN": true, "AND": true,
	"MATCHES": true, "CONTAINS": true, "NOT_CONTAINS": true,
	"STARTS_WITH": true, "ENDS_WITH": true,
	"ALPHANUM": true, "NUMERIC": true, "INTEGER": true, "FLOAT": true,
	"STRING_TYPE": true, "REQUIRED": true,
}

func isKeyword(up string) bool { return keywordTable[up] }
