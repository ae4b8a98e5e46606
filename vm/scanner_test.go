package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func scanAll(src string) []Token {
	s := NewScanner(src)
	var toks []Token
	for {
		tok := s.ScanToken()
		toks = append(toks, tok)
		if tok.Kind == TEOF {
			return toks
		}
	}
}

func TestScanPunctuation(t *testing.T) {
	toks := scanAll("(){};,.-+*/!= == <= >=")
	kinds := make([]TokenKind, 0, len(toks))
	for _, tok := range toks {
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []TokenKind{
		TLParen, TRParen, TLBrace, TRBrace, TSemi, TComma, TDot,
		TMinus, TPlus, TStar, TSlash, TBangEqual, TEqualEqual,
		TLessEqual, TGreaterEqual, TEOF,
	}, kinds)
}

func TestScanKeywordsVsIdents(t *testing.T) {
	toks := scanAll("class this super nil classy")
	assert.Equal(t, TClass, toks[0].Kind)
	assert.Equal(t, TThis, toks[1].Kind)
	assert.Equal(t, TSuper, toks[2].Kind)
	assert.Equal(t, TNil, toks[3].Kind)
	assert.Equal(t, TIdent, toks[4].Kind)
}

func TestScanStringBothQuotes(t *testing.T) {
	toks := scanAll(`"double" 'single'`)
	assert.Equal(t, TStr, toks[0].Kind)
	assert.Equal(t, `"double"`, toks[0].String())
	assert.Equal(t, TStr, toks[1].Kind)
	assert.Equal(t, `'single'`, toks[1].String())
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(`"oops`)
	assert.Equal(t, TErr, toks[0].Kind)
	assert.Equal(t, "unterminated string", toks[0].String())
}

func TestScanNumberTrailingDot(t *testing.T) {
	// A number followed by a bare '.' with no digit after it is just the
	// number, with the dot left for the next token.
	toks := scanAll("1.")
	assert.Equal(t, TNum, toks[0].Kind)
	assert.Equal(t, "1", toks[0].String())
	assert.Equal(t, TDot, toks[1].Kind)
}

func TestScanNumberFraction(t *testing.T) {
	toks := scanAll("3.14")
	assert.Equal(t, TNum, toks[0].Kind)
	assert.Equal(t, "3.14", toks[0].String())
}

func TestScanNumberDoubleDotIsError(t *testing.T) {
	toks := scanAll("1.2.3")
	assert.Equal(t, TErr, toks[0].Kind)
}

func TestScanLineComment(t *testing.T) {
	toks := scanAll("1 // a comment\n2")
	assert.Equal(t, TNum, toks[0].Kind)
	assert.Equal(t, TComment, toks[1].Kind)
	assert.Equal(t, TNum, toks[2].Kind)
}

func TestScanBlockComment(t *testing.T) {
	toks := scanAll("1 /* spans\nlines */ 2")
	assert.Equal(t, TNum, toks[0].Kind)
	assert.Equal(t, TComment, toks[1].Kind)
	assert.Equal(t, TNum, toks[2].Kind)
	assert.Equal(t, 2, toks[2].Line)
}

func TestScanColTracksAcrossLines(t *testing.T) {
	toks := scanAll("ab\ncd")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 0, toks[0].Col)
	assert.Equal(t, 2, toks[1].Line)
	assert.Equal(t, 0, toks[1].Col)
}
