package vm

import "golang.org/x/exp/slices"

//go:generate stringer -type=TokenKind
type TokenKind int

const (
	TLParen TokenKind = iota
	TRParen
	TLBrace
	TRBrace
	TComma
	TDot
	TSemi
	TMinus
	TPlus
	TSlash
	TStar

	TBang
	TBangEqual
	TEqual
	TEqualEqual
	TGreater
	TGreaterEqual
	TLess
	TLessEqual

	TIdent
	TNum
	TStr

	TAnd
	TClass
	TElse
	TFalse
	TFor
	TFun
	TIf
	TNil
	TOr
	TPrint
	TReturn
	TSuper
	TThis
	TTrue
	TVar
	TWhile

	TComment
	TErr
	TEOF
)

func (k TokenKind) String() string {
	switch k {
	case TLParen:
		return "TLParen"
	case TRParen:
		return "TRParen"
	case TLBrace:
		return "TLBrace"
	case TRBrace:
		return "TRBrace"
	case TComma:
		return "TComma"
	case TDot:
		return "TDot"
	case TSemi:
		return "TSemi"
	case TMinus:
		return "TMinus"
	case TPlus:
		return "TPlus"
	case TSlash:
		return "TSlash"
	case TStar:
		return "TStar"
	case TBang:
		return "TBang"
	case TBangEqual:
		return "TBangEqual"
	case TEqual:
		return "TEqual"
	case TEqualEqual:
		return "TEqualEqual"
	case TGreater:
		return "TGreater"
	case TGreaterEqual:
		return "TGreaterEqual"
	case TLess:
		return "TLess"
	case TLessEqual:
		return "TLessEqual"
	case TIdent:
		return "TIdent"
	case TNum:
		return "TNum"
	case TStr:
		return "TStr"
	case TAnd:
		return "TAnd"
	case TClass:
		return "TClass"
	case TElse:
		return "TElse"
	case TFalse:
		return "TFalse"
	case TFor:
		return "TFor"
	case TFun:
		return "TFun"
	case TIf:
		return "TIf"
	case TNil:
		return "TNil"
	case TOr:
		return "TOr"
	case TPrint:
		return "TPrint"
	case TReturn:
		return "TReturn"
	case TSuper:
		return "TSuper"
	case TThis:
		return "TThis"
	case TTrue:
		return "TTrue"
	case TVar:
		return "TVar"
	case TWhile:
		return "TWhile"
	case TComment:
		return "TComment"
	case TErr:
		return "TErr"
	case TEOF:
		return "TEOF"
	default:
		return "TokenKind(?)"
	}
}

// Span is a closed-open pair [Start, End) of rune indices into the source
// borrowed by the Lexer for the lifetime of one compile. The indices count
// runes, not bytes, so they differ from byte offsets once the source holds
// multi-byte UTF-8 characters.
type Span struct{ Start, End int }

// Token is the Lexer's sole output unit: a kind, its source position, and
// the span of the lexeme (or, for TErr, the error message) that produced it.
type Token struct {
	Kind TokenKind
	Line int
	Col  int
	Span Span
	// Runes backs String(); for TErr it holds the error message instead
	// of a lexeme.
	Runes []rune
}

func (t Token) String() string { return string(t.Runes) }

// Eq compares two tokens by kind and lexeme, ignoring position — used to
// detect shadowing/duplicate local declarations by name.
func (t Token) Eq(u Token) bool { return t.Kind == u.Kind && slices.Equal(t.Runes, u.Runes) }
