package vm

// Scanner turns a UTF-8 source string into a stream of Tokens, one
// ScanToken call at a time. It keeps one lexeme's worth of lookahead
// state (start/current cursors) plus a line/col cursor for diagnostics.
type Scanner struct {
	start, curr          int
	line, col, colStart  int
	src                  []rune
}

func NewScanner(src string) *Scanner {
	return &Scanner{src: []rune(src), line: 1}
}

// ScanToken skips leading blank space, then recognizes exactly one token.
// Comments are NOT skipped here: they come back as TComment tokens and are
// filtered out by the parser's advance(), one layer up.
func (s *Scanner) ScanToken() Token {
	s.skipBlank()
	s.start, s.colStart = s.curr, s.col
	if s.isAtEnd() {
		return s.makeToken(TEOF)
	}

	c := s.advance()
	switch {
	case isDigit(c):
		return s.number()
	case isAlpha(c):
		for p := s.peek(); isAlpha(p) || isDigit(p); p = s.peek() {
			s.advance()
		}
		return s.makeToken(s.identKind())
	}

	switch c {
	case '(':
		return s.makeToken(TLParen)
	case ')':
		return s.makeToken(TRParen)
	case '{':
		return s.makeToken(TLBrace)
	case '}':
		return s.makeToken(TRBrace)
	case ';':
		return s.makeToken(TSemi)
	case ',':
		return s.makeToken(TComma)
	case '.':
		return s.makeToken(TDot)
	case '-':
		return s.makeToken(TMinus)
	case '+':
		return s.makeToken(TPlus)
	case '*':
		return s.makeToken(TStar)

	case '!':
		if s.match('=') {
			return s.makeToken(TBangEqual)
		}
		return s.makeToken(TBang)
	case '=':
		if s.match('=') {
			return s.makeToken(TEqualEqual)
		}
		return s.makeToken(TEqual)
	case '<':
		if s.match('=') {
			return s.makeToken(TLessEqual)
		}
		return s.makeToken(TLess)
	case '>':
		if s.match('=') {
			return s.makeToken(TGreaterEqual)
		}
		return s.makeToken(TGreater)

	case '/':
		switch {
		case s.match('/'):
			return s.lineComment()
		case s.match('*'):
			return s.blockComment()
		default:
			return s.makeToken(TSlash)
		}

	case '"', '\'':
		return s.string(c)
	}

	s.nextBlank()
	return s.errorToken("unexpected character")
}

// skipBlank advances past runs of plain whitespace.
func (s *Scanner) skipBlank() {
	for {
		switch s.peek() {
		case '\n':
			s.advance()
			s.line++
			s.col = 0
		case ' ', '\t', '\r':
			s.advance()
		default:
			return
		}
	}
}

// nextBlank is the lexer's crude local error recovery: skip forward to the
// next whitespace boundary so a single bad character doesn't cascade.
func (s *Scanner) nextBlank() {
	for {
		switch s.peek() {
		case 0, ' ', '\t', '\r', '\n':
			return
		default:
			s.advance()
		}
	}
}

func (s *Scanner) lineComment() Token {
	for s.peek() != '\n' && !s.isAtEnd() {
		s.advance()
	}
	return s.makeToken(TComment)
}

func (s *Scanner) blockComment() Token {
	for {
		switch {
		case s.isAtEnd():
			return s.errorToken("unterminated block comment")
		case s.peek() == '\n':
			s.advance()
			s.line++
			s.col = 0
		case s.peek() == '*' && s.peekAt(1) == '/':
			s.advance()
			s.advance()
			return s.makeToken(TComment)
		default:
			s.advance()
		}
	}
}

func (s *Scanner) string(quote rune) Token {
	for {
		if s.isAtEnd() {
			return s.errorToken("unterminated string")
		}
		switch c := s.peek(); c {
		case quote:
			s.advance()
			return s.makeToken(TStr)
		case '\n':
			s.advance()
			s.line++
			s.col = 0
		default:
			s.advance()
		}
	}
}

func (s *Scanner) number() Token {
	for isDigit(s.peek()) {
		s.advance()
	}

	// Consume the fractional part only if a digit follows the dot, so a
	// bare trailing '.' (e.g. in "1.method()"-style code, not that this
	// language has methods) is left for the next token.
	hasFrac := s.peek() == '.' && isDigit(s.peekAt(1))
	if hasFrac {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	switch {
	// A dot only means trouble once a fraction has already been
	// consumed: a second '.' (e.g. "1.2.3") has no valid reading, while
	// a lone trailing '.' with no digit after it was never consumed
	// above and belongs to the next token.
	case hasFrac && s.peek() == '.':
		s.nextBlank()
		return s.errorToken("invalid number")
	case isAlpha(s.peek()):
		s.nextBlank()
		return s.errorToken("invalid number")
	}

	return s.makeToken(TNum)
}

func (s *Scanner) advance() rune {
	c := s.src[s.curr]
	s.curr++
	s.col++
	return c
}

func (s *Scanner) peek() rune {
	if s.isAtEnd() {
		return 0
	}
	return s.src[s.curr]
}

func (s *Scanner) peekAt(n int) rune {
	if s.curr+n >= len(s.src) {
		return 0
	}
	return s.src[s.curr+n]
}

func (s *Scanner) match(expected rune) bool {
	if s.peek() != expected {
		return false
	}
	s.advance()
	return true
}

func (s *Scanner) isAtEnd() bool { return s.curr >= len(s.src) }

func isAlpha(c rune) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }
func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func (s *Scanner) makeToken(k TokenKind) Token {
	return Token{
		Kind:  k,
		Line:  s.line,
		Col:   s.colStart,
		Span:  Span{s.start, s.curr},
		Runes: s.src[s.start:s.curr],
	}
}

func (s *Scanner) errorToken(reason string) Token {
	t := s.makeToken(TErr)
	t.Runes = []rune(reason)
	return t
}

func (s *Scanner) identKind() TokenKind {
	check := func(start int, rest string, kind TokenKind) TokenKind {
		absStart := s.start + start
		if s.curr-absStart == len(rest) &&
			string(s.src[absStart:s.curr]) == rest {
			return kind
		}
		return TIdent
	}

	switch s.src[s.start] {
	case 'a':
		return check(1, "nd", TAnd)
	case 'c':
		return check(1, "lass", TClass)
	case 'e':
		return check(1, "lse", TElse)
	case 'i':
		return check(1, "f", TIf)
	case 'n':
		return check(1, "il", TNil)
	case 'o':
		return check(1, "r", TOr)
	case 'p':
		return check(1, "rint", TPrint)
	case 'r':
		return check(1, "eturn", TReturn)
	case 's':
		return check(1, "uper", TSuper)
	case 'v':
		return check(1, "ar", TVar)
	case 'w':
		return check(1, "hile", TWhile)
	case 'f':
		if s.curr-s.start > 1 {
			switch s.src[s.start+1] {
			case 'a':
				return check(2, "lse", TFalse)
			case 'o':
				return check(2, "r", TFor)
			case 'u':
				return check(2, "n", TFun)
			}
		}
	case 't':
		if s.curr-s.start > 1 {
			switch s.src[s.start+1] {
			case 'h':
				return check(2, "is", TThis)
			case 'r':
				return check(2, "ue", TTrue)
			}
		}
	}
	return TIdent
}
