package vm

import (
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	e "github.com/loxvm/loxvm/errors"
	"github.com/sirupsen/logrus"
)

// Parser drives scanning and single-pass code generation at once: there is
// no separate AST, every grammar rule emits bytecode directly into the
// Compiler chain's current Chunk as it is recognized.
type Parser struct {
	*Scanner
	*Compiler
	prev, curr Token

	errors    *multierror.Error
	panicMode bool
}

func NewParser() *Parser { return &Parser{} }

// Compiler holds one function's in-progress compile state: its target
// VFun, the locals currently in scope, and a link to the Compiler for the
// function that encloses it (nil at the top-level script).
type Compiler struct {
	enclosing *Compiler
	fun       *VFun
	funType   FunType
	locals    []Local
	depth     int
}

type FunType int

const (
	FFun FunType = iota
	FScript
)

func NewCompiler(enclosing *Compiler, funType FunType) *Compiler {
	return &Compiler{
		enclosing: enclosing,
		fun:       NewVFun(),
		funType:   funType,
		// Slot 0 is reserved for the callee itself.
		locals: []Local{{}},
	}
}

// wrapCompiler pushes a new Compiler nested inside the current one (which
// becomes its enclosing Compiler), used when entering a function body.
func (p *Parser) wrapCompiler(funType FunType) {
	res := NewCompiler(p.Compiler, funType)
	if funType != FScript {
		res.fun.named(p.prev.String())
	}
	p.Compiler = res
}

// Uninit marks a local declared but not yet initialized, so `var x = x;`
// in a local scope is reported as a compile error rather than reading its
// own uninitialized slot.
const Uninit = -1

type Local struct {
	name  Token
	depth int
}

func (c *Compiler) addLocal(name Token) {
	if len(c.locals) >= math.MaxUint8+1 {
		logrus.Panicln("too many local variables in function")
	}
	c.locals = append(c.locals, Local{name, Uninit})
}

/* Expressions */

func (p *Parser) emitConst(val Value) { p.emitBytes(byte(OpConst), p.mkConst(val)) }

func (p *Parser) mkConst(val Value) byte {
	const_ := p.currChunk().AddConst(val)
	if const_ > math.MaxUint8 {
		logrus.Panicln("too many constants in one chunk")
	}
	return byte(const_)
}

func (p *Parser) num(_canAssign bool) {
	val, err := strconv.ParseFloat(p.prev.String(), 64)
	if err != nil {
		p.Error("invalid number literal")
		return
	}
	p.emitConst(VNum(val))
}

func (p *Parser) grouping(_canAssign bool) {
	p.expr()
	p.consume(TRParen, "expect ')' after expression")
}

func (p *Parser) lit(_canAssign bool) {
	switch p.prev.Kind {
	case TFalse:
		p.emitBytes(byte(OpFalse))
	case TNil:
		p.emitBytes(byte(OpNil))
	case TTrue:
		p.emitBytes(byte(OpTrue))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) str(_canAssign bool) {
	runes := p.prev.Runes
	// The lexeme still carries its surrounding quotes; strip them.
	unquoted := string(runes[1 : len(runes)-1])
	p.emitConst(NewVStr(unquoted))
}

func (p *Parser) var_(canAssign bool) { p.namedVar(p.prev, canAssign) }

func (p *Parser) namedVar(name Token, canAssign bool) {
	slot := p.resolveLocal(name)

	var (
		arg      byte
		get, set OpCode
	)
	if slot == Uninit {
		arg, get, set = p.identConst(&name), OpGetGlobal, OpSetGlobal
	} else {
		arg, get, set = byte(slot), OpGetLocal, OpSetLocal
	}

	switch {
	case canAssign && p.match(TEqual):
		p.expr()
		p.emitBytes(byte(set), arg)
	default:
		p.emitBytes(byte(get), arg)
	}
}

func (p *Parser) unary(_canAssign bool) {
	op := p.prev.Kind
	p.parsePrec(PrecUnary)
	switch op {
	case TBang:
		p.emitBytes(byte(OpNot))
	case TMinus:
		p.emitBytes(byte(OpNeg))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) binary(_canAssign bool) {
	op := p.prev.Kind
	rule := parseRules[op]
	p.parsePrec(rule.Prec + 1)
	switch op {
	case TBangEqual:
		p.emitBytes(byte(OpEqual), byte(OpNot))
	case TEqualEqual:
		p.emitBytes(byte(OpEqual))
	case TGreater:
		p.emitBytes(byte(OpGreater))
	case TGreaterEqual:
		p.emitBytes(byte(OpLess), byte(OpNot))
	case TLess:
		p.emitBytes(byte(OpLess))
	case TLessEqual:
		p.emitBytes(byte(OpGreater), byte(OpNot))
	case TPlus:
		p.emitBytes(byte(OpAdd))
	case TMinus:
		p.emitBytes(byte(OpSub))
	case TStar:
		p.emitBytes(byte(OpMul))
	case TSlash:
		p.emitBytes(byte(OpDiv))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) and(_canAssign bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(_canAssign bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call(_canAssign bool) {
	argCount := p.argList()
	p.emitBytes(byte(OpCall), byte(argCount))
}

func (p *Parser) argList() (argCount int) {
	if !p.check(TRParen) {
		for {
			p.expr()
			if argCount++; argCount > math.MaxUint8 {
				p.Error("too many arguments")
			}
			if !p.match(TComma) {
				break
			}
		}
	}
	p.consume(TRParen, "expect ')' after arguments")
	return
}

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

/* Statements */

func (p *Parser) exprStmt() {
	p.expr()
	p.consume(TSemi, "expect ';' after expression")
	p.emitBytes(byte(OpPop))
}

func (p *Parser) printStmt() {
	p.expr()
	p.consume(TSemi, "expect ';' after value")
	p.emitBytes(byte(OpPrint))
}

func (p *Parser) block() {
	for !p.check(TRBrace) && !p.check(TEOF) {
		p.decl()
	}
	p.consume(TRBrace, "expect '}' after block")
}

func (p *Parser) ifStmt() {
	p.consume(TLParen, "expect '(' after 'if'")
	p.expr()
	p.consume(TRParen, "expect ')' after condition")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop))
	p.stmt()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)

	p.emitBytes(byte(OpPop))
	if p.match(TElse) {
		p.stmt()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStmt() {
	// Captured as a local so a loop nested in the body can't clobber it:
	// each call frame gets its own loopStart, not a single shared slot.
	loopStart := len(p.currChunk().code)
	p.consume(TLParen, "expect '(' after 'while'")
	p.expr()
	p.consume(TRParen, "expect ')' after condition")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitBytes(byte(OpPop))
	p.stmt()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitBytes(byte(OpPop))
}

func (p *Parser) forStmt() {
	// for (init; cond; incr) body
	p.beginScope()
	defer p.endScope()

	p.consume(TLParen, "expect '(' after 'for'")
	switch {
	case p.match(TSemi):
		// No initializer.
	case p.match(TVar):
		p.varDecl()
	default:
		p.exprStmt()
	}

	// loopStart is reassigned, not shared state: once an increment clause
	// compiles, the body's back-jump targets the increment instead of the
	// condition, and a loop nested in the body can't clobber either.
	loopStart := len(p.currChunk().code)
	var exitJump *int
	if !p.match(TSemi) {
		p.expr()
		p.consume(TSemi, "expect ';' after loop condition")
		hole := p.emitJump(OpJumpIfFalse)
		exitJump = &hole
		p.emitBytes(byte(OpPop))
	}

	if !p.match(TRParen) {
		bodyJump := p.emitJump(OpJump)
		incrStart := len(p.currChunk().code)
		p.expr()
		p.emitBytes(byte(OpPop))
		p.consume(TRParen, "expect ')' after for clauses")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.stmt()
	p.emitLoop(loopStart)

	if exitJump != nil {
		p.patchJump(*exitJump)
		p.emitBytes(byte(OpPop))
	}
}

func (p *Parser) returnStmt() {
	if p.match(TSemi) {
		p.emitReturn()
		return
	}
	p.expr()
	p.consume(TSemi, "expect ';' after return value")
	p.emitBytes(byte(OpReturn))
}

func (p *Parser) stmt() {
	switch {
	case p.match(TPrint):
		p.printStmt()
	case p.match(TFor):
		p.forStmt()
	case p.match(TIf):
		p.ifStmt()
	case p.match(TReturn):
		if p.funType == FScript {
			p.Error("can't return from top-level code")
			return
		}
		p.returnStmt()
	case p.match(TWhile):
		p.whileStmt()
	case p.match(TLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.exprStmt()
	}
}

func (p *Parser) fun_() {
	p.wrapCompiler(FFun)
	p.beginScope()

	p.consume(TLParen, "expect '(' after function name")
	if !p.check(TRParen) {
		for {
			if p.fun.Arity++; p.fun.Arity > math.MaxUint8 {
				p.ErrorAtCurr("too many parameters")
			}
			param := p.parseVar("expect parameter name")
			p.defVar(param)
			if !p.match(TComma) {
				break
			}
		}
	}
	p.consume(TRParen, "expect ')' after parameters")
	p.consume(TLBrace, "expect '{' before function body")
	p.block()

	fun := p.endCompiler(false)
	p.emitBytes(byte(OpConst), p.mkConst(fun))
}

func (p *Parser) funDecl() {
	global := p.parseVar("expect function name")
	validName := p.checkPrev(TIdent)
	// Mark the function initialized before compiling its body, so a
	// recursive call to its own name resolves.
	p.markInit()
	p.fun_()
	if validName {
		p.defVar(global)
	}
}

func (p *Parser) varDecl() {
	global := p.parseVar("expect variable name")
	validName := p.checkPrev(TIdent)
	switch {
	case p.match(TEqual):
		p.expr()
	default:
		p.emitBytes(byte(OpNil))
	}
	p.consume(TSemi, "expect ';' after variable declaration")
	if validName {
		p.defVar(global)
	}
}

func (p *Parser) decl() {
	switch {
	case p.match(TFun):
		p.funDecl()
	case p.match(TVar):
		p.varDecl()
	default:
		p.stmt()
	}
	if p.panicMode {
		p.sync()
	}
}

/* Pratt table */

type ParseFn = func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules []ParseRule

func init() {
	parseRules = make([]ParseRule, TEOF+1)
	parseRules[TLParen] = ParseRule{(*Parser).grouping, (*Parser).call, PrecCall}
	parseRules[TMinus] = ParseRule{(*Parser).unary, (*Parser).binary, PrecTerm}
	parseRules[TPlus] = ParseRule{nil, (*Parser).binary, PrecTerm}
	parseRules[TSlash] = ParseRule{nil, (*Parser).binary, PrecFactor}
	parseRules[TStar] = ParseRule{nil, (*Parser).binary, PrecFactor}
	parseRules[TBang] = ParseRule{(*Parser).unary, nil, PrecNone}
	parseRules[TBangEqual] = ParseRule{nil, (*Parser).binary, PrecEqual}
	parseRules[TEqualEqual] = ParseRule{nil, (*Parser).binary, PrecEqual}
	parseRules[TGreater] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TGreaterEqual] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TLess] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TLessEqual] = ParseRule{nil, (*Parser).binary, PrecComp}
	parseRules[TIdent] = ParseRule{(*Parser).var_, nil, PrecNone}
	parseRules[TStr] = ParseRule{(*Parser).str, nil, PrecNone}
	parseRules[TNum] = ParseRule{(*Parser).num, nil, PrecNone}
	parseRules[TAnd] = ParseRule{nil, (*Parser).and, PrecAnd}
	parseRules[TFalse] = ParseRule{(*Parser).lit, nil, PrecNone}
	parseRules[TNil] = ParseRule{(*Parser).lit, nil, PrecNone}
	parseRules[TOr] = ParseRule{nil, (*Parser).or, PrecOr}
	parseRules[TTrue] = ParseRule{(*Parser).lit, nil, PrecNone}
	// TClass, TThis, TSuper are reserved keywords with no expression form
	// yet: they fall through parsePrec's nil-prefix check below and
	// report "Expected expression.", same as any other non-expression token.
}

func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	prefix := parseRules[p.prev.Kind].Prefix
	if prefix == nil {
		p.Error("Expected expression.")
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	for {
		rule := parseRules[p.curr.Kind]
		if rule.Prec < prec {
			break
		}
		p.advance()
		if rule.Infix == nil {
			panic(e.Unreachable)
		}
		rule.Infix(p, canAssign)
	}

	if canAssign && p.match(TEqual) {
		p.Error("invalid assignment target")
	}
}

/* Parsing helpers */

func (p *Parser) check(k TokenKind) bool     { return p.curr.Kind == k }
func (p *Parser) checkPrev(k TokenKind) bool { return p.prev.Kind == k }

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		p.curr = p.ScanToken()
		if p.check(TComment) {
			continue
		}
		if !p.check(TErr) {
			break
		}
		p.ErrorAtCurr(p.curr.String())
	}
}

func (p *Parser) match(k TokenKind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(k TokenKind, reason string) *Token {
	if !p.check(k) {
		p.ErrorAtCurr(reason)
		return nil
	}
	p.advance()
	return &p.prev
}

/* Driving a compile */

// Compile parses src and emits the top-level script function. In REPL
// mode, a bare expression with no trailing ';' is also accepted, so the
// line's value can be echoed back.
func (p *Parser) Compile(src string, isREPL bool) (*VFun, error) {
	res, err := p.compileWithRule(src, false, func(p *Parser) {
		for !p.match(TEOF) {
			p.decl()
		}
	})
	if isREPL && err != nil {
		declsErr := err
		exprRes, exprErr := p.compileWithRule(src, true, func(p *Parser) {
			p.expr()
			p.match(TEOF)
		})
		if exprErr != nil {
			return nil, declsErr
		}
		return exprRes, nil
	}
	return res, err
}

// compileWithRule runs rule under a fresh top-level Compiler. When
// bareExpr is set, rule is expected to leave exactly one value on the
// stack (a lone expression), which becomes the script's return value
// instead of the implicit nil every statement-based script returns.
func (p *Parser) compileWithRule(src string, bareExpr bool, rule func(*Parser)) (*VFun, error) {
	p.Compiler = nil
	p.errors = nil
	p.panicMode = false
	p.wrapCompiler(FScript)
	p.Scanner = NewScanner(src)

	p.advance()
	rule(p)
	res := p.endCompiler(bareExpr)
	return res, p.errors.ErrorOrNil()
}

func (p *Parser) currChunk() *Chunk { return p.fun.Chunk }

func (p *Parser) emitBytes(bs ...byte) {
	loc := Loc{p.prev.Line, p.prev.Col}
	for _, b := range bs {
		p.currChunk().Write(b, loc)
	}
}

func (p *Parser) emitReturn() { p.emitBytes(byte(OpNil), byte(OpReturn)) }

// endCompiler closes out the current function body. bareExpr is true only
// for a REPL's bare-expression compile, where the expression's value is
// already the sole stack slot to return; everywhere else an implicit nil
// covers a function/script falling off its end without a return statement.
func (p *Parser) endCompiler(bareExpr bool) *VFun {
	if bareExpr {
		p.emitBytes(byte(OpReturn))
	} else {
		p.emitReturn()
	}
	res := p.fun
	p.Compiler = p.Compiler.enclosing
	return res
}

func (p *Parser) identConst(name *Token) byte { return p.mkConst(NewVStr(name.String())) }

func (p *Parser) markInit() {
	if p.depth == 0 {
		return
	}
	p.locals[len(p.locals)-1].depth = p.depth
}

func (p *Parser) defVar(global *byte) {
	if global == nil || p.depth > 0 {
		p.markInit()
		return
	}
	p.emitBytes(byte(OpDefGlobal), *global)
}

func (p *Parser) parseVar(reason string) *byte {
	target := p.consume(TIdent, reason)
	if target == nil {
		return nil
	}
	p.declVar()
	if p.depth > 0 {
		return nil
	}
	res := p.identConst(target)
	return &res
}

func (p *Parser) declVar() {
	if p.depth == 0 {
		return
	}
	name := p.prev
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if local.depth != Uninit && local.depth < p.depth {
			break
		}
		if name.Eq(local.name) {
			p.Error("already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

func (p *Parser) beginScope() { p.depth++ }

func (p *Parser) endScope() {
	p.depth--
	for len(p.locals) > 0 && p.locals[len(p.locals)-1].depth > p.depth {
		p.emitBytes(byte(OpPop))
		p.locals = p.locals[:len(p.locals)-1]
	}
}

func (p *Parser) resolveLocal(name Token) (slot int) {
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if name.Eq(local.name) {
			if local.depth == Uninit {
				p.Error("can't read local variable in its own initializer")
			}
			return i
		}
	}
	return Uninit
}

// emitJump emits inst followed by a one-byte placeholder operand, and
// returns the operand's offset for a later patchJump.
func (p *Parser) emitJump(inst OpCode) (offset int) {
	p.emitBytes(byte(inst), 0xff)
	return len(p.currChunk().code) - 1
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.currChunk().code) - (offset + 1)
	if jump > math.MaxUint8 {
		p.Error("too much code to jump over")
		return
	}
	p.currChunk().patch(offset, byte(jump))
}

func (p *Parser) emitLoop(start int) {
	p.emitBytes(byte(OpLoop))
	backJump := len(p.currChunk().code) + 1 - start
	if backJump > math.MaxUint8 {
		p.Error("loop body too large")
		return
	}
	p.emitBytes(byte(backJump))
}

/* Precedence */

type Prec int

const (
	PrecNone   Prec = iota
	PrecAssign      // =
	PrecOr          // or
	PrecAnd         // and
	PrecEqual       // == !=
	PrecComp        // < > <= >=
	PrecTerm        // + -
	PrecFactor      // * /
	PrecUnary       // ! -
	PrecCall        // . ()
	PrecPrimary
)

/* Error handling */

// sync implements panic-mode recovery: skip tokens until a statement
// boundary, so one error doesn't cascade into a flood of bogus ones.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(TEOF) && !p.checkPrev(TSemi) {
		switch p.curr.Kind {
		case TClass, TFun, TVar, TFor, TIf, TWhile, TPrint, TReturn:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) ErrorAt(tk Token, reason string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	err := &e.CompileError{
		Line:   tk.Line,
		Col:    tk.Col,
		AtEnd:  tk.Kind == TEOF,
		Reason: reason,
	}
	p.errors = multierror.Append(p.errors, err)
}

func (p *Parser) Error(reason string)       { p.ErrorAt(p.prev, reason) }
func (p *Parser) ErrorAtCurr(reason string) { p.ErrorAt(p.curr, reason) }
func (p *Parser) HadError() bool            { return p.errors != nil }
