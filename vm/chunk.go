package vm

import (
	"fmt"

	"github.com/loxvm/loxvm/debug"
)

type OpCode byte

const (
	OpReturn OpCode = iota
	OpConst
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpNot
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
)

// Loc is a source position, carried in lockstep with Chunk.code so a
// runtime error can report where the offending instruction came from.
type Loc struct {
	Line, Col int
}

// Chunk is one function's compiled bytecode: a flat byte stream, a
// parallel Loc per byte (contract: len(loc) == len(code)), and a
// constant pool indexed by position (see AddConst). All operands (jump
// offsets, constant indices, local slots, call argc) are a single byte wide; the
// compiler refuses to emit an operand that would overflow one.
type Chunk struct {
	code   []byte
	loc    []Loc
	consts []Value
}

func NewChunk() *Chunk { return &Chunk{} }

func (c *Chunk) Write(b byte, loc Loc) {
	c.code = append(c.code, b)
	c.loc = append(c.loc, loc)
}

// AddConst appends const_ to the pool and returns its index. Unlike
// globals, constants are not deduplicated by value: identical literals
// compiled at different call sites get distinct slots, matching how the
// compiler emits one OpConst per occurrence.
func (c *Chunk) AddConst(const_ Value) (idx int) {
	idx = len(c.consts)
	c.consts = append(c.consts, const_)
	return
}

// patch overwrites the byte at offset, used to back-patch jump operands
// once the target address is known.
func (c *Chunk) patch(offset int, b byte) {
	debug.Assertf(offset >= 0 && offset < len(c.code), "patch offset %d out of range", offset)
	c.code[offset] = b
}

func (c *Chunk) DisassembleInst(offset int) (res string, newOffset int) {
	sprintf := func(format string, a ...any) { res += fmt.Sprintf(format, a...) }

	sprintf("%04d ", offset)
	if offset > 0 && c.loc[offset].Line == c.loc[offset-1].Line {
		sprintf("   | ")
	} else {
		sprintf("%4d ", c.loc[offset].Line)
	}

	switch inst := OpCode(c.code[offset]); inst {
	case OpConst, OpGetGlobal, OpDefGlobal, OpSetGlobal:
		const_ := c.code[offset+1]
		sprintf("%-16s %4d '%s'", inst, const_, c.consts[const_])
		return res, offset + 2
	case OpGetLocal, OpSetLocal:
		slot := c.code[offset+1]
		sprintf("%-16s %4d", inst, slot)
		return res, offset + 2
	case OpCall:
		argc := c.code[offset+1]
		sprintf("%-16s %4d args", inst, argc)
		return res, offset + 2
	case OpJump, OpJumpIfFalse:
		off := c.code[offset+1]
		sprintf("%-16s %4d -> %d", inst, off, offset+2+int(off))
		return res, offset + 2
	case OpLoop:
		off := c.code[offset+1]
		sprintf("%-16s %4d -> %d", inst, off, offset+2-int(off))
		return res, offset + 2
	default:
		sprintf("%s", inst)
		return res, offset + 1
	}
}

func (c *Chunk) Disassemble(name string) (res string) {
	res = fmt.Sprintf("== %s ==\n", name)
	for i := 0; i < len(c.code); {
		var delta string
		delta, i = c.DisassembleInst(i)
		res += delta + "\n"
	}
	return res
}
