package vm

import (
	"fmt"

	"github.com/loxvm/loxvm/debug"
	e "github.com/loxvm/loxvm/errors"
	"github.com/sirupsen/logrus"
)

// maxFrames bounds recursion depth; exceeding it is a "Stack overflow."
// runtime error rather than a Go stack overflow.
const maxFrames = 255

// CallFrame is one active function activation: its function (for the
// chunk and disassembly name), the instruction pointer into that
// function's chunk, and the base stack slot its locals start at.
type CallFrame struct {
	fn       *VFun
	ip       int
	slotBase int
}

// VM is a single-threaded bytecode interpreter: a value stack shared by
// all active frames, a call-frame stack, and a globals table that
// outlives any one Interpret call (so a REPL session accumulates state
// across lines).
type VM struct {
	frames  []CallFrame
	stack   []Value
	globals map[string]Value
}

func NewVM() *VM {
	vm := &VM{globals: map[string]Value{}}
	vm.defineNative("clock", 0, nativeClock)
	return vm
}

func (vm *VM) defineNative(name string, arity int, fn func(args []Value) (Value, error)) {
	vm.globals[name] = &NativeFn{Name: name, Arity: arity, Fn: fn}
}

func (vm *VM) push(val Value) { vm.stack = append(vm.stack, val) }

func (vm *VM) pop() (last Value) {
	len_ := len(vm.stack)
	vm.stack, last = vm.stack[:len_-1], vm.stack[len_-1]
	return
}

func (vm *VM) peek(distFromTop int) Value { return vm.stack[len(vm.stack)-1-distFromTop] }

// Interpret compiles and runs one chunk of source. A REPL line resets the
// stack and call frames beforehand but keeps globals, so top-level `var`
// and `fun` declarations persist across lines the way a real session
// expects; a failed compile leaves the VM's prior state untouched.
func (vm *VM) Interpret(src string, isREPL bool) (Value, error) {
	parser := NewParser()
	fun, err := parser.Compile(src, isREPL)
	if err != nil {
		return nil, err
	}
	return vm.InterpretFunction(fun)
}

// InterpretFunction runs an already-compiled top-level script function,
// letting a caller (e.g. the CLI's --disassemble mode) inspect the
// compiled Chunk before it runs.
func (vm *VM) InterpretFunction(fun *VFun) (Value, error) {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]

	vm.push(fun)
	vm.frames = append(vm.frames, CallFrame{fn: fun, slotBase: 0})

	return vm.run()
}

func (vm *VM) frame() *CallFrame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) run() (Value, error) {
	readByte := func() (res byte) {
		f := vm.frame()
		res = f.fn.Chunk.code[f.ip]
		f.ip++
		return
	}
	readConst := func() Value { return vm.frame().fn.Chunk.consts[readByte()] }
	readShort := func() int {
		off := int(readByte())
		return off
	}

	for {
		f := vm.frame()
		if debug.DEBUG {
			logrus.Debugln(vm.stackTrace())
			inst, _ := f.fn.Chunk.DisassembleInst(f.ip)
			logrus.Debugln(inst)
		}

		loc := f.fn.Chunk.loc[f.ip]
		switch inst := OpCode(readByte()); inst {
		case OpConst:
			vm.push(readConst())
		case OpNil:
			vm.push(VNil{})
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpPop:
			vm.pop()

		case OpGetLocal:
			slot := readByte()
			vm.push(vm.stack[f.slotBase+int(slot)])
		case OpSetLocal:
			slot := readByte()
			vm.stack[f.slotBase+int(slot)] = vm.peek(0)

		case OpGetGlobal:
			name := readConst().(VStr)
			val, ok := vm.globals[string(name)]
			if !ok {
				return nil, vm.runtimeErr(loc, "Undefined variable '%s'.", name)
			}
			vm.push(val)
		case OpDefGlobal:
			name := readConst().(VStr)
			vm.globals[string(name)] = vm.pop()
		case OpSetGlobal:
			name := readConst().(VStr)
			if _, ok := vm.globals[string(name)]; !ok {
				return nil, vm.runtimeErr(loc, "Undefined variable '%s'.", name)
			}
			vm.globals[string(name)] = vm.peek(0)

		case OpEqual:
			rhs, lhs := vm.pop(), vm.pop()
			vm.push(VBool(ValuesEqual(lhs, rhs)))
		case OpGreater, OpLess:
			rhs, rhsOk := vm.peek(0).(VNum)
			lhs, lhsOk := vm.peek(1).(VNum)
			if !rhsOk || !lhsOk {
				return nil, vm.runtimeErr(loc, "Operands must be numbers.")
			}
			vm.pop()
			vm.pop()
			if inst == OpGreater {
				vm.push(VBool(lhs > rhs))
			} else {
				vm.push(VBool(lhs < rhs))
			}
		case OpNot:
			vm.push(VBool(IsFalsy(vm.pop())))
		case OpNeg:
			num, ok := vm.peek(0).(VNum)
			if !ok {
				return nil, vm.runtimeErr(loc, "Operand must be a number.")
			}
			vm.pop()
			vm.push(-num)

		case OpAdd:
			rhs, lhs := vm.peek(0), vm.peek(1)
			switch rhs := rhs.(type) {
			case VNum:
				lhs, ok := lhs.(VNum)
				if !ok {
					return nil, vm.runtimeErr(loc, "Operands must be two numbers or two strings.")
				}
				vm.pop()
				vm.pop()
				vm.push(lhs + rhs)
			case VStr:
				lhs, ok := lhs.(VStr)
				if !ok {
					return nil, vm.runtimeErr(loc, "Operands must be two numbers or two strings.")
				}
				vm.pop()
				vm.pop()
				vm.push(NewVStr(string(lhs) + string(rhs)))
			default:
				return nil, vm.runtimeErr(loc, "Operands must be two numbers or two strings.")
			}
		case OpSub, OpMul, OpDiv:
			rhs, rhsOk := vm.peek(0).(VNum)
			lhs, lhsOk := vm.peek(1).(VNum)
			if !rhsOk || !lhsOk {
				return nil, vm.runtimeErr(loc, "Operands must be numbers.")
			}
			vm.pop()
			vm.pop()
			switch inst {
			case OpSub:
				vm.push(lhs - rhs)
			case OpMul:
				vm.push(lhs * rhs)
			case OpDiv:
				vm.push(lhs / rhs)
			}

		case OpPrint:
			fmt.Printf("%s\n", vm.pop())

		case OpJump:
			f.ip += readShort()
		case OpJumpIfFalse:
			off := readShort()
			if IsFalsy(vm.peek(0)) {
				f.ip += off
			}
		case OpLoop:
			f.ip -= readShort()

		case OpCall:
			argc := int(readByte())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return nil, err
			}

		case OpReturn:
			retval := vm.pop()
			finished := vm.frames[len(vm.frames)-1]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return retval, nil
			}
			debug.Assertf(finished.slotBase <= len(vm.stack), "slotBase %d past stack top %d", finished.slotBase, len(vm.stack))
			vm.stack = vm.stack[:finished.slotBase]
			vm.push(retval)

		default:
			return nil, vm.runtimeErr(loc, "Unknown instruction '%d'.", inst)
		}
	}
}

// callValue dispatches CALL to either a compiled VFun (pushing a new
// CallFrame) or a NativeFn (calling straight through and replacing the
// call's stack window with its result).
func (vm *VM) callValue(callee Value, argc int) error {
	switch fn := callee.(type) {
	case *VFun:
		return vm.call(fn, argc)
	case *NativeFn:
		if argc != fn.Arity {
			return vm.runtimeErrAtTop("Expected %d arguments but got %d.", fn.Arity, argc)
		}
		args := append([]Value(nil), vm.stack[len(vm.stack)-argc:]...)
		res, err := fn.Fn(args)
		if err != nil {
			return vm.runtimeErrAtTop("%s", err)
		}
		vm.stack = vm.stack[:len(vm.stack)-argc-1]
		vm.push(res)
		return nil
	default:
		return vm.runtimeErrAtTop("Can only call functions and classes.")
	}
}

func (vm *VM) call(fn *VFun, argc int) error {
	if argc != fn.Arity {
		return vm.runtimeErrAtTop("Expected %d arguments but got %d.", fn.Arity, argc)
	}
	if len(vm.frames) >= maxFrames {
		return vm.runtimeErrAtTop("Stack overflow.")
	}
	vm.frames = append(vm.frames, CallFrame{
		fn:       fn,
		slotBase: len(vm.stack) - argc - 1,
	})
	return nil
}

// runtimeErr builds a RuntimeError at loc with a reversed call-stack
// trace: innermost frame first, matching a panic backtrace.
func (vm *VM) runtimeErr(loc Loc, format string, a ...any) error {
	trace := make([]string, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		name := "script"
		if f.fn.Name != nil {
			name = *f.fn.Name + "()"
		}
		fLoc := f.fn.Chunk.loc[f.ip-1]
		trace = append(trace, fmt.Sprintf("[line %d] in %s", fLoc.Line, name))
	}
	return &e.RuntimeError{
		Line:   loc.Line,
		Col:    loc.Col,
		Reason: fmt.Sprintf(format, a...),
		Trace:  trace,
	}
}

// runtimeErrAtTop reports an error at the currently executing
// instruction, for failures (arity, stack depth, call target) discovered
// before an opcode's own loc lookup would apply.
func (vm *VM) runtimeErrAtTop(format string, a ...any) error {
	f := vm.frame()
	loc := f.fn.Chunk.loc[f.ip-1]
	return vm.runtimeErr(loc, format, a...)
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}
