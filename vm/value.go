package vm

import (
	"fmt"
	"strconv"

	"github.com/josharian/intern"
	"github.com/loxvm/loxvm/utils"
)

// Value is the tagged union described by the data model: every concrete
// value type implements isValue as a marker and String for PRINT/display.
type Value interface {
	isValue()
	fmt.Stringer
}

// VNil is the single nil value.
type VNil struct{}

func (VNil) isValue()       {}
func (VNil) String() string { return "nil" }

// VBool is a boolean value.
type VBool bool

func (VBool) isValue() {}
func (v VBool) String() string {
	if v {
		return "true"
	}
	return "false"
}

// VNum is an IEEE-754 double. Equality and ordering are native float
// comparisons, so NaN is never equal to itself.
type VNum float64

func (VNum) isValue() {}
func (v VNum) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// VStr is an interned, immutable string. Go strings already share their
// backing array across copies, so no reference count is needed to avoid
// deep-copying on push/pop; interning via josharian/intern additionally
// folds equal constant-pool and global-name strings onto one allocation,
// which is what makes string equality and globals-map lookups cheap.
type VStr string

// NewVStr interns s and returns it as a Value.
func NewVStr(s string) VStr { return VStr(intern.String(s)) }

func (VStr) isValue()       {}
func (v VStr) String() string { return string(v) }

// VFun is a compiled function: immutable once its Chunk is fully emitted.
// Name is nil for the implicit top-level script.
type VFun struct {
	Arity int
	Chunk *Chunk
	Name  *string
}

func NewVFun() *VFun { return &VFun{Chunk: NewChunk()} }

func (*VFun) isValue() {}
func (v *VFun) String() string {
	if v.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", *v.Name)
}

// named records the compiled function's name for display and stack traces.
func (v *VFun) named(name string) { v.Name = utils.Box(name) }

// NativeFn is a host-implemented function exposed to Lox code, called with
// the VM's argument window and returning a single Value.
type NativeFn struct {
	Name string
	Arity int
	Fn    func(args []Value) (Value, error)
}

func (*NativeFn) isValue() {}
func (n *NativeFn) String() string { return fmt.Sprintf("<native fn %s>", n.Name) }

// IsFalsy reports whether v is Lox-falsy: Nil or Bool(false). Every other
// value, including 0 and the empty string, is truthy.
func IsFalsy(v Value) bool {
	switch v := v.(type) {
	case VNil:
		return true
	case VBool:
		return !bool(v)
	default:
		return false
	}
}

// ValuesEqual implements the equality rule: same tag and value; cross-tag
// comparisons (including between Nil and anything else) are always false.
func ValuesEqual(a, b Value) bool {
	switch a := a.(type) {
	case VNil:
		_, ok := b.(VNil)
		return ok
	case VBool:
		b, ok := b.(VBool)
		return ok && a == b
	case VNum:
		b, ok := b.(VNum)
		return ok && a == b
	case VStr:
		b, ok := b.(VStr)
		return ok && a == b
	default:
		return false
	}
}
