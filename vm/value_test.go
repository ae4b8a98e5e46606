package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFalsy(t *testing.T) {
	assert.True(t, IsFalsy(VNil{}))
	assert.True(t, IsFalsy(VBool(false)))
	assert.False(t, IsFalsy(VBool(true)))
	assert.False(t, IsFalsy(VNum(0)))
	assert.False(t, IsFalsy(NewVStr("")))
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(VNum(1), VNum(1)))
	assert.False(t, ValuesEqual(VNum(1), VNum(2)))
	assert.False(t, ValuesEqual(VNum(1), VBool(true)))
	assert.True(t, ValuesEqual(NewVStr("a"), NewVStr("a")))
	assert.True(t, ValuesEqual(VNil{}, VNil{}))
	assert.False(t, ValuesEqual(VNil{}, VBool(false)))

	nan := VNum(math.NaN())
	assert.False(t, ValuesEqual(nan, nan))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "nil", VNil{}.String())
	assert.Equal(t, "true", VBool(true).String())
	assert.Equal(t, "false", VBool(false).String())
	assert.Equal(t, "1.5", VNum(1.5).String())
	assert.Equal(t, "3", VNum(3).String())
	assert.Equal(t, "hi", NewVStr("hi").String())

	script := NewVFun()
	assert.Equal(t, "<script>", script.String())

	fn := NewVFun()
	fn.named("add")
	assert.Equal(t, "<fn add>", fn.String())

	native := &NativeFn{Name: "clock"}
	assert.Equal(t, "<native fn clock>", native.String())
}
