package vm_test

import (
	"fmt"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/loxvm/loxvm/vm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

type TestPair struct{ input, output string }

func assertEval(t *testing.T, errSubstr string, pairs ...TestPair) {
	t.Helper()
	vm_ := vm.NewVM()
	for _, pair := range pairs {
		val, err := vm_.Interpret(pair.input+"\n", true)
		switch {
		case errSubstr == "":
			assert.Nil(t, err)
		case err != nil:
			assert.ErrorContains(t, err, errSubstr)
			return
		}
		valStr := fmt.Sprintf("%s", val)
		assert.Equal(t, pair.output, valStr)
	}
	assert.Empty(t, errSubstr, "a successful test must have an empty errSubStr")
}

func TestCalculator(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"2 +2", "4"},
		{"11.4 + 5.14 / 19198.10", "11.400267734827926"},
		{"-6 *(-4+ -3) == 6*4 + 2  *((((9))))", "true"},
		{
			heredoc.Doc(`
				4/1 - 4/3 + 4/5 - 4/7 + 4/9 - 4/11
					+ 4/13 - 4/15 + 4/17 - 4/19 + 4/21 - 4/23
			`),
			"3.058402765927333",
		},
	}...)
}

func TestStringConcat(t *testing.T) {
	assertEval(t, "", []TestPair{
		{`"foo" + "bar"`, `foobar`},
		{`"a" + "b" + "c"`, `abc`},
	}...)
}

func TestVarsBlocks(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var foo = 2;", "nil"},
		{"foo", "2"},
		{"foo + 3 == 1 + foo * foo", "true"},
		{"var bar;", "nil"},
		{"bar", "nil"},
		{"bar = foo = 2;", "nil"},
		{"foo", "2"},
		{"bar", "2"},
		{"{ foo = foo + 1; var bar; var foo1 = foo; foo1 = foo1 + 1; }", "nil"},
		{"foo", "3"},
	}...)
}

func TestVarOwnInit(t *testing.T) {
	assertEval(t, "can't read local variable in its own initializer",
		[]TestPair{
			{"var foo = 2;", "nil"},
			{"{ var foo = foo; }", ""},
		}...,
	)
}

func TestBlockShadowing(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var a = \"global\";", "nil"},
		{"{ var a = \"block\"; }", "nil"},
		{"a", "global"},
	}...)
}

func TestIfElse(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var foo = 2;", "nil"},
		{"if (foo == 2) foo = foo + 1; else { foo = 42; }", "nil"},
		{"foo", "3"},
		{"if (foo == 2) { foo = foo + 1; } else foo = nil;", "nil"},
		{"foo", "nil"},
		{"if (!foo) foo = 1;", "nil"},
		{"foo", "1"},
		{"if (foo) foo = 2;", "nil"},
		{"foo", "2"},
	}...)
}

func TestAndOr(t *testing.T) {
	assertEval(t, "", []TestPair{
		{`"trick" or __TREAT__`, `trick`},
		{"996 or 007", "996"},
		{`nil or "hi"`, `hi`},
		{"nil and what", "nil"},
		{`true and "then_what"`, `then_what`},
		{"var B = 66;", "nil"},
		{"2*B or !2*B", "132"},
	}...)
}

func TestWhile(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var i = 1; var product = 1;", "nil"},
		{"while (i <= 5) { product = product * i; i = i + 1; }", "nil"},
		{"product", "120"},
	}...)
}

func TestFor(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var product = 1;", "nil"},
		{
			"for (var i = 1; i <= 5; i = i + 1) { product = product * i; }",
			"nil",
		},
		{"product", "120"},
	}...)
}

func TestNestedWhile(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var total = 0;", "nil"},
		{
			heredoc.Doc(`
				var i = 0;
				while (i < 3) {
					var j = 0;
					while (j < 3) {
						total = total + 1;
						j = j + 1;
					}
					i = i + 1;
				}
			`),
			"nil",
		},
		{"total", "9"},
	}...)
}

func TestNestedFor(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var total = 0;", "nil"},
		{
			heredoc.Doc(`
				for (var i = 0; i < 3; i = i + 1) {
					for (var j = 0; j < 3; j = j + 1) {
						total = total + 1;
					}
				}
			`),
			"nil",
		},
		{"total", "9"},
	}...)
}

func TestForBodyContainsWhile(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var total = 0;", "nil"},
		{
			heredoc.Doc(`
				for (var i = 0; i < 3; i = i + 1) {
					var j = 0;
					while (j < 2) {
						total = total + 1;
						j = j + 1;
					}
				}
			`),
			"nil",
		},
		{"total", "6"},
	}...)
}

func TestBareReturn(t *testing.T) {
	assertEval(t, "can't return from top-level code", []TestPair{
		{"return true;", ""},
	}...)
}

func TestFunReturnInLoop(t *testing.T) {
	assertEval(t, "", []TestPair{
		{
			heredoc.Doc(`
				fun fact(n) {
					var i; var product;
					for (i = product = 1; ; i = i + 1) {
						product = product * i;
						if (i >= n) { return product; }
					}
				}
			`),
			"nil",
		},
		{"fact(5)", "120"},
	}...)
}

func TestFunArity(t *testing.T) {
	assertEval(t, "Expected 2 arguments but got 1.", []TestPair{
		{"fun f(j, k) { return (1 + j) * k; }", "nil"},
		{"f(2)", ""},
	}...)
}

func TestFunRecursive(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"fun fact(i) { if (i <= 0) { return 1; } return i * fact(i - 1); }", "nil"},
		{"fact(5)", "120"},
	}...)
}

func TestFunRefGlobal(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"var a = 3; fun f() { return a; } a = 4;", "nil"},
		{"f()", "4"},
	}...)
}

func TestFunLateInit(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"fun f() { return a; } var a = 4;", "nil"},
		{"f()", "4"},
	}...)
}

func TestFunLateInitFun(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"fun f() { return four(); } fun four() { return 4; }", "nil"},
		{"f()", "4"},
	}...)
}

func TestUndefinedVariable(t *testing.T) {
	assertEval(t, "Undefined variable", []TestPair{
		{"print foo;", ""},
	}...)
}

func TestFib(t *testing.T) {
	assertEval(t, "", []TestPair{
		{
			heredoc.Doc(`
				fun fib(n) {
					if (n < 2) return n;
					return fib(n - 1) + fib(n - 2);
				}
			`),
			"nil",
		},
		{"fib(10)", "55"},
	}...)
}

func TestNativeClock(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"clock() > 0", "true"},
	}...)
}

func TestClassKeywordIsReservedOnly(t *testing.T) {
	assertEval(t, "Expected expression.", []TestPair{
		{"class", ""},
	}...)
}
