package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvoyaz-lang/dvoyaz/pkg/compiler"
	"github.com/dvoyaz-lang/dvoyaz/pkg/parser"
	"github.com/dvoyaz-lang/dvoyaz/pkg/value"
)

func run(t *testing.T, src string) (value.Value, []string, error) {
	t.Helper()
	p, err := parser.New(src)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)
	require.Empty(t, p.Errors())
	mod, err := compiler.New().Compile(prog)
	require.NoError(t, err)

	machine := New()
	var lines []string
	machine.Output = func(s string) { lines = append(lines, s) }
	result, err := machine.Run(mod)
	return result, lines, err
}

func TestArithmeticAndPrint(t *testing.T) {
	_, lines, err := run(t, `print(1 + 2 * 3)`)
	require.NoError(t, err)
	require.Equal(t, []string{"7"}, lines)
}

func TestIntegerDivisionStaysInteger(t *testing.T) {
	result, _, err := run(t, `7 / 2`)
	require.NoError(t, err)
	require.Equal(t, value.Int(3), result)
}

func TestFloatDivisionPromotes(t *testing.T) {
	result, _, err := run(t, `7.0 / 2`)
	require.NoError(t, err)
	require.Equal(t, value.Float(3.5), result)
}

func TestStringConcatenationCoercesNonStrings(t *testing.T) {
	result, _, err := run(t, `"x=" + 1`)
	require.NoError(t, err)
	require.Equal(t, value.Str("x=1"), result)
}

func TestStringRepeat(t *testing.T) {
	result, _, err := run(t, `"ab" * 3`)
	require.NoError(t, err)
	require.Equal(t, value.Str("ababab"), result)
}

func TestListConcatenation(t *testing.T) {
	result, _, err := run(t, `[1, 2] + [3]`)
	require.NoError(t, err)
	lst, ok := result.(*value.List)
	require.True(t, ok)
	require.Len(t, lst.Elements, 3)
}

func TestDivisionByZeroFails(t *testing.T) {
	_, _, err := run(t, `1 / 0`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
}

func TestModByZeroFails(t *testing.T) {
	_, _, err := run(t, `1 % 0`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "division by zero")
}

func TestIntegerPowerStaysInteger(t *testing.T) {
	result, _, err := run(t, `2 ** 10`)
	require.NoError(t, err)
	require.Equal(t, value.Int(1024), result)
}

func TestNegativeExponentPromotesToFloat(t *testing.T) {
	result, _, err := run(t, `2 ** -1`)
	require.NoError(t, err)
	require.Equal(t, value.Float(0.5), result)
}

func TestComparisonAndShortCircuitFreeAndOr(t *testing.T) {
	result, _, err := run(t, `true && false`)
	require.NoError(t, err)
	require.Equal(t, value.Bool(false), result)
}

func TestIfElseBranches(t *testing.T) {
	result, _, err := run(t, `if 1 < 2 { "yes" } else { "no" }`)
	require.NoError(t, err)
	require.Equal(t, value.Str("yes"), result)
}

func TestWhileLoopAccumulates(t *testing.T) {
	result, _, err := run(t, `
var i = 0
var total = 0
while i < 5 {
  total = total + i
  i = i + 1
}
total`)
	require.NoError(t, err)
	require.Equal(t, value.Int(10), result)
}

func TestFunctionCallAndReturn(t *testing.T) {
	result, _, err := run(t, `
fun add(a, b) { return a + b }
add(3, 4)`)
	require.NoError(t, err)
	require.Equal(t, value.Int(7), result)
}

func TestClosureCellsAreSharedByReference(t *testing.T) {
	result, _, err := run(t, `
fun counter() {
  var n = 0
  fun incr() {
    n = n + 1
    return n
  }
  return incr
}
let c1 = counter()
c1()
c1()
c1()`)
	require.NoError(t, err)
	require.Equal(t, value.Int(3), result)
}

func TestClosureInstancesDoNotShareCells(t *testing.T) {
	result, _, err := run(t, `
fun counter() {
  var n = 0
  fun incr() {
    n = n + 1
    return n
  }
  return incr
}
let a = counter()
let b = counter()
a()
a()
b()`)
	require.NoError(t, err)
	require.Equal(t, value.Int(1), result)
}

func TestPipeEquivalentToCall(t *testing.T) {
	r1, _, err := run(t, `fun dbl(x) { return x * 2 }
5 |> dbl`)
	require.NoError(t, err)
	r2, _, err := run(t, `fun dbl(x) { return x * 2 }
dbl(5)`)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
}

func TestArityMismatchFails(t *testing.T) {
	_, _, err := run(t, `
fun add(a, b) { return a + b }
add(1)`)
	require.Error(t, err)
}

func TestListIndexOutOfBoundsFails(t *testing.T) {
	_, _, err := run(t, `[1, 2, 3][10]`)
	require.Error(t, err)
}

func TestClassFieldsAndMethods(t *testing.T) {
	result, _, err := run(t, `
class Point(x, y) {
  fun sum(self) {
    return self.x + self.y
  }
}
let p = new Point(3, 4)
p.sum()`)
	require.NoError(t, err)
	require.Equal(t, value.Int(7), result)
}

func TestNewInstanceIgnoresExtraArgsAndLeavesMissingFieldsAbsent(t *testing.T) {
	result, _, err := run(t, `
class Point(x, y) {}
let p = new Point(1, 2, 3)
p.x`)
	require.NoError(t, err)
	require.Equal(t, value.Int(1), result)

	_, _, err = run(t, `
class Point(x, y) {}
let p = new Point(1)
p.y`)
	require.Error(t, err)
}

func TestMatchExpressionDispatchesToFirstMatchingArm(t *testing.T) {
	result, _, err := run(t, `
match 7 {
  0 => "zero"
  n if n > 5 => "big"
  _ => "other"
}`)
	require.NoError(t, err)
	require.Equal(t, value.Str("big"), result)
}

func TestMatchConstructorPatternBindsFields(t *testing.T) {
	result, _, err := run(t, `
class Point(x, y) {}
match new Point(1, 2) {
  Point(a, b) => a + b
  _ => 0
}`)
	require.NoError(t, err)
	require.Equal(t, value.Int(3), result)
}

func TestNoneEqualityAndDisplay(t *testing.T) {
	result, _, err := run(t, `none == none`)
	require.NoError(t, err)
	require.Equal(t, value.Bool(true), result)
}

func TestBilingualProgramRunsIdentically(t *testing.T) {
	r1, lines1, err := run(t, `печать("привет")`)
	require.NoError(t, err)
	r2, lines2, err := run(t, `print("привет")`)
	require.NoError(t, err)
	require.Equal(t, r1, r2)
	require.Equal(t, lines1, lines2)
}

func TestRuntimeErrorCarriesStackTrace(t *testing.T) {
	_, _, err := run(t, `
fun boom() { return 1 / 0 }
boom()`)
	require.Error(t, err)
	var rerr *RuntimeError
	require.ErrorAs(t, err, &rerr)
	require.NotEmpty(t, rerr.StackTrace)
}

func TestExplicitSelfParamDeclaredOnce(t *testing.T) {
	result, _, err := run(t, `
class Point(x, y) {
  fun sum(self) {
    return self.x + self.y
  }
}
new Point(3, 4).sum()`)
	require.NoError(t, err)
	require.Equal(t, value.Int(7), result)
}

func TestBilingualExplicitSelfParamDeclaredOnce(t *testing.T) {
	result, _, err := run(t, `
class Point(x, y) {
  fun sum(себя) {
    return себя.x + себя.y
  }
}
new Point(3, 4).sum()`)
	require.NoError(t, err)
	require.Equal(t, value.Int(7), result)
}

func TestMaxFramesLimitsRecursionDepth(t *testing.T) {
	machine := New()
	machine.MaxFrames = 8
	p, err := parser.New(`
fun recurse(n) { return recurse(n + 1) }
recurse(0)`)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)
	mod, err := compiler.New().Compile(prog)
	require.NoError(t, err)

	_, err = machine.Run(mod)
	require.Error(t, err)
	require.Contains(t, err.Error(), "call frames")
}

func TestMaxCallArgsRejectsOversizedCall(t *testing.T) {
	machine := New()
	machine.MaxCallArgs = 2
	p, err := parser.New(`
fun add3(a, b, c) { return a + b + c }
add3(1, 2, 3)`)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)
	mod, err := compiler.New().Compile(prog)
	require.NoError(t, err)

	_, err = machine.Run(mod)
	require.Error(t, err)
	require.Contains(t, err.Error(), "argument")
}
