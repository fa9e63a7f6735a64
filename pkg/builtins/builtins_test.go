package builtins

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvoyaz-lang/dvoyaz/pkg/value"
)

func call(t *testing.T, r Registry, name string, args ...value.Value) value.Value {
	t.Helper()
	b, ok := r[name]
	require.True(t, ok, "missing builtin %q", name)
	v, err := b.Fn(args)
	require.NoError(t, err)
	return v
}

func TestNew_ContainsEverySpecBuiltin(t *testing.T) {
	r := New()
	for _, name := range []string{
		"abs", "sqrt", "min", "max", "round", "floor", "ceil", "len",
		"upper", "lower", "trim", "split", "join", "int", "float", "str",
		"bool", "range", "sum", "type",
	} {
		_, ok := r[name]
		require.True(t, ok, "missing builtin %q", name)
	}
	_, ok := r["print"]
	require.False(t, ok, "print must not be a builtin; it is a dedicated opcode")
}

func TestAbs(t *testing.T) {
	r := New()
	require.Equal(t, value.Int(5), call(t, r, "abs", value.Int(-5)))
	require.Equal(t, value.Float(2.5), call(t, r, "abs", value.Float(-2.5)))
}

func TestMinMax(t *testing.T) {
	r := New()
	require.Equal(t, value.Int(1), call(t, r, "min", value.Int(3), value.Int(1), value.Int(2)))
	require.Equal(t, value.Int(3), call(t, r, "max", value.Int(3), value.Int(1), value.Int(2)))
}

func TestLen(t *testing.T) {
	r := New()
	require.Equal(t, value.Int(3), call(t, r, "len", value.Str("abc")))
	list := &value.List{Elements: []value.Value{value.Int(1), value.Int(2)}}
	require.Equal(t, value.Int(2), call(t, r, "len", list))
}

func TestStringBuiltins(t *testing.T) {
	r := New()
	require.Equal(t, value.Str("ABC"), call(t, r, "upper", value.Str("abc")))
	require.Equal(t, value.Str("abc"), call(t, r, "lower", value.Str("ABC")))
	require.Equal(t, value.Str("x"), call(t, r, "trim", value.Str("  x  ")))
}

func TestSplitJoin(t *testing.T) {
	r := New()
	split := call(t, r, "split", value.Str("a,b,c"), value.Str(","))
	list, ok := split.(*value.List)
	require.True(t, ok)
	require.Len(t, list.Elements, 3)

	joined := call(t, r, "join", list, value.Str("-"))
	require.Equal(t, value.Str("a-b-c"), joined)
}

func TestConversions(t *testing.T) {
	r := New()
	require.Equal(t, value.Int(3), call(t, r, "int", value.Float(3.9)))
	require.Equal(t, value.Float(3), call(t, r, "float", value.Int(3)))
	require.Equal(t, value.Str("42"), call(t, r, "str", value.Int(42)))
	require.Equal(t, value.Bool(true), call(t, r, "bool", value.Int(1)))
	require.Equal(t, value.Bool(false), call(t, r, "bool", value.Int(0)))
}

func TestRange_HalfOpenWithStep(t *testing.T) {
	r := New()

	got := call(t, r, "range", value.Int(5)).(*value.List)
	require.Len(t, got.Elements, 5)
	require.Equal(t, value.Int(0), got.Elements[0])
	require.Equal(t, value.Int(4), got.Elements[4])

	got = call(t, r, "range", value.Int(1), value.Int(7), value.Int(2)).(*value.List)
	require.Equal(t, []value.Value{value.Int(1), value.Int(3), value.Int(5)}, got.Elements)

	got = call(t, r, "range", value.Int(5), value.Int(0), value.Int(-1)).(*value.List)
	require.Equal(t, []value.Value{
		value.Int(5), value.Int(4), value.Int(3), value.Int(2), value.Int(1),
	}, got.Elements)
}

func TestRange_RejectsZeroStep(t *testing.T) {
	r := New()
	_, err := r["range"].Fn([]value.Value{value.Int(0), value.Int(5), value.Int(0)})
	require.Error(t, err)
}

func TestSum_TaintsToFloatOnAnyFloatElement(t *testing.T) {
	r := New()
	ints := &value.List{Elements: []value.Value{value.Int(1), value.Int(2), value.Int(3)}}
	require.Equal(t, value.Int(6), call(t, r, "sum", ints))

	mixed := &value.List{Elements: []value.Value{value.Int(1), value.Float(2.5)}}
	require.Equal(t, value.Float(3.5), call(t, r, "sum", mixed))
}

func TestType(t *testing.T) {
	r := New()
	require.Equal(t, value.Str("int"), call(t, r, "type", value.Int(1)))
	require.Equal(t, value.Str("string"), call(t, r, "type", value.Str("x")))
	require.Equal(t, value.Str("none"), call(t, r, "type", value.None{}))
}

func TestTypeMismatchFailsCleanly(t *testing.T) {
	r := New()
	_, err := r["sqrt"].Fn([]value.Value{value.Str("nope")})
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
}
