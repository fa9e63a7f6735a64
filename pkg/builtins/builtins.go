// Package builtins implements dvoyaz's built-in registry: a name ->
// *Builtin table the VM consults before execution, seeding the globals
// map so that calling, say, `len` dispatches to Go code rather than a
// compiled function. Built-in names are English only.
//
// Every built-in fails cleanly with an *Error on type mismatch, and the
// variadic ones (min, max, range) on a bad argument count; fixed arities
// are checked by the VM before the call. The VM wraps an *Error into a
// RuntimeError carrying the call site.
package builtins

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dvoyaz-lang/dvoyaz/pkg/value"
)

// Error is a built-in's own report of an arity or type mismatch, wrapped
// by the VM into a RuntimeError carrying call-site context.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Builtin is one registry entry: its display name, declared arity
// (negative means variadic), and implementation.
type Builtin struct {
	Name  string
	Arity int
	Fn    func(args []value.Value) (value.Value, error)
}

// Registry is a name -> *Builtin table.
type Registry map[string]*Builtin

// New returns a freshly populated Registry: abs, sqrt, min, max, round,
// floor, ceil, len, upper, lower, trim, split, join, int, float, str,
// bool, range, sum, type. print is NOT here: it is a dedicated opcode,
// never a built-in call.
func New() Registry {
	r := Registry{}
	for _, b := range []*Builtin{
		{Name: "abs", Arity: 1, Fn: builtinAbs},
		{Name: "sqrt", Arity: 1, Fn: builtinSqrt},
		{Name: "min", Arity: -1, Fn: builtinMin},
		{Name: "max", Arity: -1, Fn: builtinMax},
		{Name: "round", Arity: 1, Fn: builtinRound},
		{Name: "floor", Arity: 1, Fn: builtinFloor},
		{Name: "ceil", Arity: 1, Fn: builtinCeil},
		{Name: "len", Arity: 1, Fn: builtinLen},
		{Name: "upper", Arity: 1, Fn: builtinUpper},
		{Name: "lower", Arity: 1, Fn: builtinLower},
		{Name: "trim", Arity: 1, Fn: builtinTrim},
		{Name: "split", Arity: 2, Fn: builtinSplit},
		{Name: "join", Arity: 2, Fn: builtinJoin},
		{Name: "int", Arity: 1, Fn: builtinInt},
		{Name: "float", Arity: 1, Fn: builtinFloat},
		{Name: "str", Arity: 1, Fn: builtinStr},
		{Name: "bool", Arity: 1, Fn: builtinBool},
		{Name: "range", Arity: -1, Fn: builtinRange},
		{Name: "sum", Arity: 1, Fn: builtinSum},
		{Name: "type", Arity: 1, Fn: builtinType},
	} {
		r[b.Name] = b
	}
	return r
}

func asFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case value.Int:
		return float64(n), true
	case value.Float:
		return float64(n), true
	default:
		return 0, false
	}
}

func builtinAbs(args []value.Value) (value.Value, error) {
	switch n := args[0].(type) {
	case value.Int:
		if n < 0 {
			return -n, nil
		}
		return n, nil
	case value.Float:
		return value.Float(math.Abs(float64(n))), nil
	default:
		return nil, errf("abs: expected int or float, got %s", n.TypeName())
	}
}

func builtinSqrt(args []value.Value) (value.Value, error) {
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errf("sqrt: expected int or float, got %s", args[0].TypeName())
	}
	if f < 0 {
		return nil, errf("sqrt: negative argument %v", f)
	}
	return value.Float(math.Sqrt(f)), nil
}

func builtinMin(args []value.Value) (value.Value, error) {
	return reduceNumeric(args, "min", func(acc, v float64) bool { return v < acc })
}

func builtinMax(args []value.Value) (value.Value, error) {
	return reduceNumeric(args, "max", func(acc, v float64) bool { return v > acc })
}

func reduceNumeric(args []value.Value, name string, better func(acc, v float64) bool) (value.Value, error) {
	if len(args) == 0 {
		return nil, errf("%s: expected at least one argument", name)
	}
	best := args[0]
	bestF, ok := asFloat(best)
	if !ok {
		return nil, errf("%s: expected int or float, got %s", name, best.TypeName())
	}
	for _, a := range args[1:] {
		f, ok := asFloat(a)
		if !ok {
			return nil, errf("%s: expected int or float, got %s", name, a.TypeName())
		}
		if better(bestF, f) {
			best, bestF = a, f
		}
	}
	return best, nil
}

func builtinRound(args []value.Value) (value.Value, error) {
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errf("round: expected int or float, got %s", args[0].TypeName())
	}
	return value.Int(int64(math.Round(f))), nil
}

func builtinFloor(args []value.Value) (value.Value, error) {
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errf("floor: expected int or float, got %s", args[0].TypeName())
	}
	return value.Int(int64(math.Floor(f))), nil
}

func builtinCeil(args []value.Value) (value.Value, error) {
	f, ok := asFloat(args[0])
	if !ok {
		return nil, errf("ceil: expected int or float, got %s", args[0].TypeName())
	}
	return value.Int(int64(math.Ceil(f))), nil
}

func builtinLen(args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case value.Str:
		return value.Int(len([]rune(string(v)))), nil
	case *value.List:
		return value.Int(len(v.Elements)), nil
	default:
		return nil, errf("len: expected string or list, got %s", v.TypeName())
	}
}

func builtinUpper(args []value.Value) (value.Value, error) {
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errf("upper: expected string, got %s", args[0].TypeName())
	}
	return value.Str(strings.ToUpper(string(s))), nil
}

func builtinLower(args []value.Value) (value.Value, error) {
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errf("lower: expected string, got %s", args[0].TypeName())
	}
	return value.Str(strings.ToLower(string(s))), nil
}

func builtinTrim(args []value.Value) (value.Value, error) {
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errf("trim: expected string, got %s", args[0].TypeName())
	}
	return value.Str(strings.TrimSpace(string(s))), nil
}

func builtinSplit(args []value.Value) (value.Value, error) {
	s, ok := args[0].(value.Str)
	if !ok {
		return nil, errf("split: expected string, got %s", args[0].TypeName())
	}
	sep, ok := args[1].(value.Str)
	if !ok {
		return nil, errf("split: expected string separator, got %s", args[1].TypeName())
	}
	parts := strings.Split(string(s), string(sep))
	elems := make([]value.Value, len(parts))
	for i, p := range parts {
		elems[i] = value.Str(p)
	}
	return &value.List{Elements: elems}, nil
}

func builtinJoin(args []value.Value) (value.Value, error) {
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, errf("join: expected list, got %s", args[0].TypeName())
	}
	sep, ok := args[1].(value.Str)
	if !ok {
		return nil, errf("join: expected string separator, got %s", args[1].TypeName())
	}
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		s, ok := e.(value.Str)
		if !ok {
			return nil, errf("join: element %d is not a string, got %s", i, e.TypeName())
		}
		parts[i] = string(s)
	}
	return value.Str(strings.Join(parts, string(sep))), nil
}

func builtinInt(args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case value.Int:
		return v, nil
	case value.Float:
		return value.Int(int64(v)), nil
	case value.Bool:
		if v {
			return value.Int(1), nil
		}
		return value.Int(0), nil
	case value.Str:
		var n int64
		if _, err := fmt.Sscanf(string(v), "%d", &n); err != nil {
			return nil, errf("int: cannot parse %q as int", string(v))
		}
		return value.Int(n), nil
	default:
		return nil, errf("int: cannot convert %s", v.TypeName())
	}
}

func builtinFloat(args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case value.Int:
		return value.Float(v), nil
	case value.Float:
		return v, nil
	case value.Str:
		var f float64
		if _, err := fmt.Sscanf(string(v), "%g", &f); err != nil {
			return nil, errf("float: cannot parse %q as float", string(v))
		}
		return value.Float(f), nil
	default:
		return nil, errf("float: cannot convert %s", v.TypeName())
	}
}

func builtinStr(args []value.Value) (value.Value, error) {
	return value.Str(args[0].String()), nil
}

func builtinBool(args []value.Value) (value.Value, error) {
	return value.Bool(args[0].Truthy()), nil
}

// builtinRange takes 1-3 int args, positive or negative step, step != 0,
// half-open interval.
func builtinRange(args []value.Value) (value.Value, error) {
	var start, stop, step int64 = 0, 0, 1
	toInt := func(v value.Value) (int64, bool) {
		n, ok := v.(value.Int)
		return int64(n), ok
	}
	switch len(args) {
	case 1:
		n, ok := toInt(args[0])
		if !ok {
			return nil, errf("range: expected int arguments")
		}
		stop = n
	case 2:
		a, ok1 := toInt(args[0])
		b, ok2 := toInt(args[1])
		if !ok1 || !ok2 {
			return nil, errf("range: expected int arguments")
		}
		start, stop = a, b
	case 3:
		a, ok1 := toInt(args[0])
		b, ok2 := toInt(args[1])
		c, ok3 := toInt(args[2])
		if !ok1 || !ok2 || !ok3 {
			return nil, errf("range: expected int arguments")
		}
		start, stop, step = a, b, c
	default:
		return nil, errf("range: expected 1 to 3 arguments, got %d", len(args))
	}
	if step == 0 {
		return nil, errf("range: step must not be zero")
	}
	var elems []value.Value
	if step > 0 {
		for i := start; i < stop; i += step {
			elems = append(elems, value.Int(i))
		}
	} else {
		for i := start; i > stop; i += step {
			elems = append(elems, value.Int(i))
		}
	}
	return &value.List{Elements: elems}, nil
}

func builtinSum(args []value.Value) (value.Value, error) {
	list, ok := args[0].(*value.List)
	if !ok {
		return nil, errf("sum: expected list, got %s", args[0].TypeName())
	}
	isFloat := false
	var total float64
	var intTotal int64
	for i, e := range list.Elements {
		switch n := e.(type) {
		case value.Int:
			intTotal += int64(n)
			total += float64(n)
		case value.Float:
			isFloat = true
			total += float64(n)
		default:
			return nil, errf("sum: element %d is not numeric, got %s", i, n.TypeName())
		}
	}
	if isFloat {
		return value.Float(total), nil
	}
	return value.Int(intTotal), nil
}

func builtinType(args []value.Value) (value.Value, error) {
	return value.Str(args[0].TypeName()), nil
}

// Names returns every built-in name, sorted, for diagnostics and tests.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
