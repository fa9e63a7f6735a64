// Package value defines dvoyaz's runtime tagged union: the set of
// concrete Go types a bytecode module's constants, locals, upvalues,
// and stack slots may hold at execution time.
//
// Value is implemented by Int, Float, Str, Bool, None, *List, *Map,
// *Function, *Native, *Closure, *BoundMethod, *Class, and *Instance.
// Every implementation is comparable by Equal and carries its own
// truthiness (Truthy) and display form (String).
package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dvoyaz-lang/dvoyaz/pkg/bytecode"
)

// Value is implemented by every runtime value kind.
type Value interface {
	// TypeName is the name the "type" built-in and diagnostics report.
	TypeName() string
	// Truthy is the value's boolean coercion for JUMP_IF_FALSE/TRUE.
	Truthy() bool
	// String is the value's display form for PRINT and the REPL.
	String() string
}

// Int is a 64-bit signed integer value.
type Int int64

func (Int) TypeName() string { return "int" }
func (v Int) Truthy() bool   { return v != 0 }
func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a 64-bit floating-point value.
type Float float64

func (Float) TypeName() string { return "float" }
func (v Float) Truthy() bool   { return v != 0 }
func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// Str is a string value.
type Str string

func (Str) TypeName() string { return "string" }
func (v Str) Truthy() bool   { return len(v) != 0 }
func (v Str) String() string { return string(v) }

// Bool is a boolean value.
type Bool bool

func (Bool) TypeName() string { return "bool" }
func (v Bool) Truthy() bool   { return bool(v) }
func (v Bool) String() string {
	if v {
		return "true"
	}
	return "false"
}

// None is the single none/nil value.
type None struct{}

func (None) TypeName() string { return "none" }
func (None) Truthy() bool     { return false }
func (None) String() string { return "none" }

// List is an ordered, mutable sequence of values.
type List struct {
	Elements []Value
}

func (*List) TypeName() string { return "list" }
func (v *List) Truthy() bool   { return len(v.Elements) != 0 }
func (v *List) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Map is a mutable map keyed by string. Insertion order is preserved in
// Keys so that display and iteration are deterministic. Equal compares
// maps by reference identity only: a map equals itself and no other map.
type Map struct {
	Keys    []string
	Entries map[string]Value
}

// NewMap returns an empty Map ready for Set.
func NewMap() *Map {
	return &Map{Entries: make(map[string]Value)}
}

// Set stores value under key, appending to Keys on first insertion.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.Entries[key]; !ok {
		m.Keys = append(m.Keys, key)
	}
	m.Entries[key] = v
}

// Get returns the value stored under key, or nil and false if absent.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Entries[key]
	return v, ok
}

func (*Map) TypeName() string { return "map" }
func (*Map) Truthy() bool     { return true }
func (m *Map) String() string {
	parts := make([]string, len(m.Keys))
	for i, k := range m.Keys {
		parts[i] = fmt.Sprintf("%s: %s", k, m.Entries[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Function wraps a compiled function, as pushed by LOAD_CONST for a
// function/lambda declaration before any MAKE_CLOSURE.
type Function struct {
	*bytecode.Function
}

func (*Function) TypeName() string { return "function" }
func (*Function) Truthy() bool     { return true }
func (f *Function) String() string {
	if f.Name == "" {
		return "<lambda>"
	}
	return fmt.Sprintf("<function %s>", f.Name)
}

// Native is a built-in function: a Go closure the VM invokes directly
// without a frame. Arity is negative for variadic built-ins.
type Native struct {
	Name  string
	Arity int
	Fn    func(args []Value) (Value, error)
}

func (*Native) TypeName() string { return "function" }
func (*Native) Truthy() bool     { return true }
func (n *Native) String() string { return fmt.Sprintf("<builtin %s>", n.Name) }

// Cell is a shared, mutable box for one captured variable. Two closures
// that capture the same enclosing local hold the identical *Cell, so a
// write through one is observed through the other.
type Cell struct {
	Value Value
}

// Closure pairs a compiled function with the cell vector it captured at
// creation time (see MAKE_CLOSURE).
type Closure struct {
	Fn    *bytecode.Function
	Cells []*Cell
}

func (*Closure) TypeName() string { return "function" }
func (*Closure) Truthy() bool     { return true }
func (c *Closure) String() string {
	if c.Fn.Name == "" {
		return "<lambda>"
	}
	return fmt.Sprintf("<function %s>", c.Fn.Name)
}

// Class is a compiled class: its name, constructor field-name vector
// (positional, from the constructor parameter list), and its method
// table keyed by selector.
type Class struct {
	Name    string
	Fields  []string
	Methods map[string]*bytecode.Function
}

func (*Class) TypeName() string { return "class" }
func (*Class) Truthy() bool     { return true }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// Instance is a class reference plus its own field map.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

func (*Instance) TypeName() string { return "instance" }
func (*Instance) Truthy() bool     { return true }
func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name) }

// BoundMethod is a transient value pairing a receiver instance with a
// compiled method; it is never itself a closure.
type BoundMethod struct {
	Receiver *Instance
	Method   *bytecode.Function
}

func (*BoundMethod) TypeName() string { return "function" }
func (*BoundMethod) Truthy() bool     { return true }
func (b *BoundMethod) String() string {
	return fmt.Sprintf("<bound method %s of %s>", b.Method.Name, b.Receiver.String())
}

// Equal implements EQ's semantics: same tag required; lists compare
// element-wise; none equals none; otherwise value equality.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case None:
		_, ok := b.(None)
		return ok
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	default:
		// Maps, functions, classes, and instances have no defined
		// equality beyond reference identity; fall back to Go's
		// pointer/interface equality.
		return a == b
	}
}
