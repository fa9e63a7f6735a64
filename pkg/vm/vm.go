// Package vm executes a compiled bytecode.Module on a stack machine.
//
// The machine holds one shared value stack used for expression
// evaluation across every active call, a frame stack (one frame per
// active function/method/lambda invocation), and a globals slice
// indexed by slot (pre-seeded from pkg/builtins before the module's
// own top-level code runs). A frame's local variables live in their
// own vector of *value.Cell, never on the value stack - LOAD_VAR and
// LOAD_CONST address two entirely separate spaces, so a frame never
// needs to remember a "stack base" the way register-on-stack designs
// do. Storing every local as a Cell from the moment it is declared,
// rather than only the ones a nested function eventually captures,
// means MAKE_CLOSURE never has to decide between an "open" and
// "closed" upvalue: it just takes the frame's existing Cell by
// reference.
package vm

import (
	"fmt"
	"math"
	"os"

	"github.com/dvoyaz-lang/dvoyaz/pkg/builtins"
	"github.com/dvoyaz-lang/dvoyaz/pkg/bytecode"
	"github.com/dvoyaz-lang/dvoyaz/pkg/value"
)

// frame is one active invocation: its code, instruction pointer,
// display name (for stack traces), local cells, and captured upvalue
// cells (nil for a plain, non-closure call).
type frame struct {
	code     []bytecode.Instruction
	name     string
	ip       int
	locals   []*value.Cell
	upvalues []*value.Cell
}

// VM executes one bytecode.Module per Run call. A VM is reusable:
// Run resets the value stack, the frame stack and the globals, matching
// §5's "globals map is process-wide for the duration of a single run
// call" - each Run call reinitializes the globals from the module's own
// table, so no top-level state carries over from one Run to the next.
type VM struct {
	module  *bytecode.Module
	globals []value.Value
	stack   []value.Value
	frames  []*frame

	// last is the value most recently discarded by a POP in the main
	// frame: the value of the latest top-level expression statement.
	last value.Value

	// Output is invoked once per PRINT instruction with the
	// space-joined display form of its arguments. Defaults to writing
	// a line to stdout; tests substitute their own sink.
	Output func(string)

	// MaxStack, MaxFrames, and MaxCallArgs bound the value stack's
	// depth, the call-frame stack's depth, and the argument count a
	// single CALL or NEW_INSTANCE may carry. New sets each to its
	// Default* constant; a zero value (set explicitly after New)
	// disables that particular check.
	MaxStack    int
	MaxFrames   int
	MaxCallArgs int

	debugger *Debugger
}

// Defaults for MaxStack, MaxFrames, and MaxCallArgs, matching
// internal/config.Default().
const (
	DefaultMaxStack    = 1024
	DefaultMaxFrames   = 256
	DefaultMaxCallArgs = 255
)

// EnableDebugger attaches and enables an interactive debugger on vm,
// returning it for further configuration (breakpoints, step mode).
func (vm *VM) EnableDebugger() *Debugger {
	if vm.debugger == nil {
		vm.debugger = newDebugger(vm)
	}
	vm.debugger.Enable()
	return vm.debugger
}

// GetDebugger returns the VM's debugger, or nil if EnableDebugger was
// never called.
func (vm *VM) GetDebugger() *Debugger { return vm.debugger }

// New creates a VM with no module loaded; call Run to execute one.
func New() *VM {
	return &VM{
		Output:      func(s string) { fmt.Fprintln(os.Stdout, s) },
		MaxStack:    DefaultMaxStack,
		MaxFrames:   DefaultMaxFrames,
		MaxCallArgs: DefaultMaxCallArgs,
	}
}

// Run executes mod from the top of its mainCode, returning the value
// left on the stack at HALT or, when the stack is empty, the value of
// the last top-level expression statement (none if there was none), or
// a *RuntimeError on failure.
func (vm *VM) Run(mod *bytecode.Module) (value.Value, error) {
	vm.module = mod
	vm.stack = vm.stack[:0]
	vm.frames = []*frame{{code: mod.MainCode, name: "<main>"}}
	vm.last = value.None{}

	vm.globals = make([]value.Value, len(mod.Globals))
	for i := range vm.globals {
		vm.globals[i] = value.None{}
	}
	slotByName := make(map[string]int, len(mod.Globals))
	for i, n := range mod.Globals {
		slotByName[n] = i
	}
	for name, b := range builtins.New() {
		if slot, ok := slotByName[name]; ok {
			vm.globals[slot] = &value.Native{Name: b.Name, Arity: b.Arity, Fn: b.Fn}
		}
	}

	if err := vm.run(); err != nil {
		return nil, err
	}
	if len(vm.stack) == 0 {
		return vm.last, nil
	}
	return vm.stack[len(vm.stack)-1], nil
}

// GetGlobal returns the current value of a top-level binding by name,
// for embedders and tests that want to inspect state after Run.
func (vm *VM) GetGlobal(name string) (value.Value, bool) {
	for i, n := range vm.module.Globals {
		if n == name {
			return vm.globals[i], true
		}
	}
	return nil, false
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() value.Value {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) top() *frame { return vm.frames[len(vm.frames)-1] }

func (vm *VM) fail(format string, args ...any) error {
	trace := make([]StackFrame, len(vm.frames))
	for i, fr := range vm.frames {
		ip := fr.ip
		if i == len(vm.frames)-1 && ip > 0 {
			ip--
		}
		trace[i] = StackFrame{Name: fr.name, IP: ip}
	}
	return newRuntimeError(fmt.Sprintf(format, args...), trace)
}

// run is the main fetch/decode/execute loop. It returns when HALT is
// reached in the outermost frame, or on the first error.
func (vm *VM) run() error {
	for {
		fr := vm.top()
		if fr.ip >= len(fr.code) {
			return vm.fail("instruction pointer ran off the end of %s", fr.name)
		}
		if vm.MaxStack > 0 && len(vm.stack) > vm.MaxStack {
			return vm.fail("stack overflow: exceeded %d values", vm.MaxStack)
		}
		if vm.MaxFrames > 0 && len(vm.frames) > vm.MaxFrames {
			return vm.fail("stack overflow: exceeded %d call frames", vm.MaxFrames)
		}
		if vm.debugger != nil && vm.debugger.enabled && vm.debugger.shouldPause(fr.ip) {
			if !vm.debugger.pause(fr) {
				return vm.fail("execution aborted from debugger")
			}
		}

		in := fr.code[fr.ip]
		fr.ip++

		switch in.Op {
		case bytecode.HALT:
			return nil

		case bytecode.NOP:
			// no-op

		case bytecode.LOAD_CONST:
			v, err := vm.constant(in.Operand)
			if err != nil {
				return err
			}
			vm.push(v)

		case bytecode.LOAD_VAR:
			if int(in.Operand) >= len(fr.locals) {
				return vm.fail("local slot %d out of bounds in %s", in.Operand, fr.name)
			}
			vm.push(fr.locals[in.Operand].Value)

		case bytecode.STORE_VAR:
			if int(in.Operand) >= len(fr.locals) {
				return vm.fail("local slot %d out of bounds in %s", in.Operand, fr.name)
			}
			fr.locals[in.Operand].Value = vm.pop()

		case bytecode.LOAD_GLOBAL:
			if int(in.Operand) >= len(vm.globals) {
				return vm.fail("global slot %d out of bounds", in.Operand)
			}
			vm.push(vm.globals[in.Operand])

		case bytecode.STORE_GLOBAL:
			if int(in.Operand) >= len(vm.globals) {
				return vm.fail("global slot %d out of bounds", in.Operand)
			}
			vm.globals[in.Operand] = vm.pop()

		case bytecode.POP:
			v := vm.pop()
			if len(vm.frames) == 1 {
				vm.last = v
			}

		case bytecode.DUP:
			vm.push(vm.stack[len(vm.stack)-1])

		case bytecode.ADD, bytecode.SUB, bytecode.MUL, bytecode.DIV, bytecode.MOD, bytecode.POW:
			b, a := vm.pop(), vm.pop()
			result, err := vm.arith(in.Op, a, b)
			if err != nil {
				return vm.fail("%s", err)
			}
			vm.push(result)

		case bytecode.NEG:
			x := vm.pop()
			result, err := negate(x)
			if err != nil {
				return vm.fail("%s", err)
			}
			vm.push(result)

		case bytecode.EQ:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))

		case bytecode.NE:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!value.Equal(a, b)))

		case bytecode.LT, bytecode.GT, bytecode.LE, bytecode.GE:
			b, a := vm.pop(), vm.pop()
			result, err := compare(in.Op, a, b)
			if err != nil {
				return vm.fail("%s", err)
			}
			vm.push(result)

		case bytecode.AND:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Truthy() && b.Truthy()))

		case bytecode.OR:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(a.Truthy() || b.Truthy()))

		case bytecode.NOT:
			vm.push(value.Bool(!vm.pop().Truthy()))

		case bytecode.JUMP:
			fr.ip = int(in.Operand)

		case bytecode.JUMP_IF_FALSE:
			if !vm.pop().Truthy() {
				fr.ip = int(in.Operand)
			}

		case bytecode.JUMP_IF_TRUE:
			if vm.pop().Truthy() {
				fr.ip = int(in.Operand)
			}

		case bytecode.CALL:
			if err := vm.call(int(in.Operand)); err != nil {
				return err
			}

		case bytecode.RETURN:
			retVal := vm.pop()
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				vm.push(retVal)
				return nil
			}
			vm.push(retVal)

		case bytecode.MAKE_CLOSURE:
			if err := vm.makeClosure(); err != nil {
				return err
			}

		case bytecode.LOAD_UPVALUE:
			if int(in.Operand) >= len(fr.upvalues) {
				return vm.fail("upvalue slot %d out of bounds in %s", in.Operand, fr.name)
			}
			vm.push(fr.upvalues[in.Operand].Value)

		case bytecode.STORE_UPVALUE:
			if int(in.Operand) >= len(fr.upvalues) {
				return vm.fail("upvalue slot %d out of bounds in %s", in.Operand, fr.name)
			}
			fr.upvalues[in.Operand].Value = vm.pop()

		case bytecode.MAKE_LIST:
			n := int(in.Operand)
			elems := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				elems[i] = vm.pop()
			}
			vm.push(&value.List{Elements: elems})

		case bytecode.MAKE_MAP:
			n := int(in.Operand)
			m := value.NewMap()
			pairs := make([][2]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				v := vm.pop()
				k := vm.pop()
				pairs[i] = [2]value.Value{k, v}
			}
			for _, kv := range pairs {
				key, ok := kv[0].(value.Str)
				if !ok {
					return vm.fail("map keys must be strings, got %s", kv[0].TypeName())
				}
				m.Set(string(key), kv[1])
			}
			vm.push(m)

		case bytecode.GET_INDEX:
			idx, obj := vm.pop(), vm.pop()
			result, err := getIndex(obj, idx)
			if err != nil {
				return vm.fail("%s", err)
			}
			vm.push(result)

		case bytecode.SET_INDEX:
			val, idx, obj := vm.pop(), vm.pop(), vm.pop()
			if err := setIndex(obj, idx, val); err != nil {
				return vm.fail("%s", err)
			}
			vm.push(val)

		case bytecode.GET_ATTR:
			name, err := vm.constString(in.Operand)
			if err != nil {
				return err
			}
			obj := vm.pop()
			result, err := getAttr(obj, name)
			if err != nil {
				return vm.fail("%s", err)
			}
			vm.push(result)

		case bytecode.SET_ATTR:
			name, err := vm.constString(in.Operand)
			if err != nil {
				return err
			}
			val, obj := vm.pop(), vm.pop()
			inst, ok := obj.(*value.Instance)
			if !ok {
				return vm.fail("cannot set attribute %q on a %s", name, obj.TypeName())
			}
			inst.Fields[name] = val
			vm.push(val)

		case bytecode.NEW_INSTANCE:
			if err := vm.newInstance(int(in.Operand)); err != nil {
				return err
			}

		case bytecode.PRINT:
			n := int(in.Operand)
			args := make([]value.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = vm.pop()
			}
			vm.Output(joinDisplay(args))

		default:
			return vm.fail("unknown opcode %s", in.Op)
		}
	}
}

func (vm *VM) constant(idx int32) (value.Value, error) {
	if int(idx) >= len(vm.module.Constants) {
		return nil, vm.fail("constant index %d out of bounds", idx)
	}
	switch c := vm.module.Constants[idx].(type) {
	case nil:
		return value.None{}, nil
	case int64:
		return value.Int(c), nil
	case float64:
		return value.Float(c), nil
	case string:
		return value.Str(c), nil
	case bool:
		return value.Bool(c), nil
	case *bytecode.Function:
		return &value.Function{Function: c}, nil
	case *bytecode.Class:
		return &value.Class{Name: c.Name, Fields: c.Fields, Methods: c.Methods}, nil
	default:
		return nil, vm.fail("constant %d has unsupported type %T", idx, c)
	}
}

func (vm *VM) constString(idx int32) (string, error) {
	if int(idx) >= len(vm.module.Constants) {
		return "", vm.fail("constant index %d out of bounds", idx)
	}
	s, ok := vm.module.Constants[idx].(string)
	if !ok {
		return "", vm.fail("constant %d is not a string", idx)
	}
	return s, nil
}

func joinDisplay(args []value.Value) string {
	if len(args) == 0 {
		return ""
	}
	out := args[0].String()
	for _, a := range args[1:] {
		out += " " + a.String()
	}
	return out
}

// ---------------------------------------------------------------------
// Calls, closures, instances
// ---------------------------------------------------------------------

// call pops the callee and n arguments (reassembling them into
// source order) and dispatches on the callee's kind, pushing either a
// fresh frame (for a compiled function, closure, or bound method) or
// the result directly (for a native built-in).
func (vm *VM) call(n int) error {
	if vm.MaxCallArgs > 0 && n > vm.MaxCallArgs {
		return vm.fail("call: %d argument(s) exceeds the %d-argument limit", n, vm.MaxCallArgs)
	}
	callee := vm.pop()
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}

	switch fn := callee.(type) {
	case *value.Native:
		if fn.Arity >= 0 && len(args) != fn.Arity {
			return vm.fail("%s: expected %d argument(s), got %d", fn.Name, fn.Arity, len(args))
		}
		result, err := fn.Fn(args)
		if err != nil {
			return vm.fail("%s: %s", fn.Name, err)
		}
		vm.push(result)
		return nil

	case *value.Function:
		return vm.invoke(fn.Function, nil, args, 0)

	case *value.Closure:
		return vm.invoke(fn.Fn, fn.Cells, args, 0)

	case *value.BoundMethod:
		return vm.invoke(fn.Method, nil, args, 1, fn.Receiver)

	default:
		return vm.fail("value of type %s is not callable", callee.TypeName())
	}
}

// invoke builds and pushes a new frame for fn. extraArity counts
// implicit leading locals supplied via leading (e.g. a bound method's
// receiver) rather than from args.
func (vm *VM) invoke(fn *bytecode.Function, upvalues []*value.Cell, args []value.Value, extraArity int, leading ...value.Value) error {
	if len(args)+extraArity != fn.Arity {
		return vm.fail("%s: expected %d argument(s), got %d", displayName(fn), fn.Arity-extraArity, len(args))
	}
	locals := make([]*value.Cell, fn.LocalCount)
	for i := range locals {
		locals[i] = &value.Cell{Value: value.None{}}
	}
	i := 0
	for _, v := range leading {
		locals[i].Value = v
		i++
	}
	for _, v := range args {
		locals[i].Value = v
		i++
	}
	vm.frames = append(vm.frames, &frame{
		code:     fn.Code,
		name:     displayName(fn),
		locals:   locals,
		upvalues: upvalues,
	})
	return nil
}

func displayName(fn *bytecode.Function) string {
	if fn.Name == "" {
		return "<lambda>"
	}
	return fn.Name
}

// makeClosure pops the function constant pushed by a preceding
// LOAD_CONST and, for each of its upvalue descriptors, either takes
// the current frame's local Cell by reference (isLocal) or reuses the
// current frame's own upvalue Cell (parent upvalue) - never copying a
// value into a new Cell, so every holder of a given captured variable
// shares the one Cell for as long as any of them survives.
func (vm *VM) makeClosure() error {
	fv, ok := vm.pop().(*value.Function)
	if !ok {
		return vm.fail("MAKE_CLOSURE: expected a function on the stack")
	}
	fr := vm.top()
	cells := make([]*value.Cell, len(fv.Upvalues))
	for i, uv := range fv.Upvalues {
		if uv.IsLocal {
			if uv.ParentIndex >= len(fr.locals) {
				return vm.fail("MAKE_CLOSURE: parent local %d out of bounds", uv.ParentIndex)
			}
			cells[i] = fr.locals[uv.ParentIndex]
		} else {
			if uv.ParentIndex >= len(fr.upvalues) {
				return vm.fail("MAKE_CLOSURE: parent upvalue %d out of bounds", uv.ParentIndex)
			}
			cells[i] = fr.upvalues[uv.ParentIndex]
		}
	}
	vm.push(&value.Closure{Fn: fv.Function, Cells: cells})
	return nil
}

// newInstance pops the class constant and n positional arguments,
// pairing them with the class's field-name vector. Extra arguments
// are ignored; fields beyond len(args) are left unset.
func (vm *VM) newInstance(n int) error {
	if vm.MaxCallArgs > 0 && n > vm.MaxCallArgs {
		return vm.fail("new: %d argument(s) exceeds the %d-argument limit", n, vm.MaxCallArgs)
	}
	classVal := vm.pop()
	args := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = vm.pop()
	}
	class, ok := classVal.(*value.Class)
	if !ok {
		return vm.fail("new: expected a class, got %s", classVal.TypeName())
	}
	fields := make(map[string]value.Value, len(class.Fields))
	for i, name := range class.Fields {
		if i < len(args) {
			fields[name] = args[i]
		}
	}
	vm.push(&value.Instance{Class: class, Fields: fields})
	return nil
}

// ---------------------------------------------------------------------
// GET_ATTR / SET_ATTR / GET_INDEX / SET_INDEX helpers
// ---------------------------------------------------------------------

func getAttr(obj value.Value, name string) (value.Value, error) {
	switch o := obj.(type) {
	case *value.Instance:
		if name == "__class__" {
			return value.Str(o.Class.Name), nil
		}
		if v, ok := o.Fields[name]; ok {
			return v, nil
		}
		if fn, ok := o.Class.Methods[name]; ok {
			return &value.BoundMethod{Receiver: o, Method: fn}, nil
		}
		return nil, fmt.Errorf("%s instance has no attribute %q", o.Class.Name, name)
	case *value.List:
		if name == "length" {
			return value.Int(len(o.Elements)), nil
		}
		return nil, fmt.Errorf("list has no attribute %q", name)
	case value.Str:
		if name == "length" {
			return value.Int(len([]rune(string(o)))), nil
		}
		return nil, fmt.Errorf("string has no attribute %q", name)
	case *value.Map:
		if name == "length" {
			return value.Int(len(o.Keys)), nil
		}
		return nil, fmt.Errorf("map has no attribute %q", name)
	default:
		return nil, fmt.Errorf("%s has no attributes", obj.TypeName())
	}
}

func getIndex(obj, idx value.Value) (value.Value, error) {
	switch o := obj.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("list index must be an int, got %s", idx.TypeName())
		}
		if int(i) < 0 || int(i) >= len(o.Elements) {
			return nil, fmt.Errorf("list index %d out of bounds (length %d)", i, len(o.Elements))
		}
		return o.Elements[i], nil
	case *value.Map:
		k, ok := idx.(value.Str)
		if !ok {
			return nil, fmt.Errorf("map index must be a string, got %s", idx.TypeName())
		}
		v, ok := o.Get(string(k))
		if !ok {
			return value.None{}, nil
		}
		return v, nil
	case value.Str:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, fmt.Errorf("string index must be an int, got %s", idx.TypeName())
		}
		runes := []rune(string(o))
		if int(i) < 0 || int(i) >= len(runes) {
			return nil, fmt.Errorf("string index %d out of bounds (length %d)", i, len(runes))
		}
		return value.Str(runes[i]), nil
	default:
		return nil, fmt.Errorf("%s is not indexable", obj.TypeName())
	}
}

func setIndex(obj, idx, val value.Value) error {
	switch o := obj.(type) {
	case *value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return fmt.Errorf("list index must be an int, got %s", idx.TypeName())
		}
		if int(i) < 0 || int(i) >= len(o.Elements) {
			return fmt.Errorf("list index %d out of bounds (length %d)", i, len(o.Elements))
		}
		o.Elements[i] = val
		return nil
	case *value.Map:
		k, ok := idx.(value.Str)
		if !ok {
			return fmt.Errorf("map index must be a string, got %s", idx.TypeName())
		}
		o.Set(string(k), val)
		return nil
	default:
		return fmt.Errorf("%s is not indexable", obj.TypeName())
	}
}

// ---------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------

func isNumber(v value.Value) bool {
	switch v.(type) {
	case value.Int, value.Float:
		return true
	}
	return false
}

func toFloat(v value.Value) float64 {
	switch n := v.(type) {
	case value.Int:
		return float64(n)
	case value.Float:
		return float64(n)
	}
	return 0
}

func (vm *VM) arith(op bytecode.Op, a, b value.Value) (value.Value, error) {
	if op == bytecode.ADD {
		if _, ok := a.(value.Str); ok {
			return value.Str(a.String() + b.String()), nil
		}
		if _, ok := b.(value.Str); ok {
			return value.Str(a.String() + b.String()), nil
		}
		if al, ok := a.(*value.List); ok {
			bl, ok2 := b.(*value.List)
			if !ok2 {
				return nil, fmt.Errorf("ADD: expected a list, got %s", b.TypeName())
			}
			elems := make([]value.Value, 0, len(al.Elements)+len(bl.Elements))
			elems = append(elems, al.Elements...)
			elems = append(elems, bl.Elements...)
			return &value.List{Elements: elems}, nil
		}
	}

	if op == bytecode.MUL {
		if s, ok := a.(value.Str); ok {
			if n, ok2 := b.(value.Int); ok2 {
				return repeatStr(string(s), int64(n))
			}
		}
		if s, ok := b.(value.Str); ok {
			if n, ok2 := a.(value.Int); ok2 {
				return repeatStr(string(s), int64(n))
			}
		}
	}

	if !isNumber(a) || !isNumber(b) {
		return nil, fmt.Errorf("%s: expected numeric operands, got %s and %s", op, a.TypeName(), b.TypeName())
	}

	switch op {
	case bytecode.ADD:
		return numericBinary(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y }), nil
	case bytecode.SUB:
		return numericBinary(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y }), nil
	case bytecode.MUL:
		return numericBinary(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y }), nil
	case bytecode.DIV:
		if toFloat(b) == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return numericBinary(a, b, func(x, y int64) int64 { return x / y }, func(x, y float64) float64 { return x / y }), nil
	case bytecode.MOD:
		if toFloat(b) == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return numericBinary(a, b, func(x, y int64) int64 { return x % y }, math.Mod), nil
	case bytecode.POW:
		ai, aok := a.(value.Int)
		bi, bok := b.(value.Int)
		if aok && bok && bi >= 0 {
			result := int64(1)
			for i := int64(0); i < int64(bi); i++ {
				result *= int64(ai)
			}
			return value.Int(result), nil
		}
		return value.Float(math.Pow(toFloat(a), toFloat(b))), nil
	default:
		return nil, fmt.Errorf("unsupported arithmetic opcode %s", op)
	}
}

func numericBinary(a, b value.Value, iop func(x, y int64) int64, fop func(x, y float64) float64) value.Value {
	ai, aok := a.(value.Int)
	bi, bok := b.(value.Int)
	if aok && bok {
		return value.Int(iop(int64(ai), int64(bi)))
	}
	return value.Float(fop(toFloat(a), toFloat(b)))
}

func repeatStr(s string, n int64) (value.Value, error) {
	if n < 0 {
		return nil, fmt.Errorf("MUL: cannot repeat a string a negative number of times")
	}
	out := ""
	for i := int64(0); i < n; i++ {
		out += s
	}
	return value.Str(out), nil
}

func negate(x value.Value) (value.Value, error) {
	switch n := x.(type) {
	case value.Int:
		return -n, nil
	case value.Float:
		return -n, nil
	default:
		return nil, fmt.Errorf("NEG: expected a number, got %s", x.TypeName())
	}
}

func compare(op bytecode.Op, a, b value.Value) (value.Value, error) {
	if isNumber(a) && isNumber(b) {
		af, bf := toFloat(a), toFloat(b)
		switch op {
		case bytecode.LT:
			return value.Bool(af < bf), nil
		case bytecode.GT:
			return value.Bool(af > bf), nil
		case bytecode.LE:
			return value.Bool(af <= bf), nil
		case bytecode.GE:
			return value.Bool(af >= bf), nil
		}
	}
	if as, ok := a.(value.Str); ok {
		if bs, ok2 := b.(value.Str); ok2 {
			switch op {
			case bytecode.LT:
				return value.Bool(as < bs), nil
			case bytecode.GT:
				return value.Bool(as > bs), nil
			case bytecode.LE:
				return value.Bool(as <= bs), nil
			case bytecode.GE:
				return value.Bool(as >= bs), nil
			}
		}
	}
	return nil, fmt.Errorf("%s: expected two numbers or two strings, got %s and %s", op, a.TypeName(), b.TypeName())
}
