// Package dvoyaz is the embedding entry point: compile source to a
// bytecode.Module, then run that module on a fresh VM.
//
// Compile and Run never share state across calls - each Run call builds
// its own VM, reinitializing globals from the module's own table (see
// pkg/vm), so embedders that want to run the same module repeatedly
// should expect top-level mutable state to reset between calls.
package dvoyaz

import (
	"github.com/dvoyaz-lang/dvoyaz/pkg/bytecode"
	"github.com/dvoyaz-lang/dvoyaz/pkg/compiler"
	"github.com/dvoyaz-lang/dvoyaz/pkg/parser"
	"github.com/dvoyaz-lang/dvoyaz/pkg/value"
	"github.com/dvoyaz-lang/dvoyaz/pkg/vm"
)

// Compile lexes, parses, and compiles source into a bytecode.Module, or
// returns the first lexical, parse, or compile error encountered.
func Compile(source string) (*bytecode.Module, error) {
	p, err := parser.New(source)
	if err != nil {
		return nil, err
	}
	prog, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return compiler.New().Compile(prog)
}

// Run executes mod on a fresh VM, invoking out once per PRINT
// instruction with its space-joined display arguments (a nil out
// discards print output). It returns the value left on the stack at
// HALT or else the value of the last top-level expression statement
// (see vm.VM.Run), or a *vm.RuntimeError on failure.
func Run(mod *bytecode.Module, out func(string)) (value.Value, error) {
	machine := vm.New()
	if out != nil {
		machine.Output = out
	} else {
		machine.Output = func(string) {}
	}
	return machine.Run(mod)
}
