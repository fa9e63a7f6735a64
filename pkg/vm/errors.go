// Package vm executes a compiled bytecode.Module on a stack machine.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame records one call-stack entry at the time an error was
// raised: which function was executing and at what instruction.
type StackFrame struct {
	Name string // function name, or "<lambda>"/"<main>"
	IP   int    // instruction pointer within that function's code
}

// RuntimeError is a failure raised while executing a Module: a type
// mismatch, an arity mismatch, an unknown attribute, a division by
// zero, or a built-in reporting its own *builtins.Error.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.StackTrace) > 0 {
		b.WriteString("\n\nStack trace:")
		for i := len(e.StackTrace) - 1; i >= 0; i-- {
			frame := e.StackTrace[i]
			b.WriteString(fmt.Sprintf("\n  at %s [IP: %d]", frame.Name, frame.IP))
		}
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
