// Package vm - interactive debugger support.
package vm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Debugger provides an interactive, instruction-level pause point for
// a VM: breakpoints by instruction offset within whichever frame is
// currently executing, and single-step mode.
type Debugger struct {
	vm          *VM
	breakpoints map[int]bool
	stepMode    bool
	enabled     bool
}

func newDebugger(vm *VM) *Debugger {
	return &Debugger{vm: vm, breakpoints: make(map[int]bool)}
}

func (d *Debugger) Enable()                { d.enabled = true }
func (d *Debugger) Disable()               { d.enabled = false }
func (d *Debugger) SetStepMode(on bool)    { d.stepMode = on }
func (d *Debugger) AddBreakpoint(ip int)   { d.breakpoints[ip] = true }
func (d *Debugger) RemoveBreakpoint(ip int) { delete(d.breakpoints, ip) }
func (d *Debugger) ClearBreakpoints()      { d.breakpoints = make(map[int]bool) }

func (d *Debugger) shouldPause(ip int) bool {
	return d.stepMode || d.breakpoints[ip]
}

// pause shows the current instruction and drives an interactive
// prompt until the user resumes execution. It returns false if the
// user asked to abort.
func (d *Debugger) pause(fr *frame) bool {
	fmt.Println("\n=== Debugger Paused ===")
	d.showInstruction(fr)
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("debug> ")
		if !scanner.Scan() {
			return false
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		switch parts[0] {
		case "help", "h", "?":
			d.printHelp()
		case "continue", "c":
			d.SetStepMode(false)
			return true
		case "step", "s":
			d.SetStepMode(true)
			return true
		case "stack", "st":
			d.showStack()
		case "locals", "l":
			d.showLocals(fr)
		case "globals", "g":
			d.showGlobals()
		case "callstack", "cs":
			d.showCallStack()
		case "instruction", "i":
			d.showInstruction(fr)
		case "break", "b":
			if len(parts) < 2 {
				fmt.Println("usage: break <ip>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.AddBreakpoint(ip)
			fmt.Printf("breakpoint set at %d\n", ip)
		case "delete", "d":
			if len(parts) < 2 {
				fmt.Println("usage: delete <ip>")
				continue
			}
			ip, err := strconv.Atoi(parts[1])
			if err != nil {
				fmt.Println("invalid instruction offset")
				continue
			}
			d.RemoveBreakpoint(ip)
		case "list", "ls":
			d.listInstructions(fr)
		case "quit", "q":
			return false
		default:
			fmt.Printf("unknown command %q (try 'help')\n", parts[0])
		}
	}
}

func (d *Debugger) printHelp() {
	fmt.Println("commands: help continue step stack locals globals callstack instruction break <ip> delete <ip> list quit")
}

func (d *Debugger) showInstruction(fr *frame) {
	if fr.ip >= len(fr.code) {
		fmt.Println("(no current instruction)")
		return
	}
	in := fr.code[fr.ip]
	fmt.Printf("  %s %4d: %s %d\n", fr.name, fr.ip, in.Op, in.Operand)
}

func (d *Debugger) showStack() {
	fmt.Println("stack (top to bottom):")
	s := d.vm.stack
	if len(s) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for i := len(s) - 1; i >= 0; i-- {
		fmt.Printf("  [%d] %s\n", i, s[i].String())
	}
}

func (d *Debugger) showLocals(fr *frame) {
	fmt.Println("locals:")
	if len(fr.locals) == 0 {
		fmt.Println("  (none)")
		return
	}
	for i, c := range fr.locals {
		fmt.Printf("  [%d] %s\n", i, c.Value.String())
	}
}

func (d *Debugger) showGlobals() {
	fmt.Println("globals:")
	for i, name := range d.vm.module.Globals {
		fmt.Printf("  %s = %s\n", name, d.vm.globals[i].String())
	}
}

func (d *Debugger) showCallStack() {
	fmt.Println("call stack (innermost first):")
	for i := len(d.vm.frames) - 1; i >= 0; i-- {
		fr := d.vm.frames[i]
		fmt.Printf("  %s [IP: %d]\n", fr.name, fr.ip)
	}
}

func (d *Debugger) listInstructions(fr *frame) {
	for i, in := range fr.code {
		marker := "  "
		switch {
		case i == fr.ip:
			marker = "->"
		case d.breakpoints[i]:
			marker = "* "
		}
		fmt.Printf("%s %4d: %s %d\n", marker, i, in.Op, in.Operand)
	}
}
