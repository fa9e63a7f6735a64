// Package native is an out-of-scope collaborator: it lowers a narrow
// subset of dvoyaz (top-level functions over int parameters,
// arithmetic/comparison/call expressions only) straight from the same
// pkg/ast.Program the parser produces into LLVM IR, then shells out to
// an external C compiler to produce a native object or executable.
//
// It never runs through pkg/vm and is reached only from "dvoyaz
// native"; it is intentionally unoptimized and rejects, with a named
// error, any construct beyond its narrow subset rather than silently
// miscompiling it.
package native

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	irvalue "github.com/llir/llvm/ir/value"

	"github.com/dvoyaz-lang/dvoyaz/pkg/ast"
)

// ErrUnsupported reports a construct this side path does not lower -
// closures, classes, lists, maps, match, or anything beyond top-level
// int arithmetic, comparison, and calls; float literals are rejected too.
type ErrUnsupported struct {
	Construct string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("native: unsupported construct: %s", e.Construct)
}

// emitter lowers a Program into an *ir.Module. Every declared top-level
// function becomes an LLVM function over i64 parameters returning i64;
// there is no float lowering, so a float literal is reported as
// ErrUnsupported.
type emitter struct {
	module  *ir.Module
	globals map[string]*ir.Func
	locals  map[string]irvalue.Value
}

// Emit lowers prog's top-level function declarations to an LLVM IR
// module, writes its textual form to irPath, and shells out to cc (or
// $CC if set) to produce outPath from it.
func Emit(prog *ast.Program, irPath, outPath string) error {
	e := &emitter{module: ir.NewModule(), globals: make(map[string]*ir.Func)}

	var fns []*ast.FuncDecl
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.FuncDecl:
			fns = append(fns, s)
		case *ast.VarDecl, *ast.ExprStmt:
			// top-level non-function statements are not executed by this
			// side path; it only lowers callable functions.
		default:
			return &ErrUnsupported{Construct: fmt.Sprintf("%T at top level", stmt)}
		}
	}

	for _, fn := range fns {
		params := make([]*ir.Param, len(fn.Params))
		for i, name := range fn.Params {
			params[i] = ir.NewParam(name, types.I64)
		}
		irFn := e.module.NewFunc(fn.Name, types.I64, params...)
		e.globals[fn.Name] = irFn
	}

	for _, fn := range fns {
		if err := e.emitFunc(fn); err != nil {
			return err
		}
	}

	irText := e.module.String()
	if err := os.WriteFile(irPath, []byte(irText), 0o644); err != nil {
		return fmt.Errorf("write IR: %w", err)
	}

	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	cmd := exec.Command(cc, "-x", "ir", irPath, "-o", outPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("native codegen: invoking %s: %w", cc, err)
	}
	return nil
}

func (e *emitter) emitFunc(fn *ast.FuncDecl) error {
	irFn := e.globals[fn.Name]
	block := irFn.NewBlock("entry")

	e.locals = make(map[string]irvalue.Value, len(fn.Params))
	for i, name := range fn.Params {
		e.locals[name] = irFn.Params[i]
	}

	for _, stmt := range fn.Body {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok {
			return &ErrUnsupported{Construct: fmt.Sprintf("%T in function body (only a trailing return is lowered)", stmt)}
		}
		if ret.Value == nil {
			block.NewRet(constant.NewInt(0, types.I64))
			return nil
		}
		v, err := e.emitExpr(block, ret.Value)
		if err != nil {
			return err
		}
		block.NewRet(v)
		return nil
	}
	block.NewRet(constant.NewInt(0, types.I64))
	return nil
}

func (e *emitter) emitExpr(block *ir.Block, x ast.Expression) (irvalue.Value, error) {
	switch v := x.(type) {
	case *ast.IntLiteral:
		return constant.NewInt(v.Value, types.I64), nil

	case *ast.Identifier:
		if local, ok := e.locals[v.Name]; ok {
			return local, nil
		}
		return nil, &ErrUnsupported{Construct: fmt.Sprintf("reference to undeclared name %q", v.Name)}

	case *ast.BinaryExpr:
		left, err := e.emitExpr(block, v.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.emitExpr(block, v.Right)
		if err != nil {
			return nil, err
		}
		switch v.Op {
		case "+":
			return block.NewAdd(left, right), nil
		case "-":
			return block.NewSub(left, right), nil
		case "*":
			return block.NewMul(left, right), nil
		case "/":
			return block.NewSDiv(left, right), nil
		case "%":
			return block.NewSRem(left, right), nil
		case "<":
			return e.boolToInt(block, block.NewICmp(enum.IPredSLT, left, right)), nil
		case ">":
			return e.boolToInt(block, block.NewICmp(enum.IPredSGT, left, right)), nil
		case "<=":
			return e.boolToInt(block, block.NewICmp(enum.IPredSLE, left, right)), nil
		case ">=":
			return e.boolToInt(block, block.NewICmp(enum.IPredSGE, left, right)), nil
		case "==":
			return e.boolToInt(block, block.NewICmp(enum.IPredEQ, left, right)), nil
		case "!=":
			return e.boolToInt(block, block.NewICmp(enum.IPredNE, left, right)), nil
		default:
			return nil, &ErrUnsupported{Construct: fmt.Sprintf("binary operator %q", v.Op)}
		}

	case *ast.UnaryExpr:
		operand, err := e.emitExpr(block, v.X)
		if err != nil {
			return nil, err
		}
		if v.Op == "-" {
			return block.NewSub(constant.NewInt(0, types.I64), operand), nil
		}
		return nil, &ErrUnsupported{Construct: fmt.Sprintf("unary operator %q", v.Op)}

	case *ast.CallExpr:
		callee, ok := v.Callee.(*ast.Identifier)
		if !ok {
			return nil, &ErrUnsupported{Construct: "indirect call"}
		}
		target, ok := e.globals[callee.Name]
		if !ok {
			return nil, &ErrUnsupported{Construct: fmt.Sprintf("call to unknown function %q", callee.Name)}
		}
		args := make([]irvalue.Value, len(v.Args))
		for i, a := range v.Args {
			av, err := e.emitExpr(block, a)
			if err != nil {
				return nil, err
			}
			args[i] = av
		}
		return block.NewCall(target, args...), nil

	default:
		return nil, &ErrUnsupported{Construct: fmt.Sprintf("%T expression", x)}
	}
}

// boolToInt widens an i1 comparison result to this side path's i64
// value representation (LLVM's icmp always yields i1).
func (e *emitter) boolToInt(block *ir.Block, cmp irvalue.Value) irvalue.Value {
	return block.NewZExt(cmp, types.I64)
}
