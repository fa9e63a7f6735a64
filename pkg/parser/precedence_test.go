package parser

import (
	"testing"

	"github.com/dvoyaz-lang/dvoyaz/pkg/ast"
)

func exprOf(t *testing.T, src string) ast.Expression {
	t.Helper()
	p, err := New(src)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	program, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	stmt, ok := program.Statements[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("expected ExprStmt, got %T", program.Statements[0])
	}
	return stmt.X
}

// TestParseMulBindsTighterThanAdd checks that * binds tighter than +.
func TestParseMulBindsTighterThanAdd(t *testing.T) {
	expr := exprOf(t, "1 + 2 * 3")

	top, ok := expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", expr)
	}
	if top.Op != "+" {
		t.Errorf("expected top-level operator '+', got %s", top.Op)
	}

	right, ok := top.Right.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr on the right, got %T", top.Right)
	}
	if right.Op != "*" {
		t.Errorf("expected right operator '*', got %s", right.Op)
	}
}

// TestParseAdditiveChainsLeftToRight checks left-associativity of + and -.
func TestParseAdditiveChainsLeftToRight(t *testing.T) {
	expr := exprOf(t, "3 + 4 - 2")

	top, ok := expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", expr)
	}
	if top.Op != "-" {
		t.Errorf("expected top-level operator '-', got %s", top.Op)
	}

	left, ok := top.Left.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr on the left, got %T", top.Left)
	}
	if left.Op != "+" {
		t.Errorf("expected left operator '+', got %s", left.Op)
	}
}

// TestParseUnaryBindsTighterThanBinary checks that unary - binds tighter
// than the binary operators around it.
func TestParseUnaryBindsTighterThanBinary(t *testing.T) {
	expr := exprOf(t, "-a + b")

	top, ok := expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", expr)
	}
	if top.Op != "+" {
		t.Errorf("expected top-level operator '+', got %s", top.Op)
	}

	left, ok := top.Left.(*ast.UnaryExpr)
	if !ok {
		t.Fatalf("expected UnaryExpr on the left, got %T", top.Left)
	}
	if left.Op != "-" {
		t.Errorf("expected left unary operator '-', got %s", left.Op)
	}
}

// TestParseComparisonLowerPrecedenceThanArithmetic checks that < binds
// looser than + and *.
func TestParseComparisonLowerPrecedenceThanArithmetic(t *testing.T) {
	expr := exprOf(t, "a + 1 < b * 2")

	top, ok := expr.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr, got %T", expr)
	}
	if top.Op != "<" {
		t.Errorf("expected top-level operator '<', got %s", top.Op)
	}

	left, ok := top.Left.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr on the left, got %T", top.Left)
	}
	if left.Op != "+" {
		t.Errorf("expected left operator '+', got %s", left.Op)
	}

	right, ok := top.Right.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr on the right, got %T", top.Right)
	}
	if right.Op != "*" {
		t.Errorf("expected right operator '*', got %s", right.Op)
	}
}

// TestParseCallArgsCanBeBinaryExpressions checks that a call argument can
// itself be a full binary expression.
func TestParseCallArgsCanBeBinaryExpressions(t *testing.T) {
	expr := exprOf(t, "at(index + 1)")

	call, ok := expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", expr)
	}
	if len(call.Args) != 1 {
		t.Fatalf("expected 1 argument, got %d", len(call.Args))
	}

	arg, ok := call.Args[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr argument, got %T", call.Args[0])
	}
	if arg.Op != "+" {
		t.Errorf("expected argument operator '+', got %s", arg.Op)
	}
}

// TestParseMultipleCallArgsEachKeepTheirOwnPrecedence checks that separate
// call arguments are parsed independently of one another.
func TestParseMultipleCallArgsEachKeepTheirOwnPrecedence(t *testing.T) {
	expr := exprOf(t, "point(a + b, c * d)")

	call, ok := expr.(*ast.CallExpr)
	if !ok {
		t.Fatalf("expected CallExpr, got %T", expr)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 arguments, got %d", len(call.Args))
	}

	arg0, ok := call.Args[0].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr first argument, got %T", call.Args[0])
	}
	if arg0.Op != "+" {
		t.Errorf("expected first argument operator '+', got %s", arg0.Op)
	}

	arg1, ok := call.Args[1].(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("expected BinaryExpr second argument, got %T", call.Args[1])
	}
	if arg1.Op != "*" {
		t.Errorf("expected second argument operator '*', got %s", arg1.Op)
	}
}
