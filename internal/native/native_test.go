package native

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvoyaz-lang/dvoyaz/pkg/ast"
	"github.com/dvoyaz-lang/dvoyaz/pkg/parser"
)

func parse(t *testing.T, src string) *ast.Program {
	t.Helper()
	p, err := parser.New(src)
	require.NoError(t, err)
	prog, err := p.Parse()
	require.NoError(t, err)
	return prog
}

func TestEmitRejectsClosures(t *testing.T) {
	dir := t.TempDir()
	prog := parse(t, `fun outer() {
  let x = 1
  fun make() { return x }
  return make
}`)
	err := Emit(prog, filepath.Join(dir, "out.ll"), filepath.Join(dir, "out"))
	require.Error(t, err)
	var unsupported *ErrUnsupported
	require.ErrorAs(t, err, &unsupported)
}

func TestEmitLowersArithmeticFunction(t *testing.T) {
	dir := t.TempDir()
	prog := parse(t, `fun add(a, b) { return a + b * 2 }`)
	err := Emit(prog, filepath.Join(dir, "add.ll"), filepath.Join(dir, "add"))
	// A missing system cc is an acceptable, explicitly-reported failure
	// here; only a failure to lower the IR itself (an ErrUnsupported) is
	// wrong.
	if err != nil {
		var unsupported *ErrUnsupported
		require.NotErrorAs(t, err, &unsupported)
	}
}
