package bytecode

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, m *Module) *Module {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(m, &buf))
	got, err := Decode(&buf)
	require.NoError(t, err)
	return got
}

func TestEncodeDecode_EmptyModule(t *testing.T) {
	m := &Module{}
	got := roundTrip(t, m)
	require.Empty(t, got.Constants)
	require.Empty(t, got.Globals)
	require.Empty(t, got.Functions)
	require.Empty(t, got.MainCode)
}

func TestEncodeDecode_ScalarConstants(t *testing.T) {
	m := &Module{
		Constants: []any{int64(42), 3.5, "hello", true, false, nil},
		Globals:   []string{"x", "y"},
		MainCode: []Instruction{
			{Op: LOAD_CONST, Operand: 0},
			{Op: STORE_GLOBAL, Operand: 0},
			{Op: HALT},
		},
	}
	got := roundTrip(t, m)
	require.Equal(t, m.Constants, got.Constants)
	require.Equal(t, m.Globals, got.Globals)
	require.Equal(t, m.MainCode, got.MainCode)
}

func TestEncodeDecode_Function(t *testing.T) {
	fn := &Function{
		Name:       "add",
		Arity:      2,
		LocalCount: 2,
		Upvalues: []Upvalue{
			{IsLocal: true, ParentIndex: 0},
			{IsLocal: false, ParentIndex: 1},
		},
		Code: []Instruction{
			{Op: LOAD_VAR, Operand: 0},
			{Op: LOAD_VAR, Operand: 1},
			{Op: ADD},
			{Op: RETURN},
		},
	}
	m := &Module{
		Constants: []any{fn},
		Functions: []*Function{fn},
		MainCode:  []Instruction{{Op: HALT}},
	}
	got := roundTrip(t, m)
	require.Len(t, got.Functions, 1)
	require.Equal(t, fn, got.Functions[0])
	require.Len(t, got.Constants, 1)
	require.Equal(t, fn, got.Constants[0])
}

func TestEncodeDecode_Class(t *testing.T) {
	method := &Function{Name: "greet", Arity: 1, LocalCount: 1, Code: []Instruction{{Op: RETURN}}}
	class := &Class{
		Name:   "Point",
		Fields: []string{"x", "y"},
		Methods: map[string]*Function{
			"greet": method,
		},
	}
	m := &Module{Constants: []any{class}}
	got := roundTrip(t, m)
	require.Len(t, got.Constants, 1)
	require.Equal(t, class, got.Constants[0])
}

func TestDecode_RejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeString(&buf, "NOPE"))
	_, err := Decode(&buf)
	require.Error(t, err)
}

func TestDecode_RejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeString(&buf, Magic))
	// bogus version (999), simulating a future incompatible format
	_, err := buf.Write([]byte{0xE7, 0x03})
	require.NoError(t, err)
	_, err = Decode(&buf)
	require.Error(t, err)
}

func TestEncode_RejectsUnsupportedConstantType(t *testing.T) {
	m := &Module{Constants: []any{struct{}{}}}
	var buf bytes.Buffer
	err := Encode(m, &buf)
	require.Error(t, err)
}
