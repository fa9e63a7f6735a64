// Package bytecode (this file) provides serialization and deserialization
// for compiled dvoyaz modules.
//
// File Format Specification:
//
// The container format lets a module be compiled once and loaded many
// times without re-parsing or re-compiling. It is designed to be:
//   - Compact: fixed-width instructions, length-prefixed strings
//   - Versioned: a version field allows format evolution
//   - Complete: stores every table the VM needs to execute the module
//
// Binary Format Layout (all multi-byte numerics little-endian):
//
//	[Header]
//	  Magic (length-prefixed ASCII): "UABC"
//	  Version (uint16): format version (currently 1)
//
//	[Constants Section]
//	  Count (uint32)
//	  For each constant: tag byte + tag-specific payload
//
//	[Globals Section]
//	  Count (uint32) + length-prefixed UTF-8 names
//
//	[Functions Section]
//	  Count (uint32) + function records (see writeFunction)
//
//	[Main Code Section]
//	  Length (uint32) + instructions (see writeInstruction)
//
// Constant Tags:
//
//	0 = none      (no payload)
//	1 = int       (float64 payload; see writeConstant)
//	2 = float     (float64 payload)
//	3 = string    (uint32 length + UTF-8 bytes)
//	4 = bool      (uint8: 0 or 1)
//	5 = function  (function record, see writeFunction)
//	6 = class     (name, field names, selector/function pairs)
//
// Every instruction is a fixed 5 bytes: a 1-byte opcode followed by a
// 4-byte signed operand.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the container's file signature, written length-prefixed like
// any other string in the format.
const Magic = "UABC"

// FormatVersion is the current container format version.
const FormatVersion uint16 = 1

// Constant tags.
const (
	tagNone     byte = 0
	tagInt      byte = 1
	tagFloat    byte = 2
	tagString   byte = 3
	tagBool     byte = 4
	tagFunction byte = 5
	tagClass    byte = 6
)

// Encode serializes a Module to w in the container format described at
// the top of this file.
func Encode(m *Module, w io.Writer) error {
	if err := writeString(w, Magic); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, FormatVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := writeConstants(w, m.Constants); err != nil {
		return fmt.Errorf("write constants: %w", err)
	}
	if err := writeStringSlice(w, m.Globals); err != nil {
		return fmt.Errorf("write globals: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.Functions))); err != nil {
		return fmt.Errorf("write function count: %w", err)
	}
	for i, fn := range m.Functions {
		if err := writeFunction(w, fn); err != nil {
			return fmt.Errorf("write function %d: %w", i, err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.MainCode))); err != nil {
		return fmt.Errorf("write main code length: %w", err)
	}
	for i, in := range m.MainCode {
		if err := writeInstruction(w, in); err != nil {
			return fmt.Errorf("write main instruction %d: %w", i, err)
		}
	}
	return nil
}

// Decode reads a Module from r, the inverse of Encode. It returns an
// error if the magic doesn't match, the version is unsupported, or the
// stream is truncated or malformed.
func Decode(r io.Reader) (*Module, error) {
	magic, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("not a dvoyaz bytecode file: bad magic %q", magic)
	}

	var version uint16
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported bytecode version %d (expected %d)", version, FormatVersion)
	}

	constants, err := readConstants(r)
	if err != nil {
		return nil, fmt.Errorf("read constants: %w", err)
	}
	globals, err := readStringSlice(r)
	if err != nil {
		return nil, fmt.Errorf("read globals: %w", err)
	}

	var funcCount uint32
	if err := binary.Read(r, binary.LittleEndian, &funcCount); err != nil {
		return nil, fmt.Errorf("read function count: %w", err)
	}
	functions := make([]*Function, funcCount)
	for i := range functions {
		fn, err := readFunction(r)
		if err != nil {
			return nil, fmt.Errorf("read function %d: %w", i, err)
		}
		functions[i] = fn
	}

	var mainLen uint32
	if err := binary.Read(r, binary.LittleEndian, &mainLen); err != nil {
		return nil, fmt.Errorf("read main code length: %w", err)
	}
	mainCode := make([]Instruction, mainLen)
	for i := range mainCode {
		in, err := readInstruction(r)
		if err != nil {
			return nil, fmt.Errorf("read main instruction %d: %w", i, err)
		}
		mainCode[i] = in
	}

	return &Module{
		Constants: constants,
		Globals:   globals,
		Functions: functions,
		MainCode:  mainCode,
	}, nil
}

func writeInstruction(w io.Writer, in Instruction) error {
	if err := binary.Write(w, binary.LittleEndian, byte(in.Op)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, in.Operand)
}

func readInstruction(r io.Reader) (Instruction, error) {
	var op byte
	if err := binary.Read(r, binary.LittleEndian, &op); err != nil {
		return Instruction{}, err
	}
	var operand int32
	if err := binary.Read(r, binary.LittleEndian, &operand); err != nil {
		return Instruction{}, err
	}
	return Instruction{Op: Op(op), Operand: operand}, nil
}

func writeFunction(w io.Writer, fn *Function) error {
	if err := writeString(w, fn.Name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(fn.Arity)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(fn.LocalCount)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(fn.Upvalues))); err != nil {
		return err
	}
	for _, uv := range fn.Upvalues {
		var isLocal byte
		if uv.IsLocal {
			isLocal = 1
		}
		if err := binary.Write(w, binary.LittleEndian, isLocal); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(uv.ParentIndex)); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(fn.Code))); err != nil {
		return err
	}
	for i, in := range fn.Code {
		if err := writeInstruction(w, in); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

func readFunction(r io.Reader) (*Function, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	var arity, localCount, upvalueCount uint32
	if err := binary.Read(r, binary.LittleEndian, &arity); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &localCount); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &upvalueCount); err != nil {
		return nil, err
	}
	var upvalues []Upvalue
	if upvalueCount > 0 {
		upvalues = make([]Upvalue, upvalueCount)
	}
	for i := range upvalues {
		var isLocal byte
		if err := binary.Read(r, binary.LittleEndian, &isLocal); err != nil {
			return nil, err
		}
		var parentIndex uint32
		if err := binary.Read(r, binary.LittleEndian, &parentIndex); err != nil {
			return nil, err
		}
		upvalues[i] = Upvalue{IsLocal: isLocal != 0, ParentIndex: int(parentIndex)}
	}
	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]Instruction, codeLen)
	for i := range code {
		in, err := readInstruction(r)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		code[i] = in
	}
	return &Function{
		Name:       name,
		Arity:      int(arity),
		LocalCount: int(localCount),
		Upvalues:   upvalues,
		Code:       code,
	}, nil
}

func writeClass(w io.Writer, c *Class) error {
	if err := writeString(w, c.Name); err != nil {
		return err
	}
	if err := writeStringSlice(w, c.Fields); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.Methods))); err != nil {
		return err
	}
	for selector, fn := range c.Methods {
		if err := writeString(w, selector); err != nil {
			return err
		}
		if err := writeFunction(w, fn); err != nil {
			return fmt.Errorf("method %q: %w", selector, err)
		}
	}
	return nil
}

func readClass(r io.Reader) (*Class, error) {
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	fields, err := readStringSlice(r)
	if err != nil {
		return nil, err
	}
	var methodCount uint32
	if err := binary.Read(r, binary.LittleEndian, &methodCount); err != nil {
		return nil, err
	}
	methods := make(map[string]*Function, methodCount)
	for i := uint32(0); i < methodCount; i++ {
		selector, err := readString(r)
		if err != nil {
			return nil, err
		}
		fn, err := readFunction(r)
		if err != nil {
			return nil, fmt.Errorf("method %q: %w", selector, err)
		}
		methods[selector] = fn
	}
	return &Class{Name: name, Fields: fields, Methods: methods}, nil
}

func writeConstants(w io.Writer, constants []any) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(constants))); err != nil {
		return err
	}
	for i, c := range constants {
		if err := writeConstant(w, c); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}
	return nil
}

// writeConstant writes one constant value, tagged by its Go type. Integer
// constants are stored with a float64 payload alongside their own tag
// (tagInt) so that the reader can round-trip a Go int64 by conversion
// without losing the int/float distinction the VM's value model relies on.
func writeConstant(w io.Writer, c any) error {
	switch v := c.(type) {
	case nil:
		return binary.Write(w, binary.LittleEndian, tagNone)
	case int64:
		if err := binary.Write(w, binary.LittleEndian, tagInt); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, float64(v))
	case float64:
		if err := binary.Write(w, binary.LittleEndian, tagFloat); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v)
	case string:
		if err := binary.Write(w, binary.LittleEndian, tagString); err != nil {
			return err
		}
		return writeString(w, v)
	case bool:
		if err := binary.Write(w, binary.LittleEndian, tagBool); err != nil {
			return err
		}
		var b byte
		if v {
			b = 1
		}
		return binary.Write(w, binary.LittleEndian, b)
	case *Function:
		if err := binary.Write(w, binary.LittleEndian, tagFunction); err != nil {
			return err
		}
		return writeFunction(w, v)
	case *Class:
		if err := binary.Write(w, binary.LittleEndian, tagClass); err != nil {
			return err
		}
		return writeClass(w, v)
	default:
		return fmt.Errorf("unsupported constant type %T", c)
	}
}

func readConstants(r io.Reader) ([]any, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	constants := make([]any, count)
	for i := range constants {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constants[i] = c
	}
	return constants, nil
}

func readConstant(r io.Reader) (any, error) {
	var tag byte
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return nil, err
	}
	switch tag {
	case tagNone:
		return nil, nil
	case tagInt:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return int64(v), nil
	case tagFloat:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return nil, err
		}
		return v, nil
	case tagString:
		return readString(r)
	case tagBool:
		var b byte
		if err := binary.Read(r, binary.LittleEndian, &b); err != nil {
			return nil, err
		}
		return b != 0, nil
	case tagFunction:
		return readFunction(r)
	case tagClass:
		return readClass(r)
	default:
		return nil, fmt.Errorf("unknown constant tag 0x%02x", tag)
	}
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeStringSlice(w io.Writer, slice []string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(slice))); err != nil {
		return err
	}
	for _, s := range slice {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	return nil
}

func readStringSlice(r io.Reader) ([]string, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}
	slice := make([]string, count)
	for i := range slice {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		slice[i] = s
	}
	return slice, nil
}
