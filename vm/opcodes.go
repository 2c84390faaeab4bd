// Package vm names the bytecode instruction set a compiled Lox backend
// would run, mirroring the opcode_t enum in
// original_source/cpp/zoo/lox/bytecode.hpp and the Opcode/go:generate
// stringer convention bytecode/opcodes.go uses for Soy's own bytecode.
// Compiling and executing this instruction set is out of scope here:
// the tree-walking Session in package interp is the only working
// backend this module ships.
package vm

//go:generate go run golang.org/x/tools/cmd/stringer@v0.1.8 -type=Opcode

// Opcode is one bytecode instruction.
type Opcode int32

const (
	Constant Opcode = iota
	Nil
	True
	False
	Pop
	GetLocal
	SetLocal
	GetGlobal
	DefineGlobal
	SetGlobal
	GetUpvalue
	SetUpvalue
	GetProperty
	SetProperty
	GetSuper
	Equal
	Greater
	Less
	Add
	Subtract
	Multiply
	Divide
	Not
	Negate
	Print
	Jump
	JumpIfFalse
	Loop
	Call
	Invoke
	SuperInvoke
	Closure
	CloseUpvalue
	Return
	Class
	Inherit
	Method

	EndOpcode
)
