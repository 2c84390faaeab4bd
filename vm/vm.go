package vm

import (
	"github.com/loxlang/lox/parsetree"
	"github.com/loxlang/lox/ward"
)

// Chunk is a compiled unit of bytecode plus its constant table, the Go
// shape of chunk_t in original_source's bytecode.hpp.
type Chunk struct {
	Code      []byte
	Constants []any
}

// Compile would lower a parsed program into a Chunk the way
// bytecode/compiler.go lowers a Soy template into its own bytecode.
// Out of scope: this module implements only the tree-walking Session in
// package interp.
func Compile(tree *parsetree.Tree, rules any, w *ward.Ward) (*Chunk, error) {
	panic("not implemented: bytecode backend is out of scope")
}

// Run would execute a compiled Chunk. Out of scope for the same reason
// as Compile.
func Run(chunk *Chunk) error {
	panic("not implemented: bytecode backend is out of scope")
}
