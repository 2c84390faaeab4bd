// Package object is the dynamic value model: a tagged union of Lox
// runtime values (none, boolean, number, string, function, builtin,
// class, instance) plus the reference-counted object pool that owns
// them. The variant shape, operator semantics, and stringification
// rules are ported directly from original_source/cpp/zoo/lox/object.hpp
// and object.cpp; the Go encoding of the union follows the Value
// interface + one concrete type per case that
// robfig/soy/data/value.go uses for its own dynamic values.
package object

import (
	"strconv"
	"strings"

	"github.com/loxlang/lox/parsetree"
	"github.com/loxlang/lox/ward"
)

// Value is any Lox runtime value.
type Value interface {
	// Truthy reports whether the value counts as true in a boolean
	// context: everything but none and false is truthy, per
	// object_t::is_truthy.
	Truthy() bool
	// String renders the value the way Lox's `print` statement and
	// string concatenation render it, per
	// object_pretty_write_impl_visitor_t.
	String() string
	typeName() string
}

// None is Lox's "none" / nil value.
type None struct{}

func (None) Truthy() bool    { return false }
func (None) String() string  { return "none" }
func (None) typeName() string { return "none" }

// Bool is a Lox boolean.
type Bool bool

func (b Bool) Truthy() bool { return bool(b) }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) typeName() string { return "bool" }

// Number is a Lox double. Lox has exactly one numeric type.
type Number float64

func (Number) Truthy() bool { return true }

// String renders the shortest decimal form with trailing zeros (and a
// trailing bare '.') trimmed off, per object_pretty_write_impl_visitor_t's
// std::to_string-then-trim approach.
func (n Number) String() string {
	s := strconv.FormatFloat(float64(n), 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "" || s == "-" {
		s += "0"
	}
	return s
}
func (Number) typeName() string { return "number" }

// Str is a Lox string.
type Str string

func (Str) Truthy() bool      { return true }
func (s Str) String() string  { return string(s) }
func (Str) typeName() string  { return "string" }

// Function is a Lox closure: the parsed parameter list and body, plus
// the scope arm captured at definition time. Closure is shared (never
// copied) across every call and every bound-method rebinding, so
// mutations made inside the closure by one call are visible to
// another — this is the Function/ClosureHandle split spec.md and
// original_source's function_t both require.
type Function struct {
	Name        ward.NameID
	DisplayName string // precomputed for String(); ward isn't reachable from here
	Params      parsetree.Span
	Body        parsetree.Span
	Closure     ClosureHandle
}

func (*Function) Truthy() bool { return true }
func (f *Function) String() string {
	return "<function " + f.DisplayName + ">"
}
func (*Function) typeName() string { return "function" }

// Arity returns the function's declared parameter count.
func (f *Function) Arity() int {
	return f.Params.Node().NumChildren
}

// Builtin is a natively-implemented Lox callable, per spec.md's
// builtin-function value shape: a plain (pool, args) -> (Ref, error)
// native call, not a scope-bound parameter list the way user functions
// are. Grounded on interpreter_t::load_builtins, minus its C++-only
// convenience of binding builtin parameters through a scope frame.
type Builtin struct {
	Name string
	Fn   func(p *Pool, args []Ref) (Ref, error)
}

func (*Builtin) Truthy() bool { return true }
func (b *Builtin) String() string {
	return "<builtin-function '" + b.Name + "'>"
}
func (*Builtin) typeName() string { return "builtin-function" }

// Class is a Lox class: its own method table plus an optional
// superclass pointer, walked by MemberBind on lookup miss.
type Class struct {
	Name       string
	Methods    map[ward.TokenID]*Function
	Superclass *Class
}

func (*Class) Truthy() bool { return true }
func (c *Class) String() string {
	return "<class " + c.Name + ">"
}
func (*Class) typeName() string { return "class" }

// Instance is an instantiated Lox object: its class plus its own field
// table (methods live on the Class, not copied per instance).
type Instance struct {
	Class  *Class
	Fields map[ward.TokenID]Ref
}

func (*Instance) Truthy() bool { return true }
func (i *Instance) String() string {
	return "<instance of " + i.Class.Name + ">"
}
func (*Instance) typeName() string { return "class_instance" }

// Equal implements object_t's variant equality: values of different
// dynamic types are never equal, and function/class/instance compare
// by identity (the same *Function/*Class/*Instance pointer), matching
// operator==(const function_t&, const function_t&) returning &lhs==&rhs.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Str:
		bv, ok := b.(Str)
		return ok && av == bv
	case *Function:
		bv, ok := b.(*Function)
		return ok && av == bv
	case *Builtin:
		bv, ok := b.(*Builtin)
		return ok && av == bv
	case *Class:
		bv, ok := b.(*Class)
		return ok && av == bv
	case *Instance:
		bv, ok := b.(*Instance)
		return ok && av == bv
	default:
		return false
	}
}
