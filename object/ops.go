package object

import (
	"fmt"

	"github.com/loxlang/lox/ward"
)

// typeError formats the same "runtime type error: LHS OP RHS" message
// the original's BINARY_DOUBLE/operator+ macros raise via SILVA_EXPECT.
func typeError(op string, operands ...Value) error {
	switch len(operands) {
	case 1:
		return fmt.Errorf("runtime type error: %s %s", op, operands[0])
	default:
		return fmt.Errorf("runtime type error: %s %s %s", operands[0], op, operands[1])
	}
}

// Neg implements unary '-'.
func Neg(v Value) (Value, error) {
	n, ok := v.(Number)
	if !ok {
		return nil, typeError("-", v)
	}
	return -n, nil
}

// Not implements unary '!'.
func Not(v Value) Value {
	return Bool(!v.Truthy())
}

func asNumbers(lhs, rhs Value) (Number, Number, bool) {
	l, ok1 := lhs.(Number)
	r, ok2 := rhs.(Number)
	return l, r, ok1 && ok2
}

// Add implements '+': double+double or string+string only, no coercion.
func Add(lhs, rhs Value) (Value, error) {
	if l, r, ok := asNumbers(lhs, rhs); ok {
		return l + r, nil
	}
	if l, ok := lhs.(Str); ok {
		if r, ok := rhs.(Str); ok {
			return l + r, nil
		}
	}
	return nil, typeError("+", lhs, rhs)
}

// Sub implements binary '-'.
func Sub(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError("-", lhs, rhs)
	}
	return l - r, nil
}

// Mul implements '*'.
func Mul(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError("*", lhs, rhs)
	}
	return l * r, nil
}

// Div implements '/'.
func Div(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError("/", lhs, rhs)
	}
	return l / r, nil
}

// Lt implements '<'.
func Lt(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError("<", lhs, rhs)
	}
	return Bool(l < r), nil
}

// Gt implements '>'.
func Gt(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError(">", lhs, rhs)
	}
	return Bool(l > r), nil
}

// Lte implements '<='.
func Lte(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError("<=", lhs, rhs)
	}
	return Bool(l <= r), nil
}

// Gte implements '>='.
func Gte(lhs, rhs Value) (Value, error) {
	l, r, ok := asNumbers(lhs, rhs)
	if !ok {
		return nil, typeError(">=", lhs, rhs)
	}
	return Bool(l >= r), nil
}

// Eq implements '=='. Unlike the arithmetic operators, equality never
// type-errors: mismatched types simply compare unequal.
func Eq(lhs, rhs Value) Value {
	return Bool(Equal(lhs, rhs))
}

// Neq implements '!='.
func Neq(lhs, rhs Value) Value {
	return Bool(!Equal(lhs, rhs))
}

// MemberGet reads a field or bound method off a class instance: own
// fields take priority over the class's method table, matching
// member_get in object.cpp.
func MemberGet(pool *Pool, instRef Ref, field ward.TokenID, thisID ward.TokenID) (Ref, error) {
	inst, ok := pool.Get(instRef).(*Instance)
	if !ok {
		return 0, fmt.Errorf("can only get member from class instance, not from %s", pool.Get(instRef))
	}
	if f, ok := inst.Fields[field]; ok {
		return f, nil
	}
	return MemberBind(pool, instRef, inst.Class, field, thisID)
}

// MemberBind looks a method up starting at startClass (or the
// instance's own class, if startClass is nil) walking the superclass
// chain, and binds it: the returned function's closure is a NEW child
// arm of the METHOD's ORIGINAL closure (not of the instance), with
// thisID defined in that new arm. This is member_bind's key invariant
// in object.cpp — rebinding never mutates the method's own closure, so
// the same method can be bound to many instances independently.
func MemberBind(pool *Pool, instRef Ref, startClass *Class, field ward.TokenID, thisID ward.TokenID) (Ref, error) {
	inst, ok := pool.Get(instRef).(*Instance)
	if !ok {
		return 0, fmt.Errorf("can only get member from class instance")
	}
	class := startClass
	if class == nil {
		class = inst.Class
	}
	for class != nil {
		method, ok := class.Methods[field]
		if ok {
			boundClosure := method.Closure.MakeChild()
			boundClosure.Define(thisID, instRef)
			pool.Retain(instRef)
			bound := &Function{
				Name:        method.Name,
				DisplayName: method.DisplayName,
				Params:      method.Params,
				Body:        method.Body,
				Closure:     boundClosure,
			}
			return pool.Make(bound), nil
		}
		class = class.Superclass
	}
	return 0, fmt.Errorf("couldn't access member")
}
