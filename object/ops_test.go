package object

import (
	"testing"

	"github.com/loxlang/lox/ward"
)

func TestArithmeticTypeErrors(t *testing.T) {
	if _, err := Add(Number(1), Str("x")); err == nil {
		t.Error("Add(number, string) should error")
	}
	if _, err := Add(Str("a"), Str("b")); err != nil {
		t.Errorf("Add(string, string) should not error: %v", err)
	}
	if _, err := Sub(Bool(true), Number(1)); err == nil {
		t.Error("Sub(bool, number) should error")
	}
}

func TestEqNeverTypeErrors(t *testing.T) {
	if got := Eq(Number(1), Str("1")); got != Bool(false) {
		t.Errorf("Eq(number, string) = %v, want false", got)
	}
	if got := Neq(Number(1), Str("1")); got != Bool(true) {
		t.Errorf("Neq(number, string) = %v, want true", got)
	}
}

// testClosure is a trivial ClosureHandle good enough for exercising
// MemberBind without needing the real scope package (which would be a
// circular test import).
type testClosure struct {
	bindings map[ward.TokenID]Ref
	released bool
}

func newTestClosure() *testClosure {
	return &testClosure{bindings: make(map[ward.TokenID]Ref)}
}

func (c *testClosure) Lookup(id ward.TokenID) (Ref, bool) { v, ok := c.bindings[id]; return v, ok }
func (c *testClosure) Assign(id ward.TokenID, v Ref) bool {
	if _, ok := c.bindings[id]; !ok {
		return false
	}
	c.bindings[id] = v
	return true
}
func (c *testClosure) Define(id ward.TokenID, v Ref) { c.bindings[id] = v }
func (c *testClosure) Release()                      { c.released = true }
func (c *testClosure) MakeChild() ClosureHandle       { return newTestClosure() }

func TestMemberBindWalksSuperclass(t *testing.T) {
	pool := NewPool()
	w := ward.New()
	greetID := w.Intern("greet")
	thisID := w.Intern("this")

	method := &Function{DisplayName: "greet", Closure: newTestClosure()}
	base := &Class{Name: "A", Methods: map[ward.TokenID]*Function{greetID: method}}
	derived := &Class{Name: "B", Methods: map[ward.TokenID]*Function{}, Superclass: base}

	inst := &Instance{Class: derived, Fields: make(map[ward.TokenID]Ref)}
	instRef := pool.Make(inst)

	boundRef, err := MemberBind(pool, instRef, derived, greetID, thisID)
	if err != nil {
		t.Fatalf("MemberBind: %v", err)
	}
	bound, ok := pool.Get(boundRef).(*Function)
	if !ok {
		t.Fatalf("bound value is not a *Function: %v", pool.Get(boundRef))
	}
	if bound == method {
		t.Error("MemberBind must return a new *Function, not the original method")
	}
	if bound.Closure == method.Closure {
		t.Error("MemberBind must bind a NEW child closure, not reuse the method's own")
	}
	if this, ok := bound.Closure.Lookup(thisID); !ok || this != instRef {
		t.Errorf("bound closure's 'this' = %v, %v; want %v, true", this, ok, instRef)
	}
}

func TestMemberGetOwnFieldBeatsMethod(t *testing.T) {
	pool := NewPool()
	w := ward.New()
	xID := w.Intern("x")
	thisID := w.Intern("this")

	class := &Class{Name: "C", Methods: map[ward.TokenID]*Function{
		xID: {DisplayName: "x", Closure: newTestClosure()},
	}}
	fieldRef := pool.Make(Number(99))
	inst := &Instance{Class: class, Fields: map[ward.TokenID]Ref{xID: fieldRef}}
	instRef := pool.Make(inst)

	got, err := MemberGet(pool, instRef, xID, thisID)
	if err != nil {
		t.Fatalf("MemberGet: %v", err)
	}
	if got != fieldRef {
		t.Errorf("MemberGet returned %v, want the own field ref %v (fields must win over methods)", got, fieldRef)
	}
}

func TestMemberBindMissReturnsError(t *testing.T) {
	pool := NewPool()
	w := ward.New()
	missingID := w.Intern("missing")
	thisID := w.Intern("this")

	class := &Class{Name: "C", Methods: map[ward.TokenID]*Function{}}
	inst := &Instance{Class: class, Fields: make(map[ward.TokenID]Ref)}
	instRef := pool.Make(inst)

	if _, err := MemberBind(pool, instRef, class, missingID, thisID); err == nil {
		t.Error("MemberBind should error when the method is not found anywhere in the superclass chain")
	}
}
