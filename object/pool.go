package object

import "github.com/loxlang/lox/ward"

// ClosureHandle is the scope-arm handle a Function captures. It is an
// interface, not a concrete scope.Cactus/Handle, so that this package
// never has to import scope (which in turn needs to store object.Ref
// values in its bindings) — scope.Handle.AsClosure returns a value
// implementing this interface.
// Release lets a freed Function/Class slot give up the scope-arm
// reference it retained at closure-capture time, cascading into the
// cactus the same way releasing a field Ref cascades into the pool.
type ClosureHandle interface {
	Lookup(id ward.TokenID) (Ref, bool)
	Assign(id ward.TokenID, v Ref) bool
	Define(id ward.TokenID, v Ref)
	MakeChild() ClosureHandle
	Release()
}

// Ref is a handle to a Value living in a Pool. It is a plain index, the
// Go equivalent of the original's object_ref_t smart pointer minus
// automatic destruction — callers Retain/Release explicitly at the
// points spec.md's lifecycle calls for (scope assignment/shadowing,
// pool exhaustion of a call frame's temporaries).
type Ref int

// slot is one object_pool_t arena entry: a reference count, a value,
// and (once freed) a free-list link.
type slot struct {
	refCount int
	value    Value
	nextFree int
}

// Pool is the reference-counted, free-list-reusing object arena from
// spec.md §4.2, ported from object_pool_t in
// original_source/cpp/zoo/lox/object_pool.hpp.
type Pool struct {
	slots    []slot
	freeHead int
}

// NewPool creates an empty Pool.
func NewPool() *Pool {
	return &Pool{freeHead: -1}
}

// Make allocates a new Ref for v with ref-count 1, reusing a freed slot
// if one is available.
func (p *Pool) Make(v Value) Ref {
	if p.freeHead >= 0 {
		idx := p.freeHead
		p.freeHead = p.slots[idx].nextFree
		p.slots[idx] = slot{refCount: 1, value: v, nextFree: -1}
		return Ref(idx)
	}
	p.slots = append(p.slots, slot{refCount: 1, value: v, nextFree: -1})
	return Ref(len(p.slots) - 1)
}

// Get dereferences r.
func (p *Pool) Get(r Ref) Value {
	return p.slots[r].value
}

// Retain increments r's reference count, used whenever a Ref is stored
// into a second place (a scope binding, an instance field) that will
// outlive the expression that produced it.
func (p *Pool) Retain(r Ref) {
	p.slots[r].refCount++
}

// Release decrements r's reference count, returning the slot to the
// free list once it reaches zero. Freeing a slot recursively releases
// every Ref or ClosureHandle its value owns (an Instance's fields, a
// Class's methods' closures, a Function's own closure) — the slot
// destructor cascade spec.md §4.2 requires ("clear the slot... which
// may recursively drop other refs").
func (p *Pool) Release(r Ref) {
	s := &p.slots[r]
	s.refCount--
	if s.refCount <= 0 {
		releaseOwned(p, s.value)
		s.value = None{}
		s.nextFree = p.freeHead
		p.freeHead = int(r)
	}
}

// releaseOwned drops the Refs/ClosureHandles v holds once v's own slot
// has reached ref-count 0.
func releaseOwned(p *Pool, v Value) {
	switch val := v.(type) {
	case *Function:
		if val.Closure != nil {
			val.Closure.Release()
		}
	case *Instance:
		for _, field := range val.Fields {
			p.Release(field)
		}
	case *Class:
		for _, m := range val.Methods {
			if m.Closure != nil {
				m.Closure.Release()
			}
		}
	}
}

// RefCount reports r's current reference count, for tests.
func (p *Pool) RefCount(r Ref) int {
	return p.slots[r].refCount
}

// Len reports the arena's current slot count (live + freed), for tests.
func (p *Pool) Len() int {
	return len(p.slots)
}
