package object

import (
	"testing"

	"github.com/loxlang/lox/ward"
)

func TestPoolMakeGet(t *testing.T) {
	p := NewPool()
	r := p.Make(Number(42))
	if got := p.Get(r); got != Number(42) {
		t.Errorf("Get(r) = %v, want 42", got)
	}
	if got := p.RefCount(r); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
}

func TestPoolRetainRelease(t *testing.T) {
	p := NewPool()
	r := p.Make(Str("x"))
	p.Retain(r)
	if got := p.RefCount(r); got != 2 {
		t.Errorf("RefCount after Retain = %d, want 2", got)
	}
	p.Release(r)
	if got := p.RefCount(r); got != 1 {
		t.Errorf("RefCount after one Release = %d, want 1", got)
	}
	p.Release(r)
	if got := p.RefCount(r); got != 0 {
		t.Errorf("RefCount after second Release = %d, want 0", got)
	}
}

// TestPoolFreeListReuse confirms a freed slot is handed back out by a
// later Make, matching the free-list-reusing arena the spec requires.
func TestPoolFreeListReuse(t *testing.T) {
	p := NewPool()
	r1 := p.Make(Number(1))
	p.Release(r1)
	r2 := p.Make(Number(2))
	if r1 != r2 {
		t.Errorf("freed slot %d was not reused, got new slot %d", r1, r2)
	}
	if got := p.RefCount(r2); got != 1 {
		t.Errorf("reused slot RefCount = %d, want 1", got)
	}
}

// TestPoolReleaseRecursesIntoInstanceFields is the maintainer-reported
// regression: freeing an *Instance's slot must release every field it
// holds, not just clear the slot to None{}.
func TestPoolReleaseRecursesIntoInstanceFields(t *testing.T) {
	p := NewPool()
	field := p.Make(Number(1))
	p.Retain(field)
	inst := p.Make(&Instance{Fields: map[ward.TokenID]Ref{ward.TokenID(1): field}})

	if got := p.RefCount(field); got != 2 {
		t.Fatalf("RefCount(field) before releasing instance = %d, want 2", got)
	}
	p.Release(inst)
	if got := p.RefCount(field); got != 1 {
		t.Errorf("RefCount(field) after releasing the owning instance = %d, want 1 (field should be released)", got)
	}
}

// TestPoolReleaseRecursesIntoFunctionClosure covers the ClosureHandle
// half of the same regression: freeing a *Function's slot must release
// the closure it captured.
func TestPoolReleaseRecursesIntoFunctionClosure(t *testing.T) {
	p := NewPool()
	closure := newTestClosure()
	fn := p.Make(&Function{DisplayName: "f", Closure: closure})

	p.Release(fn)
	if !closure.released {
		t.Error("releasing a *Function's slot should release its Closure")
	}
}

func TestPoolLenStable(t *testing.T) {
	p := NewPool()
	for i := 0; i < 5; i++ {
		r := p.Make(Number(float64(i)))
		p.Release(r)
	}
	if got, want := p.Len(), 1; got != want {
		t.Errorf("Len() = %d after reuse loop, want %d (slot kept getting recycled)", got, want)
	}
}
