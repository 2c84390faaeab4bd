// Package scope is the lexical-scope "cactus stack": a parent-pointer
// tree of scope arms (also called a spaghetti or saguaro stack) where
// each arm is a hashmap of bindings with a pointer back to its parent
// arm. Ported line for line from cactus_t/cactus_arm_t in
// original_source/cpp/zoo/lox/cactus.hpp, specialized to
// ward.TokenID keys and object.Ref values (the C++ original is a
// template over Key/Value).
package scope

import (
	"github.com/loxlang/lox/object"
	"github.com/loxlang/lox/ward"
)

type arm struct {
	refCount int
	parent   int // -1 for the root arm
	bindings map[ward.TokenID]object.Ref
	nextFree int
}

// Cactus owns the arena of scope arms for one interpretation session.
// It holds the object.Pool its bindings' Refs live in so that freeing
// an arm can release them, the same way a freed pool slot releases the
// Refs/closures its own value holds.
type Cactus struct {
	arms     []arm
	nextFree int
	occupied int
	pool     *object.Pool
}

// NewCactus creates a Cactus with a single root arm pinned at ref-count
// 1 for the life of the session, matching cactus_t's constructor.
func NewCactus(pool *object.Pool) *Cactus {
	c := &Cactus{nextFree: -1, pool: pool}
	c.arms = append(c.arms, arm{
		refCount: 1,
		parent:   -1,
		bindings: make(map[ward.TokenID]object.Ref),
		nextFree: -1,
	})
	c.occupied = 1
	return c
}

// Root returns a Handle onto the session's root arm.
func (c *Cactus) Root() Handle {
	c.arms[0].refCount++
	return Handle{cactus: c, idx: 0}
}

func (c *Cactus) allocArm() int {
	var idx int
	if c.nextFree == -1 {
		idx = len(c.arms)
		c.arms = append(c.arms, arm{refCount: 1, parent: -1, bindings: make(map[ward.TokenID]object.Ref), nextFree: -1})
	} else {
		idx = c.nextFree
		c.nextFree = c.arms[idx].nextFree
		c.arms[idx].refCount = 1
		c.arms[idx].bindings = make(map[ward.TokenID]object.Ref)
	}
	c.occupied++
	return idx
}

// freeArm returns arm idx to the free list, releasing every Ref it
// bound (so a scope holding the last reference to a value frees it,
// same as a pool slot dropping to zero) and cascading into the arm's
// parent — MakeChild incremented the parent's refCount, and freeArm is
// the only place that gives that reference back.
func (c *Cactus) freeArm(idx int) {
	for _, ref := range c.arms[idx].bindings {
		c.pool.Release(ref)
	}
	parent := c.arms[idx].parent
	c.arms[idx].bindings = nil
	c.arms[idx].nextFree = c.nextFree
	c.arms[idx].parent = -1
	c.nextFree = idx
	c.occupied--
	if parent != -1 {
		Handle{cactus: c, idx: parent}.Release()
	}
}

// SizeTotal reports the arena's total slot count, for tests.
func (c *Cactus) SizeTotal() int { return len(c.arms) }

// SizeOccupied reports the number of live (non-freed) arms, for tests.
func (c *Cactus) SizeOccupied() int { return c.occupied }

// Handle is a ref-counted reference to one arm of a Cactus. Handle
// itself does not satisfy object.ClosureHandle; AsClosure wraps it in
// an adapter that does, so *Function values can capture a Handle
// without object needing to import this package's concrete arm type.
type Handle struct {
	cactus *Cactus
	idx    int
}

// IsValid reports whether h refers to a real arm.
func (h Handle) IsValid() bool {
	return h.cactus != nil
}

// Retain increments the arm's reference count and returns an
// independent Handle to the same arm — the Go equivalent of copying a
// cactus_arm_t, which bumps ref_count in its copy constructor.
func (h Handle) Retain() Handle {
	h.cactus.arms[h.idx].refCount++
	return h
}

// Release decrements the arm's reference count, freeing it once it
// reaches zero — the Go equivalent of cactus_arm_t's destructor.
// Freeing cascades: it releases the arm's own bindings and, since
// MakeChild retained the parent arm, also releases the parent, which
// may in turn free it and cascade further up the chain.
func (h Handle) Release() {
	if h.cactus == nil {
		return
	}
	a := &h.cactus.arms[h.idx]
	a.refCount--
	if a.refCount == 0 {
		h.cactus.freeArm(h.idx)
	}
}

// Get walks from h up to the root looking for id, per cactus_arm_t::get.
func (h Handle) Get(id ward.TokenID) (object.Ref, bool) {
	idx := h.idx
	for {
		a := &h.cactus.arms[idx]
		if v, ok := a.bindings[id]; ok {
			return v, true
		}
		if idx == 0 {
			return 0, false
		}
		idx = a.parent
	}
}

// GetAt looks up id exactly `distance` arms up from h (no further
// walking), for use once static resolution has computed the lexical
// depth — per cactus_arm_t::get_at.
func (h Handle) GetAt(id ward.TokenID, distance int) (object.Ref, bool) {
	idx := h.idx
	for distance > 0 && idx != 0 {
		idx = h.cactus.arms[idx].parent
		distance--
	}
	if distance > 0 {
		return 0, false
	}
	v, ok := h.cactus.arms[idx].bindings[id]
	return v, ok
}

// Assign walks from h up to the root, overwriting id's binding where
// found. It reports false if id was not bound anywhere along the arm
// — callers choose whether that is an error (Lox assignment to an
// undeclared name is a runtime error) or should auto-define, per
// cactus_arm_t::set's define_if_unavailable flag.
func (h Handle) Assign(id ward.TokenID, v object.Ref) bool {
	idx := h.idx
	for {
		a := &h.cactus.arms[idx]
		if _, ok := a.bindings[id]; ok {
			a.bindings[id] = v
			return true
		}
		if idx == 0 {
			return false
		}
		idx = a.parent
	}
}

// Define binds id in h's own arm, overwriting any previous binding.
// Unlike the original's define (which rejects a redefinition in the
// same arm), Lox's `var` statement permits shadowing redeclaration
// within one block, so this is a plain map write.
func (h Handle) Define(id ward.TokenID, v object.Ref) {
	h.cactus.arms[h.idx].bindings[id] = v
}

// MakeChild allocates a new arm whose parent is h, holding a retained
// reference to h so the parent chain stays alive at least as long as
// any of its children, per cactus_arm_t::make_child_arm.
func (h Handle) MakeChild() Handle {
	h2 := h.Retain()
	newIdx := h.cactus.allocArm()
	h.cactus.arms[newIdx].parent = h2.idx
	return Handle{cactus: h.cactus, idx: newIdx}
}

var _ interface {
	Lookup(ward.TokenID) (object.Ref, bool)
	Assign(ward.TokenID, object.Ref) bool
	Define(ward.TokenID, object.Ref)
	MakeChild() object.ClosureHandle
	Release()
} = (*adapter)(nil)

// adapter satisfies object.ClosureHandle's exact method names (Lookup
// instead of Get, and MakeChild returning the interface type rather
// than the concrete Handle) without renaming Handle's own more
// specific methods, which callers in scope/interp use directly.
// Release needs no method of its own: embedding Handle already
// promotes Handle.Release, which is exactly the cascade-releasing
// behavior object.Pool's releaseOwned needs when it drops a captured
// closure.
type adapter struct{ Handle }

func (a adapter) Lookup(id ward.TokenID) (object.Ref, bool) { return a.Handle.Get(id) }
func (a adapter) MakeChild() object.ClosureHandle           { return adapter{a.Handle.MakeChild()} }

// Unwrap exposes the underlying Handle to callers (interp's function-call
// path) that need the concrete scope type back out of an
// object.ClosureHandle interface value, via a local interface assertion.
func (a adapter) Unwrap() Handle { return a.Handle }

// AsClosure wraps h so it satisfies object.ClosureHandle.
func (h Handle) AsClosure() object.ClosureHandle {
	return adapter{h}
}
