/*
Package linkedptr implements a shared-ownership smart pointer without
reference counters.

Every Ptr that shares an object is a member of one circular
doubly-linked ring backed by a ring.Arena; the ring's shape, not a
counter, tells a handle whether it is the last owner. When the last
owner of an object is released or reset, the finalizer bound at
adoption time runs exactly once. Handles without a finalizer still
track ownership, release of the last one is simply a no-op.

All operations are O(1) pointer rewiring. Nothing here is safe for
concurrent use: even logically read-only operations like Clone mutate
the source's ring links, so the caller must serialize every operation
touching handles of the same arena.
*/
package linkedptr

import (
	"unsafe"

	"github.com/petyb/linked-ptr/pkg/ring"
)

// defaultArena backs every handle constructed without the InArena
// option.
var defaultArena = ring.New()

// DefaultArena returns the arena shared by all handles constructed
// without an explicit one.
func DefaultArena() *ring.Arena {
	return defaultArena
}

type config struct {
	arena *ring.Arena
}

// Option configures handle construction.
type Option func(*config)

// InArena makes the new handle live in a, establishing a separate
// serialization domain. Handles from different arenas cannot be
// swapped with each other.
func InArena(a *ring.Arena) Option {
	return func(c *config) { c.arena = a }
}

func arenaFrom(opts []Option) *ring.Arena {
	c := config{arena: defaultArena}
	for _, o := range opts {
		o(&c)
	}
	return c.arena
}

// noCopy makes `go vet` flag by-value copies of Ptr, which would
// desynchronize a copy from its ring slot.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Ptr is an owning handle to a *T. Handles sharing one object form a
// ring; the last ring member to be released or reset runs the
// finalizer. A Ptr holding nil is an empty handle and never owns
// anything. Use the package constructors, the zero Ptr is not usable.
type Ptr[T any] struct {
	noCopy noCopy

	arena *ring.Arena
	node  ring.Ref
	data  *T
	free  func()
}

// New adopts data as its sole owner. New(nil) creates an empty handle.
func New[T any](data *T, opts ...Option) *Ptr[T] {
	a := arenaFrom(opts)
	return &Ptr[T]{arena: a, node: a.Alloc(), data: data}
}

// NewWithFree adopts data and binds free to it. The bound finalizer is
// shared by every handle that later joins the ring, converting clones
// included, and runs exactly once when the last of them lets go of the
// object.
func NewWithFree[T any](data *T, free func(*T), opts ...Option) *Ptr[T] {
	p := New(data, opts...)
	p.free = bind(data, free)
	return p
}

// Make allocates a new T holding v and adopts it.
func Make[T any](v T, opts ...Option) *Ptr[T] {
	data := new(T)
	*data = v
	return New(data, opts...)
}

// MakeWithFree is Make with a finalizer.
func MakeWithFree[T any](v T, free func(*T), opts ...Option) *Ptr[T] {
	data := new(T)
	*data = v
	return NewWithFree(data, free, opts...)
}

func bind[T any](data *T, free func(*T)) func() {
	if free == nil || data == nil {
		return nil
	}
	return func() { free(data) }
}

// Clone returns a new handle co-owning p's object, spliced into p's
// ring immediately after p.
func (p *Ptr[T]) Clone() *Ptr[T] {
	q := &Ptr[T]{arena: p.arena, node: p.arena.Alloc(), data: p.data, free: p.free}
	q.arena.InsertAfter(q.node, p.node)
	return q
}

// Move returns a new handle that takes over p's object and ring
// position, leaving p an empty singleton. The object's owner count is
// unchanged.
func (p *Ptr[T]) Move() *Ptr[T] {
	q := p.Clone()
	p.arena.Remove(p.node)
	p.data, p.free = nil, nil
	return q
}

// Assign replaces p's object with o's: p releases what it currently
// holds (running the finalizer if p was the sole owner) and joins o's
// ring. Assigning a handle to itself is a no-op.
func (p *Ptr[T]) Assign(o *Ptr[T]) {
	if p == o {
		return
	}
	p.freeIfUnique()
	p.detachInto(o.arena)
	p.data, p.free = o.data, o.free
	p.arena.InsertAfter(p.node, o.node)
}

// Take is the moving form of Assign: p takes over o's object and ring
// position and o becomes an empty singleton. p.Take(p) is a no-op.
func (p *Ptr[T]) Take(o *Ptr[T]) {
	if p == o {
		return
	}
	p.Assign(o)
	o.arena.Remove(o.node)
	o.data, o.free = nil, nil
}

// Reset detaches p from its ring (running the finalizer first if p was
// the sole owner) and adopts data as a fresh singleton. Remaining ring
// members keep owning the old object.
func (p *Ptr[T]) Reset(data *T) {
	p.ResetWithFree(data, nil)
}

// ResetWithFree is Reset with a finalizer for the new object.
func (p *Ptr[T]) ResetWithFree(data *T, free func(*T)) {
	p.freeIfUnique()
	p.arena.Remove(p.node)
	p.data = data
	p.free = bind(data, free)
}

// Release is the handle's destructor: it runs the finalizer if p is
// the sole owner of a non-nil object, detaches p from its ring and
// returns the ring slot to the arena. The handle must not be used
// afterwards; doing so panics.
func (p *Ptr[T]) Release() {
	p.freeIfUnique()
	p.arena.Release(p.node)
	p.node = ring.Ref{}
	p.data, p.free = nil, nil
}

// Swap exchanges the pointees of p and o: each handle ends up owning
// the other's object, transplanted into the other's former ring slot
// so both rings keep tracking the right owners. Swapping handles of
// one object, or a handle with itself, is a no-op. Both handles must
// live in the same arena.
func (p *Ptr[T]) Swap(o *Ptr[T]) {
	if p == o || p.data == o.data {
		return
	}
	if p.arena != o.arena {
		panic("linkedptr: swap across arenas")
	}
	p.data, o.data = o.data, p.data
	p.free, o.free = o.free, p.free
	p.arena.Exchange(p.node, o.node)
}

// IsNil reports whether the handle is empty.
func (p *Ptr[T]) IsNil() bool {
	return p.data == nil
}

// Unique reports whether p is the sole owner of a non-nil object. An
// empty handle is never unique.
func (p *Ptr[T]) Unique() bool {
	return p.arena.Singleton(p.node) && p.data != nil
}

// Get returns the held pointer, nil for an empty handle.
// Dereferencing follows raw pointer rules, a nil check is on the
// caller.
func (p *Ptr[T]) Get() *T {
	return p.data
}

// Refs returns the number of handles in p's ring, p included. It walks
// the ring, so it is O(owner count).
func (p *Ptr[T]) Refs() int {
	return p.arena.Len(p.node)
}

func (p *Ptr[T]) freeIfUnique() {
	if !p.Unique() {
		return
	}
	if p.free != nil {
		p.free()
	}
	p.data, p.free = nil, nil
}

// detachInto removes p from its ring. If p's slot lives in a different
// arena than a, the slot is released and a fresh one allocated in a so
// that p can join rings there.
func (p *Ptr[T]) detachInto(a *ring.Arena) {
	p.arena.Remove(p.node)
	if p.arena != a {
		p.arena.Release(p.node)
		p.arena = a
		p.node = a.Alloc()
	}
}

// Equal reports whether a and b hold the same object. Handles of one
// ring always hold the same object; comparison looks only at the raw
// address, never at ring shape.
func Equal[T, U any](a *Ptr[T], b *Ptr[U]) bool {
	return unsafe.Pointer(a.data) == unsafe.Pointer(b.data)
}

// Less orders handles by the raw address of the held object.
func Less[T, U any](a *Ptr[T], b *Ptr[U]) bool {
	return uintptr(unsafe.Pointer(a.data)) < uintptr(unsafe.Pointer(b.data))
}
