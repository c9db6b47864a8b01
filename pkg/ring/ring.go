/*
Package ring implements an arena-backed circular doubly-linked list.

Unlike an intrusive list that wires nodes together with raw pointers,
nodes here live in slots of a shared Arena and refer to each other by
slot index. Callers hold stable Refs (index plus generation) instead of
addresses, so the values embedding a Ref can be moved or copied around
without invalidating sibling links. All splice operations are O(1).

The Arena is not safe for concurrent use, callers serialize access to
it themselves.
*/
package ring

import "go.uber.org/zap"

// Ref is a stable handle to a node inside an Arena. The zero Ref
// refers to no node and any Arena operation on it panics.
type Ref struct {
	index int32
	gen   uint32
}

// Valid reports whether r was ever produced by Alloc. It does not
// check whether the node is still live.
func (r Ref) Valid() bool {
	return r.gen != 0
}

type slot struct {
	next int32
	prev int32
	gen  uint32
	live bool
}

// Arena holds ring nodes and hands out Refs to them. The zero value is
// not usable, call New.
type Arena struct {
	slots []slot
	freed []int32
	live  int
	log   *zap.Logger
}

// New returns an empty Arena.
func New() *Arena {
	return &Arena{}
}

// SetLogger attaches a logger used for debug-level tracing of node
// allocation and splicing. Passing nil disables tracing.
func (a *Arena) SetLogger(log *zap.Logger) {
	a.log = log
}

// Live returns the number of live nodes in the arena.
func (a *Arena) Live() int {
	return a.live
}

func (a *Arena) slotFor(r Ref) *slot {
	if r.gen == 0 || int(r.index) >= len(a.slots) {
		panic("ring: use of zero or foreign ref")
	}
	s := &a.slots[r.index]
	if !s.live || s.gen != r.gen {
		panic("ring: use of released ref")
	}
	return s
}

// Alloc creates a new singleton node and returns a Ref to it. Released
// slots are reused with a bumped generation, the table grows only when
// no freed slot is available.
func (a *Arena) Alloc() Ref {
	var i int32
	if n := len(a.freed); n > 0 {
		i = a.freed[n-1]
		a.freed = a.freed[:n-1]
	} else {
		a.slots = append(a.slots, slot{})
		i = int32(len(a.slots) - 1)
	}
	s := &a.slots[i]
	s.next, s.prev = i, i
	s.gen++
	s.live = true
	a.live++
	if a.log != nil {
		a.log.Debug("alloc", zap.Int32("slot", i), zap.Uint32("gen", s.gen))
	}
	return Ref{index: i, gen: s.gen}
}

// Release splices the node out of its ring and returns its slot to the
// free list. Any Ref to the node becomes stale.
func (a *Arena) Release(r Ref) {
	s := a.slotFor(r)
	a.unlink(r.index, s)
	s.live = false
	a.freed = append(a.freed, r.index)
	a.live--
	if a.log != nil {
		a.log.Debug("release", zap.Int32("slot", r.index))
	}
}

// InsertAfter splices n into a ring immediately after node after.
// n must be a singleton, remove it from its current ring first.
func (a *Arena) InsertAfter(n, after Ref) {
	if n == after {
		panic("ring: insert after itself")
	}
	ns := a.slotFor(n)
	as := a.slotFor(after)
	if ns.next != n.index {
		panic("ring: insert of a linked node")
	}
	an := as.next
	a.slots[an].prev = n.index
	ns.next = an
	ns.prev = after.index
	as.next = n.index
	if a.log != nil {
		a.log.Debug("insert", zap.Int32("slot", n.index), zap.Int32("after", after.index))
	}
}

// Remove splices the node out of its ring, leaving it a singleton.
// Removing a singleton is a no-op.
func (a *Arena) Remove(r Ref) {
	s := a.slotFor(r)
	a.unlink(r.index, s)
	if a.log != nil {
		a.log.Debug("remove", zap.Int32("slot", r.index))
	}
}

func (a *Arena) unlink(i int32, s *slot) {
	if s.next == i {
		return
	}
	a.slots[s.next].prev = s.prev
	a.slots[s.prev].next = s.next
	s.next, s.prev = i, i
}

// Singleton reports whether the node is alone in its ring.
func (a *Arena) Singleton(r Ref) bool {
	return a.slotFor(r).next == r.index
}

// Next returns the node following r in its ring.
func (a *Arena) Next(r Ref) Ref {
	i := a.slotFor(r).next
	return Ref{index: i, gen: a.slots[i].gen}
}

// Prev returns the node preceding r in its ring.
func (a *Arena) Prev(r Ref) Ref {
	i := a.slotFor(r).prev
	return Ref{index: i, gen: a.slots[i].gen}
}

// Len returns the size of the ring containing r. It walks the whole
// ring, so it is O(ring size).
func (a *Arena) Len(r Ref) int {
	s := a.slotFor(r)
	n := 1
	for i := s.next; i != r.index; i = a.slots[i].next {
		n++
	}
	return n
}

// Exchange swaps the structural positions of two nodes: each ends up
// occupying the other's former slot in the other's former ring, with
// all neighbors relinked accordingly. Exchanging a node with itself,
// or two singletons, is a no-op. A singleton exchanged with a linked
// node takes over that node's position while the linked node becomes a
// singleton. The nodes may be in the same ring, adjacency included.
func (a *Arena) Exchange(x, y Ref) {
	if x == y {
		return
	}
	xs := a.slotFor(x)
	ys := a.slotFor(y)
	xSingle := xs.next == x.index
	ySingle := ys.next == y.index
	switch {
	case xSingle && ySingle:
	case xSingle:
		a.takeOver(x.index, xs, y.index, ys)
	case ySingle:
		a.takeOver(y.index, ys, x.index, xs)
	default:
		a.exchangeLinked(x.index, y.index)
	}
	if a.log != nil {
		a.log.Debug("exchange", zap.Int32("slot", x.index), zap.Int32("with", y.index))
	}
}

// takeOver moves singleton si into li's position and resets li to a
// singleton.
func (a *Arena) takeOver(si int32, ss *slot, li int32, ls *slot) {
	a.slots[ls.next].prev = si
	a.slots[ls.prev].next = si
	ss.next, ss.prev = ls.next, ls.prev
	ls.next, ls.prev = li, li
}

func (a *Arena) exchangeLinked(xi, yi int32) {
	xs := &a.slots[xi]
	ys := &a.slots[yi]
	switch {
	case xs.next == yi && ys.next == xi:
		// Two-node ring, positions are already symmetric.
	case xs.next == yi:
		// x immediately precedes y: prev(x) -> x -> y -> next(y)
		// becomes prev(x) -> y -> x -> next(y).
		p, n := xs.prev, ys.next
		a.slots[p].next = yi
		a.slots[n].prev = xi
		ys.prev, ys.next = p, xi
		xs.prev, xs.next = yi, n
	case ys.next == xi:
		a.exchangeLinked(yi, xi)
	default:
		xn, xp := xs.next, xs.prev
		yn, yp := ys.next, ys.prev
		a.slots[xn].prev, a.slots[yn].prev = yi, xi
		a.slots[xp].next, a.slots[yp].next = yi, xi
		xs.next, ys.next = yn, xn
		xs.prev, ys.prev = yp, xp
	}
}
