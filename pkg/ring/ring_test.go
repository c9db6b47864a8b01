package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// collect returns the ring members starting at r, in next order.
func collect(a *Arena, r Ref) []Ref {
	out := []Ref{r}
	for n := a.Next(r); n != r; n = a.Next(n) {
		out = append(out, n)
	}
	return out
}

func TestAllocSingleton(t *testing.T) {
	a := New()
	r := a.Alloc()
	require.True(t, r.Valid())
	require.True(t, a.Singleton(r))
	require.Equal(t, r, a.Next(r))
	require.Equal(t, r, a.Prev(r))
	require.Equal(t, 1, a.Len(r))
	require.Equal(t, 1, a.Live())
}

func TestZeroRef(t *testing.T) {
	a := New()
	require.False(t, Ref{}.Valid())
	require.Panics(t, func() { a.Singleton(Ref{}) })
}

func TestInsertRemove(t *testing.T) {
	a := New()
	x := a.Alloc()
	y := a.Alloc()
	z := a.Alloc()
	a.InsertAfter(y, x)
	a.InsertAfter(z, y)
	require.Equal(t, []Ref{x, y, z}, collect(a, x))
	require.Equal(t, 3, a.Len(y))
	require.Equal(t, x, a.Prev(y))

	a.Remove(y)
	require.True(t, a.Singleton(y))
	require.Equal(t, []Ref{x, z}, collect(a, x))

	a.Remove(z)
	require.True(t, a.Singleton(x))
	require.True(t, a.Singleton(z))
}

func TestRemoveSingletonNoop(t *testing.T) {
	a := New()
	r := a.Alloc()
	a.Remove(r)
	require.True(t, a.Singleton(r))
}

func TestInsertLinkedPanics(t *testing.T) {
	a := New()
	x := a.Alloc()
	y := a.Alloc()
	z := a.Alloc()
	a.InsertAfter(y, x)
	require.Panics(t, func() { a.InsertAfter(y, z) })
	require.Panics(t, func() { a.InsertAfter(z, z) })
}

func TestReleaseUnlinks(t *testing.T) {
	a := New()
	x := a.Alloc()
	y := a.Alloc()
	a.InsertAfter(y, x)
	a.Release(y)
	require.True(t, a.Singleton(x))
	require.Equal(t, 1, a.Live())
}

func TestStaleRefPanics(t *testing.T) {
	a := New()
	r := a.Alloc()
	a.Release(r)
	require.Panics(t, func() { a.Singleton(r) })
	require.Panics(t, func() { a.Remove(r) })
}

func TestSlotReuseBumpsGeneration(t *testing.T) {
	a := New()
	old := a.Alloc()
	a.Release(old)
	fresh := a.Alloc()
	require.NotEqual(t, old, fresh)
	require.True(t, a.Singleton(fresh))
	require.Panics(t, func() { a.Singleton(old) })
	require.Equal(t, 1, a.Live())
}

// chain allocates n nodes linked into one ring and returns them in
// ring order.
func chain(a *Arena, n int) []Ref {
	refs := make([]Ref, n)
	refs[0] = a.Alloc()
	for i := 1; i < n; i++ {
		refs[i] = a.Alloc()
		a.InsertAfter(refs[i], refs[i-1])
	}
	return refs
}

func TestExchangeSingletons(t *testing.T) {
	a := New()
	x := a.Alloc()
	y := a.Alloc()
	a.Exchange(x, y)
	require.True(t, a.Singleton(x))
	require.True(t, a.Singleton(y))
}

func TestExchangeSelf(t *testing.T) {
	a := New()
	r := chain(a, 2)
	a.Exchange(r[0], r[0])
	require.Equal(t, []Ref{r[0], r[1]}, collect(a, r[0]))
}

func TestExchangeSingletonTakesOver(t *testing.T) {
	a := New()
	r := chain(a, 3)
	s := a.Alloc()
	a.Exchange(s, r[1])
	require.True(t, a.Singleton(r[1]))
	require.Equal(t, []Ref{r[0], s, r[2]}, collect(a, r[0]))

	// And the mirrored argument order.
	a.Exchange(s, r[1])
	require.True(t, a.Singleton(s))
	require.Equal(t, []Ref{r[0], r[1], r[2]}, collect(a, r[0]))
}

func TestExchangeAcrossRings(t *testing.T) {
	a := New()
	r := chain(a, 3)
	q := chain(a, 3)
	a.Exchange(r[1], q[2])
	require.Equal(t, []Ref{r[0], q[2], r[2]}, collect(a, r[0]))
	require.Equal(t, []Ref{q[0], q[1], r[1]}, collect(a, q[0]))
}

func TestExchangeSameRingApart(t *testing.T) {
	a := New()
	r := chain(a, 4)
	a.Exchange(r[0], r[2])
	require.Equal(t, []Ref{r[2], r[1], r[0], r[3]}, collect(a, r[2]))
}

func TestExchangeSameRingAdjacent(t *testing.T) {
	a := New()
	r := chain(a, 3)
	a.Exchange(r[0], r[1])
	require.Equal(t, []Ref{r[1], r[0], r[2]}, collect(a, r[1]))

	// Reversed argument order takes the mirrored relink path.
	a.Exchange(r[0], r[1])
	require.Equal(t, []Ref{r[0], r[1], r[2]}, collect(a, r[0]))
}

func TestExchangeOneApart(t *testing.T) {
	a := New()
	r := chain(a, 3)
	// With one node between them the neighbor sets overlap.
	a.Exchange(r[0], r[2])
	require.Equal(t, []Ref{r[2], r[1], r[0]}, collect(a, r[2]))
}

func TestExchangeTwoRing(t *testing.T) {
	a := New()
	r := chain(a, 2)
	a.Exchange(r[0], r[1])
	require.Equal(t, []Ref{r[0], r[1]}, collect(a, r[0]))
	require.Equal(t, 2, a.Len(r[0]))
}

func TestLiveDrainsToZero(t *testing.T) {
	a := New()
	refs := chain(a, 5)
	for _, r := range refs {
		a.Release(r)
	}
	require.Zero(t, a.Live())
}

func TestTracing(t *testing.T) {
	a := New()
	a.SetLogger(zaptest.NewLogger(t))
	x := a.Alloc()
	y := a.Alloc()
	a.InsertAfter(y, x)
	a.Exchange(x, y)
	a.Remove(y)
	a.Release(y)
	a.Release(x)
	require.Zero(t, a.Live())
}
