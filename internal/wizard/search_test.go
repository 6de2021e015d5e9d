package wizard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchGateSupersedes(t *testing.T) {
	g := NewSearchGate()

	firstCtx, first, doneFirst := g.Begin(context.Background(), "s1")
	secondCtx, second, doneSecond := g.Begin(context.Background(), "s1")

	assert.ErrorIs(t, firstCtx.Err(), context.Canceled, "older search is cancelled")
	assert.NoError(t, secondCtx.Err())
	assert.False(t, g.Current("s1", first))
	assert.True(t, g.Current("s1", second))

	doneFirst()
	assert.True(t, g.Current("s1", second), "finishing a stale search keeps the newer one")

	doneSecond()
	assert.False(t, g.Current("s1", second))
}

func TestSearchGateKeysAreIndependent(t *testing.T) {
	g := NewSearchGate()

	aCtx, a, doneA := g.Begin(context.Background(), "a")
	defer doneA()
	_, b, doneB := g.Begin(context.Background(), "b")
	defer doneB()

	assert.NoError(t, aCtx.Err())
	assert.True(t, g.Current("a", a))
	assert.True(t, g.Current("b", b))
}

func TestSearchGateGenerationsNeverRepeat(t *testing.T) {
	g := NewSearchGate()

	_, old, doneOld := g.Begin(context.Background(), "s1")
	_, mid, doneMid := g.Begin(context.Background(), "s1")
	doneMid()
	_, fresh, doneFresh := g.Begin(context.Background(), "s1")
	defer doneFresh()

	assert.NotEqual(t, old, fresh)
	assert.False(t, g.Current("s1", old))
	assert.False(t, g.Current("s1", mid))
	doneOld()
	assert.True(t, g.Current("s1", fresh))
}
