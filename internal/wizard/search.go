package wizard

import (
	"context"
	"sync"
)

// SearchGate serializes autocomplete searches per key. Starting a search
// cancels the previous one for the same key; a finished search whose
// generation is no longer current must be discarded.
type SearchGate struct {
	mu       sync.Mutex
	inflight map[string]*searchTicket
	next     uint64
}

type searchTicket struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewSearchGate() *SearchGate {
	return &SearchGate{
		inflight: make(map[string]*searchTicket),
	}
}

// Begin registers a new search for key. The returned context is cancelled
// when a newer search for the same key begins. done must be called when
// the search finishes.
func (g *SearchGate) Begin(ctx context.Context, key string) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)

	g.mu.Lock()
	if prev, ok := g.inflight[key]; ok {
		prev.cancel()
	}
	g.next++
	gen := g.next
	g.inflight[key] = &searchTicket{gen: gen, cancel: cancel}
	g.mu.Unlock()

	done := func() {
		cancel()
		g.mu.Lock()
		defer g.mu.Unlock()
		if t, ok := g.inflight[key]; ok && t.gen == gen {
			delete(g.inflight, key)
		}
	}

	return ctx, gen, done
}

// Current reports whether gen is still the latest search for key.
func (g *SearchGate) Current(key string, gen uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.inflight[key]
	return ok && t.gen == gen
}
