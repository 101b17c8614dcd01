package tree

import (
	"context"
	"sync"
)

// inflightGuard serializes mutations per tree node: a node with a pending
// remote call rejects further mutations until the round-trip completes, so
// reconciles cannot arrive out of order.
type inflightGuard struct {
	mu      sync.Mutex
	pending map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock attempts to mark nodeID as having an in-flight mutation.
// Returns false if one is already pending.
func (g *inflightGuard) TryLock(nodeID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		g.pending = make(map[string]struct{})
	}
	if _, ok := g.pending[nodeID]; ok {
		return false
	}
	g.pending[nodeID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock clears the in-flight mark. Must follow a successful TryLock.
func (g *inflightGuard) Unlock(nodeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, nodeID)
	g.wg.Done()
}

// WaitAll blocks until every pending mutation completes or ctx is cancelled.
func (g *inflightGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
