package gate

import (
	"container/list"
	"context"
	"sync"
)

// DefaultCapacity is used when a Gate is constructed with a non-positive
// capacity.
const DefaultCapacity = 5

// Gate is a FIFO-fair counting semaphore. Release hands a freed permit
// straight to the oldest waiter instead of returning it to the pool, so a
// late arrival can never overtake a caller that is already queued.
type Gate struct {
	mu       sync.Mutex
	capacity int
	permits  int
	waiters  list.List // of chan struct{}
}

// New creates a Gate with the given number of permits.
func New(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Gate{capacity: capacity, permits: capacity}
}

// Acquire blocks until a permit is granted or ctx is done. Every nil return
// must be matched by exactly one Release.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	if g.permits > 0 && g.waiters.Len() == 0 {
		g.permits--
		g.mu.Unlock()
		return nil
	}
	ready := make(chan struct{})
	elem := g.waiters.PushBack(ready)
	g.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		select {
		case <-ready:
			// Granted while we were giving up; pass the permit on.
			g.releaseLocked()
		default:
			g.waiters.Remove(elem)
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Release returns a permit. If callers are waiting, the oldest one receives
// it directly.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked()
}

func (g *Gate) releaseLocked() {
	if g.waiters.Len() == 0 && g.permits >= g.capacity {
		panic("gate: released more permits than were acquired")
	}
	if front := g.waiters.Front(); front != nil {
		g.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	g.permits++
}

// Do runs fn while holding a permit. The permit is released on every exit
// path, including a panic inside fn.
func (g *Gate) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.Acquire(ctx); err != nil {
		return err
	}
	defer g.Release()
	return fn(ctx)
}

// Capacity returns the fixed number of permits.
func (g *Gate) Capacity() int {
	return g.capacity
}

// InFlight reports how many permits are currently held.
func (g *Gate) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.capacity - g.permits
}

// Waiting reports how many callers are queued for a permit.
func (g *Gate) Waiting() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.waiters.Len()
}
