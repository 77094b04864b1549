package pdfarena

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/corvand/pdfarena/internal/metrics"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one rendering context is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent browser tabs to limit engine memory.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the engine's child processes.
	cpuDivisor = 2
)

// contextPool bounds the number of concurrently open rendering contexts for
// one session manager. Acquisition beyond the cap queues until a context is
// released or the caller's context is cancelled; nothing in-flight is ever
// unbounded.
type contextPool struct {
	mgr   SessionManager
	slots chan struct{}

	mu     sync.Mutex
	closed bool
}

// newContextPool creates a pool with capacity for n concurrent contexts.
func newContextPool(mgr SessionManager, n int) *contextPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &contextPool{
		mgr:   mgr,
		slots: make(chan struct{}, n),
	}
}

// Engine names the backing engine.
func (p *contextPool) Engine() string { return p.mgr.Engine() }

// Size returns the pool capacity.
func (p *contextPool) Size() int { return cap(p.slots) }

// InFlight returns the number of currently open contexts.
func (p *contextPool) InFlight() int { return len(p.slots) }

// OpenContext takes a slot (queueing under backpressure), acquires the
// shared session and opens a rendering context. Closing the returned
// context releases the slot; Close is idempotent.
func (p *contextPool) OpenContext(ctx context.Context) (RenderingContext, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrManagerShutdown
	}
	p.mu.Unlock()

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: waiting for rendering context: %v", ErrContextCreate, ctx.Err())
	}

	release := func() { <-p.slots }

	// Shutdown may have run while we were queued on the slot; acquiring the
	// session now would relaunch an engine nobody tears down.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		release()
		return nil, ErrManagerShutdown
	}
	p.mu.Unlock()

	session, err := p.mgr.AcquireSession(ctx)
	if err != nil {
		release()
		return nil, err
	}

	rc, err := session.OpenContext(ctx)
	if err != nil {
		release()
		return nil, err
	}

	metrics.TrackEngineContext(p.Engine(), true)
	return &pooledContext{inner: rc, engine: p.Engine(), release: release}, nil
}

// HealthCheck runs the session health probe without consuming a pool slot
// accounting entry beyond its own render.
func (p *contextPool) HealthCheck(ctx context.Context) HealthStatus {
	return CheckSessionHealth(ctx, p.mgr)
}

// Shutdown marks the pool closed and tears down the engine session.
// In-flight contexts keep their slots until closed.
func (p *contextPool) Shutdown() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	return p.mgr.Shutdown()
}

// pooledContext wraps a rendering context and returns its slot on Close.
type pooledContext struct {
	inner   RenderingContext
	engine  string
	release func()
	once    sync.Once
}

func (c *pooledContext) RenderFile(ctx context.Context, fileURL string, opts *renderOptions) ([]byte, error) {
	return c.inner.RenderFile(ctx, fileURL, opts)
}

func (c *pooledContext) Close() error {
	var err error
	c.once.Do(func() {
		err = c.inner.Close()
		c.release()
		metrics.TrackEngineContext(c.engine, false)
	})
	return err
}

// ResolvePoolSize determines the context pool size.
// Priority: explicit value > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	available := runtime.GOMAXPROCS(0)
	n := available / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
