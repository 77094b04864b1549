package pdfarena

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// Launch-failure breaker parameters: after three consecutive failed engine
// starts, further acquires fail fast for breakerCooldown.
const (
	launchFailureThreshold = 3
	breakerCooldown        = 30 * time.Second
)

// newLaunchBreaker builds the circuit breaker every session manager wraps
// around its engine launch.
func newLaunchBreaker[T any](name string, logger zerolog.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:    name,
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= launchFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("engine launch breaker state change")
		},
	})
}

// sessionState tracks the session manager lifecycle.
type sessionState int

const (
	stateUninitialized sessionState = iota
	stateLive
	stateShuttingDown
)

func (s sessionState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateLive:
		return "live"
	case stateShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// renderOptions configures one rendering-context invocation.
type renderOptions struct {
	Page    *PageSettings
	Timeout time.Duration // load quiescence bound
}

// RenderingContext is a single-use rendering surface (one browser tab)
// borrowed from a session for exactly one render. Whoever opens a context
// must close it on every exit path; Close is idempotent.
type RenderingContext interface {
	// RenderFile navigates to a local file URL, waits for load quiescence
	// and extracts the rendered PDF bytes.
	RenderFile(ctx context.Context, fileURL string, opts *renderOptions) ([]byte, error)

	// Close releases the surface. Safe to call more than once, and safe to
	// call on a context that never fully opened.
	Close() error
}

// RendererSession wraps one live connection to a rendering engine process.
type RendererSession interface {
	// OpenContext creates a new short-lived rendering surface tied to the
	// session. Fails with ErrContextCreate if the session is not live.
	OpenContext(ctx context.Context) (RenderingContext, error)

	// Live reports whether the underlying engine connection is usable.
	Live() bool
}

// SessionManager owns at most one long-lived engine connection: it lazily
// starts the engine on first acquire, hands out the shared session, and
// tears the connection down on Shutdown. Managers are constructor-injected
// and owned by the composition root; there is no package-level singleton.
//
// A failed acquire leaves the manager uninitialized so the next call may
// retry; the manager itself never retries. Acquire probes liveness of an
// existing connection and relaunches transparently when the engine died.
type SessionManager interface {
	// Engine names the backing engine ("rod", "chromedp").
	Engine() string

	// AcquireSession returns the live shared session, starting the engine
	// if needed. A second call while live returns the same session without
	// starting another engine connection.
	AcquireSession(ctx context.Context) (RendererSession, error)

	// Shutdown tears down the engine connection, if any, and marks the
	// manager uninitialized. No-op when nothing is live.
	Shutdown() error
}

// HealthStatus is the outcome of a session health check.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Detail  string        `json:"detail"`
	Elapsed time.Duration `json:"-"`
}

// healthProbeMarkup is the trivial document rendered by health checks.
const healthProbeMarkup = `<!DOCTYPE html><html><body><p>health probe</p></body></html>`

// CheckSessionHealth acquires a session (starting the engine if needed),
// opens a context, performs a trivial render and closes the context. The
// session itself stays up.
func CheckSessionHealth(ctx context.Context, mgr SessionManager) HealthStatus {
	start := time.Now()

	status := func(err error) HealthStatus {
		if err != nil {
			return HealthStatus{Healthy: false, Detail: err.Error(), Elapsed: time.Since(start)}
		}
		return HealthStatus{Healthy: true, Detail: mgr.Engine() + " session healthy", Elapsed: time.Since(start)}
	}

	session, err := mgr.AcquireSession(ctx)
	if err != nil {
		return status(err)
	}

	tmpPath, cleanup, err := writeTempFile(healthProbeMarkup, "html")
	if err != nil {
		return status(err)
	}
	defer cleanup()

	rc, err := session.OpenContext(ctx)
	if err != nil {
		return status(err)
	}
	defer rc.Close()

	pdfBytes, err := rc.RenderFile(ctx, pathToFileURL(tmpPath), &renderOptions{Timeout: defaultTimeout})
	if err != nil {
		return status(err)
	}
	if len(pdfBytes) == 0 {
		return status(fmt.Errorf("%w: empty probe output", ErrRenderExtraction))
	}
	return status(nil)
}

// loadTimeout resolves the effective quiescence bound from the request
// context deadline and the configured default.
func loadTimeout(ctx context.Context, opts *renderOptions) (time.Duration, error) {
	timeout := defaultTimeout
	if opts != nil && opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}
	return timeout, nil
}
