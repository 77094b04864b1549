package pdfarena

import (
	"context"
	"fmt"
	"sync"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/corvand/pdfarena/internal/metrics"
)

// Compile-time interface checks.
var (
	_ SessionManager   = (*chromedpSessionManager)(nil)
	_ RendererSession  = (*chromedpSession)(nil)
	_ RenderingContext = (*chromedpContext)(nil)
)

// chromedpSessionManager manages one shared chromedp browser connection.
// The exec allocator and browser context stay up across requests; each
// rendering context is a new tab derived from the browser context.
type chromedpSessionManager struct {
	bin    string
	logger zerolog.Logger

	mu            sync.Mutex
	state         sessionState
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	launchBreaker *gobreaker.CircuitBreaker[struct{}]
}

func newChromedpSessionManager(bin string, logger zerolog.Logger) *chromedpSessionManager {
	m := &chromedpSessionManager{bin: bin, logger: logger}
	m.launchBreaker = newLaunchBreaker[struct{}]("chromedp-launch", logger)
	return m
}

func (m *chromedpSessionManager) Engine() string { return "chromedp" }

// AcquireSession returns the shared session, starting the browser process
// on first use. A dead browser context is demoted and relaunched.
func (m *chromedpSessionManager) AcquireSession(ctx context.Context) (RendererSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateShuttingDown:
		return nil, ErrManagerShutdown
	case stateLive:
		if m.browserCtx != nil && m.browserCtx.Err() == nil {
			return &chromedpSession{mgr: m}, nil
		}
		m.logger.Warn().Msg("chromedp connection lost, relaunching")
		m.closeBrowserLocked()
	}

	if _, err := m.launchBreaker.Execute(func() (struct{}, error) {
		return struct{}{}, m.launchLocked()
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineStart, err)
	}
	return &chromedpSession{mgr: m}, nil
}

// launchLocked starts the browser with the fixed compatibility flags.
// Callers must hold m.mu.
func (m *chromedpSessionManager) launchLocked() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if m.bin != "" {
		opts = append(opts, chromedp.ExecPath(m.bin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser process; run with no actions so
	// launch failures surface here rather than on the first render.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.allocCancel = allocCancel
	m.state = stateLive
	metrics.RecordEngineLaunch(m.Engine())
	m.logger.Info().Str("engine", m.Engine()).Msg("engine session started")
	return nil
}

// closeBrowserLocked releases the browser and resets state.
// Callers must hold m.mu.
func (m *chromedpSessionManager) closeBrowserLocked() {
	if m.browserCancel != nil {
		m.browserCancel()
		m.browserCancel = nil
	}
	if m.allocCancel != nil {
		m.allocCancel()
		m.allocCancel = nil
	}
	m.browserCtx = nil
	m.state = stateUninitialized
}

// Shutdown tears down the browser. Safe when nothing is live.
func (m *chromedpSessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateLive {
		m.state = stateUninitialized
		return nil
	}

	m.state = stateShuttingDown
	m.closeBrowserLocked()
	m.logger.Info().Str("engine", m.Engine()).Msg("engine session stopped")
	return nil
}

// chromedpSession is the shared handle to the manager's live browser.
type chromedpSession struct {
	mgr *chromedpSessionManager
}

func (s *chromedpSession) Live() bool {
	s.mgr.mu.Lock()
	defer s.mgr.mu.Unlock()
	return s.mgr.state == stateLive && s.mgr.browserCtx != nil && s.mgr.browserCtx.Err() == nil
}

// OpenContext creates a new tab for one render.
func (s *chromedpSession) OpenContext(ctx context.Context) (RenderingContext, error) {
	s.mgr.mu.Lock()
	browserCtx := s.mgr.browserCtx
	live := s.mgr.state == stateLive
	s.mgr.mu.Unlock()

	if !live || browserCtx == nil || browserCtx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreate, ErrSessionNotLive)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, tabCancel)
	return &chromedpContext{tabCtx: tabCtx, tabCancel: tabCancel, stop: stop}, nil
}

// chromedpContext wraps one browser tab. Single-use.
type chromedpContext struct {
	tabCtx    context.Context
	tabCancel context.CancelFunc
	stop      func() bool
	once      sync.Once
}

// RenderFile navigates the tab to fileURL, waits for load and prints to PDF.
func (c *chromedpContext) RenderFile(ctx context.Context, fileURL string, opts *renderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout, err := loadTimeout(ctx, opts)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()

	var page *PageSettings
	if opts != nil {
		page = opts.Page
	}
	width, height := page.Dimensions()
	margin := page.MarginInches()

	var buf []byte
	tasks := chromedp.Tasks{
		chromedp.Navigate(fileURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			buf, _, printErr = cdppage.PrintToPDF().
				WithPaperWidth(width).
				WithPaperHeight(height).
				WithMarginTop(margin).
				WithMarginBottom(margin).
				WithMarginLeft(margin).
				WithMarginRight(margin).
				WithPrintBackground(true).
				Do(ctx)
			return printErr
		}),
	}

	if err := chromedp.Run(runCtx, tasks); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrLoadTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrRenderExtraction, err)
	}
	return buf, nil
}

// Close releases the tab. Idempotent.
func (c *chromedpContext) Close() error {
	c.once.Do(func() {
		if c.stop != nil {
			c.stop()
		}
		if c.tabCancel != nil {
			c.tabCancel()
		}
	})
	return nil
}
