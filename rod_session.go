package pdfarena

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/corvand/pdfarena/internal/metrics"
)

// Compile-time interface checks.
var (
	_ SessionManager   = (*rodSessionManager)(nil)
	_ RendererSession  = (*rodSession)(nil)
	_ RenderingContext = (*rodContext)(nil)
)

// rodSessionManager manages one shared go-rod browser connection.
type rodSessionManager struct {
	bin    string
	logger zerolog.Logger

	mu      sync.Mutex
	state   sessionState
	browser *rod.Browser

	launchBreaker *gobreaker.CircuitBreaker[*rod.Browser]
}

// newRodSessionManager creates a manager for the go-rod engine. bin
// optionally points at a pre-installed Chrome/Chromium binary; empty lets
// rod resolve (downloading a managed Chromium if necessary).
func newRodSessionManager(bin string, logger zerolog.Logger) *rodSessionManager {
	m := &rodSessionManager{bin: bin, logger: logger}
	m.launchBreaker = newLaunchBreaker[*rod.Browser]("rod-launch", logger)
	return m
}

func (m *rodSessionManager) Engine() string { return "rod" }

// AcquireSession returns the shared session, launching the browser on first
// use. A dead connection is detected here and replaced by a fresh launch.
func (m *rodSessionManager) AcquireSession(ctx context.Context) (RendererSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case stateShuttingDown:
		return nil, ErrManagerShutdown
	case stateLive:
		if m.connectionAlive() {
			return &rodSession{mgr: m}, nil
		}
		// Dead connection: demote to uninitialized and relaunch below.
		m.logger.Warn().Msg("rod connection lost, relaunching")
		m.closeBrowserLocked()
	}

	browser, err := m.launchBreaker.Execute(m.launch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineStart, err)
	}

	m.browser = browser
	m.state = stateLive
	m.logger.Info().Str("engine", m.Engine()).Msg("engine session started")
	return &rodSession{mgr: m}, nil
}

// launch starts a headless browser with the fixed compatibility flags:
// no sandbox, no GPU, no /dev/shm-backed rendering.
func (m *rodSessionManager) launch() (*rod.Browser, error) {
	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage")
	if m.bin != "" {
		l = l.Bin(m.bin)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, err
	}
	metrics.RecordEngineLaunch(m.Engine())
	return browser, nil
}

// connectionAlive probes the browser over the existing connection.
// Callers must hold m.mu.
func (m *rodSessionManager) connectionAlive() bool {
	if m.browser == nil {
		return false
	}
	_, err := m.browser.Version()
	return err == nil
}

// closeBrowserLocked releases the browser and resets state.
// Callers must hold m.mu.
func (m *rodSessionManager) closeBrowserLocked() {
	if m.browser != nil {
		_ = m.browser.Close()
		m.browser = nil
	}
	m.state = stateUninitialized
}

// Shutdown tears down the browser connection. Safe when nothing is live.
func (m *rodSessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateLive {
		m.state = stateUninitialized
		return nil
	}

	m.state = stateShuttingDown
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	m.state = stateUninitialized
	m.logger.Info().Str("engine", m.Engine()).Msg("engine session stopped")
	return err
}

// rodSession is the shared handle to the manager's live browser.
type rodSession struct {
	mgr *rodSessionManager
}

func (s *rodSession) Live() bool {
	s.mgr.mu.Lock()
	defer s.mgr.mu.Unlock()
	return s.mgr.state == stateLive && s.mgr.browser != nil
}

// OpenContext creates a fresh browser tab for one render. The tab lives on
// the browser's own context, not the request context: Close must still be
// able to release the tab after the caller's context is cancelled.
func (s *rodSession) OpenContext(ctx context.Context) (RenderingContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreate, err)
	}

	s.mgr.mu.Lock()
	browser := s.mgr.browser
	live := s.mgr.state == stateLive
	s.mgr.mu.Unlock()

	if !live || browser == nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreate, ErrSessionNotLive)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreate, err)
	}
	return &rodContext{page: page}, nil
}

// rodContext wraps one browser tab. Single-use.
type rodContext struct {
	page *rod.Page
	once sync.Once
}

// RenderFile navigates the tab to fileURL, waits for load and prints to PDF.
func (c *rodContext) RenderFile(ctx context.Context, fileURL string, opts *renderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout, err := loadTimeout(ctx, opts)
	if err != nil {
		return nil, err
	}

	page := c.page.Context(ctx)

	if err := page.Navigate(fileURL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCreate, err)
	}

	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadTimeout, err)
	}

	reader, err := page.PDF(buildPrintOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderExtraction, err)
	}

	pdfBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrRenderExtraction, err)
	}
	return pdfBytes, nil
}

// Close releases the tab. Idempotent.
func (c *rodContext) Close() error {
	var err error
	c.once.Do(func() {
		if c.page != nil {
			err = c.page.Close()
		}
	})
	return err
}

// buildPrintOptions maps page settings to Chrome's printToPDF parameters.
func buildPrintOptions(opts *renderOptions) *proto.PagePrintToPDF {
	var page *PageSettings
	if opts != nil {
		page = opts.Page
	}

	width, height := page.Dimensions()
	margin := page.MarginInches()

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(margin),
		MarginBottom:    floatPtr(margin),
		MarginLeft:      floatPtr(margin),
		MarginRight:     floatPtr(margin),
		PrintBackground: true,
	}
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}
