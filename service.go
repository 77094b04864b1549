package pdfarena

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/corvand/pdfarena/internal/metrics"
)

// Summary aggregates the outcomes of a comparative run.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ComparativeResult holds one result per registered adapter, in registry
// order, plus the aggregate counts.
type ComparativeResult struct {
	Results []RenderResult `json:"results"`
	Summary Summary        `json:"summary"`
}

// Service renders documents through every registered backend. Engine-backed
// adapters share one browser per engine behind a bounded context pool;
// in-process adapters need no shared state. A Service is safe for concurrent
// use and must be closed when no longer needed.
type Service struct {
	cfg      serviceConfig
	registry *registry
	pools    map[string]*contextPool
	assets   *assetResolver

	closeOnce sync.Once
	closeErr  error
}

// New builds a Service with all seven adapters registered. Browser engines
// launch lazily on the first engine-backed render, so construction is cheap
// and never touches the network.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		cfg: serviceConfig{
			timeout: defaultTimeout,
			logger:  zerolog.Nop(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cfg.page == nil {
		s.cfg.page = DefaultPageSettings()
	}
	if err := s.cfg.page.Validate(); err != nil {
		return nil, err
	}
	if s.cfg.templateName == "" {
		s.cfg.templateName = DefaultTemplate
	}

	poolSize := s.cfg.poolSize
	if poolSize < MinPoolSize {
		poolSize = ResolvePoolSize(0)
	}

	templates := newTemplateResolver(s.cfg.assetsDir)
	s.assets = newAssetResolver(s.cfg.assetsDir)

	rodPool := newContextPool(newRodSessionManager(s.cfg.engineBin, s.cfg.logger), poolSize)
	chromePool := newContextPool(newChromedpSessionManager(s.cfg.engineBin, s.cfg.logger), poolSize)
	s.pools = map[string]*contextPool{
		rodPool.Engine():    rodPool,
		chromePool.Engine(): chromePool,
	}

	engine := func(name AdapterName, desc string, mode assetMode, pool *contextPool) *engineAdapter {
		return &engineAdapter{
			name:         name,
			description:  desc,
			mode:         mode,
			pool:         pool,
			templates:    templates,
			assets:       s.assets,
			templateName: s.cfg.templateName,
			page:         s.cfg.page,
			timeout:      s.cfg.timeout,
			logger:       s.cfg.logger,
		}
	}

	s.registry = newAdapterRegistry(
		engine(AdapterRodInline, "Headless Chrome via go-rod, assets inlined as data URIs.", assetInline, rodPool),
		engine(AdapterRodLinked, "Headless Chrome via go-rod, assets linked as file URLs.", assetLinked, rodPool),
		engine(AdapterChromedpInline, "Headless Chrome via chromedp, assets inlined as data URIs.", assetInline, chromePool),
		engine(AdapterChromedpLinked, "Headless Chrome via chromedp, assets linked as file URLs.", assetLinked, chromePool),
		&fpdfAdapter{
			templates:    templates,
			assets:       s.assets,
			templateName: s.cfg.templateName,
			page:         s.cfg.page,
		},
		&gopdfAdapter{
			templates:    templates,
			assets:       s.assets,
			templateName: s.cfg.templateName,
			page:         s.cfg.page,
			fontPath:     s.cfg.fontPath,
		},
		&seehuhnAdapter{
			templates:    templates,
			assets:       s.assets,
			templateName: s.cfg.templateName,
			page:         s.cfg.page,
		},
	)

	return s, nil
}

// Libraries lists every registered adapter in registration order.
func (s *Service) Libraries() []LibraryInfo {
	return s.registry.Infos()
}

// AdapterNames lists the registered adapter names in registration order.
func (s *Service) AdapterNames() []string {
	return s.registry.Names()
}

// Generate renders one document through the named adapter. The returned
// error is non-nil only for an unknown adapter name; render failures are
// reported inside the result.
func (s *Service) Generate(ctx context.Context, library string, req RenderRequest) (RenderResult, error) {
	adapter, err := s.registry.Lookup(library)
	if err != nil {
		return RenderResult{}, err
	}

	res := adapter.Render(ctx, req)
	s.logResult(res)
	return res, nil
}

// GenerateAll renders the same request through every registered adapter
// concurrently and reports one tagged result per adapter. One backend
// failing never hides the others; the summary counts both kinds.
func (s *Service) GenerateAll(ctx context.Context, req RenderRequest) ComparativeResult {
	adapters := s.registry.All()
	results := make([]RenderResult, len(adapters))

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = adapter.Render(ctx, req)
		}()
	}
	wg.Wait()

	cmp := ComparativeResult{Results: results}
	for _, res := range results {
		cmp.Summary.Total++
		if res.OK {
			cmp.Summary.Successful++
		} else {
			cmp.Summary.Failed++
		}
		s.logResult(res)
	}
	return cmp
}

// EngineHealth probes each browser engine with a minimal render and reports
// the outcome per engine. Probing an engine that has not launched yet will
// launch it.
func (s *Service) EngineHealth(ctx context.Context) map[string]HealthStatus {
	out := make(map[string]HealthStatus, len(s.pools))
	for name, pool := range s.pools {
		out[name] = pool.HealthCheck(ctx)
	}
	return out
}

// Close shuts down both engine pools and releases the asset resolver.
// Subsequent renders through engine-backed adapters fail; in-process
// adapters are unaffected. Safe to call more than once.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		for name, pool := range s.pools {
			if err := pool.Shutdown(); err != nil && s.closeErr == nil {
				s.closeErr = fmt.Errorf("shutdown %s pool: %w", name, err)
			}
		}
		if err := s.assets.Close(); err != nil && s.closeErr == nil {
			s.closeErr = fmt.Errorf("close asset resolver: %w", err)
		}
	})
	return s.closeErr
}

func (s *Service) logResult(res RenderResult) {
	metrics.RecordRender(res.Adapter, res.OK, res.Size, res.Elapsed)

	evt := s.cfg.logger.Info()
	if !res.OK {
		evt = s.cfg.logger.Warn().Str("reason", res.Reason)
	}
	evt.Str("adapter", res.Adapter).
		Bool("ok", res.OK).
		Int("bytes", res.Size).
		Dur("elapsed", res.Elapsed).
		Msg("render")
}

// RenderTimeout reports the configured per-render timeout bound.
func (s *Service) RenderTimeout() time.Duration {
	return s.cfg.timeout
}
