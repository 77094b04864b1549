package pdfarena

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// assetMode selects how an engine-backed adapter handles referenced assets.
type assetMode int

const (
	// assetInline embeds every referenced image as a base64 data URI.
	assetInline assetMode = iota

	// assetLinked leaves references relative and rewrites them to absolute
	// file:// URLs under the assets directory.
	assetLinked
)

func (m assetMode) String() string {
	if m == assetLinked {
		return "linked"
	}
	return "inline"
}

var _ Adapter = (*engineAdapter)(nil)

// engineAdapter renders the resolved template markup through a browser
// engine. One rendering context is borrowed from the engine's bounded pool
// per render and closed on every exit path.
type engineAdapter struct {
	name         AdapterName
	description  string
	mode         assetMode
	pool         *contextPool
	templates    *templateResolver
	assets       *assetResolver
	templateName string
	page         *PageSettings
	timeout      time.Duration
	logger       zerolog.Logger
}

func (a *engineAdapter) Name() AdapterName   { return a.name }
func (a *engineAdapter) Kind() AdapterKind   { return KindEngineBacked }
func (a *engineAdapter) Description() string { return a.description }

// Render resolves the template, prepares assets per the adapter's mode and
// prints the markup to PDF through a borrowed rendering context.
func (a *engineAdapter) Render(ctx context.Context, req RenderRequest) (res RenderResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = fail(string(a.name), fmt.Sprintf("panic during render: %v", r), time.Since(start))
		}
	}()

	markup, _, err := a.templates.Resolve(ctx, a.templateName, req)
	if err != nil {
		return fail(string(a.name), err.Error(), time.Since(start))
	}

	var notes []string
	switch a.mode {
	case assetInline:
		markup, notes, err = a.assets.InlineAssets(ctx, markup)
	case assetLinked:
		markup, err = a.assets.RewriteRelativePaths(markup)
	}
	if err != nil {
		return fail(string(a.name), err.Error(), time.Since(start))
	}

	tmpPath, cleanup, err := writeTempFile(markup, "html")
	if err != nil {
		return fail(string(a.name), err.Error(), time.Since(start))
	}
	defer cleanup()

	rc, err := a.pool.OpenContext(ctx)
	if err != nil {
		return fail(string(a.name), err.Error(), time.Since(start))
	}
	defer rc.Close()

	pdfBytes, err := rc.RenderFile(ctx, pathToFileURL(tmpPath), &renderOptions{
		Page:    a.page,
		Timeout: a.timeout,
	})
	if err != nil {
		return fail(string(a.name), err.Error(), time.Since(start))
	}

	a.logger.Debug().Str("adapter", string(a.name)).
		Int("bytes", len(pdfBytes)).
		Dur("elapsed", time.Since(start)).
		Msg("engine render complete")

	return succeed(string(a.name), pdfBytes, time.Since(start), notes...)
}
