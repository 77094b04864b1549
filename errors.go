package pdfarena

import "errors"

// Sentinel errors for harness operations.
var (
	// Engine session lifecycle errors.
	ErrEngineStart      = errors.New("engine process failed to start")
	ErrContextCreate    = errors.New("failed to create rendering context")
	ErrSessionNotLive   = errors.New("session is not live")
	ErrManagerShutdown  = errors.New("session manager is shutting down")
	ErrLoadTimeout      = errors.New("page failed to reach quiescence in time")
	ErrRenderExtraction = errors.New("failed to extract rendered bytes")

	// Adapter dispatch errors.
	ErrUnknownAdapter = errors.New("unknown adapter")

	// Template and asset errors.
	ErrTemplateNotFound = errors.New("template not found")
	ErrTemplateParse    = errors.New("failed to parse template")
	ErrAssetNotFound    = errors.New("asset not found")
	ErrInvalidAssetPath = errors.New("invalid asset path")
	ErrFontNotFound     = errors.New("font not found")

	// Markdown conversion errors.
	ErrHTMLConversion = errors.New("HTML conversion failed")

	// Page settings validation errors.
	ErrInvalidPageSize    = errors.New("invalid page size")
	ErrInvalidOrientation = errors.New("invalid orientation")
	ErrInvalidMargin      = errors.New("invalid margin")
)
