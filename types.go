package pdfarena

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Page size constants.
const (
	PageSizeLetter = "letter"
	PageSizeA4     = "a4"
	PageSizeLegal  = "legal"
)

// Orientation constants.
const (
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
)

// Margin bounds in inches.
const (
	MinMargin     = 0.25
	MaxMargin     = 3.0
	DefaultMargin = 0.5
)

// Paper dimensions in inches, portrait.
var paperSizes = map[string][2]float64{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// PageSettings configures PDF page dimensions.
type PageSettings struct {
	Size        string  // "letter", "a4", "legal"
	Orientation string  // "portrait", "landscape"
	Margin      float64 // inches, applied to all sides
}

// DefaultPageSettings returns page settings with default values.
func DefaultPageSettings() *PageSettings {
	return &PageSettings{
		Size:        PageSizeLetter,
		Orientation: OrientationPortrait,
		Margin:      DefaultMargin,
	}
}

// Validate checks that page settings are valid.
// Returns nil if p is nil (nil means use defaults).
func (p *PageSettings) Validate() error {
	if p == nil {
		return nil
	}

	if _, ok := paperSizes[strings.ToLower(p.Size)]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPageSize, p.Size)
	}

	switch strings.ToLower(p.Orientation) {
	case OrientationPortrait, OrientationLandscape:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOrientation, p.Orientation)
	}

	if p.Margin < MinMargin || p.Margin > MaxMargin {
		return fmt.Errorf("%w: %.2f (must be between %.2f and %.2f)", ErrInvalidMargin, p.Margin, MinMargin, MaxMargin)
	}

	return nil
}

// Dimensions returns paper width and height in inches, orientation applied.
// Nil settings yield portrait US Letter.
func (p *PageSettings) Dimensions() (width, height float64) {
	size := PageSizeLetter
	orientation := OrientationPortrait
	if p != nil {
		if p.Size != "" {
			size = strings.ToLower(p.Size)
		}
		if p.Orientation != "" {
			orientation = strings.ToLower(p.Orientation)
		}
	}

	dims, ok := paperSizes[size]
	if !ok {
		dims = paperSizes[PageSizeLetter]
	}
	if orientation == OrientationLandscape {
		return dims[1], dims[0]
	}
	return dims[0], dims[1]
}

// MarginInches returns the configured margin, or the default for nil settings.
func (p *PageSettings) MarginInches() float64 {
	if p == nil || p.Margin == 0 {
		return DefaultMargin
	}
	return p.Margin
}

// RenderRequest is a flat map of named string fields supplied by the caller.
// No field is required; every known field has a default (see DefaultFields).
// Treated as immutable once received.
type RenderRequest map[string]string

// DefaultFields holds the default value for every template field.
// A request field overrides the default of the same name.
func DefaultFields() map[string]string {
	return map[string]string{
		"patientName":    "John Doe",
		"patientDOB":     "1970-01-01",
		"medicationName": "Amoxicillin 500mg",
		"dosage":         "1 tablet",
		"frequency":      "twice daily",
		"duration":       "7 days",
		"refills":        "0",
		"prescriberName": "Dr. Jane Smith",
		"prescriberID":   "NPI 0000000000",
		"pharmacyName":   "Central Pharmacy",
		"instructions":   "Take with food. Complete the full course.",
		"issueDate":      time.Now().Format("2006-01-02"),
	}
}

// Resolved merges the request over the defaults and returns the final field
// map. The receiver is not mutated.
func (r RenderRequest) Resolved() map[string]string {
	fields := DefaultFields()
	for k, v := range r {
		fields[k] = v
	}
	return fields
}

// RenderResult is the tagged outcome of one adapter invocation. Either OK is
// true and Bytes holds the document, or OK is false and Reason explains the
// failure. Produced exactly once per request; never mutated afterwards.
type RenderResult struct {
	Adapter string        `json:"adapter"`
	OK      bool          `json:"ok"`
	Bytes   []byte        `json:"-"`
	Size    int           `json:"sizeBytes"`
	Reason  string        `json:"reason,omitempty"`
	Notes   []string      `json:"notes,omitempty"`
	Elapsed time.Duration `json:"-"`

	// ElapsedMs mirrors Elapsed for JSON consumers.
	ElapsedMs int64 `json:"elapsedMs"`
}

// succeed builds a success result.
func succeed(adapter string, pdfBytes []byte, elapsed time.Duration, notes ...string) RenderResult {
	return RenderResult{
		Adapter:   adapter,
		OK:        true,
		Bytes:     pdfBytes,
		Size:      len(pdfBytes),
		Notes:     notes,
		Elapsed:   elapsed,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// fail builds a failure result. The reason is always non-empty.
func fail(adapter, reason string, elapsed time.Duration) RenderResult {
	if reason == "" {
		reason = "unknown failure"
	}
	return RenderResult{
		Adapter:   adapter,
		OK:        false,
		Reason:    reason,
		Elapsed:   elapsed,
		ElapsedMs: elapsed.Milliseconds(),
	}
}

// Option configures a Service.
type Option func(*Service)

// serviceConfig holds internal configuration for Service.
type serviceConfig struct {
	timeout      time.Duration
	engineBin    string
	poolSize     int
	assetsDir    string
	fontPath     string
	templateName string
	page         *PageSettings
	logger       zerolog.Logger
}

// defaultTimeout bounds the page load quiescence wait.
const defaultTimeout = 30 * time.Second

// WithTimeout sets the render timeout.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d <= 0 {
		panic("pdfarena: WithTimeout duration must be positive")
	}
	return func(s *Service) {
		s.cfg.timeout = d
	}
}

// WithEngineBin overrides the browser binary location for engine-backed
// adapters. Empty means let the engine resolve (rod downloads a managed
// Chromium, chromedp searches the PATH).
func WithEngineBin(path string) Option {
	return func(s *Service) {
		s.cfg.engineBin = path
	}
}

// WithPoolSize caps the number of concurrently open rendering contexts per
// engine. Values below 1 fall back to the default.
func WithPoolSize(n int) Option {
	return func(s *Service) {
		s.cfg.poolSize = n
	}
}

// WithAssetsDir sets the directory searched for templates, images and fonts.
// Empty means embedded assets only.
func WithAssetsDir(dir string) Option {
	return func(s *Service) {
		s.cfg.assetsDir = dir
	}
}

// WithFontPath sets the TTF font used by the gopdf adapter.
func WithFontPath(path string) Option {
	return func(s *Service) {
		s.cfg.fontPath = path
	}
}

// WithTemplate sets the document template rendered by every adapter.
// Empty means the embedded default.
func WithTemplate(name string) Option {
	return func(s *Service) {
		s.cfg.templateName = name
	}
}

// WithPageSettings sets the page geometry used by every adapter. The
// settings are validated when the service is constructed.
func WithPageSettings(p *PageSettings) Option {
	return func(s *Service) {
		s.cfg.page = p
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.cfg.logger = logger
	}
}
