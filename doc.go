// Package pdfarena is a comparative evaluation harness for PDF generation.
//
// It wraps five rendering backends behind one adapter contract: two
// browser-automation engines (go-rod and chromedp, each in an inline-assets
// and a linked-assets mode) and three pure in-process PDF writers (fpdf,
// gopdf, seehuhn). Every adapter is a pure function of a RenderRequest and
// never returns a Go error; all outcomes are RenderResult values.
//
// # Quick Start
//
//	svc, err := pdfarena.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	res, err := svc.Generate(ctx, string(pdfarena.AdapterFPDF), pdfarena.RenderRequest{
//	    "patientName":    "Test Patient",
//	    "medicationName": "Test Medication 100mg",
//	})
//	if err == nil && res.OK {
//	    os.WriteFile("output.pdf", res.Bytes, 0o644)
//	}
//
// Use Generate for a single adapter or GenerateAll to run every registered
// adapter against the same input and aggregate the outcomes.
//
// # Sessions
//
// Engine-backed adapters borrow single-use rendering contexts (browser tabs)
// from a lazily started, shared engine session. Sessions are owned by the
// Service; the number of concurrently open contexts is capped by a bounded
// pool. See SessionManager for the lifecycle contract.
//
// # HTTP API
//
// NewServer exposes the harness over HTTP: GET /health, GET /libraries,
// POST /generate, POST /generate-all and GET /metrics.
//
// # Browser Requirements
//
// Engine-backed adapters require Chrome/Chromium. go-rod downloads a managed
// Chromium on first run; set PDFARENA_ENGINE_BIN (or the render.engine_bin
// config key) to use a pre-installed binary in containers.
package pdfarena
