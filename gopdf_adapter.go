package pdfarena

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/signintech/gopdf"
)

var _ Adapter = (*gopdfAdapter)(nil)

const gopdfFontName = "body"

// gopdfAdapter constructs the document with the signintech/gopdf writer.
// gopdf ships no built-in fonts, so a TTF file must be configured; without
// one every render reports a font failure rather than producing output.
type gopdfAdapter struct {
	templates    *templateResolver
	assets       *assetResolver
	templateName string
	page         *PageSettings
	fontPath     string
}

func (a *gopdfAdapter) Name() AdapterName { return AdapterGoPDF }
func (a *gopdfAdapter) Kind() AdapterKind { return KindInProcess }
func (a *gopdfAdapter) Description() string {
	return "In-process PDF writer (signintech/gopdf) requiring an external TTF font."
}

func (a *gopdfAdapter) Render(ctx context.Context, req RenderRequest) (res RenderResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = fail(string(AdapterGoPDF), fmt.Sprintf("panic during render: %v", r), time.Since(start))
		}
	}()

	if a.fontPath == "" {
		return fail(string(AdapterGoPDF), fmt.Sprintf("%v: no TTF font configured", ErrFontNotFound), time.Since(start))
	}
	if !fileExists(a.fontPath) {
		return fail(string(AdapterGoPDF), fmt.Sprintf("%v: %s", ErrFontNotFound, a.fontPath), time.Since(start))
	}

	model, err := buildDocModel(ctx, a.templates, a.assets, a.templateName, req)
	if err != nil {
		return fail(string(AdapterGoPDF), err.Error(), time.Since(start))
	}

	pdfBytes, err := a.compose(model)
	if err != nil {
		return fail(string(AdapterGoPDF), err.Error(), time.Since(start))
	}

	return succeed(string(AdapterGoPDF), pdfBytes, time.Since(start), model.Notes...)
}

func (a *gopdfAdapter) compose(model *docModel) ([]byte, error) {
	pageW, pageH := a.page.Dimensions()
	rect := gopdf.Rect{W: pageW * 72, H: pageH * 72}
	margin := a.page.MarginInches() * 72
	contentW := rect.W - 2*margin

	doc := &gopdf.GoPdf{}
	doc.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: rect})
	if err := doc.AddTTFFont(gopdfFontName, a.fontPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontNotFound, err)
	}
	doc.AddPage()

	if err := doc.SetFont(gopdfFontName, "", 18); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontNotFound, err)
	}
	doc.SetXY(margin, margin)
	_ = doc.Cell(nil, model.Title)
	y := margin + 34

	for _, img := range model.Images {
		h, ok := placeGopdfImage(doc, img, margin, y)
		if !ok {
			model.Notes = append(model.Notes, "unsupported image format: "+img.Ref)
			continue
		}
		y += h + 8
	}

	for _, row := range model.Rows {
		doc.SetXY(margin, y)
		_ = doc.SetFont(gopdfFontName, "", 11)
		_ = doc.Cell(nil, row.Label)
		doc.SetXY(margin+130, y)
		_ = doc.MultiCell(&gopdf.Rect{W: contentW - 130, H: 16}, row.Value)
		y = doc.GetY() + 4
	}
	y += 10

	_ = doc.SetFont(gopdfFontName, "", 11)
	for _, p := range model.Paragraphs {
		doc.SetXY(margin, y)
		_ = doc.MultiCell(&gopdf.Rect{W: contentW, H: 16}, p)
		y = doc.GetY() + 6
	}
	y += 14

	_ = doc.SetFont(gopdfFontName, "", 9)
	for _, line := range model.Footer {
		doc.SetXY(margin, y)
		_ = doc.Cell(nil, line)
		y += 13
	}

	pdfBytes, err := doc.GetBytesPdfReturnErr()
	if err != nil {
		return nil, fmt.Errorf("gopdf output: %w", err)
	}
	return pdfBytes, nil
}

// placeGopdfImage draws one raster image at (x, y), scaled to a fixed width
// with the aspect ratio preserved. Returns the drawn height.
func placeGopdfImage(doc *gopdf.GoPdf, img asset, x, y float64) (float64, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil || cfg.Width < 1 || cfg.Height < 1 {
		return 0, false
	}

	holder, err := gopdf.ImageHolderByBytes(img.Data)
	if err != nil {
		return 0, false
	}

	const drawW = 120.0
	drawH := drawW * float64(cfg.Height) / float64(cfg.Width)
	if err := doc.ImageByHolder(holder, x, y, &gopdf.Rect{W: drawW, H: drawH}); err != nil {
		return 0, false
	}
	return drawH, true
}
