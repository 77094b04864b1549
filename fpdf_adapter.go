package pdfarena

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/go-pdf/fpdf"
)

var _ Adapter = (*fpdfAdapter)(nil)

// fpdfAdapter constructs the document with the fpdf writer: core Type1
// fonts, label/value rows and optional raster images. No engine or session
// involved.
type fpdfAdapter struct {
	templates    *templateResolver
	assets       *assetResolver
	templateName string
	page         *PageSettings
}

func (a *fpdfAdapter) Name() AdapterName { return AdapterFPDF }
func (a *fpdfAdapter) Kind() AdapterKind { return KindInProcess }
func (a *fpdfAdapter) Description() string {
	return "In-process PDF writer (go-pdf/fpdf) with core fonts and raster image support."
}

func (a *fpdfAdapter) Render(ctx context.Context, req RenderRequest) (res RenderResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = fail(string(AdapterFPDF), fmt.Sprintf("panic during render: %v", r), time.Since(start))
		}
	}()

	model, err := buildDocModel(ctx, a.templates, a.assets, a.templateName, req)
	if err != nil {
		return fail(string(AdapterFPDF), err.Error(), time.Since(start))
	}

	pdfBytes, err := a.compose(model)
	if err != nil {
		return fail(string(AdapterFPDF), err.Error(), time.Since(start))
	}

	return succeed(string(AdapterFPDF), pdfBytes, time.Since(start), model.Notes...)
}

// compose lays the model out on a single auto-breaking page.
func (a *fpdfAdapter) compose(model *docModel) ([]byte, error) {
	margin := a.page.MarginInches() * 72 // pt

	doc := fpdf.New(fpdfOrientation(a.page), "pt", fpdfPageSize(a.page), "")
	doc.SetMargins(margin, margin, margin)
	doc.SetAutoPageBreak(true, margin)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 26, model.Title, "", 1, "L", false, 0, "")
	doc.Ln(8)

	for _, img := range model.Images {
		if !a.placeImage(doc, img) {
			model.Notes = append(model.Notes, "unsupported image format: "+img.Ref)
		}
	}

	for _, row := range model.Rows {
		doc.SetFont("Helvetica", "B", 11)
		doc.CellFormat(120, 16, row.Label, "", 0, "L", false, 0, "")
		doc.SetFont("Helvetica", "", 11)
		doc.MultiCell(0, 16, row.Value, "", "L", false)
	}
	doc.Ln(10)

	doc.SetFont("Helvetica", "", 11)
	for _, p := range model.Paragraphs {
		doc.MultiCell(0, 16, p, "", "L", false)
		doc.Ln(4)
	}

	doc.Ln(12)
	doc.SetFont("Helvetica", "I", 10)
	for _, line := range model.Footer {
		doc.CellFormat(0, 14, line, "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("fpdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// placeImage registers and draws one raster image, flowing with the text.
// Returns false for formats fpdf cannot decode.
func (a *fpdfAdapter) placeImage(doc *fpdf.Fpdf, img asset) bool {
	imgType := fpdfImageType(img.MIME, img.Ref)
	if imgType == "" {
		return false
	}

	opts := fpdf.ImageOptions{ImageType: imgType, ReadDpi: true}
	info := doc.RegisterImageOptionsReader(img.Ref, opts, bytes.NewReader(img.Data))
	if info == nil || doc.Err() {
		return false
	}

	doc.ImageOptions(img.Ref, doc.GetX(), doc.GetY(), 120, 0, true, opts, 0, "")
	doc.Ln(6)
	return true
}

// fpdfPageSize maps page settings to fpdf's size strings.
func fpdfPageSize(p *PageSettings) string {
	size := PageSizeLetter
	if p != nil && p.Size != "" {
		size = strings.ToLower(p.Size)
	}
	switch size {
	case PageSizeA4:
		return "A4"
	case PageSizeLegal:
		return "Legal"
	default:
		return "Letter"
	}
}

// fpdfOrientation maps page settings to fpdf's orientation strings.
func fpdfOrientation(p *PageSettings) string {
	if p != nil && strings.ToLower(p.Orientation) == OrientationLandscape {
		return "L"
	}
	return "P"
}

// fpdfImageType maps a MIME type (or file extension) to fpdf's image type.
func fpdfImageType(mimeType, ref string) string {
	switch {
	case strings.Contains(mimeType, "png"), strings.HasSuffix(strings.ToLower(ref), ".png"):
		return "PNG"
	case strings.Contains(mimeType, "jpeg"), strings.Contains(mimeType, "jpg"),
		strings.HasSuffix(strings.ToLower(ref), ".jpg"), strings.HasSuffix(strings.ToLower(ref), ".jpeg"):
		return "JPEG"
	case strings.Contains(mimeType, "gif"), strings.HasSuffix(strings.ToLower(ref), ".gif"):
		return "GIF"
	}
	return ""
}
