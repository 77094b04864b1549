package pdfarena

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/font"
	"seehuhn.de/go/pdf/font/standard"
)

var _ Adapter = (*seehuhnAdapter)(nil)

// seehuhnAdapter constructs the document with the seehuhn.de/go/pdf writer.
// Text only: the library's image support is not wired here, so template
// images are reported as skipped in the result notes.
type seehuhnAdapter struct {
	templates    *templateResolver
	assets       *assetResolver
	templateName string
	page         *PageSettings
}

func (a *seehuhnAdapter) Name() AdapterName { return AdapterSeehuhn }
func (a *seehuhnAdapter) Kind() AdapterKind { return KindInProcess }
func (a *seehuhnAdapter) Description() string {
	return "In-process PDF writer (seehuhn.de/go/pdf) with standard Type1 fonts, text only."
}

func (a *seehuhnAdapter) Render(ctx context.Context, req RenderRequest) (res RenderResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = fail(string(AdapterSeehuhn), fmt.Sprintf("panic during render: %v", r), time.Since(start))
		}
	}()

	model, err := buildDocModel(ctx, a.templates, a.assets, a.templateName, req)
	if err != nil {
		return fail(string(AdapterSeehuhn), err.Error(), time.Since(start))
	}

	for _, img := range model.Images {
		model.Notes = append(model.Notes, "skipped asset: "+img.Ref+" (text-only backend)")
	}
	model.Images = nil

	pdfBytes, err := a.compose(model)
	if err != nil {
		return fail(string(AdapterSeehuhn), err.Error(), time.Since(start))
	}

	return succeed(string(AdapterSeehuhn), pdfBytes, time.Since(start), model.Notes...)
}

func (a *seehuhnAdapter) compose(model *docModel) ([]byte, error) {
	pageW, pageH := a.page.Dimensions()
	paper := &pdf.Rectangle{URx: pageW * 72, URy: pageH * 72}
	margin := a.page.MarginInches() * 72

	var buf bytes.Buffer
	doc, err := document.WriteSinglePage(&buf, paper, pdf.V2_0, nil)
	if err != nil {
		return nil, fmt.Errorf("open pdf writer: %w", err)
	}

	body := font.Must(standard.Helvetica.New())
	bold := font.Must(standard.HelveticaBold.New())
	oblique := font.Must(standard.HelveticaOblique.New())

	// Characters per line at 11pt body text.
	wrapWidth := int((paper.URx - 2*margin) / 5.8)

	y := paper.URy - margin - 18

	doc.TextSetFont(bold, 18)
	doc.TextBegin()
	doc.TextFirstLine(margin, y)
	doc.TextShow(model.Title)
	doc.TextEnd()
	y -= 34

	for _, row := range model.Rows {
		doc.TextSetFont(bold, 11)
		doc.TextBegin()
		doc.TextFirstLine(margin, y)
		doc.TextShow(row.Label)
		doc.TextEnd()

		doc.TextSetFont(body, 11)
		doc.TextBegin()
		doc.TextFirstLine(margin+130, y)
		doc.TextShow(row.Value)
		doc.TextEnd()
		y -= 16
	}
	y -= 10

	doc.TextSetFont(body, 11)
	for _, p := range model.Paragraphs {
		lines := wrapText(p, wrapWidth)
		doc.TextBegin()
		doc.TextFirstLine(margin, y)
		doc.TextShow(lines[0])
		if len(lines) > 1 {
			doc.TextSecondLine(0, -15)
			doc.TextShow(lines[1])
			for _, line := range lines[2:] {
				doc.TextNextLine()
				doc.TextShow(line)
			}
		}
		doc.TextEnd()
		y -= float64(len(lines))*15 + 6
	}
	y -= 14

	doc.TextSetFont(oblique, 9)
	for _, line := range model.Footer {
		doc.TextBegin()
		doc.TextFirstLine(margin, y)
		doc.TextShow(line)
		doc.TextEnd()
		y -= 13
	}

	if err := doc.Close(); err != nil {
		return nil, fmt.Errorf("close pdf writer: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapText splits s into lines of at most limit characters, breaking on
// word boundaries. Always returns at least one line.
func wrapText(s string, limit int) []string {
	if limit < 20 {
		limit = 20
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > limit {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
