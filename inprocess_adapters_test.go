package pdfarena

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFPDFAdapterRender(t *testing.T) {
	templates := newTemplateResolver("")
	assets := newAssetResolver("")
	defer assets.Close()

	a := &fpdfAdapter{
		templates:    templates,
		assets:       assets,
		templateName: DefaultTemplate,
		page:         DefaultPageSettings(),
	}

	res := a.Render(context.Background(), RenderRequest{"patientName": "Dan Ortiz"})
	if !res.OK {
		t.Fatalf("Render() failed: %s", res.Reason)
	}
	if !bytes.HasPrefix(res.Bytes, []byte("%PDF")) {
		t.Error("output is not a PDF byte stream")
	}
	if res.Size != len(res.Bytes) {
		t.Errorf("Size = %d, want %d", res.Size, len(res.Bytes))
	}
	if res.Adapter != string(AdapterFPDF) {
		t.Errorf("Adapter = %q", res.Adapter)
	}
}

func TestFPDFAdapterUnknownTemplate(t *testing.T) {
	templates := newTemplateResolver("")
	assets := newAssetResolver("")
	defer assets.Close()

	a := &fpdfAdapter{templates: templates, assets: assets, templateName: "nope", page: DefaultPageSettings()}

	res := a.Render(context.Background(), nil)
	if res.OK {
		t.Fatal("Render() succeeded for an unknown template")
	}
	if !strings.Contains(res.Reason, "nope") {
		t.Errorf("Reason = %q, want the template named", res.Reason)
	}
}

func TestGoPDFAdapterFailsWithoutFont(t *testing.T) {
	templates := newTemplateResolver("")
	assets := newAssetResolver("")
	defer assets.Close()

	tests := []struct {
		name     string
		fontPath string
	}{
		{"no font configured", ""},
		{"font file absent", "/nonexistent/font.ttf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &gopdfAdapter{
				templates:    templates,
				assets:       assets,
				templateName: DefaultTemplate,
				page:         DefaultPageSettings(),
				fontPath:     tt.fontPath,
			}

			res := a.Render(context.Background(), nil)
			if res.OK {
				t.Fatal("Render() succeeded without a TTF font")
			}
			if !strings.Contains(res.Reason, ErrFontNotFound.Error()) {
				t.Errorf("Reason = %q, want the font failure named", res.Reason)
			}
		})
	}
}

func TestSeehuhnAdapterRender(t *testing.T) {
	templates := newTemplateResolver("")
	assets := newAssetResolver("")
	defer assets.Close()

	a := &seehuhnAdapter{
		templates:    templates,
		assets:       assets,
		templateName: DefaultTemplate,
		page:         &PageSettings{Size: "a4", Orientation: "portrait", Margin: 0.75},
	}

	res := a.Render(context.Background(), nil)
	if !res.OK {
		t.Fatalf("Render() failed: %s", res.Reason)
	}
	if !bytes.HasPrefix(res.Bytes, []byte("%PDF")) {
		t.Error("output is not a PDF byte stream")
	}
}

func TestFPDFPageMapping(t *testing.T) {
	tests := []struct {
		settings *PageSettings
		size     string
		orient   string
	}{
		{nil, "Letter", "P"},
		{&PageSettings{Size: "a4"}, "A4", "P"},
		{&PageSettings{Size: "legal", Orientation: "landscape"}, "Legal", "L"},
		{&PageSettings{Size: "letter", Orientation: "portrait"}, "Letter", "P"},
	}

	for _, tt := range tests {
		if got := fpdfPageSize(tt.settings); got != tt.size {
			t.Errorf("fpdfPageSize(%+v) = %q, want %q", tt.settings, got, tt.size)
		}
		if got := fpdfOrientation(tt.settings); got != tt.orient {
			t.Errorf("fpdfOrientation(%+v) = %q, want %q", tt.settings, got, tt.orient)
		}
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short line intact", "take with food", 40, []string{"take with food"}},
		{"wraps on word boundary", "one two three four", 9, []string{"one two", "three", "four"}},
		{"empty input yields one line", "", 40, []string{""}},
		{"tiny limit clamped", "alpha beta", 1, []string{"alpha beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.text, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("wrapText() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
