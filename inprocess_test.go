package pdfarena

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newInProcessFixture(t *testing.T, withLogo bool) (*templateResolver, *assetResolver) {
	t.Helper()
	dir := t.TempDir()
	if withLogo {
		if err := os.WriteFile(filepath.Join(dir, "clinic-logo.png"), pngStub, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	templates := newTemplateResolver("")
	assets := newAssetResolver(dir)
	t.Cleanup(func() { assets.Close() })
	return templates, assets
}

func TestBuildDocModel(t *testing.T) {
	templates, assets := newInProcessFixture(t, true)

	model, err := buildDocModel(context.Background(), templates, assets, DefaultTemplate, RenderRequest{
		"patientName": "Carol Wu",
		"dosage":      "2 tablets",
	})
	if err != nil {
		t.Fatalf("buildDocModel() error = %v", err)
	}

	if model.Title == "" {
		t.Error("Title is empty")
	}

	rows := make(map[string]string, len(model.Rows))
	for _, row := range model.Rows {
		rows[row.Label] = row.Value
	}
	if rows["Patient"] != "Carol Wu" {
		t.Errorf("Patient row = %q, want the request override", rows["Patient"])
	}
	if rows["Dosage"] != "2 tablets" {
		t.Errorf("Dosage row = %q", rows["Dosage"])
	}
	if rows["Medication"] != DefaultFields()["medicationName"] {
		t.Errorf("Medication row = %q, want the default", rows["Medication"])
	}

	if len(model.Images) != 1 {
		t.Fatalf("Images = %d entries, want the raster logo only", len(model.Images))
	}

	// The template's SVG seal cannot be embedded by in-process writers.
	var vectorSkipped bool
	for _, note := range model.Notes {
		if strings.Contains(note, "vector") {
			vectorSkipped = true
		}
	}
	if !vectorSkipped {
		t.Errorf("Notes = %v, want a vector skip entry", model.Notes)
	}
}

func TestBuildDocModelMissingRasterAsset(t *testing.T) {
	templates, assets := newInProcessFixture(t, false)

	model, err := buildDocModel(context.Background(), templates, assets, DefaultTemplate, nil)
	if err != nil {
		t.Fatalf("buildDocModel() error = %v", err)
	}

	if len(model.Images) != 0 {
		t.Errorf("Images = %d entries, want none", len(model.Images))
	}

	var marker bool
	for _, p := range model.Paragraphs {
		if strings.Contains(p, "[missing asset: clinic-logo.png]") {
			marker = true
		}
	}
	if !marker {
		t.Errorf("Paragraphs = %v, want an inline missing-asset marker", model.Paragraphs)
	}

	var noted bool
	for _, note := range model.Notes {
		if strings.Contains(note, "missing asset: clinic-logo.png") {
			noted = true
		}
	}
	if !noted {
		t.Errorf("Notes = %v, want a missing-asset entry", model.Notes)
	}
}

func TestBuildDocModelUnknownTemplate(t *testing.T) {
	templates, assets := newInProcessFixture(t, false)

	if _, err := buildDocModel(context.Background(), templates, assets, "nope", nil); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("error = %v, want ErrTemplateNotFound", err)
	}
}

func TestIsVectorAsset(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"seal.svg", true},
		{"figure.EPS", true},
		{"attachment.pdf", true},
		{"logo.png", false},
		{"photo.jpeg", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		if got := isVectorAsset(tt.ref); got != tt.want {
			t.Errorf("isVectorAsset(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
