package pdfarena

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
		wantBody  string
		wantErr   error
	}{
		{
			name:      "front matter parsed and stripped",
			content:   "---\ntitle: Rx Form\nimages:\n  - logo.png\n---\n# Heading\n",
			wantTitle: "Rx Form",
			wantBody:  "# Heading\n",
		},
		{
			name:     "no front matter",
			content:  "# Heading\n",
			wantBody: "# Heading\n",
		},
		{
			name:     "unterminated front matter treated as body",
			content:  "---\ntitle: Rx\nno closing delimiter",
			wantBody: "---\ntitle: Rx\nno closing delimiter",
		},
		{
			name:    "malformed yaml",
			content: "---\ntitle: [unclosed\n---\nbody",
			wantErr: ErrTemplateParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := parseTemplate("x", tt.content, false)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("parseTemplate() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseTemplate() error = %v", err)
			}
			if tpl.Meta.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", tpl.Meta.Title, tt.wantTitle)
			}
			if tpl.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", tpl.Body, tt.wantBody)
			}
		})
	}
}

func TestSubstitute(t *testing.T) {
	fields := map[string]string{"name": "Alice", "dose": "5mg"}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain token", "Patient: {{name}}", "Patient: Alice"},
		{"spaced token", "Dose: {{ dose }}", "Dose: 5mg"},
		{"unknown field becomes empty", "X{{missing}}Y", "XY"},
		{"repeated token", "{{name}} and {{name}}", "Alice and Alice"},
		{"no tokens", "static text", "static text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substitute(tt.body, fields); got != tt.want {
				t.Errorf("substitute() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateAssetName(t *testing.T) {
	valid := []string{"prescription", "my-template_2"}
	for _, name := range valid {
		if err := validateAssetName(name); err != nil {
			t.Errorf("validateAssetName(%q) = %v, want nil", name, err)
		}
	}

	invalid := []string{"", "../escape", "a/b", `a\b`, "..", "x..y"}
	for _, name := range invalid {
		if err := validateAssetName(name); !errors.Is(err, ErrInvalidAssetPath) {
			t.Errorf("validateAssetName(%q) = %v, want ErrInvalidAssetPath", name, err)
		}
	}
}

func TestTemplateResolverLoadEmbedded(t *testing.T) {
	r := newTemplateResolver("")

	tpl, err := r.Load(DefaultTemplate)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", DefaultTemplate, err)
	}
	if tpl.IsHTML {
		t.Error("IsHTML = true for the markdown default template")
	}
	if tpl.Meta.Title == "" {
		t.Error("embedded template has no title")
	}
	if len(tpl.Meta.Images) == 0 {
		t.Error("embedded template declares no images")
	}
	if !strings.Contains(tpl.Body, "{{patientName}}") {
		t.Error("template body lacks patientName placeholder")
	}
}

func TestTemplateResolverLoadNotFound(t *testing.T) {
	r := newTemplateResolver("")
	if _, err := r.Load("no-such-template"); !errors.Is(err, ErrTemplateNotFound) {
		t.Fatalf("Load() error = %v, want ErrTemplateNotFound", err)
	}
}

func TestTemplateResolverFilesystemOverridesEmbedded(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	custom := "---\ntitle: Custom\n---\nOverride body {{patientName}}\n"
	if err := os.WriteFile(filepath.Join(dir, "templates", DefaultTemplate+".md"), []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTemplateResolver(dir)
	tpl, err := r.Load(DefaultTemplate)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if tpl.Meta.Title != "Custom" {
		t.Errorf("Title = %q, want the filesystem override", tpl.Meta.Title)
	}
}

func TestTemplateResolverResolve(t *testing.T) {
	r := newTemplateResolver("")

	markup, meta, err := r.Resolve(context.Background(), DefaultTemplate, RenderRequest{
		"patientName": "Bob Ng",
	})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !strings.Contains(markup, "<html") {
		t.Error("resolved markup is not an HTML document")
	}
	if !strings.Contains(markup, "Bob Ng") {
		t.Error("request field not substituted into markup")
	}
	if strings.Contains(markup, "{{") {
		t.Error("unsubstituted placeholder left in markup")
	}
	if meta.Title == "" {
		t.Error("metadata not returned")
	}
}

func TestTemplateResolverResolveHTMLVerbatim(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "templates"), 0o755); err != nil {
		t.Fatal(err)
	}
	page := "<!DOCTYPE html><html><body><p>{{patientName}}</p></body></html>"
	if err := os.WriteFile(filepath.Join(dir, "templates", "raw.html"), []byte(page), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newTemplateResolver(dir)
	markup, _, err := r.Resolve(context.Background(), "raw", nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !strings.Contains(markup, "<p>"+DefaultFields()["patientName"]+"</p>") {
		t.Errorf("HTML template not used verbatim: %q", markup)
	}
}
