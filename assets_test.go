package pdfarena

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// pngStub is not a decodable image, but asset resolution never inspects
// pixel data.
var pngStub = []byte("\x89PNG\r\n\x1a\nstub")

func newTestAssetResolver(t *testing.T) (*assetResolver, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "logo.png"), pngStub, 0o644); err != nil {
		t.Fatal(err)
	}
	r := newAssetResolver(dir)
	t.Cleanup(func() { r.Close() })
	return r, dir
}

func TestResolveLocal(t *testing.T) {
	r, _ := newTestAssetResolver(t)
	ctx := context.Background()

	t.Run("existing file", func(t *testing.T) {
		a := r.Resolve(ctx, "logo.png")
		if !a.Found() {
			t.Fatalf("Missing = %q, want found", a.Missing)
		}
		if a.MIME != "image/png" {
			t.Errorf("MIME = %q, want image/png", a.MIME)
		}
		if string(a.Data) != string(pngStub) {
			t.Error("Data does not match the file contents")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		a := r.Resolve(ctx, "absent.png")
		if a.Found() {
			t.Fatal("missing asset reported as found")
		}
		if !strings.Contains(a.Missing, "absent.png") {
			t.Errorf("Missing = %q, want the reference named", a.Missing)
		}
	})

	t.Run("traversal rejected", func(t *testing.T) {
		a := r.Resolve(ctx, "../../etc/passwd")
		if a.Found() {
			t.Fatal("traversal path reported as found")
		}
		if !strings.Contains(a.Missing, "escapes") {
			t.Errorf("Missing = %q, want traversal rejection", a.Missing)
		}
	})

	t.Run("no assets dir configured", func(t *testing.T) {
		bare := newAssetResolver("")
		defer bare.Close()
		if a := bare.Resolve(ctx, "logo.png"); a.Found() {
			t.Fatal("asset found with no assets directory")
		}
	})
}

func TestInlineAssets(t *testing.T) {
	r, _ := newTestAssetResolver(t)
	ctx := context.Background()

	t.Run("local image inlined", func(t *testing.T) {
		out, notes, err := r.InlineAssets(ctx, `<p><img src="logo.png"></p>`)
		if err != nil {
			t.Fatalf("InlineAssets() error = %v", err)
		}
		if len(notes) != 0 {
			t.Errorf("notes = %v, want none", notes)
		}
		if !strings.Contains(out, "data:image/png;base64,") {
			t.Errorf("img src not inlined: %q", out)
		}
	})

	t.Run("missing image skipped with note", func(t *testing.T) {
		markup := `<p><img src="absent.png"></p>`
		out, notes, err := r.InlineAssets(ctx, markup)
		if err != nil {
			t.Fatalf("InlineAssets() error = %v", err)
		}
		if len(notes) != 1 || !strings.Contains(notes[0], "skipped asset") {
			t.Errorf("notes = %v, want one skip note", notes)
		}
		if !strings.Contains(out, `src="absent.png"`) {
			t.Errorf("missing asset src was altered: %q", out)
		}
	})

	t.Run("data URI untouched", func(t *testing.T) {
		markup := `<img src="data:image/png;base64,AAAA">`
		out, notes, err := r.InlineAssets(ctx, markup)
		if err != nil {
			t.Fatal(err)
		}
		if len(notes) != 0 || !strings.Contains(out, "base64,AAAA") {
			t.Errorf("data URI rewritten: %q notes=%v", out, notes)
		}
	})

	t.Run("full document keeps structure", func(t *testing.T) {
		doc := `<!DOCTYPE html><html><body><img src="logo.png"></body></html>`
		out, _, err := r.InlineAssets(ctx, doc)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "<html") || !strings.Contains(out, "data:image/png") {
			t.Errorf("document structure lost: %q", out)
		}
	})
}

func TestRewriteRelativePaths(t *testing.T) {
	r, dir := newTestAssetResolver(t)

	t.Run("relative img rewritten to file URL", func(t *testing.T) {
		out, err := r.RewriteRelativePaths(`<img src="logo.png">`)
		if err != nil {
			t.Fatalf("RewriteRelativePaths() error = %v", err)
		}
		absDir, _ := filepath.Abs(dir)
		want := pathToFileURL(filepath.Join(absDir, "logo.png"))
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	})

	t.Run("absolute URLs untouched", func(t *testing.T) {
		markup := `<img src="https://example.com/x.png"><a href="#anchor">x</a>`
		out, err := r.RewriteRelativePaths(markup)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "https://example.com/x.png") || !strings.Contains(out, "#anchor") {
			t.Errorf("non-relative reference rewritten: %q", out)
		}
	})

	t.Run("traversal left alone", func(t *testing.T) {
		out, err := r.RewriteRelativePaths(`<img src="../secret.png">`)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(out, "file://") {
			t.Errorf("traversal path rewritten: %q", out)
		}
	})

	t.Run("no assets dir passes through", func(t *testing.T) {
		bare := newAssetResolver("")
		defer bare.Close()
		markup := `<img src="logo.png">`
		out, err := bare.RewriteRelativePaths(markup)
		if err != nil {
			t.Fatal(err)
		}
		if out != markup {
			t.Errorf("markup changed with no assets dir: %q", out)
		}
	})
}

func TestIsRelativePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"logo.png", true},
		{"sub/dir/logo.png", true},
		{"", false},
		{"http://example.com/x.png", false},
		{"https://example.com/x.png", false},
		{"file:///tmp/x.png", false},
		{"data:image/png;base64,AAAA", false},
		{"//cdn.example.com/x.png", false},
		{"#section", false},
		{"/etc/passwd", false},
	}

	for _, tt := range tests {
		if got := isRelativePath(tt.path); got != tt.want {
			t.Errorf("isRelativePath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMimeTypeFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"a.png", "image/png"},
		{"a.svg", "image/svg+xml"},
		{"a.unknownext", "application/octet-stream"},
	}

	for _, tt := range tests {
		got := mimeTypeFor(tt.path)
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("mimeTypeFor(%q) = %q, want prefix %q", tt.path, got, tt.want)
		}
	}
}
