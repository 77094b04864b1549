package pdfarena

import (
	"context"
	"embed"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

//go:embed templates/*
var embeddedTemplates embed.FS

// DefaultTemplate is the name of the built-in prescription template.
const DefaultTemplate = "prescription"

// templateExtensions lists recognized template file extensions in lookup
// order. Markdown templates are converted to HTML; .html is used verbatim.
var templateExtensions = []string{".md", ".html"}

// placeholderPattern matches {{fieldName}} tokens. Substitution is a single
// regex replace over the template body.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z][a-zA-Z0-9_]*)\s*\}\}`)

// TemplateMeta is the optional YAML front matter of a template.
type TemplateMeta struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Images      []string `yaml:"images"` // referenced asset files, relative to the assets dir
}

// Template is a loaded document template before substitution.
type Template struct {
	Name   string
	Meta   TemplateMeta
	Body   string // template source with front matter stripped
	IsHTML bool   // body is already HTML, skip markdown conversion
}

// templateResolver loads templates by name and produces final markup.
// Lookup order: {assetsDir}/templates/{name}{.md|.html}, then the embedded
// defaults. Implements the filesystem-with-embedded-fallback pattern.
type templateResolver struct {
	assetsDir string
	converter htmlConverter
}

func newTemplateResolver(assetsDir string) *templateResolver {
	return &templateResolver{
		assetsDir: assetsDir,
		converter: newGoldmarkConverter(),
	}
}

// Load reads a template by name without substituting placeholders.
// Returns ErrTemplateNotFound if no file exists under either source.
func (r *templateResolver) Load(name string) (*Template, error) {
	if err := validateAssetName(name); err != nil {
		return nil, err
	}

	if r.assetsDir != "" {
		for _, ext := range templateExtensions {
			path := filepath.Join(r.assetsDir, "templates", name+ext)
			if fileExists(path) {
				content, err := readLocalFile(path)
				if err != nil {
					return nil, err
				}
				return parseTemplate(name, string(content), ext == ".html")
			}
		}
	}

	for _, ext := range templateExtensions {
		content, err := embeddedTemplates.ReadFile("templates/" + name + ext)
		if err == nil {
			return parseTemplate(name, string(content), ext == ".html")
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
}

// Resolve loads the named template, substitutes request fields over the
// defaults, and returns final HTML markup plus the template metadata.
func (r *templateResolver) Resolve(ctx context.Context, name string, req RenderRequest) (string, TemplateMeta, error) {
	tpl, err := r.Load(name)
	if err != nil {
		return "", TemplateMeta{}, err
	}

	body := substitute(tpl.Body, req.Resolved())
	if tpl.IsHTML {
		return body, tpl.Meta, nil
	}

	title := tpl.Meta.Title
	if title == "" {
		title = "Document"
	}
	markup, err := r.converter.ToHTML(ctx, title, body)
	if err != nil {
		return "", TemplateMeta{}, err
	}
	return markup, tpl.Meta, nil
}

// substitute replaces {{field}} tokens with values from fields.
// Unknown fields resolve to the empty string.
func substitute(body string, fields map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		return fields[name]
	})
}

// parseTemplate splits optional YAML front matter from the template body.
// Front matter is delimited by "---" lines at the very start of the file.
func parseTemplate(name, content string, isHTML bool) (*Template, error) {
	tpl := &Template{Name: name, Body: content, IsHTML: isHTML}

	rest, ok := strings.CutPrefix(content, "---\n")
	if !ok {
		rest, ok = strings.CutPrefix(content, "---\r\n")
	}
	if !ok {
		return tpl, nil
	}

	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return tpl, nil
	}
	header := rest[:idx]
	body := rest[idx+len("\n---"):]
	body = strings.TrimPrefix(strings.TrimPrefix(body, "\r"), "\n")

	var meta TemplateMeta
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrTemplateParse, name, err)
	}

	tpl.Meta = meta
	tpl.Body = body
	return tpl, nil
}

// validateAssetName rejects names that could escape the assets directory.
func validateAssetName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetPath, name)
	}
	return nil
}
