package pdfarena

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"resty.dev/v3"
)

// maxAssetSize caps a single inlined asset (8 MiB).
const maxAssetSize = 8 << 20

// asset is the explicit per-asset resolution outcome: either Data is set or
// Missing carries the reason. Callers apply one policy decision (skip vs
// fail) instead of scattering best-effort handling per call site.
type asset struct {
	Ref     string
	Data    []byte
	MIME    string
	Missing string
}

func (a asset) Found() bool { return a.Missing == "" }

// assetResolver resolves template asset references against the assets
// directory, or over HTTP for absolute URLs.
type assetResolver struct {
	assetsDir string
	client    *resty.Client
}

func newAssetResolver(assetsDir string) *assetResolver {
	return &assetResolver{
		assetsDir: assetsDir,
		client:    resty.New().SetHeader("User-Agent", "pdfarena/1.0"),
	}
}

// Close releases the HTTP client.
func (r *assetResolver) Close() error {
	return r.client.Close()
}

// Resolve fetches one asset reference. Never returns an error: a missing or
// unreadable asset comes back with Missing set.
func (r *assetResolver) Resolve(ctx context.Context, ref string) asset {
	if isRemoteURL(ref) {
		return r.resolveRemote(ctx, ref)
	}
	return r.resolveLocal(ref)
}

func (r *assetResolver) resolveLocal(ref string) asset {
	if r.assetsDir == "" {
		return asset{Ref: ref, Missing: "no assets directory configured"}
	}

	path := filepath.Join(r.assetsDir, filepath.FromSlash(ref))
	if !isPathUnderDir(path, r.assetsDir) {
		return asset{Ref: ref, Missing: fmt.Sprintf("%v: escapes assets directory", ErrInvalidAssetPath)}
	}
	if !fileExists(path) {
		return asset{Ref: ref, Missing: fmt.Sprintf("%v: %s", ErrAssetNotFound, ref)}
	}

	data, err := readLocalFile(path)
	if err != nil {
		return asset{Ref: ref, Missing: err.Error()}
	}
	return asset{Ref: ref, Data: data, MIME: mimeTypeFor(path)}
}

func (r *assetResolver) resolveRemote(ctx context.Context, ref string) asset {
	resp, err := r.client.R().SetContext(ctx).Get(ref)
	if err != nil {
		return asset{Ref: ref, Missing: fmt.Sprintf("fetching %s: %v", ref, err)}
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return asset{Ref: ref, Missing: fmt.Sprintf("fetching %s: status %d", ref, resp.StatusCode())}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return asset{Ref: ref, Missing: fmt.Sprintf("reading %s: %v", ref, err)}
	}
	if len(data) > maxAssetSize {
		return asset{Ref: ref, Missing: fmt.Sprintf("asset %s exceeds %d bytes", ref, maxAssetSize)}
	}

	mimeType := resp.Header().Get("Content-Type")
	if mimeType == "" {
		mimeType = mimeTypeFor(ref)
	}
	return asset{Ref: ref, Data: data, MIME: mimeType}
}

// InlineAssets rewrites every img src in the markup to a base64 data URI.
// Missing assets are skipped in place and reported in notes; the markup is
// otherwise returned intact.
func (r *assetResolver) InlineAssets(ctx context.Context, markup string) (string, []string, error) {
	doc, isFragment, err := parseMarkup(markup)
	if err != nil {
		return "", nil, fmt.Errorf("parsing markup: %w", err)
	}

	var notes []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			notes = append(notes, r.inlineImgNode(ctx, n)...)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out, err := renderMarkup(doc, isFragment)
	if err != nil {
		return "", nil, fmt.Errorf("rendering markup: %w", err)
	}
	return out, notes, nil
}

// inlineImgNode rewrites one img node's src attribute in place.
func (r *assetResolver) inlineImgNode(ctx context.Context, n *html.Node) []string {
	for i, attr := range n.Attr {
		if attr.Key != "src" || attr.Val == "" || strings.HasPrefix(attr.Val, "data:") {
			continue
		}

		a := r.Resolve(ctx, attr.Val)
		if !a.Found() {
			return []string{"skipped asset: " + a.Missing}
		}

		n.Attr[i].Val = "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
		return nil
	}
	return nil
}

// RewriteRelativePaths converts relative image and link paths to absolute
// file:// URLs under the assets directory, so an engine rendering from a
// temp file still resolves them. With no assets directory the markup is
// returned unchanged.
func (r *assetResolver) RewriteRelativePaths(markup string) (string, error) {
	if r.assetsDir == "" {
		return markup, nil
	}

	absDir, err := filepath.Abs(r.assetsDir)
	if err != nil {
		return "", err
	}

	doc, isFragment, err := parseMarkup(markup)
	if err != nil {
		return "", err
	}

	rewriteNode(doc, absDir)

	return renderMarkup(doc, isFragment)
}

// parseMarkup parses HTML content, handling both full documents and fragments.
func parseMarkup(content string) (*html.Node, bool, error) {
	trimmed := strings.ToLower(strings.TrimSpace(content))

	if strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") {
		doc, err := html.Parse(strings.NewReader(content))
		return doc, false, err
	}

	bodyCtx := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(content), bodyCtx)
	if err != nil {
		return nil, true, err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	return container, true, nil
}

// renderMarkup renders the document back to string. Fragments render their
// children directly to avoid adding an <html><body> wrapper.
func renderMarkup(doc *html.Node, isFragment bool) (string, error) {
	var buf strings.Builder

	if isFragment {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}

	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// rewriteNode traverses the DOM and rewrites relative img/src and a/href.
func rewriteNode(n *html.Node, baseDir string) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "img":
			rewriteAttr(n, "src", baseDir)
		case "a":
			rewriteAttr(n, "href", baseDir)
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteNode(c, baseDir)
	}
}

// rewriteAttr rewrites a single attribute if it's a relative path under baseDir.
func rewriteAttr(n *html.Node, attrName, baseDir string) {
	for i, attr := range n.Attr {
		if attr.Key != attrName {
			continue
		}
		if !isRelativePath(attr.Val) {
			continue
		}

		absPath := filepath.Join(baseDir, attr.Val)
		if !isPathUnderDir(absPath, baseDir) {
			continue // leave the original path
		}

		n.Attr[i].Val = pathToFileURL(absPath)
	}
}

// isRelativePath returns true if the path should be rewritten.
func isRelativePath(path string) bool {
	if path == "" {
		return false
	}

	if strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") ||
		strings.HasPrefix(path, "file://") ||
		strings.HasPrefix(path, "data:") ||
		strings.HasPrefix(path, "//") {
		return false
	}

	if strings.HasPrefix(path, "#") {
		return false
	}

	return !filepath.IsAbs(path)
}

// isPathUnderDir checks if absPath is under dir (prevents path traversal).
func isPathUnderDir(absPath, dir string) bool {
	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(dir)

	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}

	return strings.HasPrefix(cleanPath+string(filepath.Separator), cleanDir)
}

// pathToFileURL converts an absolute path to a file:// URL.
func pathToFileURL(absPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(absPath),
	}
	return u.String()
}

// mimeTypeFor guesses a MIME type from the file extension.
func mimeTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

// readLocalFile reads a file, bounded by maxAssetSize.
func readLocalFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, path)
	}
	if info.Size() > maxAssetSize {
		return nil, fmt.Errorf("asset %s exceeds %d bytes", path, maxAssetSize)
	}
	return os.ReadFile(path)
}
