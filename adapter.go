package pdfarena

import (
	"context"
	"fmt"
)

// AdapterName identifies one registered adapter. The set of names is closed:
// adding an adapter means adding a constant here and a branch to
// newRegistry, so dispatch never depends on free-form strings.
type AdapterName string

// The closed adapter set: two engines in two asset modes, three in-process
// writers.
const (
	AdapterRodInline      AdapterName = "rod-inline"
	AdapterRodLinked      AdapterName = "rod-linked"
	AdapterChromedpInline AdapterName = "chromedp-inline"
	AdapterChromedpLinked AdapterName = "chromedp-linked"
	AdapterFPDF           AdapterName = "fpdf"
	AdapterGoPDF          AdapterName = "gopdf"
	AdapterSeehuhn        AdapterName = "seehuhn"
)

// AdapterKind tags an adapter's capability.
type AdapterKind int

const (
	// KindEngineBacked adapters drive an external browser engine through a
	// shared session manager.
	KindEngineBacked AdapterKind = iota

	// KindInProcess adapters construct the PDF byte stream directly in this
	// process.
	KindInProcess
)

func (k AdapterKind) String() string {
	switch k {
	case KindEngineBacked:
		return "engine-backed"
	case KindInProcess:
		return "in-process"
	default:
		return "unknown"
	}
}

// Adapter is the uniform generation contract. Render is a pure function of
// the request: it never panics, never returns a Go error, and never leaves
// engine resources open after returning — all failures are converted into a
// failure RenderResult.
type Adapter interface {
	Name() AdapterName
	Kind() AdapterKind
	Description() string
	Render(ctx context.Context, req RenderRequest) RenderResult
}

// LibraryInfo describes one adapter for the listing endpoint.
type LibraryInfo struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// registry is the ordered, closed set of adapters.
type registry struct {
	order  []AdapterName
	byName map[AdapterName]Adapter
}

func newAdapterRegistry(adapters ...Adapter) *registry {
	r := &registry{byName: make(map[AdapterName]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.byName[a.Name()]; dup {
			panic(fmt.Sprintf("pdfarena: duplicate adapter %q", a.Name()))
		}
		r.order = append(r.order, a.Name())
		r.byName[a.Name()] = a
	}
	return r
}

// Lookup resolves an adapter by name. Returns ErrUnknownAdapter for names
// outside the closed set; the caller can list alternatives via Names.
func (r *registry) Lookup(name string) (Adapter, error) {
	a, ok := r.byName[AdapterName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
	return a, nil
}

// Names returns adapter names in registration order.
func (r *registry) Names() []string {
	names := make([]string, len(r.order))
	for i, n := range r.order {
		names[i] = string(n)
	}
	return names
}

// All returns adapters in registration order.
func (r *registry) All() []Adapter {
	adapters := make([]Adapter, len(r.order))
	for i, n := range r.order {
		adapters[i] = r.byName[n]
	}
	return adapters
}

// Infos returns listing entries in registration order.
func (r *registry) Infos() []LibraryInfo {
	infos := make([]LibraryInfo, 0, len(r.order))
	for _, a := range r.All() {
		infos = append(infos, LibraryInfo{
			Name:        string(a.Name()),
			Kind:        a.Kind().String(),
			Description: a.Description(),
		})
	}
	return infos
}
