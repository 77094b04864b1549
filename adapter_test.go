package pdfarena

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubAdapter returns a canned result, for registry and facade tests.
type stubAdapter struct {
	name AdapterName
	kind AdapterKind
	res  RenderResult
}

func (a *stubAdapter) Name() AdapterName   { return a.name }
func (a *stubAdapter) Kind() AdapterKind   { return a.kind }
func (a *stubAdapter) Description() string { return "stub" }

func (a *stubAdapter) Render(ctx context.Context, req RenderRequest) RenderResult {
	return a.res
}

var _ Adapter = (*stubAdapter)(nil)

func okStub(name AdapterName) *stubAdapter {
	return &stubAdapter{
		name: name,
		kind: KindInProcess,
		res:  succeed(string(name), []byte("%PDF-1.7 stub"), 10*time.Millisecond),
	}
}

func failStub(name AdapterName, reason string) *stubAdapter {
	return &stubAdapter{
		name: name,
		kind: KindEngineBacked,
		res:  fail(string(name), reason, 10*time.Millisecond),
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := newAdapterRegistry(okStub("alpha"), okStub("beta"))

	a, err := reg.Lookup("alpha")
	if err != nil {
		t.Fatalf("Lookup(alpha) error = %v", err)
	}
	if a.Name() != "alpha" {
		t.Errorf("Name() = %q", a.Name())
	}

	if _, err := reg.Lookup("gamma"); !errors.Is(err, ErrUnknownAdapter) {
		t.Fatalf("Lookup(gamma) error = %v, want ErrUnknownAdapter", err)
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	reg := newAdapterRegistry(okStub("c"), okStub("a"), okStub("b"))

	names := reg.Names()
	want := []string{"c", "a", "b"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	infos := reg.Infos()
	for i := range want {
		if infos[i].Name != want[i] {
			t.Errorf("Infos()[%d].Name = %q, want %q", i, infos[i].Name, want[i])
		}
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("duplicate registration did not panic")
		}
	}()
	newAdapterRegistry(okStub("dup"), okStub("dup"))
}

func TestAdapterKindString(t *testing.T) {
	if KindEngineBacked.String() != "engine-backed" {
		t.Errorf("KindEngineBacked = %q", KindEngineBacked.String())
	}
	if KindInProcess.String() != "in-process" {
		t.Errorf("KindInProcess = %q", KindInProcess.String())
	}
}
