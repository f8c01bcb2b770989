package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seantiz/stoker/internal/backend"
)

// stubDriver is a minimal Driver for registry tests.
type stubDriver struct {
	connects int
}

func (d *stubDriver) Connect(_ context.Context, _ backend.Config) (backend.Client, error) {
	d.connects++
	return nil, errors.New("stub driver has no client")
}

func TestRegistryResolve(t *testing.T) {
	reg := backend.NewRegistry()
	stub := &stubDriver{}
	reg.Register("stub", stub)

	d, err := reg.Resolve("stub")
	if err != nil {
		t.Fatalf("Resolve(stub): %v", err)
	}
	if d != stub {
		t.Error("Resolve returned a different driver than registered")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	reg := backend.NewRegistry()

	if _, err := reg.Resolve("nope"); err == nil {
		t.Error("Resolve(nope) = nil error, want error")
	}
}

func TestRegistryList(t *testing.T) {
	reg := backend.NewRegistry()
	reg.Register("redis", &stubDriver{})
	reg.Register("memory", &stubDriver{})

	got := reg.List()
	want := []string{"memory", "redis"}
	if len(got) != len(want) {
		t.Fatalf("List() returned %d drivers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
