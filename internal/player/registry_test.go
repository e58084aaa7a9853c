package player

import (
	"context"
	"testing"

	"cadenza/internal/adapter"
	"cadenza/internal/format"

	"github.com/sirupsen/logrus"
)

func newRegisteredEngine(t *testing.T, registry *Registry) (*Engine, *fakeAdapter) {
	t.Helper()
	fake := newFakeAdapter()
	factory := adapter.NewFactory(func(format.MediaType, *logrus.Logger) adapter.Adapter {
		return fake
	}, nil, nil)
	e := NewEngine(DefaultConfig(), factory, registry, nil)
	return e, fake
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	e, _ := newRegisteredEngine(t, registry)
	defer e.Destroy()

	if registry.Count() != 1 {
		t.Fatalf("Count = %d, want 1", registry.Count())
	}
	got, ok := registry.Get(e.ID())
	if !ok || got != e {
		t.Error("Expected Get to return the registered engine")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("Expected Get of unknown id to fail")
	}
	if ids := registry.IDs(); len(ids) != 1 || ids[0] != e.ID() {
		t.Errorf("IDs = %v, want the engine id", ids)
	}
}

func TestRegistryPauseAll(t *testing.T) {
	registry := NewRegistry()
	cfg := DefaultConfig()
	cfg.Exclusive = false

	var engines []*Engine
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		fake := newFakeAdapter()
		factory := adapter.NewFactory(func(format.MediaType, *logrus.Logger) adapter.Adapter {
			return fake
		}, nil, nil)
		e := NewEngine(cfg, factory, registry, nil)
		defer e.Destroy()
		e.Load(ctx, "a.mp3")
		e.Play(ctx)
		engines = append(engines, e)
	}

	registry.PauseAll()

	for i, e := range engines {
		if e.IsPlaying() {
			t.Errorf("Engine %d still playing after PauseAll", i)
		}
	}
}

func TestRegistryDestroyAll(t *testing.T) {
	registry := NewRegistry()
	e1, fake1 := newRegisteredEngine(t, registry)
	e2, fake2 := newRegisteredEngine(t, registry)

	ctx := context.Background()
	e1.Load(ctx, "a.mp3")
	e2.Load(ctx, "b.mp3")
	e1.Play(ctx)

	registry.DestroyAll()

	if registry.Count() != 0 {
		t.Errorf("Count = %d, want 0 after DestroyAll", registry.Count())
	}
	if !fake1.destroyed || !fake2.destroyed {
		t.Error("Expected all adapters destroyed")
	}
	if _, ok := registry.Active(); ok {
		t.Error("Expected no active engine after DestroyAll")
	}
}

func TestRegistryActiveTracking(t *testing.T) {
	registry := NewRegistry()
	e, _ := newRegisteredEngine(t, registry)

	if _, ok := registry.Active(); ok {
		t.Error("Expected no active engine initially")
	}

	registry.SetActive("unknown-id")
	if _, ok := registry.Active(); ok {
		t.Error("Expected SetActive with unknown id ignored")
	}

	registry.SetActive(e.ID())
	if active, ok := registry.Active(); !ok || active != e {
		t.Error("Expected engine active after SetActive")
	}

	e.Destroy()
	if _, ok := registry.Active(); ok {
		t.Error("Expected active cleared after the engine unregistered")
	}
}
