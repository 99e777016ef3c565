package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
	"go.uber.org/zap"
)

// fakeModule is a configurable plugin.Plugin for registry tests.
type fakeModule struct {
	info    plugin.PluginInfo
	initErr error
	started bool
	stopped bool
}

func (f *fakeModule) Info() plugin.PluginInfo { return f.info }
func (f *fakeModule) Init(context.Context, plugin.Dependencies) error {
	return f.initErr
}
func (f *fakeModule) Start(context.Context) error {
	f.started = true
	return nil
}
func (f *fakeModule) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func newFake(name string, deps ...string) *fakeModule {
	return &fakeModule{info: plugin.PluginInfo{
		Name:         name,
		Version:      "0.1.0",
		Dependencies: deps,
		APIVersion:   plugin.APIVersionCurrent,
	}}
}

func testDeps(string) plugin.Dependencies {
	return plugin.Dependencies{Logger: zap.NewNop()}
}

func TestRegister_rejects_duplicates(t *testing.T) {
	r := New(zap.NewNop())
	if err := r.Register(newFake("fleet")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := r.Register(newFake("fleet")); err == nil {
		t.Error("expected error registering duplicate module name")
	}
}

func TestValidate_orders_dependencies(t *testing.T) {
	r := New(zap.NewNop())
	player := newFake("player", "fleet", "campaign")
	fleet := newFake("fleet")
	campaignMod := newFake("campaign", "fleet")
	for _, m := range []plugin.Plugin{player, fleet, campaignMod} {
		if err := r.Register(m); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	pos := make(map[string]int)
	for i, p := range r.All() {
		pos[p.Info().Name] = i
	}
	if pos["fleet"] > pos["campaign"] || pos["campaign"] > pos["player"] {
		t.Errorf("start order %v does not respect dependencies", pos)
	}
}

func TestValidate_detects_cycle(t *testing.T) {
	r := New(zap.NewNop())
	a := newFake("a", "b")
	a.info.Required = true
	b := newFake("b", "a")
	b.info.Required = true
	r.Register(a)
	r.Register(b)

	if err := r.Validate(); err == nil {
		t.Error("expected cycle error")
	}
}

func TestValidate_disables_on_missing_optional_dep(t *testing.T) {
	r := New(zap.NewNop())
	r.Register(newFake("orphan", "missing"))

	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !r.IsDisabled("orphan") {
		t.Error("expected module with missing dependency to be disabled")
	}
}

func TestInitAll_disables_failing_optional_module(t *testing.T) {
	r := New(zap.NewNop())
	bad := newFake("liveness")
	bad.initErr = errors.New("no store")
	good := newFake("fleet")
	r.Register(bad)
	r.Register(good)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if err := r.InitAll(context.Background(), testDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if !r.IsDisabled("liveness") {
		t.Error("expected failing optional module to be disabled")
	}
	if r.IsDisabled("fleet") {
		t.Error("healthy module should stay enabled")
	}
}

func TestStartAll_and_StopAll(t *testing.T) {
	r := New(zap.NewNop())
	m := newFake("pairing")
	r.Register(m)
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := r.InitAll(context.Background(), testDeps); err != nil {
		t.Fatalf("InitAll: %v", err)
	}
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if !m.started {
		t.Error("module was not started")
	}
	r.StopAll(context.Background())
	if !m.stopped {
		t.Error("module was not stopped")
	}
}

func TestResolveByRole(t *testing.T) {
	r := New(zap.NewNop())
	m := newFake("campaign")
	m.info.Roles = []string{"scheduling"}
	r.Register(m)
	r.Register(newFake("fleet"))
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	got := r.ResolveByRole("scheduling")
	if len(got) != 1 || got[0].Info().Name != "campaign" {
		t.Errorf("ResolveByRole = %v, want [campaign]", got)
	}
}
