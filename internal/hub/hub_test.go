package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeEntity struct {
	mu         sync.Mutex
	component  string
	uniqueID   string
	name       string
	value      string
	source     *string
	available  bool
	updates    int
	writeState func()
	turnedOn   int
	turnedOff  int
	turnErr    error
}

func (e *fakeEntity) Component() string { return e.component }
func (e *fakeEntity) UniqueID() string  { return e.uniqueID }
func (e *fakeEntity) Name() string      { return e.name }
func (e *fakeEntity) ShouldPoll() bool  { return false }

func (e *fakeEntity) Update() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.updates++
	if e.source != nil {
		e.value = *e.source
		e.available = true
	}
}

func (e *fakeEntity) Available() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.available
}

func (e *fakeEntity) IsOn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value == "on"
}

func (e *fakeEntity) StateAttributes() map[string]any {
	return map[string]any{"description": e.name}
}

func (e *fakeEntity) SetStateWriter(fn func()) { e.writeState = fn }

type fakeSensor struct{ *fakeEntity }

func (s fakeSensor) DeviceClass() string { return "light" }

type fakeSwitch struct{ *fakeEntity }

func (s fakeSwitch) AssumedState() bool { return false }

func (s fakeSwitch) TurnOn(context.Context) error {
	s.turnedOn++
	return s.turnErr
}

func (s fakeSwitch) TurnOff(context.Context) error {
	s.turnedOff++
	return s.turnErr
}

type recordingListener struct {
	mu      sync.Mutex
	added   []EntityState
	changed []EntityState
}

func (l *recordingListener) EntityAdded(s EntityState) {
	l.mu.Lock()
	l.added = append(l.added, s)
	l.mu.Unlock()
}

func (l *recordingListener) StateChanged(s EntityState) {
	l.mu.Lock()
	l.changed = append(l.changed, s)
	l.mu.Unlock()
}

func newTestHub() (*Hub, *recordingListener) {
	h := New()
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	l := &recordingListener{}
	h.AddStateListener(l)
	return h, l
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"domintell_192.168.1.50_BIR01-1", "domintell_192_168_1_50_bir01_1"},
		{"  Kitchen  Light ", "kitchen_light"},
		{"already_ok_01", "already_ok_01"},
		{"__x__", "x"},
		{"--", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Slugify(tt.in); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestListenOnce_FiresOnce(t *testing.T) {
	h := New()
	var calls []string

	h.ListenOnce(EventStart, func(context.Context) { calls = append(calls, "first") })
	h.ListenOnce(EventStart, func(context.Context) { calls = append(calls, "second") })
	h.ListenOnce(EventStop, func(context.Context) { calls = append(calls, "stop") })

	h.Start(context.Background())
	h.Start(context.Background())

	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("start listeners ran %v, want [first second]", calls)
	}

	h.Stop(context.Background())
	h.Stop(context.Background())

	if len(calls) != 3 || calls[2] != "stop" {
		t.Errorf("after stop calls = %v, want stop once", calls)
	}
}

func TestListenOnce_RegisteredDuringFire(t *testing.T) {
	h := New()
	stopped := false

	h.ListenOnce(EventStart, func(context.Context) {
		h.ListenOnce(EventStop, func(context.Context) { stopped = true })
	})

	h.Start(context.Background())
	if stopped {
		t.Fatal("stop listener ran during start")
	}
	h.Stop(context.Background())
	if !stopped {
		t.Error("stop listener registered by start listener did not run")
	}
}

func TestData(t *testing.T) {
	h := New()

	if _, ok := h.Data("domintell_gateways"); ok {
		t.Fatal("Data() found key in empty hub")
	}

	h.SetData("domintell_gateways", []string{"gw1"})
	v, ok := h.Data("domintell_gateways")
	if !ok {
		t.Fatal("Data() did not find stored key")
	}
	if got := v.([]string); len(got) != 1 || got[0] != "gw1" {
		t.Errorf("Data() = %v, want [gw1]", got)
	}
}

func TestLoadPlatform(t *testing.T) {
	h := New()

	var gotInfo map[string]any
	var gotAdd AddEntitiesFunc
	h.RegisterPlatform(ComponentSwitch, "domintell", func(_ context.Context, hh *Hub, add AddEntitiesFunc, info map[string]any) error {
		if hh != h {
			t.Error("setup received a different hub")
		}
		gotInfo = info
		gotAdd = add
		return nil
	})

	if err := h.LoadPlatform(context.Background(), ComponentSwitch, "domintell", map[string]any{}); err != nil {
		t.Fatalf("LoadPlatform() error = %v", err)
	}
	if gotInfo == nil {
		t.Error("discovery info was not passed through")
	}
	if gotAdd == nil {
		t.Error("add entities func was not passed")
	}

	err := h.LoadPlatform(context.Background(), ComponentBinarySensor, "domintell", map[string]any{})
	if !errors.Is(err, ErrPlatformNotFound) {
		t.Errorf("LoadPlatform(unregistered) error = %v, want ErrPlatformNotFound", err)
	}

	h.RegisterPlatform(ComponentBinarySensor, "domintell", func(context.Context, *Hub, AddEntitiesFunc, map[string]any) error {
		return errors.New("boom")
	})
	if err := h.LoadPlatform(context.Background(), ComponentBinarySensor, "domintell", nil); err == nil {
		t.Error("LoadPlatform() error = nil for failing setup")
	}
}

func TestAddEntities(t *testing.T) {
	h, l := newTestHub()

	source := "on"
	e := fakeSensor{&fakeEntity{
		component: ComponentBinarySensor,
		uniqueID:  "domintell_10.0.0.5_BIR01-1",
		name:      "Kitchen PIR",
		source:    &source,
	}}

	h.AddEntitiesFunc()([]Entity{e}, true)

	if e.updates != 1 {
		t.Errorf("Update() called %d times, want 1", e.updates)
	}
	if e.writeState == nil {
		t.Fatal("entity was not attached")
	}
	if len(l.added) != 1 || len(l.changed) != 1 {
		t.Fatalf("listener got added=%d changed=%d, want 1 and 1", len(l.added), len(l.changed))
	}

	state := l.changed[0]
	if state.EntityID != "binary_sensor.domintell_10_0_0_5_bir01_1" {
		t.Errorf("EntityID = %q", state.EntityID)
	}
	if state.ObjectID != "domintell_10_0_0_5_bir01_1" {
		t.Errorf("ObjectID = %q", state.ObjectID)
	}
	if state.State != StateOn || !state.Available {
		t.Errorf("State = %q available=%v, want on/true", state.State, state.Available)
	}
	if state.DeviceClass != "light" {
		t.Errorf("DeviceClass = %q, want light", state.DeviceClass)
	}

	// Duplicate registrations are ignored.
	h.AddEntities([]Entity{e}, true)
	if h.EntityCount() != 1 {
		t.Errorf("EntityCount() = %d after duplicate add, want 1", h.EntityCount())
	}
}

func TestAddEntities_WithoutUpdateIsUnavailable(t *testing.T) {
	h, l := newTestHub()

	source := "on"
	e := &fakeEntity{component: ComponentSwitch, uniqueID: "sw1", source: &source}
	h.AddEntities([]Entity{e}, false)

	if e.updates != 0 {
		t.Errorf("Update() called %d times, want 0", e.updates)
	}
	if got := l.changed[0].State; got != StateUnavailable {
		t.Errorf("State = %q, want %q", got, StateUnavailable)
	}
}

func TestWriteState_ViaAttachedWriter(t *testing.T) {
	h, l := newTestHub()

	source := "off"
	e := &fakeEntity{component: ComponentSwitch, uniqueID: "sw1", source: &source}
	h.AddEntities([]Entity{e}, true)

	source = "on"
	e.Update()
	e.writeState()

	if len(l.changed) != 2 {
		t.Fatalf("changed = %d, want 2", len(l.changed))
	}
	if l.changed[0].State != StateOff || l.changed[1].State != StateOn {
		t.Errorf("states = %q then %q, want off then on", l.changed[0].State, l.changed[1].State)
	}

	// Unregistered entities are ignored.
	h.WriteState(&fakeEntity{component: ComponentSwitch, uniqueID: "ghost"})
	if len(l.changed) != 2 {
		t.Errorf("unregistered WriteState notified listeners")
	}
}

func TestEntities(t *testing.T) {
	h, _ := newTestHub()
	on := "on"

	h.AddEntities([]Entity{
		&fakeEntity{component: ComponentSwitch, uniqueID: "b", source: &on},
		&fakeEntity{component: ComponentBinarySensor, uniqueID: "a", source: &on},
	}, true)

	states := h.Entities()
	if len(states) != 2 {
		t.Fatalf("Entities() = %d, want 2", len(states))
	}
	if states[0].EntityID != "binary_sensor.a" || states[1].EntityID != "switch.b" {
		t.Errorf("Entities() order = %q, %q", states[0].EntityID, states[1].EntityID)
	}

	if _, err := h.Entity("switch.b"); err != nil {
		t.Errorf("Entity(switch.b) error = %v", err)
	}
	if _, err := h.Entity("switch.zzz"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Entity(unknown) error = %v, want ErrEntityNotFound", err)
	}
}

func TestCallService(t *testing.T) {
	h, _ := newTestHub()
	on := "on"

	sw := fakeSwitch{&fakeEntity{component: ComponentSwitch, uniqueID: "sw", source: &on}}
	sensor := &fakeEntity{component: ComponentBinarySensor, uniqueID: "pir", source: &on}
	h.AddEntities([]Entity{sw, sensor}, true)

	ctx := context.Background()

	if err := h.CallService(ctx, ComponentSwitch, ServiceTurnOn, "switch.sw"); err != nil {
		t.Fatalf("turn_on error = %v", err)
	}
	if err := h.CallService(ctx, ComponentSwitch, ServiceTurnOff, "switch.sw"); err != nil {
		t.Fatalf("turn_off error = %v", err)
	}
	if sw.turnedOn != 1 || sw.turnedOff != 1 {
		t.Errorf("turnedOn=%d turnedOff=%d, want 1 and 1", sw.turnedOn, sw.turnedOff)
	}

	tests := []struct {
		name      string
		component string
		service   string
		entityID  string
		wantErr   error
	}{
		{"unknown entity", ComponentSwitch, ServiceTurnOn, "switch.nope", ErrEntityNotFound},
		{"sensor cannot switch", ComponentSwitch, ServiceTurnOn, "binary_sensor.pir", ErrServiceNotSupported},
		{"wrong component", ComponentBinarySensor, ServiceTurnOn, "switch.sw", ErrServiceNotSupported},
		{"unknown service", ComponentSwitch, "toggle", "switch.sw", ErrServiceNotSupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.CallService(ctx, tt.component, tt.service, tt.entityID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CallService() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	sw.turnErr = errors.New("gateway down")
	if err := h.CallService(ctx, ComponentSwitch, ServiceTurnOn, "switch.sw"); err == nil {
		t.Error("CallService() error = nil when entity fails")
	}
}
