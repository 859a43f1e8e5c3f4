package domintell

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/domintell-bridge/internal/hub"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/config"
)

type recordingState struct {
	added   []hub.EntityState
	changed []hub.EntityState
}

func (r *recordingState) EntityAdded(s hub.EntityState)  { r.added = append(r.added, s) }
func (r *recordingState) StateChanged(s hub.EntityState) { r.changed = append(r.changed, s) }

func newRegisteredHub() (*hub.Hub, *recordingState) {
	h := hub.New()
	Register(h)
	rec := &recordingState{}
	h.AddStateListener(rec)
	return h, rec
}

func factoryFor(gateways map[string]*mockGateway) GatewayFactory {
	return func(_ context.Context, _ int, cfg config.GatewayConfig) (Gateway, error) {
		gw, ok := gateways[cfg.Device]
		if !ok {
			return nil, errors.New("no such gateway")
		}
		return gw, nil
	}
}

func TestSetup_PersistenceReplayAndLifecycle(t *testing.T) {
	h, rec := newRegisteredHub()
	gw := newMockGateway(
		Node{ID: "BIR01-1", Type: NodeTypeInput, Description: "Hall", Value: "on"},
		Node{ID: "REL01-1", Type: NodeTypeOutput, Description: "Porch", Value: 0},
	)

	cfg := config.DomintellConfig{
		Gateways:    config.GatewayList{{Device: "10.0.0.5", TCPPort: 5003}},
		Persistence: true,
	}

	err := Setup(context.Background(), h, cfg, factoryFor(map[string]*mockGateway{"10.0.0.5": gw}), nil)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	wrappers := Gateways(h)
	if len(wrappers) != 1 || wrappers[0].Device != "10.0.0.5" || wrappers[0].Port != 5003 {
		t.Fatalf("Gateways() = %+v", wrappers)
	}
	if callbackCount(wrappers[0]) != 2 {
		t.Errorf("platform callbacks = %d, want 2", callbackCount(wrappers[0]))
	}
	if gw.callback == nil {
		t.Error("event callback not installed on gateway")
	}
	if gw.starts != 0 {
		t.Error("gateway started before hub start")
	}

	h.Start(context.Background())

	if gw.starts != 1 {
		t.Errorf("starts = %d, want 1", gw.starts)
	}
	if h.EntityCount() != 2 {
		t.Fatalf("EntityCount() = %d, want 2 replayed entities", h.EntityCount())
	}

	sensor, err := h.Entity("binary_sensor.domintell_10_0_0_5_bir01_1")
	if err != nil {
		t.Fatalf("Entity(binary sensor) error = %v", err)
	}
	if sensor.State != hub.StateOn || sensor.DeviceClass != "light" {
		t.Errorf("sensor = %+v", sensor)
	}

	sw, err := h.Entity("switch.domintell_10_0_0_5_rel01_1")
	if err != nil {
		t.Fatalf("Entity(switch) error = %v", err)
	}
	if sw.State != hub.StateOff {
		t.Errorf("switch state = %q, want off", sw.State)
	}

	// A later gateway report flows through to the hub.
	gw.report(Node{ID: "REL01-1", Type: NodeTypeOutput, Description: "Porch", Value: 1})
	last := rec.changed[len(rec.changed)-1]
	if last.EntityID != "switch.domintell_10_0_0_5_rel01_1" || last.State != hub.StateOn {
		t.Errorf("last change = %s %s, want switch on", last.EntityID, last.State)
	}

	// A new node is presented and added.
	gw.report(Node{ID: "BIR01-9", Type: NodeTypeInput, Description: "Attic", Value: "off"})
	if h.EntityCount() != 3 {
		t.Errorf("EntityCount() = %d after presentation, want 3", h.EntityCount())
	}

	if err := h.CallService(context.Background(), hub.ComponentSwitch, hub.ServiceTurnOff, "switch.domintell_10_0_0_5_rel01_1"); err != nil {
		t.Fatalf("CallService() error = %v", err)
	}
	if len(gw.sets) != 1 || gw.sets[0].value != 0 {
		t.Errorf("sets = %+v, want one set to 0", gw.sets)
	}

	h.Stop(context.Background())
	if gw.stops != 1 {
		t.Errorf("stops = %d, want 1", gw.stops)
	}
}

func TestSetup_WithoutPersistenceDoesNotReplay(t *testing.T) {
	h, _ := newRegisteredHub()
	gw := newMockGateway(Node{ID: "BIR01-1", Type: NodeTypeInput, Value: "on"})

	cfg := config.DomintellConfig{Gateways: config.GatewayList{{Device: "10.0.0.5"}}}
	if err := Setup(context.Background(), h, cfg, factoryFor(map[string]*mockGateway{"10.0.0.5": gw}), nil); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	h.Start(context.Background())

	if h.EntityCount() != 0 {
		t.Errorf("EntityCount() = %d, want 0 without persistence", h.EntityCount())
	}
	if gw.starts != 1 {
		t.Errorf("starts = %d, want 1", gw.starts)
	}
}

func TestSetup_SkipsBadGateways(t *testing.T) {
	h, _ := newRegisteredHub()
	logger := &recordingLogger{}
	good := newMockGateway()

	cfg := config.DomintellConfig{Gateways: config.GatewayList{
		{Device: ""},
		{Device: "10.0.0.6"},
		{Device: "10.0.0.5"},
	}}

	err := Setup(context.Background(), h, cfg, factoryFor(map[string]*mockGateway{"10.0.0.5": good}), logger)
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	wrappers := Gateways(h)
	if len(wrappers) != 1 || wrappers[0].Device != "10.0.0.5" {
		t.Errorf("Gateways() = %+v, want only 10.0.0.5", wrappers)
	}
	if !logger.has("error: skipping gateway") || !logger.has("error: cannot set up gateway") {
		t.Errorf("logged = %v", logger.messages)
	}
}

func TestSetup_NoGateways(t *testing.T) {
	h, _ := newRegisteredHub()
	logger := &recordingLogger{}

	cfg := config.DomintellConfig{Gateways: config.GatewayList{{Device: "10.0.0.7"}}}
	err := Setup(context.Background(), h, cfg, factoryFor(nil), logger)

	if !errors.Is(err, ErrNoGateways) {
		t.Errorf("Setup() error = %v, want ErrNoGateways", err)
	}
	if !logger.has("error: No devices could be setup as gateways, check your configuration") {
		t.Errorf("logged = %v", logger.messages)
	}
	if _, ok := h.Data(DataKeyGateways); ok {
		t.Error("gateways stored after failed setup")
	}
}

func TestSetup_AlreadySetup(t *testing.T) {
	h, _ := newRegisteredHub()
	h.SetData(DataKeyGateways, []*GatewayWrapper{})

	cfg := config.DomintellConfig{Gateways: config.GatewayList{{Device: "10.0.0.5"}}}
	err := Setup(context.Background(), h, cfg, factoryFor(nil), nil)
	if !errors.Is(err, ErrAlreadySetup) {
		t.Errorf("Setup() error = %v, want ErrAlreadySetup", err)
	}
}

func TestSetup_PlatformsNotRegistered(t *testing.T) {
	h := hub.New()
	gw := newMockGateway()

	cfg := config.DomintellConfig{Gateways: config.GatewayList{{Device: "10.0.0.5"}}}
	err := Setup(context.Background(), h, cfg, factoryFor(map[string]*mockGateway{"10.0.0.5": gw}), nil)
	if !errors.Is(err, hub.ErrPlatformNotFound) {
		t.Errorf("Setup() error = %v, want ErrPlatformNotFound", err)
	}
}

func TestSetup_StartFailureDoesNotRegisterStop(t *testing.T) {
	h, _ := newRegisteredHub()
	gw := newMockGateway()
	gw.startErr = errors.New("refused")

	cfg := config.DomintellConfig{Gateways: config.GatewayList{{Device: "10.0.0.5"}}}
	if err := Setup(context.Background(), h, cfg, factoryFor(map[string]*mockGateway{"10.0.0.5": gw}), nil); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	h.Start(context.Background())
	h.Stop(context.Background())

	if gw.stops != 0 {
		t.Errorf("stops = %d, want 0 for a gateway that never started", gw.stops)
	}
}
