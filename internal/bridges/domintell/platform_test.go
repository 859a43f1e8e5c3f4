package domintell

import (
	"context"
	"testing"

	"github.com/nerrad567/domintell-bridge/internal/hub"
)

type addRecorder struct {
	calls [][]hub.Entity
}

func (r *addRecorder) add(entities []hub.Entity, updateBeforeAdd bool) {
	if !updateBeforeAdd {
		panic("entities must be updated before they are added")
	}
	for _, e := range entities {
		e.Update()
	}
	r.calls = append(r.calls, entities)
}

func TestPlatformCallbackFactory_CreatesOnce(t *testing.T) {
	w, gw := newTestWrapper(Node{ID: "BIR01-1", Type: NodeTypeInput, Description: "Hall", Value: "off"})
	devices := NewDeviceMap()
	rec := &addRecorder{}

	cb := PlatformCallbackFactory(NodeTypeInput, devices, NewBinarySensor, rec.add)

	cb(w, "BIR01-1")
	if len(rec.calls) != 1 || len(rec.calls[0]) != 1 {
		t.Fatalf("addEntities calls = %d, want 1", len(rec.calls))
	}
	entity, ok := devices.Get("BIR01-1")
	if !ok {
		t.Fatal("entity not stored in device map")
	}
	if entity.Name() != "Hall" {
		t.Errorf("Name() = %q, want Hall", entity.Name())
	}

	writes := 0
	entity.SetStateWriter(func() { writes++ })

	gw.nodes["BIR01-1"] = Node{ID: "BIR01-1", Type: NodeTypeInput, Description: "Hall", Value: "on"}
	cb(w, "BIR01-1")

	if len(rec.calls) != 1 {
		t.Errorf("addEntities called again for a known node")
	}
	if devices.Len() != 1 {
		t.Errorf("devices = %d, want 1", devices.Len())
	}
	if writes != 1 {
		t.Errorf("state writes = %d, want 1", writes)
	}
	if !entity.IsOn() {
		t.Error("existing entity was not refreshed")
	}
}

func TestPlatformCallbackFactory_Filters(t *testing.T) {
	w, _ := newTestWrapper(Node{ID: "REL01-1", Type: NodeTypeOutput, Value: 1})
	devices := NewDeviceMap()
	rec := &addRecorder{}

	cb := PlatformCallbackFactory(NodeTypeInput, devices, NewBinarySensor, rec.add)

	cb(w, "REL01-1")
	cb(w, "unknown")

	if len(rec.calls) != 0 || devices.Len() != 0 {
		t.Errorf("calls=%d devices=%d, want nothing created", len(rec.calls), devices.Len())
	}
}

func TestPlatformCallbackFactory_WithoutAddEntities(t *testing.T) {
	w, gw := newTestWrapper(Node{ID: "REL01-1", Type: NodeTypeOutput, Value: 0})
	devices := NewDeviceMap()

	cb := PlatformCallbackFactory(NodeTypeOutput, devices, NewSwitch, nil)

	cb(w, "REL01-1")
	entity, ok := devices.Get("REL01-1")
	if !ok {
		t.Fatal("entity not created")
	}
	if !entity.Available() || entity.IsOn() {
		t.Errorf("available=%v on=%v, want true/false", entity.Available(), entity.IsOn())
	}

	gw.nodes["REL01-1"] = Node{ID: "REL01-1", Type: NodeTypeOutput, Value: 1}
	cb(w, "REL01-1")
	if !entity.IsOn() {
		t.Error("entity was not updated in place")
	}
}

func TestSetupPlatforms(t *testing.T) {
	h := hub.New()
	w, _ := newTestWrapper()
	h.SetData(DataKeyGateways, []*GatewayWrapper{w})

	ctx := context.Background()

	if err := SetupBinarySensorPlatform(ctx, h, h.AddEntitiesFunc(), nil); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if callbackCount(w) != 0 {
		t.Error("callback registered without discovery info")
	}

	if err := SetupBinarySensorPlatform(ctx, h, h.AddEntitiesFunc(), map[string]any{}); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if err := SetupSwitchPlatform(ctx, h, h.AddEntitiesFunc(), map[string]any{}); err != nil {
		t.Fatalf("setup error = %v", err)
	}
	if callbackCount(w) != 2 {
		t.Errorf("platform callbacks = %d, want 2", callbackCount(w))
	}

	// No gateways stored: nothing to do.
	empty := hub.New()
	if err := SetupSwitchPlatform(ctx, empty, empty.AddEntitiesFunc(), map[string]any{}); err != nil {
		t.Errorf("setup without gateways error = %v", err)
	}
}

func TestSetupSwitchPlatform_GatewaysSharingHost(t *testing.T) {
	h := hub.New()
	first := NewGatewayWrapper(newMockGateway(Node{ID: "OUT1", Type: NodeTypeOutput, Description: "Porch", Value: 1}), "10.0.0.5", 5003, nil)
	second := NewGatewayWrapper(newMockGateway(Node{ID: "OUT1", Type: NodeTypeOutput, Description: "Garage", Value: 0}), "10.0.0.5", 5004, nil)
	h.SetData(DataKeyGateways, []*GatewayWrapper{first, second})

	if err := SetupSwitchPlatform(context.Background(), h, h.AddEntitiesFunc(), map[string]any{}); err != nil {
		t.Fatalf("setup error = %v", err)
	}

	first.CallbackFactory()(UpdatePresentation, "OUT1")
	second.CallbackFactory()(UpdatePresentation, "OUT1")

	if h.EntityCount() != 2 {
		t.Fatalf("entities registered = %d, want 2", h.EntityCount())
	}

	porch, err := h.Entity("switch.domintell_10_0_0_5_out1")
	if err != nil || !porch.IsOn() {
		t.Errorf("default port entity = %+v, %v", porch, err)
	}
	garage, err := h.Entity("switch.domintell_10_0_0_5_5004_out1")
	if err != nil || garage.IsOn() {
		t.Errorf("second port entity = %+v, %v", garage, err)
	}
	if garage.Device == nil || garage.Device.Identifiers[0] != "domintell_10_0_0_5_5004" || garage.Device.Name != "Domintell 10.0.0.5:5004" {
		t.Errorf("second port device = %+v", garage.Device)
	}
}
