package domintell

import (
	"context"

	"github.com/nerrad567/domintell-bridge/internal/hub"
)

// Switch exposes an output node as an on/off switch.
type Switch struct {
	*DeviceEntity
}

var (
	_ hub.Switchable    = (*Switch)(nil)
	_ hub.AssumedStater = (*Switch)(nil)
)

// NewSwitch creates a switch for a node.
func NewSwitch(gw *GatewayWrapper, nodeID string, childID int, name string, valueType, childType int) Entity {
	return &Switch{DeviceEntity: newDeviceEntity(gw, nodeID, childID, name, valueType, childType)}
}

// Component returns switch.
func (s *Switch) Component() string { return hub.ComponentSwitch }

// AssumedState is false; the gateway reports the real state back.
func (s *Switch) AssumedState() bool { return false }

// IsOn reports whether the value is "on" or a positive integer.
func (s *Switch) IsOn() bool {
	v, ok := s.value()
	if !ok {
		return false
	}
	switch val := v.(type) {
	case string:
		return val == "on"
	case int:
		return val > 0
	default:
		return false
	}
}

// TurnOn sets the node value to 1.
func (s *Switch) TurnOn(ctx context.Context) error {
	return s.gateway.SetValue(ctx, s.nodeID, s.childID, s.valueType, 1)
}

// TurnOff sets the node value to 0.
func (s *Switch) TurnOff(ctx context.Context) error {
	return s.gateway.SetValue(ctx, s.nodeID, s.childID, s.valueType, 0)
}
