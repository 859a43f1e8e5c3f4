package domintell

import "github.com/nerrad567/domintell-bridge/internal/hub"

// BinarySensor exposes an input node as an on/off sensor.
type BinarySensor struct {
	*DeviceEntity
}

var _ hub.DeviceClasser = (*BinarySensor)(nil)

// NewBinarySensor creates a binary sensor for a node.
func NewBinarySensor(gw *GatewayWrapper, nodeID string, childID int, name string, valueType, childType int) Entity {
	return &BinarySensor{DeviceEntity: newDeviceEntity(gw, nodeID, childID, name, valueType, childType)}
}

// Component returns binary_sensor.
func (s *BinarySensor) Component() string { return hub.ComponentBinarySensor }

// DeviceClass returns light.
func (s *BinarySensor) DeviceClass() string { return "light" }

// IsOn reports whether the node value is "on".
func (s *BinarySensor) IsOn() bool {
	v, ok := s.value()
	return ok && v == "on"
}
