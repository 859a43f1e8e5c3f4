package domintell

import (
	"net"
	"strconv"
	"sync"

	"github.com/nerrad567/domintell-bridge/internal/hub"
)

// Device info reported for every entity.
const (
	Manufacturer = "Domintell"
	Model        = "DETH01"
)

// Attribute keys.
const (
	AttrDescription = "description"
	AttrID          = "ID"
	AttrValue       = "Value"
)

// Entity is a hub entity backed by a gateway node.
type Entity interface {
	hub.Entity

	// ScheduleUpdateState refreshes the entity when force is set and then
	// writes its state to the hub.
	ScheduleUpdateState(force bool)
}

// EntityFactory creates the entity of a platform for a node.
type EntityFactory func(gw *GatewayWrapper, nodeID string, childID int, name string, valueType, childType int) Entity

// DeviceEntity is the state shared by Domintell entities.
type DeviceEntity struct {
	gateway   *GatewayWrapper
	nodeID    string
	childID   int
	name      string
	valueType int
	childType int

	mu         sync.RWMutex
	values     map[int]any
	writeState func()
}

func newDeviceEntity(gw *GatewayWrapper, nodeID string, childID int, name string, valueType, childType int) *DeviceEntity {
	return &DeviceEntity{
		gateway:   gw,
		nodeID:    nodeID,
		childID:   childID,
		name:      name,
		valueType: valueType,
		childType: childType,
		values:    make(map[int]any),
	}
}

// NodeID returns the gateway node ID.
func (e *DeviceEntity) NodeID() string { return e.nodeID }

// Name returns the node description taken at creation.
func (e *DeviceEntity) Name() string { return e.name }

// ShouldPoll is false: the gateway pushes state.
func (e *DeviceEntity) ShouldPoll() bool { return false }

// UniqueID returns domintell_<device>_<node_id>, slugified. A gateway on
// a port other than 5003 becomes domintell_<device>_<port>_<node_id>.
func (e *DeviceEntity) UniqueID() string {
	return hub.Slugify("domintell_" + e.gateway.deviceKey() + "_" + e.nodeID)
}

// DeviceInfo groups entities under their gateway.
func (e *DeviceEntity) DeviceInfo() hub.DeviceInfo {
	name := e.gateway.Device
	if e.gateway.deviceKey() != e.gateway.Device {
		name = net.JoinHostPort(e.gateway.Device, strconv.Itoa(e.gateway.Port))
	}
	return hub.DeviceInfo{
		Identifiers:  []string{hub.Slugify("domintell_" + e.gateway.deviceKey())},
		Name:         "Domintell " + name,
		Manufacturer: Manufacturer,
		Model:        Model,
	}
}

// StateAttributes returns the node description plus the node ID and
// value once a value is known.
func (e *DeviceEntity) StateAttributes() map[string]any {
	description := e.name
	if node, ok := e.gateway.Node(e.nodeID); ok {
		description = node.Description
	}

	attrs := map[string]any{AttrDescription: description}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, v := range e.values {
		attrs[AttrID] = e.nodeID
		attrs[AttrValue] = v
	}
	return attrs
}

// Available reports whether a value has been received.
func (e *DeviceEntity) Available() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.values[e.valueType]
	return ok
}

// Update copies the node value from the gateway.
func (e *DeviceEntity) Update() {
	node, ok := e.gateway.Node(e.nodeID)
	if !ok {
		return
	}

	e.mu.Lock()
	e.values[e.valueType] = node.Value
	e.mu.Unlock()
}

// SetStateWriter attaches the entity to the hub.
func (e *DeviceEntity) SetStateWriter(fn func()) {
	e.mu.Lock()
	e.writeState = fn
	e.mu.Unlock()
}

// ScheduleUpdateState refreshes the entity when force is set and writes
// its state. Before the entity is attached it only refreshes.
func (e *DeviceEntity) ScheduleUpdateState(force bool) {
	if force {
		e.Update()
	}

	e.mu.RLock()
	write := e.writeState
	e.mu.RUnlock()

	if write != nil {
		write()
	}
}

// value returns the current value.
func (e *DeviceEntity) value() (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[e.valueType]
	return v, ok
}
