package domintell

import (
	"context"
	"sync"

	"github.com/nerrad567/domintell-bridge/internal/hub"
)

// DeviceMap holds the entities a platform created for one gateway, keyed
// by node ID.
type DeviceMap struct {
	mu       sync.Mutex
	entities map[string]Entity
}

// NewDeviceMap creates an empty device map.
func NewDeviceMap() *DeviceMap {
	return &DeviceMap{entities: make(map[string]Entity)}
}

// Get returns the entity of a node.
func (m *DeviceMap) Get(nodeID string) (Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[nodeID]
	return e, ok
}

// Len returns the number of entities.
func (m *DeviceMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

// getOrCreate returns the entity of a node, creating it with create when
// missing. created is true when create was called.
func (m *DeviceMap) getOrCreate(nodeID string, create func() Entity) (e Entity, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entities[nodeID]; ok {
		return e, false
	}
	e = create()
	m.entities[nodeID] = e
	return e, true
}

// PlatformCallbackFactory returns the platform callback that creates and
// refreshes entities for nodes of nodeType. addEntities may be nil, in
// which case entities are only updated in place.
func PlatformCallbackFactory(nodeType NodeType, devices *DeviceMap, factory EntityFactory, addEntities hub.AddEntitiesFunc) PlatformCallback {
	return func(gw *GatewayWrapper, nodeID string) {
		node, ok := gw.Node(nodeID)
		if !ok || node.Type != nodeType {
			return
		}

		entity, created := devices.getOrCreate(nodeID, func() Entity {
			return factory(gw, nodeID, 0, node.Description, 0, 0)
		})

		switch {
		case !created && addEntities != nil:
			entity.ScheduleUpdateState(true)
		case !created:
			entity.Update()
		case addEntities != nil:
			addEntities([]hub.Entity{entity}, true)
		default:
			entity.Update()
		}
	}
}

// SetupBinarySensorPlatform sets up binary sensors for input nodes.
func SetupBinarySensorPlatform(_ context.Context, h *hub.Hub, addEntities hub.AddEntitiesFunc, discoveryInfo map[string]any) error {
	setupPlatform(h, addEntities, discoveryInfo, NodeTypeInput, NewBinarySensor)
	return nil
}

// SetupSwitchPlatform sets up switches for output nodes.
func SetupSwitchPlatform(_ context.Context, h *hub.Hub, addEntities hub.AddEntitiesFunc, discoveryInfo map[string]any) error {
	setupPlatform(h, addEntities, discoveryInfo, NodeTypeOutput, NewSwitch)
	return nil
}

func setupPlatform(h *hub.Hub, addEntities hub.AddEntitiesFunc, discoveryInfo map[string]any, nodeType NodeType, factory EntityFactory) {
	if discoveryInfo == nil {
		return
	}

	for _, gw := range Gateways(h) {
		gw.AddPlatformCallback(PlatformCallbackFactory(nodeType, NewDeviceMap(), factory, addEntities))
	}
}
