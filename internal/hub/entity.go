package hub

import (
	"context"
	"strings"
	"time"
)

// Entity components.
const (
	ComponentBinarySensor = "binary_sensor"
	ComponentSwitch       = "switch"
)

// Entity states.
const (
	StateOn          = "on"
	StateOff         = "off"
	StateUnavailable = "unavailable"
)

// Services.
const (
	ServiceTurnOn  = "turn_on"
	ServiceTurnOff = "turn_off"
)

// Entity is anything the hub can register and publish.
type Entity interface {
	// Component returns the entity component (binary_sensor, switch).
	Component() string

	// UniqueID is stable across restarts; the entity's object ID is derived from it.
	UniqueID() string

	Name() string

	// ShouldPoll reports whether the hub must poll the entity. Pushed
	// entities return false.
	ShouldPoll() bool

	// Update refreshes the entity's cached value from its source.
	Update()

	Available() bool
	IsOn() bool
	StateAttributes() map[string]any

	// SetStateWriter attaches the entity to the hub. Calling fn writes
	// the entity's current state to every listener.
	SetStateWriter(fn func())
}

// DeviceClasser is implemented by entities that have a device class.
type DeviceClasser interface {
	DeviceClass() string
}

// AssumedStater is implemented by entities that may report an assumed state.
type AssumedStater interface {
	AssumedState() bool
}

// DeviceInfoer is implemented by entities that belong to a physical device.
type DeviceInfoer interface {
	DeviceInfo() DeviceInfo
}

// Switchable is implemented by entities supporting turn_on and turn_off.
type Switchable interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
}

// DeviceInfo describes the physical device behind an entity.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// EntityState is an immutable snapshot of an entity.
type EntityState struct {
	EntityID     string         `json:"entity_id"`
	ObjectID     string         `json:"object_id"`
	Component    string         `json:"component"`
	UniqueID     string         `json:"unique_id"`
	Name         string         `json:"name"`
	State        string         `json:"state"`
	Available    bool           `json:"available"`
	Attributes   map[string]any `json:"attributes"`
	DeviceClass  string         `json:"device_class,omitempty"`
	AssumedState bool           `json:"assumed_state"`
	Device       *DeviceInfo    `json:"device,omitempty"`
	LastUpdated  time.Time      `json:"last_updated"`
}

// IsOn reports whether the snapshot's state is "on".
func (s EntityState) IsOn() bool {
	return s.State == StateOn
}

// snapshot builds the EntityState of e.
func snapshot(entityID, objectID string, e Entity, now time.Time) EntityState {
	s := EntityState{
		EntityID:    entityID,
		ObjectID:    objectID,
		Component:   e.Component(),
		UniqueID:    e.UniqueID(),
		Name:        e.Name(),
		Available:   e.Available(),
		Attributes:  e.StateAttributes(),
		LastUpdated: now,
	}

	switch {
	case !s.Available:
		s.State = StateUnavailable
	case e.IsOn():
		s.State = StateOn
	default:
		s.State = StateOff
	}

	if dc, ok := e.(DeviceClasser); ok {
		s.DeviceClass = dc.DeviceClass()
	}
	if as, ok := e.(AssumedStater); ok {
		s.AssumedState = as.AssumedState()
	}
	if di, ok := e.(DeviceInfoer); ok {
		info := di.DeviceInfo()
		s.Device = &info
	}

	return s
}

// Slugify reduces s to the [a-z0-9_] alphabet used for object IDs. Runs
// of other characters collapse to one underscore; leading and trailing
// underscores are dropped.
func Slugify(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingUnderscore = false
			b.WriteRune(r)
			continue
		}
		pendingUnderscore = true
	}
	return b.String()
}
