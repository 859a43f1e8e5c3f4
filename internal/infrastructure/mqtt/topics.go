package mqtt

import "strings"

// Default topic roots.
const (
	DefaultDiscoveryPrefix = "homeassistant"
	DefaultBaseTopic       = "domintell"
)

// Topics builds the bridge's MQTT topic tree.
//
// Discovery configs live under the Home Assistant discovery prefix; all
// other topics live under the bridge base topic:
//
//	homeassistant/switch/domintell/<object_id>/config
//	domintell/switch/<object_id>/state
//	domintell/switch/<object_id>/attributes
//	domintell/switch/<object_id>/set
//	domintell/bridge/availability
//	domintell/bridge/health
//
// A zero Topics uses the default roots.
type Topics struct {
	DiscoveryPrefix string
	Base            string
}

// NewTopics returns a Topics with the given roots, falling back to the
// defaults for empty values. Trailing slashes are trimmed.
func NewTopics(discoveryPrefix, base string) Topics {
	return Topics{
		DiscoveryPrefix: strings.TrimRight(discoveryPrefix, "/"),
		Base:            strings.TrimRight(base, "/"),
	}
}

func (t Topics) base() string {
	if t.Base == "" {
		return DefaultBaseTopic
	}
	return t.Base
}

func (t Topics) discovery() string {
	if t.DiscoveryPrefix == "" {
		return DefaultDiscoveryPrefix
	}
	return t.DiscoveryPrefix
}

// Discovery returns the retained discovery config topic of an entity.
//
// Example: homeassistant/binary_sensor/domintell/domintell_gw1_bir01_1/config
func (t Topics) Discovery(component, objectID string) string {
	return t.discovery() + "/" + component + "/" + t.base() + "/" + objectID + "/config"
}

// State returns the retained ON/OFF state topic of an entity.
func (t Topics) State(component, objectID string) string {
	return t.base() + "/" + component + "/" + objectID + "/state"
}

// Attributes returns the retained JSON attributes topic of an entity.
func (t Topics) Attributes(component, objectID string) string {
	return t.base() + "/" + component + "/" + objectID + "/attributes"
}

// Command returns the topic Home Assistant publishes ON/OFF commands to.
func (t Topics) Command(component, objectID string) string {
	return t.base() + "/" + component + "/" + objectID + "/set"
}

// AllCommands returns a wildcard topic matching every command topic of a component.
func (t Topics) AllCommands(component string) string {
	return t.base() + "/" + component + "/+/set"
}

// EntityAvailability returns the retained online/offline topic of an entity.
func (t Topics) EntityAvailability(component, objectID string) string {
	return t.base() + "/" + component + "/" + objectID + "/availability"
}

// Availability returns the bridge-wide availability topic (also the Last Will topic).
func (t Topics) Availability() string {
	return t.base() + "/bridge/availability"
}

// Health returns the topic of the periodic bridge health report.
func (t Topics) Health() string {
	return t.base() + "/bridge/health"
}

// ParseCommand extracts the component and object ID from a command topic.
// It returns ok=false for topics that are not command topics under the base.
func (t Topics) ParseCommand(topic string) (component, objectID string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.base()+"/")
	if !found {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
