package hass

import (
	"github.com/nerrad567/domintell-bridge/internal/hub"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/mqtt"
)

// MQTT payloads.
const (
	PayloadOn  = "ON"
	PayloadOff = "OFF"
)

// DiscoveryConfig is the retained discovery payload of one entity.
type DiscoveryConfig struct {
	Name                string              `json:"name"`
	UniqueID            string              `json:"unique_id"`
	ObjectID            string              `json:"object_id"`
	StateTopic          string              `json:"state_topic"`
	JSONAttributesTopic string              `json:"json_attributes_topic"`
	Availability        []AvailabilityTopic `json:"availability"`
	AvailabilityMode    string              `json:"availability_mode"`
	PayloadOn           string              `json:"payload_on"`
	PayloadOff          string              `json:"payload_off"`
	CommandTopic        string              `json:"command_topic,omitempty"`
	Optimistic          bool                `json:"optimistic,omitempty"`
	DeviceClass         string              `json:"device_class,omitempty"`
	Device              *DiscoveryDevice    `json:"device,omitempty"`
}

// AvailabilityTopic is one entry of a discovery availability list.
type AvailabilityTopic struct {
	Topic               string `json:"topic"`
	PayloadAvailable    string `json:"payload_available"`
	PayloadNotAvailable string `json:"payload_not_available"`
}

// DiscoveryDevice is the device block of a discovery payload.
type DiscoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// NewDiscoveryConfig builds the discovery payload of an entity. The
// entity is available only while both the bridge and the entity are online.
func NewDiscoveryConfig(topics mqtt.Topics, s hub.EntityState) DiscoveryConfig {
	cfg := DiscoveryConfig{
		Name:                s.Name,
		UniqueID:            s.UniqueID,
		ObjectID:            s.ObjectID,
		StateTopic:          topics.State(s.Component, s.ObjectID),
		JSONAttributesTopic: topics.Attributes(s.Component, s.ObjectID),
		Availability: []AvailabilityTopic{
			{
				Topic:               topics.Availability(),
				PayloadAvailable:    mqtt.PayloadOnline,
				PayloadNotAvailable: mqtt.PayloadOffline,
			},
			{
				Topic:               topics.EntityAvailability(s.Component, s.ObjectID),
				PayloadAvailable:    mqtt.PayloadOnline,
				PayloadNotAvailable: mqtt.PayloadOffline,
			},
		},
		AvailabilityMode: "all",
		PayloadOn:        PayloadOn,
		PayloadOff:       PayloadOff,
	}

	switch s.Component {
	case hub.ComponentBinarySensor:
		cfg.DeviceClass = s.DeviceClass
	case hub.ComponentSwitch:
		cfg.CommandTopic = topics.Command(s.Component, s.ObjectID)
		cfg.Optimistic = s.AssumedState
	}

	if s.Device != nil {
		cfg.Device = &DiscoveryDevice{
			Identifiers:  s.Device.Identifiers,
			Name:         s.Device.Name,
			Manufacturer: s.Device.Manufacturer,
			Model:        s.Device.Model,
		}
	}

	return cfg
}
