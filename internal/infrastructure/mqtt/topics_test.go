package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := NewTopics("homeassistant/", "domintell")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"discovery", topics.Discovery("switch", "gw1_dio01_3"), "homeassistant/switch/domintell/gw1_dio01_3/config"},
		{"state", topics.State("switch", "gw1_dio01_3"), "domintell/switch/gw1_dio01_3/state"},
		{"attributes", topics.Attributes("binary_sensor", "gw1_bir01_1"), "domintell/binary_sensor/gw1_bir01_1/attributes"},
		{"command", topics.Command("switch", "gw1_dio01_3"), "domintell/switch/gw1_dio01_3/set"},
		{"all commands", topics.AllCommands("switch"), "domintell/switch/+/set"},
		{"entity availability", topics.EntityAvailability("switch", "gw1_dio01_3"), "domintell/switch/gw1_dio01_3/availability"},
		{"availability", topics.Availability(), "domintell/bridge/availability"},
		{"health", topics.Health(), "domintell/bridge/health"},
		{"zero value defaults", Topics{}.Discovery("switch", "x"), "homeassistant/switch/domintell/x/config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	topics := NewTopics("homeassistant", "home/domintell")

	tests := []struct {
		topic         string
		wantComponent string
		wantObject    string
		wantOK        bool
	}{
		{"home/domintell/switch/gw1_dio01_3/set", "switch", "gw1_dio01_3", true},
		{"home/domintell/switch/gw1_dio01_3/state", "", "", false},
		{"other/switch/gw1_dio01_3/set", "", "", false},
		{"home/domintell/switch//set", "", "", false},
		{"home/domintell/bridge/availability", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			component, objectID, ok := topics.ParseCommand(tt.topic)
			if ok != tt.wantOK || component != tt.wantComponent || objectID != tt.wantObject {
				t.Errorf("ParseCommand(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.topic, component, objectID, ok, tt.wantComponent, tt.wantObject, tt.wantOK)
			}
		})
	}
}
