// Package hass publishes hub entities to Home Assistant over MQTT.
//
// Every entity gets a retained discovery config. State changes are
// published as retained ON/OFF payloads alongside the entity's JSON
// attributes and its availability. Switches additionally listen on a
// command topic, and ON/OFF commands are turned into hub service calls.
//
// Topic layout (base topic "domintell"):
//
//	homeassistant/<component>/domintell/<object_id>/config   discovery
//	domintell/<component>/<object_id>/state                  ON | OFF
//	domintell/<component>/<object_id>/attributes             JSON
//	domintell/<component>/<object_id>/availability           online | offline
//	domintell/switch/<object_id>/set                         ON | OFF (commands)
//	domintell/bridge/availability                            online | offline (LWT)
package hass
