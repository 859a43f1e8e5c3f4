// Package hub is the in-process host for the bridge's entities.
//
// It provides the small slice of a home-automation hub the Domintell
// component needs:
//
//   - a one-shot event bus (start and stop)
//   - a keyed data store shared between the component and its platforms
//   - platform registration and loading
//   - an entity registry with state snapshots
//   - service calls (turn_on, turn_off) routed to entities
//
// State is pushed to registered StateListeners (the MQTT discovery
// bridge, the HTTP API, the history writer); the hub itself never polls.
package hub
