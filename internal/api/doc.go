// Package api implements the HTTP REST API and WebSocket server of the bridge.
//
// This package provides:
//   - REST endpoints to list gateways and entities
//   - turn_on/turn_off commands routed through the hub services
//   - a WebSocket hub streaming entity state changes
//   - a middleware stack (request ID, logging, recovery, body limit)
//
// # Architecture
//
// The server registers itself as a hub.StateListener. Every registration and
// state change is broadcast to the WebSocket clients subscribed to the
// matching channel. Commands go through hub.CallService, the same path the
// MQTT command topics use.
package api
