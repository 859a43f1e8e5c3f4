// Package domintell connects Domintell gateways to the hub.
//
// Each configured gateway is driven by a Deth01Gateway, a TCP client that
// keeps the gateway's node table current, and is wrapped in a
// GatewayWrapper that fans node updates out to the platforms:
//
//	gateway ──TCP──► Deth01Gateway ──► GatewayWrapper ──► binary_sensor / switch
//	                      │                                     │
//	                  NodeStore                              hub.Hub
//
// Input nodes become binary sensors and output nodes become switches.
// Entities are created the first time a node is reported and refreshed
// on every later report.
//
// # Wire format
//
// The driver frames newline-terminated lines and hands them to a Codec.
// LineCodec implements a semicolon separated text protocol; see its
// documentation for the frames.
//
// # Persistence
//
// With persistence on, each gateway's node table is kept in SQLite. On
// hub start the stored nodes are replayed to the platforms before the
// gateway connects, so entities exist while the gateway is unreachable.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package domintell
