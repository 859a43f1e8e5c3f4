package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementEntityState  = "entity_state"
	MeasurementGatewayStats = "gateway_stats"
)

// EntityStatePoint builds the point recorded for one entity state change.
//
// Tags: entity_id, component. Fields: on (0/1) and available (bool).
// A state that is neither on nor off (unavailable) records on=0.
func EntityStatePoint(entityID, component string, on, available bool, ts time.Time) *write.Point {
	onValue := 0
	if on {
		onValue = 1
	}

	return write.NewPoint(
		MeasurementEntityState,
		map[string]string{
			"entity_id": entityID,
			"component": component,
		},
		map[string]any{
			"on":        onValue,
			"available": available,
		},
		ts,
	)
}

// GatewayStatsPoint builds the point recorded for a gateway's counters.
func GatewayStatsPoint(device string, connected bool, counters map[string]uint64, ts time.Time) *write.Point {
	fields := make(map[string]any, len(counters)+1)
	for name, v := range counters {
		fields[name] = v
	}
	fields["connected"] = connected

	return write.NewPoint(
		MeasurementGatewayStats,
		map[string]string{"gateway": device},
		fields,
		ts,
	)
}

// WriteEntityState records an entity state change. No-op when not connected.
func (c *Client) WriteEntityState(entityID, component string, on, available bool, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(EntityStatePoint(entityID, component, on, available, ts))
}

// WriteGatewayStats records a gateway's counters. No-op when not connected.
func (c *Client) WriteGatewayStats(device string, connected bool, counters map[string]uint64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(GatewayStatsPoint(device, connected, counters, time.Now()))
}
