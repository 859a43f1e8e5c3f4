// Package influxdb records entity state history and gateway counters in
// InfluxDB using the official influxdb-client-go v2 library.
//
// The integration is optional. Connect returns ErrDisabled when
// influxdb.enabled is false and every write method is a no-op on a
// disconnected (or nil-connected) client, so callers never need to
// branch on whether history is enabled.
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // run without history
//	}
//	client.WriteEntityState("switch.domintell_gw1_dio01_3", "switch", true, true, time.Now())
//
// Points are batched according to batch_size and flush_interval.
package influxdb
