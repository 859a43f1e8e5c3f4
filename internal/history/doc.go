// Package history feeds entity state changes and gateway counters into a
// time-series writer (InfluxDB in production).
package history
