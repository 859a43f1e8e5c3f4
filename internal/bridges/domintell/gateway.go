package domintell

import (
	"context"
	"time"
)

// UpdateType tells platform callbacks where a node update came from.
type UpdateType string

// Update types.
const (
	// UpdatePersistence replays a node loaded from the node store.
	UpdatePersistence UpdateType = "persistence"

	// UpdateSet reports a new value for a known node.
	UpdateSet UpdateType = "set"

	// UpdatePresentation reports a node seen for the first time.
	UpdatePresentation UpdateType = "presentation"
)

// EventCallback is invoked by a gateway for every node update.
type EventCallback func(updateType UpdateType, nodeID string)

// GatewayStats holds operational statistics of a gateway driver.
type GatewayStats struct {
	FramesRx        uint64    `json:"frames_rx"`
	FramesTx        uint64    `json:"frames_tx"`
	FramesDropped   uint64    `json:"frames_dropped"`
	ErrorsTotal     uint64    `json:"errors_total"`
	ReconnectsTotal uint64    `json:"reconnects_total"`
	LastActivity    time.Time `json:"last_activity"`
	Connected       bool      `json:"connected"`
	Reconnecting    bool      `json:"reconnecting"`
}

// Counters returns the numeric statistics keyed by name.
func (s GatewayStats) Counters() map[string]uint64 {
	return map[string]uint64{
		"frames_rx":        s.FramesRx,
		"frames_tx":        s.FramesTx,
		"frames_dropped":   s.FramesDropped,
		"errors_total":     s.ErrorsTotal,
		"reconnects_total": s.ReconnectsTotal,
	}
}

// Gateway is a connection to one Domintell gateway and its node table.
type Gateway interface {
	// Start connects and keeps the connection up until Stop. A gateway
	// that cannot be reached is retried in the background.
	Start(ctx context.Context) error
	Stop() error

	Node(id string) (Node, bool)
	NodeIDs() []string

	// SetValue sends a new value for a node.
	SetValue(ctx context.Context, nodeID string, childID, valueType int, value any) error

	SetEventCallback(cb EventCallback)
	IsConnected() bool
	Stats() GatewayStats
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
