package history

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/domintell-bridge/internal/bridges/domintell"
	"github.com/nerrad567/domintell-bridge/internal/hub"
)

// DefaultSampleInterval is how often gateway counters are recorded.
const DefaultSampleInterval = 60 * time.Second

// Writer stores history points. Writes must not block.
type Writer interface {
	WriteEntityState(entityID, component string, on, available bool, ts time.Time)
	WriteGatewayStats(device string, connected bool, counters map[string]uint64)
}

// GatewaySource returns the gateways to sample.
type GatewaySource func() []*domintell.GatewayWrapper

// Recorder is a hub.StateListener that writes every state change, and
// optionally samples gateway counters on a ticker.
type Recorder struct {
	writer   Writer
	gateways GatewaySource
	interval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRecorder creates a recorder. gateways may be nil, in which case
// Start only records entity states.
func NewRecorder(w Writer, gateways GatewaySource, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	return &Recorder{
		writer:   w,
		gateways: gateways,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// EntityAdded is a no-op; the hub follows every registration with a
// state change.
func (r *Recorder) EntityAdded(hub.EntityState) {}

// StateChanged writes one entity_state point.
func (r *Recorder) StateChanged(s hub.EntityState) {
	ts := s.LastUpdated
	if ts.IsZero() {
		ts = time.Now()
	}
	r.writer.WriteEntityState(s.EntityID, s.Component, s.IsOn(), s.Available, ts)
}

// Start begins sampling gateway counters until ctx is done or Stop is called.
func (r *Recorder) Start(ctx context.Context) {
	if r.gateways == nil {
		return
	}
	r.wg.Add(1)
	go r.sampleLoop(ctx)
}

// Stop ends sampling and waits for the loop to exit. Safe to call twice.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
	r.wg.Wait()
}

// Sample records the counters of every gateway once.
func (r *Recorder) Sample() {
	if r.gateways == nil {
		return
	}
	for _, gw := range r.gateways() {
		stats := gw.Stats()
		r.writer.WriteGatewayStats(gw.Device, gw.IsConnected(), stats.Counters())
	}
}

func (r *Recorder) sampleLoop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.Sample()
		}
	}
}
