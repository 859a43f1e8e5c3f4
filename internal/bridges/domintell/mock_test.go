package domintell

import (
	"context"
	"sort"
	"sync"
)

type setCall struct {
	nodeID    string
	childID   int
	valueType int
	value     any
}

// mockGateway implements Gateway for testing.
type mockGateway struct {
	mu        sync.Mutex
	nodes     map[string]Node
	callback  EventCallback
	connected bool
	stats     GatewayStats
	starts    int
	stops     int
	startErr  error
	setErr    error
	sets      []setCall
}

func newMockGateway(nodes ...Node) *mockGateway {
	g := &mockGateway{nodes: make(map[string]Node)}
	for _, n := range nodes {
		g.nodes[n.ID] = n
	}
	return g
}

func (g *mockGateway) Start(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	if g.startErr != nil {
		return g.startErr
	}
	g.connected = true
	return nil
}

func (g *mockGateway) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stops++
	g.connected = false
	return nil
}

func (g *mockGateway) Node(id string) (Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[id]
	return n, ok
}

func (g *mockGateway) NodeIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (g *mockGateway) SetValue(_ context.Context, nodeID string, childID, valueType int, value any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sets = append(g.sets, setCall{nodeID: nodeID, childID: childID, valueType: valueType, value: value})
	return g.setErr
}

func (g *mockGateway) SetEventCallback(cb EventCallback) {
	g.mu.Lock()
	g.callback = cb
	g.mu.Unlock()
}

func (g *mockGateway) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

func (g *mockGateway) Stats() GatewayStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.stats
	s.Connected = g.connected
	return s
}

// report stores a node and fires the installed callback, the way a driver does.
func (g *mockGateway) report(n Node) {
	g.mu.Lock()
	_, known := g.nodes[n.ID]
	g.nodes[n.ID] = n
	cb := g.callback
	g.mu.Unlock()

	updateType := UpdateSet
	if !known {
		updateType = UpdatePresentation
	}
	if cb != nil {
		cb(updateType, n.ID)
	}
}

// recordingLogger captures log messages.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	l.messages = append(l.messages, level+": "+msg)
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.add("error", msg) }

func (l *recordingLogger) has(entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == entry {
			return true
		}
	}
	return false
}
