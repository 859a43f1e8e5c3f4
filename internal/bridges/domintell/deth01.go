package domintell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"net"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// closeOnce wraps a channel with sync.Once to prevent double-close panics.
type closeOnce struct {
	ch   chan struct{}
	once sync.Once
}

func newCloseOnce() *closeOnce {
	return &closeOnce{ch: make(chan struct{})}
}

func (c *closeOnce) Close() {
	c.once.Do(func() { close(c.ch) })
}

func (c *closeOnce) Done() <-chan struct{} {
	return c.ch
}

// Default timeouts and limits for gateway communication.
const (
	// DefaultPort is the DETH01 TCP port.
	DefaultPort = 5003

	// defaultConnectTimeout is the maximum time to wait for a dial.
	defaultConnectTimeout = 10 * time.Second

	// defaultReadTimeout is how long the connection may stay silent
	// before a keep-alive ping is sent.
	defaultReadTimeout = 30 * time.Second

	// defaultWriteTimeout bounds every write.
	defaultWriteTimeout = 5 * time.Second

	// defaultReconnectInterval is the initial delay between reconnection attempts.
	defaultReconnectInterval = 5 * time.Second

	// maxReconnectInterval is the maximum delay between reconnection attempts.
	maxReconnectInterval = 2 * time.Minute

	// maxLineLength bounds a single inbound line, newline included.
	maxLineLength = 512

	// storeTimeout bounds a single node store write.
	storeTimeout = 5 * time.Second

	// callbackQueueSize is the buffer size of each callback worker queue.
	callbackQueueSize = 100

	// callbackWorkerCount is the number of callback workers.
	callbackWorkerCount = 4
)

// Deth01Config holds the configuration of a DETH01 gateway driver.
type Deth01Config struct {
	// Device is the gateway host name or IP address.
	Device string

	// Port is the gateway TCP port. Default: 5003.
	Port int

	// ConnectTimeout bounds each dial. Default: 10 seconds.
	ConnectTimeout time.Duration

	// ReadTimeout is the idle time after which a ping is sent. A second
	// silent ReadTimeout after the ping drops the connection.
	// Default: 30 seconds.
	ReadTimeout time.Duration

	// WriteTimeout bounds each write. Default: 5 seconds.
	WriteTimeout time.Duration

	// ReconnectInterval is the initial delay between reconnection attempts.
	// Default: 5 seconds.
	ReconnectInterval time.Duration

	// Debug logs every frame at debug level.
	Debug bool

	// Persistence loads the node table from Store on creation and saves
	// every update to it.
	Persistence bool

	// Store persists the node table. Required when Persistence is set.
	Store NodeStore

	// Codec translates lines. Default: LineCodec.
	Codec Codec
}

type nodeEvent struct {
	updateType UpdateType
	nodeID     string
}

// Deth01Gateway is a TCP driver for a Domintell DETH01 gateway.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Event callbacks run on a fixed pool of workers. Updates for the same
//     node always go to the same worker, so they are delivered in order.
//
// Auto-Reconnection:
//   - Start returns at once; connecting happens in the background.
//   - When the connection is lost or cannot be made, the driver retries
//     with exponential backoff starting at ReconnectInterval (default 5s)
//     up to maxReconnectInterval (2min), until Stop is called.
type Deth01Gateway struct {
	cfg   Deth01Config
	codec Codec
	store NodeStore

	// Connection state
	connMu    sync.RWMutex
	conn      net.Conn
	connected bool
	writeMu   sync.Mutex

	// Node table
	nodesMu sync.RWMutex
	nodes   map[string]Node

	// Event callback and its worker queues
	callbackMu sync.RWMutex
	onEvent    EventCallback
	queues     []chan nodeEvent

	// Lifecycle
	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    *closeOnce
	wg      sync.WaitGroup

	logger   Logger
	loggerMu sync.RWMutex

	// Statistics
	reconnecting    atomic.Bool
	framesRx        atomic.Uint64
	framesTx        atomic.Uint64
	framesDropped   atomic.Uint64
	errorsTotal     atomic.Uint64
	reconnectsTotal atomic.Uint64
	lastActivity    atomic.Int64
}

var _ Gateway = (*Deth01Gateway)(nil)

// NewDeth01Gateway creates a driver. With persistence on, the node table is
// loaded from the store before returning, so NodeIDs is populated before
// Start.
//
// Parameters:
//   - ctx: Bounds loading the node table
//   - cfg: Driver configuration
//
// Returns:
//   - *Deth01Gateway: Driver ready to Start
//   - error: If the configuration is invalid or the store cannot be read
func NewDeth01Gateway(ctx context.Context, cfg Deth01Config) (*Deth01Gateway, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("%w: device is required", ErrConnectionFailed)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.Codec == nil {
		cfg.Codec = LineCodec{}
	}
	if cfg.Persistence && cfg.Store == nil {
		return nil, fmt.Errorf("persistence enabled for %s without a node store", cfg.Device)
	}

	g := &Deth01Gateway{
		cfg:    cfg,
		codec:  cfg.Codec,
		store:  cfg.Store,
		nodes:  make(map[string]Node),
		queues: make([]chan nodeEvent, callbackWorkerCount),
		done:   newCloseOnce(),
		logger: noopLogger{},
	}
	for i := range g.queues {
		g.queues[i] = make(chan nodeEvent, callbackQueueSize)
	}

	if cfg.Persistence {
		nodes, err := cfg.Store.LoadNodes(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading node table of %s: %w", cfg.Device, err)
		}
		for _, n := range nodes {
			g.nodes[n.ID] = n
		}
	}

	return g, nil
}

// Address returns the host:port the driver dials.
func (g *Deth01Gateway) Address() string {
	return net.JoinHostPort(g.cfg.Device, strconv.Itoa(g.cfg.Port))
}

// Start launches the callback workers and the connection loop.
// It does not wait for the connection.
func (g *Deth01Gateway) Start(ctx context.Context) error {
	g.startMu.Lock()
	defer g.startMu.Unlock()

	if g.started {
		return ErrAlreadyStarted
	}
	g.started = true

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g.cancel = cancel

	for _, q := range g.queues {
		g.wg.Add(1)
		go g.callbackWorker(q)
	}

	g.wg.Add(1)
	go g.runLoop(runCtx)

	g.log().Info("gateway started", "address", g.Address(), "nodes", len(g.NodeIDs()))
	return nil
}

// Stop closes the connection and waits for the driver's goroutines.
// Safe to call multiple times and before Start.
func (g *Deth01Gateway) Stop() error {
	g.done.Close()

	g.startMu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.startMu.Unlock()

	g.connMu.Lock()
	g.connected = false
	if g.conn != nil {
		g.conn.Close()
	}
	g.connMu.Unlock()

	g.wg.Wait()
	return nil
}

// runLoop keeps a connection up until Stop.
func (g *Deth01Gateway) runLoop(ctx context.Context) {
	defer g.wg.Done()

	backoff := g.cfg.ReconnectInterval
	everConnected := false

	for {
		if g.isClosed() {
			return
		}

		conn, err := g.dial(ctx)
		if err != nil {
			if g.isClosed() {
				return
			}
			g.errorsTotal.Add(1)
			g.log().Warn("gateway connection failed", "address", g.Address(), "error", err, "retry_in", backoff.String())
			g.reconnecting.Store(true)

			if !g.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = g.cfg.ReconnectInterval
		g.reconnecting.Store(false)
		if everConnected {
			g.reconnectsTotal.Add(1)
			g.log().Info("reconnection successful", "address", g.Address(), "total_reconnects", g.reconnectsTotal.Load())
		}
		everConnected = true

		err = g.serve(ctx, conn)
		g.handleDisconnect(conn)

		if g.isClosed() {
			return
		}
		g.log().Warn("gateway connection lost, will attempt reconnection", "address", g.Address(), "error", err)
		g.reconnecting.Store(true)
	}
}

// nextBackoff grows d by 1.5 up to maxReconnectInterval.
func nextBackoff(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * 1.5)
	if next > maxReconnectInterval {
		next = maxReconnectInterval
	}
	return next
}

// sleep waits for d. It returns false when shutdown was signalled.
func (g *Deth01Gateway) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-g.done.Done():
		return false
	case <-t.C:
		return true
	}
}

func (g *Deth01Gateway) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, g.cfg.ConnectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", g.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	g.connMu.Lock()
	if g.isClosed() {
		g.connMu.Unlock()
		conn.Close()
		return nil, fmt.Errorf("%w: shutting down", ErrConnectionFailed)
	}
	g.conn = conn
	g.connected = true
	g.connMu.Unlock()

	g.lastActivity.Store(time.Now().Unix())
	g.log().Info("connected to gateway", "address", g.Address())
	return conn, nil
}

// serve requests a state dump and reads lines until the connection fails.
func (g *Deth01Gateway) serve(ctx context.Context, conn net.Conn) error {
	if err := g.writeLine(ctx, conn, g.codec.EncodeList()); err != nil {
		return err
	}

	reader := bufio.NewReaderSize(conn, maxLineLength)
	var pending []byte
	awaitingPong := false

	for {
		if g.isClosed() {
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(g.cfg.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		chunk, err := reader.ReadSlice('\n')
		if len(pending)+len(chunk) > maxLineLength {
			err = ErrProtocolDesync
		}

		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				err = ErrProtocolDesync
			}
			if g.handleReadError(err) {
				return err
			}

			// Idle: keep the partial line and ping the gateway. Any byte
			// received since the last PING counts as a reply.
			if len(chunk) > 0 {
				awaitingPong = false
			}
			if awaitingPong {
				g.errorsTotal.Add(1)
				return fmt.Errorf("%w: no reply to PING within %v", ErrGatewayUnresponsive, g.cfg.ReadTimeout)
			}
			pending = append(pending, chunk...)
			if err := g.writeLine(ctx, conn, g.codec.EncodePing()); err != nil {
				return err
			}
			awaitingPong = true
			continue
		}

		awaitingPong = false
		line := chunk
		if len(pending) > 0 {
			line = append(pending, chunk...)
			pending = nil
		}
		g.handleLine(string(line))
	}
}

// handleReadError reports whether err ends the current connection.
func (g *Deth01Gateway) handleReadError(err error) bool {
	if g.isClosed() {
		return true
	}

	if errors.Is(err, ErrProtocolDesync) {
		g.errorsTotal.Add(1)
		g.log().Error("protocol desync detected, closing connection", "address", g.Address(), "error", err)
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}

	g.errorsTotal.Add(1)
	return true
}

// handleLine decodes a line and applies it to the node table.
func (g *Deth01Gateway) handleLine(line string) {
	g.framesRx.Add(1)
	g.lastActivity.Store(time.Now().Unix())

	if g.cfg.Debug {
		g.log().Debug("frame received", "address", g.Address(), "frame", line)
	}

	frame, err := g.codec.Decode(line)
	if err != nil {
		g.errorsTotal.Add(1)
		g.log().Warn("discarding frame", "address", g.Address(), "error", err)
		return
	}

	if frame.Kind == FrameState {
		g.applyNode(frame.Node)
	}
}

// applyNode stores a node update, persists it and queues its event.
func (g *Deth01Gateway) applyNode(node Node) {
	node.UpdatedAt = time.Now()

	g.nodesMu.Lock()
	_, known := g.nodes[node.ID]
	g.nodes[node.ID] = node
	g.nodesMu.Unlock()

	updateType := UpdateSet
	if !known {
		updateType = UpdatePresentation
	}

	if g.cfg.Persistence {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		if err := g.store.SaveNode(ctx, node); err != nil {
			g.errorsTotal.Add(1)
			g.log().Error("persisting node failed", "node", node.ID, "error", err)
		}
		cancel()
	}

	g.dispatch(nodeEvent{updateType: updateType, nodeID: node.ID})
}

// dispatch queues an event on the worker owning its node. Events are
// dropped when that worker's queue is full.
func (g *Deth01Gateway) dispatch(ev nodeEvent) {
	g.callbackMu.RLock()
	hasCallback := g.onEvent != nil
	g.callbackMu.RUnlock()

	if !hasCallback {
		return
	}

	select {
	case g.queues[shardFor(ev.nodeID, len(g.queues))] <- ev:
	default:
		g.framesDropped.Add(1)
		g.errorsTotal.Add(1)
		g.log().Error("callback queue full, dropping update", "node", ev.nodeID)
	}
}

func shardFor(nodeID string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(nodeID))
	return int(h.Sum32() % uint32(n))
}

// callbackWorker runs event callbacks for one queue.
func (g *Deth01Gateway) callbackWorker(queue chan nodeEvent) {
	defer g.wg.Done()

	for {
		select {
		case <-g.done.Done():
			drain(queue)
			return
		case ev := <-queue:
			g.callbackMu.RLock()
			callback := g.onEvent
			g.callbackMu.RUnlock()

			if callback != nil {
				g.runCallback(callback, ev)
			}
		}
	}
}

func (g *Deth01Gateway) runCallback(callback EventCallback, ev nodeEvent) {
	defer func() {
		if r := recover(); r != nil {
			g.errorsTotal.Add(1)
			g.log().Error("event callback panic", "node", ev.nodeID, "error", fmt.Errorf("%v", r))
		}
	}()
	callback(ev.updateType, ev.nodeID)
}

// drain discards whatever is left in queue.
func drain(queue chan nodeEvent) {
	for {
		select {
		case <-queue:
		default:
			return
		}
	}
}

// handleDisconnect marks conn as gone if it is still the current connection.
func (g *Deth01Gateway) handleDisconnect(conn net.Conn) {
	conn.Close()

	g.connMu.Lock()
	if g.conn == conn {
		g.conn = nil
		g.connected = false
	}
	g.connMu.Unlock()
}

// writeLine writes one line to conn with a deadline.
func (g *Deth01Gateway) writeLine(ctx context.Context, conn net.Conn, line string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	deadline := time.Now().Add(g.cfg.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		g.errorsTotal.Add(1)
		return fmt.Errorf("write: %w", err)
	}

	g.framesTx.Add(1)
	g.lastActivity.Store(time.Now().Unix())

	if g.cfg.Debug {
		g.log().Debug("frame sent", "address", g.Address(), "frame", line)
	}
	return nil
}

// SetValue sends a new value for a node. The node table changes when
// the gateway reports the new state back.
func (g *Deth01Gateway) SetValue(ctx context.Context, nodeID string, childID, valueType int, value any) error {
	line, err := g.codec.EncodeSet(nodeID, childID, valueType, value)
	if err != nil {
		return err
	}

	g.connMu.RLock()
	conn, connected := g.conn, g.connected
	g.connMu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}

	if err := g.writeLine(ctx, conn, line); err != nil {
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}
	return nil
}

// Node returns a copy of a node table entry.
func (g *Deth01Gateway) Node(id string) (Node, bool) {
	g.nodesMu.RLock()
	defer g.nodesMu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeIDs returns the known node IDs in sorted order.
func (g *Deth01Gateway) NodeIDs() []string {
	g.nodesMu.RLock()
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	g.nodesMu.RUnlock()

	sort.Strings(ids)
	return ids
}

// SetEventCallback sets the callback for node updates.
func (g *Deth01Gateway) SetEventCallback(cb EventCallback) {
	g.callbackMu.Lock()
	g.onEvent = cb
	g.callbackMu.Unlock()
}

// SetLogger sets the logger for this driver.
func (g *Deth01Gateway) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	g.loggerMu.Lock()
	g.logger = logger
	g.loggerMu.Unlock()
}

func (g *Deth01Gateway) log() Logger {
	g.loggerMu.RLock()
	defer g.loggerMu.RUnlock()
	return g.logger
}

// IsConnected returns true while a gateway connection is up.
func (g *Deth01Gateway) IsConnected() bool {
	g.connMu.RLock()
	defer g.connMu.RUnlock()
	return g.connected
}

// Stats returns current operational statistics.
func (g *Deth01Gateway) Stats() GatewayStats {
	var last time.Time
	if ts := g.lastActivity.Load(); ts != 0 {
		last = time.Unix(ts, 0)
	}

	return GatewayStats{
		FramesRx:        g.framesRx.Load(),
		FramesTx:        g.framesTx.Load(),
		FramesDropped:   g.framesDropped.Load(),
		ErrorsTotal:     g.errorsTotal.Load(),
		ReconnectsTotal: g.reconnectsTotal.Load(),
		LastActivity:    last,
		Connected:       g.IsConnected(),
		Reconnecting:    g.reconnecting.Load(),
	}
}

func (g *Deth01Gateway) isClosed() bool {
	select {
	case <-g.done.Done():
		return true
	default:
		return false
	}
}
