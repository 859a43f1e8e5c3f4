package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Event is a hub lifecycle event.
type Event string

// Lifecycle events.
const (
	EventStart Event = "hub_start"
	EventStop  Event = "hub_stop"
)

// Listener is a one-shot event listener.
type Listener func(ctx context.Context)

// AddEntitiesFunc registers entities with the hub on behalf of a platform.
// With updateBeforeAdd, each entity's Update is called before its first
// state is written.
type AddEntitiesFunc func(entities []Entity, updateBeforeAdd bool)

// PlatformSetupFunc sets up a platform. discoveryInfo is nil when the
// platform is loaded directly rather than by its component.
type PlatformSetupFunc func(ctx context.Context, h *Hub, addEntities AddEntitiesFunc, discoveryInfo map[string]any) error

// StateListener receives entity registrations and state changes.
//
// Calls are made synchronously from whichever goroutine changed the
// state, so implementations must be safe for concurrent use.
type StateListener interface {
	EntityAdded(state EntityState)
	StateChanged(state EntityState)
}

// Logger is the optional logger used by the hub.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type registeredEntity struct {
	entity   Entity
	objectID string
}

// Hub hosts entities and routes their state to listeners.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Hub struct {
	dataMu sync.RWMutex
	data   map[string]any

	eventMu   sync.Mutex
	listeners map[Event][]Listener

	platformMu sync.RWMutex
	platforms  map[string]PlatformSetupFunc

	entityMu sync.RWMutex
	entities map[string]registeredEntity
	order    []string

	stateMu        sync.RWMutex
	stateListeners []StateListener

	logger   Logger
	now      func() time.Time
	stopOnce sync.Once
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{
		data:      make(map[string]any),
		listeners: make(map[Event][]Listener),
		platforms: make(map[string]PlatformSetupFunc),
		entities:  make(map[string]registeredEntity),
		logger:    noopLogger{},
		now:       time.Now,
	}
}

// SetLogger sets the hub logger.
func (h *Hub) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	h.logger = logger
}

// --- event bus ---

// ListenOnce registers fn to run the next time event fires.
func (h *Hub) ListenOnce(event Event, fn Listener) {
	h.eventMu.Lock()
	h.listeners[event] = append(h.listeners[event], fn)
	h.eventMu.Unlock()
}

// Fire runs and removes every listener registered for event, in
// registration order. Listeners registered while firing wait for the
// next Fire.
func (h *Hub) Fire(ctx context.Context, event Event) {
	h.eventMu.Lock()
	pending := h.listeners[event]
	delete(h.listeners, event)
	h.eventMu.Unlock()

	h.logger.Debug("firing event", "event", string(event), "listeners", len(pending))
	for _, fn := range pending {
		fn(ctx)
	}
}

// Start fires EventStart.
func (h *Hub) Start(ctx context.Context) {
	h.Fire(ctx, EventStart)
}

// Stop fires EventStop. Only the first call has any effect.
func (h *Hub) Stop(ctx context.Context) {
	h.stopOnce.Do(func() {
		h.Fire(ctx, EventStop)
	})
}

// --- data store ---

// Data returns the value stored under key.
func (h *Hub) Data(key string) (any, bool) {
	h.dataMu.RLock()
	defer h.dataMu.RUnlock()
	v, ok := h.data[key]
	return v, ok
}

// SetData stores value under key.
func (h *Hub) SetData(key string, value any) {
	h.dataMu.Lock()
	h.data[key] = value
	h.dataMu.Unlock()
}

// --- platforms ---

func platformKey(component, domain string) string {
	return component + "." + domain
}

// RegisterPlatform registers the setup of the component platform provided by domain.
func (h *Hub) RegisterPlatform(component, domain string, setup PlatformSetupFunc) {
	h.platformMu.Lock()
	h.platforms[platformKey(component, domain)] = setup
	h.platformMu.Unlock()
}

// LoadPlatform runs a registered platform setup with an AddEntitiesFunc
// bound to the component.
func (h *Hub) LoadPlatform(ctx context.Context, component, domain string, discoveryInfo map[string]any) error {
	h.platformMu.RLock()
	setup, ok := h.platforms[platformKey(component, domain)]
	h.platformMu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrPlatformNotFound, platformKey(component, domain))
	}

	if err := setup(ctx, h, h.AddEntitiesFunc(), discoveryInfo); err != nil {
		return fmt.Errorf("setting up platform %s: %w", platformKey(component, domain), err)
	}
	return nil
}

// --- entities ---

// AddStateListener registers a listener for entity registrations and state changes.
func (h *Hub) AddStateListener(l StateListener) {
	h.stateMu.Lock()
	h.stateListeners = append(h.stateListeners, l)
	h.stateMu.Unlock()
}

func (h *Hub) listenersSnapshot() []StateListener {
	h.stateMu.RLock()
	defer h.stateMu.RUnlock()
	return append([]StateListener(nil), h.stateListeners...)
}

// AddEntitiesFunc returns the function platforms use to add entities.
func (h *Hub) AddEntitiesFunc() AddEntitiesFunc {
	return h.AddEntities
}

// AddEntities attaches and registers entities, then announces them and
// writes their first state. An entity whose ID is already registered is
// skipped.
func (h *Hub) AddEntities(entities []Entity, updateBeforeAdd bool) {
	for _, e := range entities {
		objectID := Slugify(e.UniqueID())
		entityID := e.Component() + "." + objectID

		h.entityMu.Lock()
		if _, exists := h.entities[entityID]; exists {
			h.entityMu.Unlock()
			h.logger.Warn("entity already registered", "entity_id", entityID)
			continue
		}
		h.entities[entityID] = registeredEntity{entity: e, objectID: objectID}
		h.order = append(h.order, entityID)
		h.entityMu.Unlock()

		entity := e
		e.SetStateWriter(func() { h.WriteState(entity) })

		if updateBeforeAdd {
			e.Update()
		}

		state := snapshot(entityID, objectID, e, h.now())
		for _, l := range h.listenersSnapshot() {
			l.EntityAdded(state)
		}
		h.logger.Info("entity added", "entity_id", entityID, "name", e.Name())

		h.WriteState(e)
	}
}

// WriteState snapshots e and hands the snapshot to every listener.
// Entities that are not registered are ignored.
func (h *Hub) WriteState(e Entity) {
	entityID, objectID, ok := h.lookup(e)
	if !ok {
		return
	}

	state := snapshot(entityID, objectID, e, h.now())
	h.logger.Debug("state changed", "entity_id", entityID, "state", state.State)

	for _, l := range h.listenersSnapshot() {
		l.StateChanged(state)
	}
}

func (h *Hub) lookup(e Entity) (entityID, objectID string, ok bool) {
	objectID = Slugify(e.UniqueID())
	entityID = e.Component() + "." + objectID

	h.entityMu.RLock()
	defer h.entityMu.RUnlock()
	reg, found := h.entities[entityID]
	if !found || reg.entity != e {
		return "", "", false
	}
	return entityID, objectID, true
}

// Entity returns the current snapshot of one entity.
func (h *Hub) Entity(entityID string) (EntityState, error) {
	h.entityMu.RLock()
	reg, ok := h.entities[entityID]
	h.entityMu.RUnlock()

	if !ok {
		return EntityState{}, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return snapshot(entityID, reg.objectID, reg.entity, h.now()), nil
}

// Entities returns snapshots of every entity, sorted by entity ID.
func (h *Hub) Entities() []EntityState {
	h.entityMu.RLock()
	regs := make(map[string]registeredEntity, len(h.entities))
	for id, reg := range h.entities {
		regs[id] = reg
	}
	h.entityMu.RUnlock()

	now := h.now()
	states := make([]EntityState, 0, len(regs))
	for id, reg := range regs {
		states = append(states, snapshot(id, reg.objectID, reg.entity, now))
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].EntityID < states[j].EntityID
	})
	return states
}

// EntityCount returns the number of registered entities.
func (h *Hub) EntityCount() int {
	h.entityMu.RLock()
	defer h.entityMu.RUnlock()
	return len(h.entities)
}

// CallService invokes component.service on an entity. The entity must
// belong to component.
func (h *Hub) CallService(ctx context.Context, component, service, entityID string) error {
	h.entityMu.RLock()
	reg, ok := h.entities[entityID]
	h.entityMu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}

	sw, ok := reg.entity.(Switchable)
	if !ok || reg.entity.Component() != component {
		return fmt.Errorf("%w: %s on %s", ErrServiceNotSupported, service, entityID)
	}

	h.logger.Info("calling service", "service", component+"."+service, "entity_id", entityID)

	switch service {
	case ServiceTurnOn:
		return sw.TurnOn(ctx)
	case ServiceTurnOff:
		return sw.TurnOff(ctx)
	default:
		return fmt.Errorf("%w: %s on %s", ErrServiceNotSupported, service, entityID)
	}
}
