package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/domintell-bridge/internal/hub"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/mqtt"
)

// commandTimeout bounds a service call triggered by an MQTT command.
const commandTimeout = 10 * time.Second

// Client is the MQTT surface the bridge needs.
type Client interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// ServiceCaller runs hub services.
type ServiceCaller interface {
	CallService(ctx context.Context, component, service, entityID string) error
}

// Logger interface for optional logging.
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

// Bridge mirrors hub entities to Home Assistant. It implements
// hub.StateListener.
//
// Every entity seen is kept so Resync can announce it again after the
// broker connection comes back.
type Bridge struct {
	client   Client
	topics   mqtt.Topics
	services ServiceCaller
	qos      byte
	logger   Logger

	mu       sync.Mutex
	entities map[string]hub.EntityState // entity ID -> latest state
	order    []string
	byObject map[string]string // component/object ID -> entity ID

	// pubMu orders state publications so a resync never overwrites a
	// newer state with an older one.
	pubMu sync.Mutex

	subMu              sync.Mutex
	commandsSubscribed bool
}

var _ hub.StateListener = (*Bridge)(nil)

// New creates a bridge publishing through client.
func New(client Client, topics mqtt.Topics, services ServiceCaller, qos byte) *Bridge {
	return &Bridge{
		client:   client,
		topics:   topics,
		services: services,
		qos:      qos,
		logger:   noopLogger{},
		entities: make(map[string]hub.EntityState),
		byObject: make(map[string]string),
	}
}

// SetLogger sets the bridge logger.
func (b *Bridge) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	b.logger = logger
}

// EntityAdded publishes the entity's discovery config and, for switches,
// makes sure the switch command topics are subscribed.
func (b *Bridge) EntityAdded(s hub.EntityState) {
	b.record(s)
	b.announce(s)

	if s.Component == hub.ComponentSwitch {
		b.subscribeCommands()
	}
}

// StateChanged publishes the entity's availability, state and attributes.
func (b *Bridge) StateChanged(s hub.EntityState) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.record(s)
	b.publishState(s)
}

// Resync republishes discovery, availability and state of every known
// entity and restores the switch command subscription if it was lost.
// Call it whenever the broker connection is (re)established.
func (b *Bridge) Resync() {
	b.mu.Lock()
	ids := append([]string(nil), b.order...)
	hasSwitch := false
	for _, s := range b.entities {
		if s.Component == hub.ComponentSwitch {
			hasSwitch = true
			break
		}
	}
	b.mu.Unlock()

	if hasSwitch {
		b.subscribeCommands()
	}

	for _, id := range ids {
		b.pubMu.Lock()
		b.mu.Lock()
		s := b.entities[id]
		b.mu.Unlock()

		b.announce(s)
		b.publishState(s)
		b.pubMu.Unlock()
	}

	b.logger.Info("entities resynced", "count", len(ids))
}

func (b *Bridge) record(s hub.EntityState) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, known := b.entities[s.EntityID]; !known {
		b.order = append(b.order, s.EntityID)
	}
	b.entities[s.EntityID] = s
	b.byObject[s.Component+"/"+s.ObjectID] = s.EntityID
}

func (b *Bridge) announce(s hub.EntityState) {
	payload, err := json.Marshal(NewDiscoveryConfig(b.topics, s))
	if err != nil {
		b.logger.Error("marshalling discovery config", "entity_id", s.EntityID, "error", err)
		return
	}

	if err := b.client.Publish(b.topics.Discovery(s.Component, s.ObjectID), payload, b.qos, true); err != nil {
		b.logger.Error("publishing discovery config", "entity_id", s.EntityID, "error", err)
	}
}

// subscribeCommands subscribes once to the wildcard command topic of all
// switches. A failed attempt is retried on the next call.
func (b *Bridge) subscribeCommands() {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if b.commandsSubscribed {
		return
	}

	topic := b.topics.AllCommands(hub.ComponentSwitch)
	if err := b.client.Subscribe(topic, b.qos, b.HandleCommand); err != nil {
		b.logger.Error("subscribing to commands", "topic", topic, "error", err)
		return
	}
	b.commandsSubscribed = true
}

func (b *Bridge) publishState(s hub.EntityState) {
	availability := mqtt.PayloadOnline
	if !s.Available {
		availability = mqtt.PayloadOffline
	}
	b.publish(s, b.topics.EntityAvailability(s.Component, s.ObjectID), []byte(availability))

	if !s.Available {
		return
	}

	state := PayloadOff
	if s.IsOn() {
		state = PayloadOn
	}
	b.publish(s, b.topics.State(s.Component, s.ObjectID), []byte(state))

	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		b.logger.Error("marshalling attributes", "entity_id", s.EntityID, "error", err)
		return
	}
	b.publish(s, b.topics.Attributes(s.Component, s.ObjectID), attrs)
}

func (b *Bridge) publish(s hub.EntityState, topic string, payload []byte) {
	if err := b.client.Publish(topic, payload, b.qos, true); err != nil {
		b.logger.Warn("publishing entity state", "entity_id", s.EntityID, "topic", topic, "error", err)
	}
}

// HandleCommand turns an ON/OFF command into a turn_on/turn_off service call.
func (b *Bridge) HandleCommand(topic string, payload []byte) error {
	component, objectID, ok := b.topics.ParseCommand(topic)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	var service string
	switch strings.ToUpper(strings.TrimSpace(string(payload))) {
	case PayloadOn:
		service = hub.ServiceTurnOn
	case PayloadOff:
		service = hub.ServiceTurnOff
	default:
		return fmt.Errorf("%w: %q on %s", ErrInvalidCommand, payload, topic)
	}

	b.mu.Lock()
	entityID, known := b.byObject[component+"/"+objectID]
	b.mu.Unlock()
	if !known {
		entityID = component + "." + objectID
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	b.logger.Debug("command received", "entity_id", entityID, "service", service)
	if err := b.services.CallService(ctx, component, service, entityID); err != nil {
		return fmt.Errorf("%s %s: %w", service, entityID, err)
	}
	return nil
}
