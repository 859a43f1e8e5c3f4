package domintell

import (
	"strconv"
	"sync"
)

// PlatformCallback handles one node update on behalf of a platform.
type PlatformCallback func(gw *GatewayWrapper, nodeID string)

// GatewayWrapper decorates a Gateway with the platform callbacks it feeds.
// Methods it does not define are served by the embedded Gateway.
type GatewayWrapper struct {
	Gateway

	// Device is the configured gateway host.
	Device string

	// Port is the configured gateway TCP port.
	Port int

	mu        sync.RWMutex
	callbacks []PlatformCallback
	logger    Logger
}

// NewGatewayWrapper wraps gw. A nil logger logs nothing.
func NewGatewayWrapper(gw Gateway, device string, port int, logger Logger) *GatewayWrapper {
	if logger == nil {
		logger = noopLogger{}
	}
	return &GatewayWrapper{
		Gateway: gw,
		Device:  device,
		Port:    port,
		logger:  logger,
	}
}

// AddPlatformCallback appends a platform callback.
func (w *GatewayWrapper) AddPlatformCallback(cb PlatformCallback) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, cb)
	w.mu.Unlock()
}

// deviceKey identifies the gateway in entity IDs: the device alone on the
// default port, device and port otherwise.
func (w *GatewayWrapper) deviceKey() string {
	if w.Port == 0 || w.Port == DefaultPort {
		return w.Device
	}
	return w.Device + "_" + strconv.Itoa(w.Port)
}

// CallbackFactory returns the event callback to install on the wrapped
// gateway. It runs every platform callback in registration order.
func (w *GatewayWrapper) CallbackFactory() EventCallback {
	return func(updateType UpdateType, nodeID string) {
		w.logger.Debug("update", "type", string(updateType), "node", nodeID, "device", w.Device)

		w.mu.RLock()
		callbacks := append([]PlatformCallback(nil), w.callbacks...)
		w.mu.RUnlock()

		for _, cb := range callbacks {
			cb(w, nodeID)
		}
	}
}
