package domintell

import (
	"context"
	"fmt"

	"github.com/nerrad567/domintell-bridge/internal/hub"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/config"
)

const (
	// Domain is the component domain platforms are registered under.
	Domain = "domintell"

	// DataKeyGateways is the hub data key holding the gateway wrappers.
	DataKeyGateways = "domintell_gateways"
)

// GatewayFactory builds the gateway of the index-th configured gateway.
type GatewayFactory func(ctx context.Context, index int, cfg config.GatewayConfig) (Gateway, error)

// Register registers the binary_sensor and switch platforms with h.
func Register(h *hub.Hub) {
	h.RegisterPlatform(hub.ComponentBinarySensor, Domain, SetupBinarySensorPlatform)
	h.RegisterPlatform(hub.ComponentSwitch, Domain, SetupSwitchPlatform)
}

// Gateways returns the gateway wrappers stored on h by Setup.
func Gateways(h *hub.Hub) []*GatewayWrapper {
	v, ok := h.Data(DataKeyGateways)
	if !ok {
		return nil
	}
	gateways, _ := v.([]*GatewayWrapper)
	return gateways
}

// Setup builds a gateway per configured device, hooks it to the hub
// lifecycle and loads the platforms. Register must have been called.
//
// Gateways whose device does not resolve, or which the factory cannot
// build, are skipped. Setup fails only when none is left.
func Setup(ctx context.Context, h *hub.Hub, cfg config.DomintellConfig, factory GatewayFactory, logger Logger) error {
	if logger == nil {
		logger = noopLogger{}
	}

	if _, ok := h.Data(DataKeyGateways); ok {
		logger.Error("domintell gateways are already set up")
		return ErrAlreadySetup
	}

	var wrappers []*GatewayWrapper
	for i, gwCfg := range cfg.Gateways {
		if err := config.ValidateDevice(gwCfg.Device); err != nil {
			logger.Error("skipping gateway", "device", gwCfg.Device, "error", err)
			continue
		}

		gw, err := factory(ctx, i, gwCfg)
		if err != nil {
			logger.Error("cannot set up gateway", "device", gwCfg.Device, "error", err)
			continue
		}

		wrapper := NewGatewayWrapper(gw, gwCfg.Device, gwCfg.TCPPort, logger)
		wrapper.SetEventCallback(wrapper.CallbackFactory())
		h.ListenOnce(hub.EventStart, gatewayStarter(h, wrapper, cfg.Persistence, logger))

		wrappers = append(wrappers, wrapper)
	}

	if len(wrappers) == 0 {
		logger.Error("No devices could be setup as gateways, check your configuration")
		return ErrNoGateways
	}

	h.SetData(DataKeyGateways, wrappers)

	for _, component := range []string{hub.ComponentSwitch, hub.ComponentBinarySensor} {
		if err := h.LoadPlatform(ctx, component, Domain, map[string]any{}); err != nil {
			return fmt.Errorf("loading %s platform: %w", component, err)
		}
	}

	return nil
}

// gatewayStarter replays persisted nodes when persistence is on, then
// starts the gateway and stops it with the hub.
func gatewayStarter(h *hub.Hub, w *GatewayWrapper, persistence bool, logger Logger) hub.Listener {
	return func(ctx context.Context) {
		if persistence {
			callback := w.CallbackFactory()
			for _, nodeID := range w.NodeIDs() {
				callback(UpdatePersistence, nodeID)
			}
		}

		if err := w.Start(ctx); err != nil {
			logger.Error("starting gateway failed", "device", w.Device, "error", err)
			return
		}

		h.ListenOnce(hub.EventStop, func(context.Context) {
			if err := w.Stop(); err != nil {
				logger.Error("stopping gateway failed", "device", w.Device, "error", err)
			}
		})
	}
}
