// Domintell bridge
//
// Connects to one or more Domintell DETH01 gateways and exposes their
// inputs as binary sensors and their outputs as switches to Home Assistant
// over MQTT discovery. A small REST/WebSocket API and optional InfluxDB
// history run alongside.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/nerrad567/domintell-bridge/migrations"

	"github.com/nerrad567/domintell-bridge/internal/api"
	"github.com/nerrad567/domintell-bridge/internal/bridges/domintell"
	"github.com/nerrad567/domintell-bridge/internal/hass"
	"github.com/nerrad567/domintell-bridge/internal/history"
	"github.com/nerrad567/domintell-bridge/internal/hub"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/config"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/database"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/domintell-bridge/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting domintell bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"gateways", len(cfg.Domintell.Gateways),
		"persistence", cfg.Domintell.Persistence,
	)

	topics := mqtt.NewTopics(cfg.HomeAssistant.DiscoveryPrefix, cfg.HomeAssistant.BaseTopic)

	mqttClient, err := mqtt.Connect(cfg.MQTT, topics.Availability())
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log.Component("mqtt"))
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	home := hub.New()
	home.SetLogger(log.Component("hub"))

	bridge := hass.New(mqttClient, topics, home, byte(cfg.MQTT.QoS)) // #nosec G115 -- qos validated to 0..2
	bridge.SetLogger(log.Component("hass"))
	home.AddStateListener(bridge)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
		// A restarted broker may have lost retained discovery and state.
		go bridge.Resync()
	})

	var recorder *history.Recorder
	if influxClient != nil {
		recorder = history.NewRecorder(influxClient, func() []*domintell.GatewayWrapper {
			return domintell.Gateways(home)
		}, history.DefaultSampleInterval)
		home.AddStateListener(recorder)
	}

	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log.Component("api"),
			Hub:     home,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		home.AddStateListener(apiServer)
	}

	stores := &storeSet{}
	defer stores.closeAll(log)

	domintell.Register(home)
	if err := domintell.Setup(ctx, home, cfg.Domintell, gatewayFactory(cfg, log, stores), log.Component("domintell")); err != nil {
		return fmt.Errorf("setting up domintell: %w", err)
	}

	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if apiServer != nil {
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	home.Start(ctx)
	defer func() {
		log.Info("stopping hub")
		home.Stop(context.Background())
	}()

	if recorder != nil {
		recorder.Start(ctx)
		defer recorder.Stop()
	}

	reporter := domintell.NewHealthReporter(domintell.HealthReporterConfig{
		BridgeID:  cfg.Bridge.ID,
		Version:   version,
		Topic:     topics.Health(),
		Interval:  cfg.GetHealthInterval(),
		Publisher: mqttClient,
		Gateways:  domintell.Gateways(home),
		Entities:  home,
	})
	reporter.SetLogger(log.Component("health"))
	if err := reporter.PublishStarting(); err != nil {
		log.Warn("publishing starting health failed", "error", err)
	}
	reporter.Start(ctx)
	defer reporter.Stop()

	log.Info("initialisation complete, waiting for shutdown signal",
		"entities", home.EntityCount(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: health reporter, recorder, hub
	// (stops the gateways), API, persistence files, InfluxDB, MQTT.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DOMINTELL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOMINTELL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// storeSet tracks the persistence files opened by the gateway factory.
type storeSet struct {
	mu  sync.Mutex
	dbs []*database.DB
}

func (s *storeSet) add(db *database.DB) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbs = append(s.dbs, db)
}

func (s *storeSet) closeAll(log *logging.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, db := range s.dbs {
		if err := db.Close(); err != nil {
			log.Error("error closing persistence file", "path", db.Path(), "error", err)
		}
	}
	s.dbs = nil
}

// gatewayFactory builds DETH01 drivers. With persistence on, each gateway
// gets its own migrated SQLite file.
func gatewayFactory(cfg *config.Config, log *logging.Logger, stores *storeSet) domintell.GatewayFactory {
	return func(ctx context.Context, _ int, gwCfg config.GatewayConfig) (domintell.Gateway, error) {
		driverCfg := domintell.Deth01Config{
			Device:      gwCfg.Device,
			Port:        gwCfg.TCPPort,
			Debug:       cfg.Domintell.Debug,
			Persistence: cfg.Domintell.Persistence,
			Codec:       domintell.LineCodec{},
		}

		if cfg.Domintell.Persistence {
			db, err := database.Open(ctx, database.Config{
				Path:        gwCfg.PersistenceFile,
				WALMode:     cfg.Database.WALMode,
				BusyTimeout: cfg.Database.BusyTimeout,
			})
			if err != nil {
				return nil, fmt.Errorf("opening persistence file: %w", err)
			}
			if err := db.Migrate(ctx); err != nil {
				db.Close() //nolint:errcheck // already failing
				return nil, fmt.Errorf("migrating persistence file: %w", err)
			}
			stores.add(db)
			driverCfg.Store = domintell.NewSQLiteNodeStore(db.DB)
		}

		gw, err := domintell.NewDeth01Gateway(ctx, driverCfg)
		if err != nil {
			return nil, err
		}
		gw.SetLogger(log.Component("deth01").With("gateway", gw.Address()))
		return gw, nil
	}
}
