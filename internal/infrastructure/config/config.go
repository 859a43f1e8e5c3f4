package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTCPPort is the default TCP port of a Domintell gateway.
const DefaultTCPPort = 5003

// persistenceExtensions lists the accepted persistence file extensions.
var persistenceExtensions = []string{".db", ".sqlite", ".sqlite3"}

// lookupHost resolves gateway device addresses. Replaced in tests.
var lookupHost = net.LookupHost

// Config is the root configuration structure for the Domintell bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge        BridgeConfig        `yaml:"bridge"`
	Domintell     DomintellConfig     `yaml:"domintell"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// BridgeConfig contains bridge identity and operational settings.
type BridgeConfig struct {
	// ID uniquely identifies this bridge instance.
	// Used in health reporting.
	ID string `yaml:"id"`

	// DataDir holds default persistence files (domintell1.db, domintell2.db, ...).
	DataDir string `yaml:"data_dir"`

	// HealthInterval is how often to publish health status (seconds).
	HealthInterval int `yaml:"health_interval"`
}

// DomintellConfig contains the Domintell component settings.
type DomintellConfig struct {
	// Gateways lists the gateways to connect to. A single mapping is
	// accepted and treated as a one-element list.
	Gateways GatewayList `yaml:"gateways"`

	// Debug makes the gateway drivers log every frame.
	Debug bool `yaml:"debug"`

	// Persistence loads the node table on startup and replays it to the
	// platforms before the gateway connects.
	Persistence bool `yaml:"persistence"`
}

// GatewayConfig describes a single Domintell gateway.
type GatewayConfig struct {
	// Device is the gateway host name or IP address.
	Device string `yaml:"device"`

	// PersistenceFile is the SQLite file holding this gateway's node table.
	// Default: <bridge.data_dir>/domintell<N>.db
	PersistenceFile string `yaml:"persistence_file"`

	// TCPPort is the gateway TCP port. Default: 5003
	TCPPort int `yaml:"tcp_port"`
}

// GatewayList is a list of gateways that also decodes from a single mapping.
type GatewayList []GatewayConfig

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *GatewayList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		var single GatewayConfig
		if err := value.Decode(&single); err != nil {
			return err
		}
		*l = GatewayList{single}
		return nil
	}

	var list []GatewayConfig
	if err := value.Decode(&list); err != nil {
		return err
	}
	*l = list
	return nil
}

// HomeAssistantConfig contains MQTT discovery settings.
type HomeAssistantConfig struct {
	// DiscoveryPrefix is the Home Assistant discovery prefix.
	DiscoveryPrefix string `yaml:"discovery_prefix"`

	// BaseTopic prefixes all state, command and availability topics.
	BaseTopic string `yaml:"base_topic"`
}

// DatabaseConfig contains SQLite settings shared by all persistence files.
type DatabaseConfig struct {
	WALMode     bool `yaml:"wal_mode"`
	BusyTimeout int  `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//  4. Per-gateway defaults that depend on the above (port, persistence file)
//
// Environment variables follow the pattern: DOMINTELL_SECTION_KEY
// For example: DOMINTELL_MQTT_HOST, DOMINTELL_DATA_DIR
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	cfg.applyGatewayDefaults()

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "domintell",
			DataDir:        "./data",
			HealthInterval: 30,
		},
		Domintell: DomintellConfig{
			Debug:       false,
			Persistence: true,
		},
		HomeAssistant: HomeAssistantConfig{
			DiscoveryPrefix: "homeassistant",
			BaseTopic:       "domintell",
		},
		Database: DatabaseConfig{
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "domintell-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOMINTELL_DATA_DIR"); v != "" {
		cfg.Bridge.DataDir = v
	}

	if v := os.Getenv("DOMINTELL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOMINTELL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOMINTELL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("DOMINTELL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("DOMINTELL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// applyGatewayDefaults fills in the TCP port and persistence file of
// gateways that leave them unset. The Nth gateway (1-based) defaults to
// <data_dir>/domintellN.db.
func (c *Config) applyGatewayDefaults() {
	for i := range c.Domintell.Gateways {
		gw := &c.Domintell.Gateways[i]
		if gw.TCPPort == 0 {
			gw.TCPPort = DefaultTCPPort
		}
		if gw.PersistenceFile == "" {
			gw.PersistenceFile = filepath.Join(c.Bridge.DataDir, fmt.Sprintf("domintell%d.db", i+1))
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	errs = append(errs, c.validateGateways()...)

	if c.HomeAssistant.BaseTopic == "" {
		errs = append(errs, "homeassistant.base_topic is required")
	}
	if c.HomeAssistant.DiscoveryPrefix == "" {
		errs = append(errs, "homeassistant.discovery_prefix is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateGateways applies the per-gateway rules and the cross-gateway
// persistence file rules.
func (c *Config) validateGateways() []string {
	var errs []string

	if len(c.Domintell.Gateways) == 0 {
		return []string{"domintell.gateways is required"}
	}

	set := 0
	seen := make(map[string]bool)
	endpoints := make(map[string]bool)
	for i, gw := range c.Domintell.Gateways {
		prefix := fmt.Sprintf("domintell.gateways[%d]", i)

		if err := ValidateDevice(gw.Device); err != nil {
			errs = append(errs, fmt.Sprintf("%s.device: %v", prefix, err))
		}

		if gw.TCPPort != 0 && (gw.TCPPort < 1 || gw.TCPPort > 65535) {
			errs = append(errs, prefix+".tcp_port must be between 1 and 65535")
		}

		port := gw.TCPPort
		if port == 0 {
			port = DefaultTCPPort
		}
		endpoint := net.JoinHostPort(strings.ToLower(gw.Device), strconv.Itoa(port))
		if endpoints[endpoint] {
			errs = append(errs, fmt.Sprintf("%s: gateway %s is configured twice", prefix, endpoint))
		}
		endpoints[endpoint] = true

		if gw.PersistenceFile == "" {
			continue
		}
		set++

		if err := validatePersistenceFile(gw.PersistenceFile); err != nil {
			errs = append(errs, fmt.Sprintf("%s.persistence_file: %v", prefix, err))
		}
		if seen[gw.PersistenceFile] {
			errs = append(errs, fmt.Sprintf("%s.persistence_file %q is not unique", prefix, gw.PersistenceFile))
		}
		seen[gw.PersistenceFile] = true
	}

	if set > 0 && set < len(c.Domintell.Gateways) {
		errs = append(errs, "persistence file name of all devices must be set if any is set")
	}

	return errs
}

// ValidateDevice checks that a gateway device is a resolvable host name or an IP address.
func ValidateDevice(device string) error {
	if device == "" {
		return fmt.Errorf("device is required")
	}
	if net.ParseIP(device) != nil {
		return nil
	}
	if _, err := lookupHost(device); err != nil {
		return fmt.Errorf("device is not a valid domain name or ip address")
	}
	return nil
}

// validatePersistenceFile checks the extension and that the parent
// directory exists and is writable.
func validatePersistenceFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	valid := false
	for _, e := range persistenceExtensions {
		if ext == e {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%s does not end in one of %s", path, strings.Join(persistenceExtensions, ", "))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	parent := filepath.Dir(abs)

	info, err := os.Stat(parent)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s directory does not exist or is not writable", parent)
	}

	probe, err := os.CreateTemp(parent, ".domintell-probe-*")
	if err != nil {
		return fmt.Errorf("%s directory does not exist or is not writable", parent)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}

// GetHealthInterval returns the health reporting interval as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	if c.Bridge.HealthInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
