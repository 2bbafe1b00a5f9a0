// Package config handles configuration loading from a YAML file, environment
// variables and Kubernetes secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tado_bridge/internal/device"
)

const (
	defaultConfigPath = "/etc/tado-bridge/config.yaml"
	defaultStep       = 5
	maxDelaySeconds   = 600
)

// Auth modes for the Tado API.
const (
	AuthToken = "token"
	AuthQuery = "query"
)

// Config holds all configuration for the bridge.
type Config struct {
	// Authentication credentials
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	HomeID int64  `yaml:"home_id"`
	Unit   string `yaml:"unit"`

	API APIConfig `yaml:"api"`

	// PollSeconds is the polling interval of the zone and weather tasks.
	PollSeconds      int  `yaml:"poll_interval"`
	ExtendedDelay    bool `yaml:"extended_delay"`
	RevertGraceMilli int  `yaml:"revert_grace_ms"`
	// Timezone is used to format sunrise and sunset.
	Timezone string `yaml:"timezone"`

	ExtendedWeather ExtendedWeatherConfig `yaml:"extended_weather"`
	Devices         []DeviceConfig        `yaml:"devices"`

	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`

	// Server configuration
	ListenAddr     string        `yaml:"listen_addr"`
	RequestTimeout time.Duration `yaml:"-"`
	PollInterval   time.Duration `yaml:"-"`

	// Logging configuration
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	// Path is the file the configuration was read from.
	Path string `yaml:"-"`
	// FileLoaded is false when the file did not exist.
	FileLoaded bool `yaml:"-"`
}

// APIConfig configures the Tado API client.
type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	AuthMode     string `yaml:"auth_mode"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// Timeout in seconds.
	Timeout int `yaml:"timeout"`
}

// ExtendedWeatherConfig configures the OpenWeather provider.
type ExtendedWeatherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Key      string `yaml:"key"`
	Location string `yaml:"location"`
	BaseURL  string `yaml:"base_url"`
}

// DeviceConfig describes one configured device.
type DeviceConfig struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	ZoneID       int64    `yaml:"zone_id"`
	Serial       string   `yaml:"serial"`
	Room         string   `yaml:"room"`
	Unit         string   `yaml:"unit"`
	HeatStep     *float64 `yaml:"heat_step"`
	CoolStep     *float64 `yaml:"cool_step"`
	DelaySeconds int      `yaml:"delay_seconds"`
	Battery      string   `yaml:"battery"`
	Anyone       bool     `yaml:"anyone"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Enabled     bool             `yaml:"enabled"`
	Broker      MQTTBrokerConfig `yaml:"broker"`
	Auth        MQTTAuthConfig   `yaml:"auth"`
	QoS         int              `yaml:"qos"`
	TopicPrefix string           `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains broker credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains the history store settings.
type InfluxDBConfig struct {
	Enabled   bool   `yaml:"enabled"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
	BatchSize int    `yaml:"batch_size"`
	// FlushInterval in milliseconds.
	FlushInterval int `yaml:"flush_interval"`
}

// LoadConfig loads configuration from the file named by TADO_CONFIG, then
// applies environment variables and Kubernetes secrets.
func LoadConfig() (*Config, error) {
	path := os.Getenv("TADO_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}
	return Load(path)
}

// Load reads the configuration file at path. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	cfg.Path = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		cfg.FileLoaded = true
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if cfg.API.Timeout > 0 {
		cfg.RequestTimeout = time.Duration(cfg.API.Timeout) * time.Second
	}
	if cfg.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(cfg.PollSeconds) * time.Second
	}

	applyEnvOverrides(cfg)

	// Mounted secrets win over file and environment
	secrets, err := readSecrets()
	if err != nil {
		return nil, fmt.Errorf("reading secrets: %w", err)
	}
	applySecrets(cfg, secrets)

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Unit: "CELSIUS",
		API: APIConfig{
			AuthMode: AuthToken,
		},
		RevertGraceMilli: 300,
		Timezone:         "UTC",
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tado-bridge",
			},
			QoS:         1,
			TopicPrefix: "tado",
		},
		InfluxDB: InfluxDBConfig{
			Bucket:        "tado",
			BatchSize:     100,
			FlushInterval: 10000,
		},
		ListenAddr:     ":9808",
		RequestTimeout: 30 * time.Second,
		PollInterval:   10 * time.Second,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// applyEnvOverrides applies TADO_ environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TADO_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("TADO_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("TADO_HOME_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.HomeID = id
		}
	}

	if addr := os.Getenv("TADO_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if level := os.Getenv("TADO_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("TADO_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	if timeout := os.Getenv("TADO_REQUEST_TIMEOUT"); timeout != "" {
		if seconds, err := strconv.Atoi(timeout); err == nil && seconds > 0 {
			cfg.RequestTimeout = time.Duration(seconds) * time.Second
		}
	}
	if interval := os.Getenv("TADO_POLL_INTERVAL"); interval != "" {
		if seconds, err := strconv.Atoi(interval); err == nil && seconds > 0 {
			cfg.PollInterval = time.Duration(seconds) * time.Second
		}
	}

	if v := os.Getenv("TADO_OPENWEATHER_KEY"); v != "" {
		cfg.ExtendedWeather.Key = v
	}
	if v := os.Getenv("TADO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TADO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TADO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("TADO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("username is required (set TADO_USERNAME or mount K8s secret)")
	}
	if c.Password == "" {
		return errors.New("password is required (set TADO_PASSWORD or mount K8s secret)")
	}
	if c.HomeID <= 0 {
		return errors.New("home_id is required")
	}
	if _, err := device.ParseUnit(c.Unit); err != nil {
		return err
	}
	if c.API.AuthMode != AuthToken && c.API.AuthMode != AuthQuery {
		return fmt.Errorf("api.auth_mode must be %q or %q", AuthToken, AuthQuery)
	}
	if c.RequestTimeout < time.Second {
		return errors.New("request timeout must be at least 1 second")
	}
	if c.PollInterval < time.Second {
		return errors.New("poll interval must be at least 1 second")
	}
	if c.RevertGraceMilli < 0 {
		return errors.New("revert_grace_ms must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	if c.ExtendedWeather.Enabled {
		if c.ExtendedWeather.Key == "" {
			return errors.New("extended_weather.key is required when enabled")
		}
		if c.ExtendedWeather.Location == "" {
			return errors.New("extended_weather.location is required when enabled")
		}
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			return errors.New("mqtt.broker.host is required when enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			return errors.New("mqtt.broker.port must be between 1 and 65535")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return errors.New("mqtt.qos must be 0, 1 or 2")
		}
		if c.MQTT.TopicPrefix == "" {
			return errors.New("mqtt.topic_prefix is required when enabled")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			return errors.New("influxdb.url is required when enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			return errors.New("influxdb.org and influxdb.bucket are required when enabled")
		}
	}

	return c.validateDevices()
}

func (c *Config) validateDevices() error {
	names := make(map[string]bool, len(c.Devices))
	slugs := make(map[string]bool, len(c.Devices))
	centrals, anyones := 0, 0

	for i, d := range c.Devices {
		if d.Name == "" {
			return fmt.Errorf("devices[%d]: name is required", i)
		}
		if names[d.Name] || slugs[device.Slug(d.Name)] {
			return fmt.Errorf("devices[%d]: duplicate name %q", i, d.Name)
		}
		names[d.Name] = true
		slugs[device.Slug(d.Name)] = true

		kind, err := device.ParseKind(d.Kind)
		if err != nil {
			return fmt.Errorf("devices[%d] %q: %w", i, d.Name, err)
		}
		if d.Unit != "" {
			if _, err := device.ParseUnit(d.Unit); err != nil {
				return fmt.Errorf("devices[%d] %q: %w", i, d.Name, err)
			}
		}
		if kind.UsesZone() && d.ZoneID <= 0 {
			return fmt.Errorf("devices[%d] %q: zone_id is required for %s", i, d.Name, kind)
		}
		for _, step := range []*float64{d.HeatStep, d.CoolStep} {
			if step != nil && (*step < 0 || *step > kind.MaxStep()) {
				return fmt.Errorf("devices[%d] %q: step must be between 0 and %v", i, d.Name, kind.MaxStep())
			}
		}
		if d.DelaySeconds < 0 || d.DelaySeconds > maxDelaySeconds {
			return fmt.Errorf("devices[%d] %q: delay_seconds must be between 0 and %d", i, d.Name, maxDelaySeconds)
		}
		if d.Anyone && kind != device.KindOccupancy {
			return fmt.Errorf("devices[%d] %q: anyone is only valid for occupancy devices", i, d.Name)
		}

		if kind == device.KindCentral {
			centrals++
		}
		if d.Anyone {
			anyones++
		}
	}

	if centrals > 1 {
		return errors.New("at most one central device may be configured")
	}
	if anyones > 1 {
		return errors.New("at most one anyone occupancy device may be configured")
	}
	return nil
}

// DeviceSpecs converts the device list into creation specs. The
// configuration must have been validated.
func (c *Config) DeviceSpecs() ([]device.Spec, error) {
	homeUnit, err := device.ParseUnit(c.Unit)
	if err != nil {
		return nil, err
	}
	specs := make([]device.Spec, 0, len(c.Devices))
	for _, d := range c.Devices {
		kind, err := device.ParseKind(d.Kind)
		if err != nil {
			return nil, err
		}
		unit := homeUnit
		if d.Unit != "" {
			if unit, err = device.ParseUnit(d.Unit); err != nil {
				return nil, err
			}
		}
		specs = append(specs, device.Spec{
			Name:     d.Name,
			Kind:     kind,
			Unit:     unit,
			HomeID:   c.HomeID,
			ZoneID:   d.ZoneID,
			Serial:   d.Serial,
			Anyone:   d.Anyone,
			Settings: d.Settings(),
		})
	}
	return specs, nil
}

// Settings returns the adjustable settings of the device with defaults applied.
func (d DeviceConfig) Settings() device.Settings {
	s := device.Settings{
		Room:         d.Room,
		HeatStep:     defaultStep,
		CoolStep:     defaultStep,
		DelaySeconds: d.DelaySeconds,
		BatteryState: d.Battery,
	}
	if d.Room == "" {
		s.Room = d.Name
	}
	if d.HeatStep != nil {
		s.HeatStep = *d.HeatStep
	}
	if d.CoolStep != nil {
		s.CoolStep = *d.CoolStep
	}
	return s
}

// Location returns the configured time zone, or UTC if it is invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RevertGrace is the delay before a rejected temperature is re-published.
func (c *Config) RevertGrace() time.Duration {
	return time.Duration(c.RevertGraceMilli) * time.Millisecond
}
