// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "60s", "30m", "4h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all agent configuration.
type Config struct {
	Notify     NotifyConfig     `yaml:"notify"`
	Heartbeat  HeartbeatConfig  `yaml:"heartbeat"`
	Docker     DockerConfig     `yaml:"docker"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// NotifyConfig holds Evolution API (WhatsApp) channel settings.
type NotifyConfig struct {
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	Instance string `yaml:"instance"`
	Number   string `yaml:"number"`
}

// HeartbeatConfig holds the n8n webhook telemetry sink settings.
type HeartbeatConfig struct {
	URL string `yaml:"url"`
}

// DockerConfig holds Docker Engine connection settings.
type DockerConfig struct {
	Socket string `yaml:"socket"`
}

// MonitoringConfig holds check cadence, thresholds, and the watch list.
type MonitoringConfig struct {
	CheckInterval   Duration `yaml:"check_interval"`
	ReportInterval  Duration `yaml:"report_interval"`
	AlertCooldown   Duration `yaml:"alert_cooldown"`
	CPUThreshold    float64  `yaml:"cpu_threshold"`
	RAMThreshold    float64  `yaml:"ram_threshold"`
	DiskThreshold   float64  `yaml:"disk_threshold"`
	WatchContainers []string `yaml:"watch_containers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Docker: DockerConfig{
			Socket: "/var/run/docker.sock",
		},
		Monitoring: MonitoringConfig{
			CheckInterval:  Duration{60 * time.Second},
			ReportInterval: Duration{4 * time.Hour},
			AlertCooldown:  Duration{30 * time.Minute},
			CPUThreshold:   85.0,
			RAMThreshold:   90.0,
			DiskThreshold:  90.0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with
// defaults. Environment variables take highest precedence and override values
// from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// File doesn't exist — use defaults + env overrides
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variable names follow the original deployment contract so
// existing container environments keep working.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EVOLUTION_URL"); v != "" {
		cfg.Notify.URL = v
	}
	if v := os.Getenv("EVOLUTION_TOKEN"); v != "" {
		cfg.Notify.Token = v
	}
	if v := os.Getenv("EVOLUTION_INSTANCE"); v != "" {
		cfg.Notify.Instance = v
	}
	if v := os.Getenv("NOTIFY_NUMBER"); v != "" {
		cfg.Notify.Number = v
	}
	if v := os.Getenv("N8N_HEARTBEAT_URL"); v != "" {
		cfg.Heartbeat.URL = v
	}
	if v := os.Getenv("DOCKER_SOCKET"); v != "" {
		cfg.Docker.Socket = v
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.CheckInterval = Duration{time.Duration(secs) * time.Second}
		}
	}
	if v := os.Getenv("REPORT_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.ReportInterval = Duration{time.Duration(hours) * time.Hour}
		}
	}
	if v := os.Getenv("ALERT_COOLDOWN"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Monitoring.AlertCooldown = Duration{time.Duration(secs) * time.Second}
		}
	}
	if v := os.Getenv("CPU_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitoring.CPUThreshold = f
		}
	}
	if v := os.Getenv("RAM_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitoring.RAMThreshold = f
		}
	}
	if v := os.Getenv("DISK_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Monitoring.DiskThreshold = f
		}
	}
	if v := os.Getenv("WATCH_CONTAINERS"); v != "" {
		cfg.Monitoring.WatchContainers = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
}

// splitList parses a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Validate checks that the configuration is complete and within bounds.
// A validation failure is fatal: the agent must not enter the monitoring
// loop with a partial notification setup.
func (c *Config) Validate() error {
	if c.Notify.URL == "" {
		return fmt.Errorf("notify URL is required (EVOLUTION_URL)")
	}
	if !isHTTPURL(c.Notify.URL) {
		return fmt.Errorf("notify URL must start with http:// or https:// (got: %s)", c.Notify.URL)
	}
	if c.Notify.Token == "" {
		return fmt.Errorf("notify token is required (EVOLUTION_TOKEN)")
	}
	if c.Notify.Instance == "" {
		return fmt.Errorf("notify instance is required (EVOLUTION_INSTANCE)")
	}
	if c.Notify.Number == "" {
		return fmt.Errorf("notify number is required (NOTIFY_NUMBER)")
	}
	if c.Heartbeat.URL == "" {
		return fmt.Errorf("heartbeat URL is required (N8N_HEARTBEAT_URL)")
	}
	if !isHTTPURL(c.Heartbeat.URL) {
		return fmt.Errorf("heartbeat URL must start with http:// or https:// (got: %s)", c.Heartbeat.URL)
	}
	if c.Monitoring.CheckInterval.Duration < 10*time.Second {
		return fmt.Errorf("check interval must be at least 10s (got: %s)", c.Monitoring.CheckInterval.Duration)
	}
	if c.Monitoring.ReportInterval.Duration < time.Hour {
		return fmt.Errorf("report interval must be at least 1h (got: %s)", c.Monitoring.ReportInterval.Duration)
	}
	if err := validThreshold("cpu", c.Monitoring.CPUThreshold); err != nil {
		return err
	}
	if err := validThreshold("ram", c.Monitoring.RAMThreshold); err != nil {
		return err
	}
	if err := validThreshold("disk", c.Monitoring.DiskThreshold); err != nil {
		return err
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func validThreshold(name string, v float64) error {
	if v <= 0 || v > 100 {
		return fmt.Errorf("%s threshold must be in (0,100] (got: %v)", name, v)
	}
	return nil
}
