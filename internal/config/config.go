// Package config provides configuration loading and defaults for the
// supercap-mcp server and the ltcctl command.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ResourceFilter holds allowlist and denylist glob patterns.
type ResourceFilter struct {
	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`
}

// SafetyConfig restricts which attributes may be written.
type SafetyConfig struct {
	Attributes ResourceFilter `yaml:"attributes"`
}

// DeviceConfig locates the hwmon directory of the controller. When HwmonDir is
// empty the directory is discovered under SysPath by ChipName.
type DeviceConfig struct {
	HwmonDir string `yaml:"hwmon_dir"`
	SysPath  string `yaml:"sys_path"`
	ChipName string `yaml:"chip_name"`
}

// AuditConfig controls audit logging behaviour.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// ServerConfig holds network and authentication settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
}

// LogConfig selects the level, format and destination of the process log.
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RedisConfig controls publishing of status change events.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
	// History is the number of events kept in the per-device list.
	History int `yaml:"history"`
}

// WatchConfig controls how status attribute changes are detected.
type WatchConfig struct {
	// Backend is "poll" (sysfs_notify), "fsnotify", or "auto".
	Backend    string   `yaml:"backend"`
	Attributes []string `yaml:"attributes"`
	// PollTimeoutMS bounds each poll(2) call so cancellation is noticed.
	PollTimeoutMS int `yaml:"poll_timeout_ms"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Device  DeviceConfig  `yaml:"device"`
	Safety  SafetyConfig  `yaml:"safety"`
	Audit   AuditConfig   `yaml:"audit"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Redis   RedisConfig   `yaml:"redis"`
	Watch   WatchConfig   `yaml:"watch"`
}

// LoadConfig reads a YAML configuration file. Fields absent from the file
// keep their DefaultConfig values. On error, nil is returned.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a new Config populated with default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Device: DeviceConfig{
			SysPath:  "/sys",
			ChipName: "ltc3350",
		},
		Safety: SafetyConfig{
			Attributes: ResourceFilter{
				Denylist: []string{"meas_*", "alarm_reg", "mon_status", "chrg_status", "name", "uevent"},
			},
		},
		Audit: AuditConfig{
			Enabled: true,
			LogPath: "/var/log/supercap-mcp/audit.log",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9350,
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Channel: "supercap_events",
			History: 1000,
		},
		Watch: WatchConfig{
			Backend:       "auto",
			Attributes:    []string{"alarm_reg", "mon_status"},
			PollTimeoutMS: 500,
		},
	}
}

// ApplyEnvOverrides updates cfg in place with values from environment variables.
// Recognized variables:
//   - SUPERCAP_MCP_AUTH_TOKEN overrides cfg.Server.AuthToken
//   - SUPERCAP_HWMON_DIR overrides cfg.Device.HwmonDir
//   - SUPERCAP_REDIS_ADDR overrides cfg.Redis.Addr and enables publishing
//   - SUPERCAP_LOG_LEVEL overrides cfg.Log.Level
//   - SUPERCAP_MCP_PORT overrides cfg.Server.Port when it parses as an integer
func ApplyEnvOverrides(cfg *Config) {
	if token := os.Getenv("SUPERCAP_MCP_AUTH_TOKEN"); token != "" {
		cfg.Server.AuthToken = token
	}
	if dir := os.Getenv("SUPERCAP_HWMON_DIR"); dir != "" {
		cfg.Device.HwmonDir = dir
	}
	if addr := os.Getenv("SUPERCAP_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if level := os.Getenv("SUPERCAP_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if port, err := strconv.Atoi(os.Getenv("SUPERCAP_MCP_PORT")); err == nil && port > 0 {
		cfg.Server.Port = port
	}
}

// EnsureAuthToken generates a random auth token and sets it on cfg if
// cfg.Server.AuthToken is empty. It returns the token (existing or generated)
// and any error encountered during generation.
func EnsureAuthToken(cfg *Config) (string, error) {
	if cfg.Server.AuthToken != "" {
		return cfg.Server.AuthToken, nil
	}
	token, err := GenerateRandomToken()
	if err != nil {
		return "", fmt.Errorf("generate auth token: %w", err)
	}
	cfg.Server.AuthToken = token
	return token, nil
}

// GenerateRandomToken returns a 32-character hex-encoded cryptographically
// random token string.
func GenerateRandomToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read: %w", err)
	}
	return hex.EncodeToString(b), nil
}
