package config

import (
	"encoding/hex"
	"os"
	"testing"
)

// ---------------------------------------------------------------------------
// ApplyEnvOverrides
// ---------------------------------------------------------------------------

var overrideVars = []string{
	"SUPERCAP_MCP_AUTH_TOKEN",
	"SUPERCAP_HWMON_DIR",
	"SUPERCAP_REDIS_ADDR",
	"SUPERCAP_LOG_LEVEL",
	"SUPERCAP_MCP_PORT",
}

// clearOverrideEnv unsets every override variable for the duration of t.
func clearOverrideEnv(t *testing.T) {
	t.Helper()
	for _, name := range overrideVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func Test_ApplyEnvOverrides_Cases(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name: "token env overrides existing token",
			env:  map[string]string{"SUPERCAP_MCP_AUTH_TOKEN": "new"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.AuthToken != "new" {
					t.Errorf("AuthToken = %q, want %q", cfg.Server.AuthToken, "new")
				}
			},
		},
		{
			name: "no env preserves every field",
			env:  nil,
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.AuthToken != "existing" {
					t.Errorf("AuthToken = %q, want %q", cfg.Server.AuthToken, "existing")
				}
				if cfg.Device.HwmonDir != "" {
					t.Errorf("HwmonDir = %q, want empty", cfg.Device.HwmonDir)
				}
				if cfg.Redis.Enabled {
					t.Error("Redis.Enabled should stay false")
				}
			},
		},
		{
			name: "hwmon dir override",
			env:  map[string]string{"SUPERCAP_HWMON_DIR": "/sys/class/hwmon/hwmon9"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Device.HwmonDir != "/sys/class/hwmon/hwmon9" {
					t.Errorf("HwmonDir = %q", cfg.Device.HwmonDir)
				}
			},
		},
		{
			name: "redis addr enables publishing",
			env:  map[string]string{"SUPERCAP_REDIS_ADDR": "redis:6379"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Redis.Addr != "redis:6379" || !cfg.Redis.Enabled {
					t.Errorf("Redis = %+v, want enabled with addr redis:6379", cfg.Redis)
				}
			},
		},
		{
			name: "log level override",
			env:  map[string]string{"SUPERCAP_LOG_LEVEL": "debug"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Log.Level != "debug" {
					t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
				}
			},
		},
		{
			name: "valid port override",
			env:  map[string]string{"SUPERCAP_MCP_PORT": "9191"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.Port != 9191 {
					t.Errorf("Port = %d, want 9191", cfg.Server.Port)
				}
			},
		},
		{
			name: "unparseable port is ignored",
			env:  map[string]string{"SUPERCAP_MCP_PORT": "eighty"},
			validate: func(t *testing.T, cfg *Config) {
				t.Helper()
				if cfg.Server.Port != 8080 {
					t.Errorf("Port = %d, want 8080", cfg.Server.Port)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOverrideEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg := DefaultConfig()
			cfg.Server.AuthToken = "existing"
			ApplyEnvOverrides(cfg)

			tt.validate(t, cfg)
		})
	}
}

// ---------------------------------------------------------------------------
// EnsureAuthToken / GenerateRandomToken
// ---------------------------------------------------------------------------

func Test_EnsureAuthToken_KeepsExisting(t *testing.T) {
	cfg := &Config{Server: ServerConfig{AuthToken: "pre-set"}}

	token, err := EnsureAuthToken(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "pre-set" || cfg.Server.AuthToken != "pre-set" {
		t.Errorf("token = %q, cfg token = %q, want pre-set", token, cfg.Server.AuthToken)
	}
}

func Test_EnsureAuthToken_Generates(t *testing.T) {
	cfg := &Config{}

	token, err := EnsureAuthToken(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.AuthToken != token {
		t.Errorf("cfg.Server.AuthToken = %q, want %q", cfg.Server.AuthToken, token)
	}
	decoded, err := hex.DecodeString(token)
	if err != nil {
		t.Fatalf("token %q is not valid hex: %v", token, err)
	}
	if len(decoded) != 16 {
		t.Errorf("decoded length = %d, want 16 bytes", len(decoded))
	}
}

func Test_GenerateRandomToken_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := GenerateRandomToken()
		if err != nil {
			t.Fatalf("GenerateRandomToken() error: %v", err)
		}
		if len(token) != 32 {
			t.Fatalf("len(token) = %d, want 32", len(token))
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %q", token)
		}
		seen[token] = struct{}{}
	}
}
