package cliconfig

import (
	"testing"
	"time"
)

func TestApplyServerEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		expected func(*ServerConfig)
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"USTS_BIND":                "127.0.0.1",
				"USTS_PORT":                "5367",
				"USTS_DATA_DIR":            "/env/data",
				"USTS_LOG_LEVEL":           "debug",
				"USTS_STORE_URL":           "redis://cache:6379/2",
				"USTS_STORE_TIMEOUT":       "2s",
				"USTS_MAX_RESPONSE_PACKET": "256",
				"USTS_RESPONSE_DELAY":      "10ms",
				"USTS_METRICS_ADDR":        ":9102",
				"USTS_WATCH_CONFIG":        "1",
			},
			changed: map[string]bool{},
			expected: func(c *ServerConfig) {
				c.Bind = "127.0.0.1"
				c.Port = 5367
				c.DataDir = "/env/data"
				c.LogLevel = "debug"
				c.StoreURL = "redis://cache:6379/2"
				c.StoreTimeout = 2 * time.Second
				c.MaxResponsePacket = 256
				c.ResponseDelay = 10 * time.Millisecond
				c.MetricsAddr = ":9102"
				c.WatchConfig = true
			},
		},
		{
			name:     "respects changed flags",
			envVars:  map[string]string{"USTS_PORT": "5367", "USTS_DATA_DIR": "/env/data"},
			changed:  map[string]bool{"port": true},
			expected: func(c *ServerConfig) { c.DataDir = "/env/data" },
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"USTS_RESPONSE_DELAY": "soon"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid int",
			envVars: map[string]string{"USTS_PORT": "http"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := DefaultServerConfig()
			err := ApplyServerEnvConfig(&cfg, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyServerEnvConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			want := DefaultServerConfig()
			tt.expected(&want)
			if cfg != want {
				t.Errorf("config = %+v, want %+v", cfg, want)
			}
		})
	}
}

func TestApplyClientEnvConfig(t *testing.T) {
	t.Setenv("USTS_SERVER", "10.1.1.1")
	t.Setenv("USTS_PORT", "5367")
	t.Setenv("USTS_FRAGMENT_SIZE", "200")
	t.Setenv("USTS_SEND_DELAY", "0s")
	t.Setenv("USTS_ACK_TIMEOUT", "30s")

	cfg := DefaultClientConfig()
	if err := ApplyClientEnvConfig(&cfg, map[string]bool{"fragment-size": true}); err != nil {
		t.Fatalf("ApplyClientEnvConfig() error = %v", err)
	}

	want := ClientConfig{
		Server:       "10.1.1.1",
		Port:         5367,
		FragmentSize: DefaultClientConfig().FragmentSize,
		SendDelay:    0,
		AckTimeout:   30 * time.Second,
	}
	if cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}
