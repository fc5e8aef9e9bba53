package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML layout of config.toml. Durations are strings.
type FileConfig struct {
	Server ServerFileConfig `toml:"server"`
	Client ClientFileConfig `toml:"client"`
}

// ServerFileConfig is the [server] table.
type ServerFileConfig struct {
	Bind              string `toml:"bind"`
	Port              int    `toml:"port"`
	DataDir           string `toml:"data_dir"`
	DataFile          string `toml:"data_file"`
	LogFile           string `toml:"log_file"`
	LogLevel          string `toml:"log_level"`
	StoreURL          string `toml:"store_url"`
	StoreCollection   string `toml:"store_collection"`
	StoreTimeout      string `toml:"store_timeout"`
	MaxResponsePacket int    `toml:"max_response_packet"`
	ResponseDelay     string `toml:"response_delay"`
	MetricsAddr       string `toml:"metrics_addr"`
	WatchConfig       *bool  `toml:"watch_config"`
}

// ClientFileConfig is the [client] table.
type ClientFileConfig struct {
	Server       string `toml:"server"`
	Port         int    `toml:"port"`
	FragmentSize int    `toml:"fragment_size"`
	SendDelay    string `toml:"send_delay"`
	AckTimeout   string `toml:"ack_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.usts/config.toml, or "" without a home directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".usts", "config.toml")
	}
	return ""
}

// ApplyServerFileConfig applies the [server] table, skipping flags in changed.
func ApplyServerFileConfig(cfg *ServerConfig, fc ServerFileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("bind", fc.Bind, &cfg.Bind)
	s.setInt("port", fc.Port, &cfg.Port)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("data-file", fc.DataFile, &cfg.DataFile)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("store-url", fc.StoreURL, &cfg.StoreURL)
	s.setString("store-collection", fc.StoreCollection, &cfg.StoreCollection)
	s.setInt("max-response-packet", fc.MaxResponsePacket, &cfg.MaxResponsePacket)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	if err := s.setDuration("store-timeout", fc.StoreTimeout, &cfg.StoreTimeout); err != nil {
		return err
	}
	return s.setDuration("response-delay", fc.ResponseDelay, &cfg.ResponseDelay)
}

// ApplyClientFileConfig applies the [client] table, skipping flags in changed.
func ApplyClientFileConfig(cfg *ClientConfig, fc ClientFileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server", fc.Server, &cfg.Server)
	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("fragment-size", fc.FragmentSize, &cfg.FragmentSize)

	if err := s.setDuration("send-delay", fc.SendDelay, &cfg.SendDelay); err != nil {
		return err
	}
	return s.setDuration("ack-timeout", fc.AckTimeout, &cfg.AckTimeout)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
