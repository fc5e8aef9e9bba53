package cliconfig

import (
	"fmt"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

// Defaults shared by the server and the client.
const (
	DefaultPort            = 12345
	DefaultBind            = "0.0.0.0"
	DefaultDataDir         = "data"
	DefaultDataFile        = "data.txt"
	DefaultLogFileName     = "server.log"
	DefaultStoreURL        = "redis://localhost:6379/0"
	DefaultStoreCollection = "messages"
	DefaultStoreTimeout    = 5 * time.Second
	DefaultResponseDelay   = 50 * time.Millisecond
	DefaultSendDelay       = 100 * time.Millisecond
)

// ServerConfig holds CLI configuration for usts-server.
type ServerConfig struct {
	Bind     string
	Port     int
	DataDir  string
	DataFile string
	LogFile  string
	LogLevel string

	StoreURL        string
	StoreCollection string
	StoreTimeout    time.Duration

	MaxResponsePacket int
	ResponseDelay     time.Duration

	MetricsAddr string
	WatchConfig bool
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Bind:              DefaultBind,
		Port:              DefaultPort,
		DataDir:           DefaultDataDir,
		DataFile:          DefaultDataFile,
		LogLevel:          "info",
		StoreURL:          DefaultStoreURL,
		StoreCollection:   DefaultStoreCollection,
		StoreTimeout:      DefaultStoreTimeout,
		MaxResponsePacket: protocol.MaxResponsePacket,
		ResponseDelay:     DefaultResponseDelay,
	}
}

// Validate checks the configuration and fills derived defaults.
// LogFile defaults to server.log inside DataDir.
func (c *ServerConfig) Validate() error {
	if err := validPort(c.Port); err != nil {
		return err
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data-dir is required", domain.ErrInvalidConfig)
	}
	if c.DataFile == "" {
		c.DataFile = DefaultDataFile
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, DefaultLogFileName)
	}
	if c.StoreURL == "" {
		return fmt.Errorf("%w: store-url is required", domain.ErrInvalidConfig)
	}
	if c.StoreCollection == "" {
		c.StoreCollection = DefaultStoreCollection
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("%w: store-timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxResponsePacket < 1 {
		return fmt.Errorf("%w: max-response-packet must be positive", domain.ErrInvalidConfig)
	}
	if c.ResponseDelay < 0 {
		return fmt.Errorf("%w: response-delay must not be negative", domain.ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", domain.ErrInvalidConfig, c.LogLevel)
	}
	return nil
}

// ClientConfig holds CLI configuration for the usts client.
type ClientConfig struct {
	Server       string
	Port         int
	FragmentSize int
	SendDelay    time.Duration
	AckTimeout   time.Duration
}

// DefaultClientConfig returns a ClientConfig with default values.
// Server is left empty so the console asks for it.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:         DefaultPort,
		FragmentSize: protocol.DefaultFragmentSize,
		SendDelay:    DefaultSendDelay,
	}
}

// Validate checks the configuration. An empty server is allowed; the
// console asks for it.
func (c *ClientConfig) Validate() error {
	if err := validPort(c.Port); err != nil {
		return err
	}
	if c.FragmentSize < 1 {
		return fmt.Errorf("%w: fragment-size must be positive", domain.ErrInvalidConfig)
	}
	if c.SendDelay < 0 || c.AckTimeout < 0 {
		return fmt.Errorf("%w: delays must not be negative", domain.ErrInvalidConfig)
	}
	if strings.ContainsAny(c.Server, " \t/") {
		return fmt.Errorf("%w: server %q is not a host", domain.ErrInvalidConfig, c.Server)
	}
	return nil
}

// Address returns host:port of the server.
func (c ClientConfig) Address() string {
	return net.JoinHostPort(c.Server, strconv.Itoa(c.Port))
}

func validPort(p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidConfig, p)
	}
	return nil
}

// configSetter applies configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value and sets dst if positive.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
