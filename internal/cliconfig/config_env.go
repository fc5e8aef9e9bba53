package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by the CLIs.
const EnvPrefix = "USTS_"

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// ApplyServerEnvConfig applies USTS_* variables to cfg. Variables override
// the file config; flags in changed override both.
func ApplyServerEnvConfig(cfg *ServerConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("bind", env("BIND"), &cfg.Bind)
	s.setString("data-dir", env("DATA_DIR"), &cfg.DataDir)
	s.setString("data-file", env("DATA_FILE"), &cfg.DataFile)
	s.setString("log-file", env("LOG_FILE"), &cfg.LogFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("store-url", env("STORE_URL"), &cfg.StoreURL)
	s.setString("store-collection", env("STORE_COLLECTION"), &cfg.StoreCollection)
	s.setString("metrics-addr", env("METRICS_ADDR"), &cfg.MetricsAddr)
	s.setBoolFromString("watch-config", env("WATCH_CONFIG"), &cfg.WatchConfig)

	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("max-response-packet", env("MAX_RESPONSE_PACKET"), &cfg.MaxResponsePacket); err != nil {
		return err
	}
	if err := s.setDuration("store-timeout", env("STORE_TIMEOUT"), &cfg.StoreTimeout); err != nil {
		return err
	}
	return s.setDuration("response-delay", env("RESPONSE_DELAY"), &cfg.ResponseDelay)
}

// ApplyClientEnvConfig applies USTS_* variables to cfg.
func ApplyClientEnvConfig(cfg *ClientConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server", env("SERVER"), &cfg.Server)

	if err := s.setIntFromString("port", env("PORT"), &cfg.Port); err != nil {
		return err
	}
	if err := s.setIntFromString("fragment-size", env("FRAGMENT_SIZE"), &cfg.FragmentSize); err != nil {
		return err
	}
	if err := s.setDuration("send-delay", env("SEND_DELAY"), &cfg.SendDelay); err != nil {
		return err
	}
	return s.setDuration("ack-timeout", env("ACK_TIMEOUT"), &cfg.AckTimeout)
}
