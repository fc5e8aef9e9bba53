package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/usts/internal/cliconfig"
	"github.com/bft-labs/usts/internal/configwatch"
	"github.com/bft-labs/usts/internal/metrics"
	"github.com/bft-labs/usts/pkg/log"
	"github.com/bft-labs/usts/pkg/usts"
)

const longHelp = `Receive fragmented text messages over UDP, reassemble them and persist
each message to a data file and a Redis document store.

Every step is reported back to the sender as a status line. The server
runs until interrupted with Ctrl+C or SIGTERM.`

var exampleUsage = strings.TrimSpace(`
  usts-server
  usts-server --port 5367 --data-dir /var/lib/usts --store-url redis://db:6379/0
  usts-server --config $HOME/.usts/config.toml --watch-config --metrics-addr :9102
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultServerConfig()
	var cfgPath string

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "usts-server",
		Short:         "UDP segmented text server",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyServerFileConfig(&cfg, fc.Server, changed); err != nil {
					return err
				}
			}

			// USTS_* variables override the file, flags override both
			if err := cliconfig.ApplyServerEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cfg, cfgFile)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.usts/config.toml)")
	f.StringVar(&cfg.Bind, "bind", cfg.Bind, "address to listen on")
	f.IntVar(&cfg.Port, "port", cfg.Port, "UDP port to listen on")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the data file and server log")
	f.StringVar(&cfg.DataFile, "data-file", cfg.DataFile, "name of the data file inside data-dir")
	f.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "server log file (default: <data-dir>/server.log)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	f.StringVar(&cfg.StoreURL, "store-url", cfg.StoreURL, "Redis URL of the document store")
	f.StringVar(&cfg.StoreCollection, "store-collection", cfg.StoreCollection, "document collection name")
	f.DurationVar(&cfg.StoreTimeout, "store-timeout", cfg.StoreTimeout, "timeout of one store write")
	f.IntVar(&cfg.MaxResponsePacket, "max-response-packet", cfg.MaxResponsePacket, "maximum bytes per response datagram")
	f.DurationVar(&cfg.ResponseDelay, "response-delay", cfg.ResponseDelay, "pause after each response datagram")
	f.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address (disabled when empty)")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload response-delay and log-level when the config file changes")

	if err := root.Execute(); err != nil {
		boot.Error().Err(err).Msg("usts-server")
		os.Exit(1)
	}
}

func run(cfg cliconfig.ServerConfig, cfgFile string) error {
	logger, closer, err := log.NewZerologLogger(log.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info("configuration",
		log.String("bind", cfg.Bind),
		log.Int("port", cfg.Port),
		log.String("data_dir", cfg.DataDir),
		log.String("log_file", cfg.LogFile),
		log.String("store_collection", cfg.StoreCollection),
		log.Duration("response_delay", cfg.ResponseDelay),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	delay := cfg.ResponseDelay
	if delay == 0 {
		delay = usts.NoResponseDelay
	}
	srv, err := usts.NewServer(usts.ServerConfig{
		Bind:              cfg.Bind,
		Port:              cfg.Port,
		DataDir:           cfg.DataDir,
		DataFile:          cfg.DataFile,
		StoreURL:          cfg.StoreURL,
		StoreCollection:   cfg.StoreCollection,
		StoreTimeout:      cfg.StoreTimeout,
		MaxResponsePacket: cfg.MaxResponsePacket,
		ResponseDelay:     delay,
	}, usts.WithLogger(logger), usts.WithMetricsRegisterer(reg))
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if cfg.MetricsAddr != "" {
		ms := &http.Server{Addr: cfg.MetricsAddr, Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", log.Err(err))
			}
		}()
		defer ms.Close()
		logger.Info("serving metrics", log.String("addr", cfg.MetricsAddr))
	}

	if cfg.WatchConfig && cliconfig.FileExists(cfgFile) {
		w := configwatch.New(cfgFile, 0, logger, func(fc cliconfig.FileConfig) {
			if fc.Server.ResponseDelay != "" {
				d, err := time.ParseDuration(fc.Server.ResponseDelay)
				if err != nil || d < 0 {
					logger.Warn("ignoring invalid response_delay", log.String("value", fc.Server.ResponseDelay))
				} else {
					srv.SetResponseDelay(d)
				}
			}
			if fc.Server.LogLevel != "" {
				if err := log.SetLevel(fc.Server.LogLevel); err != nil {
					logger.Warn("ignoring invalid log_level", log.Err(err))
				}
			}
		})
		if err := w.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", log.Err(err))
		} else {
			defer w.Stop()
		}
	}

	<-ctx.Done()
	logger.Info("received signal, stopping...")

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}
