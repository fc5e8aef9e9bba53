package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/usts/internal/cliconfig"
	"github.com/bft-labs/usts/pkg/log"
	"github.com/bft-labs/usts/pkg/usts"
)

const exitCommand = "exit"

var exampleUsage = strings.TrimSpace(`
  usts
  usts --server 192.168.1.10 --port 5367
  usts --server 10.0.0.2 --ack-timeout 30s
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultClientConfig()
	var cfgPath string
	var verbose bool

	boot := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:           "usts",
		Short:         "Send text messages to a usts-server",
		Long:          "Interactive console that sends each entered message to a usts-server and prints the server's progress.",
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
				if err := cliconfig.ApplyClientFileConfig(&cfg, fc.Client, changed); err != nil {
					return err
				}
			}
			if err := cliconfig.ApplyClientEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var logger log.Logger = log.NewNoopLogger()
			if verbose {
				zl, closer, err := log.NewZerologLogger(log.Options{Level: "debug"})
				if err != nil {
					return err
				}
				defer closer.Close()
				logger = zl
			}

			return console(cmd.OutOrStdout(), cfg, logger)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.usts/config.toml)")
	f.StringVar(&cfg.Server, "server", cfg.Server, "server IP address or host (prompted when empty)")
	f.IntVar(&cfg.Port, "port", cfg.Port, "server UDP port")
	f.IntVar(&cfg.FragmentSize, "fragment-size", cfg.FragmentSize, "message bytes per datagram")
	f.DurationVar(&cfg.SendDelay, "send-delay", cfg.SendDelay, "pause after each datagram")
	f.DurationVar(&cfg.AckTimeout, "ack-timeout", cfg.AckTimeout, "give up waiting for the server after this long (0 waits forever)")
	f.BoolVarP(&verbose, "verbose", "v", false, "log exchange diagnostics to stderr")

	if err := root.Execute(); err != nil {
		boot.Error().Err(err).Msg("usts")
		os.Exit(1)
	}
}

// console reads messages until the user enters exit.
func console(out io.Writer, cfg cliconfig.ClientConfig, logger log.Logger) error {
	if cfg.Server == "" {
		prompt := &survey.Input{Message: "Enter server IP address:"}
		if err := survey.AskOne(prompt, &cfg.Server, survey.WithValidator(survey.Required)); err != nil {
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			return err
		}
		cfg.Server = strings.TrimSpace(cfg.Server)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	c := usts.NewClient(usts.ClientConfig{
		Server:       cfg.Address(),
		FragmentSize: cfg.FragmentSize,
		SendDelay:    cfg.SendDelay,
		AckTimeout:   cfg.AckTimeout,
		Output:       out,
		Logger:       logger,
	})

	fmt.Fprintf(out, "Enter '%s' if you want to close the program\n", exitCommand)
	for {
		var msg string
		if err := survey.AskOne(&survey.Input{Message: "Enter your message:"}, &msg); err != nil {
			if errors.Is(err, terminal.InterruptErr) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if msg == exitCommand {
			return nil
		}

		if err := send(c, msg); err != nil {
			fmt.Fprintf(out, "Message was not confirmed: %v\n", err)
		}
		fmt.Fprintln(out)
	}
}

// send runs one exchange. Ctrl+C aborts the wait and returns to the prompt.
func send(c *usts.Client, msg string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := c.Send(ctx, msg)
	if err != nil {
		if errors.Is(err, usts.ErrExchangeAborted) {
			return fmt.Errorf("%d of %d parts acknowledged: %w", res.AckedParts, res.Parts, err)
		}
		return err
	}
	if !res.Succeeded() {
		return fmt.Errorf("server reported a failure for message %s", res.MessageID)
	}
	return nil
}
