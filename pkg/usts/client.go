package usts

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/bft-labs/usts/internal/client"
	"github.com/bft-labs/usts/internal/protocol"
	"github.com/bft-labs/usts/pkg/log"
)

// Result summarizes one client exchange.
type Result = client.Result

// ClientConfig configures a Client. Zero values select defaults.
type ClientConfig struct {
	// Server is the server host. Port is appended unless Server already
	// carries one.
	Server string
	Port   int

	// FragmentSize is the number of message bytes per datagram (default 500).
	FragmentSize int
	// SendDelay is the pause after every fragment (default 100ms).
	SendDelay time.Duration
	// AckTimeout bounds the wait for the response sequence. Zero waits for
	// the context.
	AckTimeout time.Duration

	// Output receives progress and response lines. Nil discards them.
	Output io.Writer
	// Logger receives diagnostics. Nil disables logging.
	Logger log.Logger
}

// Client sends messages to a server one at a time.
type Client struct {
	tx *client.Transmitter
}

// NewClient creates a client. No socket is opened until Send.
func NewClient(cfg ClientConfig) *Client {
	addr := cfg.Server
	if _, _, err := net.SplitHostPort(addr); err != nil {
		port := cfg.Port
		if port == 0 {
			port = DefaultPort
		}
		addr = net.JoinHostPort(addr, strconv.Itoa(port))
	}
	if cfg.FragmentSize <= 0 {
		cfg.FragmentSize = protocol.DefaultFragmentSize
	}
	if cfg.SendDelay == 0 {
		cfg.SendDelay = client.DefaultSendDelay
	}

	var opts []client.Option
	if cfg.Output != nil {
		opts = append(opts, client.WithOutput(cfg.Output))
	}
	if cfg.Logger != nil {
		opts = append(opts, client.WithLogger(cfg.Logger))
	}

	return &Client{
		tx: client.New(client.Config{
			Server:       addr,
			FragmentSize: cfg.FragmentSize,
			SendDelay:    cfg.SendDelay,
			AckTimeout:   cfg.AckTimeout,
		}, opts...),
	}
}

// Send transmits body and blocks until the server ends the response
// sequence, ctx is cancelled or AckTimeout expires.
func (c *Client) Send(ctx context.Context, body string) (Result, error) {
	return c.tx.Send(ctx, body)
}
