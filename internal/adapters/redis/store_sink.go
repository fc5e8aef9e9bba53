// Package redis implements the document store sink on Redis.
//
// Each message becomes a hash document {messageId, message} under
// "<collection>:doc:<n>", and its key is appended to the "<collection>:docs"
// list. Collections are registered in the "usts:collections" set the first
// time they receive a document.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

// Defaults for the store sink.
const (
	DefaultURL        = "redis://localhost:6379/0"
	DefaultCollection = "messages"
	DefaultTimeout    = 5 * time.Second

	collectionsKey = "usts:collections"
)

// Config configures the Redis store sink.
type Config struct {
	// URL is the Redis connection URL.
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Collection groups stored documents (default: messages).
	Collection string
	// Timeout bounds one Put (default 5s).
	Timeout time.Duration
}

// StoreSink implements ports.StoreSink.
type StoreSink struct {
	config  Config
	client  *goredis.Client
	created atomic.Bool
}

// New creates a store sink. No connection is made until the first Put.
func New(cfg Config) (*StoreSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis store requires a URL")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis store: invalid URL: %w", err)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &StoreSink{config: cfg, client: goredis.NewClient(opts)}, nil
}

// Put stores one document and reports the outcome.
func (s *StoreSink) Put(ctx context.Context, messageID, text string) domain.Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	if err := s.insert(ctx, messageID, text); err != nil {
		return domain.Failed(protocol.StoreFailedLine(messageID, shortError(err)))
	}
	return domain.Succeeded(protocol.StoreSavedLine(messageID))
}

func (s *StoreSink) insert(ctx context.Context, messageID, text string) error {
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	seq, err := s.client.Incr(ctx, s.key("next_id")).Result()
	if err != nil {
		return err
	}
	doc := s.key(fmt.Sprintf("doc:%d", seq))

	_, err = s.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.HSet(ctx, doc, "messageId", messageID, "message", text)
		p.RPush(ctx, s.key("docs"), doc)
		return nil
	})
	return err
}

// ensureCollection registers the collection if it is not known yet.
func (s *StoreSink) ensureCollection(ctx context.Context) error {
	if s.created.Load() {
		return nil
	}
	exists, err := s.client.SIsMember(ctx, collectionsKey, s.config.Collection).Result()
	if err != nil {
		return err
	}
	if !exists {
		if err := s.client.SAdd(ctx, collectionsKey, s.config.Collection).Err(); err != nil {
			return err
		}
	}
	s.created.Store(true)
	return nil
}

func (s *StoreSink) key(suffix string) string {
	return s.config.Collection + ":" + suffix
}

// Close releases the connection pool.
func (s *StoreSink) Close() error {
	return s.client.Close()
}

func shortError(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
