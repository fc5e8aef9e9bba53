package ports

import (
	"context"

	"github.com/bft-labs/usts/internal/domain"
)

// FileSink persists a reassembled message to a local file.
// Failures are reported through the outcome, never by panicking.
type FileSink interface {
	Append(ctx context.Context, messageID, text string) domain.Outcome
}

// StoreSink persists a reassembled message as a document in a store.
type StoreSink interface {
	Put(ctx context.Context, messageID, text string) domain.Outcome
}
