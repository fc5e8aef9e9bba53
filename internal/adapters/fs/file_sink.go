package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

// DefaultDataFile is the append target inside the data directory.
const DefaultDataFile = "data.txt"

// FileSink implements ports.FileSink by appending records to a text file.
// Appends are serialized, so concurrent messages never interleave.
type FileSink struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewFileSink creates a sink writing to dir/name. Neither needs to exist yet.
func NewFileSink(dir, name string) *FileSink {
	if name == "" {
		name = DefaultDataFile
	}
	return &FileSink{path: filepath.Join(dir, name), now: time.Now}
}

// Append writes one record followed by a blank line.
func (s *FileSink) Append(ctx context.Context, messageID, text string) domain.Outcome {
	if err := ctx.Err(); err != nil {
		return domain.Failed(protocol.FileFailedLine(messageID, shortError(err)))
	}

	record := fmt.Sprintf("%s  messageId: %s, message: %s\n\n",
		s.now().Format(protocol.TimestampLayout), messageID, text)

	if err := s.write(record); err != nil {
		return domain.Failed(protocol.FileFailedLine(messageID, shortError(err)))
	}
	return domain.Succeeded(protocol.FileSavedLine(messageID))
}

func (s *FileSink) write(record string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(record); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Path returns the full path of the data file.
func (s *FileSink) Path() string {
	return s.path
}

// shortError keeps the first line of an error message.
func shortError(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
