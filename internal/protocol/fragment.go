package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bft-labs/usts/internal/domain"
)

// Wire constants.
const (
	// Separator delimits the four fields of a fragment packet.
	Separator = ':'

	// EndOfMessage is appended to every message body before segmentation.
	EndOfMessage = "<EOF>"

	// DefaultFragmentSize is the number of message bytes carried per fragment.
	DefaultFragmentSize = 500

	// MaxMessageIDLength bounds ids so every status line fits one response packet.
	MaxMessageIDLength = 128

	// MaxTotalParts bounds the part count a packet may announce.
	MaxTotalParts = 1 << 20

	// fieldCount is the number of fields in a fragment packet.
	fieldCount = 4
)

// EncodeFragment renders a fragment as one datagram.
func EncodeFragment(f domain.Fragment) []byte {
	header := fmt.Sprintf("%s%c%d%c%d%c", f.MessageID, Separator, f.Index, Separator, f.Total, Separator)
	packet := make([]byte, 0, len(header)+len(f.Payload))
	packet = append(packet, header...)
	return append(packet, f.Payload...)
}

// DecodeFragment parses a datagram into a fragment.
// Any structural problem is reported as domain.ErrMalformedPacket.
func DecodeFragment(packet []byte) (domain.Fragment, error) {
	fields := bytes.SplitN(packet, []byte{Separator}, fieldCount)
	if len(fields) != fieldCount {
		return domain.Fragment{}, fmt.Errorf("%w: %d fields, want %d", domain.ErrMalformedPacket, len(fields), fieldCount)
	}

	index, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return domain.Fragment{}, fmt.Errorf("%w: part index: %v", domain.ErrMalformedPacket, err)
	}
	total, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return domain.Fragment{}, fmt.Errorf("%w: total parts: %v", domain.ErrMalformedPacket, err)
	}

	if len(fields[0]) > MaxMessageIDLength {
		return domain.Fragment{}, fmt.Errorf("%w: message id of %d bytes exceeds %d", domain.ErrMalformedPacket, len(fields[0]), MaxMessageIDLength)
	}
	if total > MaxTotalParts {
		return domain.Fragment{}, fmt.Errorf("%w: total parts %d exceeds %d", domain.ErrMalformedPacket, total, MaxTotalParts)
	}

	f := domain.Fragment{
		MessageID: string(fields[0]),
		Index:     index,
		Total:     total,
		Payload:   fields[3],
	}
	if err := f.Validate(); err != nil {
		return domain.Fragment{}, err
	}
	return f, nil
}

// ValidateMessageID checks that id can be carried in the first packet field.
func ValidateMessageID(id string) error {
	if id == "" || len(id) > MaxMessageIDLength || strings.ContainsRune(id, Separator) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMessageID, id)
	}
	return nil
}
