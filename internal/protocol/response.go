package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxResponsePacket is the largest datagram the server sends back.
const MaxResponsePacket = 512

// Response markers and layouts.
const (
	ResponseStart = "---Response start---"
	ResponseEnd   = "---Response end---"

	// TimestampLayout renders the timestamp sent when a message starts collecting.
	TimestampLayout = "02.01.2006-15:04:05 -07:00"

	// EndTimestampLayout renders the timestamp sent after processing.
	EndTimestampLayout = "02.01.2006 - 15:04:05 -07:00"
)

// Milestone phrases matched by senders.
const (
	PhraseReceived    = "successfully received on server side"
	PhraseFileSaved   = "successfully saved in file on server side"
	PhraseStoreSaved  = "successfully saved into DB on server side"
	PhraseStoreLegacy = "successfully written in DB on server side"

	partMarker = " part "
)

// Milestone identifies a pipeline stage a sender waits for.
type Milestone int

const (
	MilestoneReceived Milestone = iota
	MilestoneFileSaved
	MilestoneStoreSaved
)

// Milestones lists every milestone a complete exchange reports.
var Milestones = []Milestone{MilestoneReceived, MilestoneFileSaved, MilestoneStoreSaved}

// String returns a short name of the milestone.
func (m Milestone) String() string {
	switch m {
	case MilestoneReceived:
		return "received"
	case MilestoneFileSaved:
		return "file"
	case MilestoneStoreSaved:
		return "db"
	default:
		return "unknown"
	}
}

// PartReceivedLine acknowledges one fragment; part is one-based.
func PartReceivedLine(id string, part int) string {
	return fmt.Sprintf("Message with id - %s part %d received", id, part)
}

// ReceivedLine reports that a message was fully reassembled.
func ReceivedLine(id string) string {
	return fmt.Sprintf("Message with id - %s %s", id, PhraseReceived)
}

// FileSavedLine reports a successful file sink write.
func FileSavedLine(id string) string {
	return fmt.Sprintf("Message with id - %s %s", id, PhraseFileSaved)
}

// StoreSavedLine reports a successful store sink write.
func StoreSavedLine(id string) string {
	return fmt.Sprintf("Message with id - %s %s", id, PhraseStoreSaved)
}

// FileFailedLine reports a failed file sink write. The reason is shortened
// so the line fits into one response packet.
func FileFailedLine(id, reason string) string {
	return failureLine(id, "into file", reason)
}

// StoreFailedLine reports a failed store sink write.
func StoreFailedLine(id, reason string) string {
	return failureLine(id, "into DB", reason)
}

func failureLine(id, target, reason string) string {
	head := fmt.Sprintf("Message with id - %s has !ERROR! with writing %s on server side! \nException: ", id, target)
	return head + Truncate(reason, MaxResponsePacket-len(head))
}

// ChainCompletedLine is the aggregate line when every sink succeeded.
func ChainCompletedLine(id string) string {
	return fmt.Sprintf("Transmit chain of message with id - %s completed successfully", id)
}

// ChainFailedLine is the aggregate line when any sink failed.
func ChainFailedLine(id string) string {
	return fmt.Sprintf("Transmit chain of message with id - %s FAILED!", id)
}

// ElapsedLine reports processing time in seconds with two decimals.
func ElapsedLine(d time.Duration) string {
	return fmt.Sprintf("%.2f seconds was spent on processing", d.Seconds())
}

// ParsePartAck extracts the one-based part number from an acknowledgment line.
func ParsePartAck(line string) (int, bool) {
	i := strings.Index(line, partMarker)
	if i < 0 {
		return 0, false
	}
	fields := strings.Fields(line[i+len(partMarker):])
	if len(fields) == 0 {
		return 0, false
	}
	part, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, false
	}
	return part, true
}

// DetectMilestones returns the milestones a response line reports.
func DetectMilestones(line string) []Milestone {
	var found []Milestone
	if strings.Contains(line, PhraseReceived) {
		found = append(found, MilestoneReceived)
	}
	if strings.Contains(line, PhraseFileSaved) {
		found = append(found, MilestoneFileSaved)
	}
	if strings.Contains(line, PhraseStoreSaved) || strings.Contains(line, PhraseStoreLegacy) {
		found = append(found, MilestoneStoreSaved)
	}
	return found
}

// IsResponseEnd reports whether line terminates a response sequence.
func IsResponseEnd(line string) bool {
	return strings.TrimSpace(line) == ResponseEnd
}

// Truncate shortens s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
