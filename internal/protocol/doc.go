// Package protocol implements the USTS wire format.
//
// A message is sent as a series of text datagrams of the form
//
//	messageId:partIndex:totalParts:payload
//
// where payload is a raw slice of the message bytes followed by the
// end-of-message marker. Only the first three separators are significant, so
// payloads may contain colons.
//
// Responses travel the other way as free-text status lines with no header.
// Senders interpret them by substring match, so the line builders in this
// package are the single source of the phrases both sides rely on.
package protocol
