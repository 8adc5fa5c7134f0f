// Package link transmits payloads over the node's uplink: a LoRa radio with
// a small maximum packet size, or a serial line.
package link

import "context"

// DefaultMaxPacket is the maximum radio payload per packet.
const DefaultMaxPacket = 256

// Link transmits one logical payload, splitting it as the medium requires.
// Retries are the caller's business.
type Link interface {
	Transmit(ctx context.Context, payload []byte) error
}

// Announcer is implemented by links which mark the start of a message with
// a caption for a human or a capture tool reading the stream.
type Announcer interface {
	Announce(ctx context.Context, caption string) error
}

// Split slices payload into consecutive chunks of at most max bytes. The
// chunks alias payload.
func Split(payload []byte, max int) [][]byte {
	if max <= 0 {
		panic("link: non-positive packet size")
	}
	chunks := make([][]byte, 0, (len(payload)+max-1)/max)
	for len(payload) > 0 {
		n := len(payload)
		if n > max {
			n = max
		}
		chunks = append(chunks, payload[:n])
		payload = payload[n:]
	}
	return chunks
}
