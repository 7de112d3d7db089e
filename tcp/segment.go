// Package tcp implements the TCP-like segment pipeline from spec.md
// §4.4/4.5: TCPReceiver translates inbound wire segments into
// (index, data, FIN) triples for a reassembler.Reassembler and produces
// ACK/window advertisements; TCPSender segments an outbound ByteStream
// into wire segments under a receiver-advertised window, with a single
// retransmission timer.
package tcp

import (
	"github.com/google/uuid"

	"github.com/minnowstack/minnow/wrap32"
)

// ConnID identifies one connection's worth of segments for observability
// purposes (connstats); the core Sender/Receiver types don't use it
// themselves, since spec.md's TCPSender/TCPReceiver have no notion of
// connection identity beyond their own sequence-number space.
type ConnID = uuid.UUID

// Segment is the wire unit this stack exchanges: a simplified TCP
// segment carrying only what spec.md needs (no options, no real
// checksum — those are Non-goals).
type Segment struct {
	Seqno   wrap32.Wrap32
	SYN     bool
	Payload []byte
	FIN     bool
	RST     bool
}

// SequenceLength is SYN + len(Payload) + FIN: how many sequence numbers
// this segment occupies on the wire.
func (s Segment) SequenceLength() int {
	n := len(s.Payload)
	if s.SYN {
		n++
	}
	if s.FIN {
		n++
	}
	return n
}

// ReceiverMessage is the symmetric message flowing the other way: an ACK
// and window advertisement (and RST reflecting receiver-side error).
type ReceiverMessage struct {
	Ackno  *wrap32.Wrap32
	Window uint16
	RST    bool
}
