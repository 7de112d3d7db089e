package tcp

import (
	"github.com/minnowstack/minnow/bytestream"
	"github.com/minnowstack/minnow/reassembler"
	"github.com/minnowstack/minnow/wrap32"
)

// MaxWindow is the window advertisement ceiling (a 16-bit field).
const MaxWindow = 65535

// Receiver translates inbound wire Segments into Reassembler inserts and
// produces ACK/window advertisements. See spec.md §4.4.
type Receiver struct {
	isn    *wrap32.Wrap32
	output *bytestream.ByteStream
	reasm  *reassembler.Reassembler
}

// NewReceiver returns a Receiver whose inbound ByteStream has the given
// capacity.
func NewReceiver(capacity int) *Receiver {
	output := bytestream.New(capacity)
	return &Receiver{output: output, reasm: reassembler.New(output)}
}

// Inbound returns the ByteStream the reassembled data is written to, for
// an application to read from.
func (r *Receiver) Inbound() *bytestream.ByteStream { return r.output }

// Receive processes one inbound segment.
func (r *Receiver) Receive(seg Segment) {
	if seg.RST {
		r.output.SetError()
		return
	}
	if seg.SYN && r.isn == nil {
		isn := seg.Seqno
		r.isn = &isn
	}
	if r.isn == nil {
		// No SYN observed yet: no ack is possible.
		return
	}

	var index int64
	if seg.SYN {
		index = 0
	} else {
		// The -1 accounts for the one sequence number SYN consumed.
		index = int64(seg.Seqno.Unwrap(*r.isn, r.output.BytesPushed())) - 1
	}
	r.reasm.Insert(index, seg.Payload, seg.FIN)
}

// Send reports the current ACK/window/RST state to advertise to the
// sender.
func (r *Receiver) Send() ReceiverMessage {
	msg := ReceiverMessage{RST: r.output.HasError()}

	if r.isn != nil {
		extra := uint64(1) + r.output.BytesPushed()
		if r.output.IsClosed() {
			extra++
		}
		ack := r.isn.Add(extra)
		msg.Ackno = &ack
	}

	window := r.output.AvailableCapacity()
	if window > MaxWindow {
		window = MaxWindow
	}
	if window < 0 {
		window = 0
	}
	msg.Window = uint16(window)

	return msg
}
