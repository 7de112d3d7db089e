package tcp

import (
	"github.com/minnowstack/minnow/bytestream"
	"github.com/minnowstack/minnow/wrap32"
)

// DefaultMaxPayloadSize is the typical per-segment payload ceiling
// (spec.md §6).
const DefaultMaxPayloadSize = 1000

// Sender segments an outbound ByteStream into wire Segments respecting
// the receiver-advertised window, tracks outstanding bytes, and drives a
// single retransmission timer with exponential backoff. See spec.md
// §4.5.
type Sender struct {
	input *bytestream.ByteStream

	isn        wrap32.Wrap32
	nextSeqno  wrap32.Wrap32
	window     uint16 // receiver-advertised window; treated as 1 before the first ACK
	maxPayload int

	outstanding []Segment
	inFlight    int

	rto0            uint64
	rto             uint64
	consecutiveRetx int
	timer           retransmitTimer

	synSent  bool
	finSent  bool
	finAcked bool
}

// NewSender returns a Sender with the given outbound buffer capacity,
// initial sequence number, and initial retransmission timeout.
func NewSender(capacity int, isn wrap32.Wrap32, initialRTOMs uint64) *Sender {
	return &Sender{
		input:      bytestream.New(capacity),
		isn:        isn,
		nextSeqno:  isn,
		window:     1,
		maxPayload: DefaultMaxPayloadSize,
		rto0:       initialRTOMs,
		rto:        initialRTOMs,
	}
}

// SetMaxPayloadSize overrides DefaultMaxPayloadSize for this sender.
func (s *Sender) SetMaxPayloadSize(n int) { s.maxPayload = n }

// Outbound returns the ByteStream an application writes into.
func (s *Sender) Outbound() *bytestream.ByteStream { return s.input }

// SequenceNumbersInFlight is the sum of SequenceLength over outstanding
// segments.
func (s *Sender) SequenceNumbersInFlight() int { return s.inFlight }

// ConsecutiveRetransmissions is the current backoff counter.
func (s *Sender) ConsecutiveRetransmissions() int { return s.consecutiveRetx }

// MakeEmptyMessage returns a segment with the current sequence number
// and appropriate SYN/RST flags but empty payload and FIN=false, for
// sending a bare ACK or RST.
func (s *Sender) MakeEmptyMessage() Segment {
	return Segment{
		Seqno: s.nextSeqno,
		SYN:   !s.synSent,
		RST:   s.input.HasError(),
	}
}

// Push segments the outbound stream into wire segments and calls
// transmit for each, repeating while more can be sent.
func (s *Sender) Push(transmit func(Segment)) {
	for {
		effectiveWindow := int(s.window)
		if effectiveWindow == 0 {
			effectiveWindow = 1
		}
		room := effectiveWindow - s.inFlight

		synFlag := !s.synSent

		limit := room
		if synFlag {
			limit--
		}
		if limit < 0 {
			limit = 0
		}
		if limit > s.maxPayload {
			limit = s.maxPayload
		}

		payload := append([]byte(nil), s.input.Peek()...)
		if len(payload) > limit {
			payload = payload[:limit]
		}
		s.input.Pop(len(payload))

		finFlag := false
		if s.input.IsFinished() && !s.finSent {
			withFin := len(payload) + 1 // +1 for FIN itself
			if synFlag {
				withFin++
			}
			if withFin <= room {
				finFlag = true
			}
		}

		seg := Segment{
			Seqno:   s.nextSeqno,
			SYN:     synFlag,
			Payload: payload,
			FIN:     finFlag,
			RST:     s.input.HasError(),
		}
		seqLen := seg.SequenceLength()

		if seqLen == 0 || seqLen > room {
			return
		}

		transmit(seg)
		s.outstanding = append(s.outstanding, seg)
		s.inFlight += seqLen
		s.nextSeqno = s.nextSeqno.Add(uint64(seqLen))
		if synFlag {
			s.synSent = true
		}
		if finFlag {
			s.finSent = true
		}
		s.timer.start()
	}
}

// Receive consumes an incoming receiver message: updates the advertised
// window, marks the stream errored on RST, and retires any outstanding
// segments the ack now covers.
func (s *Sender) Receive(msg ReceiverMessage) {
	s.window = msg.Window

	if msg.RST {
		s.input.SetError()
	}

	if msg.Ackno == nil {
		return
	}

	checkpoint := s.input.BytesPopped()
	ackIndex := msg.Ackno.Unwrap(s.isn, checkpoint)
	unsentBoundary := s.nextSeqno.Unwrap(s.isn, checkpoint)
	if ackIndex > unsentBoundary {
		// Cannot ack data that hasn't been sent yet.
		return
	}

	dropped := false
	kept := s.outstanding[:0]
	for _, seg := range s.outstanding {
		segEnd := seg.Seqno.Unwrap(s.isn, checkpoint) + uint64(seg.SequenceLength())
		if segEnd <= ackIndex {
			s.inFlight -= seg.SequenceLength()
			if seg.FIN {
				s.finAcked = true
			}
			dropped = true
		} else {
			kept = append(kept, seg)
		}
	}
	s.outstanding = kept

	if dropped {
		s.rto = s.rto0
		s.consecutiveRetx = 0
		if len(s.outstanding) > 0 {
			s.timer.reset()
		} else {
			s.timer.stop()
		}
	}
}

// Tick advances the retransmission timer and retransmits the head of
// the outstanding list on expiry, backing off exponentially unless the
// receiver's last-known window was zero (a closed-window probe, which
// must not count against the backoff).
func (s *Sender) Tick(dtMs uint64, transmit func(Segment)) {
	if s.finAcked {
		return
	}

	s.timer.tick(dtMs)
	if !s.timer.expired(s.rto) {
		return
	}

	transmit(s.outstanding[0])

	if s.window > 0 {
		s.consecutiveRetx++
		s.rto *= 2
	}
	s.timer.reset()
}
