// Package connect implements `minnow connect`, a loopback demo that
// pushes stdin through a tcp.Sender, across a simulated lossy link,
// into a tcp.Receiver, and prints whatever comes out the other side
// to stdout. It exists to exercise the tcp package end to end; unlike
// _examples/original_source/apps/webget.cc it isn't a real network
// client, since spec.md treats wire-format webget-style demos as an
// external concern outside the core modules. The single connection it
// drives is also observed through connstats, so the demo doubles as a
// smoke test for connection-lifecycle tracking.
package connect

import (
	"bufio"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/minnowstack/minnow/connstats"
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/tcp"
	"github.com/minnowstack/minnow/wrap32"
)

var (
	lossRate float64
	delayMs  int
)

var Cmd = &cobra.Command{
	Use:   "connect",
	Short: "Pipe stdin through a simulated lossy link and print what the receiver reassembles.",
	RunE:  run,
}

func init() {
	Cmd.Flags().Float64Var(&lossRate, "loss-rate", 0, "Fraction of segments to drop in each direction, 0 to 1")
	Cmd.Flags().IntVar(&delayMs, "delay-ms", 20, "Simulated one-way link delay in milliseconds")
}

// segmentLink is a lossy, delayed, single-direction channel of
// Segments, standing in for the wire between a Sender and Receiver.
type segmentLink struct {
	out chan tcp.Segment
}

func newSegmentLink() *segmentLink { return &segmentLink{out: make(chan tcp.Segment, 256)} }

func (l *segmentLink) send(seg tcp.Segment) {
	if rand.Float64() < lossRate {
		return
	}
	d := seg
	time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() { l.out <- d })
}

// ackLink carries ReceiverMessages back from the Receiver to the
// Sender.
type ackLink struct {
	out chan tcp.ReceiverMessage
}

func newAckLink() *ackLink { return &ackLink{out: make(chan tcp.ReceiverMessage, 256)} }

func (l *ackLink) send(msg tcp.ReceiverMessage) {
	if rand.Float64() < lossRate {
		return
	}
	d := msg
	time.AfterFunc(time.Duration(delayMs)*time.Millisecond, func() { l.out <- d })
}

func run(cmd *cobra.Command, args []string) error {
	isn := wrap32.Wrap32(uint32(rand.Int63()))
	sender := tcp.NewSender(65535, isn, 100)
	receiver := tcp.NewReceiver(65535)

	connID := tcp.ConnID(uuid.New())
	stats := connstats.New(func(s connstats.Summary) {
		printer.Infof("connection %s (%s) ended as %v\n", s.Name, s.ID, s.EndState)
	})
	defer stats.Close()

	fwd := newSegmentLink() // sender -> receiver
	back := newAckLink()    // receiver -> sender

	done := make(chan struct{})

	// Reader: stdin into the sender's outbound stream.
	go func() {
		defer sender.Outbound().Close()
		r := bufio.NewReader(os.Stdin)
		buf := make([]byte, 4096)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				sender.Outbound().Push(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	// Writer: receiver's inbound stream to stdout.
	go func() {
		defer close(done)
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		for {
			chunk := receiver.Inbound().Peek()
			if len(chunk) > 0 {
				w.Write(chunk)
				w.Flush()
				receiver.Inbound().Pop(len(chunk))
			}
			if receiver.Inbound().IsFinished() {
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	go func() {
		for seg := range fwd.out {
			stats.Observe(connID, connstats.DirectionOutbound, seg, time.Now())
			receiver.Receive(seg)
			back.send(receiver.Send())
		}
	}()
	go func() {
		for msg := range back.out {
			sender.Receive(msg)
		}
	}()

	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-tick.C:
			sender.Push(func(seg tcp.Segment) { fwd.send(seg) })
			sender.Tick(10, func(seg tcp.Segment) { fwd.send(seg) })
			if sender.Outbound().IsFinished() && sender.SequenceNumbersInFlight() == 0 {
				select {
				case <-done:
				case <-time.After(time.Second):
				}
				return nil
			}
		}
	}
}
