package tcp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minnowstack/minnow/tcp"
	"github.com/minnowstack/minnow/wrap32"
)

func TestReceiverNoAckBeforeSYN(t *testing.T) {
	r := tcp.NewReceiver(100)
	r.Receive(tcp.Segment{Payload: []byte("data")})
	require.Nil(t, r.Send().Ackno)
}

func TestReceiverSYNThenDataThenFIN(t *testing.T) {
	r := tcp.NewReceiver(100)
	isn := wrap32.Wrap32(42)

	r.Receive(tcp.Segment{Seqno: isn, SYN: true})
	msg := r.Send()
	require.NotNil(t, msg.Ackno)
	require.Equal(t, isn.Add(1), *msg.Ackno)
	require.Equal(t, uint16(100), msg.Window)

	// Seqno for "hello" following SYN is isn+1.
	r.Receive(tcp.Segment{Seqno: isn.Add(1), Payload: []byte("hello")})
	msg = r.Send()
	require.Equal(t, isn.Add(6), *msg.Ackno)
	require.Equal(t, []byte("hello"), r.Inbound().Peek())

	r.Receive(tcp.Segment{Seqno: isn.Add(6), FIN: true})
	msg = r.Send()
	require.Equal(t, isn.Add(7), *msg.Ackno)
	require.True(t, r.Inbound().IsClosed())
}

func TestReceiverRSTSetsStreamError(t *testing.T) {
	r := tcp.NewReceiver(100)
	r.Receive(tcp.Segment{Seqno: wrap32.Wrap32(0), SYN: true})
	r.Receive(tcp.Segment{RST: true})
	require.True(t, r.Send().RST)
}

func TestReceiverWindowReflectsAvailableCapacity(t *testing.T) {
	r := tcp.NewReceiver(10)
	isn := wrap32.Wrap32(0)
	r.Receive(tcp.Segment{Seqno: isn, SYN: true, Payload: []byte("abc")})
	msg := r.Send()
	require.Equal(t, uint16(7), msg.Window)
}
