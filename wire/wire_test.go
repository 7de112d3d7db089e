package wire_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minnowstack/minnow/wire"
)

func TestEthernetFrameRoundTrip(t *testing.T) {
	frame := wire.EthernetFrame{
		Dst:       wire.EthernetAddress{1, 2, 3, 4, 5, 6},
		Src:       wire.EthernetAddress{6, 5, 4, 3, 2, 1},
		EtherType: wire.EthertypeIPv4,
		Payload:   []byte("hello"),
	}
	raw, err := frame.Serialize()
	require.NoError(t, err)

	got, ok := wire.ParseEthernetFrame(raw)
	require.True(t, ok)
	require.Equal(t, frame.Dst, got.Dst)
	require.Equal(t, frame.Src, got.Src)
	require.Equal(t, frame.EtherType, got.EtherType)
	require.Equal(t, frame.Payload, got.Payload)
}

func TestParseEthernetFrameRejectsGarbage(t *testing.T) {
	_, ok := wire.ParseEthernetFrame([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestARPMessageRoundTrip(t *testing.T) {
	msg := wire.ARPMessage{
		Opcode:         wire.ARPRequest,
		SenderEthernet: wire.EthernetAddress{1, 1, 1, 1, 1, 1},
		SenderIP:       wire.IPFromNetIP(net.ParseIP("10.0.0.1")),
		TargetEthernet: wire.EthernetAddress{},
		TargetIP:       wire.IPFromNetIP(net.ParseIP("10.0.0.2")),
	}
	raw, err := msg.Serialize()
	require.NoError(t, err)

	got, ok := wire.ParseARPMessage(raw)
	require.True(t, ok)
	require.Equal(t, msg.Opcode, got.Opcode)
	require.Equal(t, msg.SenderEthernet, got.SenderEthernet)
	require.Equal(t, msg.SenderIP, got.SenderIP)
	require.Equal(t, msg.TargetIP, got.TargetIP)
}

func TestIPv4DatagramRoundTrip(t *testing.T) {
	d := wire.IPv4Datagram{
		TTL:      64,
		Protocol: 6,
		Src:      wire.IPFromNetIP(net.ParseIP("192.168.1.1")),
		Dst:      wire.IPFromNetIP(net.ParseIP("192.168.1.2")),
		Payload:  []byte("payload"),
	}
	raw, err := d.Serialize()
	require.NoError(t, err)

	got, ok := wire.ParseIPv4Datagram(raw)
	require.True(t, ok)
	require.Equal(t, d.TTL, got.TTL)
	require.Equal(t, d.Src, got.Src)
	require.Equal(t, d.Dst, got.Dst)
	require.Equal(t, d.Payload, got.Payload)
	require.NotZero(t, got.Checksum)
}

func TestDecrementTTLRecomputesChecksum(t *testing.T) {
	d := wire.IPv4Datagram{
		TTL:      2,
		Src:      wire.IPFromNetIP(net.ParseIP("10.0.0.1")),
		Dst:      wire.IPFromNetIP(net.ParseIP("10.0.0.2")),
		Payload:  []byte("x"),
	}
	before := d.Checksum
	ok := d.DecrementTTLAndRecomputeChecksum()
	require.True(t, ok)
	require.Equal(t, uint8(1), d.TTL)
	require.NotEqual(t, before, d.Checksum)
}

func TestDecrementTTLToZeroReportsDrop(t *testing.T) {
	d := wire.IPv4Datagram{TTL: 1}
	ok := d.DecrementTTLAndRecomputeChecksum()
	require.False(t, ok)
	require.Equal(t, uint8(0), d.TTL)
}
