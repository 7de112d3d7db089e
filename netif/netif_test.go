package netif_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minnowstack/minnow/netif"
	"github.com/minnowstack/minnow/wire"
)

type collector struct {
	frames []wire.EthernetFrame
}

func (c *collector) Transmit(sender *netif.Interface, frame wire.EthernetFrame) {
	c.frames = append(c.frames, frame)
}

func mac(b byte) wire.EthernetAddress {
	return wire.EthernetAddress{b, b, b, b, b, b}
}

func TestSendDatagramWithUnknownNextHopQueuesAndARPs(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A000001), Dst: wire.IP(0x0A000002), Payload: []byte("hi")}
	iface.SendDatagram(dgram, wire.IP(0x0A0000FE))

	require.Len(t, out.frames, 1)
	require.Equal(t, wire.BroadcastEthernetAddress, out.frames[0].Dst)
	require.Equal(t, wire.EthertypeARP, out.frames[0].EtherType)

	msg, ok := wire.ParseARPMessage(out.frames[0].Payload)
	require.True(t, ok)
	require.Equal(t, wire.ARPRequest, msg.Opcode)
	require.Equal(t, wire.IP(0x0A0000FE), msg.TargetIP)
}

func TestARPReplyLearnsMappingAndFlushesQueuedDatagram(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	nextHop := wire.IP(0x0A0000FE)
	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A000001), Dst: wire.IP(0x0A000002), Payload: []byte("hi")}
	iface.SendDatagram(dgram, nextHop)
	require.Len(t, out.frames, 1, "ARP request only, datagram queued")

	reply := wire.ARPMessage{
		Opcode:         wire.ARPReply,
		SenderEthernet: mac(2),
		SenderIP:       nextHop,
		TargetEthernet: mac(1),
		TargetIP:       wire.IP(0x0A000001),
	}
	payload, err := reply.Serialize()
	require.NoError(t, err)
	iface.RecvFrame(wire.EthernetFrame{Dst: mac(1), Src: mac(2), EtherType: wire.EthertypeARP, Payload: payload})

	require.Len(t, out.frames, 2, "cached datagram must flush once the mapping is learned")
	require.Equal(t, mac(2), out.frames[1].Dst)
	require.Equal(t, wire.EthertypeIPv4, out.frames[1].EtherType)

	// A second send to the same next hop should now go straight out, no new ARP.
	iface.SendDatagram(dgram, nextHop)
	require.Len(t, out.frames, 3)
	require.Equal(t, wire.EthertypeIPv4, out.frames[2].EtherType)
}

func TestARPRequestForOurIPTriggersReply(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	req := wire.ARPMessage{
		Opcode:         wire.ARPRequest,
		SenderEthernet: mac(9),
		SenderIP:       wire.IP(0x0A0000FE),
		TargetIP:       wire.IP(0x0A000001),
	}
	payload, err := req.Serialize()
	require.NoError(t, err)
	iface.RecvFrame(wire.EthernetFrame{Dst: wire.BroadcastEthernetAddress, Src: mac(9), EtherType: wire.EthertypeARP, Payload: payload})

	require.Len(t, out.frames, 1)
	reply, ok := wire.ParseARPMessage(out.frames[0].Payload)
	require.True(t, ok)
	require.Equal(t, wire.ARPReply, reply.Opcode)
	require.Equal(t, mac(9), out.frames[0].Dst)
}

func TestRecvFrameIgnoresWrongDestination(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A0000FE), Dst: wire.IP(0x0A000001), Payload: []byte("x")}
	payload, err := dgram.Serialize()
	require.NoError(t, err)
	iface.RecvFrame(wire.EthernetFrame{Dst: mac(99), Src: mac(9), EtherType: wire.EthertypeIPv4, Payload: payload})

	require.Empty(t, iface.Received())
}

func TestRecvFrameIPv4IsQueuedForReceiver(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A0000FE), Dst: wire.IP(0x0A000001), Payload: []byte("x")}
	payload, err := dgram.Serialize()
	require.NoError(t, err)
	iface.RecvFrame(wire.EthernetFrame{Dst: mac(1), Src: mac(9), EtherType: wire.EthertypeIPv4, Payload: payload})

	got := iface.Received()
	require.Len(t, got, 1)
	require.Equal(t, wire.IP(0x0A0000FE), got[0].Src)
	require.Empty(t, iface.Received(), "Received drains the queue")
}

func TestPendingEntryExpiresAndResendsARP(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A000001), Dst: wire.IP(0x0A000002), Payload: []byte("hi")}
	iface.SendDatagram(dgram, wire.IP(0x0A0000FE))
	require.Len(t, out.frames, 1)

	iface.Tick(5001) // past the 5s pending cooldown
	iface.SendDatagram(dgram, wire.IP(0x0A0000FE))
	require.Len(t, out.frames, 2, "the expired pending entry must allow a fresh ARP request")
}

func TestValidEntryDoesNotExpireBeforeThirtySeconds(t *testing.T) {
	out := &collector{}
	iface := netif.New("eth0", out, mac(1), wire.IP(0x0A000001))

	nextHop := wire.IP(0x0A0000FE)
	reply := wire.ARPMessage{Opcode: wire.ARPReply, SenderEthernet: mac(2), SenderIP: nextHop, TargetIP: wire.IP(0x0A000001)}
	payload, err := reply.Serialize()
	require.NoError(t, err)
	iface.RecvFrame(wire.EthernetFrame{Dst: mac(1), Src: mac(2), EtherType: wire.EthertypeARP, Payload: payload})

	iface.Tick(29_000)
	dgram := wire.IPv4Datagram{TTL: 64, Src: wire.IP(0x0A000001), Dst: wire.IP(0x0A000002), Payload: []byte("hi")}
	iface.SendDatagram(dgram, nextHop)
	require.Len(t, out.frames, 1)
	require.Equal(t, wire.EthertypeIPv4, out.frames[0].EtherType, "mapping must still be valid before 30s elapse")
}
