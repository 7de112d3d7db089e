// Package netif implements the network interface module described in
// spec.md §4.6: the ARP-driven boundary between IP datagrams and
// Ethernet frames. It is grounded on
// _examples/original_source/src/network_interface.cc, translated from
// its unordered_map/list-based cache into idiomatic Go, and fixes the
// ethertype-dispatch bug noted in spec.md §9: the original's recv_frame
// switches on ethertype with a case that falls through from IPv4 into
// ARP, so every IPv4 frame is also parsed as an (invalid) ARP message.
// This implementation dispatches disjointly instead.
package netif

import (
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/wire"
)

const (
	entryValidMs        = 30 * 1000
	arpResendCooldownMs = 5 * 1000
)

// OutputPort is the physical transmit abstraction; spec.md treats its
// concrete implementation as an external collaborator.
type OutputPort interface {
	Transmit(sender *Interface, frame wire.EthernetFrame)
}

type cacheEntry struct {
	ethAddr wire.EthernetAddress
	valid   bool // true once an ARP reply has been learned; false while a request is outstanding
	stamp   uint64
}

type pendingDatagram struct {
	dgram   wire.IPv4Datagram
	nextHop wire.IP
}

// Interface translates outbound IPv4 datagrams into Ethernet frames
// (resolving the next hop's Ethernet address via ARP) and inbound
// Ethernet frames into received datagrams plus ARP cache updates.
type Interface struct {
	name      string
	port      OutputPort
	ethAddr   wire.EthernetAddress
	ipAddr    wire.IP
	cache     map[wire.IP]*cacheEntry
	pending   []pendingDatagram
	received  []wire.IPv4Datagram
	currentMs uint64
}

// New returns an Interface with the given name, output port, and
// Ethernet/IP addresses.
func New(name string, port OutputPort, ethAddr wire.EthernetAddress, ipAddr wire.IP) *Interface {
	printer.V(4).Debugf("network interface %q has ethernet address %s and IP address %s\n", name, ethAddr, ipAddr)
	return &Interface{
		name:    name,
		port:    port,
		ethAddr: ethAddr,
		ipAddr:  ipAddr,
		cache:   make(map[wire.IP]*cacheEntry),
	}
}

// Name returns the interface's human-readable name.
func (n *Interface) Name() string { return n.name }

// EthernetAddress returns the interface's own MAC address.
func (n *Interface) EthernetAddress() wire.EthernetAddress { return n.ethAddr }

// IPAddress returns the interface's own IP address.
func (n *Interface) IPAddress() wire.IP { return n.ipAddr }

// Received drains and returns the datagrams accumulated since the last
// call.
func (n *Interface) Received() []wire.IPv4Datagram {
	out := n.received
	n.received = nil
	return out
}

// SendDatagram sends dgram to nextHop, encapsulated in an Ethernet
// frame if the next hop's Ethernet address is already known, or queues
// it and issues an ARP request otherwise.
func (n *Interface) SendDatagram(dgram wire.IPv4Datagram, nextHop wire.IP) {
	entry, ok := n.cache[nextHop]
	switch {
	case !ok:
		// Cache the datagram before sending the request, so a reply
		// that arrives before this call returns still has something
		// to flush.
		n.pending = append(n.pending, pendingDatagram{dgram, nextHop})
		n.sendARPRequest(nextHop)
	case entry.valid:
		n.sendIPv4(dgram, entry.ethAddr)
	default:
		// A request is already outstanding; queue behind it.
		n.pending = append(n.pending, pendingDatagram{dgram, nextHop})
	}
}

// RecvFrame processes an inbound Ethernet frame addressed to this
// interface (or broadcast). If it carries an IPv4 datagram, the
// datagram is queued for Received. If it carries an ARP request for
// this interface's own IP, a reply is sent. Either way, the sender's
// address is learned in the ARP cache.
func (n *Interface) RecvFrame(frame wire.EthernetFrame) {
	if frame.Dst != n.ethAddr && frame.Dst != wire.BroadcastEthernetAddress {
		return
	}

	var learnedIP wire.IP
	learned := false

	switch frame.EtherType {
	case wire.EthertypeIPv4:
		if dgram, ok := wire.ParseIPv4Datagram(frame.Payload); ok {
			learnedIP = dgram.Src
			learned = true
			n.received = append(n.received, dgram)
		}
	case wire.EthertypeARP:
		if msg, ok := wire.ParseARPMessage(frame.Payload); ok {
			learnedIP = msg.SenderIP
			learned = true
			if msg.Opcode == wire.ARPRequest && msg.TargetIP == n.ipAddr {
				n.sendARPReply(frame.Src, msg.SenderIP)
			}
		}
	default:
		return
	}

	if !learned {
		return
	}
	n.cache[learnedIP] = &cacheEntry{ethAddr: frame.Src, valid: true, stamp: n.currentMs}
	n.flushPending()
}

// Tick advances the interface's clock and expires cache entries: valid
// entries after entryValidMs, pending (request-sent, no-reply-yet)
// entries after arpResendCooldownMs.
func (n *Interface) Tick(msSinceLastTick uint64) {
	n.currentMs += msSinceLastTick
	for ip, entry := range n.cache {
		elapsed := n.currentMs - entry.stamp
		if (entry.valid && elapsed >= entryValidMs) || (!entry.valid && elapsed >= arpResendCooldownMs) {
			delete(n.cache, ip)
		}
	}
}

func (n *Interface) sendIPv4(dgram wire.IPv4Datagram, ethAddr wire.EthernetAddress) {
	payload, err := dgram.Serialize()
	if err != nil {
		return
	}
	n.transmit(wire.EthernetFrame{Dst: ethAddr, Src: n.ethAddr, EtherType: wire.EthertypeIPv4, Payload: payload})
}

func (n *Interface) sendARPRequest(target wire.IP) {
	msg := wire.ARPMessage{
		Opcode:         wire.ARPRequest,
		SenderEthernet: n.ethAddr,
		SenderIP:       n.ipAddr,
		TargetEthernet: wire.EthernetAddress{},
		TargetIP:       target,
	}
	n.sendARP(wire.BroadcastEthernetAddress, msg)
	n.cache[target] = &cacheEntry{valid: false, stamp: n.currentMs}
}

func (n *Interface) sendARPReply(dst wire.EthernetAddress, target wire.IP) {
	msg := wire.ARPMessage{
		Opcode:         wire.ARPReply,
		SenderEthernet: n.ethAddr,
		SenderIP:       n.ipAddr,
		TargetEthernet: dst,
		TargetIP:       target,
	}
	n.sendARP(dst, msg)
}

func (n *Interface) sendARP(dst wire.EthernetAddress, msg wire.ARPMessage) {
	payload, err := msg.Serialize()
	if err != nil {
		return
	}
	n.transmit(wire.EthernetFrame{Dst: dst, Src: n.ethAddr, EtherType: wire.EthertypeARP, Payload: payload})
}

func (n *Interface) transmit(frame wire.EthernetFrame) {
	if n.port != nil {
		n.port.Transmit(n, frame)
	}
}

func (n *Interface) flushPending() {
	kept := n.pending[:0]
	for _, p := range n.pending {
		entry, ok := n.cache[p.nextHop]
		if ok && entry.valid {
			n.sendIPv4(p.dgram, entry.ethAddr)
		} else {
			kept = append(kept, p)
		}
	}
	n.pending = kept
}
