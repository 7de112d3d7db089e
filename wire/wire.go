// Package wire gives a concrete home to the codecs that spec.md assumes
// are available: Ethernet II frames, ARP messages, and IPv4 datagrams.
// It wraps github.com/google/gopacket/layers (the same library the
// teacher uses throughout pcap/ to build and parse packets) rather than
// hand-rolling header layout, since real TCP/IP wire formats are exactly
// what that library exists for.
//
// The TCP-like segment and receiver message described in spec.md §4.3/4.4
// are NOT real TCP and are defined in the tcp package instead; they carry
// only {seqno, SYN, payload, FIN, RST}, not TCP options or a checksum.
package wire

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/pkg/errors"
)

// EthernetAddress is a 6-byte MAC address.
type EthernetAddress [6]byte

// BroadcastEthernetAddress is the all-ones Ethernet destination used for
// ARP requests.
var BroadcastEthernetAddress = EthernetAddress{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (a EthernetAddress) String() string {
	return net.HardwareAddr(a[:]).String()
}

// Ethertype values this stack understands.
const (
	EthertypeIPv4 uint16 = 0x0800
	EthertypeARP  uint16 = 0x0806
)

// IP is a raw 32-bit IPv4 address, stored and compared the way the
// original router/ARP logic does (as a numeric value, not a net.IP).
type IP uint32

// IPFromNetIP converts a net.IP (v4) to the numeric representation.
func IPFromNetIP(ip net.IP) IP {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return IP(binary.BigEndian.Uint32(v4))
}

// ToNetIP renders the address back to a net.IP.
func (ip IP) ToNetIP() net.IP {
	out := make(net.IP, 4)
	binary.BigEndian.PutUint32(out, uint32(ip))
	return out
}

func (ip IP) String() string { return ip.ToNetIP().String() }

// EthernetFrame is an Ethernet II frame: {dst, src, ethertype, payload}.
type EthernetFrame struct {
	Dst, Src  EthernetAddress
	EtherType uint16
	Payload   []byte
}

// Serialize renders the frame to wire bytes.
func (f EthernetFrame) Serialize() ([]byte, error) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(append([]byte(nil), f.Src[:]...)),
		DstMAC:       net.HardwareAddr(append([]byte(nil), f.Dst[:]...)),
		EthernetType: layers.EthernetType(f.EtherType),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, gopacket.Payload(f.Payload)); err != nil {
		return nil, errors.Wrap(err, "serialize ethernet frame")
	}
	return buf.Bytes(), nil
}

// ParseEthernetFrame decodes a frame, reporting false on malformed input.
func ParseEthernetFrame(data []byte) (EthernetFrame, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	layer := packet.Layer(layers.LayerTypeEthernet)
	if layer == nil {
		return EthernetFrame{}, false
	}
	eth, ok := layer.(*layers.Ethernet)
	if !ok || len(eth.SrcMAC) != 6 || len(eth.DstMAC) != 6 {
		return EthernetFrame{}, false
	}

	var frame EthernetFrame
	copy(frame.Dst[:], eth.DstMAC)
	copy(frame.Src[:], eth.SrcMAC)
	frame.EtherType = uint16(eth.EthernetType)
	frame.Payload = append([]byte(nil), eth.Payload...)
	return frame, true
}

// ARPOpcode distinguishes ARP requests from replies.
type ARPOpcode uint16

const (
	ARPRequest ARPOpcode = 1
	ARPReply   ARPOpcode = 2
)

// ARPMessage is an ARP message over Ethernet/IPv4.
type ARPMessage struct {
	Opcode                        ARPOpcode
	SenderEthernet, TargetEthernet EthernetAddress
	SenderIP, TargetIP            IP
}

// Serialize renders the ARP message to wire bytes (the ARP payload only,
// not wrapped in an Ethernet frame).
func (m ARPMessage) Serialize() ([]byte, error) {
	arp := &layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         uint16(m.Opcode),
		SourceHwAddress:   append([]byte(nil), m.SenderEthernet[:]...),
		SourceProtAddress: m.SenderIP.ToNetIP(),
		DstHwAddress:      append([]byte(nil), m.TargetEthernet[:]...),
		DstProtAddress:    m.TargetIP.ToNetIP(),
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true}, arp); err != nil {
		return nil, errors.Wrap(err, "serialize arp message")
	}
	return buf.Bytes(), nil
}

// ParseARPMessage decodes an ARP message, reporting false on malformed
// input.
func ParseARPMessage(data []byte) (ARPMessage, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeARP, gopacket.NoCopy)
	layer := packet.Layer(layers.LayerTypeARP)
	if layer == nil {
		return ARPMessage{}, false
	}
	arp, ok := layer.(*layers.ARP)
	if !ok || len(arp.SourceHwAddress) != 6 || len(arp.DstHwAddress) != 6 {
		return ARPMessage{}, false
	}

	var msg ARPMessage
	msg.Opcode = ARPOpcode(arp.Operation)
	copy(msg.SenderEthernet[:], arp.SourceHwAddress)
	copy(msg.TargetEthernet[:], arp.DstHwAddress)
	msg.SenderIP = IPFromNetIP(net.IP(arp.SourceProtAddress))
	msg.TargetIP = IPFromNetIP(net.IP(arp.DstProtAddress))
	return msg, true
}

// IPv4Datagram is an IPv4 header plus payload, carrying only the fields
// this stack's router and interface care about (TTL, protocol, checksum,
// addresses); options and fragmentation are Non-goals.
type IPv4Datagram struct {
	TTL      uint8
	Protocol uint8
	Checksum uint16
	Src, Dst IP
	Payload  []byte
}

// Serialize renders the datagram to wire bytes, recomputing the header
// checksum for the current field values.
func (d IPv4Datagram) Serialize() ([]byte, error) {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      d.TTL,
		Protocol: layers.IPProtocol(d.Protocol),
		SrcIP:    d.Src.ToNetIP(),
		DstIP:    d.Dst.ToNetIP(),
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, gopacket.Payload(d.Payload)); err != nil {
		return nil, errors.Wrap(err, "serialize ipv4 datagram")
	}
	return buf.Bytes(), nil
}

// ParseIPv4Datagram decodes a datagram, reporting false on malformed
// input.
func ParseIPv4Datagram(data []byte) (IPv4Datagram, bool) {
	packet := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.NoCopy)
	layer := packet.Layer(layers.LayerTypeIPv4)
	if layer == nil {
		return IPv4Datagram{}, false
	}
	ip, ok := layer.(*layers.IPv4)
	if !ok {
		return IPv4Datagram{}, false
	}

	return IPv4Datagram{
		TTL:      ip.TTL,
		Protocol: uint8(ip.Protocol),
		Checksum: ip.Checksum,
		Src:      IPFromNetIP(ip.SrcIP),
		Dst:      IPFromNetIP(ip.DstIP),
		Payload:  append([]byte(nil), ip.Payload...),
	}, true
}

// DecrementTTLAndRecomputeChecksum decrements TTL by one and recomputes
// the header checksum for the new TTL, as a forwarding router must.
// Reports false, which callers must treat as "drop", when the TTL is 0
// after the decrement (a datagram that arrived with TTL 1), when it
// arrived with TTL 0 (left at 0), or when re-serialization fails.
func (d *IPv4Datagram) DecrementTTLAndRecomputeChecksum() bool {
	if d.TTL == 0 {
		return false
	}
	d.TTL--

	raw, err := d.Serialize()
	if err != nil {
		return false
	}
	reparsed, ok := ParseIPv4Datagram(raw)
	if !ok {
		return false
	}
	d.Checksum = reparsed.Checksum
	return d.TTL != 0
}
