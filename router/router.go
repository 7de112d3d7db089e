// Package router implements the longest-prefix-match IPv4 forwarder
// described in spec.md §4.7, grounded on
// _examples/original_source/src/router.cc. It fixes the tie-break bug
// flagged in spec.md §9: the original's route() prefers a new matching
// entry over the current best whenever entry.route_prefix >=
// curr_prefix_length — comparing a prefix VALUE against a prefix
// LENGTH — rather than comparing prefix_length to prefix_length. This
// implementation compares lengths, so the longest (not merely
// highest-valued) matching prefix wins, and uses a strict > so that
// among routes tied on length, the first one added wins, per spec.md
// §9.
package router

import (
	"github.com/minnowstack/minnow/netif"
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/wire"
)

// Route is one entry of the forwarding table.
type Route struct {
	Prefix       wire.IP
	PrefixLength uint8
	NextHop      *wire.IP // nil means the destination is directly attached
	Interface    int
}

// Router forwards datagrams received on any attached interface to the
// interface matching the longest prefix in its route table.
type Router struct {
	interfaces []*netif.Interface
	table      []Route
}

// New returns a Router with no interfaces or routes attached.
func New() *Router { return &Router{} }

// AddInterface attaches an interface to the router and returns its
// index, for use as Route.Interface.
func (r *Router) AddInterface(iface *netif.Interface) int {
	r.interfaces = append(r.interfaces, iface)
	return len(r.interfaces) - 1
}

// AddRoute adds a forwarding table entry.
func (r *Router) AddRoute(route Route) {
	hop := "(direct)"
	if route.NextHop != nil {
		hop = route.NextHop.String()
	}
	printer.V(6).Debugf("adding route %s/%d => %s on interface %d\n", route.Prefix, route.PrefixLength, hop, route.Interface)
	r.table = append(r.table, route)
}

// Route drains every attached interface's received datagrams and
// forwards each to the interface selected by longest-prefix-match,
// decrementing TTL and recomputing the checksum first. Datagrams whose
// TTL would reach zero, or for which no route matches, are dropped.
func (r *Router) Route() {
	for _, ni := range r.interfaces {
		for _, dgram := range ni.Received() {
			r.routeOne(dgram)
		}
	}
}

func (r *Router) routeOne(dgram wire.IPv4Datagram) {
	matchIface := -1
	var nextHop *wire.IP
	var bestLen uint8

	for _, entry := range r.table {
		if !longestPrefixMatch(dgram.Dst, entry.Prefix, entry.PrefixLength) {
			continue
		}
		if matchIface == -1 || entry.PrefixLength > bestLen {
			matchIface = entry.Interface
			nextHop = entry.NextHop
			bestLen = entry.PrefixLength
		}
	}

	if !dgram.DecrementTTLAndRecomputeChecksum() {
		return
	}

	if matchIface == -1 {
		return
	}

	if nextHop == nil {
		dst := dgram.Dst
		nextHop = &dst
	}

	r.interfaces[matchIface].SendDatagram(dgram, *nextHop)
}

func longestPrefixMatch(dst, prefix wire.IP, prefixLength uint8) bool {
	if prefixLength == 0 {
		return true
	}
	mask := ^uint32(0) << (32 - prefixLength)
	return uint32(dst)&mask == uint32(prefix)&mask
}
