// Package util holds small helpers shared across commands, in the
// spirit of _examples/postmanlabs-observability-cli/util/util.go
// (which this package trims down to the pieces that still apply once
// the cloud-API surface is gone).
package util

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// ParseHostPort splits a "host:port" address, as used for the UDP
// tunnels that stand in for physical links between interfaces.
func ParseHostPort(addr string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid address %q", addr)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return "", 0, errors.Wrapf(err, "invalid port in %q", addr)
	}
	return host, uint16(port), nil
}

// ParseCIDR splits a "a.b.c.d/n" route prefix into its address and
// prefix length, as used by route table entries.
func ParseCIDR(cidr string) (net.IP, uint8, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "invalid CIDR %q", cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return ip, uint8(ones), nil
}
