package util_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minnowstack/minnow/util"
)

func TestParseHostPort(t *testing.T) {
	host, port, err := util.ParseHostPort("127.0.0.1:9090")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", host)
	require.Equal(t, uint16(9090), port)
}

func TestParseHostPortRejectsMalformed(t *testing.T) {
	_, _, err := util.ParseHostPort("not-an-address")
	require.Error(t, err)
}

func TestParseCIDR(t *testing.T) {
	ip, length, err := util.ParseCIDR("192.168.1.0/24")
	require.NoError(t, err)
	require.Equal(t, uint8(24), length)
	require.Equal(t, "192.168.1.0", ip.String())
}

func TestParseCIDRDefaultRoute(t *testing.T) {
	_, length, err := util.ParseCIDR("0.0.0.0/0")
	require.NoError(t, err)
	require.Equal(t, uint8(0), length)
}
