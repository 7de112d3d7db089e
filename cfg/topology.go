package cfg

import (
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const topologyFileName = "topology"

// InterfaceConfig describes one network interface to bring up.
type InterfaceConfig struct {
	Name       string `mapstructure:"name"`
	Ethernet   string `mapstructure:"ethernet"`
	IP         string `mapstructure:"ip"`
	PeerSocket string `mapstructure:"peer"` // "host:port", a local UDP tunnel to the other side
}

// RouteConfig describes one forwarding table entry, following the same
// {prefix, prefix_length, next_hop, interface} shape as
// Router::add_route in _examples/original_source/src/router.cc.
type RouteConfig struct {
	Prefix       string `mapstructure:"prefix"`
	PrefixLength uint8  `mapstructure:"prefix_length"`
	NextHop      string `mapstructure:"next_hop"` // empty means directly attached
	Interface    string `mapstructure:"interface"`
}

// Topology is the full set of interfaces and routes a `minnow route`
// invocation should configure.
type Topology struct {
	Interfaces []InterfaceConfig `mapstructure:"interfaces"`
	Routes     []RouteConfig     `mapstructure:"routes"`
}

// LoadTopology reads a topology config from path, or from
// $HOME/.minnow/topology.yaml if path is empty.
func LoadTopology(path string) (Topology, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(topologyFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(cfgDir)
	}

	var topo Topology
	if err := v.ReadInConfig(); err != nil {
		return topo, errors.Wrap(err, "failed to read topology config")
	}
	if err := v.Unmarshal(&topo); err != nil {
		return topo, errors.Wrap(err, "failed to parse topology config")
	}
	return topo, nil
}

// DefaultTopologyPath returns the conventional location for the
// topology file under the config directory.
func DefaultTopologyPath() string {
	return filepath.Join(cfgDir, topologyFileName+".yaml")
}
