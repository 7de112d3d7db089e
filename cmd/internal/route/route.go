// Package route implements `minnow route`, which brings up a set of
// network interfaces over UDP-simulated physical links and forwards
// IPv4 datagrams between them according to a configured route table.
// It is the concrete OutputPort and program loop that spec.md leaves
// as an external collaborator to the netif and router modules.
package route

import (
	"context"
	"encoding/hex"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/minnowstack/minnow/cfg"
	"github.com/minnowstack/minnow/netif"
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/router"
	"github.com/minnowstack/minnow/util"
	"github.com/minnowstack/minnow/wire"
)

var configPath string

var Cmd = &cobra.Command{
	Use:   "route",
	Short: "Run a router process over a configured set of interfaces.",
	RunE:  run,
}

func init() {
	Cmd.Flags().StringVar(&configPath, "config", "", "Path to a topology config file (defaults to $HOME/.minnow/topology.yaml)")
}

// udpPort is a netif.OutputPort backed by a UDP socket: each
// transmitted Ethernet frame becomes one UDP datagram to a fixed peer
// address, standing in for a physical link between two interfaces.
type udpPort struct {
	conn *net.UDPConn
	recv chan wire.EthernetFrame
}

func dialUDPPort(local, peer string) (*udpPort, error) {
	laddr, err := net.ResolveUDPAddr("udp", local)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving local address %q", local)
	}
	raddr, err := net.ResolveUDPAddr("udp", peer)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving peer address %q", peer)
	}
	conn, err := net.DialUDP("udp", laddr, raddr)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing peer %q", peer)
	}
	p := &udpPort{conn: conn, recv: make(chan wire.EthernetFrame, 64)}
	go p.readLoop()
	return p, nil
}

func (p *udpPort) readLoop() {
	buf := make([]byte, 65535)
	for {
		n, err := p.conn.Read(buf)
		if err != nil {
			close(p.recv)
			return
		}
		frame, ok := wire.ParseEthernetFrame(buf[:n])
		if !ok {
			continue
		}
		p.recv <- frame
	}
}

func (p *udpPort) Transmit(sender *netif.Interface, frame wire.EthernetFrame) {
	data, err := frame.Serialize()
	if err != nil {
		printer.Stderr.Errorf("%s: failed to serialize frame: %v\n", sender.Name(), err)
		return
	}
	if _, err := p.conn.Write(data); err != nil {
		printer.Stderr.Errorf("%s: failed to transmit frame: %v\n", sender.Name(), err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	topo, err := cfg.LoadTopology(configPath)
	if err != nil {
		return err
	}

	ifaces := make(map[string]*netif.Interface, len(topo.Interfaces))
	ports := make(map[string]*udpPort, len(topo.Interfaces))

	r := router.New()
	ifaceIndex := make(map[string]int, len(topo.Interfaces))

	for _, ic := range topo.Interfaces {
		ethAddr, err := parseMAC(ic.Ethernet)
		if err != nil {
			return errors.Wrapf(err, "interface %q", ic.Name)
		}
		ip := net.ParseIP(ic.IP)
		if ip == nil {
			return errors.Errorf("interface %q: invalid ip %q", ic.Name, ic.IP)
		}

		local, _, err := util.ParseHostPort(ic.PeerSocket)
		if err != nil {
			return errors.Wrapf(err, "interface %q", ic.Name)
		}
		port, err := dialUDPPort(local+":0", ic.PeerSocket)
		if err != nil {
			return errors.Wrapf(err, "interface %q", ic.Name)
		}

		iface := netif.New(ic.Name, port, ethAddr, wire.IPFromNetIP(ip))
		ifaces[ic.Name] = iface
		ports[ic.Name] = port
		ifaceIndex[ic.Name] = r.AddInterface(iface)

		printer.Infof("interface %q up: %s / %s, peer %s\n", ic.Name, ethAddr, ic.IP, ic.PeerSocket)
	}

	for _, rc := range topo.Routes {
		prefixIP, length, err := util.ParseCIDR(rc.Prefix)
		if err != nil {
			return err
		}
		idx, ok := ifaceIndex[rc.Interface]
		if !ok {
			return errors.Errorf("route references unknown interface %q", rc.Interface)
		}
		var nextHop *wire.IP
		if rc.NextHop != "" {
			hopIP := net.ParseIP(rc.NextHop)
			if hopIP == nil {
				return errors.Errorf("invalid next_hop %q", rc.NextHop)
			}
			v := wire.IPFromNetIP(hopIP)
			nextHop = &v
		}
		r.AddRoute(router.Route{
			Prefix:       wire.IPFromNetIP(prefixIP),
			PrefixLength: length,
			NextHop:      nextHop,
			Interface:    idx,
		})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	last := time.Now()

	for _, name := range keysOf(ports) {
		go forwardFrames(ctx, name, ifaces[name], ports[name])
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := uint64(now.Sub(last).Milliseconds())
			last = now
			for _, iface := range ifaces {
				iface.Tick(elapsed)
			}
			r.Route()
		}
	}
}

func forwardFrames(ctx context.Context, name string, iface *netif.Interface, port *udpPort) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-port.recv:
			if !ok {
				return
			}
			iface.RecvFrame(frame)
		}
	}
}

func parseMAC(s string) (wire.EthernetAddress, error) {
	var addr wire.EthernetAddress
	raw, err := hex.DecodeString(canonicalizeMAC(s))
	if err != nil || len(raw) != 6 {
		return addr, errors.Errorf("invalid ethernet address %q", s)
	}
	copy(addr[:], raw)
	return addr, nil
}

func canonicalizeMAC(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != ':' && s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

func keysOf(m map[string]*udpPort) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
