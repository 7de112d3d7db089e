// Package connstats observes TCP-like connection lifecycles as they
// pass through a Sender/Receiver pair and summarizes each one once it
// goes idle, the way _examples/postmanlabs-observability-cli's
// tcp_conn_tracker package summarizes akinet.TCPPacketMetadata into a
// single akinet.TCPConnectionMetadata per connection. This package
// keeps that mutex-protected active-connection map and
// time.AfterFunc-driven idle flush, adapted to this stack's own
// tcp.Segment type and keyed by a tcp.ConnID connection ID instead of
// akid.ConnectionID.
package connstats

import (
	"strings"
	"sync"
	"time"

	randomdata "github.com/Pallinder/go-randomdata"
	cache "github.com/patrickmn/go-cache"
	"github.com/minnowstack/minnow/printer"
	"github.com/minnowstack/minnow/tcp"
)

// Direction records which endpoint initiated the connection.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
)

func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// EndState records how (or whether) a connection ended.
type EndState int

const (
	StillOpen EndState = iota
	Closed
	Reset
)

func (e EndState) String() string {
	switch e {
	case Closed:
		return "closed"
	case Reset:
		return "reset"
	default:
		return "still open"
	}
}

// Summary is the flushed, read-only record of one observed connection.
type Summary struct {
	ID                   tcp.ConnID
	Name                 string
	Direction            Direction
	EndState             EndState
	FirstObservationTime time.Time
	LastObservationTime  time.Time
}

// idleTimeout mirrors tcp_conn_tracker.go's connectionTimeout: how long
// a connection can go without a segment before it's flushed.
const idleTimeout = 30 * time.Second

// Collector observes segments and flushes a Summary per connection to
// a downstream sink once the connection goes idle or the Collector is
// closed. A FIN or RST only records the end state; it does not flush.
type Collector struct {
	sink func(Summary)

	mu     sync.Mutex
	active map[tcp.ConnID]*connectionInfo
	closed bool

	// names caches connection ID -> friendly name, avoiding repeated
	// random-name generation for a connection already seen.
	names *cache.Cache
}

type connectionInfo struct {
	id        tcp.ConnID
	name      string
	direction Direction
	endState  EndState
	first     time.Time
	last      time.Time
	timeout   *time.Timer
}

// New returns a Collector that calls sink with each connection's
// Summary once it is flushed.
func New(sink func(Summary)) *Collector {
	return &Collector{
		sink:   sink,
		active: make(map[tcp.ConnID]*connectionInfo),
		names:  cache.New(10*time.Minute, time.Hour),
	}
}

// Observe records one segment belonging to connection id, initiated
// as the given direction if this is the first segment seen for it.
func (c *Collector) Observe(id tcp.ConnID, dir Direction, seg tcp.Segment, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	info, ok := c.active[id]
	if !ok {
		info = &connectionInfo{
			id:        id,
			name:      c.nameFor(id),
			direction: dir,
			endState:  StillOpen,
			first:     now,
			last:      now,
		}
		info.timeout = time.AfterFunc(idleTimeout, func() { c.flush(id) })
		c.active[id] = info
		printer.Debugf("connstats: new connection %s (%s)\n", info.name, id)
	}

	if now.Before(info.first) {
		info.first = now
	}
	if now.After(info.last) {
		info.last = now
	}
	if info.direction == DirectionUnknown {
		info.direction = dir
	}

	if seg.FIN && info.endState == StillOpen {
		info.endState = Closed
	}
	if seg.RST {
		info.endState = Reset
	}

	info.timeout.Reset(idleTimeout)
}

// nameFor returns a stable, human-readable name for a connection ID,
// generating and caching one on first use (mirrors util.go's
// randomName, generated via the same go-randomdata library).
func (c *Collector) nameFor(id tcp.ConnID) string {
	key := id.String()
	if name, found := c.names.Get(key); found {
		return name.(string)
	}
	name := strings.Join([]string{randomdata.Adjective(), randomdata.Noun()}, "-")
	c.names.Set(key, name, cache.DefaultExpiration)
	return name
}

func (c *Collector) flush(id tcp.ConnID) {
	c.mu.Lock()
	info, ok := c.active[id]
	if ok {
		delete(c.active, id)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	info.timeout.Stop()
	c.sink(Summary{
		ID:                   info.id,
		Name:                 info.name,
		Direction:            info.direction,
		EndState:             info.endState,
		FirstObservationTime: info.first,
		LastObservationTime:  info.last,
	})
}

// Close flushes every still-active connection immediately, cancelling
// their idle timeouts.
func (c *Collector) Close() {
	c.mu.Lock()
	c.closed = true
	ids := make([]tcp.ConnID, 0, len(c.active))
	for id := range c.active {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.flush(id)
	}
}
