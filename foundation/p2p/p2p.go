// Package p2p provides the websocket transport used by nodes to exchange
// peer messages. Every connection has a read loop that hands messages to
// the handler one at a time and a writer guarded by a mutex.
package p2p

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/ardanlabs/powchain/foundation/blockchain/peer"
	"github.com/gorilla/websocket"
)

// HostHeader carries the host of the dialing node so the accepting side
// can identify it.
const HostHeader = "X-Node-Host"

// DefaultPath is the route peers are accepted on.
const DefaultPath = "/v1/node/peer"

const writeWait = 10 * time.Second

// Handler is called for every message received from a peer.
type Handler interface {
	HandleMessage(from string, msg peer.Message) error
}

// EventHandler defines a function that is called when events occur on the
// connections.
type EventHandler func(v string, args ...any)

// Config represents the settings for the transport.
type Config struct {
	Host      string
	Path      string
	Handler   Handler
	OnConnect func(peerID string)
	EvHandler EventHandler
}

// =============================================================================

// Network manages the websocket connections to the peers of this node.
// It implements the state.Network interface.
type Network struct {
	host      string
	path      string
	handler   Handler
	onConnect func(peerID string)
	evHandler EventHandler
	upgrader  websocket.Upgrader
	dialer    *websocket.Dialer

	mu    sync.RWMutex
	conns map[string]*conn
	open  map[*conn]struct{}
	wg    sync.WaitGroup
}

// New constructs a transport for the node listening on the host.
func New(cfg Config) *Network {
	ev := cfg.EvHandler
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}

	return &Network{
		host:      cfg.Host,
		path:      path,
		handler:   cfg.Handler,
		onConnect: cfg.OnConnect,
		evHandler: ev,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: writeWait,
		},
		conns: make(map[string]*conn),
		open:  make(map[*conn]struct{}),
	}
}

// Connect dials the peer at the host and starts reading from it. The peer
// is identified by the host string.
func (n *Network) Connect(ctx context.Context, host string) error {
	if host == n.host {
		return nil
	}

	n.mu.RLock()
	_, exists := n.conns[host]
	n.mu.RUnlock()
	if exists {
		return nil
	}

	u := url.URL{Scheme: "ws", Host: host, Path: n.path}

	header := http.Header{}
	header.Set(HostHeader, n.host)

	ws, _, err := n.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c := n.register(host, ws)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.readLoop(c)
	}()

	return nil
}

// Accept upgrades the request to a websocket connection and reads from it
// until the connection is closed. The peer is identified by the host it
// sent in the HostHeader, or by its remote address.
func (n *Network) Accept(w http.ResponseWriter, r *http.Request) error {
	id := r.Header.Get(HostHeader)
	if id == "" {
		id = r.RemoteAddr
	}

	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := n.register(id, ws)

	n.wg.Add(1)
	defer n.wg.Done()

	n.readLoop(c)

	return nil
}

// Send writes the message to the peer.
func (n *Network) Send(peerID string, msg peer.Message) error {
	n.mu.RLock()
	c, exists := n.conns[peerID]
	n.mu.RUnlock()

	if !exists {
		return fmt.Errorf("peer %s is not connected", peerID)
	}

	return c.write(msg)
}

// Broadcast writes the message to every peer except the one specified.
// Failures are logged and the remaining peers still receive the message.
func (n *Network) Broadcast(msg peer.Message, except string) {
	n.mu.RLock()
	conns := make([]*conn, 0, len(n.conns))
	for id, c := range n.conns {
		if id != except {
			conns = append(conns, c)
		}
	}
	n.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(msg); err != nil {
			n.evHandler("p2p: broadcast: peer[%s]: msg[%s]: ERROR: %s", c.id, msg.Name, err)
		}
	}
}

// Peers returns the ids of the connected peers in sorted order.
func (n *Network) Peers() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	peers := make([]string, 0, len(n.conns))
	for id := range n.conns {
		peers = append(peers, id)
	}
	slices.Sort(peers)

	return peers
}

// Shutdown closes every connection and waits for the read loops to end.
func (n *Network) Shutdown() {
	n.evHandler("p2p: shutdown: started")
	defer n.evHandler("p2p: shutdown: completed")

	n.mu.Lock()
	for c := range n.open {
		c.close()
	}
	n.mu.Unlock()

	n.wg.Wait()
}

// =============================================================================

// register adds the connection unless the peer is already connected. A
// second connection to the same peer is still read from, but messages to
// the peer are written on the first one.
func (n *Network) register(id string, ws *websocket.Conn) *conn {
	c := conn{id: id, ws: ws}

	n.mu.Lock()
	_, exists := n.conns[id]
	if !exists {
		n.conns[id] = &c
	}
	n.open[&c] = struct{}{}
	n.mu.Unlock()

	n.evHandler("p2p: register: peer[%s]: duplicate[%t]", id, exists)

	if !exists && n.onConnect != nil {
		go n.onConnect(id)
	}

	return &c
}

// readLoop hands every message to the handler until the connection fails.
func (n *Network) readLoop(c *conn) {
	n.evHandler("p2p: readLoop: peer[%s]: started", c.id)
	defer n.evHandler("p2p: readLoop: peer[%s]: completed", c.id)

	defer func() {
		n.mu.Lock()
		if n.conns[c.id] == c {
			delete(n.conns, c.id)
		}
		delete(n.open, c)
		n.mu.Unlock()

		c.ws.Close()
	}()

	for {
		var msg peer.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				n.evHandler("p2p: readLoop: peer[%s]: read: ERROR: %s", c.id, err)
			}
			return
		}

		if n.handler == nil {
			continue
		}

		if err := n.handler.HandleMessage(c.id, msg); err != nil {
			n.evHandler("p2p: readLoop: peer[%s]: msg[%s]: ERROR: %s", c.id, msg.Name, err)
		}
	}
}

// =============================================================================

// conn is a single websocket connection to a peer.
type conn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(msg peer.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(msg)
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown")
	c.ws.WriteControl(websocket.CloseMessage, data, time.Now().Add(time.Second))
	c.ws.Close()
}
