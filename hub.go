package main

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
)

var (
	errTooManyConns  = errors.New("connection limit reached")
	errTooManyFromIP = errors.New("too many connections from this address")
)

// Hub tracks every live connection and enforces the per-IP and total
// connection caps. Game state lives in the worlds; the hub only owns
// sockets.
type Hub struct {
	cfg *Config
	mm  *MatchManager
	log *zap.Logger

	mu      deadlock.Mutex
	clients map[*Client]struct{}
	perIP   map[string]int
}

func NewHub(cfg *Config, mm *MatchManager, log *zap.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		mm:      mm,
		log:     log,
		clients: make(map[*Client]struct{}),
		perIP:   make(map[string]int),
	}
}

// register admits a new socket, starts its pumps and returns the client.
// Cap violations close the socket immediately.
func (h *Hub) register(conn *websocket.Conn, ip string) (*Client, error) {
	h.mu.Lock()
	if len(h.clients) >= h.cfg.Network.MaxTotalConns {
		h.mu.Unlock()
		return nil, errTooManyConns
	}
	if h.perIP[ip] >= h.cfg.Network.MaxConnsPerIP {
		h.mu.Unlock()
		return nil, errTooManyFromIP
	}
	c := newClient(h, conn, ip)
	h.clients[c] = struct{}{}
	h.perIP[ip]++
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Info("client connected", zap.String("ip", ip), zap.Int("total", total))
	go c.writePump()
	go c.readPump()
	return c, nil
}

// unregister removes a dead client everywhere: socket table, matchmaking
// queue and its world
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	if h.perIP[c.ip] <= 1 {
		delete(h.perIP, c.ip)
	} else {
		h.perIP[c.ip]--
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.mm.Dequeue(c)
	if w, p := c.binding(); w != nil {
		w.RemovePlayer(p.ID)
		c.Unbind()
	}
	c.close()
	h.log.Info("client disconnected", zap.String("ip", c.ip), zap.Int("total", total))
}

// Run sweeps for stale clients until the context is cancelled. A client
// that has sent nothing for the liveness window is evicted even when its
// TCP connection still looks healthy.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.cfg.Network.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

func (h *Hub) sweep() {
	cutoff := nowMillis() - h.cfg.Network.StaleAfter.Milliseconds()
	var stale []*Client
	h.mu.Lock()
	for c := range h.clients {
		if c.lastSeen.Load() < cutoff {
			stale = append(stale, c)
		}
	}
	h.mu.Unlock()

	for _, c := range stale {
		h.log.Info("evicting stale client", zap.String("ip", c.ip))
		h.unregister(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.unregister(c)
	}
}

// ClientCount reports live connections for the stats endpoint
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
