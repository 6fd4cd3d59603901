package main

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendBufferSize = 64

	chatWindowMs  = 1000
	chatWindowMax = 2
)

type outFrame struct {
	binary bool
	data   []byte
}

// Client is one websocket connection. The read pump dispatches messages,
// the write pump serializes all outbound traffic; game code only ever
// pushes frames into the send buffer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  *zap.Logger
	ip   string

	send chan outFrame

	mu     sync.Mutex // guards binding, codec, chat window and closed
	world  *World
	player *Player
	binary bool
	closed bool

	chatTimes []int64

	lastSeen atomic.Int64 // ms, any inbound message

	msgWindow int64 // second bucket for the inbound rate limit
	msgCount  int
}

func newClient(hub *Hub, conn *websocket.Conn, ip string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		log:  hub.log,
		ip:   ip,
		send: make(chan outFrame, sendBufferSize),
	}
	c.lastSeen.Store(nowMillis())
	return c
}

// Bind attaches the client to a world it has entered
func (c *Client) Bind(w *World, p *Player) {
	c.mu.Lock()
	c.world = w
	c.player = p
	c.mu.Unlock()
}

// Unbind detaches the client from its world, leaving the socket open
func (c *Client) Unbind() {
	c.mu.Lock()
	c.world = nil
	c.player = nil
	c.mu.Unlock()
}

func (c *Client) binding() (*World, *Player) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world, c.player
}

// WantsBinary reports whether the client asked for msgpack snapshots
func (c *Client) WantsBinary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.binary
}

// SendJSON marshals and queues a text frame
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error("marshal outbound", zap.Error(err))
		return
	}
	c.SendRaw(data)
}

// SendRaw queues a pre-marshaled text frame
func (c *Client) SendRaw(data []byte) {
	c.push(outFrame{data: data})
}

// SendPacked queues a pre-encoded binary frame
func (c *Client) SendPacked(data []byte) {
	c.push(outFrame{binary: true, data: data})
}

// push never blocks: a client that cannot drain its buffer is closed
func (c *Client) push(f outFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- f:
	default:
		c.closeLocked()
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// closeLocked shuts the send buffer, which unwinds the write pump and with
// it the socket. Caller holds mu.
func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// writePump serializes all writes to the socket and keeps the protocol
// ping/pong alive. Exits when the send buffer is closed.
func (c *Client) writePump() {
	pingEvery := c.hub.cfg.Network.PongWait * 9 / 10
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case f, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.Network.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			kind := websocket.TextMessage
			if f.binary {
				kind = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(kind, f.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.Network.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes and dispatches inbound messages until the socket dies
func (c *Client) readPump() {
	defer c.hub.unregister(c)

	pongWait := c.hub.cfg.Network.PongWait
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		now := nowMillis()
		c.lastSeen.Store(now)
		if !c.allowMessage(now) {
			continue
		}
		c.dispatch(data)
	}
}

// allowMessage enforces the per-connection inbound rate limit with a
// one-second bucket
func (c *Client) allowMessage(nowMs int64) bool {
	now := nowMs / 1000
	if now != c.msgWindow {
		c.msgWindow = now
		c.msgCount = 0
	}
	c.msgCount++
	return c.msgCount <= c.hub.cfg.Network.MaxMessagesPerSec
}

// dispatch handles one inbound message. A panic in a handler is contained
// to this message: the client gets an error notice and the socket lives.
func (c *Client) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("message fault", zap.String("ip", c.ip), zap.Any("panic", r))
			c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "internal error"}})
		}
	}()

	// Unparseable frames are dropped without a reply.
	var env InEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}

	switch env.T {
	case MsgJoin:
		var m JoinMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		c.handleJoin(m)
	case MsgQueue:
		var m JoinMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		c.handleQueue(m)
	case MsgQueueCancel:
		c.hub.mm.Dequeue(c)
	case MsgLeave:
		c.handleLeave()
	case MsgInput:
		var m InputMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		if w, p := c.binding(); w != nil {
			w.StageInput(p.ID, m.X, m.Y)
		}
	case MsgCast:
		var m CastMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		if w, p := c.binding(); w != nil {
			w.StageCast(p.ID, m)
		}
	case MsgChat:
		var m ChatMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		c.handleChat(m)
	case MsgPing:
		var m PingMsg
		if err := json.Unmarshal(env.D, &m); err != nil {
			return
		}
		c.SendJSON(Envelope{T: MsgPong, Data: PingMsg{T: m.T}})
	}
}

func (c *Client) handleJoin(m JoinMsg) {
	if w, _ := c.binding(); w != nil {
		return // already in a world
	}
	c.mu.Lock()
	c.binary = m.Codec == "msgpack"
	c.mu.Unlock()

	w, p, err := c.hub.mm.JoinStanding(c, m.Name, m.Class)
	if err != nil {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: err.Error()}})
		return
	}
	c.Bind(w, p)
	c.SendJSON(newWelcome(w, p, c.hub.cfg.Game.TickRate))
}

func (c *Client) handleQueue(m JoinMsg) {
	// Queueing from inside the standing world leaves it first.
	if w, p := c.binding(); w != nil {
		w.RemovePlayer(p.ID)
		c.Unbind()
	}
	c.mu.Lock()
	c.binary = c.binary || m.Codec == "msgpack"
	c.mu.Unlock()
	c.hub.mm.Enqueue(c, m.Name, m.Class)
}

func (c *Client) handleLeave() {
	c.hub.mm.Dequeue(c)
	if w, p := c.binding(); w != nil {
		w.RemovePlayer(p.ID)
		c.Unbind()
	}
}

// handleChat relays a sanitized chat line to the client's world, holding a
// rolling window of two messages per second per sender
func (c *Client) handleChat(m ChatMsg) {
	w, p := c.binding()
	if w == nil {
		return
	}
	text := SanitizeChat(m.Text, 240)
	if text == "" {
		return
	}
	if !c.allowChat(nowMillis()) {
		c.SendJSON(Envelope{T: MsgChatBlocked, Data: ChatMsg{Text: "slow down"}})
		return
	}
	w.broadcastAll(Envelope{T: MsgChatOut, Data: ChatMsg{From: p.Name, Text: text}})
}

func (c *Client) allowChat(now int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.chatTimes[:0]
	for _, t := range c.chatTimes {
		if now-t < chatWindowMs {
			kept = append(kept, t)
		}
	}
	c.chatTimes = kept
	if len(c.chatTimes) >= chatWindowMax {
		return false
	}
	c.chatTimes = append(c.chatTimes, now)
	return true
}
