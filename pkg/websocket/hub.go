// Package websocket keeps open views of the same quiz attempt in sync.
// Each attempt is a room; the service broadcasts answer and submit
// events into it.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"course-portal/internal/apperr"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Message is the envelope for everything sent over a socket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Authorizer decides whether the request may join room.
type Authorizer func(r *http.Request, room string) error

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	authorize Authorizer
	upgrader  websocket.Upgrader
}

// NewHub builds a hub. An empty origins list accepts any origin.
func NewHub(authorize Authorizer, origins []string) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		authorize:  authorize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
	}
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

// Run owns room membership until ctx is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.rooms[c.room] == nil {
				h.rooms[c.room] = make(map[*Client]bool)
			}
			h.rooms[c.room][c] = true
			count := len(h.rooms[c.room])
			h.mu.Unlock()
			glog.V(2).Infof("client joined room %s (%d viewers)", c.room, count)
			go h.BroadcastMessage(c.room, "viewers", map[string]int{"count": count})

		case c := <-h.unregister:
			h.mu.Lock()
			room, ok := h.rooms[c.room]
			if ok && room[c] {
				delete(room, c)
				close(c.send)
			}
			count := len(room)
			if ok && count == 0 {
				delete(h.rooms, c.room)
			}
			h.mu.Unlock()
			if ok && count > 0 {
				go h.BroadcastMessage(c.room, "viewers", map[string]int{"count": count})
			}

		case <-ctx.Done():
			h.mu.Lock()
			for _, room := range h.rooms {
				for c := range room {
					close(c.send)
				}
			}
			h.rooms = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// RoomSize is the number of clients currently in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// BroadcastToRoom queues message for every client in room. Clients whose
// buffer is full are dropped. Sends happen under the read lock so Run
// cannot close a channel mid-send.
func (h *Hub) BroadcastToRoom(room string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- message:
		default:
			glog.Warningf("send buffer full for a client in room %s; dropping it", room)
			go h.drop(c)
		}
	}
}

// BroadcastMessage marshals an envelope and broadcasts it.
func (h *Hub) BroadcastMessage(room string, messageType string, data interface{}) {
	b, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		glog.Errorf("error marshaling %s message: %v", messageType, err)
		return
	}
	h.BroadcastToRoom(room, b)
}

// HandleWebSocket authorizes the caller for the {id} room and upgrades.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["id"]
	if room == "" {
		apperr.Write(w, apperr.Invalid("id", "missing room"))
		return
	}
	if h.authorize != nil {
		if err := h.authorize(r, room); err != nil {
			apperr.Write(w, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("websocket upgrade error: %v", err)
		return
	}
	c := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), room: room}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				glog.V(2).Infof("unexpected close: %v", err)
			}
			return
		}
		c.handleMessage(message)
	}
}

// handleMessage answers pings. Everything else is server-to-client only.
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		glog.V(2).Infof("ignoring malformed message: %v", err)
		return
	}
	if msg.Type != "ping" {
		return
	}

	h := c.hub
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.rooms[c.room][c] {
		return
	}
	b, _ := json.Marshal(Message{Type: "pong", Data: map[string]int{"viewers": len(h.rooms[c.room])}})
	select {
	case c.send <- b:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				glog.V(2).Infof("error writing to client in room %s: %v", c.room, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
