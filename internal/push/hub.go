package push

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"roster-desk/internal/dto/response"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin is enforced by the CORS layer in front of the router
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans booking events out to websocket subscribers on this instance.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*subscriber]struct{}),
		log:  log.With(zap.String("component", "push_hub")),
	}
}

// ServeWS upgrades the request and streams events for bookingID until the
// client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, bookingID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.Error(err), zap.String("booking_id", bookingID))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.add(bookingID, sub) {
		conn.Close()
		return
	}

	go h.writePump(sub)
	h.readPump(bookingID, sub)
}

func (h *Hub) add(bookingID string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	if h.subs[bookingID] == nil {
		h.subs[bookingID] = make(map[*subscriber]struct{})
	}
	h.subs[bookingID][sub] = struct{}{}
	return true
}

func (h *Hub) remove(bookingID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[bookingID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.send)
		}
		if len(set) == 0 {
			delete(h.subs, bookingID)
		}
	}
}

// Subscribers returns the number of live subscribers for a booking.
func (h *Hub) Subscribers(bookingID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[bookingID])
}

// Broadcast delivers ev to local subscribers of its booking. Slow subscribers
// are dropped rather than blocking the publisher.
func (h *Hub) Broadcast(ev response.PushEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("Failed to encode push event", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[ev.BookingID] {
		select {
		case sub.send <- b:
		default:
			h.log.Warn("Dropping slow subscriber", zap.String("booking_id", ev.BookingID))
			delete(h.subs[ev.BookingID], sub)
			close(sub.send)
		}
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, set := range h.subs {
		for sub := range set {
			close(sub.send)
		}
		delete(h.subs, id)
	}
}

func (h *Hub) readPump(bookingID string, sub *subscriber) {
	defer func() {
		h.remove(bookingID, sub)
		sub.conn.Close()
	}()

	sub.conn.SetReadLimit(512)
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
