package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oakhurst-labs/frontdesk/internal/logging"
)

// Event is one entry on the live call feed.
type Event struct {
	Type      string    `json:"type"` // "call_started" | "turn" | "call_ended"
	CallID    string    `json:"callId"`
	Text      string    `json:"text,omitempty"`
	Directive string    `json:"directive,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// eventHub fans call events out to connected websocket observers, e.g.
// a front-desk dashboard watching live calls. Writes happen on a
// dedicated goroutine so observers never sit on the webhook path.
type eventHub struct {
	log *logging.Logger

	events chan Event
	stop   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func newEventHub(log *logging.Logger) *eventHub {
	h := &eventHub{
		log:     log.Sub("events"),
		events:  make(chan Event, 64),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		clients: make(map[*websocket.Conn]struct{}),
	}
	go h.run()
	return h
}

// Publish queues an event for the observers and returns immediately.
// The feed is best-effort: when the queue is full the event is dropped.
func (h *eventHub) Publish(ev Event) {
	ev.Timestamp = time.Now()
	select {
	case h.events <- ev:
	default:
	}
}

func (h *eventHub) run() {
	defer close(h.done)
	for {
		select {
		case ev := <-h.events:
			h.broadcast(ev)
		case <-h.stop:
			return
		}
	}
}

// broadcast writes one event to every connected observer. Slow or dead
// connections are dropped.
func (h *eventHub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *eventHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Debug().Int("observers", n).Msg("observer connected")
}

func (h *eventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *eventHub) closeAll() {
	close(h.stop)
	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
	}
	h.clients = make(map[*websocket.Conn]struct{})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleEvents upgrades the connection and keeps it registered until
// the observer goes away. Observers only listen; inbound frames are
// drained to detect close.
func (h *eventHub) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
