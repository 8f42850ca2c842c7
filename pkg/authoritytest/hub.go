package authoritytest

import (
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// client is a single editor connected to a document.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

type direct struct {
	to  *client
	msg []byte
}

type broadcast struct {
	from *client
	msg  []byte
}

// hub maintains the set of editors of one document. All writes to a client's
// send channel happen in run, which is also the only place that closes it.
type hub struct {
	clients    map[*client]bool
	broadcast  chan broadcast
	direct     chan direct
	register   chan *client
	unregister chan *client
	quit       chan struct{}
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcast),
		direct:     make(chan direct),
		register:   make(chan *client),
		unregister: make(chan *client),
		quit:       make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			log.WithField("clients", len(h.clients)).Debug("Editor registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				log.WithField("clients", len(h.clients)).Debug("Editor unregistered")
			}
		case d := <-h.direct:
			if h.clients[d.to] {
				h.deliver(d.to, d.msg)
			}
		case b := <-h.broadcast:
			for c := range h.clients {
				if c != b.from {
					h.deliver(c, b.msg)
				}
			}
		case <-h.quit:
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return
		}
	}
}

func (h *hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		close(c.send)
		delete(h.clients, c)
	}
}

// The helpers below give up once the hub has stopped, so pumps never block
// on a dead hub.

func (h *hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

func (h *hub) sendTo(c *client, msg []byte) {
	select {
	case h.direct <- direct{to: c, msg: msg}:
	case <-h.quit:
	}
}

func (h *hub) sendOthers(from *client, msg []byte) {
	select {
	case h.broadcast <- broadcast{from: from, msg: msg}:
	case <-h.quit:
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
