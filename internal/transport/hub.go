package transport

import (
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/view"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Hub is a view renderer that pushes every model snapshot to connected
// browsers. Slow viewers only ever get the newest snapshot.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*viewer
	latest  []byte
	closed  bool
}

type viewer struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	closed atomic.Bool
}

// NewHub creates a hub accepting websocket upgrades from the given origins.
// "*" or an empty list accepts any origin.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: make(map[string]*viewer)}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = true
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if set[origin] {
			return true
		}
		// same-origin requests are always fine
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

// Render implements view.Renderer. It never blocks on a viewer.
func (h *Hub) Render(m view.Model) {
	data, err := sonic.Marshal(m)
	if err != nil {
		logger.WithError(err).Error("Failed to encode view model")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = data
	for _, v := range h.clients {
		v.offer(data)
	}
}

// Clients returns the number of connected viewers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams snapshots until the viewer leaves
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	v := &viewer{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[v.id] = v
	if h.latest != nil {
		v.offer(h.latest)
	}
	count := len(h.clients)
	h.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"client_id": v.id,
		"clients":   count,
		"ip":        c.ClientIP(),
	}).Info("Viewer connected")

	go v.writePump()
	v.readPump()

	h.mu.Lock()
	delete(h.clients, v.id)
	h.mu.Unlock()
	v.close()

	logger.WithField("client_id", v.id).Info("Viewer disconnected")
}

// Close disconnects every viewer and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, v := range h.clients {
		v.close()
		delete(h.clients, id)
	}
}

// offer keeps only the newest snapshot in the viewer's queue
func (v *viewer) offer(data []byte) {
	select {
	case v.send <- data:
		return
	default:
	}
	select {
	case <-v.send:
	default:
	}
	select {
	case v.send <- data:
	default:
	}
}

func (v *viewer) close() {
	if v.closed.CompareAndSwap(false, true) {
		close(v.done)
		v.conn.Close()
	}
}

// readPump discards client messages and tracks liveness through pongs
func (v *viewer) readPump() {
	v.conn.SetReadLimit(512)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (v *viewer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-v.done:
			return
		case data := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				v.close()
				return
			}
		case <-ticker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				v.close()
				return
			}
		}
	}
}
