package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/internal/batch"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Message types sent to run subscribers
const (
	MessageConnected = "connected"
	MessageProgress  = "progress"
	MessageCompleted = "completed"
	MessageFailed    = "failed"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one websocket subscriber to a run
type Client struct {
	RunID string
	Conn  *websocket.Conn
	Send  chan []byte
	Hub   *ProgressHub
}

// Message is the envelope written to subscribers
type Message struct {
	Type      string      `json:"type"`
	RunID     string      `json:"run_id"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ProgressHub fans run progress out to the websocket clients watching each run
type ProgressHub struct {
	clients    map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

func NewProgressHub(logger *logrus.Logger) *ProgressHub {
	return &ProgressHub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled
func (h *ProgressHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			close(h.done)
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *ProgressHub) registerClient(client *Client) {
	h.mutex.Lock()
	if h.clients[client.RunID] == nil {
		h.clients[client.RunID] = make(map[*Client]bool)
	}
	h.clients[client.RunID][client] = true
	h.mutex.Unlock()

	h.logger.WithFields(logrus.Fields{
		"run_id":        client.RunID,
		"total_clients": h.GetConnectionCount(),
	}).Debug("Progress websocket client connected")

	h.sendToClient(client, &Message{Type: MessageConnected, RunID: client.RunID, Timestamp: time.Now()})
}

func (h *ProgressHub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.remove(client)
}

// remove drops a client; the caller holds the lock
func (h *ProgressHub) remove(client *Client) {
	subs, ok := h.clients[client.RunID]
	if !ok || !subs[client] {
		return
	}
	delete(subs, client)
	close(client.Send)
	if len(subs) == 0 {
		delete(h.clients, client.RunID)
	}
}

func (h *ProgressHub) deliver(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal websocket message")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients[msg.RunID] {
		select {
		case client.Send <- data:
		default:
			// slow reader; drop it rather than stall every run
			h.remove(client)
		}
	}
}

func (h *ProgressHub) sendToClient(client *Client, msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal websocket message")
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

func (h *ProgressHub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for _, subs := range h.clients {
		for client := range subs {
			h.remove(client)
		}
	}
}

// Publish queues a message for a run's subscribers without blocking
func (h *ProgressHub) Publish(runID, msgType string, data interface{}) {
	msg := &Message{Type: msgType, RunID: runID, Data: data, Timestamp: time.Now()}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.WithField("run_id", runID).Warn("Progress broadcast queue full, dropping update")
	}
}

// Forward publishes every update from a runner's progress channel until it closes
func (h *ProgressHub) Forward(runID string, progress <-chan batch.Progress) {
	for p := range progress {
		h.Publish(runID, MessageProgress, p)
	}
}

// GetConnectionCount returns the total number of active connections
func (h *ProgressHub) GetConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	n := 0
	for _, subs := range h.clients {
		n += len(subs)
	}
	return n
}

// Subscribers returns how many clients watch a run
func (h *ProgressHub) Subscribers(runID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[runID])
}

// HandleWebSocket upgrades GET /ws/runs/:id and subscribes the connection to that run
func (h *ProgressHub) HandleWebSocket(c *gin.Context) {
	runID := c.Param("id")
	if runID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Run ID is required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade progress websocket connection")
		return
	}

	client := &Client{
		RunID: runID,
		Conn:  conn,
		Send:  make(chan []byte, 256),
		Hub:   h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump discards client frames and notices when the peer goes away
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Warn("Progress websocket error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
