// Package websocket pushes analysis progress to clients subscribed to a
// job, as a lower-latency alternative to polling the status endpoint.
package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/voxsplit/api/internal/model"
)

const (
	keepAliveInterval = 30 * time.Second
	sendBuffer        = 256
)

// Client is one live subscription to a job's updates.
type Client struct {
	JobID string
	Conn  *websocket.Conn
	Send  chan []byte
}

// Hub fans analysis updates out to job subscribers. Broadcasts never
// block the worker: a subscriber that cannot keep up is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	broadcast chan *broadcastMessage
}

type broadcastMessage struct {
	jobID   string
	payload []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]map[*Client]bool),
		broadcast: make(chan *broadcastMessage, sendBuffer),
	}
}

// Run drains the broadcast channel. Call once from a goroutine.
func (h *Hub) Run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		for client := range h.clients[msg.jobID] {
			select {
			case client.Send <- msg.payload:
			default:
				h.dropLocked(client)
			}
		}
		h.mu.Unlock()
	}
}

func (h *Hub) subscribe(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[client.JobID] == nil {
		h.clients[client.JobID] = make(map[*Client]bool)
	}
	h.clients[client.JobID][client] = true
}

// unsubscribe detaches the client and closes its send channel. Only
// the connection's own goroutine calls this, after the read loop has
// returned, so nothing can still be sending on the channel.
func (h *Hub) unsubscribe(client *Client) {
	h.mu.Lock()
	if h.clients[client.JobID][client] {
		h.dropLocked(client)
	}
	h.mu.Unlock()
	close(client.Send)
}

// dropLocked removes the client from the fan-out map. The send channel
// stays open; closing it here would race the reader's pong replies.
// Callers hold h.mu.
func (h *Hub) dropLocked(client *Client) {
	delete(h.clients[client.JobID], client)
	if len(h.clients[client.JobID]) == 0 {
		delete(h.clients, client.JobID)
	}
}

// BroadcastProgress pushes a progress update to the job's subscribers.
func (h *Hub) BroadcastProgress(jobID string, progress int, status model.JobStatus, step string) {
	h.send(jobID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		JobID:       jobID,
		Progress:    progress,
		Status:      status,
		CurrentStep: step,
	})
}

// BroadcastComplete announces that analysis finished and tracks exist.
func (h *Hub) BroadcastComplete(jobID string, result interface{}) {
	h.send(jobID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		JobID:  jobID,
		Result: result,
	})
}

// BroadcastError announces a terminal job failure.
func (h *Hub) BroadcastError(jobID, code, message string) {
	h.send(jobID, model.WSErrorMessage{
		Type:  model.WSMessageTypeError,
		JobID: jobID,
		Error: model.WSError{Code: code, Message: message},
	})
}

func (h *Hub) send(jobID string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal websocket message: %v", err)
		return
	}
	h.broadcast <- &broadcastMessage{jobID: jobID, payload: data}
}

// HandleConnection owns one connection's lifetime: subscribes it,
// writes outbound messages with keep-alive pings, and answers client
// pings until the peer goes away.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	client := &Client{
		JobID: jobID,
		Conn:  c,
		Send:  make(chan []byte, sendBuffer),
	}

	h.subscribe(client)
	defer h.unsubscribe(client)

	go func() {
		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}
			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for job %s: %v", jobID, err)
			}
			return
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			data, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			client.Send <- data
		}
	}
}
