package socket

import (
	"context"
	"encoding/json"
	"sync"

	"pagetree/pkg/logger"
	"pagetree/pkg/metrics"

	"github.com/gorilla/websocket"
)

const (
	DocumentCreatedType  = "DOCUMENT_CREATED"
	DocumentUpdatedType  = "DOCUMENT_UPDATED"
	DocumentArchivedType = "DOCUMENT_ARCHIVED"
	DocumentRestoredType = "DOCUMENT_RESTORED"
	DocumentRemovedType  = "DOCUMENT_REMOVED"
	CascadeCompleteType  = "CASCADE_COMPLETE" // All descendants of DocID have been patched or deleted
)

// WSMessage is a change-feed event. UserID is the owner whose room receives it.
type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CascadePayload is the payload of a CascadeCompleteType event.
type CascadePayload struct {
	Kind        string `json:"kind"`
	Descendants int    `json:"descendants"`
}

// Hub fans document events out to every connection of the owning user.
// Rooms are keyed by user id.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	// AllowOrigin decides which browser origins may open the feed. Nil allows any.
	// Set it before serving requests.
	AllowOrigin func(origin string) bool
	mu          sync.Mutex
	done        chan struct{}
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Publish queues msg for delivery without blocking the caller. Events are
// dropped when the hub is saturated; clients re-read state on reconnect.
func (h *Hub) Publish(msg WSMessage) {
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Change feed saturated, dropping %s event for doc %s", msg.Type, msg.DocID)
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.UserID] == nil {
				h.Rooms[client.UserID] = make(map[*Client]bool)
			}
			h.Rooms[client.UserID][client] = true
			h.mu.Unlock()
			metrics.ConnectedClients.Inc()

		case client := <-h.Unregister:
			h.removeClient(client)

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Copy recipients so no lock is held while sending.
			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.UserID]))
			for client := range h.Rooms[msg.UserID] {
				clientsToSend = append(clientsToSend, client)
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					h.removeClient(client)
				}
			}
		}
	}
}

// ClientCount reports the number of live connections for userID.
func (h *Hub) ClientCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[userID])
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.Rooms[client.UserID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.Send)
	metrics.ConnectedClients.Dec()
	if len(room) == 0 {
		delete(h.Rooms, client.UserID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, room := range h.Rooms {
		for client := range room {
			close(client.Send)
			metrics.ConnectedClients.Dec()
		}
		delete(h.Rooms, userID)
	}
	logger.Sugar.Info("Change feed hub stopped")
}
