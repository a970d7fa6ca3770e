package websocket

import (
	"encoding/json"
	"sync"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/pkg/logger"
)

// CartLine is one cart entry as pushed over the wire
type CartLine struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       int    `json:"price"`
	Quantity    int    `json:"quantity"`
}

// CartSnapshotMessage is the full cart state pushed after every change
type CartSnapshotMessage struct {
	Type  string     `json:"type"`
	Lines []CartLine `json:"lines"`
	Count int        `json:"count"`
}

// EncodeCartSnapshot renders cart lines as a wire message
func EncodeCartSnapshot(lines []model.CartItem) ([]byte, error) {
	msg := CartSnapshotMessage{
		Type:  "cart_snapshot",
		Lines: make([]CartLine, 0, len(lines)),
		Count: len(lines),
	}
	for _, line := range lines {
		msg.Lines = append(msg.Lines, CartLine{
			ProductID:   line.ProductID,
			ProductName: line.Product.Name,
			Price:       line.Product.Price,
			Quantity:    line.Quantity,
		})
	}
	return json.Marshal(msg)
}

// Hub tracks live WebSocket sessions per user. A user may hold several
// sessions at once (multiple devices); each gets every snapshot.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates the session hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
	}
}

// Run processes session registration. Call in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()

			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			if clientList, ok := h.clients[client.UserID]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.UserID)
				} else {
					h.clients[client.UserID] = newList
				}
				client.closeSend()
			}
			h.mu.Unlock()

			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id": client.UserID,
			})
		}
	}
}

// Register adds a session to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// SessionCount reports live sessions for a user
func (h *Hub) SessionCount(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
