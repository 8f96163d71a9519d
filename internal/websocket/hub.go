package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/oakmart/storefront-backend/internal/app/model"
	"github.com/oakmart/storefront-backend/pkg/logger"
)

// Client is one admin websocket session. An admin may hold several sessions
// at once (multiple tabs or devices).
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

// Hub fans stock alerts out to every connected admin session.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	mu sync.RWMutex
}

// StockAlert is the wire payload pushed to admin dashboards when a product
// falls to or below its low-stock threshold.
type StockAlert struct {
	Type              string    `json:"type"`
	ProductID         uint      `json:"product_id"`
	ProductName       string    `json:"product_name"`
	StockQuantity     int       `json:"stock_quantity"`
	LowStockThreshold int       `json:"low_stock_threshold"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan []byte, 1024),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()
			logger.Info("Stock alert client registered", map[string]interface{}{
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
				close(client.Send)
			}
			h.mu.Unlock()
			logger.Info("Stock alert client unregistered", map[string]interface{}{
				"user_id": client.UserID,
			})

		case message := <-h.broadcast:
			h.mu.RLock()
			for userID, clientList := range h.clients {
				for _, client := range clientList {
					select {
					case client.Send <- message:
					default:
						// Send buffer full, drop the session rather than block.
						go h.Unregister(client)
						logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
							"user_id": userID,
						})
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifyLowStock pushes a low-stock alert to all connected admins. Alerts are
// best effort: a full broadcast queue drops the alert instead of blocking
// checkout.
func (h *Hub) NotifyLowStock(product model.Product) {
	alert := StockAlert{
		Type:              "low_stock",
		ProductID:         product.ID,
		ProductName:       product.Name,
		StockQuantity:     product.StockQuantity,
		LowStockThreshold: product.LowStockThreshold,
		OccurredAt:        time.Now(),
	}

	data, err := json.Marshal(alert)
	if err != nil {
		logger.Error("Failed to marshal stock alert", err, nil)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logger.Warn("Broadcast channel full, stock alert dropped", map[string]interface{}{
			"product_id": product.ID,
		})
	}
}

// ConnectedAdmins reports how many admins currently hold at least one session.
func (h *Hub) ConnectedAdmins() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
