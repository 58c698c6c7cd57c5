package ws

import (
	"encoding/json"
	"sync"

	"perks/internal/domain"
)

// Client represents a single WebSocket connection with dashboard context.
// Merchant connections receive their own merchant's events; admin
// connections receive everything.
type Client struct {
	UserID     uint
	MerchantID uint
	Role       string
	Send       chan []byte
	Hub        *Hub // set so Close() can unregister
	mu         sync.Mutex
	closed     bool
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// Hub maintains the set of active clients and broadcasts to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	// merchantID -> clients (one merchant can have multiple dashboards open)
	byMerchant map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		byMerchant: make(map[uint]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	h.clients[c] = struct{}{}
	if h.byMerchant[c.MerchantID] == nil {
		h.byMerchant[c.MerchantID] = make(map[*Client]struct{})
	}
	h.byMerchant[c.MerchantID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
	if m := h.byMerchant[c.MerchantID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byMerchant, c.MerchantID)
		}
	}
}

// BroadcastToMerchant delivers to the merchant's own dashboards and to any
// admin connection. Slow consumers are skipped, never blocked on.
func (h *Hub) BroadcastToMerchant(merchantID uint, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byMerchant[merchantID]))
	for c := range h.byMerchant[merchantID] {
		clients = append(clients, c)
	}
	for c := range h.clients {
		if c.Role == domain.RoleAdmin && c.MerchantID != merchantID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) BroadcastAll(payload interface{}) {
	data, _ := json.Marshal(payload)
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		select {
		case c.Send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
