// Package realtime fans mirror state out to connected UI clients over
// WebSocket. The hub only owns connection registration and write
// serialization; what gets pushed is decided by the ws handler.
package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/config"
)

type Hub struct {
	logger *logrus.Logger

	mu      sync.RWMutex
	clients map[string]map[string]*wsConn // tenantId -> clientId -> conn
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{logger: logger, clients: make(map[string]map[string]*wsConn)}
}

// wsConn wraps a websocket connection with a write mutex to serialize writes.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (h *Hub) Register(tenantId, clientId string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[tenantId] == nil {
		h.clients[tenantId] = make(map[string]*wsConn)
	}
	if old, ok := h.clients[tenantId][clientId]; ok {
		old.conn.Close()
	}
	h.clients[tenantId][clientId] = &wsConn{conn: conn}
}

func (h *Hub) Unregister(tenantId, clientId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[tenantId][clientId]; ok {
		c.conn.Close()
		delete(h.clients[tenantId], clientId)
		if len(h.clients[tenantId]) == 0 {
			delete(h.clients, tenantId)
		}
	}
}

// Send delivers a typed event to one client. A write failure is logged
// and returned; the caller decides whether to drop the connection.
func (h *Hub) Send(tenantId, clientId, event string, payload any) error {
	h.mu.RLock()
	wc, ok := h.clients[tenantId][clientId]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	msg := map[string]any{"event": event, "data": payload}
	wc.mu.Lock()
	defer wc.mu.Unlock()
	if err := wc.conn.WriteJSON(msg); err != nil {
		config.LogError(h.logger, "realtime", "Send", event, clientId, err)
		return err
	}
	return nil
}

// Broadcast delivers a typed event to every client of a tenant.
func (h *Hub) Broadcast(tenantId, event string, payload any) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients[tenantId]))
	for id := range h.clients[tenantId] {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		_ = h.Send(tenantId, id, event, payload)
	}
}

// BroadcastAll delivers a typed event to every connected client of
// every tenant. Used for server-wide notices such as shutdown, so
// clients can reconnect to another instance instead of seeing a bare
// connection drop.
func (h *Hub) BroadcastAll(event string, payload any) {
	h.mu.RLock()
	tenants := make([]string, 0, len(h.clients))
	for tenantId := range h.clients {
		tenants = append(tenants, tenantId)
	}
	h.mu.RUnlock()
	for _, tenantId := range tenants {
		h.Broadcast(tenantId, event, payload)
	}
}
