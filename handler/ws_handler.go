package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/mirror"
	"bitbucket.org/mmdatafocus/crm_backend/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the SPA host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	Manager *mirror.Manager
	Hub     *realtime.Hub
	Logger  *logrus.Logger
}

func NewWSHandler(manager *mirror.Manager, hub *realtime.Hub, logger *logrus.Logger) *WSHandler {
	return &WSHandler{Manager: manager, Hub: hub, Logger: logger}
}

// Stream handles GET /ws: it holds the tenant's mirror open for the
// lifetime of the connection and pushes every update to the client.
// The first messages replay the current snapshots so a client starts
// from a complete picture.
func (h *WSHandler) Stream(c *gin.Context) {
	tenantId := c.GetString("tenant_id")
	if tenantId == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		config.LogError(h.Logger, "handler", "Stream", "upgrade", nil, err)
		return
	}

	clientId := uuid.NewString()
	h.Hub.Register(tenantId, clientId, conn)

	m := h.Manager.Acquire(tenantId)
	updates, cancelSub := m.Subscribe()

	defer func() {
		cancelSub()
		h.Manager.Release(tenantId)
		h.Hub.Unregister(tenantId, clientId)
	}()

	_ = h.Hub.Send(tenantId, clientId, "status", gin.H{"status": m.Status()})
	for collection, docs := range m.Snapshots() {
		_ = h.Hub.Send(tenantId, clientId, "snapshot", gin.H{"collection": collection, "docs": docs})
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain client frames; the stream is server-to-client only, so
		// the read loop exists to notice the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Docs != nil {
				if err := h.Hub.Send(tenantId, clientId, "snapshot", gin.H{"collection": u.Collection, "docs": u.Docs, "status": u.Status}); err != nil {
					return
				}
				continue
			}
			if err := h.Hub.Send(tenantId, clientId, "status", gin.H{"status": u.Status}); err != nil {
				return
			}
		}
	}
}
