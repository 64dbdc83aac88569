package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"live-app/internal/auth"
	"live-app/internal/live"
	ws "live-app/internal/websocket"
	"live-app/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	manager     *live.Manager
	opts        ws.Options
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, manager *live.Manager, opts ws.Options) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		manager:     manager,
		opts:        opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket serves /ws/live/{roomId} and /ws?room={roomId}.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		writeError(w, err)
		return
	}

	roomID := strings.TrimSpace(r.PathValue("roomId"))
	if roomID == "" {
		roomID = strings.TrimSpace(r.URL.Query().Get("room"))
	}
	if roomID == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	ws.Serve(context.Background(), h.manager, conn, roomID, strconv.Itoa(user.ID), h.opts)
}
