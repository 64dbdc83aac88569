package handlers

import (
	"net/http"
	"strings"

	"live-app/internal/auth"
	"live-app/internal/catalog"
	"live-app/internal/models"
	"live-app/internal/services"
	"live-app/pkg/logger"
)

type RoomHandlers struct {
	roomService *services.RoomService
	authService *auth.Service
	catalog     *catalog.Catalog
}

func NewRoomHandlers(roomService *services.RoomService, authService *auth.Service, catalog *catalog.Catalog) *RoomHandlers {
	return &RoomHandlers{
		roomService: roomService,
		authService: authService,
		catalog:     catalog,
	}
}

func (h *RoomHandlers) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.CreateRoomRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), &req, user.ID)
	if err != nil {
		logger.Warn("Create room error: %v", err)
		writeError(w, err)
		return
	}

	logger.Info("User %d registered live room %s", user.ID, room.ID)
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandlers) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.roomService.ListRooms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandlers) RoomStats(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.PathValue("id"))

	stats, err := h.roomService.RoomStats(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"room_id": roomID,
		"stats":   stats,
	})
}

func (h *RoomHandlers) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	user, err := userFromRequest(r, h.authService)
	if err != nil {
		writeError(w, err)
		return
	}

	roomID := strings.TrimSpace(r.PathValue("id"))
	if err := h.roomService.DeleteRoom(r.Context(), roomID, user.ID); err != nil {
		logger.Warn("Delete room error: %v", err)
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandlers) ListGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.catalog.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, gifts)
}
