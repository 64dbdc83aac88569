package handlers

import (
	"net/http"

	"live-app/internal/auth"
	"live-app/internal/models"
	"live-app/pkg/logger"
)

type AuthHandlers struct {
	authService *auth.Service
}

func NewAuthHandlers(authService *auth.Service) *AuthHandlers {
	return &AuthHandlers{authService: authService}
}

func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		logger.Warn("Registration of %s failed: %v", req.Email, err)
		writeError(w, err)
		return
	}
	logger.Info("User %d registered", resp.User.ID)
	writeJSON(w, http.StatusCreated, resp)
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		logger.Warn("Login of %s failed: %v", req.Email, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
