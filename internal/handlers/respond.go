package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"live-app/internal/apperrors"
	"live-app/internal/auth"
	"live-app/internal/models"
	"live-app/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response: %v", err)
	}
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrInvalidMessage):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, apperrors.ErrUnknownRoom), errors.Is(err, apperrors.ErrUnknownGift):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden), errors.Is(err, apperrors.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrUnauthorized):
		status = http.StatusUnauthorized
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"code": string(apperrors.CodeOf(err)), "error": msg})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func userFromRequest(r *http.Request, authService *auth.Service) (*models.User, error) {
	tokenStr := tokenFromRequest(r)
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: missing token", apperrors.ErrUnauthorized)
	}
	return authService.GetUserFromToken(r.Context(), tokenStr)
}

// decodeBody reads a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", apperrors.ErrInvalidArgument, err)
	}
	return nil
}
