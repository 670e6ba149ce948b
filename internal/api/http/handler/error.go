package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dtroode/taskhub-server/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error to the HTTP status and the message shown
// to the client.
func statusFor(err error) (int, string) {
	var vErr *model.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Error()
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid login credentials"
	case errors.Is(err, model.ErrTokenInvalid),
		errors.Is(err, model.ErrTokenExpired),
		errors.Is(err, model.ErrTokenRevoked),
		errors.Is(err, model.ErrTokenMismatch):
		return http.StatusUnauthorized, "Invalid refresh token"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "Profile not found"
	case errors.Is(err, model.ErrEmailTaken), errors.Is(err, model.ErrUsernameTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, model.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, model.ErrFileTooLarge.Error()
	case errors.Is(err, model.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType, "Unsupported image type"
	case errors.Is(err, model.ErrEmptyFile):
		return http.StatusBadRequest, "No file uploaded"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func handleError(w http.ResponseWriter, err error) {
	code, message := statusFor(err)
	writeError(w, code, message)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
