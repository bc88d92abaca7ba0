package handlers

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/service"
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// errorResponse: значения Error стабильны между версиями.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// statusFor сопоставляет ошибку ядра HTTP-статусу и стабильному виду ошибки.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, backup.ErrInvalidArtifact):
		return http.StatusBadRequest, "invalid_artifact"
	case errors.Is(err, backup.ErrArtifactNotFound), errors.Is(err, backup.ErrSourceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, backup.ErrCorruptArtifact):
		return http.StatusUnprocessableEntity, "corrupt_artifact"
	case errors.Is(err, backup.ErrArtifactExists):
		return http.StatusConflict, "artifact_exists"
	case errors.Is(err, backup.ErrSwapCommitted):
		return http.StatusInternalServerError, "restore_committed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, service.ErrNotDeleted):
		return http.StatusBadRequest, "not_deleted"
	case errors.Is(err, service.ErrAlreadyDeleted):
		return http.StatusBadRequest, "already_deleted"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, service.ErrLoginTaken):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отдаёт ошибку клиенту. Внутренние детали 500 не раскрываются.
func writeError(w http.ResponseWriter, err error) {
	status, kind := statusFor(err)
	resp := errorResponse{Error: kind}
	if status != http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}
