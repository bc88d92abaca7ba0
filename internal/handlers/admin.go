package handlers

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/model"
	"CardKeeper/internal/service"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const restoreWarning = "live store overwritten; data written after the artifact was captured is lost"

// AdminHandler — бэкапы и управление учётными записями.
// Права уже проверены RequireAdmin.
type AdminHandler struct {
	UserService   *service.UserService
	BackupService *service.BackupService
	Logger        *zap.SugaredLogger
}

// NewAdminHandler создаёт хендлер админки
func NewAdminHandler(userService *service.UserService, backupService *service.BackupService, logger *zap.SugaredLogger) *AdminHandler {
	return &AdminHandler{UserService: userService, BackupService: backupService, Logger: logger}
}

type restoreResponse struct {
	backup.RestoreResult
	Warning string `json:"warning"`
}

type usersPage struct {
	Items    []model.User `json:"items"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Total    int64        `json:"total"`
}

type reactivateRequest struct {
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Password *string `json:"password,omitempty"`
}

// pageParams читает page/page_size; некорректные значения заменяются значениями по умолчанию.
func pageParams(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || size < 1 {
		size = backup.DefaultPageSize
	}
	if size > backup.MaxPageSize {
		size = backup.MaxPageSize
	}
	return page, size
}

// ListBackups GET /admin/backups?page=&page_size=
func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	p, err := h.BackupService.List(page, size)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateBackup POST /admin/backups
func (h *AdminHandler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	a, err := h.BackupService.Capture(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// RestoreBackup POST /admin/restore/{artifact}
func (h *AdminHandler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "artifact"))
	if err != nil {
		writeError(w, backup.ErrInvalidArtifact)
		return
	}
	res, err := h.BackupService.Restore(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{RestoreResult: res, Warning: restoreWarning})
}

// ListUsers GET /admin/users?email=&page=&page_size=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	users, total, err := h.UserService.List(r.Context(), r.URL.Query().Get("email"), page, size)
	if err != nil {
		h.Logger.Errorw("ListUsers: service error", "error", err)
		writeError(w, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, usersPage{Items: users, Page: page, PageSize: size, Total: total})
}

// DeleteUser DELETE /admin/users/{id} — мягкое удаление
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if err := h.UserService.SoftDelete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.Logger.Infow("user soft-deleted", "user_id", id)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_deleted": true})
}

// RestoreUser POST /admin/users/{id}/restore — реактивация мягко удалённой учётной записи
func (h *AdminHandler) RestoreUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req reactivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, service.ErrValidation)
		return
	}

	err := h.UserService.Reactivate(r.Context(), id, service.ReactivateInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	h.Logger.Infow("user reactivated", "user_id", id, "password_changed", req.Password != nil)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_deleted": false})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: "invalid user id"})
		return 0, false
	}
	return id, true
}
