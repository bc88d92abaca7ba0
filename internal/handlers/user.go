package handlers

import (
	"CardKeeper/internal/config"
	"CardKeeper/internal/middleware"
	"CardKeeper/internal/service"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// UserHandler — регистрация, вход, статус.
type UserHandler struct {
	UserService *service.UserService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewUserHandler создаёт хендлер пользователей
func NewUserHandler(userService *service.UserService, logger *zap.SugaredLogger, cfg *config.Config) *UserHandler {
	return &UserHandler{UserService: userService, Logger: logger, Config: cfg}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type dataResponse struct {
	Result string `json:"result"`
}

// Register регистрация пользователя, при успехе сразу выставляется auth cookie
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Register: invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: "invalid request"})
		return
	}

	user, err := h.UserService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if status, _ := statusFor(err); status == http.StatusInternalServerError {
			h.Logger.Errorw("Register: service error", "username", req.Username, "error", err)
		}
		writeError(w, err)
		return
	}

	if err := middleware.SetLoginCookie(w, user.ID, user.Role, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Register: failed to set cookie", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "username": user.Username})
}

// Login вход пользователя
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("Login: invalid request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation", Message: "invalid request"})
		return
	}

	user, err := h.UserService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			h.Logger.Errorw("Login: service error", "username", req.Username, "error", err)
		}
		writeError(w, err)
		return
	}

	if err := middleware.SetLoginCookie(w, user.ID, user.Role, h.Config.AuthSecret); err != nil {
		h.Logger.Errorw("Login: failed to set cookie", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Result: "ok"})
}

// Logout стирает auth cookie
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "auth_token", Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// Status проверка авторизации
func (h *UserHandler) Status(w http.ResponseWriter, r *http.Request) {
	result := "anonymous"
	if uid, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		role, _ := middleware.GetRoleFromContext(r.Context())
		result = fmt.Sprintf("User ID = %d, role = %s", uid, role)
	}
	writeJSON(w, http.StatusOK, dataResponse{Result: result})
}
