package handlers

import (
	"CardKeeper/internal/config"
	"CardKeeper/internal/metrics"
	"CardKeeper/internal/middleware"
	"CardKeeper/internal/model"
	"CardKeeper/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// Option настраивает роутер.
type Option func(*options)

type options struct {
	policy middleware.AdminPolicy
}

// WithAdminPolicy подменяет политику доступа к /admin.
func WithAdminPolicy(p middleware.AdminPolicy) Option {
	return func(o *options) { o.policy = p }
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	backupService *service.BackupService,
	logger *zap.SugaredLogger,
	config *config.Config,
	opts ...Option,
) *Handler {
	o := options{policy: middleware.RolePolicy{Role: model.RoleAdmin}}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(metrics.Instrument)
	r.Use(middleware.WithAuth(config.AuthSecret, middleware.WithAccounts(userService)))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	adminHandler := NewAdminHandler(userService, backupService, logger)

	// User routes
	r.Post("/auth/register", userHandler.Register)
	r.Post("/auth/login", userHandler.Login)
	r.Post("/auth/logout", userHandler.Logout)
	r.Get("/auth/status", userHandler.Status)

	// Admin routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin(o.policy))

		r.Get("/backups", adminHandler.ListBackups)
		r.Post("/backups", adminHandler.CreateBackup)
		r.Post("/restore/{artifact}", adminHandler.RestoreBackup)

		r.Get("/users", adminHandler.ListUsers)
		r.Delete("/users/{id}", adminHandler.DeleteUser)
		r.Post("/users/{id}/restore", adminHandler.RestoreUser)

		r.Handle("/metrics", metrics.Handler())
	})

	return &Handler{Router: r}
}
