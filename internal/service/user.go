package service

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/metrics"
	"CardKeeper/internal/model"
	"CardKeeper/internal/repo"
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrLoginTaken         = errors.New("login already taken")
	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotDeleted         = errors.New("user is not deleted")
	ErrAlreadyDeleted     = errors.New("user is already deleted")
	ErrValidation         = errors.New("validation error")
)

// UserService инкапсулирует бизнес-логику учётных записей.
type UserService struct {
	repo          repo.UserRepository
	adminUsername string
}

// UserServiceOption настраивает UserService.
type UserServiceOption func(*UserService)

// WithAdminUsername: пользователь с этим username получает роль admin при регистрации.
func WithAdminUsername(name string) UserServiceOption {
	return func(s *UserService) { s.adminUsername = name }
}

func NewUserService(r repo.UserRepository, opts ...UserServiceOption) *UserService {
	s := &UserService{repo: r}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ReactivateInput содержит данные, которые администратор подтверждает заново.
type ReactivateInput struct {
	Username string
	Email    string
	Password *string // nil: пароль не меняется
}

// Register создаёт нового пользователя.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateIdentity(username, email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, fmt.Errorf("password is required: %w", ErrValidation)
	}

	existing, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	role := model.RoleUser
	if s.adminUsername != "" && username == s.adminUsername {
		role = model.RoleAdmin
	}
	user, err := s.repo.CreateUser(ctx, &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, ErrLoginTaken
		}
		return nil, err
	}
	return user, nil
}

// Login проверяет пароль. Мягко удалённые учётные записи не аутентифицируются.
func (s *UserService) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := s.repo.GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if user == nil || user.IsDeleted {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// List возвращает пользователей для админки, включая удалённых.
func (s *UserService) List(ctx context.Context, email string, page, pageSize int) ([]model.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = backup.DefaultPageSize
	}
	if pageSize > backup.MaxPageSize {
		pageSize = backup.MaxPageSize
	}
	return s.repo.List(ctx, repo.UserFilter{
		Email:          email,
		IncludeDeleted: true,
		Offset:         (page - 1) * pageSize,
		Limit:          pageSize,
	})
}

// GetByID возвращает учётную запись по id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// SoftDelete помечает учётную запись удалённой.
func (s *UserService) SoftDelete(ctx context.Context, id int64) error {
	err := s.repo.SoftDelete(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, repo.ErrAlreadyDeleted):
		return ErrAlreadyDeleted
	}
	return err
}

// Reactivate возвращает мягко удалённую учётную запись в работу.
// Несуществующая или не удалённая запись отвергается до проверки полей.
// username и email обязательны; новый пароль, если передан, хешируется.
// Все поля и флаг меняются одной транзакцией, состояние перепроверяется в ней же.
func (s *UserService) Reactivate(ctx context.Context, id int64, in ReactivateInput) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "rejected"
		}
		metrics.Reactivations.WithLabelValues(result).Inc()
	}()

	u, err := s.repo.GetByID(ctx, id)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case err != nil:
		return err
	case !u.IsDeleted:
		return ErrNotDeleted
	}

	username, email := strings.TrimSpace(in.Username), strings.TrimSpace(in.Email)
	if err := validateIdentity(username, email); err != nil {
		return err
	}
	upd := repo.Reactivation{Username: username, Email: email}
	if in.Password != nil {
		if *in.Password == "" {
			return fmt.Errorf("password must not be empty: %w", ErrValidation)
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			return err
		}
		upd.PasswordHash = hash
	}

	err = s.repo.Reactivate(ctx, id, upd)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, repo.ErrNotDeleted):
		return ErrNotDeleted
	case errors.Is(err, repo.ErrConflict):
		return ErrLoginTaken
	}
	return err
}

func validateIdentity(username, email string) error {
	if username == "" || email == "" {
		return fmt.Errorf("username and email required: %w", ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
		return fmt.Errorf("invalid email %q: %w", email, ErrValidation)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
