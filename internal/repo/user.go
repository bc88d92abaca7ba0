package repo

import (
	"CardKeeper/internal/model"
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// username или email уже заняты другой учётной записью
	ErrConflict       = errors.New("username or email already in use")
	ErrNotDeleted     = errors.New("user is not deleted")
	ErrAlreadyDeleted = errors.New("user is already deleted")
)

// UserFilter задаёт выборку пользователей для админки.
type UserFilter struct {
	Email          string
	IncludeDeleted bool
	Offset         int
	Limit          int
}

// Reactivation содержит поля, которые пишутся вместе со снятием пометки.
type Reactivation struct {
	Username     string
	Email        string
	PasswordHash string // пусто — хеш не меняется
}

// UserRepository возвращает gorm.ErrRecordNotFound, если пользователь не найден.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, f UserFilter) ([]model.User, int64, error)
	SoftDelete(ctx context.Context, id int64) error
	Reactivate(ctx context.Context, id int64, r Reactivation) error
}

type userRepo struct {
	store *Store
}

// NewUserRepository создаёт репозиторий пользователей поверх Store.
func NewUserRepository(store *Store) UserRepository {
	return &userRepo{store: store}
}

func (r *userRepo) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	err := r.store.With(ctx, func(db *gorm.DB) error {
		return translate(db.Create(user).Error)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	var u model.User
	err := r.store.With(ctx, func(db *gorm.DB) error {
		return db.Where("username = ?", login).First(&u).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := r.store.With(ctx, func(db *gorm.DB) error {
		return db.First(&u, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context, f UserFilter) ([]model.User, int64, error) {
	var (
		users []model.User
		total int64
	)
	err := r.store.With(ctx, func(db *gorm.DB) error {
		q := db.Model(&model.User{})
		if !f.IncludeDeleted {
			q = q.Where("is_deleted = ?", false)
		}
		if f.Email != "" {
			q = q.Where("email LIKE ?", "%"+f.Email+"%")
		}
		if err := q.Count(&total).Error; err != nil {
			return err
		}
		if f.Limit > 0 {
			q = q.Offset(f.Offset).Limit(f.Limit)
		}
		return q.Order("id ASC").Find(&users).Error
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepo) SoftDelete(ctx context.Context, id int64) error {
	return r.store.With(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var u model.User
			if err := tx.First(&u, id).Error; err != nil {
				return err
			}
			if u.IsDeleted {
				return ErrAlreadyDeleted
			}
			return tx.Model(&model.User{}).
				Where("id = ? AND is_deleted = ?", id, false).
				Update("is_deleted", true).Error
		})
	})
}

// Reactivate снимает пометку удаления и в той же транзакции записывает
// username, email и (если задан) новый хеш пароля.
func (r *userRepo) Reactivate(ctx context.Context, id int64, upd Reactivation) error {
	return r.store.With(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			var u model.User
			if err := tx.First(&u, id).Error; err != nil {
				return err
			}
			if !u.IsDeleted {
				return ErrNotDeleted
			}

			var taken int64
			if err := tx.Model(&model.User{}).
				Where("id <> ? AND (username = ? OR email = ?)", id, upd.Username, upd.Email).
				Count(&taken).Error; err != nil {
				return err
			}
			if taken > 0 {
				return ErrConflict
			}

			updates := map[string]any{
				"username":   upd.Username,
				"email":      upd.Email,
				"is_deleted": false,
			}
			if upd.PasswordHash != "" {
				updates["password_hash"] = upd.PasswordHash
			}
			res := tx.Model(&model.User{}).Where("id = ? AND is_deleted = ?", id, true).Updates(updates)
			if res.Error != nil {
				return translate(res.Error)
			}
			if res.RowsAffected == 0 {
				return ErrNotDeleted
			}
			return nil
		})
	})
}

// translate приводит нарушение уникальности SQLite к ErrConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrConflict
	}
	return err
}
