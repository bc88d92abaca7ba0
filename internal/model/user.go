package model

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User — учётная запись. IsDeleted — мягкое удаление: такой пользователь
// не проходит аутентификацию и не виден в обычных выборках.
type User struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"not null;default:user" json:"role"`
	IsDeleted    bool   `gorm:"not null;default:false;index" json:"is_deleted"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsAdmin сообщает, есть ли у пользователя роль администратора.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
