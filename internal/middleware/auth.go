package middleware

import (
	"CardKeeper/internal/model"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	authCookieName = "auth_token"
	tokenTTL       = 24 * time.Hour
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	roleKey
)

type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
}

// BuildJWT подписывает токен для пользователя.
func BuildJWT(userID int64, role, secret string) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: userID,
		Role:   role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// SetLoginCookie выставляет cookie с подписанным токеном.
func SetLoginCookie(w http.ResponseWriter, userID int64, role, secret string) error {
	token, err := BuildJWT(userID, role, secret)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(tokenTTL),
	})
	return nil
}

// AccountLookup отдаёт актуальную учётную запись по id из токена.
type AccountLookup interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthOption настраивает WithAuth.
type AuthOption func(*authOptions)

type authOptions struct {
	accounts AccountLookup
}

// WithAccounts сверяет каждый токен с хранилищем: удалённая или
// отсутствующая учётная запись считается анонимной, роль берётся из записи.
func WithAccounts(l AccountLookup) AuthOption {
	return func(o *authOptions) { o.accounts = l }
}

// WithAuth кладёт user_id и роль в контекст, если cookie валиден.
// Без cookie запрос проходит анонимно — решение принимают хендлеры и RequireAdmin.
func WithAuth(secret string, opts ...AuthOption) func(http.Handler) http.Handler {
	var o authOptions
	for _, opt := range opts {
		opt(&o)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(authCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := parseJWT(c.Value, secret)
			if err != nil {
				sugar.Debugw("auth: invalid token", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			role := claims.Role
			if o.accounts != nil {
				u, err := o.accounts.GetByID(r.Context(), claims.UserID)
				if err != nil || u == nil || u.IsDeleted {
					sugar.Infow("auth: token of inactive account", "user_id", claims.UserID, "error", err)
					next.ServeHTTP(w, r)
					return
				}
				role = u.Role
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, roleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext возвращает user_id аутентифицированного пользователя.
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// GetRoleFromContext возвращает роль аутентифицированного пользователя.
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(roleKey).(string)
	return role, ok
}
