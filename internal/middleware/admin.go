package middleware

import (
	"net/http"
)

// AdminPolicy решает, допускается ли аутентифицированный запрос к админке.
type AdminPolicy interface {
	Allow(r *http.Request) bool
}

// RolePolicy пропускает пользователей с ролью Role.
type RolePolicy struct {
	Role string
}

func (p RolePolicy) Allow(r *http.Request) bool {
	role, ok := GetRoleFromContext(r.Context())
	return ok && role == p.Role
}

// RequireAdmin — шлюз авторизации: 401 без пользователя, 403 если политика отказала.
func RequireAdmin(policy AdminPolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := GetUserIDFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !policy.Allow(r) {
				sugar.Warnw("admin access denied", "user_id", uid, "uri", r.RequestURI)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
