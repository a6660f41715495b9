// Package middleware HTTP middleware: аутентификация и метрики запросов.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/kir4ng/PCS-BookingService/internal/api/handlers"
)

type contextKey string

// userIDKey ключ контекста с идентификатором аутентифицированного пользователя
const userIDKey contextKey = "userID"

// Auth проверяет заголовок X-User-ID и кладет его значение в контекст.
// Аутентификацию выполняет API gateway, сюда заголовок приходит уже проверенным.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			handlers.RespondUnauthorized(w, "unauthorized")
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			handlers.RespondUnauthorized(w, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext возвращает идентификатор пользователя из контекста
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
