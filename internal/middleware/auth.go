package middleware

import (
	"net/http"
	"strings"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Claims - утверждения токена; идентификатор пользователя лежит в sub.
type Claims struct {
	jwt.RegisteredClaims
}

// Auth проверяет bearer-токен HS256 и кладет пользователя в контекст.
// Токены сервис только проверяет, выпуском занимается внешний провайдер.
func Auth(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				utils.SendError(w, http.StatusUnauthorized, models.KindUnauthorized, "missing token")
				return
			}
			tok := strings.TrimPrefix(h, "Bearer ")

			claims := &Claims{}
			parsed, err := parser.ParseWithClaims(tok, claims, keyFunc)
			if err != nil || !parsed.Valid || claims.Subject == "" {
				utils.SendError(w, http.StatusUnauthorized, models.KindUnauthorized, "invalid token")
				return
			}

			ctx := models.WithActor(r.Context(), models.Actor{UserID: claims.Subject})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
