package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/domain"
)

type contextKey string

const ClientIDKey contextKey = "client_id"

// AuthValidator resolves a bearer token to a client identifier.
type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// StaticKeyValidator accepts exactly one configured key.
type StaticKeyValidator struct {
	key      []byte
	clientID string
}

func NewStaticKeyValidator(key string) *StaticKeyValidator {
	return &StaticKeyValidator{key: []byte(key), clientID: "default"}
}

func (v *StaticKeyValidator) ValidateAPIKey(ctx context.Context, token string) (string, error) {
	if len(v.key) == 0 || subtle.ConstantTimeCompare(v.key, []byte(token)) != 1 {
		return "", domain.ErrInvalidAPIKey
	}
	return v.clientID, nil
}

func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			clientID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), ClientIDKey, clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetClientID(ctx context.Context) string {
	clientID, _ := ctx.Value(ClientIDKey).(string)
	return clientID
}
