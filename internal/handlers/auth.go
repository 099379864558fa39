package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type callerKey struct{}

// Authenticator проверяет bearer-токены HS256 и кладет идентификатор пользователя (claim sub) в контекст запроса.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

// NewAuthenticator создает новый экземпляр Authenticator.
func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	return &Authenticator{secret: []byte(secret), logger: logger}
}

// Middleware пропускает запрос дальше только с валидным токеном.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userId, err := a.authenticate(r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Debug("rejected request", "path", r.URL.Path, "error", err)
			utils.SendErrorResponse(w, http.StatusUnauthorized, models.KindUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), userId)))
	})
}

func (a *Authenticator) authenticate(header string) (string, error) {
	const prefix = "Bearer "
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	if !strings.HasPrefix(header, prefix) || len(header) == len(prefix) {
		return "", errors.New("invalid authorization format")
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(header[len(prefix):], &claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", errors.New("invalid or expired token")
	}

	userId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return "", errors.New("invalid token claims")
	}
	return userId.String(), nil
}

// WithCaller возвращает контекст с идентификатором вызывающего пользователя.
func WithCaller(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, callerKey{}, userId)
}

// CallerFromContext возвращает идентификатор вызывающего пользователя или пустую строку.
func CallerFromContext(ctx context.Context) string {
	userId, _ := ctx.Value(callerKey{}).(string)
	return userId
}
