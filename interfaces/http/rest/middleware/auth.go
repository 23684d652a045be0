package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/pkg/auth"
	"github.com/guangtouwangba/weaver-canvas/pkg/common"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
)

// Authenticate validates the bearer token on every request and stores the
// authenticated user ID in the request context. When no validator is
// configured (local development without JWT_SECRET) requests pass through
// with an anonymous user.
func Authenticate(validator *auth.JWTValidator, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validator == nil {
				ctx := common.WithUserID(r.Context(), "anonymous")
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			token := extractToken(r)
			if token == "" {
				common.RespondAppError(w, apperrors.NewUnauthorizedError("missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Warn("Rejected token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				switch err {
				case auth.ErrExpiredToken:
					common.RespondAppError(w, apperrors.NewUnauthorizedError("token has expired"))
				default:
					common.RespondAppError(w, apperrors.NewUnauthorizedError("invalid token"))
				}
				return
			}

			ctx := common.WithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken pulls the JWT from the Authorization header or auth cookie.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	return ""
}
