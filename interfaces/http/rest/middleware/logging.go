package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/pkg/common"
)

// Logger logs one line per request with status, size and timing.
func Logger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx := common.WithRequestID(r.Context(), chimiddleware.GetReqID(r.Context()))
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			}
			if userID, ok := common.UserIDFromContext(r.Context()); ok {
				fields = append(fields, zap.String("userID", userID))
			}
			logger.Info("HTTP request", fields...)
		})
	}
}
