package http

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

func RateLimitMiddleware(limiter *RateLimiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client, ok, wait := limiter.Admit(r)
			if !ok {
				logger.Info("rate limit exceeded", zap.String("client", client), zap.String("path", r.URL.Path))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, int(math.Ceil(wait.Seconds())))))
				writeError(w, logger, http.StatusTooManyRequests, "rate limit exceeded", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
