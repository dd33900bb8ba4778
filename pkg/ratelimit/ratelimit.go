package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/httpx"
)

// Middleware allows limit requests per window for each caller, keyed by user id
// when authenticated and by client IP otherwise. Redis failures let requests through.
func Middleware(log *slog.Logger, rdb *redis.Client, scope string, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := "rate_limit:" + scope + ":" + caller(r)

			pipe := rdb.TxPipeline()
			incr := pipe.Incr(ctx, key)
			ttl := pipe.TTL(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				log.ErrorContext(ctx, "rate limit check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			current := incr.Val()

			// Re-arm the window whenever the counter has no expiry.
			if ttl.Val() < 0 {
				if err := rdb.Expire(ctx, key, window).Err(); err != nil {
					log.ErrorContext(ctx, "rate limit expiry failed", "key", key, "err", err)
				}
			}

			if current > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				httpx.Fail(w, http.StatusTooManyRequests, "Too many requests", "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func caller(r *http.Request) string {
	if p, ok := auth.FromContext(r.Context()); ok {
		return "user:" + p.UserID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
