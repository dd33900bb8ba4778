package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/httpx"
)

const Header = "Idempotency-Key"

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func (s *Store) Key(topic string, partition int, offset int64) string {
	return fmt.Sprintf("idem:%s:%d:%d", topic, partition, offset)
}

// Seen claims key and reports whether it had already been claimed.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}

	return !ok, nil
}

// Release frees key so a later attempt can claim it again.
func (s *Store) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Middleware deduplicates requests carrying an Idempotency-Key header. A key is
// held only while the request succeeds; failed or panicking attempts release it.
func Middleware(log *slog.Logger, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := r.Header.Get(Header)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			owner := "anonymous"
			if p, ok := auth.FromContext(r.Context()); ok {
				owner = p.UserID.String()
			}
			key := fmt.Sprintf("idem:http:%s:%s:%s", owner, r.URL.Path, k)

			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.ErrorContext(r.Context(), "idempotency check failed", "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				httpx.Fail(w, http.StatusConflict, "Duplicate request", "a request with this Idempotency-Key was already processed")
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec != nil || ww.Status() >= http.StatusBadRequest {
					if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
						log.ErrorContext(r.Context(), "idempotency release failed", "key", key, "err", err)
					}
				}
				if rec != nil {
					panic(rec)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
