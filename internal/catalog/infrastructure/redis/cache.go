package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/dmehra2102/watchstore/internal/catalog/application"
	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

// CachedRepository serves product detail reads from Redis, falling back to the
// primary repository. Listings are not cached.
type CachedRepository struct {
	log     *slog.Logger
	primary application.ProductRepository
	rdb     *redis.Client
	ttl     time.Duration
}

func NewCachedRepository(log *slog.Logger, primary application.ProductRepository, rdb *redis.Client, ttl time.Duration) *CachedRepository {
	return &CachedRepository{log: log, primary: primary, rdb: rdb, ttl: ttl}
}

func Key(id uuid.UUID) string {
	return "product:" + id.String()
}

func (r *CachedRepository) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	key := Key(id)

	cached, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p domain.Product
		if err := json.Unmarshal(cached, &p); err == nil {
			return p, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		r.log.WarnContext(ctx, "product cache read failed", "key", key, "err", err)
	}

	p, err := r.primary.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.log.WarnContext(ctx, "product cache write failed", "key", key, "err", err)
		}
	}
	return p, nil
}

// Evict drops the cached entries of ids.
func (r *CachedRepository) Evict(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, Key(id))
	}
	return errors.Wrap(r.rdb.Del(ctx, keys...).Err(), "evict products")
}

func (r *CachedRepository) List(ctx context.Context, f domain.Filter, page pagination.Request) ([]domain.Product, int64, error) {
	return r.primary.List(ctx, f, page)
}

func (r *CachedRepository) Distinct(ctx context.Context, facet application.Facet) ([]string, error) {
	return r.primary.Distinct(ctx, facet)
}

func (r *CachedRepository) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	return r.primary.Featured(ctx, limit)
}
