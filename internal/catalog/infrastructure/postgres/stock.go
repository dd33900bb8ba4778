package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

// StockStore mutates product stock. Pass a pgx.Tx to make its writes part of a
// larger unit of work. in_stock is a generated column, so it tracks stock_count
// without being written here.
type StockStore struct {
	q pgutil.DBTX
}

func NewStockStore(q pgutil.DBTX) *StockStore {
	return &StockStore{q: q}
}

// GetMany locks the requested rows in id order, matching the order the
// workflow reserves them in.
func (s *StockStore) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Product, error) {
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]domain.Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// Reserve takes qty units only if that many remain. It reports false when the
// guard rejected the update or the product no longer exists.
func (s *StockStore) Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	ct, err := s.q.Exec(ctx, `UPDATE products
		SET stock_count = stock_count - $2, updated_at = now()
		WHERE id = $1 AND stock_count >= $2`, id, qty)
	if err != nil {
		return false, errors.Wrapf(err, "reserve %d of %s", qty, id)
	}
	return ct.RowsAffected() == 1, nil
}

// Release returns qty units. It reports false if the product was deleted.
func (s *StockStore) Release(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	ct, err := s.q.Exec(ctx, `UPDATE products
		SET stock_count = stock_count + $2, updated_at = now()
		WHERE id = $1`, id, qty)
	if err != nil {
		return false, errors.Wrapf(err, "release %d of %s", qty, id)
	}
	return ct.RowsAffected() == 1, nil
}
