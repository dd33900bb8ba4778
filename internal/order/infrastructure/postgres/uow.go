package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	catalogpg "github.com/dmehra2102/watchstore/internal/catalog/infrastructure/postgres"
	"github.com/dmehra2102/watchstore/internal/order/application"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

// UnitOfWork scopes stock, order and outbox writes to one transaction.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx application.Tx) error) error {
	return pgutil.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txScope{
			stock:  catalogpg.NewStockStore(tx),
			orders: &orderWriter{tx: tx},
			outbox: &outboxWriter{q: tx},
		})
	})
}

type txScope struct {
	stock  *catalogpg.StockStore
	orders *orderWriter
	outbox *outboxWriter
}

func (t *txScope) Stock() application.StockStore { return t.stock }
func (t *txScope) Orders() application.OrderWriter { return t.orders }
func (t *txScope) Outbox() application.OutboxWriter { return t.outbox }
