package application

import (
	"context"

	"github.com/google/uuid"

	catalog "github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

// ErrDuplicateOrderNumber is returned by OrderWriter.Insert when the number is
// taken. The surrounding transaction stays usable.
var ErrDuplicateOrderNumber = apperr.New(apperr.KindConflict, "order number already exists")

var ErrOrderNotFound = apperr.NotFound("Order not found")

type StockStore interface {
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error)
	// Reserve reports false when fewer than qty units remain.
	Reserve(ctx context.Context, id uuid.UUID, qty int) (bool, error)
	// Release reports false when the product no longer exists.
	Release(ctx context.Context, id uuid.UUID, qty int) (bool, error)
}

type OrderWriter interface {
	Insert(ctx context.Context, o domain.Order) error
	// GetForUpdate locks the order row until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error)
	UpdateStatus(ctx context.Context, o domain.Order) error
	AppendTransition(ctx context.Context, orderID uuid.UUID, t domain.Transition) error
}

type OutboxWriter interface {
	Enqueue(ctx context.Context, ev outbox.Event) error
}

type Tx interface {
	Stock() StockStore
	Orders() OrderWriter
	Outbox() OutboxWriter
}

// UnitOfWork runs fn in one transaction. Any error from fn rolls back every
// write made through tx.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type ListFilter struct {
	UserID *uuid.UUID
	Status domain.Status
}

type OrderReader interface {
	// Get returns the order with its user summary and status history.
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	List(ctx context.Context, f ListFilter, page pagination.Request) ([]domain.Order, int64, error)
	Stats(ctx context.Context) (domain.Stats, error)
}
