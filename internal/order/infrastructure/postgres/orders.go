package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/internal/order/application"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

const orderColumns = `o.id, o.order_number, o.user_id, o.shipping_address, o.billing_address,
	o.payment_method, o.subtotal, o.tax, o.shipping, o.total, o.status, o.tracking_number,
	o.notes, o.created_at, o.updated_at`

type orderWriter struct {
	tx pgx.Tx
}

// Insert writes the order and its line items. A taken order number is reported
// as ErrDuplicateOrderNumber without aborting the transaction.
func (w *orderWriter) Insert(ctx context.Context, o domain.Order) error {
	ct, err := w.tx.Exec(ctx, `INSERT INTO orders (id, order_number, user_id, shipping_address,
			billing_address, payment_method, subtotal, tax, shipping, total, status, tracking_number,
			notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (order_number) DO NOTHING`,
		o.ID, o.OrderNumber, o.UserID, o.ShippingAddress, o.BillingAddress, o.PaymentMethod,
		o.Subtotal, o.Tax, o.Shipping, o.Total, o.Status, o.TrackingNumber, o.Notes,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %s", o.ID)
	}
	if ct.RowsAffected() == 0 {
		return application.ErrDuplicateOrderNumber
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, position, product_id, name, image, price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			o.ID, i, item.ProductID, item.Name, item.Image, item.Price, item.Quantity)
	}
	return errors.Wrap(w.tx.SendBatch(ctx, batch).Close(), "insert order items")
}

func (w *orderWriter) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	o, err := scanOrder(w.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id))
	if pgutil.IsNoRows(err) {
		return domain.Order{}, application.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "lock order %s", id)
	}
	items, err := loadItems(ctx, w.tx, []uuid.UUID{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]
	return o, nil
}

func (w *orderWriter) UpdateStatus(ctx context.Context, o domain.Order) error {
	_, err := w.tx.Exec(ctx, `UPDATE orders
		SET status = $2, tracking_number = $3, notes = $4, updated_at = $5
		WHERE id = $1`, o.ID, o.Status, o.TrackingNumber, o.Notes, o.UpdatedAt)
	return errors.Wrapf(err, "update order %s", o.ID)
}

func (w *orderWriter) AppendTransition(ctx context.Context, orderID uuid.UUID, t domain.Transition) error {
	_, err := w.tx.Exec(ctx, `INSERT INTO order_status_transitions
			(order_id, from_status, to_status, actor_id, tracking_number, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		orderID, t.From, t.To, t.Actor, t.TrackingNumber, t.Notes, t.At)
	return errors.Wrapf(err, "record transition of %s", orderID)
}

func scanOrder(row pgx.Row, extra ...any) (domain.Order, error) {
	var o domain.Order
	dest := []any{&o.ID, &o.OrderNumber, &o.UserID, &o.ShippingAddress, &o.BillingAddress,
		&o.PaymentMethod, &o.Subtotal, &o.Tax, &o.Shipping, &o.Total, &o.Status, &o.TrackingNumber,
		&o.Notes, &o.CreatedAt, &o.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return o, err
}

func loadItems(ctx context.Context, q pgutil.DBTX, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.LineItem, error) {
	rows, err := q.Query(ctx, `SELECT order_id, product_id, name, image, price, quantity
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var orderID uuid.UUID
		var it domain.LineItem
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.Price, &it.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, errors.Wrap(rows.Err(), "iterate order items")
}
