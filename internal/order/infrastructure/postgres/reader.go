package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/internal/order/application"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/pagination"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

const (
	recentOrders = 10
	topProducts  = 5
)

// Reader serves order queries with the owning user joined in.
type Reader struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewReader(log *slog.Logger, pool *pgxpool.Pool) *Reader {
	return &Reader{log: log, pool: pool}
}

const withUser = orderColumns + `, u.first_name, u.last_name, u.email`

func (r *Reader) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	var u domain.UserSummary
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+withUser+`
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.id = $1`, id), &u.FirstName, &u.LastName, &u.Email)
	if pgutil.IsNoRows(err) {
		return domain.Order{}, application.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "get order %s", id)
	}
	u.ID = o.UserID
	o.User = &u

	items, err := loadItems(ctx, r.pool, []uuid.UUID{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.Items = items[id]

	if o.History, err = r.history(ctx, id); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Reader) history(ctx context.Context, id uuid.UUID) ([]domain.Transition, error) {
	rows, err := r.pool.Query(ctx, `SELECT from_status, to_status, actor_id, tracking_number, notes, created_at
		FROM order_status_transitions WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrap(err, "load order history")
	}
	defer rows.Close()

	var out []domain.Transition
	for rows.Next() {
		var t domain.Transition
		if err := rows.Scan(&t.From, &t.To, &t.Actor, &t.TrackingNumber, &t.Notes, &t.At); err != nil {
			return nil, errors.Wrap(err, "scan transition")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "iterate history")
}

func (r *Reader) List(ctx context.Context, f application.ListFilter, page pagination.Request) ([]domain.Order, int64, error) {
	var conds []string
	var args []any
	if f.UserID != nil {
		args = append(args, *f.UserID)
		conds = append(conds, fmt.Sprintf("o.user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("o.status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	args = append(args, page.Limit, page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s
		FROM orders o JOIN users u ON u.id = o.user_id%s
		ORDER BY o.created_at DESC, o.id
		LIMIT $%d OFFSET $%d`, withUser, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var orders []domain.Order
	var ids []uuid.UUID
	for rows.Next() {
		var u domain.UserSummary
		o, err := scanOrder(rows, &u.FirstName, &u.LastName, &u.Email)
		if err != nil {
			return nil, 0, errors.Wrap(err, "scan order")
		}
		u.ID = o.UserID
		o.User = &u
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterate orders")
	}
	if len(orders) == 0 {
		return orders, total, nil
	}

	items, err := loadItems(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, total, nil
}

// Stats counts revenue from orders that are being or have been fulfilled.
func (r *Reader) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{OrdersByStatus: make(map[domain.Status]int64, len(domain.Statuses))}
	for _, s := range domain.Statuses {
		st.OrdersByStatus[s] = 0
	}

	err := r.pool.QueryRow(ctx, `SELECT
			(SELECT count(*) FROM users),
			(SELECT count(*) FROM products),
			(SELECT count(*) FROM orders),
			(SELECT coalesce(sum(total), 0) FROM orders WHERE status IN ('processing', 'shipped', 'delivered'))`).
		Scan(&st.TotalUsers, &st.TotalProducts, &st.TotalOrders, &st.TotalRevenue)
	if err != nil {
		return domain.Stats{}, errors.Wrap(err, "count totals")
	}

	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return domain.Stats{}, errors.Wrap(err, "count by status")
	}
	for rows.Next() {
		var s domain.Status
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			rows.Close()
			return domain.Stats{}, errors.Wrap(err, "scan status count")
		}
		st.OrdersByStatus[s] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return domain.Stats{}, errors.Wrap(err, "iterate status counts")
	}

	if st.RecentOrders, _, err = r.List(ctx, application.ListFilter{}, pagination.Request{Page: 1, Limit: recentOrders}); err != nil {
		return domain.Stats{}, err
	}
	if st.RecentOrders == nil {
		st.RecentOrders = []domain.Order{}
	}
	if st.TopProducts, err = r.topProducts(ctx); err != nil {
		return domain.Stats{}, err
	}
	return st, nil
}

func (r *Reader) topProducts(ctx context.Context) ([]domain.TopProduct, error) {
	rows, err := r.pool.Query(ctx, `SELECT oi.product_id, max(oi.name), sum(oi.quantity), sum(oi.price * oi.quantity)
		FROM order_items oi JOIN orders o ON o.id = oi.order_id
		WHERE o.status <> 'cancelled'
		GROUP BY oi.product_id
		ORDER BY 3 DESC, 1
		LIMIT $1`, topProducts)
	if err != nil {
		return nil, errors.Wrap(err, "top products")
	}
	defer rows.Close()

	out := []domain.TopProduct{}
	for rows.Next() {
		var p domain.TopProduct
		if err := rows.Scan(&p.ProductID, &p.Name, &p.TotalSold, &p.Revenue); err != nil {
			return nil, errors.Wrap(err, "scan top product")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate top products")
}
