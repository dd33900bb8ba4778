package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	catalog "github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/outbox"
	"github.com/dmehra2102/watchstore/pkg/pagination"
	"github.com/dmehra2102/watchstore/pkg/tracing"
)

const maxNumberAttempts = 5

type Service struct {
	log     *slog.Logger
	uow     UnitOfWork
	reader  OrderReader
	numbers *domain.NumberGenerator
	pricing domain.Pricing
	now     func() time.Time
}

func NewService(log *slog.Logger, uow UnitOfWork, reader OrderReader, numbers *domain.NumberGenerator, pricing domain.Pricing) *Service {
	return &Service{
		log:     log,
		uow:     uow,
		reader:  reader,
		numbers: numbers,
		pricing: pricing,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type ItemInput struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
}

type PlaceOrderInput struct {
	UserID          uuid.UUID            `json:"-"`
	Items           []ItemInput          `json:"items"`
	ShippingAddress domain.Address       `json:"shippingAddress"`
	BillingAddress  *domain.Address      `json:"billingAddress,omitempty"`
	PaymentMethod   domain.PaymentMethod `json:"paymentMethod"`
}

type requestedItem struct {
	productID uuid.UUID
	quantity  int
}

type placeRequest struct {
	userID   uuid.UUID
	items    []requestedItem
	shipping domain.Address
	billing  *domain.Address
	method   domain.PaymentMethod
}

func (in PlaceOrderInput) validate() (placeRequest, error) {
	if len(in.Items) == 0 {
		return placeRequest{}, apperr.Validation("Order must contain at least one item")
	}
	req := placeRequest{userID: in.UserID, items: make([]requestedItem, 0, len(in.Items))}
	for i, it := range in.Items {
		id, err := uuid.Parse(strings.TrimSpace(it.ProductID))
		if err != nil {
			return placeRequest{}, apperr.Validation("items[%d].product must be a valid product id", i)
		}
		if it.Quantity < 1 {
			return placeRequest{}, apperr.Validation("items[%d].quantity must be at least 1", i)
		}
		req.items = append(req.items, requestedItem{productID: id, quantity: it.Quantity})
	}
	if !in.PaymentMethod.Valid() {
		return placeRequest{}, apperr.Validation("paymentMethod must be one of credit-card, paypal, apple-pay, google-pay")
	}

	req.shipping = in.ShippingAddress.Normalize()
	if err := req.shipping.Validate("shippingAddress"); err != nil {
		return placeRequest{}, err
	}
	if in.BillingAddress != nil {
		billing := in.BillingAddress.Normalize()
		if err := billing.Validate("billingAddress"); err != nil {
			return placeRequest{}, err
		}
		req.billing = &billing
	}
	req.method = in.PaymentMethod
	return req, nil
}

// PlaceOrder validates every line against the catalog, then reserves all of the
// stock, inside one transaction. A failure on any line leaves no stock taken.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (domain.Order, error) {
	req, err := in.validate()
	if err != nil {
		return domain.Order{}, err
	}

	var placed domain.Order
	err = s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		items, subtotal, err := s.reserve(ctx, tx.Stock(), req.items)
		if err != nil {
			return err
		}

		o := domain.NewOrder(req.userID, items, req.shipping, req.billing, req.method, s.pricing.Compute(subtotal), s.now())
		if err := s.insertWithNumber(ctx, tx.Orders(), &o); err != nil {
			return err
		}

		ev, err := outbox.NewEvent(domain.AggregateType, o.ID.String(), domain.EventOrderPlaced, domain.OrderPlaced{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Total:       o.Total,
			Items:       domain.EventItems(o.Items),
		}, nil, tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, ev); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.InfoContext(ctx, "order placed", "order_id", placed.ID, "order_number", placed.OrderNumber, "total", placed.Total)
	return s.enriched(ctx, placed), nil
}

// reserve runs the read-only check over items in input order, then takes stock
// product by product in ascending id order.
func (s *Service) reserve(ctx context.Context, stock StockStore, req []requestedItem) ([]domain.LineItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(req))
	for _, it := range req {
		if !slices.Contains(ids, it.productID) {
			ids = append(ids, it.productID)
		}
	}
	want := make(map[uuid.UUID]int, len(ids))

	products, err := stock.GetMany(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	items := make([]domain.LineItem, 0, len(req))
	subtotal := decimal.Zero
	for _, it := range req {
		p, ok := products[it.productID]
		if !ok {
			return nil, decimal.Zero, apperr.NotFound("Product with ID %s not found", it.productID)
		}
		want[it.productID] += it.quantity
		if !p.CanFulfil(want[it.productID]) {
			return nil, decimal.Zero, insufficient(p.Name)
		}
		li := domain.LineItem{
			ProductID: p.ID,
			Quantity:  it.quantity,
			Price:     p.Price,
			Name:      p.Name,
			Image:     p.Image,
		}
		subtotal = subtotal.Add(li.Total())
		items = append(items, li)
	}

	slices.SortFunc(ids, compareIDs)
	for _, id := range ids {
		ok, err := stock.Reserve(ctx, id, want[id])
		if err != nil {
			return nil, decimal.Zero, err
		}
		if !ok {
			return nil, decimal.Zero, insufficient(products[id].Name)
		}
	}
	return items, subtotal, nil
}

func (s *Service) insertWithNumber(ctx context.Context, orders OrderWriter, o *domain.Order) error {
	for attempt := 1; ; attempt++ {
		o.OrderNumber = s.numbers.Next()
		err := orders.Insert(ctx, *o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			return err
		}
		if attempt == maxNumberAttempts {
			return apperr.Wrap(err, apperr.KindConflict, "Could not allocate an order number, please retry")
		}
		s.log.WarnContext(ctx, "order number collision", "order_number", o.OrderNumber, "attempt", attempt)
	}
}

// CancelOrder lets the owner cancel a pending order, returning its stock.
// Products deleted since the order was placed are skipped.
func (s *Service) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (domain.Order, error) {
	var cancelled domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != userID {
			return ErrOrderNotFound
		}
		t, err := o.Cancel(userID, s.now())
		if err != nil {
			return err
		}

		qty := o.Quantities()
		ids := make([]uuid.UUID, 0, len(qty))
		for id := range qty {
			ids = append(ids, id)
		}
		slices.SortFunc(ids, compareIDs)

		restored := make([]domain.EventItem, 0, len(ids))
		for _, id := range ids {
			ok, err := tx.Stock().Release(ctx, id, qty[id])
			if err != nil {
				return err
			}
			if !ok {
				s.log.WarnContext(ctx, "product gone, stock not restored", "order_id", o.ID, "product_id", id, "quantity", qty[id])
				continue
			}
			restored = append(restored, domain.EventItem{ProductID: id, Quantity: qty[id]})
		}

		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return err
		}
		if err := tx.Orders().AppendTransition(ctx, o.ID, t); err != nil {
			return err
		}
		ev, err := outbox.NewEvent(domain.AggregateType, o.ID.String(), domain.EventOrderCancelled, domain.OrderCancelled{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Items:       restored,
		}, nil, tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, ev); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.InfoContext(ctx, "order cancelled", "order_id", cancelled.ID, "order_number", cancelled.OrderNumber)
	return s.enriched(ctx, cancelled), nil
}

type StatusUpdate struct {
	OrderID        uuid.UUID     `json:"-"`
	Actor          uuid.UUID     `json:"-"`
	Status         domain.Status `json:"status"`
	TrackingNumber string        `json:"trackingNumber,omitempty"`
	Notes          string        `json:"notes,omitempty"`
}

// UpdateStatus is the privileged override. It never touches stock, even when
// the new status is cancelled.
func (s *Service) UpdateStatus(ctx context.Context, in StatusUpdate) (domain.Order, error) {
	if !in.Status.Valid() {
		return domain.Order{}, invalidStatus()
	}

	var updated domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, in.OrderID)
		if err != nil {
			return err
		}
		t, err := o.SetStatus(in.Status, in.TrackingNumber, in.Notes, in.Actor, s.now())
		if err != nil {
			return err
		}
		if err := tx.Orders().UpdateStatus(ctx, o); err != nil {
			return err
		}
		if err := tx.Orders().AppendTransition(ctx, o.ID, t); err != nil {
			return err
		}
		ev, err := outbox.NewEvent(domain.AggregateType, o.ID.String(), domain.EventOrderStatusChanged, domain.OrderStatusChanged{
			OrderID:        o.ID,
			OrderNumber:    o.OrderNumber,
			From:           t.From,
			To:             t.To,
			Actor:          t.Actor,
			TrackingNumber: o.TrackingNumber,
		}, nil, tracing.Traceparent(ctx))
		if err != nil {
			return err
		}
		if err := tx.Outbox().Enqueue(ctx, ev); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.InfoContext(ctx, "order status updated", "order_id", updated.ID, "status", updated.Status, "actor", in.Actor)
	return s.enriched(ctx, updated), nil
}

// GetForUser hides orders owned by someone else behind NotFound.
func (s *Service) GetForUser(ctx context.Context, orderID, userID uuid.UUID) (domain.Order, error) {
	o, err := s.reader.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.UserID != userID {
		return domain.Order{}, ErrOrderNotFound
	}
	return o, nil
}

type OrderPage struct {
	Orders     []domain.Order  `json:"orders"`
	Pagination pagination.Meta `json:"pagination"`
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, status string, page pagination.Request) (OrderPage, error) {
	return s.list(ctx, &userID, status, page)
}

func (s *Service) ListAll(ctx context.Context, userID *uuid.UUID, status string, page pagination.Request) (OrderPage, error) {
	return s.list(ctx, userID, status, page)
}

func (s *Service) list(ctx context.Context, userID *uuid.UUID, status string, page pagination.Request) (OrderPage, error) {
	f := ListFilter{UserID: userID, Status: domain.Status(status)}
	if f.Status != "" && !f.Status.Valid() {
		return OrderPage{}, invalidStatus()
	}
	orders, total, err := s.reader.List(ctx, f, page)
	if err != nil {
		return OrderPage{}, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return OrderPage{Orders: orders, Pagination: pagination.NewMeta(page, total)}, nil
}

func (s *Service) DashboardStats(ctx context.Context) (domain.Stats, error) {
	return s.reader.Stats(ctx)
}

// enriched re-reads o with its user populated. The write has committed by now,
// so a failed read falls back to what was written.
func (s *Service) enriched(ctx context.Context, o domain.Order) domain.Order {
	full, err := s.reader.Get(ctx, o.ID)
	if err != nil {
		s.log.WarnContext(ctx, "order re-read failed", "order_id", o.ID, "err", err)
		return o
	}
	return full
}

func insufficient(name string) error {
	return apperr.Wrap(catalog.ErrInsufficientStock, apperr.KindInsufficientStock, fmt.Sprintf("Insufficient stock for product %s", name))
}

func invalidStatus() error {
	names := make([]string, 0, len(domain.Statuses))
	for _, st := range domain.Statuses {
		names = append(names, string(st))
	}
	return apperr.Validation("Invalid status. Must be one of: %s", strings.Join(names, ", "))
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
