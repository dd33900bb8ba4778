package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/watchstore/internal/order/application"
	"github.com/dmehra2102/watchstore/internal/order/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/httpx"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in application.PlaceOrderInput) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID, userID uuid.UUID) (domain.Order, error)
	UpdateStatus(ctx context.Context, in application.StatusUpdate) (domain.Order, error)
	GetForUser(ctx context.Context, orderID, userID uuid.UUID) (domain.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, status string, page pagination.Request) (application.OrderPage, error)
	ListAll(ctx context.Context, userID *uuid.UUID, status string, page pagination.Request) (application.OrderPage, error)
	DashboardStats(ctx context.Context) (domain.Stats, error)
}

type Handler struct {
	log     *slog.Logger
	service OrderService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service OrderService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

// Routes serves /orders. authn must resolve the caller; placeGuards wrap only
// order placement (rate limiting, idempotency keys).
func (h *Handler) Routes(authn func(http.Handler) http.Handler, placeGuards ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(authn)
	r.With(placeGuards...).Post("/", h.placeOrder)
	r.Get("/my-orders", h.myOrders)
	r.Get("/{id}", h.getOrder)
	r.Patch("/{id}/cancel", h.cancelOrder)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin())
		r.Get("/", h.listAll)
		r.Patch("/{id}/status", h.updateStatus)
	})
	return r
}

// AdminRoutes registers order endpoints on a router that already enforces
// admin access.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/orders", h.listAll)
	r.Patch("/orders/{id}/status", h.updateStatus)
	r.Get("/dashboard/stats", h.dashboardStats)
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	p, _ := auth.FromContext(ctx)
	var in application.PlaceOrderInput
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	in.UserID = p.UserID

	o, err := h.service.PlaceOrder(ctx, in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID.String()), attribute.String("order.number", o.OrderNumber))
	httpx.JSON(w, http.StatusCreated, "Order created successfully", o)
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListMyOrders")
	defer span.End()

	p, _ := auth.FromContext(ctx)
	q := r.URL.Query()
	page, err := h.service.ListForUser(ctx, p.UserID, q.Get("status"), pagination.Parse(q, defaultLimit, maxLimit))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Orders retrieved successfully", page)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	id, err := orderID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, _ := auth.FromContext(ctx)
	o, err := h.service.GetForUser(ctx, id, p.UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Order retrieved successfully", o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CancelOrder")
	defer span.End()

	id, err := orderID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, _ := auth.FromContext(ctx)
	o, err := h.service.CancelOrder(ctx, id, p.UserID)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Order cancelled successfully", o)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	q := r.URL.Query()
	var userID *uuid.UUID
	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Error(w, r, h.log, apperr.Validation("userId must be a valid id"))
			return
		}
		userID = &id
	}
	page, err := h.service.ListAll(ctx, userID, q.Get("status"), pagination.Parse(q, defaultLimit, maxLimit))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Orders retrieved successfully", page)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	id, err := orderID(r)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var in application.StatusUpdate
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, _ := auth.FromContext(ctx)
	in.OrderID = id
	in.Actor = p.UserID

	o, err := h.service.UpdateStatus(ctx, in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Order status updated successfully", o)
}

type dashboard struct {
	Stats struct {
		TotalUsers     int64                   `json:"totalUsers"`
		TotalProducts  int64                   `json:"totalProducts"`
		TotalOrders    int64                   `json:"totalOrders"`
		TotalRevenue   string                  `json:"totalRevenue"`
		OrdersByStatus map[domain.Status]int64 `json:"ordersByStatus"`
	} `json:"stats"`
	RecentOrders []domain.Order      `json:"recentOrders"`
	TopProducts  []domain.TopProduct `json:"topProducts"`
}

func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DashboardStats")
	defer span.End()

	st, err := h.service.DashboardStats(ctx)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	var d dashboard
	d.Stats.TotalUsers = st.TotalUsers
	d.Stats.TotalProducts = st.TotalProducts
	d.Stats.TotalOrders = st.TotalOrders
	d.Stats.TotalRevenue = st.TotalRevenue.StringFixed(2)
	d.Stats.OrdersByStatus = st.OrdersByStatus
	d.RecentOrders = st.RecentOrders
	d.TopProducts = st.TopProducts
	httpx.JSON(w, http.StatusOK, "Dashboard statistics retrieved successfully", d)
}

func orderID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid order id")
	}
	return id, nil
}
