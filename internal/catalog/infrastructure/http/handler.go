package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/watchstore/internal/catalog/application"
	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/httpx"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

const (
	publicDefaultLimit = 10
	publicMaxLimit     = 50
	adminDefaultLimit  = 20
	adminMaxLimit      = 100
)

type ProductService interface {
	List(ctx context.Context, f domain.Filter, page pagination.Request) (application.ProductPage, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	Brands(ctx context.Context) ([]string, error)
	Featured(ctx context.Context, limit int) ([]domain.Product, error)
}

type Handler struct {
	log     *slog.Logger
	service ProductService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service ProductService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("catalog-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/featured", h.featured)
	r.Get("/categories", h.categories)
	r.Get("/brands", h.brands)
	r.Get("/{id}", h.get)
	return r
}

// AdminRoutes registers catalog endpoints on a router that already enforces
// admin access.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/products", h.adminList)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	q := r.URL.Query()
	f := domain.Filter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Search:   q.Get("search"),
		SortBy:   domain.ParseSortField(q.Get("sortBy")),
		Asc:      q.Get("sortOrder") == "asc",
	}
	var err error
	if f.MinPrice, err = price(q, "minPrice"); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	if f.MaxPrice, err = price(q, "maxPrice"); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}

	page, err := h.service.List(ctx, f, pagination.Parse(q, publicDefaultLimit, publicMaxLimit))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Products retrieved successfully", page)
}

func (h *Handler) adminList(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AdminListProducts")
	defer span.End()

	q := r.URL.Query()
	f := domain.Filter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Contains: q.Get("search"),
		SortBy:   domain.SortCreatedAt,
	}
	if raw := q.Get("inStock"); raw != "" {
		inStock := raw == "true"
		f.InStock = &inStock
	}

	page, err := h.service.List(ctx, f, pagination.Parse(q, adminDefaultLimit, adminMaxLimit))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Products retrieved successfully", page)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Error(w, r, h.log, apperr.NotFound("Product not found"))
		return
	}
	p, err := h.service.Get(ctx, id)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Product retrieved successfully", p)
}

func (h *Handler) categories(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Categories retrieved successfully", values)
}

func (h *Handler) brands(w http.ResponseWriter, r *http.Request) {
	values, err := h.service.Brands(r.Context())
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Brands retrieved successfully", values)
}

func (h *Handler) featured(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.service.Featured(r.Context(), limit)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Featured products retrieved successfully", products)
}

func price(q url.Values, key string) (*decimal.Decimal, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return nil, apperr.Validation("%s must be a non-negative number", key)
	}
	return &d, nil
}
