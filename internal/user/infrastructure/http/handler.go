package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/watchstore/internal/user/application"
	"github.com/dmehra2102/watchstore/internal/user/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/auth"
	"github.com/dmehra2102/watchstore/pkg/httpx"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

type UserService interface {
	List(ctx context.Context, search string, page pagination.Request) (application.UserPage, error)
	Profile(ctx context.Context, id uuid.UUID) (domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, p domain.ProfileUpdate) (domain.User, error)
}

type Handler struct {
	log     *slog.Logger
	service UserService
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service UserService) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("user-http"),
	}
}

// Routes serves /auth. Token issuance lives outside this service, so only the
// profile endpoints are exposed.
func (h *Handler) Routes(authn func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(authn)
	r.Get("/profile", h.profile)
	r.Put("/profile", h.updateProfile)
	return r
}

// AdminRoutes registers user endpoints on a router that already enforces
// admin access.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Get("/users", h.list)
	r.Get("/profile", h.adminProfile)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListUsers")
	defer span.End()

	q := r.URL.Query()
	page, err := h.service.List(ctx, q.Get("search"), pagination.Parse(q, 10, 50))
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Users retrieved successfully", page)
}

type userBody struct {
	User domain.User `json:"user"`
}

type adminBody struct {
	Admin domain.User `json:"admin"`
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProfile")
	defer span.End()

	p, _ := auth.FromContext(ctx)
	u, err := h.service.Profile(ctx, p.UserID)
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Profile retrieved successfully", userBody{User: u})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateProfile")
	defer span.End()

	var in domain.ProfileUpdate
	if err := httpx.Decode(r, &in); err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	p, _ := auth.FromContext(ctx)
	u, err := h.service.UpdateProfile(ctx, p.UserID, in)
	if err != nil {
		span.RecordError(err)
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Profile updated successfully", userBody{User: u})
}

func (h *Handler) adminProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetAdminProfile")
	defer span.End()

	p, _ := auth.FromContext(ctx)
	u, err := h.service.Profile(ctx, p.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		err = apperr.NotFound("Admin not found")
	}
	if err != nil {
		httpx.Error(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, "Admin profile retrieved successfully", adminBody{Admin: u})
}
