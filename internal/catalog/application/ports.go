package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

type ProductRepository interface {
	List(ctx context.Context, f domain.Filter, page pagination.Request) ([]domain.Product, int64, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Product, error)
	Distinct(ctx context.Context, field Facet) ([]string, error)
	Featured(ctx context.Context, limit int) ([]domain.Product, error)
}

type Facet string

const (
	FacetCategory Facet = "category"
	FacetBrand    Facet = "brand"
)
