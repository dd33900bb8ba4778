package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/pagination"
)

const maxFeatured = 50

type Service struct {
	repo ProductRepository
}

func NewService(repo ProductRepository) *Service {
	return &Service{repo: repo}
}

type ProductPage struct {
	Products   []domain.Product `json:"products"`
	Pagination pagination.Meta  `json:"pagination"`
}

func (s *Service) List(ctx context.Context, f domain.Filter, page pagination.Request) (ProductPage, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return ProductPage{}, apperr.Validation("minPrice must not exceed maxPrice")
	}
	products, total, err := s.repo.List(ctx, f, page)
	if err != nil {
		return ProductPage{}, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return ProductPage{Products: products, Pagination: pagination.NewMeta(page, total)}, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	return s.repo.Distinct(ctx, FacetCategory)
}

func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return s.repo.Distinct(ctx, FacetBrand)
}

// Featured returns the best rated in-stock products.
func (s *Service) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	if limit < 1 {
		limit = 6
	}
	if limit > maxFeatured {
		limit = maxFeatured
	}
	return s.repo.Featured(ctx, limit)
}
