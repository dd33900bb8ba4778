package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dmehra2102/watchstore/pkg/apperr"
)

type Product struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Price           decimal.Decimal   `json:"price"`
	Image           string            `json:"image"`
	Description     string            `json:"description"`
	Brand           string            `json:"brand"`
	Category        string            `json:"category"`
	Movement        string            `json:"movement"`
	CaseMaterial    string            `json:"caseMaterial"`
	CaseSize        string            `json:"caseSize"`
	WaterResistance string            `json:"waterResistance"`
	Warranty        string            `json:"warranty"`
	Features        []string          `json:"features"`
	Specifications  map[string]string `json:"specifications"`
	InStock         bool              `json:"inStock"`
	StockCount      int               `json:"stockCount"`
	Rating          float64           `json:"rating"`
	Reviews         int               `json:"reviews"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

var ErrInsufficientStock = apperr.New(apperr.KindInsufficientStock, "insufficient stock")

// CanFulfil reports whether qty units can be taken right now.
func (p Product) CanFulfil(qty int) bool {
	return p.InStock && p.StockCount >= qty
}

// Take removes qty units, keeping InStock in line with StockCount.
func (p *Product) Take(qty int) error {
	if qty < 1 || !p.CanFulfil(qty) {
		return ErrInsufficientStock
	}
	p.StockCount -= qty
	p.InStock = p.StockCount > 0
	return nil
}

func (p *Product) Restock(qty int) {
	p.StockCount += qty
	p.InStock = p.StockCount > 0
}

type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortPrice     SortField = "price"
	SortName      SortField = "name"
	SortRating    SortField = "rating"
)

func ParseSortField(s string) SortField {
	switch f := SortField(s); f {
	case SortPrice, SortName, SortRating:
		return f
	default:
		return SortCreatedAt
	}
}

type Filter struct {
	Category string
	Brand    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	// Search is a full-text query over name, description and brand.
	Search string
	// Contains is a case-insensitive substring match over the same fields.
	Contains string
	InStock  *bool
	SortBy   SortField
	Asc      bool
}
