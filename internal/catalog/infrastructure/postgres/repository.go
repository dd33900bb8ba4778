package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/dmehra2102/watchstore/internal/catalog/application"
	"github.com/dmehra2102/watchstore/internal/catalog/domain"
	"github.com/dmehra2102/watchstore/pkg/apperr"
	"github.com/dmehra2102/watchstore/pkg/pagination"
	"github.com/dmehra2102/watchstore/pkg/pgutil"
)

const productColumns = `id, name, price, image, description, brand, category, movement, case_material,
	case_size, water_resistance, warranty, features, specifications, in_stock, stock_count, rating,
	reviews, created_at, updated_at`

var sortColumns = map[domain.SortField]string{
	domain.SortCreatedAt: "created_at",
	domain.SortPrice:     "price",
	domain.SortName:      "name",
	domain.SortRating:    "rating",
}

var facetColumns = map[application.Facet]string{
	application.FacetCategory: "category",
	application.FacetBrand:    "brand",
}

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) List(ctx context.Context, f domain.Filter, page pagination.Request) ([]domain.Product, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count products")
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = sortColumns[domain.SortCreatedAt]
	}
	dir := "DESC"
	if f.Asc {
		dir = "ASC"
	}
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM products%s ORDER BY %s %s, id LIMIT $%d OFFSET $%d`,
		productColumns, where, col, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list products")
	}
	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if pgutil.IsNoRows(err) {
		return domain.Product{}, apperr.NotFound("Product not found")
	}
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "get product %s", id)
	}
	return p, nil
}

func (r *Repository) Distinct(ctx context.Context, facet application.Facet) ([]string, error) {
	col, ok := facetColumns[facet]
	if !ok {
		return nil, errors.Errorf("unknown facet %q", facet)
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT DISTINCT %[1]s FROM products WHERE %[1]s <> '' ORDER BY 1`, col))
	if err != nil {
		return nil, errors.Wrapf(err, "distinct %s", col)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrapf(err, "scan distinct %s", col)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (r *Repository) Featured(ctx context.Context, limit int) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products
		WHERE in_stock
		ORDER BY rating DESC, reviews DESC, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "featured products")
	}
	return collectProducts(rows)
}

func buildWhere(f domain.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Category != "" {
		add("category = $%d", f.Category)
	}
	if f.Brand != "" {
		add("brand = $%d", f.Brand)
	}
	if f.MinPrice != nil {
		add("price >= $%d", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price <= $%d", *f.MaxPrice)
	}
	if f.Search != "" {
		add("search @@ plainto_tsquery('english', $%d)", f.Search)
	}
	if f.Contains != "" {
		add("(name ILIKE $%[1]d OR description ILIKE $%[1]d OR brand ILIKE $%[1]d)", "%"+pgutil.EscapeLike(f.Contains)+"%")
	}
	if f.InStock != nil {
		add("in_stock = $%d", *f.InStock)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.Brand, &p.Category,
		&p.Movement, &p.CaseMaterial, &p.CaseSize, &p.WaterResistance, &p.Warranty, &p.Features,
		&p.Specifications, &p.InStock, &p.StockCount, &p.Rating, &p.Reviews, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()
	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan product")
		}
		products = append(products, p)
	}
	return products, errors.Wrap(rows.Err(), "iterate products")
}
