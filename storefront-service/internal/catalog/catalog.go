package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/habibmedhh/EcommerceLinguistic-sub001/storefront-service/internal/domain"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

var ErrProductNotFound = errors.New("product not found")

// Reader is the read side of the catalog used by the HTTP layer.
type Reader interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

const productColumns = `id, name, description, price, sale_price, image_url`

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	index := map[int64]int{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	trows, err := r.db.QueryContext(ctx, `SELECT product_id, lang, name, description FROM product_translations`)
	if err != nil {
		return nil, fmt.Errorf("failed to query translations: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var (
			productID         int64
			lang, name, descr string
		)
		if err := trows.Scan(&productID, &lang, &name, &descr); err != nil {
			return nil, fmt.Errorf("failed to scan translation: %w", err)
		}
		if i, ok := index[productID]; ok {
			addTranslation(&products[i], lang, name, descr)
		}
	}
	if err := trows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	if err != nil {
		return domain.Product{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT lang, name, description FROM product_translations WHERE product_id = ?`, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to query translations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lang, name, descr string
		if err := rows.Scan(&lang, &name, &descr); err != nil {
			return domain.Product{}, fmt.Errorf("failed to scan translation: %w", err)
		}
		addTranslation(&p, lang, name, descr)
	}
	if err := rows.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("row iteration error: %w", err)
	}

	return p, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var (
		p    domain.Product
		sale decimal.NullDecimal
	)
	if err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &sale, &p.ImageURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("failed to scan product: %w", err)
	}
	if sale.Valid {
		p.SalePrice = &sale.Decimal
	}
	return p, nil
}

func addTranslation(p *domain.Product, lang, name, descr string) {
	if name != "" {
		if p.Names == nil {
			p.Names = map[string]string{}
		}
		p.Names[lang] = name
	}
	if descr != "" {
		if p.Descriptions == nil {
			p.Descriptions = map[string]string{}
		}
		p.Descriptions[lang] = descr
	}
}
