package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/cafepos/internal/domain"
)

const menuItemColumns = `id, name, price, gst_percentage, category, available, created_at, updated_at`

type menuRepository struct {
	db *sql.DB
}

// NewMenuRepository создаёт PostgreSQL-реализацию MenuRepository.
func NewMenuRepository(store *Store) domain.MenuRepository {
	return &menuRepository{db: store.DB()}
}

func (r *menuRepository) Create(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO menu_items (name, price, gst_percentage, category, available)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING `+menuItemColumns,
		item.Name, item.Price, item.GSTPercentage, nullIfEmpty(item.Category), item.Available,
	)
	created, err := scanMenuItem(row)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("insert menu item: %w", err)
	}
	return created, nil
}

func (r *menuRepository) Get(ctx context.Context, id string) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	item, err := scanMenuItem(r.db.QueryRowContext(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasPgCode(err, pgInvalidTextRepresentation) {
			return domain.MenuItem{}, domain.ErrMenuItemNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("select menu item: %w", err)
	}
	return item, nil
}

func (r *menuRepository) Update(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	updated, err := scanMenuItem(r.db.QueryRowContext(ctx, `
		UPDATE menu_items
		SET name = $2,
		    price = $3,
		    gst_percentage = $4,
		    category = $5,
		    available = $6,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+menuItemColumns,
		item.ID, item.Name, item.Price, item.GSTPercentage, nullIfEmpty(item.Category), item.Available,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || hasPgCode(err, pgInvalidTextRepresentation) {
			return domain.MenuItem{}, domain.ErrMenuItemNotFound
		}
		return domain.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	return updated, nil
}

func (r *menuRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE id = $1`, id)
	if err != nil {
		if hasPgCode(err, pgInvalidTextRepresentation) {
			return domain.ErrMenuItemNotFound
		}
		return fmt.Errorf("delete menu item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for menu item delete: %w", err)
	}
	if affected == 0 {
		return domain.ErrMenuItemNotFound
	}
	return nil
}

func (r *menuRepository) ListAll(ctx context.Context) ([]domain.MenuItem, error) {
	return r.list(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		ORDER BY created_at DESC, id DESC
	`)
}

func (r *menuRepository) ListAvailable(ctx context.Context) ([]domain.MenuItem, error) {
	return r.list(ctx, `
		SELECT `+menuItemColumns+`
		FROM menu_items
		WHERE available
		ORDER BY name ASC, id ASC
	`)
}

func (r *menuRepository) list(ctx context.Context, query string) ([]domain.MenuItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0)
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu items: %w", err)
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMenuItem(row rowScanner) (domain.MenuItem, error) {
	var (
		item     domain.MenuItem
		category sql.NullString
	)
	if err := row.Scan(
		&item.ID, &item.Name, &item.Price, &item.GSTPercentage,
		&category, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return domain.MenuItem{}, err
	}
	item.Category = category.String
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ domain.MenuRepository = (*menuRepository)(nil)
