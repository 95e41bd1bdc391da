package repository

import (
	"context"
	"errors"
	"fmt"

	"engage/internal/domain"
	"engage/pkg/database"
	"github.com/jackc/pgx/v5"
)

type itemRepository struct {
	db *database.PostgresDB
}

// NewItemRepository creates a new store item repository
func NewItemRepository(db *database.PostgresDB) ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) List(ctx context.Context) ([]domain.Item, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT id, name, description, image, price, created_at FROM items ORDER BY price, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return collectItems(rows)
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var it domain.Item
	err := r.db.Conn(ctx).QueryRow(ctx,
		`SELECT id, name, description, image, price, created_at FROM items WHERE id = $1`, id).
		Scan(&it.ID, &it.Name, &it.Description, &it.Image, &it.Price, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &it, nil
}

// GetByIDs returns the items found among ids keyed by id
func (r *itemRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Item, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT id, name, description, image, price, created_at FROM items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	items, err := collectItems(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]domain.Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	err := r.db.Conn(ctx).QueryRow(ctx, `
		INSERT INTO items (name, description, image, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		item.Name, item.Description, item.Image, item.Price).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func collectItems(rows pgx.Rows) ([]domain.Item, error) {
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Description, &it.Image, &it.Price, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
