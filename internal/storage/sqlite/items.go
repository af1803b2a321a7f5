package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/storage"
)

const itemColumns = `id, session_id, name, quantity, unit_price, total_price,
	order_index, is_shared, ocr_confidence, manually_added, created_at`

// CreateItems inserts a batch of items after the session's existing items.
func (s *SQLiteStore) CreateItems(ctx context.Context, sessionID string, items []*models.Item) error {
	if len(items) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int
		err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(order_index) + 1, 0) FROM items WHERE session_id = ?", sessionID,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("failed to read order index: %w", err)
		}

		now := time.Now().Unix()
		for _, item := range items {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			if item.CreatedAt == 0 {
				item.CreatedAt = now
			}
			item.SessionID = sessionID
			item.OrderIndex = next
			next++
			item.ComputeTotal()

			_, err := tx.ExecContext(ctx,
				"INSERT INTO items ("+itemColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
				item.ID, item.SessionID, item.Name, item.Quantity, item.UnitPrice, item.TotalPrice,
				item.OrderIndex, item.IsShared, item.OCRConfidence, item.ManuallyAdded, item.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item: %w", err)
			}
		}
		return nil
	})
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(ctx context.Context, itemID string) (*models.Item, error) {
	return getItem(ctx, s.db, itemID)
}

func getItem(ctx context.Context, q querier, itemID string) (*models.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, "SELECT "+itemColumns+" FROM items WHERE id = ?", itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", itemID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// ListItems returns a session's items ordered by order index.
func (s *SQLiteStore) ListItems(ctx context.Context, sessionID string) ([]*models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE session_id = ? ORDER BY order_index, created_at",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

// UpdateItem persists an item's editable fields and re-derives its total.
func (s *SQLiteStore) UpdateItem(ctx context.Context, item *models.Item) error {
	item.ComputeTotal()
	res, err := s.db.ExecContext(ctx,
		"UPDATE items SET name = ?, quantity = ?, unit_price = ?, total_price = ? WHERE id = ?",
		item.Name, item.Quantity, item.UnitPrice, item.TotalPrice, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	return checkAffected(res, "item", item.ID)
}

// DeleteItem removes an item; its assignments cascade.
func (s *SQLiteStore) DeleteItem(ctx context.Context, itemID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", itemID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return checkAffected(res, "item", itemID)
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*models.Item, error) {
	var (
		item       models.Item
		confidence sql.NullFloat64
	)
	err := row.Scan(
		&item.ID, &item.SessionID, &item.Name, &item.Quantity, &item.UnitPrice, &item.TotalPrice,
		&item.OrderIndex, &item.IsShared, &confidence, &item.ManuallyAdded, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.OCRConfidence = nullFloat(confidence)
	return &item, nil
}
