package ordering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists display order items in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new ordering store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q querier, lock bool) ([]Item, error) {
	query := `SELECT id, item_type, item_id, display_order FROM display_order_items
		ORDER BY display_order ASC, id ASC`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing display order: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ItemType, &it.ItemID, &it.DisplayOrder); err != nil {
			return nil, fmt.Errorf("scanning display order row: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns every item sorted by display_order.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	return listItems(ctx, s.pool, false)
}

// Count returns the number of stored items.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM display_order_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting display order: %w", err)
	}
	return n, nil
}

// InsertAll bulk inserts items with COPY. Existing rows are left in place.
func (s *Store) InsertAll(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	_, err := s.pool.CopyFrom(ctx, pgx.Identifier{"display_order_items"},
		[]string{"item_type", "item_id", "display_order"}, copyRows(items))
	if err != nil {
		return fmt.Errorf("inserting display order: %w", err)
	}
	return nil
}

// Replace makes the stored order equal to items by applying the diff
// against the current rows inside one transaction. Readers never observe a
// partially applied order.
func (s *Store) Replace(ctx context.Context, items []Item) (Diff, error) {
	var d Diff
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		existing, err := listItems(ctx, tx, true)
		if err != nil {
			return err
		}
		d = computeDiff(existing, items)
		if d.Empty() {
			return nil
		}

		if len(d.Deletes) > 0 {
			if _, err := tx.Exec(ctx,
				`DELETE FROM display_order_items WHERE id = ANY($1::text[]::uuid[])`, d.Deletes); err != nil {
				return fmt.Errorf("deleting display order rows: %w", err)
			}
		}

		if len(d.Updates) > 0 {
			batch := &pgx.Batch{}
			for _, it := range d.Updates {
				batch.Queue(`UPDATE display_order_items SET display_order = $1 WHERE id = $2`, it.DisplayOrder, it.ID)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("updating display order rows: %w", err)
			}
		}

		if len(d.Inserts) > 0 {
			if _, err := tx.CopyFrom(ctx, pgx.Identifier{"display_order_items"},
				[]string{"item_type", "item_id", "display_order"}, copyRows(d.Inserts)); err != nil {
				return fmt.Errorf("inserting display order rows: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return Diff{}, fmt.Errorf("replacing display order: %w", err)
	}
	return d, nil
}

func copyRows(items []Item) pgx.CopyFromSource {
	return pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		id, err := uuid.Parse(items[i].ItemID)
		if err != nil {
			return nil, fmt.Errorf("item %d: invalid item_id: %w", i, err)
		}
		return []any{string(items[i].ItemType), id, items[i].DisplayOrder}, nil
	})
}
