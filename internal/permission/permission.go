// Package permission manages data access grants that let one account write
// another account's data without taking ownership of it.
package permission

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DataType is the kind of data a grant covers.
type DataType string

const (
	DataCareer  DataType = "career"
	DataProfile DataType = "profile"
)

// Level is the access level of a grant.
type Level string

const (
	LevelRead  Level = "read"
	LevelWrite Level = "write"
)

// Grant gives UserID access to OriginalOwnerID's data of DataType.
type Grant struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	OriginalOwnerID string    `json:"original_owner_id"`
	DataType        DataType  `json:"data_type"`
	AccessLevel     Level     `json:"access_level"`
	CreatedAt       time.Time `json:"created_at"`
}

// GrantInput holds the fields of a new grant.
type GrantInput struct {
	UserID          string   `json:"user_id" validate:"required,uuid"`
	OriginalOwnerID string   `json:"original_owner_id" validate:"required,uuid,nefield=UserID"`
	DataType        DataType `json:"data_type" validate:"required,oneof=career profile"`
	AccessLevel     Level    `json:"access_level" validate:"required,oneof=read write"`
}

const grantColumns = `id, user_id, original_owner_id, data_type, access_level, created_at`

// Store provides database operations for grants.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new grant store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanGrant(scan func(dest ...any) error) (*Grant, error) {
	g := &Grant{}
	if err := scan(&g.ID, &g.UserID, &g.OriginalOwnerID, &g.DataType, &g.AccessLevel, &g.CreatedAt); err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a grant.
func (s *Store) Create(ctx context.Context, in GrantInput) (*Grant, error) {
	g, err := scanGrant(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO data_access_permissions (user_id, original_owner_id, data_type, access_level)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+grantColumns,
			in.UserID, in.OriginalOwnerID, string(in.DataType), string(in.AccessLevel),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating grant: %w", err)
	}
	return g, nil
}

// List returns grants, optionally restricted to those held by userID.
func (s *Store) List(ctx context.Context, userID string) ([]*Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM data_access_permissions`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	defer rows.Close()

	var grants []*Grant
	for rows.Next() {
		g, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning grant: %w", err)
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// Delete removes a grant. It reports false when the grant did not exist.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM data_access_permissions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CanWrite reports whether userID holds a write grant on ownerID's data of
// the given type.
func (s *Store) CanWrite(ctx context.Context, userID, ownerID string, dataType DataType) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM data_access_permissions
			WHERE user_id = $1 AND original_owner_id = $2 AND data_type = $3 AND access_level = 'write'
		)`, userID, ownerID, string(dataType),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking grant: %w", err)
	}
	return ok, nil
}
