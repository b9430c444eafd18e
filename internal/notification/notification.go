// Package notification stores in-app notifications for accounts.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Type classifies a notification.
type Type string

const (
	TypeStatusUpdated    Type = "status_updated"
	TypeProposalReceived Type = "proposal_received"
	TypeClaimSubmitted   Type = "claim_submitted"
	TypeRoleApproved     Type = "role_approved"
)

// Notification is a message shown to a single account.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RelatedID *string   `json:"related_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput holds the fields of a new notification.
type CreateInput struct {
	UserID    string
	Type      Type
	Title     string
	Message   string
	RelatedID *string
}

const notificationColumns = `id, user_id, type, title, message, related_id, is_read, created_at`

// Store provides database operations for notifications.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new notification store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanNotification(scan func(dest ...any) error) (*Notification, error) {
	n := &Notification{}
	if err := scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.RelatedID, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	return n, nil
}

// Create inserts a notification.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Notification, error) {
	n, err := scanNotification(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO notifications (user_id, type, title, message, related_id)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+notificationColumns,
			in.UserID, string(in.Type), in.Title, in.Message, in.RelatedID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}
	return n, nil
}

// ListByUser returns the newest notifications for userID, up to limit.
func (s *Store) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	rows, err := s.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks a notification as read. It reports false when no
// notification with that id belongs to userID.
func (s *Store) MarkRead(ctx context.Context, id, userID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
