package career

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, user_id, category, title, description, country, date_type,
	single_date, start_date, end_date, is_featured, video_url, poster_url, created_at`

// Validation errors returned by Validate.
var (
	ErrCategoryInvalid = errors.New("category is not recognised")
	ErrSingleDate      = errors.New("single_date is required for single entries")
	ErrRangeDates      = errors.New("start_date is required and must not be after end_date")
)

// Validate checks the cross-field rules that struct tags cannot express.
func Validate(in EntryInput) error {
	if !Categories[in.Category] {
		return ErrCategoryInvalid
	}
	switch in.DateType {
	case DateSingle:
		if in.SingleDate == nil {
			return ErrSingleDate
		}
	case DateRange:
		if in.StartDate == nil || (in.EndDate != nil && in.EndDate.Before(*in.StartDate)) {
			return ErrRangeDates
		}
	}
	return nil
}

// Store provides database operations for career entries.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new career store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanEntry(scan func(dest ...any) error) (*Entry, error) {
	e := &Entry{}
	err := scan(&e.ID, &e.UserID, &e.Category, &e.Title, &e.Description, &e.Country, &e.DateType,
		&e.SingleDate, &e.StartDate, &e.EndDate, &e.IsFeatured, &e.VideoURL, &e.PosterURL, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListByUser returns the entries owned by userID, featured first, newest
// first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Entry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+entryColumns+` FROM career_entries WHERE user_id = $1
		 ORDER BY is_featured DESC, COALESCE(single_date, start_date) DESC NULLS LAST, created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("listing career entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning career entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetByID retrieves an entry by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+entryColumns+` FROM career_entries WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting career entry: %w", err)
	}
	return e, nil
}

// Create inserts a new entry owned by userID.
func (s *Store) Create(ctx context.Context, userID string, in EntryInput) (*Entry, error) {
	e, err := scanEntry(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO career_entries (user_id, category, title, description, country, date_type,
				single_date, start_date, end_date, is_featured, video_url, poster_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 RETURNING `+entryColumns,
			userID, in.Category, in.Title, in.Description, in.Country, string(in.DateType),
			in.SingleDate, in.StartDate, in.EndDate, in.IsFeatured, in.VideoURL, in.PosterURL,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating career entry: %w", err)
	}
	return e, nil
}

// Update replaces the writable fields of an entry.
func (s *Store) Update(ctx context.Context, id string, in EntryInput) (*Entry, error) {
	e, err := scanEntry(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE career_entries SET category = $1, title = $2, description = $3, country = $4,
				date_type = $5, single_date = $6, start_date = $7, end_date = $8,
				is_featured = $9, video_url = $10, poster_url = $11
			 WHERE id = $12
			 RETURNING `+entryColumns,
			in.Category, in.Title, in.Description, in.Country, string(in.DateType),
			in.SingleDate, in.StartDate, in.EndDate, in.IsFeatured, in.VideoURL, in.PosterURL, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating career entry: %w", err)
	}
	return e, nil
}

// Delete removes an entry by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM career_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting career entry: %w", err)
	}
	return nil
}
