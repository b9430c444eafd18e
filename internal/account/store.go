package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

const defaultSessionTTL = 7 * 24 * time.Hour

const accountColumns = `id, email, password_hash, type, pending_type, name, name_en,
	introduction, instagram_url, youtube_url, tiktok_url, profile_image, display_order,
	is_hidden, claim_user_id, claim_status, claim_reason, claim_message, created_at, updated_at`

// Store provides database operations for accounts and sessions.
type Store struct {
	pool       *pgxpool.Pool
	sessionTTL time.Duration
}

// NewStore creates a new account store backed by the given connection pool.
// A non-positive sessionTTL falls back to seven days.
func NewStore(pool *pgxpool.Pool, sessionTTL time.Duration) *Store {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Store{pool: pool, sessionTTL: sessionTTL}
}

// scanAccount scans an account row in accountColumns order.
func scanAccount(scan func(dest ...any) error) (*Account, error) {
	a := &Account{}
	var pendingType, claimStatus *string
	err := scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.Type, &pendingType, &a.Name, &a.NameEN,
		&a.Introduction, &a.InstagramURL, &a.YoutubeURL, &a.TiktokURL, &a.ProfileImage, &a.DisplayOrder,
		&a.IsHidden, &a.ClaimUserID, &claimStatus, &a.ClaimReason, &a.ClaimMessage, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if pendingType != nil {
		r := Role(*pendingType)
		a.PendingType = &r
	}
	if claimStatus != nil {
		a.ClaimStatus = ClaimStatus(*claimStatus)
	}
	return a, nil
}

// Create inserts a new account with a bcrypt-hashed password.
func (s *Store) Create(ctx context.Context, in CreateAccountInput) (*Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	role := in.Type
	if role == "" {
		role = RoleGeneral
	}

	var pending *string
	if in.PendingType != nil {
		p := string(*in.PendingType)
		pending = &p
	}

	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO accounts (email, password_hash, name, type, pending_type)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+accountColumns,
			in.Email, string(hash), in.Name, string(role), pending,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return a, nil
}

// GetByID retrieves an account by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting account by id: %w", err)
	}
	return a, nil
}

// GetByEmail retrieves an account by email address.
func (s *Store) GetByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting account by email: %w", err)
	}
	return a, nil
}

// List returns accounts matching params ordered by display_order, then
// created_at.
func (s *Store) List(ctx context.Context, params ListParams) ([]*Account, error) {
	where, args := buildListFilter(params)
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts`+where+
			` ORDER BY display_order ASC, created_at ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListByIDs returns the accounts whose id is in ids. Missing ids are
// skipped silently.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]*Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ANY($1::text[]::uuid[])`, ids)
	if err != nil {
		return nil, fmt.Errorf("listing accounts by id: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		a, err := scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// buildListFilter turns params into a WHERE clause and positional args.
func buildListFilter(params ListParams) (string, []any) {
	var clauses []string
	var args []any

	if params.Type != "" {
		args = append(args, string(params.Type))
		clauses = append(clauses, fmt.Sprintf("type = $%d", len(args)))
	}
	if params.ClaimStatus != ClaimNone {
		args = append(args, string(params.ClaimStatus))
		clauses = append(clauses, fmt.Sprintf("claim_status = $%d", len(args)))
	}
	if params.PendingOnly {
		clauses = append(clauses, "pending_type IS NOT NULL")
	}
	if !params.IncludeHidden {
		clauses = append(clauses, "is_hidden = false")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// buildProfileUpdate returns the SET clauses and args for a partial profile
// update. Argument numbering starts at $1.
func buildProfileUpdate(in UpdateProfileInput) ([]string, []any) {
	var setClauses []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.NameEN != nil {
		add("name_en", *in.NameEN)
	}
	if in.Type != nil {
		add("type", string(*in.Type))
	}
	if in.Introduction != nil {
		add("introduction", *in.Introduction)
	}
	if in.InstagramURL != nil {
		add("instagram_url", *in.InstagramURL)
	}
	if in.YoutubeURL != nil {
		add("youtube_url", *in.YoutubeURL)
	}
	if in.TiktokURL != nil {
		add("tiktok_url", *in.TiktokURL)
	}
	if in.ProfileImage != nil {
		add("profile_image", *in.ProfileImage)
	}
	if in.DisplayOrder != nil {
		add("display_order", *in.DisplayOrder)
	}
	return setClauses, args
}

// UpdateProfile performs a partial update on the account's profile fields.
func (s *Store) UpdateProfile(ctx context.Context, id string, in UpdateProfileInput) (*Account, error) {
	setClauses, args := buildProfileUpdate(in)
	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE accounts SET %s, updated_at = now() WHERE id = $%d
		 RETURNING `+accountColumns,
		strings.Join(setClauses, ", "), len(args),
	)

	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx, query, args...).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating account profile: %w", err)
	}
	return a, nil
}

// SetClaim writes the claim columns. Nil reason/message leave the stored
// value untouched.
func (s *Store) SetClaim(ctx context.Context, id string, u ClaimUpdate) error {
	var status *string
	if u.Status != ClaimNone {
		v := string(u.Status)
		status = &v
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts SET
			claim_user_id = COALESCE($1, claim_user_id),
			claim_status = $2,
			claim_reason = COALESCE($3, claim_reason),
			claim_message = COALESCE($4, claim_message),
			updated_at = now()
		 WHERE id = $5`,
		u.TargetID, status, u.Reason, u.Message, id,
	)
	if err != nil {
		return fmt.Errorf("setting claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("setting claim: account %s not found", id)
	}
	return nil
}

// ResolvePendingType promotes the requested role when approve is true and
// clears pending_type either way.
func (s *Store) ResolvePendingType(ctx context.Context, id string, approve bool) (*Account, error) {
	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE accounts SET
				type = CASE WHEN $1 AND pending_type IS NOT NULL THEN pending_type ELSE type END,
				pending_type = NULL,
				updated_at = now()
			 WHERE id = $2
			 RETURNING `+accountColumns,
			approve, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving pending type: %w", err)
	}
	return a, nil
}

// SetHidden soft-hides or restores an account.
func (s *Store) SetHidden(ctx context.Context, id string, hidden bool) (*Account, error) {
	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE accounts SET is_hidden = $1, updated_at = now() WHERE id = $2
			 RETURNING `+accountColumns,
			hidden, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("setting hidden: %w", err)
	}
	return a, nil
}

// Delete removes an account by id. Owned rows cascade in the schema.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting account: %w", err)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the stored hash.
func CheckPassword(a *Account, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) == nil
}

// CreateSession creates a new session for the given account. It returns the
// opaque plaintext token (to be sent to the client) and the stored session.
func (s *Store) CreateSession(ctx context.Context, accountID string) (string, *Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", nil, fmt.Errorf("generating session token: %w", err)
	}
	plaintext := hex.EncodeToString(b)

	now := time.Now()
	sess := &Session{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO sessions (token_hash, account_id, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING token_hash, account_id, created_at, expires_at`,
		hashToken(plaintext), accountID, now, now.Add(s.sessionTTL),
	).Scan(&sess.TokenHash, &sess.AccountID, &sess.CreatedAt, &sess.ExpiresAt)
	if err != nil {
		return "", nil, fmt.Errorf("creating session: %w", err)
	}

	return plaintext, sess, nil
}

// GetSessionAccount looks up a live session by its plaintext token and
// returns the owning account.
func (s *Store) GetSessionAccount(ctx context.Context, plaintext string) (*Account, error) {
	a, err := scanAccount(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+prefixColumns("a")+`
			 FROM sessions s JOIN accounts a ON s.account_id = a.id
			 WHERE s.token_hash = $1 AND s.expires_at > now()`,
			hashToken(plaintext),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting session account: %w", err)
	}
	return a, nil
}

// DeleteSession removes a session by its plaintext token.
func (s *Store) DeleteSession(ctx context.Context, plaintext string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hashToken(plaintext))
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// CleanExpiredSessions deletes all sessions that have expired.
func (s *Store) CleanExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("cleaning expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(accountColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func hashToken(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}
