package proposal

import (
	"context"
	"fmt"

	"github.com/alecgard/troupe/internal/crypto"
	"github.com/jackc/pgx/v5/pgxpool"
)

const proposalColumns = `id, client_id, contact_name, contact_email, contact_phone, dancer_id, team_id,
	title, description, project_type, budget, start_date, end_date, location, status, created_at, updated_at`

// Store provides database operations for proposals. Contact email and phone
// are sealed with the cipher when one is configured.
type Store struct {
	pool   *pgxpool.Pool
	cipher *crypto.Cipher
}

// NewStore creates a new proposal store. A nil cipher stores contact fields
// in plain text.
func NewStore(pool *pgxpool.Pool, cipher *crypto.Cipher) *Store {
	return &Store{pool: pool, cipher: cipher}
}

func (s *Store) scanProposal(scan func(dest ...any) error) (*Proposal, error) {
	p := &Proposal{}
	err := scan(&p.ID, &p.ClientID, &p.ContactName, &p.ContactEmail, &p.ContactPhone, &p.DancerID, &p.TeamID,
		&p.Title, &p.Description, &p.ProjectType, &p.Budget, &p.StartDate, &p.EndDate, &p.Location,
		&p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.ContactEmail, err = s.cipher.Decrypt(p.ContactEmail); err != nil {
		return nil, fmt.Errorf("decrypting contact email: %w", err)
	}
	if p.ContactPhone, err = s.cipher.Decrypt(p.ContactPhone); err != nil {
		return nil, fmt.Errorf("decrypting contact phone: %w", err)
	}
	return p, nil
}

// Create inserts a new proposal with status pending.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Proposal, error) {
	email, err := s.cipher.Encrypt(in.ContactEmail)
	if err != nil {
		return nil, fmt.Errorf("encrypting contact email: %w", err)
	}
	phone, err := s.cipher.Encrypt(in.ContactPhone)
	if err != nil {
		return nil, fmt.Errorf("encrypting contact phone: %w", err)
	}

	p, err := s.scanProposal(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO proposals (client_id, contact_name, contact_email, contact_phone, dancer_id, team_id,
				title, description, project_type, budget, start_date, end_date, location)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			 RETURNING `+proposalColumns,
			in.ClientID, in.ContactName, email, phone, in.DancerID, in.TeamID,
			in.Title, in.Description, in.ProjectType, in.Budget, in.StartDate, in.EndDate, in.Location,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating proposal: %w", err)
	}
	return p, nil
}

// GetByID retrieves a proposal by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Proposal, error) {
	p, err := s.scanProposal(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting proposal: %w", err)
	}
	return p, nil
}

// ListAuthoredBy returns proposals whose client is clientID.
func (s *Store) ListAuthoredBy(ctx context.Context, clientID string) ([]*Proposal, error) {
	return s.query(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE client_id = $1 ORDER BY created_at DESC`, clientID)
}

// ListTeamChannelReceived returns proposals received by dancerID through a
// team.
func (s *Store) ListTeamChannelReceived(ctx context.Context, dancerID string) ([]*Proposal, error) {
	return s.query(ctx,
		`SELECT `+proposalColumns+` FROM proposals
		 WHERE dancer_id = $1 AND team_id IS NOT NULL ORDER BY created_at DESC`, dancerID)
}

// ListForUser returns proposals where userID is the client or the receiving
// dancer, plus proposals sent to any team listed in teamIDs.
func (s *Store) ListForUser(ctx context.Context, userID string, teamIDs []string) ([]*Proposal, error) {
	if teamIDs == nil {
		teamIDs = []string{}
	}
	return s.query(ctx,
		`SELECT `+proposalColumns+` FROM proposals
		 WHERE client_id = $1 OR dancer_id = $1 OR team_id = ANY($2::text[]::uuid[])
		 ORDER BY created_at DESC`, userID, teamIDs)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Proposal, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*Proposal
	for rows.Next() {
		p, err := s.scanProposal(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning proposal row: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// SetDancer re-points a proposal at a different receiving dancer.
func (s *Store) SetDancer(ctx context.Context, id, dancerID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE proposals SET dancer_id = $1, updated_at = NOW() WHERE id = $2`, dancerID, id)
	if err != nil {
		return fmt.Errorf("repointing proposal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repointing proposal: no rows updated")
	}
	return nil
}

// UpdateStatus sets the status of a proposal.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status) (*Proposal, error) {
	p, err := s.scanProposal(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING `+proposalColumns,
			string(status), id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("updating proposal status: %w", err)
	}
	return p, nil
}
