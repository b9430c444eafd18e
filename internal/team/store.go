package team

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const teamColumns = `id, name, name_en, leader_id, introduction, logo_url, display_order, status, created_at`

const membershipColumns = `id, team_id, user_id, role, joined_at`

// Store provides database operations for teams and memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new team store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanTeam(scan func(dest ...any) error) (*Team, error) {
	t := &Team{}
	err := scan(&t.ID, &t.Name, &t.NameEN, &t.LeaderID, &t.Introduction, &t.LogoURL,
		&t.DisplayOrder, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanMembership(scan func(dest ...any) error) (*Membership, error) {
	m := &Membership{}
	if err := scan(&m.ID, &m.TeamID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a new team. When a leader is given a leader membership is
// created alongside it.
func (s *Store) Create(ctx context.Context, in CreateTeamInput) (*Team, error) {
	t, err := scanTeam(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO teams (name, name_en, leader_id, introduction, logo_url)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING `+teamColumns,
			in.Name, in.NameEN, in.LeaderID, in.Introduction, in.LogoURL,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("creating team: %w", err)
	}
	if in.LeaderID != nil {
		if _, err := s.AddMember(ctx, t.ID, *in.LeaderID, RoleLeader); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// GetByID retrieves a team by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Team, error) {
	t, err := scanTeam(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+teamColumns+` FROM teams WHERE id = $1`, id,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting team: %w", err)
	}
	return t, nil
}

// List returns teams ordered by display_order, then created_at. When
// activeOnly is set inactive teams are skipped.
func (s *Store) List(ctx context.Context, activeOnly bool) ([]*Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams`
	if activeOnly {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY display_order ASC, created_at ASC`
	return s.queryTeams(ctx, query)
}

// ListByIDs returns the teams whose id is in ids. Missing ids are skipped.
func (s *Store) ListByIDs(ctx context.Context, ids []string) ([]*Team, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.queryTeams(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = ANY($1::text[]::uuid[])`, ids)
}

func (s *Store) queryTeams(ctx context.Context, query string, args ...any) ([]*Team, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []*Team
	for rows.Next() {
		t, err := scanTeam(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// ListMembers returns the memberships of a team, leaders first.
func (s *Store) ListMembers(ctx context.Context, teamID string) ([]*Membership, error) {
	return s.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM team_members WHERE team_id = $1
		 ORDER BY (role = 'leader') DESC, joined_at ASC`, teamID)
}

// ListByUser returns the memberships held by userID.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]*Membership, error) {
	return s.queryMemberships(ctx,
		`SELECT `+membershipColumns+` FROM team_members WHERE user_id = $1 ORDER BY joined_at ASC`, userID)
}

func (s *Store) queryMemberships(ctx context.Context, query string, args ...any) ([]*Membership, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var members []*Membership
	for rows.Next() {
		m, err := scanMembership(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning membership row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMembership returns the membership of userID in teamID.
func (s *Store) GetMembership(ctx context.Context, teamID, userID string) (*Membership, error) {
	m, err := scanMembership(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`SELECT `+membershipColumns+` FROM team_members WHERE team_id = $1 AND user_id = $2`,
			teamID, userID,
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("getting membership: %w", err)
	}
	return m, nil
}

// AddMember inserts a membership. Callers check for an existing (team, user)
// pair first; the table carries no unique constraint.
func (s *Store) AddMember(ctx context.Context, teamID, userID string, role MemberRole) (*Membership, error) {
	m, err := scanMembership(func(dest ...any) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO team_members (team_id, user_id, role)
			 VALUES ($1, $2, $3)
			 RETURNING `+membershipColumns,
			teamID, userID, string(role),
		).Scan(dest...)
	})
	if err != nil {
		return nil, fmt.Errorf("adding team member: %w", err)
	}
	return m, nil
}

// RemoveMember deletes the membership of userID in teamID.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("removing team member: %w", err)
	}
	return nil
}
