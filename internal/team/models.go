package team

import "time"

// MemberRole is a member's role within a team.
type MemberRole string

const (
	RoleLeader  MemberRole = "leader"
	RoleMember  MemberRole = "member"
	RoleInvited MemberRole = "invited"
)

// Valid reports whether r is a known member role.
func (r MemberRole) Valid() bool {
	return r == RoleLeader || r == RoleMember || r == RoleInvited
}

// Team is a group of dancers listed alongside individual artists.
type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	NameEN       string    `json:"name_en"`
	LeaderID     *string   `json:"leader_id,omitempty"`
	Introduction string    `json:"introduction"`
	LogoURL      string    `json:"logo_url"`
	DisplayOrder int       `json:"display_order"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// Membership associates an account with a team.
type Membership struct {
	ID       string     `json:"id"`
	TeamID   string     `json:"team_id"`
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// CreateTeamInput holds the fields required to create a team.
type CreateTeamInput struct {
	Name         string  `json:"name" validate:"required,max=100"`
	NameEN       string  `json:"name_en" validate:"max=100"`
	LeaderID     *string `json:"leader_id,omitempty" validate:"omitempty,uuid"`
	Introduction string  `json:"introduction"`
	LogoURL      string  `json:"logo_url" validate:"omitempty,url"`
}
