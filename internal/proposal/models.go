package proposal

import (
	"strconv"
	"time"
)

// Status is the lifecycle state of a proposal. Any authorized party may set
// any status; transitions are not enforced.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConsulting Status = "consulting"
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConsulting, StatusScheduled, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Proposal is a project request from a client to a dancer or team.
type Proposal struct {
	ID           string     `json:"id"`
	ClientID     *string    `json:"client_id,omitempty"`
	ContactName  string     `json:"contact_name"`
	ContactEmail string     `json:"contact_email"`
	ContactPhone string     `json:"contact_phone"`
	DancerID     *string    `json:"dancer_id,omitempty"`
	TeamID       *string    `json:"team_id,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ProjectType  string     `json:"project_type"`
	Budget       *int64     `json:"budget,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Location     string     `json:"location"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TeamChannel reports whether the proposal was received by a dancer through
// a team.
func (p *Proposal) TeamChannel() bool {
	return p.TeamID != nil && p.DancerID != nil
}

// DedupKey identifies duplicate authored proposals during a merge.
func (p *Proposal) DedupKey() string {
	budget := "-"
	if p.Budget != nil {
		budget = strconv.FormatInt(*p.Budget, 10)
	}
	return p.Title + "\x00" + p.Description + "\x00" + budget
}

// CreateInput holds the fields accepted when creating a proposal.
type CreateInput struct {
	ClientID     *string    `json:"-"`
	ContactName  string     `json:"contact_name" validate:"max=100"`
	ContactEmail string     `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string     `json:"contact_phone" validate:"max=40"`
	DancerID     *string    `json:"dancer_id,omitempty" validate:"omitempty,uuid"`
	TeamID       *string    `json:"team_id,omitempty" validate:"omitempty,uuid"`
	Title        string     `json:"title" validate:"required,max=200"`
	Description  string     `json:"description" validate:"max=4000"`
	ProjectType  string     `json:"project_type" validate:"max=50"`
	Budget       *int64     `json:"budget,omitempty" validate:"omitempty,gte=0"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	Location     string     `json:"location" validate:"max=200"`
}

// CopyFor returns the input needed to duplicate p as authored by clientID.
func CopyFor(p *Proposal, clientID string) CreateInput {
	return CreateInput{
		ClientID:     &clientID,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		ContactPhone: p.ContactPhone,
		DancerID:     p.DancerID,
		TeamID:       p.TeamID,
		Title:        p.Title,
		Description:  p.Description,
		ProjectType:  p.ProjectType,
		Budget:       p.Budget,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		Location:     p.Location,
	}
}
