package api

import (
	"context"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/claim"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/ordering"
	"github.com/alecgard/troupe/internal/permission"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
)

// AccountStore is the subset of account.Store used by the handlers.
type AccountStore interface {
	Create(ctx context.Context, in account.CreateAccountInput) (*account.Account, error)
	GetByID(ctx context.Context, id string) (*account.Account, error)
	GetByEmail(ctx context.Context, email string) (*account.Account, error)
	List(ctx context.Context, params account.ListParams) ([]*account.Account, error)
	UpdateProfile(ctx context.Context, id string, in account.UpdateProfileInput) (*account.Account, error)
	ResolvePendingType(ctx context.Context, id string, approve bool) (*account.Account, error)
	SetHidden(ctx context.Context, id string, hidden bool) (*account.Account, error)
	Delete(ctx context.Context, id string) error
	CreateSession(ctx context.Context, accountID string) (string, *account.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// CareerStore is the subset of career.Store used by the handlers.
type CareerStore interface {
	ListByUser(ctx context.Context, userID string) ([]*career.Entry, error)
	GetByID(ctx context.Context, id string) (*career.Entry, error)
	Create(ctx context.Context, userID string, in career.EntryInput) (*career.Entry, error)
	Update(ctx context.Context, id string, in career.EntryInput) (*career.Entry, error)
	Delete(ctx context.Context, id string) error
}

// TeamStore is the subset of team.Store used by the handlers.
type TeamStore interface {
	Create(ctx context.Context, in team.CreateTeamInput) (*team.Team, error)
	List(ctx context.Context, activeOnly bool) ([]*team.Team, error)
	GetByID(ctx context.Context, id string) (*team.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]*team.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*team.Membership, error)
	GetMembership(ctx context.Context, teamID, userID string) (*team.Membership, error)
	AddMember(ctx context.Context, teamID, userID string, role team.MemberRole) (*team.Membership, error)
	RemoveMember(ctx context.Context, teamID, userID string) error
}

// ProposalStore is the subset of proposal.Store used by the handlers.
type ProposalStore interface {
	Create(ctx context.Context, in proposal.CreateInput) (*proposal.Proposal, error)
	GetByID(ctx context.Context, id string) (*proposal.Proposal, error)
	ListForUser(ctx context.Context, userID string, teamIDs []string) ([]*proposal.Proposal, error)
	UpdateStatus(ctx context.Context, id string, status proposal.Status) (*proposal.Proposal, error)
}

// NotificationStore is the subset of notification.Store used by the
// handlers.
type NotificationStore interface {
	Create(ctx context.Context, in notification.CreateInput) (*notification.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

// PermissionStore is the subset of permission.Store used by the handlers.
type PermissionStore interface {
	Create(ctx context.Context, in permission.GrantInput) (*permission.Grant, error)
	List(ctx context.Context, userID string) ([]*permission.Grant, error)
	Delete(ctx context.Context, id string) (bool, error)
	CanWrite(ctx context.Context, userID, ownerID string, dataType permission.DataType) (bool, error)
}

// ClaimService is the claim linking workflow.
type ClaimService interface {
	Submit(ctx context.Context, claimantID, targetID, reason string) (*account.Account, error)
	Resolve(ctx context.Context, adminID, claimantID string, decision account.ClaimStatus, message string) (*claim.Result, error)
	DirectLink(ctx context.Context, adminID, claimantID, targetID, reason string) (*claim.Result, error)
}

// ListingInvalidator drops the cached public listing.
type ListingInvalidator interface {
	InvalidateListing(ctx context.Context)
}

// OrderService is the display order workflow.
type OrderService interface {
	ListingInvalidator
	Listing(ctx context.Context) ([]ordering.Entry, error)
	Session(ctx context.Context) (ordering.Session, error)
	Initialize(ctx context.Context) ([]ordering.Item, error)
	Save(ctx context.Context, items []ordering.Item) (ordering.Session, error)
	Move(ctx context.Context, from, to int) (ordering.Session, error)
}

// Pinger checks database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}
