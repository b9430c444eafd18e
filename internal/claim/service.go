// Package claim links a claimant account to an existing dancer profile,
// either through a request that an admin approves or through a direct admin
// action, and merges the dancer's data into the claimant.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/apperr"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
)

// AccountStore is the subset of the account store the workflow needs.
type AccountStore interface {
	GetByID(ctx context.Context, id string) (*account.Account, error)
	List(ctx context.Context, params account.ListParams) ([]*account.Account, error)
	UpdateProfile(ctx context.Context, id string, in account.UpdateProfileInput) (*account.Account, error)
	SetClaim(ctx context.Context, id string, u account.ClaimUpdate) error
}

// CareerStore lists and creates career entries.
type CareerStore interface {
	ListByUser(ctx context.Context, userID string) ([]*career.Entry, error)
	Create(ctx context.Context, userID string, in career.EntryInput) (*career.Entry, error)
}

// TeamStore lists and creates team memberships.
type TeamStore interface {
	ListByUser(ctx context.Context, userID string) ([]*team.Membership, error)
	AddMember(ctx context.Context, teamID, userID string, role team.MemberRole) (*team.Membership, error)
}

// ProposalStore reads, copies and re-points proposals.
type ProposalStore interface {
	ListAuthoredBy(ctx context.Context, clientID string) ([]*proposal.Proposal, error)
	ListTeamChannelReceived(ctx context.Context, dancerID string) ([]*proposal.Proposal, error)
	Create(ctx context.Context, in proposal.CreateInput) (*proposal.Proposal, error)
	SetDancer(ctx context.Context, id, dancerID string) error
}

// Notifier creates notifications.
type Notifier interface {
	Create(ctx context.Context, in notification.CreateInput) (*notification.Notification, error)
}

// Observer receives workflow events, typically to update metrics.
type Observer interface {
	ClaimEvent(action, outcome string)
	MergeStepFailed(step string)
}

// Stores groups the stores the service depends on.
type Stores struct {
	Accounts  AccountStore
	Careers   CareerStore
	Teams     TeamStore
	Proposals ProposalStore
	Notes     Notifier
}

// Service runs the claim workflow.
type Service struct {
	accounts  AccountStore
	careers   CareerStore
	teams     TeamStore
	proposals ProposalStore
	notes     Notifier
	logger    *slog.Logger
	obs       Observer
}

// NewService creates a claim service. obs may be nil.
func NewService(st Stores, logger *slog.Logger, obs Observer) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:  st.Accounts,
		careers:   st.Careers,
		teams:     st.Teams,
		proposals: st.Proposals,
		notes:     st.Notes,
		logger:    logger,
		obs:       obs,
	}
}

// Result is the outcome of Resolve or DirectLink.
type Result struct {
	ClaimantID string              `json:"claimant_id"`
	TargetID   string              `json:"target_id,omitempty"`
	Status     account.ClaimStatus `json:"status"`
	Report     *MergeReport        `json:"report,omitempty"`
}

// Submit records a pending claim by claimantID on targetID.
func (s *Service) Submit(ctx context.Context, claimantID, targetID, reason string) (*account.Account, error) {
	acc, err := s.submit(ctx, claimantID, targetID, reason)
	s.observe("submit", err)
	return acc, err
}

func (s *Service) submit(ctx context.Context, claimantID, targetID, reason string) (*account.Account, error) {
	claimantID, targetID = strings.TrimSpace(claimantID), strings.TrimSpace(targetID)
	if claimantID == "" || targetID == "" {
		return nil, apperr.Validation("claimant and target are required")
	}
	if claimantID == targetID {
		return nil, ErrSelfLink
	}

	claimant, err := s.load(ctx, claimantID, "claimant")
	if err != nil {
		return nil, err
	}
	if !claimant.ClaimStatus.Terminal() {
		return nil, ErrClaimInProgress
	}
	target, err := s.load(ctx, targetID, "target")
	if err != nil {
		return nil, err
	}
	if target.Type != account.RoleDancer {
		return nil, ErrInvalidRole
	}

	reason = strings.TrimSpace(reason)
	noMessage := ""
	err = s.accounts.SetClaim(ctx, claimantID, account.ClaimUpdate{
		TargetID: &targetID,
		Status:   account.ClaimPending,
		Reason:   &reason,
		Message:  &noMessage,
	})
	if err != nil {
		return nil, apperr.Persistence("submitting claim", err)
	}

	claimant.ClaimUserID = &targetID
	claimant.ClaimStatus = account.ClaimPending
	claimant.ClaimReason = reason
	claimant.ClaimMessage = ""

	s.notifyAdmins(ctx, claimant, target)
	s.logger.Info("claim submitted", "claimant_id", claimantID, "target_id", targetID)
	return claimant, nil
}

// Resolve applies an admin decision to the pending claim of claimantID.
// Approving runs the merge before the status is recorded. A failed profile
// merge leaves the claim pending; failures in later steps are reported but
// do not stop the approval.
func (s *Service) Resolve(ctx context.Context, adminID, claimantID string, decision account.ClaimStatus, message string) (*Result, error) {
	res, err := s.resolve(ctx, adminID, claimantID, decision, message)
	s.observe("resolve_"+string(decision), err)
	return res, err
}

func (s *Service) resolve(ctx context.Context, adminID, claimantID string, decision account.ClaimStatus, message string) (*Result, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	switch decision {
	case account.ClaimApproved, account.ClaimRejected, account.ClaimCompleted:
	default:
		return nil, ErrInvalidDecision
	}

	claimant, err := s.load(ctx, claimantID, "claim")
	if err != nil {
		return nil, err
	}
	if decision == account.ClaimCompleted {
		if claimant.ClaimStatus != account.ClaimApproved {
			return nil, ErrClaimNotApproved
		}
	} else if claimant.ClaimStatus != account.ClaimPending {
		return nil, ErrClaimNotPending
	}

	result := &Result{ClaimantID: claimant.ID, Status: decision}
	if claimant.ClaimUserID != nil {
		result.TargetID = *claimant.ClaimUserID
	}

	var msg *string
	if message = strings.TrimSpace(message); message != "" {
		msg = &message
	}

	if decision != account.ClaimApproved {
		if err := s.accounts.SetClaim(ctx, claimant.ID, account.ClaimUpdate{Status: decision, Message: msg}); err != nil {
			return nil, apperr.Persistence("updating claim status", err)
		}
		if decision == account.ClaimRejected {
			s.notifyRejected(ctx, claimant.ID, message)
		}
		s.logger.Info("claim resolved", "claimant_id", claimant.ID, "status", string(decision), "admin_id", adminID)
		return result, nil
	}

	if result.TargetID == "" {
		return nil, ErrMissingTarget
	}
	target, err := s.load(ctx, result.TargetID, "target")
	if err != nil {
		return nil, err
	}

	report, err := s.mergeAndRecord(ctx, claimant, target, account.ClaimUpdate{Status: account.ClaimApproved, Message: msg})
	if err != nil {
		return nil, err
	}
	result.Report = report
	s.logger.Info("claim approved",
		"claimant_id", claimant.ID,
		"target_id", target.ID,
		"admin_id", adminID,
		"failed_steps", len(report.Failures()),
	)
	return result, nil
}

// DirectLink merges targetID into claimantID immediately, without a prior
// pending request.
func (s *Service) DirectLink(ctx context.Context, adminID, claimantID, targetID, reason string) (*Result, error) {
	res, err := s.directLink(ctx, adminID, claimantID, targetID, reason)
	s.observe("direct_link", err)
	return res, err
}

func (s *Service) directLink(ctx context.Context, adminID, claimantID, targetID, reason string) (*Result, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	claimantID, targetID = strings.TrimSpace(claimantID), strings.TrimSpace(targetID)
	if claimantID == "" || targetID == "" {
		return nil, apperr.Validation("userId and dancerId are required")
	}
	if claimantID == targetID {
		return nil, ErrSelfLink
	}

	claimant, err := s.load(ctx, claimantID, "claimant")
	if err != nil {
		return nil, err
	}
	target, err := s.load(ctx, targetID, "target")
	if err != nil {
		return nil, err
	}
	if target.Type != account.RoleDancer {
		return nil, ErrInvalidRole
	}

	update := account.ClaimUpdate{TargetID: &targetID, Status: account.ClaimApproved}
	if reason = strings.TrimSpace(reason); reason != "" {
		update.Reason = &reason
	}
	report, err := s.mergeAndRecord(ctx, claimant, target, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("direct link applied",
		"claimant_id", claimantID,
		"target_id", targetID,
		"admin_id", adminID,
		"failed_steps", len(report.Failures()),
	)
	return &Result{
		ClaimantID: claimantID,
		TargetID:   targetID,
		Status:     account.ClaimApproved,
		Report:     report,
	}, nil
}

// mergeAndRecord runs the merge, writes the claim status and notifies the
// claimant. The status is written after the secondary steps regardless of
// their outcome.
func (s *Service) mergeAndRecord(ctx context.Context, claimant, target *account.Account, update account.ClaimUpdate) (*MergeReport, error) {
	report, err := s.merge(ctx, claimant, target)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.SetClaim(ctx, claimant.ID, update); err != nil {
		report.add(StepResult{Step: StepStatus, Err: err})
		return nil, apperr.Persistence("recording claim status", err)
	}
	report.add(StepResult{Step: StepStatus, Copied: 1})

	report.add(s.notifyMerged(ctx, report))
	return report, nil
}

// requireAdmin re-reads the caller's stored role.
func (s *Service) requireAdmin(ctx context.Context, adminID string) error {
	if adminID == "" {
		return ErrUnauthorized
	}
	acc, err := s.accounts.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnauthorized
		}
		return apperr.Persistence("checking caller role", err)
	}
	if !acc.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) load(ctx context.Context, id, what string) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(what)
		}
		return nil, apperr.Persistence("loading "+what, err)
	}
	return acc, nil
}

func (s *Service) notifyAdmins(ctx context.Context, claimant, target *account.Account) {
	admins, err := s.accounts.List(ctx, account.ListParams{Type: account.RoleAdmin, IncludeHidden: true})
	if err != nil {
		s.logger.Warn("listing admins for claim notification", "error", err)
		return
	}
	related := claimant.ID
	for _, a := range admins {
		_, err := s.notes.Create(ctx, notification.CreateInput{
			UserID:    a.ID,
			Type:      notification.TypeClaimSubmitted,
			Title:     "New profile claim",
			Message:   fmt.Sprintf("%s requested to claim the profile of %s.", displayName(claimant), displayName(target)),
			RelatedID: &related,
		})
		if err != nil {
			s.logger.Warn("notifying admin of claim", "admin_id", a.ID, "error", err)
		}
	}
}

func (s *Service) notifyRejected(ctx context.Context, claimantID, message string) {
	body := "Your profile claim was rejected."
	if message != "" {
		body += " " + message
	}
	_, err := s.notes.Create(ctx, notification.CreateInput{
		UserID:  claimantID,
		Type:    notification.TypeStatusUpdated,
		Title:   "Profile claim rejected",
		Message: body,
	})
	if err != nil {
		s.logger.Warn("notifying claimant of rejection", "claimant_id", claimantID, "error", err)
	}
}

func (s *Service) observe(action string, err error) {
	if s.obs == nil {
		return
	}
	s.obs.ClaimEvent(action, outcome(err))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperr.ErrPersistence):
		return "error"
	default:
		return "rejected"
	}
}

func displayName(a *account.Account) string {
	if a.Name != "" {
		return a.Name
	}
	return a.Email
}
