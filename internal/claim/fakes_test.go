package claim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
)

var errStore = errors.New("store unavailable")

type fakeAccounts struct {
	mu        sync.Mutex
	byID      map[string]*account.Account
	writes    int
	updateErr error
	claimErr  error
}

func newFakeAccounts(accs ...*account.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*account.Account{}}
	for _, a := range accs {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("getting account by id: %w", pgx.ErrNoRows)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) List(_ context.Context, params account.ListParams) ([]*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*account.Account
	for _, a := range f.byID {
		if params.Type != "" && a.Type != params.Type {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id string, in account.UpdateProfileInput) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	f.writes++
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Name, in.Name)
	set(&a.NameEN, in.NameEN)
	set(&a.Introduction, in.Introduction)
	set(&a.InstagramURL, in.InstagramURL)
	set(&a.YoutubeURL, in.YoutubeURL)
	set(&a.TiktokURL, in.TiktokURL)
	set(&a.ProfileImage, in.ProfileImage)
	if in.Type != nil {
		a.Type = *in.Type
	}
	if in.DisplayOrder != nil {
		a.DisplayOrder = *in.DisplayOrder
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) SetClaim(_ context.Context, id string, u account.ClaimUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return f.claimErr
	}
	a, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("setting claim: account %s not found", id)
	}
	f.writes++
	if u.TargetID != nil {
		a.ClaimUserID = u.TargetID
	}
	a.ClaimStatus = u.Status
	if u.Reason != nil {
		a.ClaimReason = *u.Reason
	}
	if u.Message != nil {
		a.ClaimMessage = *u.Message
	}
	return nil
}

func (f *fakeAccounts) get(id string) *account.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.byID[id]
	return &cp
}

type fakeCareers struct {
	entries   []*career.Entry
	createErr error
	listErr   error
	seq       int
}

func (f *fakeCareers) ListByUser(_ context.Context, userID string) ([]*career.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*career.Entry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCareers) Create(_ context.Context, userID string, in career.EntryInput) (*career.Entry, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	e := &career.Entry{
		ID:          fmt.Sprintf("copy-%d", f.seq),
		UserID:      userID,
		Category:    in.Category,
		Title:       in.Title,
		Description: in.Description,
		Country:     in.Country,
		DateType:    in.DateType,
		SingleDate:  in.SingleDate,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsFeatured:  in.IsFeatured,
		VideoURL:    in.VideoURL,
		PosterURL:   in.PosterURL,
	}
	f.entries = append(f.entries, e)
	return e, nil
}

func (f *fakeCareers) byUser(userID string) []*career.Entry {
	out, _ := (&fakeCareers{entries: f.entries}).ListByUser(context.Background(), userID)
	return out
}

type fakeTeams struct {
	members []*team.Membership
	addErr  error
}

func (f *fakeTeams) ListByUser(_ context.Context, userID string) ([]*team.Membership, error) {
	var out []*team.Membership
	for _, m := range f.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTeams) AddMember(_ context.Context, teamID, userID string, role team.MemberRole) (*team.Membership, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	m := &team.Membership{ID: fmt.Sprintf("m-%d", len(f.members)+1), TeamID: teamID, UserID: userID, Role: role}
	f.members = append(f.members, m)
	return m, nil
}

type fakeProposals struct {
	items []*proposal.Proposal
}

func (f *fakeProposals) ListAuthoredBy(_ context.Context, clientID string) ([]*proposal.Proposal, error) {
	var out []*proposal.Proposal
	for _, p := range f.items {
		if p.ClientID != nil && *p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProposals) ListTeamChannelReceived(_ context.Context, dancerID string) ([]*proposal.Proposal, error) {
	var out []*proposal.Proposal
	for _, p := range f.items {
		if p.DancerID != nil && *p.DancerID == dancerID && p.TeamID != nil {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProposals) Create(_ context.Context, in proposal.CreateInput) (*proposal.Proposal, error) {
	p := &proposal.Proposal{
		ID:          fmt.Sprintf("p-%d", len(f.items)+1),
		ClientID:    in.ClientID,
		DancerID:    in.DancerID,
		TeamID:      in.TeamID,
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Status:      proposal.StatusPending,
	}
	f.items = append(f.items, p)
	return p, nil
}

func (f *fakeProposals) SetDancer(_ context.Context, id, dancerID string) error {
	for _, p := range f.items {
		if p.ID == id {
			d := dancerID
			p.DancerID = &d
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeNotes struct {
	created []notification.CreateInput
	err     error
}

func (f *fakeNotes) Create(_ context.Context, in notification.CreateInput) (*notification.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, in)
	return &notification.Notification{UserID: in.UserID, Type: in.Type}, nil
}

type recordingObserver struct {
	events   []string
	failures []string
}

func (o *recordingObserver) ClaimEvent(action, outcome string) {
	o.events = append(o.events, action+":"+outcome)
}

func (o *recordingObserver) MergeStepFailed(step string) {
	o.failures = append(o.failures, step)
}

type fixture struct {
	accounts  *fakeAccounts
	careers   *fakeCareers
	teams     *fakeTeams
	proposals *fakeProposals
	notes     *fakeNotes
	obs       *recordingObserver
	svc       *Service
}

func newFixture(accs ...*account.Account) *fixture {
	f := &fixture{
		accounts:  newFakeAccounts(accs...),
		careers:   &fakeCareers{},
		teams:     &fakeTeams{},
		proposals: &fakeProposals{},
		notes:     &fakeNotes{},
		obs:       &recordingObserver{},
	}
	f.svc = NewService(Stores{
		Accounts:  f.accounts,
		Careers:   f.careers,
		Teams:     f.teams,
		Proposals: f.proposals,
		Notes:     f.notes,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), f.obs)
	return f
}

func strPtr(s string) *string { return &s }
