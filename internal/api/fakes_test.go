package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/auth"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/claim"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/ordering"
	"github.com/alecgard/troupe/internal/permission"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminID   = "00000000-0000-0000-0000-00000000000a"
	userID    = "00000000-0000-0000-0000-000000000001"
	dancerID  = "00000000-0000-0000-0000-000000000002"
	otherID   = "00000000-0000-0000-0000-000000000003"
	teamID    = "00000000-0000-0000-0000-0000000000f1"
	missingID = "00000000-0000-0000-0000-0000000000ff"
)

func notFound(what string) error {
	return fmt.Errorf("getting %s: %w", what, pgx.ErrNoRows)
}

// fakeSessions maps bearer tokens to users.
type fakeSessions map[string]*auth.User

func (f fakeSessions) LookupSession(_ context.Context, token string) (*auth.User, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errors.New("session not found")
}

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*account.Account
	sessions map[string]string
	deleted  []string
}

func newFakeAccounts(accs ...*account.Account) *fakeAccounts {
	f := &fakeAccounts{byID: map[string]*account.Account{}, sessions: map[string]string{}}
	for _, a := range accs {
		f.byID[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) Create(_ context.Context, in account.CreateAccountInput) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == in.Email {
			return nil, fmt.Errorf("creating account: %w", &pgconn.PgError{Code: "23505"})
		}
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	a := &account.Account{
		ID:           fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.byID)+100),
		Email:        in.Email,
		PasswordHash: string(hash),
		Type:         in.Type,
		PendingType:  in.PendingType,
	}
	a.Name = in.Name
	f.byID[a.ID] = a
	return a, nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, notFound("account")
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.Email == email {
			return a, nil
		}
	}
	return nil, notFound("account")
}

func (f *fakeAccounts) List(_ context.Context, p account.ListParams) ([]*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*account.Account
	for _, a := range f.byID {
		if p.ClaimStatus != account.ClaimNone && a.ClaimStatus != p.ClaimStatus {
			continue
		}
		if p.Type != "" && a.Type != p.Type {
			continue
		}
		if p.PendingOnly && a.PendingType == nil {
			continue
		}
		if !p.IncludeHidden && a.IsHidden {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAccounts) ListByIDs(_ context.Context, ids []string) ([]*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*account.Account
	for _, id := range ids {
		if a, ok := f.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAccounts) UpdateProfile(_ context.Context, id string, in account.UpdateProfileInput) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, notFound("account")
	}
	if in.Name != nil {
		a.Name = *in.Name
	}
	if in.InstagramURL != nil {
		a.InstagramURL = *in.InstagramURL
	}
	return a, nil
}

func (f *fakeAccounts) ResolvePendingType(_ context.Context, id string, approve bool) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, notFound("account")
	}
	if approve && a.PendingType != nil {
		a.Type = *a.PendingType
	}
	a.PendingType = nil
	return a, nil
}

func (f *fakeAccounts) SetHidden(_ context.Context, id string, hidden bool) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, notFound("account")
	}
	a.IsHidden = hidden
	return a, nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeAccounts) CreateSession(_ context.Context, accountID string) (string, *account.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := fmt.Sprintf("tok-%d", len(f.sessions)+1)
	f.sessions[token] = accountID
	return token, &account.Session{AccountID: accountID}, nil
}

func (f *fakeAccounts) DeleteSession(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, token)
	return nil
}

// fakeClaims records workflow calls and returns canned results.
type fakeClaims struct {
	err   error
	calls []string
}

func (f *fakeClaims) Submit(_ context.Context, claimantID, targetID, reason string) (*account.Account, error) {
	f.calls = append(f.calls, "submit:"+claimantID+">"+targetID)
	if f.err != nil {
		return nil, f.err
	}
	return &account.Account{ID: claimantID, ClaimUserID: &targetID, ClaimStatus: account.ClaimPending}, nil
}

func (f *fakeClaims) Resolve(_ context.Context, adminID, claimantID string, decision account.ClaimStatus, _ string) (*claim.Result, error) {
	f.calls = append(f.calls, "resolve:"+adminID+":"+claimantID+":"+string(decision))
	if f.err != nil {
		return nil, f.err
	}
	return &claim.Result{ClaimantID: claimantID, Status: decision}, nil
}

func (f *fakeClaims) DirectLink(_ context.Context, adminID, claimantID, targetID, _ string) (*claim.Result, error) {
	f.calls = append(f.calls, "direct:"+adminID+":"+claimantID+">"+targetID)
	if f.err != nil {
		return nil, f.err
	}
	return &claim.Result{ClaimantID: claimantID, TargetID: targetID, Status: account.ClaimApproved}, nil
}

// fakeOrders keeps the order in memory.
type fakeOrders struct {
	items         []ordering.Item
	err           error
	invalidations int
}

func (f *fakeOrders) InvalidateListing(context.Context) {
	f.invalidations++
}

func (f *fakeOrders) Listing(context.Context) ([]ordering.Entry, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]ordering.Entry, len(f.items))
	for i, it := range f.items {
		out[i] = ordering.Entry{Item: it}
	}
	return out, nil
}

func (f *fakeOrders) Session(context.Context) (ordering.Session, error) {
	return ordering.NewSession(f.items), f.err
}

func (f *fakeOrders) Initialize(context.Context) ([]ordering.Item, error) {
	return f.items, f.err
}

func (f *fakeOrders) Save(_ context.Context, items []ordering.Item) (ordering.Session, error) {
	if f.err != nil {
		return ordering.Session{}, f.err
	}
	items = ordering.Renumber(items)
	f.items = items
	return ordering.NewSession(items), nil
}

func (f *fakeOrders) Move(_ context.Context, from, to int) (ordering.Session, error) {
	items, err := ordering.Reorder(f.items, from, to)
	if err != nil {
		return ordering.NewSession(f.items), err
	}
	return f.Save(context.Background(), items)
}

// memOrderStore backs a real ordering.Service in router tests.
type memOrderStore struct {
	items []ordering.Item
}

func (s *memOrderStore) List(context.Context) ([]ordering.Item, error) {
	return append([]ordering.Item(nil), s.items...), nil
}

func (s *memOrderStore) Count(context.Context) (int, error) {
	return len(s.items), nil
}

func (s *memOrderStore) InsertAll(_ context.Context, items []ordering.Item) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *memOrderStore) Replace(_ context.Context, items []ordering.Item) (ordering.Diff, error) {
	s.items = append([]ordering.Item(nil), items...)
	return ordering.Diff{}, nil
}

// memListingCache is an in-process ordering.ListingCache.
type memListingCache struct {
	entries []ordering.Entry
	ok      bool
}

func (c *memListingCache) Get(context.Context) ([]ordering.Entry, bool, error) {
	return c.entries, c.ok, nil
}

func (c *memListingCache) Set(_ context.Context, entries []ordering.Entry) error {
	c.entries, c.ok = entries, true
	return nil
}

func (c *memListingCache) Invalidate(context.Context) error {
	c.entries, c.ok = nil, false
	return nil
}

type fakeCareers struct {
	entries map[string]*career.Entry
}

func (f *fakeCareers) ListByUser(_ context.Context, userID string) ([]*career.Entry, error) {
	var out []*career.Entry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeCareers) GetByID(_ context.Context, id string) (*career.Entry, error) {
	if e, ok := f.entries[id]; ok {
		return e, nil
	}
	return nil, notFound("career")
}

func (f *fakeCareers) Create(_ context.Context, userID string, in career.EntryInput) (*career.Entry, error) {
	e := &career.Entry{
		ID:       fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.entries)+500),
		UserID:   userID,
		Category: in.Category,
		Title:    in.Title,
		DateType: in.DateType,
	}
	f.entries[e.ID] = e
	return e, nil
}

func (f *fakeCareers) Update(_ context.Context, id string, in career.EntryInput) (*career.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return nil, notFound("career")
	}
	e.Title = in.Title
	return e, nil
}

func (f *fakeCareers) Delete(_ context.Context, id string) error {
	delete(f.entries, id)
	return nil
}

type fakePermissions struct {
	grants []*permission.Grant
}

func (f *fakePermissions) Create(_ context.Context, in permission.GrantInput) (*permission.Grant, error) {
	g := &permission.Grant{
		ID:              fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.grants)+700),
		UserID:          in.UserID,
		OriginalOwnerID: in.OriginalOwnerID,
		DataType:        in.DataType,
		AccessLevel:     in.AccessLevel,
	}
	f.grants = append(f.grants, g)
	return g, nil
}

func (f *fakePermissions) List(_ context.Context, userID string) ([]*permission.Grant, error) {
	var out []*permission.Grant
	for _, g := range f.grants {
		if userID == "" || g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakePermissions) Delete(_ context.Context, id string) (bool, error) {
	for i, g := range f.grants {
		if g.ID == id {
			f.grants = append(f.grants[:i], f.grants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePermissions) CanWrite(_ context.Context, userID, ownerID string, dataType permission.DataType) (bool, error) {
	for _, g := range f.grants {
		if g.UserID == userID && g.OriginalOwnerID == ownerID && g.DataType == dataType && g.AccessLevel == permission.LevelWrite {
			return true, nil
		}
	}
	return false, nil
}

type fakeTeams struct {
	teams   map[string]*team.Team
	members []*team.Membership
}

func (f *fakeTeams) Create(_ context.Context, in team.CreateTeamInput) (*team.Team, error) {
	t := &team.Team{ID: fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.teams)+900), Name: in.Name, LeaderID: in.LeaderID, Status: "active"}
	f.teams[t.ID] = t
	return t, nil
}

func (f *fakeTeams) List(_ context.Context, activeOnly bool) ([]*team.Team, error) {
	var out []*team.Team
	for _, t := range f.teams {
		if !activeOnly || t.Status == "active" {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTeams) ListByIDs(_ context.Context, ids []string) ([]*team.Team, error) {
	var out []*team.Team
	for _, id := range ids {
		if t, ok := f.teams[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTeams) GetByID(_ context.Context, id string) (*team.Team, error) {
	if t, ok := f.teams[id]; ok {
		return t, nil
	}
	return nil, notFound("team")
}

func (f *fakeTeams) ListMembers(_ context.Context, id string) ([]*team.Membership, error) {
	var out []*team.Membership
	for _, m := range f.members {
		if m.TeamID == id {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTeams) ListByUser(_ context.Context, uid string) ([]*team.Membership, error) {
	var out []*team.Membership
	for _, m := range f.members {
		if m.UserID == uid {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeTeams) GetMembership(_ context.Context, tid, uid string) (*team.Membership, error) {
	for _, m := range f.members {
		if m.TeamID == tid && m.UserID == uid {
			return m, nil
		}
	}
	return nil, notFound("membership")
}

func (f *fakeTeams) AddMember(_ context.Context, tid, uid string, role team.MemberRole) (*team.Membership, error) {
	m := &team.Membership{ID: fmt.Sprintf("m-%d", len(f.members)+1), TeamID: tid, UserID: uid, Role: role}
	f.members = append(f.members, m)
	return m, nil
}

func (f *fakeTeams) RemoveMember(_ context.Context, tid, uid string) error {
	for i, m := range f.members {
		if m.TeamID == tid && m.UserID == uid {
			f.members = append(f.members[:i], f.members[i+1:]...)
			break
		}
	}
	return nil
}

type fakeProposals struct {
	byID map[string]*proposal.Proposal
}

func (f *fakeProposals) Create(_ context.Context, in proposal.CreateInput) (*proposal.Proposal, error) {
	p := &proposal.Proposal{
		ID:           fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.byID)+300),
		ClientID:     in.ClientID,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		DancerID:     in.DancerID,
		TeamID:       in.TeamID,
		Title:        in.Title,
		Status:       proposal.StatusPending,
	}
	f.byID[p.ID] = p
	return p, nil
}

func (f *fakeProposals) GetByID(_ context.Context, id string) (*proposal.Proposal, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, notFound("proposal")
}

func (f *fakeProposals) ListForUser(_ context.Context, uid string, teamIDs []string) ([]*proposal.Proposal, error) {
	var out []*proposal.Proposal
	for _, p := range f.byID {
		match := (p.ClientID != nil && *p.ClientID == uid) || (p.DancerID != nil && *p.DancerID == uid)
		for _, tid := range teamIDs {
			if p.TeamID != nil && *p.TeamID == tid {
				match = true
			}
		}
		if match {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProposals) UpdateStatus(_ context.Context, id string, s proposal.Status) (*proposal.Proposal, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, notFound("proposal")
	}
	cp := *p
	cp.Status = s
	f.byID[id] = &cp
	return &cp, nil
}

type fakeNotes struct {
	created []notification.CreateInput
	read    map[string]bool
}

func (f *fakeNotes) Create(_ context.Context, in notification.CreateInput) (*notification.Notification, error) {
	f.created = append(f.created, in)
	return &notification.Notification{UserID: in.UserID, Type: in.Type}, nil
}

func (f *fakeNotes) ListByUser(_ context.Context, uid string, _ bool, _ int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for _, in := range f.created {
		if in.UserID == uid {
			out = append(out, &notification.Notification{UserID: uid, Type: in.Type, Title: in.Title})
		}
	}
	return out, nil
}

func (f *fakeNotes) MarkRead(_ context.Context, id, _ string) (bool, error) {
	return f.read[id], nil
}

// testEnv bundles a router and the fakes behind it.
type testEnv struct {
	handler     http.Handler
	accounts    *fakeAccounts
	claims      *fakeClaims
	orders      *fakeOrders
	careers     *fakeCareers
	permissions *fakePermissions
	teams       *fakeTeams
	proposals   *fakeProposals
	notes       *fakeNotes
}

func newTestEnv(t *testing.T, opts ...func(*RouterDeps)) *testEnv {
	t.Helper()
	admin := &account.Account{ID: adminID, Email: "admin@troupe.test", Type: account.RoleAdmin}
	user := &account.Account{ID: userID, Email: "user@troupe.test", Type: account.RoleGeneral}
	dancer := &account.Account{ID: dancerID, Email: "dancer@troupe.test", Type: account.RoleDancer}
	other := &account.Account{ID: otherID, Email: "other@troupe.test", Type: account.RoleDancer}

	env := &testEnv{
		accounts:    newFakeAccounts(admin, user, dancer, other),
		claims:      &fakeClaims{},
		orders:      &fakeOrders{},
		careers:     &fakeCareers{entries: map[string]*career.Entry{}},
		permissions: &fakePermissions{},
		teams:       &fakeTeams{teams: map[string]*team.Team{teamID: {ID: teamID, Name: "Crew", Status: "active"}}},
		proposals:   &fakeProposals{byID: map[string]*proposal.Proposal{}},
		notes:       &fakeNotes{read: map[string]bool{}},
	}
	sessions := fakeSessions{
		"admin-token":  {ID: adminID, Role: auth.RoleAdmin},
		"user-token":   {ID: userID, Role: string(account.RoleGeneral)},
		"dancer-token": {ID: dancerID, Role: auth.RoleDancer},
		"other-token":  {ID: otherID, Role: auth.RoleDancer},
	}
	deps := RouterDeps{
		Accounts:      env.accounts,
		Careers:       env.careers,
		Teams:         env.teams,
		Proposals:     env.proposals,
		Notifications: env.notes,
		Permissions:   env.permissions,
		Claims:        env.claims,
		Orders:        env.orders,
		Sessions:      sessions,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.handler = NewRouter(deps)
	return env
}

// do sends a request with an optional bearer token and JSON body.
func (e *testEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}
