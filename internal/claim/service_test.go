package claim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/apperr"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/proposal"
	"github.com/alecgard/troupe/internal/team"
	"github.com/google/go-cmp/cmp"
)

func admin() *account.Account {
	return &account.Account{ID: "9", Email: "admin@example.com", Type: account.RoleAdmin}
}

func dancer(id string, p account.Profile) *account.Account {
	return &account.Account{ID: id, Type: account.RoleDancer, Profile: p}
}

func general(id string) *account.Account {
	return &account.Account{ID: id, Email: id + "@example.com", Type: account.RoleGeneral}
}

func entry(id, userID, title string, day int) *career.Entry {
	d := time.Date(2023, time.March, day, 0, 0, 0, 0, time.UTC)
	return &career.Entry{ID: id, UserID: userID, Category: "performance", Title: title,
		DateType: career.DateSingle, SingleDate: &d}
}

func TestSubmitSelfLinkDoesNotMutate(t *testing.T) {
	f := newFixture(general("1"), admin())

	_, err := f.svc.Submit(context.Background(), "1", "1", "mine")
	if !errors.Is(err, ErrSelfLink) {
		t.Fatalf("err = %v, want ErrSelfLink", err)
	}
	if !errors.Is(err, apperr.ErrValidation) {
		t.Error("ErrSelfLink should be a validation error")
	}
	if f.accounts.writes != 0 {
		t.Errorf("writes = %d, want 0", f.accounts.writes)
	}
	if len(f.notes.created) != 0 {
		t.Errorf("notifications = %d, want 0", len(f.notes.created))
	}
	if got := f.accounts.get("1").ClaimStatus; got != account.ClaimNone {
		t.Errorf("claim status = %q, want none", got)
	}
	if diff := cmp.Diff([]string{"submit:rejected"}, f.obs.events); diff != "" {
		t.Errorf("observer events (-want +got):\n%s", diff)
	}
}

func TestSubmitErrors(t *testing.T) {
	pending := general("3")
	pending.ClaimStatus = account.ClaimPending

	tests := []struct {
		name     string
		claimant string
		target   string
		wantErr  error
	}{
		{"missing claimant", "404", "2", apperr.ErrNotFound},
		{"missing target", "1", "404", apperr.ErrNotFound},
		{"target not a dancer", "1", "4", ErrInvalidRole},
		{"claim already pending", "3", "2", ErrClaimInProgress},
		{"blank target", "1", " ", apperr.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(general("1"), dancer("2", account.Profile{}), pending, general("4"))
			_, err := f.svc.Submit(context.Background(), tt.claimant, tt.target, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if f.accounts.writes != 0 {
				t.Errorf("writes = %d, want 0", f.accounts.writes)
			}
		})
	}
}

func TestSubmitRecordsPendingClaimAndNotifiesAdmins(t *testing.T) {
	f := newFixture(general("1"), dancer("2", account.Profile{Name: "D"}), admin())

	acc, err := f.svc.Submit(context.Background(), "1", "2", " that's me ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if acc.ClaimStatus != account.ClaimPending || acc.ClaimUserID == nil || *acc.ClaimUserID != "2" {
		t.Errorf("returned account claim = %q/%v", acc.ClaimStatus, acc.ClaimUserID)
	}

	stored := f.accounts.get("1")
	if stored.ClaimStatus != account.ClaimPending || *stored.ClaimUserID != "2" || stored.ClaimReason != "that's me" {
		t.Errorf("stored claim = %q/%v/%q", stored.ClaimStatus, stored.ClaimUserID, stored.ClaimReason)
	}

	if len(f.notes.created) != 1 {
		t.Fatalf("notifications = %d, want 1", len(f.notes.created))
	}
	n := f.notes.created[0]
	if n.UserID != "9" || n.Type != notification.TypeClaimSubmitted {
		t.Errorf("notification = %+v", n)
	}
}

func TestSubmitAfterRejectedClaim(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimRejected
	c.ClaimMessage = "not enough evidence"
	f := newFixture(c, dancer("2", account.Profile{}))

	if _, err := f.svc.Submit(context.Background(), "1", "2", ""); err != nil {
		t.Fatalf("Submit after rejection: %v", err)
	}
	if got := f.accounts.get("1").ClaimMessage; got != "" {
		t.Errorf("claim message = %q, want cleared", got)
	}
}

func TestSubmitAfterApprovedClaim(t *testing.T) {
	old := "2"
	c := general("1")
	c.ClaimStatus = account.ClaimApproved
	c.ClaimUserID = &old
	f := newFixture(c, dancer("2", account.Profile{}), dancer("3", account.Profile{}))

	_, err := f.svc.Submit(context.Background(), "1", "3", "")
	if !errors.Is(err, ErrClaimInProgress) {
		t.Fatalf("err = %v, want ErrClaimInProgress", err)
	}
	stored := f.accounts.get("1")
	if stored.ClaimStatus != account.ClaimApproved || *stored.ClaimUserID != "2" {
		t.Errorf("claim = %q/%v, want approved/2", stored.ClaimStatus, *stored.ClaimUserID)
	}
	if f.accounts.writes != 0 {
		t.Errorf("writes = %d, want 0", f.accounts.writes)
	}
}

func TestProfileUpdate(t *testing.T) {
	full := account.Profile{
		Name:         "Yujin",
		NameEN:       "Yujin Kim",
		Introduction: "bio",
		InstagramURL: "https://instagram.com/yujin",
		YoutubeURL:   "https://youtube.com/@yujin",
		TiktokURL:    "https://tiktok.com/@yujin",
		ProfileImage: "https://img/yujin.png",
		DisplayOrder: 4,
	}

	t.Run("general claimant is overwritten", func(t *testing.T) {
		c := general("1")
		c.Name = "Old Name"
		c.Introduction = "old"
		f := newFixture(c)
		upd := profileUpdate(c, dancer("2", full))
		if _, err := f.accounts.UpdateProfile(context.Background(), "1", upd); err != nil {
			t.Fatal(err)
		}
		got := f.accounts.get("1")
		if diff := cmp.Diff(full, got.Profile); diff != "" {
			t.Errorf("profile mismatch (-want +got):\n%s", diff)
		}
		if got.Type != account.RoleDancer {
			t.Errorf("type = %q, want dancer", got.Type)
		}
	})

	t.Run("dancer claimant fills blanks only", func(t *testing.T) {
		c := dancer("1", account.Profile{Name: "Mine", Introduction: "", DisplayOrder: 2})
		upd := profileUpdate(c, dancer("2", full))
		if upd.Name != nil {
			t.Error("populated name must not be overwritten")
		}
		if upd.Introduction == nil || *upd.Introduction != "bio" {
			t.Errorf("introduction = %v, want bio", upd.Introduction)
		}
		if upd.DisplayOrder != nil {
			t.Error("non-zero display order must not be overwritten")
		}
		if upd.Type != nil {
			t.Error("dancer claimant keeps its type")
		}
	})

	t.Run("nothing to fill", func(t *testing.T) {
		c := dancer("1", full)
		if upd := profileUpdate(c, dancer("2", account.Profile{Name: "Other"})); !upd.Empty() {
			t.Errorf("expected empty update, got %+v", upd)
		}
	})
}

func TestFillIfBlankMerge(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		want     string
	}{
		{"blank is filled", "", "bio"},
		{"existing is kept", "existing", "existing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := dancer("1", account.Profile{Introduction: tt.existing})
			c.ClaimStatus = account.ClaimPending
			c.ClaimUserID = strPtr("2")
			f := newFixture(c, dancer("2", account.Profile{Introduction: "bio"}), admin())

			if _, err := f.svc.Resolve(context.Background(), "9", "1", account.ClaimApproved, ""); err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if got := f.accounts.get("1").Introduction; got != tt.want {
				t.Errorf("introduction = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExampleClaimScenario(t *testing.T) {
	d := dancer("2", account.Profile{Name: "D", Introduction: "Seoul dancer"})
	f := newFixture(general("1"), d, admin())
	f.careers.entries = []*career.Entry{
		entry("c1", "2", "Festival", 1),
		entry("c2", "2", "Concert", 2),
	}
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, "1", "2", "this is my profile"); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	res, err := f.svc.Resolve(ctx, "9", "1", account.ClaimApproved, "welcome")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	c := f.accounts.get("1")
	if c.Type != account.RoleDancer {
		t.Errorf("type = %q, want dancer", c.Type)
	}
	if c.Introduction != "Seoul dancer" {
		t.Errorf("introduction = %q", c.Introduction)
	}
	if c.ClaimStatus != account.ClaimApproved || c.ClaimMessage != "welcome" {
		t.Errorf("claim = %q/%q", c.ClaimStatus, c.ClaimMessage)
	}
	copied := f.careers.byUser("1")
	if len(copied) != 2 {
		t.Fatalf("claimant careers = %d, want 2", len(copied))
	}
	for _, e := range copied {
		if e.UserID != "1" {
			t.Errorf("career %s user_id = %q, want 1", e.ID, e.UserID)
		}
	}

	if st, _ := res.Report.Result(StepCareers); st.Copied != 2 {
		t.Errorf("careers copied = %d, want 2", st.Copied)
	}
	if len(res.Report.Failures()) != 0 {
		t.Errorf("unexpected failures: %+v", res.Report.Failures())
	}

	last := f.notes.created[len(f.notes.created)-1]
	if last.UserID != "1" || last.Type != notification.TypeStatusUpdated {
		t.Errorf("final notification = %+v", last)
	}
}

func TestResolveToleratesSecondaryFailure(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimPending
	c.ClaimUserID = strPtr("2")
	f := newFixture(c, dancer("2", account.Profile{Name: "D", Introduction: "bio"}), admin())
	f.careers.entries = []*career.Entry{entry("c1", "2", "Show", 1)}
	f.careers.createErr = errStore
	f.teams.members = []*team.Membership{{ID: "m1", TeamID: "t1", UserID: "2", Role: team.RoleMember}}

	res, err := f.svc.Resolve(context.Background(), "9", "1", account.ClaimApproved, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	got := f.accounts.get("1")
	if got.ClaimStatus != account.ClaimApproved {
		t.Errorf("claim status = %q, want approved", got.ClaimStatus)
	}
	if got.Name != "D" || got.Introduction != "bio" {
		t.Errorf("profile not merged: %+v", got.Profile)
	}

	failures := res.Report.Failures()
	if len(failures) != 1 || failures[0].Step != StepCareers || !errors.Is(failures[0].Err, errStore) {
		t.Errorf("failures = %+v", failures)
	}
	if st, _ := res.Report.Result(StepTeams); st.Copied != 1 {
		t.Errorf("teams copied = %d, want 1 after career failure", st.Copied)
	}
	if diff := cmp.Diff([]string{"careers"}, f.obs.failures); diff != "" {
		t.Errorf("observed failures (-want +got):\n%s", diff)
	}
}

func TestResolveProfileFailureSurfaces(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimPending
	c.ClaimUserID = strPtr("2")
	f := newFixture(c, dancer("2", account.Profile{Name: "D"}), admin())
	f.accounts.updateErr = errStore

	_, err := f.svc.Resolve(context.Background(), "9", "1", account.ClaimApproved, "")
	if !errors.Is(err, apperr.ErrPersistence) || !errors.Is(err, errStore) {
		t.Fatalf("err = %v, want persistence error wrapping store error", err)
	}
	if got := f.accounts.get("1").ClaimStatus; got != account.ClaimPending {
		t.Errorf("claim status = %q, want pending", got)
	}
}

func TestResolveRequiresAdmin(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimPending
	c.ClaimUserID = strPtr("2")

	for _, caller := range []string{"5", "404", ""} {
		f := newFixture(c, dancer("2", account.Profile{Name: "D"}), dancer("5", account.Profile{}))
		_, err := f.svc.Resolve(context.Background(), caller, "1", account.ClaimApproved, "")
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("caller %q: err = %v, want unauthorized", caller, err)
		}
		_, err = f.svc.DirectLink(context.Background(), caller, "1", "2", "")
		if !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("caller %q: direct link err = %v, want unauthorized", caller, err)
		}
		if f.accounts.writes != 0 {
			t.Errorf("caller %q: writes = %d, want 0", caller, f.accounts.writes)
		}
	}
}

func TestResolveStatusRules(t *testing.T) {
	tests := []struct {
		name     string
		current  account.ClaimStatus
		decision account.ClaimStatus
		wantErr  error
	}{
		{"approve non-pending", account.ClaimRejected, account.ClaimApproved, ErrClaimNotPending},
		{"reject without claim", account.ClaimNone, account.ClaimRejected, ErrClaimNotPending},
		{"complete pending", account.ClaimPending, account.ClaimCompleted, ErrClaimNotApproved},
		{"complete approved", account.ClaimApproved, account.ClaimCompleted, nil},
		{"unknown decision", account.ClaimPending, "maybe", ErrInvalidDecision},
		{"pending as decision", account.ClaimPending, account.ClaimPending, ErrInvalidDecision},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := general("1")
			c.ClaimStatus = tt.current
			c.ClaimUserID = strPtr("2")
			f := newFixture(c, dancer("2", account.Profile{}), admin())

			_, err := f.svc.Resolve(context.Background(), "9", "1", tt.decision, "")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			want := tt.current
			if tt.wantErr == nil {
				want = tt.decision
			}
			if got := f.accounts.get("1").ClaimStatus; got != want {
				t.Errorf("claim status = %q, want %q", got, want)
			}
		})
	}
}

func TestResolveRejectLeavesDataUntouched(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimPending
	c.ClaimUserID = strPtr("2")
	f := newFixture(c, dancer("2", account.Profile{Name: "D", Introduction: "bio"}), admin())
	f.careers.entries = []*career.Entry{entry("c1", "2", "Show", 1)}

	res, err := f.svc.Resolve(context.Background(), "9", "1", account.ClaimRejected, "not you")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Report != nil {
		t.Error("rejection should not produce a merge report")
	}

	got := f.accounts.get("1")
	if got.Type != account.RoleGeneral || got.Introduction != "" {
		t.Errorf("profile changed on rejection: %+v", got)
	}
	if got.ClaimStatus != account.ClaimRejected || got.ClaimMessage != "not you" {
		t.Errorf("claim = %q/%q", got.ClaimStatus, got.ClaimMessage)
	}
	if n := len(f.careers.byUser("1")); n != 0 {
		t.Errorf("claimant careers = %d, want 0", n)
	}
}

func TestDirectLink(t *testing.T) {
	c := dancer("1", account.Profile{Name: "Mine"})
	f := newFixture(c, dancer("2", account.Profile{Name: "D", TiktokURL: "https://tiktok.com/@d"}), admin())
	f.teams.members = []*team.Membership{
		{ID: "m1", TeamID: "t1", UserID: "2", Role: team.RoleLeader},
		{ID: "m2", TeamID: "t2", UserID: "2", Role: team.RoleMember},
		{ID: "m3", TeamID: "t2", UserID: "1", Role: team.RoleMember},
	}

	res, err := f.svc.DirectLink(context.Background(), "9", "1", "2", "verified by phone")
	if err != nil {
		t.Fatalf("DirectLink: %v", err)
	}
	if res.Status != account.ClaimApproved {
		t.Errorf("status = %q", res.Status)
	}

	got := f.accounts.get("1")
	if got.ClaimStatus != account.ClaimApproved || got.ClaimUserID == nil || *got.ClaimUserID != "2" {
		t.Errorf("claim = %q/%v", got.ClaimStatus, got.ClaimUserID)
	}
	if got.ClaimReason != "verified by phone" {
		t.Errorf("reason = %q", got.ClaimReason)
	}
	if got.Name != "Mine" || got.TiktokURL != "https://tiktok.com/@d" {
		t.Errorf("fill-if-blank not applied: %+v", got.Profile)
	}

	st, _ := res.Report.Result(StepTeams)
	if st.Copied != 1 || st.Skipped != 1 {
		t.Errorf("teams step = %+v, want 1 copied 1 skipped", st)
	}
	mine, _ := f.teams.ListByUser(context.Background(), "1")
	if len(mine) != 2 {
		t.Errorf("claimant memberships = %d, want 2", len(mine))
	}
}

func TestDirectLinkValidation(t *testing.T) {
	f := newFixture(general("1"), general("3"), admin())

	if _, err := f.svc.DirectLink(context.Background(), "9", "1", "1", ""); !errors.Is(err, ErrSelfLink) {
		t.Errorf("self link err = %v", err)
	}
	if _, err := f.svc.DirectLink(context.Background(), "9", "1", "3", ""); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("non-dancer target err = %v", err)
	}
	if _, err := f.svc.DirectLink(context.Background(), "9", "1", "404", ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing target err = %v", err)
	}
	if f.accounts.writes != 0 {
		t.Errorf("writes = %d, want 0", f.accounts.writes)
	}
}

func TestMergeCareersDedup(t *testing.T) {
	f := newFixture()
	f.careers.entries = []*career.Entry{
		entry("t1", "2", "Festival", 1),
		entry("t2", "2", "Festival", 2),
		entry("t3", "2", "Concert", 3),
		entry("c1", "1", "Festival", 1),
	}

	res := f.svc.mergeCareers(context.Background(), "1", "2")
	if res.Err != nil {
		t.Fatalf("mergeCareers: %v", res.Err)
	}
	if res.Copied != 2 || res.Skipped != 1 {
		t.Errorf("copied/skipped = %d/%d, want 2/1", res.Copied, res.Skipped)
	}

	again := f.svc.mergeCareers(context.Background(), "1", "2")
	if again.Copied != 0 || again.Skipped != 3 {
		t.Errorf("second merge copied/skipped = %d/%d, want 0/3", again.Copied, again.Skipped)
	}
}

func TestMergeProposals(t *testing.T) {
	budget := int64(500)
	f := newFixture()
	f.teams.members = []*team.Membership{{ID: "m1", TeamID: "team-a", UserID: "1", Role: team.RoleMember}}
	f.proposals.items = []*proposal.Proposal{
		{ID: "authored", ClientID: strPtr("2"), Title: "Workshop", Description: "d", Budget: &budget},
		{ID: "authored-dup", ClientID: strPtr("2"), Title: "Duplicate", Description: "x"},
		{ID: "claimant-own", ClientID: strPtr("1"), Title: "Duplicate", Description: "x"},
		{ID: "team-a", DancerID: strPtr("2"), TeamID: strPtr("team-a"), Title: "A"},
		{ID: "team-b", DancerID: strPtr("2"), TeamID: strPtr("team-b"), Title: "B"},
		{ID: "direct", DancerID: strPtr("2"), Title: "Direct"},
	}

	res := f.svc.mergeProposals(context.Background(), "1", "2")
	if res.Err != nil {
		t.Fatalf("mergeProposals: %v", res.Err)
	}
	if res.Copied != 2 || res.Skipped != 2 {
		t.Errorf("copied/skipped = %d/%d, want 2/2", res.Copied, res.Skipped)
	}

	dancerOf := map[string]string{}
	for _, p := range f.proposals.items {
		if p.DancerID != nil {
			dancerOf[p.ID] = *p.DancerID
		}
	}
	want := map[string]string{"team-a": "1", "team-b": "2", "direct": "2"}
	if diff := cmp.Diff(want, dancerOf); diff != "" {
		t.Errorf("receivers (-want +got):\n%s", diff)
	}

	authored, _ := f.proposals.ListAuthoredBy(context.Background(), "1")
	var titles []string
	for _, p := range authored {
		titles = append(titles, p.Title)
	}
	if diff := cmp.Diff([]string{"Duplicate", "Workshop"}, titles); diff != "" {
		t.Errorf("claimant authored titles (-want +got):\n%s", diff)
	}
}

func TestNotificationFailureDoesNotFailApproval(t *testing.T) {
	c := general("1")
	c.ClaimStatus = account.ClaimPending
	c.ClaimUserID = strPtr("2")
	f := newFixture(c, dancer("2", account.Profile{Name: "D"}), admin())
	f.notes.err = errStore

	res, err := f.svc.Resolve(context.Background(), "9", "1", account.ClaimApproved, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	st, ok := res.Report.Result(StepNotification)
	if !ok || !st.Failed() {
		t.Errorf("notification step = %+v, want failure", st)
	}
	if f.accounts.get("1").ClaimStatus != account.ClaimApproved {
		t.Error("claim should be approved")
	}
}
