package claim

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecgard/troupe/internal/account"
	"github.com/alecgard/troupe/internal/apperr"
	"github.com/alecgard/troupe/internal/career"
	"github.com/alecgard/troupe/internal/notification"
	"github.com/alecgard/troupe/internal/proposal"
)

// Step names a stage of the merge procedure.
type Step string

const (
	StepProfile      Step = "profile"
	StepCareers      Step = "careers"
	StepTeams        Step = "teams"
	StepProposals    Step = "proposals"
	StepStatus       Step = "status"
	StepNotification Step = "notification"
)

// StepResult records the outcome of one merge step. Err is set when the step
// failed, possibly after copying some rows.
type StepResult struct {
	Step    Step  `json:"step"`
	Copied  int   `json:"copied"`
	Skipped int   `json:"skipped"`
	Err     error `json:"-"`
}

// Failed reports whether the step returned an error.
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// MergeReport collects the per-step results of a merge. The merge is not
// atomic: a failed secondary step leaves earlier steps applied.
type MergeReport struct {
	ClaimantID string       `json:"claimant_id"`
	TargetID   string       `json:"target_id"`
	Steps      []StepResult `json:"steps"`
}

// Result returns the result of the named step.
func (r *MergeReport) Result(step Step) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}

// Failures returns the steps that reported an error.
func (r *MergeReport) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Failed() {
			out = append(out, s)
		}
	}
	return out
}

func (r *MergeReport) add(res StepResult) {
	r.Steps = append(r.Steps, res)
}

// profileUpdate computes the profile changes a merge applies to claimant.
// A general claimant takes the target's profile and role wholesale. Any other
// claimant only gets fields that are blank on its side.
func profileUpdate(claimant, target *account.Account) account.UpdateProfileInput {
	src := target.Profile
	if claimant.Type == account.RoleGeneral {
		typ := target.Type
		order := src.DisplayOrder
		return account.UpdateProfileInput{
			Name:         &src.Name,
			NameEN:       &src.NameEN,
			Type:         &typ,
			Introduction: &src.Introduction,
			InstagramURL: &src.InstagramURL,
			YoutubeURL:   &src.YoutubeURL,
			TiktokURL:    &src.TiktokURL,
			ProfileImage: &src.ProfileImage,
			DisplayOrder: &order,
		}
	}

	dst := claimant.Profile
	var in account.UpdateProfileInput
	in.Name = fillBlank(dst.Name, src.Name)
	in.NameEN = fillBlank(dst.NameEN, src.NameEN)
	in.Introduction = fillBlank(dst.Introduction, src.Introduction)
	in.InstagramURL = fillBlank(dst.InstagramURL, src.InstagramURL)
	in.YoutubeURL = fillBlank(dst.YoutubeURL, src.YoutubeURL)
	in.TiktokURL = fillBlank(dst.TiktokURL, src.TiktokURL)
	in.ProfileImage = fillBlank(dst.ProfileImage, src.ProfileImage)
	if dst.DisplayOrder == 0 && src.DisplayOrder != 0 {
		order := src.DisplayOrder
		in.DisplayOrder = &order
	}
	return in
}

func fillBlank(dst, src string) *string {
	if dst != "" || src == "" {
		return nil
	}
	return &src
}

func countFields(in account.UpdateProfileInput) int {
	n := 0
	for _, p := range []*string{in.Name, in.NameEN, in.Introduction, in.InstagramURL, in.YoutubeURL, in.TiktokURL, in.ProfileImage} {
		if p != nil {
			n++
		}
	}
	if in.Type != nil {
		n++
	}
	if in.DisplayOrder != nil {
		n++
	}
	return n
}

// merge runs the profile, career, team and proposal steps. Only a profile
// failure is returned as an error; the others are recorded in the report.
func (s *Service) merge(ctx context.Context, claimant, target *account.Account) (*MergeReport, error) {
	report := &MergeReport{ClaimantID: claimant.ID, TargetID: target.ID}

	upd := profileUpdate(claimant, target)
	res := StepResult{Step: StepProfile, Copied: countFields(upd)}
	if !upd.Empty() {
		if _, err := s.accounts.UpdateProfile(ctx, claimant.ID, upd); err != nil {
			res.Err = err
			report.add(res)
			return report, apperr.Persistence("merging profile", err)
		}
	}
	report.add(res)

	for _, step := range []func(context.Context, string, string) StepResult{
		s.mergeCareers,
		s.mergeTeams,
		s.mergeProposals,
	} {
		res := step(ctx, claimant.ID, target.ID)
		s.recordStep(res)
		report.add(res)
	}
	return report, nil
}

func (s *Service) recordStep(res StepResult) {
	if res.Err == nil {
		return
	}
	s.logger.Warn("claim merge step failed",
		"step", string(res.Step),
		"copied", res.Copied,
		"error", res.Err,
	)
	if s.obs != nil {
		s.obs.MergeStepFailed(string(res.Step))
	}
}

// mergeCareers copies the target's career entries unless the claimant
// already has one with the same title, category and date.
func (s *Service) mergeCareers(ctx context.Context, claimantID, targetID string) StepResult {
	res := StepResult{Step: StepCareers}

	source, err := s.careers.ListByUser(ctx, targetID)
	if err != nil {
		res.Err = err
		return res
	}
	existing, err := s.careers.ListByUser(ctx, claimantID)
	if err != nil {
		res.Err = err
		return res
	}

	seen := make(map[string]bool, len(existing))
	for _, e := range existing {
		seen[careerKey(e)] = true
	}

	var errs []error
	for _, e := range source {
		key := careerKey(e)
		if seen[key] {
			res.Skipped++
			continue
		}
		if _, err := s.careers.Create(ctx, claimantID, career.FromEntry(e)); err != nil {
			errs = append(errs, fmt.Errorf("copying career %s: %w", e.ID, err))
			continue
		}
		seen[key] = true
		res.Copied++
	}
	res.Err = errors.Join(errs...)
	return res
}

func careerKey(e *career.Entry) string {
	return e.Title + "\x00" + e.Category + "\x00" + e.DateKey()
}

// mergeTeams copies the target's memberships for teams the claimant is not
// already part of.
func (s *Service) mergeTeams(ctx context.Context, claimantID, targetID string) StepResult {
	res := StepResult{Step: StepTeams}

	source, err := s.teams.ListByUser(ctx, targetID)
	if err != nil {
		res.Err = err
		return res
	}
	existing, err := s.teams.ListByUser(ctx, claimantID)
	if err != nil {
		res.Err = err
		return res
	}

	member := make(map[string]bool, len(existing))
	for _, m := range existing {
		member[m.TeamID] = true
	}

	var errs []error
	for _, m := range source {
		if member[m.TeamID] {
			res.Skipped++
			continue
		}
		if _, err := s.teams.AddMember(ctx, m.TeamID, claimantID, m.Role); err != nil {
			errs = append(errs, fmt.Errorf("copying membership of team %s: %w", m.TeamID, err))
			continue
		}
		member[m.TeamID] = true
		res.Copied++
	}
	res.Err = errors.Join(errs...)
	return res
}

// mergeProposals duplicates proposals authored by the target and re-points
// team-channel proposals it received to the claimant when the claimant
// belongs to that team. Proposals a client sent to the target directly stay
// with the target.
func (s *Service) mergeProposals(ctx context.Context, claimantID, targetID string) StepResult {
	res := StepResult{Step: StepProposals}
	var errs []error

	authored, err := s.proposals.ListAuthoredBy(ctx, targetID)
	if err == nil {
		var mine []*proposal.Proposal
		mine, err = s.proposals.ListAuthoredBy(ctx, claimantID)
		if err == nil {
			seen := make(map[string]bool, len(mine))
			for _, p := range mine {
				seen[p.DedupKey()] = true
			}
			for _, p := range authored {
				if seen[p.DedupKey()] {
					res.Skipped++
					continue
				}
				if _, err := s.proposals.Create(ctx, proposal.CopyFor(p, claimantID)); err != nil {
					errs = append(errs, fmt.Errorf("copying proposal %s: %w", p.ID, err))
					continue
				}
				seen[p.DedupKey()] = true
				res.Copied++
			}
		}
	}
	if err != nil {
		errs = append(errs, fmt.Errorf("listing authored proposals: %w", err))
	}

	received, err := s.proposals.ListTeamChannelReceived(ctx, targetID)
	if err != nil {
		errs = append(errs, fmt.Errorf("listing received proposals: %w", err))
		res.Err = errors.Join(errs...)
		return res
	}
	if len(received) > 0 {
		memberships, err := s.teams.ListByUser(ctx, claimantID)
		if err != nil {
			errs = append(errs, fmt.Errorf("listing claimant teams: %w", err))
			res.Err = errors.Join(errs...)
			return res
		}
		member := make(map[string]bool, len(memberships))
		for _, m := range memberships {
			member[m.TeamID] = true
		}
		for _, p := range received {
			if p.TeamID == nil || !member[*p.TeamID] {
				res.Skipped++
				continue
			}
			if err := s.proposals.SetDancer(ctx, p.ID, claimantID); err != nil {
				errs = append(errs, fmt.Errorf("repointing proposal %s: %w", p.ID, err))
				continue
			}
			res.Copied++
		}
	}

	res.Err = errors.Join(errs...)
	return res
}

// notifyMerged tells the claimant what the merge copied.
func (s *Service) notifyMerged(ctx context.Context, report *MergeReport) StepResult {
	res := StepResult{Step: StepNotification}

	counts := map[Step]int{}
	for _, st := range report.Steps {
		counts[st.Step] = st.Copied
	}
	related := report.TargetID
	_, err := s.notes.Create(ctx, notification.CreateInput{
		UserID: report.ClaimantID,
		Type:   notification.TypeStatusUpdated,
		Title:  "Profile claim approved",
		Message: fmt.Sprintf("Merged %d profile fields, %d career entries, %d team memberships and %d proposals.",
			counts[StepProfile], counts[StepCareers], counts[StepTeams], counts[StepProposals]),
		RelatedID: &related,
	})
	if err != nil {
		res.Err = err
	} else {
		res.Copied = 1
	}
	s.recordStep(res)
	return res
}
