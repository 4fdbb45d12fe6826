// Package check cross-checks Bugzilla bug states against Gerrit reviews and
// the local git history for one release milestone.
package check

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/beaker-project/beaker-administrivia/internal/bugzilla"
	"github.com/beaker-project/beaker-administrivia/internal/milestone"
	"github.com/beaker-project/beaker-administrivia/internal/models"
	"github.com/beaker-project/beaker-administrivia/internal/output"
)

// IssueTracker looks up bugs.
type IssueTracker interface {
	Issues(ctx context.Context, q bugzilla.Query) ([]*models.Issue, error)
	Issue(ctx context.Context, id int) (*models.Issue, error)
}

// ReviewSource looks up the Gerrit changes tracked against a set of bugs.
type ReviewSource interface {
	Reviews(ctx context.Context, bugIDs []int) ([]*models.Review, error)
}

// CommitSet answers whether a commit is reachable from HEAD.
type CommitSet interface {
	Contains(sha string) bool
}

// Repository inspects the local checkout.
type Repository interface {
	Reachable(ctx context.Context) (CommitSet, error)
	BugReferences(ctx context.Context) ([]int, error)
}

// Acceptable bug states for each patch situation.
var (
	// No live patches: the bug may have been fixed outside Gerrit (a beah
	// patch, a config change), so closed states are fine too.
	noPatchStates = []models.Status{
		models.StatusNew, models.StatusAssigned, models.StatusOnQA, models.StatusVerified, models.StatusClosed,
	}
	inReviewStates = []models.Status{models.StatusAssigned, models.StatusPost}
	landedStates   = []models.Status{
		models.StatusModified, models.StatusOnQA, models.StatusVerified, models.StatusClosed,
	}
	revertedStates = []models.Status{models.StatusAssigned}

	// In-progress bugs must always carry a milestone.
	inWorkStates = []models.Status{
		models.StatusModified, models.StatusOnQA, models.StatusVerified, models.StatusReleasePending,
	}
)

// Options configures a check run.
type Options struct {
	Milestone string
	// Include restricts the run to bugs in these states. When set, the
	// milestone-wide checks are skipped.
	Include []models.Status
	// AbandonedBranches are long-lived feature branches that are never
	// merged into HEAD; merged changes on them are not expected to be
	// reachable.
	AbandonedBranches []string
	// Project, when set, limits the reachability check to changes for this
	// Gerrit project.
	Project string
}

// Report accumulates the problems found by a run, in discovery order.
type Report struct {
	Milestone string
	Problems  []models.Problem
}

// Failed reports whether any problem was found.
func (r *Report) Failed() bool { return len(r.Problems) > 0 }

// Checker runs the consistency rules against injected services.
type Checker struct {
	Tracker IssueTracker
	Reviews ReviewSource
	Repo    Repository
	UI      *output.UI
}

// Run checks every bug in the milestone and returns the problems found.
// An error means the run could not complete; problems found before it are
// still in the returned report.
func (c *Checker) Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{Milestone: opts.Milestone}

	c.UI.Info("Building git revision list for HEAD")
	commits, err := c.Repo.Reachable(ctx)
	if err != nil {
		return report, fmt.Errorf("build revision list: %w", err)
	}

	c.UI.Info("Retrieving bug list from Bugzilla")
	issues, err := c.Tracker.Issues(ctx, bugzilla.Query{
		Milestones: []string{opts.Milestone},
		Statuses:   opts.Include,
	})
	if err != nil {
		return report, fmt.Errorf("retrieve bugs: %w", err)
	}
	c.UI.Info("  Retrieved %d bugs", len(issues))

	ids := make([]int, len(issues))
	inMilestone := make(map[int]bool, len(issues))
	for i, issue := range issues {
		ids[i] = issue.ID
		inMilestone[issue.ID] = true
	}

	c.UI.Info("Retrieving code review details from Gerrit")
	reviews, err := c.Reviews.Reviews(ctx, ids)
	if err != nil {
		return report, fmt.Errorf("retrieve reviews: %w", err)
	}
	c.UI.Info("  Retrieved %d patch reviews", len(reviews))

	abandoned := make(map[string]bool, len(opts.AbandonedBranches))
	for _, b := range opts.AbandonedBranches {
		abandoned[b] = true
	}

	for _, issue := range issues {
		issueReviews := ReviewsFor(reviews, issue.ID)
		c.describe(issue, issueReviews)
		c.checkIssue(report, issue, issueReviews)
		c.checkReachable(report, issue, issueReviews, commits, abandoned, opts.Project)
		c.UI.Line("")
	}

	if len(opts.Include) > 0 {
		return report, nil
	}

	c.UI.Info("Checking commit bug references for consistency")
	if err := c.checkCommitReferences(ctx, report, opts.Milestone, inMilestone); err != nil {
		return report, err
	}

	c.UI.Info("Checking milestone and bug status consistency")
	if err := c.checkMissingMilestones(ctx, report); err != nil {
		return report, err
	}
	return report, nil
}

// ReviewsFor returns the reviews tracked against bug id, ordered by change
// number.
func ReviewsFor(reviews []*models.Review, id int) []*models.Review {
	var out []*models.Review
	for _, r := range reviews {
		if r.References(id) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// AcceptableStates returns the states bug issue may be in given its reviews.
func AcceptableStates(issue *models.Issue, reviews []*models.Review) []models.Status {
	var live []*models.Review
	for _, r := range reviews {
		if !r.Abandoned() {
			live = append(live, r)
		}
	}
	if len(live) == 0 {
		return noPatchStates
	}
	for _, r := range live {
		if !r.Merged() {
			return inReviewStates
		}
	}
	if issue.Reverted() {
		return revertedStates
	}
	return landedStates
}

func (c *Checker) checkIssue(report *Report, issue *models.Issue, reviews []*models.Review) {
	acceptable := AcceptableStates(issue, reviews)
	if !containsStatus(acceptable, issue.Status) {
		c.problem(report, issue.ID, models.ProblemStatus, fmt.Sprintf("Bug %d should be %s, not %s",
			issue.ID, joinStates(acceptable), issue.Status))
	}

	if issue.Status == models.StatusClosed && issue.Resolution == models.ResolutionDuplicate {
		c.problem(report, issue.ID, models.ProblemDuplicate, fmt.Sprintf(
			"Bug %d should have no milestone since it is marked DUPLICATE", issue.ID))
	}
}

func (c *Checker) checkReachable(report *Report, issue *models.Issue, reviews []*models.Review,
	commits CommitSet, abandoned map[string]bool, project string) {
	for _, r := range reviews {
		if !r.Merged() || abandoned[r.Branch] {
			continue
		}
		if project != "" && r.Project != project {
			continue
		}
		if !commits.Contains(r.Revision) {
			c.problem(report, issue.ID, models.ProblemUnreachableCommit, fmt.Sprintf(
				"Bug %d: Commit %s is not reachable from HEAD (is this clone up to date, or was the commit lost?)",
				issue.ID, r.Revision))
		}
	}
}

// checkCommitReferences flags bugs referenced by commits on this branch whose
// own milestone is unset, deferred, or later than the one being checked.
// Cherry-picks of bugs fixed in an earlier release are fine.
func (c *Checker) checkCommitReferences(ctx context.Context, report *Report, target string, inMilestone map[int]bool) error {
	refs, err := c.Repo.BugReferences(ctx)
	if err != nil {
		return fmt.Errorf("scan commit messages: %w", err)
	}
	for _, id := range refs {
		if inMilestone[id] {
			continue
		}
		issue, err := c.Tracker.Issue(ctx, id)
		if err != nil {
			return fmt.Errorf("retrieve bug %d: %w", id, err)
		}
		if issue.Reverted() {
			continue
		}
		if milestoneAfter(issue.TargetMilestone, target) {
			c.problem(report, id, models.ProblemCommitReference, fmt.Sprintf(
				"Bug %d is referenced by a commit on this branch but target milestone is %s",
				id, issue.TargetMilestone))
		}
	}
	return nil
}

// milestoneAfter reports whether a bug slated for m does not belong in a
// release of target. Unset, deferred and unrecognised milestones all count.
func milestoneAfter(m, target string) bool {
	if m == models.MilestoneUnset || m == models.MilestoneFuture {
		return true
	}
	cmp, err := milestone.Compare(m, target)
	if err != nil {
		return true
	}
	return cmp > 0
}

func (c *Checker) checkMissingMilestones(ctx context.Context, report *Report) error {
	issues, err := c.Tracker.Issues(ctx, bugzilla.Query{
		Milestones: []string{models.MilestoneUnset, models.MilestoneFuture},
		Statuses:   inWorkStates,
	})
	if err != nil {
		return fmt.Errorf("retrieve bugs without milestone: %w", err)
	}
	for _, issue := range issues {
		c.problem(report, issue.ID, models.ProblemMissingMilestone, fmt.Sprintf(
			"Bug %d status is %s but target milestone is not set", issue.ID, issue.Status))
	}
	return nil
}

func (c *Checker) problem(report *Report, id int, kind models.ProblemKind, message string) {
	report.Problems = append(report.Problems, models.Problem{IssueID: id, Kind: kind, Message: message})
	c.UI.Problem(message)
}

func (c *Checker) describe(issue *models.Issue, reviews []*models.Review) {
	c.UI.Line("Bug %-13d %-17s %-10s <%s>", issue.ID, issue.Status, abbrevUser(issue.AssignedTo), issue.URL)
	for _, r := range reviews {
		c.UI.Line("    Change %-6d %-17s %-10s <%s>", r.Number,
			fmt.Sprintf("%s (%d/%d)", r.Status, r.Verified, r.CodeReview), r.Owner, r.URL)
	}
}

func abbrevUser(user string) string {
	return strings.TrimSuffix(user, "@redhat.com")
}

func containsStatus(states []models.Status, s models.Status) bool {
	for _, st := range states {
		if st == s {
			return true
		}
	}
	return false
}

// joinStates renders states as "A, B or C".
func joinStates(states []models.Status) string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	if len(names) <= 1 {
		return strings.Join(names, "")
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
