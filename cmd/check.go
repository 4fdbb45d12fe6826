package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/beaker-project/beaker-administrivia/internal/check"
	"github.com/beaker-project/beaker-administrivia/internal/models"
)

var (
	checkMilestone string
	checkInclude   []string
)

func checkRun(ctx context.Context) error {
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}

	ms := checkMilestone
	if ms == "" {
		guessed, err := resolveMilestone(ctx, repo)
		if err != nil {
			return err
		}
		ms = guessed
		fmt.Fprintf(ui.Out, "Using milestone %s\n", ms)
	}

	checker := &check.Checker{
		Tracker: newTracker(),
		Reviews: newReviews(),
		Repo:    repo,
		UI:      ui,
	}
	report, err := checker.Run(ctx, check.Options{
		Milestone:         ms,
		Include:           parseStatuses(checkInclude),
		AbandonedBranches: viper.GetStringSlice("check.abandoned_branches"),
		Project:           viper.GetString("gerrit.project"),
	})
	if err != nil {
		return err
	}
	if report.Failed() {
		return errProblemsFound
	}
	return nil
}

// resolveMilestone guesses the milestone from the checked out branch and
// the latest release tag.
func resolveMilestone(ctx context.Context, repo repository) (string, error) {
	rules := milestoneRules()
	branch, err := repo.CurrentBranch(ctx)
	if err != nil {
		return "", fmt.Errorf("determine current branch: %w", err)
	}
	tag, err := repo.LatestTag(ctx, rules.TagPrefix)
	if err != nil {
		return "", fmt.Errorf("determine current version: %w", err)
	}
	ms, err := rules.Next(branch, tag)
	if err != nil {
		return "", fmt.Errorf("guess milestone from branch %s: %w", branch, err)
	}
	return ms, nil
}

func parseStatuses(values []string) []models.Status {
	var statuses []models.Status
	for _, v := range values {
		s := models.ParseStatus(v)
		if !s.Known() {
			ui.Warning("Unknown bug state %s", s)
		}
		statuses = append(statuses, s)
	}
	return statuses
}
