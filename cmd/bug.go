package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/beaker-project/beaker-administrivia/internal/bugzilla"
	"github.com/beaker-project/beaker-administrivia/internal/milestone"
	"github.com/beaker-project/beaker-administrivia/internal/models"
	"github.com/beaker-project/beaker-administrivia/internal/output"
)

var (
	bugListMilestone string
	bugListInclude   []string
	bugListAssignee  string
	bugMinorUpdate   bool
)

var bugCmd = &cobra.Command{
	Use:   "bug",
	Short: "List and update Beaker bugs",
}

var bugListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bugs slated for a milestone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return bugListRun(cmd.Context())
	},
}

var bugSetMilestoneCmd = &cobra.Command{
	Use:   "set-milestone <bug-id> <milestone>",
	Short: "Set the target milestone of a bug",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bugSetMilestoneRun(cmd.Context(), args[0], args[1])
	},
}

var bugSetResolutionCmd = &cobra.Command{
	Use:   "set-resolution <bug-id> <resolution>",
	Short: "Set the resolution of a bug",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return bugSetResolutionRun(cmd.Context(), args[0], args[1])
	},
}

func init() {
	bugListCmd.Flags().StringVarP(&bugListMilestone, "milestone", "m", "", "List bugs slated for MILESTONE (default: guess from current checkout)")
	bugListCmd.Flags().StringArrayVarP(&bugListInclude, "include", "i", nil, "Only list bugs in STATE (may be given multiple times)")
	bugListCmd.Flags().StringVar(&bugListAssignee, "assignee", "", "Only list bugs assigned to this user")

	for _, c := range []*cobra.Command{bugSetMilestoneCmd, bugSetResolutionCmd} {
		c.Flags().BoolVar(&bugMinorUpdate, "minor", false, "Minor update: do not send Bugzilla change mail")
		bugCmd.AddCommand(c)
	}
	bugCmd.AddCommand(bugListCmd)
	rootCmd.AddCommand(bugCmd)
}

func bugListRun(ctx context.Context) error {
	ms := bugListMilestone
	if ms == "" {
		repo, err := newRepository(ctx)
		if err != nil {
			return err
		}
		guessed, err := resolveMilestone(ctx, repo)
		if err != nil {
			return err
		}
		ms = guessed
	}

	issues, err := newTracker().Issues(ctx, bugzilla.Query{
		Milestones: []string{ms},
		Statuses:   parseStatuses(bugListInclude),
		Assignee:   bugListAssignee,
	})
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		ui.Info("No bugs slated for %s", ms)
		return nil
	}

	table := ui.Table([]string{"Bug", "Status", "Assignee", "Summary"})
	for _, issue := range issues {
		status := string(issue.Status)
		if issue.Resolution != "" {
			status += " " + issue.Resolution
		}
		_ = table.Append([]string{
			strconv.Itoa(issue.ID),
			output.StatusColor(status),
			issue.AssignedTo,
			issue.Summary,
		})
	}
	return table.Render()
}

func bugSetMilestoneRun(ctx context.Context, idArg, ms string) error {
	id, err := parseBugID(idArg)
	if err != nil {
		return err
	}
	if ms != models.MilestoneUnset && ms != models.MilestoneFuture {
		if _, err := milestone.Parse(ms); err != nil {
			return err
		}
	}
	if dryRun {
		ui.DryRunMsg("Would set target milestone of bug %d to %s", id, ms)
		return nil
	}
	if err := newTracker().SetTargetMilestone(ctx, id, ms, bugMinorUpdate); err != nil {
		return err
	}
	ui.Success("Bug %d target milestone set to %s", id, ms)
	return nil
}

func bugSetResolutionRun(ctx context.Context, idArg, resolution string) error {
	id, err := parseBugID(idArg)
	if err != nil {
		return err
	}
	resolution = strings.ToUpper(strings.TrimSpace(resolution))
	if resolution == "" {
		return fmt.Errorf("resolution must not be empty")
	}
	if dryRun {
		ui.DryRunMsg("Would set resolution of bug %d to %s", id, resolution)
		return nil
	}
	if err := newTracker().SetResolution(ctx, id, resolution, bugMinorUpdate); err != nil {
		return err
	}
	ui.Success("Bug %d resolution set to %s", id, resolution)
	return nil
}

func parseBugID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid bug id %q", s)
	}
	return id, nil
}
