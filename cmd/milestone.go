package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var milestoneCmd = &cobra.Command{
	Use:   "milestone",
	Short: "Print the milestone guessed from the current checkout",
	Long: `Print the Bugzilla target milestone the current checkout is working on.

On a maintenance branch (release-N) tagged x.y this is x.y+1; on any other
branch it is x+1.0. A release candidate x.0rcN resolves to x.0.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return milestoneRun(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(milestoneCmd)
}

func milestoneRun(ctx context.Context) error {
	repo, err := newRepository(ctx)
	if err != nil {
		return err
	}
	ms, err := resolveMilestone(ctx, repo)
	if err != nil {
		return err
	}
	fmt.Fprintln(ui.Out, ms)
	return nil
}
