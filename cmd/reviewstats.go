package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beaker-project/beaker-administrivia/internal/gerrit"
	"github.com/beaker-project/beaker-administrivia/internal/stats"
)

// changeSource lists Gerrit changes with revisions and messages.
type changeSource interface {
	Changes(ctx context.Context, query string, limit int) ([]gerrit.Change, error)
}

var (
	statsSinceDays int
	statsLimit     int
	statsFormat    string
	statsQuery     string
)

var reviewStatsCmd = &cobra.Command{
	Use:   "review-stats",
	Short: "Report how long patch sets wait for their first review",
	Long: `Report, for every Gerrit patch set posted in the last --since-days days,
how many days passed before someone other than its owner reviewed it.

Each point is smoothed with a centred exponentially weighted average and a
one standard deviation interval (stats.alpha in config sets the smoothing
factor in days).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewStatsRun(cmd.Context(), time.Now().UTC())
	},
}

func init() {
	reviewStatsCmd.Flags().IntVar(&statsSinceDays, "since-days", 365, "Only include patch sets posted in the last N days")
	reviewStatsCmd.Flags().IntVar(&statsLimit, "limit", 500, "Maximum number of changes to fetch")
	reviewStatsCmd.Flags().StringVar(&statsFormat, "format", "table", "Output format: table, json")
	reviewStatsCmd.Flags().StringVar(&statsQuery, "query", "", "Gerrit change query (default: project:<gerrit.project>)")
	rootCmd.AddCommand(reviewStatsCmd)
}

type statsRow struct {
	Posted     time.Time `json:"posted"`
	Days       float64   `json:"days_to_first_review"`
	Label      string    `json:"label"`
	Mean       *float64  `json:"mean,omitempty"`
	UpperBound *float64  `json:"upper,omitempty"`
	LowerBound *float64  `json:"lower,omitempty"`
}

func reviewStatsRun(ctx context.Context, now time.Time) error {
	if statsFormat != "table" && statsFormat != "json" {
		return fmt.Errorf("unknown format: %s (use: table, json)", statsFormat)
	}
	query := statsQuery
	if query == "" {
		query = "project:" + viper.GetString("gerrit.project")
	}

	ui.Info("Retrieving changes from Gerrit (%s)", query)
	changes, err := newChanges().Changes(ctx, query, statsLimit)
	if err != nil {
		return err
	}
	ui.Info("  Retrieved %d changes", len(changes))

	since := now.AddDate(0, 0, -statsSinceDays)
	samples := stats.FirstReviews(changes, since, viper.GetStringSlice("gerrit.non_human_reviewers"))
	points := stats.Smooth(samples, viper.GetFloat64("stats.alpha"))

	rows := make([]statsRow, len(points))
	for i, p := range points {
		rows[i] = statsRow{Posted: p.Time, Days: p.Value, Label: p.Label}
		if p.Smoothed {
			mean, upper, lower := p.Mean, p.Upper, p.Lower
			rows[i].Mean, rows[i].UpperBound, rows[i].LowerBound = &mean, &upper, &lower
		}
	}

	if statsFormat == "json" {
		enc := json.NewEncoder(ui.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		ui.Info("No reviewed patch sets since %s", since.Format("2006-01-02"))
		return nil
	}
	table := ui.Table([]string{"Posted", "Days", "Average", "Interval", "Patch set"})
	for _, r := range rows {
		avg, interval := "", ""
		if r.Mean != nil {
			avg = fmt.Sprintf("%.2f", *r.Mean)
			interval = fmt.Sprintf("%.2f - %.2f", *r.LowerBound, *r.UpperBound)
		}
		_ = table.Append([]string{
			r.Posted.Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", r.Days),
			avg,
			interval,
			r.Label,
		})
	}
	return table.Render()
}
