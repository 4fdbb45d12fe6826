package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beaker-project/beaker-administrivia/internal/output"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	quiet   bool
	dryRun  bool
	repoDir string
)

// errProblemsFound makes the process exit 1 without an error line; the
// problems themselves have already been printed.
var errProblemsFound = errors.New("problems found")

var rootCmd = &cobra.Command{
	Use:   "checkbugs",
	Short: "Report on the state of Beaker bugs for a release milestone",
	Long: `checkbugs cross-checks the Beaker bugs slated for a milestone against
their patch reviews in Gerrit and the history of the local git checkout.

Run it from a Beaker clone. Without --milestone the milestone is guessed from
the checked out branch and the latest release tag. Every inconsistency is
printed as a problem and the exit status is 1 if any were found.`,
	Args:              cobra.NoArgs,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errProblemsFound) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return checkRun(cmd.Context())
	}

	rootCmd.Flags().StringVarP(&checkMilestone, "milestone", "m", "", "Check bugs slated for MILESTONE (default: guess from current checkout)")
	rootCmd.Flags().StringArrayVarP(&checkInclude, "include", "i", nil, "Include bugs in the specified STATE (may be given multiple times)")

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only display problem reports")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo", ".", "Path to the Beaker git checkout")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/checkbugs/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".config", "checkbugs"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("CHECKBUGS")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Quiet = quiet
	ui.DryRun = dryRun
}
