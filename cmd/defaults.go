package cmd

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/beaker-project/beaker-administrivia/internal/bugzilla"
	"github.com/beaker-project/beaker-administrivia/internal/gerrit"
	"github.com/beaker-project/beaker-administrivia/internal/milestone"
	"github.com/beaker-project/beaker-administrivia/internal/stats"
)

// envKeyReplacer maps bugzilla.api_key to CHECKBUGS_BUGZILLA_API_KEY.
var envKeyReplacer = strings.NewReplacer(".", "_")

// defaultAbandonedBranches are long-lived feature branches which were
// abandoned, rebased or cherry-picked rather than merged into HEAD.
var defaultAbandonedBranches = []string{
	"results-reporting-improvements",
	"results-reporting-improvements-take2",
}

func setDefaults() {
	viper.SetDefault("bugzilla.url", bugzilla.DefaultURL)
	viper.SetDefault("bugzilla.product", bugzilla.DefaultProduct)
	viper.SetDefault("bugzilla.user", "")
	viper.SetDefault("bugzilla.api_key", "")
	viper.SetDefault("gerrit.host", gerrit.DefaultHost)
	viper.SetDefault("gerrit.ssh_port", gerrit.DefaultSSHPort)
	viper.SetDefault("gerrit.url", gerrit.DefaultURL)
	viper.SetDefault("gerrit.project", gerrit.DefaultProject)
	viper.SetDefault("gerrit.non_human_reviewers", []string{"jenkins"})
	viper.SetDefault("git.remote", "origin")
	viper.SetDefault("git.upstream_ref", "origin/master")
	viper.SetDefault("git.tag_prefix", milestone.DefaultTagPrefix)
	viper.SetDefault("git.maintenance_prefix", milestone.DefaultMaintenancePrefix)
	viper.SetDefault("check.abandoned_branches", defaultAbandonedBranches)
	viper.SetDefault("stats.alpha", stats.DefaultAlpha)
}

func milestoneRules() milestone.Rules {
	return milestone.Rules{
		MaintenancePrefix: viper.GetString("git.maintenance_prefix"),
		TagPrefix:         viper.GetString("git.tag_prefix"),
	}
}
