package cmd

import (
	"context"

	"github.com/spf13/viper"

	"github.com/beaker-project/beaker-administrivia/internal/bugzilla"
	"github.com/beaker-project/beaker-administrivia/internal/check"
	"github.com/beaker-project/beaker-administrivia/internal/gerrit"
	"github.com/beaker-project/beaker-administrivia/internal/git"
)

// tracker is the Bugzilla surface the commands use.
type tracker interface {
	check.IssueTracker
	SetTargetMilestone(ctx context.Context, id int, milestone string, minor bool) error
	SetResolution(ctx context.Context, id int, resolution string, minor bool) error
}

// repository is the git surface the commands use.
type repository interface {
	check.Repository
	CurrentBranch(ctx context.Context) (string, error)
	LatestTag(ctx context.Context, prefix string) (string, error)
}

// Service constructors, replaceable in tests.
var (
	newTracker    = defaultTracker
	newReviews    = defaultReviews
	newRepository = defaultRepository
	newChanges    = defaultChanges
)

func defaultTracker() tracker {
	return bugzilla.NewClient(bugzilla.Config{
		URL:     viper.GetString("bugzilla.url"),
		Product: viper.GetString("bugzilla.product"),
		User:    viper.GetString("bugzilla.user"),
		APIKey:  viper.GetString("bugzilla.api_key"),
	})
}

func defaultReviews() check.ReviewSource {
	return gerrit.NewClient(viper.GetString("gerrit.host"), viper.GetInt("gerrit.ssh_port"))
}

func defaultChanges() changeSource {
	return gerrit.NewRESTClient(viper.GetString("gerrit.url"), nil)
}

func defaultRepository(ctx context.Context) (repository, error) {
	in := git.NewInspector(git.NewClient(), repoDir,
		viper.GetString("git.remote"), viper.GetString("git.upstream_ref"))
	if err := in.Resolve(ctx); err != nil {
		return nil, err
	}
	return gitRepository{in}, nil
}

// gitRepository adapts git.Inspector to check.Repository.
type gitRepository struct {
	*git.Inspector
}

func (r gitRepository) Reachable(ctx context.Context) (check.CommitSet, error) {
	revs, err := r.BuildRevSet(ctx)
	if err != nil {
		return nil, err
	}
	return revs, nil
}
