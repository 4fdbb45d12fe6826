package git

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrCloneBehind is returned when the local clone is behind its upstream.
// Checking commit reachability against a stale clone would report commits
// as lost when they simply have not been pulled yet.
var ErrCloneBehind = errors.New("git clone is not up to date with its upstream (pull and try again)")

// Inspector answers the questions the checker asks about one checkout.
type Inspector struct {
	client   Client
	path     string
	remote   string
	upstream string
}

// NewInspector returns an Inspector for the checkout at path. remote names
// the remote whose branches identify the current branch (usually "origin");
// upstream is the ref that marks the last known-good point for commit
// trailer scans (usually "origin/master").
func NewInspector(client Client, path, remote, upstream string) *Inspector {
	return &Inspector{client: client, path: path, remote: remote, upstream: upstream}
}

// Resolve points the inspector at the top level of the checkout containing
// its path. It fails when the path is not inside a git checkout.
func (in *Inspector) Resolve(ctx context.Context) error {
	root, err := in.client.RepoRoot(ctx, in.path)
	if err != nil {
		return fmt.Errorf("%s is not a git checkout: %w", in.path, err)
	}
	in.path = root
	return nil
}

// RevSet is the set of commits reachable from HEAD.
type RevSet struct {
	commits map[string]struct{}
}

// NewRevSet builds a RevSet from a list of commit SHAs.
func NewRevSet(shas []string) *RevSet {
	s := &RevSet{commits: make(map[string]struct{}, len(shas))}
	for _, sha := range shas {
		s.commits[strings.ToLower(sha)] = struct{}{}
	}
	return s
}

// Contains reports whether sha is reachable from HEAD.
func (s *RevSet) Contains(sha string) bool {
	_, ok := s.commits[strings.ToLower(sha)]
	return ok
}

// BuildRevSet materializes the commits reachable from HEAD. It refuses to
// run against a clone that git status reports as behind its upstream.
func (in *Inspector) BuildRevSet(ctx context.Context) (*RevSet, error) {
	status, err := in.client.Status(ctx, in.path)
	if err != nil {
		return nil, err
	}
	if strings.Contains(status, "branch is behind") {
		return nil, ErrCloneBehind
	}
	shas, err := in.client.RevList(ctx, in.path, "HEAD")
	if err != nil {
		return nil, err
	}
	return NewRevSet(shas), nil
}

// BugReferences returns the bug IDs named in "Bug:" trailers of the commits
// between the upstream ref and HEAD.
func (in *Inspector) BugReferences(ctx context.Context) ([]int, error) {
	messages, err := in.client.LogMessages(ctx, in.path, in.upstream+"..HEAD")
	if err != nil {
		return nil, err
	}
	return ParseBugReferences(messages), nil
}

// CurrentBranch returns the name of the remote branch HEAD lies on, without
// the remote prefix. Depending on the git version name-rev prints either
// "remotes/origin/release-22" or "origin/release-22", possibly followed by
// an ancestry suffix such as "~3".
func (in *Inspector) CurrentBranch(ctx context.Context) (string, error) {
	name, err := in.client.NameRev(ctx, in.path, fmt.Sprintf("refs/remotes/%s/*", in.remote))
	if err != nil {
		return "", err
	}
	return branchFromNameRev(name), nil
}

// LatestTag returns the most recent tag reachable from HEAD matching prefix.
func (in *Inspector) LatestTag(ctx context.Context, prefix string) (string, error) {
	match := ""
	if prefix != "" {
		match = prefix + "*"
	}
	return in.client.LatestTag(ctx, in.path, match)
}

func branchFromNameRev(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, "~^"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}

var bugTrailerPattern = regexp.MustCompile(`(?i)Bug:.*?(\d+)`)

// ParseBugReferences extracts bug IDs from "Bug:" lines in commit messages,
// in order of first appearance and without repeats.
func ParseBugReferences(messages string) []int {
	var ids []int
	seen := make(map[int]bool)
	for _, line := range strings.Split(messages, "\n") {
		m := bugTrailerPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}
