package git

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Client defines the git operations the checker needs. All methods take the
// repository path so the caller decides which checkout is inspected.
type Client interface {
	RepoRoot(ctx context.Context, path string) (string, error)
	Status(ctx context.Context, path string) (string, error)
	RevList(ctx context.Context, path, rev string) ([]string, error)
	LogMessages(ctx context.Context, path, revRange string) (string, error)
	NameRev(ctx context.Context, path, refPattern string) (string, error)
	LatestTag(ctx context.Context, path, match string) (string, error)
}

// RealClient implements Client using real git commands.
type RealClient struct{}

// NewClient returns a new RealClient.
func NewClient() *RealClient {
	return &RealClient{}
}

func gitCmd(ctx context.Context, path string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", path}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	// Status output is matched against English text.
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *RealClient) RepoRoot(ctx context.Context, path string) (string, error) {
	return gitCmd(ctx, path, "rev-parse", "--show-toplevel")
}

func (c *RealClient) Status(ctx context.Context, path string) (string, error) {
	return gitCmd(ctx, path, "status")
}

func (c *RealClient) RevList(ctx context.Context, path, rev string) ([]string, error) {
	out, err := gitCmd(ctx, path, "rev-list", rev)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func (c *RealClient) LogMessages(ctx context.Context, path, revRange string) (string, error) {
	return gitCmd(ctx, path, "log", "--pretty=%B", revRange)
}

func (c *RealClient) NameRev(ctx context.Context, path, refPattern string) (string, error) {
	return gitCmd(ctx, path, "name-rev", "--refs="+refPattern, "--name-only", "HEAD")
}

func (c *RealClient) LatestTag(ctx context.Context, path, match string) (string, error) {
	args := []string{"describe", "--abbrev=0"}
	if match != "" {
		args = append(args, "--match", match)
	}
	return gitCmd(ctx, path, append(args, "HEAD")...)
}

func splitLines(out string) []string {
	if out == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
