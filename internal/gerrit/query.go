// Package gerrit reads code review state from a Gerrit server, either
// through the ssh query interface or the REST API.
package gerrit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/beaker-project/beaker-administrivia/internal/models"
)

// Defaults for the Beaker Gerrit instance.
const (
	DefaultHost    = "gerrit.beaker-project.org"
	DefaultSSHPort = 29418
	DefaultURL     = "https://gerrit.beaker-project.org"
	DefaultProject = "beaker"
)

// trackingSystem is the tracking-id system name Gerrit assigns to bug links.
const trackingSystem = "Bugzilla"

// CommandFunc runs an external command and returns its stdout.
type CommandFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client queries Gerrit over ssh.
type Client struct {
	host string
	port int
	run  CommandFunc
}

// NewClient returns a Client for the Gerrit ssh daemon at host:port.
func NewClient(host string, port int) *Client {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultSSHPort
	}
	return &Client{host: host, port: port, run: execCommand}
}

// WithCommand replaces the function used to run ssh.
func (c *Client) WithCommand(run CommandFunc) *Client {
	c.run = run
	return c
}

func execCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %s: %w (stderr: %s)",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// Reviews returns the current patch set of every change tracked against any
// of the given bugs. No query is issued for an empty id list. Results beyond
// the server's per-query limit are fetched with further --start queries.
func (c *Client) Reviews(ctx context.Context, bugIDs []int) ([]*models.Review, error) {
	if len(bugIDs) == 0 {
		return nil, nil
	}
	terms := make([]string, len(bugIDs))
	for i, id := range bugIDs {
		terms[i] = fmt.Sprintf("bug:%d", id)
	}
	query := strings.Join(terms, " OR ")

	var reviews []*models.Review
	for {
		args := []string{
			"-o", "StrictHostKeyChecking=no",
			"-p", strconv.Itoa(c.port), c.host,
			"gerrit", "query", "--format=json", "--current-patch-set",
		}
		if len(reviews) > 0 {
			args = append(args, "--start", strconv.Itoa(len(reviews)))
		}
		out, err := c.run(ctx, "ssh", append(args, query)...)
		if err != nil {
			return nil, fmt.Errorf("gerrit query: %w", err)
		}
		page, more, err := ParseQueryOutput(out)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, page...)
		if !more {
			return reviews, nil
		}
		if len(page) == 0 {
			return nil, fmt.Errorf("gerrit query: server reported more changes but returned none")
		}
	}
}

// flexInt accepts both 1234 and "1234"; older Gerrit versions quote numbers.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = flexInt(v)
	return nil
}

type account struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type trackingID struct {
	System string `json:"system"`
	ID     string `json:"id"`
}

type approval struct {
	Type  string  `json:"type"`
	Value flexInt `json:"value"`
}

type patchSet struct {
	Revision  string     `json:"revision"`
	Approvals []approval `json:"approvals"`
}

type queryRecord struct {
	Type            string       `json:"type"`
	Message         string       `json:"message"`
	MoreChanges     bool         `json:"moreChanges"`
	Project         string       `json:"project"`
	Branch          string       `json:"branch"`
	Number          flexInt      `json:"number"`
	URL             string       `json:"url"`
	Status          string       `json:"status"`
	Owner           account      `json:"owner"`
	TrackingIDs     []trackingID `json:"trackingIds"`
	CurrentPatchSet patchSet     `json:"currentPatchSet"`
}

// ParseQueryOutput parses the JSON-lines output of `gerrit query
// --format=json`. more reports whether the trailing stats record says the
// server stopped at its result limit. An error record, which gerrit writes
// for a bad query while still exiting 0, is returned as an error.
func ParseQueryOutput(out []byte) (reviews []*models.Review, more bool, err error) {
	for i, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var rec queryRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, false, fmt.Errorf("parse gerrit query line %d: %w", i+1, err)
		}
		switch rec.Type {
		case "error":
			return nil, false, fmt.Errorf("gerrit query: %s", rec.Message)
		case "stats":
			more = rec.MoreChanges
			continue
		}
		reviews = append(reviews, rec.toReview())
	}
	return reviews, more, nil
}

func (rec *queryRecord) toReview() *models.Review {
	r := &models.Review{
		Number:   int(rec.Number),
		URL:      rec.URL,
		Project:  rec.Project,
		Branch:   rec.Branch,
		Status:   models.ReviewStatus(rec.Status),
		Owner:    rec.Owner.Username,
		Revision: rec.CurrentPatchSet.Revision,
	}
	if r.Owner == "" {
		r.Owner = rec.Owner.Email
	}
	verified, reviewed := false, false
	for _, a := range rec.CurrentPatchSet.Approvals {
		v := int(a.Value)
		switch a.Type {
		case "Verified":
			if !verified || v > r.Verified {
				r.Verified = v
			}
			verified = true
		case "Code-Review":
			if !reviewed || v > r.CodeReview {
				r.CodeReview = v
			}
			reviewed = true
		}
	}
	for _, t := range rec.TrackingIDs {
		if t.System != trackingSystem {
			continue
		}
		if id, err := strconv.Atoi(t.ID); err == nil {
			r.BugIDs = append(r.BugIDs, id)
		}
	}
	return r
}
