// Package bugzilla queries and updates Beaker bugs through the Bugzilla
// REST API.
package bugzilla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/beaker-project/beaker-administrivia/internal/models"
)

// Defaults for the Red Hat Bugzilla instance that tracks Beaker.
const (
	DefaultURL     = "https://bugzilla.redhat.com"
	DefaultProduct = "Beaker"
)

var includeFields = strings.Join([]string{
	"id", "summary", "status", "resolution", "assigned_to", "target_milestone", "whiteboard",
}, ",")

// Config holds connection settings for a Client.
type Config struct {
	URL        string
	Product    string
	User       string
	APIKey     string
	HTTPClient *http.Client
}

// Query filters a bug search. Empty fields are not filtered on. Multiple
// milestones or statuses match any of the given values.
type Query struct {
	Milestones []string
	Statuses   []models.Status
	Assignee   string
	IDs        []int
}

// Client talks to one Bugzilla instance on behalf of one user. Every bug it
// fetches is cached for the lifetime of the client so that single-bug lookups
// during a run do not repeat round trips.
type Client struct {
	baseURL string
	product string
	user    string
	apiKey  string
	http    *http.Client

	sessionChecked bool
	cache          map[int]*models.Issue
}

// NewClient returns a Client for cfg, filling in defaults for empty fields.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		product: cfg.Product,
		user:    cfg.User,
		apiKey:  cfg.APIKey,
		http:    cfg.HTTPClient,
		cache:   make(map[int]*models.Issue),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultURL
	}
	if c.product == "" {
		c.product = DefaultProduct
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	return c
}

// BugURL returns the web URL of bug id.
func (c *Client) BugURL(id int) string {
	return fmt.Sprintf("%s/show_bug.cgi?id=%d", c.baseURL, id)
}

type whoamiResponse struct {
	Name  string `json:"name"`
	Login string `json:"login"`
}

// CheckSession verifies that the configured credentials are usable. It runs
// once per client; later calls return immediately.
func (c *Client) CheckSession(ctx context.Context) error {
	if c.sessionChecked {
		return nil
	}
	if c.user == "" || c.apiKey == "" {
		return fmt.Errorf("%w: set bugzilla.user and bugzilla.api_key in the config file "+
			"(or CHECKBUGS_BUGZILLA_USER / CHECKBUGS_BUGZILLA_API_KEY)", ErrNoCredentials)
	}

	var who whoamiResponse
	if err := c.do(ctx, http.MethodGet, "/rest/whoami", nil, nil, &who); err != nil {
		if IsAuthError(err) {
			return fmt.Errorf("%w for %s: %v (generate a new API key in Bugzilla preferences)",
				ErrInvalidCredentials, c.user, err)
		}
		return fmt.Errorf("check bugzilla session: %w", err)
	}
	login := who.Login
	if login == "" {
		login = who.Name
	}
	if !strings.EqualFold(login, c.user) {
		return fmt.Errorf("%w: API key belongs to %q, not %q", ErrInvalidCredentials, login, c.user)
	}
	c.sessionChecked = true
	return nil
}

type bugRecord struct {
	ID              int    `json:"id"`
	Summary         string `json:"summary"`
	Status          string `json:"status"`
	Resolution      string `json:"resolution"`
	AssignedTo      string `json:"assigned_to"`
	TargetMilestone string `json:"target_milestone"`
	Whiteboard      string `json:"whiteboard"`
}

type searchResponse struct {
	Bugs []bugRecord `json:"bugs"`
}

// Issues returns the bugs matching q, sorted by status order, then
// assignee, then id.
func (c *Client) Issues(ctx context.Context, q Query) ([]*models.Issue, error) {
	if err := c.CheckSession(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("include_fields", includeFields)
	// Without a limit the server truncates searches at its default page size.
	params.Set("limit", "0")
	// Lookups by id follow the bug wherever it lives.
	if len(q.IDs) == 0 {
		params.Set("product", c.product)
	}
	for _, m := range q.Milestones {
		params.Add("target_milestone", m)
	}
	for _, s := range q.Statuses {
		params.Add("status", string(s))
	}
	if q.Assignee != "" {
		params.Set("assigned_to", q.Assignee)
	}
	for _, id := range q.IDs {
		params.Add("id", strconv.Itoa(id))
	}

	var resp searchResponse
	if err := c.do(ctx, http.MethodGet, "/rest/bug", params, nil, &resp); err != nil {
		return nil, fmt.Errorf("search bugs: %w", err)
	}

	issues := make([]*models.Issue, 0, len(resp.Bugs))
	for _, b := range resp.Bugs {
		issue := &models.Issue{
			ID:              b.ID,
			Summary:         b.Summary,
			Status:          models.Status(b.Status),
			Resolution:      b.Resolution,
			AssignedTo:      b.AssignedTo,
			TargetMilestone: b.TargetMilestone,
			Whiteboard:      b.Whiteboard,
			URL:             c.BugURL(b.ID),
		}
		c.cache[issue.ID] = issue
		issues = append(issues, issue)
	}
	models.SortIssues(issues)
	return issues, nil
}

// Issue returns a single bug, from the cache when it has been seen before.
func (c *Client) Issue(ctx context.Context, id int) (*models.Issue, error) {
	if issue, ok := c.cache[id]; ok {
		return issue, nil
	}
	issues, err := c.Issues(ctx, Query{IDs: []int{id}})
	if err != nil {
		return nil, err
	}
	for _, issue := range issues {
		if issue.ID == id {
			return issue, nil
		}
	}
	return nil, fmt.Errorf("no bug found with ID %d", id)
}

// SetTargetMilestone changes the target milestone of bug id. A minor update
// suppresses Bugzilla's change notification mail.
func (c *Client) SetTargetMilestone(ctx context.Context, id int, milestone string, minor bool) error {
	return c.update(ctx, id, map[string]any{"target_milestone": milestone}, minor)
}

// SetResolution changes the resolution of bug id.
func (c *Client) SetResolution(ctx context.Context, id int, resolution string, minor bool) error {
	return c.update(ctx, id, map[string]any{"resolution": resolution}, minor)
}

func (c *Client) update(ctx context.Context, id int, fields map[string]any, minor bool) error {
	if err := c.CheckSession(ctx); err != nil {
		return err
	}
	body := map[string]any{"ids": []int{id}}
	for k, v := range fields {
		body[k] = v
	}
	if minor {
		body["minor_update"] = true
	}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/rest/bug/%d", id), nil, body, nil); err != nil {
		return fmt.Errorf("update bug %d: %w", id, err)
	}
	delete(c.cache, id)
	return nil
}

type errorResponse struct {
	Error   bool   `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-BUGZILLA-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var apiErr errorResponse
	if len(data) > 0 && json.Unmarshal(data, &apiErr) == nil && apiErr.Error {
		return &APIError{StatusCode: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Message}
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
