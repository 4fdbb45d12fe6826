package gerrit

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
	"time"
)

// xssiPrefix is prepended by Gerrit to every JSON response body.
const xssiPrefix = ")]}'"

const timestampLayout = "2006-01-02 15:04:05"

// Timestamp is a Gerrit REST timestamp such as "2015-09-08 04:39:30.493000000",
// always in UTC.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if len(s) < len(timestampLayout) {
		return fmt.Errorf("invalid gerrit timestamp %q", s)
	}
	parsed, err := time.ParseInLocation(timestampLayout, s[:len(timestampLayout)], time.UTC)
	if err != nil {
		return fmt.Errorf("invalid gerrit timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

// Account identifies a Gerrit user.
type Account struct {
	ID       int    `json:"_account_id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Revision is one patch set of a change.
type Revision struct {
	Number  int       `json:"_number"`
	Created Timestamp `json:"created"`
}

// Message is a review message posted on a change.
type Message struct {
	Author         *Account  `json:"author"`
	Date           Timestamp `json:"date"`
	RevisionNumber int       `json:"_revision_number"`
}

// Change is a change as returned by the REST /changes/ endpoint with the
// ALL_REVISIONS, MESSAGES and DETAILED_ACCOUNTS options.
type Change struct {
	Number    int                 `json:"_number"`
	Project   string              `json:"project"`
	Status    string              `json:"status"`
	Owner     Account             `json:"owner"`
	Revisions map[string]Revision `json:"revisions"`
	Messages  []Message           `json:"messages"`
}

// RESTClient reads changes from the Gerrit REST API.
type RESTClient struct {
	baseURL string
	http    *http.Client
}

// NewRESTClient returns a RESTClient for the Gerrit web UI at baseURL.
func NewRESTClient(baseURL string, hc *http.Client) *RESTClient {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &RESTClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Changes returns up to limit changes matching query, with every revision,
// every message and detailed account information.
func (c *RESTClient) Changes(ctx context.Context, query string, limit int) ([]Change, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Add("o", "ALL_REVISIONS")
	params.Add("o", "MESSAGES")
	params.Add("o", "DETAILED_ACCOUNTS")
	if limit > 0 {
		params.Set("n", strconv.Itoa(limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/changes/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gerrit changes: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gerrit response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gerrit changes: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return ParseChanges(body)
}

// ParseChanges decodes a /changes/ response body.
func ParseChanges(body []byte) ([]Change, error) {
	body = bytes.TrimPrefix(bytes.TrimSpace(body), []byte(xssiPrefix))
	var changes []Change
	if err := json.Unmarshal(body, &changes); err != nil {
		return nil, fmt.Errorf("parse gerrit changes: %w", err)
	}
	return changes, nil
}
