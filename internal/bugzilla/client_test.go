package bugzilla

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaker-project/beaker-administrivia/internal/models"
)

type fakeBugzilla struct {
	user     string
	apiKey   string
	bugs     []bugRecord
	searches []map[string][]string
	updates  []map[string]any
}

func (f *fakeBugzilla) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("X-BUGZILLA-API-KEY") != f.apiKey {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(errorResponse{Error: true, Code: codeInvalidAPIKey, Message: "The API key you specified is invalid."})
			return false
		}
		return true
	}
	mux.HandleFunc("GET /rest/whoami", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "name": f.user, "login": f.user})
	})
	mux.HandleFunc("GET /rest/bug", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		q := r.URL.Query()
		f.searches = append(f.searches, q)
		var out []bugRecord
		for _, b := range f.bugs {
			if ids := q["id"]; len(ids) > 0 && !contains(ids, itoa(b.ID)) {
				continue
			}
			if ms := q["target_milestone"]; len(ms) > 0 && !contains(ms, b.TargetMilestone) {
				continue
			}
			if ss := q["status"]; len(ss) > 0 && !contains(ss, b.Status) {
				continue
			}
			out = append(out, b)
		}
		_ = json.NewEncoder(w).Encode(searchResponse{Bugs: out})
	})
	mux.HandleFunc("PUT /rest/bug/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		body["path_id"] = r.PathValue("id")
		f.updates = append(f.updates, body)
		_ = json.NewEncoder(w).Encode(map[string]any{"bugs": []any{}})
	})
	return mux
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func newTestClient(t *testing.T, f *fakeBugzilla, user, key string) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Config{URL: srv.URL + "/", User: user, APIKey: key, HTTPClient: srv.Client()})
}

func sampleBugs() []bugRecord {
	return []bugRecord{
		{ID: 30, Status: "MODIFIED", AssignedTo: "bob@redhat.com", TargetMilestone: "23.0"},
		{ID: 20, Status: "NEW", AssignedTo: "zed@redhat.com", TargetMilestone: "23.0"},
		{ID: 10, Status: "MODIFIED", AssignedTo: "amy@redhat.com", TargetMilestone: "23.0"},
		{ID: 11, Status: "MODIFIED", AssignedTo: "amy@redhat.com", TargetMilestone: "23.0", Whiteboard: "reverted"},
		{ID: 40, Status: "ON_QA", AssignedTo: "amy@redhat.com", TargetMilestone: "---"},
	}
}

func TestCheckSession_NoCredentials(t *testing.T) {
	c := NewClient(Config{URL: "http://127.0.0.1:1"})
	err := c.CheckSession(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
	assert.Contains(t, err.Error(), "bugzilla.api_key")
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestCheckSession_Rejected(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good"}
	c := newTestClient(t, f, "me@redhat.com", "bad")

	err := c.CheckSession(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrNoCredentials)

	_, err = c.Issues(context.Background(), Query{Milestones: []string{"23.0"}})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCheckSession_WrongUser(t *testing.T) {
	f := &fakeBugzilla{user: "someone-else@redhat.com", apiKey: "good"}
	c := newTestClient(t, f, "me@redhat.com", "good")

	err := c.CheckSession(context.Background())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "someone-else@redhat.com")
}

func TestIssues_SortedAndFiltered(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good", bugs: sampleBugs()}
	c := newTestClient(t, f, "me@redhat.com", "good")

	issues, err := c.Issues(context.Background(), Query{
		Milestones: []string{"23.0"},
		Statuses:   []models.Status{models.StatusNew, models.StatusModified},
	})
	require.NoError(t, err)

	var ids []int
	for _, i := range issues {
		ids = append(ids, i.ID)
	}
	assert.Equal(t, []int{20, 10, 11, 30}, ids)
	assert.Equal(t, models.StatusNew, issues[0].Status)
	assert.Contains(t, issues[0].URL, "show_bug.cgi?id=20")

	require.Len(t, f.searches, 1)
	assert.Equal(t, []string{"Beaker"}, f.searches[0]["product"])
	assert.Equal(t, []string{"NEW", "MODIFIED"}, f.searches[0]["status"])
}

func TestIssues_RequestsUnlimitedResults(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good", bugs: sampleBugs()}
	c := newTestClient(t, f, "me@redhat.com", "good")
	ctx := context.Background()

	_, err := c.Issues(ctx, Query{
		Milestones: []string{models.MilestoneUnset, models.MilestoneFuture},
		Statuses:   []models.Status{models.StatusOnQA},
	})
	require.NoError(t, err)
	_, err = c.Issue(ctx, 30)
	require.NoError(t, err)

	require.Len(t, f.searches, 2)
	for _, q := range f.searches {
		assert.Equal(t, []string{"0"}, q["limit"])
	}
}

func TestIssue_UsesCache(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good", bugs: sampleBugs()}
	c := newTestClient(t, f, "me@redhat.com", "good")
	ctx := context.Background()

	_, err := c.Issues(ctx, Query{Milestones: []string{"23.0"}})
	require.NoError(t, err)
	require.Len(t, f.searches, 1)

	issue, err := c.Issue(ctx, 11)
	require.NoError(t, err)
	assert.True(t, issue.Reverted())
	assert.Len(t, f.searches, 1, "cached bug should not be fetched again")

	issue, err = c.Issue(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, "---", issue.TargetMilestone)
	require.Len(t, f.searches, 2)
	assert.Empty(t, f.searches[1]["product"])

	_, err = c.Issue(ctx, 40)
	require.NoError(t, err)
	assert.Len(t, f.searches, 2)
}

func TestIssue_NotFound(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good"}
	c := newTestClient(t, f, "me@redhat.com", "good")

	_, err := c.Issue(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bug found with ID 999")
}

func TestSetTargetMilestone(t *testing.T) {
	f := &fakeBugzilla{user: "me@redhat.com", apiKey: "good", bugs: sampleBugs()}
	c := newTestClient(t, f, "me@redhat.com", "good")
	ctx := context.Background()

	require.NoError(t, c.SetTargetMilestone(ctx, 40, "23.0", true))
	require.Len(t, f.updates, 1)
	assert.Equal(t, "40", f.updates[0]["path_id"])
	assert.Equal(t, "23.0", f.updates[0]["target_milestone"])
	assert.Equal(t, true, f.updates[0]["minor_update"])

	require.NoError(t, c.SetResolution(ctx, 40, "DUPLICATE", false))
	require.Len(t, f.updates, 2)
	assert.Equal(t, "DUPLICATE", f.updates[1]["resolution"])
	_, hasMinor := f.updates[1]["minor_update"]
	assert.False(t, hasMinor)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rest/whoami" {
			_, _ = w.Write([]byte(`{"name":"me@redhat.com"}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, User: "me@redhat.com", APIKey: "k", HTTPClient: srv.Client()})
	_, err := c.Issues(context.Background(), Query{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, IsAuthError(err))
}
