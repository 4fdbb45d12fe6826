package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beaker-project/beaker-administrivia/internal/gerrit"
)

func ts(tm time.Time) gerrit.Timestamp { return gerrit.Timestamp{Time: tm} }

func TestFirstReviews(t *testing.T) {
	owner := gerrit.Account{ID: 1, Username: "amy"}
	reviewer := &gerrit.Account{ID: 2, Username: "bob"}
	bot := &gerrit.Account{ID: 3, Username: "jenkins"}
	posted := epoch.AddDate(0, 1, 0)

	changes := []gerrit.Change{{
		Number: 100,
		Owner:  owner,
		Revisions: map[string]gerrit.Revision{
			"aaa": {Number: 1, Created: ts(posted)},
			"bbb": {Number: 2, Created: ts(posted.AddDate(0, 0, 5))},
			"old": {Number: 3, Created: ts(epoch.AddDate(-2, 0, 0))},
		},
		Messages: []gerrit.Message{
			{Author: bot, Date: ts(posted.Add(time.Hour)), RevisionNumber: 1},
			{Author: &owner, Date: ts(posted.Add(2 * time.Hour)), RevisionNumber: 1},
			{Author: reviewer, Date: ts(posted.Add(48 * time.Hour)), RevisionNumber: 1},
			{Author: reviewer, Date: ts(posted.Add(12 * time.Hour)), RevisionNumber: 1},
			{Author: nil, Date: ts(posted.Add(time.Hour)), RevisionNumber: 2},
			{Author: reviewer, Date: ts(epoch.AddDate(-2, 0, 1)), RevisionNumber: 3},
		},
	}}

	samples := FirstReviews(changes, epoch, []string{"jenkins"})
	require.Len(t, samples, 1)
	assert.Equal(t, posted, samples[0].Time)
	assert.InDelta(t, 0.5, samples[0].Value, 1e-9)
	assert.Equal(t, "Gerrit change 100 patch 1", samples[0].Label)
}

func TestFirstReviews_BotsCountWhenNotExcluded(t *testing.T) {
	posted := epoch
	changes := []gerrit.Change{{
		Number:    7,
		Owner:     gerrit.Account{ID: 1},
		Revisions: map[string]gerrit.Revision{"x": {Number: 1, Created: ts(posted)}},
		Messages: []gerrit.Message{
			{Author: &gerrit.Account{ID: 3, Username: "jenkins"}, Date: ts(posted.Add(24 * time.Hour)), RevisionNumber: 1},
		},
	}}
	samples := FirstReviews(changes, epoch, nil)
	require.Len(t, samples, 1)
	assert.InDelta(t, 1.0, samples[0].Value, 1e-9)
}
