package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/beaker-project/beaker-administrivia/internal/gerrit"
)

// FirstReviews returns, for every patch set posted at or after since, the
// number of days until someone other than the change owner commented on it.
// Comments by accounts listed in nonHuman are ignored, as are patch sets
// nobody has reviewed yet.
func FirstReviews(changes []gerrit.Change, since time.Time, nonHuman []string) []Sample {
	bots := make(map[string]bool, len(nonHuman))
	for _, name := range nonHuman {
		bots[name] = true
	}

	var samples []Sample
	for _, change := range changes {
		for _, rev := range change.Revisions {
			posted := rev.Created.Time
			if posted.Before(since) {
				continue
			}
			var first time.Time
			for _, msg := range change.Messages {
				if msg.RevisionNumber != rev.Number || msg.Author == nil {
					continue
				}
				if msg.Author.ID == change.Owner.ID || bots[msg.Author.Username] {
					continue
				}
				if first.IsZero() || msg.Date.Time.Before(first) {
					first = msg.Date.Time
				}
			}
			if first.IsZero() {
				continue
			}
			samples = append(samples, Sample{
				Time:  posted,
				Value: first.Sub(posted).Hours() / 24,
				Label: fmt.Sprintf("Gerrit change %d patch %d", change.Number, rev.Number),
			})
		}
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples
}
