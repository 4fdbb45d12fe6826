package models

// ReviewStatus is the lifecycle state of a Gerrit change.
type ReviewStatus string

const (
	ReviewStatusNew       ReviewStatus = "NEW"
	ReviewStatusMerged    ReviewStatus = "MERGED"
	ReviewStatusAbandoned ReviewStatus = "ABANDONED"
)

// Review is the current patch set of a Gerrit change.
type Review struct {
	Number     int
	URL        string
	Project    string
	Branch     string
	Status     ReviewStatus
	Owner      string
	Revision   string // commit SHA of the current patch set
	Verified   int    // highest Verified score, 0 when unscored
	CodeReview int    // highest Code-Review score, 0 when unscored
	BugIDs     []int
}

// Abandoned reports whether the change was abandoned.
func (r *Review) Abandoned() bool { return r.Status == ReviewStatusAbandoned }

// Merged reports whether the change was merged.
func (r *Review) Merged() bool { return r.Status == ReviewStatusMerged }

// References reports whether the change is tracked against bug id.
func (r *Review) References(id int) bool {
	for _, b := range r.BugIDs {
		if b == id {
			return true
		}
	}
	return false
}
