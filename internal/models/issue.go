package models

import (
	"sort"
	"strings"
)

// Status is a Bugzilla bug status.
type Status string

const (
	StatusNew            Status = "NEW"
	StatusAssigned       Status = "ASSIGNED"
	StatusPost           Status = "POST"
	StatusModified       Status = "MODIFIED"
	StatusOnQA           Status = "ON_QA"
	StatusVerified       Status = "VERIFIED"
	StatusReleasePending Status = "RELEASE_PENDING"
	StatusClosed         Status = "CLOSED"
)

// statusOrder is the lifecycle order used for display sorting.
var statusOrder = []Status{
	StatusNew,
	StatusAssigned,
	StatusPost,
	StatusModified,
	StatusOnQA,
	StatusVerified,
	StatusReleasePending,
	StatusClosed,
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	return append([]Status(nil), statusOrder...)
}

// Rank returns the position of s in the lifecycle order. Unknown statuses
// rank after every known one.
func (s Status) Rank() int {
	for i, known := range statusOrder {
		if s == known {
			return i
		}
	}
	return len(statusOrder)
}

// Known reports whether s is one of the lifecycle statuses.
func (s Status) Known() bool {
	return s.Rank() < len(statusOrder)
}

// ParseStatus normalizes user input such as "on_qa" or "Modified".
func ParseStatus(s string) Status {
	return Status(strings.ToUpper(strings.TrimSpace(s)))
}

// Resolution values the checker cares about.
const (
	ResolutionDuplicate = "DUPLICATE"
)

// Milestone sentinels used by the Beaker product in Bugzilla.
const (
	MilestoneUnset  = "---"
	MilestoneFuture = "future_maint"
)

// Issue is a read-only snapshot of a Bugzilla bug.
type Issue struct {
	ID              int
	Summary         string
	Status          Status
	Resolution      string // only meaningful once Status is CLOSED
	AssignedTo      string
	TargetMilestone string
	Whiteboard      string
	URL             string
}

// Reverted reports whether the whiteboard marks the bug as reverted.
func (i *Issue) Reverted() bool {
	for _, word := range strings.Fields(strings.ToLower(i.Whiteboard)) {
		if strings.Trim(word, ",;:[]()") == "reverted" {
			return true
		}
	}
	return false
}

// SortIssues orders issues by status rank, then assignee, then id.
func SortIssues(issues []*Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		left, right := issues[a], issues[b]
		if lr, rr := left.Status.Rank(), right.Status.Rank(); lr != rr {
			return lr < rr
		}
		if left.Status != right.Status {
			return left.Status < right.Status
		}
		if left.AssignedTo != right.AssignedTo {
			return left.AssignedTo < right.AssignedTo
		}
		return left.ID < right.ID
	})
}
