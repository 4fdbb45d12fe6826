package models

// ProblemKind classifies a consistency finding.
type ProblemKind string

const (
	ProblemStatus            ProblemKind = "status"
	ProblemDuplicate         ProblemKind = "duplicate"
	ProblemUnreachableCommit ProblemKind = "unreachable-commit"
	ProblemCommitReference   ProblemKind = "commit-reference"
	ProblemMissingMilestone  ProblemKind = "missing-milestone"
)

// Problem is a single inconsistency found during a check run.
type Problem struct {
	IssueID int
	Kind    ProblemKind
	Message string
}
