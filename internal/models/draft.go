package models

import "time"

// Kind selects which of the two fixed newsletter formats a draft uses.
type Kind string

const (
	KindClinicalCase   Kind = "clinical_case"
	KindNewsCommentary Kind = "news_commentary"
)

// ApprovalState tracks a draft through its lifecycle. Pending is the only
// state that allows further transitions.
type ApprovalState string

const (
	StatePending  ApprovalState = "pending"
	StateApproved ApprovalState = "approved"
	StateRejected ApprovalState = "rejected"
)

// Terminal reports whether the state admits no further transition.
func (s ApprovalState) Terminal() bool {
	return s == StateApproved || s == StateRejected
}

// Draft is one newsletter instance awaiting or past operator approval.
type Draft struct {
	ID            string        `json:"id"`
	ReferenceDate time.Time     `json:"reference_date"`
	Topics        []string      `json:"topics"`
	Kind          Kind          `json:"kind"`
	Content       string        `json:"content"`
	ApprovalState ApprovalState `json:"approval_state"`
	IssueNumber   int           `json:"issue_number"`
}
