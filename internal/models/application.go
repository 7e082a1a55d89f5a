// internal/models/application.go
package models

import "time"

type ApplicationState string

const (
	StatePending    ApplicationState = "pending"
	StateApproved   ApplicationState = "approved"
	StateRejected   ApplicationState = "rejected"
	StateWaitlisted ApplicationState = "waitlisted"
	StateAccepted   ApplicationState = "accepted"
)

// CanTransition reports whether the lifecycle allows moving from s to next.
// pending fans out to the reviewer decisions; accepted is the applicant-side
// confirmation of an approval. Everything else is terminal.
func (s ApplicationState) CanTransition(next ApplicationState) bool {
	switch s {
	case StatePending:
		return next == StateApproved || next == StateRejected || next == StateWaitlisted
	case StateApproved:
		return next == StateAccepted
	default:
		return false
	}
}

// Application is a candidate's request against a posting. Posting title and
// organization name are denormalized onto the row so listing endpoints never
// need a join read.
type Application struct {
	ID               string           `json:"id"`
	ApplicantID      string           `json:"applicantId"`
	PostingID        string           `json:"postingId"`
	PostingKind      PostingKind      `json:"postingKind"`
	PostingTitle     string           `json:"postingTitle"`
	OrganizationID   string           `json:"organizationId"`
	OrganizationName string           `json:"organizationName"`
	State            ApplicationState `json:"state"`
	ReviewerID       string           `json:"reviewerId,omitempty"`
	SubmittedAt      time.Time        `json:"submittedAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}
