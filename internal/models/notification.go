// internal/models/notification.go
package models

import "time"

type NotificationPriority string

const (
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
)

// Notification records that a candidate was told about a matching posting.
// Its ID is derived deterministically from (candidate, posting), so re-running
// a fanout can never notify the same pair twice.
type Notification struct {
	ID          string               `json:"id"`
	CandidateID string               `json:"candidateId"`
	PostingID   string               `json:"postingId"`
	Score       int                  `json:"score"`
	Priority    NotificationPriority `json:"priority"`
	Subject     string               `json:"subject"`
	Body        string               `json:"body"`
	CreatedAt   time.Time            `json:"createdAt"`
}
