// internal/store/store.go
// Package store defines the persistence capability interfaces of the engine.
// Two implementations exist: postgres (durable) and memory (dev/test). The
// backend is selected once at process start and never mixed at runtime.
package store

import (
	"context"
	"errors"

	"admission-engine/internal/models"
)

// ErrNotFound is the low-level miss sentinel shared by all backends.
var ErrNotFound = errors.New("record not found")

// ProfileStore serves immutable candidate snapshots.
type ProfileStore interface {
	Get(ctx context.Context, candidateID string) (*models.CandidateProfile, error)
}

// PostingStore serves course and job postings.
type PostingStore interface {
	Get(ctx context.Context, postingID string) (*models.Posting, error)
	ListOpen(ctx context.Context) ([]models.Posting, error)
	Create(ctx context.Context, p *models.Posting) error
}

// ApplicationReader is the query surface shared by the plain store and the
// transactional view.
type ApplicationReader interface {
	Get(ctx context.Context, id string) (*models.Application, error)
	FindByApplicantAndPosting(ctx context.Context, applicantID, postingID string) (*models.Application, error)
	CountPendingOrApproved(ctx context.Context, applicantID, orgID string) (int, error)
	FindApproved(ctx context.Context, applicantID, orgID string) ([]models.Application, error)
	FindAccepted(ctx context.Context, applicantID string) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error)
}

// ApplicationTx is the view handed to a serialized unit of work.
type ApplicationTx interface {
	ApplicationReader
	Create(ctx context.Context, a *models.Application) error
	UpdateState(ctx context.Context, id string, state models.ApplicationState, reviewerID string) error
}

// ApplicationStore persists applications. WithApplicant runs fn as a single
// serializable unit keyed on the applicant: no concurrent caller touching the
// same applicant can interleave between fn's reads and writes.
type ApplicationStore interface {
	ApplicationReader
	WithApplicant(ctx context.Context, applicantID string, fn func(tx ApplicationTx) error) error
}

// CandidateStore enumerates the candidate population. The scan is finite and
// restartable; each fanout invocation gets a fresh pass.
type CandidateStore interface {
	ScanAll(ctx context.Context, fn func(*models.CandidateProfile) error) error
}

// NotificationStore persists fanout notifications. CreateIfAbsent reports
// whether the row was created; an existing key is not an error, it is how
// re-runs stay idempotent.
type NotificationStore interface {
	CreateIfAbsent(ctx context.Context, n *models.Notification) (bool, error)
	CountForPosting(ctx context.Context, postingID string) (int, error)
}

// Stores bundles every capability for wiring.
type Stores struct {
	Profiles      ProfileStore
	Postings      PostingStore
	Applications  ApplicationStore
	Candidates    CandidateStore
	Notifications NotificationStore
}
