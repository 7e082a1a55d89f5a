// internal/engine/eligibility/gate.go
// Package eligibility validates a proposed application against the
// structural constraints before it enters the system of record.
package eligibility

import (
	"context"
	"errors"
	"time"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/common/logger"
	"admission-engine/internal/common/metrics"
	"admission-engine/internal/models"
	"admission-engine/internal/store"

	"github.com/google/uuid"
)

// OrgQuota caps pending-or-approved course applications per applicant per
// organization.
const OrgQuota = 2

type Gate struct {
	postings     store.PostingStore
	applications store.ApplicationStore
	logger       logger.Logger
}

func NewGate(postings store.PostingStore, applications store.ApplicationStore, log logger.Logger) *Gate {
	return &Gate{
		postings:     postings,
		applications: applications,
		logger:       log.WithFields(map[string]interface{}{"component": "eligibility-gate"}),
	}
}

// Submit runs the eligibility checks in order and, when all pass, persists
// the new application in the same serialized unit. The check order defines
// which failure the caller sees; the first failing check wins.
func (g *Gate) Submit(ctx context.Context, applicantID, postingID string) (*models.Application, error) {
	posting, err := g.postings.Get(ctx, postingID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return g.reject(applicantID, commonerrors.NewPostingNotFoundError(postingID))
		}
		return nil, err
	}
	if posting.State != models.PostingOpen {
		return g.reject(applicantID, commonerrors.NewPostingNotFoundError(postingID))
	}

	var created *models.Application
	err = g.applications.WithApplicant(ctx, applicantID, func(tx store.ApplicationTx) error {
		if _, err := tx.FindByApplicantAndPosting(ctx, applicantID, postingID); err == nil {
			return commonerrors.NewDuplicateApplicationError(applicantID, postingID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if posting.IsCourse() {
			count, err := tx.CountPendingOrApproved(ctx, applicantID, posting.OrganizationID)
			if err != nil {
				return err
			}
			if count >= OrgQuota {
				return commonerrors.NewQuotaExceededError(count, posting.OrganizationName)
			}

			if posting.Seats <= 0 {
				return commonerrors.NewNoCapacityError(postingID)
			}
		}

		now := time.Now().UTC()
		if now.After(posting.Deadline) {
			return commonerrors.NewDeadlinePassedError(postingID, posting.Deadline)
		}

		created = &models.Application{
			ID:               uuid.New().String(),
			ApplicantID:      applicantID,
			PostingID:        posting.ID,
			PostingKind:      posting.Kind,
			PostingTitle:     posting.Title,
			OrganizationID:   posting.OrganizationID,
			OrganizationName: posting.OrganizationName,
			State:            models.StatePending,
			SubmittedAt:      now,
			UpdatedAt:        now,
		}
		return tx.Create(ctx, created)
	})
	if err != nil {
		var el *commonerrors.EligibilityError
		if errors.As(err, &el) {
			return g.reject(applicantID, el)
		}
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues("created").Inc()
	g.logger.Info("application created", map[string]interface{}{
		"applicationId": created.ID,
		"applicantId":   applicantID,
		"postingId":     postingID,
	})
	return created, nil
}

func (g *Gate) reject(applicantID string, el *commonerrors.EligibilityError) (*models.Application, error) {
	metrics.SubmissionsTotal.WithLabelValues(string(el.Code)).Inc()
	g.logger.Info("submission rejected", map[string]interface{}{
		"applicantId": applicantID,
		"code":        el.Code,
	})
	return nil, el
}
