// internal/engine/admission/arbiter.go
// Package admission enforces the application state machine and the
// single-admission invariant on approval.
package admission

import (
	"context"
	"errors"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/common/logger"
	"admission-engine/internal/common/metrics"
	"admission-engine/internal/models"
	"admission-engine/internal/store"
)

type Arbiter struct {
	applications store.ApplicationStore
	logger       logger.Logger
}

func NewArbiter(applications store.ApplicationStore, log logger.Logger) *Arbiter {
	return &Arbiter{
		applications: applications,
		logger:       log.WithFields(map[string]interface{}{"component": "admission-arbiter"}),
	}
}

// Transition moves an application to newState on behalf of reviewer. The
// approval path re-reads the applicant's other applications inside the same
// serialized unit that performs the write, so two concurrent approvals for
// one applicant cannot both pass the conflict checks.
func (a *Arbiter) Transition(ctx context.Context, applicationID string, newState models.ApplicationState, reviewerID string) (*models.Application, error) {
	var updated *models.Application

	// The applicant key is needed to serialize; read it first. The state is
	// re-checked inside the unit, so this read can be stale without harm.
	app, err := a.applications.Get(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return a.reject(newState, commonerrors.NewApplicationNotFoundError(applicationID))
		}
		return nil, err
	}

	err = a.applications.WithApplicant(ctx, app.ApplicantID, func(tx store.ApplicationTx) error {
		current, err := tx.Get(ctx, applicationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return commonerrors.NewApplicationNotFoundError(applicationID)
			}
			return err
		}

		if !current.State.CanTransition(newState) {
			return commonerrors.NewInvalidTransitionError(string(current.State), string(newState))
		}

		if newState == models.StateApproved {
			approved, err := tx.FindApproved(ctx, current.ApplicantID, current.OrganizationID)
			if err != nil {
				return err
			}
			for _, other := range approved {
				if other.ID != applicationID {
					return commonerrors.NewAlreadyAdmittedSameOrgError(current.ApplicantID, current.OrganizationName)
				}
			}

			accepted, err := tx.FindAccepted(ctx, current.ApplicantID)
			if err != nil {
				return err
			}
			if len(accepted) > 0 {
				return commonerrors.NewAlreadyAcceptedElsewhereError(current.ApplicantID)
			}
		}

		if err := tx.UpdateState(ctx, applicationID, newState, reviewerID); err != nil {
			return err
		}

		current.State = newState
		current.ReviewerID = reviewerID
		updated = current
		return nil
	})
	if err != nil {
		var ad *commonerrors.AdmissionError
		if errors.As(err, &ad) {
			return a.reject(newState, ad)
		}
		return nil, err
	}

	metrics.DecisionsTotal.WithLabelValues(string(newState), "ok").Inc()
	a.logger.Info("application transitioned", map[string]interface{}{
		"applicationId": applicationID,
		"state":         newState,
		"reviewerId":    reviewerID,
	})
	return updated, nil
}

func (a *Arbiter) reject(newState models.ApplicationState, ad *commonerrors.AdmissionError) (*models.Application, error) {
	metrics.DecisionsTotal.WithLabelValues(string(newState), string(ad.Code)).Inc()
	return nil, ad
}
