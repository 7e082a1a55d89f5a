// internal/engine/admission/arbiter_test.go
package admission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/common/logger"
	"admission-engine/internal/models"
	"admission-engine/internal/store"
	"admission-engine/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestArbiter(t *testing.T) (*Arbiter, store.Stores) {
	stores := memory.New().Stores()
	return NewArbiter(stores.Applications, logger.NewTestLogger(t)), stores
}

func seedApplication(t *testing.T, stores store.Stores, id, applicantID, orgID string, state models.ApplicationState) {
	t.Helper()
	now := time.Now().UTC()
	err := stores.Applications.WithApplicant(context.Background(), applicantID, func(tx store.ApplicationTx) error {
		return tx.Create(context.Background(), &models.Application{
			ID:               id,
			ApplicantID:      applicantID,
			PostingID:        "posting-" + id,
			PostingKind:      models.PostingKindCourse,
			PostingTitle:     "Course " + id,
			OrganizationID:   orgID,
			OrganizationName: "Org " + orgID,
			State:            state,
			SubmittedAt:      now,
			UpdatedAt:        now,
		})
	})
	require.NoError(t, err)
}

func admissionCode(t *testing.T, err error) commonerrors.ErrorCode {
	t.Helper()
	var ad *commonerrors.AdmissionError
	require.True(t, errors.As(err, &ad), "expected AdmissionError, got %v", err)
	return ad.Code
}

func TestTransition_ApproveRecordsReviewer(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StatePending)

	app, err := arbiter.Transition(context.Background(), "a1", models.StateApproved, "rev-1")
	require.NoError(t, err)

	assert.Equal(t, models.StateApproved, app.State)
	assert.Equal(t, "rev-1", app.ReviewerID)

	stored, err := stores.Applications.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, stored.State)
}

func TestTransition_UnknownApplication(t *testing.T) {
	arbiter, _ := newTestArbiter(t)

	_, err := arbiter.Transition(context.Background(), "missing", models.StateApproved, "rev-1")
	assert.Equal(t, commonerrors.ErrCodeApplicationNotFound, admissionCode(t, err))
}

func TestTransition_InvalidMoves(t *testing.T) {
	tests := []struct {
		name string
		from models.ApplicationState
		to   models.ApplicationState
	}{
		{"pending cannot jump to accepted", models.StatePending, models.StateAccepted},
		{"rejected is terminal", models.StateRejected, models.StateApproved},
		{"accepted is terminal", models.StateAccepted, models.StateRejected},
		{"approved cannot go back to pending", models.StateApproved, models.StatePending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arbiter, stores := newTestArbiter(t)
			seedApplication(t, stores, "a1", "alice", "org-1", tt.from)

			_, err := arbiter.Transition(context.Background(), "a1", tt.to, "rev-1")
			assert.Equal(t, commonerrors.ErrCodeInvalidTransition, admissionCode(t, err))
		})
	}
}

func TestTransition_SecondApprovalAtSameOrgBlocked(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StateApproved)
	seedApplication(t, stores, "a2", "alice", "org-1", models.StatePending)

	_, err := arbiter.Transition(context.Background(), "a2", models.StateApproved, "rev-1")
	assert.Equal(t, commonerrors.ErrCodeAlreadyAdmittedSameOrg, admissionCode(t, err))

	stored, err := stores.Applications.Get(context.Background(), "a2")
	require.NoError(t, err)
	assert.Equal(t, models.StatePending, stored.State)
}

func TestTransition_ApprovalAtDifferentOrgAllowed(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StateApproved)
	seedApplication(t, stores, "a2", "alice", "org-2", models.StatePending)

	app, err := arbiter.Transition(context.Background(), "a2", models.StateApproved, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, app.State)
}

func TestTransition_AcceptedElsewhereBlocksApproval(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StateAccepted)
	seedApplication(t, stores, "a2", "alice", "org-2", models.StatePending)

	_, err := arbiter.Transition(context.Background(), "a2", models.StateApproved, "rev-1")
	assert.Equal(t, commonerrors.ErrCodeAlreadyAcceptedElsewhere, admissionCode(t, err))
}

func TestTransition_ApprovedCanAccept(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StateApproved)

	app, err := arbiter.Transition(context.Background(), "a1", models.StateAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, models.StateAccepted, app.State)
}

func TestTransition_OtherApplicantsUnaffected(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StateApproved)
	seedApplication(t, stores, "b1", "bob", "org-1", models.StatePending)

	app, err := arbiter.Transition(context.Background(), "b1", models.StateApproved, "rev-1")
	require.NoError(t, err)
	assert.Equal(t, models.StateApproved, app.State)
}

func TestTransition_ConcurrentApprovalsSameOrgOneWins(t *testing.T) {
	arbiter, stores := newTestArbiter(t)
	seedApplication(t, stores, "a1", "alice", "org-1", models.StatePending)
	seedApplication(t, stores, "a2", "alice", "org-1", models.StatePending)

	var wg sync.WaitGroup
	errCh := make(chan error, 2)
	for _, id := range []string{"a1", "a2"} {
		wg.Add(1)
		go func(appID string) {
			defer wg.Done()
			_, err := arbiter.Transition(context.Background(), appID, models.StateApproved, "rev-1")
			errCh <- err
		}(id)
	}
	wg.Wait()
	close(errCh)

	var ok, conflict int
	for err := range errCh {
		if err == nil {
			ok++
			continue
		}
		if admissionCode(t, err) == commonerrors.ErrCodeAlreadyAdmittedSameOrg {
			conflict++
		}
	}

	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflict)
}
