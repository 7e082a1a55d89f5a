// internal/store/postgres/application.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/models"
	"admission-engine/internal/store"
)

type applicationStore struct {
	b *backend
}

const applicationColumns = `
	id, applicant_id, posting_id, posting_kind, posting_title,
	organization_id, organization_name, state, reviewer_id, submitted_at, updated_at`

func (a *applicationStore) Get(ctx context.Context, id string) (*models.Application, error) {
	return getApplication(ctx, a.b.db, id)
}

func (a *applicationStore) FindByApplicantAndPosting(ctx context.Context, applicantID, postingID string) (*models.Application, error) {
	return findByApplicantAndPosting(ctx, a.b.db, applicantID, postingID)
}

func (a *applicationStore) CountPendingOrApproved(ctx context.Context, applicantID, orgID string) (int, error) {
	return countPendingOrApproved(ctx, a.b.db, applicantID, orgID)
}

func (a *applicationStore) FindApproved(ctx context.Context, applicantID, orgID string) ([]models.Application, error) {
	return findApproved(ctx, a.b.db, applicantID, orgID)
}

func (a *applicationStore) FindAccepted(ctx context.Context, applicantID string) ([]models.Application, error) {
	return findAccepted(ctx, a.b.db, applicantID)
}

func (a *applicationStore) ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	return listByApplicant(ctx, a.b.db, applicantID)
}

// WithApplicant opens a transaction and takes a per-applicant advisory lock
// before running fn. The lock releases on commit or rollback, so every
// check-then-act sequence for one applicant is indivisible to concurrent
// callers for the same applicant.
func (a *applicationStore) WithApplicant(ctx context.Context, applicantID string, fn func(tx store.ApplicationTx) error) error {
	tx, err := a.b.db.BeginTx(ctx, nil)
	if err != nil {
		return commonerrors.NewStoreError("begin tx", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, applicantID); err != nil {
		tx.Rollback()
		return commonerrors.NewStoreError("applicant lock", err)
	}

	if err := fn(&txView{b: a.b, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return commonerrors.NewStoreError("commit tx", err)
	}
	return nil
}

// txView runs the same queries through the open transaction.
type txView struct {
	b  *backend
	tx *sql.Tx
}

func (t *txView) Get(ctx context.Context, id string) (*models.Application, error) {
	return getApplication(ctx, t.tx, id)
}

func (t *txView) FindByApplicantAndPosting(ctx context.Context, applicantID, postingID string) (*models.Application, error) {
	return findByApplicantAndPosting(ctx, t.tx, applicantID, postingID)
}

func (t *txView) CountPendingOrApproved(ctx context.Context, applicantID, orgID string) (int, error) {
	return countPendingOrApproved(ctx, t.tx, applicantID, orgID)
}

func (t *txView) FindApproved(ctx context.Context, applicantID, orgID string) ([]models.Application, error) {
	return findApproved(ctx, t.tx, applicantID, orgID)
}

func (t *txView) FindAccepted(ctx context.Context, applicantID string) ([]models.Application, error) {
	return findAccepted(ctx, t.tx, applicantID)
}

func (t *txView) ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	return listByApplicant(ctx, t.tx, applicantID)
}

func (t *txView) Create(ctx context.Context, app *models.Application) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		app.ID,
		app.ApplicantID,
		app.PostingID,
		app.PostingKind,
		app.PostingTitle,
		app.OrganizationID,
		app.OrganizationName,
		app.State,
		nullable(app.ReviewerID),
		app.SubmittedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return commonerrors.NewStoreError("application insert", err)
	}

	t.audit(ctx, "application_created", app.ID, map[string]interface{}{
		"applicantId":  app.ApplicantID,
		"postingId":    app.PostingID,
		"organization": app.OrganizationID,
	})
	return nil
}

func (t *txView) UpdateState(ctx context.Context, id string, state models.ApplicationState, reviewerID string) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE applications
		SET state = $2, reviewer_id = $3, updated_at = $4
		WHERE id = $1`,
		id, state, nullable(reviewerID), time.Now().UTC(),
	)
	if err != nil {
		return commonerrors.NewStoreError("application update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return commonerrors.NewStoreError("application update", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	t.audit(ctx, "application_state_changed", id, map[string]interface{}{
		"state":    string(state),
		"reviewer": reviewerID,
	})
	return nil
}

// audit rows are non-critical: failures are logged, never returned.
func (t *txView) audit(ctx context.Context, eventType, resourceID string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		eventType, "application", resourceID, detailsJSON, time.Now().UTC(),
	)
	if err != nil {
		t.b.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err,
			"resourceId": resourceID,
		})
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ==========================
// Shared query helpers
// ==========================

func getApplication(ctx context.Context, q querier, id string) (*models.Application, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, commonerrors.NewStoreError("application get", err)
	}
	return app, nil
}

func findByApplicantAndPosting(ctx context.Context, q querier, applicantID, postingID string) (*models.Application, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE applicant_id = $1 AND posting_id = $2`, applicantID, postingID)
	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, commonerrors.NewStoreError("application find", err)
	}
	return app, nil
}

func countPendingOrApproved(ctx context.Context, q querier, applicantID, orgID string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM applications
		WHERE applicant_id = $1 AND organization_id = $2
		  AND posting_kind = 'course'
		  AND state IN ('pending', 'approved')`, applicantID, orgID).Scan(&count)
	if err != nil {
		return 0, commonerrors.NewStoreError("application count", err)
	}
	return count, nil
}

func findApproved(ctx context.Context, q querier, applicantID, orgID string) ([]models.Application, error) {
	return queryApplications(ctx, q, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE applicant_id = $1 AND organization_id = $2 AND state = 'approved'`,
		applicantID, orgID)
}

func findAccepted(ctx context.Context, q querier, applicantID string) ([]models.Application, error) {
	return queryApplications(ctx, q, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE applicant_id = $1 AND state = 'accepted'`,
		applicantID)
}

func listByApplicant(ctx context.Context, q querier, applicantID string) ([]models.Application, error) {
	return queryApplications(ctx, q, `
		SELECT `+applicationColumns+`
		FROM applications
		WHERE applicant_id = $1 ORDER BY submitted_at`,
		applicantID)
}

func queryApplications(ctx context.Context, q querier, query string, args ...interface{}) ([]models.Application, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, commonerrors.NewStoreError("application query", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, commonerrors.NewStoreError("application scan", err)
		}
		out = append(out, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewStoreError("application query", err)
	}
	return out, nil
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var app models.Application
	var reviewer sql.NullString

	err := row.Scan(
		&app.ID,
		&app.ApplicantID,
		&app.PostingID,
		&app.PostingKind,
		&app.PostingTitle,
		&app.OrganizationID,
		&app.OrganizationName,
		&app.State,
		&reviewer,
		&app.SubmittedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.ReviewerID = reviewer.String
	return &app, nil
}
