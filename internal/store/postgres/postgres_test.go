// internal/store/postgres/postgres_test.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/common/logger"
	"admission-engine/internal/models"
	"admission-engine/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func setupMiniredis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func profileColumns() []string {
	return []string{"id", "email", "phone", "gpa", "experience", "certificates", "skills"}
}

func applicationRowColumns() []string {
	return []string{
		"id", "applicant_id", "posting_id", "posting_kind", "posting_title",
		"organization_id", "organization_name", "state", "reviewer_id", "submitted_at", "updated_at",
	}
}

func TestProfileGet_CacheMissThenHit(t *testing.T) {
	db, mock := setupMockDB(t)
	rdb := setupMiniredis(t)

	stores := New(db, logger.NewTestLogger(t), Options{Redis: rdb, CacheTTL: time.Minute})

	mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE id = $1")).
		WithArgs("cand-1").
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow("cand-1", "c@test.local", "+15550100", 3.4, 5, `["AWS"]`, `["Go","Python"]`))

	first, err := stores.Profiles.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, 3.4, first.GPA)
	assert.Equal(t, []string{"Go", "Python"}, first.Skills)

	// Second read is served from the cache: no further query expected.
	second, err := stores.Profiles.Get(context.Background(), "cand-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileGet_MissingRow(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM candidates WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := stores.Profiles.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithApplicant_LockInsertAndAuditCommit(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	now := time.Now().UTC()
	app := &models.Application{
		ID:               "app-1",
		ApplicantID:      "alice",
		PostingID:        "p1",
		PostingKind:      models.PostingKindCourse,
		PostingTitle:     "Algorithms",
		OrganizationID:   "org-1",
		OrganizationName: "Acme U",
		State:            models.StatePending,
		SubmittedAt:      now,
		UpdatedAt:        now,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO applications")).
		WithArgs(
			"app-1", "alice", "p1", models.PostingKindCourse, "Algorithms",
			"org-1", "Acme U", models.StatePending, sqlmock.AnyArg(), now, now,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs("application_created", "application", "app-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := stores.Applications.WithApplicant(context.Background(), "alice", func(tx store.ApplicationTx) error {
		return tx.Create(context.Background(), app)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithApplicant_RollsBackOnBusinessError(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock(hashtext($1))")).
		WithArgs("alice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	wantErr := errors.New("business rule failed")
	err := stores.Applications.WithApplicant(context.Background(), "alice", func(tx store.ApplicationTx) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplicationGet_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM applications WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := stores.Applications.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountPendingOrApproved_FiltersCourseStates(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectQuery(regexp.QuoteMeta("posting_kind = 'course'")).
		WithArgs("alice", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := stores.Applications.CountPendingOrApproved(context.Background(), "alice", "org-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFindApproved_ScansRows(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("state = 'approved'")).
		WithArgs("alice", "org-1").
		WillReturnRows(sqlmock.NewRows(applicationRowColumns()).
			AddRow("app-1", "alice", "p1", "course", "Algorithms", "org-1", "Acme U", "approved", "rev-1", now, now))

	apps, err := stores.Applications.FindApproved(context.Background(), "alice", "org-1")
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, models.StateApproved, apps[0].State)
	assert.Equal(t, "rev-1", apps[0].ReviewerID)
}

func TestNotificationCreateIfAbsent(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	notif := &models.Notification{
		ID:          "n1",
		CandidateID: "cand-1",
		PostingID:   "p1",
		Score:       85,
		Priority:    models.PriorityNormal,
		Subject:     "s",
		Body:        "b",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	created, err := stores.Notifications.CreateIfAbsent(context.Background(), notif)
	require.NoError(t, err)
	assert.True(t, created)

	// Second insert conflicts: zero rows affected means already present.
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	created, err = stores.Notifications.CreateIfAbsent(context.Background(), notif)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestPostingCreate_MarshalsJSONColumns(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	posting := &models.Posting{
		ID:               "p1",
		OrganizationID:   "org-1",
		OrganizationName: "Acme",
		Title:            "Backend Engineer",
		Kind:             models.PostingKindJob,
		MinGPA:           2.5,
		Certificates:     []string{"AWS"},
		Requirements:     []string{"Go"},
		Deadline:         time.Now().Add(24 * time.Hour),
		State:            models.PostingOpen,
		CreatedAt:        time.Now().UTC(),
	}

	certs, _ := json.Marshal(posting.Certificates)
	reqs, _ := json.Marshal(posting.Requirements)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO postings")).
		WithArgs(
			"p1", "org-1", "Acme", "Backend Engineer", models.PostingKindJob, 2.5,
			0, certs, reqs, 0, posting.Deadline, models.PostingOpen, posting.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := stores.Postings.Create(context.Background(), posting)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCandidateScanAll_StopsOnCallbackError(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM candidates ORDER BY id")).
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow("a", nil, nil, 3.0, 1, `[]`, `[]`).
			AddRow("b", nil, nil, 3.5, 2, `[]`, `[]`))

	wantErr := errors.New("stop")
	seen := 0
	err := stores.Candidates.ScanAll(context.Background(), func(p *models.CandidateProfile) error {
		seen++
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, seen)
}

func TestStoreErrorsWrapInfrastructureFailures(t *testing.T) {
	db, mock := setupMockDB(t)
	stores := New(db, logger.NewTestLogger(t), Options{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM postings WHERE state = 'open'")).
		WillReturnError(errors.New("connection reset"))

	_, err := stores.Postings.ListOpen(context.Background())
	var se *commonerrors.StoreError
	assert.True(t, errors.As(err, &se))
}
