// internal/store/postgres/notification.go
package postgres

import (
	"context"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/models"
)

type notificationStore struct {
	b *backend
}

// CreateIfAbsent inserts the notification unless its deterministic key
// already exists. ON CONFLICT DO NOTHING makes retries and fanout re-runs
// no-ops without a prior read.
func (n *notificationStore) CreateIfAbsent(ctx context.Context, notif *models.Notification) (bool, error) {
	res, err := n.b.db.ExecContext(ctx, `
		INSERT INTO notifications (
			id, candidate_id, posting_id, score, priority, subject, body, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		notif.ID,
		notif.CandidateID,
		notif.PostingID,
		notif.Score,
		notif.Priority,
		notif.Subject,
		notif.Body,
		notif.CreatedAt,
	)
	if err != nil {
		return false, commonerrors.NewStoreError("notification insert", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, commonerrors.NewStoreError("notification insert", err)
	}
	return rows > 0, nil
}

func (n *notificationStore) CountForPosting(ctx context.Context, postingID string) (int, error) {
	var count int
	err := n.b.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE posting_id = $1`, postingID).Scan(&count)
	if err != nil {
		return 0, commonerrors.NewStoreError("notification count", err)
	}
	return count, nil
}
