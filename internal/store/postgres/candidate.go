// internal/store/postgres/candidate.go
package postgres

import (
	"context"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/models"
)

type candidateStore struct {
	b *backend
}

// ScanAll streams every candidate row through fn. The cursor is a fresh
// query per invocation, so a fanout re-run always sees the full population.
func (c *candidateStore) ScanAll(ctx context.Context, fn func(*models.CandidateProfile) error) error {
	rows, err := c.b.db.QueryContext(ctx, `
		SELECT id, email, phone, gpa, experience, certificates, skills
		FROM candidates ORDER BY id`)
	if err != nil {
		return commonerrors.NewStoreError("candidate scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return commonerrors.NewStoreError("candidate scan", err)
		}
		if err := fn(profile); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return commonerrors.NewStoreError("candidate scan", err)
	}
	return nil
}
