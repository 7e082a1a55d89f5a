// internal/store/postgres/posting.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/models"
	"admission-engine/internal/store"
)

type postingStore struct {
	b *backend
}

const postingColumns = `
	id, organization_id, organization_name, title, kind, min_gpa,
	min_experience, certificates, requirements, seats, deadline, state, created_at`

func (p *postingStore) Get(ctx context.Context, postingID string) (*models.Posting, error) {
	row := p.b.db.QueryRowContext(ctx, `
		SELECT `+postingColumns+`
		FROM postings WHERE id = $1`, postingID)

	posting, err := scanPosting(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, commonerrors.NewStoreError("posting get", err)
	}
	return posting, nil
}

func (p *postingStore) ListOpen(ctx context.Context) ([]models.Posting, error) {
	rows, err := p.b.db.QueryContext(ctx, `
		SELECT `+postingColumns+`
		FROM postings WHERE state = 'open' ORDER BY created_at DESC`)
	if err != nil {
		return nil, commonerrors.NewStoreError("posting list", err)
	}
	defer rows.Close()

	var out []models.Posting
	for rows.Next() {
		posting, err := scanPosting(rows)
		if err != nil {
			return nil, commonerrors.NewStoreError("posting scan", err)
		}
		out = append(out, *posting)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewStoreError("posting list", err)
	}
	return out, nil
}

func (p *postingStore) Create(ctx context.Context, posting *models.Posting) error {
	certs, err := json.Marshal(posting.Certificates)
	if err != nil {
		return commonerrors.NewStoreError("posting marshal", err)
	}
	reqs, err := json.Marshal(posting.Requirements)
	if err != nil {
		return commonerrors.NewStoreError("posting marshal", err)
	}

	_, err = p.b.db.ExecContext(ctx, `
		INSERT INTO postings (
			id, organization_id, organization_name, title, kind, min_gpa,
			min_experience, certificates, requirements, seats, deadline, state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		posting.ID,
		posting.OrganizationID,
		posting.OrganizationName,
		posting.Title,
		posting.Kind,
		posting.MinGPA,
		posting.MinExperience,
		certs,
		reqs,
		posting.Seats,
		posting.Deadline,
		posting.State,
		posting.CreatedAt,
	)
	if err != nil {
		return commonerrors.NewStoreError("posting insert", err)
	}
	return nil
}

func scanPosting(row rowScanner) (*models.Posting, error) {
	var posting models.Posting
	var certs, reqs []byte

	err := row.Scan(
		&posting.ID,
		&posting.OrganizationID,
		&posting.OrganizationName,
		&posting.Title,
		&posting.Kind,
		&posting.MinGPA,
		&posting.MinExperience,
		&certs,
		&reqs,
		&posting.Seats,
		&posting.Deadline,
		&posting.State,
		&posting.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(certs, &posting.Certificates); err != nil {
		posting.Certificates = []string{}
	}
	if err := json.Unmarshal(reqs, &posting.Requirements); err != nil {
		posting.Requirements = []string{}
	}

	return &posting, nil
}
