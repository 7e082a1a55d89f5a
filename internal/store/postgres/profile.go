// internal/store/postgres/profile.go
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

type profileStore struct {
	b *backend
}

// Get reads a candidate profile, trying the Redis cache first. A cache miss
// or a broken cache entry falls through to postgres; cache write failures are
// ignored because the row is the source of truth.
func (p *profileStore) Get(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	cacheKey := "candidate:profile:" + candidateID
	if p.b.redis != nil {
		if val, err := p.b.redis.Get(ctx, cacheKey).Result(); err == nil {
			var profile models.CandidateProfile
			if err := json.Unmarshal([]byte(val), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	row := p.b.db.QueryRowContext(ctx, `
		SELECT id, email, phone, gpa, experience, certificates, skills
		FROM candidates WHERE id = $1`, candidateID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, commonerrors.NewStoreError("profile get", err)
	}

	if p.b.redis != nil {
		if data, err := json.Marshal(profile); err == nil {
			p.b.redis.Set(ctx, cacheKey, data, p.b.cacheTTL)
		}
	}

	return profile, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*models.CandidateProfile, error) {
	var profile models.CandidateProfile
	var email, phone sql.NullString
	var certs, skills []byte

	err := row.Scan(&profile.ID, &email, &phone, &profile.GPA, &profile.Experience, &certs, &skills)
	if err != nil {
		return nil, err
	}
	profile.Email = email.String
	profile.Phone = phone.String

	if err := json.Unmarshal(certs, &profile.Certificates); err != nil {
		profile.Certificates = []string{}
	}
	if err := json.Unmarshal(skills, &profile.Skills); err != nil {
		profile.Skills = []string{}
	}

	return &profile, nil
}
