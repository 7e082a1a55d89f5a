// internal/engine/fanout/source.go
package fanout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	commonerrors "admission-engine/internal/common/errors"
	"admission-engine/internal/models"
	"admission-engine/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
)

// CandidateSource yields the candidate population to score for a posting.
// The full scan is the default; a pre-filtered source may narrow the set but
// must never yield a candidate twice in one pass.
type CandidateSource interface {
	Candidates(ctx context.Context, posting *models.Posting, fn func(*models.CandidateProfile) error) error
}

// ScanSource walks the entire candidate store. Acceptable at current scale;
// the interface exists so an indexed source can replace it without touching
// the fanout loop.
type ScanSource struct {
	store store.CandidateStore
}

func NewScanSource(candidates store.CandidateStore) *ScanSource {
	return &ScanSource{store: candidates}
}

func (s *ScanSource) Candidates(ctx context.Context, _ *models.Posting, fn func(*models.CandidateProfile) error) error {
	return s.store.ScanAll(ctx, fn)
}

// ElasticsearchSource pre-filters candidates whose indexed skills overlap the
// posting requirements, then hydrates full profiles from the profile store.
type ElasticsearchSource struct {
	client   *elasticsearch.Client
	index    string
	profiles store.ProfileStore
}

func NewElasticsearchSource(client *elasticsearch.Client, index string, profiles store.ProfileStore) *ElasticsearchSource {
	return &ElasticsearchSource{client: client, index: index, profiles: profiles}
}

func (s *ElasticsearchSource) Candidates(ctx context.Context, posting *models.Posting, fn func(*models.CandidateProfile) error) error {
	query := map[string]interface{}{
		"size":    10000,
		"_source": false,
	}
	if len(posting.Requirements) > 0 {
		query["query"] = map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"terms": map[string]interface{}{"skills": lowercased(posting.Requirements)}},
					{"terms": map[string]interface{}{"certificates": lowercased(posting.Certificates)}},
				},
				"minimum_should_match": 1,
			},
		}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return commonerrors.NewStoreError("candidate search encode", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
	)
	if err != nil {
		return commonerrors.NewStoreError("candidate search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return commonerrors.NewStoreError("candidate search", fmt.Errorf("elasticsearch: %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return commonerrors.NewStoreError("candidate search decode", err)
	}

	for _, hit := range parsed.Hits.Hits {
		profile, err := s.profiles.Get(ctx, hit.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue // index lag, the row is gone
			}
			return err
		}
		if err := fn(profile); err != nil {
			return err
		}
	}
	return nil
}

func lowercased(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(s))
	}
	return out
}
