// internal/engine/fanout/fanout.go
// Package fanout scores the candidate population against a new posting and
// records a notification for everyone clearing the threshold. Candidates are
// processed in isolation: one failure never aborts the rest of the scan.
package fanout

import (
	"context"
	"sync"
	"time"

	"admission-engine/internal/common/logger"
	"admission-engine/internal/common/metrics"
	"admission-engine/internal/engine/scoring"
	"admission-engine/internal/models"
	"admission-engine/internal/store"

	"github.com/google/uuid"
)

type Fanout struct {
	source        CandidateSource
	notifications store.NotificationStore
	notifier      *Notifier
	threshold     int
	highThreshold int
	workers       int
	logger        logger.Logger
}

type Config struct {
	NotifyThreshold       int
	HighPriorityThreshold int
	Workers               int
}

// Result is the per-run outcome tally. Created counts new notification
// records; Skipped covers scores below threshold and already-notified pairs;
// Failed counts candidates whose write or delivery failed.
type Result struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func New(source CandidateSource, notifications store.NotificationStore, notifier *Notifier, cfg Config, log logger.Logger) *Fanout {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}
	return &Fanout{
		source:        source,
		notifications: notifications,
		notifier:      notifier,
		threshold:     cfg.NotifyThreshold,
		highThreshold: cfg.HighPriorityThreshold,
		workers:       workers,
		logger:        log.WithFields(map[string]interface{}{"component": "notification-fanout"}),
	}
}

// NotificationID derives the deterministic key for (candidate, posting).
// Re-running a fanout or retrying a candidate regenerates the same id, which
// is what makes CreateIfAbsent an idempotency guard.
func NotificationID(candidateID, postingID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("notification:"+candidateID+":"+postingID)).String()
}

// OnNewPosting scans, scores and notifies. Candidates run concurrently on a
// bounded worker pool; the enumeration error (if any) is returned after the
// pool drains, with the partial tally.
func (f *Fanout) OnNewPosting(ctx context.Context, posting *models.Posting) (Result, error) {
	start := time.Now()

	jobs := make(chan *models.CandidateProfile)
	var wg sync.WaitGroup

	var mu sync.Mutex
	var result Result

	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				outcome := f.processCandidate(ctx, candidate, posting)
				mu.Lock()
				switch outcome {
				case outcomeCreated:
					result.Created++
				case outcomeSkipped:
					result.Skipped++
				case outcomeFailed:
					result.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	scanErr := f.source.Candidates(ctx, posting, func(c *models.CandidateProfile) error {
		snapshot := *c
		select {
		case jobs <- &snapshot:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	wg.Wait()

	metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	f.logger.Info("fanout finished", map[string]interface{}{
		"postingId": posting.ID,
		"created":   result.Created,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	})

	return result, scanErr
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeFailed
)

func (f *Fanout) processCandidate(ctx context.Context, candidate *models.CandidateProfile, posting *models.Posting) outcome {
	match := scoring.Score(candidate, posting)
	if match.Score < f.threshold {
		metrics.FanoutNotifications.WithLabelValues("below_threshold").Inc()
		return outcomeSkipped
	}

	priority := models.PriorityNormal
	if match.Score >= f.highThreshold {
		priority = models.PriorityHigh
	}

	subject, body := f.notifier.Render(posting, match.Score)
	notif := &models.Notification{
		ID:          NotificationID(candidate.ID, posting.ID),
		CandidateID: candidate.ID,
		PostingID:   posting.ID,
		Score:       match.Score,
		Priority:    priority,
		Subject:     subject,
		Body:        body,
		CreatedAt:   time.Now().UTC(),
	}

	created, err := f.notifications.CreateIfAbsent(ctx, notif)
	if err != nil {
		metrics.FanoutNotifications.WithLabelValues("failed").Inc()
		f.logger.Warn("notification write failed", map[string]interface{}{
			"error":       err,
			"candidateId": candidate.ID,
			"postingId":   posting.ID,
		})
		return outcomeFailed
	}
	if !created {
		metrics.FanoutNotifications.WithLabelValues("duplicate").Inc()
		return outcomeSkipped
	}

	if err := f.notifier.Deliver(ctx, candidate, notif); err != nil {
		metrics.FanoutNotifications.WithLabelValues("delivery_failed").Inc()
		return outcomeFailed
	}

	metrics.FanoutNotifications.WithLabelValues("created").Inc()
	return outcomeCreated
}
