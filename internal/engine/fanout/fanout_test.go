// internal/engine/fanout/fanout_test.go
package fanout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"admission-engine/internal/common/logger"
	"admission-engine/internal/models"
	"admission-engine/internal/store/memory"
	"admission-engine/pkg/registry"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	mu     sync.Mutex
	sent   []string
	failTo string
}

func (m *mockSES) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	to := input.Destination.ToAddresses[0]
	if m.failTo != "" && to == m.failTo {
		return nil, errors.New("ses unavailable")
	}
	m.sent = append(m.sent, to)
	return &ses.SendEmailOutput{}, nil
}

func (m *mockSES) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sent...)
}

type mockSNS struct {
	mu        sync.Mutex
	published []string
}

func (m *mockSNS) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, *input.PhoneNumber)
	return &sns.PublishOutput{}, nil
}

func (m *mockSNS) phones() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.published...)
}

func matchPosting() *models.Posting {
	return &models.Posting{
		ID:               "posting-1",
		OrganizationID:   "org-1",
		OrganizationName: "Acme",
		Title:            "Backend Engineer",
		Kind:             models.PostingKindJob,
		MinGPA:           3.0,
		MinExperience:    2,
		Certificates:     []string{"AWS"},
		Requirements:     []string{"Python"},
		Deadline:         time.Now().Add(48 * time.Hour),
		State:            models.PostingOpen,
	}
}

// strongCandidate scores 100 against matchPosting.
func strongCandidate(id, email, phone string) models.CandidateProfile {
	return models.CandidateProfile{
		ID:           id,
		Email:        email,
		Phone:        phone,
		GPA:          3.5,
		Experience:   4,
		Certificates: []string{"AWS Certified"},
		Skills:       []string{"Python3"},
	}
}

// midCandidate scores 80 against matchPosting: full academic, experience and
// skills, no certificates.
func midCandidate(id, email string) models.CandidateProfile {
	return models.CandidateProfile{
		ID:         id,
		Email:      email,
		GPA:        3.0,
		Experience: 2,
		Skills:     []string{"Python"},
	}
}

// weakCandidate scores 15 against matchPosting.
func weakCandidate(id string) models.CandidateProfile {
	return models.CandidateProfile{
		ID:  id,
		GPA: 1.5,
	}
}

func newTestFanout(t *testing.T, mem *memory.Store, sesMock SESService, snsMock SNSService) *Fanout {
	stores := mem.Stores()
	templates, err := registry.LoadRegistry("does-not-exist.json")
	require.NoError(t, err)

	notifier := NewNotifier(templates, sesMock, snsMock, NotifierConfig{
		EmailEnabled: sesMock != nil,
		SMSEnabled:   snsMock != nil,
		FromEmail:    "no-reply@test.local",
	}, logger.NewTestLogger(t))

	return New(NewScanSource(stores.Candidates), stores.Notifications, notifier, Config{
		NotifyThreshold:       70,
		HighPriorityThreshold: 90,
		Workers:               4,
	}, logger.NewTestLogger(t))
}

func TestOnNewPosting_NotifiesAboveThresholdOnly(t *testing.T) {
	mem := memory.New()
	mem.AddProfile(strongCandidate("strong", "strong@test.local", ""))
	mem.AddProfile(weakCandidate("weak"))

	sesMock := &mockSES{}
	fan := newTestFanout(t, mem, sesMock, nil)

	result, err := fan.OnNewPosting(context.Background(), matchPosting())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, []string{"strong@test.local"}, sesMock.recipients())

	count, err := mem.Stores().Notifications.CountForPosting(context.Background(), "posting-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnNewPosting_RerunIsIdempotent(t *testing.T) {
	mem := memory.New()
	mem.AddProfile(strongCandidate("strong", "strong@test.local", ""))
	mem.AddProfile(weakCandidate("weak"))

	fan := newTestFanout(t, mem, &mockSES{}, nil)
	posting := matchPosting()

	first, err := fan.OnNewPosting(context.Background(), posting)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Created)

	second, err := fan.OnNewPosting(context.Background(), posting)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Skipped)

	count, err := mem.Stores().Notifications.CountForPosting(context.Background(), "posting-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOnNewPosting_HighScoreTriggersSMS(t *testing.T) {
	mem := memory.New()
	mem.AddProfile(strongCandidate("high", "high@test.local", "+15550100"))
	mem.AddProfile(midCandidate("mid", "mid@test.local"))

	sesMock := &mockSES{}
	snsMock := &mockSNS{}
	fan := newTestFanout(t, mem, sesMock, snsMock)

	result, err := fan.OnNewPosting(context.Background(), matchPosting())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.ElementsMatch(t, []string{"high@test.local", "mid@test.local"}, sesMock.recipients())
	// Only the high-priority match goes out over SMS.
	assert.Equal(t, []string{"+15550100"}, snsMock.phones())
}

func TestOnNewPosting_DeliveryFailureIsIsolated(t *testing.T) {
	mem := memory.New()
	mem.AddProfile(strongCandidate("one", "one@test.local", ""))
	mem.AddProfile(strongCandidate("two", "two@test.local", ""))

	sesMock := &mockSES{failTo: "one@test.local"}
	fan := newTestFanout(t, mem, sesMock, nil)

	result, err := fan.OnNewPosting(context.Background(), matchPosting())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{"two@test.local"}, sesMock.recipients())

	// Both records exist: delivery is best-effort once the row is written.
	count, err := mem.Stores().Notifications.CountForPosting(context.Background(), "posting-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestOnNewPosting_ThresholdBoundary(t *testing.T) {
	mem := memory.New()
	mem.AddProfile(midCandidate("mid", "mid@test.local")) // exactly 80

	fan := New(
		NewScanSource(mem.Stores().Candidates),
		mem.Stores().Notifications,
		NewNotifier(mustDefaultRegistry(t), nil, nil, NotifierConfig{}, logger.NewNoOpLogger()),
		Config{NotifyThreshold: 80, HighPriorityThreshold: 90, Workers: 2},
		logger.NewTestLogger(t),
	)

	result, err := fan.OnNewPosting(context.Background(), matchPosting())
	require.NoError(t, err)

	// Score equal to the threshold still notifies.
	assert.Equal(t, 1, result.Created)
}

func mustDefaultRegistry(t *testing.T) *registry.TemplateRegistry {
	t.Helper()
	templates, err := registry.LoadRegistry("does-not-exist.json")
	require.NoError(t, err)
	return templates
}

func TestNotificationID_Deterministic(t *testing.T) {
	a := NotificationID("cand-1", "posting-1")
	b := NotificationID("cand-1", "posting-1")
	c := NotificationID("cand-2", "posting-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestNotifier_RenderUsesTemplateData(t *testing.T) {
	notifier := NewNotifier(mustDefaultRegistry(t), nil, nil, NotifierConfig{}, logger.NewNoOpLogger())

	subject, body := notifier.Render(matchPosting(), 93)

	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "Backend Engineer")
	assert.Contains(t, body, "Acme")
	assert.Contains(t, body, "93")
}
