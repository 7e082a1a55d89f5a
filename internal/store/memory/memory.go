// internal/store/memory/memory.go
// Package memory is the in-process store backend used for development and
// tests. It honors the same serialization contract as the durable backend:
// WithApplicant holds a per-applicant mutex for the whole unit of work.
package memory

import (
	"context"
	"sort"
	"sync"

	"admission-engine/internal/models"
	"admission-engine/internal/store"
)

type Store struct {
	mu            sync.RWMutex
	profiles      map[string]models.CandidateProfile
	postings      map[string]models.Posting
	applications  map[string]models.Application
	notifications map[string]models.Notification

	lockMu         sync.Mutex
	applicantLocks map[string]*sync.Mutex
}

func New() *Store {
	return &Store{
		profiles:       make(map[string]models.CandidateProfile),
		postings:       make(map[string]models.Posting),
		applications:   make(map[string]models.Application),
		notifications:  make(map[string]models.Notification),
		applicantLocks: make(map[string]*sync.Mutex),
	}
}

// Stores exposes the single backend in every capability role.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Profiles:      &profileStore{s},
		Postings:      &postingStore{s},
		Applications:  &applicationStore{s},
		Candidates:    &candidateStore{s},
		Notifications: &notificationStore{s},
	}
}

// Seed helpers for tests and the development backend.

func (s *Store) AddProfile(p models.CandidateProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

func (s *Store) AddPosting(p models.Posting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postings[p.ID] = p
}

// ==========================
// ProfileStore / CandidateStore
// ==========================

type profileStore struct{ s *Store }

func (p *profileStore) Get(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	prof, ok := p.s.profiles[candidateID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := prof
	return &cp, nil
}

type candidateStore struct{ s *Store }

func (c *candidateStore) ScanAll(ctx context.Context, fn func(*models.CandidateProfile) error) error {
	c.s.mu.RLock()
	snapshot := make([]models.CandidateProfile, 0, len(c.s.profiles))
	for _, p := range c.s.profiles {
		snapshot = append(snapshot, p)
	}
	c.s.mu.RUnlock()
	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })

	for i := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(&snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

// ==========================
// PostingStore
// ==========================

type postingStore struct{ s *Store }

func (p *postingStore) Get(ctx context.Context, postingID string) (*models.Posting, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	po, ok := p.s.postings[postingID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := po
	return &cp, nil
}

func (p *postingStore) ListOpen(ctx context.Context) ([]models.Posting, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	var out []models.Posting
	for _, po := range p.s.postings {
		if po.State == models.PostingOpen {
			out = append(out, po)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *postingStore) Create(ctx context.Context, po *models.Posting) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.postings[po.ID] = *po
	return nil
}

// ==========================
// ApplicationStore
// ==========================

type applicationStore struct{ s *Store }

func (a *applicationStore) Get(ctx context.Context, id string) (*models.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	app, ok := a.s.applications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ca := app
	return &ca, nil
}

func (a *applicationStore) FindByApplicantAndPosting(ctx context.Context, applicantID, postingID string) (*models.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	for _, app := range a.s.applications {
		if app.ApplicantID == applicantID && app.PostingID == postingID {
			ca := app
			return &ca, nil
		}
	}
	return nil, store.ErrNotFound
}

func (a *applicationStore) CountPendingOrApproved(ctx context.Context, applicantID, orgID string) (int, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	count := 0
	for _, app := range a.s.applications {
		if app.ApplicantID == applicantID && app.OrganizationID == orgID &&
			app.PostingKind == models.PostingKindCourse &&
			(app.State == models.StatePending || app.State == models.StateApproved) {
			count++
		}
	}
	return count, nil
}

func (a *applicationStore) FindApproved(ctx context.Context, applicantID, orgID string) ([]models.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []models.Application
	for _, app := range a.s.applications {
		if app.ApplicantID == applicantID && app.OrganizationID == orgID && app.State == models.StateApproved {
			out = append(out, app)
		}
	}
	return out, nil
}

func (a *applicationStore) FindAccepted(ctx context.Context, applicantID string) ([]models.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []models.Application
	for _, app := range a.s.applications {
		if app.ApplicantID == applicantID && app.State == models.StateAccepted {
			out = append(out, app)
		}
	}
	return out, nil
}

func (a *applicationStore) ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []models.Application
	for _, app := range a.s.applications {
		if app.ApplicantID == applicantID {
			out = append(out, app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (a *applicationStore) WithApplicant(ctx context.Context, applicantID string, fn func(tx store.ApplicationTx) error) error {
	a.s.lockMu.Lock()
	l, ok := a.s.applicantLocks[applicantID]
	if !ok {
		l = &sync.Mutex{}
		a.s.applicantLocks[applicantID] = l
	}
	a.s.lockMu.Unlock()

	l.Lock()
	defer l.Unlock()
	return fn(&txView{a})
}

// txView writes through to the store while the applicant lock is held.
type txView struct {
	a *applicationStore
}

func (t *txView) Get(ctx context.Context, id string) (*models.Application, error) {
	return t.a.Get(ctx, id)
}

func (t *txView) FindByApplicantAndPosting(ctx context.Context, applicantID, postingID string) (*models.Application, error) {
	return t.a.FindByApplicantAndPosting(ctx, applicantID, postingID)
}

func (t *txView) CountPendingOrApproved(ctx context.Context, applicantID, orgID string) (int, error) {
	return t.a.CountPendingOrApproved(ctx, applicantID, orgID)
}

func (t *txView) FindApproved(ctx context.Context, applicantID, orgID string) ([]models.Application, error) {
	return t.a.FindApproved(ctx, applicantID, orgID)
}

func (t *txView) FindAccepted(ctx context.Context, applicantID string) ([]models.Application, error) {
	return t.a.FindAccepted(ctx, applicantID)
}

func (t *txView) ListByApplicant(ctx context.Context, applicantID string) ([]models.Application, error) {
	return t.a.ListByApplicant(ctx, applicantID)
}

func (t *txView) Create(ctx context.Context, app *models.Application) error {
	t.a.s.mu.Lock()
	defer t.a.s.mu.Unlock()
	t.a.s.applications[app.ID] = *app
	return nil
}

func (t *txView) UpdateState(ctx context.Context, id string, state models.ApplicationState, reviewerID string) error {
	t.a.s.mu.Lock()
	defer t.a.s.mu.Unlock()
	app, ok := t.a.s.applications[id]
	if !ok {
		return store.ErrNotFound
	}
	app.State = state
	app.ReviewerID = reviewerID
	t.a.s.applications[id] = app
	return nil
}

// ==========================
// NotificationStore
// ==========================

type notificationStore struct{ s *Store }

func (n *notificationStore) CreateIfAbsent(ctx context.Context, notif *models.Notification) (bool, error) {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if _, exists := n.s.notifications[notif.ID]; exists {
		return false, nil
	}
	n.s.notifications[notif.ID] = *notif
	return true, nil
}

func (n *notificationStore) CountForPosting(ctx context.Context, postingID string) (int, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()
	count := 0
	for _, notif := range n.s.notifications {
		if notif.PostingID == postingID {
			count++
		}
	}
	return count, nil
}
