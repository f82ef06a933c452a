package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/produce-grader/internal/models"
)

// MemoryStore keeps reports in process memory. Used in prototype mode and
// lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports []models.GradingReport
	nextID  uint
	last    time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

func (s *MemoryStore) Create(ctx context.Context, r *models.GradingReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.now().UTC().Truncate(time.Microsecond)
	// createdAt never goes backwards relative to insertion order, even if the
	// wall clock does.
	if created.Before(s.last) {
		created = s.last
	}
	s.last = created

	r.ID = s.nextID
	r.CreatedAt = created
	s.nextID++

	s.reports = append(s.reports, cloneReport(*r))
	return nil
}

func (s *MemoryStore) List(ctx context.Context, owner *string) ([]models.GradingReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]models.GradingReport, 0, len(s.reports))
	for i := range s.reports {
		if ownedBy(&s.reports[i], owner) {
			out = append(out, cloneReport(s.reports[i]))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id uint, owner *string) (*models.GradingReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// IDs are assigned sequentially from 1, so the slice index is id-1.
	if id == 0 || id > uint(len(s.reports)) {
		return nil, ErrNotFound
	}
	r := s.reports[id-1]
	if !ownedBy(&r, owner) {
		return nil, ErrNotFound
	}
	out := cloneReport(r)
	return &out, nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func ownedBy(r *models.GradingReport, owner *string) bool {
	if owner == nil {
		return true
	}
	return r.UserID != nil && *r.UserID == *owner
}

// cloneReport copies the slices and pointers a caller could mutate.
func cloneReport(r models.GradingReport) models.GradingReport {
	if r.UserID != nil {
		uid := *r.UserID
		r.UserID = &uid
	}
	if r.Analysis.VisualDefects != nil {
		r.Analysis.VisualDefects = append([]string{}, r.Analysis.VisualDefects...)
	}
	if r.Analysis.Factors != nil {
		r.Analysis.Factors = append([]string{}, r.Analysis.Factors...)
	}
	if r.Analysis.Extra != nil {
		extra := make(map[string]any, len(r.Analysis.Extra))
		for k, v := range r.Analysis.Extra {
			extra[k] = v
		}
		r.Analysis.Extra = extra
	}
	return r
}
