package listing

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memoryRepo keeps listings in a process-local slice. Suited to tests and
// single-instance pilots.
type memoryRepo struct {
	mu       sync.RWMutex
	listings []Listing
	now      func() time.Time
}

// NewMemoryRepository constructs an in-memory Repository implementation.
func NewMemoryRepository() Repository {
	return &memoryRepo{now: time.Now}
}

func (m *memoryRepo) Create(ctx context.Context, l *Listing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := m.now()
	if l.ID == "" {
		l.ID = NewID()
	}
	if l.RoutingToken == "" {
		l.RoutingToken = NewID()
	}
	if l.Visibility == "" {
		l.Visibility = VisibilityHidden
	}
	l.ContactNumber = NormalizePhone(l.ContactNumber)
	l.CreatedAt = now
	l.UpdatedAt = now

	m.mu.Lock()
	m.listings = append(m.listings, *l)
	m.mu.Unlock()
	return l.ID, nil
}

func (m *memoryRepo) FindByVillageCategory(ctx context.Context, village, category string, page, perPage int) ([]Listing, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if page < 0 {
		page = 0
	}
	if perPage <= 0 {
		perPage = 1
	}

	m.mu.RLock()
	matched := make([]Listing, 0)
	for _, l := range m.listings {
		if l.Village == village && CategoryMatches(l.Category, category) {
			matched = append(matched, l)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := page * perPage
	if start >= len(matched) {
		return nil, false, nil
	}
	end := start + perPage
	more := end < len(matched)
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]Listing, end-start)
	copy(out, matched[start:end])
	return out, more, nil
}

func (m *memoryRepo) ContactForRouting(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.listings {
		if m.listings[i].ID == id {
			v, routed := contactValue(&m.listings[i])
			return v, routed, nil
		}
	}
	return "", false, ErrNotFound
}

func (m *memoryRepo) Close() error {
	return nil
}
