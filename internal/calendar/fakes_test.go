package calendar_test

import (
	"context"
	"errors"
	"sync"

	"github.com/PortNumber53/content-calendar/internal/models"
	"github.com/PortNumber53/content-calendar/internal/store/memory"
)

type fakeGenerator struct {
	mu      sync.Mutex
	text    string
	json    string
	err     error
	prompts []string
}

func (g *fakeGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

func (g *fakeGenerator) GenerateJSON(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.json, g.err
}

// faultyStore injects errors into an in-memory store.
type faultyStore struct {
	*memory.Store
	createErr error
	getErr    error
	saveErr   error
	markErr   error
	marked    int
}

func (s *faultyStore) CreateCalendar(ctx context.Context, cal models.Calendar, items []models.CalendarItem) (models.Calendar, []models.CalendarItem, error) {
	if s.createErr != nil {
		return models.Calendar{}, nil, s.createErr
	}
	return s.Store.CreateCalendar(ctx, cal, items)
}

func (s *faultyStore) GetItem(ctx context.Context, itemID, userID string) (models.CalendarItem, error) {
	if s.getErr != nil {
		return models.CalendarItem{}, s.getErr
	}
	return s.Store.GetItem(ctx, itemID, userID)
}

func (s *faultyStore) SaveAsset(ctx context.Context, a models.GeneratedAsset) (models.GeneratedAsset, error) {
	if s.saveErr != nil {
		return models.GeneratedAsset{}, s.saveErr
	}
	return s.Store.SaveAsset(ctx, a)
}

func (s *faultyStore) MarkItemFailed(ctx context.Context, itemID, userID string) error {
	s.marked++
	if s.markErr != nil {
		return s.markErr
	}
	return s.Store.MarkItemFailed(ctx, itemID, userID)
}

type busyLocker struct{ err error }

func (l busyLocker) Acquire(context.Context, string) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	return nil, false, nil
}

// racingLocker runs onAcquire before granting the lease, standing in for a
// previous holder that finished just before this request got the lock.
type racingLocker struct {
	onAcquire func()
	released  int
}

func (l *racingLocker) Acquire(context.Context, string) (func(), bool, error) {
	if l.onAcquire != nil {
		l.onAcquire()
	}
	return func() { l.released++ }, true, nil
}

var errBoom = errors.New("boom")

const threeItems = `[
 {"postDate":"2025-06-01","postTime":"10:00 AM","platformSuggestion":"Instagram","contentTypeSuggestion":"single image post","contentTheme":"t1","detailedPromptForContentGeneration":"draw a robot","callToAction":"c1"},
 {"postDate":"2025-06-08","postTime":"9:30 PM","platformSuggestion":"TikTok","contentTypeSuggestion":"short Reel concept","contentTheme":"t2","detailedPromptForContentGeneration":"script a reel","callToAction":"c2"},
 {"postDate":"2025-06-15","postTime":"12:00 PM","platformSuggestion":"Blog","contentTypeSuggestion":"blog post outline","contentTheme":"t3","detailedPromptForContentGeneration":"outline a post","callToAction":"c3"}
]`
