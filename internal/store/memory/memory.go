// Package memory is an in-process Store for development and tests. It honors
// the same ownership and status rules as the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PortNumber53/content-calendar/internal/calendar"
	"github.com/PortNumber53/content-calendar/internal/models"
)

type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	calendars map[string]models.Calendar
	items     map[string]models.CalendarItem
	itemOrder []string
	assets    map[string]models.GeneratedAsset // keyed by calendar item id
}

func New() *Store {
	return &Store{
		now:       func() time.Time { return time.Now().UTC() },
		calendars: make(map[string]models.Calendar),
		items:     make(map[string]models.CalendarItem),
		assets:    make(map[string]models.GeneratedAsset),
	}
}

func (s *Store) CreateCalendar(_ context.Context, cal models.Calendar, items []models.CalendarItem) (models.Calendar, []models.CalendarItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cal.ID = uuid.NewString()
	cal.CreatedAt = now
	s.calendars[cal.ID] = cal

	out := make([]models.CalendarItem, 0, len(items))
	for _, it := range items {
		it.ID = uuid.NewString()
		it.CalendarID = cal.ID
		it.UserID = cal.UserID
		if it.Status == "" {
			it.Status = models.StatusPlanned
		}
		it.CreatedAt = now
		it.UpdatedAt = now
		s.items[it.ID] = it
		s.itemOrder = append(s.itemOrder, it.ID)
		out = append(out, it)
	}
	return cal, out, nil
}

func (s *Store) GetItem(_ context.Context, itemID, userID string) (models.CalendarItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok || it.UserID != userID {
		return models.CalendarItem{}, calendar.ErrNotFound
	}
	return it, nil
}

func (s *Store) SaveAsset(_ context.Context, asset models.GeneratedAsset) (models.GeneratedAsset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[asset.CalendarItemID]
	if !ok || it.UserID != asset.UserID {
		return models.GeneratedAsset{}, calendar.ErrNotFound
	}
	if _, exists := s.assets[it.ID]; exists || it.Status != models.StatusPlanned {
		return models.GeneratedAsset{}, calendar.ErrAlreadyMaterialized
	}

	now := s.now()
	asset.ID = uuid.NewString()
	asset.CreatedAt = now
	s.assets[it.ID] = asset

	it.Status = models.StatusContentGenerated
	it.UpdatedAt = now
	s.items[it.ID] = it
	return asset, nil
}

func (s *Store) MarkItemFailed(_ context.Context, itemID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok || it.UserID != userID || it.Status != models.StatusPlanned {
		return nil
	}
	it.Status = models.StatusFailed
	it.UpdatedAt = s.now()
	s.items[itemID] = it
	return nil
}

func (s *Store) ListCalendars(_ context.Context, userID string) ([]models.Calendar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Calendar, 0)
	for _, c := range s.calendars {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetCalendar(_ context.Context, calendarID, userID string) (models.Calendar, []models.CalendarItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.calendars[calendarID]
	if !ok || c.UserID != userID {
		return models.Calendar{}, nil, calendar.ErrNotFound
	}
	items := make([]models.CalendarItem, 0)
	for _, id := range s.itemOrder {
		if it := s.items[id]; it.CalendarID == calendarID {
			items = append(items, it)
		}
	}
	return c, items, nil
}

func (s *Store) ListAssets(_ context.Context, itemID, userID string) ([]models.GeneratedAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok || it.UserID != userID {
		return nil, calendar.ErrNotFound
	}
	out := make([]models.GeneratedAsset, 0, 1)
	if a, ok := s.assets[itemID]; ok {
		out = append(out, a)
	}
	return out, nil
}

// DeleteOrphanCalendars removes itemless calendars created before cutoff.
func (s *Store) DeleteOrphanCalendars(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	withItems := make(map[string]bool)
	for _, it := range s.items {
		withItems[it.CalendarID] = true
	}
	var n int64
	for id, c := range s.calendars {
		if !withItems[id] && c.CreatedAt.Before(cutoff) {
			delete(s.calendars, id)
			n++
		}
	}
	return n, nil
}

// PutCalendar stores cal as-is. It exists to seed fixtures such as orphaned headers.
func (s *Store) PutCalendar(cal models.Calendar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calendars[cal.ID] = cal
}

// Counts reports stored calendars, items and assets.
func (s *Store) Counts() (calendars, items, assets int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calendars), len(s.items), len(s.assets)
}
