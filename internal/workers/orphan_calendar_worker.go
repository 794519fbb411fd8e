package workers

import (
	"context"
	"time"

	"github.com/PortNumber53/content-calendar/internal/logger"
)

// OrphanSweeper deletes calendar headers that own no items.
type OrphanSweeper interface {
	DeleteOrphanCalendars(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrphanCalendarWorker removes itemless calendars older than Grace.
type OrphanCalendarWorker struct {
	Store    OrphanSweeper
	Grace    time.Duration // default: 1h
	Interval time.Duration // default: 1h
	Log      *logger.Logger

	now func() time.Time
}

// Start runs one sweep immediately, then one per Interval until ctx is done.
func (w *OrphanCalendarWorker) Start(ctx context.Context) {
	if w.Grace <= 0 {
		w.Grace = time.Hour
	}
	if w.Interval <= 0 {
		w.Interval = time.Hour
	}
	if w.Log == nil {
		w.Log = logger.Nop()
	}
	w.Log = w.Log.With("component", "orphan_sweeper")

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	w.Log.Info("started", "grace", w.Grace, "interval", w.Interval)
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.Log.Info("stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs a single pass and returns the number of deleted calendars.
func (w *OrphanCalendarWorker) Sweep(ctx context.Context) int64 {
	log := w.Log
	if log == nil {
		log = logger.Nop()
	}
	now := time.Now
	if w.now != nil {
		now = w.now
	}
	grace := w.Grace
	if grace <= 0 {
		grace = time.Hour
	}

	deleted, err := w.Store.DeleteOrphanCalendars(ctx, now().Add(-grace))
	if err != nil {
		log.Error("sweep failed", "error", err)
		return 0
	}
	if deleted > 0 {
		log.Info("deleted orphan calendars", "count", deleted)
	}
	return deleted
}
