package calendar

import (
	"context"

	"github.com/PortNumber53/content-calendar/internal/models"
)

// Generator is the generative-text capability.
type Generator interface {
	// GenerateText returns free-form text for prompt.
	GenerateText(ctx context.Context, prompt string) (string, error)
	// GenerateJSON asks the model for a JSON document. The result is not validated.
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// Store persists calendars, items and assets. Lookups are always owner scoped:
// a row owned by another user yields ErrNotFound.
type Store interface {
	// CreateCalendar writes the header and all items as one unit and returns
	// them with ids and timestamps assigned.
	CreateCalendar(ctx context.Context, cal models.Calendar, items []models.CalendarItem) (models.Calendar, []models.CalendarItem, error)
	GetItem(ctx context.Context, itemID, userID string) (models.CalendarItem, error)
	// SaveAsset inserts the asset and moves its item from planned to
	// content_generated. It returns ErrAlreadyMaterialized when the item is no
	// longer planned or already has an asset.
	SaveAsset(ctx context.Context, asset models.GeneratedAsset) (models.GeneratedAsset, error)
	// MarkItemFailed moves a planned item to failed. Other states are left alone.
	MarkItemFailed(ctx context.Context, itemID, userID string) error
}

// Locker serializes work on a key across processes. release must be safe to
// call once acquired is true.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), acquired bool, err error)
}

type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), bool, error) {
	return func() {}, true, nil
}
