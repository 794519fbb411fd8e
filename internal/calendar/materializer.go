package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PortNumber53/content-calendar/internal/logger"
	"github.com/PortNumber53/content-calendar/internal/models"
)

const markFailedTimeout = 5 * time.Second

// Materializer generates the content asset for one planned calendar item.
//
// An item is materialized at most once. Items that already left the planned
// state are rejected with a conflict and keep their status.
type Materializer struct {
	gen        Generator
	store      Store
	classifier AssetClassifier
	locker     Locker
	log        *logger.Logger
}

type MaterializerOption func(*Materializer)

func WithClassifier(c AssetClassifier) MaterializerOption {
	return func(m *Materializer) {
		if c != nil {
			m.classifier = c
		}
	}
}

func WithLocker(l Locker) MaterializerOption {
	return func(m *Materializer) {
		if l != nil {
			m.locker = l
		}
	}
}

func NewMaterializer(gen Generator, store Store, log *logger.Logger, opts ...MaterializerOption) *Materializer {
	if log == nil {
		log = logger.Nop()
	}
	m := &Materializer{
		gen:        gen,
		store:      store,
		classifier: DefaultClassifier,
		locker:     noopLocker{},
		log:        log.With("component", "materializer"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MaterializeItem generates and stores the asset for itemID. Once the item has
// been located, any failure other than a conflict flips it to failed.
func (m *Materializer) MaterializeItem(ctx context.Context, userID, itemID string) (models.GeneratedAsset, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return models.GeneratedAsset{}, clientError("calendar_item_id is required.")
	}

	item, err := m.store.GetItem(ctx, itemID, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.Error("load calendar item failed", "userId", userID, "itemId", itemID, "error", err)
		}
		return models.GeneratedAsset{}, notFoundError("Calendar item not found or access denied.", nil)
	}
	if err := checkPlanned(item.Status); err != nil {
		return models.GeneratedAsset{}, err
	}

	release, acquired, err := m.locker.Acquire(ctx, "calendar-item:"+item.ID)
	locked := err == nil
	if err != nil {
		// The store's planned-only transition still prevents double writes.
		m.log.Warn("materialize lock unavailable", "itemId", item.ID, "error", err)
		release, acquired = func() {}, true
	}
	if !acquired {
		return models.GeneratedAsset{}, conflictError("Content generation for this item is already in progress.")
	}
	defer release()

	// A previous holder may have finished between the first read and Acquire.
	if _, noop := m.locker.(noopLocker); locked && !noop {
		if item, err = m.store.GetItem(ctx, itemID, userID); err != nil {
			m.log.Error("reload calendar item failed", "userId", userID, "itemId", itemID, "error", err)
			return models.GeneratedAsset{}, notFoundError("Calendar item not found or access denied.", nil)
		}
		if err := checkPlanned(item.Status); err != nil {
			return models.GeneratedAsset{}, err
		}
	}

	asset, err := m.generate(ctx, item)
	if err != nil {
		if KindOf(err) != KindConflict {
			m.markFailed(ctx, item)
		}
		return models.GeneratedAsset{}, err
	}

	m.log.Info("content item generated", "userId", userID, "itemId", item.ID, "assetId", asset.ID, "assetType", asset.AssetType)
	return asset, nil
}

func (m *Materializer) generate(ctx context.Context, item models.CalendarItem) (models.GeneratedAsset, error) {
	prompt := item.GenerationPrompt
	if strings.TrimSpace(prompt) == "" {
		return models.GeneratedAsset{}, clientError("No content generation prompt found for this item.")
	}

	text, err := m.gen.GenerateText(ctx, prompt)
	if err != nil {
		m.log.Error("content generation failed", "itemId", item.ID, "error", err)
		return models.GeneratedAsset{}, upstreamError("Failed to create content item.", "", err)
	}
	if strings.TrimSpace(text) == "" {
		return models.GeneratedAsset{}, upstreamError("AI returned empty content.", text, nil)
	}

	saved, err := m.store.SaveAsset(ctx, models.GeneratedAsset{
		CalendarItemID: item.ID,
		UserID:         item.UserID,
		AssetType:      m.classifier.Classify(item.ContentTypeSuggestion),
		AssetData:      text,
		PromptUsed:     prompt,
	})
	if errors.Is(err, ErrAlreadyMaterialized) {
		return models.GeneratedAsset{}, conflictError("Content has already been generated for this item.")
	}
	if err != nil {
		m.log.Error("persist asset failed", "itemId", item.ID, "error", err)
		return models.GeneratedAsset{}, persistenceError("Failed to create content item.", err)
	}
	return saved, nil
}

// markFailed is best effort. Its own error is logged and dropped so the
// caller still sees the original failure.
func (m *Materializer) markFailed(ctx context.Context, item models.CalendarItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markFailedTimeout)
	defer cancel()
	if err := m.store.MarkItemFailed(ctx, item.ID, item.UserID); err != nil {
		m.log.Error("mark calendar item failed", "itemId", item.ID, "error", err)
	}
}

func checkPlanned(s models.ItemStatus) error {
	switch s {
	case models.StatusPlanned:
		return nil
	case models.StatusContentGenerated:
		return conflictError("Content has already been generated for this item.")
	case models.StatusFailed:
		return conflictError("Content generation previously failed for this item.")
	default:
		return conflictError("Calendar item is not in the planned state.")
	}
}
