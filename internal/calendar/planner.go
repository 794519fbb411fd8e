package calendar

import (
	"context"

	"github.com/PortNumber53/content-calendar/internal/logger"
	"github.com/PortNumber53/content-calendar/internal/models"
)

// Planner turns a Brief into a persisted Calendar and its planned items.
type Planner struct {
	gen   Generator
	store Store
	log   *logger.Logger
}

func NewPlanner(gen Generator, store Store, log *logger.Logger) *Planner {
	if log == nil {
		log = logger.Nop()
	}
	return &Planner{gen: gen, store: store, log: log.With("component", "planner")}
}

// Plan is the result of a successful planning request.
type Plan struct {
	Calendar models.Calendar
	Items    []models.CalendarItem
}

// PlanCalendar validates brief, asks the generator for a calendar, checks the
// output against the item schema and stores the header with all items.
// Nothing is stored unless every item parses.
func (p *Planner) PlanCalendar(ctx context.Context, userID string, brief Brief) (*Plan, error) {
	if err := brief.Validate(); err != nil {
		return nil, err
	}

	out, err := p.gen.GenerateJSON(ctx, BuildCalendarPrompt(brief))
	if err != nil {
		p.log.Error("calendar generation failed", "userId", userID, "error", err)
		return nil, upstreamError("Failed to generate content calendar.", "", err)
	}

	parsed, err := ParseItems(out)
	if err != nil {
		p.log.Error("calendar output rejected", "userId", userID, "error", err, "rawOutputBytes", len(out))
		return nil, err
	}

	cal := models.Calendar{
		UserID:     userID,
		Title:      brief.EffectiveTitle(),
		UserInputs: brief.Raw(),
	}
	items := make([]models.CalendarItem, 0, len(parsed))
	for i, it := range parsed {
		if len(it.ExtraFields) > 0 {
			p.log.Warn("calendar item has unexpected fields", "userId", userID, "index", i, "fields", it.ExtraFields)
		}
		items = append(items, models.CalendarItem{
			UserID:                userID,
			PostDate:              it.Spec.PostDate,
			PostTime:              it.Spec.PostTime,
			PlatformSuggestion:    it.Spec.PlatformSuggestion,
			ContentTypeSuggestion: it.Spec.ContentTypeSuggestion,
			Details:               it.Raw,
			GenerationPrompt:      it.Spec.DetailedPromptForContentGeneration,
			Status:                models.StatusPlanned,
		})
	}

	savedCal, savedItems, err := p.store.CreateCalendar(ctx, cal, items)
	if err != nil {
		p.log.Error("persist calendar failed", "userId", userID, "error", err)
		return nil, persistenceError("Failed to create content calendar.", err)
	}

	p.log.Info("calendar created", "userId", userID, "calendarId", savedCal.ID, "items", len(savedItems))
	return &Plan{Calendar: savedCal, Items: savedItems}, nil
}
