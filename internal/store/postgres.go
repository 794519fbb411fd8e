// Package store persists calendars, items and generated assets in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/PortNumber53/content-calendar/internal/calendar"
	"github.com/PortNumber53/content-calendar/internal/models"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const itemColumns = `id, calendar_id, user_id, post_date, post_time, platform_suggestion,
	content_type_suggestion, gemini_calendar_item_details, prompt_for_content_generation,
	status, created_at, updated_at`

// CreateCalendar inserts the header and every item in one transaction.
func (s *Store) CreateCalendar(ctx context.Context, cal models.Calendar, items []models.CalendarItem) (models.Calendar, []models.CalendarItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Calendar{}, nil, fmt.Errorf("begin calendar tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cal.ID = uuid.NewString()
	inputs := []byte(cal.UserInputs)
	if len(inputs) == 0 {
		inputs = []byte("{}")
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO content_calendars (id, user_id, title, user_inputs)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, cal.ID, cal.UserID, cal.Title, string(inputs)).Scan(&cal.CreatedAt)
	if err != nil {
		return models.Calendar{}, nil, fmt.Errorf("insert calendar: %w", err)
	}

	out := make([]models.CalendarItem, 0, len(items))
	for i, it := range items {
		it.ID = uuid.NewString()
		it.CalendarID = cal.ID
		it.UserID = cal.UserID
		if it.Status == "" {
			it.Status = models.StatusPlanned
		}
		err = tx.QueryRowContext(ctx, `
			INSERT INTO calendar_items (
				id, calendar_id, user_id, post_date, post_time, platform_suggestion,
				content_type_suggestion, gemini_calendar_item_details, prompt_for_content_generation, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`, it.ID, it.CalendarID, it.UserID, it.PostDate, it.PostTime, it.PlatformSuggestion,
			it.ContentTypeSuggestion, string(it.Details), it.GenerationPrompt, string(it.Status),
		).Scan(&it.CreatedAt, &it.UpdatedAt)
		if err != nil {
			return models.Calendar{}, nil, fmt.Errorf("insert calendar item %d: %w", i, err)
		}
		out = append(out, it)
	}

	if err := tx.Commit(); err != nil {
		return models.Calendar{}, nil, fmt.Errorf("commit calendar tx: %w", err)
	}
	return cal, out, nil
}

func (s *Store) GetItem(ctx context.Context, itemID, userID string) (models.CalendarItem, error) {
	if !validID(itemID) {
		return models.CalendarItem{}, calendar.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+`
		FROM calendar_items
		WHERE id = $1 AND user_id = $2
	`, itemID, userID)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CalendarItem{}, calendar.ErrNotFound
	}
	if err != nil {
		return models.CalendarItem{}, fmt.Errorf("get calendar item: %w", err)
	}
	return it, nil
}

// SaveAsset locks the item row, inserts the asset and flips the item to
// content_generated. The unique index on calendar_item_id backs the status check.
func (s *Store) SaveAsset(ctx context.Context, asset models.GeneratedAsset) (models.GeneratedAsset, error) {
	if !validID(asset.CalendarItemID) {
		return models.GeneratedAsset{}, calendar.ErrNotFound
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.GeneratedAsset{}, fmt.Errorf("begin asset tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM calendar_items
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`, asset.CalendarItemID, asset.UserID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GeneratedAsset{}, calendar.ErrNotFound
	}
	if err != nil {
		return models.GeneratedAsset{}, fmt.Errorf("lock calendar item: %w", err)
	}
	if models.ItemStatus(status) != models.StatusPlanned {
		return models.GeneratedAsset{}, calendar.ErrAlreadyMaterialized
	}

	asset.ID = uuid.NewString()
	err = tx.QueryRowContext(ctx, `
		INSERT INTO generated_content_assets (id, calendar_item_id, user_id, asset_type, asset_data, prompt_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (calendar_item_id) DO NOTHING
		RETURNING created_at
	`, asset.ID, asset.CalendarItemID, asset.UserID, string(asset.AssetType), asset.AssetData, asset.PromptUsed).Scan(&asset.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return models.GeneratedAsset{}, calendar.ErrAlreadyMaterialized
	}
	if err != nil {
		return models.GeneratedAsset{}, fmt.Errorf("insert asset: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE calendar_items
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $4
	`, asset.CalendarItemID, asset.UserID, string(models.StatusContentGenerated), string(models.StatusPlanned))
	if err != nil {
		return models.GeneratedAsset{}, fmt.Errorf("update item status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.GeneratedAsset{}, calendar.ErrAlreadyMaterialized
	}

	if err := tx.Commit(); err != nil {
		return models.GeneratedAsset{}, fmt.Errorf("commit asset tx: %w", err)
	}
	return asset, nil
}

func (s *Store) MarkItemFailed(ctx context.Context, itemID, userID string) error {
	if !validID(itemID) {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE calendar_items
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $4
	`, itemID, userID, string(models.StatusFailed), string(models.StatusPlanned))
	if err != nil {
		return fmt.Errorf("mark item failed: %w", err)
	}
	return nil
}

func (s *Store) ListCalendars(ctx context.Context, userID string) ([]models.Calendar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, user_inputs, created_at
		FROM content_calendars
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	out := make([]models.Calendar, 0)
	for rows.Next() {
		c, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetCalendar(ctx context.Context, calendarID, userID string) (models.Calendar, []models.CalendarItem, error) {
	if !validID(calendarID) {
		return models.Calendar{}, nil, calendar.ErrNotFound
	}
	c, err := scanCalendar(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, user_inputs, created_at
		FROM content_calendars
		WHERE id = $1 AND user_id = $2
	`, calendarID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Calendar{}, nil, calendar.ErrNotFound
	}
	if err != nil {
		return models.Calendar{}, nil, fmt.Errorf("get calendar: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+`
		FROM calendar_items
		WHERE calendar_id = $1 AND user_id = $2
		ORDER BY post_date ASC, created_at ASC
	`, calendarID, userID)
	if err != nil {
		return models.Calendar{}, nil, fmt.Errorf("list calendar items: %w", err)
	}
	defer rows.Close()

	items := make([]models.CalendarItem, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return models.Calendar{}, nil, fmt.Errorf("scan calendar item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return models.Calendar{}, nil, err
	}
	return c, items, nil
}

func (s *Store) ListAssets(ctx context.Context, itemID, userID string) ([]models.GeneratedAsset, error) {
	if !validID(itemID) {
		return nil, calendar.ErrNotFound
	}
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM calendar_items WHERE id = $1 AND user_id = $2)
	`, itemID, userID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check calendar item: %w", err)
	}
	if !exists {
		return nil, calendar.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, calendar_item_id, user_id, asset_type, asset_data, prompt_used, created_at
		FROM generated_content_assets
		WHERE calendar_item_id = $1 AND user_id = $2
		ORDER BY created_at ASC
	`, itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	out := make([]models.GeneratedAsset, 0, 1)
	for rows.Next() {
		var a models.GeneratedAsset
		var assetType string
		if err := rows.Scan(&a.ID, &a.CalendarItemID, &a.UserID, &assetType, &a.AssetData, &a.PromptUsed, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.AssetType = models.AssetType(assetType)
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteOrphanCalendars removes calendars without items created before cutoff.
func (s *Store) DeleteOrphanCalendars(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM content_calendars c
		WHERE c.created_at < $1
		  AND NOT EXISTS (SELECT 1 FROM calendar_items i WHERE i.calendar_id = c.id)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete orphan calendars: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalendar(r rowScanner) (models.Calendar, error) {
	var c models.Calendar
	var inputs []byte
	if err := r.Scan(&c.ID, &c.UserID, &c.Title, &inputs, &c.CreatedAt); err != nil {
		return models.Calendar{}, err
	}
	c.UserInputs = json.RawMessage(inputs)
	return c, nil
}

func scanItem(r rowScanner) (models.CalendarItem, error) {
	var it models.CalendarItem
	var details []byte
	var status string
	err := r.Scan(&it.ID, &it.CalendarID, &it.UserID, &it.PostDate, &it.PostTime, &it.PlatformSuggestion,
		&it.ContentTypeSuggestion, &details, &it.GenerationPrompt, &status, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return models.CalendarItem{}, err
	}
	it.Details = json.RawMessage(details)
	it.Status = models.ItemStatus(status)
	return it, nil
}

// validID reports whether id can be compared against a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
