package models

import (
	"encoding/json"
	"time"
)

// ItemStatus is the lifecycle state of a CalendarItem.
type ItemStatus string

const (
	StatusPlanned          ItemStatus = "planned"
	StatusContentGenerated ItemStatus = "content_generated"
	StatusFailed           ItemStatus = "failed"
)

// AssetType tags the kind of payload a GeneratedAsset carries.
type AssetType string

const (
	AssetGeneratedText      AssetType = "generated_text"
	AssetImagePrompt        AssetType = "image_description_or_prompt"
	AssetVideoScriptConcept AssetType = "video_script_or_concept"
)

type Calendar struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Title      string          `json:"title"`
	UserInputs json.RawMessage `json:"user_inputs"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CalendarItem struct {
	ID                    string          `json:"id"`
	CalendarID            string          `json:"calendar_id"`
	UserID                string          `json:"user_id"`
	PostDate              string          `json:"post_date"`
	PostTime              string          `json:"post_time"`
	PlatformSuggestion    string          `json:"platform_suggestion"`
	ContentTypeSuggestion string          `json:"content_type_suggestion"`
	Details               json.RawMessage `json:"gemini_calendar_item_details"`
	GenerationPrompt      string          `json:"prompt_for_content_generation"`
	Status                ItemStatus      `json:"status"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type GeneratedAsset struct {
	ID             string    `json:"id"`
	CalendarItemID string    `json:"calendar_item_id"`
	UserID         string    `json:"user_id"`
	AssetType      AssetType `json:"asset_type"`
	AssetData      string    `json:"asset_data"`
	PromptUsed     string    `json:"prompt_used"`
	CreatedAt      time.Time `json:"created_at"`
}
