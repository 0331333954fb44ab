package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	CacheStatusPending    = "pending"
	CacheStatusProcessing = "processing"
	CacheStatusCompleted  = "completed"
	CacheStatusFailed     = "failed"
)

// ExtractedPin is one pin as reported by the extraction model.
type ExtractedPin struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Function    string `json:"function"`
	Description string `json:"description,omitempty"`
}

// PackagePinout is the pin list for one package variant described by a
// datasheet, plus the hints used to route it to a concrete component.
type PackagePinout struct {
	Pins []ExtractedPin `json:"pins"`
	// Alternative package spellings the datasheet uses for this variant.
	Aliases []string `json:"aliases,omitempty"`
	// MPN suffix codes that select this variant (e.g. "H" for SOT-89).
	SuffixHints []string `json:"suffix_hints,omitempty"`
}

// DatasheetExtraction is the typed output of one LLM extraction run:
// per-package pin lists plus a flat spec map shared by all variants.
type DatasheetExtraction struct {
	Packages map[string]PackagePinout `json:"packages"`
	Specs    map[string]any           `json:"specs,omitempty"`
}

// DatasheetCacheEntry deduplicates extraction across components that
// share a physical datasheet. Identity is the normalized URL; many
// components may reference one entry. While status is "processing" no
// second extraction may start for the same URL (enforced by the unique
// index, not a lock).
type DatasheetCacheEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	NormalizedURL string    `gorm:"column:normalized_url;not null;uniqueIndex:idx_cache_normalized_url" json:"normalized_url"`
	SourceURL     string    `gorm:"column:source_url;not null" json:"source_url"`
	Status        string    `gorm:"column:status;not null;default:'pending';index" json:"status"`

	// Extracted text, truncated for storage.
	RawText    string `gorm:"column:raw_text" json:"raw_text,omitempty"`
	PageCount  int    `gorm:"column:page_count" json:"page_count,omitempty"`
	TextLength int    `gorm:"column:text_length" json:"text_length,omitempty"`

	Packages datatypes.JSONType[map[string]PackagePinout] `gorm:"type:jsonb;column:packages" json:"packages,omitempty"`
	Specs    datatypes.JSONMap                            `gorm:"type:jsonb;column:specs" json:"specs,omitempty"`

	Model            string  `gorm:"column:model" json:"model,omitempty"`
	PromptTokens     int     `gorm:"column:prompt_tokens" json:"prompt_tokens,omitempty"`
	CompletionTokens int     `gorm:"column:completion_tokens" json:"completion_tokens,omitempty"`
	CostUSD          float64 `gorm:"column:cost_usd" json:"cost_usd,omitempty"`

	Error string `gorm:"column:error" json:"error,omitempty"`

	ExpiresAt time.Time `gorm:"column:expires_at;not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DatasheetCacheEntry) TableName() string { return "datasheet_cache_entry" }
