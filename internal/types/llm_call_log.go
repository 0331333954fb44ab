package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// LLMCallLog records one extraction call for cost accounting and debugging.
type LLMCallLog struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CacheEntryID *uuid.UUID     `gorm:"type:uuid;index" json:"cache_entry_id,omitempty"`
	CallType     string         `gorm:"column:call_type;not null" json:"call_type"`
	Model        string         `gorm:"column:model;not null" json:"model"`
	Success      bool           `gorm:"column:success;not null" json:"success"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	Usage        datatypes.JSON `gorm:"type:jsonb;column:usage" json:"usage,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (LLMCallLog) TableName() string { return "llm_call_log" }
