package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ImportJobQueued    = "queued"
	ImportJobRunning   = "running"
	ImportJobCompleted = "completed"
	ImportJobCancelled = "cancelled"
)

const (
	ImportKindBatch  = "batch"
	ImportKindFamily = "family"
)

// ImportJob is the persisted bookkeeping for one batch or family import.
// Processed and the counters are updated after every item, so a caller
// polling mid-batch sees monotonically increasing progress.
type ImportJob struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Kind   string    `gorm:"column:kind;not null" json:"kind"`
	Status string    `gorm:"column:status;not null;default:'queued';index" json:"status"`

	Total        int `gorm:"column:total;not null;default:0" json:"total"`
	Processed    int `gorm:"column:processed;not null;default:0" json:"processed"`
	Added        int `gorm:"column:added;not null;default:0" json:"added"`
	Updated      int `gorm:"column:updated;not null;default:0" json:"updated"`
	Skipped      int `gorm:"column:skipped;not null;default:0" json:"skipped"`
	PinoutsFound int `gorm:"column:pinouts_found;not null;default:0" json:"pinouts_found"`

	// Per-item error strings, capped by the orchestrator.
	Errors datatypes.JSONSlice[string] `gorm:"type:jsonb;column:errors" json:"errors,omitempty"`

	// Cancellation is cooperative: the orchestrator checks this flag once
	// per loop iteration and stops before the next item.
	CancelRequested bool `gorm:"column:cancel_requested;not null;default:false" json:"cancel_requested"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ImportJob) TableName() string { return "import_job" }
