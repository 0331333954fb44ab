package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LifecycleActive   = "Active"
	LifecycleNRND     = "NRND"
	LifecycleObsolete = "Obsolete"
	LifecycleUnknown  = "Unknown"
)

const (
	MountingSMD = "SMD"
	MountingTHT = "THT"
)

const (
	PinoutSourceDatasheetCache   = "datasheet_cache"
	PinoutSourceDirectExtraction = "direct_extraction"
	PinoutSourceManual           = "manual"
)

// Component is one physical part. Natural key is (mpn, manufacturer);
// ingestion upserts on that pair.
type Component struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	MPN          string    `gorm:"column:mpn;not null;index:idx_component_mpn_mfr,unique,priority:1" json:"mpn"`
	Manufacturer string    `gorm:"column:manufacturer;not null;index:idx_component_mpn_mfr,unique,priority:2" json:"manufacturer"`
	Description  string    `gorm:"column:description" json:"description,omitempty"`

	PackageRaw        string `gorm:"column:package_raw" json:"package_raw,omitempty"`
	PackageNormalized string `gorm:"column:package_normalized;index" json:"package_normalized,omitempty"`
	PinCount          *int   `gorm:"column:pin_count" json:"pin_count,omitempty"`
	// SMD | THT | "" when the package gives no signal.
	MountingStyle string `gorm:"column:mounting_style" json:"mounting_style,omitempty"`

	// Flat electrical spec map, keys like vin_min, vout_max, iout_max.
	Specs datatypes.JSONMap `gorm:"type:jsonb;column:specs" json:"specs,omitempty"`

	LifecycleStatus string                      `gorm:"column:lifecycle_status;not null;default:'Unknown'" json:"lifecycle_status"`
	DataSources     datatypes.JSONSlice[string] `gorm:"type:jsonb;column:data_sources" json:"data_sources,omitempty"`
	Confidence      float64                     `gorm:"column:confidence;not null;default:0" json:"confidence"`

	DatasheetURL     string              `gorm:"column:datasheet_url" json:"datasheet_url,omitempty"`
	DatasheetCacheID *uuid.UUID          `gorm:"type:uuid;column:datasheet_cache_id;index" json:"datasheet_cache_id,omitempty"`
	DatasheetCache   *DatasheetCacheEntry `gorm:"foreignKey:DatasheetCacheID;references:ID" json:"datasheet_cache,omitempty"`

	// Package-variant code isolated from the MPN, used to disambiguate
	// multi-package datasheets. Best effort, may be empty.
	MPNSuffix string `gorm:"column:mpn_suffix" json:"mpn_suffix,omitempty"`
	// datasheet_cache | direct_extraction | manual
	PinoutSource string `gorm:"column:pinout_source" json:"pinout_source,omitempty"`

	Pins []Pinout `gorm:"foreignKey:ComponentID;references:ID" json:"pins,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Component) TableName() string { return "component" }
