package types

import (
	"time"

	"github.com/google/uuid"
)

// Closed pin-function vocabulary. Extraction maps anything it cannot
// classify to PinFunctionOther.
const (
	PinFunctionInputVoltage  = "INPUT_VOLTAGE"
	PinFunctionOutputVoltage = "OUTPUT_VOLTAGE"
	PinFunctionGround        = "GROUND"
	PinFunctionEnable        = "ENABLE"
	PinFunctionFeedback      = "FEEDBACK"
	PinFunctionBootstrap     = "BOOTSTRAP"
	PinFunctionSwitchNode    = "SWITCH_NODE"
	PinFunctionCompensation  = "COMPENSATION"
	PinFunctionSoftStart     = "SOFT_START"
	PinFunctionPowerGood     = "POWER_GOOD"
	PinFunctionFrequency     = "FREQUENCY"
	PinFunctionSync          = "SYNC"
	PinFunctionNC            = "NC"
	PinFunctionAdjust        = "ADJUST"
	PinFunctionOther         = "OTHER"
)

var PinFunctions = []string{
	PinFunctionInputVoltage,
	PinFunctionOutputVoltage,
	PinFunctionGround,
	PinFunctionEnable,
	PinFunctionFeedback,
	PinFunctionBootstrap,
	PinFunctionSwitchNode,
	PinFunctionCompensation,
	PinFunctionSoftStart,
	PinFunctionPowerGood,
	PinFunctionFrequency,
	PinFunctionSync,
	PinFunctionNC,
	PinFunctionAdjust,
	PinFunctionOther,
}

// Pinout is one pin of one component. (component_id, pin_number) is
// unique; extraction replaces pins wholesale by upserting on that pair.
type Pinout struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ComponentID uuid.UUID `gorm:"type:uuid;not null;index:idx_pinout_component_pin,unique,priority:1" json:"component_id"`
	PinNumber   int       `gorm:"column:pin_number;not null;index:idx_pinout_component_pin,unique,priority:2" json:"pin_number"`
	PinName     string    `gorm:"column:pin_name;not null" json:"pin_name"`
	PinFunction string    `gorm:"column:pin_function;not null" json:"pin_function"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Source      string    `gorm:"column:source" json:"source,omitempty"`
	Confidence  float64   `gorm:"column:confidence;not null;default:0" json:"confidence"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Pinout) TableName() string { return "pinout" }
