package journal

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Record kinds written by the engine.
const (
	KindStatusTransition = "status_transition"
	KindPaymentConfirm   = "payment_confirm"
	KindRedirect         = "redirect"
	KindAnalytics        = "analytics"
	KindSeatAssignment   = "seat_assignment"
)

// Record is an immutable trace of one reconciliation step: a status
// transition or a one-shot side effect. Rows double as the audit-friendly
// order of seat consumption.
type Record struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	CheckoutID string            `gorm:"type:text;not null;index"`
	Kind       string            `gorm:"type:text;not null;index"`
	FromStatus *string           `gorm:"type:text"`
	ToStatus   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"not null;default:'{}'"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "reconciliation_records" }
