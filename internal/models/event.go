package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	EventStatusPending   = "pending"
	EventStatusActive    = "active"
	EventStatusCompleted = "completed"
	EventStatusRejected  = "rejected"
)

// Event is a fundraising campaign. CurrentAmount is derived from completed
// pledges and is only written by the reconciliation path.
type Event struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizerID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"organizer_id"`
	Title         string          `gorm:"size:200;not null" json:"title"`
	Description   string          `gorm:"type:text;not null" json:"description"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"target_amount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"current_amount"`
	Category      string          `gorm:"size:50;index" json:"category"`
	ImageURL      string          `gorm:"size:500" json:"image_url,omitempty"`
	Status        string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	Flagged       bool            `gorm:"not null;default:false;index" json:"flagged"`
	FlagReason    string          `gorm:"size:500" json:"flag_reason,omitempty"`
	FlaggedAt     *time.Time      `json:"flagged_at,omitempty"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"index" json:"updated_at"`
	Organizer     User            `gorm:"foreignKey:OrganizerID" json:"-"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// IsFunded reports whether the reconciled total has reached the target.
func (e *Event) IsFunded() bool {
	return e.CurrentAmount.GreaterThanOrEqual(e.TargetAmount)
}
