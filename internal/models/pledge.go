package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// Pledge is immutable after creation except for PaymentStatus.
type Pledge struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"event_id"`
	DonorID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"donor_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	IsAnonymous   bool            `gorm:"not null;default:false" json:"is_anonymous"`
	Message       string          `gorm:"size:500" json:"message,omitempty"`
	PaymentStatus string          `gorm:"size:20;not null;default:'pending';index" json:"payment_status"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"index" json:"updated_at"`
	Event         Event           `gorm:"foreignKey:EventID" json:"-"`
	Donor         User            `gorm:"foreignKey:DonorID" json:"-"`
}

func (p *Pledge) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}
