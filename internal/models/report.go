package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ReportDaily   = "daily"
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
	ReportEvent   = "event"

	ReportStatusPending   = "pending"
	ReportStatusCompleted = "completed"
	ReportStatusFailed    = "failed"
)

// Report is a materialized analytics snapshot. Rows are write-once and only
// removed by age-based cleanup.
type Report struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Type        string         `gorm:"size:20;not null;index" json:"type"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	EventID     *uuid.UUID     `gorm:"type:uuid;index" json:"event_id,omitempty"`
	StartDate   time.Time      `gorm:"not null" json:"start_date"`
	EndDate     time.Time      `gorm:"not null" json:"end_date"`
	Data        datatypes.JSON `gorm:"type:jsonb;not null" json:"data"`
	Status      string         `gorm:"size:20;not null;default:'pending';index" json:"status"`
	GeneratedBy uuid.UUID      `gorm:"type:uuid;not null;index" json:"generated_by"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Generator   User           `gorm:"foreignKey:GeneratedBy" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func IsValidReportType(t string) bool {
	switch t {
	case ReportDaily, ReportWeekly, ReportMonthly, ReportEvent:
		return true
	}
	return false
}
