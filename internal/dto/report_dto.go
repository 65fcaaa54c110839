package dto

import (
	"time"

	"github.com/google/uuid"
)

type GenerateDailyRequest struct {
	Date string `json:"date"`
}

type GenerateWeeklyRequest struct {
	StartDate string `json:"start_date"`
}

type GenerateMonthlyRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// ReportView is a report without its data payload, used in listings.
type ReportView struct {
	ID            uuid.UUID  `json:"id"`
	Type          string     `json:"type"`
	Title         string     `json:"title"`
	EventID       *uuid.UUID `json:"event_id,omitempty"`
	StartDate     time.Time  `json:"start_date"`
	EndDate       time.Time  `json:"end_date"`
	Status        string     `json:"status"`
	GeneratedBy   uuid.UUID  `json:"generated_by"`
	GeneratorName string     `json:"generator_name,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ReportListResponse struct {
	Reports []ReportView `json:"reports"`
	Total   int64        `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

type CleanupResponse struct {
	Deleted int64 `json:"deleted"`
	Days    int   `json:"days"`
}
