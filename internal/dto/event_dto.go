package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateEventRequest struct {
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Category     string          `json:"category"`
	ImageURL     string          `json:"image_url"`
	EndDate      *time.Time      `json:"end_date"`
}

// UpdateEventRequest applies only the fields that are present.
type UpdateEventRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	TargetAmount *decimal.Decimal `json:"target_amount"`
	Category     *string          `json:"category"`
	ImageURL     *string          `json:"image_url"`
	EndDate      *time.Time       `json:"end_date"`
}

type ModerationRequest struct {
	Reason string `json:"reason"`
}

type EventView struct {
	ID                 uuid.UUID       `json:"id"`
	OrganizerID        uuid.UUID       `json:"organizer_id"`
	OrganizerName      string          `json:"organizer_name"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	IsFunded           bool            `json:"is_funded"`
	Category           string          `json:"category,omitempty"`
	ImageURL           string          `json:"image_url,omitempty"`
	Status             string          `json:"status"`
	Flagged            bool            `json:"flagged,omitempty"`
	FlagReason         string          `json:"flag_reason,omitempty"`
	StartDate          time.Time       `json:"start_date"`
	EndDate            *time.Time      `json:"end_date,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type EventListResponse struct {
	Events []EventView `json:"events"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
