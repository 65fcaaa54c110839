package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePledgeRequest carries no payment status; pledges made over HTTP start
// pending until the event organizer confirms them.
type CreatePledgeRequest struct {
	EventID     uuid.UUID       `json:"event_id"`
	Amount      decimal.Decimal `json:"amount"`
	IsAnonymous bool            `json:"is_anonymous"`
	Message     string          `json:"message"`
}

type UpdatePledgeStatusRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// PledgeView is the public rendering of a pledge; anonymous donors are masked.
type PledgeView struct {
	ID            uuid.UUID       `json:"id"`
	EventID       uuid.UUID       `json:"event_id"`
	EventTitle    string          `json:"event_title,omitempty"`
	DonorName     string          `json:"donor_name"`
	Amount        decimal.Decimal `json:"amount"`
	IsAnonymous   bool            `json:"is_anonymous"`
	Message       string          `json:"message,omitempty"`
	PaymentStatus string          `json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type PledgeStatusResponse struct {
	PledgeID           uuid.UUID       `json:"pledge_id"`
	PaymentStatus      string          `json:"payment_status"`
	EventID            uuid.UUID       `json:"event_id"`
	EventCurrentAmount decimal.Decimal `json:"event_current_amount"`
	EventFunded        bool            `json:"event_funded"`
}

type ReconcileResponse struct {
	EventID       uuid.UUID       `json:"event_id"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	IsFunded      bool            `json:"is_funded"`
}
