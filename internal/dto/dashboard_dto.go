package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type GroupCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type EventRanking struct {
	ID                 uuid.UUID       `json:"id"`
	Title              string          `json:"title"`
	Status             string          `json:"status"`
	OrganizerName      string          `json:"organizer_name,omitempty"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	PledgeCount        int64           `json:"pledge_count"`
}

type PlatformOverview struct {
	TotalUsers    int64           `json:"total_users"`
	TotalEvents   int64           `json:"total_events"`
	TotalPledges  int64           `json:"total_pledges"`
	TotalPledged  decimal.Decimal `json:"total_pledged"`
	AveragePledge decimal.Decimal `json:"average_pledge"`
}

type AdminDashboard struct {
	Overview       PlatformOverview `json:"overview"`
	UsersByRole    []GroupCount     `json:"users_by_role"`
	EventsByStatus []GroupCount     `json:"events_by_status"`
	TopEvents      []EventRanking   `json:"top_events"`
	RecentActivity []PledgeView     `json:"recent_activity"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type OrganizerOverview struct {
	TotalEvents     int64           `json:"total_events"`
	ActiveEvents    int64           `json:"active_events"`
	CompletedEvents int64           `json:"completed_events"`
	TotalRaised     decimal.Decimal `json:"total_raised"`
	TotalTarget     decimal.Decimal `json:"total_target"`
	TotalPledges    int64           `json:"total_pledges"`
	AverageRaised   decimal.Decimal `json:"average_raised"`
}

type OrganizerSummary struct {
	Overview  OrganizerOverview `json:"overview"`
	TopEvents []EventRanking    `json:"top_events"`
	AllEvents []EventRanking    `json:"all_events"`
}

type DonorOverview struct {
	TotalPledges    int64            `json:"total_pledges"`
	TotalDonated    decimal.Decimal  `json:"total_donated"`
	AverageDonation decimal.Decimal  `json:"average_donation"`
	EventsSupported int64            `json:"events_supported"`
	PledgesByStatus PaymentBreakdown `json:"pledges_by_status"`
}

type DonorActivity struct {
	Overview DonorOverview `json:"overview"`
	Pledges  []PledgeView  `json:"pledges"`
}
