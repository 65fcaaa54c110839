package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportMeta is flattened into every analytics payload.
type ReportMeta struct {
	GeneratedAt time.Time  `json:"generated_at"`
	GeneratedBy *uuid.UUID `json:"generated_by,omitempty"`
}

// Period describes the window a payload covers. EndDate is exclusive.
type Period struct {
	Type      string    `json:"type"`
	Date      string    `json:"date,omitempty"`
	WeekOf    string    `json:"week_of,omitempty"`
	Year      int       `json:"year,omitempty"`
	Month     int       `json:"month,omitempty"`
	MonthName string    `json:"month_name,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// --- daily ---

type DailyStats struct {
	Period    Period         `json:"period"`
	Summary   DailySummary   `json:"summary"`
	Analytics DailyAnalytics `json:"analytics"`
	ReportMeta
}

type DailySummary struct {
	NewUsers          int64           `json:"new_users"`
	NewEvents         int64           `json:"new_events"`
	NewPledges        int64           `json:"new_pledges"`
	TotalPledged      decimal.Decimal `json:"total_pledged"`
	EventsCompleted   int64           `json:"events_completed"`
	PaymentsCompleted int64           `json:"payments_completed"`
}

type DailyAnalytics struct {
	HourlyActivity []HourlyActivity `json:"hourly_activity"`
	TopEvents      []DailyTopEvent  `json:"top_events"`
	UserActivity   []RoleActivity   `json:"user_activity"`
}

type HourlyActivity struct {
	Hour        int             `json:"hour"`
	PledgeCount int64           `json:"pledge_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

type DailyTopEvent struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	DailyPledges int64           `json:"daily_pledges"`
	DailyAmount  decimal.Decimal `json:"daily_amount"`
	TotalRaised  decimal.Decimal `json:"total_raised"`
	TargetAmount decimal.Decimal `json:"target_amount"`
}

type RoleActivity struct {
	Role         string `json:"role"`
	ActiveUsers  int64  `json:"active_users"`
	ActionsTaken int64  `json:"actions_taken"`
}

// --- weekly ---

type WeeklyStats struct {
	Period    Period          `json:"period"`
	Summary   WeeklySummary   `json:"summary"`
	Analytics WeeklyAnalytics `json:"analytics"`
	ReportMeta
}

type WeeklySummary struct {
	NewUsers      int64           `json:"new_users"`
	NewEvents     int64           `json:"new_events"`
	TotalPledges  int64           `json:"total_pledges"`
	TotalPledged  decimal.Decimal `json:"total_pledged"`
	AveragePledge decimal.Decimal `json:"average_pledge"`
}

type WeeklyAnalytics struct {
	DailyBreakdown      []DayBreakdown        `json:"daily_breakdown"`
	TopPerformingEvents []EventPerformance    `json:"top_performing_events"`
	CategoryPerformance []CategoryPerformance `json:"category_performance"`
	UserEngagement      UserEngagement        `json:"user_engagement"`
}

type DayBreakdown struct {
	Date         string          `json:"date"`
	UniqueDonors int64           `json:"unique_donors"`
	PledgeCount  int64           `json:"pledge_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	AvgAmount    decimal.Decimal `json:"avg_amount"`
}

type EventPerformance struct {
	ID                 uuid.UUID       `json:"id"`
	Title              string          `json:"title"`
	Category           string          `json:"category"`
	TargetAmount       decimal.Decimal `json:"target_amount"`
	CurrentAmount      decimal.Decimal `json:"current_amount"`
	WeekPledged        decimal.Decimal `json:"week_pledged"`
	PledgeCount        int64           `json:"pledge_count"`
	UniqueDonors       int64           `json:"unique_donors"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
}

type CategoryPerformance struct {
	Category        string          `json:"category"`
	EventCount      int64           `json:"event_count"`
	PledgeCount     int64           `json:"pledge_count"`
	TotalPledged    decimal.Decimal `json:"total_pledged"`
	AvgPledgeAmount decimal.Decimal `json:"avg_pledge_amount"`
}

type UserEngagement struct {
	NewUsers         int64 `json:"new_users"`
	ActiveDonors     int64 `json:"active_donors"`
	ActiveOrganizers int64 `json:"active_organizers"`
}

// --- monthly ---

type MonthlyStats struct {
	Period         Period           `json:"period"`
	Summary        MonthlySummary   `json:"summary"`
	GrowthAnalysis GrowthAnalysis   `json:"growth_analysis"`
	Analytics      MonthlyAnalytics `json:"analytics"`
	ReportMeta
}

type MonthlySummary struct {
	NewUsers           int64           `json:"new_users"`
	NewEvents          int64           `json:"new_events"`
	CompletedEvents    int64           `json:"completed_events"`
	TotalPledges       int64           `json:"total_pledges"`
	TotalPledged       decimal.Decimal `json:"total_pledged"`
	SuccessfulPayments int64           `json:"successful_payments"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	SuccessRate        decimal.Decimal `json:"success_rate"`
}

// GrowthAnalysis holds percentage change against the previous calendar month.
type GrowthAnalysis struct {
	UserGrowth   decimal.Decimal `json:"user_growth"`
	EventGrowth  decimal.Decimal `json:"event_growth"`
	PledgeGrowth decimal.Decimal `json:"pledge_growth"`
}

type MonthlyAnalytics struct {
	WeeklyBreakdown     []WeekBreakdown          `json:"weekly_breakdown"`
	TopDonors           []TopDonor               `json:"top_donors"`
	TopOrganizers       []TopOrganizer           `json:"top_organizers"`
	CategoryPerformance []CategoryCompletionRate `json:"category_performance"`
}

type WeekBreakdown struct {
	WeekNumber        int             `json:"week_number"`
	StartDate         string          `json:"start_date"`
	EndDate           string          `json:"end_date"`
	PledgeCount       int64           `json:"pledge_count"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	UniqueDonors      int64           `json:"unique_donors"`
	EventsWithPledges int64           `json:"events_with_pledges"`
}

type TopDonor struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	PledgeCount  int64           `json:"pledge_count"`
	TotalDonated decimal.Decimal `json:"total_donated"`
}

type TopOrganizer struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	EventCount  int64           `json:"event_count"`
	TotalRaised decimal.Decimal `json:"total_raised"`
}

type CategoryCompletionRate struct {
	Category           string          `json:"category"`
	TotalEvents        int64           `json:"total_events"`
	CompletedEvents    int64           `json:"completed_events"`
	CompletionRate     decimal.Decimal `json:"completion_rate"`
	TotalPledges       int64           `json:"total_pledges"`
	TotalPledged       decimal.Decimal `json:"total_pledged"`
	AvgPledgeAmount    decimal.Decimal `json:"avg_pledge_amount"`
	SuccessfullyRaised decimal.Decimal `json:"successfully_raised"`
}

// --- event ---

type EventStats struct {
	Period          Period         `json:"period"`
	Event           EventSnapshot  `json:"event"`
	Summary         EventSummary   `json:"summary"`
	Analytics       EventAnalytics `json:"analytics"`
	DetailedPledges []PledgeView   `json:"detailed_pledges"`
	ReportMeta
}

type EventSnapshot struct {
	ID            uuid.UUID       `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	TargetAmount  decimal.Decimal `json:"target_amount"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Organizer     UserRef         `json:"organizer"`
}

type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// EventSummary carries two totals: TotalAmount counts every pledge, while
// ReconciledAmount is the stored running total of completed pledges only.
type EventSummary struct {
	TotalPledges       int64           `json:"total_pledges"`
	UniqueDonors       int64           `json:"unique_donors"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	AveragePledge      decimal.Decimal `json:"average_pledge"`
	ProgressPercentage decimal.Decimal `json:"progress_percentage"`
	TargetReached      bool            `json:"target_reached"`
	AnonymousPledges   int64           `json:"anonymous_pledges"`
	AnonymousTotal     decimal.Decimal `json:"anonymous_total"`
	ReconciledAmount   decimal.Decimal `json:"reconciled_amount"`
	IsFunded           bool            `json:"is_funded"`
}

type EventAnalytics struct {
	PledgeTimeline     []TimelineDay      `json:"pledge_timeline"`
	AmountDistribution AmountDistribution `json:"amount_distribution"`
	PaymentStatus      PaymentBreakdown   `json:"payment_status"`
	TopContributors    []Contributor      `json:"top_contributors"`
	Milestones         []Milestone        `json:"milestones"`
}

type TimelineDay struct {
	Date             string          `json:"date"`
	PledgeCount      int64           `json:"pledge_count"`
	DailyAmount      decimal.Decimal `json:"daily_amount"`
	UniqueDonors     int64           `json:"unique_donors"`
	CumulativeAmount decimal.Decimal `json:"cumulative_amount"`
}

type AmountDistribution struct {
	Under50  int64 `json:"under_50"`
	From50   int64 `json:"50_100"`
	From100  int64 `json:"100_250"`
	From250  int64 `json:"250_500"`
	From500  int64 `json:"500_1000"`
	Over1000 int64 `json:"over_1000"`
}

type PaymentBreakdown struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

type Contributor struct {
	DonorID      uuid.UUID       `json:"donor_id"`
	DonorName    string          `json:"donor_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PledgeCount  int64           `json:"pledge_count"`
	FirstPledge  time.Time       `json:"first_pledge"`
	LatestPledge time.Time       `json:"latest_pledge"`
}

// Milestone records the pledge whose cumulative total first crossed a
// fraction of the target. PledgeNumber is 1-based in chronological order.
type Milestone struct {
	Type         string          `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	AchievedAt   time.Time       `json:"achieved_at"`
	PledgeNumber int             `json:"pledge_number"`
}
