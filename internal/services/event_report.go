package services

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var milestoneSteps = []struct {
	label   string
	percent int64
}{
	{"25%", 25},
	{"50%", 50},
	{"75%", 75},
	{"100%", 100},
}

var (
	fifty       = decimal.NewFromInt(50)
	twoFifty    = decimal.NewFromInt(250)
	fiveHundred = decimal.NewFromInt(500)
	thousand    = decimal.NewFromInt(1000)
)

// EventReport computes full analytics for one event over all of its pledges.
func (s *StatsService) EventReport(ctx context.Context, eventID uuid.UUID) (*dto.EventStats, error) {
	var out *dto.EventStats
	err := s.snapshot(ctx, func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Preload("Organizer", unscoped).First(&event, "id = ?", eventID).Error; err != nil {
			return storeErr(err, ErrEventNotFound, "load event")
		}

		var pledges []models.Pledge
		if err := tx.Preload("Donor", unscoped).
			Where("event_id = ?", eventID).
			Order("created_at").Order("id").
			Find(&pledges).Error; err != nil {
			return storeErr(err, nil, "load pledges")
		}

		out = buildEventStats(&event, pledges, s.now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// buildEventStats expects pledges in chronological order.
func buildEventStats(event *models.Event, pledges []models.Pledge, now time.Time) *dto.EventStats {
	out := &dto.EventStats{
		Period: dto.Period{
			Type:      models.ReportEvent,
			StartDate: event.CreatedAt,
			EndDate:   now,
		},
		Event: dto.EventSnapshot{
			ID:            event.ID,
			Title:         event.Title,
			Description:   event.Description,
			Category:      event.Category,
			Status:        event.Status,
			TargetAmount:  event.TargetAmount,
			CurrentAmount: event.CurrentAmount,
			CreatedAt:     event.CreatedAt,
			UpdatedAt:     event.UpdatedAt,
			Organizer:     dto.UserRef{ID: event.OrganizerID, Name: event.Organizer.Name},
		},
		ReportMeta: dto.ReportMeta{GeneratedAt: now},
	}

	all := newRollup[struct{}]()
	days := newRollup[string]()
	contributors := newRollup[uuid.UUID]()
	names := make(map[uuid.UUID]string)
	anon := decimal.Zero
	var anonCount int64

	a := &out.Analytics
	out.DetailedPledges = make([]dto.PledgeView, 0, len(pledges))
	for i := range pledges {
		p := &pledges[i]
		f := fact{Amount: p.Amount, Actor: p.DonorID, At: p.CreatedAt}
		all.add(struct{}{}, f)
		days.add(dateKey(p.CreatedAt), f)

		if p.IsAnonymous {
			anonCount++
			anon = anon.Add(p.Amount)
		} else {
			contributors.add(p.DonorID, f)
			names[p.DonorID] = donorDisplayName(p)
		}

		switch p.PaymentStatus {
		case models.PaymentPending:
			a.PaymentStatus.Pending++
		case models.PaymentCompleted:
			a.PaymentStatus.Completed++
		case models.PaymentFailed:
			a.PaymentStatus.Failed++
		}
		bucketAmount(&a.AmountDistribution, p.Amount)
		out.DetailedPledges = append(out.DetailedPledges, pledgeView(p, ""))
	}

	total := all.get(struct{}{})
	out.Summary = dto.EventSummary{
		TotalPledges:       total.Count,
		UniqueDonors:       total.Actors(),
		TotalAmount:        total.Sum,
		AveragePledge:      total.Average(),
		ProgressPercentage: Percent(total.Sum, event.TargetAmount),
		TargetReached:      total.Sum.GreaterThanOrEqual(event.TargetAmount),
		AnonymousPledges:   anonCount,
		AnonymousTotal:     anon,
		ReconciledAmount:   event.CurrentAmount,
		IsFunded:           event.IsFunded(),
	}

	a.PledgeTimeline = make([]dto.TimelineDay, 0, days.len())
	cumulative := decimal.Zero
	for _, day := range days.keys {
		b := days.get(day)
		cumulative = cumulative.Add(b.Sum)
		a.PledgeTimeline = append(a.PledgeTimeline, dto.TimelineDay{
			Date:             day,
			PledgeCount:      b.Count,
			DailyAmount:      b.Sum,
			UniqueDonors:     b.Actors(),
			CumulativeAmount: cumulative,
		})
	}

	top := contributors.top(eventContributors, bySum, uuidKey)
	a.TopContributors = make([]dto.Contributor, 0, len(top))
	for _, id := range top {
		b := contributors.get(id)
		a.TopContributors = append(a.TopContributors, dto.Contributor{
			DonorID:      id,
			DonorName:    names[id],
			TotalAmount:  b.Sum,
			PledgeCount:  b.Count,
			FirstPledge:  b.First,
			LatestPledge: b.Latest,
		})
	}

	a.Milestones = milestones(event.TargetAmount, pledges)
	return out
}

// milestones walks pledges in order and records, once each, the pledge whose
// cumulative total first reaches 25/50/75/100% of target. One pledge may
// cross several thresholds.
func milestones(target decimal.Decimal, pledges []models.Pledge) []dto.Milestone {
	out := make([]dto.Milestone, 0, len(milestoneSteps))
	running := decimal.Zero
	next := 0
	for i := range pledges {
		if next == len(milestoneSteps) {
			break
		}
		running = running.Add(pledges[i].Amount)
		for next < len(milestoneSteps) {
			step := milestoneSteps[next]
			threshold := target.Mul(decimal.NewFromInt(step.percent)).Div(hundred)
			if running.LessThan(threshold) {
				break
			}
			out = append(out, dto.Milestone{
				Type:         step.label,
				Amount:       threshold,
				AchievedAt:   pledges[i].CreatedAt,
				PledgeNumber: i + 1,
			})
			next++
		}
	}
	return out
}

func bucketAmount(d *dto.AmountDistribution, amount decimal.Decimal) {
	switch {
	case amount.LessThan(fifty):
		d.Under50++
	case amount.LessThan(hundred):
		d.From50++
	case amount.LessThan(twoFifty):
		d.From100++
	case amount.LessThan(fiveHundred):
		d.From250++
	case amount.LessThan(thousand):
		d.From500++
	default:
		d.Over1000++
	}
}
