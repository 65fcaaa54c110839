package services

import (
	"context"
	"slices"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	dashboardTopEvents = 5
	dashboardRecent    = 10
)

// DashboardService serves the role-specific overview pages. Each call reads
// one snapshot through the stats engine.
type DashboardService struct {
	stats *StatsService
}

func NewDashboardService(stats *StatsService) *DashboardService {
	return &DashboardService{stats: stats}
}

func (s *DashboardService) AdminDashboard(ctx context.Context) (*dto.AdminDashboard, error) {
	out := &dto.AdminDashboard{GeneratedAt: s.stats.now()}
	err := s.stats.snapshot(ctx, func(tx *gorm.DB) error {
		o := &out.Overview
		if err := tx.Model(&models.User{}).Count(&o.TotalUsers).Error; err != nil {
			return storeErr(err, nil, "count users")
		}
		if err := tx.Model(&models.Event{}).Count(&o.TotalEvents).Error; err != nil {
			return storeErr(err, nil, "count events")
		}
		pledged, err := windowAggregate(tx, windowQuery{Model: &models.Pledge{}, SumColumn: "amount"})
		if err != nil {
			return err
		}
		o.TotalPledges = pledged.N
		o.TotalPledged = pledged.Total
		o.AveragePledge = Average(pledged.Total, pledged.N)

		if out.UsersByRole, err = groupCounts(tx, &models.User{}, "role"); err != nil {
			return err
		}
		if out.EventsByStatus, err = groupCounts(tx, &models.Event{}, "status"); err != nil {
			return err
		}

		var top []models.Event
		if err := tx.Preload("Organizer", unscoped).
			Order("current_amount DESC").Order("created_at").Order("id").
			Limit(dashboardTopEvents).Find(&top).Error; err != nil {
			return storeErr(err, nil, "load top events")
		}
		if out.TopEvents, err = rankings(tx, top); err != nil {
			return err
		}

		var recent []models.Pledge
		if err := tx.Preload("Donor", unscoped).Preload("Event").
			Order("created_at DESC").Order("id").
			Limit(dashboardRecent).Find(&recent).Error; err != nil {
			return storeErr(err, nil, "load recent pledges")
		}
		out.RecentActivity = make([]dto.PledgeView, len(recent))
		for i := range recent {
			out.RecentActivity[i] = pledgeView(&recent[i], "")
			out.RecentActivity[i].EventTitle = recent[i].Event.Title
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) OrganizerSummary(ctx context.Context, organizerID uuid.UUID) (*dto.OrganizerSummary, error) {
	out := &dto.OrganizerSummary{}
	err := s.stats.snapshot(ctx, func(tx *gorm.DB) error {
		var events []models.Event
		if err := tx.Where("organizer_id = ?", organizerID).
			Order("created_at").Order("id").
			Find(&events).Error; err != nil {
			return storeErr(err, nil, "load events")
		}
		all, err := rankings(tx, events)
		if err != nil {
			return err
		}
		out.AllEvents = all

		o := &out.Overview
		o.TotalRaised, o.TotalTarget = decimal.Zero, decimal.Zero
		for i, e := range events {
			o.TotalEvents++
			switch e.Status {
			case models.EventStatusActive:
				o.ActiveEvents++
			case models.EventStatusCompleted:
				o.CompletedEvents++
			}
			o.TotalRaised = o.TotalRaised.Add(e.CurrentAmount)
			o.TotalTarget = o.TotalTarget.Add(e.TargetAmount)
			o.TotalPledges += all[i].PledgeCount
		}
		o.AverageRaised = Average(o.TotalRaised, o.TotalEvents)

		// all is oldest first; the stable sort leaves ties with the earlier event
		top := slices.Clone(all)
		slices.SortStableFunc(top, func(a, b dto.EventRanking) int {
			return b.CurrentAmount.Cmp(a.CurrentAmount)
		})
		out.TopEvents = top[:min(len(top), dashboardTopEvents)]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *DashboardService) DonorActivity(ctx context.Context, donorID uuid.UUID) (*dto.DonorActivity, error) {
	out := &dto.DonorActivity{}
	err := s.stats.snapshot(ctx, func(tx *gorm.DB) error {
		var pledges []models.Pledge
		if err := tx.Preload("Donor", unscoped).Preload("Event").
			Where("donor_id = ?", donorID).
			Order("created_at DESC").Order("id").
			Find(&pledges).Error; err != nil {
			return storeErr(err, nil, "load pledges")
		}

		o := &out.Overview
		o.TotalDonated = decimal.Zero
		events := make(map[uuid.UUID]struct{})
		out.Pledges = make([]dto.PledgeView, len(pledges))
		for i := range pledges {
			p := &pledges[i]
			o.TotalPledges++
			o.TotalDonated = o.TotalDonated.Add(p.Amount)
			events[p.EventID] = struct{}{}
			switch p.PaymentStatus {
			case models.PaymentPending:
				o.PledgesByStatus.Pending++
			case models.PaymentCompleted:
				o.PledgesByStatus.Completed++
			case models.PaymentFailed:
				o.PledgesByStatus.Failed++
			}
			out.Pledges[i] = pledgeView(p, p.Donor.Name)
			out.Pledges[i].EventTitle = p.Event.Title
		}
		o.AverageDonation = Average(o.TotalDonated, o.TotalPledges)
		o.EventsSupported = int64(len(events))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EventAnalytics is the event report computed on demand, restricted to the
// event's organizer and admins.
func (s *DashboardService) EventAnalytics(ctx context.Context, actorID uuid.UUID, isAdmin bool, eventID uuid.UUID) (*dto.EventStats, error) {
	if !isAdmin {
		lookup, cancel := context.WithTimeout(ctx, s.stats.timeout)
		defer cancel()
		var event models.Event
		err := s.stats.db.WithContext(lookup).Select("id", "organizer_id").First(&event, "id = ?", eventID).Error
		if err != nil {
			return nil, storeErr(err, ErrEventNotFound, "load event")
		}
		if event.OrganizerID != actorID {
			return nil, forbiddenf("not authorized to view analytics for this event")
		}
	}
	return s.stats.EventReport(ctx, eventID)
}

func groupCounts(tx *gorm.DB, model any, col string) ([]dto.GroupCount, error) {
	var rows []struct {
		Grp string
		N   int64
	}
	if err := tx.Model(model).Select(col + " AS grp, COUNT(*) AS n").
		Group(col).Order(col).Scan(&rows).Error; err != nil {
		return nil, storeErr(err, nil, "group "+col)
	}
	out := make([]dto.GroupCount, len(rows))
	for i, r := range rows {
		out[i] = dto.GroupCount{Key: r.Grp, Count: r.N}
	}
	return out, nil
}

// rankings renders events in the given order with their pledge counts.
func rankings(tx *gorm.DB, events []models.Event) ([]dto.EventRanking, error) {
	out := make([]dto.EventRanking, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}
	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	var rows []struct {
		EventID uuid.UUID
		N       int64
	}
	if err := tx.Model(&models.Pledge{}).Select("event_id, COUNT(*) AS n").
		Where("event_id IN ?", ids).Group("event_id").Scan(&rows).Error; err != nil {
		return nil, storeErr(err, nil, "count pledges")
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, r := range rows {
		counts[r.EventID] = r.N
	}
	for _, e := range events {
		out = append(out, dto.EventRanking{
			ID:                 e.ID,
			Title:              e.Title,
			Status:             e.Status,
			OrganizerName:      e.Organizer.Name,
			CurrentAmount:      e.CurrentAmount,
			TargetAmount:       e.TargetAmount,
			ProgressPercentage: Percent(e.CurrentAmount, e.TargetAmount),
			PledgeCount:        counts[e.ID],
		})
	}
	return out, nil
}
