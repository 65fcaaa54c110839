package services

import (
	"cmp"
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	dailyTopEvents    = 5
	weeklyTopEvents   = 10
	monthlyTopDonors  = 5
	monthlyTopOrgs    = 5
	eventContributors = 10

	minYear = 2000
	maxYear = 2100
)

// StatsService computes windowed and per-event analytics. It never writes.
type StatsService struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time
}

func NewStatsService(db *gorm.DB, cfg *config.Config) *StatsService {
	return &StatsService{
		db:      db,
		timeout: cfg.DBTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// snapshot runs fn in a single read transaction so every figure in one
// payload comes from the same view of the data.
func (s *StatsService) snapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	db := s.db.WithContext(ctx)
	var err error
	if opts := database.SnapshotOptions(s.db); opts != nil {
		err = db.Transaction(fn, opts)
	} else {
		err = db.Transaction(fn)
	}
	return storeErr(err, nil, "read analytics")
}

// pledgeRow is the slice of a pledge the analytics need.
type pledgeRow struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	DonorID       uuid.UUID
	Amount        decimal.Decimal
	PaymentStatus string
	IsAnonymous   bool
	CreatedAt     time.Time
}

func (r pledgeRow) fact() fact {
	return fact{Amount: r.Amount, Actor: r.DonorID, Item: r.EventID, At: r.CreatedAt}
}

func pledgesIn(tx *gorm.DB, w Window) ([]pledgeRow, error) {
	var rows []pledgeRow
	err := tx.Model(&models.Pledge{}).
		Select("id, event_id, donor_id, amount, payment_status, is_anonymous, created_at").
		Where("created_at >= ? AND created_at < ?", w.Start, w.End).
		Order("created_at").Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, storeErr(err, nil, "load pledges")
	}
	return rows, nil
}

func eventsByID(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.Event, error) {
	out := make(map[uuid.UUID]models.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var events []models.Event
	if err := tx.Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, storeErr(err, nil, "load events")
	}
	for _, e := range events {
		out[e.ID] = e
	}
	return out, nil
}

func usersByID(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]models.User, error) {
	out := make(map[uuid.UUID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := tx.Unscoped().Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, storeErr(err, nil, "load users")
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// Daily covers the UTC calendar day containing date.
func (s *StatsService) Daily(ctx context.Context, date time.Time) (*dto.DailyStats, error) {
	w := DayWindow(date)
	out := &dto.DailyStats{
		Period: dto.Period{
			Type:      models.ReportDaily,
			Date:      dateKey(w.Start),
			StartDate: w.Start,
			EndDate:   w.End,
		},
	}

	err := s.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		sum := &out.Summary
		if sum.NewUsers, err = countIn(tx, &models.User{}, "created_at", w); err != nil {
			return err
		}
		if sum.NewEvents, err = countIn(tx, &models.Event{}, "created_at", w); err != nil {
			return err
		}
		pledged, err := windowAggregate(tx, windowQuery{Model: &models.Pledge{}, Window: w, SumColumn: "amount"})
		if err != nil {
			return err
		}
		sum.NewPledges, sum.TotalPledged = pledged.N, pledged.Total
		if sum.EventsCompleted, err = countIn(tx, &models.Event{}, "updated_at", w,
			where("status = ?", models.EventStatusCompleted)); err != nil {
			return err
		}
		if sum.PaymentsCompleted, err = countIn(tx, &models.Pledge{}, "updated_at", w,
			where("payment_status = ?", models.PaymentCompleted)); err != nil {
			return err
		}

		rows, err := pledgesIn(tx, w)
		if err != nil {
			return err
		}
		hours := newRollup[int]()
		perEvent := newRollup[uuid.UUID]()
		for _, r := range rows {
			hours.add(r.CreatedAt.UTC().Hour(), r.fact())
			perEvent.add(r.EventID, r.fact())
		}

		out.Analytics.HourlyActivity = make([]dto.HourlyActivity, 0, hours.len())
		for _, h := range hours.sorted(cmp.Compare[int]) {
			b := hours.get(h)
			out.Analytics.HourlyActivity = append(out.Analytics.HourlyActivity, dto.HourlyActivity{
				Hour:        h,
				PledgeCount: b.Count,
				TotalAmount: b.Sum,
			})
		}

		top := perEvent.top(dailyTopEvents, byCount, uuidKey)
		events, err := eventsByID(tx, top)
		if err != nil {
			return err
		}
		out.Analytics.TopEvents = make([]dto.DailyTopEvent, 0, len(top))
		for _, id := range top {
			b, e := perEvent.get(id), events[id]
			out.Analytics.TopEvents = append(out.Analytics.TopEvents, dto.DailyTopEvent{
				ID:           id,
				Title:        e.Title,
				DailyPledges: b.Count,
				DailyAmount:  b.Sum,
				TotalRaised:  e.CurrentAmount,
				TargetAmount: e.TargetAmount,
			})
		}

		out.Analytics.UserActivity, err = roleActivity(tx, w, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.GeneratedAt = s.now()
	return out, nil
}

// roleActivity counts, per role, users who logged in, pledged or created an
// event inside w, and the pledges plus events they produced.
func roleActivity(tx *gorm.DB, w Window, rows []pledgeRow) ([]dto.RoleActivity, error) {
	actions := make(map[uuid.UUID]int64)
	for _, r := range rows {
		actions[r.DonorID]++
	}

	var organizers []uuid.UUID
	if err := tx.Model(&models.Event{}).
		Where("created_at >= ? AND created_at < ?", w.Start, w.End).
		Pluck("organizer_id", &organizers).Error; err != nil {
		return nil, storeErr(err, nil, "load event organizers")
	}
	for _, id := range organizers {
		actions[id]++
	}

	var loggedIn []uuid.UUID
	if err := tx.Model(&models.User{}).
		Where("last_login >= ? AND last_login < ?", w.Start, w.End).
		Pluck("id", &loggedIn).Error; err != nil {
		return nil, storeErr(err, nil, "load active users")
	}
	for _, id := range loggedIn {
		if _, ok := actions[id]; !ok {
			actions[id] = 0
		}
	}

	ids := make([]uuid.UUID, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	users, err := usersByID(tx, ids)
	if err != nil {
		return nil, err
	}

	roles := []string{models.RoleDonor, models.RoleOrganizer, models.RoleAdmin}
	byRole := make(map[string]*dto.RoleActivity, len(roles))
	out := make([]dto.RoleActivity, len(roles))
	for i, role := range roles {
		out[i].Role = role
		byRole[role] = &out[i]
	}
	for id, n := range actions {
		ra, ok := byRole[users[id].Role]
		if !ok {
			continue
		}
		ra.ActiveUsers++
		ra.ActionsTaken += n
	}
	return out, nil
}

// Weekly covers seven UTC days starting on start.
func (s *StatsService) Weekly(ctx context.Context, start time.Time) (*dto.WeeklyStats, error) {
	w := WeekWindow(start)
	out := &dto.WeeklyStats{
		Period: dto.Period{
			Type:      models.ReportWeekly,
			WeekOf:    dateKey(w.Start),
			StartDate: w.Start,
			EndDate:   w.End,
		},
	}

	err := s.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		sum := &out.Summary
		if sum.NewUsers, err = countIn(tx, &models.User{}, "created_at", w); err != nil {
			return err
		}
		if sum.NewEvents, err = countIn(tx, &models.Event{}, "created_at", w); err != nil {
			return err
		}
		pledged, err := windowAggregate(tx, windowQuery{
			Model:     &models.Pledge{},
			Window:    w,
			SumColumn: "amount",
			Distinct:  "donor_id",
		})
		if err != nil {
			return err
		}
		sum.TotalPledges, sum.TotalPledged = pledged.N, pledged.Total
		sum.AveragePledge = Average(pledged.Total, pledged.N)

		organizers, err := windowAggregate(tx, windowQuery{Model: &models.Event{}, Window: w, Distinct: "organizer_id"})
		if err != nil {
			return err
		}
		out.Analytics.UserEngagement = dto.UserEngagement{
			NewUsers:         sum.NewUsers,
			ActiveDonors:     pledged.Uniq,
			ActiveOrganizers: organizers.Uniq,
		}

		rows, err := pledgesIn(tx, w)
		if err != nil {
			return err
		}

		days := newRollup[string]()
		for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
			days.touch(dateKey(d))
		}
		perEvent := newRollup[uuid.UUID]()
		for _, r := range rows {
			days.add(dateKey(r.CreatedAt), r.fact())
			perEvent.add(r.EventID, r.fact())
		}

		out.Analytics.DailyBreakdown = make([]dto.DayBreakdown, 0, days.len())
		for _, key := range days.keys {
			b := days.get(key)
			out.Analytics.DailyBreakdown = append(out.Analytics.DailyBreakdown, dto.DayBreakdown{
				Date:         key,
				UniqueDonors: b.Actors(),
				PledgeCount:  b.Count,
				TotalAmount:  b.Sum,
				AvgAmount:    b.Average(),
			})
		}

		events, err := eventsByID(tx, perEvent.keys)
		if err != nil {
			return err
		}

		out.Analytics.TopPerformingEvents = make([]dto.EventPerformance, 0, weeklyTopEvents)
		for _, id := range perEvent.top(0, bySum, uuidKey) {
			e := events[id]
			if e.Status != models.EventStatusActive && e.Status != models.EventStatusCompleted {
				continue
			}
			b := perEvent.get(id)
			out.Analytics.TopPerformingEvents = append(out.Analytics.TopPerformingEvents, dto.EventPerformance{
				ID:                 id,
				Title:              e.Title,
				Category:           e.Category,
				TargetAmount:       e.TargetAmount,
				CurrentAmount:      e.CurrentAmount,
				WeekPledged:        b.Sum,
				PledgeCount:        b.Count,
				UniqueDonors:       b.Actors(),
				ProgressPercentage: Percent(e.CurrentAmount, e.TargetAmount),
			})
			if len(out.Analytics.TopPerformingEvents) == weeklyTopEvents {
				break
			}
		}

		categories := newRollup[string]()
		for _, r := range rows {
			categories.add(events[r.EventID].Category, r.fact())
		}
		out.Analytics.CategoryPerformance = make([]dto.CategoryPerformance, 0, categories.len())
		for _, c := range categories.top(0, bySum, identity) {
			b := categories.get(c)
			out.Analytics.CategoryPerformance = append(out.Analytics.CategoryPerformance, dto.CategoryPerformance{
				Category:        c,
				EventCount:      b.Items(),
				PledgeCount:     b.Count,
				TotalPledged:    b.Sum,
				AvgPledgeAmount: b.Average(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.GeneratedAt = s.now()
	return out, nil
}

// ValidateMonth rejects months outside 1-12 and years outside 2000-2100.
func ValidateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return validationf("month must be between 1 and 12")
	}
	if year < minYear || year > maxYear {
		return validationf("year must be between %d and %d", minYear, maxYear)
	}
	return nil
}

// weekOfMonth maps days 1-7 to week 1, 8-14 to week 2, and so on.
func weekOfMonth(t time.Time) int {
	return (t.UTC().Day()-1)/7 + 1
}

// Monthly covers the full UTC calendar month and compares it with the
// month before.
func (s *StatsService) Monthly(ctx context.Context, year, month int) (*dto.MonthlyStats, error) {
	if err := ValidateMonth(year, month); err != nil {
		return nil, err
	}
	w := MonthWindow(year, time.Month(month))
	prev := w.PreviousMonth()
	out := &dto.MonthlyStats{
		Period: dto.Period{
			Type:      models.ReportMonthly,
			Year:      year,
			Month:     month,
			MonthName: time.Month(month).String(),
			StartDate: w.Start,
			EndDate:   w.End,
		},
	}

	err := s.snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		sum := &out.Summary
		if sum.NewUsers, err = countIn(tx, &models.User{}, "created_at", w); err != nil {
			return err
		}
		if sum.NewEvents, err = countIn(tx, &models.Event{}, "created_at", w); err != nil {
			return err
		}
		if sum.CompletedEvents, err = countIn(tx, &models.Event{}, "updated_at", w,
			where("status = ?", models.EventStatusCompleted)); err != nil {
			return err
		}
		pledged, err := windowAggregate(tx, windowQuery{Model: &models.Pledge{}, Window: w, SumColumn: "amount"})
		if err != nil {
			return err
		}
		sum.TotalPledges, sum.TotalPledged = pledged.N, pledged.Total
		paid, err := windowAggregate(tx, windowQuery{
			Model:      &models.Pledge{},
			TimeColumn: "updated_at",
			Window:     w,
			SumColumn:  "amount",
			Where:      []cond{where("payment_status = ?", models.PaymentCompleted)},
		})
		if err != nil {
			return err
		}
		sum.SuccessfulPayments, sum.TotalPaid = paid.N, paid.Total
		sum.SuccessRate = Percent(decimal.NewFromInt(paid.N), decimal.NewFromInt(pledged.N))

		prevUsers, err := countIn(tx, &models.User{}, "created_at", prev)
		if err != nil {
			return err
		}
		prevEvents, err := countIn(tx, &models.Event{}, "created_at", prev)
		if err != nil {
			return err
		}
		prevPledged, err := windowAggregate(tx, windowQuery{Model: &models.Pledge{}, Window: prev, SumColumn: "amount"})
		if err != nil {
			return err
		}
		out.GrowthAnalysis = dto.GrowthAnalysis{
			UserGrowth:   GrowthRate(decimal.NewFromInt(sum.NewUsers), decimal.NewFromInt(prevUsers)),
			EventGrowth:  GrowthRate(decimal.NewFromInt(sum.NewEvents), decimal.NewFromInt(prevEvents)),
			PledgeGrowth: GrowthRate(sum.TotalPledged, prevPledged.Total),
		}

		rows, err := pledgesIn(tx, w)
		if err != nil {
			return err
		}
		if err := monthlyBreakdowns(tx, w, rows, &out.Analytics); err != nil {
			return err
		}
		out.Analytics.CategoryPerformance, err = categoryCompletion(tx, w, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	out.GeneratedAt = s.now()
	return out, nil
}

func monthlyBreakdowns(tx *gorm.DB, w Window, rows []pledgeRow, out *dto.MonthlyAnalytics) error {
	lastDay := w.End.AddDate(0, 0, -1)
	weeks := newRollup[int]()
	for k := 1; k <= weekOfMonth(lastDay); k++ {
		weeks.touch(k)
	}
	donors := newRollup[uuid.UUID]()
	eventIDs := newRollup[uuid.UUID]()
	for _, r := range rows {
		weeks.add(weekOfMonth(r.CreatedAt), r.fact())
		eventIDs.touch(r.EventID)
		if !r.IsAnonymous {
			donors.add(r.DonorID, r.fact())
		}
	}

	out.WeeklyBreakdown = make([]dto.WeekBreakdown, 0, weeks.len())
	for _, k := range weeks.keys {
		b := weeks.get(k)
		start := w.Start.AddDate(0, 0, (k-1)*7)
		end := start.AddDate(0, 0, 6)
		if end.After(lastDay) {
			end = lastDay
		}
		out.WeeklyBreakdown = append(out.WeeklyBreakdown, dto.WeekBreakdown{
			WeekNumber:        k,
			StartDate:         dateKey(start),
			EndDate:           dateKey(end),
			PledgeCount:       b.Count,
			TotalAmount:       b.Sum,
			UniqueDonors:      b.Actors(),
			EventsWithPledges: b.Items(),
		})
	}

	events, err := eventsByID(tx, eventIDs.keys)
	if err != nil {
		return err
	}
	organizers := newRollup[uuid.UUID]()
	for _, r := range rows {
		organizers.add(events[r.EventID].OrganizerID, r.fact())
	}

	topDonors := donors.top(monthlyTopDonors, bySum, uuidKey)
	topOrgs := organizers.top(monthlyTopOrgs, bySum, uuidKey)
	users, err := usersByID(tx, append(append(make([]uuid.UUID, 0, len(topDonors)+len(topOrgs)), topDonors...), topOrgs...))
	if err != nil {
		return err
	}

	out.TopDonors = make([]dto.TopDonor, 0, len(topDonors))
	for _, id := range topDonors {
		b := donors.get(id)
		out.TopDonors = append(out.TopDonors, dto.TopDonor{
			ID:           id,
			Name:         users[id].Name,
			PledgeCount:  b.Count,
			TotalDonated: b.Sum,
		})
	}
	out.TopOrganizers = make([]dto.TopOrganizer, 0, len(topOrgs))
	for _, id := range topOrgs {
		b := organizers.get(id)
		out.TopOrganizers = append(out.TopOrganizers, dto.TopOrganizer{
			ID:          id,
			Name:        users[id].Name,
			EventCount:  b.Items(),
			TotalRaised: b.Sum,
		})
	}
	return nil
}

// categoryCompletion groups events created in w by category and attaches the
// pledges they received inside w.
func categoryCompletion(tx *gorm.DB, w Window, rows []pledgeRow) ([]dto.CategoryCompletionRate, error) {
	var events []models.Event
	if err := tx.Where("created_at >= ? AND created_at < ?", w.Start, w.End).
		Order("created_at").Order("id").
		Find(&events).Error; err != nil {
		return nil, storeErr(err, nil, "load events")
	}

	type meta struct {
		total, completed int64
		raised           decimal.Decimal
	}
	metas := make(map[string]*meta)
	categoryOf := make(map[uuid.UUID]string, len(events))
	pledges := newRollup[string]()
	for _, e := range events {
		categoryOf[e.ID] = e.Category
		pledges.touch(e.Category)
		m, ok := metas[e.Category]
		if !ok {
			m = &meta{raised: decimal.Zero}
			metas[e.Category] = m
		}
		m.total++
		if e.Status == models.EventStatusCompleted {
			m.completed++
			m.raised = m.raised.Add(e.CurrentAmount)
		}
	}
	for _, r := range rows {
		if c, ok := categoryOf[r.EventID]; ok {
			pledges.add(c, r.fact())
		}
	}

	out := make([]dto.CategoryCompletionRate, 0, pledges.len())
	for _, c := range pledges.top(0, bySum, identity) {
		b, m := pledges.get(c), metas[c]
		out = append(out, dto.CategoryCompletionRate{
			Category:           c,
			TotalEvents:        m.total,
			CompletedEvents:    m.completed,
			CompletionRate:     Percent(decimal.NewFromInt(m.completed), decimal.NewFromInt(m.total)),
			TotalPledges:       b.Count,
			TotalPledged:       b.Sum,
			AvgPledgeAmount:    b.Average(),
			SuccessfullyRaised: m.raised,
		})
	}
	return out, nil
}

func identity(s string) string { return s }
