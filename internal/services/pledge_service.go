package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const anonymousDonor = "Anonymous"

type PledgeOptions struct {
	IsAnonymous   bool
	Message       string
	PaymentStatus string
}

// PledgeService owns Event.CurrentAmount. Every path that changes a pledge's
// monetary state re-derives the total through reconcile while holding the
// event row lock.
type PledgeService struct {
	db         *gorm.DB
	moderation *ModerationService
	minAmount  decimal.Decimal
	timeout    time.Duration
	now        func() time.Time
}

func NewPledgeService(db *gorm.DB, cfg *config.Config, moderation *ModerationService) *PledgeService {
	return &PledgeService{
		db:         db,
		moderation: moderation,
		minAmount:  cfg.MinPledgeAmount,
		timeout:    cfg.DBTimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *PledgeService) RecordPledge(ctx context.Context, donorID, eventID uuid.UUID, amount decimal.Decimal, opts PledgeOptions) (*models.Pledge, error) {
	if !amount.IsPositive() {
		return nil, validationf("amount must be greater than zero")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, validationf("amount cannot have more than 2 decimal places")
	}
	if amount.LessThan(s.minAmount) {
		return nil, validationf("minimum pledge amount is %s", s.minAmount.StringFixed(2))
	}

	status := opts.PaymentStatus
	if status == "" {
		status = models.PaymentPending
	}
	if !models.IsValidPaymentStatus(status) {
		return nil, validationf("invalid payment_status: must be pending, completed, or failed")
	}
	message := strings.TrimSpace(opts.Message)
	if len(message) > 500 {
		return nil, validationf("message must be at most 500 characters")
	}
	if err := s.moderation.CheckText("message", message); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var pledge models.Pledge
	var current decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if event.Status != models.EventStatusActive {
			return ErrEventNotActive
		}
		if event.Flagged {
			return invalidStatef("event is under review and not accepting pledges")
		}
		if event.EndDate != nil && s.now().After(*event.EndDate) {
			return invalidStatef("event ended on %s", dateKey(*event.EndDate))
		}

		pledge = models.Pledge{
			EventID:       eventID,
			DonorID:       donorID,
			Amount:        amount,
			IsAnonymous:   opts.IsAnonymous,
			Message:       message,
			PaymentStatus: status,
		}
		if err := tx.Create(&pledge).Error; err != nil {
			return storeErr(err, nil, "create pledge")
		}
		pledge.Event = *event
		if err := tx.Select("id", "name").First(&pledge.Donor, "id = ?", donorID).Error; err != nil {
			return storeErr(err, ErrUserNotFound, "load donor")
		}

		current, err = reconcile(tx, eventID)
		return err
	})
	if err != nil {
		return nil, storeErr(err, nil, "record pledge")
	}

	slog.Info("pledge recorded",
		"pledge_id", pledge.ID.String(),
		"event_id", eventID.String(),
		"amount", amount.String(),
		"payment_status", status,
		"current_amount", current.String(),
	)
	return &pledge, nil
}

// UpdatePledgeStatus changes a pledge's payment status. Only the organizer of
// the pledge's event may do this.
func (s *PledgeService) UpdatePledgeStatus(ctx context.Context, actorID, pledgeID uuid.UUID, status string) (*dto.PledgeStatusResponse, error) {
	if !models.IsValidPaymentStatus(status) {
		return nil, validationf("invalid payment_status: must be pending, completed, or failed")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp dto.PledgeStatusResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pledge models.Pledge
		if err := tx.First(&pledge, "id = ?", pledgeID).Error; err != nil {
			return storeErr(err, ErrPledgeNotFound, "load pledge")
		}

		event, err := lockEvent(tx, pledge.EventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != actorID {
			return ErrNotEventOwner
		}

		if err := tx.Model(&models.Pledge{}).Where("id = ?", pledgeID).
			Update("payment_status", status).Error; err != nil {
			return storeErr(err, nil, "update pledge status")
		}

		current, err := reconcile(tx, event.ID)
		if err != nil {
			return err
		}
		event.CurrentAmount = current

		resp = dto.PledgeStatusResponse{
			PledgeID:           pledgeID,
			PaymentStatus:      status,
			EventID:            event.ID,
			EventCurrentAmount: current,
			EventFunded:        event.IsFunded(),
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, nil, "update pledge status")
	}

	slog.Info("pledge status updated",
		"pledge_id", pledgeID.String(),
		"event_id", resp.EventID.String(),
		"payment_status", status,
		"current_amount", resp.EventCurrentAmount.String(),
	)
	return &resp, nil
}

// Reconcile re-derives an event's running total from its completed pledges.
func (s *PledgeService) Reconcile(ctx context.Context, eventID uuid.UUID) (*dto.ReconcileResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp dto.ReconcileResponse
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		before := event.CurrentAmount
		current, err := reconcile(tx, eventID)
		if err != nil {
			return err
		}
		if !before.Equal(current) {
			slog.Warn("event total drift corrected",
				"event_id", eventID.String(),
				"stored", before.String(),
				"derived", current.String(),
			)
		}
		event.CurrentAmount = current
		resp = dto.ReconcileResponse{EventID: eventID, CurrentAmount: current, IsFunded: event.IsFunded()}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, nil, "reconcile event")
	}
	return &resp, nil
}

func (s *PledgeService) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]dto.PledgeView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", eventID).Count(&count).Error; err != nil {
		return nil, storeErr(err, nil, "load event")
	}
	if count == 0 {
		return nil, ErrEventNotFound
	}

	var pledges []models.Pledge
	err := s.db.WithContext(ctx).Preload("Donor", unscoped).
		Where("event_id = ?", eventID).
		Order("created_at DESC").Order("id").
		Find(&pledges).Error
	if err != nil {
		return nil, storeErr(err, nil, "list pledges")
	}

	views := make([]dto.PledgeView, len(pledges))
	for i := range pledges {
		views[i] = pledgeView(&pledges[i], "")
	}
	return views, nil
}

func (s *PledgeService) ListForDonor(ctx context.Context, donorID uuid.UUID) ([]dto.PledgeView, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var pledges []models.Pledge
	err := s.db.WithContext(ctx).Preload("Donor", unscoped).Preload("Event").
		Where("donor_id = ?", donorID).
		Order("created_at DESC").Order("id").
		Find(&pledges).Error
	if err != nil {
		return nil, storeErr(err, nil, "list pledges")
	}

	views := make([]dto.PledgeView, len(pledges))
	for i := range pledges {
		// donors always see their own name
		views[i] = pledgeView(&pledges[i], pledges[i].Donor.Name)
		views[i].EventTitle = pledges[i].Event.Title
	}
	return views, nil
}

// Receipt renders a freshly recorded pledge for the donor who made it.
func Receipt(p *models.Pledge) dto.PledgeView {
	v := pledgeView(p, p.Donor.Name)
	v.EventTitle = p.Event.Title
	return v
}

func pledgeView(p *models.Pledge, nameOverride string) dto.PledgeView {
	name := donorDisplayName(p)
	if nameOverride != "" {
		name = nameOverride
	}
	return dto.PledgeView{
		ID:            p.ID,
		EventID:       p.EventID,
		DonorName:     name,
		Amount:        p.Amount,
		IsAnonymous:   p.IsAnonymous,
		Message:       p.Message,
		PaymentStatus: p.PaymentStatus,
		CreatedAt:     p.CreatedAt,
	}
}

func donorDisplayName(p *models.Pledge) string {
	if p.IsAnonymous {
		return anonymousDonor
	}
	if p.Donor.Name == "" {
		return "Unknown"
	}
	return p.Donor.Name
}

func lockEvent(tx *gorm.DB, eventID uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, "id = ?", eventID).Error
	if err != nil {
		return nil, storeErr(err, ErrEventNotFound, "load event")
	}
	return &event, nil
}

// reconcile sets current_amount to the sum of completed pledges in a single
// statement. Callers must hold the event row lock.
func reconcile(tx *gorm.DB, eventID uuid.UUID) (decimal.Decimal, error) {
	completed := tx.Model(&models.Pledge{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("event_id = ? AND payment_status = ?", eventID, models.PaymentCompleted)

	if err := tx.Model(&models.Event{}).Where("id = ?", eventID).
		UpdateColumn("current_amount", completed).Error; err != nil {
		return decimal.Zero, storeErr(err, nil, "reconcile event total")
	}

	var current decimal.Decimal
	row := tx.Model(&models.Event{}).Select("current_amount").Where("id = ?", eventID).Row()
	if err := row.Scan(&current); err != nil {
		return decimal.Zero, storeErr(err, nil, "read event total")
	}
	return current, nil
}
