package services

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxAmount is the largest value a decimal(12,2) column holds.
var maxAmount = decimal.RequireFromString("9999999999.99")

type EventFilter struct {
	Status   string
	Category string
	Search   string
	Limit    int
	Offset   int
}

type EventService struct {
	db         *gorm.DB
	moderation *ModerationService
	minTarget  decimal.Decimal
	timeout    time.Duration
	now        func() time.Time
}

func NewEventService(db *gorm.DB, cfg *config.Config, moderation *ModerationService) *EventService {
	return &EventService{
		db:         db,
		moderation: moderation,
		minTarget:  cfg.MinTargetAmount,
		timeout:    cfg.DBTimeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new event awaiting admin approval.
func (s *EventService) Create(ctx context.Context, organizerID uuid.UUID, req *dto.CreateEventRequest) (*models.Event, error) {
	event := models.Event{
		OrganizerID:  organizerID,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		TargetAmount: req.TargetAmount,
		Category:     strings.ToLower(strings.TrimSpace(req.Category)),
		ImageURL:     strings.TrimSpace(req.ImageURL),
		EndDate:      req.EndDate,
		Status:       models.EventStatusPending,
		StartDate:    s.now(),
	}
	if err := s.validate(&event); err != nil {
		return nil, err
	}
	if event.EndDate != nil {
		if !event.EndDate.After(s.now()) {
			return nil, validationf("end_date must be in the future")
		}
		end := event.EndDate.UTC()
		event.EndDate = &end
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, storeErr(err, nil, "create event")
	}
	slog.Info("event created", "event_id", event.ID.String(), "user_id", organizerID.String(), "target_amount", event.TargetAmount.String())
	return &event, nil
}

func (s *EventService) validate(e *models.Event) error {
	if n := utf8.RuneCountInString(e.Title); n < 5 || n > 200 {
		return validationf("title must be between 5 and 200 characters")
	}
	if n := utf8.RuneCountInString(e.Description); n < 20 || n > 5000 {
		return validationf("description must be between 20 and 5000 characters")
	}
	if e.TargetAmount.LessThan(s.minTarget) {
		return validationf("target_amount must be at least %s", s.minTarget.StringFixed(2))
	}
	if e.TargetAmount.GreaterThan(maxAmount) {
		return validationf("target_amount is too large")
	}
	if !e.TargetAmount.Equal(e.TargetAmount.Round(2)) {
		return validationf("target_amount cannot have more than 2 decimal places")
	}
	if utf8.RuneCountInString(e.Category) > 50 {
		return validationf("category must be at most 50 characters")
	}
	if e.ImageURL != "" {
		u, err := url.ParseRequestURI(e.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return validationf("image_url must be an http or https URL")
		}
	}
	if err := s.moderation.CheckText("title", e.Title); err != nil {
		return err
	}
	return s.moderation.CheckText("description", e.Description)
}

// Get returns an event. Pending, rejected and flagged events are visible only
// to their organizer and to admins.
func (s *EventService) Get(ctx context.Context, eventID, viewerID uuid.UUID, isAdmin bool) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var event models.Event
	if err := s.db.WithContext(ctx).Preload("Organizer", unscoped).First(&event, "id = ?", eventID).Error; err != nil {
		return nil, storeErr(err, ErrEventNotFound, "load event")
	}
	if !isAdmin && event.OrganizerID != viewerID && !publiclyVisible(&event) {
		return nil, ErrEventNotFound
	}
	return &event, nil
}

func publiclyVisible(e *models.Event) bool {
	return !e.Flagged && (e.Status == models.EventStatusActive || e.Status == models.EventStatusCompleted)
}

// List returns public events, newest first.
func (s *EventService) List(ctx context.Context, f EventFilter) ([]models.Event, int64, error) {
	if f.Offset < 0 {
		return nil, 0, validationf("offset must not be negative")
	}
	statuses := []string{models.EventStatusActive, models.EventStatusCompleted}
	if f.Status != "" {
		if f.Status != models.EventStatusActive && f.Status != models.EventStatusCompleted {
			return nil, 0, validationf("status must be active or completed")
		}
		statuses = []string{f.Status}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.Event{}).
		Where("status IN ? AND flagged = ?", statuses, false)
	if c := strings.ToLower(strings.TrimSpace(f.Category)); c != "" {
		q = q.Where("category = ?", c)
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		q = q.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr(err, nil, "count events")
	}
	var events []models.Event
	if err := q.Preload("Organizer", unscoped).
		Order("created_at DESC").Order("id").
		Limit(ClampLimit(f.Limit)).Offset(f.Offset).
		Find(&events).Error; err != nil {
		return nil, 0, storeErr(err, nil, "list events")
	}
	return events, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListByOrganizer returns every event the organizer owns, in any status.
func (s *EventService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var events []models.Event
	if err := s.db.WithContext(ctx).Preload("Organizer", unscoped).
		Where("organizer_id = ?", organizerID).
		Order("created_at DESC").Order("id").
		Find(&events).Error; err != nil {
		return nil, storeErr(err, nil, "list events")
	}
	return events, nil
}

// Update edits an event's descriptive fields. The target may not drop below
// the amount already reconciled.
func (s *EventService) Update(ctx context.Context, actorID, eventID uuid.UUID, req *dto.UpdateEventRequest) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != actorID {
			return ErrNotEventOwner
		}
		if event.Status != models.EventStatusPending && event.Status != models.EventStatusActive {
			return invalidStatef("%s events cannot be edited", event.Status)
		}

		if req.Title != nil {
			event.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			event.Description = strings.TrimSpace(*req.Description)
		}
		if req.TargetAmount != nil {
			if req.TargetAmount.LessThan(event.CurrentAmount) {
				return validationf("target_amount cannot be below the amount already raised (%s)", event.CurrentAmount.StringFixed(2))
			}
			event.TargetAmount = *req.TargetAmount
		}
		if req.Category != nil {
			event.Category = strings.ToLower(strings.TrimSpace(*req.Category))
		}
		if req.ImageURL != nil {
			event.ImageURL = strings.TrimSpace(*req.ImageURL)
		}
		if req.EndDate != nil {
			if !req.EndDate.After(s.now()) {
				return validationf("end_date must be in the future")
			}
			end := req.EndDate.UTC()
			event.EndDate = &end
		}
		if err := s.validate(event); err != nil {
			return err
		}

		// current_amount and status are owned by reconciliation and moderation
		if err := tx.Model(event).Select("title", "description", "target_amount", "category", "image_url", "end_date").
			Updates(event).Error; err != nil {
			return storeErr(err, nil, "update event")
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, nil, "update event")
	}
	slog.Info("event updated", "event_id", eventID.String(), "user_id", actorID.String())
	return event, nil
}

// Delete removes an event that has not received any pledges.
func (s *EventService) Delete(ctx context.Context, actorID, eventID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, err := lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != actorID {
			return ErrNotEventOwner
		}
		var pledges int64
		if err := tx.Model(&models.Pledge{}).Where("event_id = ?", eventID).Count(&pledges).Error; err != nil {
			return storeErr(err, nil, "count pledges")
		}
		if pledges > 0 {
			return invalidStatef("events with pledges cannot be deleted")
		}
		if err := tx.Delete(&models.Event{}, "id = ?", eventID).Error; err != nil {
			return storeErr(err, nil, "delete event")
		}
		return nil
	})
	if err != nil {
		return storeErr(err, nil, "delete event")
	}
	slog.Info("event deleted", "event_id", eventID.String(), "user_id", actorID.String())
	return nil
}

// Close moves an active event to completed. Funding status plays no part.
func (s *EventService) Close(ctx context.Context, actorID uuid.UUID, isAdmin bool, eventID uuid.UUID) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var event *models.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		if !isAdmin && event.OrganizerID != actorID {
			return ErrNotEventOwner
		}
		if event.Status != models.EventStatusActive {
			return invalidStatef("only active events can be closed (status %s)", event.Status)
		}
		if err := tx.Model(event).Update("status", models.EventStatusCompleted).Error; err != nil {
			return storeErr(err, nil, "close event")
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, nil, "close event")
	}
	slog.Info("event closed",
		"event_id", eventID.String(),
		"user_id", actorID.String(),
		"current_amount", event.CurrentAmount.String(),
		"funded", event.IsFunded(),
	)
	return event, nil
}

// EventView renders an event for API responses.
func EventView(e *models.Event) dto.EventView {
	return dto.EventView{
		ID:                 e.ID,
		OrganizerID:        e.OrganizerID,
		OrganizerName:      e.Organizer.Name,
		Title:              e.Title,
		Description:        e.Description,
		TargetAmount:       e.TargetAmount,
		CurrentAmount:      e.CurrentAmount,
		ProgressPercentage: Percent(e.CurrentAmount, e.TargetAmount),
		IsFunded:           e.IsFunded(),
		Category:           e.Category,
		ImageURL:           e.ImageURL,
		Status:             e.Status,
		Flagged:            e.Flagged,
		FlagReason:         e.FlagReason,
		StartDate:          e.StartDate,
		EndDate:            e.EndDate,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}
}

func EventViews(events []models.Event) []dto.EventView {
	out := make([]dto.EventView, len(events))
	for i := range events {
		out[i] = EventView(&events[i])
	}
	return out
}

func unscoped(db *gorm.DB) *gorm.DB { return db.Unscoped() }
