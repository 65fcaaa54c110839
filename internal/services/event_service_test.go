package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var eventClock = at(2024, 6, 1, 12)

func newEvents(t *testing.T) (*EventService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	cfg := testConfig()
	svc := NewEventService(db, cfg, NewModerationService(db, cfg))
	svc.now = fixedClock(eventClock)
	return svc, db
}

func validEvent() *dto.CreateEventRequest {
	end := eventClock.AddDate(0, 1, 0)
	return &dto.CreateEventRequest{
		Title:        "Community garden",
		Description:  "Raised beds and tools for the east side garden.",
		TargetAmount: d("5000"),
		Category:     " Environment ",
		ImageURL:     "https://cdn.example.org/garden.jpg",
		EndDate:      &end,
	}
}

func ptr[T any](v T) *T { return &v }

func TestCreateEvent(t *testing.T) {
	svc, db := newEvents(t)
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))

	event, err := svc.Create(context.Background(), org.ID, validEvent())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if event.Status != models.EventStatusPending || !event.CurrentAmount.IsZero() {
		t.Errorf("new event = %s / %s, want pending with nothing raised", event.Status, event.CurrentAmount)
	}
	if event.Category != "environment" {
		t.Errorf("category = %q, want normalised", event.Category)
	}
	if !event.StartDate.Equal(eventClock) {
		t.Errorf("start_date = %s", event.StartDate)
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc, db := newEvents(t)
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	past := eventClock.Add(-time.Hour)

	tests := []struct {
		name   string
		mutate func(r *dto.CreateEventRequest)
	}{
		{"short title", func(r *dto.CreateEventRequest) { r.Title = "Bake" }},
		{"long title", func(r *dto.CreateEventRequest) { r.Title = strings.Repeat("x", 201) }},
		{"short description", func(r *dto.CreateEventRequest) { r.Description = "Too short" }},
		{"target below minimum", func(r *dto.CreateEventRequest) { r.TargetAmount = d("99.99") }},
		{"target too precise", func(r *dto.CreateEventRequest) { r.TargetAmount = d("150.005") }},
		{"target overflows", func(r *dto.CreateEventRequest) { r.TargetAmount = d("10000000000") }},
		{"long category", func(r *dto.CreateEventRequest) { r.Category = strings.Repeat("c", 51) }},
		{"bad image url", func(r *dto.CreateEventRequest) { r.ImageURL = "ftp://files/garden.jpg" }},
		{"end date in past", func(r *dto.CreateEventRequest) { r.EndDate = &past }},
		{"banned words", func(r *dto.CreateEventRequest) { r.Description = "Definitely not a scam, send money now." }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validEvent()
			tt.mutate(req)
			if _, err := svc.Create(context.Background(), org.ID, req); !errors.Is(err, ErrValidation) {
				t.Errorf("Create error = %v, want validation", err)
			}
		})
	}

	var n int64
	db.Model(&models.Event{}).Count(&n)
	if n != 0 {
		t.Errorf("events = %d after rejected creates", n)
	}
}

func TestListHidesNonPublicEvents(t *testing.T) {
	svc, db := newEvents(t)
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))

	seedEvent(t, db, eventSeed{Organizer: org, Title: "Old library", Category: "education", CreatedAt: at(2024, 1, 1, 0)})
	newest := seedEvent(t, db, eventSeed{Organizer: org, Title: "New library wing", Category: "education", CreatedAt: at(2024, 2, 1, 0)})
	seedEvent(t, db, eventSeed{Organizer: org, Title: "Finished park", Status: models.EventStatusCompleted, CreatedAt: at(2024, 1, 5, 0)})
	seedEvent(t, db, eventSeed{Organizer: org, Title: "Waiting", Status: models.EventStatusPending})
	seedEvent(t, db, eventSeed{Organizer: org, Title: "Said no", Status: models.EventStatusRejected})
	flagged := seedEvent(t, db, eventSeed{Organizer: org, Title: "Under review"})
	db.Model(flagged).Update("flagged", true)

	events, total, err := svc.List(context.Background(), EventFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || events[0].ID != newest.ID {
		t.Errorf("List = %d events, want 3 newest first", total)
	}
	if events[0].Organizer.Name != "org" {
		t.Errorf("organizer not loaded")
	}

	tests := []struct {
		name string
		f    EventFilter
		want int64
	}{
		{"status", EventFilter{Status: models.EventStatusCompleted}, 1},
		{"category", EventFilter{Category: "Education"}, 2},
		{"search", EventFilter{Search: "LIBRARY"}, 2},
		{"search with wildcard", EventFilter{Search: "%"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total, err := svc.List(context.Background(), tt.f)
			if err != nil || total != tt.want {
				t.Errorf("List(%+v) = %d, %v; want %d", tt.f, total, err, tt.want)
			}
		})
	}

	if _, _, err := svc.List(context.Background(), EventFilter{Status: models.EventStatusPending}); !errors.Is(err, ErrValidation) {
		t.Errorf("pending filter error = %v, want validation", err)
	}
}

func TestGetVisibility(t *testing.T) {
	svc, db := newEvents(t)
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	pending := seedEvent(t, db, eventSeed{Organizer: org, Status: models.EventStatusPending})
	ctx := context.Background()

	if _, err := svc.Get(ctx, pending.ID, uuid.Nil, false); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("anonymous Get = %v, want not found", err)
	}
	if _, err := svc.Get(ctx, pending.ID, org.ID, false); err != nil {
		t.Errorf("owner Get = %v", err)
	}
	if _, err := svc.Get(ctx, pending.ID, uuid.New(), true); err != nil {
		t.Errorf("admin Get = %v", err)
	}
}

func TestUpdateEvent(t *testing.T) {
	svc, db := newEvents(t)
	ctx := context.Background()
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	other := seedUser(t, db, "other", models.RoleOrganizer, at(2024, 1, 1, 0))
	donor := seedUser(t, db, "donor", models.RoleDonor, at(2024, 1, 1, 0))
	event := seedEvent(t, db, eventSeed{Organizer: org, Target: "1000"})

	if _, err := newPledges(db).RecordPledge(ctx, donor.ID, event.ID, d("400"), PledgeOptions{PaymentStatus: models.PaymentCompleted}); err != nil {
		t.Fatalf("RecordPledge: %v", err)
	}

	if _, err := svc.Update(ctx, other.ID, event.ID, &dto.UpdateEventRequest{Title: ptr("Hijacked title")}); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner Update = %v, want forbidden", err)
	}
	low := d("300")
	if _, err := svc.Update(ctx, org.ID, event.ID, &dto.UpdateEventRequest{TargetAmount: &low}); !errors.Is(err, ErrValidation) {
		t.Errorf("target below raised = %v, want validation", err)
	}

	target := decimal.NewFromInt(400)
	updated, err := svc.Update(ctx, org.ID, event.ID, &dto.UpdateEventRequest{
		Title:        ptr("Community garden, phase two"),
		TargetAmount: &target,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Community garden, phase two" || !updated.IsFunded() {
		t.Errorf("updated = %q funded=%v", updated.Title, updated.IsFunded())
	}
	if got := currentAmount(t, db, event.ID); !got.Equal(d("400")) {
		t.Errorf("current_amount = %s, update must not touch it", got)
	}
}

func TestDeleteEvent(t *testing.T) {
	svc, db := newEvents(t)
	ctx := context.Background()
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	donor := seedUser(t, db, "donor", models.RoleDonor, at(2024, 1, 1, 0))
	empty := seedEvent(t, db, eventSeed{Organizer: org})
	backed := seedEvent(t, db, eventSeed{Organizer: org})
	seedPledge(t, db, pledgeSeed{Event: backed, Donor: donor, Amount: "20", Status: models.PaymentPending})

	if err := svc.Delete(ctx, donor.ID, empty.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner Delete = %v", err)
	}
	if err := svc.Delete(ctx, org.ID, backed.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Delete with pledges = %v, want invalid state", err)
	}
	if err := svc.Delete(ctx, org.ID, empty.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, empty.ID, org.ID, false); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Get after delete = %v", err)
	}
}

func TestCloseEvent(t *testing.T) {
	svc, db := newEvents(t)
	ctx := context.Background()
	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	admin := seedUser(t, db, "admin", models.RoleAdmin, at(2024, 1, 1, 0))
	mine := seedEvent(t, db, eventSeed{Organizer: org})
	other := seedEvent(t, db, eventSeed{Organizer: org})
	pending := seedEvent(t, db, eventSeed{Organizer: org, Status: models.EventStatusPending})

	closed, err := svc.Close(ctx, org.ID, false, mine.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if closed.Status != models.EventStatusCompleted {
		t.Errorf("status = %s", closed.Status)
	}
	if _, err := svc.Close(ctx, org.ID, false, mine.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second Close = %v", err)
	}
	if _, err := svc.Close(ctx, uuid.New(), false, other.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger Close = %v", err)
	}
	if _, err := svc.Close(ctx, admin.ID, true, other.ID); err != nil {
		t.Errorf("admin Close = %v", err)
	}
	if _, err := svc.Close(ctx, org.ID, false, pending.ID); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Close pending = %v", err)
	}
}
