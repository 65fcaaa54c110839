package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestRecordPledgeCompletedIncrementsTotal(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)
	ctx := context.Background()

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org})

	if _, err := svc.RecordPledge(ctx, donor.ID, event.ID, d("25.50"), PledgeOptions{PaymentStatus: models.PaymentCompleted}); err != nil {
		t.Fatalf("RecordPledge: %v", err)
	}
	if _, err := svc.RecordPledge(ctx, donor.ID, event.ID, d("40"), PledgeOptions{}); err != nil {
		t.Fatalf("RecordPledge pending: %v", err)
	}

	if got := currentAmount(t, db, event.ID); !got.Equal(d("25.50")) {
		t.Errorf("current_amount = %s, want 25.50 (pending pledges are not counted)", got)
	}
}

func TestRecordPledgeErrors(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)
	ctx := context.Background()

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	active := seedEvent(t, db, eventSeed{Organizer: org})
	pending := seedEvent(t, db, eventSeed{Organizer: org, Status: models.EventStatusPending})

	tests := []struct {
		name    string
		eventID uuid.UUID
		amount  string
		status  string
		want    error
	}{
		{"missing event", uuid.New(), "50", "", ErrNotFound},
		{"event not active", pending.ID, "50", "", ErrInvalidState},
		{"zero amount", active.ID, "0", "", ErrValidation},
		{"negative amount", active.ID, "-5", "", ErrValidation},
		{"below minimum", active.ID, "9.99", "", ErrValidation},
		{"too many decimals", active.ID, "10.001", "", ErrValidation},
		{"bad status", active.ID, "50", "refunded", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPledge(ctx, donor.ID, tt.eventID, d(tt.amount), PledgeOptions{PaymentStatus: tt.status})
			if !errors.Is(err, tt.want) {
				t.Errorf("RecordPledge error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := currentAmount(t, db, active.ID); !got.IsZero() {
		t.Errorf("current_amount = %s after failed pledges, want 0", got)
	}
}

func TestRecordPledgeAfterEndDate(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org})
	ended := time.Now().UTC().Add(-time.Hour)
	if err := db.Model(event).Update("end_date", ended).Error; err != nil {
		t.Fatalf("set end_date: %v", err)
	}

	_, err := svc.RecordPledge(context.Background(), donor.ID, event.ID, d("50"), PledgeOptions{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordPledge error = %v, want invalid state", err)
	}
}

func TestConcurrentPledgesDoNotLoseUpdates(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org, Target: "100000"})

	const n = 25
	donors := make([]*models.User, n)
	for i := range donors {
		donors[i] = seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	want := decimal.Zero
	for i := 0; i < n; i++ {
		amount := decimal.NewFromInt(int64(10 + i)).Add(d("0.25"))
		want = want.Add(amount)
		wg.Add(1)
		go func(donorID uuid.UUID, amount decimal.Decimal) {
			defer wg.Done()
			_, err := svc.RecordPledge(context.Background(), donorID, event.ID, amount, PledgeOptions{PaymentStatus: models.PaymentCompleted})
			errs <- err
		}(donors[i].ID, amount)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("RecordPledge: %v", err)
		}
	}

	if got := currentAmount(t, db, event.ID); !got.Equal(want) {
		t.Errorf("current_amount = %s, want %s", got, want)
	}
}

func TestUpdatePledgeStatusRecomputesTotal(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)
	ctx := context.Background()

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org, Target: "100"})

	p1, err := svc.RecordPledge(ctx, donor.ID, event.ID, d("60"), PledgeOptions{})
	if err != nil {
		t.Fatalf("RecordPledge: %v", err)
	}
	p2, err := svc.RecordPledge(ctx, donor.ID, event.ID, d("40"), PledgeOptions{PaymentStatus: models.PaymentCompleted})
	if err != nil {
		t.Fatalf("RecordPledge: %v", err)
	}

	resp, err := svc.UpdatePledgeStatus(ctx, org.ID, p1.ID, models.PaymentCompleted)
	if err != nil {
		t.Fatalf("UpdatePledgeStatus: %v", err)
	}
	if !resp.EventCurrentAmount.Equal(d("100")) || !resp.EventFunded {
		t.Errorf("after completing p1: current=%s funded=%v, want 100 funded", resp.EventCurrentAmount, resp.EventFunded)
	}

	if _, err := svc.UpdatePledgeStatus(ctx, org.ID, p2.ID, models.PaymentFailed); err != nil {
		t.Fatalf("UpdatePledgeStatus: %v", err)
	}
	if got := currentAmount(t, db, event.ID); !got.Equal(d("60")) {
		t.Errorf("current_amount = %s, want 60", got)
	}
	if got, want := currentAmount(t, db, event.ID), completedSum(t, db, event.ID); !got.Equal(want) {
		t.Errorf("invariant broken: current_amount %s != completed sum %s", got, want)
	}

	var e models.Event
	db.First(&e, "id = ?", event.ID)
	if e.Status != models.EventStatusActive {
		t.Errorf("status = %s, funding must not change the stored status", e.Status)
	}
}

func TestUpdatePledgeStatusErrors(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)
	ctx := context.Background()

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	other := seedUser(t, db, "other", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org})
	pledge := seedPledge(t, db, pledgeSeed{Event: event, Donor: donor, Amount: "50", Status: models.PaymentPending})

	if _, err := svc.UpdatePledgeStatus(ctx, org.ID, pledge.ID, "processing"); !errors.Is(err, ErrValidation) {
		t.Errorf("invalid status error = %v, want validation", err)
	}
	if _, err := svc.UpdatePledgeStatus(ctx, other.ID, pledge.ID, models.PaymentCompleted); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner error = %v, want forbidden", err)
	}
	if _, err := svc.UpdatePledgeStatus(ctx, org.ID, uuid.New(), models.PaymentCompleted); !errors.Is(err, ErrPledgeNotFound) {
		t.Errorf("missing pledge error = %v, want pledge not found", err)
	}

	var p models.Pledge
	db.First(&p, "id = ?", pledge.ID)
	if p.PaymentStatus != models.PaymentPending {
		t.Errorf("payment_status = %s, rejected updates must not persist", p.PaymentStatus)
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	donor := seedUser(t, db, "donor", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org, Target: "100"})
	seedPledge(t, db, pledgeSeed{Event: event, Donor: donor, Amount: "70"})
	seedPledge(t, db, pledgeSeed{Event: event, Donor: donor, Amount: "50", Status: models.PaymentPending})

	resp, err := svc.Reconcile(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !resp.CurrentAmount.Equal(d("70")) || resp.IsFunded {
		t.Errorf("Reconcile = %s funded=%v, want 70 not funded", resp.CurrentAmount, resp.IsFunded)
	}
	if _, err := svc.Reconcile(context.Background(), uuid.New()); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("Reconcile missing event error = %v", err)
	}
}

func TestListForEventMasksAnonymousDonors(t *testing.T) {
	db := newTestDB(t)
	svc := newPledges(db)

	org := seedUser(t, db, "org", models.RoleOrganizer, time.Now().UTC())
	alice := seedUser(t, db, "alice", models.RoleDonor, time.Now().UTC())
	event := seedEvent(t, db, eventSeed{Organizer: org})
	seedPledge(t, db, pledgeSeed{Event: event, Donor: alice, Amount: "20", Anonymous: true, CreatedAt: at(2024, 1, 1, 9)})
	seedPledge(t, db, pledgeSeed{Event: event, Donor: alice, Amount: "30", CreatedAt: at(2024, 1, 1, 10)})

	views, err := svc.ListForEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("ListForEvent: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("len = %d, want 2", len(views))
	}
	if views[0].DonorName != "alice" || views[1].DonorName != anonymousDonor {
		t.Errorf("donor names = %q, %q", views[0].DonorName, views[1].DonorName)
	}

	mine, err := svc.ListForDonor(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListForDonor: %v", err)
	}
	for _, v := range mine {
		if v.DonorName != "alice" {
			t.Errorf("own pledge shows donor %q", v.DonorName)
		}
	}
}
