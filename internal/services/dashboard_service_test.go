package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
)

func newDashboards(t *testing.T) *DashboardService {
	t.Helper()
	return NewDashboardService(newStats(t))
}

func TestAdminDashboard(t *testing.T) {
	svc := newDashboards(t)
	db := svc.stats.db

	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	donor := seedUser(t, db, "donor", models.RoleDonor, at(2024, 1, 1, 0))
	seedUser(t, db, "admin", models.RoleAdmin, at(2024, 1, 1, 0))
	small := seedEvent(t, db, eventSeed{Organizer: org, Title: "Small", CreatedAt: at(2024, 1, 2, 0)})
	big := seedEvent(t, db, eventSeed{Organizer: org, Title: "Big", CreatedAt: at(2024, 1, 3, 0)})
	seedEvent(t, db, eventSeed{Organizer: org, Title: "Waiting", Status: models.EventStatusPending, CreatedAt: at(2024, 1, 4, 0)})

	pledges := newPledges(db)
	ctx := context.Background()
	for _, p := range []struct {
		event  *models.Event
		amount string
	}{{small, "20"}, {big, "300"}, {big, "100"}} {
		if _, err := pledges.RecordPledge(ctx, donor.ID, p.event.ID, d(p.amount), PledgeOptions{PaymentStatus: models.PaymentCompleted}); err != nil {
			t.Fatalf("RecordPledge: %v", err)
		}
	}

	dash, err := svc.AdminDashboard(ctx)
	if err != nil {
		t.Fatalf("AdminDashboard: %v", err)
	}
	o := dash.Overview
	if o.TotalUsers != 3 || o.TotalEvents != 3 || o.TotalPledges != 3 || !o.TotalPledged.Equal(d("420")) || !o.AveragePledge.Equal(d("140")) {
		t.Errorf("overview = %+v", o)
	}
	if len(dash.UsersByRole) != 3 || dash.UsersByRole[0].Key != models.RoleAdmin || dash.UsersByRole[0].Count != 1 {
		t.Errorf("users_by_role = %+v", dash.UsersByRole)
	}
	if len(dash.EventsByStatus) != 2 || dash.EventsByStatus[0].Key != models.EventStatusActive || dash.EventsByStatus[0].Count != 2 {
		t.Errorf("events_by_status = %+v", dash.EventsByStatus)
	}
	if len(dash.TopEvents) != 3 || dash.TopEvents[0].ID != big.ID || dash.TopEvents[0].PledgeCount != 2 {
		t.Errorf("top_events = %+v", dash.TopEvents)
	}
	if dash.TopEvents[0].OrganizerName != "org" || !dash.TopEvents[0].ProgressPercentage.Equal(d("40")) {
		t.Errorf("top event = %+v", dash.TopEvents[0])
	}
	if len(dash.RecentActivity) != 3 || dash.RecentActivity[0].EventTitle == "" {
		t.Errorf("recent_activity = %+v", dash.RecentActivity)
	}
}

func TestOrganizerSummary(t *testing.T) {
	svc := newDashboards(t)
	db := svc.stats.db

	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	donor := seedUser(t, db, "donor", models.RoleDonor, at(2024, 1, 1, 0))
	first := seedEvent(t, db, eventSeed{Organizer: org, Target: "100", CreatedAt: at(2024, 1, 2, 0)})
	second := seedEvent(t, db, eventSeed{Organizer: org, Target: "300", CreatedAt: at(2024, 1, 3, 0)})
	seedEvent(t, db, eventSeed{Organizer: org, Target: "500", Status: models.EventStatusCompleted, CreatedAt: at(2024, 1, 4, 0)})

	ctx := context.Background()
	pledges := newPledges(db)
	for _, id := range []uuid.UUID{first.ID, second.ID} {
		if _, err := pledges.RecordPledge(ctx, donor.ID, id, d("50"), PledgeOptions{PaymentStatus: models.PaymentCompleted}); err != nil {
			t.Fatalf("RecordPledge: %v", err)
		}
	}

	sum, err := svc.OrganizerSummary(ctx, org.ID)
	if err != nil {
		t.Fatalf("OrganizerSummary: %v", err)
	}
	o := sum.Overview
	if o.TotalEvents != 3 || o.ActiveEvents != 2 || o.CompletedEvents != 1 || o.TotalPledges != 2 {
		t.Errorf("overview = %+v", o)
	}
	if !o.TotalRaised.Equal(d("100")) || !o.TotalTarget.Equal(d("900")) || !o.AverageRaised.Equal(d("33.33")) {
		t.Errorf("overview amounts = %+v", o)
	}
	if len(sum.TopEvents) != 3 || sum.TopEvents[0].ID != first.ID || sum.TopEvents[1].ID != second.ID {
		t.Errorf("top_events = %+v, want tie resolved to the earlier event", sum.TopEvents)
	}

	empty, err := svc.OrganizerSummary(ctx, donor.ID)
	if err != nil || empty.Overview.TotalEvents != 0 || len(empty.TopEvents) != 0 {
		t.Errorf("empty summary = %+v, %v", empty, err)
	}
}

func TestDonorActivity(t *testing.T) {
	svc := newDashboards(t)
	db := svc.stats.db

	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	donor := seedUser(t, db, "donor", models.RoleDonor, at(2024, 1, 1, 0))
	garden := seedEvent(t, db, eventSeed{Organizer: org, Title: "Garden"})
	library := seedEvent(t, db, eventSeed{Organizer: org, Title: "Library"})
	seedPledge(t, db, pledgeSeed{Event: garden, Donor: donor, Amount: "10", CreatedAt: at(2024, 1, 2, 0)})
	seedPledge(t, db, pledgeSeed{Event: garden, Donor: donor, Amount: "20", Status: models.PaymentFailed, CreatedAt: at(2024, 1, 3, 0)})
	seedPledge(t, db, pledgeSeed{Event: library, Donor: donor, Amount: "40", Anonymous: true, Status: models.PaymentPending, CreatedAt: at(2024, 1, 4, 0)})

	act, err := svc.DonorActivity(context.Background(), donor.ID)
	if err != nil {
		t.Fatalf("DonorActivity: %v", err)
	}
	o := act.Overview
	if o.TotalPledges != 3 || !o.TotalDonated.Equal(d("70")) || !o.AverageDonation.Equal(d("23.33")) || o.EventsSupported != 2 {
		t.Errorf("overview = %+v", o)
	}
	if o.PledgesByStatus.Completed != 1 || o.PledgesByStatus.Failed != 1 || o.PledgesByStatus.Pending != 1 {
		t.Errorf("pledges_by_status = %+v", o.PledgesByStatus)
	}
	if act.Pledges[0].EventTitle != "Library" || act.Pledges[0].DonorName != "donor" {
		t.Errorf("newest pledge = %+v, donors see their own name", act.Pledges[0])
	}
}

func TestEventAnalyticsAccess(t *testing.T) {
	svc := newDashboards(t)
	db := svc.stats.db
	ctx := context.Background()

	org := seedUser(t, db, "org", models.RoleOrganizer, at(2024, 1, 1, 0))
	other := seedUser(t, db, "other", models.RoleOrganizer, at(2024, 1, 1, 0))
	event := seedEvent(t, db, eventSeed{Organizer: org})

	if _, err := svc.EventAnalytics(ctx, org.ID, false, event.ID); err != nil {
		t.Errorf("organizer EventAnalytics: %v", err)
	}
	if _, err := svc.EventAnalytics(ctx, other.ID, true, event.ID); err != nil {
		t.Errorf("admin EventAnalytics: %v", err)
	}
	if _, err := svc.EventAnalytics(ctx, other.ID, false, event.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("stranger EventAnalytics = %v, want forbidden", err)
	}
	if _, err := svc.EventAnalytics(ctx, org.ID, false, uuid.New()); !errors.Is(err, ErrEventNotFound) {
		t.Errorf("missing EventAnalytics = %v", err)
	}
}
