package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
// A single connection serializes transactions the way row locks would.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gcfg := database.Config()
	gcfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		DBTimeout:        5 * time.Second,
		JWTSecret:        "test-secret",
		JWTAccessExpiry:  15 * time.Minute,
		JWTRefreshExpiry: time.Hour,
		MinPledgeAmount:  decimal.NewFromInt(10),
		MinTargetAmount:  decimal.NewFromInt(100),
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func seedUser(t *testing.T, db *gorm.DB, name, role string, createdAt time.Time) *models.User {
	t.Helper()
	u := &models.User{
		Name:      name,
		Email:     fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password:  "hash",
		Role:      role,
		CreatedAt: createdAt,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	return u
}

type eventSeed struct {
	Organizer *models.User
	Title     string
	Target    string
	Status    string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func seedEvent(t *testing.T, db *gorm.DB, s eventSeed) *models.Event {
	t.Helper()
	if s.Title == "" {
		s.Title = "Community garden"
	}
	if s.Status == "" {
		s.Status = models.EventStatusActive
	}
	if s.Target == "" {
		s.Target = "1000"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.CreatedAt
	}
	e := &models.Event{
		OrganizerID:  s.Organizer.ID,
		Title:        s.Title,
		Description:  "A long enough description for the event.",
		TargetAmount: decimal.RequireFromString(s.Target),
		Category:     s.Category,
		Status:       s.Status,
		StartDate:    s.CreatedAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if err := db.Create(e).Error; err != nil {
		t.Fatalf("seedEvent: %v", err)
	}
	return e
}

type pledgeSeed struct {
	Event     *models.Event
	Donor     *models.User
	Amount    string
	Status    string
	Anonymous bool
	CreatedAt time.Time
}

// seedPledge inserts a pledge row directly, bypassing reconciliation.
func seedPledge(t *testing.T, db *gorm.DB, s pledgeSeed) *models.Pledge {
	t.Helper()
	if s.Status == "" {
		s.Status = models.PaymentCompleted
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	p := &models.Pledge{
		EventID:       s.Event.ID,
		DonorID:       s.Donor.ID,
		Amount:        decimal.RequireFromString(s.Amount),
		IsAnonymous:   s.Anonymous,
		PaymentStatus: s.Status,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.CreatedAt,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seedPledge: %v", err)
	}
	return p
}

func currentAmount(t *testing.T, db *gorm.DB, eventID uuid.UUID) decimal.Decimal {
	t.Helper()
	var e models.Event
	if err := db.First(&e, "id = ?", eventID).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	return e.CurrentAmount
}

func completedSum(t *testing.T, db *gorm.DB, eventID uuid.UUID) decimal.Decimal {
	t.Helper()
	var pledges []models.Pledge
	if err := db.Where("event_id = ? AND payment_status = ?", eventID, models.PaymentCompleted).Find(&pledges).Error; err != nil {
		t.Fatalf("load pledges: %v", err)
	}
	sum := decimal.Zero
	for _, p := range pledges {
		sum = sum.Add(p.Amount)
	}
	return sum
}

func at(year int, month time.Month, day, hour int) time.Time {
	return time.Date(year, month, day, hour, 0, 0, 0, time.UTC)
}

func newPledges(db *gorm.DB) *PledgeService {
	cfg := testConfig()
	return NewPledgeService(db, cfg, NewModerationService(db, cfg))
}
