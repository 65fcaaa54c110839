package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"gorm.io/gorm"
)

// ReportCleaner removes materialized reports older than a number of days.
type ReportCleaner interface {
	Cleanup(ctx context.Context, daysOld int) (int64, int, error)
}

// Retention prunes system_logs and expired reports once a day.
type Retention struct {
	DB         *gorm.DB
	Reports    ReportCleaner
	LogDays    int
	ReportDays int
	Interval   time.Duration
}

// Start runs the job in a goroutine until done is closed.
func (r Retention) Start(done <-chan struct{}) {
	interval := r.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.RunOnce(context.Background())
			case <-done:
				return
			}
		}
	}()
}

// RunOnce applies both retention rules and logs the outcome.
func (r Retention) RunOnce(ctx context.Context) {
	if r.LogDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -r.LogDays)
		result := r.DB.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
		if result.Error != nil {
			slog.Error("log cleanup failed", "error", result.Error)
		} else if result.RowsAffected > 0 {
			slog.Info("log cleanup completed", "deleted", result.RowsAffected)
		}
	}

	if r.Reports != nil && r.ReportDays > 0 {
		if _, _, err := r.Reports.Cleanup(ctx, r.ReportDays); err != nil {
			slog.Error("report cleanup failed", "error", err)
		}
	}
}
