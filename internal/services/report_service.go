package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	// MinCleanupDays is the floor applied to every cleanup request.
	MinCleanupDays = 30

	defaultReportLimit = 20
	maxReportLimit     = 100
)

type GenerateRequest struct {
	Type    string
	Date    time.Time
	Year    int
	Month   int
	EventID uuid.UUID
}

type ReportFilter struct {
	Type   string
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

// ReportService persists analytics snapshots and manages their lifetime.
type ReportService struct {
	db      *gorm.DB
	stats   *StatsService
	timeout time.Duration
	now     func() time.Time
}

func NewReportService(db *gorm.DB, stats *StatsService, cfg *config.Config) *ReportService {
	return &ReportService{
		db:      db,
		stats:   stats,
		timeout: cfg.DBTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Generate computes the requested analytics and stores them as a completed
// report. If the computation fails nothing is written.
func (s *ReportService) Generate(ctx context.Context, req GenerateRequest, requestedBy uuid.UUID) (*models.Report, error) {
	report := models.Report{
		Type:        req.Type,
		Status:      models.ReportStatusCompleted,
		GeneratedBy: requestedBy,
	}

	var payload any
	switch req.Type {
	case models.ReportDaily:
		st, err := s.stats.Daily(ctx, req.Date)
		if err != nil {
			return nil, s.generateFailed(req, err)
		}
		st.GeneratedBy = &requestedBy
		payload = st
		report.Title = "Daily Report - " + st.Period.Date
		report.StartDate, report.EndDate = st.Period.StartDate, st.Period.EndDate

	case models.ReportWeekly:
		st, err := s.stats.Weekly(ctx, req.Date)
		if err != nil {
			return nil, s.generateFailed(req, err)
		}
		st.GeneratedBy = &requestedBy
		payload = st
		report.Title = "Weekly Report - Week of " + st.Period.WeekOf
		report.StartDate, report.EndDate = st.Period.StartDate, st.Period.EndDate

	case models.ReportMonthly:
		st, err := s.stats.Monthly(ctx, req.Year, req.Month)
		if err != nil {
			return nil, s.generateFailed(req, err)
		}
		st.GeneratedBy = &requestedBy
		payload = st
		report.Title = fmt.Sprintf("Monthly Report - %s %d", st.Period.MonthName, st.Period.Year)
		report.StartDate, report.EndDate = st.Period.StartDate, st.Period.EndDate

	case models.ReportEvent:
		st, err := s.stats.EventReport(ctx, req.EventID)
		if err != nil {
			return nil, s.generateFailed(req, err)
		}
		st.GeneratedBy = &requestedBy
		payload = st
		eventID := req.EventID
		report.EventID = &eventID
		report.Title = "Event Report - " + st.Event.Title
		report.StartDate, report.EndDate = st.Period.StartDate, st.Period.EndDate

	default:
		return nil, validationf("invalid report type: must be daily, weekly, monthly, or event")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode report data: %w", err)
	}
	report.Data = datatypes.JSON(data)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, storeErr(err, nil, "save report")
	}

	slog.Info("report generated",
		"report_id", report.ID.String(),
		"type", report.Type,
		"title", report.Title,
		"user_id", requestedBy.String(),
	)
	return &report, nil
}

func (s *ReportService) generateFailed(req GenerateRequest, err error) error {
	slog.Error("report generation failed", "type", req.Type, "error", err)
	return err
}

// List returns reports newest first with the total matching count.
func (s *ReportService) List(ctx context.Context, f ReportFilter) ([]dto.ReportView, int64, error) {
	if f.Type != "" && !models.IsValidReportType(f.Type) {
		return nil, 0, validationf("invalid report type filter")
	}
	if f.Status != "" && !isValidReportStatus(f.Status) {
		return nil, 0, validationf("invalid report status filter")
	}
	if f.Offset < 0 {
		return nil, 0, validationf("offset must be zero or greater")
	}
	limit := ClampLimit(f.Limit)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := s.db.WithContext(ctx).Model(&models.Report{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr(err, nil, "count reports")
	}

	var reports []models.Report
	if err := q.Omit("data").
		Preload("Generator", unscoped).
		Order("created_at DESC").Order("id").
		Limit(limit).Offset(f.Offset).
		Find(&reports).Error; err != nil {
		return nil, 0, storeErr(err, nil, "list reports")
	}

	views := make([]dto.ReportView, len(reports))
	for i, r := range reports {
		views[i] = dto.ReportView{
			ID:            r.ID,
			Type:          r.Type,
			Title:         r.Title,
			EventID:       r.EventID,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			Status:        r.Status,
			GeneratedBy:   r.GeneratedBy,
			GeneratorName: r.Generator.Name,
			CreatedAt:     r.CreatedAt,
		}
	}
	return views, total, nil
}

// ClampLimit applies the default page size and the 100 row cap.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultReportLimit
	}
	if limit > maxReportLimit {
		return maxReportLimit
	}
	return limit
}

func isValidReportStatus(status string) bool {
	switch status {
	case models.ReportStatusPending, models.ReportStatusCompleted, models.ReportStatusFailed:
		return true
	}
	return false
}

func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, storeErr(err, ErrReportNotFound, "load report")
	}
	return &report, nil
}

// Download returns the stored payload and its attachment filename.
func (s *ReportService) Download(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return ReportFilename(report, "json"), []byte(report.Data), nil
}

// DownloadXLSX renders the stored payload as a workbook.
func (s *ReportService) DownloadXLSX(ctx context.Context, id uuid.UUID) (string, []byte, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	buf, err := reportWorkbook(report)
	if err != nil {
		slog.Error("xlsx export failed", "report_id", id.String(), "error", err)
		return "", nil, fmt.Errorf("render workbook: %w", err)
	}
	return ReportFilename(report, "xlsx"), buf, nil
}

// ReportFilename is <type>-report-<YYYY-MM-DD>.<ext>, dated by start_date.
func ReportFilename(r *models.Report, ext string) string {
	return fmt.Sprintf("%s-report-%s.%s", r.Type, dateKey(r.StartDate), ext)
}

// Cleanup deletes reports created more than daysOld days ago. Requests below
// MinCleanupDays are raised to it. It returns the number deleted and the
// window actually applied.
func (s *ReportService) Cleanup(ctx context.Context, daysOld int) (int64, int, error) {
	if daysOld < MinCleanupDays {
		daysOld = MinCleanupDays
	}
	cutoff := s.now().AddDate(0, 0, -daysOld)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Report{})
	if res.Error != nil {
		return 0, daysOld, storeErr(res.Error, nil, "cleanup reports")
	}
	slog.Info("old reports cleaned up", "deleted", res.RowsAffected, "days", daysOld)
	return res.RowsAffected, daysOld, nil
}

// reportWorkbook lays a report payload out as a Summary sheet of key/value
// pairs plus one sheet per analytics table.
func reportWorkbook(r *models.Report) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode report data: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	rows := [][]any{
		{"Title", r.Title},
		{"Type", r.Type},
		{"Start", r.StartDate.Format(time.RFC3339)},
		{"End", r.EndDate.Format(time.RFC3339)},
		{"Generated", r.CreatedAt.Format(time.RFC3339)},
	}
	for _, section := range []string{"period", "summary", "growth_analysis", "event"} {
		obj, ok := doc[section].(map[string]any)
		if !ok {
			continue
		}
		rows = append(rows, []any{}, []any{section})
		rows = append(rows, flatten("", obj)...)
	}
	if err := writeRows(f, summary, rows); err != nil {
		return nil, err
	}
	f.SetColWidth(summary, "A", "A", 28)
	f.SetColWidth(summary, "B", "B", 40)

	tables := map[string]any{}
	if analytics, ok := doc["analytics"].(map[string]any); ok {
		for k, v := range analytics {
			tables[k] = v
		}
	}
	if pledges, ok := doc["detailed_pledges"]; ok {
		tables["detailed_pledges"] = pledges
	}
	names := make([]string, 0, len(tables))
	for k := range tables {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		var sheetRows [][]any
		switch v := tables[name].(type) {
		case []any:
			sheetRows = tableRows(v)
		case map[string]any:
			sheetRows = flatten("", v)
		default:
			continue
		}
		sheet := sheetName(name)
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
		if err := writeRows(f, sheet, sheetRows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// tableRows turns a list of objects into a header row plus one row each.
func tableRows(items []any) [][]any {
	var header []string
	seen := map[string]bool{}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for k := range obj {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	out := [][]any{head}
	for _, item := range items {
		obj, _ := item.(map[string]any)
		row := make([]any, len(header))
		for i, h := range header {
			row[i] = cellValue(obj[h])
		}
		out = append(out, row)
	}
	return out
}

func flatten(prefix string, obj map[string]any) [][]any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out [][]any
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := obj[k].(map[string]any); ok {
			out = append(out, flatten(name, nested)...)
			continue
		}
		out = append(out, []any{name, cellValue(obj[k])})
	}
	return out
}

func cellValue(v any) any {
	switch x := v.(type) {
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case nil:
		return ""
	case map[string]any, []any:
		b, _ := json.Marshal(x)
		return string(b)
	default:
		return x
	}
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetName fits a key into excel's 31 character sheet name limit.
func sheetName(key string) string {
	if len(key) > 31 {
		return key[:31]
	}
	return key
}
