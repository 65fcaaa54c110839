package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/pledge-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BannedWords are rejected as whole words in any user-written text.
var BannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot",
	"retard", "retarded", "tranny",
	"porn", "porno", "nudes",
	"scam", "scammer", "phishing", "malware",
	"bitcoin doubler", "wire transfer only", "gift card payment",
}

var rejectionMessages = map[string]string{
	"inappropriate_language":   "Text contains inappropriate language.",
	"contact_info_not_allowed": "Contact details are not allowed; use the platform to reach supporters.",
	"spam_detected":            "Text appears to be spam.",
	"excessive_caps":           "Please avoid using excessive capital letters.",
}

// ModerationService screens user-written text and runs the admin review
// workflow for events. Patterns are compiled once and read-only afterwards.
type ModerationService struct {
	db      *gorm.DB
	timeout time.Duration
	now     func() time.Time

	bannedWordRegexps   []*regexp.Regexp
	emailPattern        *regexp.Regexp
	phonePattern        *regexp.Regexp
	repeatedCharPattern *regexp.Regexp
	allCapsPattern      *regexp.Regexp
}

func NewModerationService(db *gorm.DB, cfg *config.Config) *ModerationService {
	ms := &ModerationService{
		db:      db,
		timeout: cfg.DBTimeout,
		now:     func() time.Time { return time.Now().UTC() },
	}

	ms.bannedWordRegexps = make([]*regexp.Regexp, 0, len(BannedWords))
	for _, word := range BannedWords {
		ms.bannedWordRegexps = append(ms.bannedWordRegexps,
			regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	ms.emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	ms.phonePattern = regexp.MustCompile(`\+?\d{3}[-.\s]\d{3}[-.\s]\d{4}\b|\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`)
	ms.repeatedCharPattern = regexp.MustCompile(repeatedCharExpr())
	ms.allCapsPattern = regexp.MustCompile(`\b[A-Z]{5,}\b`)
	return ms
}

// FilterContent reports whether text passes the content rules, and if not,
// a machine-readable reason.
func (ms *ModerationService) FilterContent(text string) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return true, ""
	}
	for _, re := range ms.bannedWordRegexps {
		if re.MatchString(text) {
			return false, "inappropriate_language"
		}
	}
	if ms.emailPattern.MatchString(text) || ms.phonePattern.MatchString(text) {
		return false, "contact_info_not_allowed"
	}
	if ms.repeatedCharPattern.MatchString(text) {
		return false, "spam_detected"
	}
	if len(ms.allCapsPattern.FindAllString(text, -1)) > 2 {
		return false, "excessive_caps"
	}
	return true, ""
}

// repeatedCharExpr matches five of the same letter or four of the same
// punctuation mark in a row. RE2 has no backreferences, so each run is spelled out.
func repeatedCharExpr() string {
	runs := []string{`!{4,}`, `\?{4,}`, `\.{4,}`}
	for c := 'a'; c <= 'z'; c++ {
		runs = append(runs, string(c)+"{5,}")
	}
	return `(?i)(` + strings.Join(runs, "|") + `)`
}

func (ms *ModerationService) GetRejectionMessage(reason string) string {
	if msg, ok := rejectionMessages[reason]; ok {
		return msg
	}
	return "Text does not meet our content guidelines."
}

// CheckText returns a validation error naming field when text fails the
// content rules. A nil service accepts everything.
func (ms *ModerationService) CheckText(field, text string) error {
	if ms == nil {
		return nil
	}
	if ok, reason := ms.FilterContent(text); !ok {
		return validationf("%s: %s", field, ms.GetRejectionMessage(reason))
	}
	return nil
}

// Approve activates a pending event or clears the flag on a flagged one.
func (ms *ModerationService) Approve(ctx context.Context, adminID, eventID uuid.UUID) (*models.Event, error) {
	return ms.transition(ctx, eventID, func(e *models.Event) (map[string]any, error) {
		if e.Status != models.EventStatusPending && !e.Flagged {
			return nil, invalidStatef("only pending or flagged events can be approved (status %s)", e.Status)
		}
		updates := map[string]any{"flagged": false, "flag_reason": "", "flagged_at": nil}
		if e.Status == models.EventStatusPending {
			updates["status"] = models.EventStatusActive
			updates["start_date"] = ms.now()
		}
		slog.Info("event approved", "event_id", eventID.String(), "user_id", adminID.String())
		return updates, nil
	})
}

func (ms *ModerationService) Reject(ctx context.Context, adminID, eventID uuid.UUID, reason string) (*models.Event, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) > 500 {
		return nil, validationf("reason must be at most 500 characters")
	}
	return ms.transition(ctx, eventID, func(e *models.Event) (map[string]any, error) {
		if e.Status != models.EventStatusPending {
			return nil, invalidStatef("only pending events can be rejected (status %s)", e.Status)
		}
		slog.Info("event rejected", "event_id", eventID.String(), "user_id", adminID.String(), "reason", reason)
		return map[string]any{"status": models.EventStatusRejected}, nil
	})
}

// Flag marks an event for review. Flagged events stop accepting pledges and
// drop out of public listings until approved again.
func (ms *ModerationService) Flag(ctx context.Context, adminID, eventID uuid.UUID, reason string) (*models.Event, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationf("reason is required")
	}
	if len(reason) > 500 {
		return nil, validationf("reason must be at most 500 characters")
	}
	return ms.transition(ctx, eventID, func(e *models.Event) (map[string]any, error) {
		if e.Status == models.EventStatusRejected {
			return nil, invalidStatef("rejected events cannot be flagged")
		}
		slog.Warn("event flagged", "event_id", eventID.String(), "user_id", adminID.String(), "reason", reason)
		return map[string]any{"flagged": true, "flag_reason": reason, "flagged_at": ms.now()}, nil
	})
}

func (ms *ModerationService) ListPending(ctx context.Context, limit, offset int) ([]models.Event, int64, error) {
	return ms.list(ctx, limit, offset, "created_at ASC", "status = ?", models.EventStatusPending)
}

func (ms *ModerationService) ListFlagged(ctx context.Context, limit, offset int) ([]models.Event, int64, error) {
	return ms.list(ctx, limit, offset, "flagged_at DESC", "flagged = ?", true)
}

func (ms *ModerationService) list(ctx context.Context, limit, offset int, order, query string, args ...any) ([]models.Event, int64, error) {
	if offset < 0 {
		return nil, 0, validationf("offset must not be negative")
	}
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	q := ms.db.WithContext(ctx).Model(&models.Event{}).Where(query, args...).Session(&gorm.Session{})
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, storeErr(err, nil, "count events")
	}
	var events []models.Event
	if err := q.Preload("Organizer", unscoped).Order(order).Order("id").Limit(ClampLimit(limit)).Offset(offset).Find(&events).Error; err != nil {
		return nil, 0, storeErr(err, nil, "list events")
	}
	return events, total, nil
}

// transition locks the event, lets decide compute the column updates and
// applies them in the same transaction.
func (ms *ModerationService) transition(ctx context.Context, eventID uuid.UUID, decide func(*models.Event) (map[string]any, error)) (*models.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, ms.timeout)
	defer cancel()

	var event *models.Event
	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		event, err = lockEvent(tx, eventID)
		if err != nil {
			return err
		}
		updates, err := decide(event)
		if err != nil {
			return err
		}
		if err := tx.Model(event).Updates(updates).Error; err != nil {
			return storeErr(err, nil, "update event")
		}
		return tx.First(event, "id = ?", eventID).Error
	})
	if err != nil {
		return nil, storeErr(err, ErrEventNotFound, "moderate event")
	}
	return event, nil
}
