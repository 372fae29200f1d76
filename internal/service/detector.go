package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/pkg/config"
)

type loginHistoryStore interface {
	CountFailedLogins(ctx context.Context, userID, ipAddress string, since time.Time) (int, error)
	RecentSuccessfulLocations(ctx context.Context, userID string, limit int) ([]string, error)
}

type securityEventRecorder interface {
	RecordEvent(ctx context.Context, event *models.SecurityEventEntry) (*models.SecurityEventEntry, error)
}

// Detector inspects access-log entries for suspicious activity and turns
// matches into security events. Detection is best effort: a rule that
// fails to evaluate is logged and skipped so the login path never blocks
// on it.
type Detector struct {
	history  loginHistoryStore
	recorder securityEventRecorder
	logger   *zap.Logger
	cfg      config.SecurityConfig
}

// NewDetector constructs the detector.
func NewDetector(history loginHistoryStore, recorder securityEventRecorder, logger *zap.Logger, cfg config.SecurityConfig) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailedLoginThreshold <= 0 {
		cfg.FailedLoginThreshold = 5
	}
	if cfg.FailedLoginWindow <= 0 {
		cfg.FailedLoginWindow = 15 * time.Minute
	}
	if cfg.KnownLocationCount <= 0 {
		cfg.KnownLocationCount = 10
	}
	if cfg.UsualHourStart == 0 && cfg.UsualHourEnd == 0 {
		cfg.UsualHourStart, cfg.UsualHourEnd = 6, 22
	}
	return &Detector{history: history, recorder: recorder, logger: logger, cfg: cfg}
}

// Analyze runs every detection rule against one access-log entry. Each
// matching rule records its own security event; one entry can therefore
// produce several events. Only the burst rule cares about the outcome;
// the location and hour rules run on failures too.
func (d *Detector) Analyze(ctx context.Context, entry *models.AccessLogEntry) {
	if entry == nil || entry.Action != models.AccessActionLogin {
		return
	}
	if !entry.Success {
		d.checkFailedLoginBurst(ctx, entry)
	}
	d.checkUnusualLocation(ctx, entry)
	d.checkUnusualHour(ctx, entry)
}

func (d *Detector) checkFailedLoginBurst(ctx context.Context, entry *models.AccessLogEntry) {
	since := entry.OccurredAt.Add(-d.cfg.FailedLoginWindow)
	count, err := d.history.CountFailedLogins(ctx, entry.UserID, entry.IPAddress, since)
	if err != nil {
		d.logger.Sugar().Errorw("failed-login rule skipped", "user_id", entry.UserID, "error", err)
		return
	}
	if count < d.cfg.FailedLoginThreshold {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"failed_attempts": count,
		"window_minutes":  int(d.cfg.FailedLoginWindow.Minutes()),
		"last_attempt":    entry.OccurredAt.Format(time.RFC3339),
	})
	d.record(ctx, &models.SecurityEventEntry{
		Type:        models.EventMultipleFailedAttempts,
		Severity:    models.SeverityHigh,
		UserID:      &entry.UserID,
		IPAddress:   entry.IPAddress,
		UserAgent:   &entry.UserAgent,
		Description: fmt.Sprintf("%d failed login attempts within %d minutes", count, int(d.cfg.FailedLoginWindow.Minutes())),
		Details:     details,
		OccurredAt:  entry.OccurredAt,
	})
}

func (d *Detector) checkUnusualLocation(ctx context.Context, entry *models.AccessLogEntry) {
	if entry.Location == nil || *entry.Location == "" {
		return
	}
	known, err := d.history.RecentSuccessfulLocations(ctx, entry.UserID, d.cfg.KnownLocationCount)
	if err != nil {
		d.logger.Sugar().Errorw("unusual-location rule skipped", "user_id", entry.UserID, "error", err)
		return
	}
	// A first-ever login has no baseline to deviate from.
	if len(known) == 0 {
		return
	}
	for _, loc := range known {
		if loc == *entry.Location {
			return
		}
	}
	details, _ := json.Marshal(map[string]interface{}{
		"location":        *entry.Location,
		"known_locations": known,
	})
	d.record(ctx, &models.SecurityEventEntry{
		Type:        models.EventUnusualAccessPattern,
		Severity:    models.SeverityMedium,
		UserID:      &entry.UserID,
		IPAddress:   entry.IPAddress,
		UserAgent:   &entry.UserAgent,
		Description: fmt.Sprintf("login from unusual location %q", *entry.Location),
		Details:     details,
		OccurredAt:  entry.OccurredAt,
	})
}

func (d *Detector) checkUnusualHour(ctx context.Context, entry *models.AccessLogEntry) {
	hour := entry.OccurredAt.Hour()
	if hour >= d.cfg.UsualHourStart && hour <= d.cfg.UsualHourEnd {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"hour":        hour,
		"usual_start": d.cfg.UsualHourStart,
		"usual_end":   d.cfg.UsualHourEnd,
	})
	d.record(ctx, &models.SecurityEventEntry{
		Type:        models.EventUnusualAccessPattern,
		Severity:    models.SeverityLow,
		UserID:      &entry.UserID,
		IPAddress:   entry.IPAddress,
		UserAgent:   &entry.UserAgent,
		Description: fmt.Sprintf("login at unusual hour %02d:00", hour),
		Details:     details,
		OccurredAt:  entry.OccurredAt,
	})
}

func (d *Detector) record(ctx context.Context, event *models.SecurityEventEntry) {
	if _, err := d.recorder.RecordEvent(ctx, event); err != nil {
		d.logger.Sugar().Errorw("failed to record detected event",
			"type", event.Type,
			"severity", event.Severity,
			"error", err,
		)
	}
}
