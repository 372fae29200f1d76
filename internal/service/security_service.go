package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/pkg/config"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type securityEventStore interface {
	Create(ctx context.Context, event *models.SecurityEventEntry) error
	AppendAction(ctx context.Context, action *models.SecurityAction) error
	GetByID(ctx context.Context, id string) (*models.SecurityEventEntry, error)
	List(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, int, error)
	Resolve(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error
}

type alertRuleStore interface {
	List(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error)
	MarkTriggered(ctx context.Context, id string, triggeredAt time.Time) error
}

type eventNotifier interface {
	NotifyEvent(ctx context.Context, event *models.SecurityEventEntry) error
}

type auditWriter interface {
	LogAction(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error)
}

type securityEventCounter interface {
	RecordSecurityEvent(eventType, severity string)
}

// SecurityService runs the security event pipeline: persist the event,
// execute the automated responses its type and severity call for, then
// hand it to the notification dispatcher and any matching alert rules.
type SecurityService struct {
	events   securityEventStore
	rules    alertRuleStore
	notifier eventNotifier
	audit    auditWriter
	locks    *redis.Client
	logger   *zap.Logger
	cfg      config.SecurityConfig
	metrics  securityEventCounter
}

// NewSecurityService constructs the service. The rules store, notifier,
// audit writer and lock client are each optional.
func NewSecurityService(events securityEventStore, rules alertRuleStore, notifier eventNotifier, audit auditWriter, locks *redis.Client, logger *zap.Logger, cfg config.SecurityConfig) *SecurityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AccountLockDuration <= 0 {
		cfg.AccountLockDuration = 30 * time.Minute
	}
	return &SecurityService{
		events:   events,
		rules:    rules,
		notifier: notifier,
		audit:    audit,
		locks:    locks,
		logger:   logger,
		cfg:      cfg,
	}
}

// AttachMetrics binds the instrumentation sink.
func (s *SecurityService) AttachMetrics(metrics securityEventCounter) {
	s.metrics = metrics
}

// RecordEvent persists a security event, executes its automated
// responses, and dispatches notifications. Response and notification
// failures are logged without failing the record itself.
func (s *SecurityService) RecordEvent(ctx context.Context, event *models.SecurityEventEntry) (*models.SecurityEventEntry, error) {
	if !event.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown security event type %q", event.Type))
	}
	if !event.Severity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown severity %q", event.Severity))
	}
	if event.IPAddress == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ip_address is required")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	event.Resolved = false
	event.Actions = nil

	if err := s.events.Create(ctx, event); err != nil {
		s.logger.Sugar().Errorw("failed to persist security event", "type", event.Type, "error", err)
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordSecurityEvent(string(event.Type), string(event.Severity))
	}

	s.executeResponses(ctx, event)
	s.dispatch(ctx, event)
	return event, nil
}

// responseRule pairs a predicate over the event with the automated
// action it attaches.
type responseRule struct {
	action  models.SecurityActionName
	applies func(*models.SecurityEventEntry) bool
	details func(*models.SecurityEventEntry) map[string]interface{}
	run     func(context.Context, *models.SecurityEventEntry) error
}

func (s *SecurityService) responseRules() []responseRule {
	return []responseRule{
		{
			action: models.ActionAlertAdministrators,
			applies: func(e *models.SecurityEventEntry) bool {
				return e.Severity == models.SeverityCritical
			},
			details: func(e *models.SecurityEventEntry) map[string]interface{} {
				return map[string]interface{}{"reason": "critical severity"}
			},
			run: func(ctx context.Context, e *models.SecurityEventEntry) error {
				if s.notifier == nil {
					return nil
				}
				return s.notifier.NotifyEvent(ctx, e)
			},
		},
		{
			action: models.ActionTemporaryAccountLock,
			applies: func(e *models.SecurityEventEntry) bool {
				return e.Type == models.EventBruteForceAttack && e.UserID != nil && *e.UserID != ""
			},
			details: func(e *models.SecurityEventEntry) map[string]interface{} {
				return map[string]interface{}{
					"user_id":      *e.UserID,
					"lock_minutes": int(s.cfg.AccountLockDuration.Minutes()),
				}
			},
			run: func(ctx context.Context, e *models.SecurityEventEntry) error {
				return s.lockAccount(ctx, *e.UserID)
			},
		},
	}
}

// executeResponses walks the ordered response table and attaches every
// action whose predicate holds. The action is recorded whether or not
// its execution succeeds; an execution failure lands in the action's
// details instead of dropping the action.
func (s *SecurityService) executeResponses(ctx context.Context, event *models.SecurityEventEntry) {
	for _, rule := range s.responseRules() {
		if !rule.applies(event) {
			continue
		}
		s.runAction(ctx, event, rule)
	}
}

func (s *SecurityService) runAction(ctx context.Context, event *models.SecurityEventEntry, rule responseRule) {
	details := rule.details(event)
	if err := rule.run(ctx, event); err != nil {
		s.logger.Sugar().Errorw("automated response failed",
			"event_id", event.ID,
			"action", rule.action,
			"error", err,
		)
		details["error"] = err.Error()
	}
	payload, _ := json.Marshal(details)
	action := models.SecurityAction{
		EventID:    event.ID,
		Action:     rule.action,
		Automated:  true,
		Details:    payload,
		ExecutedAt: time.Now().UTC(),
	}
	if err := s.events.AppendAction(ctx, &action); err != nil {
		s.logger.Sugar().Errorw("failed to record executed response", "event_id", event.ID, "action", rule.action, "error", err)
		return
	}
	event.Actions = append(event.Actions, action)
}

func (s *SecurityService) lockAccount(ctx context.Context, userID string) error {
	if s.locks == nil {
		return fmt.Errorf("account lock store unavailable")
	}
	return s.locks.Set(ctx, accountLockKey(userID), time.Now().UTC().Format(time.RFC3339), s.cfg.AccountLockDuration).Err()
}

// AccountLocked reports whether a temporary lock is active for the user.
func (s *SecurityService) AccountLocked(ctx context.Context, userID string) bool {
	if s.locks == nil {
		return false
	}
	n, err := s.locks.Exists(ctx, accountLockKey(userID)).Result()
	if err != nil {
		s.logger.Sugar().Warnw("account lock check failed", "user_id", userID, "error", err)
		return false
	}
	return n > 0
}

func accountLockKey(userID string) string {
	return "security:lock:" + userID
}

// dispatch hands the event to the notification dispatcher and evaluates
// the user-defined alert rules against it.
func (s *SecurityService) dispatch(ctx context.Context, event *models.SecurityEventEntry) {
	if s.notifier != nil && event.Severity != models.SeverityCritical {
		// Critical events already notified through alert_administrators.
		if err := s.notifier.NotifyEvent(ctx, event); err != nil {
			s.logger.Sugar().Errorw("event notification failed", "event_id", event.ID, "error", err)
		}
	}
	if s.rules == nil {
		return
	}
	rules, err := s.rules.List(ctx, true)
	if err != nil {
		s.logger.Sugar().Errorw("alert rule evaluation skipped", "error", err)
		return
	}
	now := time.Now().UTC()
	for i := range rules {
		rule := &rules[i]
		if !rule.Matches(event) {
			continue
		}
		if rule.LastTriggered != nil && rule.CooldownMinutes > 0 {
			if now.Sub(*rule.LastTriggered) < time.Duration(rule.CooldownMinutes)*time.Minute {
				continue
			}
		}
		if err := s.rules.MarkTriggered(ctx, rule.ID, now); err != nil {
			s.logger.Sugar().Errorw("failed to mark alert rule triggered", "rule_id", rule.ID, "error", err)
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.NotifyEvent(ctx, event); err != nil {
				s.logger.Sugar().Errorw("alert rule notification failed", "rule_id", rule.ID, "event_id", event.ID, "error", err)
			}
		}
		s.logger.Sugar().Infow("alert rule triggered",
			"rule_id", rule.ID,
			"rule", rule.Name,
			"event_id", event.ID,
			"actions", rule.Actions,
		)
	}
}

// GetEvent returns one event with its actions.
func (s *SecurityService) GetEvent(ctx context.Context, id string) (*models.SecurityEventEntry, error) {
	return s.events.GetByID(ctx, id)
}

// ListEvents returns filtered events with pagination metadata.
func (s *SecurityService) ListEvents(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, *models.Pagination, error) {
	events, total, err := s.events.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return events, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ResolveEvent performs the one-way resolve transition and writes the
// secondary audit trail for it. The first resolution wins; later calls
// surface ErrAlreadyResolved.
func (s *SecurityService) ResolveEvent(ctx context.Context, id, resolvedBy, note, ipAddress, userAgent string) (*models.SecurityEventEntry, error) {
	resolvedAt := time.Now().UTC()
	if err := s.events.Resolve(ctx, id, resolvedBy, resolvedAt); err != nil {
		return nil, err
	}
	if s.audit != nil {
		metadata, _ := json.Marshal(map[string]string{"note": note})
		if _, err := s.audit.LogAction(ctx, &models.AuditEntry{
			ActorID:    resolvedBy,
			ActorKind:  models.ActorKindEmployee,
			Action:     "security_event.resolve",
			Resource:   "security_event",
			ResourceID: &id,
			Result:     models.AuditResultSuccess,
			IPAddress:  ipAddress,
			UserAgent:  userAgent,
			Metadata:   metadata,
			OccurredAt: resolvedAt,
		}); err != nil {
			s.logger.Sugar().Errorw("failed to audit event resolution", "event_id", id, "error", err)
		}
	}
	return s.events.GetByID(ctx, id)
}
