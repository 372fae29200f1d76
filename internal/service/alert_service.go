package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/pkg/config"
	"github.com/r2suporte/interalpha-api/pkg/jobs"
)

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type alertTransport interface {
	SendEmail(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error
	SendSMS(ctx context.Context, recipients []string, body string, viaWhatsApp bool) error
}

type alertCounter interface {
	RecordAlert(delivered bool)
}

// Recipients names delivery targets per channel.
type Recipients struct {
	Email []string `json:"email,omitempty"`
	SMS   []string `json:"sms,omitempty"`
}

// AlertMessage is the queued notification payload. Recipients are
// resolved before the message is queued so the worker delivers to the
// set decided at notify time.
type AlertMessage struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	Severity   models.Severity `json:"severity"`
	Subject    string          `json:"subject"`
	Body       string          `json:"body"`
	Channels   []string        `json:"channels"`
	Recipients Recipients      `json:"recipients"`
}

// AlertService decides which security events become notifications and
// delivers them. Events below the severity threshold are dropped, and a
// per (event type, ip) cooldown suppresses repeats.
type AlertService struct {
	queue     jobDispatcher
	transport alertTransport
	cooldowns *redis.Client
	logger    *zap.Logger
	cfg       config.AlertsConfig
	metrics   alertCounter

	now func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewAlertService constructs the service. The queue is optional; without
// it every notification is delivered synchronously.
func NewAlertService(queue jobDispatcher, transport alertTransport, cooldowns *redis.Client, logger *zap.Logger, cfg config.AlertsConfig) *AlertService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SeverityThreshold == "" {
		cfg.SeverityThreshold = string(models.SeverityMedium)
	}
	if cfg.CooldownMinutes <= 0 {
		cfg.CooldownMinutes = 60
	}
	if len(cfg.Channels) == 0 {
		cfg.Channels = []string{"email"}
	}
	return &AlertService{
		queue:     queue,
		transport: transport,
		cooldowns: cooldowns,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		lastSent:  make(map[string]time.Time),
	}
}

// AttachMetrics binds the instrumentation sink.
func (s *AlertService) AttachMetrics(metrics alertCounter) {
	s.metrics = metrics
}

// NotifyEvent gates the event through the severity threshold and the
// cooldown, then queues delivery to the default recipients.
func (s *AlertService) NotifyEvent(ctx context.Context, event *models.SecurityEventEntry) error {
	return s.NotifyEventTo(ctx, event, Recipients{})
}

// NotifyEventTo is NotifyEvent with a per-call recipient override. The
// override is merged with the configured defaults as a union, never a
// replacement. Suppression is not an error.
func (s *AlertService) NotifyEventTo(ctx context.Context, event *models.SecurityEventEntry, extra Recipients) error {
	if !s.cfg.Enabled {
		return nil
	}
	if !event.Severity.AtLeast(models.Severity(s.cfg.SeverityThreshold)) {
		s.countAlert(false)
		return nil
	}
	key := cooldownKey(event.Type, event.IPAddress)
	if !s.acquireCooldown(ctx, key) {
		s.logger.Sugar().Debugw("alert suppressed by cooldown", "key", key, "event_id", event.ID)
		s.countAlert(false)
		return nil
	}

	msg := s.buildMessage(event, extra)
	if s.queue == nil {
		return s.SendNow(ctx, msg)
	}
	return s.queue.Enqueue(jobs.Job{
		ID:       uuid.NewString(),
		Type:     "security_alert",
		Payload:  msg,
		Priority: priorityFor(event.Severity),
	})
}

// SendTest pushes a synthetic alert through the full delivery path,
// bypassing threshold and cooldown gating.
func (s *AlertService) SendTest(ctx context.Context, severity models.Severity, message string) error {
	if message == "" {
		message = "test alert"
	}
	return s.SendNow(ctx, AlertMessage{
		EventID:    uuid.NewString(),
		EventType:  "TEST",
		Severity:   severity,
		Subject:    fmt.Sprintf("[%s] test alert", strings.ToUpper(string(severity))),
		Body:       message,
		Channels:   s.cfg.Channels,
		Recipients: s.resolveRecipients(Recipients{}),
	})
}

// SendNow delivers the message over every configured channel. Channel
// failures are collected so one broken transport does not hide the rest.
func (s *AlertService) SendNow(ctx context.Context, msg AlertMessage) error {
	if s.transport == nil {
		return fmt.Errorf("alert transport unavailable")
	}
	var errs []string
	for _, channel := range msg.Channels {
		switch channel {
		case "email":
			if len(msg.Recipients.Email) == 0 {
				continue
			}
			if err := s.transport.SendEmail(ctx, msg.Recipients.Email, msg.Subject, "", msg.Body); err != nil {
				errs = append(errs, fmt.Sprintf("email: %v", err))
			}
		case "sms":
			if len(msg.Recipients.SMS) == 0 {
				continue
			}
			if err := s.transport.SendSMS(ctx, msg.Recipients.SMS, msg.Subject+" "+msg.Body, false); err != nil {
				errs = append(errs, fmt.Sprintf("sms: %v", err))
			}
		default:
			s.logger.Sugar().Warnw("unknown alert channel", "channel", channel)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("alert delivery failed: %s", strings.Join(errs, "; "))
	}
	s.countAlert(true)
	return nil
}

func (s *AlertService) countAlert(delivered bool) {
	if s.metrics != nil {
		s.metrics.RecordAlert(delivered)
	}
}

// HandleJob is the queue worker entrypoint.
func (s *AlertService) HandleJob(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(AlertMessage)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.SendNow(ctx, msg)
}

func (s *AlertService) buildMessage(event *models.SecurityEventEntry, extra Recipients) AlertMessage {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(event.Severity)), event.Type)
	body := fmt.Sprintf("%s (ip %s, at %s)", event.Description, event.IPAddress, event.OccurredAt.Format(time.RFC3339))
	if event.UserID != nil {
		body += fmt.Sprintf(", user %s", *event.UserID)
	}
	return AlertMessage{
		EventID:    event.ID,
		EventType:  string(event.Type),
		Severity:   event.Severity,
		Subject:    subject,
		Body:       body,
		Channels:   s.cfg.Channels,
		Recipients: s.resolveRecipients(extra),
	}
}

// resolveRecipients unions the configured default set with a per-call
// override.
func (s *AlertService) resolveRecipients(extra Recipients) Recipients {
	return Recipients{
		Email: dedupe(append(append([]string{}, s.cfg.EmailRecipients...), extra.Email...)),
		SMS:   dedupe(append(append([]string{}, s.cfg.SMSRecipients...), extra.SMS...)),
	}
}

// acquireCooldown reports whether the key is outside its cooldown window
// and, when it is, claims the window. Redis backs the check when
// configured so suppression holds across instances; otherwise a
// per-process map is used.
func (s *AlertService) acquireCooldown(ctx context.Context, key string) bool {
	window := time.Duration(s.cfg.CooldownMinutes) * time.Minute
	if s.cfg.CooldownStore == "redis" && s.cooldowns != nil {
		ok, err := s.cooldowns.SetNX(ctx, "alerts:cooldown:"+key, s.now().Format(time.RFC3339), window).Result()
		if err == nil {
			return ok
		}
		s.logger.Sugar().Warnw("cooldown store unavailable, falling back to memory", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if last, seen := s.lastSent[key]; seen && now.Sub(last) < window {
		return false
	}
	s.lastSent[key] = now
	return true
}

func cooldownKey(eventType models.SecurityEventType, ipAddress string) string {
	return string(eventType) + "|" + ipAddress
}

func priorityFor(severity models.Severity) jobs.Priority {
	switch severity {
	case models.SeverityCritical:
		return jobs.PriorityCritical
	case models.SeverityHigh:
		return jobs.PriorityHigh
	case models.SeverityMedium:
		return jobs.PriorityNormal
	default:
		return jobs.PriorityLow
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
