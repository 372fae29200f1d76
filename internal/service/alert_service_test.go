package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/pkg/config"
	"github.com/r2suporte/interalpha-api/pkg/jobs"
)

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type transportStub struct {
	emails      int
	sms         int
	lastEmailTo []string
	lastSMSTo   []string
	emailErr    error
	smsErr      error
}

func (t *transportStub) SendEmail(ctx context.Context, recipients []string, subject, htmlBody, textBody string) error {
	if t.emailErr != nil {
		return t.emailErr
	}
	t.emails++
	t.lastEmailTo = recipients
	return nil
}

func (t *transportStub) SendSMS(ctx context.Context, recipients []string, body string, viaWhatsApp bool) error {
	if t.smsErr != nil {
		return t.smsErr
	}
	t.sms++
	t.lastSMSTo = recipients
	return nil
}

type alertCounterStub struct {
	delivered  int
	suppressed int
}

func (c *alertCounterStub) RecordAlert(delivered bool) {
	if delivered {
		c.delivered++
		return
	}
	c.suppressed++
}

func alertsConfig() config.AlertsConfig {
	return config.AlertsConfig{
		Enabled:           true,
		SeverityThreshold: string(models.SeverityMedium),
		CooldownMinutes:   60,
		CooldownStore:     "memory",
		EmailRecipients:   []string{"ops@example.com"},
		Channels:          []string{"email"},
	}
}

func securityEvent(eventType models.SecurityEventType, severity models.Severity, ip string) *models.SecurityEventEntry {
	return &models.SecurityEventEntry{
		ID:          "evt-1",
		Type:        eventType,
		Severity:    severity,
		IPAddress:   ip,
		Description: "test event",
		OccurredAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNotifyEventBelowThresholdIsDropped(t *testing.T) {
	queue := &queueStub{}
	counter := &alertCounterStub{}
	svc := NewAlertService(queue, &transportStub{}, nil, nil, alertsConfig())
	svc.AttachMetrics(counter)

	err := svc.NotifyEvent(context.Background(), securityEvent(models.EventUnusualAccessPattern, models.SeverityLow, "10.0.0.1"))
	require.NoError(t, err)
	assert.Empty(t, queue.jobs)
	assert.Equal(t, 1, counter.suppressed)
}

func TestNotifyEventAtThresholdIsQueued(t *testing.T) {
	queue := &queueStub{}
	svc := NewAlertService(queue, &transportStub{}, nil, nil, alertsConfig())

	err := svc.NotifyEvent(context.Background(), securityEvent(models.EventSuspiciousLogin, models.SeverityMedium, "10.0.0.1"))
	require.NoError(t, err)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "security_alert", queue.jobs[0].Type)
	assert.Equal(t, jobs.PriorityNormal, queue.jobs[0].Priority)

	msg, ok := queue.jobs[0].Payload.(AlertMessage)
	require.True(t, ok)
	assert.Equal(t, []string{"ops@example.com"}, msg.Recipients.Email)
}

func TestNotifyEventToMergesOverrideRecipients(t *testing.T) {
	transport := &transportStub{}
	svc := NewAlertService(nil, transport, nil, nil, alertsConfig())

	// Override adds to the defaults; duplicates collapse.
	err := svc.NotifyEventTo(context.Background(),
		securityEvent(models.EventBruteForceAttack, models.SeverityHigh, "10.0.0.1"),
		Recipients{Email: []string{"oncall@example.com", "ops@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com", "oncall@example.com"}, transport.lastEmailTo)
}

func TestNotifyEventSeverityMapsToJobPriority(t *testing.T) {
	cases := []struct {
		severity models.Severity
		priority jobs.Priority
	}{
		{models.SeverityCritical, jobs.PriorityCritical},
		{models.SeverityHigh, jobs.PriorityHigh},
		{models.SeverityMedium, jobs.PriorityNormal},
	}
	for i, tc := range cases {
		queue := &queueStub{}
		svc := NewAlertService(queue, &transportStub{}, nil, nil, alertsConfig())

		event := securityEvent(models.EventSuspiciousLogin, tc.severity, fmt.Sprintf("10.0.0.%d", i))
		require.NoError(t, svc.NotifyEvent(context.Background(), event))
		require.Len(t, queue.jobs, 1)
		assert.Equal(t, tc.priority, queue.jobs[0].Priority)
	}
}

func TestNotifyEventCooldownSuppressesRepeats(t *testing.T) {
	queue := &queueStub{}
	counter := &alertCounterStub{}
	svc := NewAlertService(queue, &transportStub{}, nil, nil, alertsConfig())
	svc.AttachMetrics(counter)

	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	event := securityEvent(models.EventBruteForceAttack, models.SeverityHigh, "10.0.0.1")
	require.NoError(t, svc.NotifyEvent(context.Background(), event))
	require.NoError(t, svc.NotifyEvent(context.Background(), event))
	assert.Len(t, queue.jobs, 1)
	assert.Equal(t, 1, counter.suppressed)

	// The window reopens once the cooldown elapses.
	current = current.Add(61 * time.Minute)
	require.NoError(t, svc.NotifyEvent(context.Background(), event))
	assert.Len(t, queue.jobs, 2)
}

func TestNotifyEventCooldownKeysOnTypeAndIP(t *testing.T) {
	queue := &queueStub{}
	svc := NewAlertService(queue, &transportStub{}, nil, nil, alertsConfig())

	require.NoError(t, svc.NotifyEvent(context.Background(), securityEvent(models.EventBruteForceAttack, models.SeverityHigh, "10.0.0.1")))
	require.NoError(t, svc.NotifyEvent(context.Background(), securityEvent(models.EventBruteForceAttack, models.SeverityHigh, "10.0.0.2")))
	require.NoError(t, svc.NotifyEvent(context.Background(), securityEvent(models.EventSQLInjectionAttempt, models.SeverityHigh, "10.0.0.1")))

	assert.Len(t, queue.jobs, 3)
}

func TestSendNowCollectsChannelFailures(t *testing.T) {
	transport := &transportStub{emailErr: fmt.Errorf("smtp down")}
	cfg := alertsConfig()
	cfg.Channels = []string{"email", "sms"}
	cfg.SMSRecipients = []string{"+5511999999999"}
	svc := NewAlertService(nil, transport, nil, nil, cfg)

	err := svc.SendNow(context.Background(), AlertMessage{
		Subject:  "[HIGH] BRUTE_FORCE_ATTACK",
		Body:     "test",
		Channels: cfg.Channels,
		Recipients: Recipients{
			Email: cfg.EmailRecipients,
			SMS:   cfg.SMSRecipients,
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
	assert.Equal(t, 1, transport.sms)
}

func TestSendTestBypassesGating(t *testing.T) {
	transport := &transportStub{}
	svc := NewAlertService(nil, transport, nil, nil, alertsConfig())

	err := svc.SendTest(context.Background(), models.SeverityLow, "drill")
	require.NoError(t, err)
	assert.Equal(t, 1, transport.emails)
}

func TestNotifyEventWithoutQueueDeliversSynchronously(t *testing.T) {
	transport := &transportStub{}
	counter := &alertCounterStub{}
	svc := NewAlertService(nil, transport, nil, nil, alertsConfig())
	svc.AttachMetrics(counter)

	err := svc.NotifyEvent(context.Background(), securityEvent(models.EventSuspiciousLogin, models.SeverityHigh, "10.0.0.9"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.emails)
	assert.Equal(t, 1, counter.delivered)
}
