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
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type eventStoreStub struct {
	events  map[string]*models.SecurityEventEntry
	actions []models.SecurityAction
	seq     int
}

func newEventStoreStub() *eventStoreStub {
	return &eventStoreStub{events: make(map[string]*models.SecurityEventEntry)}
}

func (s *eventStoreStub) Create(ctx context.Context, event *models.SecurityEventEntry) error {
	s.seq++
	if event.ID == "" {
		event.ID = fmt.Sprintf("evt-%d", s.seq)
	}
	copy := *event
	s.events[event.ID] = &copy
	return nil
}

func (s *eventStoreStub) AppendAction(ctx context.Context, action *models.SecurityAction) error {
	s.actions = append(s.actions, *action)
	return nil
}

func (s *eventStoreStub) GetByID(ctx context.Context, id string) (*models.SecurityEventEntry, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "security event not found")
	}
	copy := *event
	return &copy, nil
}

func (s *eventStoreStub) List(ctx context.Context, filter models.SecurityEventFilter) ([]models.SecurityEventEntry, int, error) {
	result := make([]models.SecurityEventEntry, 0, len(s.events))
	for _, event := range s.events {
		result = append(result, *event)
	}
	return result, len(result), nil
}

func (s *eventStoreStub) Resolve(ctx context.Context, id, resolvedBy string, resolvedAt time.Time) error {
	event, ok := s.events[id]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "security event not found")
	}
	if event.Resolved {
		return appErrors.ErrAlreadyResolved
	}
	event.Resolved = true
	event.ResolvedBy = &resolvedBy
	event.ResolvedAt = &resolvedAt
	return nil
}

type rulesStoreStub struct {
	rules     []models.AlertRule
	triggered []string
}

func (s *rulesStoreStub) List(ctx context.Context, enabledOnly bool) ([]models.AlertRule, error) {
	return s.rules, nil
}

func (s *rulesStoreStub) MarkTriggered(ctx context.Context, id string, triggeredAt time.Time) error {
	s.triggered = append(s.triggered, id)
	return nil
}

type notifierStub struct {
	notified []*models.SecurityEventEntry
	err      error
}

func (n *notifierStub) NotifyEvent(ctx context.Context, event *models.SecurityEventEntry) error {
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, event)
	return nil
}

type auditWriterStub struct {
	entries []*models.AuditEntry
}

func (a *auditWriterStub) LogAction(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	a.entries = append(a.entries, entry)
	return entry, nil
}

func securityConfig() config.SecurityConfig {
	return config.SecurityConfig{AccountLockDuration: 30 * time.Minute}
}

func TestRecordEventRejectsUnknownType(t *testing.T) {
	store := newEventStoreStub()
	svc := NewSecurityService(store, nil, nil, nil, nil, nil, securityConfig())

	_, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      "SOMETHING_ELSE",
		Severity:  models.SeverityLow,
		IPAddress: "10.0.0.1",
	})
	require.Error(t, err)
	assert.Empty(t, store.events)
}

func TestRecordEventCriticalAlertsAdministrators(t *testing.T) {
	store := newEventStoreStub()
	notifier := &notifierStub{}
	svc := NewSecurityService(store, nil, notifier, nil, nil, nil, securityConfig())

	event, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:        models.EventDataBreachAttempt,
		Severity:    models.SeverityCritical,
		IPAddress:   "10.0.0.1",
		Description: "export of full client table",
	})
	require.NoError(t, err)

	// One notification through the alert_administrators response, not a
	// second one through the regular dispatch path.
	require.Len(t, notifier.notified, 1)
	require.Len(t, event.Actions, 1)
	assert.Equal(t, models.ActionAlertAdministrators, event.Actions[0].Action)
	assert.True(t, event.Actions[0].Automated)
}

func TestRecordEventBruteForceLockFailureStillAttachesAction(t *testing.T) {
	store := newEventStoreStub()
	userID := "user-1"
	// No lock store wired, so the lock response fails. The action is
	// attached anyway, with the failure recorded in its details.
	svc := NewSecurityService(store, nil, nil, nil, nil, nil, securityConfig())

	event, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventBruteForceAttack,
		Severity:  models.SeverityHigh,
		UserID:    &userID,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Len(t, store.events, 1)
	require.Len(t, event.Actions, 1)
	assert.Equal(t, models.ActionTemporaryAccountLock, event.Actions[0].Action)
	assert.Contains(t, string(event.Actions[0].Details), "account lock store unavailable")
	require.Len(t, store.actions, 1)
}

func TestRecordEventCriticalNotifierFailureStillAttachesAction(t *testing.T) {
	store := newEventStoreStub()
	notifier := &notifierStub{err: fmt.Errorf("smtp down")}
	svc := NewSecurityService(store, nil, notifier, nil, nil, nil, securityConfig())

	event, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:        models.EventDataBreachAttempt,
		Severity:    models.SeverityCritical,
		IPAddress:   "10.0.0.1",
		Description: "export of full client table",
	})
	require.NoError(t, err)
	require.Len(t, event.Actions, 1)
	assert.Equal(t, models.ActionAlertAdministrators, event.Actions[0].Action)
	assert.Contains(t, string(event.Actions[0].Details), "smtp down")
}

func TestRecordEventNonCriticalNotifiesOnce(t *testing.T) {
	store := newEventStoreStub()
	notifier := &notifierStub{}
	svc := NewSecurityService(store, nil, notifier, nil, nil, nil, securityConfig())

	event, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventUnusualAccessPattern,
		Severity:  models.SeverityMedium,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Len(t, notifier.notified, 1)
	assert.Empty(t, event.Actions)
}

func TestRecordEventEvaluatesMatchingRules(t *testing.T) {
	store := newEventStoreStub()
	rules := &rulesStoreStub{rules: []models.AlertRule{
		{
			ID:      "rule-1",
			Enabled: true,
			Conditions: models.AlertConditionList{
				{Field: models.ConditionFieldSeverity, Operator: models.ConditionOperatorAtLeast, Values: []string{"high"}},
			},
		},
		{
			ID:      "rule-2",
			Enabled: true,
			Conditions: models.AlertConditionList{
				{Field: models.ConditionFieldEventType, Operator: models.ConditionOperatorEquals, Values: []string{"SQL_INJECTION_ATTEMPT"}},
			},
		},
	}}
	svc := NewSecurityService(store, rules, nil, nil, nil, nil, securityConfig())

	_, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventBruteForceAttack,
		Severity:  models.SeverityHigh,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-1"}, rules.triggered)
}

func TestRecordEventFiredRuleNotifies(t *testing.T) {
	store := newEventStoreStub()
	notifier := &notifierStub{}
	rules := &rulesStoreStub{rules: []models.AlertRule{
		{
			ID:      "rule-1",
			Enabled: true,
			Conditions: models.AlertConditionList{
				{Field: models.ConditionFieldSeverity, Operator: models.ConditionOperatorAtLeast, Values: []string{"critical"}},
			},
		},
	}}
	svc := NewSecurityService(store, rules, notifier, nil, nil, nil, securityConfig())

	_, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:        models.EventCriticalSystemAlert,
		Severity:    models.SeverityCritical,
		IPAddress:   "10.0.0.1",
		Description: "database replica unreachable",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"rule-1"}, rules.triggered)
	// One notification from the alert_administrators response, one from
	// the rule firing.
	assert.Len(t, notifier.notified, 2)
}

func TestRecordEventRuleCooldownSkipsRetrigger(t *testing.T) {
	store := newEventStoreStub()
	recently := time.Now().UTC().Add(-5 * time.Minute)
	rules := &rulesStoreStub{rules: []models.AlertRule{
		{
			ID:              "rule-1",
			Enabled:         true,
			CooldownMinutes: 60,
			LastTriggered:   &recently,
			Conditions: models.AlertConditionList{
				{Field: models.ConditionFieldSeverity, Operator: models.ConditionOperatorAtLeast, Values: []string{"low"}},
			},
		},
	}}
	svc := NewSecurityService(store, rules, nil, nil, nil, nil, securityConfig())

	_, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventSuspiciousLogin,
		Severity:  models.SeverityHigh,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Empty(t, rules.triggered)
}

func TestResolveEventWritesSecondaryAuditTrail(t *testing.T) {
	store := newEventStoreStub()
	audit := &auditWriterStub{}
	svc := NewSecurityService(store, nil, nil, audit, nil, nil, securityConfig())

	created, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventSuspiciousLogin,
		Severity:  models.SeverityMedium,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveEvent(context.Background(), created.ID, "admin-1", "false positive", "10.0.0.9", "test-agent")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedBy)
	assert.Equal(t, "admin-1", *resolved.ResolvedBy)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "security_event.resolve", audit.entries[0].Action)
	assert.Equal(t, "security_event", audit.entries[0].Resource)
}

func TestResolveEventSecondResolutionFails(t *testing.T) {
	store := newEventStoreStub()
	svc := NewSecurityService(store, nil, nil, nil, nil, nil, securityConfig())

	created, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventSuspiciousLogin,
		Severity:  models.SeverityMedium,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)

	_, err = svc.ResolveEvent(context.Background(), created.ID, "admin-1", "", "10.0.0.9", "test-agent")
	require.NoError(t, err)

	_, err = svc.ResolveEvent(context.Background(), created.ID, "admin-2", "", "10.0.0.9", "test-agent")
	require.ErrorIs(t, err, appErrors.ErrAlreadyResolved)
}

func TestRecordEventCountsMetrics(t *testing.T) {
	store := newEventStoreStub()
	svc := NewSecurityService(store, nil, nil, nil, nil, nil, securityConfig())
	counter := &securityCounterStub{}
	svc.AttachMetrics(counter)

	_, err := svc.RecordEvent(context.Background(), &models.SecurityEventEntry{
		Type:      models.EventSuspiciousLogin,
		Severity:  models.SeverityMedium,
		IPAddress: "10.0.0.1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counter.count)
}

type securityCounterStub struct {
	count int
}

func (c *securityCounterStub) RecordSecurityEvent(eventType, severity string) {
	c.count++
}
