package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/pkg/config"
)

type historyStub struct {
	failedCount int
	failedErr   error
	locations   []string
}

func (h *historyStub) CountFailedLogins(ctx context.Context, userID, ipAddress string, since time.Time) (int, error) {
	return h.failedCount, h.failedErr
}

func (h *historyStub) RecentSuccessfulLocations(ctx context.Context, userID string, limit int) ([]string, error) {
	return h.locations, nil
}

type recorderStub struct {
	events []*models.SecurityEventEntry
}

func (r *recorderStub) RecordEvent(ctx context.Context, event *models.SecurityEventEntry) (*models.SecurityEventEntry, error) {
	r.events = append(r.events, event)
	return event, nil
}

func detectorConfig() config.SecurityConfig {
	return config.SecurityConfig{
		FailedLoginThreshold: 5,
		FailedLoginWindow:    15 * time.Minute,
		KnownLocationCount:   10,
		UsualHourStart:       6,
		UsualHourEnd:         22,
	}
}

func loginEntry(success bool, at time.Time) *models.AccessLogEntry {
	return &models.AccessLogEntry{
		UserID:     "user-1",
		Action:     models.AccessActionLogin,
		IPAddress:  "10.0.0.1",
		UserAgent:  "test-agent",
		Success:    success,
		OccurredAt: at,
	}
}

func TestDetectorFailedLoginBurstRecordsHighEvent(t *testing.T) {
	history := &historyStub{failedCount: 5}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	detector.Analyze(context.Background(), loginEntry(false, at))

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.EventMultipleFailedAttempts, recorder.events[0].Type)
	assert.Equal(t, models.SeverityHigh, recorder.events[0].Severity)
	assert.Contains(t, string(recorder.events[0].Details), `"last_attempt":"2026-03-01T10:00:00Z"`)
}

func TestDetectorFailedLoginStillRunsLocationAndHourRules(t *testing.T) {
	history := &historyStub{failedCount: 1, locations: []string{"Sao Paulo, BR"}}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	entry := loginEntry(false, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC))
	location := "Lisbon, PT"
	entry.Location = &location
	detector.Analyze(context.Background(), entry)

	require.Len(t, recorder.events, 2)
	assert.Equal(t, models.EventUnusualAccessPattern, recorder.events[0].Type)
	assert.Equal(t, models.SeverityMedium, recorder.events[0].Severity)
	assert.Equal(t, models.SeverityLow, recorder.events[1].Severity)
}

func TestDetectorBelowThresholdStaysQuiet(t *testing.T) {
	history := &historyStub{failedCount: 4}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	detector.Analyze(context.Background(), loginEntry(false, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)))

	assert.Empty(t, recorder.events)
}

func TestDetectorUnusualLocationRecordsMediumEvent(t *testing.T) {
	history := &historyStub{locations: []string{"Sao Paulo, BR", "Campinas, BR"}}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	entry := loginEntry(true, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	location := "Lisbon, PT"
	entry.Location = &location
	detector.Analyze(context.Background(), entry)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.EventUnusualAccessPattern, recorder.events[0].Type)
	assert.Equal(t, models.SeverityMedium, recorder.events[0].Severity)
}

func TestDetectorFirstLoginHasNoLocationBaseline(t *testing.T) {
	history := &historyStub{}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	entry := loginEntry(true, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	location := "Lisbon, PT"
	entry.Location = &location
	detector.Analyze(context.Background(), entry)

	assert.Empty(t, recorder.events)
}

func TestDetectorUnusualHourRecordsLowEvent(t *testing.T) {
	history := &historyStub{}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	detector.Analyze(context.Background(), loginEntry(true, time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)))

	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.EventUnusualAccessPattern, recorder.events[0].Type)
	assert.Equal(t, models.SeverityLow, recorder.events[0].Severity)
}

func TestDetectorSuccessfulLoginCanTripSeveralRules(t *testing.T) {
	history := &historyStub{locations: []string{"Sao Paulo, BR"}}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	entry := loginEntry(true, time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC))
	location := "Lisbon, PT"
	entry.Location = &location
	detector.Analyze(context.Background(), entry)

	require.Len(t, recorder.events, 2)
	assert.Equal(t, models.SeverityMedium, recorder.events[0].Severity)
	assert.Equal(t, models.SeverityLow, recorder.events[1].Severity)
}

func TestDetectorIgnoresNonLoginEntries(t *testing.T) {
	history := &historyStub{failedCount: 50}
	recorder := &recorderStub{}
	detector := NewDetector(history, recorder, nil, detectorConfig())

	detector.Analyze(context.Background(), &models.AccessLogEntry{
		UserID:     "user-1",
		Action:     models.AccessActionLogout,
		IPAddress:  "10.0.0.1",
		Success:    true,
		OccurredAt: time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC),
	})

	assert.Empty(t, recorder.events)
}
