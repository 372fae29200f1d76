package models

import (
	"encoding/json"
	"time"
)

// Severity orders security conditions from least to most urgent. The
// ordinal is the single source of truth for threshold gating and queue
// priority mapping.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityOrdinals = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Ordinal returns the numeric rank of the severity, or 0 when unknown.
func (s Severity) Ordinal() int {
	return severityOrdinals[s]
}

// AtLeast reports whether s ranks at or above the threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.Ordinal() >= threshold.Ordinal()
}

// Valid reports whether the severity is one of the known values.
func (s Severity) Valid() bool {
	_, ok := severityOrdinals[s]
	return ok
}

// SecurityEventType enumerates the closed set of detectable or reportable
// security conditions.
type SecurityEventType string

const (
	EventSuspiciousLogin            SecurityEventType = "SUSPICIOUS_LOGIN"
	EventMultipleFailedAttempts     SecurityEventType = "MULTIPLE_FAILED_ATTEMPTS"
	EventUnusualAccessPattern       SecurityEventType = "UNUSUAL_ACCESS_PATTERN"
	EventPrivilegeEscalationAttempt SecurityEventType = "PRIVILEGE_ESCALATION_ATTEMPT"
	EventDataBreachAttempt          SecurityEventType = "DATA_BREACH_ATTEMPT"
	EventUnauthorizedAPIAccess      SecurityEventType = "UNAUTHORIZED_API_ACCESS"
	EventMaliciousRequest           SecurityEventType = "MALICIOUS_REQUEST"
	EventAccountTakeoverAttempt     SecurityEventType = "ACCOUNT_TAKEOVER_ATTEMPT"
	EventBruteForceAttack           SecurityEventType = "BRUTE_FORCE_ATTACK"
	EventSQLInjectionAttempt        SecurityEventType = "SQL_INJECTION_ATTEMPT"
	EventCriticalSystemAlert        SecurityEventType = "CRITICAL_SYSTEM_ALERT"
)

var securityEventTypes = map[SecurityEventType]struct{}{
	EventSuspiciousLogin:            {},
	EventMultipleFailedAttempts:     {},
	EventUnusualAccessPattern:       {},
	EventPrivilegeEscalationAttempt: {},
	EventDataBreachAttempt:          {},
	EventUnauthorizedAPIAccess:      {},
	EventMaliciousRequest:           {},
	EventAccountTakeoverAttempt:     {},
	EventBruteForceAttack:           {},
	EventSQLInjectionAttempt:        {},
	EventCriticalSystemAlert:        {},
}

// Valid reports whether the event type belongs to the closed enum.
func (t SecurityEventType) Valid() bool {
	_, ok := securityEventTypes[t]
	return ok
}

// SecurityActionName enumerates automated or manual remediation steps.
type SecurityActionName string

const (
	ActionAlertAdministrators  SecurityActionName = "alert_administrators"
	ActionTemporaryAccountLock SecurityActionName = "temporary_account_lock"
	ActionRequireTwoFactor     SecurityActionName = "require_2fa"
	ActionBlockIP              SecurityActionName = "block_ip"
)

// SecurityAction is one remediation step attached to a security event.
// The actions list is append-only, ordered by execution time.
type SecurityAction struct {
	ID         string             `db:"id" json:"id"`
	EventID    string             `db:"event_id" json:"event_id"`
	Action     SecurityActionName `db:"action" json:"action"`
	Automated  bool               `db:"automated" json:"automated"`
	Details    json.RawMessage    `db:"details" json:"details,omitempty"`
	ExecutedAt time.Time          `db:"executed_at" json:"timestamp"`
}

// SecurityEventEntry is a detected or externally reported security
// condition. Created unresolved; the only mutation is the one-way
// resolve transition.
type SecurityEventEntry struct {
	ID          string            `db:"id" json:"id"`
	Type        SecurityEventType `db:"type" json:"type"`
	Severity    Severity          `db:"severity" json:"severity"`
	UserID      *string           `db:"user_id" json:"user_id,omitempty"`
	IPAddress   string            `db:"ip_address" json:"ip_address"`
	UserAgent   *string           `db:"user_agent" json:"user_agent,omitempty"`
	Description string            `db:"description" json:"description"`
	Details     json.RawMessage   `db:"details" json:"details,omitempty"`
	Resolved    bool              `db:"resolved" json:"resolved"`
	ResolvedBy  *string           `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time        `db:"resolved_at" json:"resolved_at,omitempty"`
	OccurredAt  time.Time         `db:"occurred_at" json:"timestamp"`
	Actions     []SecurityAction  `db:"-" json:"actions,omitempty"`
}

// SecurityEventFilter captures predicates for listing security events.
type SecurityEventFilter struct {
	Type      SecurityEventType
	Severity  Severity
	UserID    string
	IPAddress string
	Resolved  *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
