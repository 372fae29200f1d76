package models

import (
	"encoding/json"
	"time"
)

// ActorKind distinguishes who performed a recorded action.
type ActorKind string

const (
	ActorKindClient   ActorKind = "client"
	ActorKindEmployee ActorKind = "employee"
)

// AuditResult captures the outcome of an audited action.
type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultFailure AuditResult = "failure"
)

// AuditEntry is one recorded business action. Entries are immutable once
// created; retention is the only path that removes them.
type AuditEntry struct {
	ID         string          `db:"id" json:"id"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorKind  ActorKind       `db:"actor_kind" json:"actor_kind"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	OldData    json.RawMessage `db:"old_data" json:"old_data,omitempty"`
	NewData    json.RawMessage `db:"new_data" json:"new_data,omitempty"`
	Result     AuditResult     `db:"result" json:"result"`
	Reason     *string         `db:"reason" json:"reason,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	SessionID  *string         `db:"session_id" json:"session_id,omitempty"`
	Metadata   json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	OccurredAt time.Time       `db:"occurred_at" json:"timestamp"`
}

// AccessAction enumerates authentication-related event kinds.
type AccessAction string

const (
	AccessActionLogin          AccessAction = "login"
	AccessActionLogout         AccessAction = "logout"
	AccessActionDenied         AccessAction = "access_denied"
	AccessActionSessionExpired AccessAction = "session_expired"
)

// AccessLogEntry is one authentication-related event. Same immutability
// and lifecycle as AuditEntry; failures feed the suspicious-activity
// detector.
type AccessLogEntry struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	UserType        ActorKind       `db:"user_type" json:"user_type"`
	Action          AccessAction    `db:"action" json:"action"`
	IPAddress       string          `db:"ip_address" json:"ip_address"`
	UserAgent       string          `db:"user_agent" json:"user_agent"`
	Location        *string         `db:"location" json:"location,omitempty"`
	Success         bool            `db:"success" json:"success"`
	FailureReason   *string         `db:"failure_reason" json:"failure_reason,omitempty"`
	SessionDuration *int64          `db:"session_duration" json:"session_duration,omitempty"`
	Metadata        json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	OccurredAt      time.Time       `db:"occurred_at" json:"timestamp"`
}

// AuditFilter captures conjunctive predicates for listing audit entries.
type AuditFilter struct {
	ActorID   string
	ActorKind ActorKind
	Action    string
	Resource  string
	Result    AuditResult
	IPAddress string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// AccessLogFilter captures conjunctive predicates for listing access logs.
type AccessLogFilter struct {
	UserID    string
	Action    AccessAction
	IPAddress string
	Success   *bool
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}
