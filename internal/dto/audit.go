package dto

import (
	"encoding/json"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// RecordAuditEntryRequest is the payload for manually recording an audit
// entry. Most entries are written by the audit middleware instead.
type RecordAuditEntryRequest struct {
	ActorID    string             `json:"actor_id" binding:"required"`
	ActorKind  models.ActorKind   `json:"actor_kind" binding:"required"`
	Action     string             `json:"action" binding:"required"`
	Resource   string             `json:"resource" binding:"required"`
	ResourceID *string            `json:"resource_id"`
	OldData    json.RawMessage    `json:"old_data"`
	NewData    json.RawMessage    `json:"new_data"`
	Result     models.AuditResult `json:"result" binding:"required"`
	Reason     *string            `json:"reason"`
	SessionID  *string            `json:"session_id"`
	Metadata   json.RawMessage    `json:"metadata"`
}

// AuditListRequest captures query parameters for listing audit entries.
type AuditListRequest struct {
	ActorID   string `form:"actorId"`
	ActorKind string `form:"actorKind"`
	Action    string `form:"action"`
	Resource  string `form:"resource"`
	Result    string `form:"result"`
	IPAddress string `form:"ip"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// AccessLogListRequest captures query parameters for listing access logs.
type AccessLogListRequest struct {
	UserID    string `form:"userId"`
	Action    string `form:"action"`
	IPAddress string `form:"ip"`
	Success   *bool  `form:"success"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}
