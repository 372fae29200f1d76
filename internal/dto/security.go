package dto

import (
	"encoding/json"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// RecordSecurityEventRequest is the payload for reporting a security
// event from outside the detector (manual reports, external scanners).
type RecordSecurityEventRequest struct {
	Type        models.SecurityEventType `json:"type" binding:"required"`
	Severity    models.Severity          `json:"severity" binding:"required"`
	UserID      *string                  `json:"user_id"`
	IPAddress   string                   `json:"ip_address" binding:"required"`
	UserAgent   string                   `json:"user_agent"`
	Description string                   `json:"description" binding:"required"`
	Details     json.RawMessage          `json:"details"`
}

// SecurityEventListRequest captures query parameters for listing events.
type SecurityEventListRequest struct {
	Type      string `form:"type"`
	Severity  string `form:"severity"`
	UserID    string `form:"userId"`
	IPAddress string `form:"ip"`
	Resolved  *bool  `form:"resolved"`
	From      string `form:"from"`
	To        string `form:"to"`
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// ResolveSecurityEventRequest carries the resolution note.
type ResolveSecurityEventRequest struct {
	Note string `json:"note"`
}
