package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportType enumerates supported report categories.
type ReportType string

const (
	ReportTypeAudit      ReportType = "audit"
	ReportTypeCompliance ReportType = "compliance"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportStatus captures background job lifecycle states.
type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusFinished   ReportStatus = "FINISHED"
	ReportStatusFailed     ReportStatus = "FAILED"
)

// ReportParams stores request-scoped options persisted as JSONB.
type ReportParams struct {
	PeriodStart time.Time         `json:"periodStart"`
	PeriodEnd   time.Time         `json:"periodEnd"`
	Format      ReportFormat      `json:"format"`
	Filters     map[string]string `json:"filters,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ReportParams) Value() (driver.Value, error) {
	if p.Filters == nil {
		p.Filters = map[string]string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal report params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ReportParams) Scan(value interface{}) error {
	if value == nil {
		*p = ReportParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported report params column type %T", value)
	}
	if len(data) == 0 {
		*p = ReportParams{}
		return nil
	}
	return json.Unmarshal(data, p)
}

// ReportSummary aggregates counts computed at generation time.
type ReportSummary struct {
	TotalEntries     int            `json:"totalEntries"`
	FailureCount     int            `json:"failureCount"`
	BySeverity       map[string]int `json:"bySeverity,omitempty"`
	ByAction         map[string]int `json:"byAction,omitempty"`
	UnresolvedEvents int            `json:"unresolvedEvents"`
	FindingCount     int            `json:"findingCount"`
}

// Value marshals the summary to JSON for persistence.
func (s ReportSummary) Value() (driver.Value, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal report summary: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the summary struct.
func (s *ReportSummary) Scan(value interface{}) error {
	if value == nil {
		*s = ReportSummary{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported report summary column type %T", value)
	}
	if len(data) == 0 {
		*s = ReportSummary{}
		return nil
	}
	return json.Unmarshal(data, s)
}

// Report is a point-in-time export bundling filtered entries plus a
// computed summary. Immutable once generated.
type Report struct {
	ID           string        `db:"id" json:"id"`
	Type         ReportType    `db:"type" json:"type"`
	Params       ReportParams  `db:"params" json:"params"`
	Summary      ReportSummary `db:"summary" json:"summary"`
	Status       ReportStatus  `db:"status" json:"status"`
	FilePath     *string       `db:"file_path" json:"-"`
	DownloadURL  *string       `db:"download_url" json:"download_url,omitempty"`
	GeneratedBy  string        `db:"generated_by" json:"generated_by"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time    `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string       `db:"error_message" json:"error_message,omitempty"`
}

// FindingStatus tracks the lifecycle of a compliance finding.
type FindingStatus string

const (
	FindingStatusOpen       FindingStatus = "open"
	FindingStatusInProgress FindingStatus = "in_progress"
	FindingStatusResolved   FindingStatus = "resolved"
)

// ComplianceFinding is one issue surfaced by a compliance report.
type ComplianceFinding struct {
	ID             string          `db:"id" json:"id"`
	ReportID       string          `db:"report_id" json:"report_id"`
	Severity       Severity        `db:"severity" json:"severity"`
	Category       string          `db:"category" json:"category"`
	Description    string          `db:"description" json:"description"`
	Evidence       json.RawMessage `db:"evidence" json:"evidence,omitempty"`
	Recommendation string          `db:"recommendation" json:"recommendation"`
	Status         FindingStatus   `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}
