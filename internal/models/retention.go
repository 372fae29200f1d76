package models

import (
	"fmt"
	"time"
)

// RetentionDataType selects which logical table a policy governs.
type RetentionDataType string

const (
	RetentionAuditLogs      RetentionDataType = "audit_logs"
	RetentionAccessLogs     RetentionDataType = "access_logs"
	RetentionSecurityEvents RetentionDataType = "security_events"
)

// Valid reports whether the data type is one of the governed tables.
func (t RetentionDataType) Valid() bool {
	switch t {
	case RetentionAuditLogs, RetentionAccessLogs, RetentionSecurityEvents:
		return true
	}
	return false
}

// DataRetentionPolicy is a per-data-type aging rule. Records older than
// ArchiveAfterDays move into the archive table; records older than
// DeleteAfterDays are permanently removed.
type DataRetentionPolicy struct {
	ID               string            `db:"id" json:"id"`
	Name             string            `db:"name" json:"name"`
	Description      string            `db:"description" json:"description"`
	DataType         RetentionDataType `db:"data_type" json:"data_type"`
	RetentionDays    int               `db:"retention_days" json:"retention_days"`
	ArchiveAfterDays *int              `db:"archive_after_days" json:"archive_after_days,omitempty"`
	DeleteAfterDays  int               `db:"delete_after_days" json:"delete_after_days"`
	Enabled          bool              `db:"enabled" json:"enabled"`
	CreatedBy        string            `db:"created_by" json:"created_by"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	LastExecuted     *time.Time        `db:"last_executed" json:"last_executed,omitempty"`
}

// Validate enforces policy invariants before persistence.
func (p *DataRetentionPolicy) Validate() error {
	if !p.DataType.Valid() {
		return fmt.Errorf("unknown retention data type %q", p.DataType)
	}
	if p.DeleteAfterDays <= 0 {
		return fmt.Errorf("delete_after_days must be positive")
	}
	if p.ArchiveAfterDays != nil && *p.ArchiveAfterDays >= p.DeleteAfterDays {
		return fmt.Errorf("archive_after_days must be lower than delete_after_days")
	}
	return nil
}

// RetentionRunResult reports the outcome of one policy execution.
type RetentionRunResult struct {
	PolicyID         string            `json:"policy_id"`
	DataType         RetentionDataType `json:"data_type"`
	DryRun           bool              `json:"dry_run"`
	CutoffDate       time.Time         `json:"cutoff_date"`
	ArchiveDate      *time.Time        `json:"archive_date,omitempty"`
	RecordsToArchive int               `json:"records_to_archive"`
	RecordsToDelete  int               `json:"records_to_delete"`
	RecordsArchived  int               `json:"records_archived"`
	RecordsDeleted   int               `json:"records_deleted"`
	ExecutedBy       string            `json:"executed_by"`
	ExecutedAt       time.Time         `json:"executed_at"`
}
