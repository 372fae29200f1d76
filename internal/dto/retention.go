package dto

import "github.com/r2suporte/interalpha-api/internal/models"

// CreateRetentionPolicyRequest is the payload for creating a policy.
type CreateRetentionPolicyRequest struct {
	Name             string                   `json:"name" binding:"required"`
	Description      string                   `json:"description"`
	DataType         models.RetentionDataType `json:"data_type" binding:"required"`
	RetentionDays    int                      `json:"retention_days"`
	ArchiveAfterDays *int                     `json:"archive_after_days"`
	DeleteAfterDays  int                      `json:"delete_after_days" binding:"required"`
	Enabled          bool                     `json:"enabled"`
}

// UpdateRetentionPolicyRequest edits the mutable policy fields.
type UpdateRetentionPolicyRequest struct {
	Name             string                   `json:"name" binding:"required"`
	Description      string                   `json:"description"`
	DataType         models.RetentionDataType `json:"data_type" binding:"required"`
	RetentionDays    int                      `json:"retention_days"`
	ArchiveAfterDays *int                     `json:"archive_after_days"`
	DeleteAfterDays  int                      `json:"delete_after_days" binding:"required"`
	Enabled          bool                     `json:"enabled"`
}

// ExecuteRetentionRequest triggers one retention run for a policy.
type ExecuteRetentionRequest struct {
	DryRun bool `json:"dry_run"`
}
