package dto

import "github.com/r2suporte/interalpha-api/internal/models"

// GenerateReportRequest queues report generation.
type GenerateReportRequest struct {
	Type   models.ReportType   `json:"type" binding:"required"`
	Format models.ReportFormat `json:"format" binding:"required"`
	From   string              `json:"from"`
	To     string              `json:"to"`
}

// ReportResponse enriches report metadata with a signed download URL when
// the file is ready.
type ReportResponse struct {
	models.Report
	DownloadURL string `json:"download_url,omitempty"`
}

// UpdateFindingStatusRequest moves a compliance finding through its
// workflow.
type UpdateFindingStatusRequest struct {
	Status models.FindingStatus `json:"status" binding:"required"`
}
