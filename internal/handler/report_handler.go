package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/service"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
	"github.com/r2suporte/interalpha-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, req dto.GenerateReportRequest, actorID string) (*models.Report, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, reportType models.ReportType, limit, offset int) ([]models.Report, error)
	ResolveDownload(ctx context.Context, token string) (*service.ReportDownload, error)
	ListFindings(ctx context.Context, reportID string) ([]models.ComplianceFinding, error)
	UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error
}

// ReportHandler exposes report generation and download endpoints.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Generate godoc
// @Summary Queue report generation
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportRequest true "Report request"
// @Success 202 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report payload"))
		return
	}
	report, err := h.service.Generate(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, report, nil)
}

// Get godoc
// @Summary Get report status and metadata
// @Tags Reports
// @Produce json
// @Param id path string true "Report id"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// List godoc
// @Summary List reports
// @Tags Reports
// @Produce json
// @Param type query string false "Report type filter"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context(), models.ReportType(c.Query("type")), 50, 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Download godoc
// @Summary Download a generated report file
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	download, err := h.service.ResolveDownload(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	contentType := "text/csv"
	if download.Format == models.ReportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", "attachment; filename="+download.Filename)
	c.Header("Content-Type", contentType)
	c.File(download.Path)
}

// ListFindings godoc
// @Summary List compliance findings for a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report id"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/findings [get]
func (h *ReportHandler) ListFindings(c *gin.Context) {
	findings, err := h.service.ListFindings(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, findings, nil)
}

// UpdateFindingStatus godoc
// @Summary Update a compliance finding status
// @Tags Reports
// @Accept json
// @Produce json
// @Param findingId path string true "Finding id"
// @Param payload body dto.UpdateFindingStatusRequest true "Status"
// @Success 204
// @Router /reports/findings/{findingId} [patch]
func (h *ReportHandler) UpdateFindingStatus(c *gin.Context) {
	var req dto.UpdateFindingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	if err := h.service.UpdateFindingStatus(c.Request.Context(), c.Param("findingId"), req.Status); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
