package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/repository"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
	"github.com/r2suporte/interalpha-api/pkg/export"
	"github.com/r2suporte/interalpha-api/pkg/jobs"
	"github.com/r2suporte/interalpha-api/pkg/storage"
)

type reportStore interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, reportType models.ReportType, limit, offset int) ([]models.Report, error)
	Update(ctx context.Context, id string, params repository.UpdateReportParams) error
	CreateFindings(ctx context.Context, findings []models.ComplianceFinding) error
	ListFindings(ctx context.Context, reportID string) ([]models.ComplianceFinding, error)
	UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error
}

type auditEntryLister interface {
	ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
}

type complianceSource interface {
	CountUnresolved(ctx context.Context, severities []models.Severity) (int, error)
	ListUnresolvedOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.SecurityEventEntry, error)
}

type policyComplianceSource interface {
	ListNeverExecuted(ctx context.Context) ([]models.DataRetentionPolicy, error)
}

// ReportService generates audit and compliance reports asynchronously.
// Files land in local storage and are served through signed URLs.
type ReportService struct {
	reports  reportStore
	audit    auditEntryLister
	events   complianceSource
	policies policyComplianceSource
	queue    jobDispatcher
	store    *storage.LocalStorage
	signer   *storage.SignedURLSigner
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(reports reportStore, audit auditEntryLister, events complianceSource, policies policyComplianceSource, queue jobDispatcher, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		reports:  reports,
		audit:    audit,
		events:   events,
		policies: policies,
		queue:    queue,
		store:    store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Generate validates the request, persists a queued report row, and
// schedules generation.
func (s *ReportService) Generate(ctx context.Context, req dto.GenerateReportRequest, actorID string) (*models.Report, error) {
	if req.Type != models.ReportTypeAudit && req.Type != models.ReportTypeCompliance {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report type %q", req.Type))
	}
	if req.Format != models.ReportFormatCSV && req.Format != models.ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report format %q", req.Format))
	}
	periodEnd := time.Now().UTC()
	periodStart := periodEnd.AddDate(0, -1, 0)
	if req.From != "" {
		t, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "from must be RFC3339")
		}
		periodStart = t
	}
	if req.To != "" {
		t, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "to must be RFC3339")
		}
		periodEnd = t
	}
	if !periodEnd.After(periodStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be after from")
	}

	report := &models.Report{
		Type: req.Type,
		Params: models.ReportParams{
			PeriodStart: periodStart,
			PeriodEnd:   periodEnd,
			Format:      req.Format,
		},
		Status:      models.ReportStatusQueued,
		GeneratedBy: actorID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	if err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "report_generation",
		Payload: report.ID,
	}); err != nil {
		s.markFailed(ctx, report.ID, fmt.Sprintf("enqueue: %v", err))
		return nil, err
	}
	return report, nil
}

// HandleJob is the queue worker entrypoint.
func (s *ReportService) HandleJob(ctx context.Context, job jobs.Job) error {
	reportID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.process(ctx, reportID)
}

func (s *ReportService) process(ctx context.Context, reportID string) error {
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	if err := s.reports.Update(ctx, report.ID, repository.UpdateReportParams{Status: &processing}); err != nil {
		return err
	}

	var (
		dataset export.Dataset
		summary models.ReportSummary
	)
	switch report.Type {
	case models.ReportTypeAudit:
		dataset, summary, err = s.buildAuditDataset(ctx, report)
	case models.ReportTypeCompliance:
		dataset, summary, err = s.buildComplianceDataset(ctx, report)
	default:
		err = fmt.Errorf("unknown report type %q", report.Type)
	}
	if err != nil {
		s.markFailed(ctx, report.ID, err.Error())
		return err
	}

	var rendered []byte
	filename := fmt.Sprintf("%s-%s.%s", report.Type, report.ID, report.Params.Format)
	switch report.Params.Format {
	case models.ReportFormatPDF:
		rendered, err = s.pdf.Render(dataset, fmt.Sprintf("%s report", report.Type))
	default:
		rendered, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.markFailed(ctx, report.ID, err.Error())
		return err
	}

	path, err := s.store.Save(filename, rendered)
	if err != nil {
		s.markFailed(ctx, report.ID, err.Error())
		return err
	}
	url, _, err := s.signer.Generate(report.ID, filename)
	if err != nil {
		s.markFailed(ctx, report.ID, err.Error())
		return err
	}

	finished := models.ReportStatusFinished
	now := time.Now().UTC()
	if err := s.reports.Update(ctx, report.ID, repository.UpdateReportParams{
		Status:      &finished,
		Summary:     &summary,
		FilePath:    &path,
		DownloadURL: &url,
		FinishedAt:  &now,
	}); err != nil {
		return err
	}
	s.logger.Sugar().Infow("report generated", "report_id", report.ID, "type", report.Type, "entries", summary.TotalEntries)
	return nil
}

func (s *ReportService) buildAuditDataset(ctx context.Context, report *models.Report) (export.Dataset, models.ReportSummary, error) {
	entries, total, err := s.audit.ListEntries(ctx, models.AuditFilter{
		From:     &report.Params.PeriodStart,
		To:       &report.Params.PeriodEnd,
		Page:     1,
		PageSize: 200,
	})
	if err != nil {
		return export.Dataset{}, models.ReportSummary{}, err
	}

	dataset := export.Dataset{
		Headers: []string{"timestamp", "actor", "kind", "action", "resource", "result", "ip"},
	}
	summary := models.ReportSummary{TotalEntries: total, ByAction: map[string]int{}}
	for _, entry := range entries {
		if entry.Result == models.AuditResultFailure {
			summary.FailureCount++
		}
		summary.ByAction[entry.Action]++
		dataset.Rows = append(dataset.Rows, map[string]string{
			"timestamp": entry.OccurredAt.Format(time.RFC3339),
			"actor":     entry.ActorID,
			"kind":      string(entry.ActorKind),
			"action":    entry.Action,
			"resource":  entry.Resource,
			"result":    string(entry.Result),
			"ip":        entry.IPAddress,
		})
	}
	return dataset, summary, nil
}

func (s *ReportService) buildComplianceDataset(ctx context.Context, report *models.Report) (export.Dataset, models.ReportSummary, error) {
	unresolved, err := s.events.CountUnresolved(ctx, nil)
	if err != nil {
		return export.Dataset{}, models.ReportSummary{}, err
	}
	staleCutoff := time.Now().UTC().AddDate(0, 0, -7)
	stale, err := s.events.ListUnresolvedOlderThan(ctx, staleCutoff, 100)
	if err != nil {
		return export.Dataset{}, models.ReportSummary{}, err
	}
	neverRun, err := s.policies.ListNeverExecuted(ctx)
	if err != nil {
		return export.Dataset{}, models.ReportSummary{}, err
	}

	findings := make([]models.ComplianceFinding, 0, len(stale)+len(neverRun))
	for _, event := range stale {
		evidence, _ := json.Marshal(map[string]string{
			"event_id":    event.ID,
			"type":        string(event.Type),
			"occurred_at": event.OccurredAt.Format(time.RFC3339),
		})
		findings = append(findings, models.ComplianceFinding{
			ReportID:       report.ID,
			Severity:       models.SeverityHigh,
			Category:       "stale_security_event",
			Description:    fmt.Sprintf("security event %s unresolved for over 7 days", event.ID),
			Evidence:       evidence,
			Recommendation: "triage and resolve the event or escalate it",
		})
	}
	for _, policy := range neverRun {
		evidence, _ := json.Marshal(map[string]string{"policy_id": policy.ID, "data_type": string(policy.DataType)})
		findings = append(findings, models.ComplianceFinding{
			ReportID:       report.ID,
			Severity:       models.SeverityMedium,
			Category:       "retention_policy_never_executed",
			Description:    fmt.Sprintf("retention policy %q has never been executed", policy.Name),
			Evidence:       evidence,
			Recommendation: "run the policy or disable it",
		})
	}
	if len(findings) > 0 {
		if err := s.reports.CreateFindings(ctx, findings); err != nil {
			return export.Dataset{}, models.ReportSummary{}, err
		}
	}

	dataset := export.Dataset{Headers: []string{"severity", "category", "description", "recommendation"}}
	bySeverity := map[string]int{}
	for _, finding := range findings {
		bySeverity[string(finding.Severity)]++
		dataset.Rows = append(dataset.Rows, map[string]string{
			"severity":       string(finding.Severity),
			"category":       finding.Category,
			"description":    finding.Description,
			"recommendation": finding.Recommendation,
		})
	}
	summary := models.ReportSummary{
		TotalEntries:     len(findings),
		BySeverity:       bySeverity,
		UnresolvedEvents: unresolved,
		FindingCount:     len(findings),
	}
	return dataset, summary, nil
}

func (s *ReportService) markFailed(ctx context.Context, reportID, message string) {
	failed := models.ReportStatusFailed
	now := time.Now().UTC()
	if err := s.reports.Update(ctx, reportID, repository.UpdateReportParams{
		Status:       &failed,
		FinishedAt:   &now,
		ErrorMessage: &message,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to mark report failed", "report_id", reportID, "error", err)
	}
}

// GetReport returns one report.
func (s *ReportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, err
	}
	return report, nil
}

// ListReports returns reports newest first.
func (s *ReportService) ListReports(ctx context.Context, reportType models.ReportType, limit, offset int) ([]models.Report, error) {
	return s.reports.List(ctx, reportType, limit, offset)
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	Path     string
	Filename string
	Format   models.ReportFormat
}

// ResolveDownload verifies a signed token and resolves the stored file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	reportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusFinished || report.FilePath == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "report file is not ready")
	}
	return &ReportDownload{
		Path:     s.store.Path(relPath),
		Filename: relPath,
		Format:   report.Params.Format,
	}, nil
}

// ListFindings returns the findings of a compliance report.
func (s *ReportService) ListFindings(ctx context.Context, reportID string) ([]models.ComplianceFinding, error) {
	if _, err := s.GetReport(ctx, reportID); err != nil {
		return nil, err
	}
	return s.reports.ListFindings(ctx, reportID)
}

// UpdateFindingStatus moves a finding through its workflow.
func (s *ReportService) UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error {
	switch status {
	case models.FindingStatusOpen, models.FindingStatusInProgress, models.FindingStatusResolved:
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown finding status %q", status))
	}
	if err := s.reports.UpdateFindingStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "finding not found")
		}
		return err
	}
	return nil
}
