package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/r2suporte/interalpha-api/internal/models"
)

// ReportRepository persists generated report metadata and compliance
// findings.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, type, params, summary, status, file_path, download_url, generated_by,
       created_at, finished_at, error_message`

// Create stores a queued report row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO reports
	(id, type, params, summary, status, file_path, download_url, generated_by, created_at, finished_at, error_message)
	VALUES (:id, :type, :params, :summary, :status, :file_path, :download_url, :generated_by, :created_at, :finished_at, :error_message)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID retrieves one report. Missing ids surface sql.ErrNoRows.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns reports newest first, optionally by type.
func (r *ReportRepository) List(ctx context.Context, reportType models.ReportType, limit, offset int) ([]models.Report, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("SELECT %s FROM reports", reportColumns))
	args := make([]interface{}, 0, 1)
	if reportType != "" {
		args = append(args, reportType)
		builder.WriteString(" WHERE type = $1")
	}
	builder.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", limit, offset))

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// UpdateReportParams carries the mutable outcome fields for a report row.
type UpdateReportParams struct {
	Status       *models.ReportStatus
	Summary      *models.ReportSummary
	FilePath     *string
	DownloadURL  *string
	FinishedAt   *time.Time
	ErrorMessage *string
}

// Update applies lifecycle outcome fields to a report row.
func (r *ReportRepository) Update(ctx context.Context, id string, params UpdateReportParams) error {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 7)
	args = append(args, id)

	if params.Status != nil {
		args = append(args, *params.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Summary != nil {
		args = append(args, *params.Summary)
		sets = append(sets, fmt.Sprintf("summary = $%d", len(args)))
	}
	if params.FilePath != nil {
		args = append(args, *params.FilePath)
		sets = append(sets, fmt.Sprintf("file_path = $%d", len(args)))
	}
	if params.DownloadURL != nil {
		args = append(args, *params.DownloadURL)
		sets = append(sets, fmt.Sprintf("download_url = $%d", len(args)))
	}
	if params.FinishedAt != nil {
		args = append(args, *params.FinishedAt)
		sets = append(sets, fmt.Sprintf("finished_at = $%d", len(args)))
	}
	if params.ErrorMessage != nil {
		args = append(args, *params.ErrorMessage)
		sets = append(sets, fmt.Sprintf("error_message = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE reports SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check report update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

const findingColumns = `id, report_id, severity, category, description, evidence, recommendation, status, created_at`

// CreateFindings stores the findings produced for a compliance report.
func (r *ReportRepository) CreateFindings(ctx context.Context, findings []models.ComplianceFinding) error {
	const query = `INSERT INTO compliance_findings
	(id, report_id, severity, category, description, evidence, recommendation, status, created_at)
	VALUES (:id, :report_id, :severity, :category, :description, :evidence, :recommendation, :status, :created_at)`
	for i := range findings {
		finding := &findings[i]
		if finding.ID == "" {
			finding.ID = uuid.NewString()
		}
		if finding.CreatedAt.IsZero() {
			finding.CreatedAt = time.Now().UTC()
		}
		if finding.Status == "" {
			finding.Status = models.FindingStatusOpen
		}
		if _, err := r.db.NamedExecContext(ctx, query, finding); err != nil {
			return fmt.Errorf("create compliance finding: %w", err)
		}
	}
	return nil
}

// ListFindings returns a report's findings, most severe first.
func (r *ReportRepository) ListFindings(ctx context.Context, reportID string) ([]models.ComplianceFinding, error) {
	query := fmt.Sprintf(`SELECT %s FROM compliance_findings WHERE report_id = $1
	ORDER BY CASE severity WHEN 'critical' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC, created_at ASC`, findingColumns)
	var findings []models.ComplianceFinding
	if err := r.db.SelectContext(ctx, &findings, query, reportID); err != nil {
		return nil, fmt.Errorf("list compliance findings: %w", err)
	}
	return findings, nil
}

// UpdateFindingStatus moves one finding through its workflow.
func (r *ReportRepository) UpdateFindingStatus(ctx context.Context, id string, status models.FindingStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE compliance_findings SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return fmt.Errorf("update finding status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check finding update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
