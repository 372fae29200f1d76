package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/models"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type auditStore interface {
	CreateEntry(ctx context.Context, entry *models.AuditEntry) error
	ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, int, error)
	CreateAccessLog(ctx context.Context, entry *models.AccessLogEntry) error
	ListAccessLogs(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLogEntry, int, error)
}

type accessAnalyzer interface {
	Analyze(ctx context.Context, entry *models.AccessLogEntry)
}

// AuditService is the write and query front of the event store. Audit and
// access entries are append-only; nothing in the service mutates them.
type AuditService struct {
	repo     auditStore
	detector accessAnalyzer
	logger   *zap.Logger
}

// NewAuditService constructs the service. The detector is optional; when
// nil, access logs are stored without suspicious-activity analysis.
func NewAuditService(repo auditStore, detector accessAnalyzer, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{repo: repo, detector: detector, logger: logger}
}

// AttachDetector binds the analyzer after construction. The audit and
// security services reference each other, so one side binds late.
func (s *AuditService) AttachDetector(detector accessAnalyzer) {
	s.detector = detector
}

// LogAction appends one audit entry.
func (s *AuditService) LogAction(ctx context.Context, entry *models.AuditEntry) (*models.AuditEntry, error) {
	if entry.ActorID == "" || entry.Action == "" || entry.Resource == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actor_id, action and resource are required")
	}
	if entry.Result == "" {
		entry.Result = models.AuditResultSuccess
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if err := s.repo.CreateEntry(ctx, entry); err != nil {
		s.logger.Sugar().Errorw("failed to append audit entry", "action", entry.Action, "error", err)
		return nil, err
	}
	return entry, nil
}

// LogAccess appends one access-log entry and feeds it to the detector.
// Detection failures never fail the write.
func (s *AuditService) LogAccess(ctx context.Context, entry *models.AccessLogEntry) (*models.AccessLogEntry, error) {
	if entry.UserID == "" || entry.Action == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "user_id and action are required")
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	if err := s.repo.CreateAccessLog(ctx, entry); err != nil {
		s.logger.Sugar().Errorw("failed to append access log", "user_id", entry.UserID, "error", err)
		return nil, err
	}
	if s.detector != nil {
		s.detector.Analyze(ctx, entry)
	}
	return entry, nil
}

// ListEntries returns filtered audit entries with pagination metadata.
func (s *AuditService) ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, *models.Pagination, error) {
	entries, total, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return entries, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListAccessLogs returns filtered access logs with pagination metadata.
func (s *AuditService) ListAccessLogs(ctx context.Context, filter models.AccessLogFilter) ([]models.AccessLogEntry, *models.Pagination, error) {
	entries, total, err := s.repo.ListAccessLogs(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	return entries, paginationFor(filter.Page, filter.PageSize, total), nil
}

func paginationFor(page, pageSize, total int) *models.Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}
}
