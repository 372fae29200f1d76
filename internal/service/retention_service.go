package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/models"
	"github.com/r2suporte/interalpha-api/internal/repository"
	appErrors "github.com/r2suporte/interalpha-api/pkg/errors"
)

type retentionPolicyStore interface {
	Create(ctx context.Context, policy *models.DataRetentionPolicy) error
	GetByID(ctx context.Context, id string) (*models.DataRetentionPolicy, error)
	List(ctx context.Context) ([]models.DataRetentionPolicy, error)
	Update(ctx context.Context, policy *models.DataRetentionPolicy) error
	SetLastExecuted(ctx context.Context, id string, executedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// RetentionTarget is the scan surface a policy operates on. One target
// exists per governed table.
type RetentionTarget interface {
	CountOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	CountBetween(ctx context.Context, from, to time.Time) (int, error)
	ArchiveBetween(ctx context.Context, from, to time.Time) (int, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// RetentionService ages out audit data per policy: records past the
// archive window move to the archive tables, records past the delete
// window are removed for good. Runs are idempotent, so a crash mid-run
// is repaired by running the policy again.
type retentionCounter interface {
	RecordRetention(dataType string, archived, deleted int)
}

type RetentionService struct {
	policies retentionPolicyStore
	targets  map[models.RetentionDataType]RetentionTarget
	audit    auditWriter
	logger   *zap.Logger
	metrics  retentionCounter
}

// NewRetentionService constructs the service.
func NewRetentionService(policies retentionPolicyStore, targets map[models.RetentionDataType]RetentionTarget, audit auditWriter, logger *zap.Logger) *RetentionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetentionService{policies: policies, targets: targets, audit: audit, logger: logger}
}

// AttachMetrics binds the instrumentation sink.
func (s *RetentionService) AttachMetrics(metrics retentionCounter) {
	s.metrics = metrics
}

// CreatePolicy validates and stores a new retention policy.
func (s *RetentionService) CreatePolicy(ctx context.Context, policy *models.DataRetentionPolicy) (*models.DataRetentionPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, err
	}
	return policy, nil
}

// GetPolicy returns one policy.
func (s *RetentionService) GetPolicy(ctx context.Context, id string) (*models.DataRetentionPolicy, error) {
	policy, err := s.policies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "retention policy not found")
		}
		return nil, err
	}
	return policy, nil
}

// ListPolicies returns every policy.
func (s *RetentionService) ListPolicies(ctx context.Context) ([]models.DataRetentionPolicy, error) {
	return s.policies.List(ctx)
}

// UpdatePolicy validates and persists edits to a policy.
func (s *RetentionService) UpdatePolicy(ctx context.Context, policy *models.DataRetentionPolicy) (*models.DataRetentionPolicy, error) {
	if err := policy.Validate(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := s.policies.Update(ctx, policy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "retention policy not found")
		}
		return nil, err
	}
	return s.GetPolicy(ctx, policy.ID)
}

// DeletePolicy removes a policy.
func (s *RetentionService) DeletePolicy(ctx context.Context, id string) error {
	if err := s.policies.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "retention policy not found")
		}
		return err
	}
	return nil
}

// Execute runs one policy. With dryRun the scan only counts what an
// execution would touch and mutates nothing, including last_executed.
// A real run archives first, then deletes, and stamps last_executed only
// after both phases succeed.
func (s *RetentionService) Execute(ctx context.Context, policyID, executedBy string, dryRun bool) (*models.RetentionRunResult, error) {
	policy, err := s.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}
	if !policy.Enabled {
		return nil, appErrors.ErrPolicyDisabled
	}
	target, ok := s.targets[policy.DataType]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no retention target for data type "+string(policy.DataType))
	}

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -policy.DeleteAfterDays)
	result := &models.RetentionRunResult{
		PolicyID:   policy.ID,
		DataType:   policy.DataType,
		DryRun:     dryRun,
		CutoffDate: cutoff,
		ExecutedBy: executedBy,
		ExecutedAt: now,
	}

	var archiveDate time.Time
	if policy.ArchiveAfterDays != nil {
		archiveDate = now.AddDate(0, 0, -*policy.ArchiveAfterDays)
		result.ArchiveDate = &archiveDate
	}

	if dryRun {
		if result.ArchiveDate != nil {
			toArchive, err := target.CountBetween(ctx, cutoff, archiveDate)
			if err != nil {
				return nil, err
			}
			result.RecordsToArchive = toArchive
		}
		toDelete, err := target.CountOlderThan(ctx, cutoff)
		if err != nil {
			return nil, err
		}
		result.RecordsToDelete = toDelete
		return result, nil
	}

	if result.ArchiveDate != nil {
		archived, err := target.ArchiveBetween(ctx, cutoff, archiveDate)
		if err != nil {
			s.logger.Sugar().Errorw("retention archive phase failed", "policy_id", policy.ID, "error", err)
			return nil, err
		}
		result.RecordsArchived = archived
	}

	deleted, err := target.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.Sugar().Errorw("retention delete phase failed", "policy_id", policy.ID, "error", err)
		return nil, err
	}
	result.RecordsDeleted = deleted

	if err := s.policies.SetLastExecuted(ctx, policy.ID, now); err != nil {
		s.logger.Sugar().Errorw("failed to stamp retention execution", "policy_id", policy.ID, "error", err)
		return nil, err
	}

	s.logger.Sugar().Infow("retention policy executed",
		"policy_id", policy.ID,
		"data_type", policy.DataType,
		"archived", result.RecordsArchived,
		"deleted", result.RecordsDeleted,
	)
	if s.metrics != nil {
		s.metrics.RecordRetention(string(policy.DataType), result.RecordsArchived, result.RecordsDeleted)
	}
	s.auditRun(ctx, policy, result)
	return result, nil
}

func (s *RetentionService) auditRun(ctx context.Context, policy *models.DataRetentionPolicy, result *models.RetentionRunResult) {
	if s.audit == nil {
		return
	}
	metadata, _ := json.Marshal(result)
	if _, err := s.audit.LogAction(ctx, &models.AuditEntry{
		ActorID:    result.ExecutedBy,
		ActorKind:  models.ActorKindEmployee,
		Action:     "retention_policy.execute",
		Resource:   "data_retention_policy",
		ResourceID: &policy.ID,
		Result:     models.AuditResultSuccess,
		IPAddress:  "internal",
		UserAgent:  "retention-engine",
		Metadata:   metadata,
		OccurredAt: result.ExecutedAt,
	}); err != nil {
		s.logger.Sugar().Errorw("failed to audit retention run", "policy_id", policy.ID, "error", err)
	}
}

// auditEntriesTarget adapts the audit repository's audit_entries scans to
// the RetentionTarget surface.
type auditEntriesTarget struct{ repo *repository.AuditRepository }

// NewAuditEntriesTarget wraps audit entry scans as a retention target.
func NewAuditEntriesTarget(repo *repository.AuditRepository) RetentionTarget {
	return auditEntriesTarget{repo: repo}
}

func (t auditEntriesTarget) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return t.repo.CountEntriesOlderThan(ctx, cutoff)
}

func (t auditEntriesTarget) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	return t.repo.CountEntriesBetween(ctx, from, to)
}

func (t auditEntriesTarget) ArchiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	return t.repo.ArchiveEntriesBetween(ctx, from, to)
}

func (t auditEntriesTarget) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return t.repo.DeleteEntriesOlderThan(ctx, cutoff)
}

// accessLogsTarget adapts the access_log_entries scans.
type accessLogsTarget struct{ repo *repository.AuditRepository }

// NewAccessLogsTarget wraps access log scans as a retention target.
func NewAccessLogsTarget(repo *repository.AuditRepository) RetentionTarget {
	return accessLogsTarget{repo: repo}
}

func (t accessLogsTarget) CountOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return t.repo.CountAccessLogsOlderThan(ctx, cutoff)
}

func (t accessLogsTarget) CountBetween(ctx context.Context, from, to time.Time) (int, error) {
	return t.repo.CountAccessLogsBetween(ctx, from, to)
}

func (t accessLogsTarget) ArchiveBetween(ctx context.Context, from, to time.Time) (int, error) {
	return t.repo.ArchiveAccessLogsBetween(ctx, from, to)
}

func (t accessLogsTarget) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return t.repo.DeleteAccessLogsOlderThan(ctx, cutoff)
}
