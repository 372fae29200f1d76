package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/r2suporte/interalpha-api/internal/dto"
	"github.com/r2suporte/interalpha-api/internal/repository"
)

const dashboardCacheKey = "dashboard:overview"

// DashboardService assembles the operational overview. The payload is
// cached in Redis because it fans out over several aggregate queries.
type DashboardService struct {
	repo   *repository.DashboardRepository
	cache  *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewDashboardService constructs the service. The cache is optional.
func NewDashboardService(repo *repository.DashboardRepository, cache *redis.Client, logger *zap.Logger, ttl time.Duration) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardService{repo: repo, cache: cache, logger: logger, ttl: ttl}
}

// Overview returns the dashboard payload, serving a cached copy when one
// is fresh.
func (s *DashboardService) Overview(ctx context.Context) (*dto.DashboardResponse, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	byStatus, err := s.repo.OrdersByStatus(ctx)
	if err != nil {
		return nil, err
	}
	revenue, err := s.repo.RevenueBetween(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}
	delivered, err := s.repo.OrdersDeliveredBetween(ctx, monthStart, now)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.repo.LowStockCount(ctx)
	if err != nil {
		return nil, err
	}
	bySeverity, err := s.repo.SecurityEventsBySeverity(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}
	failedLogins, err := s.repo.FailedLoginsSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}

	overview := &dto.DashboardResponse{
		OrdersByStatus:  byStatus,
		RevenueCents:    revenue,
		OrdersDelivered: delivered,
		LowStockParts:   lowStock,
		Security: dto.SecurityOverview{
			UnresolvedBySeverity: bySeverity,
			FailedLogins24h:      failedLogins,
		},
	}
	s.toCache(ctx, overview)
	return overview, nil
}

func (s *DashboardService) fromCache(ctx context.Context) *dto.DashboardResponse {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		return nil
	}
	var overview dto.DashboardResponse
	if err := json.Unmarshal(raw, &overview); err != nil {
		return nil
	}
	return &overview
}

func (s *DashboardService) toCache(ctx context.Context, overview *dto.DashboardResponse) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(overview)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Sugar().Debugw("dashboard cache write failed", "error", err)
	}
}
