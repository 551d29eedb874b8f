package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Pyrogramic/test-event-website/internal/models"
	appErrors "github.com/Pyrogramic/test-event-website/pkg/errors"
)

type statsEventRepository interface {
	CountActive(ctx context.Context, createdBy string) (int, error)
	CountUpcoming(ctx context.Context, createdBy string, now time.Time) (int, error)
}

type statsRegistrationRepository interface {
	Count(ctx context.Context, createdBy string) (int, error)
	CountByStatus(ctx context.Context, createdBy string, status models.RegistrationStatus) (int, error)
}

// DashboardService computes review statistics over the actor's scoped view.
type DashboardService struct {
	events        statsEventRepository
	registrations statsRegistrationRepository
	cache         *CacheService
	cacheTTL      time.Duration
	logger        *zap.Logger
	now           func() time.Time
}

// NewDashboardService constructs DashboardService.
func NewDashboardService(events statsEventRepository, registrations statsRegistrationRepository, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *DashboardService {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{events: events, registrations: registrations, cache: cache, cacheTTL: cacheTTL, logger: logger, now: time.Now}
}

// Stats returns counts over the events and registrations the actor may see:
// the full set for the owner, only owned events for admins. cacheHit reports
// whether the payload came from cache.
func (s *DashboardService) Stats(ctx context.Context, scope models.Scope) (*models.DashboardStats, bool, error) {
	key := statsCacheKey(scope)

	var stats models.DashboardStats
	if s.cache.Get(ctx, key, &stats) {
		return &stats, true, nil
	}

	createdBy := scope.CreatorFilter()

	totalEvents, err := s.events.CountActive(ctx, createdBy)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count events")
	}
	upcoming, err := s.events.CountUpcoming(ctx, createdBy, s.now())
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count upcoming events")
	}
	totalRegs, err := s.registrations.Count(ctx, createdBy)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	pending, err := s.registrations.CountByStatus(ctx, createdBy, models.RegistrationStatusPending)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count pending registrations")
	}

	stats = models.DashboardStats{
		TotalEvents:          totalEvents,
		UpcomingEvents:       upcoming,
		TotalRegistrations:   totalRegs,
		PendingRegistrations: pending,
	}

	s.cache.Set(ctx, key, stats, s.cacheTTL)
	return &stats, false, nil
}

func statsCacheKey(scope models.Scope) string {
	if scope.IsOwner() {
		return "dashboard:stats:owner"
	}
	return fmt.Sprintf("dashboard:stats:admin:%s", scope.ActorID())
}
