package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/dto"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

type reportStore interface {
	VehicleUsage(ctx context.Context, from, to time.Time) ([]dto.VehicleUsageRow, error)
	DepartmentUsage(ctx context.Context, from, to time.Time) ([]dto.DepartmentUsageRow, error)
}

// ReportService builds fleet usage summaries, cached in Redis keyed by window.
type ReportService struct {
	store    reportStore
	cache    *redis.Client
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService constructs the service. A nil cache client disables caching.
func NewReportService(store reportStore, cache *redis.Client, cacheTTL time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Usage returns the usage summary for a window, from cache when fresh.
func (s *ReportService) Usage(ctx context.Context, query dto.UsageReportQuery) (*dto.UsageReport, error) {
	if !query.To.After(query.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must be after from")
	}

	key := s.cacheKey(query.From, query.To)
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var cached dto.UsageReport
			if unmarshalErr := json.Unmarshal(raw, &cached); unmarshalErr == nil {
				return &cached, nil
			}
			s.logger.Warn("discarding malformed cached report", zap.String("key", key))
		} else if !errors.Is(err, redis.Nil) {
			// Cache trouble never blocks the report.
			s.logger.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	vehicles, err := s.store.VehicleUsage(ctx, query.From, query.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate vehicle usage")
	}
	departments, err := s.store.DepartmentUsage(ctx, query.From, query.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate department usage")
	}

	report := &dto.UsageReport{
		From:        query.From,
		To:          query.To,
		Vehicles:    vehicles,
		Departments: departments,
		GeneratedAt: s.now(),
	}

	if s.cache != nil {
		if raw, marshalErr := json.Marshal(report); marshalErr == nil {
			if setErr := s.cache.Set(ctx, key, raw, s.cacheTTL).Err(); setErr != nil {
				s.logger.Warn("report cache write failed", zap.String("key", key), zap.Error(setErr))
			}
		}
	}
	return report, nil
}

func (s *ReportService) cacheKey(from, to time.Time) string {
	return fmt.Sprintf("reports:usage:%d:%d", from.Unix(), to.Unix())
}
