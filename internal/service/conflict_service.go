package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

type conflictStore interface {
	FindConflicts(ctx context.Context, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error)
}

// ConflictService answers standalone availability probes for a single resource.
type ConflictService struct {
	store  conflictStore
	logger *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(store conflictStore, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{store: store, logger: logger}
}

// Check finds overlapping active bookings for a resource and classifies each
// overlap by severity.
func (s *ConflictService) Check(ctx context.Context, query dto.ConflictCheckQuery) ([]dto.ConflictItem, error) {
	if !query.End.After(query.Start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	candidates, err := s.store.FindConflicts(ctx, models.ResourceKind(query.Resource), query.ResourceID, query.Start, query.End, query.ExcludeRequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query conflicts")
	}

	items := make([]dto.ConflictItem, 0, len(candidates))
	for _, candidate := range candidates {
		overlap := overlapDuration(candidate.DepartAt, candidate.ReturnAt, query.Start, query.End)
		items = append(items, dto.ConflictItem{
			RequestID:      candidate.RequestID,
			RequesterID:    candidate.RequesterID,
			Destination:    candidate.Destination,
			DepartAt:       candidate.DepartAt,
			ReturnAt:       candidate.ReturnAt,
			Status:         candidate.Status,
			OverlapMinutes: int64(overlap.Minutes()),
			Severity:       classifySeverity(overlap),
		})
	}
	return items, nil
}

// overlapDuration computes the intersection of two half-open intervals.
// Touching endpoints yield zero.
func overlapDuration(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	start := aStart
	if bStart.After(start) {
		start = bStart
	}
	end := aEnd
	if bEnd.Before(end) {
		end = bEnd
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// classifySeverity grades an overlap by its duration.
func classifySeverity(overlap time.Duration) models.ConflictSeverity {
	switch {
	case overlap <= 60*time.Minute:
		return models.SeverityMinor
	case overlap <= 120*time.Minute:
		return models.SeverityModerate
	default:
		return models.SeveritySevere
	}
}

// dedupeCandidates merges conflict lists keeping one entry per request id.
func dedupeCandidates(lists ...[]models.ConflictCandidate) []models.ConflictCandidate {
	seen := make(map[int64]struct{})
	var merged []models.ConflictCandidate
	for _, list := range lists {
		for _, candidate := range list {
			if _, ok := seen[candidate.RequestID]; ok {
				continue
			}
			seen[candidate.RequestID] = struct{}{}
			merged = append(merged, candidate)
		}
	}
	return merged
}
