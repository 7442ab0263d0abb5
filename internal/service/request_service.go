package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

type requestReader interface {
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error)
}

// RequestService serves read access to trip requests with role-based scoping.
type RequestService struct {
	store  requestReader
	logger *zap.Logger
}

// NewRequestService constructs the service.
func NewRequestService(store requestReader, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{store: store, logger: logger}
}

// Get returns one request. Requesters only see their own; reviewers see their
// department; motorpool, guards and admins see everything.
func (s *RequestService) Get(ctx context.Context, id int64, actor models.Actor, actorDepartment *int64) (*models.Request, error) {
	request, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if !s.canSee(request, actor, actorDepartment) {
		return nil, appErrors.ErrForbidden
	}
	return request, nil
}

// List returns a filtered page of requests, with the filter narrowed to what
// the actor is allowed to see.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor models.Actor, actorDepartment *int64) ([]models.Request, *models.Pagination, error) {
	filter, err := s.buildFilter(query)
	if err != nil {
		return nil, nil, err
	}

	switch actor.Role {
	case models.RoleRequester:
		filter.RequesterID = actor.ID
	case models.RoleApprover:
		if actorDepartment == nil {
			return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "reviewer has no department")
		}
		filter.DepartmentID = *actorDepartment
	}

	rows, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	pagination := models.NewPagination(filter.Page, filter.PageSize, total)
	return rows, pagination, nil
}

func (s *RequestService) buildFilter(query dto.RequestQuery) (models.RequestFilter, error) {
	filter := models.RequestFilter{
		RequesterID:  query.RequesterID,
		DepartmentID: query.DepartmentID,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	if query.Status != "" {
		for _, raw := range strings.Split(query.Status, ",") {
			status := models.RequestStatus(strings.ToUpper(strings.TrimSpace(raw)))
			if !status.Valid() {
				return filter, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status))
			}
			filter.Status = append(filter.Status, status)
		}
	}
	if query.From != "" {
		from, err := time.Parse(time.RFC3339, query.From)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be RFC 3339")
		}
		filter.From = &from
	}
	if query.To != "" {
		to, err := time.Parse(time.RFC3339, query.To)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be RFC 3339")
		}
		filter.To = &to
	}
	return filter, nil
}

func (s *RequestService) canSee(request *models.Request, actor models.Actor, actorDepartment *int64) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleMotorpool, models.RoleGuard:
		return true
	case models.RoleApprover:
		return actorDepartment != nil && *actorDepartment == request.DepartmentID
	default:
		return request.RequesterID == actor.ID
	}
}
