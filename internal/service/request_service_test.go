package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

type requestReaderStub struct {
	request    *models.Request
	rows       []models.Request
	total      int
	err        error
	lastFilter models.RequestFilter
}

func (s *requestReaderStub) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.request, nil
}

func (s *requestReaderStub) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	s.lastFilter = filter
	return s.rows, s.total, s.err
}

func TestRequestGetVisibility(t *testing.T) {
	store := &requestReaderStub{request: pendingRequest()}
	svc := NewRequestService(store, nil)

	// Owner sees it.
	_, err := svc.Get(context.Background(), 10, models.Actor{ID: 1, Role: models.RoleRequester}, nil)
	require.NoError(t, err)

	// A different requester does not.
	_, err = svc.Get(context.Background(), 10, models.Actor{ID: 2, Role: models.RoleRequester}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))

	// A reviewer in the same department does.
	dept := int64(5)
	_, err = svc.Get(context.Background(), 10, models.Actor{ID: 8, Role: models.RoleApprover}, &dept)
	require.NoError(t, err)

	// A reviewer elsewhere does not.
	other := int64(6)
	_, err = svc.Get(context.Background(), 10, models.Actor{ID: 8, Role: models.RoleApprover}, &other)
	require.Error(t, err)

	// Motorpool, guards and admins always do.
	for _, role := range []models.UserRole{models.RoleMotorpool, models.RoleGuard, models.RoleAdmin} {
		_, err = svc.Get(context.Background(), 10, models.Actor{ID: 50, Role: role}, nil)
		require.NoErrorf(t, err, "role %s", role)
	}
}

func TestRequestListScopesRequesterToOwnRows(t *testing.T) {
	store := &requestReaderStub{rows: []models.Request{*pendingRequest()}, total: 1}
	svc := NewRequestService(store, nil)

	_, pagination, err := svc.List(context.Background(), dto.RequestQuery{}, models.Actor{ID: 1, Role: models.RoleRequester}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), store.lastFilter.RequesterID)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, store.lastFilter.PageSize)
}

func TestRequestListScopesApproverToDepartment(t *testing.T) {
	store := &requestReaderStub{}
	svc := NewRequestService(store, nil)
	dept := int64(5)

	_, _, err := svc.List(context.Background(), dto.RequestQuery{}, models.Actor{ID: 2, Role: models.RoleApprover}, &dept)
	require.NoError(t, err)
	assert.Equal(t, int64(5), store.lastFilter.DepartmentID)
}

func TestRequestListParsesStatusFilter(t *testing.T) {
	store := &requestReaderStub{}
	svc := NewRequestService(store, nil)

	_, _, err := svc.List(context.Background(), dto.RequestQuery{Status: "pending, approved"}, models.Actor{ID: 50, Role: models.RoleAdmin}, nil)
	require.NoError(t, err)
	assert.Equal(t, []models.RequestStatus{models.StatusPending, models.StatusApproved}, store.lastFilter.Status)

	_, _, err = svc.List(context.Background(), dto.RequestQuery{Status: "teleported"}, models.Actor{ID: 50, Role: models.RoleAdmin}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestRequestListRejectsBadWindow(t *testing.T) {
	svc := NewRequestService(&requestReaderStub{}, nil)

	_, _, err := svc.List(context.Background(), dto.RequestQuery{From: "yesterday"}, models.Actor{ID: 50, Role: models.RoleAdmin}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
