package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	"github.com/fleetworks/motorpool-api/internal/repository"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

// TripService records gate events for approved trips. Dispatch opens the trip
// log; arrival closes it, completes the request and returns its resources to
// the pool. The guard lifecycle sits outside the approval workflow, so
// APPROVED to COMPLETED does not pass through the approval action mapping.
type TripService struct {
	store    requestStore
	audit    approvalAuditor
	notifier approvalNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewTripService constructs the service.
func NewTripService(store requestStore, audit approvalAuditor, notifier approvalNotifier, logger *zap.Logger) *TripService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripService{
		store:    store,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordDispatch logs a vehicle leaving the gate for an approved trip.
func (s *TripService) RecordDispatch(ctx context.Context, requestID int64, actor models.Actor, payload dto.DispatchRequest) (err error) {
	if actor.Role != models.RoleGuard && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return s.storeFailure(err, "failed to open dispatch transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("dispatch rollback failed", zap.Int64("request_id", requestID), zap.Error(rbErr))
			}
		}
	}()

	request, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return s.storeFailure(err, "failed to lock request")
	}
	if request.Status != models.StatusApproved {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot dispatch a request in status %s", request.Status))
	}
	if open, findErr := tx.OpenTripLog(ctx, request.ID); findErr != nil && !errors.Is(findErr, sql.ErrNoRows) {
		return s.storeFailure(findErr, "failed to check open trip log")
	} else if open != nil {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("trip #%d already dispatched", request.ID))
	}

	now := s.now().UTC()
	if err = tx.InsertTripLog(ctx, &models.TripLog{
		RequestID:   request.ID,
		GuardID:     actor.ID,
		DepartedAt:  &now,
		OdometerOut: payload.OdometerOut,
		Remarks:     payload.Remarks,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		return s.storeFailure(err, "failed to record dispatch")
	}

	if err = s.recordAudit(ctx, request, actor, models.AuditActionTripDispatch, map[string]interface{}{
		"departed_at":  now,
		"odometer_out": payload.OdometerOut,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return s.storeFailure(err, "failed to commit dispatch")
	}
	committed = true

	s.notifier.Dispatch([]models.NotificationJob{{
		UserID:  request.RequesterID,
		Type:    models.NotifyTripUpdate,
		Title:   fmt.Sprintf("Trip #%d departed", request.ID),
		Message: fmt.Sprintf("Your trip to %s has left the premises.", request.Destination),
		Link:    fmt.Sprintf("/requests/%d", request.ID),
	}})
	return nil
}

// RecordArrival closes the open trip log, marks the request COMPLETED and
// releases the vehicle and driver.
func (s *TripService) RecordArrival(ctx context.Context, requestID int64, actor models.Actor, payload dto.ArrivalRequest) (err error) {
	if actor.Role != models.RoleGuard && actor.Role != models.RoleAdmin {
		return appErrors.ErrForbidden
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return s.storeFailure(err, "failed to open arrival transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("arrival rollback failed", zap.Int64("request_id", requestID), zap.Error(rbErr))
			}
		}
	}()

	request, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return s.storeFailure(err, "failed to lock request")
	}
	if request.Status != models.StatusApproved {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("cannot record arrival for a request in status %s", request.Status))
	}

	open, err := tx.OpenTripLog(ctx, request.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("trip #%d was never dispatched", request.ID))
		}
		return s.storeFailure(err, "failed to load open trip log")
	}

	now := s.now().UTC()
	if err = tx.CloseTripLog(ctx, open.ID, now, payload.OdometerIn, payload.Remarks); err != nil {
		return s.storeFailure(err, "failed to close trip log")
	}
	if err = tx.UpdateRequestApproval(ctx, repository.UpdateRequestApprovalParams{
		ID:        request.ID,
		Status:    models.StatusCompleted,
		UpdatedAt: now,
	}); err != nil {
		return s.storeFailure(err, "failed to complete request")
	}
	if request.VehicleID != nil {
		if err = tx.SetVehicleStatus(ctx, *request.VehicleID, models.VehicleAvailable); err != nil {
			return s.storeFailure(err, "failed to release vehicle")
		}
	}
	if request.DriverID != nil {
		if err = tx.SetDriverStatus(ctx, *request.DriverID, models.DriverAvailable); err != nil {
			return s.storeFailure(err, "failed to release driver")
		}
	}
	if request.VehicleID != nil || request.DriverID != nil {
		if err = tx.InsertAssignmentHistory(ctx, &models.AssignmentHistory{
			RequestID: request.ID,
			VehicleID: request.VehicleID,
			DriverID:  request.DriverID,
			Action:    models.AssignmentActionReleased,
			ActorID:   actor.ID,
			CreatedAt: now,
		}); err != nil {
			return s.storeFailure(err, "failed to record release")
		}
	}

	if err = s.recordAudit(ctx, request, actor, models.AuditActionTripArrival, map[string]interface{}{
		"returned_at": now,
		"odometer_in": payload.OdometerIn,
		"status":      models.StatusCompleted,
	}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return s.storeFailure(err, "failed to commit arrival")
	}
	committed = true

	s.notifier.Dispatch([]models.NotificationJob{{
		UserID:  request.RequesterID,
		Type:    models.NotifyTripUpdate,
		Title:   fmt.Sprintf("Trip #%d completed", request.ID),
		Message: fmt.Sprintf("Your trip to %s has returned and is now complete.", request.Destination),
		Link:    fmt.Sprintf("/requests/%d", request.ID),
	}})
	return nil
}

func (s *TripService) recordAudit(ctx context.Context, request *models.Request, actor models.Actor, action string, fields map[string]interface{}) error {
	if s.audit == nil {
		return nil
	}
	before, _ := json.Marshal(map[string]interface{}{"status": request.Status})
	after, _ := json.Marshal(fields)
	actorID := actor.ID
	requestID := request.ID
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "request",
		ResourceID: &requestID,
		OldValues:  before,
		NewValues:  after,
		IPAddress:  "system",
		UserAgent:  "trip-service",
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit event")
	}
	return nil
}

func (s *TripService) storeFailure(err error, message string) error {
	if appErrors.HasCode(err, appErrors.ErrTransientStore) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
