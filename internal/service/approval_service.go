package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	"github.com/fleetworks/motorpool-api/internal/repository"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

// RequestTx is the transaction-scoped store view the approval processor works
// in. The row lock taken by GetRequestForUpdate is held until Commit or
// Rollback, so two concurrent approvals of the same request serialize here.
type RequestTx interface {
	GetRequestForUpdate(ctx context.Context, id int64) (*models.Request, error)
	RequestStatus(ctx context.Context, id int64) (models.RequestStatus, error)
	GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error)
	GetDriver(ctx context.Context, id int64) (*models.Driver, error)
	FindConflicts(ctx context.Context, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error)
	Passengers(ctx context.Context, requestID int64) ([]int64, error)
	UpdateRequestApproval(ctx context.Context, params repository.UpdateRequestApprovalParams) error
	InsertApproval(ctx context.Context, approval *models.Approval) error
	UpsertWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error
	InsertAssignmentHistory(ctx context.Context, entry *models.AssignmentHistory) error
	SetVehicleStatus(ctx context.Context, id int64, status models.VehicleStatus) error
	SetDriverStatus(ctx context.Context, id int64, status models.DriverStatus) error
	InsertTripLog(ctx context.Context, log *models.TripLog) error
	OpenTripLog(ctx context.Context, requestID int64) (*models.TripLog, error)
	CloseTripLog(ctx context.Context, id int64, returnedAt time.Time, odometerIn *int64, remarks string) error
	Commit() error
	Rollback() error
}

type requestStore interface {
	Begin(ctx context.Context) (RequestTx, error)
}

// RequestStoreFunc adapts a function to the requestStore interface.
type RequestStoreFunc func(ctx context.Context) (RequestTx, error)

// Begin implements requestStore.
func (f RequestStoreFunc) Begin(ctx context.Context) (RequestTx, error) {
	return f(ctx)
}

type approvalAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type approvalNotifier interface {
	Dispatch(jobList []models.NotificationJob)
}

type approvalMetrics interface {
	ObserveApproval(action, outcome string)
}

// ApprovalService orchestrates the two-stage approval workflow: permission,
// state-machine legality, resource assignment, conflict handling, transactional
// persistence and deferred notification dispatch.
type ApprovalService struct {
	store    requestStore
	audit    approvalAuditor
	notifier approvalNotifier
	metrics  approvalMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithApprovalClock overrides the timestamp source, for tests.
func WithApprovalClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithApprovalMetrics attaches an outcome counter.
func WithApprovalMetrics(metrics approvalMetrics) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.metrics = metrics
	}
}

// NewApprovalService constructs the service.
func NewApprovalService(store requestStore, audit approvalAuditor, notifier approvalNotifier, logger *zap.Logger, opts ...ApprovalServiceOption) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		store:    store,
		audit:    audit,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ProcessApproval runs one approval action through its gates, in strict order.
// Any gate failure rolls the transaction back; notifications go out only after
// a successful commit.
func (s *ApprovalService) ProcessApproval(ctx context.Context, requestID int64, actor models.Actor, payload dto.ProcessApprovalRequest) (result *dto.ApprovalResult, err error) {
	action := models.ApprovalAction(payload.Action)
	requestedStage := models.ApprovalStage(payload.Stage)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.storeFailure(err, "failed to open approval transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("approval rollback failed", zap.Int64("request_id", requestID), zap.Error(rbErr))
			}
		}
		if s.metrics != nil {
			outcome := "ok"
			if err != nil {
				outcome = appErrors.FromError(err).Code
			}
			s.metrics.ObserveApproval(string(action), outcome)
		}
	}()

	// 1. Acquire: exclusive row lock for the length of the transaction.
	request, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, s.storeFailure(err, "failed to lock request")
	}
	oldStatus := request.Status

	// 2. Authorize.
	decision, err := resolvePermission(actor, request, requestedStage)
	if err != nil {
		return nil, err
	}

	// 3. A rejection or revision without a reason is meaningless to the requester.
	comments := strings.TrimSpace(payload.Comments)
	if (action == models.ActionReject || action == models.ActionRevision) && comments == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required to reject or return a request")
	}

	assigningResources := action == models.ActionApprove && decision.Stage == models.StageMotorpool

	// 4. Resource assignment validation.
	var assignedDriver *models.Driver
	if assigningResources {
		if payload.VehicleID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a vehicle must be selected for motorpool approval")
		}
		if payload.DriverID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a driver must be selected for motorpool approval")
		}
		if _, err = tx.GetVehicle(ctx, *payload.VehicleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("vehicle %d does not exist", *payload.VehicleID))
			}
			return nil, s.storeFailure(err, "failed to load vehicle")
		}
		assignedDriver, err = tx.GetDriver(ctx, *payload.DriverID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("driver %d does not exist", *payload.DriverID))
			}
			return nil, s.storeFailure(err, "failed to load driver")
		}
		if !assignedDriver.UserActive {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("driver %d has an inactive user account", *payload.DriverID))
		}
	}

	// The requester may have asked for a specific driver; if someone else is
	// selected that driver gets a courtesy heads-up, addressed by user account.
	var requestedDriverUser *int64
	if assigningResources && request.RequestedDriverID != nil && *request.RequestedDriverID != *payload.DriverID {
		if requested, lookupErr := tx.GetDriver(ctx, *request.RequestedDriverID); lookupErr == nil {
			userID := requested.UserID
			requestedDriverUser = &userID
		}
	}

	// 5. Conflict gate. Blocking unless the caller explicitly overrides, in
	// which case every displaced trip is enumerated for later notification.
	var displaced []DisplacedTrip
	if assigningResources {
		if !payload.OverrideConflicts {
			if err = s.blockOnConflict(ctx, tx, models.ResourceVehicle, *payload.VehicleID, request); err != nil {
				return nil, err
			}
			if err = s.blockOnConflict(ctx, tx, models.ResourceDriver, *payload.DriverID, request); err != nil {
				return nil, err
			}
		} else {
			displaced, err = s.enumerateDisplaced(ctx, tx, request, *payload.VehicleID, *payload.DriverID)
			if err != nil {
				return nil, err
			}
		}
	}

	// 6. Compute and validate the transition.
	intended, err := IntendedStatus(action, decision.Stage)
	if err != nil {
		return nil, err
	}
	if err = ValidateTransition(request.Status, intended); err != nil {
		return nil, err
	}

	// 7. Mutate.
	now := s.now().UTC()
	params := repository.UpdateRequestApprovalParams{
		ID:        request.ID,
		Status:    intended,
		UpdatedAt: now,
	}
	if assigningResources {
		params.VehicleID = payload.VehicleID
		params.DriverID = payload.DriverID
	}
	if err = tx.UpdateRequestApproval(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The locked row vanished under us; the lock should make this unreachable.
			return nil, s.consistencyFailure(request.ID, oldStatus, intended, "request row disappeared during approval")
		}
		return nil, s.storeFailure(err, "failed to update request")
	}
	if assigningResources {
		if err = tx.SetVehicleStatus(ctx, *payload.VehicleID, models.VehicleInUse); err != nil {
			return nil, s.storeFailure(err, "failed to mark vehicle in use")
		}
		if err = tx.SetDriverStatus(ctx, *payload.DriverID, models.DriverOnTrip); err != nil {
			return nil, s.storeFailure(err, "failed to mark driver on trip")
		}
		if err = tx.InsertAssignmentHistory(ctx, &models.AssignmentHistory{
			RequestID: request.ID,
			VehicleID: payload.VehicleID,
			DriverID:  payload.DriverID,
			Action:    models.AssignmentActionAssigned,
			ActorID:   actor.ID,
			CreatedAt: now,
		}); err != nil {
			return nil, s.storeFailure(err, "failed to record assignment")
		}
	}
	if err = tx.InsertApproval(ctx, &models.Approval{
		RequestID: request.ID,
		UserID:    actor.ID,
		Stage:     decision.Stage,
		Outcome:   outcomeForAction(action),
		Comments:  comments,
		CreatedAt: now,
	}); err != nil {
		return nil, s.storeFailure(err, "failed to record approval")
	}
	if err = tx.UpsertWorkflow(ctx, &models.ApprovalWorkflow{
		RequestID:    request.ID,
		CurrentStage: decision.Stage,
		LastActorID:  actor.ID,
		Comments:     comments,
		UpdatedAt:    now,
	}); err != nil {
		return nil, s.storeFailure(err, "failed to update workflow")
	}

	// 8. Verify the write landed. A mismatch means the row lock failed to
	// exclude a concurrent writer, which must never happen silently.
	written, err := tx.RequestStatus(ctx, request.ID)
	if err != nil {
		return nil, s.storeFailure(err, "failed to verify request status")
	}
	if written != intended {
		return nil, s.consistencyFailure(request.ID, intended, written, "post-write status mismatch")
	}

	// 9. Audit inside the gate sequence: a failure here still rolls everything back.
	if err = s.recordAudit(ctx, request, actor, decision, oldStatus, intended); err != nil {
		return nil, err
	}

	// 10. Commit. Nothing below may fail the approval.
	if err = tx.Commit(); err != nil {
		return nil, s.storeFailure(err, "failed to commit approval")
	}
	committed = true

	// 11. Notify, post-commit and best-effort.
	notifyParams := ApprovalNotificationParams{
		Request:   request,
		Action:    action,
		Stage:     decision.Stage,
		NewStatus: intended,
		ActorID:   actor.ID,
		Comments:  comments,
		Displaced: displaced,
	}
	if assignedDriver != nil {
		userID := assignedDriver.UserID
		notifyParams.AssignedDriver = &userID
	}
	notifyParams.RequestedDriver = requestedDriverUser
	s.notifier.Dispatch(BuildApprovalJobs(notifyParams))

	return &dto.ApprovalResult{
		RequestID:  request.ID,
		OldStatus:  oldStatus,
		NewStatus:  intended,
		Stage:      decision.Stage,
		IsOverride: decision.IsOverride,
		Message:    fmt.Sprintf("request %s", statusPhrase(intended)),
	}, nil
}

// blockOnConflict fails with a Conflict error naming the first overlapping trip.
func (s *ApprovalService) blockOnConflict(ctx context.Context, tx RequestTx, kind models.ResourceKind, resourceID int64, request *models.Request) error {
	candidates, err := tx.FindConflicts(ctx, kind, resourceID, request.DepartAt, request.ReturnAt, request.ID)
	if err != nil {
		return s.storeFailure(err, "failed to check conflicts")
	}
	if len(candidates) == 0 {
		return nil
	}
	blocking := candidates[0]
	return appErrors.Clone(appErrors.ErrConflict,
		fmt.Sprintf("%s %d is already booked by trip #%d to %s (%s - %s)",
			kind, resourceID, blocking.RequestID, blocking.Destination,
			blocking.DepartAt.Format(time.RFC3339), blocking.ReturnAt.Format(time.RFC3339)))
}

// enumerateDisplaced gathers every conflicting trip for both resources,
// de-duplicated by request id, with passengers resolved for notification.
func (s *ApprovalService) enumerateDisplaced(ctx context.Context, tx RequestTx, request *models.Request, vehicleID, driverID int64) ([]DisplacedTrip, error) {
	vehicleConflicts, err := tx.FindConflicts(ctx, models.ResourceVehicle, vehicleID, request.DepartAt, request.ReturnAt, request.ID)
	if err != nil {
		return nil, s.storeFailure(err, "failed to enumerate vehicle conflicts")
	}
	driverConflicts, err := tx.FindConflicts(ctx, models.ResourceDriver, driverID, request.DepartAt, request.ReturnAt, request.ID)
	if err != nil {
		return nil, s.storeFailure(err, "failed to enumerate driver conflicts")
	}

	merged := dedupeCandidates(vehicleConflicts, driverConflicts)
	displaced := make([]DisplacedTrip, 0, len(merged))
	for _, candidate := range merged {
		passengers, err := tx.Passengers(ctx, candidate.RequestID)
		if err != nil {
			return nil, s.storeFailure(err, "failed to load conflicting trip passengers")
		}
		displaced = append(displaced, DisplacedTrip{
			RequestID:   candidate.RequestID,
			Destination: candidate.Destination,
			RequesterID: candidate.RequesterID,
			Passengers:  passengers,
		})
	}
	return displaced, nil
}

func (s *ApprovalService) recordAudit(ctx context.Context, request *models.Request, actor models.Actor, decision permissionDecision, oldStatus, newStatus models.RequestStatus) error {
	if s.audit == nil {
		return nil
	}
	before, _ := json.Marshal(map[string]interface{}{"status": oldStatus})
	afterFields := map[string]interface{}{
		"status": newStatus,
		"stage":  decision.Stage,
	}
	if decision.IsOverride {
		afterFields["override"] = true
		afterFields["actor_id"] = actor.ID
		if decision.OverriddenAssignee != nil {
			afterFields["overridden_assignee_id"] = *decision.OverriddenAssignee
		}
	}
	after, _ := json.Marshal(afterFields)

	requestID := request.ID
	actorID := actor.ID
	err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionApprovalDecision,
		Resource:   "request",
		ResourceID: &requestID,
		OldValues:  before,
		NewValues:  after,
		IPAddress:  "system",
		UserAgent:  "approval-service",
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit event")
	}
	return nil
}

// storeFailure passes transient lock errors through untouched so callers can
// retry, and wraps everything else as internal.
func (s *ApprovalService) storeFailure(err error, message string) error {
	if appErrors.HasCode(err, appErrors.ErrTransientStore) {
		return err
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func (s *ApprovalService) consistencyFailure(requestID int64, expected, actual models.RequestStatus, message string) error {
	// Should be unreachable with correct locking; loud logging is deliberate.
	s.logger.Error("approval consistency violation",
		zap.Int64("request_id", requestID),
		zap.String("expected_status", string(expected)),
		zap.String("actual_status", string(actual)),
		zap.String("detail", message))
	return appErrors.Clone(appErrors.ErrConsistency, message)
}

// Cancel withdraws a request. Requester-owned, admin-overridable; an approved
// request returning to the pool releases its vehicle and driver.
func (s *ApprovalService) Cancel(ctx context.Context, requestID int64, actor models.Actor, reason string) (result *dto.ApprovalResult, err error) {
	if strings.TrimSpace(reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required to cancel a request")
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, s.storeFailure(err, "failed to open cancel transaction")
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("cancel rollback failed", zap.Int64("request_id", requestID), zap.Error(rbErr))
			}
		}
	}()

	request, err := tx.GetRequestForUpdate(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, s.storeFailure(err, "failed to lock request")
	}
	oldStatus := request.Status

	if request.RequesterID != actor.ID && actor.Role != models.RoleAdmin {
		return nil, appErrors.ErrForbidden
	}
	if err = ValidateTransition(request.Status, models.StatusCancelled); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err = tx.UpdateRequestApproval(ctx, repository.UpdateRequestApprovalParams{
		ID:        request.ID,
		Status:    models.StatusCancelled,
		UpdatedAt: now,
	}); err != nil {
		return nil, s.storeFailure(err, "failed to cancel request")
	}

	// An approved trip holds resources; give them back.
	if oldStatus == models.StatusApproved && request.VehicleID != nil && request.DriverID != nil {
		if err = tx.SetVehicleStatus(ctx, *request.VehicleID, models.VehicleAvailable); err != nil {
			return nil, s.storeFailure(err, "failed to release vehicle")
		}
		if err = tx.SetDriverStatus(ctx, *request.DriverID, models.DriverAvailable); err != nil {
			return nil, s.storeFailure(err, "failed to release driver")
		}
		if err = tx.InsertAssignmentHistory(ctx, &models.AssignmentHistory{
			RequestID: request.ID,
			VehicleID: request.VehicleID,
			DriverID:  request.DriverID,
			Action:    models.AssignmentActionReleased,
			ActorID:   actor.ID,
			CreatedAt: now,
		}); err != nil {
			return nil, s.storeFailure(err, "failed to record release")
		}
	}

	if s.audit != nil {
		before, _ := json.Marshal(map[string]interface{}{"status": oldStatus})
		after, _ := json.Marshal(map[string]interface{}{"status": models.StatusCancelled, "reason": strings.TrimSpace(reason)})
		actorID := actor.ID
		if auditErr := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionRequestCancel,
			Resource:   "request",
			ResourceID: &request.ID,
			OldValues:  before,
			NewValues:  after,
			IPAddress:  "system",
			UserAgent:  "approval-service",
		}); auditErr != nil {
			return nil, appErrors.Wrap(auditErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record audit event")
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, s.storeFailure(err, "failed to commit cancellation")
	}
	committed = true

	jobList := []models.NotificationJob{{
		UserID:  request.RequesterID,
		Type:    models.NotifyApprovalOutcome,
		Title:   fmt.Sprintf("Trip request #%d cancelled", request.ID),
		Message: fmt.Sprintf("Trip request to %s was cancelled: %s", request.Destination, strings.TrimSpace(reason)),
		Link:    fmt.Sprintf("/requests/%d", request.ID),
	}}
	if request.MotorpoolHeadID != nil && oldStatus == models.StatusApproved {
		jobList = append(jobList, models.NotificationJob{
			UserID:  *request.MotorpoolHeadID,
			Type:    models.NotifyTripUpdate,
			Title:   fmt.Sprintf("Approved trip #%d cancelled", request.ID),
			Message: fmt.Sprintf("Trip to %s was cancelled; its vehicle and driver are available again.", request.Destination),
			Link:    fmt.Sprintf("/requests/%d", request.ID),
		})
	}
	s.notifier.Dispatch(jobList)

	return &dto.ApprovalResult{
		RequestID: request.ID,
		OldStatus: oldStatus,
		NewStatus: models.StatusCancelled,
		Message:   "request cancelled",
	}, nil
}
