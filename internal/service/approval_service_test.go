package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/models"
	"github.com/fleetworks/motorpool-api/internal/repository"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

// requestTxStub implements RequestTx in memory. The mutex is locked on
// GetRequestForUpdate and released on Commit or Rollback, mirroring the row
// lock semantics of the real transaction.
type requestTxStub struct {
	mu      *sync.Mutex
	request *models.Request

	vehicles  map[int64]*models.Vehicle
	drivers   map[int64]*models.Driver
	conflicts map[models.ResourceKind][]models.ConflictCandidate
	passlists map[int64][]int64
	openLog   *models.TripLog

	getErr    error
	updateErr error
	commitErr error

	verifyStatus *models.RequestStatus

	updates       []repository.UpdateRequestApprovalParams
	approvals     []models.Approval
	workflows     []models.ApprovalWorkflow
	assignments   []models.AssignmentHistory
	tripLogs      []models.TripLog
	closedLogs    []int64
	vehicleStates map[int64]models.VehicleStatus
	driverStates  map[int64]models.DriverStatus

	committed  bool
	rolledBack bool
}

func newRequestTxStub(request *models.Request) *requestTxStub {
	return &requestTxStub{
		request:       request,
		vehicles:      map[int64]*models.Vehicle{},
		drivers:       map[int64]*models.Driver{},
		conflicts:     map[models.ResourceKind][]models.ConflictCandidate{},
		passlists:     map[int64][]int64{},
		vehicleStates: map[int64]models.VehicleStatus{},
		driverStates:  map[int64]models.DriverStatus{},
	}
}

func (t *requestTxStub) GetRequestForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	if t.mu != nil {
		t.mu.Lock()
	}
	if t.getErr != nil {
		return nil, t.getErr
	}
	if t.request == nil || t.request.ID != id {
		return nil, sql.ErrNoRows
	}
	snapshot := *t.request
	return &snapshot, nil
}

func (t *requestTxStub) RequestStatus(ctx context.Context, id int64) (models.RequestStatus, error) {
	if t.verifyStatus != nil {
		return *t.verifyStatus, nil
	}
	return t.request.Status, nil
}

func (t *requestTxStub) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	if vehicle, ok := t.vehicles[id]; ok {
		return vehicle, nil
	}
	return nil, sql.ErrNoRows
}

func (t *requestTxStub) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	if driver, ok := t.drivers[id]; ok {
		return driver, nil
	}
	return nil, sql.ErrNoRows
}

func (t *requestTxStub) FindConflicts(ctx context.Context, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error) {
	return t.conflicts[kind], nil
}

func (t *requestTxStub) Passengers(ctx context.Context, requestID int64) ([]int64, error) {
	return t.passlists[requestID], nil
}

func (t *requestTxStub) UpdateRequestApproval(ctx context.Context, params repository.UpdateRequestApprovalParams) error {
	if t.updateErr != nil {
		return t.updateErr
	}
	t.updates = append(t.updates, params)
	t.request.Status = params.Status
	if params.VehicleID != nil {
		t.request.VehicleID = params.VehicleID
	}
	if params.DriverID != nil {
		t.request.DriverID = params.DriverID
	}
	return nil
}

func (t *requestTxStub) InsertApproval(ctx context.Context, approval *models.Approval) error {
	t.approvals = append(t.approvals, *approval)
	return nil
}

func (t *requestTxStub) UpsertWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	t.workflows = append(t.workflows, *workflow)
	return nil
}

func (t *requestTxStub) InsertAssignmentHistory(ctx context.Context, entry *models.AssignmentHistory) error {
	t.assignments = append(t.assignments, *entry)
	return nil
}

func (t *requestTxStub) SetVehicleStatus(ctx context.Context, id int64, status models.VehicleStatus) error {
	t.vehicleStates[id] = status
	return nil
}

func (t *requestTxStub) SetDriverStatus(ctx context.Context, id int64, status models.DriverStatus) error {
	t.driverStates[id] = status
	return nil
}

func (t *requestTxStub) InsertTripLog(ctx context.Context, log *models.TripLog) error {
	t.tripLogs = append(t.tripLogs, *log)
	return nil
}

func (t *requestTxStub) OpenTripLog(ctx context.Context, requestID int64) (*models.TripLog, error) {
	if t.openLog == nil {
		return nil, sql.ErrNoRows
	}
	return t.openLog, nil
}

func (t *requestTxStub) CloseTripLog(ctx context.Context, id int64, returnedAt time.Time, odometerIn *int64, remarks string) error {
	t.closedLogs = append(t.closedLogs, id)
	return nil
}

func (t *requestTxStub) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	if t.mu != nil {
		t.mu.Unlock()
	}
	return nil
}

func (t *requestTxStub) Rollback() error {
	if t.committed {
		return sql.ErrTxDone
	}
	t.rolledBack = true
	if t.mu != nil {
		t.mu.Unlock()
	}
	return nil
}

type auditorStub struct {
	logs []models.AuditLog
	err  error
}

func (a *auditorStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, *log)
	return nil
}

type notifierStub struct {
	mu      sync.Mutex
	batches [][]models.NotificationJob
}

func (n *notifierStub) Dispatch(jobList []models.NotificationJob) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.batches = append(n.batches, jobList)
}

func (n *notifierStub) all() []models.NotificationJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []models.NotificationJob
	for _, batch := range n.batches {
		out = append(out, batch...)
	}
	return out
}

type approvalFixture struct {
	tx       *requestTxStub
	audit    *auditorStub
	notifier *notifierStub
	svc      *ApprovalService
}

func newApprovalFixture(request *models.Request) *approvalFixture {
	tx := newRequestTxStub(request)
	audit := &auditorStub{}
	notifier := &notifierStub{}
	store := RequestStoreFunc(func(ctx context.Context) (RequestTx, error) {
		return tx, nil
	})
	svc := NewApprovalService(store, audit, notifier, nil,
		WithApprovalClock(func() time.Time { return time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC) }))
	return &approvalFixture{tx: tx, audit: audit, notifier: notifier, svc: svc}
}

func TestProcessApprovalDepartmentApprove(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	result, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, result.OldStatus)
	assert.Equal(t, models.StatusPendingMotorpool, result.NewStatus)
	assert.Equal(t, models.StageDepartment, result.Stage)
	assert.False(t, result.IsOverride)

	assert.True(t, f.tx.committed)
	require.Len(t, f.tx.approvals, 1)
	assert.Equal(t, models.OutcomeApproved, f.tx.approvals[0].Outcome)
	require.Len(t, f.tx.workflows, 1)
	assert.Equal(t, int64(2), f.tx.workflows[0].LastActorID)
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionApprovalDecision, f.audit.logs[0].Action)

	jobList := f.notifier.all()
	require.NotEmpty(t, jobList)
	assert.Equal(t, int64(1), jobList[0].UserID)
}

func TestProcessApprovalMotorpoolApproveAssignsResources(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool
	f := newApprovalFixture(request)
	f.tx.vehicles[7] = &models.Vehicle{ID: 7, Status: models.VehicleAvailable}
	f.tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}

	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	result, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:    "approve",
		Stage:     "motorpool",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, result.NewStatus)
	assert.Equal(t, models.VehicleInUse, f.tx.vehicleStates[7])
	assert.Equal(t, models.DriverOnTrip, f.tx.driverStates[9])
	require.Len(t, f.tx.assignments, 1)
	assert.Equal(t, models.AssignmentActionAssigned, f.tx.assignments[0].Action)
	require.Len(t, f.tx.updates, 1)
	require.NotNil(t, f.tx.updates[0].VehicleID)
	assert.Equal(t, int64(7), *f.tx.updates[0].VehicleID)

	byUser := jobsByUser(f.notifier.all())
	require.Len(t, byUser[20], 1)
	assert.Equal(t, models.NotifyAssignment, byUser[20][0].Type)
}

func TestProcessApprovalMotorpoolRequiresResources(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool
	f := newApprovalFixture(request)

	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "motorpool",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.True(t, f.tx.rolledBack)
	assert.Empty(t, f.tx.updates)
	assert.Empty(t, f.notifier.all())
}

func TestProcessApprovalInactiveDriverRejected(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool
	f := newApprovalFixture(request)
	f.tx.vehicles[7] = &models.Vehicle{ID: 7}
	f.tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: false}

	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:    "approve",
		Stage:     "motorpool",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestProcessApprovalRejectRequiresComments(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:   "reject",
		Stage:    "department",
		Comments: "   ",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.True(t, f.tx.rolledBack)
}

func TestProcessApprovalForbiddenActor(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 99, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
	assert.Empty(t, f.tx.updates)
	assert.Empty(t, f.audit.logs)
	assert.Empty(t, f.notifier.all())
}

func TestProcessApprovalUnknownRequest(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 404, actor, dto.ProcessApprovalRequest{
		Action: "approve",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestProcessApprovalConflictBlocksWithoutOverride(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool
	f := newApprovalFixture(request)
	f.tx.vehicles[7] = &models.Vehicle{ID: 7}
	f.tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}
	f.tx.conflicts[models.ResourceVehicle] = []models.ConflictCandidate{
		{RequestID: 77, RequesterID: 30, Destination: "North Depot", Status: models.StatusApproved},
	}

	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:    "approve",
		Stage:     "motorpool",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict))
	assert.True(t, f.tx.rolledBack)
	assert.Empty(t, f.tx.updates)
	assert.Empty(t, f.notifier.all())
}

func TestProcessApprovalOverrideNotifiesDisplaced(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool
	f := newApprovalFixture(request)
	f.tx.vehicles[7] = &models.Vehicle{ID: 7}
	f.tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}
	f.tx.conflicts[models.ResourceVehicle] = []models.ConflictCandidate{
		{RequestID: 77, RequesterID: 30, Destination: "North Depot", Status: models.StatusApproved},
	}
	f.tx.conflicts[models.ResourceDriver] = []models.ConflictCandidate{
		{RequestID: 77, RequesterID: 30, Destination: "North Depot", Status: models.StatusApproved},
		{RequestID: 78, RequesterID: 31, Destination: "Airport", Status: models.StatusPendingMotorpool},
	}
	f.tx.passlists[77] = []int64{40, 41}
	f.tx.passlists[78] = []int64{40}

	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	result, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:            "approve",
		Stage:             "motorpool",
		VehicleID:         ptr(7),
		DriverID:          ptr(9),
		OverrideConflicts: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.NewStatus)

	byUser := jobsByUser(f.notifier.all())
	// Requesters 30, 31 and passengers 40, 41 each notified exactly once.
	for _, userID := range []int64{30, 31, 40, 41} {
		require.Lenf(t, byUser[userID], 1, "user %d", userID)
		assert.Equal(t, models.NotifyConflictOverride, byUser[userID][0].Type)
	}
}

func TestProcessApprovalRevisionResubmitByHeadLandsApproved(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusRevision
	f := newApprovalFixture(request)
	f.tx.vehicles[7] = &models.Vehicle{ID: 7, Status: models.VehicleAvailable}
	f.tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}

	// The assigned motorpool head acts on a request sent back for revision.
	// Stage resolves to motorpool even though the payload leaves it blank.
	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}
	result, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action:    "approve",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusRevision, result.OldStatus)
	assert.Equal(t, models.StatusApproved, result.NewStatus)
	assert.Equal(t, models.StageMotorpool, result.Stage)
	assert.False(t, result.IsOverride)
	assert.Equal(t, models.VehicleInUse, f.tx.vehicleStates[7])
}

func TestProcessApprovalNoNotificationsWithoutCommit(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	f.tx.commitErr = errors.New("connection reset")
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.Error(t, err)
	assert.False(t, f.tx.committed)
	assert.Empty(t, f.notifier.all())
}

func TestProcessApprovalAuditFailureAborts(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	f.audit.err = errors.New("audit store down")
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.Error(t, err)
	assert.False(t, f.tx.committed)
	assert.True(t, f.tx.rolledBack)
	assert.Empty(t, f.notifier.all())
}

func TestProcessApprovalVerifyMismatchIsConsistencyError(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	wrong := models.StatusDraft
	f.tx.verifyStatus = &wrong
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConsistency))
	assert.False(t, f.tx.committed)
}

func TestProcessApprovalVanishedRowIsConsistencyError(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	f.tx.updateErr = sql.ErrNoRows
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
		Stage:  "department",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConsistency))
}

func TestProcessApprovalTransientStoreErrorPassesThrough(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	f.tx.getErr = appErrors.Clone(appErrors.ErrTransientStore, "lock timeout")
	actor := models.Actor{ID: 2, Role: models.RoleApprover}

	_, err := f.svc.ProcessApproval(context.Background(), 10, actor, dto.ProcessApprovalRequest{
		Action: "approve",
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTransientStore))
}

func TestProcessApprovalConcurrentDoubleApproval(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool

	var mu sync.Mutex
	makeTx := func() *requestTxStub {
		tx := newRequestTxStub(request)
		tx.mu = &mu
		tx.vehicles[7] = &models.Vehicle{ID: 7}
		tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}
		return tx
	}

	store := RequestStoreFunc(func(ctx context.Context) (RequestTx, error) {
		return makeTx(), nil
	})
	notifier := &notifierStub{}
	svc := NewApprovalService(store, &auditorStub{}, notifier, nil)

	payload := dto.ProcessApprovalRequest{
		Action:    "approve",
		Stage:     "motorpool",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	}
	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ProcessApproval(context.Background(), 10, actor, payload)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var failures []error
	for err := range errs {
		if err != nil {
			failures = append(failures, err)
		}
	}
	// Exactly one of the two wins; the loser re-reads the already-approved
	// row under the lock and is refused as an illegal transition, not as a
	// permission failure.
	require.Len(t, failures, 1)
	assert.True(t, appErrors.HasCode(failures[0], appErrors.ErrIllegalTransition))
	assert.Equal(t, models.StatusApproved, request.Status)
}

func TestProcessApprovalReplayIsIllegalTransition(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusPendingMotorpool

	store := RequestStoreFunc(func(ctx context.Context) (RequestTx, error) {
		tx := newRequestTxStub(request)
		tx.vehicles[7] = &models.Vehicle{ID: 7}
		tx.drivers[9] = &models.Driver{ID: 9, UserID: 20, UserActive: true}
		return tx, nil
	})
	svc := NewApprovalService(store, &auditorStub{}, &notifierStub{}, nil)

	payload := dto.ProcessApprovalRequest{
		Action:    "approve",
		Stage:     "motorpool",
		VehicleID: ptr(7),
		DriverID:  ptr(9),
	}
	actor := models.Actor{ID: 3, Role: models.RoleMotorpool}

	result, err := svc.ProcessApproval(context.Background(), 10, actor, payload)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.NewStatus)

	// Submitting the identical decision again reports the request's state
	// with its allowed targets instead of masking the retry as forbidden.
	_, err = svc.ProcessApproval(context.Background(), 10, actor, payload)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIllegalTransition))
	assert.Contains(t, err.Error(), "APPROVED")
}

func TestCancelByRequesterReleasesResources(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusApproved
	request.VehicleID = ptr(7)
	request.DriverID = ptr(9)
	f := newApprovalFixture(request)

	actor := models.Actor{ID: 1, Role: models.RoleRequester}
	result, err := f.svc.Cancel(context.Background(), 10, actor, "plans changed")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, result.NewStatus)
	assert.Equal(t, models.VehicleAvailable, f.tx.vehicleStates[7])
	assert.Equal(t, models.DriverAvailable, f.tx.driverStates[9])
	require.Len(t, f.tx.assignments, 1)
	assert.Equal(t, models.AssignmentActionReleased, f.tx.assignments[0].Action)
	assert.True(t, f.tx.committed)
	assert.NotEmpty(t, f.notifier.all())
}

func TestCancelForeignUserForbidden(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 99, Role: models.RoleGuard}

	_, err := f.svc.Cancel(context.Background(), 10, actor, "not mine")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden))
}

func TestCancelTerminalStatusIsIllegalTransition(t *testing.T) {
	request := pendingRequest()
	request.Status = models.StatusCancelled
	f := newApprovalFixture(request)

	actor := models.Actor{ID: 1, Role: models.RoleRequester}
	_, err := f.svc.Cancel(context.Background(), 10, actor, "again")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIllegalTransition))
}

func TestCancelRequiresReason(t *testing.T) {
	f := newApprovalFixture(pendingRequest())
	actor := models.Actor{ID: 1, Role: models.RoleRequester}

	_, err := f.svc.Cancel(context.Background(), 10, actor, "  ")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}
