package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

const requestColumns = `id, requester_id, department_id, approver_id, motorpool_head_id, requested_driver_id,
       vehicle_id, driver_id, destination, purpose, depart_at, return_at, status, deleted_at, created_at, updated_at`

// RequestRepository persists trip requests and provides the transaction-scoped
// view the approval processor mutates through.
type RequestRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB, lockTimeout time.Duration) *RequestRepository {
	return &RequestRepository{db: db, lockTimeout: lockTimeout}
}

// GetByID fetches a request outside any transaction. Soft-deleted rows are invisible.
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1 AND deleted_at IS NULL`, requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &request, nil
}

// List returns requests matching the filter with a total count.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	args := make([]interface{}, 0, 6)

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequesterID > 0 {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.DepartmentID > 0 {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("return_at > $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("depart_at < $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM requests WHERE %s", where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM requests WHERE %s ORDER BY depart_at DESC LIMIT %d OFFSET %d",
		requestColumns, where, pageSize, (page-1)*pageSize)

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	return requests, total, nil
}

// FindConflicts runs the overlap query outside a transaction, for the
// standalone availability probe.
func (r *RequestRepository) FindConflicts(ctx context.Context, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error) {
	return findConflicts(ctx, r.db, kind, resourceID, start, end, excludeRequestID)
}

// Passengers returns the passenger user ids of a request.
func (r *RequestRepository) Passengers(ctx context.Context, requestID int64) ([]int64, error) {
	return listPassengers(ctx, r.db, requestID)
}

// Begin opens the request transaction the approval processor works in. The
// FOR UPDATE lock taken inside is held until Commit or Rollback.
func (r *RequestRepository) Begin(ctx context.Context) (*RequestTx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, translateStoreErr(fmt.Errorf("begin request transaction: %w", err))
	}
	if r.lockTimeout > 0 {
		timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, timeout); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("set lock timeout: %w", err)
		}
	}
	return &RequestTx{tx: tx}, nil
}

// RequestTx is a transaction-scoped store view. All reads taken through it see
// state consistent with the eventual write.
type RequestTx struct {
	tx *sqlx.Tx
}

// Commit commits the transaction.
func (t *RequestTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return translateStoreErr(fmt.Errorf("commit request transaction: %w", err))
	}
	return nil
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *RequestTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// GetRequestForUpdate loads the request row under an exclusive row lock,
// excluding concurrent approval transactions on the same request until the
// enclosing transaction ends.
func (t *RequestTx) GetRequestForUpdate(ctx context.Context, id int64) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, requestColumns)
	var request models.Request
	if err := t.tx.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, translateStoreErr(fmt.Errorf("lock request: %w", err))
	}
	return &request, nil
}

// RequestStatus re-reads the just-written status inside the transaction.
func (t *RequestTx) RequestStatus(ctx context.Context, id int64) (models.RequestStatus, error) {
	var status models.RequestStatus
	if err := t.tx.GetContext(ctx, &status, `SELECT status FROM requests WHERE id = $1`, id); err != nil {
		return "", fmt.Errorf("reload request status: %w", err)
	}
	return status, nil
}

// GetVehicle loads a vehicle, excluding soft-deleted rows.
func (t *RequestTx) GetVehicle(ctx context.Context, id int64) (*models.Vehicle, error) {
	const query = `SELECT id, plate_number, model, capacity, status, deleted_at, created_at, updated_at
	FROM vehicles WHERE id = $1 AND deleted_at IS NULL`
	var vehicle models.Vehicle
	if err := t.tx.GetContext(ctx, &vehicle, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &vehicle, nil
}

// GetDriver loads a driver joined with its user account's active flag.
func (t *RequestTx) GetDriver(ctx context.Context, id int64) (*models.Driver, error) {
	const query = `SELECT d.id, d.user_id, d.license_number, d.status, d.deleted_at, d.created_at, d.updated_at,
       u.active AS user_active
	FROM drivers d
	JOIN users u ON u.id = d.user_id
	WHERE d.id = $1 AND d.deleted_at IS NULL`
	var driver models.Driver
	if err := t.tx.GetContext(ctx, &driver, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get driver: %w", err)
	}
	return &driver, nil
}

// FindConflicts runs the overlap query inside the transaction so the conflict
// decision is taken from the same snapshot as the eventual write.
func (t *RequestTx) FindConflicts(ctx context.Context, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error) {
	return findConflicts(ctx, t.tx, kind, resourceID, start, end, excludeRequestID)
}

// Passengers returns passenger user ids within the transaction.
func (t *RequestTx) Passengers(ctx context.Context, requestID int64) ([]int64, error) {
	return listPassengers(ctx, t.tx, requestID)
}

// UpdateRequestApprovalParams groups the request columns an approval action may touch.
type UpdateRequestApprovalParams struct {
	ID        int64
	Status    models.RequestStatus
	VehicleID *int64
	DriverID  *int64
	UpdatedAt time.Time
}

// UpdateRequestApproval persists the status move and, when present, the
// vehicle/driver binding.
func (t *RequestTx) UpdateRequestApproval(ctx context.Context, params UpdateRequestApprovalParams) error {
	setParts := []string{"status = :status", "updated_at = :updated_at"}
	if params.VehicleID != nil {
		setParts = append(setParts, "vehicle_id = :vehicle_id")
	}
	if params.DriverID != nil {
		setParts = append(setParts, "driver_id = :driver_id")
	}
	query := fmt.Sprintf("UPDATE requests SET %s WHERE id = :id AND deleted_at IS NULL", strings.Join(setParts, ", "))
	result, err := t.tx.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         params.ID,
		"status":     params.Status,
		"vehicle_id": params.VehicleID,
		"driver_id":  params.DriverID,
		"updated_at": params.UpdatedAt,
	})
	if err != nil {
		return translateStoreErr(fmt.Errorf("update request: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertApproval appends one immutable approval record.
func (t *RequestTx) InsertApproval(ctx context.Context, approval *models.Approval) error {
	const query = `INSERT INTO approvals (request_id, user_id, stage, outcome, comments, created_at)
	VALUES (:request_id, :user_id, :stage, :outcome, :comments, :created_at)`
	if approval.CreatedAt.IsZero() {
		approval.CreatedAt = time.Now().UTC()
	}
	if _, err := t.tx.NamedExecContext(ctx, query, approval); err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}

// UpsertWorkflow creates or refreshes the per-request workflow projection.
func (t *RequestTx) UpsertWorkflow(ctx context.Context, workflow *models.ApprovalWorkflow) error {
	const query = `INSERT INTO approval_workflows (request_id, current_stage, last_actor_id, comments, created_at, updated_at)
	VALUES (:request_id, :current_stage, :last_actor_id, :comments, :updated_at, :updated_at)
	ON CONFLICT (request_id) DO UPDATE SET
	  current_stage = EXCLUDED.current_stage,
	  last_actor_id = EXCLUDED.last_actor_id,
	  comments = EXCLUDED.comments,
	  updated_at = EXCLUDED.updated_at`
	if workflow.UpdatedAt.IsZero() {
		workflow.UpdatedAt = time.Now().UTC()
	}
	if _, err := t.tx.NamedExecContext(ctx, query, workflow); err != nil {
		return fmt.Errorf("upsert approval workflow: %w", err)
	}
	return nil
}

// InsertAssignmentHistory records a vehicle/driver binding or release.
func (t *RequestTx) InsertAssignmentHistory(ctx context.Context, entry *models.AssignmentHistory) error {
	const query = `INSERT INTO assignment_history (request_id, vehicle_id, driver_id, action, actor_id, created_at)
	VALUES (:request_id, :vehicle_id, :driver_id, :action, :actor_id, :created_at)`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if _, err := t.tx.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert assignment history: %w", err)
	}
	return nil
}

// SetVehicleStatus updates a vehicle's operational state.
func (t *RequestTx) SetVehicleStatus(ctx context.Context, id int64, status models.VehicleStatus) error {
	const query = `UPDATE vehicles SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := t.tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set vehicle status: %w", err)
	}
	return nil
}

// SetDriverStatus updates a driver's availability.
func (t *RequestTx) SetDriverStatus(ctx context.Context, id int64, status models.DriverStatus) error {
	const query = `UPDATE drivers SET status = $2, updated_at = $3 WHERE id = $1 AND deleted_at IS NULL`
	if _, err := t.tx.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("set driver status: %w", err)
	}
	return nil
}

// InsertTripLog opens a guard dispatch entry.
func (t *RequestTx) InsertTripLog(ctx context.Context, log *models.TripLog) error {
	const query = `INSERT INTO trip_logs (request_id, guard_id, departed_at, odometer_out, remarks, created_at, updated_at)
	VALUES (:request_id, :guard_id, :departed_at, :odometer_out, :remarks, :created_at, :updated_at)`
	now := time.Now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	log.UpdatedAt = now
	if _, err := t.tx.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("insert trip log: %w", err)
	}
	return nil
}

// OpenTripLog returns the not-yet-returned trip log for a request, if any.
func (t *RequestTx) OpenTripLog(ctx context.Context, requestID int64) (*models.TripLog, error) {
	const query = `SELECT id, request_id, guard_id, departed_at, returned_at, odometer_out, odometer_in, remarks, created_at, updated_at
	FROM trip_logs WHERE request_id = $1 AND returned_at IS NULL ORDER BY created_at DESC LIMIT 1`
	var log models.TripLog
	if err := t.tx.GetContext(ctx, &log, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get open trip log: %w", err)
	}
	return &log, nil
}

// CloseTripLog stamps the arrival side of a trip log.
func (t *RequestTx) CloseTripLog(ctx context.Context, id int64, returnedAt time.Time, odometerIn *int64, remarks string) error {
	const query = `UPDATE trip_logs SET returned_at = $2, odometer_in = $3, remarks = $4, updated_at = $5 WHERE id = $1`
	if _, err := t.tx.ExecContext(ctx, query, id, returnedAt, odometerIn, remarks, time.Now().UTC()); err != nil {
		return fmt.Errorf("close trip log: %w", err)
	}
	return nil
}

// Active statuses hold or are about to hold a resource.
const conflictQuery = `SELECT id, requester_id, destination, depart_at, return_at, status
	FROM requests
	WHERE %s = $1
	  AND id <> $2
	  AND deleted_at IS NULL
	  AND status IN ('APPROVED', 'PENDING_MOTORPOOL')
	  AND depart_at < $3
	  AND return_at > $4
	ORDER BY depart_at`

func findConflicts(ctx context.Context, q sqlx.QueryerContext, kind models.ResourceKind, resourceID int64, start, end time.Time, excludeRequestID int64) ([]models.ConflictCandidate, error) {
	var column string
	switch kind {
	case models.ResourceVehicle:
		column = "vehicle_id"
	case models.ResourceDriver:
		column = "driver_id"
	default:
		return nil, fmt.Errorf("unknown resource kind: %s", kind)
	}
	query := fmt.Sprintf(conflictQuery, column)
	var candidates []models.ConflictCandidate
	if err := sqlx.SelectContext(ctx, q, &candidates, query, resourceID, excludeRequestID, end, start); err != nil {
		return nil, fmt.Errorf("find %s conflicts: %w", kind, err)
	}
	return candidates, nil
}

func listPassengers(ctx context.Context, q sqlx.QueryerContext, requestID int64) ([]int64, error) {
	var ids []int64
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT user_id FROM request_passengers WHERE request_id = $1 ORDER BY user_id`, requestID); err != nil {
		return nil, fmt.Errorf("list passengers: %w", err)
	}
	return ids, nil
}

// translateStoreErr maps lock-contention failures to the retryable taxonomy.
func translateStoreErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03", "40P01", "40001": // lock_not_available, deadlock_detected, serialization_failure
			return appErrors.Wrap(err, appErrors.ErrTransientStore.Code, appErrors.ErrTransientStore.Status, appErrors.ErrTransientStore.Message)
		}
	}
	return err
}
