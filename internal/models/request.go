package models

import "time"

// RequestStatus captures the lifecycle states of a trip request.
type RequestStatus string

const (
	StatusDraft            RequestStatus = "DRAFT"
	StatusPending          RequestStatus = "PENDING"
	StatusPendingMotorpool RequestStatus = "PENDING_MOTORPOOL"
	StatusApproved         RequestStatus = "APPROVED"
	StatusRejected         RequestStatus = "REJECTED"
	StatusRevision         RequestStatus = "REVISION"
	StatusCancelled        RequestStatus = "CANCELLED"
	StatusCompleted        RequestStatus = "COMPLETED"
	StatusModified         RequestStatus = "MODIFIED"
)

// AllStatuses lists every request status, used for exhaustive checks.
var AllStatuses = []RequestStatus{
	StatusDraft,
	StatusPending,
	StatusPendingMotorpool,
	StatusApproved,
	StatusRejected,
	StatusRevision,
	StatusCancelled,
	StatusCompleted,
	StatusModified,
}

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Request is a trip request, the root entity of the approval workflow.
type Request struct {
	ID                int64         `db:"id" json:"id"`
	RequesterID       int64         `db:"requester_id" json:"requester_id"`
	DepartmentID      int64         `db:"department_id" json:"department_id"`
	ApproverID        *int64        `db:"approver_id" json:"approver_id,omitempty"`
	MotorpoolHeadID   *int64        `db:"motorpool_head_id" json:"motorpool_head_id,omitempty"`
	RequestedDriverID *int64        `db:"requested_driver_id" json:"requested_driver_id,omitempty"`
	VehicleID         *int64        `db:"vehicle_id" json:"vehicle_id,omitempty"`
	DriverID          *int64        `db:"driver_id" json:"driver_id,omitempty"`
	Destination       string        `db:"destination" json:"destination"`
	Purpose           string        `db:"purpose" json:"purpose"`
	DepartAt          time.Time     `db:"depart_at" json:"depart_at"`
	ReturnAt          time.Time     `db:"return_at" json:"return_at"`
	Status            RequestStatus `db:"status" json:"status"`
	DeletedAt         *time.Time    `db:"deleted_at" json:"-"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	Status       []RequestStatus
	RequesterID  int64
	DepartmentID int64
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// ResourceKind distinguishes the bookable resource types.
type ResourceKind string

const (
	ResourceVehicle ResourceKind = "vehicle"
	ResourceDriver  ResourceKind = "driver"
)

// ConflictCandidate is another active request overlapping a resource booking.
// Transient: produced by the conflict query, never persisted.
type ConflictCandidate struct {
	RequestID   int64         `db:"id" json:"request_id"`
	RequesterID int64         `db:"requester_id" json:"requester_id"`
	Destination string        `db:"destination" json:"destination"`
	DepartAt    time.Time     `db:"depart_at" json:"depart_at"`
	ReturnAt    time.Time     `db:"return_at" json:"return_at"`
	Status      RequestStatus `db:"status" json:"status"`
}

// ConflictSeverity grades a single overlap by its duration.
type ConflictSeverity string

const (
	SeverityMinor    ConflictSeverity = "MINOR"
	SeverityModerate ConflictSeverity = "MODERATE"
	SeveritySevere   ConflictSeverity = "SEVERE"
)
