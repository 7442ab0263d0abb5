package models

import "time"

// VehicleStatus tracks the operational state of a fleet vehicle.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleInUse       VehicleStatus = "IN_USE"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
	VehicleRetired     VehicleStatus = "RETIRED"
)

// Vehicle is a fleet vehicle referenced (not owned) by requests.
type Vehicle struct {
	ID          int64         `db:"id" json:"id"`
	PlateNumber string        `db:"plate_number" json:"plate_number"`
	Model       string        `db:"model" json:"model"`
	Capacity    int           `db:"capacity" json:"capacity"`
	Status      VehicleStatus `db:"status" json:"status"`
	DeletedAt   *time.Time    `db:"deleted_at" json:"-"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// DriverStatus tracks driver availability.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverOnTrip    DriverStatus = "ON_TRIP"
	DriverOnLeave   DriverStatus = "ON_LEAVE"
)

// Driver is an assignable driver with a linked user account.
type Driver struct {
	ID            int64        `db:"id" json:"id"`
	UserID        int64        `db:"user_id" json:"user_id"`
	LicenseNumber string       `db:"license_number" json:"license_number"`
	Status        DriverStatus `db:"status" json:"status"`
	UserActive    bool         `db:"user_active" json:"-"`
	DeletedAt     *time.Time   `db:"deleted_at" json:"-"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// AssignmentAction labels assignment history entries.
const (
	AssignmentActionAssigned = "ASSIGNED"
	AssignmentActionReleased = "RELEASED"
)

// AssignmentHistory records when a vehicle/driver pair was bound to or
// released from a request.
type AssignmentHistory struct {
	ID        int64     `db:"id" json:"id"`
	RequestID int64     `db:"request_id" json:"request_id"`
	VehicleID *int64    `db:"vehicle_id" json:"vehicle_id,omitempty"`
	DriverID  *int64    `db:"driver_id" json:"driver_id,omitempty"`
	Action    string    `db:"action" json:"action"`
	ActorID   int64     `db:"actor_id" json:"actor_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TripLog is a guard-recorded dispatch/arrival entry for an approved trip.
type TripLog struct {
	ID          int64      `db:"id" json:"id"`
	RequestID   int64      `db:"request_id" json:"request_id"`
	GuardID     int64      `db:"guard_id" json:"guard_id"`
	DepartedAt  *time.Time `db:"departed_at" json:"departed_at,omitempty"`
	ReturnedAt  *time.Time `db:"returned_at" json:"returned_at,omitempty"`
	OdometerOut *int64     `db:"odometer_out" json:"odometer_out,omitempty"`
	OdometerIn  *int64     `db:"odometer_in" json:"odometer_in,omitempty"`
	Remarks     string     `db:"remarks" json:"remarks"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
