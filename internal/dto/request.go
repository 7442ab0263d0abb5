package dto

import "time"

// RequestQuery filters the trip-request listing.
type RequestQuery struct {
	Status       string `form:"status"`
	DepartmentID int64  `form:"department_id"`
	RequesterID  int64  `form:"requester_id"`
	From         string `form:"from"`
	To           string `form:"to"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

// CancelRequest carries the reason for cancelling a trip request.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// DispatchRequest records a guard's gate-out entry.
type DispatchRequest struct {
	OdometerOut *int64 `json:"odometer_out"`
	Remarks     string `json:"remarks"`
}

// ArrivalRequest records a guard's gate-in entry and completes the trip.
type ArrivalRequest struct {
	OdometerIn *int64 `json:"odometer_in"`
	Remarks    string `json:"remarks"`
}

// UsageReportQuery bounds the usage summary window.
type UsageReportQuery struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// VehicleUsageRow aggregates trips for one vehicle.
type VehicleUsageRow struct {
	VehicleID   int64   `db:"vehicle_id" json:"vehicle_id"`
	PlateNumber string  `db:"plate_number" json:"plate_number"`
	TripCount   int     `db:"trip_count" json:"trip_count"`
	TotalHours  float64 `db:"total_hours" json:"total_hours"`
}

// DepartmentUsageRow aggregates trips for one department.
type DepartmentUsageRow struct {
	DepartmentID int64   `db:"department_id" json:"department_id"`
	TripCount    int     `db:"trip_count" json:"trip_count"`
	TotalHours   float64 `db:"total_hours" json:"total_hours"`
}

// UsageReport is the cached summary payload.
type UsageReport struct {
	From        time.Time            `json:"from"`
	To          time.Time            `json:"to"`
	Vehicles    []VehicleUsageRow    `json:"vehicles"`
	Departments []DepartmentUsageRow `json:"departments"`
	GeneratedAt time.Time            `json:"generated_at"`
}
