package dto

import (
	"time"

	"github.com/fleetworks/motorpool-api/internal/models"
)

// ProcessApprovalRequest is the payload for acting on a trip request.
// Action and stage are closed enums; unknown values are rejected at the
// boundary before they reach the state machine.
type ProcessApprovalRequest struct {
	Action            string `json:"action" binding:"required,oneof=approve reject revision"`
	Stage             string `json:"stage" binding:"omitempty,oneof=department motorpool"`
	Comments          string `json:"comments"`
	VehicleID         *int64 `json:"vehicle_id"`
	DriverID          *int64 `json:"driver_id"`
	OverrideConflicts bool   `json:"override_conflicts"`
}

// ApprovalResult summarises a processed approval action.
type ApprovalResult struct {
	RequestID  int64                `json:"request_id"`
	OldStatus  models.RequestStatus `json:"old_status"`
	NewStatus  models.RequestStatus `json:"new_status"`
	Stage      models.ApprovalStage `json:"stage"`
	IsOverride bool                 `json:"is_override"`
	Message    string               `json:"message"`
}

// ConflictCheckQuery probes a resource's availability over a window.
type ConflictCheckQuery struct {
	Resource         string    `form:"resource" binding:"required,oneof=vehicle driver"`
	ResourceID       int64     `form:"resource_id" binding:"required"`
	Start            time.Time `form:"start" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	End              time.Time `form:"end" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	ExcludeRequestID int64     `form:"exclude_request_id"`
}

// ConflictItem is a classified overlap returned by the conflict-check endpoint.
type ConflictItem struct {
	RequestID      int64                   `json:"request_id"`
	RequesterID    int64                   `json:"requester_id"`
	Destination    string                  `json:"destination"`
	DepartAt       time.Time               `json:"depart_at"`
	ReturnAt       time.Time               `json:"return_at"`
	Status         models.RequestStatus    `json:"status"`
	OverlapMinutes int64                   `json:"overlap_minutes"`
	Severity       models.ConflictSeverity `json:"severity"`
}
