package service

import (
	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

// permissionDecision records how permission was granted and which stage the
// action is interpreted as.
type permissionDecision struct {
	Stage models.ApprovalStage
	// IsOverride is true when permission came from a role-based fallback
	// rather than a direct assignment match.
	IsOverride bool
	// OverriddenAssignee is the originally-assigned reviewer for the
	// effective stage, recorded in the audit trail on override.
	OverriddenAssignee *int64
}

// resolvePermission decides whether the actor may perform the action on this
// request, and under which stage. Rules are evaluated in strict priority order.
func resolvePermission(actor models.Actor, request *models.Request, requestedStage models.ApprovalStage) (permissionDecision, error) {
	isAssignedApprover := request.ApproverID != nil && *request.ApproverID == actor.ID
	isAssignedHead := request.MotorpoolHeadID != nil && *request.MotorpoolHeadID == actor.ID
	isAdmin := actor.Role == models.RoleAdmin

	// Stage left implicit defaults to whichever review the request is waiting
	// on. For requests past both reviews the actor's own rank picks the stage,
	// so the transition check downstream can still classify the replay.
	if requestedStage == "" {
		switch request.Status {
		case models.StatusPending:
			requestedStage = models.StageDepartment
		case models.StatusPendingMotorpool:
			requestedStage = models.StageMotorpool
		default:
			requestedStage = models.StageDepartment
			if isAssignedHead || actor.Role.AtLeastMotorpool() {
				requestedStage = models.StageMotorpool
			}
		}
	}

	// Status is deliberately not consulted here except for the REVISION
	// special case: actors qualified for the effective stage get through so
	// that a request in the wrong state fails as an illegal transition, not
	// as a permission problem.
	switch {
	case request.Status == models.StatusRevision:
		if !isAssignedApprover && !isAssignedHead && !isAdmin {
			return permissionDecision{}, appErrors.ErrForbidden
		}
		decision := permissionDecision{Stage: models.StageDepartment}
		if isAssignedHead || actor.Role.AtLeastMotorpool() || requestedStage == models.StageMotorpool {
			decision.Stage = models.StageMotorpool
		}
		// An admin stepping in for someone else's assignment is an override.
		if !isAssignedApprover && !isAssignedHead {
			decision.IsOverride = true
			decision.OverriddenAssignee = assigneeForStage(request, decision.Stage)
		}
		return decision, nil

	case requestedStage == models.StageMotorpool:
		if !isAssignedHead && !actor.Role.AtLeastMotorpool() && !isAdmin {
			return permissionDecision{}, appErrors.ErrForbidden
		}
		decision := permissionDecision{Stage: models.StageMotorpool}
		// Any motorpool head may triage an unassigned or foreign request;
		// that is policy, but it is still flagged for the audit trail.
		if !isAssignedHead {
			decision.IsOverride = true
			decision.OverriddenAssignee = request.MotorpoolHeadID
		}
		return decision, nil

	case requestedStage == models.StageDepartment:
		if !isAssignedApprover && !isAdmin {
			return permissionDecision{}, appErrors.ErrForbidden
		}
		decision := permissionDecision{Stage: models.StageDepartment}
		if !isAssignedApprover {
			decision.IsOverride = true
			decision.OverriddenAssignee = request.ApproverID
		}
		return decision, nil
	}

	return permissionDecision{}, appErrors.ErrForbidden
}

func assigneeForStage(request *models.Request, stage models.ApprovalStage) *int64 {
	if stage == models.StageMotorpool {
		return request.MotorpoolHeadID
	}
	return request.ApproverID
}
