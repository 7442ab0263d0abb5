package service

import (
	"fmt"

	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

// allowedTransitions is the directed graph of legal status moves for approval
// actions. Statuses absent from the map are terminal.
var allowedTransitions = map[models.RequestStatus][]models.RequestStatus{
	models.StatusPending: {
		models.StatusPendingMotorpool,
		models.StatusRejected,
		models.StatusRevision,
		models.StatusCancelled,
	},
	models.StatusPendingMotorpool: {
		models.StatusApproved,
		models.StatusRejected,
		models.StatusRevision,
		models.StatusCancelled,
	},
	models.StatusRevision: {
		models.StatusPending,
		models.StatusPendingMotorpool,
		models.StatusApproved,
		models.StatusRejected,
		models.StatusCancelled,
	},
	models.StatusApproved: {
		models.StatusCancelled,
	},
}

// AllowedTargets returns the legal targets for a status. Empty for terminal states.
func AllowedTargets(current models.RequestStatus) []models.RequestStatus {
	targets := allowedTransitions[current]
	out := make([]models.RequestStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransition reports whether current -> intended is a legal move.
func CanTransition(current, intended models.RequestStatus) bool {
	for _, target := range allowedTransitions[current] {
		if target == intended {
			return true
		}
	}
	return false
}

// ValidateTransition checks a move against the transition table. The error
// message carries the allowed set for diagnostics; callers may hide it from
// end users.
func ValidateTransition(current, intended models.RequestStatus) error {
	if CanTransition(current, intended) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrIllegalTransition,
		fmt.Sprintf("cannot move request from %s to %s (allowed: %v)", current, intended, allowedTransitions[current]))
}

// IntendedStatus maps an (action, stage) pair onto the status the request
// should land in.
func IntendedStatus(action models.ApprovalAction, stage models.ApprovalStage) (models.RequestStatus, error) {
	switch action {
	case models.ActionRevision:
		return models.StatusRevision, nil
	case models.ActionReject:
		return models.StatusRejected, nil
	case models.ActionApprove:
		switch stage {
		case models.StageDepartment:
			return models.StatusPendingMotorpool, nil
		case models.StageMotorpool:
			return models.StatusApproved, nil
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown approval stage: %s", stage))
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown approval action: %s", action))
}

// outcomeForAction translates the acted verb into the immutable record outcome.
func outcomeForAction(action models.ApprovalAction) models.ApprovalOutcome {
	switch action {
	case models.ActionReject:
		return models.OutcomeRejected
	case models.ActionRevision:
		return models.OutcomeRevision
	default:
		return models.OutcomeApproved
	}
}
