package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetworks/motorpool-api/internal/models"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
)

func TestAllowedTransitionsTable(t *testing.T) {
	cases := map[models.RequestStatus][]models.RequestStatus{
		models.StatusPending:          {models.StatusPendingMotorpool, models.StatusRejected, models.StatusRevision, models.StatusCancelled},
		models.StatusPendingMotorpool: {models.StatusApproved, models.StatusRejected, models.StatusRevision, models.StatusCancelled},
		models.StatusRevision:         {models.StatusPending, models.StatusPendingMotorpool, models.StatusApproved, models.StatusRejected, models.StatusCancelled},
		models.StatusApproved:         {models.StatusCancelled},
		models.StatusRejected:         {},
		models.StatusCancelled:        {},
		models.StatusCompleted:        {},
		models.StatusDraft:            {},
		models.StatusModified:         {},
	}

	for current, allowed := range cases {
		allowedSet := make(map[models.RequestStatus]bool, len(allowed))
		for _, target := range allowed {
			allowedSet[target] = true
		}
		for _, intended := range models.AllStatuses {
			got := CanTransition(current, intended)
			assert.Equalf(t, allowedSet[intended], got, "%s -> %s", current, intended)
		}
	}
}

func TestValidateTransitionErrorCode(t *testing.T) {
	err := ValidateTransition(models.StatusRejected, models.StatusApproved)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIllegalTransition))

	require.NoError(t, ValidateTransition(models.StatusPending, models.StatusPendingMotorpool))
}

func TestSelfTransitionIsIllegal(t *testing.T) {
	for _, status := range models.AllStatuses {
		assert.Falsef(t, CanTransition(status, status), "%s -> %s", status, status)
	}
}

func TestAllowedTargetsCopies(t *testing.T) {
	targets := AllowedTargets(models.StatusPending)
	require.NotEmpty(t, targets)
	targets[0] = models.StatusDraft

	again := AllowedTargets(models.StatusPending)
	assert.Equal(t, models.StatusPendingMotorpool, again[0])
}

func TestIntendedStatus(t *testing.T) {
	cases := []struct {
		action models.ApprovalAction
		stage  models.ApprovalStage
		want   models.RequestStatus
	}{
		{models.ActionRevision, models.StageDepartment, models.StatusRevision},
		{models.ActionRevision, models.StageMotorpool, models.StatusRevision},
		{models.ActionReject, models.StageDepartment, models.StatusRejected},
		{models.ActionReject, models.StageMotorpool, models.StatusRejected},
		{models.ActionApprove, models.StageDepartment, models.StatusPendingMotorpool},
		{models.ActionApprove, models.StageMotorpool, models.StatusApproved},
	}
	for _, tc := range cases {
		got, err := IntendedStatus(tc.action, tc.stage)
		require.NoErrorf(t, err, "%s/%s", tc.action, tc.stage)
		assert.Equalf(t, tc.want, got, "%s/%s", tc.action, tc.stage)
	}
}

func TestIntendedStatusRejectsUnknown(t *testing.T) {
	_, err := IntendedStatus("escalate", models.StageDepartment)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))

	_, err = IntendedStatus(models.ActionApprove, "executive")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestOutcomeForAction(t *testing.T) {
	assert.Equal(t, models.OutcomeApproved, outcomeForAction(models.ActionApprove))
	assert.Equal(t, models.OutcomeRejected, outcomeForAction(models.ActionReject))
	assert.Equal(t, models.OutcomeRevision, outcomeForAction(models.ActionRevision))
}
