package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/service"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
	"github.com/fleetworks/motorpool-api/pkg/response"
)

// ApprovalHandler wires HTTP endpoints to the approval service.
type ApprovalHandler struct {
	approvals *service.ApprovalService
	conflicts *service.ConflictService
}

// NewApprovalHandler creates a new handler.
func NewApprovalHandler(approvals *service.ApprovalService, conflicts *service.ConflictService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, conflicts: conflicts}
}

// Process godoc
// @Summary Process an approval action
// @Description Apply an approve, reject or revision action to a trip request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.ProcessApprovalRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/approval [post]
func (h *ApprovalHandler) Process(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requestID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload dto.ProcessApprovalRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}

	result, err := h.approvals.ProcessApproval(c.Request.Context(), requestID, claims.Actor(), payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a trip request
// @Tags Approvals
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.CancelRequest true "Cancellation payload"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/cancel [post]
func (h *ApprovalHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requestID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload dto.CancelRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "a cancellation reason is required"))
		return
	}

	result, err := h.approvals.Cancel(c.Request.Context(), requestID, claims.Actor(), payload.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}

// CheckConflicts godoc
// @Summary Probe resource availability
// @Description List bookings that overlap a window for one vehicle or driver
// @Tags Approvals
// @Produce json
// @Param resource query string true "vehicle or driver"
// @Param resource_id query int true "Resource ID"
// @Param start query string true "Window start, RFC 3339"
// @Param end query string true "Window end, RFC 3339"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /conflicts [get]
func (h *ApprovalHandler) CheckConflicts(c *gin.Context) {
	var query dto.ConflictCheckQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict query"))
		return
	}

	items, err := h.conflicts.Check(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, items, nil)
}
