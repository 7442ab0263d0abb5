package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/service"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
	"github.com/fleetworks/motorpool-api/pkg/response"
)

// RequestHandler wires HTTP endpoints to the request read service and the
// guard trip lifecycle.
type RequestHandler struct {
	requests *service.RequestService
	trips    *service.TripService
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(requests *service.RequestService, trips *service.TripService) *RequestHandler {
	return &RequestHandler{requests: requests, trips: trips}
}

// List godoc
// @Summary List trip requests
// @Tags Requests
// @Produce json
// @Param status query string false "Comma-separated statuses"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid list query"))
		return
	}

	rows, pagination, err := h.requests.List(c.Request.Context(), query, claims.Actor(), claims.DepartmentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, rows, pagination)
}

// Get godoc
// @Summary Get one trip request
// @Tags Requests
// @Produce json
// @Param id path int true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	request, err := h.requests.Get(c.Request.Context(), id, claims.Actor(), claims.DepartmentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, request, nil)
}

// Dispatch godoc
// @Summary Record a trip leaving the gate
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.DispatchRequest true "Dispatch payload"
// @Success 204 "No Content"
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/dispatch [post]
func (h *RequestHandler) Dispatch(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload dto.DispatchRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid dispatch payload"))
		return
	}

	if err := h.trips.RecordDispatch(c.Request.Context(), id, claims.Actor(), payload); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Arrival godoc
// @Summary Record a trip returning to the gate
// @Tags Trips
// @Accept json
// @Produce json
// @Param id path int true "Request ID"
// @Param payload body dto.ArrivalRequest true "Arrival payload"
// @Success 204 "No Content"
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /requests/{id}/arrival [post]
func (h *RequestHandler) Arrival(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload dto.ArrivalRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid arrival payload"))
		return
	}

	if err := h.trips.RecordArrival(c.Request.Context(), id, claims.Actor(), payload); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
