package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetworks/motorpool-api/internal/dto"
	"github.com/fleetworks/motorpool-api/internal/service"
	appErrors "github.com/fleetworks/motorpool-api/pkg/errors"
	"github.com/fleetworks/motorpool-api/pkg/response"
)

// ReportHandler serves fleet usage summaries.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler creates a new handler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Usage godoc
// @Summary Fleet usage summary
// @Description Aggregate completed and approved trips per vehicle and department
// @Tags Reports
// @Produce json
// @Param from query string true "Window start, RFC 3339"
// @Param to query string true "Window end, RFC 3339"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /reports/usage [get]
func (h *ReportHandler) Usage(c *gin.Context) {
	var query dto.UsageReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid report query"))
		return
	}

	report, err := h.reports.Usage(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, report, nil)
}
