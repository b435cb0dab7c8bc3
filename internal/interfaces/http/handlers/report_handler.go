package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/internal/application/cma"
	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/internal/interfaces/http/middleware"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// ReportService is the slice of the CMA service the handler consumes.
type ReportService interface {
	RunReport(ctx context.Context, req cma.RunReportRequest) (*cma.Report, error)
	GetReport(ctx context.Context, id common.ID) (*cma.Report, error)
	ListReports(ctx context.Context, filter cma.ListFilter) ([]*cma.Report, int64, error)
	DeleteReport(ctx context.Context, id common.ID) error
	RerunReport(ctx context.Context, reportID common.ID, overrides *property.Overrides) (*cma.Report, error)
	ToggleComparable(ctx context.Context, reportID, compID common.ID, toggle cma.ComparableToggle) (*cma.Report, error)
	ValueHistory(ctx context.Context, reportID common.ID, limit int) ([]*cma.ValueHistoryEntry, error)
}

// ReportHandler serves the CMA report endpoints.
type ReportHandler struct {
	svc ReportService
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Run handles POST /api/v1/reports.
func (h *ReportHandler) Run(c *gin.Context) {
	var req cma.RunReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	req.CreatedBy = common.UserID(middleware.UserID(c))

	report, err := h.svc.RunReport(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// Get handles GET /api/v1/reports/:id.
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.svc.GetReport(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// List handles GET /api/v1/reports.
func (h *ReportHandler) List(c *gin.Context) {
	filter := cma.ListFilter{
		City:       c.Query("city"),
		CreatedBy:  common.UserID(c.Query("created_by")),
		Pagination: parsePagination(c),
	}
	reports, total, err := h.svc.ListReports(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: reports, Total: total, Page: filter.Pagination.Page})
}

// Delete handles DELETE /api/v1/reports/:id.
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteReport(c.Request.Context(), common.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rerunRequest optionally replaces the subject overrides for the new run.
type rerunRequest struct {
	Overrides *property.Overrides `json:"overrides"`
}

// Rerun handles POST /api/v1/reports/:id/rerun.
func (h *ReportHandler) Rerun(c *gin.Context) {
	var req rerunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
			})
			return
		}
	}
	report, err := h.svc.RerunReport(c.Request.Context(), common.ID(c.Param("id")), req.Overrides)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ToggleComparable handles PATCH /api/v1/reports/:id/comparables/:compID.
func (h *ReportHandler) ToggleComparable(c *gin.Context) {
	var toggle cma.ComparableToggle
	if err := c.ShouldBindJSON(&toggle); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	report, err := h.svc.ToggleComparable(c.Request.Context(),
		common.ID(c.Param("id")), common.ID(c.Param("compID")), toggle)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// History handles GET /api/v1/reports/:id/history.
func (h *ReportHandler) History(c *gin.Context) {
	entries, err := h.svc.ValueHistory(c.Request.Context(),
		common.ID(c.Param("id")), parseLimit(c, 50, 500))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}
