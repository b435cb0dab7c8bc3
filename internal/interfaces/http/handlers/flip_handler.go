package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appflip "github.com/propsignal/propsignal/internal/application/flip"
	domainflip "github.com/propsignal/propsignal/internal/domain/flip"
	"github.com/propsignal/propsignal/internal/interfaces/http/middleware"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// FlipService is the slice of the flip service the handler consumes.
type FlipService interface {
	RunAnalysis(ctx context.Context, req appflip.RunAnalysisRequest) (*appflip.Analysis, error)
	GetAnalysis(ctx context.Context, id common.ID) (*appflip.Analysis, error)
	ListAnalyses(ctx context.Context, filter appflip.ListFilter) ([]*appflip.Analysis, int64, error)
	UpdateInputs(ctx context.Context, id common.ID, inputs domainflip.FinancialInputs) (*appflip.Analysis, error)
	DeleteAnalysis(ctx context.Context, id common.ID) error
}

// FlipHandler serves the flip analysis endpoints.
type FlipHandler struct {
	svc FlipService
}

// NewFlipHandler constructs a FlipHandler.
func NewFlipHandler(svc FlipService) *FlipHandler {
	return &FlipHandler{svc: svc}
}

// Run handles POST /api/v1/flips.
func (h *FlipHandler) Run(c *gin.Context) {
	var req appflip.RunAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	req.CreatedBy = common.UserID(middleware.UserID(c))

	analysis, err := h.svc.RunAnalysis(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, analysis)
}

// Get handles GET /api/v1/flips/:id.
func (h *FlipHandler) Get(c *gin.Context) {
	analysis, err := h.svc.GetAnalysis(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// List handles GET /api/v1/flips.
func (h *FlipHandler) List(c *gin.Context) {
	filter := appflip.ListFilter{
		PropertyID:       common.ID(c.Query("property_id")),
		CreatedBy:        common.UserID(c.Query("created_by")),
		DisqualifiedOnly: c.Query("disqualified") == "true",
		Pagination:       parsePagination(c),
	}
	analyses, total, err := h.svc.ListAnalyses(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: analyses, Total: total, Page: filter.Pagination.Page})
}

// UpdateInputs handles PUT /api/v1/flips/:id/inputs.  The deal is repriced
// against its stored report; the valuation is not rerun.
func (h *FlipHandler) UpdateInputs(c *gin.Context) {
	var inputs domainflip.FinancialInputs
	if err := c.ShouldBindJSON(&inputs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	analysis, err := h.svc.UpdateInputs(c.Request.Context(), common.ID(c.Param("id")), inputs)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// Delete handles DELETE /api/v1/flips/:id.
func (h *FlipHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteAnalysis(c.Request.Context(), common.ID(c.Param("id"))); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
