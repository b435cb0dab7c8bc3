package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/propsignal/propsignal/internal/domain/property"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// PropertyHandler serves the inventory read endpoints.
type PropertyHandler struct {
	repo property.Repository
}

// NewPropertyHandler constructs a PropertyHandler.
func NewPropertyHandler(repo property.Repository) *PropertyHandler {
	return &PropertyHandler{repo: repo}
}

// Get handles GET /api/v1/properties/:id.
func (h *PropertyHandler) Get(c *gin.Context) {
	p, err := h.repo.GetByID(c.Request.Context(), common.ID(c.Param("id")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Search handles GET /api/v1/properties.
func (h *PropertyHandler) Search(c *gin.Context) {
	filter := property.SearchFilter{
		City:       c.Query("city"),
		Zip:        c.Query("zip"),
		Pagination: parsePagination(c),
	}
	if v := c.Query("property_type"); v != "" {
		pt := property.Type(v)
		filter.PropertyType = &pt
	}
	if v := c.Query("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": errorBody{Code: "BAD_REQUEST", Message: "min_price must be a number"},
			})
			return
		}
		filter.MinPrice = &d
	}
	if v := c.Query("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": errorBody{Code: "BAD_REQUEST", Message: "max_price must be a number"},
			})
			return
		}
		filter.MaxPrice = &d
	}

	out, total, err := h.repo.Search(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Items: out, Total: total, Page: filter.Pagination.Page})
}

// Upsert handles PUT /api/v1/properties, used by inventory feed loaders.
func (h *PropertyHandler) Upsert(c *gin.Context) {
	var p property.SubjectProperty
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	if p.ID == "" {
		p.ID = common.NewID()
	}
	if err := h.repo.Upsert(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
