package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/internal/domain/market"
)

// MarketHandler serves the market snapshot endpoints.
type MarketHandler struct {
	repo market.Repository
}

// NewMarketHandler constructs a MarketHandler.
func NewMarketHandler(repo market.Repository) *MarketHandler {
	return &MarketHandler{repo: repo}
}

// Latest handles GET /api/v1/markets/:city, optionally narrowed by zip.
func (h *MarketHandler) Latest(c *gin.Context) {
	s, err := h.repo.Latest(c.Request.Context(), c.Param("city"), c.Query("zip"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshot": s, "trend": s.Trend()})
}

// History handles GET /api/v1/markets/:city/history.
func (h *MarketHandler) History(c *gin.Context) {
	out, err := h.repo.History(c.Request.Context(), c.Param("city"), parseLimit(c, 12, 120))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

// Ingest handles POST /api/v1/markets, used by the snapshot feed loader.
func (h *MarketHandler) Ingest(c *gin.Context) {
	var s market.Snapshot
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": errorBody{Code: "BAD_REQUEST", Message: err.Error()},
		})
		return
	}
	if err := h.repo.Insert(c.Request.Context(), &s); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}
