// Package handlers implements the REST endpoints over the application
// services.
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/pkg/errors"
	"github.com/propsignal/propsignal/pkg/types/common"
)

// errorBody is the standard error response shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listResponse is the standard paged collection shape.
type listResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
}

// respondError maps an application error onto its HTTP status.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(errors.HTTPStatusForCode(code), gin.H{
		"error": errorBody{Code: string(code), Message: err.Error()},
	})
}

// parsePagination reads page/page_size query parameters; out-of-range
// values are normalized downstream.
func parsePagination(c *gin.Context) common.Pagination {
	p := common.Pagination{Page: 1, PageSize: 20}
	if v, err := strconv.Atoi(c.Query("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil {
		p.PageSize = v
	}
	p.Normalize()
	return p
}

// parseLimit reads a bounded limit query parameter.
func parseLimit(c *gin.Context, fallback, max int) int {
	v, err := strconv.Atoi(c.Query("limit"))
	if err != nil || v <= 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}
