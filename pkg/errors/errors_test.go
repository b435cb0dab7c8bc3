package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ErrorFormat(t *testing.T) {
	err := New(ErrCodeReportNotFound, "report missing")
	assert.Equal(t, "[RPT_001] report missing", err.Error())

	withDetail := err.WithDetail("id=abc")
	assert.Equal(t, "[RPT_001] report missing: id=abc", withDetail.Error())
	// Original must be untouched.
	assert.Empty(t, err.Detail)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	var got *AppError = Wrap(nil, ErrCodeDatabaseError, "should vanish")
	assert.Nil(t, got)
}

func TestWrap_PreservesCodeOnUnknown(t *testing.T) {
	inner := New(ErrCodeFinancialInput, "rehab cost must be positive")
	outer := Wrap(inner, ErrCodeUnknown, "run flip analysis")
	assert.Equal(t, ErrCodeFinancialInput, outer.Code)
	assert.True(t, stderrors.Is(outer, outer))
	assert.True(t, IsCode(outer, ErrCodeFinancialInput))
}

func TestWrap_ChainTraversal(t *testing.T) {
	root := fmt.Errorf("connection refused")
	wrapped := Wrap(root, ErrCodeDatabaseError, "load comparable pool")
	again := Wrap(wrapped, ErrCodeInternal, "run report")

	assert.True(t, IsCode(again, ErrCodeDatabaseError))
	assert.False(t, IsCode(again, ErrCodeCacheError))
	require.NotNil(t, stderrors.Unwrap(again))
	assert.Equal(t, ErrCodeInternal, GetCode(again))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodePropertyNotFound, "nope")))
	assert.True(t, IsNotFound(New(ErrCodeReportNotFound, "nope")))
	assert.True(t, IsNotFound(Wrap(New(ErrCodeAnalysisNotFound, "nope"), ErrCodeInternal, "ctx")))
	assert.False(t, IsNotFound(New(ErrCodeValidation, "bad input")))
	assert.False(t, IsNotFound(nil))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(Validation("negative living area")))
	assert.True(t, IsValidation(InvalidParam("bad radius")))
	assert.False(t, IsValidation(Internal("boom")))
}

func TestGetCode_PlainError(t *testing.T) {
	assert.Equal(t, ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
	assert.Equal(t, CodeOK, GetCode(nil))
}

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeValidation, http.StatusUnprocessableEntity},
		{ErrCodeReportNotFound, http.StatusNotFound},
		{ErrCodeFinancialInput, http.StatusUnprocessableEntity},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeTooManyRequests, http.StatusTooManyRequests},
		{ErrorCode("BOGUS_999"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusForCode(tt.code), string(tt.code))
	}
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, "FLIP", ModuleForCode(ErrCodeAnalysisNotFound))
	assert.Equal(t, "VAL", ModuleForCode(ErrCodeValuationInput))
	assert.Equal(t, "COMMON", ModuleForCode(ErrCodeInternal))
}

func TestIsClientServerError(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeBadRequest))
	assert.False(t, IsClientError(ErrCodeDatabaseError))
	assert.True(t, IsServerError(ErrCodeAggregationFailed))
	assert.False(t, IsServerError(ErrCodeSnapshotNotFound))
}
