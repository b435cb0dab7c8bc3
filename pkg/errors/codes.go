package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is the string representation of a specific error condition.
// Codes are namespaced by module prefix: COMMON, PROP (property inventory),
// MKT (market snapshots), VAL (valuation engine), FLIP (deal analysis),
// RPT (CMA reports).
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTooManyRequests    ErrorCode = "COMMON_007"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeMessagingError     ErrorCode = "COMMON_014"
	ErrCodeStorageError       ErrorCode = "COMMON_015"

	ErrCodeUnknown ErrorCode = "UNKNOWN"
	CodeOK         ErrorCode = "OK"
)

// Property inventory error codes.
const (
	ErrCodePropertyNotFound   ErrorCode = "PROP_001"
	ErrCodePropertyMalformed  ErrorCode = "PROP_002"
	ErrCodeEmptyCandidatePool ErrorCode = "PROP_003"
)

// Market snapshot error codes.
const (
	ErrCodeSnapshotNotFound ErrorCode = "MKT_001"
	ErrCodeSnapshotStale    ErrorCode = "MKT_002"
)

// Valuation engine error codes.
const (
	ErrCodeValuationInput        ErrorCode = "VAL_001"
	ErrCodeAdjustmentPolicy      ErrorCode = "VAL_002"
	ErrCodeScoringPolicy         ErrorCode = "VAL_003"
	ErrCodeAggregationFailed     ErrorCode = "VAL_004"
	ErrCodeComparableNotInReport ErrorCode = "VAL_005"
)

// Flip analysis error codes.
const (
	ErrCodeAnalysisNotFound  ErrorCode = "FLIP_001"
	ErrCodeFinancialInput    ErrorCode = "FLIP_002"
	ErrCodeDealScoringPolicy ErrorCode = "FLIP_003"
)

// CMA report error codes.
const (
	ErrCodeReportNotFound ErrorCode = "RPT_001"
	ErrCodeReportImmutable ErrorCode = "RPT_002"
	ErrCodeReportArchive  ErrorCode = "RPT_003"
)

// errorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTooManyRequests:    http.StatusTooManyRequests,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeMessagingError:     http.StatusInternalServerError,
	ErrCodeStorageError:       http.StatusInternalServerError,

	ErrCodePropertyNotFound:   http.StatusNotFound,
	ErrCodePropertyMalformed:  http.StatusUnprocessableEntity,
	ErrCodeEmptyCandidatePool: http.StatusUnprocessableEntity,

	ErrCodeSnapshotNotFound: http.StatusNotFound,
	ErrCodeSnapshotStale:    http.StatusConflict,

	ErrCodeValuationInput:        http.StatusUnprocessableEntity,
	ErrCodeAdjustmentPolicy:      http.StatusInternalServerError,
	ErrCodeScoringPolicy:         http.StatusInternalServerError,
	ErrCodeAggregationFailed:     http.StatusInternalServerError,
	ErrCodeComparableNotInReport: http.StatusNotFound,

	ErrCodeAnalysisNotFound:  http.StatusNotFound,
	ErrCodeFinancialInput:    http.StatusUnprocessableEntity,
	ErrCodeDealScoringPolicy: http.StatusInternalServerError,

	ErrCodeReportNotFound:  http.StatusNotFound,
	ErrCodeReportImmutable: http.StatusConflict,
	ErrCodeReportArchive:   http.StatusInternalServerError,
}

// errorCodeMessage maps ErrorCodes to default messages.
var errorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal server error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeUnauthorized:       "unauthorized",
	ErrCodeForbidden:          "forbidden",
	ErrCodeNotFound:           "resource not found",
	ErrCodeConflict:           "resource conflict",
	ErrCodeTooManyRequests:    "too many requests",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeMessagingError:     "message broker error",
	ErrCodeStorageError:       "object storage error",

	ErrCodePropertyNotFound:   "property not found",
	ErrCodePropertyMalformed:  "property record is malformed",
	ErrCodeEmptyCandidatePool: "no comparable candidates in market area",

	ErrCodeSnapshotNotFound: "market snapshot not found",
	ErrCodeSnapshotStale:    "market snapshot is stale",

	ErrCodeValuationInput:        "invalid valuation input",
	ErrCodeAdjustmentPolicy:      "invalid adjustment policy",
	ErrCodeScoringPolicy:         "invalid scoring policy",
	ErrCodeAggregationFailed:     "valuation aggregation failed",
	ErrCodeComparableNotInReport: "comparable does not belong to report",

	ErrCodeAnalysisNotFound:  "flip analysis not found",
	ErrCodeFinancialInput:    "invalid financial model input",
	ErrCodeDealScoringPolicy: "invalid deal scoring policy",

	ErrCodeReportNotFound:  "CMA report not found",
	ErrCodeReportImmutable: "report value history is append-only",
	ErrCodeReportArchive:   "failed to archive report snapshot",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := errorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError reports whether the code maps to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError reports whether the code maps to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.SplitN(string(code), "_", 2)
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
