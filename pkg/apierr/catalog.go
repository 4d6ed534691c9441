package apierr

import (
	"fmt"
	"net/http"
)

// --- Common ---

func InvalidRequestBody() *Error {
	return New(CodeInvalidRequestBody, http.StatusBadRequest, "Invalid request body")
}

func InvalidID(entity string) *Error {
	return New(CodeInvalidID, http.StatusBadRequest, "Invalid "+entity+" ID")
}

func InternalError(cause error) *Error {
	return Wrap(CodeInternalError, http.StatusInternalServerError, "Internal server error", cause)
}

func NotImplemented(feature string) *Error {
	return New(CodeNotImplemented, http.StatusNotImplemented, feature+" is not implemented yet")
}

// --- Unit validation ---

func ProgramNameRequired(index int) *Error {
	return New(CodeProgramNameRequired, http.StatusBadRequest,
		fmt.Sprintf("unit %d: pgm_name is required", index)).WithIndex(index)
}

func IncludeNameRequired(index int) *Error {
	return New(CodeIncludeNameRequired, http.StatusBadRequest,
		fmt.Sprintf("unit %d: inc_name is required", index)).WithIndex(index)
}

func UnitTypeRequired(index int) *Error {
	return New(CodeUnitTypeRequired, http.StatusBadRequest,
		fmt.Sprintf("unit %d: type is required", index)).WithIndex(index)
}

func LineRangeInvalid(index int) *Error {
	return New(CodeLineRangeInvalid, http.StatusBadRequest,
		fmt.Sprintf("unit %d: line numbers must not be negative and end_line must not be before start_line", index)).WithIndex(index)
}

func EmptyBatch() *Error {
	return New(CodeEmptyBatch, http.StatusBadRequest, "Request must contain at least one unit")
}

func BatchTooLarge(max int) *Error {
	return New(CodeBatchTooLarge, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("Request may contain at most %d units", max))
}

func UnitTooLarge(index, maxBytes int) *Error {
	return New(CodeUnitTooLarge, http.StatusRequestEntityTooLarge,
		fmt.Sprintf("unit %d: code exceeds %d bytes", index, maxBytes)).WithIndex(index)
}

// --- Scan ---

func ScanFailed(cause error) *Error {
	return Wrap(CodeScanFailed, http.StatusInternalServerError, "Scan failed", cause)
}

// --- Report ---

func ReportNotFound() *Error {
	return New(CodeReportNotFound, http.StatusNotFound, "Report not found")
}

func InvalidReportID() *Error {
	return New(CodeInvalidReportID, http.StatusBadRequest, "Invalid report ID")
}

func ReportCreateFailed(cause error) *Error {
	return Wrap(CodeReportCreateFailed, http.StatusInternalServerError, "Failed to create report", cause)
}

func ReportListFailed(cause error) *Error {
	return Wrap(CodeReportListFailed, http.StatusInternalServerError, "Failed to list reports", cause)
}

func ReportCountFailed(cause error) *Error {
	return Wrap(CodeReportCountFailed, http.StatusInternalServerError, "Failed to count reports", cause)
}

func ReportsDisabled() *Error {
	return New(CodeReportsDisabled, http.StatusServiceUnavailable, "Report storage is not configured")
}

// --- Jobs ---

func JobEnqueueFailed(cause error) *Error {
	return Wrap(CodeJobEnqueueFailed, http.StatusInternalServerError, "Failed to enqueue scan job", cause)
}

func JobsDisabled() *Error {
	return New(CodeJobsDisabled, http.StatusServiceUnavailable, "Scan job queue is not configured")
}

// --- Mapping ---

func TableNotMapped(table string) *Error {
	return New(CodeTableNotMapped, http.StatusNotFound, table+" is not a known legacy table")
}

// --- Graph ---

func GraphQueryFailed(cause error) *Error {
	return Wrap(CodeGraphQueryFailed, http.StatusInternalServerError, "Usage graph query failed", cause)
}

func GraphDisabled() *Error {
	return New(CodeGraphDisabled, http.StatusServiceUnavailable, "Usage graph is not configured")
}

// --- Auth ---

func MissingAuthToken() *Error {
	return New(CodeMissingAuthToken, http.StatusUnauthorized, "Missing bearer token")
}

func InvalidAuthToken() *Error {
	return New(CodeInvalidAuthToken, http.StatusUnauthorized, "Invalid bearer token")
}

func InsufficientScope(scope string) *Error {
	return New(CodeInsufficientScope, http.StatusForbidden, "Token lacks required scope "+scope)
}

// --- Health ---

func DatabaseNotReady(cause error) *Error {
	return Wrap(CodeDatabaseNotReady, http.StatusServiceUnavailable, "Database not ready", cause)
}

func MappingNotReady() *Error {
	return New(CodeMappingNotReady, http.StatusServiceUnavailable, "Table mapping not loaded")
}
