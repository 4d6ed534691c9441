package apierr

// Code is a machine-readable error code returned in API responses.
type Code string

// Common errors.
const (
	CodeInvalidRequestBody Code = "INVALID_REQUEST_BODY"
	CodeInvalidID          Code = "INVALID_ID"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeNotImplemented     Code = "NOT_IMPLEMENTED"
)

// Unit validation errors.
const (
	CodeProgramNameRequired Code = "PROGRAM_NAME_REQUIRED"
	CodeIncludeNameRequired Code = "INCLUDE_NAME_REQUIRED"
	CodeUnitTypeRequired    Code = "UNIT_TYPE_REQUIRED"
	CodeLineRangeInvalid    Code = "LINE_RANGE_INVALID"
	CodeEmptyBatch          Code = "EMPTY_BATCH"
	CodeBatchTooLarge       Code = "BATCH_TOO_LARGE"
	CodeUnitTooLarge        Code = "UNIT_TOO_LARGE"
)

// Scan errors.
const (
	CodeScanFailed Code = "SCAN_FAILED"
)

// Report errors.
const (
	CodeReportNotFound     Code = "REPORT_NOT_FOUND"
	CodeInvalidReportID    Code = "INVALID_REPORT_ID"
	CodeReportCreateFailed Code = "REPORT_CREATE_FAILED"
	CodeReportListFailed   Code = "REPORT_LIST_FAILED"
	CodeReportCountFailed  Code = "REPORT_COUNT_FAILED"
	CodeReportsDisabled    Code = "REPORTS_DISABLED"
)

// Job errors.
const (
	CodeJobEnqueueFailed Code = "JOB_ENQUEUE_FAILED"
	CodeJobsDisabled     Code = "JOBS_DISABLED"
)

// Mapping errors.
const (
	CodeTableNotMapped Code = "TABLE_NOT_MAPPED"
)

// Graph errors.
const (
	CodeGraphQueryFailed Code = "GRAPH_QUERY_FAILED"
	CodeGraphDisabled    Code = "GRAPH_DISABLED"
)

// Auth errors.
const (
	CodeMissingAuthToken  Code = "MISSING_AUTH_TOKEN"
	CodeInvalidAuthToken  Code = "INVALID_AUTH_TOKEN"
	CodeInsufficientScope Code = "INSUFFICIENT_SCOPE"
)

// Health errors.
const (
	CodeDatabaseNotReady Code = "DATABASE_NOT_READY"
	CodeMappingNotReady  Code = "MAPPING_NOT_READY"
)
