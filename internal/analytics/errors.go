package analytics

import "fmt"

type MetricsErrorKind string

const (
	QueryBuildingError    MetricsErrorKind = "query_building_error"
	QueryExecutionFailure MetricsErrorKind = "query_execution_failure"
	PostProcessingFailure MetricsErrorKind = "post_processing_failure"
)

type MetricsError struct {
	Kind MetricsErrorKind
	Err  error
}

func (e *MetricsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *MetricsError) Unwrap() error {
	return e.Err
}

func NewQueryBuildingError(err error) *MetricsError {
	return &MetricsError{Kind: QueryBuildingError, Err: err}
}

func NewQueryExecutionFailure(err error) *MetricsError {
	return &MetricsError{Kind: QueryExecutionFailure, Err: err}
}

func NewPostProcessingFailure(err error) *MetricsError {
	return &MetricsError{Kind: PostProcessingFailure, Err: err}
}

// AnalyticsError is the opaque failure handed to route handlers; metric
// internals never leak past this boundary.
type AnalyticsError struct {
	Err error
}

func (e *AnalyticsError) Error() string {
	return "an unknown error occurred"
}

func (e *AnalyticsError) Unwrap() error {
	return e.Err
}
