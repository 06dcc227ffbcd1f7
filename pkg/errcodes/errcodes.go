package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Forbidden           failure.ErrorCode = "Forbidden"

	// Planning pipeline.
	SourceUnavailable  failure.ErrorCode = "SourceUnavailable"  // Deal feed or scanner backend is unreachable
	NoDealsFound       failure.ErrorCode = "NoDealsFound"       // Scan returned nothing; a valid run outcome
	EstimatorFailure   failure.ErrorCode = "EstimatorFailure"   // One of the price estimators failed or misbehaved
	DeliveryFailure    failure.ErrorCode = "DeliveryFailure"    // Push notification not confirmed delivered
	PersistenceFailure failure.ErrorCode = "PersistenceFailure" // Memory write did not complete
	RunNotFound        failure.ErrorCode = "RunNotFound"        // Unknown planning run ID
	InvalidToolCall    failure.ErrorCode = "InvalidToolCall"    // Model produced arguments that fail schema validation
)
