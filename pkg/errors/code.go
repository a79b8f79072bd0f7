package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Authentication & Trust errors
// 12000-12999: Problem module errors
// 13000-13999: Submission & Judge module errors
// 14000-14999: Media & Interactive module errors
// 15000-15999: Event pipeline errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008
	Conflict            ErrorCode = 10009

	// Database errors (10100-10199)
	DatabaseError     ErrorCode = 10100
	RecordNotFound    ErrorCode = 10101
	DuplicateRecord   ErrorCode = 10102
	TransactionFailed ErrorCode = 10103

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10302

	// Transport errors (10400-10499)
	TransportFailed   ErrorCode = 10400
	BrokerUnavailable ErrorCode = 10401
	PublishBufferFull ErrorCode = 10402

	// ========== Authentication & Trust Errors (11000-11999) ==========

	// Edge tokens (11000-11099)
	TokenExpired ErrorCode = 11000
	TokenInvalid ErrorCode = 11001

	// Internal trust assertions (11100-11199)
	AssertionMissing ErrorCode = 11100
	AssertionInvalid ErrorCode = 11101
	RoleNotAllowed   ErrorCode = 11102

	// ========== Problem Module Errors (12000-12999) ==========

	ProblemNotFound      ErrorCode = 12000
	LanguageNotSupported ErrorCode = 12001
	TestCaseTooLarge     ErrorCode = 12002
	TooManyTestCases     ErrorCode = 12003

	// ========== Submission & Judge Module Errors (13000-13999) ==========

	// Submission (13000-13099)
	SubmissionNotFound     ErrorCode = 13000
	SubmissionCreateFailed ErrorCode = 13001
	CodeTooLarge           ErrorCode = 13002
	SubmitTooFrequently    ErrorCode = 13003

	// Judge (13100-13199)
	JudgeQueueFull   ErrorCode = 13100
	JudgeUnavailable ErrorCode = 13101
	JudgeTimeout     ErrorCode = 13102

	// ========== Media & Interactive Module Errors (14000-14999) ==========

	VideoNotFound       ErrorCode = 14000
	VideoDeleted        ErrorCode = 14001
	InteractiveNotFound ErrorCode = 14002

	// ========== Event Pipeline Errors (15000-15999) ==========

	EnvelopeMalformed ErrorCode = 15000
	UnknownAction     ErrorCode = 15001
	HandlerTimeout    ErrorCode = 15002
)

// errorMessages maps error codes to default human readable messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	// Generic
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid request parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized",
	Forbidden:           "Forbidden",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timed out",
	Conflict:            "Resource conflict",

	// Database
	DatabaseError:     "Database operation failed",
	RecordNotFound:    "Record not found",
	DuplicateRecord:   "Record already exists",
	TransactionFailed: "Database transaction failed",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	// Transport
	TransportFailed:   "Transport failure, please try again",
	BrokerUnavailable: "Message broker unavailable",
	PublishBufferFull: "Publish buffer is full",

	// Authentication & Trust
	TokenExpired:     "Token has expired",
	TokenInvalid:     "Token is invalid",
	AssertionMissing: "Internal trust assertion is missing",
	AssertionInvalid: "Internal trust assertion is invalid",
	RoleNotAllowed:   "Role is not allowed for this operation",

	// Problem
	ProblemNotFound:      "Problem not found",
	LanguageNotSupported: "Programming language not supported",
	TestCaseTooLarge:     "Test case input is too large",
	TooManyTestCases:     "Too many test cases",

	// Submission
	SubmissionNotFound:     "Submission not found",
	SubmissionCreateFailed: "Failed to create submission",
	CodeTooLarge:           "Code is too large",
	SubmitTooFrequently:    "Submitting too frequently, please wait",

	// Judge
	JudgeQueueFull:   "Judge queue is full, please try again later",
	JudgeUnavailable: "Judge service unavailable, please try again",
	JudgeTimeout:     "Judge call timed out, please try again",

	// Media
	VideoNotFound:       "Video not found",
	VideoDeleted:        "Video has been deleted",
	InteractiveNotFound: "Interactive element not found",

	// Event pipeline
	EnvelopeMalformed: "Event envelope is malformed",
	UnknownAction:     "Unknown event action",
	HandlerTimeout:    "Event handler timed out",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c >= 11000 && c < 11100:
		return 401
	case c == Forbidden, c >= 11100 && c < 11200:
		return 403
	case c == NotFound, c == RecordNotFound, c == ProblemNotFound,
		c == SubmissionNotFound, c == VideoNotFound, c == InteractiveNotFound:
		return 404
	case c == Conflict, c == DuplicateRecord:
		return 409
	case c == TooManyRequests, c == SubmitTooFrequently, c == JudgeQueueFull:
		return 429
	case c == ServiceUnavailable, c == JudgeUnavailable, c == BrokerUnavailable:
		return 503
	case c == Timeout, c == JudgeTimeout, c == TransportFailed:
		return 504
	case c >= 10300 && c < 10400: // Validation errors
		return 400
	case c == InvalidParams, c >= 12000 && c < 13000, c == CodeTooLarge:
		return 400
	default:
		return 500
	}
}

// IsPermanent reports whether an error with this code can never succeed on
// redelivery. Consumers acknowledge and drop such messages instead of retrying.
func (c ErrorCode) IsPermanent() bool {
	switch {
	case c >= 10300 && c < 10400: // validation
		return true
	case c == InvalidParams, c == NotFound, c == RecordNotFound, c == Forbidden:
		return true
	case c >= 11000 && c < 12000: // auth and trust failures
		return true
	case c >= 12000 && c < 13000: // problem constraints
		return true
	case c == VideoNotFound, c == VideoDeleted, c == InteractiveNotFound:
		return true
	case c == EnvelopeMalformed, c == UnknownAction:
		return true
	default:
		return false
	}
}
