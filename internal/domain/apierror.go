package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Kind classifies a structured API error. Every APIError carries exactly one Kind,
// and the Kind alone decides how the error is rendered over JSON-RPC and HTTP.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindRateLimit
	KindValidation
	KindInsufficientCredits
	KindForbidden
	KindNotFound
)

// JSON-RPC codes used when rendering structured errors.
const (
	rpcCodeServerError   = -32000
	rpcCodeInvalidParams = -32602
	rpcCodeInternalError = -32603
)

type kindInfo struct {
	name       string
	rpcCode    int
	httpStatus int
}

// kinds is the single source of truth for the kind -> (name, JSON-RPC code, HTTP status) mapping.
var kinds = map[Kind]kindInfo{
	KindAuthentication:      {name: "authentication", rpcCode: rpcCodeServerError, httpStatus: http.StatusUnauthorized},
	KindRateLimit:           {name: "rate_limit", rpcCode: rpcCodeServerError, httpStatus: http.StatusTooManyRequests},
	KindValidation:          {name: "validation", rpcCode: rpcCodeInvalidParams, httpStatus: http.StatusBadRequest},
	KindInsufficientCredits: {name: "insufficient_credits", rpcCode: rpcCodeServerError, httpStatus: http.StatusPaymentRequired},
	KindForbidden:           {name: "forbidden", rpcCode: rpcCodeServerError, httpStatus: http.StatusForbidden},
	KindNotFound:            {name: "not_found", rpcCode: rpcCodeServerError, httpStatus: http.StatusNotFound},
	KindInternal:            {name: "internal", rpcCode: rpcCodeInternalError, httpStatus: http.StatusInternalServerError},
}

// AllKinds lists every error kind.
func AllKinds() []Kind {
	return []Kind{
		KindAuthentication,
		KindRateLimit,
		KindValidation,
		KindInsufficientCredits,
		KindForbidden,
		KindNotFound,
		KindInternal,
	}
}

func (k Kind) info() kindInfo {
	if info, ok := kinds[k]; ok {
		return info
	}
	return kinds[KindInternal]
}

// String returns the kind name, e.g. "rate_limit".
func (k Kind) String() string { return k.info().name }

// ErrorType returns the external error type, e.g. "rate_limit_error".
func (k Kind) ErrorType() string { return k.info().name + "_error" }

// JSONRPCCode returns the JSON-RPC error code used for this kind.
func (k Kind) JSONRPCCode() int { return k.info().rpcCode }

// HTTPStatus returns the HTTP status code declared for this kind.
func (k Kind) HTTPStatus() int { return k.info().httpStatus }

// Machine-readable error codes.
const (
	CodeInvalidAPIKey       = "invalid_api_key"
	CodeMissingAuthHeader   = "missing_auth_header"
	CodeRateLimitExceeded   = "rate_limit_exceeded"
	CodeValidationFailed    = "validation_failed"
	CodeInsufficientCredits = "insufficient_credits"
	CodePermissionDenied    = "permission_denied"
	CodeResourceNotFound    = "resource_not_found"
	CodeInternalError       = "internal_error"
)

// Field error codes inside ValidationDetails.
const (
	FieldCodeMissingRequired = "missing_required"
	FieldCodeInvalidFormat   = "invalid_format"
	FieldCodeInvalidValue    = "invalid_value"
)

// APIError is the normalized, taxonomy-tagged error produced when a call to the
// remote API (or the gateway itself) fails.
type APIError struct {
	Kind        Kind
	Code        string
	Message     string
	UserMessage string
	RequestID   string
	Details     any
}

func (e *APIError) Error() string {
	return e.Message
}

// AsAPIError reports whether err (or anything it wraps) is an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// RateLimitDetails is attached to rate_limit errors. ResetAt is a unix timestamp in milliseconds.
type RateLimitDetails struct {
	Limit      int64 `json:"limit"`
	Remaining  int64 `json:"remaining"`
	ResetAt    int64 `json:"reset_at"`
	RetryAfter int64 `json:"retry_after"`
}

// CreditDetails is attached to insufficient_credits errors.
type CreditDetails struct {
	Balance  float64 `json:"balance"`
	Required float64 `json:"required"`
	Deficit  float64 `json:"deficit"`
}

// FieldError describes one problem with one request field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationDetails is attached to validation errors.
type ValidationDetails struct {
	FieldErrors []FieldError `json:"field_errors"`
}

// MissingField returns a FieldError for an absent required field.
func MissingField(field string) FieldError {
	return FieldError{Field: field, Code: FieldCodeMissingRequired, Message: "Field is required"}
}

// InvalidFormat returns a FieldError for a field that does not have the expected format.
func InvalidFormat(field, expected string) FieldError {
	return FieldError{Field: field, Code: FieldCodeInvalidFormat, Message: fmt.Sprintf("Invalid format, expected %s", expected)}
}

// InvalidValue returns a FieldError for a field whose value is rejected.
func InvalidValue(field, reason string) FieldError {
	return FieldError{Field: field, Code: FieldCodeInvalidValue, Message: reason}
}

// NewRequestID generates a fresh correlation id.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func InvalidAPIKey(requestID string) *APIError {
	return &APIError{
		Kind:        KindAuthentication,
		Code:        CodeInvalidAPIKey,
		Message:     "Invalid API key provided",
		UserMessage: "The API key you provided is invalid. Please check your API key and try again.",
		RequestID:   requestID,
	}
}

func MissingAuthHeader(requestID string) *APIError {
	return &APIError{
		Kind:        KindAuthentication,
		Code:        CodeMissingAuthHeader,
		Message:     "Missing Authorization header",
		UserMessage: "Authentication required. Provide your API key in the Authorization header as 'Bearer <key>'.",
		RequestID:   requestID,
	}
}

func RateLimitExceeded(requestID string, d RateLimitDetails) *APIError {
	return &APIError{
		Kind:        KindRateLimit,
		Code:        CodeRateLimitExceeded,
		Message:     fmt.Sprintf("Rate limit exceeded: %d of %d requests remaining", d.Remaining, d.Limit),
		UserMessage: fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", d.RetryAfter),
		RequestID:   requestID,
		Details:     d,
	}
}

// ValidationFailed builds a validation error. A nil problem list is rendered as an empty list.
func ValidationFailed(requestID string, problems []FieldError) *APIError {
	if problems == nil {
		problems = []FieldError{}
	}
	user := "The request contains invalid parameters."
	if len(problems) > 0 {
		parts := make([]string, 0, len(problems))
		for _, p := range problems {
			parts = append(parts, p.Field+": "+p.Message)
		}
		user = "The request contains invalid parameters: " + strings.Join(parts, "; ")
	}
	return &APIError{
		Kind:        KindValidation,
		Code:        CodeValidationFailed,
		Message:     fmt.Sprintf("Request validation failed with %d field error(s)", len(problems)),
		UserMessage: user,
		RequestID:   requestID,
		Details:     ValidationDetails{FieldErrors: problems},
	}
}

func InsufficientCredits(requestID string, d CreditDetails) *APIError {
	return &APIError{
		Kind:        KindInsufficientCredits,
		Code:        CodeInsufficientCredits,
		Message:     fmt.Sprintf("Insufficient credits: required %g, balance %g", d.Required, d.Balance),
		UserMessage: fmt.Sprintf("You do not have enough credits for this request (%g more needed).", d.Deficit),
		RequestID:   requestID,
		Details:     d,
	}
}

func PermissionDenied(requestID string) *APIError {
	return &APIError{
		Kind:        KindForbidden,
		Code:        CodePermissionDenied,
		Message:     "Permission denied",
		UserMessage: "You do not have permission to access this resource.",
		RequestID:   requestID,
	}
}

func NotFound(requestID, message string) *APIError {
	return &APIError{
		Kind:        KindNotFound,
		Code:        CodeResourceNotFound,
		Message:     message,
		UserMessage: "The requested resource was not found.",
		RequestID:   requestID,
	}
}

func Internal(requestID, message string) *APIError {
	return &APIError{
		Kind:        KindInternal,
		Code:        CodeInternalError,
		Message:     message,
		UserMessage: "An unexpected error occurred. Please try again later.",
		RequestID:   requestID,
	}
}
