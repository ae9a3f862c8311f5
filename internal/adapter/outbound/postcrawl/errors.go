package postcrawl

import (
	"encoding/json"
	"time"

	"github.com/i2y/postcrawl-mcp/internal/domain"
)

// Upstream error types carried in error.type of the error envelope.
const (
	upstreamAuthentication      = "authentication_error"
	upstreamRateLimit           = "rate_limit_error"
	upstreamValidation          = "validation_error"
	upstreamInsufficientCredits = "insufficient_credits_error"
	upstreamForbidden           = "forbidden_error"
	upstreamNotFound            = "not_found_error"
)

const (
	defaultRetryAfter = 60 // seconds
	defaultResetDelay = time.Minute
)

// errorEnvelope is the error body returned by the remote API:
//
//	{"type": "error", "error": {"type": "...", "message": "...", "request_id": "...", "details": {...}}}
type errorEnvelope struct {
	Type  string         `json:"type"`
	Error *upstreamError `json:"error"`
}

type upstreamError struct {
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Details   json.RawMessage `json:"details"`
}

type rateLimitPayload struct {
	Limit      float64 `json:"limit"`
	Remaining  float64 `json:"remaining"`
	ResetAt    float64 `json:"reset_at"`
	RetryAfter float64 `json:"retry_after"`
}

type creditsPayload struct {
	Balance   float64  `json:"balance"`
	Available float64  `json:"available"`
	Required  *float64 `json:"required"`
	Deficit   float64  `json:"deficit"`
}

type validationPayload struct {
	FieldErrors []json.RawMessage `json:"field_errors"`
}

type fieldErrorPayload struct {
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Expected string `json:"expected"`
}

// classify converts a non-2xx response into an APIError. statusLine is the
// HTTP status as "429 Too Many Requests"; requestID is used when the body
// does not carry its own.
func classify(statusLine string, body []byte, requestID string, now time.Time) *domain.APIError {
	failed := "API request failed: " + statusLine

	if !json.Valid(body) {
		return domain.Internal(requestID, failed)
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Type != "error" || env.Error == nil {
		return domain.Internal(requestID, failed)
	}

	upstream := env.Error
	if upstream.RequestID != "" {
		requestID = upstream.RequestID
	}

	switch upstream.Type {
	case upstreamAuthentication:
		return domain.InvalidAPIKey(requestID)

	case upstreamRateLimit:
		var p rateLimitPayload
		decodeDetails(upstream.Details, &p)
		d := domain.RateLimitDetails{
			Limit:      int64(p.Limit),
			Remaining:  int64(p.Remaining),
			ResetAt:    int64(p.ResetAt),
			RetryAfter: int64(p.RetryAfter),
		}
		if d.ResetAt == 0 {
			d.ResetAt = now.Add(defaultResetDelay).UnixMilli()
		}
		if d.RetryAfter == 0 {
			d.RetryAfter = defaultRetryAfter
		}
		return domain.RateLimitExceeded(requestID, d)

	case upstreamValidation:
		return domain.ValidationFailed(requestID, fieldErrors(upstream.Details))

	case upstreamInsufficientCredits:
		var p creditsPayload
		decodeDetails(upstream.Details, &p)
		d := domain.CreditDetails{Balance: p.Balance, Deficit: p.Deficit}
		if d.Balance == 0 {
			d.Balance = p.Available
		}
		if p.Required != nil {
			d.Required = *p.Required
			if d.Deficit == 0 {
				d.Deficit = d.Required - d.Balance
			}
		}
		return domain.InsufficientCredits(requestID, d)

	case upstreamForbidden:
		return domain.PermissionDenied(requestID)

	case upstreamNotFound:
		return domain.NotFound(requestID, orMessage(upstream.Message, "Resource not found"))

	default:
		return domain.Internal(requestID, orMessage(upstream.Message, "An unexpected error occurred"))
	}
}

// fieldErrors extracts per-field problems from validation details. Entries
// without a field name are skipped; entries with codes other than
// missing_required and invalid_format are kept with their upstream code.
func fieldErrors(details json.RawMessage) []domain.FieldError {
	var p validationPayload
	decodeDetails(details, &p)

	problems := make([]domain.FieldError, 0, len(p.FieldErrors))
	for _, raw := range p.FieldErrors {
		var fe fieldErrorPayload
		if err := json.Unmarshal(raw, &fe); err != nil || fe.Field == "" {
			continue
		}
		switch fe.Code {
		case domain.FieldCodeMissingRequired:
			problems = append(problems, domain.MissingField(fe.Field))
		case domain.FieldCodeInvalidFormat:
			problems = append(problems, domain.InvalidFormat(fe.Field, orMessage(fe.Expected, "valid format")))
		default:
			problems = append(problems, domain.FieldError{
				Field:   fe.Field,
				Code:    orMessage(fe.Code, "unspecified"),
				Message: orMessage(fe.Message, "Invalid value"),
			})
		}
	}
	return problems
}

// decodeDetails fills out from details when details is a JSON object. Anything
// else leaves out untouched so callers fall back to defaults.
func decodeDetails(details json.RawMessage, out any) {
	if len(details) == 0 || details[0] != '{' {
		return
	}
	_ = json.Unmarshal(details, out)
}

func orMessage(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
