package providers

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// FailoverReason categorizes why a provider call failed, driving both
// cooldown duration and whether the fallback chain retries with the next
// candidate.
type FailoverReason string

const (
	FailoverAuth         FailoverReason = "auth"
	FailoverRateLimit    FailoverReason = "rate_limit"
	FailoverBilling      FailoverReason = "billing"
	FailoverTimeout      FailoverReason = "timeout"
	FailoverOverloaded   FailoverReason = "overloaded"
	FailoverModelInvalid FailoverReason = "model_invalid"
	FailoverFormat       FailoverReason = "format"
	FailoverUnknown      FailoverReason = "unknown"
)

// FailoverError classifies a raw provider error into a FailoverReason,
// retaining the provider/model it occurred against and the original error.
type FailoverError struct {
	Reason   FailoverReason
	Provider string
	Model    string
	Status   int
	Wrapped  error
}

func (e *FailoverError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s (model %s) failed: %s (status %d): %v", e.Provider, e.Model, e.Reason, e.Status, e.Wrapped)
	}
	return fmt.Sprintf("provider %s (model %s) failed: %s: %v", e.Provider, e.Model, e.Reason, e.Wrapped)
}

func (e *FailoverError) Unwrap() error {
	return e.Wrapped
}

// IsRetriable reports whether the fallback chain should try the next
// candidate. Format errors are a client-side mistake that will fail
// identically against any model, so they are not retriable.
func (e *FailoverError) IsRetriable() bool {
	return e.Reason != FailoverFormat
}

// IsModelInvalid reports whether the error means the requested model
// itself is unusable (distinct from a transient provider failure), which
// callers use to drop the model from future candidate lists.
func (e *FailoverError) IsModelInvalid() bool {
	return e.Reason == FailoverModelInvalid
}

var (
	rateLimitPatterns = []string{
		"rate limit", "rate_limit", "too many requests", "exceeded your current quota",
		"resource has been exhausted", "resource_exhausted", "quota exceeded", "usage limit",
		"overloaded_error", "overloaded",
	}
	billingPatterns = []string{
		"payment required", "insufficient credits", "credit balance too low",
		"plans & billing", "insufficient balance",
	}
	timeoutPatterns = []string{
		"request timeout", "connection timed out", "deadline exceeded", "timed out",
	}
	authPatterns = []string{
		"invalid api key", "invalid_api_key", "incorrect api key", "invalid token",
		"authentication failed", "re-authenticate", "oauth token refresh failed",
		"unauthorized", "forbidden", "access denied", "expired", "no credentials found",
		"no api key found",
	}
	formatPatterns = []string{
		"string should match pattern", "tool_use.id is required", "invalid tool_use_id",
		"tool_use.id must be valid", "invalid request format",
	}
	modelInvalidPatterns = []string{
		"is not a valid model", "model not found", "model_not_found", "not available in this region",
		"does not exist or you do not have access", "no such model", "invalid model specified",
		"is not supported", "is unavailable", "is deprecated",
	}
)

var httpStatusPattern = regexp.MustCompile(`(?i)(?:status|HTTP/\d\.\d)[:\s]*(\d{3})`)

// extractHTTPStatus pulls a 3-digit HTTP status code out of a raw error
// message, or 0 if none is present.
func extractHTTPStatus(msg string) int {
	m := httpStatusPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	status, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return status
}

// IsImageDimensionError reports whether msg describes an image exceeding a
// provider's maximum dimensions. Non-retriable: resubmitting to another
// model won't help until the image itself changes.
func IsImageDimensionError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "image dimensions exceed") || strings.Contains(msg, "dimensions exceed max")
}

// IsImageSizeError reports whether msg describes an image exceeding a
// provider's maximum upload size.
func IsImageSizeError(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "image exceeds") && strings.Contains(msg, "mb")
}

func containsAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// ClassifyError turns a raw provider error into a FailoverError, or nil if
// the error is either absent, a user-initiated cancellation, or doesn't
// match any recognized pattern. context.Canceled is deliberately excluded
// from classification: it means the caller gave up, not that the provider
// failed.
func ClassifyError(err error, provider, model string) *FailoverError {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FailoverError{Reason: FailoverTimeout, Provider: provider, Model: model, Wrapped: err}
	}

	msg := strings.ToLower(err.Error())
	status := extractHTTPStatus(msg)

	// Model-invalid patterns win over any status code: a 400 that is
	// actually "this model doesn't exist" must stay retriable so the
	// fallback chain can move on to the next candidate.
	if containsAny(msg, modelInvalidPatterns) {
		return &FailoverError{Reason: FailoverModelInvalid, Provider: provider, Model: model, Status: status, Wrapped: err}
	}

	if IsImageDimensionError(msg) || IsImageSizeError(msg) {
		return &FailoverError{Reason: FailoverFormat, Provider: provider, Model: model, Status: status, Wrapped: err}
	}

	if containsAny(msg, formatPatterns) {
		return &FailoverError{Reason: FailoverFormat, Provider: provider, Model: model, Status: status, Wrapped: err}
	}
	if containsAny(msg, billingPatterns) {
		return &FailoverError{Reason: FailoverBilling, Provider: provider, Model: model, Status: status, Wrapped: err}
	}
	if containsAny(msg, rateLimitPatterns) {
		return &FailoverError{Reason: FailoverRateLimit, Provider: provider, Model: model, Status: status, Wrapped: err}
	}
	if containsAny(msg, authPatterns) {
		return &FailoverError{Reason: FailoverAuth, Provider: provider, Model: model, Status: status, Wrapped: err}
	}
	if containsAny(msg, timeoutPatterns) {
		return &FailoverError{Reason: FailoverTimeout, Provider: provider, Model: model, Status: status, Wrapped: err}
	}

	switch status {
	case 401, 403:
		return &FailoverError{Reason: FailoverAuth, Provider: provider, Model: model, Status: status, Wrapped: err}
	case 402:
		return &FailoverError{Reason: FailoverBilling, Provider: provider, Model: model, Status: status, Wrapped: err}
	case 408:
		return &FailoverError{Reason: FailoverTimeout, Provider: provider, Model: model, Status: status, Wrapped: err}
	case 429:
		return &FailoverError{Reason: FailoverRateLimit, Provider: provider, Model: model, Status: status, Wrapped: err}
	case 400:
		return &FailoverError{Reason: FailoverModelInvalid, Provider: provider, Model: model, Status: status, Wrapped: err}
	case 500, 502, 503, 521, 522, 523, 524, 529:
		return &FailoverError{Reason: FailoverTimeout, Provider: provider, Model: model, Status: status, Wrapped: err}
	}

	return nil
}
