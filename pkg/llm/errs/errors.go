// Package errs implements the SDK error taxonomy: retryable/non-retryable
// kinds and a status-code/message classifier shared by every adapter.
package errs

import (
	"fmt"
	"strings"
)

// Kind identifies the category of an SDKError.
type Kind string

const (
	KindAuthentication    Kind = "authentication"
	KindAccessDenied      Kind = "access_denied"
	KindNotFound          Kind = "not_found"
	KindInvalidRequest    Kind = "invalid_request"
	KindRateLimit         Kind = "rate_limit"
	KindServer            Kind = "server"
	KindContentFilter     Kind = "content_filter"
	KindContextLength     Kind = "context_length"
	KindQuotaExceeded     Kind = "quota_exceeded"
	KindRequestTimeout    Kind = "request_timeout"
	KindNetwork           Kind = "network"
	KindStream            Kind = "stream"
	KindAbort             Kind = "abort"
	KindInvalidToolCall   Kind = "invalid_tool_call"
	KindNoObjectGenerated Kind = "no_object_generated"
	KindConfiguration     Kind = "configuration"
)

var retryableKinds = map[Kind]bool{
	KindRateLimit:      true,
	KindServer:         true,
	KindRequestTimeout: true,
	KindNetwork:        true,
	KindStream:         true,
}

// Retryable reports whether errors of this kind should be retried.
func (k Kind) Retryable() bool { return retryableKinds[k] }

// SDKError is the single error type produced by this module. Every
// constructor below returns one, tagged by Kind; callers check kind with
// Is or by comparing Kind() directly.
type SDKError struct {
	kind       Kind
	message    string
	Provider   string
	StatusCode int
	ErrorCode  string
	RetryAfter *float64
	Raw        map[string]any
	cause      error
}

func (e *SDKError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.kind, e.message)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

func (e *SDKError) Unwrap() error { return e.cause }

// Kind returns the error's taxonomy kind.
func (e *SDKError) Kind() Kind { return e.kind }

// Retryable reports whether this specific error should be retried.
func (e *SDKError) Retryable() bool { return e.kind.Retryable() }

// Is reports whether err is an *SDKError of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*SDKError)
	return ok && se.kind == kind
}

// New constructs a provider-tagged SDKError of the given kind.
func New(kind Kind, message string, opts ...Option) *SDKError {
	e := &SDKError{kind: kind, message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Option configures an SDKError at construction time.
type Option func(*SDKError)

func WithProvider(provider string) Option { return func(e *SDKError) { e.Provider = provider } }
func WithStatusCode(code int) Option      { return func(e *SDKError) { e.StatusCode = code } }
func WithErrorCode(code string) Option    { return func(e *SDKError) { e.ErrorCode = code } }
func WithRetryAfter(seconds float64) Option {
	return func(e *SDKError) { e.RetryAfter = &seconds }
}
func WithRaw(raw map[string]any) Option { return func(e *SDKError) { e.Raw = raw } }
func WithCause(cause error) Option      { return func(e *SDKError) { e.cause = cause } }

// Convenience constructors mirroring the non-provider error kinds.
func NewRequestTimeoutError(message string) *SDKError { return New(KindRequestTimeout, message) }
func NewAbortError(message string) *SDKError          { return New(KindAbort, message) }
func NewNetworkError(message string, cause error) *SDKError {
	return New(KindNetwork, message, WithCause(cause))
}
func NewStreamError(message string, cause error) *SDKError {
	return New(KindStream, message, WithCause(cause))
}
func NewInvalidToolCallError(message string) *SDKError { return New(KindInvalidToolCall, message) }
func NewNoObjectGeneratedError(message string, cause error) *SDKError {
	return New(KindNoObjectGenerated, message, WithCause(cause))
}
func NewConfigurationError(message string) *SDKError { return New(KindConfiguration, message) }

var statusMap = map[int]Kind{
	400: KindInvalidRequest,
	401: KindAuthentication,
	403: KindAccessDenied,
	404: KindNotFound,
	408: KindRequestTimeout,
	413: KindContextLength,
	422: KindInvalidRequest,
	429: KindRateLimit,
	500: KindServer,
	502: KindServer,
	503: KindServer,
	504: KindServer,
}

var messagePatterns = []struct {
	substrings []string
	kind       Kind
}{
	{[]string{"not found", "does not exist"}, KindNotFound},
	{[]string{"unauthorized", "invalid key"}, KindAuthentication},
	{[]string{"context length", "too many tokens"}, KindContextLength},
	{[]string{"content filter", "safety"}, KindContentFilter},
}

// FromStatusCode classifies an HTTP status code and message into an
// SDKError, per the shared status->kind table with message-substring
// fallback for unmapped statuses. Unknown statuses default to KindServer
// (retryable).
func FromStatusCode(statusCode int, message, provider string, retryAfter *float64, raw map[string]any) *SDKError {
	kind, ok := statusMap[statusCode]
	if !ok {
		lower := strings.ToLower(message)
		for _, p := range messagePatterns {
			for _, s := range p.substrings {
				if strings.Contains(lower, s) {
					kind = p.kind
					ok = true
					break
				}
			}
			if ok {
				break
			}
		}
	}
	if !ok {
		kind = KindServer
	}

	opts := []Option{WithProvider(provider), WithStatusCode(statusCode)}
	if raw != nil {
		opts = append(opts, WithRaw(raw))
	}
	if retryAfter != nil {
		opts = append(opts, WithRetryAfter(*retryAfter))
	}
	return New(kind, message, opts...)
}
