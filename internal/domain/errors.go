package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the domain layer.
var (
	ErrToolNotFound    = fmt.Errorf("tool not found")
	ErrToolFailure     = fmt.Errorf("tool execution failed")
	ErrMaxIterations   = fmt.Errorf("agent reached max iterations")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrRateLimited     = fmt.Errorf("user message rate limit exceeded")
	ErrConfigLoad      = fmt.Errorf("failed to load configuration")
	ErrArticleNotFound = fmt.Errorf("article not found")
	ErrSettingNotFound = fmt.Errorf("setting not found")

	// Provider errors, mapped from LLM API status codes.
	ErrRateLimit       = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid     = fmt.Errorf("authentication failed")
	ErrContextOverflow = fmt.Errorf("context window exceeded")
	ErrProviderError   = fmt.Errorf("provider error")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Get")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit) || errors.Is(err, ErrProviderError)
}

// ErrorCode is a machine-parseable error category for monitoring and alerting.
type ErrorCode string

// Error codes. Every sentinel error maps to exactly one code.
const (
	CodeUnknown         ErrorCode = "UNKNOWN"
	CodeToolNotFound    ErrorCode = "TOOL_NOT_FOUND"
	CodeToolFailure     ErrorCode = "TOOL_FAILURE"
	CodeMaxIterations   ErrorCode = "MAX_ITERATIONS"
	CodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeConfigLoad      ErrorCode = "CONFIG_LOAD"
	CodeArticleNotFound ErrorCode = "ARTICLE_NOT_FOUND"
	CodeSettingNotFound ErrorCode = "SETTING_NOT_FOUND"
	CodeRateLimit       ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid     ErrorCode = "AUTH_INVALID"
	CodeContextOverflow ErrorCode = "CONTEXT_OVERFLOW"
	CodeProviderError   ErrorCode = "PROVIDER_ERROR"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrToolNotFound:    CodeToolNotFound,
	ErrToolFailure:     CodeToolFailure,
	ErrMaxIterations:   CodeMaxIterations,
	ErrSessionNotFound: CodeSessionNotFound,
	ErrRateLimited:     CodeRateLimited,
	ErrConfigLoad:      CodeConfigLoad,
	ErrArticleNotFound: CodeArticleNotFound,
	ErrSettingNotFound: CodeSettingNotFound,
	ErrRateLimit:       CodeRateLimit,
	ErrAuthInvalid:     CodeAuthInvalid,
	ErrContextOverflow: CodeContextOverflow,
	ErrProviderError:   CodeProviderError,
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// It unwraps DomainError and uses errors.Is to match sentinel errors.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code, ok := errorCodeMap[de.Err]; ok {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}
