package apperrors

import "fmt"

// ErrConfig represents an invalid or missing configuration value.
type ErrConfig struct {
	Key    string // Configuration key (e.g., "api_key")
	Env    string // Environment variable that sets the key (e.g., "BAZARR_API_KEY")
	Reason string
}

// Error implements the error interface.
func (e *ErrConfig) Error() string {
	if e.Env != "" {
		return fmt.Sprintf("invalid configuration %s (%s): %s", e.Key, e.Env, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrConfig) Is(target error) bool {
	_, ok := target.(*ErrConfig)
	return ok
}

// NewConfigError creates a new ErrConfig.
func NewConfigError(key, env, reason string) *ErrConfig {
	return &ErrConfig{
		Key:    key,
		Env:    env,
		Reason: reason,
	}
}

// ErrUpstreamStatus is returned when Bazarr answers with a non-2xx status code.
type ErrUpstreamStatus struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *ErrUpstreamStatus) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstreamStatus) Is(target error) bool {
	_, ok := target.(*ErrUpstreamStatus)
	return ok
}

// IsUnauthorized reports whether the API key was rejected.
func (e *ErrUpstreamStatus) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimited reports whether Bazarr throttled the request.
func (e *ErrUpstreamStatus) IsRateLimited() bool {
	return e.StatusCode == 429
}

// ErrMalformedResponse is returned when a Bazarr response body cannot be decoded.
type ErrMalformedResponse struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ErrMalformedResponse) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *ErrMalformedResponse) Unwrap() error {
	return e.Err
}

// Is allows for error checking with errors.Is().
func (e *ErrMalformedResponse) Is(target error) bool {
	_, ok := target.(*ErrMalformedResponse)
	return ok
}
