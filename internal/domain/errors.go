package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the BFF.

// ErrValidation indicates a required form field is missing or malformed.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrAuth is a failure reported by the upstream auth endpoints
// (bad credentials, duplicate registration). Message is shown verbatim.
type ErrAuth struct {
	Message string
}

func (e *ErrAuth) Error() string {
	return e.Message
}

// ErrNetwork indicates no usable response was received from an upstream service.
type ErrNetwork struct {
	Service string
	Err     error
}

func (e *ErrNetwork) Error() string {
	return fmt.Sprintf("network error [%s]: %v", e.Service, e.Err)
}

func (e *ErrNetwork) Unwrap() error {
	return e.Err
}

// ErrFetch indicates a dashboard fetch answered with a non-2xx status.
type ErrFetch struct {
	Resource string
	Status   int
	Message  string
}

func (e *ErrFetch) Error() string {
	return e.Message
}

// ErrSessionRequired indicates an operation that needs an authenticated workspace.
type ErrSessionRequired struct{}

func (e *ErrSessionRequired) Error() string {
	return "session required"
}

// ErrSurfaceClosed is returned when drawing on a surface whose owner was torn down.
var ErrSurfaceClosed = errors.New("chart surface closed")

// ErrChartReleased is returned when using a chart object after it was destroyed.
var ErrChartReleased = errors.New("chart released")

// ErrWorkspaceClosed is returned when signing in to a workspace that already expired.
var ErrWorkspaceClosed = errors.New("workspace closed")

// Generic user-facing messages.
const (
	MsgNetworkError       = "Network error"
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed"
	MsgMetricsFailed      = "Failed to fetch metrics"
	MsgTrendsFailed       = "Failed to fetch trends"
)

// UserMessage maps an error to the text displayed to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation *ErrValidation
	var auth *ErrAuth
	var network *ErrNetwork
	var fetch *ErrFetch

	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &auth):
		return auth.Message
	case errors.As(err, &network):
		return MsgNetworkError
	case errors.As(err, &fetch):
		return fetch.Message
	default:
		return err.Error()
	}
}
