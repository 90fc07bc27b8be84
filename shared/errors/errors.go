package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrNotFound      = &ErrorWithStatusCode{Message: "not found", StatusCode: http.StatusNotFound}
	ErrAlreadyExists = &ErrorWithStatusCode{Message: "already exists", StatusCode: http.StatusConflict}
	// ErrWriteConflict is returned by the content store when two writers
	// claim the same sequence position. The commit may be retried.
	ErrWriteConflict = errors.New("write conflict")
)

// default error is internal service error at handler level
// if error has different status code use ErrorWithStatusCode
type ErrorWithStatusCode struct {
	Message    string
	StatusCode int
}

func (e *ErrorWithStatusCode) Error() string {
	return e.Message
}

func (e *ErrorWithStatusCode) HTTPStatus() int {
	return e.StatusCode
}

// HTTPError is implemented by every error that knows its response code.
type HTTPError interface {
	error
	HTTPStatus() int
}

// Rejection is a submission refused by policy. Name is the wire name of the
// rejection kind and is stable across releases.
type Rejection interface {
	HTTPError
	Name() string
}

type RateLimitedError struct {
	Timeleft int // seconds
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("You are posting too fast. Please wait %d seconds before posting again.", e.Timeleft)
}
func (e *RateLimitedError) Name() string    { return "rate_limited" }
func (e *RateLimitedError) HTTPStatus() int { return http.StatusTooManyRequests }

type ParamsInvalidError struct {
	Fields map[string][]string
}

func (e *ParamsInvalidError) Error() string {
	if len(e.Fields) == 0 {
		return "Request contains invalid parameters."
	}
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+strings.Join(e.Fields[field], ", "))
	}
	return "Request contains invalid parameters: " + strings.Join(parts, "; ")
}
func (e *ParamsInvalidError) Name() string    { return "params_invalid" }
func (e *ParamsInvalidError) HTTPStatus() int { return http.StatusBadRequest }

type StatusRejectedError struct {
	Status string
}

func (e *StatusRejectedError) Error() string {
	switch e.Status {
	case "locked":
		return "This board or topic is currently locked and cannot be posted to."
	case "archived":
		return "This board or topic has been archived and cannot be posted to."
	case "restricted":
		return "New topics cannot be created on this board."
	default:
		return fmt.Sprintf("Posting is not allowed while status is %q.", e.Status)
	}
}
func (e *StatusRejectedError) Name() string    { return "status_rejected" }
func (e *StatusRejectedError) HTTPStatus() int { return http.StatusLocked }

type SpamRejectedError struct{}

func (e *SpamRejectedError) Error() string {
	return "The content you submitted was identified as spam."
}
func (e *SpamRejectedError) Name() string    { return "spam_rejected" }
func (e *SpamRejectedError) HTTPStatus() int { return http.StatusUnprocessableEntity }

type DnsblRejectedError struct{}

func (e *DnsblRejectedError) Error() string {
	return "Your network address is listed in a public blocklist."
}
func (e *DnsblRejectedError) Name() string    { return "dnsbl_rejected" }
func (e *DnsblRejectedError) HTTPStatus() int { return http.StatusForbidden }

type BanRejectedError struct{}

func (e *BanRejectedError) Error() string {
	return "Your network address has been banned from posting."
}
func (e *BanRejectedError) Name() string    { return "ban_rejected" }
func (e *BanRejectedError) HTTPStatus() int { return http.StatusUnavailableForLegalReasons }

// InfrastructureError is a submission that could not be committed for
// reasons unrelated to its content.
type InfrastructureError struct {
	Message string
}

func (e *InfrastructureError) Error() string {
	if e.Message == "" {
		return "The submission could not be processed. Please try again."
	}
	return "The submission could not be processed: " + e.Message
}
func (e *InfrastructureError) Name() string    { return "infra_failure" }
func (e *InfrastructureError) HTTPStatus() int { return http.StatusServiceUnavailable }

// StatusCode returns the HTTP status for err, defaulting to 500.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
