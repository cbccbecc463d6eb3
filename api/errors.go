package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind represents the category of a failed call.
type Kind int

const (
	// KindTransport indicates no usable response was received
	KindTransport Kind = iota
	// KindValidation indicates a 4xx rejection of the request body or parameters
	KindValidation
	// KindUnauthorized indicates a 401/403
	KindUnauthorized
	// KindNotFound indicates a 404
	KindNotFound
	// KindServer indicates a 5xx
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is returned for every failed call.
type Error struct {
	Kind    Kind
	Status  int
	Method  string
	Path    string
	Message string   // from the structured body, if any
	Details []string // field or form level messages
	Cause   error
}

// Error returns the error message
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %s", e.Kind, e.Method, e.Path)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// KindForStatus maps an HTTP status to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// IsKind checks if err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// IsNotFound reports a 404 on a detail fetch.
func IsNotFound(err error) bool {
	return IsKind(err, KindNotFound)
}

// UserMessage returns the text to show for err. Validation errors carry the server's
// message and details; everything else gets fallback.
func UserMessage(err error, fallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindValidation {
		return fallback
	}
	parts := make([]string, 0, 1+len(apiErr.Details))
	if apiErr.Message != "" {
		parts = append(parts, apiErr.Message)
	}
	parts = append(parts, apiErr.Details...)
	if len(parts) == 0 {
		return fallback
	}
	return strings.Join(parts, "; ")
}
