// Package apperr defines the error kinds surfaced by the account services.
// Every failure that crosses a service boundary is an *Error carrying a Kind,
// so handlers can map it to a status code without string matching.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAlreadyExists
	KindNotFound
	KindAllocationExhausted
	KindUpstreamUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFound:
		return "not_found"
	case KindAllocationExhausted:
		return "allocation_exhausted"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	default:
		return "unknown"
	}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type Error struct {
	Kind Kind

	// Resource, Field and Value identify the lookup that failed for
	// KindNotFound, or the upstream service for KindUpstreamUnavailable.
	Resource string
	Field    string
	Value    string

	Message string
	Details []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Kind == KindNotFound:
		return fmt.Sprintf("%s not found with the given input data %s : '%s'", e.Resource, e.Field, e.Value)
	case e.Kind == KindValidation && len(e.Details) > 0:
		parts := make([]string, 0, len(e.Details))
		for _, d := range e.Details {
			parts = append(parts, d.Field+": "+d.Message)
		}
		return "invalid input: " + strings.Join(parts, "; ")
	case e.Kind == KindUpstreamUnavailable && e.Err != nil:
		return fmt.Sprintf("%s unavailable: %v", e.Resource, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(resource, field, value string) *Error {
	return &Error{Kind: KindNotFound, Resource: resource, Field: field, Value: value}
}

func AlreadyExists(message string) *Error {
	return &Error{Kind: KindAlreadyExists, Message: message}
}

func Validation(details []FieldError) *Error {
	return &Error{Kind: KindValidation, Details: details}
}

func AllocationExhausted(attempts int) *Error {
	return &Error{
		Kind:    KindAllocationExhausted,
		Message: fmt.Sprintf("could not allocate a free account number after %d attempts", attempts),
	}
}

func UpstreamUnavailable(service string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Resource: service, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
