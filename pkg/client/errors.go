package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrNoSearchResult is returned when the response envelope has no data.search object.
	ErrNoSearchResult = errors.New("response has no search result")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassTransport represents network and timeout errors.
	ErrorClassTransport ErrorClass = "transport"

	// ErrorClassStatus represents non-2xx HTTP responses.
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassDecode represents malformed JSON or an unexpected envelope shape.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassGraphQL represents top-level GraphQL errors in the response.
	ErrorClassGraphQL ErrorClass = "graphql"
)

// APIError is returned by FetchPage for every failure.
// The class is informational; no class is retried or recovered.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		if e.Err != nil {
			return fmt.Sprintf("omnivore %s error (status %d): %s: %v", e.Class, e.StatusCode, e.Message, e.Err)
		}
		return fmt.Sprintf("omnivore %s error (status %d): %s", e.Class, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("omnivore %s error: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("omnivore %s error: %s", e.Class, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassOf returns the class of err, or "" when err is not an *APIError.
func ClassOf(err error) ErrorClass {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Class
	}
	return ""
}
