package client

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "status error without wrapped error",
			apiError: &APIError{
				Class:      ErrorClassStatus,
				StatusCode: 500,
				Message:    "500 Internal Server Error",
			},
			expected: "omnivore status error (status 500): 500 Internal Server Error",
		},
		{
			name: "decode error with status and wrapped error",
			apiError: &APIError{
				Class:      ErrorClassDecode,
				StatusCode: 200,
				Message:    "decode response",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "omnivore decode error (status 200): decode response: unexpected EOF",
		},
		{
			name: "transport error without status",
			apiError: &APIError{
				Class:   ErrorClassTransport,
				Message: "request failed",
				Err:     io.EOF,
			},
			expected: "omnivore transport error: request failed: EOF",
		},
		{
			name: "bare message",
			apiError: &APIError{
				Class:   ErrorClassGraphQL,
				Message: "boom",
			},
			expected: "omnivore graphql error: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	err := &APIError{Class: ErrorClassDecode, Err: ErrNoSearchResult}

	if !errors.Is(err, ErrNoSearchResult) {
		t.Error("errors.Is should find ErrNoSearchResult")
	}

	var target *APIError
	if !errors.As(fmt.Errorf("fetch page: %w", err), &target) {
		t.Fatal("errors.As should find *APIError through wrapping")
	}
	if target.Class != ErrorClassDecode {
		t.Errorf("Class = %q, want %q", target.Class, ErrorClassDecode)
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ""},
		{"plain error", io.EOF, ""},
		{"api error", &APIError{Class: ErrorClassStatus}, ErrorClassStatus},
		{"wrapped api error", fmt.Errorf("x: %w", &APIError{Class: ErrorClassTransport}), ErrorClassTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.err); got != tt.expected {
				t.Errorf("ClassOf() = %q, want %q", got, tt.expected)
			}
		})
	}
}
