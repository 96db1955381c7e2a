// Package tools provides the tool registry and execution framework.
//
// This file defines the error taxonomy reported to MCP clients. Every
// failure a handler returns is classified into one [Kind] and rendered
// as a [ToolError] payload.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names a class of tool failure.
type Kind string

const (
	// KindValidation means the arguments were rejected before any
	// external call was made.
	KindValidation Kind = "validation_error"
	// KindFetch means a network call failed: timeout, connection error,
	// provider failure, or an HTTP error status.
	KindFetch Kind = "fetch_error"
	// KindParse means a response arrived but could not be interpreted.
	KindParse Kind = "parse_error"
	// KindInternal covers errors that fit no other class, including
	// recovered panics.
	KindInternal Kind = "internal_error"
)

// ValidationError reports rejected tool arguments.
type ValidationError struct {
	Tool    string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Tool, e.Message) }

// Kind implements [Kinded].
func (e *ValidationError) Kind() Kind { return KindValidation }

// FetchError reports a failed outbound request.
type FetchError struct {
	Tool    string
	Message string
	Err     error
}

func (e *FetchError) Error() string { return fmt.Sprintf("%s: %s", e.Tool, e.Message) }

// Kind implements [Kinded].
func (e *FetchError) Kind() Kind { return KindFetch }

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a response that could not be interpreted.
type ParseError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: %s", e.Tool, e.Message) }

// Kind implements [Kinded].
func (e *ParseError) Kind() Kind { return KindParse }

func (e *ParseError) Unwrap() error { return e.Err }

// Kinded is implemented by every taxonomy error.
type Kinded interface {
	error
	Kind() Kind
}

// ErrToolUnavailable is returned when a tool call targets a tool that
// is not present in the registry. It is reported to clients as a
// validation error.
type ErrToolUnavailable struct {
	ToolName string
}

// Error implements the error interface.
func (e *ErrToolUnavailable) Error() string {
	return fmt.Sprintf("tool %q is not available in this context", e.ToolName)
}

// Kind implements [Kinded].
func (e *ErrToolUnavailable) Kind() Kind { return KindValidation }

// KindOf classifies err. Wrapped taxonomy errors are found with
// errors.As; anything else is [KindInternal].
func KindOf(err error) Kind {
	var k Kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternal
}

// ToolError is the structured failure payload returned to clients.
type ToolError struct {
	Kind    Kind   `json:"kind"`
	Tool    string `json:"tool"`
	Message string `json:"message"`
}

// NewToolError builds the payload for err raised by tool.
func NewToolError(tool string, err error) ToolError {
	msg := err.Error()
	var k Kinded
	if errors.As(err, &k) {
		switch e := k.(type) {
		case *ValidationError:
			msg = e.Message
		case *FetchError:
			msg = e.Message
		case *ParseError:
			msg = e.Message
		}
	}
	return ToolError{Kind: KindOf(err), Tool: tool, Message: msg}
}

// JSON renders the payload as {"error": {...}}.
func (e ToolError) JSON() string {
	out, err := json.Marshal(map[string]ToolError{"error": e})
	if err != nil {
		// Only strings are marshaled; this cannot fail.
		return fmt.Sprintf(`{"error":{"kind":%q,"tool":%q,"message":%q}}`, e.Kind, e.Tool, e.Message)
	}
	return string(out)
}
