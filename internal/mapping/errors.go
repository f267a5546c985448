package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/frantjc/port-registry/internal/portfwd"
	xslice "github.com/frantjc/x/slice"
)

var (
	// ErrParse is matched by every *ParseError.
	ErrParse = errors.New("invalid input")
	// ErrIndexOutOfBounds is matched by every *BoundsError.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// ParseError is returned when user input cannot be parsed
// into the field it was asked for.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// BoundsError is returned when a 1-based index does not
// refer to a mapping in a registry of Len mappings.
type BoundsError struct {
	Index int
	Len   int
}

func (e *BoundsError) Error() string {
	if e.Len == 0 {
		return fmt.Sprintf("mapping %d: %v: there are no mappings", e.Index, ErrIndexOutOfBounds)
	}

	return fmt.Sprintf("mapping %d: %v: expected 1 - %d", e.Index, ErrIndexOutOfBounds, e.Len)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrIndexOutOfBounds
}

// GatewayError is returned when a gateway rejects a port mapping
// request. Completed lists the Protocols whose requests succeeded
// before the failure; they are not undone.
type GatewayError struct {
	Op           string
	Protocol     portfwd.Protocol
	ExternalPort uint16
	Completed    []portfwd.Protocol
	Err          error
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("%s %s port mapping for external port %d: %v", e.Op, e.Protocol, e.ExternalPort, e.Err)
	if len(e.Completed) > 0 {
		completed := xslice.Map(e.Completed, func(protocol portfwd.Protocol, _ int) string {
			return string(protocol)
		})
		msg += fmt.Sprintf(" (%s already succeeded and was not rolled back)", strings.Join(completed, ", "))
	}

	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
