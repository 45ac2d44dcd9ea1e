package event

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Sentinel errors for usage mistakes.
var (
	// ErrUnsupportedOperation indicates a capability the event does not have,
	// such as cancelling a non-cancellable event.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidPriority indicates a priority outside the defined tiers.
	ErrInvalidPriority = errors.New("invalid priority")

	// ErrNilHandler indicates a subscription without a handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrNilEvent indicates Broadcast was called with a nil event.
	ErrNilEvent = errors.New("event cannot be nil")
)

// UsageError reports a programming mistake. It fails the call, never the process.
type UsageError struct {
	Op  string // Operation that was attempted
	Msg string // Human readable detail
	Err error  // Sentinel (ErrUnsupportedOperation, ErrInvalidPriority, ...)
}

// Error implements error interface.
func (e *UsageError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the sentinel error.
func (e *UsageError) Unwrap() error {
	return e.Err
}

// ListenerError wraps a failure of a single listener with its context.
type ListenerError struct {
	EventType string   // Type name of the event being delivered
	Listener  string   // Listener ID
	Name      string   // Listener name, if one was given
	Priority  Priority // Priority bucket of the listener
	Panicked  bool     // The handler panicked rather than returning an error
	Err       error    // Underlying error
}

// Error implements error interface.
func (e *ListenerError) Error() string {
	who := e.Listener
	if e.Name != "" {
		who = e.Name + " (" + e.Listener + ")"
	}
	if e.Panicked {
		return fmt.Sprintf("listener %s [%s] panicked on %s: %v", who, e.Priority, e.EventType, e.Err)
	}
	return fmt.Sprintf("listener %s [%s] failed on %s: %v", who, e.Priority, e.EventType, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// DeliveryError aggregates every listener failure of one broadcast.
// The broadcast itself still completed; the event is returned alongside.
type DeliveryError struct {
	Event Event
	err   error // combined with multierr
}

func newDeliveryError(e Event, combined error) *DeliveryError {
	return &DeliveryError{Event: e, err: combined}
}

// Error implements error interface.
func (e *DeliveryError) Error() string {
	errs := multierr.Errors(e.err)
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("broadcast %s: %d listener(s) failed: %s",
		TypeName(e.Event), len(errs), strings.Join(msgs, "; "))
}

// Unwrap returns the individual failures.
func (e *DeliveryError) Unwrap() []error {
	return multierr.Errors(e.err)
}

// Failures returns the listener failures, skipping non-listener errors
// such as context cancellation.
func (e *DeliveryError) Failures() []*ListenerError {
	var out []*ListenerError
	for _, err := range multierr.Errors(e.err) {
		var le *ListenerError
		if errors.As(err, &le) {
			out = append(out, le)
		}
	}
	return out
}
