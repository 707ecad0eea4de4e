package stormbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bus.
var (
	// ErrNilListener is returned when a nil listener is registered.
	ErrNilListener = errors.New("nil listener cannot be registered")

	// ErrNilEvent is returned when a nil event is posted.
	ErrNilEvent = errors.New("nil event cannot be posted")

	// ErrAlreadyRegistered is returned when a listener is registered twice
	// with the same ownership mode.
	ErrAlreadyRegistered = errors.New("listener has already been registered")

	// ErrNoHandlers is returned when registration discovers no handler
	// bindings on the listener.
	ErrNoHandlers = errors.New("listener has no subscribable handler bindings")

	// ErrNoSubscribers is returned by Post with the RequireSubscribers
	// option when no subscriber matches the event.
	ErrNoSubscribers = errors.New("no subscribers found for event")

	// ErrInvalidBinding is returned when a declared binding is malformed.
	ErrInvalidBinding = errors.New("invalid handler binding")

	// ErrBusClosed is returned when operations are attempted on a closed bus.
	ErrBusClosed = errors.New("event bus is closed")

	// ErrNoCurrent is returned by DeregisterSelf when the context does not
	// carry a current (bus, listener) pair.
	ErrNoCurrent = errors.New("no current bus invocation in context")

	// ErrHandlerPanic is returned when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panicked: %v", e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// InvocationError wraps an error from a handler with the identity of the
// failing subscription.
type InvocationError struct {
	// Subscription identifies the failing handler binding.
	Subscription SubscriptionInfo

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return "invocation of " + e.Subscription.Handler + " failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error {
	return e.Err
}
