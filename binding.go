package stormbus

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// Subscriber is the declaration capability for listeners. A registering
// object implements Subscriber to state which of its methods handle which
// event types; Register discovers handlers through this declaration.
type Subscriber interface {
	// Subscriptions returns the handler bindings declared by the listener
	// type. Bindings must be built with On or OnAsync from method
	// expressions on the listener type.
	Subscriptions() []Binding
}

// Listener is the single-event capability. A type implementing Listener
// for an event type E can be registered through RegisterListener without
// declaring bindings; its Accept method is the implicit handler, executed
// synchronously unless registration forces async.
type Listener[E any] interface {
	// Accept handles one event instance.
	Accept(ctx context.Context, event E) error
}

// Binding is one declared handler: a method on a listener type, bound to
// exactly one event type and an execution mode. Bindings are immutable
// after creation.
type Binding struct {
	name         string
	listenerType reflect.Type
	eventType    reflect.Type
	async        bool

	// invoke calls the underlying method on a resolved target. The method
	// expression is unbound, so a Binding never keeps a listener alive.
	invoke func(target any, ctx context.Context, event any) error
}

// On builds a synchronous binding from a method expression.
//
//	stormbus.On((*OrderListener).OnPlaced)
func On[L, E any](fn func(L, context.Context, E) error) Binding {
	return newBinding(fn, false)
}

// OnAsync builds an asynchronous binding from a method expression. The
// handler is submitted to the bus worker pool instead of running in the
// posting goroutine.
func OnAsync[L, E any](fn func(L, context.Context, E) error) Binding {
	return newBinding(fn, true)
}

func newBinding[L, E any](fn func(L, context.Context, E) error, async bool) Binding {
	b := Binding{
		listenerType: reflect.TypeFor[L](),
		eventType:    reflect.TypeFor[E](),
		async:        async,
	}
	if fn == nil {
		return b
	}
	b.name = handlerName(fn)
	b.invoke = func(target any, ctx context.Context, event any) error {
		l, ok := target.(L)
		if !ok {
			return fmt.Errorf("%w: target %T is not %v", ErrInvalidBinding, target, b.listenerType)
		}
		e, ok := event.(E)
		if !ok {
			return fmt.Errorf("%w: event %T is not %v", ErrInvalidBinding, event, b.eventType)
		}
		return fn(l, ctx, e)
	}
	return b
}

// Name returns the fully qualified name of the bound method.
func (b Binding) Name() string {
	return b.name
}

// EventType returns the declared event type.
func (b Binding) EventType() reflect.Type {
	return b.eventType
}

// ListenerType returns the listener type the binding was declared for.
func (b Binding) ListenerType() reflect.Type {
	return b.listenerType
}

// Async reports whether the binding executes on the worker pool.
func (b Binding) Async() bool {
	return b.async
}

// validate rejects malformed bindings. A malformed declaration is a hard
// registration failure, not a silent skip.
func (b Binding) validate(listener any, required reflect.Type) error {
	if b.invoke == nil {
		return fmt.Errorf("%w: nil handler for event %v", ErrInvalidBinding, b.eventType)
	}
	if b.eventType == nil {
		return fmt.Errorf("%w: %s has no event type", ErrInvalidBinding, b.name)
	}
	if b.eventType.Kind() == reflect.Array {
		return fmt.Errorf("%w: %s subscribes to array type %v", ErrInvalidBinding, b.name, b.eventType)
	}
	lt := reflect.TypeOf(listener)
	if !lt.AssignableTo(b.listenerType) {
		return fmt.Errorf("%w: %s is declared for %v, not %v", ErrInvalidBinding, b.name, b.listenerType, lt)
	}
	if required != nil && !b.eventType.AssignableTo(required) {
		return fmt.Errorf("%w: %s subscribes to %v, which is outside the requested type %v",
			ErrInvalidBinding, b.name, b.eventType, required)
	}
	return nil
}

// handlerName resolves the symbol name behind a method expression.
func handlerName(fn any) string {
	v := reflect.ValueOf(fn)
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return "<unknown>"
}
