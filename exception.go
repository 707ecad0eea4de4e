package stormbus

import (
	"context"

	"go.uber.org/zap"
)

// ExceptionEvent is the designated event type for handler failures. When
// a handler returns an error or panics, the bus wraps the failure in an
// ExceptionEvent and dispatches it to any subscribers of this type. The
// original poster never sees the failure.
type ExceptionEvent struct {
	// Event is the event whose handling failed.
	Event any

	// Subscription identifies the failing handler binding.
	Subscription SubscriptionInfo

	// Err is the cause: the handler's error, or a *PanicError for a
	// recovered panic.
	Err error
}

// errorRouter redispatches handler failures to ExceptionEvent
// subscribers, or logs them when none exist.
type errorRouter struct {
	bus *Bus
	log *zap.Logger
}

// handle routes one invocation failure. Failures raised while handling an
// ExceptionEvent itself are only logged, so error handling cannot recurse.
func (er *errorRouter) handle(ctx context.Context, event any, rec *record, cause error) {
	er.log.Error("handler invocation failed",
		zap.String("handler", rec.name),
		zap.Stringer("event_type", rec.eventType),
		zap.Error(cause))

	if _, nested := event.(ExceptionEvent); nested {
		return
	}

	exc := ExceptionEvent{
		Event:        event,
		Subscription: rec.info(),
		Err:          &InvocationError{Subscription: rec.info(), Err: cause},
	}
	subs := er.bus.registry.subscribers(exc)
	if len(subs) == 0 {
		return
	}
	er.bus.dispatcher.dispatch(ctx, exc, newHandlerChain(subs))
}
