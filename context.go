package stormbus

import "context"

// Current identifies the bus and listener whose handler is presently
// executing. The dispatcher attaches it to the context of every handler
// invocation.
type Current struct {
	// Bus is the bus performing the invocation.
	Bus *Bus

	// Listener is the resolved target of the running handler.
	Listener any
}

type currentKey struct{}

func withCurrent(ctx context.Context, bus *Bus, listener any) context.Context {
	return context.WithValue(ctx, currentKey{}, Current{Bus: bus, Listener: listener})
}

// FromContext returns the Current value for a handler invocation context.
func FromContext(ctx context.Context) (Current, bool) {
	cur, ok := ctx.Value(currentKey{}).(Current)
	return cur, ok
}

// DeregisterSelf deregisters the listener whose handler is currently
// executing, resolved from the invocation context. It is the only way for
// a handler to remove its own registration without holding a reference to
// itself. Calling it outside a handler invocation returns ErrNoCurrent.
func DeregisterSelf(ctx context.Context) error {
	cur, ok := FromContext(ctx)
	if !ok || cur.Bus == nil {
		return ErrNoCurrent
	}
	cur.Bus.Deregister(cur.Listener)
	return nil
}
