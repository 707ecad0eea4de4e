// Package stormbus provides an in-process publish/subscribe event bus.
//
// Objects register interest in event types and a publisher posts an event
// instance that is routed to every matching registered handler, invoked
// either synchronously on the caller's goroutine or asynchronously on a
// worker pool.
//
// # Subscribing
//
// A listener declares its handler bindings by implementing the Subscriber
// capability. Bindings are built from method expressions, so the
// declaration names a method on the listener type without pinning any
// particular instance:
//
//	type OrderListener struct{ seen int }
//
//	func (l *OrderListener) OnPlaced(ctx context.Context, e OrderPlaced) error {
//	    l.seen++
//	    return nil
//	}
//
//	func (l *OrderListener) Subscriptions() []stormbus.Binding {
//	    return []stormbus.Binding{
//	        stormbus.On((*OrderListener).OnPlaced),
//	    }
//	}
//
//	bus := stormbus.New()
//	defer bus.Close(context.Background())
//
//	l := &OrderListener{}
//	if err := bus.Register(l); err != nil { ... }
//	bus.Post(ctx, OrderPlaced{ID: "o-1"})
//
// Alternatively a listener for a single event type can implement the
// Listener capability and register through RegisterListener, which derives
// the binding from the Accept method.
//
// # Ownership
//
// Register keeps a strong reference to the listener for as long as it is
// registered. RegisterWeak keeps a non-owning reference instead: the
// listener may be reclaimed by the garbage collector independently, and
// the bus detects and cleans up stale entries lazily during dispatch and
// deregistration.
//
// # Delivery modes
//
// A binding built with On executes synchronously in the posting
// goroutine; Post does not return until every matching sync handler has
// completed. A binding built with OnAsync (or any registration made with
// the ForceAsync option) is submitted to the bus worker pool and runs at
// an unspecified later time. Within one post, sync handlers run in
// discovery order, and async submissions preserve that order; async
// completion order is not guaranteed.
//
// # Handler chains and interruption
//
// Each post builds an ordered handler chain, a snapshot of the matched
// subscribers. An event carrying the ChainAware capability (embed
// ChainHolder) receives the chain before the first invocation and any of
// its handlers may call Interrupt to bar further invocations for that
// post only.
//
// # Errors from handlers
//
// A handler error or panic never propagates to the poster. The failure is
// wrapped in an ExceptionEvent and dispatched to any subscribers of that
// type; with no such subscribers it is only logged.
//
// # Self-deregistration
//
// The context passed to a running handler carries the identity of the bus
// and the listener being invoked. DeregisterSelf resolves that ambient
// pair, letting a handler remove its own registration without holding a
// reference to itself.
package stormbus
