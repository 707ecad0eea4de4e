package stormbus

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dshills/stormbus/dispatch"
	"go.uber.org/zap"
)

// Bus is an in-process publish/subscribe event bus. It is safe for
// concurrent use. The zero value is not usable; create a Bus with New.
type Bus struct {
	registry   *registry
	pool       *dispatch.Pool
	dispatcher *dispatcher
	log        *zap.Logger

	tag      atomic.Value // string
	closed   atomic.Bool
	hookOnce sync.Once

	// Stats
	posted         atomic.Uint64
	delivered      atomic.Uint64
	handlerErrors  atomic.Uint64
	handlerPanics  atomic.Uint64
	asyncSubmitted atomic.Uint64
}

// New creates a bus and starts its worker pool.
func New(opts ...Option) *Bus {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Bus{
		registry: newRegistry(cfg.logger),
		pool: dispatch.NewPool(
			dispatch.WithWorkerCount(cfg.workerCount),
			dispatch.WithQueueSize(cfg.queueSize),
		),
		log: cfg.logger,
	}
	b.tag.Store(cfg.tag)
	b.dispatcher = &dispatcher{
		bus:    b,
		exec:   dispatch.NewExecutor(),
		pool:   b.pool,
		router: &errorRouter{bus: b, log: cfg.logger},
		log:    cfg.logger,
	}
	_ = b.pool.Start()
	return b
}

// Register registers a listener with strong ownership: the bus keeps the
// listener alive until it is deregistered. The listener must declare at
// least one handler binding through the Subscriber capability.
//
// Fails with ErrNilListener, ErrAlreadyRegistered, ErrNoHandlers, or a
// binding validation error wrapping ErrInvalidBinding.
func (b *Bus) Register(listener any, opts ...RegisterOption) error {
	return b.register(listener, nil, opts)
}

// RegisterWeak registers a listener with weak ownership: the bus keeps a
// non-owning reference, and the listener may be reclaimed by the garbage
// collector independently. Stale subscriptions are cleaned up lazily
// during dispatch and deregistration.
func RegisterWeak[L any](b *Bus, listener *L, opts ...RegisterOption) error {
	if listener == nil {
		return ErrNilListener
	}
	return b.register(listener, makeWeak(listener), opts)
}

// RegisterListener registers a single-event listener through its Accept
// method, with strong ownership. The event type E is taken from the
// Listener capability; Accept executes synchronously unless the
// ForceAsync option is given.
func RegisterListener[E any](b *Bus, listener Listener[E], opts ...RegisterOption) error {
	if listener == nil {
		return ErrNilListener
	}
	opts = append(listenerOpts[E](), opts...)
	return b.register(listener, nil, opts)
}

// RegisterListenerWeak registers a single-event listener with weak
// ownership.
func RegisterListenerWeak[E any, L any, PL interface {
	*L
	Listener[E]
}](b *Bus, listener PL, opts ...RegisterOption) error {
	if listener == nil {
		return ErrNilListener
	}
	opts = append(listenerOpts[E](), opts...)
	return b.register(listener, makeWeak((*L)(listener)), opts)
}

// listenerOpts supplies the implicit accept binding and the event type
// for a Listener registration.
func listenerOpts[E any]() []RegisterOption {
	return []RegisterOption{
		withImplicit(On[Listener[E], E](Listener[E].Accept)),
		ForEvent[E](),
	}
}

func (b *Bus) register(listener any, ref weakHandle, opts []RegisterOption) error {
	if listener == nil {
		return ErrNilListener
	}
	if b.closed.Load() {
		return ErrBusClosed
	}

	var cfg registerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b.log.Debug("registering listener",
		zap.String("bus", b.Tag()),
		zap.Bool("weak", ref != nil),
		zap.Bool("force_async", cfg.forceAsync))
	return b.registry.register(listener, ref, cfg.forceAsync, cfg.required, cfg.implicit)
}

// Deregister removes a listener and all of its subscriptions. It is
// idempotent: deregistering an unknown, already-deregistered, or
// already-reclaimed listener is a no-op, never an error.
func (b *Bus) Deregister(listener any) {
	if listener == nil {
		return
	}
	b.log.Debug("deregistering listener", zap.String("bus", b.Tag()))
	b.registry.deregister(listener)
}

// Post routes an event to all matching subscribers. Sync handlers run in
// the calling goroutine before Post returns; async handlers are
// submitted to the worker pool and complete later. Handler failures
// never surface here; they are routed to ExceptionEvent subscribers.
//
// A post with no matching subscribers is a silent no-op unless the
// RequireSubscribers option is given, in which case it fails with
// ErrNoSubscribers.
func (b *Bus) Post(ctx context.Context, event any, opts ...PostOption) error {
	if event == nil {
		return ErrNilEvent
	}
	if b.closed.Load() {
		return ErrBusClosed
	}

	var cfg postConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	subs := b.registry.subscribers(event)
	if len(subs) == 0 {
		if cfg.requireSubscribers {
			return ErrNoSubscribers
		}
		return nil
	}

	b.posted.Add(1)
	b.log.Debug("dispatching event",
		zap.String("bus", b.Tag()),
		zap.Int("subscribers", len(subs)))
	b.dispatcher.dispatch(ctx, event, newHandlerChain(subs))
	return nil
}

// Close shuts the bus down: no new dispatch proceeds, in-flight sync
// invocations complete, and already-submitted async tasks are drained
// until the context is cancelled. Close must be called exactly once at
// process exit; subsequent calls return ErrBusClosed.
func (b *Bus) Close(ctx context.Context) error {
	if b.closed.Swap(true) {
		return ErrBusClosed
	}
	b.log.Debug("shutting down, no more events will be dispatched",
		zap.String("bus", b.Tag()))
	return b.pool.Stop(ctx)
}

// HookShutdown installs a process signal hook (SIGINT, SIGTERM) that
// closes the bus, flushing the worker pool gracefully. It may be called
// at most once per bus; repeated calls are no-ops.
func (b *Bus) HookShutdown() {
	b.hookOnce.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-ch
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = b.Close(ctx)
		}()
	})
}

// SetTag sets an identification tag for the bus, used in log output.
func (b *Bus) SetTag(tag string) {
	b.tag.Store(tag)
}

// Tag returns the bus identification tag.
func (b *Bus) Tag() string {
	tag, _ := b.tag.Load().(string)
	return tag
}

// Stats contains bus statistics.
type Stats struct {
	// EventsPosted is the number of posts that matched at least one
	// subscriber.
	EventsPosted uint64

	// EventsDelivered is the number of successful handler invocations.
	EventsDelivered uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// AsyncSubmitted is the number of invocations submitted to the pool.
	AsyncSubmitted uint64

	// AsyncOverflowed is the number of async invocations run outside the
	// queue because it was full.
	AsyncOverflowed uint64

	// QueueDepth is the current async queue depth.
	QueueDepth int

	// StrongListeners is the current strong membership count.
	StrongListeners int

	// WeakListeners is the current weak membership count, including
	// entries not yet swept.
	WeakListeners int
}

// Stats returns current bus statistics.
func (b *Bus) Stats() Stats {
	strong, weak := b.registry.members()
	pool := b.pool.Stats()
	return Stats{
		EventsPosted:    b.posted.Load(),
		EventsDelivered: b.delivered.Load(),
		HandlerErrors:   b.handlerErrors.Load(),
		HandlerPanics:   b.handlerPanics.Load(),
		AsyncSubmitted:  b.asyncSubmitted.Load(),
		AsyncOverflowed: pool.Overflowed,
		QueueDepth:      pool.QueueDepth,
		StrongListeners: strong,
		WeakListeners:   weak,
	}
}
