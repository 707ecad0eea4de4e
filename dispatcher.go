package stormbus

import (
	"context"

	"github.com/dshills/stormbus/dispatch"
	"go.uber.org/zap"
)

// dispatcher walks a handler chain and invokes each entry, inline for
// sync records and on the worker pool for async ones. Handler failures
// are routed to the error router; the poster never observes them.
type dispatcher struct {
	bus    *Bus
	exec   *dispatch.Executor
	pool   *dispatch.Pool
	router *errorRouter
	log    *zap.Logger
}

// dispatch invokes each chain entry in order. Before each invocation it
// consults the bus shutdown flag (silent truncation) and the chain's
// interruption flag. Weak targets found reclaimed are routed through the
// registry's cleanup path and skipped; that is expected lifecycle, not
// failure.
func (d *dispatcher) dispatch(ctx context.Context, event any, chain *HandlerChain) {
	if ca, ok := event.(ChainAware); ok {
		ca.SetHandlerChain(chain)
	}

	for _, rec := range chain.entries {
		if d.bus.closed.Load() {
			d.log.Debug("shutdown initiated, truncating handler chain")
			return
		}
		if chain.Interrupted() {
			d.log.Debug("handler chain interrupted")
			return
		}

		if rec.async {
			d.submit(ctx, event, rec)
		} else {
			d.invoke(ctx, event, rec)
		}
	}
}

// invoke resolves the record's target and executes its handler inline,
// with the (bus, listener) pair attached to the invocation context.
func (d *dispatcher) invoke(ctx context.Context, event any, rec *record) {
	target, ok := rec.resolve()
	if !ok {
		d.reclaim(rec)
		return
	}

	ictx := withCurrent(ctx, d.bus, target)
	res := d.exec.Execute(ictx, func(c context.Context) error {
		return rec.invoke(target, c, event)
	})
	d.finish(ctx, event, rec, res)
}

// submit schedules an async invocation on the worker pool. The target is
// resolved inside the task, immediately before invocation, so a weak
// listener reclaimed while queued is still cleaned up rather than
// invoked. The task context is detached from the poster's cancelation.
func (d *dispatcher) submit(ctx context.Context, event any, rec *record) {
	tctx := context.WithoutCancel(ctx)
	// Done runs on the executing goroutine after Run, so the flag needs
	// no synchronization.
	reclaimed := false
	err := d.pool.Submit(tctx, dispatch.Task{
		Run: func(c context.Context) error {
			target, ok := rec.resolve()
			if !ok {
				reclaimed = true
				d.reclaim(rec)
				return nil
			}
			return rec.invoke(target, withCurrent(c, d.bus, target), event)
		},
		Done: func(res dispatch.Result) {
			// A skipped reclaim is not a delivery.
			if reclaimed {
				return
			}
			d.finish(tctx, event, rec, res)
		},
	})
	if err != nil {
		d.log.Debug("async submission rejected, pool stopped",
			zap.String("handler", rec.name))
		return
	}
	d.bus.asyncSubmitted.Add(1)
}

// finish updates delivery counters and routes failures.
func (d *dispatcher) finish(ctx context.Context, event any, rec *record, res dispatch.Result) {
	switch {
	case res.Panicked:
		d.bus.handlerPanics.Add(1)
		d.router.handle(ctx, event, rec, &PanicError{Value: res.PanicValue, Stack: res.PanicStack})
	case res.Err != nil:
		d.bus.handlerErrors.Add(1)
		d.router.handle(ctx, event, rec, res.Err)
	default:
		d.bus.delivered.Add(1)
	}
}

func (d *dispatcher) reclaim(rec *record) {
	d.log.Debug("weak listener reclaimed, cleaning up",
		zap.String("handler", rec.name),
		zap.Stringer("event_type", rec.eventType))
	d.bus.registry.removeWeak(rec.ref)
}
