package stormbus

import (
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// registry owns the mapping from event type to active subscription
// records, plus the two membership caches used to detect duplicate
// registration and to drive deregistration and weak-reference cleanup.
//
// Membership mutation is serialized through one mutex. The per-event-type
// buckets use copy-on-write slices behind a sync.Map, so dispatch-time
// reads never take a lock and never observe a partially built bucket.
type registry struct {
	mu     sync.Mutex
	strong []any
	weaks  []weakHandle

	buckets sync.Map // reflect.Type -> *bucket

	log *zap.Logger
}

func newRegistry(log *zap.Logger) *registry {
	return &registry{log: log}
}

// bucket holds the subscription records for one declared event type.
type bucket struct {
	mu   sync.Mutex
	recs atomic.Pointer[[]*record]
}

func (b *bucket) snapshot() []*record {
	if p := b.recs.Load(); p != nil {
		return *p
	}
	return nil
}

// add merges a record unless an equivalent one is already present.
func (b *bucket) add(r *record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.snapshot()
	for _, x := range cur {
		if x.equivalent(r) {
			return false
		}
	}
	next := make([]*record, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = r
	b.recs.Store(&next)
	return true
}

// removeWhere drops every record matching pred, returning the dropped
// records.
func (b *bucket) removeWhere(pred func(*record) bool) []*record {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.snapshot()
	var dropped []*record
	next := make([]*record, 0, len(cur))
	for _, r := range cur {
		if pred(r) {
			dropped = append(dropped, r)
			continue
		}
		next = append(next, r)
	}
	if len(dropped) > 0 {
		b.recs.Store(&next)
	}
	return dropped
}

func (r *registry) bucketFor(t reflect.Type) *bucket {
	if v, ok := r.buckets.Load(t); ok {
		return v.(*bucket)
	}
	v, _ := r.buckets.LoadOrStore(t, &bucket{})
	return v.(*bucket)
}

// register adds a listener to the appropriate membership cache, discovers
// its handler bindings, and merges a record per binding into the event
// buckets. A listener already present in the matching cache fails with
// ErrAlreadyRegistered; a listener with no bindings fails with
// ErrNoHandlers and its membership slot is rolled back.
func (r *registry) register(listener any, ref weakHandle, forceAsync bool, required reflect.Type, implicit []Binding) error {
	r.mu.Lock()
	if ref != nil {
		if r.containsWeakLocked(listener) {
			r.mu.Unlock()
			return ErrAlreadyRegistered
		}
		r.weaks = append(r.weaks, ref)
	} else {
		if r.containsStrongLocked(listener) {
			r.mu.Unlock()
			return ErrAlreadyRegistered
		}
		r.strong = append(r.strong, listener)
	}
	r.mu.Unlock()

	// Discovery runs outside the lock. The caller still holds a strong
	// reference to the listener, so a weak target cannot vanish mid-way.
	bindings, err := discover(listener, required, implicit)
	if err == nil && len(bindings) == 0 {
		err = ErrNoHandlers
	}
	if err != nil {
		r.unregisterMember(listener, ref)
		return err
	}

	for _, b := range bindings {
		rec := newRecord(b, listener, ref, forceAsync)
		if r.bucketFor(rec.eventType).add(rec) {
			r.log.Debug("subscription registered",
				zap.String("handler", rec.name),
				zap.Stringer("event_type", rec.eventType),
				zap.Bool("async", rec.async),
				zap.Bool("weak", rec.weak))
		}
	}
	return nil
}

// unregisterMember rolls a failed registration back out of the membership
// caches.
func (r *registry) unregisterMember(listener any, ref weakHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref != nil {
		r.removeWeakLocked(ref)
		return
	}
	for i, o := range r.strong {
		if identical(o, listener) {
			r.strong = append(r.strong[:i], r.strong[i+1:]...)
			return
		}
	}
}

// deregister removes a listener from both membership caches and sweeps
// every bucket for its records. It is idempotent: deregistering an
// unknown or already-reclaimed listener is a no-op. The weak cache scan
// lazily drops entries whose backing object is gone, so every
// deregistration doubles as garbage cleanup for the whole registry.
func (r *registry) deregister(listener any) {
	if listener == nil {
		return
	}

	r.mu.Lock()
	kept := r.weaks[:0]
	found := false
	for _, h := range r.weaks {
		v, ok := h.value()
		switch {
		case !ok:
			// Backing object reclaimed; drop the stale handle.
		case !found && identical(v, listener):
			found = true
		default:
			kept = append(kept, h)
		}
	}
	r.weaks = kept
	for i, o := range r.strong {
		if identical(o, listener) {
			r.strong = append(r.strong[:i], r.strong[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.sweep(listener)
}

// removeWeak is the cleanup path used by the dispatcher when it finds a
// reclaimed weak target at invocation time.
func (r *registry) removeWeak(ref weakHandle) {
	r.mu.Lock()
	r.removeWeakLocked(ref)
	r.mu.Unlock()

	r.sweep(nil)
}

func (r *registry) removeWeakLocked(ref weakHandle) {
	for i, h := range r.weaks {
		if h == ref {
			r.weaks = append(r.weaks[:i], r.weaks[i+1:]...)
			return
		}
	}
}

// sweep removes every record bound to listener from every bucket, and
// opportunistically removes any weak record whose target has been
// reclaimed. A nil listener sweeps reclaimed records only.
func (r *registry) sweep(listener any) {
	var stale []weakHandle
	r.buckets.Range(func(_, v any) bool {
		b := v.(*bucket)
		dropped := b.removeWhere(func(rec *record) bool {
			t, ok := rec.resolve()
			if rec.weak && !ok {
				return true
			}
			return listener != nil && identical(t, listener)
		})
		for _, rec := range dropped {
			r.log.Debug("subscription removed",
				zap.String("handler", rec.name),
				zap.Stringer("event_type", rec.eventType))
			if rec.weak {
				if _, ok := rec.ref.value(); !ok {
					stale = append(stale, rec.ref)
				}
			}
		}
		return true
	})

	if len(stale) > 0 {
		r.mu.Lock()
		for _, h := range stale {
			r.removeWeakLocked(h)
		}
		r.mu.Unlock()
	}
}

// subscribers returns every record whose declared event type is
// assignable from the event's concrete type. A handler subscribed to an
// interface or base event type receives subtype events too. Returns nil
// for a nil event.
func (r *registry) subscribers(event any) []*record {
	if event == nil {
		return nil
	}
	concrete := reflect.TypeOf(event)

	var out []*record
	r.buckets.Range(func(k, v any) bool {
		if concrete.AssignableTo(k.(reflect.Type)) {
			out = append(out, v.(*bucket).snapshot()...)
		}
		return true
	})
	return out
}

func (r *registry) containsStrongLocked(listener any) bool {
	for _, o := range r.strong {
		if identical(o, listener) {
			return true
		}
	}
	return false
}

// containsWeakLocked reports whether a live weak handle to listener is
// cached, dropping reclaimed entries as it scans.
func (r *registry) containsWeakLocked(listener any) bool {
	kept := r.weaks[:0]
	found := false
	for _, h := range r.weaks {
		v, ok := h.value()
		if !ok {
			continue
		}
		kept = append(kept, h)
		if identical(v, listener) {
			found = true
		}
	}
	r.weaks = kept
	return found
}

// members returns the current strong and weak membership counts.
func (r *registry) members() (strong, weak int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.strong), len(r.weaks)
}
