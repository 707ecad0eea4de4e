package stormbus

import (
	"context"
	"fmt"
	"reflect"

	"github.com/google/uuid"
)

// record is one active subscription: a handler binding tied to a target
// listener with strong or weak ownership. Immutable after creation.
type record struct {
	id        string
	name      string
	eventType reflect.Type
	async     bool
	invoke    func(target any, ctx context.Context, event any) error

	// Ownership. Exactly one of target/ref is set.
	weak   bool
	target any
	ref    weakHandle
}

func newRecord(b Binding, listener any, ref weakHandle, forceAsync bool) *record {
	r := &record{
		id:        uuid.NewString(),
		name:      b.name,
		eventType: b.eventType,
		async:     b.async || forceAsync,
		invoke:    b.invoke,
		weak:      ref != nil,
	}
	if r.weak {
		r.ref = ref
	} else {
		r.target = listener
	}
	return r
}

// resolve returns the target listener. For a weak record the second
// return is false once the backing object has been reclaimed.
func (r *record) resolve() (any, bool) {
	if r.weak {
		return r.ref.value()
	}
	return r.target, true
}

// equivalent reports whether two records denote the same subscription:
// same handler name, same event type, same execution mode, and the same
// target object. Two weak records whose targets are both reclaimed also
// compare equivalent; that rule only ever fires during cleanup, since
// reclaimed records are skipped before dispatch.
func (r *record) equivalent(o *record) bool {
	if r.name != o.name || r.eventType != o.eventType || r.async != o.async {
		return false
	}
	t1, ok1 := r.resolve()
	t2, ok2 := o.resolve()
	if r.weak && o.weak && !ok1 && !ok2 {
		return true
	}
	if !ok1 || !ok2 {
		return false
	}
	return identical(t1, t2)
}

// SubscriptionInfo identifies a subscription for error reporting and
// introspection.
type SubscriptionInfo struct {
	// ID is the unique subscription identifier.
	ID string

	// Handler is the fully qualified name of the bound method.
	Handler string

	// EventType is the declared event type.
	EventType reflect.Type

	// Async reports whether the handler runs on the worker pool.
	Async bool

	// Weak reports whether the listener is weakly owned.
	Weak bool
}

func (r *record) info() SubscriptionInfo {
	return SubscriptionInfo{
		ID:        r.id,
		Handler:   r.name,
		EventType: r.eventType,
		Async:     r.async,
		Weak:      r.weak,
	}
}

func (r *record) String() string {
	return fmt.Sprintf("[handler=%s event=%v async=%t weak=%t]", r.name, r.eventType, r.async, r.weak)
}
