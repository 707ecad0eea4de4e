package stormbus

import (
	"reflect"
	"weak"
)

// weakHandle is a non-owning reference to a registered listener. The
// backing object may be reclaimed by the garbage collector at any time;
// value reports whether it is still reachable.
//
// Stale handles are swept lazily at the two access points that touch the
// registry: deregistration and dispatch.
type weakHandle interface {
	value() (any, bool)
}

// weakOf adapts weak.Pointer to the type-erased handle used by the
// registry. The concrete type is comparable, so handles can be removed
// from the weak membership cache by equality.
type weakOf[L any] struct {
	ptr weak.Pointer[L]
}

func makeWeak[L any](listener *L) weakHandle {
	return weakOf[L]{ptr: weak.Make(listener)}
}

func (w weakOf[L]) value() (any, bool) {
	if p := w.ptr.Value(); p != nil {
		return p, true
	}
	return nil, false
}

// identical reports whether two listener references denote the same
// object. Uncomparable values never match; listeners are expected to be
// pointers.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}
