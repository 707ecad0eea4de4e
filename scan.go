package stormbus

import "reflect"

// discover collects the handler bindings a listener declares: the union
// of its Subscriber declaration and any implicit binding supplied by a
// typed registration wrapper, validated and de-duplicated.
//
// Discovery is compile-time in nature: the bindings are typed method
// expressions, so there is nothing to scan beyond what the listener
// declares. Validation failures are hard errors; a malformed declaration
// must not be silently excluded.
func discover(listener any, required reflect.Type, implicit []Binding) ([]Binding, error) {
	if listener == nil {
		return nil, ErrNilListener
	}

	var declared []Binding
	if s, ok := listener.(Subscriber); ok {
		declared = s.Subscriptions()
	}

	out := make([]Binding, 0, len(declared)+len(implicit))
	for _, group := range [][]Binding{declared, implicit} {
		for _, b := range group {
			if err := b.validate(listener, required); err != nil {
				return nil, err
			}
			if containsBinding(out, b) {
				continue
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// containsBinding applies the subscription equivalence rule at the
// declaration level: same handler, same event type, same mode. The target
// is always the registering listener here, so it does not participate.
func containsBinding(bs []Binding, b Binding) bool {
	for _, x := range bs {
		if x.name == b.name && x.eventType == b.eventType && x.async == b.async {
			return true
		}
	}
	return false
}
