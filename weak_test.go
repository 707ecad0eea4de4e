package stormbus

import (
	"context"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type weakProbe struct {
	calls *atomic.Int32
}

func (l *weakProbe) OnPlaced(ctx context.Context, e orderPlaced) error {
	l.calls.Add(1)
	return nil
}

func (l *weakProbe) Subscriptions() []Binding {
	return []Binding{
		On((*weakProbe).OnPlaced),
	}
}

func TestRegisterWeak_DeliversWhileAlive(t *testing.T) {
	bus := newTestBus(t)

	var calls atomic.Int32
	l := &weakProbe{calls: &calls}
	require.NoError(t, RegisterWeak(bus, l))

	require.NoError(t, bus.Post(context.Background(), orderPlaced{ID: "o-1"}))
	assert.Equal(t, int32(1), calls.Load())
	runtime.KeepAlive(l)
}

func TestRegisterWeak_DeregisterByPointer(t *testing.T) {
	bus := newTestBus(t)

	var calls atomic.Int32
	l := &weakProbe{calls: &calls}
	require.NoError(t, RegisterWeak(bus, l))

	bus.Deregister(l)
	require.NoError(t, bus.Post(context.Background(), orderPlaced{ID: "o-1"}))
	assert.Zero(t, calls.Load())
	assert.Zero(t, bus.Stats().WeakListeners)
}

func TestRegisterWeak_ReclaimedListenerNeverInvoked(t *testing.T) {
	bus := newTestBus(t)

	var calls atomic.Int32
	l := &weakProbe{calls: &calls}
	require.NoError(t, RegisterWeak(bus, l))
	require.NoError(t, bus.Post(context.Background(), orderPlaced{ID: "o-1"}))
	require.Equal(t, int32(1), calls.Load())
	runtime.KeepAlive(l)

	// Drop the only strong reference. The weak registration must not
	// keep the listener alive.
	l = nil //nolint:ineffassign,staticcheck
	for range 4 {
		runtime.GC()
	}

	require.NoError(t, bus.Post(context.Background(), orderPlaced{ID: "o-1"}))
	assert.Equal(t, int32(1), calls.Load(), "reclaimed listener must not be invoked")

	// Dispatch observed the dead handle and swept the registration.
	assert.Zero(t, bus.Stats().WeakListeners)
}

func TestWeakOf_IdentityComparable(t *testing.T) {
	a := &weakProbe{}
	h1 := makeWeak(a)
	h2 := makeWeak(a)

	// Handles to the same object compare equal, which is what membership
	// removal relies on.
	assert.Equal(t, h1, h2)

	v, ok := h1.value()
	require.True(t, ok)
	assert.Same(t, a, v)
	runtime.KeepAlive(a)
}

func TestIdentical(t *testing.T) {
	a := &weakProbe{}
	b := &weakProbe{}

	assert.True(t, identical(a, a))
	assert.False(t, identical(a, b))
	assert.False(t, identical(a, "not a listener"))
	assert.False(t, identical([]int{1}, []int{1}), "non-comparable values never match")
}
