package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_Execute(t *testing.T) {
	e := NewExecutor()

	res := e.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, res.Err)
	assert.False(t, res.Panicked)
	assert.False(t, res.Failed())
	assert.GreaterOrEqual(t, res.Duration, time.Duration(0))
}

func TestExecutor_ExecuteError(t *testing.T) {
	e := NewExecutor()

	want := errors.New("handler failed")
	res := e.Execute(context.Background(), func(ctx context.Context) error {
		return want
	})
	assert.ErrorIs(t, res.Err, want)
	assert.True(t, res.Failed())
	assert.False(t, res.Panicked)
}

func TestExecutor_ExecuteRecoversPanic(t *testing.T) {
	e := NewExecutor()

	res := e.Execute(context.Background(), func(ctx context.Context) error {
		panic("bad state")
	})
	assert.True(t, res.Panicked)
	assert.True(t, res.Failed())
	assert.Equal(t, "bad state", res.PanicValue)
	assert.NotEmpty(t, res.PanicStack)
	assert.NoError(t, res.Err)
}

func TestExecutor_ExecutePassesContext(t *testing.T) {
	e := NewExecutor()

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	res := e.Execute(ctx, func(ctx context.Context) error {
		if ctx.Value(key{}) != "v" {
			return errors.New("context not propagated")
		}
		return nil
	})
	require.NoError(t, res.Err)
}

func TestExecutor_RunDeliversResult(t *testing.T) {
	e := NewExecutor()

	var got Result
	want := errors.New("handler failed")
	e.run(context.Background(), Task{
		Run:  func(ctx context.Context) error { return want },
		Done: func(r Result) { got = r },
	})
	assert.ErrorIs(t, got.Err, want)
}

func TestExecutor_RunNilDone(t *testing.T) {
	e := NewExecutor()

	res := e.run(context.Background(), Task{
		Run: func(ctx context.Context) error { return nil },
	})
	assert.False(t, res.Failed())
}
