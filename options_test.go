package stormbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, 8, cfg.workerCount)
	assert.Equal(t, 1024, cfg.queueSize)
	assert.NotNil(t, cfg.logger)
	assert.Empty(t, cfg.tag)
}

func TestOptions(t *testing.T) {
	log := zap.NewNop()
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithLogger(log),
		WithWorkerCount(3),
		WithQueueSize(64),
		WithTag("orders"),
	} {
		opt(&cfg)
	}

	assert.Same(t, log, cfg.logger)
	assert.Equal(t, 3, cfg.workerCount)
	assert.Equal(t, 64, cfg.queueSize)
	assert.Equal(t, "orders", cfg.tag)
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	cfg := defaultConfig()
	for _, opt := range []Option{
		WithLogger(nil),
		WithWorkerCount(0),
		WithQueueSize(-1),
	} {
		opt(&cfg)
	}

	assert.NotNil(t, cfg.logger)
	assert.Equal(t, 8, cfg.workerCount)
	assert.Equal(t, 1024, cfg.queueSize)
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("STORMBUS_WORKER_COUNT", "5")
	t.Setenv("STORMBUS_QUEUE_SIZE", "32")
	t.Setenv("STORMBUS_TAG", "billing")

	opts, err := OptionsFromEnv()
	require.NoError(t, err)

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	assert.Equal(t, 5, cfg.workerCount)
	assert.Equal(t, 32, cfg.queueSize)
	assert.Equal(t, "billing", cfg.tag)
}

func TestOptionsFromEnv_Defaults(t *testing.T) {
	t.Setenv("STORMBUS_WORKER_COUNT", "")
	t.Setenv("STORMBUS_QUEUE_SIZE", "")
	t.Setenv("STORMBUS_TAG", "")

	opts, err := OptionsFromEnv()
	require.NoError(t, err)
	assert.Empty(t, opts)
}

func TestOptionsFromEnv_Invalid(t *testing.T) {
	t.Setenv("STORMBUS_WORKER_COUNT", "not-a-number")

	_, err := OptionsFromEnv()
	assert.Error(t, err)
}
