package stormbus

import (
	"fmt"
	"reflect"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap"
)

// Option configures a Bus.
type Option func(*config)

type config struct {
	logger      *zap.Logger
	workerCount int
	queueSize   int
	tag         string
}

func defaultConfig() config {
	return config{
		logger:      zap.NewNop(),
		workerCount: 8,
		queueSize:   1024,
	}
}

// WithLogger sets the structured logger for the bus.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithWorkerCount sets the number of async worker goroutines.
func WithWorkerCount(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workerCount = n
		}
	}
}

// WithQueueSize sets the async task queue capacity.
func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// WithTag sets an identification tag for the bus, used in log output.
func WithTag(tag string) Option {
	return func(c *config) {
		c.tag = tag
	}
}

// envConfig is the environment surface for host processes.
type envConfig struct {
	WorkerCount int    `env:"STORMBUS_WORKER_COUNT"`
	QueueSize   int    `env:"STORMBUS_QUEUE_SIZE"`
	Tag         string `env:"STORMBUS_TAG"`
}

// OptionsFromEnv builds bus options from STORMBUS_* environment
// variables. Unset variables leave the corresponding defaults untouched.
func OptionsFromEnv() ([]Option, error) {
	var ec envConfig
	if err := env.Parse(&ec); err != nil {
		return nil, fmt.Errorf("parse bus environment: %w", err)
	}
	var opts []Option
	if ec.WorkerCount > 0 {
		opts = append(opts, WithWorkerCount(ec.WorkerCount))
	}
	if ec.QueueSize > 0 {
		opts = append(opts, WithQueueSize(ec.QueueSize))
	}
	if ec.Tag != "" {
		opts = append(opts, WithTag(ec.Tag))
	}
	return opts, nil
}

// RegisterOption configures one registration.
type RegisterOption func(*registerConfig)

type registerConfig struct {
	forceAsync bool
	required   reflect.Type
	implicit   []Binding
}

// ForceAsync makes every handler discovered by this registration execute
// on the worker pool, regardless of its declared mode.
func ForceAsync() RegisterOption {
	return func(c *registerConfig) {
		c.forceAsync = true
	}
}

// ForEvent restricts discovery to bindings whose event type is
// assignable to E. A declared binding outside the filter is a
// registration error, not a silent skip.
func ForEvent[E any]() RegisterOption {
	return func(c *registerConfig) {
		c.required = reflect.TypeFor[E]()
	}
}

func withImplicit(b Binding) RegisterOption {
	return func(c *registerConfig) {
		c.implicit = append(c.implicit, b)
	}
}

// PostOption configures one post.
type PostOption func(*postConfig)

type postConfig struct {
	requireSubscribers bool
}

// RequireSubscribers makes Post fail with ErrNoSubscribers when no
// subscriber matches the event, instead of silently doing nothing.
func RequireSubscribers() PostOption {
	return func(c *postConfig) {
		c.requireSubscribers = true
	}
}
