// Package main is a load driver for the stormbus event bus. It posts
// synthetic events at a fixed rate and exposes bus statistics on a
// Prometheus endpoint, which is useful for eyeballing dispatch behavior
// under load.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dshills/stormbus"
	"github.com/dshills/stormbus/metrics"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	envOpts, err := stormbus.OptionsFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid environment: %v\n", err)
		return 1
	}

	busOpts := append(envOpts,
		stormbus.WithLogger(logger),
		stormbus.WithTag("demo"),
	)
	if opts.workers > 0 {
		busOpts = append(busOpts, stormbus.WithWorkerCount(opts.workers))
	}
	if opts.queue > 0 {
		busOpts = append(busOpts, stormbus.WithQueueSize(opts.queue))
	}
	bus := stormbus.New(busOpts...)

	if err := bus.Register(&tickCounter{log: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register listener: %v\n", err)
		return 1
	}
	if err := bus.Register(&failureLogger{log: logger}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to register listener: %v\n", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCollector(bus))
	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(opts.addr, nil); err != nil {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()

	// Handle signals for graceful shutdown
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("posting events",
		zap.Duration("interval", opts.interval),
		zap.String("metrics_addr", opts.addr))

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()
	seq := uint64(0)
	for {
		select {
		case <-signals:
			logger.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := bus.Close(ctx); err != nil {
				logger.Error("shutdown failed", zap.Error(err))
				return 1
			}
			stats := bus.Stats()
			logger.Info("final statistics",
				zap.Uint64("posted", stats.EventsPosted),
				zap.Uint64("delivered", stats.EventsDelivered),
				zap.Uint64("handler_errors", stats.HandlerErrors))
			return 0
		case t := <-ticker.C:
			seq++
			if err := bus.Post(context.Background(), tickEvent{Seq: seq, At: t}); err != nil {
				logger.Error("post failed", zap.Error(err))
			}
		}
	}
}

type options struct {
	workers  int
	queue    int
	interval time.Duration
	addr     string
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.IntVar(&opts.workers, "workers", 0, "async worker count (0 uses the bus default)")
	flag.IntVar(&opts.queue, "queue", 0, "async queue size (0 uses the bus default)")
	flag.DurationVar(&opts.interval, "interval", 100*time.Millisecond, "interval between posted events")
	flag.StringVar(&opts.addr, "addr", ":9357", "address for the Prometheus metrics endpoint")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("stormbus-demo %s (%s, built %s)\n", version, commit, date)
		os.Exit(0)
	}
	return opts
}

type tickEvent struct {
	Seq uint64
	At  time.Time
}

// tickCounter handles ticks on the worker pool and fails every tenth one
// so the error path shows up in the metrics.
type tickCounter struct {
	log *zap.Logger
}

func (c *tickCounter) OnTick(ctx context.Context, e tickEvent) error {
	if e.Seq%10 == 0 {
		return fmt.Errorf("synthetic failure at seq %d", e.Seq)
	}
	return nil
}

func (c *tickCounter) Subscriptions() []stormbus.Binding {
	return []stormbus.Binding{
		stormbus.OnAsync((*tickCounter).OnTick),
	}
}

// failureLogger subscribes to handler failures.
type failureLogger struct {
	log *zap.Logger
}

func (f *failureLogger) OnException(ctx context.Context, e stormbus.ExceptionEvent) error {
	f.log.Warn("handler failed",
		zap.String("handler", e.Subscription.Handler),
		zap.Error(e.Err))
	return nil
}

func (f *failureLogger) Subscriptions() []stormbus.Binding {
	return []stormbus.Binding{
		stormbus.On((*failureLogger).OnException),
	}
}
