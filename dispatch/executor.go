package dispatch

import (
	"context"
	"runtime/debug"
	"time"
)

// Task is one unit of handler work. Run performs the invocation; Done, if
// set, receives the Result after execution (on the executing goroutine).
type Task struct {
	Run  func(ctx context.Context) error
	Done func(Result)
}

// Result is the outcome of one task execution.
type Result struct {
	// Err is the error returned by the task, if any.
	Err error

	// Panicked is true if the task panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the task took to execute.
	Duration time.Duration
}

// Failed reports whether the task returned an error or panicked.
func (r Result) Failed() bool {
	return r.Err != nil || r.Panicked
}

// Executor runs tasks with panic recovery and timing.
type Executor struct{}

// NewExecutor creates an executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs fn in the calling goroutine and returns its result. A
// panic in fn is recovered, never propagated.
func (e *Executor) Execute(ctx context.Context, fn func(context.Context) error) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = debug.Stack()
		}
	}()

	result.Err = fn(ctx)
	return result
}

// run executes a task and delivers its result to the Done callback.
func (e *Executor) run(ctx context.Context, task Task) Result {
	res := e.Execute(ctx, task.Run)
	if task.Done != nil {
		task.Done(res)
	}
	return res
}
