// Package dispatch provides the execution mechanics under the event bus:
// a panic-isolating executor and an asynchronous worker pool.
//
// # Executor
//
// Executor runs one task in the calling goroutine, recovering panics and
// capturing timing. A misbehaving handler can fail or panic without
// crashing the process; the outcome is reported in a Result.
//
// # Pool
//
// Pool runs tasks on a fixed set of worker goroutines fed from a buffered
// queue. Submission order is preserved through the queue; completion
// order is not guaranteed. The pool never rejects a task: when the queue
// is full the task runs on a one-off tracked goroutine instead, so
// asynchronous delivery is never dropped. Stop drains the queue and waits
// for in-flight work.
package dispatch
