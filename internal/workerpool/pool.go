// Package workerpool runs independent tasks on a bounded set of goroutines.
package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"
)

// Task represents a unit of work for the worker pool
type Task[T any] struct {
	ID   string
	Func func(ctx context.Context) (T, error)
}

// Result represents the result of a task execution
type Result[T any] struct {
	ID       string
	Data     T
	Error    error
	Duration time.Duration
}

// PanicError is the result error of a task that panicked.
type PanicError struct {
	TaskID string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %s panicked: %v", e.TaskID, e.Value)
}

// WorkerPool manages parallel execution of tasks
type WorkerPool[T any] struct {
	workers int
}

// NewWorkerPool creates a pool. Zero or fewer workers means one per task.
func NewWorkerPool[T any](workers int) *WorkerPool[T] {
	return &WorkerPool[T]{workers: workers}
}

// Execute runs every task and returns once all of them have finished or been
// abandoned. Results are in task order. Tasks that never started because
// ctx ended carry ctx.Err().
func (wp *WorkerPool[T]) Execute(ctx context.Context, tasks []Task[T]) []Result[T] {
	if len(tasks) == 0 {
		return []Result[T]{}
	}

	workers := wp.workers
	if workers <= 0 || workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]Result[T], len(tasks))
	started := make([]bool, len(tasks))
	taskChan := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range taskChan {
				started[i] = true
				results[i] = runTask(ctx, tasks[i])
			}
		}()
	}

send:
	for i := range tasks {
		select {
		case taskChan <- i:
		case <-ctx.Done():
			break send
		}
	}

	close(taskChan)
	wg.Wait()

	for i := range results {
		if !started[i] {
			results[i] = Result[T]{ID: tasks[i].ID, Error: ctx.Err()}
		}
	}

	return results
}

// runTask executes a single task, turning a panic into a PanicError
func runTask[T any](ctx context.Context, task Task[T]) (result Result[T]) {
	start := time.Now()
	result.ID = task.ID

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			result.Error = &PanicError{TaskID: task.ID, Value: r, Stack: debug.Stack()}
		}
	}()

	result.Data, result.Error = task.Func(ctx)

	return result
}
