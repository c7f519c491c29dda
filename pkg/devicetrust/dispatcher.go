package devicetrust

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Task is one side effect of a verdict. A failing task never changes the verdict.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher runs side effects after the verdict is final
type Dispatcher interface {
	Dispatch(ctx context.Context, tasks ...Task)
}

func runTask(ctx context.Context, task Task) {
	if err := task.Run(ctx); err != nil {
		SideEffectsTotal.WithLabelValues(task.Name, "error").Inc()
		slog.Warn("Device trust side effect failed", "task", task.Name, "error", err)
		return
	}
	SideEffectsTotal.WithLabelValues(task.Name, "ok").Inc()
}

// SyncDispatcher runs every task inline, in order
type SyncDispatcher struct{}

func (SyncDispatcher) Dispatch(ctx context.Context, tasks ...Task) {
	for _, task := range tasks {
		runTask(ctx, task)
	}
}

// AsyncDispatcher runs each task in its own goroutine. Tasks get a context
// detached from the request and bounded by the configured timeout.
type AsyncDispatcher struct {
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncDispatcher(timeout time.Duration) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncDispatcher{timeout: timeout}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, tasks ...Task) {
	detached := context.WithoutCancel(ctx)
	for _, task := range tasks {
		d.wg.Add(1)
		go func(task Task) {
			defer d.wg.Done()
			taskCtx, cancel := context.WithTimeout(detached, d.timeout)
			defer cancel()
			runTask(taskCtx, task)
		}(task)
	}
}

// Wait blocks until every dispatched task has finished
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}
