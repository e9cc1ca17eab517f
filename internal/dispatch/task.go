package dispatch

import (
	"context"
	"fmt"
)

// Func is the callable behind a task. Its argument shape is not checked on
// the producer side; mismatches surface when a worker executes it.
type Func func(ctx context.Context, args []any, kwargs map[string]any) (any, error)

// Task is a named unit of work bound to a namespace. Tasks are immutable
// once registered.
type Task struct {
	name      string
	fn        Func
	namespace *Namespace
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Namespace() *Namespace {
	return t.namespace
}

// Call runs the task in-process. A task registered without a callable
// fails with ErrNoCallable.
func (t *Task) Call(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCallable, t.name)
	}
	return t.fn(ctx, args, kwargs)
}

// Delay publishes an invocation of the task to its namespace's topic and
// returns the invocation id.
func (t *Task) Delay(ctx context.Context, args []any, kwargs map[string]any) (string, error) {
	return t.namespace.SendTask(ctx, t, args, kwargs)
}
