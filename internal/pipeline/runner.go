package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the single outcome of a background run.
type Result[T any] struct {
	RunID string
	Value T
	Err   error
}

// Runner moves pipeline invocations off the caller's goroutine. Runs are
// serialized so no two touch the engine caches at once.
type Runner struct {
	mu  sync.Mutex
	log *zap.Logger
}

// NewRunner returns a Runner logging run boundaries to log.
func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{log: log}
}

// Run starts fn in the background and returns a channel that receives
// exactly one Result and is then closed. A panic in fn is reported as an
// error.
func Run[T any](r *Runner, ctx context.Context, name string, fn func(context.Context) (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	id := uuid.NewString()
	go func() {
		defer close(ch)
		r.mu.Lock()
		defer r.mu.Unlock()
		start := time.Now()
		res := Result[T]{RunID: id}
		func() {
			defer func() {
				if p := recover(); p != nil {
					res.Err = fmt.Errorf("%s panicked: %v", name, p)
				}
			}()
			if err := ctx.Err(); err != nil {
				res.Err = err
				return
			}
			res.Value, res.Err = fn(ctx)
		}()
		r.log.Debug("run finished", zap.String("run", id), zap.String("op", name), zap.Duration("took", time.Since(start)), zap.Error(res.Err))
		ch <- res
	}()
	return ch
}
