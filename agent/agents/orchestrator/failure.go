package orchestrator

import (
	"context"
	"sync"
)

// runFailure keeps the first error raised by a node or branch so Run can
// return it unwrapped by the graph runtime.
type runFailure struct {
	mu  sync.Mutex
	err error
}

type runFailureKey struct{}

func withRunFailure(ctx context.Context) (context.Context, *runFailure) {
	f := &runFailure{}
	return context.WithValue(ctx, runFailureKey{}, f), f
}

func recordFailure(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if f, ok := ctx.Value(runFailureKey{}).(*runFailure); ok {
		f.mu.Lock()
		if f.err == nil {
			f.err = err
		}
		f.mu.Unlock()
	}
	return err
}

func (f *runFailure) first() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}
