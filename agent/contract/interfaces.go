package contract

import (
	"context"

	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

type Supervisor interface {
	Decide(ctx context.Context, st statex.AgentState) (Decision, error)
}

type Worker interface {
	Name() statex.WorkerName
	Run(ctx context.Context, st statex.AgentState) (statex.AgentState, error)
}

type Registry interface {
	Supervisor() Supervisor
	Researcher() Worker
	Coder() Worker
	Analyst() Worker
}

type Observer interface {
	OnStep(ctx context.Context, step Step)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(ctx context.Context, step Step)

func (f ObserverFunc) OnStep(ctx context.Context, step Step) {
	f(ctx, step)
}

// Observers fans a step out to every non-nil observer.
type Observers []Observer

func (o Observers) OnStep(ctx context.Context, step Step) {
	for _, obs := range o {
		if obs != nil {
			obs.OnStep(ctx, step)
		}
	}
}

type observerKey struct{}

// WithObserver attaches obs to ctx so graph nodes can report progress.
func WithObserver(ctx context.Context, obs Observer) context.Context {
	if obs == nil {
		return ctx
	}
	return context.WithValue(ctx, observerKey{}, obs)
}

// ObserverFrom returns the observer attached to ctx, or a no-op.
func ObserverFrom(ctx context.Context) Observer {
	if obs, ok := ctx.Value(observerKey{}).(Observer); ok && obs != nil {
		return obs
	}
	return Observers(nil)
}
