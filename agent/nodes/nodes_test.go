package orchestratornode

import (
	"context"
	"errors"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

type fakeSupervisor struct {
	decision contractx.Decision
	err      error
	calls    int
}

func (f *fakeSupervisor) Decide(context.Context, statex.AgentState) (contractx.Decision, error) {
	f.calls++
	return f.decision, f.err
}

type fakeWorker struct {
	name statex.WorkerName
	text string
	err  error
}

func (f *fakeWorker) Name() statex.WorkerName {
	return f.name
}

func (f *fakeWorker) Run(_ context.Context, st statex.AgentState) (statex.AgentState, error) {
	if f.err != nil {
		return st, f.err
	}
	return st.WithWorkerResult(f.name, f.text), nil
}

type fakeRegistry struct {
	researcher, coder, analyst contractx.Worker
}

func (f fakeRegistry) Supervisor() contractx.Supervisor { return nil }
func (f fakeRegistry) Researcher() contractx.Worker     { return f.researcher }
func (f fakeRegistry) Coder() contractx.Worker          { return f.coder }
func (f fakeRegistry) Analyst() contractx.Worker        { return f.analyst }

func collectSteps(ctx context.Context) (context.Context, *[]contractx.Step) {
	var steps []contractx.Step
	ctx = contractx.WithObserver(ctx, contractx.ObserverFunc(func(_ context.Context, step contractx.Step) {
		steps = append(steps, step)
	}))
	return ctx, &steps
}

func TestValidateTask(t *testing.T) {
	t.Parallel()

	if _, err := ValidateTask("   "); !errors.Is(err, contractx.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask, got %v", err)
	}

	st, err := ValidateTask(" hello ")
	if err != nil {
		t.Fatalf("ValidateTask() error = %v", err)
	}
	if st.Task != " hello " || st.NextAction != statex.ActionAssignWorker {
		t.Fatalf("unexpected initial state: %#v", st)
	}
}

func TestValidateFinal(t *testing.T) {
	t.Parallel()

	if err := ValidateFinal(statex.New("t")); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err := ValidateFinal(statex.New("t").WithFinish("done")); err != nil {
		t.Fatalf("ValidateFinal() error = %v", err)
	}
}

func TestSuperviseAppliesDecision(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{decision: contractx.Decision{
		Action:    statex.ActionAssignWorker,
		Worker:    statex.WorkerCoder,
		Reasoning: "needs code",
	}}
	ctx, steps := collectSteps(context.Background())

	out, err := Supervise(ctx, statex.New("t"), sup, 8)
	if err != nil {
		t.Fatalf("Supervise() error = %v", err)
	}
	if out.CurrentWorker != statex.WorkerCoder || out.NextAction != statex.ActionAssignWorker || out.Steps != 1 {
		t.Fatalf("unexpected state: %#v", out)
	}
	if len(*steps) != 1 || (*steps)[0].Kind != contractx.StepSupervisorDecided || (*steps)[0].Worker != statex.WorkerCoder {
		t.Fatalf("unexpected steps: %#v", *steps)
	}
}

func TestSuperviseStepLimit(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{decision: contractx.Decision{Action: statex.ActionAssignWorker, Worker: statex.WorkerCoder}}
	in := statex.New("t").WithWorkerResult(statex.WorkerAnalyst, "a")
	in.Steps = 3
	ctx, steps := collectSteps(context.Background())

	out, err := Supervise(ctx, in, sup, 3)
	if err != nil {
		t.Fatalf("Supervise() error = %v", err)
	}
	if sup.calls != 0 {
		t.Fatalf("supervisor should not be called at the limit, got %d calls", sup.calls)
	}
	if out.NextAction != statex.ActionFinish || !strings.Contains(out.FinalAnswer, "analyst") {
		t.Fatalf("unexpected state: %#v", out)
	}
	if len(*steps) != 1 || !(*steps)[0].StepLimit {
		t.Fatalf("expected a step-limit event, got %#v", *steps)
	}
}

func TestSupervisePropagatesError(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{err: contractx.ErrModelInvoke}
	_, err := Supervise(context.Background(), statex.New("t"), sup, 8)
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestStepLimitAnswerWithoutContributors(t *testing.T) {
	t.Parallel()

	if got := StepLimitAnswer(statex.New("t")); !strings.Contains(got, "before any specialist") {
		t.Fatalf("unexpected answer: %s", got)
	}
}

func TestRunWorker(t *testing.T) {
	t.Parallel()

	ctx, steps := collectSteps(context.Background())
	out, err := RunWorker(ctx, statex.New("t"), &fakeWorker{name: statex.WorkerResearcher, text: "facts"})
	if err != nil {
		t.Fatalf("RunWorker() error = %v", err)
	}
	if out.WorkerResults[statex.WorkerResearcher] != "facts" {
		t.Fatalf("unexpected results: %#v", out.WorkerResults)
	}
	if len(*steps) != 2 || (*steps)[0].Kind != contractx.StepWorkerStarted || (*steps)[1].Kind != contractx.StepWorkerFinished {
		t.Fatalf("unexpected steps: %#v", *steps)
	}
}

func TestRunWorkerError(t *testing.T) {
	t.Parallel()

	ctx, steps := collectSteps(context.Background())
	_, err := RunWorker(ctx, statex.New("t"), &fakeWorker{name: statex.WorkerCoder, err: contractx.ErrModelInvoke})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
	if len(*steps) != 2 || (*steps)[1].Err == nil {
		t.Fatalf("expected failed finish event, got %#v", *steps)
	}
}

func TestPickWorker(t *testing.T) {
	t.Parallel()

	reg := fakeRegistry{
		researcher: &fakeWorker{name: statex.WorkerResearcher},
		coder:      &fakeWorker{name: statex.WorkerCoder},
		analyst:    &fakeWorker{name: statex.WorkerAnalyst},
	}
	for _, name := range statex.Workers() {
		w, err := PickWorker(name, reg)
		if err != nil {
			t.Fatalf("PickWorker(%s) error = %v", name, err)
		}
		if w.Name() != name {
			t.Fatalf("PickWorker(%s) returned %s", name, w.Name())
		}
	}

	if _, err := PickWorker("designer", reg); !errors.Is(err, contractx.ErrUnknownWorker) {
		t.Fatalf("expected ErrUnknownWorker, got %v", err)
	}
}
