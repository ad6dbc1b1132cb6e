package state

import (
	"errors"
	"fmt"
	"maps"
	"strings"
)

// AgentState is the record threaded through every step of one supervisor run.
// - Task is fixed for the run.
// - WorkerResults grows monotonically; a worker called twice overwrites its own entry.
// - FinalAnswer is only set together with NextAction=finish.
//
// Steps return updated copies (see With* helpers); the results map is cloned on
// every update so two steps never share it.
type AgentState struct {
	Task          string                `json:"task"`
	WorkerResults map[WorkerName]string `json:"worker_results"`
	CurrentWorker WorkerName            `json:"current_worker"`
	FinalAnswer   string                `json:"final_answer"`
	NextAction    NextAction            `json:"next_action"`

	// Steps counts supervisor decisions taken so far.
	Steps int `json:"steps"`
}

type WorkerName string

const (
	WorkerResearcher WorkerName = "researcher"
	WorkerCoder      WorkerName = "coder"
	WorkerAnalyst    WorkerName = "analyst"
)

// Workers lists the configured workers in their canonical order.
func Workers() []WorkerName {
	return []WorkerName{WorkerResearcher, WorkerCoder, WorkerAnalyst}
}

// ParseWorkerName normalizes a model supplied worker name. Unknown names are
// returned as-is with ok=false.
func ParseWorkerName(raw string) (WorkerName, bool) {
	name := WorkerName(strings.ToLower(strings.TrimSpace(raw)))
	return name, name.Valid()
}

func (w WorkerName) Valid() bool {
	switch w {
	case WorkerResearcher, WorkerCoder, WorkerAnalyst:
		return true
	default:
		return false
	}
}

type NextAction string

const (
	ActionAssignWorker  NextAction = "assign_worker"
	ActionProcessResult NextAction = "process_result"
	ActionFinish        NextAction = "finish"
)

func (a NextAction) Valid() bool {
	switch a {
	case ActionAssignWorker, ActionProcessResult, ActionFinish:
		return true
	default:
		return false
	}
}

var (
	ErrUnknownWorkerResult = errors.New("worker result has unknown worker name")
	ErrInvalidNextAction   = errors.New("invalid next action")
	ErrPrematureAnswer     = errors.New("final answer set before finish")
)

// New builds the initial record for a run.
func New(task string) AgentState {
	return AgentState{
		Task:          task,
		WorkerResults: make(map[WorkerName]string, 3),
		NextAction:    ActionAssignWorker,
	}
}

func (s AgentState) clone() AgentState {
	out := s
	out.WorkerResults = make(map[WorkerName]string, len(s.WorkerResults)+1)
	maps.Copy(out.WorkerResults, s.WorkerResults)
	return out
}

// WithWorkerResult records a worker's output and hands control back to the supervisor.
func (s AgentState) WithWorkerResult(name WorkerName, text string) AgentState {
	out := s.clone()
	out.WorkerResults[name] = text
	out.NextAction = ActionProcessResult
	return out
}

// WithAssignment records a supervisor decision to hand the task to name.
func (s AgentState) WithAssignment(name WorkerName) AgentState {
	out := s.clone()
	out.CurrentWorker = name
	out.NextAction = ActionAssignWorker
	out.Steps++
	return out
}

// WithFinish records the terminal supervisor decision.
func (s AgentState) WithFinish(answer string) AgentState {
	out := s.clone()
	out.FinalAnswer = answer
	out.NextAction = ActionFinish
	out.Steps++
	return out
}

// Contributors returns the workers that produced a result, in canonical order.
func (s AgentState) Contributors() []WorkerName {
	return ContributorsOf(s.WorkerResults)
}

func ContributorsOf(results map[WorkerName]string) []WorkerName {
	out := make([]WorkerName, 0, len(results))
	for _, name := range Workers() {
		if _, ok := results[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

func (s AgentState) Validate() error {
	for name := range s.WorkerResults {
		if !name.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownWorkerResult, name)
		}
	}
	if !s.NextAction.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNextAction, s.NextAction)
	}
	if s.FinalAnswer != "" && s.NextAction != ActionFinish {
		return fmt.Errorf("%w: next_action=%s", ErrPrematureAnswer, s.NextAction)
	}
	return nil
}
