package contract

import (
	"fmt"
	"time"

	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

// FallbackAnswer is the terminal answer used when the supervisor reply cannot be parsed.
const FallbackAnswer = "Failed to process the task properly."

type AgentType string

const (
	AgentTypeSupervisor AgentType = "supervisor"
	AgentTypeResearcher AgentType = AgentType(statex.WorkerResearcher)
	AgentTypeCoder      AgentType = AgentType(statex.WorkerCoder)
	AgentTypeAnalyst    AgentType = AgentType(statex.WorkerAnalyst)
)

// WorkerDescriptions holds the role text rendered into each worker prompt.
var WorkerDescriptions = map[statex.WorkerName]string{
	statex.WorkerResearcher: "finding and synthesizing information",
	statex.WorkerCoder:      "writing and debugging code",
	statex.WorkerAnalyst:    "data analysis and critical thinking",
}

// Decision is the parsed supervisor reply.
type Decision struct {
	Action      statex.NextAction `json:"next_action"`
	Worker      statex.WorkerName `json:"worker_to_assign,omitempty"`
	Reasoning   string            `json:"reasoning"`
	FinalAnswer string            `json:"final_answer,omitempty"`

	// Fallback is set when the reply could not be parsed and FallbackAnswer was used.
	Fallback bool `json:"-"`
}

func FallbackDecision(cause error) Decision {
	reason := "supervisor reply could not be parsed"
	if cause != nil {
		reason = fmt.Sprintf("%s: %v", reason, cause)
	}
	return Decision{
		Action:      statex.ActionFinish,
		Reasoning:   reason,
		FinalAnswer: FallbackAnswer,
		Fallback:    true,
	}
}

// Apply folds the decision into st. Any action other than finish is treated
// as an assignment; the router rejects names it does not know.
func (d Decision) Apply(st statex.AgentState) statex.AgentState {
	if d.Action == statex.ActionFinish {
		return st.WithFinish(d.FinalAnswer)
	}
	return st.WithAssignment(d.Worker)
}

type StepKind string

const (
	StepSupervisorDecided StepKind = "supervisor_decided"
	StepWorkerStarted     StepKind = "worker_started"
	StepWorkerFinished    StepKind = "worker_finished"
	StepRunCompleted      StepKind = "run_completed"
	StepRunFailed         StepKind = "run_failed"
)

// Step is a progress event emitted while a run moves through the graph.
type Step struct {
	Kind      StepKind          `json:"kind"`
	Number    int               `json:"number"`
	Action    statex.NextAction `json:"action,omitempty"`
	Worker    statex.WorkerName `json:"worker,omitempty"`
	Reasoning string            `json:"reasoning,omitempty"`
	Fallback  bool              `json:"fallback,omitempty"`
	StepLimit bool              `json:"step_limit,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
	Err       error             `json:"-"`
}
