package orchestratornode

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

// ValidateTask builds the initial state for a run. Blank tasks are rejected;
// the task text itself is kept as given.
func ValidateTask(task string) (statex.AgentState, error) {
	if strings.TrimSpace(task) == "" {
		return statex.AgentState{}, fmt.Errorf("%w: task is empty", contractx.ErrInvalidTask)
	}
	return statex.New(task), nil
}

// ValidateFinal checks the state a run ended in.
func ValidateFinal(st statex.AgentState) error {
	if st.NextAction != statex.ActionFinish {
		return fmt.Errorf("%w: run ended with next_action=%q", contractx.ErrValidation, st.NextAction)
	}
	if err := st.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrValidation, err)
	}
	return nil
}
