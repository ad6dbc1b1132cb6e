package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
)

var (
	//go:embed template/supervisor.txt
	supervisorRaw string

	//go:embed template/worker.txt
	workerRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Supervisor string
	Worker     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Supervisor: strings.TrimSpace(supervisorRaw),
		Worker:     strings.TrimSpace(workerRaw),
	}
}

func (p PromptSet) Validate() error {
	if strings.TrimSpace(p.Supervisor) == "" {
		return fmt.Errorf("%w: supervisor", contractx.ErrPromptMissing)
	}
	if strings.TrimSpace(p.Worker) == "" {
		return fmt.Errorf("%w: worker", contractx.ErrPromptMissing)
	}
	return nil
}
