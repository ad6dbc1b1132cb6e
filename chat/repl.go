package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/supervisor-agent/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/supervisor-agent/agent/contract"
)

const banner = `Silent Coding Legend
A supervisor with three specialists: researcher, coder and analyst.
Type 'exit', 'quit' or 'bye' to leave.`

// Runner is the part of the orchestrator the front ends depend on.
type Runner interface {
	Run(ctx context.Context, task string, opts ...orchestratorx.RunOption) (orchestratorx.Result, error)
}

type REPL struct {
	In     io.Reader
	Out    io.Writer
	Runner Runner
	Quiet  bool

	// Render turns a markdown answer into terminal output. Nil prints it as-is.
	Render func(markdown string) (string, error)

	history *History
}

// NewREPL wires a REPL with glamour rendering when the terminal supports it.
func NewREPL(in io.Reader, out io.Writer, runner Runner) *REPL {
	r := &REPL{
		In:      in,
		Out:     out,
		Runner:  runner,
		history: NewHistory(),
	}

	glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		log.Warn().Err(err).Msg("markdown renderer unavailable, printing plain text")
		return r
	}
	r.Render = glam.Render
	return r
}

func (r *REPL) History() *History {
	if r.history == nil {
		r.history = NewHistory()
	}
	return r.history
}

// Run reads one task per line until an exit keyword, EOF or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.In)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	history := r.History()

	fmt.Fprintln(r.Out, color.CyanString(banner))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fmt.Fprintf(r.Out, "\n%s: ", color.GreenString("You"))
		if !scanner.Scan() {
			fmt.Fprintln(r.Out, "\nGoodbye!")
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if IsExit(input) {
			fmt.Fprintln(r.Out, color.CyanString("Goodbye! Thanks for chatting."))
			return nil
		}

		task := BuildTask(history.Lines(), input)
		history.Add(RoleUser, input)

		fmt.Fprintln(r.Out, color.YellowString("\nThinking..."))
		res, err := r.Runner.Run(ctx, task, orchestratorx.WithObserver(r.progress()))
		if err != nil {
			log.Error().Err(err).Msg("chat turn failed")
			fmt.Fprintln(r.Out, color.RedString("\nAssistant: "+ErrorAnswer(err)))
			continue
		}

		agents := contributorNames(res)
		history.Add(RoleAssistant, res.FinalAnswer, agents...)
		r.printAnswer(res.FinalAnswer, agents)
	}
}

func (r *REPL) progress() contractx.Observer {
	if r.Quiet {
		return nil
	}
	return ProgressPrinter(r.Out)
}

// ProgressPrinter writes one dimmed line per described step to out.
func ProgressPrinter(out io.Writer) contractx.Observer {
	return contractx.ObserverFunc(func(_ context.Context, step contractx.Step) {
		if line := DescribeStep(step); line != "" {
			fmt.Fprintln(out, color.HiBlackString("  "+line))
		}
	})
}

func (r *REPL) printAnswer(answer string, agents []string) {
	out := answer
	if r.Render != nil {
		rendered, err := r.Render(answer)
		if err == nil {
			out = rendered
		}
	}

	fmt.Fprintf(r.Out, "\n%s:\n%s\n", color.BlueString("Assistant"), strings.TrimRight(out, "\n"))
	if len(agents) > 0 {
		fmt.Fprintln(r.Out, color.MagentaString("\nSpecialists that contributed:"))
		for _, name := range agents {
			fmt.Fprintln(r.Out, color.MagentaString("  - "+name))
		}
	}
}

func contributorNames(res orchestratorx.Result) []string {
	names := res.Contributors()
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, string(name))
	}
	return out
}

// DescribeStep renders a progress event as one short line. Run-level
// events are not described.
func DescribeStep(step contractx.Step) string {
	switch step.Kind {
	case contractx.StepSupervisorDecided:
		switch {
		case step.StepLimit:
			return fmt.Sprintf("step %d: supervisor stopped at the step limit", step.Number)
		case step.Fallback:
			return fmt.Sprintf("step %d: supervisor reply unreadable, giving up", step.Number)
		case step.Worker != "":
			return fmt.Sprintf("step %d: supervisor assigned %s", step.Number, step.Worker)
		default:
			return fmt.Sprintf("step %d: supervisor is ready to answer", step.Number)
		}
	case contractx.StepWorkerStarted:
		return fmt.Sprintf("step %d: %s is working", step.Number, step.Worker)
	case contractx.StepWorkerFinished:
		if step.Err != nil {
			return fmt.Sprintf("step %d: %s failed after %s", step.Number, step.Worker, step.Duration.Round(time.Millisecond))
		}
		return fmt.Sprintf("step %d: %s finished in %s", step.Number, step.Worker, step.Duration.Round(time.Millisecond))
	default:
		return ""
	}
}
