package chat

import (
	"slices"
	"strings"
	"sync"
	"time"
)

type Role string

const (
	RoleUser      Role = "User"
	RoleAssistant Role = "Assistant"
)

// ErrorPrefix starts every answer shown for a failed run.
const ErrorPrefix = "Sorry, I encountered an error: "

var exitKeywords = []string{"exit", "quit", "bye"}

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Agents  []string  `json:"agents,omitempty"`
	At      time.Time `json:"at"`
}

// Line renders the message the way it is fed back into the next task.
func (m Message) Line() string {
	return string(m.Role) + ": " + m.Content
}

// History is an append-only conversation log, safe for concurrent use.
type History struct {
	mu       sync.RWMutex
	messages []Message
	now      func() time.Time
}

func NewHistory() *History {
	return &History{now: time.Now}
}

func (h *History) Add(role Role, content string, agents ...string) Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := Message{
		Role:    role,
		Content: content,
		Agents:  slices.Clone(agents),
		At:      h.now().UTC(),
	}
	h.messages = append(h.messages, msg)
	return msg
}

func (h *History) Messages() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.messages)
}

// Lines returns every message as a "Role: content" line.
func (h *History) Lines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, 0, len(h.messages))
	for _, msg := range h.messages {
		out = append(out, msg.Line())
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = nil
}

// BuildTask folds earlier turns into the task text sent to the supervisor.
func BuildTask(prior []string, input string) string {
	if len(prior) == 0 {
		return input
	}
	return strings.Join(prior, "\n") + "\n\nCurrent request: " + input
}

// IsExit reports whether input is one of the exit keywords.
func IsExit(input string) bool {
	word := strings.ToLower(strings.TrimSpace(input))
	return slices.Contains(exitKeywords, word)
}

// ErrorAnswer is the text shown in place of an answer when a run fails.
func ErrorAnswer(err error) string {
	return ErrorPrefix + err.Error()
}
