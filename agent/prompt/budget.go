package prompt

import (
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog/log"

	statex "github.com/tanpawarit/supervisor-agent/agent/state"
)

const (
	truncatedMarker   = "\n…[truncated]"
	noResultsText     = "(none yet)"
	charsPerTokenHint = 4
)

// Tokenizer counts and cuts text in model tokens.
type Tokenizer interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}

// Budget bounds the worker results embedded in the supervisor prompt.
// MaxTokens <= 0 disables truncation.
type Budget struct {
	MaxTokens int
	Tokenizer Tokenizer
}

// NewBudget starts loading the model's encoding in the background; counts
// are estimated until it is ready.
func NewBudget(model string, maxTokens int) *Budget {
	tok := NewTiktokenTokenizer(model)
	tok.Warm()
	return &Budget{
		MaxTokens: maxTokens,
		Tokenizer: tok,
	}
}

// Render writes results as literal text in canonical worker order. Each
// result gets an even share of the budget.
func (b *Budget) Render(results map[statex.WorkerName]string) string {
	names := statex.ContributorsOf(results)
	if len(names) == 0 {
		return noResultsText
	}

	share := 0
	if b != nil && b.MaxTokens > 0 {
		share = max(b.MaxTokens/len(names), 1)
	}

	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		text := strings.TrimSpace(results[name])
		if share > 0 {
			text = b.fit(text, share)
		}
		sb.WriteString("[")
		sb.WriteString(string(name))
		sb.WriteString("]\n")
		sb.WriteString(text)
	}
	return sb.String()
}

func (b *Budget) fit(text string, maxTokens int) string {
	tok := b.Tokenizer
	if tok == nil {
		tok = EstimateTokenizer{}
	}
	if tok.Count(text) <= maxTokens {
		return text
	}
	return tok.Truncate(text, maxTokens) + truncatedMarker
}

// EstimateTokenizer approximates tokens as four runes each.
type EstimateTokenizer struct{}

func (EstimateTokenizer) Count(text string) int {
	n := len([]rune(text))
	return (n + charsPerTokenHint - 1) / charsPerTokenHint
}

func (EstimateTokenizer) Truncate(text string, maxTokens int) string {
	runes := []rune(text)
	limit := maxTokens * charsPerTokenHint
	if limit >= len(runes) {
		return text
	}
	return string(runes[:limit])
}

var modelEncodings = map[string]string{
	"gpt-4o":        "o200k_base",
	"gpt-4.1":       "o200k_base",
	"o1":            "o200k_base",
	"o3":            "o200k_base",
	"o4":            "o200k_base",
	"gpt-4":         "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
}

// TiktokenTokenizer counts with the model's tiktoken encoding. The encoding
// is loaded in the background (it may be downloaded on first use). Until it
// is ready, or when it cannot be loaded, EstimateTokenizer is used, so a slow
// download never holds up a supervisor call.
type TiktokenTokenizer struct {
	encoding string
	enc      atomic.Pointer[tiktoken.Tiktoken]
	once     sync.Once
	fallback EstimateTokenizer
}

func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	return &TiktokenTokenizer{encoding: encodingForModel(model)}
}

func encodingForModel(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	if enc, ok := modelEncodings[model]; ok {
		return enc
	}
	best := ""
	for prefix := range modelEncodings {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return modelEncodings[best]
	}
	return "cl100k_base"
}

// Warm starts loading the encoding once.
func (t *TiktokenTokenizer) Warm() {
	t.once.Do(func() {
		go t.load()
	})
}

func (t *TiktokenTokenizer) load() {
	enc, err := tiktoken.GetEncoding(t.encoding)
	if err != nil {
		log.Warn().Err(err).Str("encoding", t.encoding).Msg("tiktoken encoding unavailable, estimating tokens")
		return
	}
	t.enc.Store(enc)
}

func (t *TiktokenTokenizer) current() *tiktoken.Tiktoken {
	t.Warm()
	return t.enc.Load()
}

func (t *TiktokenTokenizer) Count(text string) int {
	enc := t.current()
	if enc == nil {
		return t.fallback.Count(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *TiktokenTokenizer) Truncate(text string, maxTokens int) string {
	enc := t.current()
	if enc == nil {
		return t.fallback.Truncate(text, maxTokens)
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return trimPartialRune(enc.Decode(tokens[:maxTokens]))
}

// trimPartialRune drops the bytes of a rune split by a token boundary at the
// end of s.
func trimPartialRune(s string) string {
	for len(s) > 0 {
		r, size := utf8.DecodeLastRuneInString(s)
		if r != utf8.RuneError || size != 1 {
			break
		}
		s = s[:len(s)-1]
	}
	return strings.ToValidUTF8(s, "")
}
