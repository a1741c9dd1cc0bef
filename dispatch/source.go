package dispatch

import (
	"fmt"
	"strings"

	"github.com/richinex/askbase/llm"
)

// Source selects which tier answers a query.
type Source int

const (
	// SourceLocal answers from retrieved context or the keyword matcher.
	SourceLocal Source = iota
	// SourceGemini answers through the Gemini client.
	SourceGemini
	// SourceChatGPT answers through the ChatGPT client.
	SourceChatGPT
)

// Sources lists every source in display order.
var Sources = []Source{SourceLocal, SourceGemini, SourceChatGPT}

// String returns the source id.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceGemini:
		return "gemini"
	case SourceChatGPT:
		return "chatgpt"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Label returns the name shown to users.
func (s Source) Label() string {
	switch s {
	case SourceLocal:
		return "Local"
	case SourceGemini:
		return llm.ProviderGemini.Label()
	case SourceChatGPT:
		return llm.ProviderChatGPT.Label()
	default:
		return s.String()
	}
}

// Provider returns the remote provider behind s, if any.
func (s Source) Provider() (llm.ProviderType, bool) {
	switch s {
	case SourceGemini:
		return llm.ProviderGemini, true
	case SourceChatGPT:
		return llm.ProviderChatGPT, true
	default:
		return 0, false
	}
}

// ParseSource parses a source id (case-insensitive). Provider aliases
// accepted by llm.ParseProviderType are accepted too.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "kb":
		return SourceLocal, nil
	}
	pt, err := llm.ParseProviderType(s)
	if err != nil {
		return 0, fmt.Errorf("unknown source: %q", s)
	}
	if pt == llm.ProviderGemini {
		return SourceGemini, nil
	}
	return SourceChatGPT, nil
}
