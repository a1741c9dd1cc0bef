package dispatch

import "fmt"

// Kind discriminates an Outcome.
type Kind int

// The zero Kind is KindUnknown so an unset Outcome never reads as an answer.
const (
	KindUnknown Kind = iota
	KindAnswer
	KindCancelled
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindAnswer:
		return "answer"
	case KindCancelled:
		return "cancelled"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the single result of a dispatch: an answer, a cancellation
// or a failure. Use the constructors; the zero value has KindUnknown.
type Outcome struct {
	Kind   Kind
	Text   string // answer text, KindAnswer only
	Source Source // answering source, KindAnswer only
	Reason string // KindFailed only
}

// Answered returns an answer outcome.
func Answered(text string, source Source) Outcome {
	return Outcome{Kind: KindAnswer, Text: text, Source: source}
}

// Cancelled returns the cancelled outcome.
func Cancelled() Outcome {
	return Outcome{Kind: KindCancelled}
}

// Failed returns a failure outcome.
func Failed(reason string) Outcome {
	return Outcome{Kind: KindFailed, Reason: reason}
}

func (o Outcome) String() string {
	switch o.Kind {
	case KindAnswer:
		return fmt.Sprintf("Answer(%s): %s", o.Source, o.Text)
	case KindFailed:
		return fmt.Sprintf("Failed: %s", o.Reason)
	default:
		return o.Kind.String()
	}
}
