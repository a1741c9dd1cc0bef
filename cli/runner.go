// Command execution for CLI commands.
//
// Information Hiding:
// - Outcome rendering (answer text, stopped indicator, generic error)
// - Chat loop input handling and slash commands
// - Per-dispatch cancellation from interrupts
// - In-session transcript bookkeeping

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/askbase/dispatch"
	"github.com/richinex/askbase/storage"
)

const (
	stoppedIndicator = "[stopped]"
	genericError     = "Something went wrong. Please try again."
)

// ErrEmptyQuery is returned when a query is blank.
var ErrEmptyQuery = errors.New("query must not be empty")

// Ask dispatches a single query and writes the outcome to w.
func Ask(ctx context.Context, w io.Writer, app *App, query string, source dispatch.Source) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	out := app.Dispatcher.Dispatch(ctx, query, source)
	return render(w, out)
}

// render writes an outcome the way the user sees it. Only Failed
// returns an error.
func render(w io.Writer, out dispatch.Outcome) error {
	switch out.Kind {
	case dispatch.KindAnswer:
		fmt.Fprintf(w, "%s\n", out.Text)
	case dispatch.KindCancelled:
		fmt.Fprintln(w, stoppedIndicator)
	default:
		fmt.Fprintln(w, genericError)
		return fmt.Errorf("dispatch failed: %s", out.Reason)
	}
	return nil
}

// Chat runs an interactive session reading queries from in. A value on
// interrupts cancels the dispatch in flight; at the prompt it ends the
// session.
func Chat(ctx context.Context, in io.Reader, w io.Writer, app *App, source dispatch.Source, interrupts <-chan os.Signal) error {
	s := &chatSession{
		app:        app,
		w:          w,
		source:     source,
		sessionID:  uuid.NewString(),
		interrupts: interrupts,
	}

	lines, done, scanErr := readLines(in)
	defer close(done)

	fmt.Fprintf(w, "Asking %s. Type /help for commands, /quit to exit.\n\n", source.Label())

	for {
		fmt.Fprintf(w, "[%s] > ", s.source)
		select {
		case <-ctx.Done():
			fmt.Fprintln(w)
			return nil
		case <-interrupts:
			fmt.Fprintln(w)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(w)
				return *scanErr
			}
			input := strings.TrimSpace(line)
			if input == "" {
				continue
			}
			if strings.HasPrefix(input, "/") || input == "exit" || input == "quit" {
				if s.command(ctx, input) {
					return nil
				}
				continue
			}
			s.ask(ctx, input)
		}
	}
}

// readLines scans in on its own goroutine so the chat loop can also
// wait on interrupts. scanErr is valid once lines is closed.
func readLines(in io.Reader) (<-chan string, chan struct{}, *error) {
	lines := make(chan string)
	done := make(chan struct{})
	scanErr := new(error)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		*scanErr = scanner.Err()
	}()

	return lines, done, scanErr
}

type chatSession struct {
	app        *App
	w          io.Writer
	source     dispatch.Source
	sessionID  string
	interrupts <-chan os.Signal
}

func (s *chatSession) ask(ctx context.Context, query string) {
	dctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		select {
		case <-s.interrupts:
			cancel()
		case <-finished:
		}
	}()

	out := s.app.Dispatcher.Dispatch(dctx, query, s.source)
	close(finished)

	fmt.Fprintln(s.w)
	if err := render(s.w, out); err != nil {
		s.app.logger.Debug("chat dispatch failed", zap.Error(err))
	}
	fmt.Fprintln(s.w)

	turn := storage.Turn{
		ID:      uuid.NewString(),
		Query:   query,
		Source:  s.source.String(),
		Outcome: out.Kind.String(),
		Text:    out.Text,
		At:      time.Now(),
	}
	if err := s.app.Transcript.Append(ctx, s.sessionID, turn); err != nil {
		fmt.Fprintf(s.w, "Warning: failed to record turn: %v\n", err)
	}
}

// command handles a slash command. It reports true when the session
// should end.
func (s *chatSession) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/quit", "/exit", "exit", "quit":
		return true
	case "/help":
		fmt.Fprintln(s.w, "Commands:")
		fmt.Fprintln(s.w, "  /source <name>  switch source (local, gemini, chatgpt)")
		fmt.Fprintln(s.w, "  /history        show this session's exchanges")
		fmt.Fprintln(s.w, "  /clear          forget this session's exchanges")
		fmt.Fprintln(s.w, "  /quit           exit")
	case "/source":
		if len(fields) != 2 {
			fmt.Fprintf(s.w, "Current source: %s\n", s.source)
			break
		}
		source, err := dispatch.ParseSource(fields[1])
		if err != nil {
			fmt.Fprintf(s.w, "Error: %v\n", err)
			break
		}
		s.source = source
		fmt.Fprintf(s.w, "Switched to %s\n", source.Label())
	case "/history":
		s.printHistory(ctx)
	case "/clear":
		if err := s.app.Transcript.Clear(ctx, s.sessionID); err != nil {
			fmt.Fprintf(s.w, "Error: %v\n", err)
			break
		}
		fmt.Fprintln(s.w, "History cleared")
	default:
		fmt.Fprintf(s.w, "Unknown command %s (try /help)\n", fields[0])
	}
	return false
}

func (s *chatSession) printHistory(ctx context.Context) {
	turns, err := s.app.Transcript.Load(ctx, s.sessionID)
	if err != nil {
		fmt.Fprintf(s.w, "Error: %v\n", err)
		return
	}
	if len(turns) == 0 {
		fmt.Fprintln(s.w, "No history yet")
		return
	}
	for i, turn := range turns {
		fmt.Fprintf(s.w, "%d. [%s] %s\n", i+1, turn.Source, turn.Query)
		switch turn.Outcome {
		case dispatch.KindAnswer.String():
			fmt.Fprintf(s.w, "   %s\n", truncateString(turn.Text, 80))
		case dispatch.KindCancelled.String():
			fmt.Fprintf(s.w, "   %s\n", stoppedIndicator)
		default:
			fmt.Fprintf(s.w, "   (%s)\n", turn.Outcome)
		}
	}
}

// ListKnowledge writes every knowledge entry to w.
func ListKnowledge(w io.Writer, app *App) {
	entries := app.Base.Entries()
	fmt.Fprintf(w, "Knowledge base (%d entries):\n\n", len(entries))
	for i, entry := range entries {
		fmt.Fprintf(w, "%d. %s\n", i+1, strings.Join(entry.Keywords, ", "))
		fmt.Fprintf(w, "   %s\n", truncateString(entry.Answer, 100))
	}
}

// BuildIndex builds the configured retrieval index and reports its size.
func BuildIndex(ctx context.Context, w io.Writer, app *App) error {
	start := time.Now()
	if err := app.BuildIndex(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "Indexed %d documents with the %s retriever in %s\n",
		app.Base.Len(), app.Settings.Retrieval.Retriever, time.Since(start).Round(time.Millisecond))

	n, ok, err := app.CachedVectors(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(w, "Vector cache %s holds %d embeddings\n", app.Settings.Storage.DBPath, n)
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
