// Package main provides the askbase CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/richinex/askbase/cli"
	"github.com/richinex/askbase/config"
	"github.com/richinex/askbase/dispatch"
)

var (
	// Global flags
	configPath string
	verbose    bool

	logger   *zap.Logger
	settings config.Settings
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "askbase",
		Short: "Answer questions from a local knowledge base or a remote LLM",
		Long: `Answer free-text questions from one of three sources:

- local:   the built-in knowledge base, optionally ranked by a retriever
- gemini:  Google Gemini, grounded with retrieved context
- chatgpt: OpenAI ChatGPT, grounded with retrieved context

Context retrieval is bounded by a timeout and never fails a query.
Ctrl-C stops the question in flight.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zapConfig := zap.NewProductionConfig()
			if verbose {
				zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = zapConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			settings, err = config.Load(configPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "askbase.toml", "Path to TOML config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(kbCmd())
	rootCmd.AddCommand(indexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openApp builds the application from the loaded settings.
func openApp() (*cli.App, error) {
	return cli.NewApp(settings, logger)
}

// resolveSource returns the --source flag value or the configured default.
func resolveSource(app *cli.App, flag string) (dispatch.Source, error) {
	if flag == "" {
		return app.DefaultSource()
	}
	return dispatch.ParseSource(flag)
}

func askCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ask [query]",
		Short: "Ask a single question",
		Long: `Ask a single question and print the answer.

Press Ctrl-C while waiting to stop the question.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			src, err := resolveSource(app, source)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return cli.Ask(ctx, cmd.OutOrStdout(), app, strings.Join(args, " "), src)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Answer source (local, gemini, chatgpt)")

	return cmd
}

func chatCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive question session",
		Long: `Start an interactive session. Each line is one question.

Ctrl-C stops the question in flight; at the prompt it ends the session.
Type /help for commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			src, err := resolveSource(app, source)
			if err != nil {
				return err
			}

			interrupts := make(chan os.Signal, 1)
			signal.Notify(interrupts, os.Interrupt)
			defer signal.Stop(interrupts)

			return cli.Chat(context.Background(), cmd.InOrStdin(), cmd.OutOrStdout(), app, src, interrupts)
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Initial answer source (local, gemini, chatgpt)")

	return cmd
}

func kbCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kb",
		Short: "List the knowledge base entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			cli.ListKnowledge(cmd.OutOrStdout(), app)
			return nil
		},
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the retrieval index",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Build the retrieval index now",
		Long: `Build the configured retrieval index eagerly.

For the gemini and openai retrievers this embeds every knowledge entry and
stores the vectors in the SQLite cache, so later runs skip re-embedding.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			return cli.BuildIndex(ctx, cmd.OutOrStdout(), app)
		},
	})

	return cmd
}
