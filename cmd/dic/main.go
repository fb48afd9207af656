// ABOUTME: Entry point for the dic editor server and CLI.
// ABOUTME: Builds the cobra command tree and shared helpers for config, logging, and collaborators.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389/dic/internal/config"
	"github.com/2389/dic/internal/generate"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/logging"
	"github.com/2389/dic/internal/remote"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dic",
		Short: "DIC - Dynamic Interface Compiler",
		Long: `DIC turns JSON interface schemas into live, editable UIs.

A schema is a JSON array of components (form, text, image). The editor keeps
the JSON buffer and the rendered preview in sync in both directions, supports
drag-and-drop reordering, in-place editing, AI generation from a prompt, and a
library of saved schemas.

Quick Start:
  dic serve                      # Editor on http://localhost:9000
  dic serve --watch ui.json      # Edit ui.json on disk and in the browser
  dic generate "a contact form"  # Print a generated schema
  dic render ui.json             # Print the HTML for a schema file

Environment Variables:
  DIC_PORT            Server port (default: 9000)
  DIC_DB_PATH         Database path
  OPENAI_API_KEY      Generate with OpenAI
  ANTHROPIC_API_KEY   Generate with Anthropic`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "Config file (default: ./dic.yaml)")
	root.PersistentFlags().StringP("db", "d", "", "Database path")

	root.AddCommand(
		newServeCmd(),
		newRenderCmd(),
		newFmtCmd(),
		newGenerateCmd(),
		newListCmd(),
		newExportCmd(),
		newLogsCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies the persistent flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cleaned, err := config.ValidateDBPath(dbPath)
		if err != nil {
			return nil, err
		}
		cfg.DBPath = cleaned
	}
	return cfg, nil
}

// newLogger builds the logger for a command. CLI commands other than serve
// only log warnings so their output stays readable.
func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, func() error, error) {
	level := cfg.LogLevel
	if quiet {
		level = "warn"
	}
	return logging.NewLogger(logging.Options{Level: level, File: cfg.LogFile, Dev: cfg.Dev})
}

// schemaGenerator is what the server, the sessions, and `dic generate` need.
type schemaGenerator interface {
	Generate(ctx context.Context, prompt string) (schema.Schema, error)
}

// newGenerator uses the remote API when configured, else a local provider.
func newGenerator(cfg *config.Config, logger *zap.Logger) (schemaGenerator, error) {
	if cfg.Remote.GenerateURL != "" {
		logger.Info("using remote generator", zap.String("url", cfg.Remote.GenerateURL))
		return remote.NewGenerator(cfg.Remote.GenerateURL, cfg.Remote.Timeout), nil
	}
	gen, err := generate.New(generate.Config{
		Provider:     cfg.Generate.Provider,
		Model:        cfg.Generate.Model,
		OpenAIKey:    cfg.OpenAIKey,
		AnthropicKey: cfg.AnthropicKey,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("configure generator: %w", err)
	}
	logger.Info("schema generator ready", zap.String("provider", gen.Provider()))
	return gen, nil
}

// searchableLibrary is implemented by both the store and the remote client.
type searchableLibrary interface {
	library.Service
	Search(ctx context.Context, q string) ([]library.Entry, error)
}

// openLibrary returns the remote library when configured, else the local
// store. The close function releases the store.
func openLibrary(cfg *config.Config, logger *zap.Logger) (searchableLibrary, func() error, error) {
	if cfg.Remote.SchemasURL != "" {
		return remote.NewLibrary(cfg.Remote.SchemasURL, cfg.Remote.Timeout), func() error { return nil }, nil
	}
	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, st.Close, nil
}
