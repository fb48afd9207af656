// ABOUTME: Offline CLI commands: render, fmt, generate, list, export, logs.
// ABOUTME: They share the engine packages with the server and print to the command's output.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/2389/dic/internal/components"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/render"
	"github.com/2389/dic/internal/schema"
	"github.com/2389/dic/internal/store"
)

const exportFile = "ui-schema.json"

// readSchemaFile loads a schema document. YAML files are accepted and
// converted through the same validation as JSON.
func readSchemaFile(path string) (schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if doc == nil {
			return schema.Schema{}, nil
		}
		return schema.FromValue(doc)
	}
	return schema.Parse(string(data))
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func writeSchemaFile(path string, s schema.Schema) error {
	data, err := schema.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func newRenderCmd() *cobra.Command {
	var interactive bool
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Print the HTML for a schema file",
		Long: `Render a schema file (.json, .yaml or .yml) to HTML.

Unknown component types render as a visible placeholder rather than failing.
With --interactive the output carries the editor's drag handles and controls.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSchemaFile(args[0])
			if err != nil {
				return err
			}
			mode := render.Preview
			if interactive {
				mode = render.Interactive
			}
			out := cmd.OutOrStdout()
			if err := render.New(components.NewRegistry()).Render(s, mode, nil).Render(out); err != nil {
				return err
			}
			_, err = fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Include editing controls")
	return cmd
}

func newFmtCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Print a schema file in canonical form",
		Long: `Reformat a schema file as canonical JSON: "type" first, other keys sorted,
two-space indentation. With -w the file is rewritten in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			s, err := readSchemaFile(path)
			if err != nil {
				return err
			}
			if write {
				if isYAML(path) {
					return fmt.Errorf("refusing to rewrite %s as JSON; redirect the output instead", path)
				}
				return writeSchemaFile(path, s)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), schema.MustMarshal(s))
			return err
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the file")
	return cmd
}

type generateOptions struct {
	out  string
	save string
}

func newGenerateCmd() *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Generate a schema from a description",
		Long: `Generate a schema from a natural-language description.

Uses OpenAI or Anthropic when an API key is configured, the remote API when
remote.generate_url is set, and built-in templates otherwise. Without a prompt
argument an interactive prompt is shown when stdin is a terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Write the schema to a file instead of stdout")
	cmd.Flags().StringVar(&opts.save, "save", "", "Also save the schema to the library under this name")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts *generateOptions, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return errors.New("prompt is required")
		}
		if err := survey.AskOne(&survey.Input{
			Message: "Describe the interface:",
			Help:    "For example: a contact form with name, email and message",
		}, &prompt, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLogger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer closeLogger()

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}
	s, err := gen.Generate(cmd.Context(), prompt)
	if err != nil {
		return err
	}

	if opts.save != "" {
		lib, closeLib, err := openLibrary(cfg, logger)
		if err != nil {
			return err
		}
		defer closeLib()
		entry, err := lib.Save(cmd.Context(), library.Entry{Name: opts.save, Description: prompt, Schema: s})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %q as %s\n", entry.Name, entry.ID)
	}

	if opts.out != "" {
		return writeSchemaFile(opts.out, s)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), schema.MustMarshal(s))
	return err
}

func newListCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved schemas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lib, closeLib, err := openLibrary(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer closeLib()

			var entries []library.Entry
			if search != "" {
				entries, err = lib.Search(cmd.Context(), search)
			} else {
				entries, err = lib.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printEntries(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only show schemas whose name or description matches")
	return cmd
}

func printEntries(w io.Writer, entries []library.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No saved schemas")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Components", "Created")
	for _, e := range entries {
		if err := table.Append([]string{
			e.ID,
			e.Name,
			strconv.Itoa(len(e.Schema)),
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a saved schema to " + exportFile,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			lib, closeLib, err := openLibrary(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer closeLib()
			return exportEntry(cmd.Context(), cmd.OutOrStdout(), lib, args[0], out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", exportFile, "Output file")
	return cmd
}

func exportEntry(ctx context.Context, w io.Writer, lib library.Service, id, path string) error {
	entry, err := lib.Get(ctx, id)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return fmt.Errorf("no saved schema with id %s", id)
		}
		return err
	}
	if len(entry.Schema) == 0 {
		return errors.New("no schema to export")
	}
	if err := writeSchemaFile(path, entry.Schema); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Exported %q to %s\n", entry.Name, path)
	return err
}

type logsOptions struct {
	limit  int
	area   string
	method string
	path   string
	stats  bool
	top    int
}

func newLogsCmd() *cobra.Command {
	opts := &logsOptions{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recorded HTTP requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := store.New(cfg.DBPath, zap.NewNop())
			if err != nil {
				return fmt.Errorf("failed to open store: %w", err)
			}
			defer st.Close()
			return printLogs(cmd.OutOrStdout(), st, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "Number of requests to show")
	cmd.Flags().StringVar(&opts.area, "area", "", "Filter by area (page, editor, ws, api)")
	cmd.Flags().StringVar(&opts.method, "method", "", "Filter by HTTP method")
	cmd.Flags().StringVar(&opts.path, "path", "", "Filter by path prefix")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "Show aggregate statistics instead")
	cmd.Flags().IntVar(&opts.top, "top", 0, "Show the N most requested endpoints instead")
	return cmd
}

func printLogs(w io.Writer, st *store.Store, opts *logsOptions) error {
	switch {
	case opts.stats:
		stats, err := st.GetRequestLogStats()
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header("Requests", "Errors", "Avg ms", "Endpoints", "Sessions")
		if err := table.Append([]string{
			strconv.Itoa(stats.TotalRequests),
			strconv.Itoa(stats.ErrorRequests),
			strconv.Itoa(stats.AvgDurationMs),
			strconv.Itoa(stats.UniqueEndpoints),
			strconv.Itoa(stats.UniqueSessions),
		}); err != nil {
			return err
		}
		return table.Render()

	case opts.top > 0:
		endpoints, err := st.GetTopEndpoints(opts.top)
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(w)
		table.Header("Path", "Requests", "Avg ms")
		for _, e := range endpoints {
			if err := table.Append([]string{e.Path, strconv.Itoa(e.Count), strconv.Itoa(e.AvgMs)}); err != nil {
				return err
			}
		}
		return table.Render()
	}

	logs, err := st.GetRequestLogs(&store.RequestLogQuery{
		Limit:      opts.limit,
		Area:       opts.area,
		Method:     strings.ToUpper(opts.method),
		PathPrefix: opts.path,
	})
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "No requests recorded")
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("Time", "Area", "Method", "Path", "Status", "ms")
	for _, l := range logs {
		if err := table.Append([]string{
			l.Timestamp.Local().Format("2006-01-02 15:04:05"),
			l.Area,
			l.Method,
			l.Path,
			strconv.Itoa(l.StatusCode),
			strconv.Itoa(l.DurationMs),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
