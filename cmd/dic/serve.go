// ABOUTME: The serve command: HTTP editor server plus the optional watched schema file.
// ABOUTME: Server and watcher run under one errgroup and stop together on SIGINT/SIGTERM.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/2389/dic/internal/api"
	"github.com/2389/dic/internal/auth"
	"github.com/2389/dic/internal/library"
	"github.com/2389/dic/internal/logging"
	"github.com/2389/dic/internal/remote"
	"github.com/2389/dic/internal/session"
	"github.com/2389/dic/internal/store"
	"github.com/2389/dic/internal/textsync"
	"github.com/2389/dic/internal/watch"
	"github.com/2389/dic/internal/web"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	port  string
	watch string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor server",
		Long: `Start the DIC editor on the specified port.

The server provides:
  • The editor at http://localhost:PORT/
  • Request logs at http://localhost:PORT/logs
  • The JSON API at http://localhost:PORT/api
  • Health check at http://localhost:PORT/healthz

With --watch, every browser shares one editor whose schema is mirrored to the
given file: saving the file updates the editor, and editor changes rewrite it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "Port to listen on (default: 9000)")
	cmd.Flags().StringVarP(&opts.watch, "watch", "w", "", "Schema file to keep in sync with the editor")
	return cmd
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.port != "" {
		cfg.Port = opts.port
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger, closeLogger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLogger()

	st, err := store.New(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	gen, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}
	var lib library.Service = st
	if cfg.Remote.SchemasURL != "" {
		lib = remote.NewLibrary(cfg.Remote.SchemasURL, cfg.Remote.Timeout)
	}

	signalCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	group, ctx := errgroup.WithContext(signalCtx)

	sessionCfg := session.Config{
		Generator: gen,
		Library:   lib,
		NoticeTTL: cfg.NoticeTTL,
		Logger:    logger,
	}

	var sessions *session.Manager
	if opts.watch != "" {
		path, err := filepath.Abs(opts.watch)
		if err != nil {
			return err
		}
		shared := session.New("shared", sessionCfg)
		sessions = session.NewSharedManager(shared)

		fileSync := textsync.NewFileSync(path, shared.Model(), logger)
		var startErr error
		shared.Do(func() { startErr = fileSync.Start() })
		if startErr != nil {
			return startErr
		}
		defer fileSync.Close()

		watcher, err := watch.New(path)
		if err != nil {
			return err
		}
		group.Go(func() error {
			return watcher.Run(ctx,
				func(ev watch.Event) { shared.Do(func() { fileSync.Handle(ev) }) },
				func(err error) { logger.Warn("file watcher error", zap.Error(err)) },
			)
		})
		logger.Info("watching schema file", zap.String("path", path))
	} else {
		sessions = session.NewManager(func(id string) *session.Session {
			return session.New(id, sessionCfg)
		}, session.WithIdle(cfg.SessionIdle))
		group.Go(func() error { return sessions.Run(ctx) })
	}
	defer sessions.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newServer(st, sessions, gen, lib, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	group.Go(func() error {
		logger.Info("dic server listening", zap.String("addr", srv.Addr), zap.String("db", cfg.DBPath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func newServer(st *store.Store, sessions *session.Manager, gen api.Generator, lib library.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(st, logger))
	r.Use(auth.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	api.NewHandlers(gen, lib, logger).RegisterRoutes(r)
	web.NewHandlers(sessions, st, logger).RegisterRoutes(r)
	return r
}
