package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/httpapi"
)

// shutdownGrace is how long in-flight requests get to finish after a
// termination signal.
const shutdownGrace = 10 * time.Second

func newServeCmd() *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API server",
		Long: `Serve the engine over HTTP: preview, export, sweep, dry-run control,
history, undo, lists, imports, and filters. Dry-run switches made over
the API apply to this process only; use the dryrun command to persist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			return withApp(cmd.Context(), cc, func(a *app) error {
				if err := a.requireRemote(); err != nil {
					return err
				}

				addr := listenAddr
				if addr == "" {
					addr = a.cfg.Server.ListenAddr
				}

				api := httpapi.New(httpapi.Deps{
					Fetcher:    a.collector,
					Reconciler: a.reconciler,
					Executor:   a.executor,
					Undoer:     a.undoer,
					Sweeper:    a.sweeper,
					DryRun:     a.dryRun,
					Exclusions: a.exclusions,
					Evaluator:  a.evaluator,
					Store:      a.store,
					PageSize:   a.cfg.Engine.PageSize,
					Logger:     cc.Logger,
				})

				server := &http.Server{
					Addr:              addr,
					Handler:           api.Handler(),
					ReadHeaderTimeout: 5 * time.Second,
				}

				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				errCh := make(chan error, 1)

				go func() {
					cc.Logger.Info("listening", "addr", addr)
					errCh <- server.ListenAndServe()
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				cc.Logger.Info("shutting down")

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return err
				}

				if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
					return err
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (default: config listen_addr)")

	return cmd
}
