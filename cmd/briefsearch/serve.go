package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"briefsearch/internal/cache"
	"briefsearch/internal/httpapi"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API over HTTP",
	Long: `Starts the JSON API (GET /healthz, POST /v1/search) on PORT and, for
cache backends that support it, prunes stale cache entries on
CACHE_PRUNE_SCHEDULE.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if pruner, ok := a.pruner(); ok {
		janitor, err := cache.NewJanitor(pruner, a.cfg.CachePruneSchedule, a.cfg.CacheMaxAge(), a.log)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	handler := httpapi.NewRouter(a.cfg, httpapi.NewHandler(a.engine), a.log)
	srv := &http.Server{
		Addr:         a.cfg.ListenAddress(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 130 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.ListenAddress()).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("shutdown error")
	}
	return nil
}
