package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"calview/internal/capture"
	appLog "calview/internal/log"
	"calview/internal/schedule"
	"calview/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the refresh scheduler",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	appLog.Info("calview starting", "version", version)

	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Feed changes and /api/events/mutated both land on the hub.
	unwatch := a.engine.Watch(ctx, a.hub)
	defer unwatch()
	a.engine.RefreshAsync(ctx)

	sched := schedule.New(a.loc)
	if err := schedule.RegisterCalendar(sched, a.cfg, a.engine, snapshotJob(a)); err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           web.NewServer(a.cfg, a.engine, a.hub).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+a.cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			appLog.Error("HTTP server failed", err)
			stopScheduler(sched)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server shutdown failed", err)
	}
	stopScheduler(sched)

	appLog.Info("calview exiting")
	return nil
}

func stopScheduler(s *schedule.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		appLog.Warn("scheduler stop timed out", "err", err)
	}
}

// snapshotJob captures the configured /calendar URL to the preview path.
func snapshotJob(a *app) schedule.JobFunc {
	return func(ctx context.Context) error {
		return capture.CalendarPNG(ctx, captureOptions(a, a.cfg.Snapshot.URL, a.cfg.Snapshot.Output))
	}
}

func captureOptions(a *app, url, out string) capture.Options {
	opts := capture.Options{
		URL:        url,
		OutputPath: out,
		Width:      a.cfg.Snapshot.Width,
		Height:     a.cfg.Snapshot.Height,
	}
	if a.cfg.BasicAuth != nil {
		opts.Username = a.cfg.BasicAuth.Username
		opts.Password = a.cfg.BasicAuth.Password
	}
	return opts
}
