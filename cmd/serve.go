package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/ytplay/internal/server"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/urfave/cli/v3"
)

// newRouter wires the control API and, when history is set, the history endpoint.
func (r *Runner) newRouter(player server.Player, history server.HistoryLister, timeout time.Duration) *server.BasicRouter {
	logger := shared.ComponentLogger(r.logger, "http")
	router := server.NewBasicRouter()
	router.Use(server.Recoverer(logger), server.Logging(logger))
	router.Handler(server.NewControlHandler(player, r.castProvider, timeout, logger))
	if history != nil {
		router.Handle(http.MethodGet, "/history", server.HistoryHandler(history))
	}
	return router
}

// Serve exposes the player for a playlist over HTTP until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl, playlist, err := r.loadPlayer(cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	defer ctl.StopVideo()

	var history server.HistoryLister
	if cmd.Bool("record") {
		db, repo, err := r.openHistory()
		if err != nil {
			r.logger.Warn("playback history disabled", "error", err)
		} else {
			defer db.Close()
			recordCtx, cancel := context.WithCancel(ctx)
			_, done := r.startRecorder(recordCtx, ctl.State(), repo)
			defer func() {
				cancel()
				<-done
			}()
			history = repo
		}
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}
	httpServer := &http.Server{
		Addr:    addr,
		Handler: r.newRouter(ctl, history, cmd.Duration("timeout")),
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("serving %q at %v", playlist.Title, addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	stateURL := fmt.Sprintf("http://%s/state", addr)
	r.writePlain("→ Control API listening on http://%s\n", addr)
	if cmd.Bool("open") {
		time.Sleep(100 * time.Millisecond)
		if err := shared.OpenBrowser(stateURL); err != nil {
			r.logger.Warnf("failed to open browser automatically %v", err)
			r.writePlain("Open %s to see the player state\n", stateURL)
		}
	}

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}
	r.logger.Info("server stopped")
	return nil
}
