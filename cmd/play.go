package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/desertthunder/ytplay/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Play runs a playlist session until every item has finished or the user interrupts.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctl, playlist, err := r.loadPlayer(cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	defer ctl.StopVideo()

	if cmd.Bool("record") {
		db, repo, err := r.openHistory()
		if err != nil {
			r.logger.Warn("playback history disabled", "error", err)
		} else {
			defer db.Close()
			recordCtx, cancel := context.WithCancel(ctx)
			recorder, done := r.startRecorder(recordCtx, ctl.State(), repo)
			defer func() {
				cancel()
				<-done
				r.logger.Debug("playback events recorded", "count", recorder.Recorded())
			}()
		}
	}

	start := int(cmd.Int("start"))
	if query := cmd.String("item"); query != "" {
		if start, err = findItem(playlist.Items, query); err != nil {
			return err
		}
	}
	if url := cmd.String("cast-url"); url != "" {
		return r.castItem(ctx, ctl, start, url)
	}

	title := playlist.Title
	if title == "" {
		title = "Playlist"
	}
	quiet := cmd.Bool("quiet")
	if !quiet {
		r.writePlainHeader(title)
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progress {
			if quiet || update.Phase == tasks.PhasePosition {
				r.logger.Debug(update.Message, "phase", update.Phase)
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	session := tasks.NewSession(ctl, tasks.SessionOpts{
		Start:   start,
		Preload: cmd.Bool("preload"),
		Logger:  r.logger,
	})
	result, err := session.Run(ctx, progress)
	close(progress)
	<-printed

	if result != nil {
		r.writePlainln("Played %d of %d items (%d skipped)", result.Completed, result.Total, result.Skipped)
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		r.logger.Info("playback interrupted")
		return nil
	case errors.Is(err, shared.ErrPlayRejected):
		r.writePlain("Playback was blocked by the autoplay policy. Run 'ytplay tui' to start it interactively.\n")
		return err
	default:
		return err
	}
}

// castItem plays the playlist entry at index on the receiver at url and waits for it to finish.
func (r *Runner) castItem(ctx context.Context, ctl *program.ProgramController, index int, url string) error {
	state := ctl.State()
	item := state.PlaylistItemAt(index)
	if item == nil {
		return fmt.Errorf("%w: %d", shared.ErrIndexOutOfRange, index)
	}

	p, err := r.castProvider(url)
	if err != nil {
		return err
	}

	events, unsubscribe := state.Subscribe(64)
	defer unsubscribe()

	state.SetActiveItem(item, index)
	ctl.CastVideo(p, item)
	defer ctl.StopCast()

	r.writePlain("Casting %s to %s\n", item.Title, url)
	if _, err := ctl.PlayVideo(models.ReasonInteraction).Wait(ctx); err != nil {
		return err
	}
	if state.PlayRejected() {
		return fmt.Errorf("%w: receiver refused %s", shared.ErrPlayRejected, item.Title)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			switch e.Kind {
			case playback.Complete:
				r.writePlain("✓ Finished %s\n", item.Title)
				return nil
			case playback.StateChanged:
				if e.State == models.StateError {
					return fmt.Errorf("%w: receiver reported an error", shared.ErrServiceUnavailable)
				}
			}
		}
	}
}
