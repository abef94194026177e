package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/desertthunder/ytplay/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive now-playing terminal UI.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	ctl, _, err := r.loadPlayer(cmd.StringArg("playlist"))
	if err != nil {
		return err
	}
	defer ctl.StopVideo()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cmd.Bool("record") {
		db, repo, err := r.openHistory()
		if err != nil {
			r.logger.Warn("playback history disabled", "error", err)
		} else {
			defer db.Close()
			_, done := r.startRecorder(ctx, ctl.State(), repo)
			defer func() {
				cancel()
				<-done
			}()
		}
	}

	events, unsubscribe := ctl.State().Subscribe(256)
	defer unsubscribe()

	model := ui.NewModel(ctx, ctl, events, cmd.Bool("advance"))
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
