package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/server"
	"github.com/urfave/cli/v3"
)

// historyCriteria builds repository list criteria from command flags.
func historyCriteria(kind, item string, limit int, since time.Duration) map[string]any {
	criteria := map[string]any{}
	if kind != "" {
		criteria["kind"] = kind
	}
	if item != "" {
		criteria["item"] = item
	}
	if limit > 0 {
		criteria["limit"] = limit
	}
	if since > 0 {
		criteria["since"] = time.Now().Add(-since)
	}
	return criteria
}

// History prints or exports recorded playback events.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, repo, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := historyCriteria(cmd.String("kind"), cmd.String("item"), int(cmd.Int("limit")), cmd.Duration("since"))
	return r.exportHistory(repo, criteria, format, cmd.String("output"))
}

func (r *Runner) exportHistory(history server.HistoryLister, criteria map[string]any, format formatter.Format, output string) error {
	events, err := history.List(criteria)
	if err != nil {
		return err
	}
	r.logger.Debug("listed playback events", "count", len(events), "format", format)

	if output == "" {
		return formatter.WriteTo(r.output, events, format)
	}

	path, err := formatter.WriteExport(events, format, output)
	if err != nil {
		return fmt.Errorf("failed to export history: %w", err)
	}
	r.writePlain("✓ Exported %d events to %s\n", len(events), path)
	return nil
}
