// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand handles database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize the history database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// configCommand handles configuration files.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the default configuration file",
				Flags:  []cli.Flag{configFlag()},
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the active configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

// playCommand plays a playlist headlessly.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a playlist file from start to end",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "start",
				Usage: "Playlist index to start at",
				Value: 0,
			},
			&cli.StringFlag{
				Name:  "item",
				Usage: "Start at the item whose title best matches this query",
			},
			&cli.BoolFlag{
				Name:  "preload",
				Usage: "Preload each item before playing it",
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record playback events to the history database",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "cast-url",
				Usage: "Play the start item on a remote receiver instead",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only print the summary",
			},
		},
		Action: r.Play,
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive now-playing TUI",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "advance",
				Usage: "Start the next item when one completes",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record playback events to the history database",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the terminal",
				Value: "./tmp/ytplay-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand exposes the player over HTTP.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP control API for a playlist",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "playlist"},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long a request waits for playback to settle",
				Value: 10 * time.Second,
			},
			&cli.BoolFlag{
				Name:  "record",
				Usage: "Record playback events to the history database",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the state endpoint in a browser",
			},
		},
		Action: r.Serve,
	}
}

// historyCommand exports recorded playback events.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or export recorded playback events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: txt, csv, markdown or json",
				Value:   "txt",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "kind",
				Usage: "Only events of this kind (play_attempt, play_attempt_failed, state_changed)",
			},
			&cli.StringFlag{
				Name:  "item",
				Usage: "Only events for this item title",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Only the latest N events",
			},
			&cli.DurationFlag{
				Name:  "since",
				Usage: "Only events newer than this duration ago",
			},
		},
		Action: r.History,
	}
}
