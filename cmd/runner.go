package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/provider"
	"github.com/desertthunder/ytplay/internal/repositories"
	"github.com/desertthunder/ytplay/internal/services"
	"github.com/desertthunder/ytplay/internal/shared"
	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, playCommand, tuiCommand, serveCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by every component built afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) providerConfig() provider.Config {
	p := r.config.Providers
	return provider.Config{
		AutoplayBlocked: r.config.Player.AutoplayBlocked,
		Mute:            r.config.Player.Mute,
		Volume:          r.config.Player.Volume,
		SetupDelay:      p.SetupDelay,
		StartLatency:    p.StartLatency,
		TickInterval:    p.TickInterval,
	}
}

// newPlayer builds an orchestrator with the built-in providers and hands it the playlist.
func (r *Runner) newPlayer(playlist *models.Playlist) (*program.ProgramController, error) {
	reason := models.ReasonInteraction
	if r.config.Player.Autostart {
		reason = models.ReasonAutostart
	}

	state := playback.NewState(playback.Options{
		PlayerID:            shared.GenerateID(),
		Autostart:           r.config.Player.Autostart,
		DefaultPlaybackRate: r.config.Player.DefaultPlaybackRate,
		PlayReason:          reason,
		Volume:              r.config.Player.Volume,
		Mute:                r.config.Player.Mute,
		Logger:              r.logger,
	})
	state.SetMediaContainer(&provider.Container{ID: r.config.Player.ContainerID})

	registry := provider.NewDefaultRegistry(r.config.Providers.LoadDelayDuration(), r.logger)
	ctl := program.NewProgramController(state, registry, r.providerConfig(), r.logger)
	if err := ctl.SetPlaylist(playlist.Items); err != nil {
		return nil, err
	}
	return ctl, nil
}

// loadPlayer reads the playlist at path and builds a player for it.
func (r *Runner) loadPlayer(path string) (*program.ProgramController, *models.Playlist, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("%w: playlist path", shared.ErrMissingArgument)
	}
	playlist, err := shared.LoadPlaylist(path)
	if err != nil {
		return nil, nil, err
	}
	ctl, err := r.newPlayer(playlist)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("playlist loaded", "title", playlist.Title, "items", len(playlist.Items))
	return ctl, playlist, nil
}

// findItem returns the index of the playlist entry whose title best matches query.
func findItem(items []models.Item, query string) (int, error) {
	titles := make([]string, len(items))
	for i, item := range items {
		titles[i] = item.Title
	}
	matches := fuzzy.Find(query, titles)
	if len(matches) == 0 {
		return -1, fmt.Errorf("%w: no item matches %q", shared.ErrInvalidArgument, query)
	}
	return matches[0].Index, nil
}

// openHistory opens the configured database and brings its schema up to date.
func (r *Runner) openHistory() (*sql.DB, *repositories.PlaybackEventRepository, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, repositories.NewPlaybackEventRepository(db), nil
}

// startRecorder persists events published on state until ctx ends. The returned channel is
// closed once the recorder has drained.
func (r *Runner) startRecorder(ctx context.Context, state *playback.State, repo *repositories.PlaybackEventRepository) (*repositories.EventRecorder, <-chan struct{}) {
	recorder := repositories.NewEventRecorder(repo, shared.ComponentLogger(r.logger, "history"))
	events, unsubscribe := state.Subscribe(256)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer unsubscribe()
		if err := recorder.Run(ctx, events); err != nil && ctx.Err() == nil {
			r.logger.Error("recorder stopped", "error", err)
		}
	}()
	return recorder, done
}

// castProvider builds a provider that plays on the receiver at url.
func (r *Runner) castProvider(url string) (provider.Provider, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: receiver url", shared.ErrMissingArgument)
	}
	api := services.NewAPIService(url, r.httpClient)
	return services.NewCastProvider(services.NewHTTPReceiver(api), 0, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
