package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/shared"
	"golang.org/x/time/rate"
)

// Outcome describes how a session finished an item.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// ItemResult records what happened to one playlist entry.
type ItemResult struct {
	Index   int
	Title   string
	Outcome Outcome
	Error   error
}

// SessionResult contains the per-item results of a session run.
type SessionResult struct {
	Items     []ItemResult
	Completed int
	Skipped   int
	Total     int
}

// Controller is the subset of [program.ProgramController] a session drives.
type Controller interface {
	State() *playback.State
	SetActiveItem(item *models.Item, index int) (*async.Future[*program.MediaController], error)
	PreloadVideo()
	PlayVideo(reason models.PlayReason) *async.Future[async.Void]
}

var _ Controller = (*program.ProgramController)(nil)

// SessionOpts configures a [Session].
type SessionOpts struct {
	Start            int     // Playlist index to begin at
	Preload          bool    // Preload each item before playing it
	UpdatesPerSecond float64 // Rate of position updates (default: 4)
	Logger           *log.Logger
}

// Session plays a playlist from start to end, advancing on completion.
type Session struct {
	ctl     Controller
	opts    SessionOpts
	limiter *rate.Limiter
	logger  *log.Logger
}

func NewSession(ctl Controller, opts SessionOpts) *Session {
	if opts.UpdatesPerSecond <= 0 {
		opts.UpdatesPerSecond = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ctl:     ctl,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.UpdatesPerSecond), 1),
		logger:  logger.WithPrefix("session"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (s *Session) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run plays every item from opts.Start onward.
//
// Items without media or without a provider are skipped. A rejected play attempt ends the session
// with [shared.ErrPlayRejected], since nothing will advance playback until the user interacts.
func (s *Session) Run(ctx context.Context, progress chan<- ProgressUpdate) (*SessionResult, error) {
	state := s.ctl.State()
	items := state.Playlist()
	if len(items) == 0 {
		return nil, shared.ErrEmptyPlaylist
	}
	if s.opts.Start < 0 || s.opts.Start >= len(items) {
		return nil, fmt.Errorf("%w: %d", shared.ErrIndexOutOfRange, s.opts.Start)
	}

	events, unsubscribe := state.Subscribe(256)
	defer unsubscribe()

	total := len(items) - s.opts.Start
	result := &SessionResult{Total: total}

	for i := s.opts.Start; i < len(items); i++ {
		step := i - s.opts.Start + 1
		item := &items[i]
		s.sendProgress(progress, activateUpdate(step, total, item))

		res, err := s.playItem(ctx, events, progress, item, i, step, total)
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Items = append(result.Items, res)

		switch res.Outcome {
		case OutcomeCompleted:
			result.Completed++
			s.sendProgress(progress, completeUpdate(step, total, item))
		case OutcomeSkipped:
			result.Skipped++
			s.logger.Warn("skipping item", "index", i, "title", item.Title, "error", res.Error)
			s.sendProgress(progress, skipUpdate(step, total, item, res.Error))
		case OutcomeRejected:
			return result, fmt.Errorf("%w: %s: %w", shared.ErrPlayRejected, itemTitle(item), res.Error)
		case OutcomeFailed:
			return result, fmt.Errorf("playback failed on %s: %w", itemTitle(item), res.Error)
		}
	}
	return result, nil
}

func (s *Session) playItem(ctx context.Context, events <-chan playback.Event, progress chan<- ProgressUpdate, item *models.Item, index, step, total int) (ItemResult, error) {
	res := ItemResult{Index: index, Title: item.Title}

	activated, err := s.ctl.SetActiveItem(item, index)
	if err != nil {
		res.Outcome, res.Error = OutcomeSkipped, err
		return res, nil
	}
	mc, err := activated.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return res, err
		}
		res.Outcome, res.Error = OutcomeSkipped, err
		return res, nil
	}
	if mc == nil {
		res.Outcome, res.Error = OutcomeSkipped, shared.ErrNoProvider
		return res, nil
	}

	if s.opts.Preload {
		s.ctl.PreloadVideo()
	}

	// The first item plays for whatever reason started the session.
	var reason models.PlayReason
	if index > s.opts.Start {
		reason = models.ReasonPlaylist
	}
	s.sendProgress(progress, playUpdate(step, total, item, reason))

	if _, err := s.ctl.PlayVideo(reason).Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return res, err
		}
		res.Outcome, res.Error = OutcomeSkipped, err
		return res, nil
	}
	if s.ctl.State().PlayRejected() {
		res.Outcome, res.Error = OutcomeRejected, errors.New("play attempt was rejected")
		return res, nil
	}

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case e, ok := <-events:
			if !ok {
				return res, context.Canceled
			}
			switch e.Kind {
			case playback.Time:
				if s.limiter.Allow() {
					s.sendProgress(progress, positionUpdate(step, total, item, e.Position, e.Duration))
				}
			case playback.Complete:
				res.Outcome = OutcomeCompleted
				return res, nil
			case playback.PlayAttemptFailed:
				res.Outcome, res.Error = OutcomeRejected, e.Err
				return res, nil
			case playback.StateChanged:
				if e.State == models.StateError {
					res.Outcome, res.Error = OutcomeFailed, errors.New("provider reported an error")
					return res, nil
				}
			}
		}
	}
}

func itemTitle(item *models.Item) string {
	if item == nil {
		return ""
	}
	if item.Title != "" {
		return item.Title
	}
	if src, ok := item.FirstSource(); ok {
		return src.File
	}
	return ""
}
