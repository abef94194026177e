package tasks

import (
	"fmt"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// ProgressUpdate represents a progress event during a playback session.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Session phase
	Step    int    // Current item number within the session
	Total   int    // Total items in this session
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Position is the payload of [PhasePosition] updates.
type Position struct {
	Position float64
	Duration float64
}

// Session phase enumeration
type Phase int

const (
	PhaseActivate Phase = iota
	PhasePlay
	PhasePosition
	PhaseComplete
	PhaseSkip
)

func (p Phase) String() string {
	switch p {
	case PhaseActivate:
		return "activate"
	case PhasePlay:
		return "play"
	case PhasePosition:
		return "position"
	case PhaseComplete:
		return "complete"
	case PhaseSkip:
		return "skip"
	default:
		return ""
	}
}

func activateUpdate(step, total int, item *models.Item) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseActivate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Loading %s...", step, total, itemTitle(item)),
		Data:    item,
	}
}

func playUpdate(step, total int, item *models.Item, reason models.PlayReason) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] Playing %s", step, total, itemTitle(item))
	if reason != "" {
		msg += fmt.Sprintf(" (%s)", reason)
	}
	return ProgressUpdate{
		Phase:   PhasePlay,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    item,
	}
}

func positionUpdate(step, total int, item *models.Item, position, duration float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePosition,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s / %s", step, total, itemTitle(item), shared.FormatDuration(position), shared.FormatDuration(duration)),
		Data:    Position{Position: position, Duration: duration},
	}
}

func completeUpdate(step, total int, item *models.Item) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseComplete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, itemTitle(item)),
		Data:    item,
	}
}

func skipUpdate(step, total int, item *models.Item, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSkip,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, itemTitle(item), err),
		Data:    item,
	}
}
