package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/ytplay/internal/models"
)

const (
	colorAccent  = lipgloss.Color("#7D56F4")
	colorGood    = lipgloss.Color("#04B575")
	colorBad     = lipgloss.Color("#FF0000")
	colorCaution = lipgloss.Color("#FFA500")
	colorMuted   = lipgloss.Color("#626262")
)

var styles = newTheme()

// theme groups the styles of the now-playing view. Player states map onto the same
// good/caution/bad/muted scale as notices.
type theme struct {
	heading lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
	caution lipgloss.Style
	muted   lipgloss.Style
	filled  lipgloss.Style
}

func newTheme() *theme {
	base := lipgloss.NewStyle()
	return &theme{
		heading: base.Foreground(colorAccent).Bold(true).MarginBottom(1),
		good:    base.Foreground(colorGood).Bold(true),
		bad:     base.Foreground(colorBad).Bold(true),
		caution: base.Foreground(colorCaution),
		muted:   base.Foreground(colorMuted).Italic(true),
		filled:  base.Foreground(colorAccent),
	}
}

// State renders a player state in the color that matches its severity.
func (t *theme) State(state models.PlayerState) string {
	label := string(state)
	switch state {
	case models.StatePlaying, models.StateComplete:
		return t.good.Render(label)
	case models.StateError:
		return t.bad.Render(label)
	case models.StatePaused, models.StateBuffering:
		return t.caution.Render(label)
	default:
		return t.muted.Render(label)
	}
}

// Bar renders filled of width cells as a progress bar.
func (t *theme) Bar(filled, width int) string {
	filled = max(0, min(filled, width))
	return t.filled.Render(strings.Repeat("█", filled)) + t.muted.Render(strings.Repeat("░", width-filled))
}
