// package formatter exports playback history to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// ParseFormat resolves a format name, accepting common aliases ("md", "text").
func ParseFormat(name string) (Format, error) {
	switch name {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, name)
	}
}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatCSV, FormatJSON:
		return "." + string(f)
	default:
		return ".txt"
	}
}

const timeLayout = time.RFC3339

// ExportToCSV converts events to CSV format with columns: Sequence, Time, Kind, Item, Source, Reason, State, Error
func ExportToCSV(events []*models.PlaybackEvent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Time", "Kind", "Item", "Source", "Reason", "State", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, e := range events {
		record := []string{
			strconv.Itoa(e.Sequence()),
			e.CreatedAt().Format(timeLayout),
			string(e.Kind()),
			e.ItemTitle(),
			e.Source(),
			string(e.Reason()),
			string(e.State()),
			e.Error(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts events to a Markdown report with a summary and an event table
func ExportToMarkdown(events []*models.PlaybackEvent, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Playback History"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	s := Summarize(events)
	buf.WriteString(fmt.Sprintf("**Events**: %d\n", len(events)))
	buf.WriteString(fmt.Sprintf("**Play attempts**: %d\n", s.Attempts))
	buf.WriteString(fmt.Sprintf("**Failed attempts**: %d\n", s.Failures))
	buf.WriteString(fmt.Sprintf("**Completed**: %d\n\n", s.Completed))

	if len(events) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("## Events\n\n")
	buf.WriteString("| # | Time | Kind | Item | Detail |\n")
	buf.WriteString("|---|------|------|------|--------|\n")
	for _, e := range events {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			e.Sequence(),
			e.CreatedAt().Format(timeLayout),
			e.Kind(),
			escapeCell(e.ItemTitle()),
			escapeCell(detail(e)),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts events to plain text format, one event per line
func ExportToText(events []*models.PlaybackEvent) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Events: %d\n\n", len(events)))
	for _, e := range events {
		line := fmt.Sprintf("%d. [%s] %s", e.Sequence(), e.CreatedAt().Format(timeLayout), e.Kind())
		if e.ItemTitle() != "" {
			line += " - " + e.ItemTitle()
		}
		if d := detail(e); d != "" {
			line += " (" + d + ")"
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

type eventJSON struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Kind      string    `json:"kind"`
	Item      string    `json:"item,omitempty"`
	Source    string    `json:"source,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	State     string    `json:"state,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportToJSON converts events to an indented JSON array
func ExportToJSON(events []*models.PlaybackEvent) ([]byte, error) {
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, eventJSON{
			ID:        e.ID(),
			Sequence:  e.Sequence(),
			Kind:      string(e.Kind()),
			Item:      e.ItemTitle(),
			Source:    e.Source(),
			Reason:    string(e.Reason()),
			State:     string(e.State()),
			Error:     e.Error(),
			CreatedAt: e.CreatedAt(),
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export renders events in the given format.
func Export(events []*models.PlaybackEvent, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(events)
	case FormatMarkdown:
		return ExportToMarkdown(events, "")
	case FormatJSON:
		return ExportToJSON(events)
	case FormatText:
		return ExportToText(events)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// WriteTo renders events and writes them to w.
func WriteTo(w io.Writer, events []*models.PlaybackEvent, format Format) error {
	data, err := Export(events, format)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}

// WriteExport writes events to path, creating parent directories as needed.
//
// Defaults to history{ext} in the working directory.
func WriteExport(events []*models.PlaybackEvent, format Format, path string) (string, error) {
	if path == "" {
		path = "history" + format.Extension()
	}

	data, err := Export(events, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

// Summary counts the notable events in a history.
type Summary struct {
	Attempts  int
	Failures  int
	Completed int
}

func Summarize(events []*models.PlaybackEvent) Summary {
	var s Summary
	for _, e := range events {
		switch e.Kind() {
		case models.EventKindPlayAttempt:
			s.Attempts++
		case models.EventKindPlayAttemptFailed:
			s.Failures++
		case models.EventKindStateChanged:
			if e.State() == models.StateComplete {
				s.Completed++
			}
		}
	}
	return s
}

func detail(e *models.PlaybackEvent) string {
	switch e.Kind() {
	case models.EventKindPlayAttempt:
		return string(e.Reason())
	case models.EventKindPlayAttemptFailed:
		if e.Reason() != "" {
			return fmt.Sprintf("%s: %s", e.Reason(), e.Error())
		}
		return e.Error()
	default:
		return string(e.State())
	}
}

func escapeCell(s string) string {
	var buf bytes.Buffer
	for _, r := range s {
		switch r {
		case '|':
			buf.WriteString(`\|`)
		case '\n':
			buf.WriteByte(' ')
		default:
			buf.WriteRune(r)
		}
	}
	return buf.String()
}
