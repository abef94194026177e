package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/ytplay/internal/formatter"
	"github.com/desertthunder/ytplay/internal/models"
)

// HistoryLister lists recorded playback events. repositories.PlaybackEventRepository implements it.
type HistoryLister interface {
	List(criteria map[string]any) ([]*models.PlaybackEvent, error)
}

var contentTypes = map[formatter.Format]string{
	formatter.FormatCSV:      "text/csv; charset=utf-8",
	formatter.FormatMarkdown: "text/markdown; charset=utf-8",
	formatter.FormatText:     "text/plain; charset=utf-8",
	formatter.FormatJSON:     "application/json",
}

// HistoryHandler serves GET /history?format=&kind=&item=&limit= from the event history.
//
// The format defaults to json.
func HistoryHandler(history HistoryLister) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		name := q.Get("format")
		if name == "" {
			name = string(formatter.FormatJSON)
		}
		format, err := formatter.ParseFormat(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		criteria := map[string]any{}
		if kind := q.Get("kind"); kind != "" {
			criteria["kind"] = kind
		}
		if item := q.Get("item"); item != "" {
			criteria["item"] = item
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
				return
			}
			criteria["limit"] = limit
		}

		events, err := history.List(criteria)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		data, err := formatter.Export(events, format)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", contentTypes[format])
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}
