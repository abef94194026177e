package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/async"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/provider"
	"github.com/desertthunder/ytplay/internal/shared"
)

// Player is the playback surface the control API drives. [program.ProgramController] implements it.
type Player interface {
	State() *playback.State
	SetActiveItem(item *models.Item, index int) (*async.Future[*program.MediaController], error)
	PlayVideo(reason models.PlayReason) *async.Future[async.Void]
	Pause()
	StopVideo()
	PreloadVideo()
	Quality() int
	Qualities() []models.QualityLevel
	SetQuality(index int)
	CastVideo(p provider.Provider, item *models.Item) *program.MediaController
	StopCast()
	Casting() bool
}

var _ Player = (*program.ProgramController)(nil)

// CastFunc builds a provider that renders on the receiver at url.
type CastFunc func(url string) (provider.Provider, error)

// StatusResponse is the body of GET /state and of every successful control call.
type StatusResponse struct {
	State        models.PlayerState    `json:"state"`
	Item         string                `json:"item,omitempty"`
	Index        int                   `json:"index"`
	Provider     string                `json:"provider,omitempty"`
	Position     float64               `json:"position"`
	Duration     float64               `json:"duration"`
	Rate         float64               `json:"rate"`
	PlayRejected bool                  `json:"play_rejected"`
	Casting      bool                  `json:"casting"`
	Quality      int                   `json:"quality"`
	Qualities    []models.QualityLevel `json:"qualities,omitempty"`
}

type indexRequest struct {
	Index *int `json:"index"`
}

type playRequest struct {
	Reason models.PlayReason `json:"reason"`
}

type castRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type route struct {
	method string
	path   string
	fn     http.HandlerFunc
}

// ControlHandler serves the player control endpoints.
type ControlHandler struct {
	player  Player
	cast    CastFunc
	timeout time.Duration
	logger  *log.Logger
	routes  map[string]http.HandlerFunc
	paths   []string
}

var _ Handler = (*ControlHandler)(nil)

// NewControlHandler creates a control handler. A nil cast disables POST /cast.
//
// Calls that wait on activation or play attempts give up after timeout.
func NewControlHandler(player Player, cast CastFunc, timeout time.Duration, logger *log.Logger) *ControlHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}
	h := &ControlHandler{
		player:  player,
		cast:    cast,
		timeout: timeout,
		logger:  logger.WithPrefix("api"),
		routes:  make(map[string]http.HandlerFunc),
	}
	for _, rt := range []route{
		{http.MethodGet, "/state", h.getState},
		{http.MethodPost, "/play", h.play},
		{http.MethodPost, "/pause", h.pause},
		{http.MethodPost, "/stop", h.stop},
		{http.MethodPost, "/item", h.setItem},
		{http.MethodPost, "/preload", h.preload},
		{http.MethodPost, "/quality", h.setQuality},
		{http.MethodPost, "/cast", h.startCast},
		{http.MethodDelete, "/cast", h.stopCast},
	} {
		if !slices.Contains(h.paths, rt.path) {
			h.paths = append(h.paths, rt.path)
		}
		h.routes[rt.method+" "+rt.path] = rt.fn
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *ControlHandler) Routes() []string {
	return h.paths
}

func (h *ControlHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fn, ok := h.routes[r.Method+" "+r.URL.Path]
	if !ok {
		if allowed := h.allowed(r.URL.Path); len(allowed) > 0 {
			w.Header().Set("Allow", strings.Join(allowed, ", "))
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	fn(w, r)
}

// allowed returns the methods registered for path, sorted.
func (h *ControlHandler) allowed(path string) []string {
	var methods []string
	for key := range h.routes {
		if method, p, _ := strings.Cut(key, " "); p == path {
			methods = append(methods, method)
		}
	}
	slices.Sort(methods)
	return methods
}

// Status snapshots the player.
func (h *ControlHandler) Status() StatusResponse {
	state := h.player.State()
	resp := StatusResponse{
		State:        state.PlayerState(),
		Index:        state.Index(),
		Provider:     state.ProviderName(),
		Position:     state.Position(),
		Duration:     state.Duration(),
		Rate:         state.PlaybackRate(),
		PlayRejected: state.PlayRejected(),
		Casting:      h.player.Casting(),
		Quality:      h.player.Quality(),
		Qualities:    h.player.Qualities(),
	}
	if item := state.PlaylistItem(); item != nil {
		resp.Item = item.Title
	}
	return resp
}

func (h *ControlHandler) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) play(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.player.State().PlaylistItem() == nil {
		writeError(w, http.StatusConflict, shared.ErrNoMedia.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := h.player.PlayVideo(req.Reason).Wait(ctx); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.player.Pause()
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) stop(w http.ResponseWriter, r *http.Request) {
	h.player.StopVideo()
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) preload(w http.ResponseWriter, r *http.Request) {
	h.player.PreloadVideo()
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) setItem(w http.ResponseWriter, r *http.Request) {
	index, err := requireIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	item := h.player.State().PlaylistItemAt(index)
	if item == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %d", shared.ErrIndexOutOfRange, index))
		return
	}

	activated, err := h.player.SetActiveItem(item, index)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := activated.Wait(ctx); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) setQuality(w http.ResponseWriter, r *http.Request) {
	index, err := requireIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if index < 0 || index >= len(h.player.Qualities()) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: %d", shared.ErrIndexOutOfRange, index))
		return
	}
	h.player.SetQuality(index)
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) startCast(w http.ResponseWriter, r *http.Request) {
	if h.cast == nil {
		writeError(w, http.StatusNotImplemented, "casting is not configured")
		return
	}
	var req castRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%v: url", shared.ErrMissingArgument))
		return
	}
	item := h.player.State().PlaylistItem()
	if item == nil {
		writeError(w, http.StatusConflict, shared.ErrNoMedia.Error())
		return
	}

	p, err := h.cast(req.URL)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.player.CastVideo(p, item)
	h.logger.Info("casting", "receiver", req.URL, "item", item.Title)
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) stopCast(w http.ResponseWriter, r *http.Request) {
	h.player.StopCast()
	writeJSON(w, http.StatusOK, h.Status())
}

func (h *ControlHandler) writeFailure(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrNoMedia), errors.Is(err, shared.ErrNoProvider):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrServiceUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.logger.Warn("control request failed", "status", status, "error", err)
	writeError(w, status, err.Error())
}

func requireIndex(r *http.Request) (int, error) {
	var req indexRequest
	if err := decodeBody(r, &req); err != nil {
		return 0, err
	}
	if req.Index == nil {
		return 0, fmt.Errorf("%w: index", shared.ErrMissingArgument)
	}
	return *req.Index, nil
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
