package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytplay/internal/models"
	"github.com/desertthunder/ytplay/internal/playback"
	"github.com/desertthunder/ytplay/internal/program"
	"github.com/desertthunder/ytplay/internal/provider"
	"github.com/desertthunder/ytplay/internal/shared"
	tu "github.com/desertthunder/ytplay/internal/testing"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

type harness struct {
	server  *httptest.Server
	ctl     *program.ProgramController
	factory *tu.FakeFactory
}

func newHarness(t *testing.T, cast CastFunc, history HistoryLister) *harness {
	t.Helper()
	state := playback.NewState(playback.Options{PlayerID: "api", Logger: testLogger()})
	factory := tu.NewFakeFactory("fake", nil)
	sel := tu.NewFakeSelector()
	sel.Register("mp4", "fake", factory.Constructor, false)

	ctl := program.NewProgramController(state, sel, provider.Config{}, testLogger())
	if err := ctl.SetPlaylist([]models.Item{
		{Title: "one", Sources: []models.Source{{File: "one.mp4"}}, Duration: "1:00"},
		{Title: "two", Sources: []models.Source{{File: "two.xyz"}}},
		{Title: "three"},
	}); err != nil {
		t.Fatalf("SetPlaylist failed: %v", err)
	}

	router := NewBasicRouter()
	router.Use(Recoverer(testLogger()), Logging(testLogger()))
	router.Handler(NewControlHandler(ctl, cast, time.Second, testLogger()))
	if history != nil {
		router.Handle(http.MethodGet, "/history", HistoryHandler(history))
	}

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &harness{server: srv, ctl: ctl, factory: factory}
}

func (h *harness) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return resp.StatusCode, decoded
}

func TestControlHandler(t *testing.T) {
	t.Run("Routes", func(t *testing.T) {
		h := NewControlHandler(nil, nil, 0, nil)
		routes := h.Routes()
		if len(routes) != 8 {
			t.Errorf("expected 8 distinct paths, got %v", routes)
		}
	})

	t.Run("State", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		status, body := h.do(t, http.MethodGet, "/state", "")
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if body["state"] != string(models.StateIdle) {
			t.Errorf("expected idle, got %v", body["state"])
		}
		if body["rate"] != 1.0 {
			t.Errorf("expected rate 1, got %v", body["rate"])
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		if status, _ := h.do(t, http.MethodGet, "/play", ""); status != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", status)
		}
	})

	t.Run("Allow Header", func(t *testing.T) {
		handler := NewControlHandler(nil, nil, 0, testLogger())

		tc := []struct {
			method string
			path   string
			allow  string
		}{
			{method: http.MethodGet, path: "/play", allow: "POST"},
			{method: http.MethodPost, path: "/state", allow: "GET"},
			{method: http.MethodPut, path: "/cast", allow: "DELETE, POST"},
		}
		for _, tt := range tc {
			t.Run(tt.method+" "+tt.path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
				if rec.Code != http.StatusMethodNotAllowed {
					t.Fatalf("expected 405, got %d", rec.Code)
				}
				if got := rec.Header().Get("Allow"); got != tt.allow {
					t.Errorf("expected Allow %q, got %q", tt.allow, got)
				}
			})
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		if rec.Code != http.StatusNotFound || rec.Header().Get("Allow") != "" {
			t.Errorf("expected a plain 404 for unknown paths, got %d %q", rec.Code, rec.Header().Get("Allow"))
		}
	})

	t.Run("Activate And Play", func(t *testing.T) {
		h := newHarness(t, nil, nil)

		status, body := h.do(t, http.MethodPost, "/item", `{"index": 0}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		if body["item"] != "one" || body["provider"] != "fake" {
			t.Errorf("unexpected snapshot: %v", body)
		}
		if body["duration"] != 60.0 {
			t.Errorf("expected duration 60, got %v", body["duration"])
		}

		status, body = h.do(t, http.MethodPost, "/play", `{"reason": "interaction"}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		if got := h.factory.Last().Calls("Play"); got != 1 {
			t.Errorf("expected one provider play, got %d", got)
		}

		if status, _ := h.do(t, http.MethodPost, "/pause", ""); status != http.StatusOK {
			t.Errorf("pause: expected 200, got %d", status)
		}
		if got := h.factory.Last().Calls("Pause"); got != 1 {
			t.Errorf("expected one provider pause, got %d", got)
		}

		status, body = h.do(t, http.MethodPost, "/stop", "")
		if status != http.StatusOK || body["state"] != string(models.StateIdle) {
			t.Errorf("stop: expected 200 idle, got %d %v", status, body)
		}
	})

	t.Run("Item Errors", func(t *testing.T) {
		h := newHarness(t, nil, nil)

		tc := []struct {
			name string
			body string
			want int
		}{
			{name: "missing index", body: `{}`, want: http.StatusBadRequest},
			{name: "malformed", body: `{"index":`, want: http.StatusBadRequest},
			{name: "out of range", body: `{"index": 9}`, want: http.StatusNotFound},
			{name: "no provider", body: `{"index": 1}`, want: http.StatusUnprocessableEntity},
			{name: "no media", body: `{"index": 2}`, want: http.StatusUnprocessableEntity},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				status, body := h.do(t, http.MethodPost, "/item", tt.body)
				if status != tt.want {
					t.Errorf("expected %d, got %d: %v", tt.want, status, body)
				}
				if body["error"] == "" {
					t.Error("expected error message")
				}
			})
		}
	})

	t.Run("Play Without Item", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		if status, _ := h.do(t, http.MethodPost, "/play", ""); status != http.StatusConflict {
			t.Errorf("expected 409, got %d", status)
		}
	})

	t.Run("Preload", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		h.do(t, http.MethodPost, "/item", `{"index": 0}`)

		if status, _ := h.do(t, http.MethodPost, "/preload", ""); status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if got := h.factory.Last().Calls("Preload"); got != 1 {
			t.Errorf("expected one preload, got %d", got)
		}
	})

	t.Run("Quality", func(t *testing.T) {
		h := newHarness(t, nil, nil)

		if status, _ := h.do(t, http.MethodPost, "/quality", `{"index": 1}`); status != http.StatusNotFound {
			t.Errorf("expected 404 without a provider, got %d", status)
		}

		h.do(t, http.MethodPost, "/item", `{"index": 0}`)
		status, body := h.do(t, http.MethodPost, "/quality", `{"index": 1}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		if body["quality"] != 1.0 {
			t.Errorf("expected quality 1, got %v", body["quality"])
		}
	})

	t.Run("Cast Disabled", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		if status, _ := h.do(t, http.MethodPost, "/cast", `{"url": "http://tv"}`); status != http.StatusNotImplemented {
			t.Errorf("expected 501, got %d", status)
		}
	})

	t.Run("Cast", func(t *testing.T) {
		receiver := tu.NewFakeProvider("cast")
		var gotURL string
		h := newHarness(t, func(url string) (provider.Provider, error) {
			gotURL = url
			return receiver, nil
		}, nil)

		if status, _ := h.do(t, http.MethodPost, "/cast", `{"url": "http://tv"}`); status != http.StatusConflict {
			t.Errorf("expected 409 without an active item, got %d", status)
		}
		if status, _ := h.do(t, http.MethodPost, "/cast", `{}`); status != http.StatusBadRequest {
			t.Errorf("expected 400 without url, got %d", status)
		}

		h.do(t, http.MethodPost, "/item", `{"index": 0}`)
		status, body := h.do(t, http.MethodPost, "/cast", `{"url": "http://tv"}`)
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", status, body)
		}
		if gotURL != "http://tv" {
			t.Errorf("expected receiver url, got %q", gotURL)
		}
		if body["casting"] != true || body["provider"] != "cast" {
			t.Errorf("unexpected snapshot: %v", body)
		}
		if !receiver.InstreamMode() {
			t.Error("cast provider should be in instream mode")
		}

		status, body = h.do(t, http.MethodDelete, "/cast", "")
		if status != http.StatusOK || body["casting"] != false {
			t.Errorf("expected casting to stop, got %d %v", status, body)
		}
	})

	t.Run("Cast Failure", func(t *testing.T) {
		h := newHarness(t, func(string) (provider.Provider, error) {
			return nil, shared.ErrServiceUnavailable
		}, nil)
		h.do(t, http.MethodPost, "/item", `{"index": 0}`)

		if status, _ := h.do(t, http.MethodPost, "/cast", `{"url": "http://tv"}`); status != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", status)
		}
	})
}

type fakeHistory struct {
	events   []*models.PlaybackEvent
	err      error
	criteria map[string]any
}

func (f *fakeHistory) List(criteria map[string]any) ([]*models.PlaybackEvent, error) {
	f.criteria = criteria
	return f.events, f.err
}

func TestHistoryHandler(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []*models.PlaybackEvent{
		models.RestorePlaybackEvent("e1", 1, models.EventKindPlayAttempt, "one", "one.mp4", models.ReasonInteraction, "", "", at, at),
	}

	tc := []struct {
		name        string
		query       string
		err         error
		wantStatus  int
		wantType    string
		wantContain string
	}{
		{name: "default json", query: "", wantStatus: http.StatusOK, wantType: "application/json", wantContain: `"kind": "play_attempt"`},
		{name: "csv", query: "?format=csv", wantStatus: http.StatusOK, wantType: "text/csv; charset=utf-8", wantContain: "Sequence,Time"},
		{name: "markdown", query: "?format=md", wantStatus: http.StatusOK, wantType: "text/markdown; charset=utf-8", wantContain: "# Playback History"},
		{name: "bad format", query: "?format=xml", wantStatus: http.StatusBadRequest},
		{name: "bad limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
		{name: "list error", query: "", err: errors.New("db closed"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeHistory{events: events, err: tt.err}
			rec := httptest.NewRecorder()
			HistoryHandler(lister).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history"+tt.query, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantType != "" && rec.Header().Get("Content-Type") != tt.wantType {
				t.Errorf("expected content type %q, got %q", tt.wantType, rec.Header().Get("Content-Type"))
			}
			if tt.wantContain != "" && !strings.Contains(rec.Body.String(), tt.wantContain) {
				t.Errorf("expected body to contain %q, got %s", tt.wantContain, rec.Body.String())
			}
		})
	}

	t.Run("criteria", func(t *testing.T) {
		lister := &fakeHistory{}
		rec := httptest.NewRecorder()
		HistoryHandler(lister).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?kind=play_attempt&item=one&limit=5", nil))

		if lister.criteria["kind"] != "play_attempt" || lister.criteria["item"] != "one" || lister.criteria["limit"] != 5 {
			t.Errorf("unexpected criteria: %v", lister.criteria)
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Logging", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})

		router := NewBasicRouter()
		router.Use(Logging(logger))
		router.Handle(http.MethodGet, "/teapot", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/teapot", nil))

		if rec.Code != http.StatusTeapot {
			t.Errorf("expected 418, got %d", rec.Code)
		}
		if !strings.Contains(buf.String(), "path=/teapot") || !strings.Contains(buf.String(), "status=418") {
			t.Errorf("expected request log line, got %q", buf.String())
		}
	})

	t.Run("Recoverer", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recoverer(testLogger()))
		router.Handle(http.MethodGet, "/boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mark("first"), mark("second"))
		router.Handle(http.MethodGet, "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("expected first,second, got %v", order)
		}
	})

	t.Run("Method Filter", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle(http.MethodPost, "/only-post", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/only-post", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
		if allow := rec.Header().Get("Allow"); allow != "POST" {
			t.Errorf("expected Allow: POST, got %q", allow)
		}
	})

	t.Run("Methods Share A Path", func(t *testing.T) {
		router := NewBasicRouter()
		reply := func(body string) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) })
		}
		router.Handle(http.MethodGet, "/volume", reply("get"))
		router.Handle(http.MethodPut, "/volume", reply("put"))

		tc := []struct {
			method string
			code   int
			body   string
		}{
			{method: http.MethodGet, code: http.StatusOK, body: "get"},
			{method: http.MethodPut, code: http.StatusOK, body: "put"},
			{method: http.MethodHead, code: http.StatusOK},
			{method: http.MethodDelete, code: http.StatusMethodNotAllowed},
		}
		for _, tt := range tc {
			t.Run(tt.method, func(t *testing.T) {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(tt.method, "/volume", nil))
				if rec.Code != tt.code {
					t.Errorf("expected %d, got %d", tt.code, rec.Code)
				}
				if tt.body != "" && rec.Body.String() != tt.body {
					t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
				}
			})
		}

		if got := router.Allowed("/volume"); !slices.Equal(got, []string{"GET", "PUT"}) {
			t.Errorf("Allowed() = %v", got)
		}
	})

	t.Run("Duplicate Registration Panics", func(t *testing.T) {
		router := NewBasicRouter()
		noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
		router.Handle(http.MethodGet, "/dup", noop)

		defer func() {
			if recover() == nil {
				t.Error("expected duplicate registration to panic")
			}
		}()
		router.Handle(http.MethodGet, "/dup", noop)
	})
}
