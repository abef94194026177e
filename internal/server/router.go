package server

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
)

// BasicRouter is the control API's [Router]: an [http.ServeMux] with per-path method dispatch
// and a middleware stack applied to every registered handler.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware

	mu      sync.RWMutex
	methods map[string]map[string]http.Handler // path -> method -> wrapped handler
}

var _ Router = (*BasicRouter)(nil)

func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
		methods:     map[string]map[string]http.Handler{},
	}
}

// Use adds [Middleware] to the stack, applied in the order it's added. Only handlers registered
// afterwards are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method on path. A path can be registered once per method; other
// methods get 405 with an Allow header, and HEAD falls back to GET.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	method = strings.ToUpper(method)
	wrapped := r.Apply(handler)

	r.mu.Lock()
	defer r.mu.Unlock()

	byMethod, seen := r.methods[path]
	if !seen {
		byMethod = map[string]http.Handler{}
		r.methods[path] = byMethod
		r.mux.Handle(path, r.dispatch(path))
	}
	if _, dup := byMethod[method]; dup {
		panic(fmt.Sprintf("server: %s %s registered twice", method, path))
	}
	byMethod[method] = wrapped
}

// Handler registers h for every path in [Handler.Routes]; h does its own method dispatch.
func (r *BasicRouter) Handler(h Handler) {
	wrapped := r.Apply(h)

	for _, route := range h.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware, the first added being outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}

// Allowed returns the methods registered through [BasicRouter.Handle] for path, sorted.
func (r *BasicRouter) Allowed(path string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var methods []string
	for m := range r.methods[path] {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

func (r *BasicRouter) dispatch(path string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.mu.RLock()
		h, ok := r.methods[path][req.Method]
		if !ok && req.Method == http.MethodHead {
			h, ok = r.methods[path][http.MethodGet]
		}
		r.mu.RUnlock()

		if !ok {
			w.Header().Set("Allow", strings.Join(r.Allowed(path), ", "))
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.ServeHTTP(w, req)
	})
}
