// Package server provides HTTP routing, middleware, and the player control API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recoverer] are the middleware the serve command installs.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Control API
//
// [ControlHandler] exposes the program controller over JSON:
//
//	GET    /state    player snapshot
//	POST   /play     {"reason": "..."} plays the active item
//	POST   /pause
//	POST   /stop
//	POST   /item     {"index": n} activates a playlist entry
//	POST   /preload
//	POST   /quality  {"index": n}
//	POST   /cast     {"url": "..."} hands the active item to a remote receiver
//	DELETE /cast     returns to local playback
//
// Control calls respond with the same snapshot as GET /state.
//
// # History
//
// [HistoryHandler] renders recorded playback events in any format the formatter package supports.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
