// Package tasks runs long-lived playback operations with real-time progress reporting.
//
// # Sessions
//
// [Session.Run] plays a playlist through a [Controller] (normally a program.ProgramController):
//
//  1. Activates each item in order and waits for its provider
//  2. Optionally preloads the item
//  3. Plays it, with reason "playlist" for every item after the first
//  4. Waits for the complete event and advances
//
// Items without media or without a provider are skipped. A rejected play attempt ends the session,
// as does a provider error.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Position updates are throttled with a token bucket limiter; other phases are always sent.
package tasks
