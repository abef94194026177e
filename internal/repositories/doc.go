// Package repositories implements SQLite persistence for playback history.
//
// Key Implementations:
//   - [PlaybackEventRepository] : playback event history with soft deletes
//   - [EventRecorder] : subscribes to the player's event bus and stores play attempts, failures and state changes
//
// Sequence numbers provide stable, human-readable ordering (e.g., event #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
