// Package models defines the domain entities shared by the playback core and its persistence layer.
//
// The package contains two categories of types:
//
// 1. Descriptors: immutable values handed to the playback core by callers
//   - [Item] : a playlist entry with an ordered list of [Source] values
//   - [Source] : one playable representation of an item (file + format)
//   - [Playlist] : an ordered list of items loaded from a playlist file
//   - [Track] and [QualityLevel] : audio/subtitle tracks and renditions reported by providers
//
// 2. Persistent Entities: database-backed records with lifecycle management
//   - [PlaybackEvent] : a play attempt, play failure or state change captured from the event bus
//
// Persistent entities implement the [Model] interface providing ID generation, timestamps and validation.
// [Repository] defines CRUD access; [Appender] is its write-only subset used by the event recorder.
//
// # Time Strings
//
// Item start times and durations are strings so playlists can use clock notation. [Seconds]
// converts "90", "90s", "1.5m", "1h" and "01:02:03.500" into seconds.
package models
