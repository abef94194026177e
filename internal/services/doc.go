// Package services talks to remote playback receivers.
//
// # Transport
//
// [APIService] performs raw JSON requests against a receiver's base URL. [HTTPReceiver] maps the
// receiver endpoints onto the [Receiver] interface:
//
//	POST /load   {"title", "file", "type", "start", "duration"}
//	POST /play
//	POST /pause
//	POST /stop
//	POST /seek   {"position"}
//	GET  /status {"state", "title", "position", "duration"}
//
// # Cast Provider
//
// [CastProvider] implements [provider.Provider] on top of a [Receiver] so the program controller
// can swap it in with CastVideo. Load and Play return futures that settle when the receiver
// answers; the remaining transport calls are sent in the background. While playing, the provider
// polls the receiver status and republishes it as provider events.
//
// # Error Handling
//
// Receiver calls use typed errors from the shared package:
//   - [shared.ErrServiceUnavailable] : the receiver could not be reached
//   - [shared.ErrAPIRequest] : the receiver answered with a non-2xx status or an unreadable body
package services
