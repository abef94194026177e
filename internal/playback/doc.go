// package playback holds the player-wide state shared by the program controllers and the
// event bus observers subscribe to.
//
// [State] is owned by whoever constructs it and passed by pointer. It implements
// [provider.Listener] so providers report state, time and completion directly into it.
package playback
