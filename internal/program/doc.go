// package program sequences the playback lifecycle.
//
// [ProgramController] picks a provider for the active item, constructs or reuses it and hands
// it to a [MediaController], which drives a single provider through init, preload, play and
// stop for one item at a time. Asynchronous continuations carry the activation or media model
// they were started for and become no-ops once a newer one is installed.
package program
